// Package enrich provides a client for the profile enrichment API. A post
// author's profile identifier resolves to full name, employment history, and
// contact details.
package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"

	"github.com/talentsignal/signal-cli/internal/resilience"
)

// ErrNotFound is returned when the provider has no record for the profile.
// Callers treat this as an enrichment skip, not a failure.
var ErrNotFound = eris.New("enrich: profile not found")

// Client defines the profile enrichment operations.
type Client interface {
	// Resolve looks up a profile by its public identifier and returns the
	// enriched profile. Returns ErrNotFound when the provider has no record.
	Resolve(ctx context.Context, profileID string) (*Profile, error)
}

// Profile is the enriched view of a post author.
type Profile struct {
	PublicID   string          `json:"public_id"`
	FullName   string          `json:"full_name"`
	Headline   string          `json:"headline"`
	Employer   string          `json:"current_employer"`
	EmployerID string          `json:"current_employer_id"`
	Title      string          `json:"current_title"`
	Phone      string          `json:"phone"`
	Location   string          `json:"location"`
	Positions  []Position      `json:"positions"`
	Raw        json.RawMessage `json:"-"`
}

// Position is one entry in the profile's employment history, most recent
// first.
type Position struct {
	Employer   string `json:"employer"`
	EmployerID string `json:"employer_id"`
	Title      string `json:"title"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
}

// StatusError reports a non-success HTTP status after retries were exhausted.
// The status code lets callers distinguish throttling and outages from
// permanent rejections.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("enrich: status %d: %s", e.Code, e.Body)
}

// Option configures the enrich client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithTimeout overrides the default request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		c.http.Timeout = d
	}
}

type httpClient struct {
	creds   *Pool
	baseURL string
	http    *http.Client
	retry   resilience.RetryConfig
}

// NewClient creates a profile enrichment client. Keys are rotated round-robin
// across requests so one throttled credential does not stall the batch.
// Transient statuses (429, 500, 502, 503) and transport errors retry with
// exponential backoff, rotating to the next credential on each attempt.
func NewClient(keys []string, opts ...Option) Client {
	c := &httpClient{
		creds:   NewPool(keys),
		baseURL: "https://api.proxycurl.com/v2",
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		retry: resilience.RetryConfig{
			MaxAttempts:    3,
			InitialBackoff: 1 * time.Second,
			ShouldRetry:    retryableError,
			OnRetry:        resilience.RetryLogger("enrich", "resolve"),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// retryableStatusCode returns true if the HTTP status code should trigger a retry.
func retryableStatusCode(code int) bool {
	return code == http.StatusTooManyRequests ||
		code == http.StatusInternalServerError ||
		code == http.StatusBadGateway ||
		code == http.StatusServiceUnavailable
}

// retryableError classifies errors for the retry loop: a StatusError retries
// only on throttling and outage codes, everything else here is a transport
// error and gets another attempt.
func retryableError(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return retryableStatusCode(se.Code)
	}
	return true
}

// httpResult carries one attempt's response through the retry loop.
type httpResult struct {
	body   []byte
	status int
}

// doOnce performs a single attempt against the provider with the next
// credential from the pool. Retryable statuses surface as errors so the retry
// loop sees them; all other statuses are a final answer for the caller.
func (c *httpClient) doOnce(ctx context.Context, req *http.Request) (httpResult, error) {
	attemptReq := req.Clone(ctx)
	attemptReq.Header.Set("Authorization", "Bearer "+c.creds.Next())

	resp, err := c.http.Do(attemptReq)
	if err != nil {
		return httpResult{}, eris.Wrap(err, "enrich: do request")
	}

	body, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return httpResult{}, eris.Wrap(readErr, "enrich: read response body")
	}

	if retryableStatusCode(resp.StatusCode) {
		return httpResult{}, &StatusError{Code: resp.StatusCode, Body: string(body)}
	}
	return httpResult{body: body, status: resp.StatusCode}, nil
}

func (c *httpClient) Resolve(ctx context.Context, profileID string) (*Profile, error) {
	reqURL := fmt.Sprintf("%s/profile/%s", c.baseURL, url.PathEscape(profileID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "enrich: create request")
	}
	req.Header.Set("Accept", "application/json")

	res, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) (httpResult, error) {
		return c.doOnce(ctx, req)
	})
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) {
			return nil, se
		}
		return nil, eris.Wrap(err, "enrich: request failed")
	}

	if res.status == http.StatusNotFound {
		return nil, ErrNotFound
	}

	if res.status != http.StatusOK {
		return nil, &StatusError{Code: res.status, Body: string(res.body)}
	}

	var profile Profile
	if err := json.Unmarshal(res.body, &profile); err != nil {
		return nil, eris.Wrap(err, "enrich: unmarshal response")
	}
	profile.Raw = json.RawMessage(res.body)

	return &profile, nil
}
