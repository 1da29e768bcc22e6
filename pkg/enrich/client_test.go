package enrich

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "Bearer key-1", r.Header.Get("Authorization"))
		assert.Equal(t, "/profile/jane-doe-123", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"public_id": "jane-doe-123",
			"full_name": "Jane Doe",
			"headline": "Head of Talent",
			"current_employer": "Acme Corp",
			"current_employer_id": "acme-1",
			"current_title": "Head of Talent",
			"phone": "+1-555-0100",
			"positions": [
				{"employer": "Acme Corp", "title": "Head of Talent", "start_date": "2023-01"},
				{"employer": "Globex", "title": "Recruiter", "start_date": "2019-05", "end_date": "2022-12"}
			]
		}`))
	}))
	defer srv.Close()

	client := NewClient([]string{"key-1"}, WithBaseURL(srv.URL))
	got, err := client.Resolve(context.Background(), "jane-doe-123")

	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", got.FullName)
	assert.Equal(t, "Acme Corp", got.Employer)
	assert.Equal(t, "+1-555-0100", got.Phone)
	require.Len(t, got.Positions, 2)
	assert.Equal(t, "Globex", got.Positions[1].Employer)
	assert.NotEmpty(t, got.Raw)
}

func TestResolve_NotFound(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"no such profile"}`))
	}))
	defer srv.Close()

	client := NewClient([]string{"key-1"}, WithBaseURL(srv.URL))
	_, err := client.Resolve(context.Background(), "ghost")

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestResolve_RetriesTransientThenSucceeds(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"public_id":"p1","full_name":"Jane Doe"}`))
	}))
	defer srv.Close()

	client := NewClient([]string{"key-1"}, WithBaseURL(srv.URL))
	got, err := client.Resolve(context.Background(), "p1")

	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", got.FullName)
	assert.Equal(t, int32(2), calls.Load())
}

func TestResolve_RotatesCredentialsAcrossRetries(t *testing.T) {
	t.Parallel()

	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient([]string{"key-a", "key-b"}, WithBaseURL(srv.URL))
	_, err := client.Resolve(context.Background(), "p1")

	require.Error(t, err)
	require.Len(t, seen, 3)
	assert.Equal(t, "Bearer key-a", seen[0])
	assert.Equal(t, "Bearer key-b", seen[1])
	assert.Equal(t, "Bearer key-a", seen[2])

	// Exhausted retries surface the last throttling status to the caller.
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusTooManyRequests, se.Code)
}

func TestResolve_PermanentStatusError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`forbidden`))
	}))
	defer srv.Close()

	client := NewClient([]string{"key-1"}, WithBaseURL(srv.URL))
	_, err := client.Resolve(context.Background(), "p1")

	require.Error(t, err)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusForbidden, se.Code)
}

func TestResolve_MalformedJSON(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json at all`))
	}))
	defer srv.Close()

	client := NewClient([]string{"key-1"}, WithBaseURL(srv.URL))
	_, err := client.Resolve(context.Background(), "p1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal")
}
