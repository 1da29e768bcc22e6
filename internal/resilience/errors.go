package resilience

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
)

// Kind partitions failures into the classes the escalation policy acts on.
type Kind string

const (
	// KindTransient covers timeouts, rate limits, and 5xx responses. Safe to
	// retry.
	KindTransient Kind = "transient"
	// KindValidation covers malformed or missing identifiers on the item
	// itself. Never retried.
	KindValidation Kind = "validation"
	// KindParse covers collaborator responses that cannot be interpreted
	// against the expected schema. Never retried.
	KindParse Kind = "parse"
	// KindPermanent covers everything else.
	KindPermanent Kind = "permanent"
)

// TransientError wraps an error that is safe to retry (429, 5xx, network
// timeout).
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string { return e.Err.Error() }

func (e *TransientError) Unwrap() error { return e.Err }

// NewTransientError wraps an error as transient with an optional HTTP status
// code.
func NewTransientError(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

// ValidationError marks an item as structurally unprocessable: missing or
// malformed identifier, empty post body. The item is terminal immediately.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// NewValidationError formats a validation error.
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// ParseError marks a collaborator response that could not be interpreted
// against the expected schema. Retrying would replay the same malformed
// answer, so these are terminal.
type ParseError struct {
	Service string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: unparseable response: %v", e.Service, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// NewParseError wraps an error as a parse failure from the named service.
func NewParseError(service string, err error) *ParseError {
	return &ParseError{Service: service, Err: err}
}

// IsTransient returns true if the error (or any error in its chain) is a
// TransientError, or matches common transient network patterns.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	// String heuristics for errors wrapped by HTTP clients.
	msg := strings.ToLower(err.Error())
	for _, p := range []string{
		"connection reset by peer",
		"broken pipe",
		"temporary failure in name resolution",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
		"server closed idle connection",
		"transport connection broken",
	} {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}

// IsValidation reports whether the chain contains a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsParse reports whether the chain contains a ParseError.
func IsParse(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// Classify maps an error to its Kind. Validation and parse failures are
// checked before the transient heuristics so an explicitly-typed error is
// never retried on the strength of its message text.
func Classify(err error) Kind {
	switch {
	case IsValidation(err):
		return KindValidation
	case IsParse(err):
		return KindParse
	case IsTransient(err):
		return KindTransient
	default:
		return KindPermanent
	}
}

// IsTransientHTTPStatus returns true if the HTTP status code indicates a
// transient server-side issue that is safe to retry.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
