package resilience

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"transient", NewTransientError(errors.New("429"), 429), KindTransient},
		{"validation", NewValidationError("missing urn"), KindValidation},
		{"parse", NewParseError("oracle", errors.New("not json")), KindParse},
		{"permanent", errors.New("something else"), KindPermanent},
		{"wrapped transient", fmt.Errorf("stage1: %w", NewTransientError(errors.New("503"), 503)), KindTransient},
		{"wrapped parse", fmt.Errorf("stage3: %w", NewParseError("oracle", errors.New("bad schema"))), KindParse},
		{"network timeout string", errors.New("Get \"https://x\": i/o timeout"), KindTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassify_ParseWinsOverTransientText(t *testing.T) {
	// A parse error whose message mentions a timeout must still be terminal.
	err := NewParseError("enrichment", errors.New("i/o timeout while decoding"))
	if got := Classify(err); got != KindParse {
		t.Errorf("Classify() = %v, want %v", got, KindParse)
	}
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		if !IsTransientHTTPStatus(code) {
			t.Errorf("expected %d transient", code)
		}
	}
	for _, code := range []int{200, 400, 401, 403, 404, 422} {
		if IsTransientHTTPStatus(code) {
			t.Errorf("expected %d not transient", code)
		}
	}
}
