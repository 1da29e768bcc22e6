package resilience

import (
	"errors"
	"testing"
	"time"

	"github.com/talentsignal/signal-cli/internal/model"
)

func fixedPolicy(t *testing.T) (*EscalationPolicy, time.Time) {
	t.Helper()
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	p := NewEscalationPolicy()
	p.nowFunc = func() time.Time { return now }
	return p, now
}

func TestOnFailure_TransientRequeues(t *testing.T) {
	p, now := fixedPolicy(t)
	item := &model.Item{ID: "i1", URN: "urn:post:1", Status: model.StatusEnrichmentRunning}

	out := p.OnFailure(item, NewTransientError(errors.New("timeout"), 504))

	if out != OutcomeRequeued {
		t.Fatalf("expected requeued, got %v", out)
	}
	if item.Status != model.StatusRetryScheduled {
		t.Errorf("expected retry_scheduled, got %s", item.Status)
	}
	if item.RetryCount != 1 {
		t.Errorf("expected retry_count 1, got %d", item.RetryCount)
	}
	if item.NextRetryAt == nil || !item.NextRetryAt.Equal(now.Add(RetryDelay)) {
		t.Errorf("expected next_retry_at %v, got %v", now.Add(RetryDelay), item.NextRetryAt)
	}
}

func TestOnFailure_CeilingMarksFailed(t *testing.T) {
	// Three consecutive timeouts: two requeues, then permanent failure with
	// retry_count == 3.
	p, _ := fixedPolicy(t)
	item := &model.Item{ID: "i1", URN: "urn:post:1"}

	err := NewTransientError(errors.New("enrichment timeout"), 0)
	if out := p.OnFailure(item, err); out != OutcomeRequeued {
		t.Fatalf("failure 1: expected requeued, got %v", out)
	}
	if out := p.OnFailure(item, err); out != OutcomeRequeued {
		t.Fatalf("failure 2: expected requeued, got %v", out)
	}
	out := p.OnFailure(item, err)
	if out != OutcomeFailed {
		t.Fatalf("failure 3: expected failed_permanently, got %v", out)
	}
	if item.RetryCount != MaxRetries {
		t.Errorf("expected retry_count %d, got %d", MaxRetries, item.RetryCount)
	}
	if item.Status != model.StatusFailed {
		t.Errorf("expected failed, got %s", item.Status)
	}
	if item.NextRetryAt != nil {
		t.Error("expected next_retry_at cleared on permanent failure")
	}
}

func TestOnFailure_ValidationTerminal(t *testing.T) {
	p, _ := fixedPolicy(t)
	item := &model.Item{ID: "i1", URN: "urn:post:1"}

	out := p.OnFailure(item, NewValidationError("missing profile identifier"))

	if out != OutcomeTerminal {
		t.Fatalf("expected terminal, got %v", out)
	}
	if item.Status != model.StatusError {
		t.Errorf("expected error status, got %s", item.Status)
	}
	if item.RetryCount != 0 {
		t.Errorf("validation failures must not consume retries, got count %d", item.RetryCount)
	}
}

func TestOnFailure_ParseTerminal(t *testing.T) {
	p, _ := fixedPolicy(t)
	item := &model.Item{ID: "i1", URN: "urn:post:1"}

	out := p.OnFailure(item, NewParseError("oracle", errors.New("response is prose, not JSON")))

	if out != OutcomeTerminal {
		t.Fatalf("expected terminal, got %v", out)
	}
	if item.Status != model.StatusError {
		t.Errorf("expected error status, got %s", item.Status)
	}
	if item.LastError == "" {
		t.Error("expected last_error persisted on item")
	}
}
