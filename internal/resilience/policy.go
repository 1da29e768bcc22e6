package resilience

import (
	"time"

	"go.uber.org/zap"

	"github.com/talentsignal/signal-cli/internal/model"
)

const (
	// MaxRetries is the per-item failure ceiling. Once retry_count reaches
	// it, the item is marked permanently failed.
	MaxRetries = 3

	// RetryDelay is the fixed requeue delay after a transient failure.
	// Intentionally coarse so transient upstream outages can clear.
	RetryDelay = 5 * time.Minute
)

// Outcome is the escalation decision for a failed item.
type Outcome string

const (
	// OutcomeRequeued means the item was scheduled for another attempt.
	OutcomeRequeued Outcome = "requeued"
	// OutcomeFailed means the retry ceiling was exhausted.
	OutcomeFailed Outcome = "failed_permanently"
	// OutcomeTerminal means the error class is never retried (validation or
	// parse failure).
	OutcomeTerminal Outcome = "terminal"
)

// EscalationPolicy decides what happens to an item after a stage failure.
// It mutates the item's status and retry bookkeeping; the caller persists.
type EscalationPolicy struct {
	MaxRetries int
	Delay      time.Duration

	// nowFunc allows test injection of time.
	nowFunc func() time.Time
}

// NewEscalationPolicy returns the default policy: 3 retries, 5-minute delay.
func NewEscalationPolicy() *EscalationPolicy {
	return &EscalationPolicy{
		MaxRetries: MaxRetries,
		Delay:      RetryDelay,
		nowFunc:    time.Now,
	}
}

// OnFailure applies the escalation policy to a failed item. Validation and
// parse failures are terminal immediately. Anything else consumes one retry:
// the counter is incremented, and the item either goes back to the queue with
// a durable next_retry_at or, at the ceiling, is marked permanently failed.
func (p *EscalationPolicy) OnFailure(item *model.Item, err error) Outcome {
	item.LastError = err.Error()

	kind := Classify(err)
	if kind == KindValidation || kind == KindParse {
		item.Status = model.StatusError
		zap.L().Warn("item terminal on unretryable error",
			zap.String("item_id", item.ID),
			zap.String("urn", item.URN),
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
		return OutcomeTerminal
	}

	now := p.nowFunc().UTC()
	item.RetryCount++
	item.LastRetryAt = &now

	if item.RetryCount >= p.MaxRetries {
		item.Status = model.StatusFailed
		item.NextRetryAt = nil
		zap.L().Error("item permanently failed",
			zap.String("item_id", item.ID),
			zap.String("urn", item.URN),
			zap.Int("retry_count", item.RetryCount),
			zap.Error(err),
		)
		return OutcomeFailed
	}

	next := now.Add(p.Delay)
	item.NextRetryAt = &next
	item.Status = model.StatusRetryScheduled
	zap.L().Warn("item requeued after failure",
		zap.String("item_id", item.ID),
		zap.String("urn", item.URN),
		zap.Int("retry_count", item.RetryCount),
		zap.Time("next_retry_at", next),
		zap.Error(err),
	)
	return OutcomeRequeued
}
