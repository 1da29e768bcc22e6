// Package trace carries a per-item correlation ID through the pipeline and
// emits structured stage lifecycle events against it. Every log line for one
// item's journey shares the same correlation_id, so a single grep reconstructs
// the full run.
package trace

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ctxKey struct{}

// NewCorrelationID returns a fresh correlation identifier.
func NewCorrelationID() string {
	return uuid.NewString()
}

// WithCorrelationID returns a context carrying the given correlation ID.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// CorrelationID extracts the correlation ID from the context, or "" if none
// was set.
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// Logger returns the global logger annotated with the context's correlation
// ID, if present.
func Logger(ctx context.Context) *zap.Logger {
	if id := CorrelationID(ctx); id != "" {
		return zap.L().With(zap.String("correlation_id", id))
	}
	return zap.L()
}

// StageStarted logs the start of a pipeline stage for an item.
func StageStarted(ctx context.Context, stage, itemID, urn string) {
	Logger(ctx).Info("stage started",
		zap.String("stage", stage),
		zap.String("item_id", itemID),
		zap.String("urn", urn),
	)
}

// StageCompleted logs a successful stage, with the resulting status.
func StageCompleted(ctx context.Context, stage, itemID, status string) {
	Logger(ctx).Info("stage completed",
		zap.String("stage", stage),
		zap.String("item_id", itemID),
		zap.String("status", status),
	)
}

// StageFailed logs a stage failure with the error and retry depth.
func StageFailed(ctx context.Context, stage, itemID string, retryCount int, err error) {
	Logger(ctx).Warn("stage failed",
		zap.String("stage", stage),
		zap.String("item_id", itemID),
		zap.Int("retry_count", retryCount),
		zap.Error(err),
	)
}

// StageSkipped logs a stage the pipeline bypassed, with the reason.
func StageSkipped(ctx context.Context, stage, itemID, reason string) {
	Logger(ctx).Info("stage skipped",
		zap.String("stage", stage),
		zap.String("item_id", itemID),
		zap.String("reason", reason),
	)
}
