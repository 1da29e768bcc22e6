// Package monitoring snapshots pipeline health from the store and evaluates
// it against alert thresholds. The collector backs both the status command
// and the metrics endpoint; the checker runs the same snapshot on a ticker.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/talentsignal/signal-cli/internal/model"
	"github.com/talentsignal/signal-cli/internal/store"
)

// MetricsSnapshot holds a point-in-time view of pipeline health.
type MetricsSnapshot struct {
	StatusCounts map[model.ProcessingStatus]int `json:"status_counts"`

	ItemsTotal int `json:"items_total"`
	// Queued counts pending plus claimed-but-unstarted items.
	Queued int `json:"queued"`
	// Running counts items currently inside a stage.
	Running int `json:"running"`
	// Rejected counts stage 1 and stage 2 rejections.
	Rejected int `json:"rejected"`
	// Reconciled counts completed, duplicate and completed_vendor items.
	Reconciled int `json:"reconciled"`
	// RetryBacklog is the retry_scheduled depth.
	RetryBacklog int `json:"retry_backlog"`
	// Dead counts terminal error and failed items.
	Dead int `json:"dead"`

	// FailRate is Dead over all items that reached a terminal status.
	FailRate float64 `json:"fail_rate"`

	Leads model.LeadCounts `json:"leads"`

	CollectedAt time.Time `json:"collected_at"`
}

// Collector gathers metrics from the store.
type Collector struct {
	store store.Store
}

// NewCollector creates a metrics collector.
func NewCollector(st store.Store) *Collector {
	return &Collector{store: st}
}

// Collect gathers a snapshot of pipeline metrics.
func (c *Collector) Collect(ctx context.Context) (*MetricsSnapshot, error) {
	counts, err := c.store.CountItemsByStatus(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: count items")
	}

	snap := &MetricsSnapshot{
		StatusCounts: counts,
		CollectedAt:  time.Now().UTC(),
	}

	for status, n := range counts {
		snap.ItemsTotal += n
		switch status {
		case model.StatusPending, model.StatusInFlight:
			snap.Queued += n
		case model.StatusStage1Running, model.StatusStage2Running,
			model.StatusStage3Running, model.StatusEnrichmentRunning,
			model.StatusMatchingRunning, model.StatusMessagingRunning,
			model.StatusDedupRunning:
			snap.Running += n
		case model.StatusStage1Rejected, model.StatusStage2Rejected:
			snap.Rejected += n
		case model.StatusCompleted, model.StatusDuplicate, model.StatusCompletedVendor:
			snap.Reconciled += n
		case model.StatusRetryScheduled:
			snap.RetryBacklog += n
		case model.StatusError, model.StatusFailed:
			snap.Dead += n
		}
	}

	if terminal := snap.Rejected + snap.Reconciled + snap.Dead; terminal > 0 {
		snap.FailRate = float64(snap.Dead) / float64(terminal)
	}

	leads, err := c.store.CountLeads(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: count leads")
	}
	snap.Leads = *leads

	return snap, nil
}
