package pipeline

import (
	"context"
	"errors"

	"github.com/talentsignal/signal-cli/internal/model"
	"github.com/talentsignal/signal-cli/internal/resilience"
	"github.com/talentsignal/signal-cli/internal/trace"
	"github.com/talentsignal/signal-cli/pkg/enrich"
)

// runEnrichment resolves the author's profile into employer, title and phone
// data. A missing profile identifier or a vanished profile (404) records a
// skip and lets the item advance with nulls; provider outages are surfaced
// for the retry policy.
func (p *Pipeline) runEnrichment(ctx context.Context, item *model.Item, res *model.ProcessingResult) error {
	if err := p.setStatus(ctx, item, model.StatusEnrichmentRunning); err != nil {
		return err
	}
	trace.StageStarted(ctx, "enrichment", item.ID, item.URN)

	if item.AuthorProfileID == "" {
		item.EnrichmentSkipped = true
		trace.StageSkipped(ctx, "enrichment", item.ID, "item has no author profile id")
		return p.store.UpdateItem(ctx, item)
	}

	profile, err := resilience.ExecuteVal(ctx, p.breakers.Get("enrich"), func(ctx context.Context) (*enrich.Profile, error) {
		return p.enricher.Resolve(ctx, item.AuthorProfileID)
	})
	if err != nil {
		if errors.Is(err, enrich.ErrNotFound) {
			item.EnrichmentSkipped = true
			trace.StageSkipped(ctx, "enrichment", item.ID, "profile not found at provider")
			return p.store.UpdateItem(ctx, item)
		}
		err = classifyEnrichError(err)
		trace.StageFailed(ctx, "enrichment", item.ID, item.RetryCount, err)
		return err
	}

	item.EmployerName = profile.Employer
	item.EmployerID = profile.EmployerID
	item.Position = profile.Title
	item.Phone = profile.Phone
	item.EnrichmentRaw = profile.Raw
	res.StagesRun = append(res.StagesRun, "enrichment")

	if err := p.store.UpdateItem(ctx, item); err != nil {
		return err
	}
	trace.StageCompleted(ctx, "enrichment", item.ID, string(item.Status))
	return nil
}

// classifyEnrichError maps provider status errors onto the retry taxonomy:
// retryable HTTP statuses become transient, everything else passes through.
func classifyEnrichError(err error) error {
	var se *enrich.StatusError
	if errors.As(err, &se) && resilience.IsTransientHTTPStatus(se.Code) {
		return resilience.NewTransientError(err, se.Code)
	}
	return err
}
