// Package pipeline drives a single item through the hiring-signal state
// machine: three classification stages, profile enrichment, directory
// matching, outreach message generation, and lead dedup. Each stage persists
// its verdict before the next one starts, so a retried item resumes where it
// left off instead of recomputing finished stages.
package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/talentsignal/signal-cli/internal/cost"
	"github.com/talentsignal/signal-cli/internal/model"
	"github.com/talentsignal/signal-cli/internal/registry"
	"github.com/talentsignal/signal-cli/internal/resilience"
	"github.com/talentsignal/signal-cli/internal/store"
	"github.com/talentsignal/signal-cli/internal/trace"
	"github.com/talentsignal/signal-cli/pkg/anthropic"
	"github.com/talentsignal/signal-cli/pkg/enrich"
)

// Config holds the pipeline's tunables.
type Config struct {
	// FastModel handles the high-volume classification stages; DeepModel
	// handles category refinement and message drafting.
	FastModel string
	DeepModel string
	MaxTokens int64

	// MaxRoles caps the role list extracted in Stage 1. More distinct roles
	// than this reads as an agency round-up post, not direct hiring.
	MaxRoles int

	// MessageMaxRunes is the hard outreach message ceiling.
	MessageMaxRunes int
}

func (c Config) withDefaults() Config {
	if c.MaxTokens <= 0 {
		c.MaxTokens = 1024
	}
	if c.MaxRoles <= 0 {
		c.MaxRoles = 3
	}
	if c.MessageMaxRunes <= 0 {
		c.MessageMaxRunes = 300
	}
	return c
}

// Pipeline processes items end to end.
type Pipeline struct {
	store    store.Store
	oracle   anthropic.Client
	enricher enrich.Client
	cats     *registry.Categories
	locales  *registry.Locales
	policy   *resilience.EscalationPolicy
	breakers *resilience.ServiceBreakers
	costs    *cost.Calculator
	cfg      Config
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithPolicy overrides the default escalation policy.
func WithPolicy(p *resilience.EscalationPolicy) Option {
	return func(pl *Pipeline) { pl.policy = p }
}

// WithCalculator overrides the default cost calculator.
func WithCalculator(c *cost.Calculator) Option {
	return func(pl *Pipeline) { pl.costs = c }
}

// New creates a Pipeline.
func New(st store.Store, oracle anthropic.Client, enricher enrich.Client, cats *registry.Categories, locales *registry.Locales, cfg Config, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:    st,
		oracle:   oracle,
		enricher: enricher,
		cats:     cats,
		locales:  locales,
		policy:   resilience.NewEscalationPolicy(),
		breakers: resilience.NewServiceBreakers(resilience.DefaultCircuitBreakerConfig()),
		costs:    cost.NewCalculator(cost.DefaultRates()),
		cfg:      cfg.withDefaults(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProcessItem loads an item by ID and drives it through the pipeline.
func (p *Pipeline) ProcessItem(ctx context.Context, itemID string) (*model.ProcessingResult, error) {
	item, err := p.store.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, eris.Errorf("pipeline: item not found: %s", itemID)
	}
	return p.Process(ctx, item)
}

// Process drives an already-loaded item through the pipeline. Stage failures
// are absorbed into the item's status via the escalation policy; the error
// return is reserved for persistence failures.
func (p *Pipeline) Process(ctx context.Context, item *model.Item) (*model.ProcessingResult, error) {
	if trace.CorrelationID(ctx) == "" {
		ctx = trace.WithCorrelationID(ctx, trace.NewCorrelationID())
	}
	start := time.Now()
	res := &model.ProcessingResult{ItemID: item.ID, URN: item.URN}

	if item.Status.Terminal() {
		trace.StageSkipped(ctx, "pipeline", item.ID, "item already terminal")
		res.Status = item.Status
		res.DurationMS = time.Since(start).Milliseconds()
		return res, nil
	}

	if err := p.run(ctx, item, res); err != nil {
		outcome := p.policy.OnFailure(item, err)
		res.Err = err.Error()
		if uerr := p.store.UpdateItem(ctx, item); uerr != nil {
			return res, eris.Wrap(uerr, "pipeline: persist failure state")
		}
		trace.Logger(ctx).Warn("pipeline run ended in failure",
			zap.String("item_id", item.ID),
			zap.String("outcome", string(outcome)),
			zap.Error(err),
		)
	}

	res.Status = item.Status
	res.DurationMS = time.Since(start).Milliseconds()
	return res, nil
}

// run executes the stage sequence with resume semantics: stages whose verdict
// fields are already populated are skipped.
func (p *Pipeline) run(ctx context.Context, item *model.Item, res *model.ProcessingResult) error {
	// Stage 1: relevance.
	if item.Stage1Relevant == nil {
		if err := p.runStage1(ctx, item, res); err != nil {
			return err
		}
		if item.Status == model.StatusStage1Rejected {
			return nil
		}
	} else {
		trace.StageSkipped(ctx, "stage1", item.ID, "verdict already persisted")
	}

	// Stage 2: locale gate. Eagerly chained after a positive Stage 1.
	if item.Stage2Accepted == nil {
		if err := p.runStage2(ctx, item, res); err != nil {
			return err
		}
		if item.Status == model.StatusStage2Rejected {
			return nil
		}
	} else {
		trace.StageSkipped(ctx, "stage2", item.ID, "verdict already persisted")
	}

	// Stage 3: category and role normalization.
	if item.Stage3Category == "" {
		if err := p.runStage3(ctx, item, res); err != nil {
			return err
		}
	} else {
		trace.StageSkipped(ctx, "stage3", item.ID, "category already persisted")
	}

	// Enrichment.
	if !item.Enriched() && !item.EnrichmentSkipped {
		if err := p.runEnrichment(ctx, item, res); err != nil {
			return err
		}
	} else {
		trace.StageSkipped(ctx, "enrichment", item.ID, "already enriched or skipped")
	}

	// Directory matching. Cheap and idempotent, so always recomputed.
	if err := p.runMatching(ctx, item, res); err != nil {
		return err
	}

	// Messaging. Short-circuited for client and vendor matches.
	if err := p.runMessaging(ctx, item, res); err != nil {
		return err
	}

	// Dedup: reconcile into the lead registry.
	return p.runDedup(ctx, item, res)
}

// WarmCache primes the prompt cache for the screening stage before a batch
// fans out. One sequential request writes the cached system block; the
// concurrent stage calls that follow read it instead of re-ingesting the
// prompt per item. Failures are non-fatal, the batch just pays full price.
func (p *Pipeline) WarmCache(ctx context.Context) error {
	_, err := anthropic.PrimerRequest(ctx, p.oracle, anthropic.MessageRequest{
		Model:     p.cfg.FastModel,
		MaxTokens: 16,
		System:    anthropic.BuildCachedSystemBlocks(stage1SystemPrompt),
		Messages: []anthropic.Message{
			{Role: "user", Content: "Acknowledge receipt of the instructions."},
		},
	})
	return err
}

// setStatus flips the item's status and persists it immediately, so a crash
// mid-stage leaves a visible marker.
func (p *Pipeline) setStatus(ctx context.Context, item *model.Item, status model.ProcessingStatus) error {
	item.Status = status
	if err := p.store.UpdateItem(ctx, item); err != nil {
		return eris.Wrapf(err, "pipeline: set status %s", status)
	}
	return nil
}

// ask sends one prompt to the classification oracle through its circuit
// breaker, accumulating token usage and cost on the result.
func (p *Pipeline) ask(ctx context.Context, res *model.ProcessingResult, modelID, system, prompt string, maxTokens int64) (string, error) {
	req := anthropic.MessageRequest{
		Model:     modelID,
		MaxTokens: maxTokens,
		System:    anthropic.BuildCachedSystemBlocks(system),
		Messages: []anthropic.Message{
			{Role: "user", Content: prompt},
		},
	}

	resp, err := resilience.ExecuteVal(ctx, p.breakers.Get("anthropic"), func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return p.oracle.CreateMessage(ctx, req)
	})
	if err != nil {
		return "", err
	}

	res.TokenUsage.Add(model.TokenUsage{
		InputTokens:         int(resp.Usage.InputTokens),
		OutputTokens:        int(resp.Usage.OutputTokens),
		CacheCreationTokens: int(resp.Usage.CacheCreationInputTokens),
		CacheReadTokens:     int(resp.Usage.CacheReadInputTokens),
	})
	res.EstimatedUSD += p.costs.Claude(modelID, resp.Usage)

	return extractText(resp), nil
}
