package main

import (
	"context"
	"os"
	"time"

	"github.com/k-capehart/go-salesforce/v3"
	"github.com/rotisserie/eris"

	"github.com/talentsignal/signal-cli/internal/cost"
	"github.com/talentsignal/signal-cli/internal/pipeline"
	"github.com/talentsignal/signal-cli/internal/queue"
	"github.com/talentsignal/signal-cli/internal/registry"
	"github.com/talentsignal/signal-cli/internal/resilience"
	"github.com/talentsignal/signal-cli/internal/store"
	"github.com/talentsignal/signal-cli/pkg/anthropic"
	"github.com/talentsignal/signal-cli/pkg/enrich"
	sfpkg "github.com/talentsignal/signal-cli/pkg/salesforce"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "signal.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initSalesforce() (sfpkg.Client, error) {
	if cfg.Salesforce.ClientID == "" {
		return nil, eris.New("salesforce client ID is required (SIGNAL_SALESFORCE_CLIENT_ID)")
	}

	pemData, err := os.ReadFile(cfg.Salesforce.KeyPath)
	if err != nil {
		return nil, eris.Wrap(err, "read salesforce JWT private key")
	}

	sf, err := salesforce.Init(salesforce.Creds{
		Domain:         cfg.Salesforce.LoginURL,
		Username:       cfg.Salesforce.Username,
		ConsumerKey:    cfg.Salesforce.ClientID,
		ConsumerRSAPem: string(pemData),
	})
	if err != nil {
		return nil, eris.Wrap(err, "init salesforce")
	}

	return sfpkg.NewClient(sf, sfpkg.WithRateLimit(5)), nil
}

// pipelineEnv bundles the wired components every pipeline command needs.
type pipelineEnv struct {
	Store    store.Store
	Pipeline *pipeline.Pipeline
	Runner   *queue.Runner
}

// Close drains backgrounded batch work before releasing the store.
func (e *pipelineEnv) Close() {
	if e.Runner != nil {
		e.Runner.Wait()
	}
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

func initPipeline(ctx context.Context) (*pipelineEnv, error) {
	if err := cfg.Validate("pipeline"); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	cats, err := registry.LoadCategories(cfg.Registry.CategoriesPath)
	if err != nil {
		st.Close()
		return nil, err
	}
	locales, err := registry.LoadLocales(cfg.Registry.LocalesPath)
	if err != nil {
		st.Close()
		return nil, err
	}

	oracle := anthropic.NewClient(cfg.Anthropic.Key)
	enricher := enrich.NewClient(cfg.Enrich.Keys,
		enrich.WithBaseURL(cfg.Enrich.BaseURL),
		enrich.WithTimeout(time.Duration(cfg.Enrich.TimeoutSecs)*time.Second),
	)

	pl := pipeline.New(st, oracle, enricher, cats, locales, pipeline.Config{
		FastModel:       cfg.Anthropic.FastModel,
		DeepModel:       cfg.Anthropic.DeepModel,
		MaxTokens:       int64(cfg.Anthropic.MaxTokens),
		MaxRoles:        cfg.Pipeline.MaxRoles,
		MessageMaxRunes: cfg.Pipeline.MessageMaxRunes,
	}, pipelineOptions()...)

	runner := queue.NewRunner(st, pl, queue.Config{
		PageSize:   cfg.Queue.PageSize,
		ChunkSize:  cfg.Queue.ChunkSize,
		SyncChunks: cfg.Queue.SyncChunks,
		Pause:      time.Duration(cfg.Queue.PauseMillis) * time.Millisecond,
	})

	return &pipelineEnv{Store: st, Pipeline: pl, Runner: runner}, nil
}

// pipelineOptions maps config overrides onto pipeline options. Pricing and
// retry settings fall back to compiled-in defaults when unset.
func pipelineOptions() []pipeline.Option {
	var opts []pipeline.Option

	if cfg.Pipeline.MaxRetries > 0 || cfg.Pipeline.RetryDelaySecs > 0 {
		policy := resilience.NewEscalationPolicy()
		if cfg.Pipeline.MaxRetries > 0 {
			policy.MaxRetries = cfg.Pipeline.MaxRetries
		}
		if cfg.Pipeline.RetryDelaySecs > 0 {
			policy.Delay = time.Duration(cfg.Pipeline.RetryDelaySecs) * time.Second
		}
		opts = append(opts, pipeline.WithPolicy(policy))
	}

	if len(cfg.Pricing.Anthropic) > 0 {
		rates := cost.Rates{Anthropic: make(map[string]cost.ModelRate, len(cfg.Pricing.Anthropic))}
		for model, p := range cfg.Pricing.Anthropic {
			rates.Anthropic[model] = cost.ModelRate{
				Input: p.Input, Output: p.Output,
				CacheWriteMul: 1.25, CacheReadMul: 0.1,
			}
		}
		opts = append(opts, pipeline.WithCalculator(cost.NewCalculator(rates)))
	}

	return opts
}
