// Package queue drives batches of items through the pipeline with bounded
// concurrency. Selection is paginated, claims are atomic (the store flips
// status to in_flight in the same statement that selects the rows), and only
// the first few chunks run inline: the rest continue on a detached context so
// a short-lived trigger can return while the batch keeps draining.
package queue

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/talentsignal/signal-cli/internal/model"
	"github.com/talentsignal/signal-cli/internal/store"
	"github.com/talentsignal/signal-cli/internal/trace"
)

// Processor drives one item through the pipeline. Satisfied by
// *pipeline.Pipeline.
type Processor interface {
	Process(ctx context.Context, item *model.Item) (*model.ProcessingResult, error)
}

// Config holds the batch runner tunables.
type Config struct {
	// PageSize bounds each claim statement.
	PageSize int
	// ChunkSize is the per-chunk concurrency: every item in a chunk is
	// processed in parallel, chunks run one after another.
	ChunkSize int
	// SyncChunks is how many chunks run inline before the remainder is
	// backgrounded on a detached context.
	SyncChunks int
	// Pause is the inter-chunk pause.
	Pause time.Duration
}

func (c Config) withDefaults() Config {
	if c.PageSize <= 0 {
		c.PageSize = 1000
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = 5
	}
	if c.SyncChunks <= 0 {
		c.SyncChunks = 2
	}
	if c.Pause <= 0 {
		c.Pause = 200 * time.Millisecond
	}
	return c
}

// BatchReport summarizes one RunBatch invocation. Backgrounded counts items
// still draining on the detached continuation when the call returned.
type BatchReport struct {
	BatchID      string `json:"batch_id"`
	TotalFound   int    `json:"total_found"`
	Immediate    int    `json:"immediate"`
	Backgrounded int    `json:"backgrounded"`
}

// Runner claims and processes batches.
type Runner struct {
	store   store.Store
	proc    Processor
	cfg     Config
	limiter *rate.Limiter

	// background tracks detached continuations so Wait can drain them
	// before process exit.
	background errgroup.Group
}

// NewRunner creates a batch runner.
func NewRunner(st store.Store, proc Processor, cfg Config) *Runner {
	cfg = cfg.withDefaults()
	return &Runner{
		store:   st,
		proc:    proc,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Every(cfg.Pause), 1),
	}
}

// RunBatch claims up to maxItems pending items (0 means no cap) under the
// given batch ID and processes them in chunks. The first SyncChunks chunks run
// inline; the rest continue on a context detached from the caller's, so the
// report can come back while the batch drains.
func (r *Runner) RunBatch(ctx context.Context, batchID string, maxItems int) (*BatchReport, error) {
	if batchID == "" {
		batchID = uuid.New().String()
	}
	ctx = trace.WithCorrelationID(ctx, batchID)

	items, err := r.claimAll(ctx, batchID, maxItems)
	if err != nil {
		return nil, err
	}

	report := &BatchReport{BatchID: batchID, TotalFound: len(items)}
	if len(items) == 0 {
		return report, nil
	}

	chunks := chunkItems(items, r.cfg.ChunkSize)
	syncN := r.cfg.SyncChunks
	if syncN > len(chunks) {
		syncN = len(chunks)
	}

	zap.L().Info("batch claimed",
		zap.String("batch_id", batchID),
		zap.Int("items", len(items)),
		zap.Int("chunks", len(chunks)),
		zap.Int("sync_chunks", syncN),
	)

	r.processChunks(ctx, batchID, chunks[:syncN])
	for _, c := range chunks[:syncN] {
		report.Immediate += len(c)
	}

	if rest := chunks[syncN:]; len(rest) > 0 {
		for _, c := range rest {
			report.Backgrounded += len(c)
		}
		// Detach from the trigger's lifetime: an HTTP caller going away must
		// not abort items already claimed.
		bgCtx := context.WithoutCancel(ctx)
		r.background.Go(func() error {
			r.processChunks(bgCtx, batchID, rest)
			zap.L().Info("batch continuation drained",
				zap.String("batch_id", batchID),
				zap.Int("items", report.Backgrounded),
			)
			return nil
		})
	}

	return report, nil
}

// SweepRetries claims retry-scheduled items whose delay has passed and runs
// them inline. Returns the number of items claimed.
func (r *Runner) SweepRetries(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = r.cfg.PageSize
	}
	items, err := r.store.ClaimDueRetries(ctx, limit)
	if err != nil {
		return 0, eris.Wrap(err, "queue: claim due retries")
	}
	if len(items) == 0 {
		return 0, nil
	}

	zap.L().Info("retry sweep claimed", zap.Int("items", len(items)))
	r.processChunks(ctx, "retry-sweep", chunkItems(items, r.cfg.ChunkSize))
	return len(items), nil
}

// Wait blocks until all backgrounded continuations have drained.
func (r *Runner) Wait() {
	r.background.Wait() //nolint:errcheck // continuations never return errors
}

// claimAll pages through pending items until the cap or a short page.
func (r *Runner) claimAll(ctx context.Context, batchID string, maxItems int) ([]model.Item, error) {
	var items []model.Item
	for {
		pageSize := r.cfg.PageSize
		if maxItems > 0 && maxItems-len(items) < pageSize {
			pageSize = maxItems - len(items)
		}
		if pageSize <= 0 {
			break
		}

		page, err := r.store.ClaimPending(ctx, batchID, pageSize)
		if err != nil {
			return nil, eris.Wrap(err, "queue: claim pending")
		}
		items = append(items, page...)
		if len(page) < pageSize {
			break
		}
	}
	return items, nil
}

// processChunks runs chunks sequentially with an inter-chunk pause; items
// inside a chunk run fully concurrently. Failures are absorbed per item: a
// bad item never takes its siblings or the batch down.
func (r *Runner) processChunks(ctx context.Context, batchID string, chunks [][]model.Item) {
	for ci, chunk := range chunks {
		if ci > 0 {
			if err := r.limiter.Wait(ctx); err != nil {
				zap.L().Warn("batch aborted between chunks",
					zap.String("batch_id", batchID),
					zap.Error(err),
				)
				return
			}
		}

		var g errgroup.Group
		for i := range chunk {
			item := &chunk[i]
			g.Go(func() error {
				res, err := r.proc.Process(ctx, item)
				if err != nil {
					zap.L().Error("item processing failed to persist",
						zap.String("batch_id", batchID),
						zap.String("item_id", item.ID),
						zap.Error(err),
					)
					return nil
				}
				zap.L().Debug("item processed",
					zap.String("batch_id", batchID),
					zap.String("item_id", item.ID),
					zap.String("status", string(res.Status)),
					zap.Int64("duration_ms", res.DurationMS),
				)
				return nil
			})
		}
		g.Wait() //nolint:errcheck // per-item errors are logged, not returned
	}
}

func chunkItems(items []model.Item, size int) [][]model.Item {
	var chunks [][]model.Item
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[start:end])
	}
	return chunks
}
