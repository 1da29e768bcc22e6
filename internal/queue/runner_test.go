package queue

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talentsignal/signal-cli/internal/model"
	"github.com/talentsignal/signal-cli/internal/store"
)

// fakeProcessor marks items completed and records the order it saw them in.
// URNs listed in fail return a persistence error instead.
type fakeProcessor struct {
	st   store.Store
	fail map[string]bool

	mu        sync.Mutex
	processed []string
}

func (f *fakeProcessor) Process(ctx context.Context, item *model.Item) (*model.ProcessingResult, error) {
	f.mu.Lock()
	f.processed = append(f.processed, item.URN)
	f.mu.Unlock()

	if f.fail[item.URN] {
		return nil, eris.Errorf("persist failed for %s", item.URN)
	}

	item.Status = model.StatusCompleted
	if err := f.st.UpdateItem(ctx, item); err != nil {
		return nil, err
	}
	return &model.ProcessingResult{ItemID: item.ID, URN: item.URN, Status: model.StatusCompleted}, nil
}

func (f *fakeProcessor) seen() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.processed...)
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "queue.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

func seedPending(t *testing.T, st store.Store, n int) {
	t.Helper()
	items := make([]model.Item, n)
	for i := range items {
		items[i] = model.Item{
			URN:             fmt.Sprintf("urn:post:%d", i),
			Text:            "hiring post",
			AuthorProfileID: fmt.Sprintf("author-%d", i),
		}
	}
	inserted, err := st.InsertItems(context.Background(), items)
	require.NoError(t, err)
	require.Equal(t, n, inserted)
}

func testConfig() Config {
	return Config{PageSize: 10, ChunkSize: 2, SyncChunks: 100, Pause: time.Millisecond}
}

func TestRunBatch_ProcessesEverythingInline(t *testing.T) {
	st := newTestStore(t)
	seedPending(t, st, 5)
	proc := &fakeProcessor{st: st}
	r := NewRunner(st, proc, testConfig())

	report, err := r.RunBatch(context.Background(), "batch-A", 0)
	require.NoError(t, err)

	assert.Equal(t, "batch-A", report.BatchID)
	assert.Equal(t, 5, report.TotalFound)
	assert.Equal(t, 5, report.Immediate)
	assert.Zero(t, report.Backgrounded)
	assert.Len(t, proc.seen(), 5)

	counts, err := st.CountItemsByStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, counts[model.StatusCompleted])
	assert.Zero(t, counts[model.StatusPending])
}

func TestRunBatch_BackgroundsRemainder(t *testing.T) {
	st := newTestStore(t)
	seedPending(t, st, 6)
	proc := &fakeProcessor{st: st}
	cfg := testConfig()
	cfg.SyncChunks = 1
	r := NewRunner(st, proc, cfg)

	report, err := r.RunBatch(context.Background(), "batch-B", 0)
	require.NoError(t, err)

	assert.Equal(t, 6, report.TotalFound)
	assert.Equal(t, 2, report.Immediate)
	assert.Equal(t, 4, report.Backgrounded)

	r.Wait()
	assert.Len(t, proc.seen(), 6)

	counts, err := st.CountItemsByStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6, counts[model.StatusCompleted])
}

func TestRunBatch_BackgroundSurvivesCallerCancel(t *testing.T) {
	st := newTestStore(t)
	seedPending(t, st, 4)
	proc := &fakeProcessor{st: st}
	cfg := testConfig()
	cfg.SyncChunks = 1
	r := NewRunner(st, proc, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	report, err := r.RunBatch(ctx, "batch-C", 0)
	require.NoError(t, err)
	require.Equal(t, 2, report.Backgrounded)

	// The trigger goes away; the continuation must still drain.
	cancel()
	r.Wait()
	assert.Len(t, proc.seen(), 4)
}

func TestRunBatch_MaxItemsCap(t *testing.T) {
	st := newTestStore(t)
	seedPending(t, st, 5)
	proc := &fakeProcessor{st: st}
	r := NewRunner(st, proc, testConfig())

	report, err := r.RunBatch(context.Background(), "batch-D", 3)
	require.NoError(t, err)
	assert.Equal(t, 3, report.TotalFound)

	counts, err := st.CountItemsByStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, counts[model.StatusPending])
	assert.Equal(t, 3, counts[model.StatusCompleted])
}

func TestRunBatch_PaginatesPastPageSize(t *testing.T) {
	st := newTestStore(t)
	seedPending(t, st, 7)
	proc := &fakeProcessor{st: st}
	cfg := testConfig()
	cfg.PageSize = 3
	r := NewRunner(st, proc, cfg)

	report, err := r.RunBatch(context.Background(), "batch-E", 0)
	require.NoError(t, err)
	assert.Equal(t, 7, report.TotalFound)
}

func TestRunBatch_NothingPending(t *testing.T) {
	st := newTestStore(t)
	proc := &fakeProcessor{st: st}
	r := NewRunner(st, proc, testConfig())

	report, err := r.RunBatch(context.Background(), "", 0)
	require.NoError(t, err)
	assert.NotEmpty(t, report.BatchID)
	assert.Zero(t, report.TotalFound)
	assert.Empty(t, proc.seen())
}

func TestRunBatch_SecondTriggerFindsNothing(t *testing.T) {
	st := newTestStore(t)
	seedPending(t, st, 3)
	proc := &fakeProcessor{st: st}
	r := NewRunner(st, proc, testConfig())

	first, err := r.RunBatch(context.Background(), "batch-F1", 0)
	require.NoError(t, err)
	require.Equal(t, 3, first.TotalFound)

	second, err := r.RunBatch(context.Background(), "batch-F2", 0)
	require.NoError(t, err)
	assert.Zero(t, second.TotalFound)
}

func TestRunBatch_FailureDoesNotAbortSiblings(t *testing.T) {
	st := newTestStore(t)
	seedPending(t, st, 4)
	proc := &fakeProcessor{st: st, fail: map[string]bool{"urn:post:1": true}}
	r := NewRunner(st, proc, testConfig())

	report, err := r.RunBatch(context.Background(), "batch-G", 0)
	require.NoError(t, err)
	assert.Equal(t, 4, report.TotalFound)
	assert.Len(t, proc.seen(), 4)

	counts, err := st.CountItemsByStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, counts[model.StatusCompleted])
	// The failed item keeps its claim marker for the repair path.
	assert.Equal(t, 1, counts[model.StatusInFlight])
}

func TestSweepRetries_ClaimsOnlyDueItems(t *testing.T) {
	st := newTestStore(t)
	seedPending(t, st, 3)

	items, err := st.ListItems(context.Background(), store.ItemFilter{})
	require.NoError(t, err)
	require.Len(t, items, 3)

	past := time.Now().UTC().Add(-time.Minute)
	future := time.Now().UTC().Add(time.Hour)
	for i := range items {
		items[i].Status = model.StatusRetryScheduled
		items[i].NextRetryAt = &past
		if i == 2 {
			items[i].NextRetryAt = &future
		}
		require.NoError(t, st.UpdateItem(context.Background(), &items[i]))
	}

	proc := &fakeProcessor{st: st}
	r := NewRunner(st, proc, testConfig())

	n, err := r.SweepRetries(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, proc.seen(), 2)

	counts, err := st.CountItemsByStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, counts[model.StatusCompleted])
	assert.Equal(t, 1, counts[model.StatusRetryScheduled])
}

func TestChunkItems(t *testing.T) {
	items := make([]model.Item, 7)
	chunks := chunkItems(items, 3)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 3)
	assert.Len(t, chunks[1], 3)
	assert.Len(t, chunks[2], 1)

	assert.Empty(t, chunkItems(nil, 3))
}
