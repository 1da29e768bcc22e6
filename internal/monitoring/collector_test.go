package monitoring

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talentsignal/signal-cli/internal/model"
	"github.com/talentsignal/signal-cli/internal/store"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "monitoring.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

func seedStatuses(t *testing.T, st store.Store, statuses map[model.ProcessingStatus]int) {
	t.Helper()
	i := 0
	for status, n := range statuses {
		for range n {
			urn := fmt.Sprintf("urn:post:%d", i)
			i++
			_, err := st.InsertItems(context.Background(), []model.Item{{URN: urn, Text: "post"}})
			require.NoError(t, err)

			item, err := st.GetItemByURN(context.Background(), urn)
			require.NoError(t, err)
			item.Status = status
			require.NoError(t, st.UpdateItem(context.Background(), item))
		}
	}
}

func TestCollector_Collect(t *testing.T) {
	st := newTestStore(t)
	seedStatuses(t, st, map[model.ProcessingStatus]int{
		model.StatusPending:        3,
		model.StatusInFlight:       1,
		model.StatusStage1Running:  1,
		model.StatusStage1Rejected: 4,
		model.StatusCompleted:      8,
		model.StatusDuplicate:      2,
		model.StatusRetryScheduled: 2,
		model.StatusError:          1,
		model.StatusFailed:         1,
	})

	_, err := st.UpsertLead(context.Background(), &model.Lead{ProfileID: "p1", Name: "A"})
	require.NoError(t, err)
	_, err = st.UpsertLead(context.Background(), &model.Lead{ProfileID: "p2", Name: "B", EmployerName: "V", VendorMatch: true})
	require.NoError(t, err)

	snap, err := NewCollector(st).Collect(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 23, snap.ItemsTotal)
	assert.Equal(t, 4, snap.Queued)
	assert.Equal(t, 1, snap.Running)
	assert.Equal(t, 4, snap.Rejected)
	assert.Equal(t, 10, snap.Reconciled)
	assert.Equal(t, 2, snap.RetryBacklog)
	assert.Equal(t, 2, snap.Dead)
	// 2 dead out of 16 terminal items.
	assert.InDelta(t, 0.125, snap.FailRate, 1e-9)

	assert.Equal(t, 2, snap.Leads.Total)
	assert.Equal(t, 1, snap.Leads.Vendor)
	assert.False(t, snap.CollectedAt.IsZero())
}

func TestCollector_Collect_EmptyStore(t *testing.T) {
	st := newTestStore(t)

	snap, err := NewCollector(st).Collect(context.Background())
	require.NoError(t, err)
	assert.Zero(t, snap.ItemsTotal)
	assert.Zero(t, snap.FailRate)
	assert.Zero(t, snap.Leads.Total)
}
