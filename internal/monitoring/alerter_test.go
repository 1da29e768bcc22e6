package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talentsignal/signal-cli/internal/config"
	"github.com/talentsignal/signal-cli/internal/model"
)

func healthySnapshot() *MetricsSnapshot {
	return &MetricsSnapshot{
		StatusCounts: map[model.ProcessingStatus]int{},
		ItemsTotal:   100,
		Rejected:     30,
		Reconciled:   66,
		Dead:         4,
		FailRate:     0.04,
		RetryBacklog: 5,
		CollectedAt:  time.Now().UTC(),
	}
}

func TestAlerter_Evaluate_NoAlerts(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{
		FailureRateThreshold:  0.10,
		RetryBacklogThreshold: 100,
	})
	assert.Empty(t, a.Evaluate(healthySnapshot()))
}

func TestAlerter_Evaluate_FailureRate(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{
		FailureRateThreshold:  0.10,
		RetryBacklogThreshold: 100,
	})

	snap := healthySnapshot()
	snap.Dead = 40
	snap.FailRate = 0.4

	alerts := a.Evaluate(snap)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertFailureRate, alerts[0].Type)
	assert.Equal(t, "high", alerts[0].Severity)
	assert.Contains(t, alerts[0].Message, "40.0%")
}

func TestAlerter_Evaluate_SmallSampleIgnored(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{FailureRateThreshold: 0.10})

	// 100% failure but only 3 terminal items: not enough signal.
	snap := &MetricsSnapshot{Dead: 3, FailRate: 1.0}
	assert.Empty(t, a.Evaluate(snap))
}

func TestAlerter_Evaluate_RetryBacklog(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{
		FailureRateThreshold:  0.10,
		RetryBacklogThreshold: 50,
	})

	snap := healthySnapshot()
	snap.RetryBacklog = 75

	alerts := a.Evaluate(snap)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertRetryBacklog, alerts[0].Type)
}

func TestAlerter_Evaluate_DeadItems(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{
		FailureRateThreshold:  0.10,
		RetryBacklogThreshold: 100,
	})

	snap := healthySnapshot()
	snap.StatusCounts[model.StatusFailed] = 7

	alerts := a.Evaluate(snap)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertDeadItems, alerts[0].Type)
	assert.Contains(t, alerts[0].Message, "7 items")
}

func TestAlerter_SendAlerts_Webhook(t *testing.T) {
	var received atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var alert Alert
		require.NoError(t, json.NewDecoder(r.Body).Decode(&alert))
		assert.Equal(t, AlertRetryBacklog, alert.Type)
		received.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	a := NewAlerter(config.MonitoringConfig{WebhookURL: srv.URL})
	sent := a.SendAlerts(context.Background(), []Alert{
		{Type: AlertRetryBacklog, Severity: "medium", Message: "backlog"},
	})
	assert.Equal(t, 1, sent)
	assert.Equal(t, int32(1), received.Load())
}

func TestAlerter_SendAlerts_NoWebhookConfigured(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{})
	sent := a.SendAlerts(context.Background(), []Alert{{Type: AlertDeadItems}})
	assert.Zero(t, sent)
}

func TestAlerter_SendAlerts_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	a := NewAlerter(config.MonitoringConfig{WebhookURL: srv.URL})
	sent := a.SendAlerts(context.Background(), []Alert{{Type: AlertDeadItems}})
	assert.Zero(t, sent)
}
