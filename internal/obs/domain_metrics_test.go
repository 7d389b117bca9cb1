package obs_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/rizki-dev/backend-warung/internal/obs"
)

func TestDomainMetricsRegistered(t *testing.T) {
	registry := prometheus.NewRegistry()
	obs.MustRegisterDomainMetrics("warung", registry)

	if obs.ReservationsTotal == nil || obs.BillsCreatedTotal == nil || obs.BillsPaidTotal == nil {
		t.Fatal("expected core counters to be initialised")
	}
	if obs.WebhookDispatchAttempts == nil || obs.WebhookDispatchDLQ == nil {
		t.Fatal("expected webhook dispatch counters to be initialised")
	}

	obs.WebhookDispatchDLQ.Inc()
	if got := testutil.ToFloat64(obs.WebhookDispatchDLQ); got < 1 {
		t.Fatalf("expected dlq counter to increment, got %v", got)
	}
}
