package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// ReservationsTotal counts reservation lifecycle transitions by outcome.
	ReservationsTotal *prometheus.CounterVec
	// BillsCreatedTotal counts bill creation outcomes.
	BillsCreatedTotal *prometheus.CounterVec
	// BillsPaidTotal counts settled bills by payment result.
	BillsPaidTotal *prometheus.CounterVec
	// BillTotalAmount observes the grand total of created bills in minor units.
	BillTotalAmount prometheus.Histogram
	// PaymentChargeTotal counts charge attempts against the gateway.
	PaymentChargeTotal *prometheus.CounterVec
	// WebhookDeliveriesTotal tracks webhook dispatch outcomes.
	WebhookDeliveriesTotal *prometheus.CounterVec
	// WebhookAttemptLatency records delivery attempt latency in milliseconds.
	WebhookAttemptLatency *prometheus.HistogramVec
	// WebhookDispatchAttempts counts dispatcher attempts regardless of outcome.
	WebhookDispatchAttempts prometheus.Counter
	// WebhookDispatchDLQ counts deliveries moved to the dead-letter queue.
	WebhookDispatchDLQ prometheus.Counter
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		ReservationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservations_total",
			Help:      "Count of reservation transitions by action and result.",
		}, []string{"action", "result"})
		BillsCreatedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bills_created_total",
			Help:      "Count of bill creation outcomes.",
		}, []string{"result"})
		BillsPaidTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bills_paid_total",
			Help:      "Count of bill settlement outcomes.",
		}, []string{"result"})
		BillTotalAmount = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "bill_total_minor_units",
			Help:      "Distribution of bill grand totals in minor currency units.",
			Buckets:   prometheus.ExponentialBuckets(1000, 4, 10),
		})
		PaymentChargeTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_charge_total",
			Help:      "Count of gateway charge attempts by result.",
		}, []string{"provider", "result"})
		WebhookDeliveriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_deliveries_total",
			Help:      "Count of webhook delivery outcomes.",
		}, []string{"result"})
		WebhookAttemptLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "webhook_attempt_duration_ms",
			Help:      "Latency for webhook delivery attempts in milliseconds.",
			Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"result"})
		WebhookDispatchAttempts = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_dispatch_attempts_total",
			Help:      "Total number of webhook dispatch attempts.",
		})
		WebhookDispatchDLQ = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_dispatch_dlq_total",
			Help:      "Total number of webhook deliveries moved to the dead-letter queue.",
		})
		reg.MustRegister(
			ReservationsTotal,
			BillsCreatedTotal,
			BillsPaidTotal,
			BillTotalAmount,
			PaymentChargeTotal,
			WebhookDeliveriesTotal,
			WebhookAttemptLatency,
			WebhookDispatchAttempts,
			WebhookDispatchDLQ,
		)
	})
}
