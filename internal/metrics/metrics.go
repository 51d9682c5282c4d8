package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "billing_http_requests_total",
		Help: "HTTP requests by method, route and status",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "billing_http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	InvoicesGenerated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "billing_invoices_generated_total",
		Help: "Invoices created by monthly generation",
	})

	UnitsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "billing_units_skipped_total",
		Help: "Units skipped because the period was already invoiced",
	})

	UnitsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "billing_units_failed_total",
		Help: "Units that could not be invoiced from master data",
	})

	GenerationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "billing_generation_duration_seconds",
		Help:    "Duration of monthly generation runs",
		Buckets: []float64{0.5, 1, 5, 15, 30, 60, 120, 300},
	})

	PaymentsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "billing_payments_recorded_total",
		Help: "Payments captured by method",
	}, []string{"method"})

	RefundsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "billing_refunds_total",
		Help: "Payments refunded",
	})

	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "billing_webhook_events_total",
		Help: "Gateway webhook events by type and outcome",
	}, []string{"event", "outcome"})

	FundPositionImbalance = promauto.NewCounter(prometheus.CounterOpts{
		Name: "billing_fund_position_imbalance_total",
		Help: "Fund position reports whose assets did not equal liabilities plus equity",
	})
)
