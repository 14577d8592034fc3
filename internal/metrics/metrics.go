// Package metrics provides Prometheus instrumentation for the escrow engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "data_escrow",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, path, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes request latency by method and path.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "data_escrow",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// TransactionsCreated counts escrow transactions opened.
	TransactionsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "data_escrow",
		Name:      "transactions_created_total",
		Help:      "Total escrow transactions created.",
	})

	// AttestationsSubmitted counts recorded party attestations.
	AttestationsSubmitted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "data_escrow",
		Name:      "attestations_submitted_total",
		Help:      "Total attestations recorded.",
	})

	// DisputesOpened counts first-mismatch dispute windows.
	DisputesOpened = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "data_escrow",
		Name:      "disputes_opened_total",
		Help:      "Total disputes opened on attestation mismatch.",
	})

	// Escalations counts transitions into the mediator phase.
	Escalations = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "data_escrow",
		Name:      "escalations_total",
		Help:      "Total disputes escalated to the mediator.",
	})

	// TransactionsResolved counts terminal resolutions by resolver type.
	TransactionsResolved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "data_escrow",
			Name:      "transactions_resolved_total",
			Help:      "Total transactions resolved, by resolver (party/mediator).",
		},
		[]string{"resolver"},
	)

	// SettlementFailures counts aborted resolutions due to transfer errors.
	SettlementFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "data_escrow",
		Name:      "settlement_failures_total",
		Help:      "Total settlement transfers that failed and aborted a resolution.",
	})

	// TransactionsCurrent tracks live transaction counts by status.
	TransactionsCurrent = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "data_escrow",
			Name:      "transactions_current",
			Help:      "Current number of transactions by status.",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		TransactionsCreated,
		AttestationsSubmitted,
		DisputesOpened,
		Escalations,
		TransactionsResolved,
		SettlementFailures,
		TransactionsCurrent,
	)
}
