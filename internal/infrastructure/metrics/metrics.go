package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Ledger metrics
	Movements         *prometheus.CounterVec
	Transfers         *prometheus.CounterVec
	MovementAmount    *prometheus.HistogramVec
	OperationDuration *prometheus.HistogramVec
	OperationErrors   *prometheus.CounterVec
	IntegrityFaults   prometheus.Counter

	// Query metrics
	BreakdownCache *prometheus.CounterVec

	// Reconciliation metrics
	ReconcileDiscrepancies prometheus.Gauge

	// API metrics
	HTTPRequests         *prometheus.CounterVec
	HTTPDuration         *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
}

// New creates all metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Movements: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pocketledger_movements_total",
				Help: "Committed movement operations by operation and direction",
			},
			[]string{"operation", "direction"},
		),
		Transfers: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pocketledger_transfers_total",
				Help: "Committed transfer operations by operation",
			},
			[]string{"operation"},
		),
		MovementAmount: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pocketledger_movement_amount",
				Help:    "Amounts of created movements",
				Buckets: []float64{1, 10, 100, 1000, 10000, 100000, 1000000},
			},
			[]string{"direction"},
		),
		OperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pocketledger_operation_duration_seconds",
				Help:    "Duration of ledger operations",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		OperationErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pocketledger_operation_errors_total",
				Help: "Failed ledger operations by operation and error kind",
			},
			[]string{"operation", "kind"},
		),
		IntegrityFaults: factory.NewCounter(prometheus.CounterOpts{
			Name: "pocketledger_integrity_faults_total",
			Help: "Operations aborted because a ledger invariant looked violated",
		}),

		BreakdownCache: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pocketledger_breakdown_cache_total",
				Help: "Category breakdown cache lookups by result",
			},
			[]string{"result"},
		),

		ReconcileDiscrepancies: factory.NewGauge(prometheus.GaugeOpts{
			Name: "pocketledger_reconcile_discrepancies",
			Help: "Accounts whose cached balance differed from their movements in the last run",
		}),

		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pocketledger_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pocketledger_http_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "pocketledger_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		}),
	}
}

// ObserveOperation records the outcome of one ledger operation. kind is
// empty on success. Safe to call on a nil receiver.
func (m *Metrics) ObserveOperation(operation string, start time.Time, kind string) {
	if m == nil {
		return
	}

	m.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if kind == "" {
		return
	}

	m.OperationErrors.WithLabelValues(operation, kind).Inc()
	if kind == "integrity" {
		m.IntegrityFaults.Inc()
	}
}
