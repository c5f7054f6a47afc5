package metrics

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kailas-cloud/esbridge/internal/engine"
)

const namespace = "esbridge"

// Engine and migration Prometheus metrics.
var (
	EngineRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "engine_requests_total",
			Help:      "Total number of search engine calls",
		},
		[]string{"op", "status"},
	)

	EngineRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "engine_request_duration_seconds",
			Help:      "Search engine call duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"op"},
	)

	MigrationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "migrations_total",
			Help:      "Mapping reconciliations by stage and outcome",
		},
		[]string{"stage", "status"}, // status: ok / error / locked
	)

	MigrationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "migration_duration_seconds",
			Help:      "Mapping reconciliation duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"stage"},
	)
)

var registerOnce sync.Once

// RegisterEngineMetrics registers engine and migration metrics. Safe to call more than once.
func RegisterEngineMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(EngineRequestsTotal)
		prometheus.MustRegister(EngineRequestDuration)
		prometheus.MustRegister(MigrationsTotal)
		prometheus.MustRegister(MigrationDuration)
	})
}

// EngineRecorder feeds engine.Instrumented into the engine metrics.
type EngineRecorder struct{}

// ObserveEngineCall records one engine call.
func (EngineRecorder) ObserveEngineCall(op string, d time.Duration, err error) {
	EngineRequestsTotal.WithLabelValues(op, engineStatus(err)).Inc()
	EngineRequestDuration.WithLabelValues(op).Observe(d.Seconds())
}

// engineStatus maps a call outcome to a low-cardinality label.
func engineStatus(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, engine.ErrNotFound):
		return "not_found"
	case errors.Is(err, engine.ErrConflict):
		return "conflict"
	case errors.Is(err, engine.ErrUnavailable):
		return "unavailable"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}

// MigrationRecorder feeds the migration use case into the migration metrics.
type MigrationRecorder struct{}

// ObserveMigration records one reconciliation run.
func (MigrationRecorder) ObserveMigration(stage, status string, d time.Duration) {
	MigrationsTotal.WithLabelValues(stage, status).Inc()
	MigrationDuration.WithLabelValues(stage).Observe(d.Seconds())
}
