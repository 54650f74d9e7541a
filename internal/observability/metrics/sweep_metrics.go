package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	SweepErrorTypeDeadlineExceeded = "deadline_exceeded"
	SweepErrorTypeGateway          = "gateway"
	SweepErrorTypeDB               = "db"
	SweepErrorTypeUnknown          = "unknown"
)

const (
	SweepDeferredReasonLockHeld = "lock_held"
	SweepDeferredReasonEmpty    = "no_pending_intents"
)

// SweepMetrics captures reconciliation sweep health signals.
type SweepMetrics struct {
	runs          prometheus.Counter
	duration      prometheus.Observer
	intentsSynced *prometheus.CounterVec
	errorsByType  *prometheus.CounterVec
	deferred      *prometheus.CounterVec
}

var (
	sweepMetricsOnce sync.Once
	sweepMetrics     *SweepMetrics
)

// Sweep returns the singleton sweep metrics registry.
func Sweep() *SweepMetrics {
	return SweepWithConfig(Config{})
}

// SweepWithConfig returns the singleton sweep metrics registry using config labels.
func SweepWithConfig(cfg Config) *SweepMetrics {
	sweepMetricsOnce.Do(func() {
		sweepMetrics = newSweepMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return sweepMetrics
}

// ResetSweepMetricsForTest resets the sweep metrics singleton for tests.
func ResetSweepMetricsForTest() {
	sweepMetricsOnce = sync.Once{}
	sweepMetrics = nil
}

func newSweepMetrics(registerer prometheus.Registerer, cfg Config) *SweepMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "kirana"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	runs := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "kirana_reconcile_sweep_runs_total",
		Help:        "Reconciliation sweep runs.",
		ConstLabels: constLabels,
	})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "kirana_reconcile_sweep_duration_seconds",
		Help:        "Reconciliation sweep latency.",
		Buckets:     []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		ConstLabels: constLabels,
	})
	intentsSynced := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "kirana_reconcile_sweep_intents_total",
		Help:        "Intents processed by sweeps, by outcome.",
		ConstLabels: constLabels,
	}, []string{"outcome"})
	errorsByType := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "kirana_reconcile_sweep_errors_total",
		Help:        "Sweep errors by low-cardinality type.",
		ConstLabels: constLabels,
	}, []string{"error_type"})
	deferred := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "kirana_reconcile_sweep_deferred_total",
		Help:        "Sweeps skipped by low-cardinality reason.",
		ConstLabels: constLabels,
	}, []string{"reason"})

	registerer.MustRegister(
		runs,
		duration,
		intentsSynced,
		errorsByType,
		deferred,
	)

	return &SweepMetrics{
		runs:          runs,
		duration:      duration,
		intentsSynced: intentsSynced,
		errorsByType:  errorsByType,
		deferred:      deferred,
	}
}

// ObserveRun records one completed sweep.
func (m *SweepMetrics) ObserveRun(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.runs.Inc()
	m.duration.Observe(elapsed.Seconds())
}

// RecordIntent records one intent processed by a sweep.
func (m *SweepMetrics) RecordIntent(outcome string) {
	if m == nil {
		return
	}
	m.intentsSynced.WithLabelValues(strings.TrimSpace(outcome)).Inc()
}

// RecordError records one sweep failure under a bounded error type.
func (m *SweepMetrics) RecordError(err error) {
	if m == nil || err == nil {
		return
	}
	m.errorsByType.WithLabelValues(ClassifySweepError(err)).Inc()
}

// RecordDeferred records a sweep that did not run.
func (m *SweepMetrics) RecordDeferred(reason string) {
	if m == nil {
		return
	}
	m.deferred.WithLabelValues(strings.TrimSpace(reason)).Inc()
}

// ClassifySweepError buckets errors into a bounded label set.
func ClassifySweepError(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return SweepErrorTypeDeadlineExceeded
	case strings.Contains(err.Error(), "gateway"):
		return SweepErrorTypeGateway
	case strings.Contains(err.Error(), "database") || strings.Contains(err.Error(), "sql"):
		return SweepErrorTypeDB
	default:
		return SweepErrorTypeUnknown
	}
}
