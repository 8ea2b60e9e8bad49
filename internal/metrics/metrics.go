// Package metrics exposes prometheus collectors for the GRU engine. The CLI
// and the API server record into the default registry.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ForwardTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lodgru_forward_total",
		Help: "Total number of completed forward passes",
	}, []string{"kernel"})

	ForwardDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lodgru_forward_duration_seconds",
		Help:    "Duration of forward passes",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
	}, []string{"kernel"})

	Timesteps = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "lodgru_timesteps",
		Help:    "Longest sequence length per forward pass",
		Buckets: []float64{1, 4, 16, 64, 256, 1024, 4096},
	})

	BatchRows = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "lodgru_batch_rows",
		Help:    "Total input rows per forward pass",
		Buckets: []float64{1, 10, 100, 1000, 10000, 100000},
	})

	ValidationErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lodgru_validation_errors_total",
		Help: "Total number of rejected problems by error kind",
	}, []string{"kind"})

	KernelMismatch = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lodgru_kernel_mismatch_total",
		Help: "Count of fused results exceeding tolerance against the reference",
	})

	NumericalInstability = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lodgru_numerical_instability_total",
		Help: "Total number of NaN/Inf values detected in outputs",
	}, []string{"tensor", "type"})
)

// RecordForward records one completed forward pass.
func RecordForward(kernel string, duration time.Duration, maxLen, rows int) {
	ForwardTotal.WithLabelValues(kernel).Inc()
	ForwardDuration.WithLabelValues(kernel).Observe(duration.Seconds())
	Timesteps.Observe(float64(maxLen))
	BatchRows.Observe(float64(rows))
}

func RecordValidationError(kind string) {
	if kind == "" {
		kind = "other"
	}
	ValidationErrors.WithLabelValues(kind).Inc()
}

func RecordMismatch() {
	KernelMismatch.Inc()
}

func RecordNumericalInstability(name string, nanCount, infCount int) {
	if nanCount > 0 {
		NumericalInstability.WithLabelValues(name, "nan").Add(float64(nanCount))
	}
	if infCount > 0 {
		NumericalInstability.WithLabelValues(name, "inf").Add(float64(infCount))
	}
}
