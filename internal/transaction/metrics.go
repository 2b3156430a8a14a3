package transaction

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the pipeline collectors. A nil *Metrics records nothing.
type Metrics struct {
	submissions       *prometheus.CounterVec
	sendAttempts      *prometheus.CounterVec
	estimateDuration  *prometheus.HistogramVec
	durationHistogram prometheus.Histogram
	computeUnits      prometheus.Histogram
	priorityFee       prometheus.Gauge
}

// NewMetrics registers the collectors. If registry is nil,
// prometheus.DefaultRegisterer is used.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Metrics{
		submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "solana_tx_submissions_total",
			Help: "Total number of Submit calls by outcome",
		}, []string{"outcome"}),
		sendAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "solana_tx_send_attempts_total",
			Help: "Total number of sends of signed transaction bytes by outcome",
		}, []string{"outcome"}),
		estimateDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "solana_tx_estimate_duration_seconds",
			Help:    "Duration of fee and compute unit estimation calls",
			Buckets: prometheus.DefBuckets,
		}, []string{"estimator", "status"}),
		durationHistogram: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "solana_tx_duration_seconds",
			Help:    "Transaction send and confirm duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		}),
		computeUnits: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "solana_tx_compute_units",
			Help:    "Compute unit limits requested, margin included",
			Buckets: prometheus.ExponentialBuckets(1_000, 2, 11),
		}),
		priorityFee: factory.NewGauge(prometheus.GaugeOpts{
			Name: "solana_tx_priority_fee_micro_lamports",
			Help: "Last priority fee estimate in micro-lamports per compute unit",
		}),
	}
}

// TrackTransaction observes the duration since start.
func (m *Metrics) TrackTransaction(start time.Time) {
	if m == nil {
		return
	}
	m.durationHistogram.Observe(time.Since(start).Seconds())
}

func (m *Metrics) recordSubmission(outcome Outcome) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(string(outcome)).Inc()
}

func (m *Metrics) recordAttempt(outcome Outcome) {
	if m == nil {
		return
	}
	m.sendAttempts.WithLabelValues(string(outcome)).Inc()
}

func (m *Metrics) trackEstimate(estimator string, start time.Time, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.estimateDuration.WithLabelValues(estimator, status).Observe(time.Since(start).Seconds())
}

func (m *Metrics) recordFee(fee FeeEstimate) {
	if m == nil {
		return
	}
	m.priorityFee.Set(float64(fee))
}

func (m *Metrics) recordComputeUnits(units ComputeUnitEstimate) {
	if m == nil {
		return
	}
	m.computeUnits.Observe(float64(units))
}
