package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	reportsTotal     *prometheus.CounterVec
	reportDays       *prometheus.HistogramVec
	daysScanned      *prometheus.CounterVec
	unavailableTotal *prometheus.CounterVec
	errorsTotal      *prometheus.CounterVec
	latency          *prometheus.HistogramVec
}

// New registers the collectors on the default registry.
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the collectors on reg.
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		reportsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "astrotransit_reports_total",
				Help: "Reports generated, by mode",
			},
			[]string{"mode"},
		),
		reportDays: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "astrotransit_report_days",
				Help:    "Notable days included per report",
				Buckets: []float64{0, 1, 3, 7, 14, 31, 92, 366},
			},
			[]string{"mode"},
		),
		daysScanned: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "astrotransit_days_scanned_total",
				Help: "Calendar days scanned, by mode",
			},
			[]string{"mode"},
		),
		unavailableTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "astrotransit_positions_unavailable_total",
				Help: "Positions skipped because the ephemeris could not provide them",
			},
			[]string{"body"},
		),
		errorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "astrotransit_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "astrotransit_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordReport records a generated report and how many days it kept.
func (r *Recorder) RecordReport(mode string, days int) {
	r.reportsTotal.WithLabelValues(mode).Inc()
	r.reportDays.WithLabelValues(mode).Observe(float64(days))
}

func (r *Recorder) RecordDaysScanned(mode string, n int) {
	r.daysScanned.WithLabelValues(mode).Add(float64(n))
}

func (r *Recorder) RecordUnavailable(body string) {
	r.unavailableTotal.WithLabelValues(body).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// Nop discards every measurement.
type Nop struct{}

func (Nop) RecordReport(string, int)      {}
func (Nop) RecordDaysScanned(string, int) {}
func (Nop) RecordUnavailable(string)      {}
func (Nop) RecordError(string)            {}
func (Nop) RecordLatency(string, float64) {}
