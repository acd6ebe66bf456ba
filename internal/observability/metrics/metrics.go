package metrics

import "github.com/prometheus/client_golang/prometheus"

// ChartMetrics exposes counters/histograms for the chart console: record store
// requests, section loads, summary pipeline steps and cancellations.
type ChartMetrics struct {
	fhirRequests   *prometheus.CounterVec
	fhirLatency    *prometheus.HistogramVec
	sectionLoads   *prometheus.CounterVec
	sectionLatency *prometheus.HistogramVec
	summarySteps   *prometheus.CounterVec
	summaryLatency *prometheus.HistogramVec
	cancellations  *prometheus.CounterVec
}

func NewChartMetrics(reg prometheus.Registerer) *ChartMetrics {
	m := &ChartMetrics{
		fhirRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chart",
			Subsystem: "fhir",
			Name:      "requests_total",
			Help:      "Total record store requests",
		}, []string{"resource_type", "method", "status"}),
		fhirLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "chart",
			Subsystem: "fhir",
			Name:      "request_duration_seconds",
			Help:      "Latency of record store requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"resource_type", "method"}),
		sectionLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chart",
			Subsystem: "sections",
			Name:      "loads_total",
			Help:      "Total section cache loads",
		}, []string{"category", "outcome"}),
		sectionLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "chart",
			Subsystem: "sections",
			Name:      "load_duration_seconds",
			Help:      "Latency of section cache loads",
			Buckets:   prometheus.DefBuckets,
		}, []string{"category"}),
		summarySteps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chart",
			Subsystem: "summary",
			Name:      "steps_total",
			Help:      "Total summary pipeline steps",
		}, []string{"step", "outcome"}),
		summaryLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "chart",
			Subsystem: "summary",
			Name:      "step_duration_seconds",
			Help:      "Latency of summary pipeline steps",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"step"}),
		cancellations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chart",
			Subsystem: "appointments",
			Name:      "cancellations_total",
			Help:      "Total appointment cancellations",
		}, []string{"outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.fhirRequests, m.fhirLatency,
		m.sectionLoads, m.sectionLatency,
		m.summarySteps, m.summaryLatency,
		m.cancellations,
	)
	return m
}

// ObserveFHIRRequest records one completed record store request.
func (m *ChartMetrics) ObserveFHIRRequest(resourceType, method, status string, seconds float64) {
	if m == nil {
		return
	}
	m.fhirRequests.WithLabelValues(resourceType, method, status).Inc()
	m.fhirLatency.WithLabelValues(resourceType, method).Observe(seconds)
}

func (m *ChartMetrics) ObserveSectionLoad(category, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.sectionLoads.WithLabelValues(category, outcome).Inc()
	m.sectionLatency.WithLabelValues(category).Observe(seconds)
}

func (m *ChartMetrics) ObserveSummaryStep(step, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.summarySteps.WithLabelValues(step, outcome).Inc()
	m.summaryLatency.WithLabelValues(step).Observe(seconds)
}

func (m *ChartMetrics) IncCancellation(outcome string) {
	if m == nil {
		return
	}
	m.cancellations.WithLabelValues(outcome).Inc()
}
