// Package observability wires the service's structured logger and
// Prometheus metrics, following the teacher's injected-logger,
// registered-registry pattern rather than package-level globals.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters and histograms for the forecast
// pipeline: ingest-stage rejections, fusion/confidence outcomes, and
// specialist/LLM call health.
type Metrics struct {
	// Ingest and quality control (§4.A, §4.G).
	ObservationsRejected *prometheus.CounterVec // labels: field
	ComponentsExcluded   prometheus.Counter
	EventsExcluded       prometheus.Counter

	// Fusion and confidence (§4.H, §4.I).
	ForecastsGenerated prometheus.Counter
	ForecastErrors     prometheus.Counter
	ConfidenceScore    prometheus.Histogram
	StageDuration      *prometheus.HistogramVec // labels: stage={fuse,prepare,buoy,pressure,senior}

	// Specialist orchestration (§4.K-M, §5).
	SpecialistCalls    *prometheus.CounterVec // labels: kind={buoy,pressure,senior}, outcome={ok,error,timeout}
	SpecialistDuration *prometheus.HistogramVec

	// LLM client (§5, §7).
	LLMRetries        prometheus.Counter
	LLMUnavailable    prometheus.Counter
	PipelineRunning   prometheus.Gauge
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		ObservationsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "surf_forecast",
			Name:      "observations_rejected_total",
			Help:      "Observations with a field set null by bounds validation, by field name.",
		}, []string{"field"}),
		ComponentsExcluded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "surf_forecast",
			Name:      "components_excluded_total",
			Help:      "Swell components dropped as quality_flag=excluded before prompt assembly.",
		}),
		EventsExcluded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "surf_forecast",
			Name:      "events_excluded_total",
			Help:      "Swell events dropped as quality_flag=excluded or left with no components.",
		}),
		ForecastsGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "surf_forecast",
			Name:      "forecasts_generated_total",
			Help:      "Forecast requests that completed synthesis successfully.",
		}),
		ForecastErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "surf_forecast",
			Name:      "forecast_errors_total",
			Help:      "Forecast requests that failed (insufficient specialists, LLM unavailable, etc).",
		}),
		ConfidenceScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "surf_forecast",
			Name:      "confidence_score",
			Help:      "Overall confidence score of completed forecasts.",
			Buckets:   []float64{0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "surf_forecast",
			Name:      "stage_duration_seconds",
			Help:      "Wall-clock duration of one pipeline stage.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"stage"}),
		SpecialistCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "surf_forecast",
			Name:      "specialist_calls_total",
			Help:      "Specialist invocations by kind and outcome.",
		}, []string{"kind", "outcome"}),
		SpecialistDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "surf_forecast",
			Name:      "specialist_duration_seconds",
			Help:      "Duration of one specialist's Analyze/Synthesize call, by kind.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"kind"}),
		LLMRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "surf_forecast",
			Name:      "llm_retries_total",
			Help:      "GenerateText retry attempts beyond the first.",
		}),
		LLMUnavailable: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "surf_forecast",
			Name:      "llm_unavailable_total",
			Help:      "GenerateText calls that exhausted their retry budget.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "surf_forecast",
			Name:      "pipeline_running",
			Help:      "1 while a forecast request is being processed, 0 otherwise.",
		}),
	}

	prometheus.MustRegister(
		m.ObservationsRejected,
		m.ComponentsExcluded,
		m.EventsExcluded,
		m.ForecastsGenerated,
		m.ForecastErrors,
		m.ConfidenceScore,
		m.StageDuration,
		m.SpecialistCalls,
		m.SpecialistDuration,
		m.LLMRetries,
		m.LLMUnavailable,
		m.PipelineRunning,
	)

	return m
}

// NewMetricsForTesting creates Metrics with an unregistered instance to
// avoid "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		ObservationsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "surf_forecast", Name: "observations_rejected_total"}, []string{"field"}),
		ComponentsExcluded:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: "surf_forecast", Name: "components_excluded_total"}),
		EventsExcluded:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: "surf_forecast", Name: "events_excluded_total"}),
		ForecastsGenerated:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: "surf_forecast", Name: "forecasts_generated_total"}),
		ForecastErrors:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: "surf_forecast", Name: "forecast_errors_total"}),
		ConfidenceScore:      prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "surf_forecast", Name: "confidence_score"}),
		StageDuration:        prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "surf_forecast", Name: "stage_duration_seconds"}, []string{"stage"}),
		SpecialistCalls:      prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "surf_forecast", Name: "specialist_calls_total"}, []string{"kind", "outcome"}),
		SpecialistDuration:   prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "surf_forecast", Name: "specialist_duration_seconds"}, []string{"kind"}),
		LLMRetries:           prometheus.NewCounter(prometheus.CounterOpts{Namespace: "surf_forecast", Name: "llm_retries_total"}),
		LLMUnavailable:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: "surf_forecast", Name: "llm_unavailable_total"}),
		PipelineRunning:      prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "surf_forecast", Name: "pipeline_running"}),
	}
}
