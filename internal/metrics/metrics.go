// Package metrics provides Prometheus metrics for the preload pipeline.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "farsisub"

// Metrics holds the service's collectors. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests    *prometheus.CounterVec
	PreloadsActive  prometheus.Gauge
	PreloadOutcomes *prometheus.CounterVec
	StageDuration   *prometheus.HistogramVec

	QuotaRejections  prometheus.Counter
	SegmentFallbacks prometheus.Counter
	Translations     *prometheus.CounterVec
	UsageSeconds     prometheus.Counter

	EventsPublished *prometheus.CounterVec
}

// New creates the collectors on a private registry that also carries the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code",
		}, []string{"route", "code"}),
		PreloadsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "preloads_active",
			Help:      "Preload pipelines currently running",
		}),
		PreloadOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "preloads_total",
			Help:      "Finished preload requests by outcome (completed or error kind)",
		}, []string{"outcome"}),
		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of pipeline stages in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600, 1200},
		}, []string{"stage"}),
		QuotaRejections: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quota_rejections_total",
			Help:      "Requests refused by the daily quota",
		}),
		SegmentFallbacks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "segment_fallbacks_total",
			Help:      "Captions that kept their source text because translation failed",
		}),
		Translations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "translations_total",
			Help:      "Translation backend calls by backend and result",
		}, []string{"backend", "result"}),
		UsageSeconds: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "usage_seconds_recorded_total",
			Help:      "Seconds added to the usage ledger",
		}),
		EventsPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Pipeline events by type and result",
		}, []string{"type", "result"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry (tests gather from it).
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordHTTPRequest counts a served request.
func (m *Metrics) RecordHTTPRequest(route string, status int) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
}

// PreloadStarted marks a pipeline as running.
func (m *Metrics) PreloadStarted() {
	if m == nil {
		return
	}
	m.PreloadsActive.Inc()
}

// PreloadFinished records the pipeline outcome and decrements the gauge.
func (m *Metrics) PreloadFinished(outcome string) {
	if m == nil {
		return
	}
	m.PreloadsActive.Dec()
	m.PreloadOutcomes.WithLabelValues(outcome).Inc()
}

// ObserveStage records how long a stage took.
func (m *Metrics) ObserveStage(stage string, seconds float64) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(seconds)
}

// RecordQuotaRejection counts a quota refusal.
func (m *Metrics) RecordQuotaRejection() {
	if m == nil {
		return
	}
	m.QuotaRejections.Inc()
}

// RecordSegmentFallback counts a caption left untranslated.
func (m *Metrics) RecordSegmentFallback() {
	if m == nil {
		return
	}
	m.SegmentFallbacks.Inc()
}

// RecordTranslation counts a backend call.
func (m *Metrics) RecordTranslation(backend string, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	m.Translations.WithLabelValues(backend, result).Inc()
}

// RecordUsage adds recorded usage seconds.
func (m *Metrics) RecordUsage(seconds int64) {
	if m == nil || seconds <= 0 {
		return
	}
	m.UsageSeconds.Add(float64(seconds))
}

// RecordEvent counts a published (or failed) event.
func (m *Metrics) RecordEvent(eventType string, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	m.EventsPublished.WithLabelValues(eventType, result).Inc()
}
