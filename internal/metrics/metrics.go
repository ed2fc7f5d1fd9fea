// Package metrics exposes pipeline latency and outcome counters to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors for one registry.
type Metrics struct {
	registry *prometheus.Registry

	StageDuration   *prometheus.HistogramVec
	Runs            *prometheus.CounterVec
	Fallbacks       prometheus.Counter
	Transcriptions  *prometheus.CounterVec
	RecordingLength prometheus.Histogram
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "atlas_stage_duration_seconds",
			Help:    "Time spent in each pipeline stage",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		}, []string{"stage"}),
		Runs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "atlas_runs_total",
			Help: "Pipeline runs by terminal outcome",
		}, []string{"outcome"}),
		Fallbacks: factory.NewCounter(prometheus.CounterOpts{
			Name: "atlas_transcription_fallbacks_total",
			Help: "Times the on-device provider was tried after a primary failure",
		}),
		Transcriptions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "atlas_transcriptions_total",
			Help: "Successful transcriptions by provider",
		}, []string{"provider"}),
		RecordingLength: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "atlas_recording_duration_seconds",
			Help:    "Length of captured recordings",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 8), // 0.5s to ~1 minute
		}),
	}
}

func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (m *Metrics) RunFinished(outcome string) {
	m.Runs.WithLabelValues(outcome).Inc()
}

func (m *Metrics) FallbackUsed() {
	m.Fallbacks.Inc()
}

func (m *Metrics) Transcribed(provider string) {
	m.Transcriptions.WithLabelValues(provider).Inc()
}

func (m *Metrics) Recorded(d time.Duration) {
	m.RecordingLength.Observe(d.Seconds())
}

// Registry returns the underlying registry for gathering in tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
