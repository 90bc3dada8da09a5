// Package metrics exposes Prometheus metrics for the turn pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics contains all Prometheus metrics for the voice relay. It implements
// core.StageObserver.
type Metrics struct {
	StageRuns     *prometheus.CounterVec
	StageDuration *prometheus.HistogramVec
	VoiceMessages prometheus.Counter
	ResetCommands prometheus.Counter
}

// NewMetrics creates and registers all metrics on the default registry.
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith creates all metrics on the given registerer.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		StageRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_pipeline_stage_runs_total",
			Help: "Pipeline stage executions by stage and outcome",
		}, []string{"stage", "outcome"}),
		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "relay_pipeline_stage_duration_seconds",
			Help:    "Pipeline stage latency by stage",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"stage"}),
		VoiceMessages: factory.NewCounter(prometheus.CounterOpts{
			Name: "relay_voice_messages_total",
			Help: "Voice messages received from the transport",
		}),
		ResetCommands: factory.NewCounter(prometheus.CounterOpts{
			Name: "relay_reset_commands_total",
			Help: "Conversation reset commands received",
		}),
	}
}

// ObserveStage records one pipeline stage outcome.
func (m *Metrics) ObserveStage(stage string, err error, elapsed time.Duration) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.StageRuns.WithLabelValues(stage, outcome).Inc()
	m.StageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
}

// Handler returns the HTTP handler serving the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
