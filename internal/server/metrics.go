package server

import (
	"net/http"
	"time"

	"github.com/oukeidos/photomotion/internal/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is a private Prometheus registry for one server.
type Metrics struct {
	registry    *prometheus.Registry
	generations *prometheus.CounterVec
	duration    prometheus.Histogram
	uploads     *prometheus.CounterVec
	wsClients   prometheus.Gauge
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "photomotion",
			Name:      "generations_total",
			Help:      "Finished video generations by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "photomotion",
			Name:      "generation_duration_seconds",
			Help:      "Wall time from submission to terminal state.",
			Buckets:   []float64{15, 30, 60, 90, 120, 180, 300, 600},
		}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "photomotion",
			Name:      "image_uploads_total",
			Help:      "Image staging requests by result.",
		}, []string{"result"}),
		wsClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "photomotion",
			Name:      "websocket_clients",
			Help:      "Connected state subscribers.",
		}),
	}
	m.registry.MustRegister(
		m.generations,
		m.duration,
		m.uploads,
		m.wsClients,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveOutcome matches session.Options.OnOutcome.
func (m *Metrics) ObserveOutcome(outcome session.Outcome, elapsed time.Duration) {
	m.generations.WithLabelValues(string(outcome)).Inc()
	if outcome != session.OutcomeAbandoned {
		m.duration.Observe(elapsed.Seconds())
	}
}

func (m *Metrics) observeUpload(result string) {
	m.uploads.WithLabelValues(result).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
