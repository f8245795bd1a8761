// Package metrics exports session activity as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ayusman/howlong/internal/burst"
	"github.com/ayusman/howlong/internal/engagement"
	"github.com/ayusman/howlong/internal/gesture"
)

// Metrics counts session events. It implements session.Observer.
type Metrics struct {
	registry *prometheus.Registry

	edges       *prometheus.CounterVec
	started     *prometheus.CounterVec
	queued      *prometheus.CounterVec
	completed   *prometheus.CounterVec
	evicted     prometheus.Counter
	navigations *prometheus.CounterVec
	level       prometheus.Gauge
	sessions    prometheus.Counter
}

// New creates the collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		edges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "howlong_gesture_edges_total",
			Help: "Debounced gesture activations.",
		}, []string{"gesture"}),
		started: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "howlong_bursts_started_total",
			Help: "Bursts triggered.",
		}, []string{"gesture"}),
		queued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "howlong_bursts_queued_total",
			Help: "Burst requests deferred while another burst was active.",
		}, []string{"gesture"}),
		completed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "howlong_bursts_completed_total",
			Help: "Bursts completed.",
		}, []string{"gesture"}),
		evicted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "howlong_entities_evicted_total",
			Help: "Entities dropped to stay under the entity cap.",
		}),
		navigations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "howlong_navigations_total",
			Help: "Sessions that reached the result page, by reason.",
		}, []string{"reason"}),
		level: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "howlong_engagement_level",
			Help: "Engagement level of the current session.",
		}),
		sessions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "howlong_sessions_total",
			Help: "Sessions started.",
		}),
	}
	m.registry.MustRegister(m.edges, m.started, m.queued, m.completed,
		m.evicted, m.navigations, m.level, m.sessions)

	for _, t := range gesture.Types {
		m.edges.WithLabelValues(t.String())
		m.started.WithLabelValues(t.String())
		m.completed.WithLabelValues(t.String())
	}
	return m
}

// Handler serves the metrics in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// SessionStarted counts a new session and resets the level gauge.
func (m *Metrics) SessionStarted() {
	m.sessions.Inc()
	m.level.Set(0)
}

func (m *Metrics) GestureEdge(t gesture.Type) {
	m.edges.WithLabelValues(t.String()).Inc()
}

func (m *Metrics) BurstStarted(b burst.Burst) {
	m.started.WithLabelValues(b.Type.String()).Inc()
}

func (m *Metrics) BurstQueued(t gesture.Type) {
	m.queued.WithLabelValues(t.String()).Inc()
}

func (m *Metrics) BurstCompleted(c burst.Completion, level int) {
	m.completed.WithLabelValues(c.Type.String()).Inc()
	m.level.Set(float64(level))
}

func (m *Metrics) Evicted(n int) {
	m.evicted.Add(float64(n))
}

func (m *Metrics) Navigated(nav engagement.Navigation) {
	m.navigations.WithLabelValues(nav.Reason).Inc()
}
