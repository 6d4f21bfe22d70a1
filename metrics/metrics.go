package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/combatcore/game/event"
	"github.com/kasuganosora/combatcore/plugin/hook"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const hookName = "metrics"

// Metrics owns a private Prometheus registry with combat and HTTP collectors.
type Metrics struct {
	registry *prometheus.Registry

	events      *prometheus.CounterVec
	attacks     *prometheus.CounterVec
	damage      *prometheus.CounterVec
	controls    *prometheus.CounterVec
	combatants  prometheus.Gauge
	httpReqs    *prometheus.CounterVec
	httpLatency *prometheus.HistogramVec
}

// New creates the collectors and registers them with a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "combat_events_total",
			Help: "Combat events emitted, by type.",
		}, []string{"type"}),
		attacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "combat_attacks_total",
			Help: "Resolved attacks, by damage type and outcome.",
		}, []string{"damage_type", "outcome"}),
		damage: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "combat_damage_applied_total",
			Help: "HP removed by resolved attacks, by damage type.",
		}, []string{"damage_type"}),
		controls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "combat_controls_applied_total",
			Help: "Crowd-control effects that landed, by kind.",
		}, []string{"control"}),
		combatants: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "combat_combatants",
			Help: "Combatants currently registered in the arena.",
		}),
		httpReqs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "combat_http_requests_total",
			Help: "HTTP requests, by method, route and status code.",
		}, []string{"method", "endpoint", "status_code"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "combat_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
	}
	m.registry.MustRegister(m.events, m.attacks, m.damage, m.controls, m.combatants, m.httpReqs, m.httpLatency)
	return m
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Register counts every event passing through hc.
func (m *Metrics) Register(hc *hook.HookCenter) {
	hc.Register(hook.Any, 900, hookName, func(_ context.Context, ev event.Event) error {
		m.Observe(ev)
		return nil
	})
}

// Observe updates the counters for one event.
func (m *Metrics) Observe(ev event.Event) {
	m.events.WithLabelValues(ev.EventType()).Inc()
	switch e := ev.(type) {
	case event.AttackResolved:
		outcome := "hit"
		switch {
		case e.Dodged:
			outcome = "dodged"
		case e.Critical:
			outcome = "critical"
		}
		m.attacks.WithLabelValues(e.DamageType, outcome).Inc()
		if e.Applied > 0 {
			m.damage.WithLabelValues(e.DamageType).Add(e.Applied)
		}
	case event.ControlApplied:
		m.controls.WithLabelValues(e.Control).Inc()
	case event.Spawned:
		m.combatants.Inc()
	case event.Despawned:
		m.combatants.Dec()
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records request count and latency per matched route.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		m.httpReqs.WithLabelValues(c.Request.Method, endpoint, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpLatency.WithLabelValues(c.Request.Method, endpoint).Observe(time.Since(start).Seconds())
	}
}
