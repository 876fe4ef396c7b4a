package httpx

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/splax/cubedash/internal/query"
)

type routerMetrics struct {
	requests   *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	unitsSpent *prometheus.CounterVec
	refusals   *prometheus.CounterVec
}

func newRouterMetrics(reg prometheus.Registerer) *routerMetrics {
	return &routerMetrics{
		requests: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cubedash",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"route", "status"})),
		latency: register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cubedash",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Time to answer a request, Cube round trip included.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"route"})),
		unitsSpent: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cubedash",
			Subsystem: "budget",
			Name:      "units_spent_total",
			Help:      "Query budget units charged, by granularity.",
		}, []string{"grain"})),
		refusals: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cubedash",
			Subsystem: "budget",
			Name:      "refusals_total",
			Help:      "Renders refused because the caller's budget was exhausted.",
		}, []string{"route", "grain"})),
	}
}

// register adds c to reg, or returns the equivalent collector already there
// when several routers share one registry.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
	}
	return c
}

func (m *routerMetrics) observe(route string, status int, took time.Duration) {
	m.requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.latency.WithLabelValues(route).Observe(took.Seconds())
}

func (m *routerMetrics) spent(grain query.Granularity, units int) {
	m.unitsSpent.WithLabelValues(grain.String()).Add(float64(units))
}

func (m *routerMetrics) refused(route string, grain query.Granularity) {
	m.refusals.WithLabelValues(route, grain.String()).Inc()
}
