package cube

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	histogramBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60}

	metricsOnce   sync.Once
	queriesTotal  *prometheus.CounterVec
	queryDuration *prometheus.HistogramVec
)

func initMetrics() {
	metricsOnce.Do(func() {
		queriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cubedash",
			Subsystem: "cube",
			Name:      "queries_total",
			Help:      "Count of statements sent to the Cube SQL API",
		}, []string{"measure", "outcome"})

		queryDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cubedash",
			Subsystem: "cube",
			Name:      "query_duration_seconds",
			Help:      "Latency distribution of Cube SQL API statements",
			Buckets:   histogramBuckets,
		}, []string{"measure"})

		if err := prometheus.Register(queriesTotal); err != nil {
			if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
				if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
					queriesTotal = existing
				}
			}
		}
		if err := prometheus.Register(queryDuration); err != nil {
			if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
				if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
					queryDuration = existing
				}
			}
		}
	})
}

func recordQuery(measure string, duration time.Duration, err error) {
	if queriesTotal == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	queriesTotal.With(prometheus.Labels{"measure": measure, "outcome": outcome}).Inc()
	queryDuration.With(prometheus.Labels{"measure": measure}).Observe(duration.Seconds())
}
