// Package metrics holds the Prometheus collectors for analysis jobs.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	JobsStarted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "lookscore",
		Name:      "jobs_started_total",
		Help:      "Total number of analysis jobs accepted.",
	})

	// JobsFinished counts terminal jobs by status (succeeded, failed).
	JobsFinished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lookscore",
		Name:      "jobs_finished_total",
		Help:      "Total number of analysis jobs that reached a terminal status.",
	}, []string{"status"})

	// ModelCalls counts gateway calls by attempt (1, 2) and outcome
	// (valid, invalid, error).
	ModelCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lookscore",
		Name:      "model_calls_total",
		Help:      "Total number of model gateway calls, labeled by attempt and outcome.",
	}, []string{"attempt", "outcome"})

	ModelCallDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "lookscore",
		Name:      "model_call_duration_seconds",
		Help:      "Wall time of one model gateway call.",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120, 300},
	}, []string{"attempt"})

	JobsEvicted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "lookscore",
		Name:      "jobs_evicted_total",
		Help:      "Total number of jobs removed after exceeding the job TTL.",
	})

	JobsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "lookscore",
		Name:      "jobs_in_flight",
		Help:      "Current number of analysis goroutines running.",
	})
)

// Register registers the collectors with the default Prometheus registry.
// Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			JobsStarted,
			JobsFinished,
			ModelCalls,
			ModelCallDuration,
			JobsEvicted,
			JobsInFlight,
		)
	})
}

// Handler serves the default registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}
