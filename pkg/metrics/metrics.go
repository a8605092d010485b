package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Pool metrics
	Endpoints = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "picket_endpoints",
			Help: "Number of endpoints by balancer and lifecycle state",
		},
		[]string{"balancer", "state"},
	)

	// Connect metrics
	ConnectAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "picket_connect_attempts_total",
			Help: "Total number of connect attempts by balancer",
		},
		[]string{"balancer"},
	)

	ConnectFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "picket_connect_failures_total",
			Help: "Total number of failed connect attempts by balancer",
		},
		[]string{"balancer"},
	)

	// Quarantine metrics
	Quarantines = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "picket_quarantines_total",
			Help: "Total number of endpoint quarantines by balancer",
		},
		[]string{"balancer"},
	)

	// Selection metrics
	Selections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "picket_selections_total",
			Help: "Total number of endpoint selections by balancer",
		},
		[]string{"balancer"},
	)

	SelectionFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "picket_selection_failures_total",
			Help: "Total number of failed selections by balancer and reason",
		},
		[]string{"balancer", "reason"},
	)

	SelectionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "picket_selection_duration_seconds",
			Help:    "Selection pipeline duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"balancer"},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(Endpoints)
	prometheus.MustRegister(ConnectAttempts)
	prometheus.MustRegister(ConnectFailures)
	prometheus.MustRegister(Quarantines)
	prometheus.MustRegister(Selections)
	prometheus.MustRegister(SelectionFailures)
	prometheus.MustRegister(SelectionDuration)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since timer started
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
