// Package metrics exposes Prometheus instrumentation for the pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Fetches counts readings requests by outcome ("ok", "error").
	Fetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "glowpull_fetches_total",
			Help: "Readings fetches by outcome",
		},
		[]string{"status"},
	)

	// PointsWritten counts points handed to the sink.
	PointsWritten = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "glowpull_points_written_total",
			Help: "Time-series points written to the sink",
		},
	)

	// AuthRefreshes counts live token requests.
	AuthRefreshes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "glowpull_auth_refreshes_total",
			Help: "Live authentication requests performed",
		},
	)

	// FetchDuration observes readings request latency.
	FetchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "glowpull_fetch_duration_seconds",
			Help:    "Readings fetch latency",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// Register registers all collectors with the default registry. Call once
// at startup.
func Register() {
	prometheus.MustRegister(Fetches)
	prometheus.MustRegister(PointsWritten)
	prometheus.MustRegister(AuthRefreshes)
	prometheus.MustRegister(FetchDuration)
}

// ObserveFetch records one fetch outcome and its duration.
func ObserveFetch(start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	Fetches.WithLabelValues(status).Inc()
	FetchDuration.Observe(time.Since(start).Seconds())
}

// Serve exposes /metrics on addr. Blocks; run in a goroutine.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(addr, mux)
}
