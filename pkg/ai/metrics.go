package ai

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	aiRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gamemaster_ai_requests_total",
			Help: "Total number of requests to the inference API.",
		},
		[]string{"kind", "status"}, // kind: chat/classify/image
	)
	aiRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gamemaster_ai_request_duration_seconds",
			Help:    "Histogram of inference API request durations.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)
)

func observeRequest(kind string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	aiRequestsTotal.WithLabelValues(kind, status).Inc()
	aiRequestDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}
