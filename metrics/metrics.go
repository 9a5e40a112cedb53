package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ResolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_resolutions_total",
			Help: "Total match resolution attempts",
		},
		[]string{"mode", "result"}, // mode: direct|ticket; result: success or failure kind
	)

	ResolutionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gateway_resolution_duration_seconds",
			Help:    "Duration of match resolution including allocation polling",
			Buckets: prometheus.DefBuckets,
		},
	)

	PollAttempts = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gateway_poll_attempts",
			Help:    "Server-details polls needed per allocation",
			Buckets: prometheus.LinearBuckets(1, 1, 10),
		},
	)
)

func init() {
	prometheus.MustRegister(ResolutionsTotal)
	prometheus.MustRegister(ResolutionDuration)
	prometheus.MustRegister(PollAttempts)
}

func Register(mux *http.ServeMux) {
	mux.Handle("/metrics", promhttp.Handler())
}
