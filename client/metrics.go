package client

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "taskdesk_client",
			Name:      "http_requests_total",
			Help:      "HTTP requests issued by the client, by status code and method.",
		},
		[]string{"code", "method"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "taskdesk_client",
			Name:      "http_request_duration_seconds",
			Help:      "Round-trip latency of client HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"code", "method"},
	)
)

func instrumentTransport(rt http.RoundTripper) http.RoundTripper {
	return promhttp.InstrumentRoundTripperCounter(requestsTotal,
		promhttp.InstrumentRoundTripperDuration(requestDuration, rt))
}
