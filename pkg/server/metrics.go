package server

import "github.com/prometheus/client_golang/prometheus"

var (
	requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tableflow_requests_total",
		Help: "Requests handled, by outcome.",
	}, []string{"outcome"})

	requestDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "tableflow_request_duration_seconds",
		Help:    "Time spent routing one request, excluding network reads and writes.",
		Buckets: prometheus.ExponentialBuckets(1e-6, 10, 7),
	})

	connectionsOpen = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tableflow_connections_open",
		Help: "Connections currently being served.",
	})
)

func init() {
	prometheus.MustRegister(requestsTotal, requestDuration, connectionsOpen)
}
