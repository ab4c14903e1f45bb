package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relay_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method"},
	)

	// Relay metrics
	RecordsCommitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_records_committed_total",
			Help: "Records appended to history",
		},
		[]string{"source"}, // "inbound" or "echo"
	)

	RecordsEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_records_evicted_total",
			Help: "Records evicted from the head of history",
		},
	)

	HistorySize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "relay_history_size",
			Help: "Records currently held in history",
		},
	)

	ViewersConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "relay_viewers_connected",
			Help: "Currently registered viewer channels",
		},
	)

	ViewersEvicted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_viewers_evicted_total",
			Help: "Viewer channels dropped by the relay",
		},
		[]string{"reason"}, // "queue_full" or "write_error"
	)

	OutboundSends = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_outbound_sends_total",
			Help: "Outbound sends through the messaging account",
		},
		[]string{"result"}, // "ok", "error" or "invalid"
	)

	MediaFetchFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_media_fetch_failures_total",
			Help: "Inbound media downloads that degraded to text-only",
		},
	)

	AccountCallLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relay_account_call_latency_seconds",
			Help:    "Messaging account gateway call latency",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method"},
	)
)
