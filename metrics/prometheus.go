// Package metrics provides the Prometheus implementation of the service
// metrics collector.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TokenRefreshTotal counts refresh-grant exchanges by outcome.
	TokenRefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cafe24",
			Name:      "token_refresh_total",
			Help:      "Total number of OAuth token refresh exchanges",
		},
		[]string{"status"},
	)

	// TokenExpirySeconds tracks how long the current access token remains valid.
	TokenExpirySeconds = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "cafe24",
			Name:      "token_expiry_seconds",
			Help:      "Seconds until the current access token expires",
		},
	)

	// AutoRefreshTotal counts refreshes triggered by the background checker.
	AutoRefreshTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "cafe24",
			Name:      "auto_refresh_total",
			Help:      "Total number of background-initiated token refreshes",
		},
	)

	// UpstreamRequestTotal counts Admin API requests by operation and status.
	UpstreamRequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cafe24",
			Name:      "upstream_request_total",
			Help:      "Total number of upstream Admin API requests",
		},
		[]string{"method", "operation", "status"},
	)

	// UpstreamLatency measures end-to-end upstream call duration.
	UpstreamLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cafe24",
			Name:      "upstream_request_duration_seconds",
			Help:      "Duration of upstream Admin API requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

// Prometheus implements the service layer's MetricsCollector interface.
type Prometheus struct{}

// NewPrometheus creates a Prometheus-backed metrics collector.
func NewPrometheus() *Prometheus {
	return &Prometheus{}
}

func (*Prometheus) IncrementTokenRefresh(status string) {
	TokenRefreshTotal.WithLabelValues(status).Inc()
}

func (*Prometheus) RecordTokenExpiry(expiresInSeconds float64) {
	TokenExpirySeconds.Set(expiresInSeconds)
}

func (*Prometheus) IncrementAutoRefresh() {
	AutoRefreshTotal.Inc()
}

func (*Prometheus) IncrementUpstreamRequest(method, operation, status string) {
	UpstreamRequestTotal.WithLabelValues(method, operation, status).Inc()
}

func (*Prometheus) RecordUpstreamLatency(operation string, d time.Duration) {
	UpstreamLatency.WithLabelValues(operation).Observe(d.Seconds())
}
