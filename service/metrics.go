package service

import "time"

// MetricsCollector receives counters from the token manager and transport.
// Label values never include token material.
type MetricsCollector interface {
	IncrementTokenRefresh(status string)
	RecordTokenExpiry(expiresInSeconds float64)
	IncrementAutoRefresh()
	IncrementUpstreamRequest(method, op, status string)
	RecordUpstreamLatency(op string, d time.Duration)
}

// NoOpMetricsCollector is the default when no collector is wired.
type NoOpMetricsCollector struct{}

func (NoOpMetricsCollector) IncrementTokenRefresh(status string)                {}
func (NoOpMetricsCollector) RecordTokenExpiry(expiresInSeconds float64)         {}
func (NoOpMetricsCollector) IncrementAutoRefresh()                              {}
func (NoOpMetricsCollector) IncrementUpstreamRequest(method, op, status string) {}
func (NoOpMetricsCollector) RecordUpstreamLatency(op string, d time.Duration)   {}
