package component

import (
	"log/slog"

	"github.com/AtharvaMohite07/Real-Time-Video-Processing/metric"
	"github.com/AtharvaMohite07/Real-Time-Video-Processing/natsclient"
)

// Dependencies provides the shared external dependencies components
// receive at construction. Every field may be nil; components degrade
// to local-only operation when NATS or metrics are absent.
type Dependencies struct {
	NATSClient      *natsclient.Client      // NATS client for log relay and cloud archival
	MetricsRegistry *metric.MetricsRegistry // Metrics registry for Prometheus (can be nil)
	Logger          *slog.Logger            // Structured logger (can be nil, defaults to slog.Default())
}

// GetLogger returns the configured logger or a default logger if none is provided
func (d *Dependencies) GetLogger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

// GetLoggerWithComponent returns a logger configured with component context
func (d *Dependencies) GetLoggerWithComponent(componentName string) *slog.Logger {
	return d.GetLogger().With("component", componentName)
}
