package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every metric exported by the platform.
const Namespace = "videoproc"

// Metrics contains all platform-level metrics (not component-specific)
type Metrics struct {
	// Component lifecycle metrics
	ComponentStatus   *prometheus.GaugeVec
	HealthCheckStatus *prometheus.GaugeVec
	ErrorsTotal       *prometheus.CounterVec

	// Frame path metrics
	FramesCaptured    *prometheus.CounterVec
	FramesProcessed   *prometheus.CounterVec
	FramesDropped     *prometheus.CounterVec
	StageDuration     *prometheus.HistogramVec
	SubscribersActive prometheus.Gauge

	// Archival metrics
	UploadsTotal  *prometheus.CounterVec
	UploadedBytes prometheus.Counter

	// NATS metrics
	NATSConnected  prometheus.Gauge
	NATSRTT        prometheus.Gauge
	NATSReconnects prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all platform metrics
func NewMetrics() *Metrics {
	return &Metrics{
		ComponentStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Subsystem: "component",
				Name:      "status",
				Help:      "Component lifecycle state (0=created, 1=initialized, 2=started, 3=stopped, 4=failed)",
			},
			[]string{"component"},
		),

		HealthCheckStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Subsystem: "health",
				Name:      "status",
				Help:      "Health check status (0=unhealthy, 1=healthy)",
			},
			[]string{"component"},
		),

		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "errors",
				Name:      "total",
				Help:      "Total number of errors by component and classification",
			},
			[]string{"component", "class"},
		),

		FramesCaptured: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "frames",
				Name:      "captured_total",
				Help:      "Total number of frames read from the source",
			},
			[]string{"source"},
		),

		FramesProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "frames",
				Name:      "processed_total",
				Help:      "Total number of frames through the pipeline by outcome",
			},
			[]string{"status"},
		),

		FramesDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "frames",
				Name:      "dropped_total",
				Help:      "Total number of frames dropped by reason",
			},
			[]string{"reason"},
		),

		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Subsystem: "pipeline",
				Name:      "stage_duration_seconds",
				Help:      "Per-frame stage processing duration in seconds",
				Buckets:   []float64{.001, .0025, .005, .01, .025, .05, .1, .25},
			},
			[]string{"stage"},
		),

		SubscribersActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Subsystem: "hub",
				Name:      "subscribers_active",
				Help:      "Number of currently attached frame subscribers",
			},
		),

		UploadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "uploads",
				Name:      "total",
				Help:      "Total number of completed upload jobs by outcome",
			},
			[]string{"status"},
		),

		UploadedBytes: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "uploads",
				Name:      "bytes_total",
				Help:      "Total bytes successfully pushed to the archive sink",
			},
		),

		NATSConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Subsystem: "nats",
				Name:      "connected",
				Help:      "NATS connection status (0=disconnected, 1=connected)",
			},
		),

		NATSRTT: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Subsystem: "nats",
				Name:      "rtt_milliseconds",
				Help:      "NATS round-trip time in milliseconds",
			},
		),

		NATSReconnects: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "nats",
				Name:      "reconnects_total",
				Help:      "Total number of NATS reconnections",
			},
		),
	}
}

// RecordComponentStatus updates component status metric
func (c *Metrics) RecordComponentStatus(component string, status int) {
	c.ComponentStatus.WithLabelValues(component).Set(float64(status))
}

// RecordHealthStatus updates health check status
func (c *Metrics) RecordHealthStatus(component string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1.0
	}
	c.HealthCheckStatus.WithLabelValues(component).Set(value)
}

// RecordError increments error counter
func (c *Metrics) RecordError(component, class string) {
	c.ErrorsTotal.WithLabelValues(component, class).Inc()
}

// RecordFrameCaptured increments the captured frame counter for a source
func (c *Metrics) RecordFrameCaptured(source string) {
	c.FramesCaptured.WithLabelValues(source).Inc()
}

// RecordFrameProcessed increments the processed frame counter
func (c *Metrics) RecordFrameProcessed(status string) {
	c.FramesProcessed.WithLabelValues(status).Inc()
}

// RecordFrameDropped increments the dropped frame counter
func (c *Metrics) RecordFrameDropped(reason string) {
	c.FramesDropped.WithLabelValues(reason).Inc()
}

// RecordStageDuration records per-frame stage processing time
func (c *Metrics) RecordStageDuration(stage string, duration time.Duration) {
	c.StageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// SetActiveSubscribers updates the attached subscriber gauge
func (c *Metrics) SetActiveSubscribers(n int) {
	c.SubscribersActive.Set(float64(n))
}

// RecordUpload increments the upload outcome counter
func (c *Metrics) RecordUpload(status string) {
	c.UploadsTotal.WithLabelValues(status).Inc()
}

// RecordUploadedBytes adds to the uploaded byte counter
func (c *Metrics) RecordUploadedBytes(n int) {
	c.UploadedBytes.Add(float64(n))
}

// RecordNATSStatus updates NATS connection status
func (c *Metrics) RecordNATSStatus(connected bool) {
	value := 0.0
	if connected {
		value = 1.0
	}
	c.NATSConnected.Set(value)
}

// RecordNATSRTT updates NATS round-trip time
func (c *Metrics) RecordNATSRTT(rtt time.Duration) {
	c.NATSRTT.Set(float64(rtt.Milliseconds()))
}

// RecordNATSReconnect increments reconnection counter
func (c *Metrics) RecordNATSReconnect() {
	c.NATSReconnects.Inc()
}
