// Package metric provides Prometheus-based metrics collection and an HTTP
// server for monitoring the video processing platform.
//
// The package offers a centralized metrics registry managing both core
// platform metrics (component status, frame throughput, upload outcomes,
// NATS health) and custom component-specific metrics. It includes an HTTP
// server exposing metrics in Prometheus format.
//
// # Architecture
//
// The package follows a three-layer design:
//
//  1. Core Metrics: Platform-level metrics automatically registered (Metrics type)
//  2. Component Registry: Extensible registration for component-specific metrics (MetricsRegistrar interface)
//  3. HTTP Server: Metrics endpoint with a health check (Server type)
//
// All exported metrics share the "videoproc" namespace (the Namespace
// constant) so they group naturally in dashboards.
//
// # Basic Usage
//
// Setting up metrics collection and the HTTP server:
//
//	registry := metric.NewMetricsRegistry()
//	server := metric.NewServer(9090, "/metrics", registry)
//
//	go func() {
//	    if err := server.Start(); err != nil {
//	        log.Printf("metrics server error: %v", err)
//	    }
//	}()
//
//	core := registry.CoreMetrics()
//	core.RecordFrameCaptured("testpattern")
//	core.RecordStageDuration("blur", 4*time.Millisecond)
//	core.RecordUpload("succeeded")
//
// The server exposes Prometheus-formatted metrics at
// http://localhost:9090/metrics and a health check at
// http://localhost:9090/health.
//
// # Component-Specific Metrics
//
// Components register custom metrics through the MetricsRegistrar interface.
// The registry rejects duplicate registrations at both its own level and the
// Prometheus level, so a component restarted under the same name must
// Unregister its metrics first (or keep the collector instances across
// restarts).
//
//	depth := prometheus.NewGauge(prometheus.GaugeOpts{
//	    Namespace: metric.Namespace,
//	    Subsystem: "upload",
//	    Name:      "queue_depth",
//	    Help:      "Pending upload jobs",
//	})
//	if err := registry.RegisterGauge("upload-queue", "queue_depth", depth); err != nil {
//	    return err
//	}
package metric
