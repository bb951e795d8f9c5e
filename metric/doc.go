// Package metric provides Prometheus-based metrics collection and an HTTP
// server for arfstream observability.
//
// The package offers a centralized metrics registry managing both core
// platform metrics (component lifecycle, chunk throughput, container
// traversal diagnostics) and custom component-specific metrics. It includes
// an HTTP server exposing metrics in Prometheus format.
//
// # Architecture
//
// The package follows a three-layer design:
//
//  1. Core Metrics: platform-level metrics registered automatically (Metrics type)
//  2. Component Registry: extensible registration for component-specific metrics (Registrar interface)
//  3. HTTP Server: metrics endpoint with a health check (Server type)
//
// # Basic Usage
//
// Setting up metrics collection and the HTTP server:
//
//	registry := metric.NewRegistry()
//	server := metric.NewServer(9090, "/metrics", registry)
//
//	go func() {
//	    if err := server.Start(); err != nil {
//	        log.Printf("Metrics server error: %v", err)
//	    }
//	}()
//
//	// Record core platform metrics
//	core := registry.CoreMetrics()
//	core.RecordChunkEmitted("reader-main", "samples")
//	core.RecordFramesRead("reader-main", 65536)
//	core.RecordOverlapDetected("reader-main")
//
// The server exposes Prometheus-formatted metrics at
// http://localhost:9090/metrics and a health check at /health.
//
// # Core Metrics
//
// The registry automatically tracks, per component:
//
//   - Lifecycle: arfstream_component_status, arfstream_health_status
//   - Stream throughput: chunks_emitted_total (by tag), frames_read_total,
//     read_duration_seconds (by operation)
//   - Container traversal: entries_processed_total (by outcome),
//     datasets_skipped_total (by reason), overlaps_detected_total
//   - Dispatch: workers, queue_depth
//
// # Component Metrics
//
// Components register their own collectors through the Registrar interface
// carried in their Dependencies. Registrations are namespaced by component
// name so two instances of the same component type cannot silently collide:
//
//	counter := prometheus.NewCounter(prometheus.CounterOpts{
//	    Namespace: "arfstream",
//	    Subsystem: "jsonl_sink",
//	    Name:      "records_written_total",
//	    Help:      "Records written to the output file",
//	})
//	if err := deps.Metrics.RegisterCounter("sink-main", "records_written_total", counter); err != nil {
//	    return err
//	}
//
// All registration methods reject duplicates at both the registry level
// (component.metric key) and the Prometheus level (descriptor identity).
package metric
