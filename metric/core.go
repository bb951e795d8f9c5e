package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains all platform-level metrics (not component-specific)
type Metrics struct {
	// Component lifecycle metrics
	ComponentStatus   *prometheus.GaugeVec
	HealthCheckStatus *prometheus.GaugeVec
	ErrorsTotal       *prometheus.CounterVec

	// Stream metrics
	ChunksEmitted *prometheus.CounterVec
	FramesRead    *prometheus.CounterVec
	ReadDuration  *prometheus.HistogramVec

	// Container traversal metrics
	EntriesProcessed *prometheus.CounterVec
	DatasetsSkipped  *prometheus.CounterVec
	OverlapsDetected *prometheus.CounterVec

	// Dispatch metrics
	DispatchWorkers *prometheus.GaugeVec
	QueueDepth      *prometheus.GaugeVec

	// Sink metrics
	ChunksWritten *prometheus.CounterVec
	BytesWritten  *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all platform metrics
func NewMetrics() *Metrics {
	return &Metrics{
		ComponentStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "arfstream",
				Subsystem: "component",
				Name:      "status",
				Help:      "Component lifecycle state (0=created, 1=initialized, 2=started, 3=stopped, 4=failed)",
			},
			[]string{"component"},
		),

		HealthCheckStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "arfstream",
				Subsystem: "health",
				Name:      "status",
				Help:      "Health check status (0=unhealthy, 1=healthy)",
			},
			[]string{"component"},
		),

		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "arfstream",
				Subsystem: "errors",
				Name:      "total",
				Help:      "Total number of errors by classification",
			},
			[]string{"component", "class"},
		),

		ChunksEmitted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "arfstream",
				Subsystem: "stream",
				Name:      "chunks_emitted_total",
				Help:      "Total number of chunks emitted by tag",
			},
			[]string{"component", "tag"},
		),

		FramesRead: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "arfstream",
				Subsystem: "stream",
				Name:      "frames_read_total",
				Help:      "Total number of sample frames read from containers",
			},
			[]string{"component"},
		),

		ReadDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "arfstream",
				Subsystem: "stream",
				Name:      "read_duration_seconds",
				Help:      "Container read operation duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"component", "operation"},
		),

		EntriesProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "arfstream",
				Subsystem: "container",
				Name:      "entries_processed_total",
				Help:      "Total number of entries processed by outcome",
			},
			[]string{"component", "status"},
		),

		DatasetsSkipped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "arfstream",
				Subsystem: "container",
				Name:      "datasets_skipped_total",
				Help:      "Total number of datasets skipped by reason",
			},
			[]string{"component", "reason"},
		),

		OverlapsDetected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "arfstream",
				Subsystem: "container",
				Name:      "overlaps_detected_total",
				Help:      "Total number of time-overlapping datasets detected",
			},
			[]string{"component"},
		),

		DispatchWorkers: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "arfstream",
				Subsystem: "dispatch",
				Name:      "workers",
				Help:      "Number of live per-key dispatch workers",
			},
			[]string{"component"},
		),

		QueueDepth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "arfstream",
				Subsystem: "dispatch",
				Name:      "queue_depth",
				Help:      "Buffered chunks awaiting asynchronous delivery",
			},
			[]string{"component"},
		),

		ChunksWritten: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "arfstream",
				Subsystem: "sink",
				Name:      "chunks_written_total",
				Help:      "Total number of chunks written by terminal sinks, by tag",
			},
			[]string{"component", "tag"},
		),

		BytesWritten: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "arfstream",
				Subsystem: "sink",
				Name:      "bytes_written_total",
				Help:      "Total number of bytes written by terminal sinks",
			},
			[]string{"component"},
		),
	}
}

// RecordComponentStatus updates the component lifecycle state metric
func (c *Metrics) RecordComponentStatus(component string, state int) {
	c.ComponentStatus.WithLabelValues(component).Set(float64(state))
}

// RecordHealthStatus updates health check status
func (c *Metrics) RecordHealthStatus(component string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1.0
	}
	c.HealthCheckStatus.WithLabelValues(component).Set(value)
}

// RecordError increments the error counter for a classification
func (c *Metrics) RecordError(component, class string) {
	c.ErrorsTotal.WithLabelValues(component, class).Inc()
}

// RecordChunkEmitted increments the emitted chunk counter for a tag
func (c *Metrics) RecordChunkEmitted(component, tag string) {
	c.ChunksEmitted.WithLabelValues(component, tag).Inc()
}

// RecordFramesRead adds to the frames-read counter
func (c *Metrics) RecordFramesRead(component string, frames int) {
	c.FramesRead.WithLabelValues(component).Add(float64(frames))
}

// RecordReadDuration records a container read operation's duration
func (c *Metrics) RecordReadDuration(component, operation string, duration time.Duration) {
	c.ReadDuration.WithLabelValues(component, operation).Observe(duration.Seconds())
}

// RecordEntryProcessed increments the entry counter for an outcome
func (c *Metrics) RecordEntryProcessed(component, status string) {
	c.EntriesProcessed.WithLabelValues(component, status).Inc()
}

// RecordDatasetSkipped increments the skipped-dataset counter for a reason
func (c *Metrics) RecordDatasetSkipped(component, reason string) {
	c.DatasetsSkipped.WithLabelValues(component, reason).Inc()
}

// RecordOverlapDetected increments the overlap diagnostic counter
func (c *Metrics) RecordOverlapDetected(component string) {
	c.OverlapsDetected.WithLabelValues(component).Inc()
}

// RecordDispatchWorkers updates the live worker gauge
func (c *Metrics) RecordDispatchWorkers(component string, workers int) {
	c.DispatchWorkers.WithLabelValues(component).Set(float64(workers))
}

// RecordQueueDepth updates the buffered chunk gauge
func (c *Metrics) RecordQueueDepth(component string, depth int) {
	c.QueueDepth.WithLabelValues(component).Set(float64(depth))
}

// RecordChunkWritten increments the written chunk counter for a tag
func (c *Metrics) RecordChunkWritten(component, tag string) {
	c.ChunksWritten.WithLabelValues(component, tag).Inc()
}

// RecordBytesWritten adds to the bytes-written counter
func (c *Metrics) RecordBytesWritten(component string, bytes int) {
	c.BytesWritten.WithLabelValues(component).Add(float64(bytes))
}
