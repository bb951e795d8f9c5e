package metric

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry(t *testing.T) {
	registry := NewRegistry()

	assert.NotNil(t, registry)
	assert.NotNil(t, registry.PrometheusRegistry())
}

func gatheredNames(t *testing.T, registry *Registry) map[string]bool {
	t.Helper()

	metricFamilies, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(metricFamilies))
	for _, mf := range metricFamilies {
		names[mf.GetName()] = true
	}
	return names
}

func TestRegistry_RegisterCounter(t *testing.T) {
	registry := NewRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "test_counter",
		Help: "A test counter",
	})

	err := registry.RegisterCounter("test-component", "test_counter", counter)
	require.NoError(t, err)

	counter.Inc()

	assert.True(t, gatheredNames(t, registry)["test_counter"],
		"Counter should be registered in Prometheus registry")
}

func TestRegistry_RegisterGauge(t *testing.T) {
	registry := NewRegistry()

	gauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "test_gauge",
		Help: "A test gauge",
	})

	err := registry.RegisterGauge("test-component", "test_gauge", gauge)
	require.NoError(t, err)

	gauge.Set(42.0)

	assert.True(t, gatheredNames(t, registry)["test_gauge"],
		"Gauge should be registered in Prometheus registry")
}

func TestRegistry_RegisterHistogram(t *testing.T) {
	registry := NewRegistry()

	histogram := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "test_histogram",
		Help:    "A test histogram",
		Buckets: prometheus.DefBuckets,
	})

	err := registry.RegisterHistogram("test-component", "test_histogram", histogram)
	require.NoError(t, err)

	histogram.Observe(1.5)

	assert.True(t, gatheredNames(t, registry)["test_histogram"],
		"Histogram should be registered in Prometheus registry")
}

func TestRegistry_RegisterVectors(t *testing.T) {
	registry := NewRegistry()

	counterVec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "test_counter_vec",
		Help: "A test counter vector",
	}, []string{"channel"})
	require.NoError(t, registry.RegisterCounterVec("test-component", "test_counter_vec", counterVec))

	gaugeVec := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "test_gauge_vec",
		Help: "A test gauge vector",
	}, []string{"channel"})
	require.NoError(t, registry.RegisterGaugeVec("test-component", "test_gauge_vec", gaugeVec))

	histogramVec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name: "test_histogram_vec",
		Help: "A test histogram vector",
	}, []string{"channel"})
	require.NoError(t, registry.RegisterHistogramVec("test-component", "test_histogram_vec", histogramVec))

	counterVec.WithLabelValues("pcm_000").Inc()
	gaugeVec.WithLabelValues("pcm_000").Set(1)
	histogramVec.WithLabelValues("pcm_000").Observe(0.1)

	names := gatheredNames(t, registry)
	assert.True(t, names["test_counter_vec"])
	assert.True(t, names["test_gauge_vec"])
	assert.True(t, names["test_histogram_vec"])
}

func TestRegistry_PreventDuplicateRegistration(t *testing.T) {
	registry := NewRegistry()

	counter1 := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "duplicate_counter",
		Help: "First counter",
	})

	counter2 := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "duplicate_counter",
		Help: "First counter", // Same help to avoid Prometheus validation error
	})

	err := registry.RegisterCounter("component1", "duplicate_counter", counter1)
	require.NoError(t, err)

	// Same registry key fails before prometheus is consulted
	err = registry.RegisterCounter("component1", "duplicate_counter", counter1)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate metric registration")

	// Different key but identical descriptor fails at the prometheus level
	err = registry.RegisterCounter("component2", "duplicate_counter", counter2)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "prometheus conflict")
}

func TestRegistry_Unregister(t *testing.T) {
	registry := NewRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "unregister_counter",
		Help: "A counter to unregister",
	})

	err := registry.RegisterCounter("test-component", "unregister_counter", counter)
	require.NoError(t, err)
	assert.True(t, gatheredNames(t, registry)["unregister_counter"])

	success := registry.Unregister("test-component", "unregister_counter")
	assert.True(t, success)
	assert.False(t, gatheredNames(t, registry)["unregister_counter"])

	// Unregistering an unknown metric reports false
	assert.False(t, registry.Unregister("test-component", "never_registered"))
}

func TestRegistry_ThreadSafety(t *testing.T) {
	registry := NewRegistry()

	var wg sync.WaitGroup
	numGoroutines := 10

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()

			counter := prometheus.NewCounter(prometheus.CounterOpts{
				Name: fmt.Sprintf("concurrent_counter_%d", id),
				Help: "A concurrent counter",
			})

			err := registry.RegisterCounter("concurrent-component",
				fmt.Sprintf("concurrent_counter_%d", id), counter)
			assert.NoError(t, err)
		}(i)
	}

	wg.Wait()

	counterCount := 0
	for name := range gatheredNames(t, registry) {
		if strings.Contains(name, "concurrent_counter_") {
			counterCount++
		}
	}

	assert.Equal(t, numGoroutines, counterCount,
		"All concurrent counters should be registered")
}

func TestRegistrar_Interface(t *testing.T) {
	registry := NewRegistry()

	var registrar Registrar = registry
	assert.NotNil(t, registrar)

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "interface_counter",
		Help: "Counter registered through interface",
	})

	err := registrar.RegisterCounter("interface-component", "interface_counter", counter)
	require.NoError(t, err)
}

func TestRegistry_CoreMetricsInitialization(t *testing.T) {
	registry := NewRegistry()

	// Vector metrics don't appear in Gather() until they have at least
	// one value set, so record through the core metrics first.
	core := registry.CoreMetrics()

	core.RecordComponentStatus("reader-main", 2)
	core.RecordHealthStatus("reader-main", true)
	core.RecordError("reader-main", "transient")
	core.RecordChunkEmitted("reader-main", "samples")
	core.RecordFramesRead("reader-main", 65536)
	core.RecordReadDuration("reader-main", "iterate", 100*time.Millisecond)
	core.RecordEntryProcessed("reader-main", "ok")
	core.RecordDatasetSkipped("reader-main", "rate_incompatible")
	core.RecordOverlapDetected("reader-main")
	core.RecordDispatchWorkers("dispatch-main", 3)
	core.RecordQueueDepth("dispatch-main", 12)
	core.RecordChunkWritten("dump-main", "samples")
	core.RecordBytesWritten("dump-main", 2048)

	expectedCoreMetrics := []string{
		"arfstream_component_status",
		"arfstream_health_status",
		"arfstream_errors_total",
		"arfstream_stream_chunks_emitted_total",
		"arfstream_stream_frames_read_total",
		"arfstream_stream_read_duration_seconds",
		"arfstream_container_entries_processed_total",
		"arfstream_container_datasets_skipped_total",
		"arfstream_container_overlaps_detected_total",
		"arfstream_dispatch_workers",
		"arfstream_dispatch_queue_depth",
		"arfstream_sink_chunks_written_total",
		"arfstream_sink_bytes_written_total",
	}

	names := gatheredNames(t, registry)
	for _, expected := range expectedCoreMetrics {
		assert.True(t, names[expected], "core metric %s should be initialized", expected)
	}
}

func TestRegistry_GetCoreMetrics(t *testing.T) {
	registry := NewRegistry()

	core := registry.CoreMetrics()
	assert.NotNil(t, core)

	assert.NotNil(t, core.ComponentStatus)
	assert.NotNil(t, core.HealthCheckStatus)
	assert.NotNil(t, core.ErrorsTotal)
	assert.NotNil(t, core.ChunksEmitted)
	assert.NotNil(t, core.FramesRead)
	assert.NotNil(t, core.ReadDuration)
	assert.NotNil(t, core.EntriesProcessed)
	assert.NotNil(t, core.DatasetsSkipped)
	assert.NotNil(t, core.OverlapsDetected)
	assert.NotNil(t, core.DispatchWorkers)
	assert.NotNil(t, core.QueueDepth)
	assert.NotNil(t, core.ChunksWritten)
	assert.NotNil(t, core.BytesWritten)
}
