// Package reader provides the ARF reader source component: a lazy,
// time-ordered traversal of a container's entries emitted as datablock
// chunks.
//
// The reader resolves entry order on one of several clocks (wall-clock
// timestamps, a hardware sample counter, or a wrap-corrected JACK frame
// counter), then walks each entry in that order: one zero-length
// structure chunk per entry, followed by the entry's datasets as event
// or samples chunks. Sampled datasets are read in strides aligned to
// their native storage chunking, with offsets computed exactly through
// the timebase package.
package reader

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"reflect"
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	"github.com/c360/arfstream/arf"
	"github.com/c360/arfstream/component"
	"github.com/c360/arfstream/datablock"
	"github.com/c360/arfstream/errors"
	"github.com/c360/arfstream/metric"
	"github.com/c360/arfstream/timebase"
)

// Tag sets shared by every chunk the reader emits. Consumers must not
// mutate them.
var (
	structureTags = datablock.NewTagSet(datablock.TagStructure)
	eventsTags    = datablock.NewTagSet(datablock.TagEvents)
	samplesTags   = datablock.NewTagSet(datablock.TagSamples)
)

// Schema is the configuration schema for the reader component,
// generated from Config struct tags.
var Schema = component.GenerateConfigSchema(reflect.TypeOf(Config{}))

// Reader reads one ARF container as an ordered chunk stream. Construct
// with NewReader, then Start to open and resolve the container and
// Iterate to traverse it. A Reader supports repeated traversals but not
// concurrent ones.
type Reader struct {
	name   string
	config Config
	logger *slog.Logger

	entryPatterns   []*regexp.Regexp
	channelPatterns []*regexp.Regexp
	blockChunks     int64

	mu            sync.RWMutex
	container     arf.Container
	ownsContainer bool
	table         *entryTable
	ids           *datablock.Registry

	running   atomic.Bool
	iterating atomic.Bool
	startTime time.Time

	// Flow metrics (atomic)
	chunksEmitted atomic.Int64
	framesRead    atomic.Int64
	errorCount    atomic.Int64
	lastActivity  atomic.Value // stores time.Time

	metrics *metric.Metrics
}

// Ensure Reader implements all required interfaces
var _ component.Discoverable = (*Reader)(nil)
var _ component.LifecycleComponent = (*Reader)(nil)
var _ component.FlowReporter = (*Reader)(nil)
var _ component.Source = (*Reader)(nil)

// ReaderDeps holds runtime dependencies for the reader component.
type ReaderDeps struct {
	Name      string           // Instance name
	Config    Config           // Business logic configuration
	Container arf.Container    // Pre-opened container; Start opens Config.Path when nil
	Metrics   *metric.Registry // Runtime dependency
	Logger    *slog.Logger     // Runtime dependency
}

// NewReader creates a reader component. Invalid filter patterns or an
// unsupported clock selector fail here, before any data is read.
func NewReader(deps ReaderDeps) (*Reader, error) {
	cfg := deps.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	entryPatterns, err := compilePatterns(cfg.Entries)
	if err != nil {
		return nil, errors.WrapInvalid(err, "arf-reader", "NewReader", "entry pattern compilation")
	}
	channelPatterns, err := compilePatterns(cfg.Channels)
	if err != nil {
		return nil, errors.WrapInvalid(err, "arf-reader", "NewReader", "channel pattern compilation")
	}

	name := deps.Name
	if name == "" {
		name = "arf-reader"
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default().With("component", name)
	}

	blockChunks := int64(cfg.BlockChunks)
	if blockChunks == 0 {
		blockChunks = DefaultBlockChunks
	}

	var coreMetrics *metric.Metrics
	if deps.Metrics != nil {
		coreMetrics = deps.Metrics.CoreMetrics()
	}

	r := &Reader{
		name:            name,
		config:          cfg,
		logger:          logger,
		entryPatterns:   entryPatterns,
		channelPatterns: channelPatterns,
		blockChunks:     blockChunks,
		container:       deps.Container,
		startTime:       time.Now(),
		metrics:         coreMetrics,
	}
	r.lastActivity.Store(time.Time{})
	return r, nil
}

// Meta returns the component metadata
func (r *Reader) Meta() component.Metadata {
	return component.Metadata{
		Name:        r.name,
		Type:        string(component.TypeSource),
		Description: fmt.Sprintf("ARF container reader for %s", r.config.Path),
		Version:     "1.0.0",
	}
}

// InputPorts returns the input ports for this component
func (r *Reader) InputPorts() []component.Port {
	return []component.Port{
		{
			Name:        "container",
			Direction:   component.DirectionInput,
			Required:    true,
			Description: "ARF container file read by the traversal",
			Config: component.ContainerPort{
				Path: r.config.Path,
			},
		},
	}
}

// OutputPorts returns the output ports for this component
func (r *Reader) OutputPorts() []component.Port {
	return []component.Port{
		{
			Name:        "chunks",
			Direction:   component.DirectionOutput,
			Required:    true,
			Description: "Time-ordered chunk stream",
			Config: component.StreamPort{
				Stream: "chunks",
				Tags:   []string{"structure", "events", "samples"},
			},
		},
	}
}

// ConfigSchema returns the configuration schema for this component
func (r *Reader) ConfigSchema() component.ConfigSchema {
	return Schema
}

// Health returns the current health status of the component
func (r *Reader) Health() component.HealthStatus {
	r.mu.RLock()
	ready := r.container != nil && r.table != nil
	r.mu.RUnlock()

	return component.HealthStatus{
		Healthy:    r.running.Load() && ready,
		LastCheck:  time.Now(),
		ErrorCount: int(r.errorCount.Load()),
		Uptime:     time.Since(r.startTime),
	}
}

// DataFlow returns the current data flow metrics
func (r *Reader) DataFlow() component.FlowMetrics {
	chunks := r.chunksEmitted.Load()
	frames := r.framesRead.Load()
	errCount := r.errorCount.Load()
	lastActivity, _ := r.lastActivity.Load().(time.Time)

	var chunksPerSecond, framesPerSecond, errorRate float64
	if uptime := time.Since(r.startTime).Seconds(); uptime > 0 {
		chunksPerSecond = float64(chunks) / uptime
		framesPerSecond = float64(frames) / uptime
	}
	if chunks > 0 {
		errorRate = float64(errCount) / float64(chunks)
	}

	return component.FlowMetrics{
		ChunksPerSecond: chunksPerSecond,
		FramesPerSecond: framesPerSecond,
		ErrorRate:       errorRate,
		LastActivity:    lastActivity,
	}
}

// Initialize validates the configuration but opens nothing.
func (r *Reader) Initialize() error {
	if err := r.config.Validate(); err != nil {
		return errors.Wrap(err, "arf-reader", "Initialize", "config validation")
	}
	return nil
}

// Start opens the container (unless one was injected) and resolves the
// entry table. Idempotent while running.
func (r *Reader) Start(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running.Load() {
		return nil
	}

	if r.container == nil {
		c, err := arf.Open(r.config.Path)
		if err != nil {
			return errors.WrapInvalid(err, "arf-reader", "Start", "container open")
		}
		r.container = c
		r.ownsContainer = true
	}

	table, err := r.buildEntryTable(r.container)
	if err != nil {
		if r.ownsContainer {
			_ = r.container.Close()
			r.container = nil
			r.ownsContainer = false
		}
		return err
	}
	r.table = table

	r.running.Store(true)
	r.startTime = time.Now()
	r.logger.Info("reader started",
		"container", r.container.Path(),
		"clock", table.clock,
		"rate", table.rate,
		"entries", len(table.entries))
	if r.metrics != nil {
		r.metrics.RecordComponentStatus(r.name, int(component.StateStarted))
	}
	return nil
}

// Stop releases the container. Cancel any in-flight Iterate context
// first; Stop does not wait for a traversal to finish.
func (r *Reader) Stop(_ time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running.Load() {
		return nil
	}
	r.running.Store(false)
	r.table = nil

	var closeErr error
	if r.ownsContainer && r.container != nil {
		closeErr = r.container.Close()
		r.container = nil
		r.ownsContainer = false
	}

	if r.metrics != nil {
		r.metrics.RecordComponentStatus(r.name, int(component.StateStopped))
	}
	if closeErr != nil {
		return errors.Wrap(closeErr, "arf-reader", "Stop", "container close")
	}
	return nil
}

// IDs returns the chunk id registry of the current traversal, or nil
// before the first Iterate. A fresh Iterate replaces it.
func (r *Reader) IDs() *datablock.Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ids
}

// Iterate traverses the container in entry order, calling yield once
// per chunk. Each entry contributes a structure chunk first, then its
// datasets in name order. The traversal stops at the first error from
// yield or the context; a fresh call starts over from the first entry
// with a new cursor table and id registry.
func (r *Reader) Iterate(ctx context.Context, yield func(datablock.Chunk) error) error {
	if !r.running.Load() {
		return errors.WrapInvalid(errors.ErrNotStarted, "arf-reader", "Iterate", "lifecycle check")
	}
	if !r.iterating.CompareAndSwap(false, true) {
		return errors.WrapInvalid(fmt.Errorf("traversal already in progress"),
			"arf-reader", "Iterate", "concurrency check")
	}
	defer r.iterating.Store(false)

	r.mu.Lock()
	table := r.table
	ids := datablock.NewRegistry()
	r.ids = ids
	r.mu.Unlock()

	if table == nil {
		return errors.WrapInvalid(errors.ErrNotStarted, "arf-reader", "Iterate", "entry table check")
	}

	cursors := make(map[string]timebase.Time)
	origin := table.entries[0].key

	emit := func(chunk datablock.Chunk) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := yield(chunk); err != nil {
			return err
		}
		r.chunksEmitted.Add(1)
		r.lastActivity.Store(time.Now())
		if s, ok := chunk.Data.(datablock.Samples); ok {
			r.framesRead.Add(int64(len(s.Values)))
			if r.metrics != nil {
				r.metrics.RecordFramesRead(r.name, len(s.Values))
			}
		}
		if r.metrics != nil {
			for _, tag := range chunk.Tags {
				r.metrics.RecordChunkEmitted(r.name, string(tag))
			}
		}
		return nil
	}

	for _, ek := range table.entries {
		if err := r.emitEntry(ek, origin, table, ids, cursors, emit); err != nil {
			r.errorCount.Add(1)
			if r.metrics != nil {
				r.metrics.RecordError(r.name, errors.Classify(err).String())
			}
			return err
		}
	}
	return nil
}

// emitEntry emits one entry: its structure chunk, then every dataset
// that passes the channel filters.
func (r *Reader) emitEntry(
	ek entryKey, origin timebase.Time, table *entryTable,
	ids *datablock.Registry, cursors map[string]timebase.Time, emit emitFunc,
) error {
	name := ek.entry.Name()

	if v, ok := ek.entry.Attr(arf.AttrJillError); ok {
		msg, _ := arf.AsString(v)
		r.logger.Warn("entry flagged with a recording error", "entry", name, "flag", msg)
		if r.metrics != nil {
			r.metrics.RecordEntryProcessed(r.name, "flagged")
		}
		if !r.config.IncludeErrorEntries {
			return nil
		}
	}

	offset, err := ek.key.Sub(origin)
	if err != nil {
		r.logger.Warn("entry offset not representable; skipping", "entry", name, "error", err)
		if r.metrics != nil {
			r.metrics.RecordEntryProcessed(r.name, "skipped")
		}
		return nil
	}

	if _, err := ids.Add(name, datablock.Properties{"kind": "structure"}); err != nil {
		r.logger.Warn("duplicate stream id", "id", name, "error", err)
	}

	if err := emit(datablock.Chunk{
		ID:     name,
		Offset: offset,
		Rate:   table.rate,
		Data:   datablock.Structure{},
		Tags:   structureTags,
	}); err != nil {
		return err
	}
	if r.metrics != nil {
		r.metrics.RecordEntryProcessed(r.name, "ok")
	}

	datasets, err := ek.entry.Datasets()
	if err != nil {
		return errors.Wrap(err, "arf-reader", "Iterate", "dataset listing")
	}
	for _, ds := range datasets {
		if !matchAny(r.channelPatterns, ds.Name()) {
			continue
		}
		if err := r.emitDataset(ds, offset, table, ids, cursors, emit); err != nil {
			return err
		}
	}
	return nil
}

// emitDataset classifies one dataset and emits its chunks. Datasets
// with an incompatible timebase, a missing rate, or a conflicting id
// are skipped with a warning; the traversal continues.
func (r *Reader) emitDataset(
	ds arf.Dataset, entryOffset timebase.Time, table *entryTable,
	ids *datablock.Registry, cursors map[string]timebase.Time, emit emitFunc,
) error {
	id := ds.Name()
	dsRate := datasetRate(ds)

	offset, err := datasetOffset(entryOffset, table.rate, ds, dsRate)
	if err != nil {
		r.logger.Warn("dataset timebase incompatible with file; skipping",
			"dataset", ds.Path(), "rate", dsRate, "file_rate", table.rate, "error", err)
		r.skipDataset("timebase-mismatch")
		return nil
	}

	if units, ok := datasetUnits(ds); ok && isEventUnits(units) {
		rate := dsRate
		if units == "samples" {
			if rate <= 0 {
				rate = table.rate
			}
			if rate <= 0 {
				r.logger.Warn("event dataset in sample units with no rate; skipping",
					"dataset", ds.Path())
				r.skipDataset("no-rate")
				return nil
			}
		}
		if !ids.Has(id) {
			if _, err := ids.Add(id, datablock.Properties{
				"kind": "events", "units": units, "rate": rate,
			}); err != nil {
				r.logger.Warn("conflicting stream id; skipping dataset",
					"dataset", ds.Path(), "error", err)
				r.skipDataset("duplicate-id")
				return nil
			}
		}
		return r.emitEvents(ds, offset, rate, units, emit)
	}

	if dsRate <= 0 {
		r.logger.Warn("sampled dataset declares no rate; skipping", "dataset", ds.Path())
		r.skipDataset("no-rate")
		return nil
	}

	if prev, ok := cursors[id]; ok && offset.Cmp(prev) < 0 {
		r.logger.Warn("dataset overlaps previous data on its channel",
			"dataset", ds.Path(), "offset", offset.String(), "previous_end", prev.String())
		if r.metrics != nil {
			r.metrics.RecordOverlapDetected(r.name)
		}
	}

	if !ids.Has(id) {
		if _, err := ids.Add(id, datablock.Properties{
			"kind": "samples", "rate": dsRate,
		}); err != nil {
			r.logger.Warn("conflicting stream id; skipping dataset",
				"dataset", ds.Path(), "error", err)
			r.skipDataset("duplicate-id")
			return nil
		}
	}

	if err := r.emitSamples(ds, offset, dsRate, emit); err != nil {
		return err
	}

	// The cursor records the dataset's full extent even when the
	// window truncated the emitted chunks.
	if end, err := offset.Add(timebase.FromSamples(datasetFrames(ds), dsRate)); err == nil {
		cursors[id] = end
	}
	return nil
}

func (r *Reader) skipDataset(reason string) {
	if r.metrics != nil {
		r.metrics.RecordDatasetSkipped(r.name, reason)
	}
}

// datasetOffset places a dataset on the stream timeline: the entry
// offset plus the dataset's own offset attribute, read as samples at
// the dataset's rate when it declares one and as seconds snapped to the
// nearest file-rate sample otherwise.
func datasetOffset(entryOffset timebase.Time, fileRate int64, ds arf.Dataset, dsRate int64) (timebase.Time, error) {
	var off float64
	if v, ok := ds.Attr(arf.AttrOffset); ok {
		if f, ok := arf.AsFloat(v); ok {
			off = f
		}
	}

	switch {
	case dsRate > 0:
		return entryOffset.Add(timebase.FromSamples(int64(off), dsRate))
	case fileRate > 0:
		return entryOffset.Add(timebase.Round(off, fileRate))
	default:
		return timebase.Seconds(entryOffset.Seconds() + off), nil
	}
}

func datasetRate(ds arf.Dataset) int64 {
	v, ok := ds.Attr(arf.AttrSamplingRate)
	if !ok {
		return 0
	}
	rate, ok := rateValue(v)
	if !ok {
		return 0
	}
	return rate
}

func datasetUnits(ds arf.Dataset) (string, bool) {
	v, ok := ds.Attr(arf.AttrUnits)
	if !ok {
		return "", false
	}
	return arf.AsString(v)
}

// isEventUnits reports whether a units attribute marks a dataset as
// point-process data.
func isEventUnits(units string) bool {
	switch units {
	case "s", "samples", "ms":
		return true
	}
	return false
}

// Create creates a reader component following the factory pattern.
func Create(rawConfig json.RawMessage, deps component.Dependencies) (component.Discoverable, error) {
	cfg := DefaultConfig()
	if len(rawConfig) > 0 {
		if err := json.Unmarshal(rawConfig, &cfg); err != nil {
			return nil, errors.WrapInvalid(err, "arf-reader-factory", "create", "config parsing")
		}
	}

	reader, err := NewReader(ReaderDeps{
		Name:    "arf-reader",
		Config:  cfg,
		Metrics: deps.Metrics,
		Logger:  deps.GetLoggerWithComponent("arf-reader"),
	})
	if err != nil {
		return nil, errors.Wrap(err, "arf-reader-factory", "create", "reader construction")
	}
	return reader, nil
}

// Register registers the reader component with the given registry.
func Register(registry *component.Registry) error {
	return registry.RegisterWithConfig(component.RegistrationConfig{
		Name:        "arf-reader",
		Factory:     Create,
		Schema:      Schema,
		Type:        component.TypeSource,
		Format:      "arf",
		Description: "Time-ordered chunked reader for ARF containers",
		Version:     "1.0.0",
	})
}
