// Package stream provides the terminal stream sink component: a
// human-readable or JSON-lines dump of a chunk stream to a file or
// writer, with optional real-time pacing for playback.
package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/c360/arfstream/component"
	"github.com/c360/arfstream/datablock"
	"github.com/c360/arfstream/errors"
	"github.com/c360/arfstream/metric"
)

// Rendering formats for chunk output.
const (
	// FormatText renders one tab-separated summary line per chunk with
	// a truncated payload preview.
	FormatText = "text"

	// FormatJSONL renders one JSON object per chunk including the full
	// payload.
	FormatJSONL = "jsonl"
)

// DefaultHeadValues is how many leading payload values a text line
// shows when the configuration does not say otherwise.
const DefaultHeadValues = 8

// Pacing counts stream time in millisecond tokens. The burst bounds a
// single wait, so silent gaps longer than a second are compressed
// rather than replayed.
const (
	paceScale = 1000
	paceBurst = 1000
)

const writeBufferSize = 32 * 1024

// Schema is the configuration schema for the stream sink component,
// generated from Config struct tags.
var Schema = component.GenerateConfigSchema(reflect.TypeOf(Config{}))

// Config holds configuration for the stream sink component.
type Config struct {
	// Path locates the output file. Empty or "-" writes to standard
	// output.
	Path string `json:"path,omitempty" schema:"type:string,description:Output file; empty or - writes to standard output,category:basic"`

	// Format selects the chunk rendering.
	Format string `json:"format,omitempty" schema:"type:enum,enum:text|jsonl,description:Chunk rendering format,default:text,category:basic"`

	// Append keeps an existing output file instead of truncating it.
	Append bool `json:"append,omitempty" schema:"type:bool,description:Append to an existing file instead of truncating,category:advanced"`

	// Pace throttles writing to a multiple of the recording's own
	// speed: 1 replays in real time, 2 at double speed. Zero writes as
	// fast as possible.
	Pace float64 `json:"pace,omitempty" schema:"type:float,description:Playback speed multiple; zero writes as fast as possible,category:basic"`

	// HeadValues is how many leading payload values a text line shows.
	HeadValues int `json:"head_values,omitempty" schema:"type:int,description:Leading payload values shown per text line,default:8,min:0,category:advanced"`
}

// DefaultConfig returns the sink defaults: text rendering to standard
// output, no pacing.
func DefaultConfig() Config {
	return Config{
		Format:     FormatText,
		HeadValues: DefaultHeadValues,
	}
}

// Validate implements component.Validatable.
func (c *Config) Validate() error {
	switch c.Format {
	case "", FormatText, FormatJSONL:
	default:
		return errors.WrapInvalid(fmt.Errorf("unsupported format %q", c.Format),
			"SinkConfig", "Validate", "format check")
	}

	if c.Pace < 0 {
		return errors.WrapInvalid(fmt.Errorf("pace %g is negative", c.Pace),
			"SinkConfig", "Validate", "pace check")
	}

	if c.HeadValues < 0 {
		return errors.WrapInvalid(fmt.Errorf("head_values %d is negative", c.HeadValues),
			"SinkConfig", "Validate", "preview length check")
	}

	return nil
}

// Sink renders a chunk stream as lines on a writer. Construct with
// NewSink, Start before sending, and Close (or Stop) to flush and
// release the destination.
type Sink struct {
	name   string
	config Config
	logger *slog.Logger

	mu       sync.Mutex
	writer   io.Writer // injected destination, kept across restarts
	file     *os.File  // owned file handle, nil for injected or stdout
	buf      *bufio.Writer
	shutdown chan struct{}

	limiter *rate.Limiter
	paceMu  sync.Mutex
	paced   float64 // stream seconds already paced

	running   atomic.Bool
	startTime time.Time

	// Flow metrics (atomic)
	chunksWritten atomic.Int64
	framesWritten atomic.Int64
	bytesWritten  atomic.Int64
	errorCount    atomic.Int64
	lastActivity  atomic.Value // stores time.Time
	lastError     atomic.Value // stores string

	metrics *metric.Metrics
}

// Ensure Sink implements all required interfaces
var _ component.Discoverable = (*Sink)(nil)
var _ component.LifecycleComponent = (*Sink)(nil)
var _ component.FlowReporter = (*Sink)(nil)
var _ component.Sink = (*Sink)(nil)
var _ component.Thrower = (*Sink)(nil)

// SinkDeps holds runtime dependencies for the stream sink component.
type SinkDeps struct {
	Name    string           // Instance name
	Config  Config           // Business logic configuration
	Writer  io.Writer        // Pre-wired destination; Start opens Config.Path when nil
	Metrics *metric.Registry // Runtime dependency
	Logger  *slog.Logger     // Runtime dependency
}

// NewSink creates a stream sink component. An unsupported format or a
// negative pace fails here, before anything is opened.
func NewSink(deps SinkDeps) (*Sink, error) {
	cfg := deps.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Format == "" {
		cfg.Format = FormatText
	}

	name := deps.Name
	if name == "" {
		name = "stream-sink"
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default().With("component", name)
	}

	s := &Sink{
		name:   name,
		config: cfg,
		logger: logger,
		writer: deps.Writer,
	}
	if deps.Metrics != nil {
		s.metrics = deps.Metrics.CoreMetrics()
	}
	s.lastActivity.Store(time.Time{})
	return s, nil
}

// Meta returns the component metadata
func (s *Sink) Meta() component.Metadata {
	return component.Metadata{
		Name:        s.name,
		Type:        string(component.TypeSink),
		Description: fmt.Sprintf("Chunk stream dump in %s format", s.config.Format),
		Version:     "1.0.0",
	}
}

// InputPorts returns the chunk stream the sink consumes
func (s *Sink) InputPorts() []component.Port {
	return []component.Port{
		{
			Name:        "chunks",
			Direction:   component.DirectionInput,
			Required:    true,
			Description: "Chunk stream to render",
			Config:      component.StreamPort{Stream: "chunks"},
		},
	}
}

// OutputPorts returns the file destination the sink owns
func (s *Sink) OutputPorts() []component.Port {
	return []component.Port{
		{
			Name:        "file",
			Direction:   component.DirectionOutput,
			Required:    false,
			Description: "Rendered chunk destination",
			Config:      component.FilePort{Path: s.config.Path},
		},
	}
}

// ConfigSchema returns the configuration schema
func (s *Sink) ConfigSchema() component.ConfigSchema {
	return Schema
}

// Health returns the current health status of the component
func (s *Sink) Health() component.HealthStatus {
	s.mu.Lock()
	ready := s.buf != nil
	s.mu.Unlock()

	lastError, _ := s.lastError.Load().(string)
	return component.HealthStatus{
		Healthy:    s.running.Load() && ready,
		LastCheck:  time.Now(),
		ErrorCount: int(s.errorCount.Load()),
		LastError:  lastError,
		Uptime:     time.Since(s.startTime),
	}
}

// DataFlow returns the current data flow metrics
func (s *Sink) DataFlow() component.FlowMetrics {
	chunks := s.chunksWritten.Load()
	frames := s.framesWritten.Load()
	errCount := s.errorCount.Load()
	lastActivity, _ := s.lastActivity.Load().(time.Time)

	var chunksPerSecond, framesPerSecond, errorRate float64
	if uptime := time.Since(s.startTime).Seconds(); uptime > 0 {
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

// Initialize validates the configuration and creates the output
// directory when the destination is a file.
func (s *Sink) Initialize() error {
	if err := s.config.Validate(); err != nil {
		return errors.Wrap(err, s.name, "Initialize", "config validation")
	}

	if s.writer == nil && !writesStdout(s.config.Path) {
		if err := os.MkdirAll(filepath.Dir(s.config.Path), 0o755); err != nil {
			return errors.WrapFatal(err, s.name, "Initialize", "output directory creation")
		}
	}
	return nil
}

// Start opens the destination (unless a writer was injected) and arms
// pacing. Idempotent while running.
func (s *Sink) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running.Load() {
		return nil
	}

	dst := s.writer
	if dst == nil {
		if writesStdout(s.config.Path) {
			dst = os.Stdout
		} else {
			flags := os.O_CREATE | os.O_WRONLY
			if s.config.Append {
				flags |= os.O_APPEND
			} else {
				flags |= os.O_TRUNC
			}
			f, err := os.OpenFile(s.config.Path, flags, 0o644)
			if err != nil {
				return errors.WrapFatal(err, s.name, "Start", "output file open")
			}
			s.file = f
			dst = f
		}
	}
	s.buf = bufio.NewWriterSize(dst, writeBufferSize)
	s.shutdown = make(chan struct{})

	if s.config.Pace > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(s.config.Pace*paceScale), paceBurst)
		// Drain the initial burst so pacing applies from the first chunk.
		s.limiter.ReserveN(time.Now(), paceBurst)
		s.paceMu.Lock()
		s.paced = 0
		s.paceMu.Unlock()
	}

	s.running.Store(true)
	s.startTime = time.Now()
	s.logger.Info("stream sink started",
		"destination", destinationName(s.config.Path),
		"format", s.config.Format,
		"pace", s.config.Pace)
	if s.metrics != nil {
		s.metrics.RecordComponentStatus(s.name, int(component.StateStarted))
	}
	return nil
}

// Stop flushes buffered output and releases an owned file. Injected
// writers and standard output stay open.
func (s *Sink) Stop(_ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running.Load() {
		return nil
	}
	s.running.Store(false)
	close(s.shutdown)

	var firstErr error
	if s.buf != nil {
		if err := s.buf.Flush(); err != nil {
			firstErr = errors.Wrap(err, s.name, "Stop", "buffer flush")
		}
		s.buf = nil
	}
	if s.file != nil {
		if err := s.file.Close(); err != nil && firstErr == nil {
			firstErr = errors.Wrap(err, s.name, "Stop", "output file close")
		}
		s.file = nil
	}

	if s.metrics != nil {
		s.metrics.RecordComponentStatus(s.name, int(component.StateStopped))
	}
	return firstErr
}

// Close implements component.Sink by stopping the component.
func (s *Sink) Close() error {
	return s.Stop(0)
}

// Send renders one chunk to the destination. Pacing, when configured,
// delays the write until the chunk's stream time has elapsed at the
// configured playback speed.
func (s *Sink) Send(chunk datablock.Chunk) error {
	if !s.running.Load() {
		return errors.WrapInvalid(errors.ErrClosed, s.name, "Send", "lifecycle check")
	}

	if err := s.pace(chunk.Offset.Seconds()); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.buf == nil {
		return errors.WrapInvalid(errors.ErrClosed, s.name, "Send", "lifecycle check")
	}

	var n int
	var err error
	switch s.config.Format {
	case FormatJSONL:
		n, err = s.writeJSON(chunk)
	default:
		n, err = s.writeText(chunk)
	}
	if err != nil {
		s.recordError(err)
		return errors.Wrap(err, s.name, "Send", "chunk write")
	}

	s.chunksWritten.Add(1)
	s.bytesWritten.Add(int64(n))
	if data, ok := chunk.Data.(datablock.Samples); ok {
		s.framesWritten.Add(int64(data.Len()))
	}
	s.lastActivity.Store(time.Now())
	if s.metrics != nil {
		for _, tag := range chunk.Tags {
			s.metrics.RecordChunkWritten(s.name, string(tag))
		}
		s.metrics.RecordBytesWritten(s.name, n)
	}
	return nil
}

// Throw records an upstream failure so it shows up in the sink's
// health, then leaves the destination open for any remaining chunks.
func (s *Sink) Throw(err error) {
	if err == nil {
		return
	}
	s.recordError(err)
	s.logger.Error("upstream failure", "error", err)
}

func (s *Sink) recordError(err error) {
	s.errorCount.Add(1)
	s.lastError.Store(err.Error())
	if s.metrics != nil {
		s.metrics.RecordError(s.name, errors.Classify(err).String())
	}
}

// pace blocks until offsetSec is reachable at the configured playback
// speed. Stream time that pacing has already accounted for never waits
// again, so chunks sharing an offset are written back to back.
func (s *Sink) pace(offsetSec float64) error {
	if s.limiter == nil {
		return nil
	}

	s.paceMu.Lock()
	elapsed := int(math.Round((offsetSec - s.paced) * paceScale))
	if elapsed > 0 {
		s.paced = offsetSec
	}
	s.paceMu.Unlock()
	if elapsed <= 0 {
		return nil
	}
	if elapsed > paceBurst {
		elapsed = paceBurst
	}

	reservation := s.limiter.ReserveN(time.Now(), elapsed)
	if !reservation.OK() {
		return nil
	}
	delay := reservation.Delay()
	if delay == 0 {
		return nil
	}

	s.mu.Lock()
	shutdown := s.shutdown
	s.mu.Unlock()

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-shutdown:
		reservation.Cancel()
		return errors.WrapInvalid(errors.ErrClosed, s.name, "Send", "pacing interrupted by shutdown")
	}
}

// writeText renders one tab-separated line: offset, id, tags, then
// payload fields with a truncated value preview.
func (s *Sink) writeText(chunk datablock.Chunk) (int, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "%.6f\t%s\t%s", chunk.Offset.Seconds(), chunk.ID, chunk.Tags)

	switch data := chunk.Data.(type) {
	case datablock.Samples:
		fmt.Fprintf(&b, "\trate=%d\tframes=%d", chunk.Rate, data.Len())
		writePreview(&b, "values", data.Values, s.config.HeadValues)
	case datablock.Events:
		if chunk.Rate > 0 {
			fmt.Fprintf(&b, "\trate=%d", chunk.Rate)
		}
		fmt.Fprintf(&b, "\tn=%d", data.Len())
		writePreview(&b, "times", data.Times, s.config.HeadValues)
	}
	b.WriteByte('\n')

	return s.buf.WriteString(b.String())
}

func writePreview(b *strings.Builder, label string, values []float64, head int) {
	fmt.Fprintf(b, "\t%s=[", label)
	shown := len(values)
	if shown > head {
		shown = head
	}
	for i := 0; i < shown; i++ {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(b, "%g", values[i])
	}
	if shown < len(values) {
		if shown > 0 {
			b.WriteByte(' ')
		}
		b.WriteString("...")
	}
	b.WriteByte(']')
}

// chunkRecord is the JSON-lines rendering of a chunk. Offsets are
// decimal seconds; payload values are carried in full.
type chunkRecord struct {
	Offset float64   `json:"offset"`
	ID     string    `json:"id"`
	Tags   []string  `json:"tags"`
	Rate   int64     `json:"rate,omitempty"`
	Values []float64 `json:"values,omitempty"`
	Times  []float64 `json:"times,omitempty"`
}

func (s *Sink) writeJSON(chunk datablock.Chunk) (int, error) {
	record := chunkRecord{
		Offset: chunk.Offset.Seconds(),
		ID:     chunk.ID,
		Tags:   chunk.Tags.Strings(),
		Rate:   chunk.Rate,
	}
	switch data := chunk.Data.(type) {
	case datablock.Samples:
		record.Values = data.Values
	case datablock.Events:
		record.Times = data.Times
	}

	line, err := json.Marshal(record)
	if err != nil {
		return 0, err
	}
	line = append(line, '\n')
	return s.buf.Write(line)
}

func writesStdout(path string) bool {
	return path == "" || path == "-"
}

func destinationName(path string) string {
	if writesStdout(path) {
		return "stdout"
	}
	return path
}

// Create is the factory function for stream sink components.
func Create(rawConfig json.RawMessage, deps component.Dependencies) (component.Discoverable, error) {
	config := DefaultConfig()
	if len(rawConfig) > 0 {
		if err := json.Unmarshal(rawConfig, &config); err != nil {
			return nil, errors.WrapInvalid(err, "stream-sink-factory", "Create", "config parsing")
		}
	}

	sink, err := NewSink(SinkDeps{
		Name:    "stream-sink",
		Config:  config,
		Metrics: deps.Metrics,
		Logger:  deps.GetLoggerWithComponent("stream-sink"),
	})
	if err != nil {
		return nil, errors.Wrap(err, "stream-sink-factory", "Create", "sink construction")
	}
	return sink, nil
}

// Register registers the stream sink component with the given registry.
func Register(registry *component.Registry) error {
	return registry.RegisterWithConfig(component.RegistrationConfig{
		Name:        "stream-sink",
		Factory:     Create,
		Schema:      Schema,
		Type:        component.TypeSink,
		Format:      "text",
		Description: "Readable chunk stream dump with optional real-time pacing",
		Version:     "1.0.0",
	})
}
