// Package arfstream turns ARF (Advanced Recording Format) containers
// into time-ordered chunk streams and fans them out through composable
// toolchains.
//
// # Philosophy: Recordings Are Streams
//
// An ARF container is an HDF5 file holding the entries of one
// recording session: named groups carrying sampled channels, event
// channels, and the attributes that place them in time. Most analysis
// code treats such a file as a random-access archive. arfstream treats
// it as a stream that already happened: entries are ordered on a
// recording clock, datasets are cut into bounded chunks, and the
// chunks flow through the same source/dispatch/sink shape a live
// acquisition pipeline would use.
//
// That framing buys three things:
//
//   - Bounded memory: a traversal holds one block of one channel at a
//     time, so hour-long multichannel sessions stream through a few
//     hundred kilobytes.
//   - Pipeline reuse: a stage written against the chunk stream works
//     identically whether the chunks come from a file today or a
//     socket tomorrow.
//   - Honest time: every chunk carries its offset on the recording
//     timeline as a rational number, so downstream stages never
//     re-derive timing from array indices.
//
// # Architecture
//
// A running toolchain is a straight line with an optional fan-out in
// the middle:
//
//	┌─────────────────────────────────────┐
//	│            Toolchain                │  Assembly, lifecycle,
//	│   (definitions, chain runner)       │  teardown ordering
//	└─────────────────────────────────────┘
//	           ↓ orchestrates
//	┌──────────┐   ┌──────────┐   ┌──────────┐
//	│  Reader  │ → │ Dispatch │ → │  Sinks   │
//	│ (source) │   │(optional)│   │(targets) │
//	└──────────┘   └──────────┘   └──────────┘
//	           ↓ built on
//	┌─────────────────────────────────────┐
//	│        Chunk Stream                 │  datablock payloads on
//	│   (datablock over timebase)         │  rational timestamps
//	└─────────────────────────────────────┘
//	           ↓ read through
//	┌─────────────────────────────────────┐
//	│       Container Adapter             │  arf over HDF5
//	└─────────────────────────────────────┘
//
// The reader owns traversal order; everything downstream is a Sink
// that consumes chunks in the order the reader yields them.
//
// # Data Model
//
// The unit of flow is the chunk: an identifier naming the channel or
// entry it came from, an offset on the stream timeline, a nominal
// sampling rate, a payload, and tags describing the payload kind.
// Payloads are closed over three cases:
//
//   - Structure: an entry boundary with its attributes
//   - Samples: a block of regularly sampled values
//   - Events: a list of event times
//
// Offsets are rational times (ticks over a base), not floats, so
// sample-aligned arithmetic stays exact at any rate. See timebase.
//
// # Entry Ordering and Clocks
//
// Entries in a container are unordered HDF5 groups; the recording
// clock puts them on a single timeline. Three clocks are supported,
// resolved per container:
//
//   - timestamp: wall-clock entry attributes (float seconds)
//   - sample-count: cumulative frame counts over the nominal rate
//   - frame-counter: wrap-corrected 32-bit JACK frame counter
//
// The default selector inspects the container's creator attributes
// and picks the clock the recording program actually maintained.
// Entries missing the selected clock's key are skipped with a
// warning, and the earliest entry anchors offset zero.
//
// # Fan-Out Pattern
//
// A toolchain delivers every chunk to every sink whose filter accepts
// it. Filters are predicates over chunk fields, registered by name or
// compiled from expressions:
//
//	            ┌──────────┐
//	            │  Reader  │
//	            └────┬─────┘
//	                 │ chunks
//	     ┌───────────┼───────────┐
//	     ↓           ↓           ↓
//	┌─────────┐ ┌─────────┐ ┌──────────┐
//	│ text    │ │ jsonl   │ │ paced    │
//	│ dump    │ │ export  │ │ replay   │
//	└─────────┘ └─────────┘ └──────────┘
//	 all chunks  "samples"    rate > 0
//	             in tags
//
// With a dispatch policy, chunks route through one worker per chunk
// id before reaching the shared targets. Async workers give each
// channel its own goroutine and bounded queue, which keeps a slow
// channel from stalling the rest while the traversal itself stays
// single-threaded.
//
// # Framework Packages
//
// Stream model:
//   - timebase: rational stream time
//   - datablock: chunks, payloads, tags
//   - filters: chunk predicates and expression compilation
//
// Container access:
//   - arf: container adapter interfaces over HDF5
//
// Stages:
//   - reader: time-ordered container traversal (source)
//   - dispatch: per-key fan-out workers
//   - sink/stream: text and JSON lines terminal sink with pacing
//
// Composition:
//   - component: discovery, lifecycle, ports, registry, targets
//   - componentregistry: registration of the built-in factories
//   - toolchain: YAML definitions, assembly, chain runner
//
// Infrastructure:
//   - errors: structured error handling with severity classes
//   - metric: Prometheus metrics and the metrics server
//   - testutil: in-memory containers, log capture, fixtures
//
// # Usage Patterns
//
// Running a toolchain programmatically:
//
//	registry := component.NewRegistry()
//	componentregistry.Register(registry)
//
//	assembler, _ := toolchain.NewAssembler(toolchain.AssemblerDeps{
//	    Registry: registry,
//	    Metrics:  metric.NewRegistry(),
//	    Logger:   logger,
//	})
//
//	doc := toolchain.Builtin()
//	def, _ := doc.Get("view-raw")
//	def = def.WithSourceConfig(map[string]any{"path": "session.arf"})
//
//	chain, _ := assembler.Assemble("view", def)
//	defer chain.Release()
//	err := chain.Run(ctx)
//
// Driving the reader directly:
//
//	r, _ := reader.NewReader(reader.ReaderDeps{
//	    Config: reader.Config{Path: "session.arf", Channels: []string{"pcm_.*"}},
//	    Logger: logger,
//	})
//	r.Initialize()
//	r.Start(ctx)
//	defer r.Stop(5 * time.Second)
//
//	err := r.Iterate(ctx, func(chunk datablock.Chunk) error {
//	    // one chunk at a time, in stream order
//	    return nil
//	})
//
// Custom terminal stage:
//
//	func RegisterSpikeDetector(registry *component.Registry) error {
//	    return registry.RegisterWithConfig(component.RegistrationConfig{
//	        Name:        "spike-detector",
//	        Factory:     CreateSpikeDetector,
//	        Schema:      spikeSchema,
//	        Type:        component.TypeSink,
//	        Format:      "events",
//	        Description: "Threshold spike detection on sampled channels",
//	        Version:     "1.0.0",
//	    })
//	}
//
// # Design Principles
//
// Pull, not push:
//   - The consumer's Iterate call drives all reading
//   - No internal buffering beyond the current block
//   - Cancellation is a context, not a side channel
//
// Single-caller streams:
//   - One goroutine drives Send and Close on any stage
//   - Parallelism lives inside async dispatch workers
//   - Sinks serialize their own writes
//
// Explicit dependencies:
//   - Constructors take Deps structs, no globals
//   - Components declare ports; the registry enforces exclusive
//     resource claims at assembly time
//   - Tests inject in-memory containers and log recorders
//
// # Binary
//
// The arfstream command runs toolchains from the shell:
//
//	# Dump a container as readable text
//	arfstream --path=session.arf
//
//	# Export sampled channels as JSON lines
//	arfstream --toolchain=export-jsonl --path=session.arf --channels="pcm_.*"
//
//	# Run a custom document with live metrics
//	arfstream --toolchains=chains.yaml --toolchain=replay --metrics-port=9090
//
// # Version
//
// Current: v0.1.0
//
// The chunk stream contract (datablock, timebase, component.Sink) is
// stable; sink formats and toolchain document fields may still grow.
package arfstream
