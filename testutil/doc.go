// Package testutil provides shared fixtures for arfstream package tests.
//
// # Overview
//
// The package contains an in-memory container implementation, a
// chunk-recording sink, signal generators, and a capturing slog
// handler. Everything here is deliberately dumb: fixtures hold the
// data tests put in them and hand it back through the same interfaces
// the real implementations satisfy.
//
// # Core Components
//
// Container - in-memory arf.Container built fluently:
//   - Entries, datasets, and attributes in any combination
//   - Attribute values keep their stored Go types, matching what the
//     HDF5 adapter decodes
//   - Error injection on Entries, Datasets, and dataset reads
//
// RecorderSink - component.Sink that records chunks:
//   - Thread-safe chunk, throw, and close tracking
//   - SendFunc/CloseFunc hooks for failure injection
//
// LogRecorder - slog.Handler capturing structured records:
//   - Assert on levels, messages, and attribute values
//   - Count occurrences of a diagnostic
//
// # Why an in-memory container
//
// The HDF5 write API cannot attach attributes to groups, so ordering
// clocks (timestamp, sample_count, jack_frame) cannot be expressed in
// generated test files. The in-memory Container carries arbitrary
// entry attributes, which is what resolver and reader tests need.
// Adapter-level behavior against real files is covered in the arf
// package's own tests.
//
// # Usage
//
//	c := testutil.NewContainer("mem.arf")
//	c.SetAttr("sampling_rate", int64(20000))
//	c.AddEntry("entry_00001").
//	    SetAttr("timestamp", []int64{1000, 0}).
//	    AddSamples("pcm", 20000, testutil.Ramp(4096))
//
//	sink := testutil.NewRecorderSink()
//	logs := testutil.NewLogRecorder()
//	// ... run a traversal, then:
//	//   sink.Chunks(), sink.IDs()
//	//   logs.Count(slog.LevelWarn, "overlaps")
//
// All fixture types are safe for concurrent use, so dispatcher and
// lifecycle tests can share them across goroutines.
package testutil
