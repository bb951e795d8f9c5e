// Package arf reads ARF (Advanced Recording Format) containers: HDF5
// files whose top-level groups are recording entries and whose entry
// members are channel datasets.
//
// Containers are exposed through small interfaces so the same traversal
// code can walk a real HDF5 file or an in-memory fixture. Attribute
// values keep the dynamic types HDF5 stores them with; the As* helpers
// in this package coerce them to Go scalars.
package arf

// Attribute names defined by the ARF specification and by the programs
// that write ARF files.
const (
	// AttrTimestamp is the entry wall-clock time, stored as a
	// [seconds, microseconds] integer pair.
	AttrTimestamp = "timestamp"

	// AttrSampleCount is the entry onset in samples since the start
	// of recording. Written by arfxplog.
	AttrSampleCount = "sample_count"

	// AttrJackFrame is the entry onset as a JACK frame counter, a
	// uint32 that wraps around. Written by JILL.
	AttrJackFrame = "jack_frame"

	// AttrJackUsec is the JACK microsecond clock at entry onset, a
	// uint64 that does not wrap on any practical timescale.
	AttrJackUsec = "jack_usec"

	// AttrJillError marks an entry that JILL recorded an error (such
	// as an xrun) for. The value is the error message.
	AttrJillError = "jill_error"

	// AttrProgram names the program that created the file.
	AttrProgram = "program"

	// AttrSamplingRate is the sampling rate of a dataset in Hz, or of
	// the whole file when set at the top level.
	AttrSamplingRate = "sampling_rate"

	// AttrOffset is the storage offset of a dataset relative to its
	// entry: samples when the dataset declares a sampling rate,
	// seconds otherwise.
	AttrOffset = "offset"

	// AttrUnits declares the units of an event dataset's values.
	AttrUnits = "units"
)

// Creator names for programs whose files need special clock handling.
const (
	CreatorArfxplog = "arfxplog"
	CreatorJill     = "jill"
)

// JillLogMember is the top-level dataset JILL appends its process log
// to. Its presence identifies a file as JILL-created.
const JillLogMember = "jill_log"

// DefaultChunkFrames is the traversal granularity used for datasets
// whose container does not report native chunking.
const DefaultChunkFrames = 1024

// Container is an open ARF file.
type Container interface {
	// Path returns the location of the container, for diagnostics.
	Path() string

	// Attr returns a top-level attribute value, or false when the
	// attribute is absent or unreadable.
	Attr(name string) (any, bool)

	// HasMember reports whether a top-level object with the given
	// name exists, whatever its kind.
	HasMember(name string) bool

	// Entries returns the top-level groups in iteration order.
	// Top-level datasets are not entries and are skipped.
	Entries() ([]Entry, error)

	// Close releases the container. Entries and datasets obtained
	// from it must not be used afterwards.
	Close() error
}

// Entry is one recording period: a top-level group holding channel
// datasets that share a common start time.
type Entry interface {
	// Name returns the entry name without any path prefix.
	Name() string

	// Attr returns an entry attribute value, or false when absent.
	Attr(name string) (any, bool)

	// Datasets returns the entry's channel datasets in name order.
	// Members that are not datasets are skipped.
	Datasets() ([]Dataset, error)
}

// Dataset is a single channel within an entry.
type Dataset interface {
	// Name returns the channel name without any path prefix.
	Name() string

	// Path returns the full path of the dataset within the
	// container, for diagnostics.
	Path() string

	// Attr returns a dataset attribute value, or false when absent.
	Attr(name string) (any, bool)

	// Dims returns the dataset extent along each axis. The leading
	// axis counts frames.
	Dims() []int64

	// ChunkFrames returns the native storage granularity in frames,
	// or 0 when the container does not report one.
	ChunkFrames() int64

	// ReadEvents reads the full dataset as a flat series of event
	// times in the dataset's declared units.
	ReadEvents() ([]float64, error)

	// ReadSamples reads frames in [start, stop), clamped to the
	// dataset extent.
	ReadSamples(start, stop int64) ([]float64, error)
}

// Creator identifies the program that produced the container:
// CreatorArfxplog when the top-level program attribute matches,
// CreatorJill when the container holds a jill_log dataset, and ""
// when the source cannot be determined.
func Creator(c Container) string {
	if v, ok := c.Attr(AttrProgram); ok {
		if s, ok := AsString(v); ok && s == CreatorArfxplog {
			return CreatorArfxplog
		}
	}
	if c.HasMember(JillLogMember) {
		return CreatorJill
	}
	return ""
}
