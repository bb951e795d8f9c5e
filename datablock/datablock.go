package datablock

import (
	"slices"
	"strings"

	"github.com/c360/arfstream/timebase"
)

// Tag classifies a chunk for filtering.
type Tag string

// The classification tags emitted by the stream reader.
const (
	TagStructure Tag = "structure"
	TagEvents    Tag = "events"
	TagSamples   Tag = "samples"
)

// TagSet is a sorted set of tags. Construct with NewTagSet.
type TagSet []Tag

// NewTagSet returns a sorted, de-duplicated tag set.
func NewTagSet(tags ...Tag) TagSet {
	set := make(TagSet, 0, len(tags))
	for _, tag := range tags {
		if !slices.Contains(set, tag) {
			set = append(set, tag)
		}
	}
	slices.Sort(set)
	return set
}

// Has reports whether the set contains tag.
func (s TagSet) Has(tag Tag) bool {
	return slices.Contains(s, tag)
}

// HasAll reports whether the set contains every given tag.
func (s TagSet) HasAll(tags ...Tag) bool {
	for _, tag := range tags {
		if !s.Has(tag) {
			return false
		}
	}
	return true
}

// HasAny reports whether the set contains at least one of the given tags.
func (s TagSet) HasAny(tags ...Tag) bool {
	for _, tag := range tags {
		if s.Has(tag) {
			return true
		}
	}
	return false
}

// Strings returns the tags as plain strings, in set order.
func (s TagSet) Strings() []string {
	parts := make([]string, len(s))
	for i, tag := range s {
		parts[i] = string(tag)
	}
	return parts
}

// String returns the tags joined with commas.
func (s TagSet) String() string {
	return strings.Join(s.Strings(), ",")
}

// Payload is the closed set of chunk payload variants. Consumers type-switch
// on the concrete type; no other implementations exist.
type Payload interface {
	// Len returns the number of elements carried by the payload.
	Len() int

	sealed()
}

// Structure is the zero-length payload of an entry marker chunk.
type Structure struct{}

// Len returns 0.
func (Structure) Len() int { return 0 }

func (Structure) sealed() {}

// Events carries point-process timestamps in the source dataset's own units:
// sample counts when the owning chunk has a rate, seconds otherwise.
type Events struct {
	Times []float64
}

// Len returns the number of event times.
func (e Events) Len() int { return len(e.Times) }

func (Events) sealed() {}

// Samples carries a block of regularly sampled values at the owning chunk's
// rate.
type Samples struct {
	Values []float64
}

// Len returns the number of samples.
func (s Samples) Len() int { return len(s.Values) }

func (Samples) sealed() {}

// Chunk is the atomic unit of streamed data handed from the reader to
// consumers.
type Chunk struct {
	// ID names the source of the chunk: the entry name for structure
	// chunks, the channel (dataset) name otherwise.
	ID string

	// Offset is the chunk's position on the stream timeline, relative to
	// the first entry of the traversal.
	Offset timebase.Time

	// Rate is the sampling rate in samples/sec, or 0 when the source has
	// no discrete clock.
	Rate int64

	// Data is the typed payload.
	Data Payload

	// Tags classify the chunk for filtering.
	Tags TagSet
}
