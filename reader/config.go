package reader

import (
	"fmt"
	"regexp"

	"github.com/c360/arfstream/errors"
)

// Clock source selectors for entry ordering.
const (
	// ClockAuto picks the clock from the program that created the
	// container.
	ClockAuto = "auto"

	// ClockTimestamp orders entries by their wall-clock timestamp
	// attribute. Keys are float seconds.
	ClockTimestamp = "timestamp"

	// ClockSampleCount orders entries by the sample_count attribute
	// over the file-level nominal rate.
	ClockSampleCount = "sample-count"

	// ClockFrameCounter orders entries by the wrap-corrected JACK
	// frame counter, using jack_usec to fix wall-clock order.
	ClockFrameCounter = "frame-counter"
)

// DefaultBlockChunks is how many native storage chunks one emitted
// block spans when the configuration does not say otherwise.
const DefaultBlockChunks = 64

// Config holds configuration for the ARF reader component.
type Config struct {
	// Path locates the container file to read.
	Path string `json:"path" schema:"type:string,description:Container file to read,required,category:basic"`

	// Entries filters entry names. A name is kept when it matches any
	// pattern; an empty list keeps everything.
	Entries []string `json:"entries,omitempty" schema:"type:array,description:Entry name patterns to include,category:basic"`

	// Channels filters dataset names within each entry, with the same
	// any-match semantics as Entries.
	Channels []string `json:"channels,omitempty" schema:"type:array,description:Channel name patterns to include,category:basic"`

	// Start and Stop bound the read window in seconds on the stream
	// timeline. Zero means unbounded.
	Start float64 `json:"start,omitempty" schema:"type:float,description:Window start in seconds,category:basic"`
	Stop  float64 `json:"stop,omitempty" schema:"type:float,description:Window stop in seconds,category:basic"`

	// Clock selects the entry ordering clock.
	Clock string `json:"clock,omitempty" schema:"type:enum,enum:auto|timestamp|sample-count|frame-counter,description:Entry ordering clock,default:auto,category:advanced"`

	// IncludeErrorEntries keeps entries flagged with a jill_error
	// attribute instead of skipping them.
	IncludeErrorEntries bool `json:"include_error_entries,omitempty" schema:"type:bool,description:Keep entries flagged with recording errors,category:advanced"`

	// BlockChunks is how many native storage chunks each emitted
	// samples block spans. Zero means DefaultBlockChunks.
	BlockChunks int `json:"block_chunks,omitempty" schema:"type:int,description:Native chunks per emitted block,default:64,min:1,category:advanced"`
}

// DefaultConfig returns the reader defaults: automatic clock selection,
// no filters, an unbounded window.
func DefaultConfig() Config {
	return Config{
		Clock:       ClockAuto,
		BlockChunks: DefaultBlockChunks,
	}
}

// Validate implements component.Validatable. Filter patterns and the
// clock selector are checked here so a bad configuration fails before
// any data is read.
func (c *Config) Validate() error {
	if c.Path == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig,
			"ReaderConfig", "Validate", "container path check")
	}

	switch c.Clock {
	case "", ClockAuto, ClockTimestamp, ClockSampleCount, ClockFrameCounter:
	default:
		return errors.WrapInvalid(fmt.Errorf("unsupported clock source %q", c.Clock),
			"ReaderConfig", "Validate", "clock selector check")
	}

	if c.BlockChunks < 0 {
		return errors.WrapInvalid(fmt.Errorf("block_chunks %d is negative", c.BlockChunks),
			"ReaderConfig", "Validate", "block size check")
	}

	if _, err := compilePatterns(c.Entries); err != nil {
		return errors.WrapInvalid(err, "ReaderConfig", "Validate", "entry pattern check")
	}
	if _, err := compilePatterns(c.Channels); err != nil {
		return errors.WrapInvalid(err, "ReaderConfig", "Validate", "channel pattern check")
	}

	return nil
}

func compilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

// matchAny reports whether name matches at least one pattern, searching
// anywhere in the name. An empty pattern list matches everything.
func matchAny(patterns []*regexp.Regexp, name string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, re := range patterns {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}
