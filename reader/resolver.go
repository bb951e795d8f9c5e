package reader

import (
	"fmt"
	"slices"

	"github.com/c360/arfstream/arf"
	"github.com/c360/arfstream/errors"
	"github.com/c360/arfstream/timebase"
)

// entryKey places one entry on the selected clock. samples holds the
// raw counter value for sample-based clocks; wall holds the entry's
// wall-clock timestamp when it carries one, whatever the clock.
type entryKey struct {
	entry   arf.Entry
	key     timebase.Time
	samples int64
	wall    float64
	hasWall bool
}

// entryTable is the resolved, ordered view of a container's entries:
// the concrete clock after auto-selection, the nominal rate for
// sample-based clocks (0 when rate-less), and the entries sorted
// ascending by key with ties kept in file order.
type entryTable struct {
	clock   string
	rate    int64
	entries []entryKey
}

// buildEntryTable keys the container's entries on the configured clock
// and sorts them. Entries that match no name pattern or lack the
// clock's attribute never enter the table; an empty table is fatal
// because no ordering is possible.
func (r *Reader) buildEntryTable(c arf.Container) (*entryTable, error) {
	all, err := c.Entries()
	if err != nil {
		return nil, errors.Wrap(err, "arf-reader", "buildEntryTable", "entry listing")
	}

	var kept []arf.Entry
	for _, entry := range all {
		if matchAny(r.entryPatterns, entry.Name()) {
			kept = append(kept, entry)
		}
	}

	clock := r.config.Clock
	if clock == "" || clock == ClockAuto {
		clock = clockForCreator(arf.Creator(c))
	}

	table := &entryTable{clock: clock}
	switch clock {
	case ClockSampleCount:
		err = r.keyBySampleCount(c, kept, table)
	case ClockFrameCounter:
		err = r.keyByFrameCounter(kept, table)
	default:
		r.keyByTimestamp(kept, table)
	}
	if err != nil {
		return nil, err
	}

	if len(table.entries) == 0 {
		return nil, errors.WrapFatal(errors.ErrNoEntries,
			"arf-reader", "buildEntryTable", "entry resolution")
	}

	slices.SortStableFunc(table.entries, func(a, b entryKey) int {
		return a.key.Cmp(b.key)
	})

	r.logDrift(table)
	return table, nil
}

// clockForCreator maps the creating program to its native clock:
// arfxplog writes sample_count attributes, JILL writes JACK frame
// counters, anything else gets wall-clock timestamps.
func clockForCreator(creator string) string {
	switch creator {
	case arf.CreatorArfxplog:
		return ClockSampleCount
	case arf.CreatorJill:
		return ClockFrameCounter
	default:
		return ClockTimestamp
	}
}

func (r *Reader) keyByTimestamp(entries []arf.Entry, table *entryTable) {
	for _, entry := range entries {
		sec, ok := entryWall(entry)
		if !ok {
			r.skipEntry(entry.Name(), arf.AttrTimestamp)
			continue
		}
		table.entries = append(table.entries, entryKey{
			entry:   entry,
			key:     timebase.Seconds(sec),
			wall:    sec,
			hasWall: true,
		})
	}
}

func (r *Reader) keyBySampleCount(c arf.Container, entries []arf.Entry, table *entryTable) error {
	rate, ok := containerRate(c)
	if !ok {
		return errors.WrapFatal(
			fmt.Errorf("container %s declares no file-level sampling_rate", c.Path()),
			"arf-reader", "buildEntryTable", "sample-count rate discovery")
	}
	table.rate = rate

	for _, entry := range entries {
		v, ok := entry.Attr(arf.AttrSampleCount)
		if !ok {
			r.skipEntry(entry.Name(), arf.AttrSampleCount)
			continue
		}
		count, ok := arf.AsInt(v)
		if !ok {
			r.skipEntry(entry.Name(), arf.AttrSampleCount)
			continue
		}
		wall, hasWall := entryWall(entry)
		table.entries = append(table.entries, entryKey{
			entry:   entry,
			key:     timebase.FromSamples(count, rate),
			samples: count,
			wall:    wall,
			hasWall: hasWall,
		})
	}
	return nil
}

func (r *Reader) keyByFrameCounter(entries []arf.Entry, table *entryTable) error {
	rate := r.discoverRate(entries)
	table.rate = rate

	type jackEntry struct {
		entry   arf.Entry
		frame   uint32
		usec    uint64
		wall    float64
		hasWall bool
	}
	var jacks []jackEntry
	for _, entry := range entries {
		fv, ok := entry.Attr(arf.AttrJackFrame)
		if !ok {
			r.skipEntry(entry.Name(), arf.AttrJackFrame)
			continue
		}
		frame, ok := arf.AsUint(fv)
		if !ok {
			r.skipEntry(entry.Name(), arf.AttrJackFrame)
			continue
		}
		uv, ok := entry.Attr(arf.AttrJackUsec)
		if !ok {
			r.skipEntry(entry.Name(), arf.AttrJackUsec)
			continue
		}
		usec, ok := arf.AsUint(uv)
		if !ok {
			r.skipEntry(entry.Name(), arf.AttrJackUsec)
			continue
		}
		wall, hasWall := entryWall(entry)
		jacks = append(jacks, jackEntry{
			entry:   entry,
			frame:   uint32(frame),
			usec:    usec,
			wall:    wall,
			hasWall: hasWall,
		})
	}
	if len(jacks) == 0 {
		return nil
	}

	// The microsecond clock does not wrap, so sorting by it first
	// fixes which counter steps are wraps and which are real gaps.
	slices.SortStableFunc(jacks, func(a, b jackEntry) int {
		switch {
		case a.usec < b.usec:
			return -1
		case a.usec > b.usec:
			return 1
		default:
			return 0
		}
	})

	raw := make([]uint32, len(jacks))
	for i, j := range jacks {
		raw[i] = j.frame
	}
	corrected := correctFrames(raw)

	for i := 1; i < len(jacks); i++ {
		if err := checkFrameGap(jacks[i-1].usec, jacks[i].usec, rate); err != nil {
			return err
		}
	}

	for i, j := range jacks {
		var key timebase.Time
		if rate > 0 {
			key = timebase.FromSamples(int64(corrected[i]), rate)
		} else {
			key = timebase.Seconds(float64(corrected[i]))
		}
		table.entries = append(table.entries, entryKey{
			entry:   j.entry,
			key:     key,
			samples: int64(corrected[i]),
			wall:    j.wall,
			hasWall: j.hasWall,
		})
	}
	return nil
}

// correctFrames accumulates a monotone 64-bit frame sequence from raw
// 32-bit counter values in wall-clock order. Unsigned subtraction turns
// a wrapped step into its small positive difference.
func correctFrames(raw []uint32) []uint64 {
	if len(raw) == 0 {
		return nil
	}
	out := make([]uint64, len(raw))
	out[0] = uint64(raw[0])
	for i := 1; i < len(raw); i++ {
		out[i] = out[i-1] + uint64(raw[i]-raw[i-1])
	}
	return out
}

// frameWrap is the modulus of the 32-bit frame counter.
const frameWrap = 1 << 32

// checkFrameGap fails when the wall-clock gap between consecutive
// entries implies the counter advanced a full wrap or more, which makes
// wrap correction ambiguous.
func checkFrameGap(prevUsec, usec uint64, rate int64) error {
	if rate <= 0 {
		return nil
	}
	elapsed := float64(usec-prevUsec) / 1e6
	if elapsed*float64(rate) >= frameWrap {
		return errors.WrapFatal(
			fmt.Errorf("%w: %.1fs between entries at %d Hz", errors.ErrFrameGapExceeded, elapsed, rate),
			"arf-reader", "buildEntryTable", "frame counter continuity check")
	}
	return nil
}

// discoverRate scans for the first dataset that declares a sampling
// rate. JILL files carry the rate on datasets, not the file.
func (r *Reader) discoverRate(entries []arf.Entry) int64 {
	for _, entry := range entries {
		datasets, err := entry.Datasets()
		if err != nil {
			continue
		}
		for _, ds := range datasets {
			if v, ok := ds.Attr(arf.AttrSamplingRate); ok {
				if rate, ok := rateValue(v); ok {
					return rate
				}
			}
		}
	}
	r.logger.Warn("no dataset declares a sampling rate; frame keys stay rate-less")
	return 0
}

// skipEntry logs an entry dropped for lacking the selected clock's
// attribute.
func (r *Reader) skipEntry(name, attr string) {
	r.logger.Warn("entry missing ordering attribute; skipping",
		"entry", name, "attribute", attr, "error", errors.ErrMissingOrderingKey)
	if r.metrics != nil {
		r.metrics.RecordEntryProcessed(r.name, "skipped")
	}
}

// logDrift reports the sampling rate implied by wall-clock timestamps
// across the traversal, a diagnostic for drifting hardware clocks.
func (r *Reader) logDrift(table *entryTable) {
	if table.rate <= 0 || len(table.entries) < 2 {
		return
	}
	var first, last *entryKey
	for i := range table.entries {
		e := &table.entries[i]
		if !e.hasWall {
			continue
		}
		if first == nil {
			first = e
		}
		last = e
	}
	if first == nil || first == last {
		return
	}
	dt := last.wall - first.wall
	if dt <= 0 {
		return
	}
	effective := float64(last.samples-first.samples) / dt
	r.logger.Info("effective sampling rate against system clock",
		"nominal", table.rate, "effective", effective)
}

// entryWall reads an entry's wall-clock timestamp attribute as float
// seconds.
func entryWall(entry arf.Entry) (float64, bool) {
	v, ok := entry.Attr(arf.AttrTimestamp)
	if !ok {
		return 0, false
	}
	return arf.TimestampSeconds(v)
}

// containerRate reads the file-level nominal sampling rate.
func containerRate(c arf.Container) (int64, bool) {
	v, ok := c.Attr(arf.AttrSamplingRate)
	if !ok {
		return 0, false
	}
	return rateValue(v)
}

// rateValue coerces a sampling_rate attribute to integer hertz,
// truncating fractional rates.
func rateValue(v any) (int64, bool) {
	if n, ok := arf.AsInt(v); ok {
		return n, n > 0
	}
	if f, ok := arf.AsFloat(v); ok {
		n := int64(f)
		return n, n > 0
	}
	return 0, false
}
