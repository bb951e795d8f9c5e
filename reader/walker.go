package reader

import (
	"time"

	"github.com/c360/arfstream/arf"
	"github.com/c360/arfstream/datablock"
	"github.com/c360/arfstream/errors"
	"github.com/c360/arfstream/timebase"
)

// emitFunc delivers one chunk to the traversal's consumer.
type emitFunc func(datablock.Chunk) error

// timeSeriesOffsets converts the read window into frame-index bounds
// for a dataset of nframes frames at rate Hz starting at offsetSec on
// the stream timeline. A zero bound means unbounded; a window that
// misses the dataset entirely produces an empty range.
func timeSeriesOffsets(offsetSec float64, rate int64, nframes int64, start, stop float64) (int64, int64) {
	startIdx := int64(0)
	if start != 0 {
		f := (start - offsetSec) * float64(rate)
		switch {
		case f >= float64(nframes):
			startIdx = nframes
		case f > 0:
			startIdx = int64(f)
		}
	}

	stopIdx := nframes
	if stop != 0 {
		f := (stop - offsetSec) * float64(rate)
		switch {
		case f < 0:
			stopIdx = 0
		case f < float64(nframes):
			stopIdx = int64(f)
		}
	}

	return startIdx, stopIdx
}

// blockFrames returns the stride of one emitted block for a dataset:
// the native chunk granularity times the configured block multiple.
func (r *Reader) blockFrames(ds arf.Dataset) int64 {
	frames := ds.ChunkFrames()
	if frames <= 0 {
		frames = arf.DefaultChunkFrames
	}
	return frames * r.blockChunks
}

// emitSamples walks a sampled dataset in block strides, yielding one
// samples chunk per stride. The window bounds which strides run; the
// final stride still reads its full extent, clamped to the dataset
// end, so block boundaries stay aligned to the native chunk grid.
func (r *Reader) emitSamples(ds arf.Dataset, offset timebase.Time, rate int64, emit emitFunc) error {
	nframes := datasetFrames(ds)
	startIdx, stopIdx := timeSeriesOffsets(offset.Seconds(), rate, nframes, r.config.Start, r.config.Stop)
	stride := r.blockFrames(ds)

	for i := startIdx; i < stopIdx; i += stride {
		at, err := offset.Add(timebase.FromSamples(i, rate))
		if err != nil {
			return errors.WrapInvalid(err, "arf-reader", "emitSamples", "chunk offset arithmetic")
		}

		end := i + stride
		if end > nframes {
			end = nframes
		}

		readStart := time.Now()
		values, err := ds.ReadSamples(i, end)
		if err != nil {
			return errors.Wrap(err, "arf-reader", "emitSamples", "dataset read")
		}
		if r.metrics != nil {
			r.metrics.RecordReadDuration(r.name, "samples", time.Since(readStart))
		}

		if err := emit(datablock.Chunk{
			ID:     ds.Name(),
			Offset: at,
			Rate:   rate,
			Data:   datablock.Samples{Values: values},
			Tags:   samplesTags,
		}); err != nil {
			return err
		}
	}
	return nil
}

// emitEvents reads an event dataset as one atomic chunk. With a window
// configured, times are filtered to [start, stop] inclusive and an
// empty result suppresses the chunk entirely; without a window the
// chunk is always emitted, even when empty. The payload keeps the raw
// values in the dataset's own units.
func (r *Reader) emitEvents(ds arf.Dataset, offset timebase.Time, rate int64, units string, emit emitFunc) error {
	readStart := time.Now()
	times, err := ds.ReadEvents()
	if err != nil {
		return errors.Wrap(err, "arf-reader", "emitEvents", "dataset read")
	}
	if r.metrics != nil {
		r.metrics.RecordReadDuration(r.name, "events", time.Since(readStart))
	}

	if r.config.Start != 0 || r.config.Stop != 0 {
		base := offset.Seconds()
		var kept []float64
		for _, raw := range times {
			sec := base + eventSeconds(raw, units, rate)
			if r.config.Start != 0 && sec < r.config.Start {
				continue
			}
			if r.config.Stop != 0 && sec > r.config.Stop {
				continue
			}
			kept = append(kept, raw)
		}
		if len(kept) == 0 {
			return nil
		}
		times = kept
	}

	return emit(datablock.Chunk{
		ID:     ds.Name(),
		Offset: offset,
		Rate:   rate,
		Data:   datablock.Events{Times: times},
		Tags:   eventsTags,
	})
}

// eventSeconds converts one raw event value to seconds per the
// dataset's declared units. For sample units the caller guarantees a
// positive rate.
func eventSeconds(raw float64, units string, rate int64) float64 {
	switch units {
	case "ms":
		return raw / 1000
	case "samples":
		return raw / float64(rate)
	default: // "s"
		return raw
	}
}

// datasetFrames returns the dataset extent along its leading axis.
func datasetFrames(ds arf.Dataset) int64 {
	dims := ds.Dims()
	if len(dims) == 0 {
		return 0
	}
	return dims[0]
}
