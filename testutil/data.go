package testutil

import "github.com/c360/arfstream/datablock"

// Signal generators for dataset fixtures. Ramps make chunk-boundary
// assertions trivial: the value at every position equals its frame
// index, so any gap, repeat, or misalignment in a reassembled stream
// is visible immediately.

// Ramp returns n values 0, 1, 2, ... n-1.
func Ramp(n int) []float64 {
	return RampFrom(0, n)
}

// RampFrom returns n values start, start+1, ... start+n-1.
func RampFrom(start, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(start + i)
	}
	return out
}

// Spaced returns n event times first, first+step, first+2*step, ...
func Spaced(first, step float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = first + step*float64(i)
	}
	return out
}

// ConcatSamples joins the sample payloads of the given chunks in
// order, skipping chunks that carry other payload kinds. Use it to
// check that chunked traversals reassemble to the source values.
func ConcatSamples(chunks []datablock.Chunk) []float64 {
	var out []float64
	for _, chunk := range chunks {
		if s, ok := chunk.Data.(datablock.Samples); ok {
			out = append(out, s.Values...)
		}
	}
	return out
}

// TagsOf returns each chunk's tag-set string in order, a compact shape
// check for traversal tests.
func TagsOf(chunks []datablock.Chunk) []string {
	out := make([]string, len(chunks))
	for i, chunk := range chunks {
		out[i] = chunk.Tags.String()
	}
	return out
}
