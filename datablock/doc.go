// Package datablock defines the unit of data exchanged between arfstream
// components: the Chunk.
//
// A Chunk combines an identity (the channel or entry name it came from), an
// exact offset on the stream's timeline, an optional sampling rate, a typed
// payload, and a set of classification tags. Chunks are value objects - once
// emitted they are never mutated in place; a transformed chunk is a new value
// carrying the same ID unless deliberately re-tagged.
//
// The payload is a closed set of variants:
//
//   - Structure - a zero-length marker for the start of a recording entry
//   - Events - point-process timestamps (raw values; samples when the chunk
//     carries a rate, seconds otherwise)
//   - Samples - a block of regularly sampled values
//
// The package also provides the chunk id Registry: a scoped table of ids seen
// during one traversal with per-id properties, replacing any notion of
// process-global stream state. A Registry lives exactly as long as the
// traversal that created it.
package datablock
