package testutil

import (
	"sync"

	"github.com/c360/arfstream/component"
	"github.com/c360/arfstream/datablock"
)

// RecorderSink is a component.Sink that records every chunk it
// receives. SendFunc and CloseFunc inject failures; when SendFunc
// returns an error the chunk is not recorded.
type RecorderSink struct {
	mu     sync.Mutex
	chunks []datablock.Chunk
	thrown []error
	closes int

	SendFunc  func(chunk datablock.Chunk) error
	CloseFunc func() error
}

// NewRecorderSink creates an empty recording sink.
func NewRecorderSink() *RecorderSink {
	return &RecorderSink{}
}

// Send implements component.Sink.
func (s *RecorderSink) Send(chunk datablock.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SendFunc != nil {
		if err := s.SendFunc(chunk); err != nil {
			return err
		}
	}
	s.chunks = append(s.chunks, chunk)
	return nil
}

// Close implements component.Sink.
func (s *RecorderSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	if s.CloseFunc != nil {
		return s.CloseFunc()
	}
	return nil
}

// Throw implements component.Thrower.
func (s *RecorderSink) Throw(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.thrown = append(s.thrown, err)
}

// Chunks returns a copy of the recorded chunks in arrival order.
func (s *RecorderSink) Chunks() []datablock.Chunk {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]datablock.Chunk, len(s.chunks))
	copy(out, s.chunks)
	return out
}

// IDs returns the recorded chunk ids in arrival order.
func (s *RecorderSink) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.chunks))
	for i, chunk := range s.chunks {
		out[i] = chunk.ID
	}
	return out
}

// Len returns the number of recorded chunks.
func (s *RecorderSink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.chunks)
}

// Thrown returns the errors pushed through Throw.
func (s *RecorderSink) Thrown() []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]error, len(s.thrown))
	copy(out, s.thrown)
	return out
}

// CloseCount returns how many times Close has been called.
func (s *RecorderSink) CloseCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}

var (
	_ component.Sink    = (*RecorderSink)(nil)
	_ component.Thrower = (*RecorderSink)(nil)
)
