package component

import (
	"context"
	"sync"

	"github.com/c360/arfstream/datablock"
	"github.com/c360/arfstream/errors"
	"github.com/c360/arfstream/filters"
)

// Sink consumes a chunk stream. Send delivers one chunk; Close flushes
// and releases the sink, after which Send returns ErrClosed.
type Sink interface {
	Send(chunk datablock.Chunk) error
	Close() error
}

// Source produces a chunk stream as a lazy traversal: Iterate calls
// yield once per chunk, in stream order, and stops early when yield or
// the context reports an error.
type Source interface {
	Iterate(ctx context.Context, yield func(datablock.Chunk) error) error
}

// Thrower is implemented by sinks that want upstream failures pushed to
// them so they can release resources before the pipeline unwinds.
type Thrower interface {
	Throw(err error)
}

// Target pairs a sink with an optional chunk predicate. A nil Filter
// passes everything.
type Target struct {
	Name   string
	Sink   Sink
	Filter filters.Predicate
}

// Targets is a shared, mutable list of downstream targets. A stage and
// every worker fanned out from it hold the same *Targets, so additions
// are observed by all of them, including workers constructed later.
type Targets struct {
	mu   sync.RWMutex
	list []Target
}

// NewTargets returns an empty target list.
func NewTargets(targets ...Target) *Targets {
	t := &Targets{}
	t.list = append(t.list, targets...)
	return t
}

// Add appends a target. Safe for concurrent use with Dispatch.
func (t *Targets) Add(target Target) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.list = append(t.list, target)
}

// Len returns the current number of targets.
func (t *Targets) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.list)
}

// Snapshot returns a copy of the current target list.
func (t *Targets) Snapshot() []Target {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Target, len(t.list))
	copy(out, t.list)
	return out
}

// Dispatch sends the chunk to every target whose filter accepts it, in
// list order, stopping at the first failure.
func (t *Targets) Dispatch(chunk datablock.Chunk) error {
	for _, target := range t.Snapshot() {
		if target.Filter != nil && !target.Filter(chunk) {
			continue
		}
		if err := target.Sink.Send(chunk); err != nil {
			return errors.Wrap(err, "Targets", "Dispatch", "send to "+target.Name)
		}
	}
	return nil
}

// Throw pushes a failure to every target that accepts one.
func (t *Targets) Throw(err error) {
	for _, target := range t.Snapshot() {
		if th, ok := target.Sink.(Thrower); ok {
			th.Throw(err)
		}
	}
}

// CloseAll closes every target, in list order, returning the first
// failure after attempting all of them.
func (t *Targets) CloseAll() error {
	var firstErr error
	for _, target := range t.Snapshot() {
		if err := target.Sink.Close(); err != nil && firstErr == nil {
			firstErr = errors.Wrap(err, "Targets", "CloseAll", "close "+target.Name)
		}
	}
	return firstErr
}
