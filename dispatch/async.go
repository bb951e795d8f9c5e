package dispatch

import (
	"sync"

	"github.com/c360/arfstream/component"
	"github.com/c360/arfstream/datablock"
	"github.com/c360/arfstream/errors"
)

// queueItem is one unit of per-worker work: a chunk, or a thrown
// failure riding the same queue so it lands in send order.
type queueItem struct {
	chunk datablock.Chunk
	err   error
	throw bool
}

// asyncWorker runs a base sink on its own goroutine behind a bounded
// FIFO queue. Send blocks while the queue is full, which backpressures
// the dispatching goroutine instead of dropping data. The first error
// the base sink returns is kept; chunks after it are drained and
// discarded so the queue never wedges, and the error surfaces from
// Close.
type asyncWorker struct {
	base  component.Sink
	items chan queueItem
	done  chan struct{}

	mu       sync.Mutex
	firstErr error
	closed   bool
}

var _ component.Sink = (*asyncWorker)(nil)
var _ component.Thrower = (*asyncWorker)(nil)

func newAsyncWorker(base component.Sink, queueSize int) *asyncWorker {
	w := &asyncWorker{
		base:  base,
		items: make(chan queueItem, queueSize),
		done:  make(chan struct{}),
	}
	go w.run()
	return w
}

func (w *asyncWorker) run() {
	defer close(w.done)
	for item := range w.items {
		if item.throw {
			if thrower, ok := w.base.(component.Thrower); ok {
				thrower.Throw(item.err)
			}
			continue
		}
		if w.failed() {
			continue
		}
		if err := w.base.Send(item.chunk); err != nil {
			w.setErr(err)
		}
	}
}

// Send enqueues a chunk. Errors from the base sink do not surface
// here; they are kept for Close.
func (w *asyncWorker) Send(chunk datablock.Chunk) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return errors.WrapInvalid(errors.ErrClosed, "async-worker", "Send", "lifecycle check")
	}
	w.mu.Unlock()

	w.items <- queueItem{chunk: chunk}
	return nil
}

// Throw enqueues the failure behind any pending chunks so the base
// sink sees it in stream order.
func (w *asyncWorker) Throw(err error) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.mu.Unlock()

	w.items <- queueItem{err: err, throw: true}
}

// Close drains the queue, stops the goroutine, closes the base sink,
// and returns the worker's first processing error, or the close error
// when processing was clean.
func (w *asyncWorker) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	close(w.items)
	<-w.done

	closeErr := w.base.Close()

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.firstErr != nil {
		return w.firstErr
	}
	return closeErr
}

func (w *asyncWorker) failed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.firstErr != nil
}

func (w *asyncWorker) setErr(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.firstErr == nil {
		w.firstErr = err
	}
}

func (w *asyncWorker) depth() int {
	return len(w.items)
}
