// Package dispatch provides key-based fan-out for chunk streams: a
// Dispatcher routes each chunk to a per-key worker stage, constructing
// workers lazily as keys first appear. All workers share one target
// list, so a target added mid-stream reaches existing and future
// workers alike.
package dispatch

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/c360/arfstream/component"
	"github.com/c360/arfstream/datablock"
	"github.com/c360/arfstream/errors"
	"github.com/c360/arfstream/metric"
)

// KeyFunc derives the dispatch key for a chunk.
type KeyFunc[K comparable] func(datablock.Chunk) K

// WorkerFunc constructs the consuming stage for one key. Every worker
// receives the same shared target list, so downstream wiring is
// uniform across keys.
type WorkerFunc[K comparable] func(key K, targets *component.Targets) (component.Sink, error)

// DefaultQueueSize bounds each async worker's queue when the caller
// does not choose one. Chunks carry whole sample blocks, so the queue
// is kept shallow.
const DefaultQueueSize = 64

// Deps holds construction arguments for a Dispatcher.
type Deps[K comparable] struct {
	Name    string             // Instance name for logs and metrics
	Key     KeyFunc[K]         // Required
	Worker  WorkerFunc[K]      // Required
	Targets *component.Targets // Shared downstream list; created when nil
	Metrics *metric.Registry   // Runtime dependency
	Logger  *slog.Logger       // Runtime dependency
}

// Dispatcher fans one chunk stream out to per-key workers. Construct
// with New (synchronous) or NewAsync (one goroutine per key); route
// chunks with Send and finish with Close.
//
// Send and Close follow the stream's single-caller discipline: one
// goroutine drives the dispatcher, and any parallelism lives inside
// async workers.
type Dispatcher[K comparable] struct {
	name     string
	keyFn    KeyFunc[K]
	workerFn WorkerFunc[K]
	targets  *component.Targets

	async     bool
	queueSize int

	mu      sync.Mutex
	workers map[K]component.Sink
	closed  bool

	logger  *slog.Logger
	metrics *metric.Metrics

	// Statistics (atomic)
	dispatched atomic.Int64
	failed     atomic.Int64
}

var _ component.Sink = (*Dispatcher[string])(nil)
var _ component.Thrower = (*Dispatcher[string])(nil)

// New creates a synchronous dispatcher: Send constructs the worker for
// an unseen key, then forwards the chunk on the calling goroutine.
func New[K comparable](deps Deps[K]) (*Dispatcher[K], error) {
	if deps.Key == nil {
		return nil, errors.WrapInvalid(fmt.Errorf("key function is required"),
			"dispatcher", "New", "dependency check")
	}
	if deps.Worker == nil {
		return nil, errors.WrapInvalid(fmt.Errorf("worker function is required"),
			"dispatcher", "New", "dependency check")
	}

	name := deps.Name
	if name == "" {
		name = "dispatcher"
	}
	targets := deps.Targets
	if targets == nil {
		targets = component.NewTargets()
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default().With("component", name)
	}

	var coreMetrics *metric.Metrics
	if deps.Metrics != nil {
		coreMetrics = deps.Metrics.CoreMetrics()
	}

	return &Dispatcher[K]{
		name:     name,
		keyFn:    deps.Key,
		workerFn: deps.Worker,
		targets:  targets,
		workers:  make(map[K]component.Sink),
		logger:   logger,
		metrics:  coreMetrics,
	}, nil
}

// NewAsync creates a dispatcher whose workers each run on their own
// goroutine behind a bounded FIFO queue. Send enqueues and returns;
// per-key order is preserved, and the first error each worker hits is
// surfaced from Close. A queueSize of zero or less selects
// DefaultQueueSize.
func NewAsync[K comparable](deps Deps[K], queueSize int) (*Dispatcher[K], error) {
	d, err := New(deps)
	if err != nil {
		return nil, err
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	d.async = true
	d.queueSize = queueSize
	return d, nil
}

// ByID creates a dispatcher keyed on chunk id: one worker per channel.
func ByID(deps Deps[string]) (*Dispatcher[string], error) {
	deps.Key = func(chunk datablock.Chunk) string { return chunk.ID }
	return New(deps)
}

// Send routes one chunk to its key's worker, constructing the worker
// first if the key is new. A worker error is returned to the caller
// and affects that worker only.
func (d *Dispatcher[K]) Send(chunk datablock.Chunk) error {
	worker, err := d.workerFor(d.keyFn(chunk))
	if err != nil {
		d.failed.Add(1)
		return err
	}

	if err := worker.Send(chunk); err != nil {
		d.failed.Add(1)
		return err
	}
	d.dispatched.Add(1)

	if d.metrics != nil {
		if aw, ok := worker.(*asyncWorker); ok {
			d.metrics.RecordQueueDepth(d.name, aw.depth())
		}
	}
	return nil
}

func (d *Dispatcher[K]) workerFor(key K) (component.Sink, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, errors.WrapInvalid(errors.ErrClosed, d.name, "Send", "lifecycle check")
	}
	if worker, ok := d.workers[key]; ok {
		return worker, nil
	}

	worker, err := d.workerFn(key, d.targets)
	if err != nil {
		return nil, errors.Wrap(err, d.name, "Send", "worker construction")
	}
	if d.async {
		worker = newAsyncWorker(worker, d.queueSize)
	}
	d.workers[key] = worker

	d.logger.Debug("worker started", "key", key, "workers", len(d.workers))
	if d.metrics != nil {
		d.metrics.RecordDispatchWorkers(d.name, len(d.workers))
	}
	return worker, nil
}

// Close closes every live worker, in unspecified order, returning the
// first failure after attempting all of them. A dispatcher that never
// saw a chunk has no workers and Close is a no-op. Close is
// idempotent; Send after Close returns ErrClosed.
func (d *Dispatcher[K]) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	workers := d.workers
	d.workers = nil
	d.mu.Unlock()

	var firstErr error
	for key, worker := range workers {
		if err := worker.Close(); err != nil && firstErr == nil {
			firstErr = errors.Wrap(err, d.name, "Close", fmt.Sprintf("worker %v close", key))
		}
	}

	if d.metrics != nil {
		d.metrics.RecordDispatchWorkers(d.name, 0)
	}
	return firstErr
}

// Throw broadcasts a failure to every live worker that accepts one.
func (d *Dispatcher[K]) Throw(err error) {
	d.mu.Lock()
	workers := make([]component.Sink, 0, len(d.workers))
	for _, worker := range d.workers {
		workers = append(workers, worker)
	}
	d.mu.Unlock()

	for _, worker := range workers {
		if thrower, ok := worker.(component.Thrower); ok {
			thrower.Throw(err)
		}
	}
}

// AddTarget appends a target to the shared list. Existing and future
// workers observe the addition.
func (d *Dispatcher[K]) AddTarget(target component.Target) {
	d.targets.Add(target)
}

// Targets returns the shared downstream target list.
func (d *Dispatcher[K]) Targets() *component.Targets {
	return d.targets
}

// WorkerCount returns the number of live workers.
func (d *Dispatcher[K]) WorkerCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.workers)
}

// Stats is a point-in-time snapshot of dispatcher activity.
type Stats struct {
	Workers    int   `json:"workers"`
	Dispatched int64 `json:"dispatched"`
	Failed     int64 `json:"failed"`
}

// Stats returns current dispatch statistics.
func (d *Dispatcher[K]) Stats() Stats {
	return Stats{
		Workers:    d.WorkerCount(),
		Dispatched: d.dispatched.Load(),
		Failed:     d.failed.Load(),
	}
}
