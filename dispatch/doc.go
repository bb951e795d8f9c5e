// Package dispatch fans a single chunk stream out to per-key worker
// stages.
//
// # Overview
//
// A Dispatcher wraps a consuming stage with a key function and a worker
// constructor. Each chunk is routed by key; the first chunk carrying an
// unseen key constructs that key's worker, so the worker set is exactly
// the set of keys observed. ByID gives the common instantiation: keyed
// on chunk id, one worker per channel.
//
// # Shared Targets
//
// Every worker is constructed with the same *component.Targets value.
// AddTarget appends to that one list, so a target added mid-stream is
// observed by existing workers and by workers constructed later. The
// list is safe for concurrent reads against mutation.
//
// # Synchronous and Async Modes
//
// New builds a synchronous dispatcher: Send forwards on the calling
// goroutine, and a worker's error returns to the Send caller, leaving
// other workers untouched. NewAsync runs each worker on its own
// goroutine behind a bounded FIFO queue: Send enqueues, per-key order
// is preserved, and Send blocks while a queue is full so data is never
// dropped. The first error a worker hits is kept, later chunks for
// that worker are discarded, and the error surfaces from Close.
//
// # Shutdown
//
// Close closes every live worker and returns the first failure after
// attempting all of them; in async mode it first drains each queue.
// Throw broadcasts an upstream failure to every worker that implements
// component.Thrower; in async mode the failure rides the queue so it
// reaches the base sink in send order.
//
// # Usage
//
//	d, err := dispatch.ByID(dispatch.Deps[string]{
//	    Name: "spike-dispatch",
//	    Worker: func(id string, targets *component.Targets) (component.Sink, error) {
//	        return newChannelStage(id, targets)
//	    },
//	    Targets: component.NewTargets(component.Target{Name: "dump", Sink: dump}),
//	})
//	if err != nil {
//	    return err
//	}
//	defer d.Close()
//
//	err = source.Iterate(ctx, d.Send)
//
// One goroutine drives Send and Close; async workers supply the only
// internal parallelism.
package dispatch
