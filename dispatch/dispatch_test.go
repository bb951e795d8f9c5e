package dispatch

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/c360/arfstream/component"
	"github.com/c360/arfstream/datablock"
	"github.com/c360/arfstream/errors"
	"github.com/c360/arfstream/testutil"
)

func chunk(id string) datablock.Chunk {
	return datablock.Chunk{
		ID:   id,
		Data: datablock.Structure{},
		Tags: datablock.NewTagSet(datablock.TagStructure),
	}
}

// recorderWorkers returns a worker constructor that records each key's
// chunks in its own sink, plus the sink map for assertions.
func recorderWorkers() (WorkerFunc[string], map[string]*testutil.RecorderSink) {
	sinks := make(map[string]*testutil.RecorderSink)
	return func(key string, _ *component.Targets) (component.Sink, error) {
		sink := testutil.NewRecorderSink()
		sinks[key] = sink
		return sink, nil
	}, sinks
}

func TestNew_RequiresKeyAndWorker(t *testing.T) {
	workerFn, _ := recorderWorkers()

	_, err := New(Deps[string]{Worker: workerFn})
	if err == nil {
		t.Error("expected error for missing key function")
	}

	_, err = New(Deps[string]{Key: func(c datablock.Chunk) string { return c.ID }})
	if err == nil {
		t.Error("expected error for missing worker function")
	}
}

func TestDispatcher_LazyWorkersPerKey(t *testing.T) {
	workerFn, sinks := recorderWorkers()
	d, err := ByID(Deps[string]{Worker: workerFn})
	if err != nil {
		t.Fatalf("ByID failed: %v", err)
	}

	if d.WorkerCount() != 0 {
		t.Errorf("expected no workers before any send, got %d", d.WorkerCount())
	}

	// Four chunks across three distinct keys.
	for _, id := range []string{"A", "B", "A", "C"} {
		if err := d.Send(chunk(id)); err != nil {
			t.Fatalf("Send(%s) failed: %v", id, err)
		}
	}

	if d.WorkerCount() != 3 {
		t.Errorf("expected 3 workers for keys A,B,C, got %d", d.WorkerCount())
	}
	if got := sinks["A"].Len(); got != 2 {
		t.Errorf("expected worker A to receive 2 chunks, got %d", got)
	}
	if got := sinks["B"].Len(); got != 1 {
		t.Errorf("expected worker B to receive 1 chunk, got %d", got)
	}
	if got := sinks["C"].Len(); got != 1 {
		t.Errorf("expected worker C to receive 1 chunk, got %d", got)
	}

	stats := d.Stats()
	if stats.Workers != 3 || stats.Dispatched != 4 || stats.Failed != 0 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestDispatcher_SharedTargets(t *testing.T) {
	// Workers forward to the shared target list rather than holding
	// their own sinks.
	worker := func(_ string, targets *component.Targets) (component.Sink, error) {
		return forwardingSink{targets}, nil
	}

	first := testutil.NewRecorderSink()
	targets := component.NewTargets(component.Target{Name: "first", Sink: first})

	d, err := ByID(Deps[string]{Worker: worker, Targets: targets})
	if err != nil {
		t.Fatalf("ByID failed: %v", err)
	}

	if err := d.Send(chunk("A")); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	// A target added mid-stream is seen by the existing worker A and
	// by the later-constructed worker B.
	second := testutil.NewRecorderSink()
	d.AddTarget(component.Target{Name: "second", Sink: second})

	if err := d.Send(chunk("A")); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if err := d.Send(chunk("B")); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if got := first.Len(); got != 3 {
		t.Errorf("expected first target to see all 3 chunks, got %d", got)
	}
	if got := second.Len(); got != 2 {
		t.Errorf("expected second target to see the 2 chunks after addition, got %d", got)
	}
}

// forwardingSink is a minimal worker stage: pass everything downstream.
type forwardingSink struct {
	targets *component.Targets
}

func (s forwardingSink) Send(chunk datablock.Chunk) error { return s.targets.Dispatch(chunk) }
func (s forwardingSink) Close() error                     { return s.targets.CloseAll() }

func TestDispatcher_WorkerErrorIsIsolated(t *testing.T) {
	workerFn, sinks := recorderWorkers()
	d, err := ByID(Deps[string]{Worker: workerFn})
	if err != nil {
		t.Fatalf("ByID failed: %v", err)
	}

	if err := d.Send(chunk("A")); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if err := d.Send(chunk("B")); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	sinks["A"].SendFunc = func(datablock.Chunk) error {
		return fmt.Errorf("disk full")
	}

	if err := d.Send(chunk("A")); err == nil {
		t.Error("expected worker A's error to reach the caller")
	}
	if err := d.Send(chunk("B")); err != nil {
		t.Errorf("worker B should be unaffected, got %v", err)
	}

	stats := d.Stats()
	if stats.Failed != 1 {
		t.Errorf("expected 1 failed dispatch, got %d", stats.Failed)
	}
}

func TestDispatcher_WorkerConstructionError(t *testing.T) {
	construction := 0
	worker := func(string, *component.Targets) (component.Sink, error) {
		construction++
		return nil, fmt.Errorf("no resources")
	}

	d, err := ByID(Deps[string]{Worker: worker})
	if err != nil {
		t.Fatalf("ByID failed: %v", err)
	}

	if err := d.Send(chunk("A")); err == nil {
		t.Error("expected construction error to reach the caller")
	}
	if d.WorkerCount() != 0 {
		t.Errorf("failed construction must not leave a worker, got %d", d.WorkerCount())
	}

	// The key stays eligible for a later retry by the caller.
	if err := d.Send(chunk("A")); err == nil {
		t.Error("expected second construction error")
	}
	if construction != 2 {
		t.Errorf("expected 2 construction attempts, got %d", construction)
	}
}

func TestDispatcher_Close(t *testing.T) {
	workerFn, sinks := recorderWorkers()
	d, err := ByID(Deps[string]{Worker: workerFn})
	if err != nil {
		t.Fatalf("ByID failed: %v", err)
	}

	// Close with no workers is a no-op.
	if err := d.Close(); err != nil {
		t.Errorf("expected clean close of empty dispatcher, got %v", err)
	}

	d, _ = ByID(Deps[string]{Worker: workerFn})
	_ = d.Send(chunk("A"))
	_ = d.Send(chunk("B"))

	if err := d.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	for key, sink := range sinks {
		if sink.CloseCount() != 1 {
			t.Errorf("worker %s closed %d times, expected once", key, sink.CloseCount())
		}
	}

	// Idempotent.
	if err := d.Close(); err != nil {
		t.Errorf("second Close should be a no-op, got %v", err)
	}

	err = d.Send(chunk("A"))
	if !stderrors.Is(err, errors.ErrClosed) {
		t.Errorf("expected ErrClosed after Close, got %v", err)
	}
	if errors.Classify(err) != errors.ErrorInvalid {
		t.Errorf("expected invalid classification, got %v", errors.Classify(err))
	}
}

func TestDispatcher_CloseKeepsFirstError(t *testing.T) {
	closeErr := fmt.Errorf("flush failed")
	worker := func(string, *component.Targets) (component.Sink, error) {
		sink := testutil.NewRecorderSink()
		sink.CloseFunc = func() error { return closeErr }
		return sink, nil
	}

	d, err := ByID(Deps[string]{Worker: worker})
	if err != nil {
		t.Fatalf("ByID failed: %v", err)
	}
	_ = d.Send(chunk("A"))
	_ = d.Send(chunk("B"))

	err = d.Close()
	if !stderrors.Is(err, closeErr) {
		t.Errorf("expected worker close error from Close, got %v", err)
	}
}

func TestDispatcher_ThrowBroadcasts(t *testing.T) {
	workerFn, sinks := recorderWorkers()
	d, err := ByID(Deps[string]{Worker: workerFn})
	if err != nil {
		t.Fatalf("ByID failed: %v", err)
	}

	_ = d.Send(chunk("A"))
	_ = d.Send(chunk("B"))

	cause := fmt.Errorf("upstream read failed")
	d.Throw(cause)

	for key, sink := range sinks {
		thrown := sink.Thrown()
		if len(thrown) != 1 || !stderrors.Is(thrown[0], cause) {
			t.Errorf("worker %s expected the thrown error, got %v", key, thrown)
		}
	}
}

func TestDispatcher_CustomKey(t *testing.T) {
	workerFn, sinks := recorderWorkers()

	// Key on tag class instead of id.
	d, err := New(Deps[string]{
		Key:    func(c datablock.Chunk) string { return c.Tags.String() },
		Worker: workerFn,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	_ = d.Send(datablock.Chunk{ID: "x", Data: datablock.Structure{}, Tags: datablock.NewTagSet(datablock.TagStructure)})
	_ = d.Send(datablock.Chunk{ID: "y", Data: datablock.Samples{Values: []float64{1}}, Tags: datablock.NewTagSet(datablock.TagSamples)})
	_ = d.Send(datablock.Chunk{ID: "z", Data: datablock.Structure{}, Tags: datablock.NewTagSet(datablock.TagStructure)})

	if d.WorkerCount() != 2 {
		t.Errorf("expected 2 workers for 2 tag classes, got %d", d.WorkerCount())
	}
	if got := sinks["structure"].Len(); got != 2 {
		t.Errorf("expected 2 structure chunks, got %d", got)
	}
}
