package component

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// LifecycleFactory creates a new instance of a LifecycleComponent for testing
type LifecycleFactory func() LifecycleComponent

// StandardLifecycleTests runs the shared lifecycle contract tests for
// any component that implements LifecycleComponent. Component packages
// call this from their own tests so every stage honors the same
// Initialize/Start/Stop semantics.
func StandardLifecycleTests(t *testing.T, factory LifecycleFactory) {
	t.Run("Compliance", func(t *testing.T) {
		testLifecycleCompliance(t, factory)
	})
	t.Run("CancelledContext", func(t *testing.T) {
		testCancelledContext(t, factory)
	})
	t.Run("ConcurrentStop", func(t *testing.T) {
		testConcurrentStop(t, factory)
	})
}

// testLifecycleCompliance tests standard lifecycle state transitions
func testLifecycleCompliance(t *testing.T, factory LifecycleFactory) {
	tests := []struct {
		name string
		test func(t *testing.T, comp LifecycleComponent)
	}{
		{"Initialize", testInitialize},
		{"StartStop", testStartStop},
		{"DoubleStop", testDoubleStop},
		{"StopWithoutStart", testStopWithoutStart},
		{"RestartAfterStop", testRestartAfterStop},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			comp := factory()
			require.NotNil(t, comp, "Component factory returned nil")
			tt.test(t, comp)
		})
	}
}

func testInitialize(t *testing.T, comp LifecycleComponent) {
	err := comp.Initialize()
	assert.NoError(t, err, "Initialize should succeed on fresh component")
}

func testStartStop(t *testing.T, comp LifecycleComponent) {
	err := comp.Initialize()
	require.NoError(t, err, "Initialize must succeed before Start")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = comp.Start(ctx)
	assert.NoError(t, err, "Start should succeed after Initialize")

	err = comp.Stop(5 * time.Second)
	assert.NoError(t, err, "Stop should succeed after Start")
}

func testDoubleStop(t *testing.T, comp LifecycleComponent) {
	err := comp.Initialize()
	require.NoError(t, err, "Initialize must succeed")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = comp.Start(ctx)
	require.NoError(t, err, "Start must succeed")

	err = comp.Stop(5 * time.Second)
	assert.NoError(t, err, "First Stop should succeed")

	err = comp.Stop(5 * time.Second)
	assert.NoError(t, err, "Second Stop should be idempotent")
}

func testStopWithoutStart(t *testing.T, comp LifecycleComponent) {
	err := comp.Stop(5 * time.Second)
	assert.NoError(t, err, "Stop should be safe to call without Start")
}

func testRestartAfterStop(t *testing.T, comp LifecycleComponent) {
	err := comp.Initialize()
	require.NoError(t, err, "Initialize should succeed")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = comp.Start(ctx)
	require.NoError(t, err, "First Start should succeed")

	err = comp.Stop(5 * time.Second)
	require.NoError(t, err, "Stop should succeed")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()

	err = comp.Start(ctx2)
	if err != nil {
		// Some components require re-initialization after stop
		err = comp.Initialize()
		require.NoError(t, err, "Re-initialize should succeed if Start fails after Stop")

		err = comp.Start(ctx2)
		assert.NoError(t, err, "Start should succeed after re-initialization")
	}

	err = comp.Stop(5 * time.Second)
	assert.NoError(t, err, "Final Stop should succeed")
}

// testCancelledContext verifies a component handles an already-cancelled
// start context without wedging: it may refuse to start or start and
// wind down immediately, but Stop must still work afterwards.
func testCancelledContext(t *testing.T, factory LifecycleFactory) {
	comp := factory()
	require.NotNil(t, comp, "Component factory returned nil")

	err := comp.Initialize()
	require.NoError(t, err, "Initialize must succeed")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = comp.Start(ctx)
	if err != nil {
		ok := strings.Contains(err.Error(), "context") || strings.Contains(err.Error(), "cancel")
		assert.True(t, ok, "Start error should mention cancellation: %v", err)
	}

	err = comp.Stop(5 * time.Second)
	assert.NoError(t, err, "Component should be stoppable after cancelled start")
}

// testConcurrentStop verifies Stop is safe under concurrent callers.
func testConcurrentStop(t *testing.T, factory LifecycleFactory) {
	comp := factory()
	require.NotNil(t, comp, "Component factory returned nil")

	err := comp.Initialize()
	require.NoError(t, err, "Initialize must succeed")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = comp.Start(ctx)
	require.NoError(t, err, "Start must succeed")

	var wg sync.WaitGroup
	stopErrs := make([]error, 8)
	for i := range stopErrs {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			stopErrs[idx] = comp.Stop(5 * time.Second)
		}(i)
	}
	wg.Wait()

	for i, stopErr := range stopErrs {
		assert.NoError(t, stopErr, "concurrent Stop %d should succeed", i)
	}
}
