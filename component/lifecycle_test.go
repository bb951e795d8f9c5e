package component

import (
	"context"
	"sync"
	"testing"
	"time"
)

// scriptedComponent is a minimal LifecycleComponent with correct
// Initialize/Start/Stop semantics, used to exercise the shared suite.
type scriptedComponent struct {
	SimpleMockComponent
	mu      sync.Mutex
	state   State
	started time.Time
}

func newScriptedComponent() *scriptedComponent {
	return &scriptedComponent{
		SimpleMockComponent: SimpleMockComponent{name: "scripted"},
		state:               StateCreated,
	}
}

func (c *scriptedComponent) Initialize() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateInitialized
	return nil
}

func (c *scriptedComponent) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	c.state = StateStarted
	c.started = time.Now()
	return nil
}

func (c *scriptedComponent) Stop(time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateStopped
	return nil
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateCreated, "created"},
		{StateInitialized, "initialized"},
		{StateStarted, "started"},
		{StateStopped, "stopped"},
		{StateFailed, "failed"},
		{State(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestLifecycleDetection(t *testing.T) {
	lifecycled := newScriptedComponent()
	plain := &SimpleMockComponent{name: "plain"}

	if !IsLifecycleComponent(lifecycled) {
		t.Error("scriptedComponent should be detected as LifecycleComponent")
	}
	if IsLifecycleComponent(plain) {
		t.Error("SimpleMockComponent should not be a LifecycleComponent")
	}

	if lc, ok := AsLifecycleComponent(lifecycled); !ok || lc == nil {
		t.Error("AsLifecycleComponent should return the component")
	}
	if _, ok := AsLifecycleComponent(plain); ok {
		t.Error("AsLifecycleComponent should reject plain components")
	}
}

func TestScriptedComponentLifecycle(t *testing.T) {
	StandardLifecycleTests(t, func() LifecycleComponent {
		return newScriptedComponent()
	})
}
