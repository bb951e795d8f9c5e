package component

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
)

// MockComponent implements the Discoverable interface for testing
type MockComponent struct {
	name          string
	componentType string
	inputPorts    []Port
	outputPorts   []Port
	healthy       bool
}

func NewMockComponent(name, componentType string) *MockComponent {
	return &MockComponent{
		name:          name,
		componentType: componentType,
		healthy:       true,
		inputPorts: []Port{
			{
				Name:        "container",
				Direction:   DirectionInput,
				Required:    true,
				Description: "Test container port",
				Config:      ContainerPort{Path: "/data/test.arf"},
			},
		},
		outputPorts: []Port{
			{
				Name:        "chunks",
				Direction:   DirectionOutput,
				Required:    true,
				Description: "Test chunk stream",
				Config:      StreamPort{Stream: "test.chunks"},
			},
		},
	}
}

func (m *MockComponent) Meta() Metadata {
	return Metadata{
		Name:        m.name,
		Type:        m.componentType,
		Description: "Mock component for testing",
		Version:     "1.0.0",
	}
}

func (m *MockComponent) InputPorts() []Port {
	return m.inputPorts
}

func (m *MockComponent) OutputPorts() []Port {
	return m.outputPorts
}

func (m *MockComponent) ConfigSchema() ConfigSchema {
	return ConfigSchema{
		Properties: map[string]PropertySchema{
			"name": {Type: "string", Description: "Component name"},
		},
		Required: []string{"name"},
	}
}

func (m *MockComponent) Health() HealthStatus {
	return HealthStatus{
		Healthy:   m.healthy,
		LastCheck: time.Now(),
		Uptime:    time.Hour,
	}
}

func (m *MockComponent) DataFlow() FlowMetrics {
	return FlowMetrics{
		ChunksPerSecond: 10.0,
		FramesPerSecond: 10240.0,
		LastActivity:    time.Now(),
	}
}

// Mock factory function
func createMockComponent(rawConfig json.RawMessage, _ Dependencies) (Discoverable, error) {
	config := make(map[string]any)
	if len(rawConfig) > 0 {
		if err := json.Unmarshal(rawConfig, &config); err != nil {
			return nil, err
		}
	}

	name := safeGetString(config, "name", "")
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}

	componentType := safeGetString(config, "type", "mock")

	return NewMockComponent(name, componentType), nil
}

// Factory that always fails
func failingFactory(_ json.RawMessage, _ Dependencies) (Discoverable, error) {
	return nil, fmt.Errorf("factory failure")
}

// fileSinkComponent exposes an exclusive file port for conflict tests.
type fileSinkComponent struct {
	SimpleMockComponent
	path string
}

func (f *fileSinkComponent) InputPorts() []Port {
	return []Port{{
		Name:      "chunks",
		Direction: DirectionInput,
		Config:    StreamPort{Stream: "test.chunks"},
	}}
}

func (f *fileSinkComponent) OutputPorts() []Port {
	return []Port{{
		Name:      "file",
		Direction: DirectionOutput,
		Config:    FilePort{Path: f.path},
	}}
}

func TestNewRegistry(t *testing.T) {
	registry := NewRegistry()

	if registry == nil {
		t.Fatal("NewRegistry returned nil")
	}

	if registry.factories == nil {
		t.Error("factories map not initialized")
	}

	if registry.instances == nil {
		t.Error("instances map not initialized")
	}

	if len(registry.factories) != 0 {
		t.Error("factories should start empty")
	}

	if len(registry.instances) != 0 {
		t.Error("instances should start empty")
	}
}

func TestRegisterFactory(t *testing.T) {
	registry := NewRegistry()

	registration := &Registration{
		Factory:     createMockComponent,
		Type:        TypeSource,
		Format:      "arf",
		Description: "Test component",
		Version:     "1.0.0",
	}

	err := registry.RegisterFactory("test", registration)
	if err != nil {
		t.Fatalf("Failed to register factory: %v", err)
	}

	factories := registry.ListFactories()
	if len(factories) != 1 {
		t.Errorf("Expected 1 factory, got %d", len(factories))
	}

	if factories["test"] == nil {
		t.Error("Factory 'test' not found")
	}

	// Duplicate registration should fail
	err = registry.RegisterFactory("test", registration)
	if err == nil {
		t.Error("Expected error for duplicate factory registration")
	}
}

func TestRegisterFactoryValidation(t *testing.T) {
	registry := NewRegistry()

	tests := []struct {
		name         string
		factoryName  string
		registration *Registration
	}{
		{
			name:        "empty name",
			factoryName: "",
			registration: &Registration{
				Factory: createMockComponent,
				Type:    TypeSource,
			},
		},
		{
			name:         "nil registration",
			factoryName:  "test",
			registration: nil,
		},
		{
			name:        "nil factory",
			factoryName: "test",
			registration: &Registration{
				Type: TypeSource,
			},
		},
		{
			name:        "missing type",
			factoryName: "test",
			registration: &Registration{
				Factory: createMockComponent,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := registry.RegisterFactory(tt.factoryName, tt.registration)
			if err == nil {
				t.Error("Expected validation error, got nil")
			}
		})
	}
}

func TestRegisterWithConfig(t *testing.T) {
	registry := NewRegistry()

	err := registry.RegisterWithConfig(RegistrationConfig{
		Name:        "arf-reader",
		Factory:     createMockComponent,
		Type:        TypeSource,
		Format:      "arf",
		Description: "Chunked reader",
		Version:     "1.0.0",
	})
	if err != nil {
		t.Fatalf("RegisterWithConfig failed: %v", err)
	}

	factories := registry.ListFactories()
	reg := factories["arf-reader"]
	if reg == nil {
		t.Fatal("Factory 'arf-reader' not found")
	}
	if reg.Type != TypeSource {
		t.Errorf("Expected type %q, got %q", TypeSource, reg.Type)
	}
	if reg.Format != "arf" {
		t.Errorf("Expected format 'arf', got %q", reg.Format)
	}
	if reg.Factory != nil {
		t.Error("ListFactories should not expose the factory function")
	}
}

func TestCreateComponent(t *testing.T) {
	registry := NewRegistry()

	err := registry.RegisterWithConfig(RegistrationConfig{
		Name:    "mock",
		Factory: createMockComponent,
		Type:    TypeSource,
	})
	if err != nil {
		t.Fatalf("Failed to register factory: %v", err)
	}

	config := InstanceConfig{
		Type:    TypeSource,
		Name:    "mock",
		Enabled: true,
		Config:  json.RawMessage(`{"name": "reader-main"}`),
	}

	comp, err := registry.CreateComponent("reader-main", config, Dependencies{})
	if err != nil {
		t.Fatalf("CreateComponent failed: %v", err)
	}
	if comp == nil {
		t.Fatal("CreateComponent returned nil component")
	}

	// Instance should be registered
	if registry.Component("reader-main") == nil {
		t.Error("Instance 'reader-main' not registered")
	}

	// Duplicate instance name should fail
	_, err = registry.CreateComponent("reader-main", config, Dependencies{})
	if err == nil {
		t.Error("Expected error for duplicate instance name")
	}
}

func TestCreateComponentErrors(t *testing.T) {
	registry := NewRegistry()

	if err := registry.RegisterWithConfig(RegistrationConfig{
		Name:    "mock",
		Factory: createMockComponent,
		Type:    TypeSource,
	}); err != nil {
		t.Fatalf("Failed to register mock factory: %v", err)
	}
	if err := registry.RegisterWithConfig(RegistrationConfig{
		Name:    "broken",
		Factory: failingFactory,
		Type:    TypeSink,
	}); err != nil {
		t.Fatalf("Failed to register broken factory: %v", err)
	}

	tests := []struct {
		name         string
		instanceName string
		config       InstanceConfig
		errorMsg     string
	}{
		{
			name:         "unknown factory",
			instanceName: "inst",
			config:       InstanceConfig{Type: TypeSource, Name: "missing"},
			errorMsg:     "unknown component factory",
		},
		{
			name:         "type mismatch",
			instanceName: "inst",
			config:       InstanceConfig{Type: TypeSink, Name: "mock"},
			errorMsg:     "is type",
		},
		{
			name:         "factory failure",
			instanceName: "inst",
			config:       InstanceConfig{Type: TypeSink, Name: "broken"},
			errorMsg:     "factory execution",
		},
		{
			name:         "invalid instance name",
			instanceName: "bad name with spaces",
			config:       InstanceConfig{Type: TypeSource, Name: "mock"},
			errorMsg:     "name validation",
		},
		{
			name:         "missing type",
			instanceName: "inst",
			config:       InstanceConfig{Name: "mock"},
			errorMsg:     "type validation",
		},
		{
			name:         "malformed config",
			instanceName: "inst",
			config: InstanceConfig{
				Type:   TypeSource,
				Name:   "mock",
				Config: json.RawMessage(`{"name": `),
			},
			errorMsg: "config validation",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := registry.CreateComponent(tt.instanceName, tt.config, Dependencies{})
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.errorMsg) {
				t.Errorf("Expected error containing %q, got: %v", tt.errorMsg, err)
			}
		})
	}
}

func TestResourceConflicts(t *testing.T) {
	registry := NewRegistry()

	first := &fileSinkComponent{path: "/tmp/out.txt"}
	second := &fileSinkComponent{path: "/tmp/out.txt"}
	other := &fileSinkComponent{path: "/tmp/other.txt"}

	if err := registry.RegisterInstance("sink-a", first); err != nil {
		t.Fatalf("First registration failed: %v", err)
	}

	// Same exclusive file resource should conflict
	err := registry.RegisterInstance("sink-b", second)
	if err == nil {
		t.Fatal("Expected resource conflict error")
	}
	if !strings.Contains(err.Error(), "resource conflict") {
		t.Errorf("Expected resource conflict error, got: %v", err)
	}

	// Different file is fine
	if err := registry.RegisterInstance("sink-c", other); err != nil {
		t.Errorf("Different resource should not conflict: %v", err)
	}

	// Unregistering releases the resource
	registry.UnregisterInstance("sink-a")
	if err := registry.RegisterInstance("sink-b", second); err != nil {
		t.Errorf("Resource should be free after unregister: %v", err)
	}
}

func TestSharedResourcesDoNotConflict(t *testing.T) {
	registry := NewRegistry()

	// Container ports are read-only and shared; two readers on the same
	// file must both register.
	readerA := NewMockComponent("reader-a", "source")
	readerB := NewMockComponent("reader-b", "source")

	if err := registry.RegisterInstance("reader-a", readerA); err != nil {
		t.Fatalf("First reader failed: %v", err)
	}
	if err := registry.RegisterInstance("reader-b", readerB); err != nil {
		t.Errorf("Shared container port should not conflict: %v", err)
	}
}

func TestComponentLookup(t *testing.T) {
	registry := NewRegistry()

	comp := NewMockComponent("lookup-test", "source")
	if err := registry.RegisterInstance("lookup-test", comp); err != nil {
		t.Fatalf("RegisterInstance failed: %v", err)
	}

	if got := registry.Component("lookup-test"); got != comp {
		t.Error("Component returned wrong instance")
	}

	if got := registry.Component("missing"); got != nil {
		t.Error("Component should return nil for unknown instance")
	}

	all := registry.ListComponents()
	if len(all) != 1 {
		t.Errorf("Expected 1 instance, got %d", len(all))
	}

	// Mutating the returned map must not affect the registry
	delete(all, "lookup-test")
	if registry.Component("lookup-test") == nil {
		t.Error("ListComponents must return a copy")
	}
}

func TestGetComponentSchema(t *testing.T) {
	registry := NewRegistry()

	schema := ConfigSchema{
		Properties: map[string]PropertySchema{
			"path": {Type: "string", Description: "Container path"},
		},
		Required: []string{"path"},
	}

	if err := registry.RegisterWithConfig(RegistrationConfig{
		Name:    "arf-reader",
		Factory: createMockComponent,
		Type:    TypeSource,
		Schema:  schema,
	}); err != nil {
		t.Fatalf("Registration failed: %v", err)
	}

	got, err := registry.GetComponentSchema("arf-reader")
	if err != nil {
		t.Fatalf("GetComponentSchema failed: %v", err)
	}
	if len(got.Required) != 1 || got.Required[0] != "path" {
		t.Errorf("Schema not preserved: %+v", got)
	}

	if _, err := registry.GetComponentSchema("missing"); err == nil {
		t.Error("Expected error for unknown component type")
	}
}

func TestListAvailable(t *testing.T) {
	registry := NewRegistry()

	if err := registry.RegisterWithConfig(RegistrationConfig{
		Name:        "arf-reader",
		Factory:     createMockComponent,
		Type:        TypeSource,
		Format:      "arf",
		Description: "Reader",
		Version:     "1.0.0",
	}); err != nil {
		t.Fatalf("Registration failed: %v", err)
	}
	if err := registry.RegisterWithConfig(RegistrationConfig{
		Name:    "stream-sink",
		Factory: createSimpleMockComponent,
		Type:    TypeSink,
		Format:  "text",
	}); err != nil {
		t.Fatalf("Registration failed: %v", err)
	}

	available := registry.ListAvailable()
	if len(available) != 2 {
		t.Fatalf("Expected 2 available types, got %d", len(available))
	}

	reader := available["arf-reader"]
	if reader.Type != "source" || reader.Format != "arf" {
		t.Errorf("Unexpected info for arf-reader: %+v", reader)
	}

	types := registry.ListComponentTypes()
	if len(types) != 2 {
		t.Errorf("Expected 2 factory names, got %d", len(types))
	}

	if _, ok := registry.GetFactory("stream-sink"); !ok {
		t.Error("GetFactory should find stream-sink")
	}
	if _, ok := registry.GetFactory("missing"); ok {
		t.Error("GetFactory should not find unknown factory")
	}
}

func TestConcurrentRegistryAccess(t *testing.T) {
	registry := NewRegistry()

	if err := registry.RegisterWithConfig(RegistrationConfig{
		Name:    "mock",
		Factory: createMockComponent,
		Type:    TypeSource,
	}); err != nil {
		t.Fatalf("Registration failed: %v", err)
	}

	var wg sync.WaitGroup
	errs := make([]error, 20)

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			name := fmt.Sprintf("inst-%d", idx)
			cfg := InstanceConfig{
				Type:   TypeSource,
				Name:   "mock",
				Config: json.RawMessage(fmt.Sprintf(`{"name": %q}`, name)),
			}
			_, errs[idx] = registry.CreateComponent(name, cfg, Dependencies{})
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("Concurrent create %d failed: %v", i, err)
		}
	}

	if got := len(registry.ListComponents()); got != 20 {
		t.Errorf("Expected 20 instances, got %d", got)
	}
}

func TestInstanceConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  InstanceConfig
		wantErr bool
	}{
		{"valid", InstanceConfig{Type: TypeSource, Name: "mock"}, false},
		{"missing type", InstanceConfig{Name: "mock"}, true},
		{"missing name", InstanceConfig{Type: TypeSink}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateComponentName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "reader", false},
		{"with dash", "arf-reader", false},
		{"with dots and underscore", "reader.main_1", false},
		{"empty", "", true},
		{"spaces", "bad name", true},
		{"slash", "bad/name", true},
		{"too long", strings.Repeat("a", MaxStringLength+1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateComponentName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateComponentName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
