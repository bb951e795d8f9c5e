package component

import (
	"encoding/json"
	"fmt"
	"maps"
	"strings"
	"sync"

	"github.com/c360/arfstream/errors"
)

// Type classifies a component's role in a toolchain.
type Type string

// Component types assembled by toolchains.
const (
	TypeSource   Type = "source"
	TypeDispatch Type = "dispatch"
	TypeSink     Type = "sink"
)

// InstanceConfig provides configuration for creating a component instance
type InstanceConfig struct {
	Type    Type            `json:"type"`    // Component type (source/dispatch/sink)
	Name    string          `json:"name"`    // Factory name (e.g., "arf-reader", "stream-sink")
	Enabled bool            `json:"enabled"` // Whether component is enabled
	Config  json.RawMessage `json:"config"`  // Component-specific configuration
}

// Validate ensures the instance configuration is complete
func (c InstanceConfig) Validate() error {
	if c.Type == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig, "InstanceConfig", "Validate", "component type check")
	}
	if c.Name == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig, "InstanceConfig", "Validate", "factory name check")
	}
	return nil
}

// Info holds metadata about an available component type
type Info struct {
	Type        string `json:"type"`        // "source", "dispatch", "sink"
	Format      string `json:"format"`      // Data format handled (arf, text, jsonl, stream)
	Description string `json:"description"` // Human-readable description
	Version     string `json:"version"`     // Component version
}

// Factory creates a component instance from configuration. The factory
// receives raw JSON configuration and dependencies, parses its own
// config, and returns an initialized component implementing
// Discoverable. I/O belongs in the component's Start method, not in
// the factory.
type Factory func(rawConfig json.RawMessage, deps Dependencies) (Discoverable, error)

// Registration holds factory and metadata for a component type
type Registration struct {
	Name        string       `json:"name"`        // Factory name (e.g., "arf-reader")
	Type        Type         `json:"type"`        // Component type (source/dispatch/sink)
	Format      string       `json:"format"`      // Data format handled
	Description string       `json:"description"` // Human-readable description
	Version     string       `json:"version"`     // Component version
	Schema      ConfigSchema `json:"schema"`      // Schema as static metadata
	Factory     Factory      `json:"-"`           // Factory function (not serializable)
}

// RegistrationConfig provides a clean API for component registration.
// It maps 1:1 to Registration fields.
type RegistrationConfig struct {
	Name        string       // Factory name
	Factory     Factory      // Factory function to create component instances
	Schema      ConfigSchema // Configuration schema for validation and discovery
	Type        Type         // Component type: source, dispatch, sink
	Format      string       // Data format handled (arf, text, jsonl, stream)
	Description string       // Human-readable description of the component
	Version     string       // Component version (semver recommended)
}

// Registry manages component factories and instances. It provides
// thread-safe registration and lookup of both factories (for creation)
// and instances (for discovery and management).
type Registry struct {
	factories       map[string]*Registration // Factory registry by name
	instances       map[string]Discoverable  // Instance registry by name
	resourceTracker map[string]string        // Resource ID -> instance name
	mu              sync.RWMutex             // Protects all maps
}

// NewRegistry creates a new empty component registry
func NewRegistry() *Registry {
	return &Registry{
		factories:       make(map[string]*Registration),
		instances:       make(map[string]Discoverable),
		resourceTracker: make(map[string]string),
	}
}

// RegisterFactory registers a component factory with the given name.
// Returns an error if a factory with the same name is already registered.
func (r *Registry) RegisterFactory(name string, registration *Registration) error {
	if name == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Registry", "RegisterFactory", "factory name validation")
	}
	if registration == nil {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Registry", "RegisterFactory", "registration validation")
	}
	if registration.Factory == nil {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Registry", "RegisterFactory", "factory function validation")
	}
	if registration.Type == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Registry", "RegisterFactory", "component type validation")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		msg := fmt.Errorf("factory '%s' is already registered", name)
		return errors.WrapInvalid(msg, "Registry", "RegisterFactory", "duplicate factory check")
	}

	r.factories[name] = registration
	return nil
}

// RegisterWithConfig registers a component using a configuration struct.
//
// Example usage:
//
//	registry.RegisterWithConfig(component.RegistrationConfig{
//	    Name:        "arf-reader",
//	    Factory:     reader.Create,
//	    Schema:      reader.Schema,
//	    Type:        component.TypeSource,
//	    Format:      "arf",
//	    Description: "Chunked time-ordered reader for ARF containers",
//	    Version:     "1.0.0",
//	})
func (r *Registry) RegisterWithConfig(config RegistrationConfig) error {
	registration := &Registration{
		Name:        config.Name,
		Factory:     config.Factory,
		Schema:      config.Schema,
		Type:        config.Type,
		Format:      config.Format,
		Description: config.Description,
		Version:     config.Version,
	}

	return r.RegisterFactory(config.Name, registration)
}

// CreateComponent creates and registers a new component instance. The
// instanceName is the unique identifier for this instance (e.g.
// "reader-main"); config names the factory and carries the
// component-specific configuration. Factories don't do I/O, so no
// context is needed.
func (r *Registry) CreateComponent(
	instanceName string, config InstanceConfig, deps Dependencies,
) (Discoverable, error) {
	if err := ValidateComponentName(instanceName); err != nil {
		return nil, errors.Wrap(err, "Registry", "CreateComponent", "instance name validation")
	}
	if config.Type == "" {
		return nil, errors.WrapInvalid(
			errors.ErrInvalidConfig, "Registry", "CreateComponent", "component type validation")
	}
	if err := ValidateComponentName(config.Name); err != nil {
		return nil, errors.Wrap(err, "Registry", "CreateComponent", "factory name validation")
	}

	// Reject malformed or oversized configuration before factory execution.
	if err := ValidateFactoryConfig(config.Config); err != nil {
		return nil, errors.Wrap(err, "Registry", "CreateComponent", "config validation")
	}

	r.mu.RLock()
	registration, exists := r.factories[config.Name]
	r.mu.RUnlock()

	if !exists {
		msg := fmt.Errorf("unknown component factory '%s'", config.Name)
		return nil, errors.WrapInvalid(msg, "Registry", "CreateComponent", "factory lookup")
	}

	if registration.Type != config.Type {
		msg := fmt.Errorf("component '%s' is type '%s', not '%s'",
			config.Name, registration.Type, config.Type)
		return nil, errors.WrapInvalid(msg, "Registry", "CreateComponent", "type validation")
	}

	component, err := registration.Factory(config.Config, deps)
	if err != nil {
		return nil, errors.Wrap(err, "Registry", "CreateComponent", "factory execution")
	}

	if err := r.RegisterInstance(instanceName, component); err != nil {
		return nil, errors.Wrap(err, "Registry", "CreateComponent", "instance registration")
	}

	return component, nil
}

// RegisterInstance registers a component instance with the given name
// so the instance can be discovered and managed. Returns an error if
// an instance with the same name is already registered or one of its
// exclusive resources is already claimed.
func (r *Registry) RegisterInstance(name string, component Discoverable) error {
	if name == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Registry", "RegisterInstance", "instance name validation")
	}
	if component == nil {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Registry", "RegisterInstance", "component validation")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.instances[name]; exists {
		msg := fmt.Errorf("instance '%s' is already registered", name)
		return errors.WrapInvalid(msg, "Registry", "RegisterInstance", "duplicate instance check")
	}

	if err := r.checkResourceConflicts(component); err != nil {
		return errors.Wrap(err, "Registry", "RegisterInstance", "resource conflict check")
	}

	r.instances[name] = component
	r.trackComponentResources(name, component)

	return nil
}

// UnregisterInstance removes a component instance from the registry.
// This is typically called when a component is stopped or destroyed.
func (r *Registry) UnregisterInstance(name string) {
	if name == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if component, exists := r.instances[name]; exists {
		r.untrackComponentResources(name, component)
	}

	delete(r.instances, name)
}

// ListComponents returns all registered component instances.
func (r *Registry) ListComponents() map[string]Discoverable {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]Discoverable, len(r.instances))
	maps.Copy(result, r.instances)

	return result
}

// Component retrieves a specific component instance by name.
// Returns nil if the component is not found.
func (r *Registry) Component(name string) Discoverable {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.instances[name]
}

// GetComponentSchema retrieves a component's schema directly from
// Registration metadata, without instantiating anything.
func (r *Registry) GetComponentSchema(name string) (ConfigSchema, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	registration, exists := r.factories[name]
	if !exists {
		return ConfigSchema{}, errors.WrapInvalid(
			fmt.Errorf("component type %q not found", name),
			"Registry", "GetComponentSchema", "type lookup")
	}

	return registration.Schema, nil
}

// ListComponentTypes returns all registered component factory type
// names (factory names, not instance names).
func (r *Registry) ListComponentTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}

	return names
}

// ListFactories returns all registered component factories, without
// the factory functions.
func (r *Registry) ListFactories() map[string]*Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]*Registration, len(r.factories))
	for name, registration := range r.factories {
		result[name] = &Registration{
			Name:        registration.Name,
			Type:        registration.Type,
			Format:      registration.Format,
			Description: registration.Description,
			Version:     registration.Version,
			Schema:      registration.Schema,
		}
	}

	return result
}

// GetFactory returns a specific factory function by name.
func (r *Registry) GetFactory(name string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	registration, exists := r.factories[name]
	if !exists {
		return nil, false
	}
	return registration.Factory, true
}

// ListAvailable returns information about all available component types.
func (r *Registry) ListAvailable() map[string]Info {
	factories := r.ListFactories()
	result := make(map[string]Info, len(factories))

	for name, registration := range factories {
		result[name] = Info{
			Type:        string(registration.Type),
			Format:      registration.Format,
			Description: registration.Description,
			Version:     registration.Version,
		}
	}

	return result
}

// checkResourceConflicts checks whether any of the component's
// exclusive ports are already claimed. Caller holds r.mu.
func (r *Registry) checkResourceConflicts(component Discoverable) error {
	allPorts := append(component.InputPorts(), component.OutputPorts()...)

	for _, port := range allPorts {
		if port.Config == nil || !port.Config.IsExclusive() {
			continue
		}
		resourceID := port.Config.ResourceID()
		if existingInstance, exists := r.resourceTracker[resourceID]; exists {
			msg := fmt.Errorf("resource conflict: %s already used by component '%s'",
				resourceID, existingInstance)
			return errors.WrapInvalid(msg, "Registry", "checkResourceConflicts",
				"exclusive resource check")
		}
	}

	return nil
}

// trackComponentResources adds component resources to the tracker.
// Caller holds r.mu.
func (r *Registry) trackComponentResources(instanceName string, component Discoverable) {
	allPorts := append(component.InputPorts(), component.OutputPorts()...)

	for _, port := range allPorts {
		if port.Config != nil && port.Config.IsExclusive() {
			r.resourceTracker[port.Config.ResourceID()] = instanceName
		}
	}
}

// untrackComponentResources removes component resources from the
// tracker. Caller holds r.mu.
func (r *Registry) untrackComponentResources(instanceName string, component Discoverable) {
	allPorts := append(component.InputPorts(), component.OutputPorts()...)

	for _, port := range allPorts {
		if port.Config == nil || !port.Config.IsExclusive() {
			continue
		}
		resourceID := port.Config.ResourceID()
		if r.resourceTracker[resourceID] == instanceName {
			delete(r.resourceTracker, resourceID)
		}
	}
}

// Name and size limits applied before factory execution.
const (
	MaxStringLength = 1024        // Maximum length for string values
	MaxJSONSize     = 1024 * 1024 // Maximum JSON size (1MB)
)

// ValidateComponentName validates component/instance names: non-empty,
// bounded, and limited to alphanumerics plus dash, underscore, dot.
func ValidateComponentName(name string) error {
	if name == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Registry", "ValidateComponentName", "empty name")
	}
	if len(name) > MaxStringLength {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Registry", "ValidateComponentName", "name too long")
	}
	for _, r := range name {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '-' || r == '_' || r == '.') {
			return errors.WrapInvalid(
				errors.ErrInvalidConfig, "Registry", "ValidateComponentName",
				"invalid name characters")
		}
	}
	return nil
}

// ValidateConfigKey checks if a configuration key is valid
func ValidateConfigKey(key string) error {
	if key == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Registry", "ValidateConfigKey", "empty key")
	}
	if len(key) > MaxStringLength {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Registry", "ValidateConfigKey", "key too long")
	}
	if strings.ContainsAny(key, "\x00\n\r\t") {
		return errors.WrapInvalid(
			errors.ErrInvalidConfig,
			"Registry",
			"ValidateConfigKey",
			"invalid key characters",
		)
	}
	return nil
}
