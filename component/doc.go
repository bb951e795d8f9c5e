// Package component provides the component infrastructure for arfstream:
// discovery, registration, lifecycle management, and instance creation for
// the stages that make up a processing chain.
//
// # Overview
//
// The package defines the contracts shared by all arfstream pipeline stages,
// supporting three component types: sources (read chunks out of recordings),
// dispatchers (route chunks between stages), and sinks (consume or serialize
// chunks). Components are self-describing units that can be discovered at
// runtime, configured through schemas, and managed through their lifecycle.
//
// The Registry is the central component management system, handling both
// factory registration and instance management with thread-safe operations
// and resource-conflict tracking across exclusive ports.
//
// # Component Registration Pattern
//
// arfstream uses EXPLICIT registration rather than init() self-registration:
//   - Testability: isolated registries per test
//   - Explicitness: the dependency graph is visible in one place
//   - Control: the main application decides what gets registered
//   - No side effects: no global state mutated during package init
//
// Registration flow:
//
//  1. Each component package exports a Register(*Registry) error function
//  2. componentregistry.RegisterAll orchestrates all registrations
//  3. main.go explicitly calls RegisterAll with a fresh Registry
//  4. Components are now available for instantiation by the toolchain
//
// Example component registration:
//
//	// In reader/reader.go
//	func Register(registry *component.Registry) error {
//		return registry.RegisterWithConfig(component.RegistrationConfig{
//			Name:        "arf-reader",
//			Factory:     NewFromConfig,
//			Schema:      configSchema,
//			Type:        component.TypeSource,
//			Format:      "arf",
//			Description: "Reads chunks from an ARF recording in time order",
//			Version:     "1.0.0",
//		})
//	}
//
// # Data Flow Contracts
//
// Chunks move between stages through two small interfaces: Source drives a
// pull-based iteration (the caller supplies a yield callback and the source
// stops on the first error or context cancellation), and Sink accepts one
// chunk at a time. Targets pairs sinks with filter predicates so a source or
// dispatcher can fan out each chunk to whichever sinks want it; the list is
// shared and mutable, so targets added mid-run receive everything sent after
// the addition.
//
// # Lifecycle Management
//
// Components implementing LifecycleComponent move through Created ->
// Initialized -> Started -> Stopped, with Failed reachable from any state.
// The toolchain runner drives these transitions and stops components in
// reverse start order on shutdown.
//
// # Configuration Schemas
//
// Config structs declare their schema inline with `schema:` struct tags;
// GenerateConfigSchema reflects over the struct once at package init to
// produce the ConfigSchema served through Discoverable. ValidateConfig
// checks a raw config map against that schema before the factory runs.
package component
