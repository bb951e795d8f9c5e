// Package component defines the contracts shared by arfstream pipeline
// stages: discovery metadata, lifecycle, stream plumbing, and the
// factory registry toolchains assemble stages from.
package component

import (
	"time"
)

// Discoverable is implemented by every pipeline stage so the registry
// and CLI can inspect capabilities, configuration, and health without
// knowing concrete types.
//
// Stage types:
// - Source components: read containers and emit chunk streams (reader)
// - Dispatch components: fan a stream out by key (dispatch)
// - Sink components: consume chunks (stream dump, recorder)
type Discoverable interface {
	// Meta returns basic component information
	Meta() Metadata

	// InputPorts returns the ports this component consumes data on
	InputPorts() []Port

	// OutputPorts returns the ports this component produces data on
	OutputPorts() []Port

	// ConfigSchema returns the configuration schema for this component
	ConfigSchema() ConfigSchema

	// Health returns current health status
	Health() HealthStatus
}

// Metadata describes what a component is
type Metadata struct {
	Name        string `json:"name"`
	Type        string `json:"type"` // "source", "dispatch", "sink"
	Description string `json:"description"`
	Version     string `json:"version"`
}

// ConfigSchema describes the configuration parameters for a component
type ConfigSchema struct {
	Properties map[string]PropertySchema `json:"properties"`
	Required   []string                  `json:"required"`
}

// PropertySchema describes a single configuration property
type PropertySchema struct {
	Type        string   `json:"type"` // "string", "int", "bool", "float", "enum", "array"
	Description string   `json:"description"`
	Default     any      `json:"default,omitempty"`
	Enum        []string `json:"enum,omitempty"`
	Minimum     *int     `json:"minimum,omitempty"`
	Maximum     *int     `json:"maximum,omitempty"`
	Category    string   `json:"category,omitempty"` // "basic" or "advanced"
}

// HealthStatus describes the current health state of a component
type HealthStatus struct {
	Healthy    bool          `json:"healthy"`
	LastCheck  time.Time     `json:"last_check"`
	ErrorCount int           `json:"error_count"`
	LastError  string        `json:"last_error,omitempty"`
	Uptime     time.Duration `json:"uptime"`
}

// FlowMetrics describes the data flow through a component since it
// started. Components expose it through the optional FlowReporter
// interface.
type FlowMetrics struct {
	ChunksPerSecond float64   `json:"chunks_per_second"`
	FramesPerSecond float64   `json:"frames_per_second"`
	ErrorRate       float64   `json:"error_rate"`
	LastActivity    time.Time `json:"last_activity"`
}

// FlowReporter is implemented by components that track their own
// throughput.
type FlowReporter interface {
	DataFlow() FlowMetrics
}
