package component

import (
	"log/slog"

	"github.com/c360/arfstream/filters"
	"github.com/c360/arfstream/metric"
)

// Dependencies provides all external dependencies needed by components.
// Factories receive it alongside their raw configuration so components
// get structured dependencies rather than individual fields.
type Dependencies struct {
	Metrics *metric.Registry  // Metrics registry for Prometheus (can be nil)
	Logger  *slog.Logger      // Structured logger (can be nil, defaults to slog.Default())
	Filters *filters.Registry // Named chunk predicates for target wiring (can be nil)
}

// GetLogger returns the configured logger or a default logger if none is provided
func (d *Dependencies) GetLogger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

// GetLoggerWithComponent returns a logger configured with component context
func (d *Dependencies) GetLoggerWithComponent(componentName string) *slog.Logger {
	return d.GetLogger().With("component", componentName)
}
