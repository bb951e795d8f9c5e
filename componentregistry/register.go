// Package componentregistry wires the built-in component factories
// into a registry.
package componentregistry

import (
	stderrors "errors"

	"github.com/c360/arfstream/component"
	"github.com/c360/arfstream/errors"
	"github.com/c360/arfstream/reader"
	"github.com/c360/arfstream/sink/stream"
)

// Register registers the built-in component factories:
//
//   - arf-reader source (time-ordered container traversal)
//   - stream-sink sink (text or JSON lines chunk dump)
//
// Domain-specific stages live in their own modules and register
// themselves alongside these.
func Register(registry *component.Registry) error {
	// Nil registry is a programming error (fatal), not invalid input.
	if registry == nil {
		return errors.WrapFatal(
			stderrors.New("registry cannot be nil"),
			"ComponentRegistry", "Register", "registry validation")
	}

	if err := reader.Register(registry); err != nil {
		return errors.WrapInvalid(err, "ComponentRegistry", "Register", "ARF reader component registration")
	}

	if err := stream.Register(registry); err != nil {
		return errors.WrapInvalid(err, "ComponentRegistry", "Register", "stream sink component registration")
	}

	return nil
}
