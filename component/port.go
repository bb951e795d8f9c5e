package component

import (
	"encoding/json"
	"fmt"

	"github.com/c360/arfstream/errors"
)

// Direction for data flow
type Direction string

// Direction constants for port data flow
const (
	DirectionInput  Direction = "input"
	DirectionOutput Direction = "output"
)

// Port describes any I/O interface
type Port struct {
	Name        string    `json:"name"`
	Direction   Direction `json:"direction"`
	Required    bool      `json:"required"`
	Description string    `json:"description"`
	Config      Portable  `json:"config"`
}

// Portable is the minimal surface a port configuration exposes.
type Portable interface {
	ResourceID() string // Unique identifier for conflict detection
	IsExclusive() bool  // Whether multiple components can share
	Type() string       // Port type identifier
}

// MarshalJSON provides custom JSON marshaling for Port struct,
// wrapping the Portable config with its type discriminator.
func (p Port) MarshalJSON() ([]byte, error) {
	type PortAlias Port // Prevent infinite recursion

	wrapper := struct {
		PortAlias
		Config json.RawMessage `json:"config"`
	}{
		PortAlias: (PortAlias)(p),
	}

	if p.Config != nil {
		configWithType := struct {
			Type string `json:"type"`
			Data any    `json:"data"`
		}{
			Type: p.Config.Type(),
			Data: p.Config,
		}

		configBytes, err := json.Marshal(configWithType)
		if err != nil {
			return nil, errors.Wrap(err, "Port", "MarshalJSON", "config marshaling")
		}
		wrapper.Config = configBytes
	}

	return json.Marshal(wrapper)
}

// UnmarshalJSON reconstructs the typed Portable config from the type
// discriminator written by MarshalJSON.
func (p *Port) UnmarshalJSON(data []byte) error {
	type PortAlias Port

	temp := struct {
		*PortAlias
		Config json.RawMessage `json:"config"`
	}{
		PortAlias: (*PortAlias)(p),
	}

	if err := json.Unmarshal(data, &temp); err != nil {
		return err
	}

	// A nil Portable marshals as JSON null; treat both as absent.
	if len(temp.Config) == 0 || string(temp.Config) == "null" {
		return nil
	}

	var configWrapper struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(temp.Config, &configWrapper); err != nil {
		return errors.Wrap(err, "Port", "UnmarshalJSON", "config wrapper unmarshaling")
	}

	switch configWrapper.Type {
	case "container":
		var cfg ContainerPort
		if err := json.Unmarshal(configWrapper.Data, &cfg); err != nil {
			return errors.Wrap(err, "Port", "UnmarshalJSON", "container config unmarshaling")
		}
		p.Config = cfg
	case "stream":
		var cfg StreamPort
		if err := json.Unmarshal(configWrapper.Data, &cfg); err != nil {
			return errors.Wrap(err, "Port", "UnmarshalJSON", "stream config unmarshaling")
		}
		p.Config = cfg
	case "file":
		var cfg FilePort
		if err := json.Unmarshal(configWrapper.Data, &cfg); err != nil {
			return errors.Wrap(err, "Port", "UnmarshalJSON", "file config unmarshaling")
		}
		p.Config = cfg
	default:
		return errors.WrapInvalid(
			fmt.Errorf("unknown config type: %s", configWrapper.Type),
			"Port",
			"UnmarshalJSON",
			"config type validation",
		)
	}

	return nil
}
