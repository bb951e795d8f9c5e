package toolchain

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/c360/arfstream/errors"
)

// Document is a set of named toolchain definitions, usually loaded
// from a YAML file.
type Document struct {
	Toolchains map[string]Definition `yaml:"toolchains"`
}

// Definition describes one pipeline: a source stage, an optional
// dispatch policy between source and sinks, and the terminal sinks.
type Definition struct {
	Description string          `yaml:"description,omitempty"`
	Source      Stage           `yaml:"source"`
	Dispatch    *DispatchPolicy `yaml:"dispatch,omitempty"`
	Sinks       []SinkStage     `yaml:"sinks"`
}

// Stage names a component factory and carries its configuration. The
// configuration is passed to the factory as JSON and validated against
// the factory's schema.
type Stage struct {
	Type   string         `yaml:"type"`
	Config map[string]any `yaml:"config,omitempty"`
}

// SinkStage is a terminal stage with an optional instance name and
// chunk filter. The filter is either a registered predicate name or an
// expression over the chunk fields (id, tags, rate, seconds, len).
type SinkStage struct {
	Stage  `yaml:",inline"`
	Name   string `yaml:"name,omitempty"`
	Filter string `yaml:"filter,omitempty"`
}

// DispatchPolicy routes the stream through one worker per chunk id
// between the source and the sinks. Async mode gives each worker its
// own goroutine and bounded queue.
type DispatchPolicy struct {
	Key       string `yaml:"key,omitempty"` // "id" is the only key and the default
	Async     bool   `yaml:"async,omitempty"`
	QueueSize int    `yaml:"queue_size,omitempty"` // per-worker queue depth in async mode, 0 = default
}

// Load reads a toolchain document from r. Unknown fields are rejected
// and every definition is validated before the document is returned.
func Load(r io.Reader) (*Document, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)

	var doc Document
	if err := decoder.Decode(&doc); err != nil {
		return nil, errors.WrapInvalid(err, "toolchain", "Load", "yaml parsing")
	}
	if len(doc.Toolchains) == 0 {
		return nil, errors.WrapInvalid(fmt.Errorf("document defines no toolchains"),
			"toolchain", "Load", "document check")
	}
	for name, def := range doc.Toolchains {
		if err := def.Validate(); err != nil {
			return nil, errors.Wrap(err, "toolchain", "Load", fmt.Sprintf("toolchain %q", name))
		}
	}
	return &doc, nil
}

// LoadFile reads a toolchain document from a YAML file.
func LoadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WrapInvalid(err, "toolchain", "LoadFile", "document open")
	}
	defer f.Close()
	return Load(f)
}

// Builtin returns the predefined toolchains available without a
// document file: view-raw dumps a container as readable text, and
// export-jsonl writes it as JSON lines. Both leave the container path
// to runtime overrides.
func Builtin() *Document {
	return &Document{
		Toolchains: map[string]Definition{
			"view-raw": {
				Description: "Inspect raw sampled data",
				Source:      Stage{Type: "arf-reader"},
				Sinks: []SinkStage{
					{Stage: Stage{Type: "stream-sink"}, Name: "dump"},
				},
			},
			"export-jsonl": {
				Description: "Export a container as JSON lines",
				Source:      Stage{Type: "arf-reader"},
				Sinks: []SinkStage{
					{
						Stage: Stage{Type: "stream-sink", Config: map[string]any{"format": "jsonl"}},
						Name:  "export",
					},
				},
			},
		},
	}
}

// Get returns the named definition.
func (d *Document) Get(name string) (Definition, error) {
	def, ok := d.Toolchains[name]
	if !ok {
		return Definition{}, errors.WrapInvalid(
			fmt.Errorf("unknown toolchain %q (available: %v)", name, d.Names()),
			"toolchain", "Get", "definition lookup")
	}
	return def, nil
}

// Names returns the defined toolchain names, sorted.
func (d *Document) Names() []string {
	names := make([]string, 0, len(d.Toolchains))
	for name := range d.Toolchains {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Validate checks the definition for structural errors. Stage
// configurations are not checked here; factory schemas cover those at
// assembly time.
func (def Definition) Validate() error {
	if def.Source.Type == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig,
			"Definition", "Validate", "source type check")
	}
	if len(def.Sinks) == 0 {
		return errors.WrapInvalid(fmt.Errorf("toolchain has no sinks"),
			"Definition", "Validate", "sink check")
	}
	for i, sink := range def.Sinks {
		if sink.Type == "" {
			return errors.WrapInvalid(fmt.Errorf("sink %d has no type", i),
				"Definition", "Validate", "sink type check")
		}
	}
	if def.Dispatch != nil {
		switch def.Dispatch.Key {
		case "", "id":
		default:
			return errors.WrapInvalid(fmt.Errorf("unsupported dispatch key %q", def.Dispatch.Key),
				"Definition", "Validate", "dispatch key check")
		}
		if def.Dispatch.QueueSize < 0 {
			return errors.WrapInvalid(fmt.Errorf("queue_size %d is negative", def.Dispatch.QueueSize),
				"Definition", "Validate", "queue size check")
		}
	}
	return nil
}

// WithSourceConfig returns a copy of the definition with overrides
// merged into the source configuration. Callers use it to fill in
// runtime values, like the container path, without mutating the
// loaded document.
func (def Definition) WithSourceConfig(overrides map[string]any) Definition {
	if len(overrides) == 0 {
		return def
	}
	merged := make(map[string]any, len(def.Source.Config)+len(overrides))
	for k, v := range def.Source.Config {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	def.Source.Config = merged
	return def
}

// configJSON renders a stage configuration for its component factory.
// An empty configuration becomes nil so factories apply their defaults.
func configJSON(config map[string]any) (json.RawMessage, error) {
	if len(config) == 0 {
		return nil, nil
	}
	return json.Marshal(config)
}
