// Command arfschema exports the configuration schema of every built-in
// component factory as a JSON Schema document. The output feeds editor
// completion and validation for toolchain YAML files, so the documents
// follow draft-07 with an x-component-metadata extension carrying the
// factory identity.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	"github.com/c360/arfstream/component"
	"github.com/c360/arfstream/componentregistry"
)

// ComponentSchema is the exported JSON Schema document for one factory.
type ComponentSchema struct {
	Schema      string                    `json:"$schema"`
	ID          string                    `json:"$id"`
	Type        string                    `json:"type"`
	Title       string                    `json:"title"`
	Description string                    `json:"description"`
	Properties  map[string]PropertySchema `json:"properties"`
	Required    []string                  `json:"required"`
	Metadata    ComponentMetadata         `json:"x-component-metadata"`
}

// PropertySchema is one configuration field in JSON Schema terms.
type PropertySchema struct {
	Type        string          `json:"type"`
	Description string          `json:"description,omitempty"`
	Default     any             `json:"default,omitempty"`
	Enum        []string        `json:"enum,omitempty"`
	Minimum     *int            `json:"minimum,omitempty"`
	Maximum     *int            `json:"maximum,omitempty"`
	Items       *PropertySchema `json:"items,omitempty"`
}

// ComponentMetadata identifies the factory a schema was extracted from.
type ComponentMetadata struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Format  string `json:"format,omitempty"`
	Version string `json:"version"`
}

// IndexEntry summarizes one factory in the index document.
type IndexEntry struct {
	Schema      string `json:"schema"`
	Type        string `json:"type"`
	Format      string `json:"format,omitempty"`
	Description string `json:"description"`
	Version     string `json:"version"`
}

func main() {
	outDir := flag.String("out", "./schemas", "Output directory for schema files")
	flag.Parse()

	log.Printf("Component schema export")
	log.Printf("  Output dir: %s", *outDir)

	registry := component.NewRegistry()
	if err := componentregistry.Register(registry); err != nil {
		log.Fatalf("Failed to register components: %v", err)
	}

	factories := registry.ListFactories()
	log.Printf("  Found %d component types", len(factories))

	meta, err := findMetaSchema()
	if err != nil {
		log.Printf("  Meta-schema not found, skipping validation: %v", err)
		meta = ""
	} else {
		log.Printf("  Using meta-schema: %s", meta)
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)

	index := make(map[string]IndexEntry, len(names))
	for _, name := range names {
		schema := extractSchema(name, factories[name])

		if meta != "" {
			if err := validateSchema(schema, meta); err != nil {
				log.Fatalf("Schema for %s failed validation: %v", name, err)
			}
		}

		outFile := filepath.Join(*outDir, fmt.Sprintf("%s.v1.json", name))
		if err := writeJSONSchema(outFile, schema); err != nil {
			log.Fatalf("Failed to write schema for %s: %v", name, err)
		}
		log.Printf("  Wrote %s", outFile)

		index[name] = IndexEntry{
			Schema:      schema.ID,
			Type:        schema.Metadata.Type,
			Format:      schema.Metadata.Format,
			Description: schema.Description,
			Version:     schema.Metadata.Version,
		}
	}

	indexFile := filepath.Join(*outDir, "index.json")
	if err := writeJSONSchema(indexFile, index); err != nil {
		log.Fatalf("Failed to write index: %v", err)
	}
	log.Printf("  Wrote %s", indexFile)
	log.Printf("Schema export complete")
}

// extractSchema converts a factory registration into a standalone JSON
// Schema document.
func extractSchema(name string, registration *component.Registration) ComponentSchema {
	properties := make(map[string]PropertySchema, len(registration.Schema.Properties))
	for propName, prop := range registration.Schema.Properties {
		jsonProp := PropertySchema{
			Type:        mapTypeToJSONSchema(prop.Type),
			Description: prop.Description,
			Default:     prop.Default,
			Enum:        prop.Enum,
			Minimum:     prop.Minimum,
			Maximum:     prop.Maximum,
		}
		if prop.Type == "array" {
			// Config arrays are string lists (channel and entry names).
			jsonProp.Items = &PropertySchema{Type: "string"}
		}
		properties[propName] = jsonProp
	}

	required := registration.Schema.Required
	if required == nil {
		required = []string{}
	}

	return ComponentSchema{
		Schema:      "http://json-schema.org/draft-07/schema#",
		ID:          fmt.Sprintf("%s.v1.json", name),
		Type:        "object",
		Title:       fmt.Sprintf("%s configuration", name),
		Description: registration.Description,
		Properties:  properties,
		Required:    required,
		Metadata: ComponentMetadata{
			Name:    name,
			Type:    string(registration.Type),
			Format:  registration.Format,
			Version: registration.Version,
		},
	}
}

// mapTypeToJSONSchema translates the registry's property types into JSON
// Schema type names. Enum-typed properties become strings constrained by
// their enum list.
func mapTypeToJSONSchema(propType string) string {
	switch propType {
	case "int", "float", "number":
		return "number"
	case "bool", "boolean":
		return "boolean"
	case "array":
		return "array"
	case "object":
		return "object"
	default:
		return "string"
	}
}

// writeJSONSchema writes any document as indented JSON.
func writeJSONSchema(path string, doc any) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
