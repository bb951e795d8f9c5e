package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// findMetaSchema locates the component meta-schema relative to the
// working directory, which differs between a repo-root invocation and
// a run from inside cmd/arfschema. Returns an absolute path.
func findMetaSchema() (string, error) {
	candidates := []string{
		"./specs/component-schema-meta.json",
		"../specs/component-schema-meta.json",
		"../../specs/component-schema-meta.json",
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return filepath.Abs(path)
		}
	}

	return "", fmt.Errorf("meta-schema not found in any of: %v", candidates)
}

// validateSchema checks one exported document against the meta-schema.
// The meta-schema constrains the shape every component schema must
// have: draft-07 header, object type, a property table, and complete
// x-component-metadata.
func validateSchema(schema ComponentSchema, metaSchemaPath string) error {
	absPath, err := filepath.Abs(metaSchemaPath)
	if err != nil {
		return fmt.Errorf("resolve meta-schema path: %w", err)
	}
	metaLoader := gojsonschema.NewReferenceLoader("file://" + absPath)

	doc, err := json.Marshal(schema)
	if err != nil {
		return fmt.Errorf("marshal schema for validation: %w", err)
	}
	docLoader := gojsonschema.NewBytesLoader(doc)

	result, err := gojsonschema.Validate(metaLoader, docLoader)
	if err != nil {
		return fmt.Errorf("run meta-schema validation: %w", err)
	}

	if !result.Valid() {
		var sb strings.Builder
		fmt.Fprintf(&sb, "%s does not satisfy the meta-schema:", schema.ID)
		for _, desc := range result.Errors() {
			fmt.Fprintf(&sb, "\n  %s: %s", desc.Field(), desc.Description())
		}
		return fmt.Errorf("%s", sb.String())
	}

	return nil
}
