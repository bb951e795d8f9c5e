package component

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/c360/arfstream/errors"
)

// SchemaDirectives represents parsed schema tag directives.
//
// The schema tag keeps a Config struct and its ConfigSchema in one
// place: the struct declares fields with `json` and `schema` tags, and
// GenerateConfigSchema derives the schema once at init time.
//
// Tag syntax: comma-separated directives; key-value pairs use a colon,
// boolean flags have none, enum values are pipe-separated.
//
//	schema:"type:string,description:Channel pattern,category:basic"
//	schema:"type:int,description:Chunk multiple,min:1,default:64"
//	schema:"type:enum,description:Clock,enum:auto|timestamp|sample-count|frame-counter,default:auto"
//	schema:"required,type:string,description:Container path"
type SchemaDirectives struct {
	Type        string // REQUIRED - field type
	Description string // recommended; field name used when missing

	Category string // "basic" or "advanced"
	Default  any    // stored as string, converted during schema generation
	Required bool   // field must be provided
	Min      *int   // numeric minimum
	Max      *int   // numeric maximum
	Enum     []string
}

// ParseSchemaTag parses a schema struct tag into directives. It fails
// on an empty tag, a missing or invalid type directive, malformed
// syntax, or unparseable numeric values.
func ParseSchemaTag(tag string) (SchemaDirectives, error) {
	directives := SchemaDirectives{}

	if tag == "" {
		return directives, errors.WrapInvalid(
			fmt.Errorf("empty schema tag"),
			"SchemaTag", "ParseSchemaTag", "tag validation",
		)
	}

	parts := strings.Split(tag, ",")

	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		// Boolean flags (no colon)
		if !strings.Contains(part, ":") {
			if err := parseBooleanFlag(part, &directives); err != nil {
				return directives, err
			}
			continue
		}

		if err := parseKeyValueDirective(part, &directives); err != nil {
			return directives, err
		}
	}

	if directives.Type == "" {
		return directives, errors.WrapInvalid(
			fmt.Errorf("type directive is required"),
			"SchemaTag", "ParseSchemaTag", "required field validation",
		)
	}

	return directives, nil
}

// parseBooleanFlag parses boolean flags from schema tags
func parseBooleanFlag(flag string, directives *SchemaDirectives) error {
	switch flag {
	case "required":
		directives.Required = true
	default:
		return errors.WrapInvalid(
			fmt.Errorf("unknown boolean flag: %s", flag),
			"SchemaTag", "parseBooleanFlag", "flag parsing",
		)
	}
	return nil
}

// parseKeyValueDirective parses key:value directives from schema tags
func parseKeyValueDirective(part string, directives *SchemaDirectives) error {
	kv := strings.SplitN(part, ":", 2)
	if len(kv) != 2 {
		return errors.WrapInvalid(
			fmt.Errorf("invalid directive format: %s", part),
			"SchemaTag", "parseKeyValueDirective", "directive parsing",
		)
	}

	key := strings.TrimSpace(kv[0])
	value := strings.TrimSpace(kv[1])

	if value == "" {
		return errors.WrapInvalid(
			fmt.Errorf("empty value for directive: %s", key),
			"SchemaTag", "parseKeyValueDirective", "value validation",
		)
	}

	switch key {
	case "type":
		if !isValidType(value) {
			return errors.WrapInvalid(
				fmt.Errorf("invalid type: %s", value),
				"SchemaTag", "parseKeyValueDirective", "type validation",
			)
		}
		directives.Type = value

	case "description":
		directives.Description = value

	case "category":
		if value != "basic" && value != "advanced" {
			return errors.WrapInvalid(
				fmt.Errorf("invalid category: %s (must be 'basic' or 'advanced')", value),
				"SchemaTag", "parseKeyValueDirective", "category validation",
			)
		}
		directives.Category = value

	case "default":
		// Stored as string, converted during schema generation.
		directives.Default = value

	case "min":
		n, err := strconv.Atoi(value)
		if err != nil {
			return errors.WrapInvalid(
				fmt.Errorf("invalid min value: %s", value),
				"SchemaTag", "parseKeyValueDirective", "min parsing",
			)
		}
		directives.Min = &n

	case "max":
		n, err := strconv.Atoi(value)
		if err != nil {
			return errors.WrapInvalid(
				fmt.Errorf("invalid max value: %s", value),
				"SchemaTag", "parseKeyValueDirective", "max parsing",
			)
		}
		directives.Max = &n

	case "enum":
		directives.Enum = strings.Split(value, "|")
		for i := range directives.Enum {
			directives.Enum[i] = strings.TrimSpace(directives.Enum[i])
		}

	default:
		return errors.WrapInvalid(
			fmt.Errorf("unknown directive: %s", key),
			"SchemaTag", "parseKeyValueDirective", "directive validation",
		)
	}

	return nil
}

// isValidType checks if a type string is valid
func isValidType(t string) bool {
	validTypes := []string{
		"string", "int", "bool", "float",
		"enum", "array", "object",
	}
	for _, valid := range validTypes {
		if t == valid {
			return true
		}
	}
	return false
}

// GenerateConfigSchema generates a ConfigSchema from a struct type
// using reflection. Call it once at package init and cache the result
// in a package-level variable; runtime access then costs nothing.
//
//	type Config struct {
//	    Path  string `json:"path"  schema:"required,type:string,description:Container path"`
//	    Start float64 `json:"start" schema:"type:float,description:Window start in seconds"`
//	}
//
//	var schema = component.GenerateConfigSchema(reflect.TypeOf(Config{}))
//
// Only exported fields with both `json` and `schema` tags are
// included; fields with invalid schema tags are skipped rather than
// failing the whole schema.
func GenerateConfigSchema(configType reflect.Type) ConfigSchema {
	schema := ConfigSchema{
		Properties: make(map[string]PropertySchema),
		Required:   []string{},
	}

	if configType.Kind() == reflect.Ptr {
		configType = configType.Elem()
	}
	if configType.Kind() != reflect.Struct {
		return schema
	}

	for i := 0; i < configType.NumField(); i++ {
		field := configType.Field(i)

		jsonTag := field.Tag.Get("json")
		if jsonTag == "" || jsonTag == "-" {
			continue
		}
		fieldName := strings.Split(jsonTag, ",")[0]
		if fieldName == "" {
			continue
		}

		schemaTag := field.Tag.Get("schema")
		if schemaTag == "" {
			continue
		}

		directives, err := ParseSchemaTag(schemaTag)
		if err != nil {
			// Graceful degradation: a bad tag drops one field, not the schema.
			continue
		}

		description := directives.Description
		if description == "" {
			description = fieldName
		}

		schema.Properties[fieldName] = PropertySchema{
			Type:        directives.Type,
			Description: description,
			Category:    directives.Category,
			Default:     convertDefault(directives.Default, directives.Type),
			Minimum:     directives.Min,
			Maximum:     directives.Max,
			Enum:        directives.Enum,
		}

		if directives.Required {
			schema.Required = append(schema.Required, fieldName)
		}
	}

	return schema
}

// convertDefault converts a default value string to the appropriate type
func convertDefault(value any, fieldType string) any {
	if value == nil {
		return nil
	}

	valueStr, ok := value.(string)
	if !ok {
		return value
	}

	switch fieldType {
	case "string", "enum":
		return valueStr

	case "int":
		n, err := strconv.Atoi(valueStr)
		if err != nil {
			return nil
		}
		return n

	case "bool":
		b, err := strconv.ParseBool(valueStr)
		if err != nil {
			return nil
		}
		return b

	case "float":
		f, err := strconv.ParseFloat(valueStr, 64)
		if err != nil {
			return nil
		}
		return f

	case "array":
		if valueStr == "" {
			return []string{}
		}
		return []string{valueStr}
	}

	return valueStr
}
