package component

import (
	"fmt"
	"sort"
)

// ValidationError describes a single configuration field that failed
// schema validation.
//
// Error codes are stable and machine-readable:
//   - "required": field is required but missing
//   - "min": numeric value below minimum
//   - "max": numeric value above maximum
//   - "enum": value not in allowed enum values
//   - "type": value does not match the declared type
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// ValidateConfig validates a configuration map against a ConfigSchema.
// It checks required fields, type constraints, min/max bounds, and enum
// values. Validation is lenient: unknown fields are allowed so configs
// survive schema evolution. Only declared properties are checked.
//
// The toolchain runs this against each stage's supplied config before
// the component factory is invoked, so operators get field-level errors
// instead of a failed constructor. Stages without a config block rely
// on factory defaults and skip this check.
//
// Returns all failures found; an empty slice means the config is valid.
func ValidateConfig(config map[string]any, schema ConfigSchema) []ValidationError {
	var errs []ValidationError

	for _, required := range schema.Required {
		if _, exists := config[required]; !exists {
			errs = append(errs, ValidationError{
				Field:   required,
				Message: fmt.Sprintf("Field %q is required", required),
				Code:    "required",
			})
		}
	}

	for fieldName, value := range config {
		propSchema, exists := schema.Properties[fieldName]
		if !exists {
			continue
		}

		if err := validateType(fieldName, value, propSchema); err != nil {
			errs = append(errs, *err)
			continue // skip range/enum checks when the type is already wrong
		}

		if len(propSchema.Enum) > 0 {
			if err := validateEnum(fieldName, value, propSchema.Enum); err != nil {
				errs = append(errs, *err)
			}
		}

		if propSchema.Type == "int" || propSchema.Type == "float" {
			if propSchema.Minimum != nil {
				if err := validateMin(fieldName, value, *propSchema.Minimum); err != nil {
					errs = append(errs, *err)
				}
			}
			if propSchema.Maximum != nil {
				if err := validateMax(fieldName, value, *propSchema.Maximum); err != nil {
					errs = append(errs, *err)
				}
			}
		}
	}

	return errs
}

// validateType checks if the value matches the declared type.
func validateType(fieldName string, value any, propSchema PropertySchema) *ValidationError {
	switch propSchema.Type {
	case "string":
		if _, ok := value.(string); !ok {
			return &ValidationError{
				Field:   fieldName,
				Message: fmt.Sprintf("Field %q must be a string", fieldName),
				Code:    "type",
			}
		}
	case "int":
		// JSON and YAML decoders may hand integers back as float64.
		switch value.(type) {
		case int, int32, int64, float64:
		default:
			return &ValidationError{
				Field:   fieldName,
				Message: fmt.Sprintf("Field %q must be an integer", fieldName),
				Code:    "type",
			}
		}
	case "bool":
		if _, ok := value.(bool); !ok {
			return &ValidationError{
				Field:   fieldName,
				Message: fmt.Sprintf("Field %q must be a boolean", fieldName),
				Code:    "type",
			}
		}
	case "float":
		switch value.(type) {
		case int, int32, int64, float32, float64:
		default:
			return &ValidationError{
				Field:   fieldName,
				Message: fmt.Sprintf("Field %q must be a number", fieldName),
				Code:    "type",
			}
		}
	}
	return nil
}

// validateEnum checks if the value is one of the allowed enum values.
func validateEnum(fieldName string, value any, enumValues []string) *ValidationError {
	strValue, ok := value.(string)
	if !ok {
		return &ValidationError{
			Field:   fieldName,
			Message: fmt.Sprintf("Field %q must be a string for enum validation", fieldName),
			Code:    "type",
		}
	}

	for _, allowed := range enumValues {
		if strValue == allowed {
			return nil
		}
	}

	return &ValidationError{
		Field:   fieldName,
		Message: fmt.Sprintf("Field %q must be one of: %v", fieldName, enumValues),
		Code:    "enum",
	}
}

// validateMin checks if a numeric value meets the minimum.
func validateMin(fieldName string, value any, minimum int) *ValidationError {
	numValue, err := asNumber(fieldName, value, "min")
	if err != nil {
		return err
	}
	if numValue < float64(minimum) {
		return &ValidationError{
			Field:   fieldName,
			Message: fmt.Sprintf("Field %q must be >= %d", fieldName, minimum),
			Code:    "min",
		}
	}
	return nil
}

// validateMax checks if a numeric value meets the maximum.
func validateMax(fieldName string, value any, maximum int) *ValidationError {
	numValue, err := asNumber(fieldName, value, "max")
	if err != nil {
		return err
	}
	if numValue > float64(maximum) {
		return &ValidationError{
			Field:   fieldName,
			Message: fmt.Sprintf("Field %q must be <= %d", fieldName, maximum),
			Code:    "max",
		}
	}
	return nil
}

func asNumber(fieldName string, value any, check string) (float64, *ValidationError) {
	switch v := value.(type) {
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case float32:
		return float64(v), nil
	case float64:
		return v, nil
	default:
		return 0, &ValidationError{
			Field:   fieldName,
			Message: fmt.Sprintf("Field %q must be numeric for %s validation", fieldName, check),
			Code:    "type",
		}
	}
}

// GetPropertyValue safely extracts a property value from a configuration
// map. Returns the value and true if the key exists. Nil-safe: a nil
// config returns (nil, false).
func GetPropertyValue(config map[string]any, key string) (any, bool) {
	if config == nil {
		return nil, false
	}
	value, exists := config[key]
	return value, exists
}

// SortedPropertyNames returns property names in display order: "basic"
// properties first, then "advanced", alphabetical within each category.
// Properties without an explicit Category default to "advanced". The CLI
// uses this to print component schemas deterministically.
func SortedPropertyNames(schema ConfigSchema) []string {
	var basic, advanced []string
	for name, prop := range schema.Properties {
		if prop.Category == "basic" {
			basic = append(basic, name)
		} else {
			advanced = append(advanced, name)
		}
	}
	sort.Strings(basic)
	sort.Strings(advanced)
	return append(basic, advanced...)
}
