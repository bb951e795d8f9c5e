package component

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/c360/arfstream/errors"
)

// ConfigValidator bounds raw component configuration before a factory
// sees it: size, nesting depth, array length, and string length.
type ConfigValidator struct {
	maxDepth     int
	maxArraySize int
	maxStringLen int
	maxJSONSize  int
}

// NewConfigValidator creates a validator with default limits
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{
		maxDepth:     10,
		maxArraySize: 1000,
		maxStringLen: MaxStringLength,
		maxJSONSize:  MaxJSONSize,
	}
}

// ValidateFactoryConfig checks raw JSON config with default limits.
func ValidateFactoryConfig(rawConfig json.RawMessage) error {
	return NewConfigValidator().ValidateConfig(rawConfig)
}

// ValidateConfig performs validation on raw JSON config, rejecting
// malformed or oversized input before factory execution.
func (v *ConfigValidator) ValidateConfig(rawConfig json.RawMessage) error {
	if len(rawConfig) > v.maxJSONSize {
		return errors.WrapInvalid(
			fmt.Errorf("config size %d exceeds maximum %d", len(rawConfig), v.maxJSONSize),
			"ConfigValidator", "ValidateConfig", "size check")
	}

	// Empty config is valid (components can have defaults)
	if len(rawConfig) == 0 {
		return nil
	}

	var config any
	decoder := json.NewDecoder(strings.NewReader(string(rawConfig)))
	decoder.UseNumber()

	if err := decoder.Decode(&config); err != nil {
		return errors.WrapInvalid(err, "ConfigValidator", "ValidateConfig", "JSON parsing")
	}

	if err := v.validateValue(config, 0); err != nil {
		return errors.Wrap(err, "ConfigValidator", "ValidateConfig", "deep validation")
	}

	return nil
}

// validateValue recursively validates a JSON value
func (v *ConfigValidator) validateValue(value any, depth int) error {
	if depth > v.maxDepth {
		return errors.WrapInvalid(
			fmt.Errorf("JSON depth %d exceeds maximum %d", depth, v.maxDepth),
			"ConfigValidator", "validateValue", "depth check")
	}

	switch val := value.(type) {
	case string:
		if len(val) > v.maxStringLen {
			return errors.WrapInvalid(
				fmt.Errorf("string length %d exceeds maximum %d", len(val), v.maxStringLen),
				"ConfigValidator", "validateValue", "string length check")
		}
		if strings.ContainsRune(val, '\x00') {
			return errors.WrapInvalid(
				fmt.Errorf("string contains NUL byte"),
				"ConfigValidator", "validateValue", "string content check")
		}

	case json.Number:
		if _, err := val.Int64(); err != nil {
			if _, err := val.Float64(); err != nil {
				return errors.WrapInvalid(err, "ConfigValidator", "validateValue", "number validation")
			}
		}

	case []any:
		if len(val) > v.maxArraySize {
			return errors.WrapInvalid(
				fmt.Errorf("array size %d exceeds maximum %d", len(val), v.maxArraySize),
				"ConfigValidator", "validateValue", "array size check")
		}
		for i, elem := range val {
			if err := v.validateValue(elem, depth+1); err != nil {
				return errors.Wrap(err, "ConfigValidator", "validateValue",
					fmt.Sprintf("array element %d", i))
			}
		}

	case map[string]any:
		for key, elem := range val {
			if err := ValidateConfigKey(key); err != nil {
				return errors.Wrap(err, "ConfigValidator", "validateValue",
					fmt.Sprintf("key %q", key))
			}
			if err := v.validateValue(elem, depth+1); err != nil {
				return errors.Wrap(err, "ConfigValidator", "validateValue",
					fmt.Sprintf("value of %q", key))
			}
		}
	}

	return nil
}
