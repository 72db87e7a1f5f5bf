package agent

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"sort"
	"strings"
)

// IndexToolDefinitions maps tool names to their definitions.
func IndexToolDefinitions(definitions []ToolDefinition) map[string]ToolDefinition {
	out := make(map[string]ToolDefinition, len(definitions))
	for i := range definitions {
		out[definitions[i].Name] = definitions[i]
	}
	return out
}

// ValidateToolDefinitions rejects empty or duplicate names and unknown kinds.
func ValidateToolDefinitions(definitions []ToolDefinition) error {
	seen := make(map[string]int, len(definitions))
	for i, definition := range definitions {
		if strings.TrimSpace(definition.Name) == "" {
			return fmt.Errorf("%w: index=%d reason=empty_name", ErrToolDefinitionsInvalid, i)
		}
		if first, exists := seen[definition.Name]; exists {
			return fmt.Errorf(
				"%w: index=%d name=%q reason=duplicate_name first_index=%d",
				ErrToolDefinitionsInvalid,
				i,
				definition.Name,
				first,
			)
		}
		seen[definition.Name] = i
		switch definition.Kind {
		case ToolKindInformation, ToolKindPlan:
		default:
			return fmt.Errorf(
				"%w: index=%d name=%q reason=unknown_kind value=%q",
				ErrToolDefinitionsInvalid,
				i,
				definition.Name,
				definition.Kind,
			)
		}
	}
	return nil
}

// ValidateToolCallArguments checks call arguments against the definition's input schema.
func ValidateToolCallArguments(call ToolCall, definition ToolDefinition) error {
	if err := validateObject("", definition.InputSchema, call.Arguments); err != nil {
		return fmt.Errorf("%w: tool=%q %v", ErrToolArgumentsInvalid, call.Name, err)
	}
	return nil
}

func validateObject(path string, schema map[string]any, arguments map[string]any) error {
	if len(schema) == 0 {
		return nil
	}

	required, err := parseRequiredFields(schema["required"])
	if err != nil {
		return err
	}
	for _, field := range required {
		if _, ok := arguments[field]; !ok {
			return fmt.Errorf("missing required argument %q", joinPath(path, field))
		}
	}

	properties, hasProperties := asStringAnyMap(schema["properties"])
	additionalAllowed, err := parseAdditionalProperties(schema["additionalProperties"])
	if err != nil {
		return err
	}

	for _, key := range sortedArgumentKeys(arguments) {
		propertySchema, hasProperty := properties[key]
		if !hasProperty {
			if hasProperties && !additionalAllowed {
				return fmt.Errorf("unknown argument %q", joinPath(path, key))
			}
			continue
		}
		if err := validateValue(joinPath(path, key), propertySchema, arguments[key]); err != nil {
			return err
		}
	}

	return nil
}

func validateValue(path string, rawSchema any, value any) error {
	propertyMap, ok := asStringAnyMap(rawSchema)
	if !ok {
		return errors.New(`input schema "properties" entries must be objects`)
	}
	expectedType, hasType, err := parsePropertyType(propertyMap)
	if err != nil {
		return err
	}
	if hasType && !matchesToolArgumentType(expectedType, value) {
		return fmt.Errorf("argument %q must be %q", path, expectedType)
	}
	if enum, ok := propertyMap["enum"]; ok && !enumContains(enum, value) {
		return fmt.Errorf("argument %q has unsupported value %v", path, value)
	}

	switch expectedType {
	case "object":
		nested, _ := value.(map[string]any)
		return validateObject(path, propertyMap, nested)
	case "array":
		items, hasItems := propertyMap["items"]
		if !hasItems {
			return nil
		}
		list := reflect.ValueOf(value)
		for i := 0; i < list.Len(); i++ {
			if err := validateValue(fmt.Sprintf("%s[%d]", path, i), items, list.Index(i).Interface()); err != nil {
				return err
			}
		}
	}
	return nil
}

func joinPath(parent, field string) string {
	if parent == "" {
		return field
	}
	return parent + "." + field
}

func enumContains(rawEnum any, value any) bool {
	switch enum := rawEnum.(type) {
	case []string:
		text, ok := value.(string)
		return ok && slices.Contains(enum, text)
	case []any:
		for _, candidate := range enum {
			if candidate == value {
				return true
			}
		}
		return false
	default:
		return true
	}
}

func parseRequiredFields(raw any) ([]string, error) {
	switch value := raw.(type) {
	case nil:
		return nil, nil
	case []string:
		out := make([]string, len(value))
		copy(out, value)
		return out, nil
	case []any:
		out := make([]string, 0, len(value))
		for _, item := range value {
			field, ok := item.(string)
			if !ok {
				return nil, errors.New(`input schema "required" entries must be strings`)
			}
			out = append(out, field)
		}
		return out, nil
	default:
		return nil, errors.New(`input schema "required" must be an array`)
	}
}

func parseAdditionalProperties(raw any) (bool, error) {
	switch value := raw.(type) {
	case nil:
		return true, nil
	case bool:
		return value, nil
	default:
		return false, errors.New(`input schema "additionalProperties" must be a bool`)
	}
}

func parsePropertyType(propertyMap map[string]any) (string, bool, error) {
	rawType, ok := propertyMap["type"]
	if !ok {
		return "", false, nil
	}
	typeName, ok := rawType.(string)
	if !ok {
		return "", false, errors.New(`input schema property "type" must be a string`)
	}
	return typeName, true, nil
}

func asStringAnyMap(raw any) (map[string]any, bool) {
	switch value := raw.(type) {
	case nil:
		return nil, false
	case map[string]any:
		return value, true
	default:
		return nil, false
	}
}

func sortedArgumentKeys(arguments map[string]any) []string {
	keys := make([]string, 0, len(arguments))
	for key := range arguments {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func matchesToolArgumentType(expected string, value any) bool {
	switch expected {
	case "string":
		_, ok := value.(string)
		return ok
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "number":
		return isNumber(value)
	case "integer":
		return isInteger(value)
	case "object":
		_, ok := value.(map[string]any)
		return ok
	case "array":
		if value == nil {
			return false
		}
		kind := reflect.TypeOf(value).Kind()
		return kind == reflect.Array || kind == reflect.Slice
	default:
		return true
	}
}

func isNumber(value any) bool {
	switch value.(type) {
	case int, int8, int16, int32, int64:
		return true
	case uint, uint8, uint16, uint32, uint64:
		return true
	case float32, float64:
		return true
	default:
		return false
	}
}

// isInteger accepts whole floats because JSON decoding yields float64 for every number.
func isInteger(value any) bool {
	switch typed := value.(type) {
	case int, int8, int16, int32, int64:
		return true
	case uint, uint8, uint16, uint32, uint64:
		return true
	case float64:
		return typed == float64(int64(typed))
	case float32:
		return typed == float32(int64(typed))
	default:
		return false
	}
}
