package subagent

import "fmt"

// Validate checks data against the schema subset this package supports:
// top-level type (always "object" for the envelope shapes this package
// validates), each declared property's type, and required-key presence.
// It returns every violation found rather than stopping at the first —
// callers decide whether violations are fatal (pre-flight) or warnings
// (post-flight).
func Validate(data map[string]any, schema *Schema) []string {
	if schema == nil {
		return nil
	}

	var issues []string
	for _, key := range schema.Required {
		if _, ok := data[key]; !ok {
			issues = append(issues, fmt.Sprintf("missing required property %q", key))
		}
	}

	for name, prop := range schema.Properties {
		v, ok := data[name]
		if !ok {
			continue // required-ness already checked above
		}
		if prop.Type == "" {
			continue
		}
		if !matchesType(v, prop.Type) {
			issues = append(issues, fmt.Sprintf("property %q: want type %q, got %s", name, prop.Type, jsonTypeName(v)))
		}
	}
	return issues
}

func matchesType(v any, want string) bool {
	got := jsonTypeName(v)
	if got == want {
		return true
	}
	return want == "number" && got == "integer" // integers satisfy a "number" declaration
}

// jsonTypeName classifies a decoded JSON value (as produced by
// encoding/json into map[string]any) into its JSON Schema type name.
func jsonTypeName(v any) string {
	switch vv := v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case string:
		return "string"
	case float64:
		if vv == float64(int64(vv)) {
			return "integer"
		}
		return "number"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	default:
		return "unknown"
	}
}
