package openapi

import (
	"fmt"

	"github.com/arolang/aro/internal/aroerr"
)

// Validator validates values against a Components table.
type Validator struct {
	components Components
}

// NewValidator binds a validator to a components/schemas table.
func NewValidator(components Components) *Validator {
	return &Validator{components: components}
}

// ValidateByName resolves schemaName in the components table and
// validates value against it.
func (v *Validator) ValidateByName(schemaName string, value any) []*aroerr.Error {
	schema, ok := v.components[schemaName]
	if !ok {
		return []*aroerr.Error{aroerr.New(aroerr.KindSchemaNotFound,
			fmt.Sprintf("schema %q not found in components", schemaName), nil).
			WithDetail("schema", schemaName)}
	}
	return v.Validate(schema, value, schemaName)
}

// Validate validates value against schema, collecting every violation
// rather than stopping at the first (so a caller can report "id must be
// integer" and "name is required" in a single pass).
func (v *Validator) Validate(schema *Schema, value any, path string) []*aroerr.Error {
	resolved, refErr := resolveRef(schema, v.components, nil)
	if refErr != nil {
		return []*aroerr.Error{refErr}
	}
	if resolved == nil {
		return nil
	}

	if value == nil {
		if resolved.Nullable {
			return nil
		}
		return []*aroerr.Error{typeMismatch(path, resolved.Type, "null")}
	}

	switch resolved.Type {
	case "", "any":
		return nil
	case "string":
		if _, ok := value.(string); !ok {
			return []*aroerr.Error{typeMismatch(path, "string", goTypeName(value))}
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			return []*aroerr.Error{typeMismatch(path, "boolean", goTypeName(value))}
		}
	case "integer":
		if !isIntegerValue(value) {
			return []*aroerr.Error{typeMismatch(path, "integer", goTypeName(value))}
		}
	case "number":
		// Integers are promotable to number.
		if !isIntegerValue(value) && !isFloatValue(value) {
			return []*aroerr.Error{typeMismatch(path, "number", goTypeName(value))}
		}
	case "array":
		return v.validateArray(resolved, value, path)
	case "object":
		return v.validateObject(resolved, value, path)
	default:
		return []*aroerr.Error{aroerr.New(aroerr.KindTypeMismatch,
			fmt.Sprintf("schema at %s declares unsupported type %q", path, resolved.Type), nil)}
	}
	return nil
}

func (v *Validator) validateArray(schema *Schema, value any, path string) []*aroerr.Error {
	items, ok := value.([]any)
	if !ok {
		return []*aroerr.Error{typeMismatch(path, "array", goTypeName(value))}
	}
	if schema.Items == nil {
		return nil
	}
	var errs []*aroerr.Error
	for i, item := range items {
		errs = append(errs, v.Validate(schema.Items, item, fmt.Sprintf("%s[%d]", path, i))...)
	}
	return errs
}

func (v *Validator) validateObject(schema *Schema, value any, path string) []*aroerr.Error {
	obj, ok := value.(map[string]any)
	if !ok {
		return []*aroerr.Error{typeMismatch(path, "object", goTypeName(value))}
	}

	var errs []*aroerr.Error
	for _, required := range schema.Required {
		if _, present := obj[required]; !present {
			errs = append(errs, aroerr.New(aroerr.KindMissingRequiredProperty,
				fmt.Sprintf("%s.%s is required", path, required), nil).
				WithDetail("property", required))
		}
	}

	// Unknown properties are preserved/permissive: we
	// only recurse into properties the schema actually declares.
	for name, propSchema := range schema.Properties {
		propValue, present := obj[name]
		if !present {
			continue
		}
		errs = append(errs, v.Validate(propSchema, propValue, path+"."+name)...)
	}
	return errs
}

func typeMismatch(path, expected, actual string) *aroerr.Error {
	return aroerr.New(aroerr.KindInvalidPropertyType,
		fmt.Sprintf("%s: expected %s, got %s", path, expected, actual), nil).
		WithDetail("path", path).
		WithDetail("expected", expected).
		WithDetail("actual", actual)
}

func goTypeName(value any) string {
	switch value.(type) {
	case string:
		return "string"
	case bool:
		return "boolean"
	case int, int32, int64:
		return "integer"
	case float64, float32:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%T", value)
	}
}

func isIntegerValue(value any) bool {
	switch n := value.(type) {
	case int, int32, int64:
		return true
	case float64:
		return n == float64(int64(n))
	case float32:
		return n == float32(int64(n))
	default:
		return false
	}
}

func isFloatValue(value any) bool {
	switch value.(type) {
	case float32, float64:
		return true
	default:
		return false
	}
}
