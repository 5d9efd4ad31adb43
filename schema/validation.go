package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
)

// Schema type constants.
const (
	typeObject  = "object"
	typeArray   = "array"
	typeString  = "string"
	typeInteger = "integer"
	typeNumber  = "number"
	typeBoolean = "boolean"
)

// ValidationError is one schema violation.
type ValidationError struct {
	Path    string // dotted path, e.g. "to_currency"
	Message string
}

func (e *ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return e.Path + ": " + e.Message
}

// ValidationErrors collects every violation found in one document.
type ValidationErrors []*ValidationError

func (e ValidationErrors) Error() string {
	switch len(e) {
	case 0:
		return ""
	case 1:
		return e[0].Error()
	}
	lines := make([]string, len(e))
	for i, err := range e {
		lines[i] = "  - " + err.Error()
	}
	return "validation failed:\n" + strings.Join(lines, "\n")
}

// Validate checks raw JSON arguments against the schema.
func (s *Schema) Validate(data json.RawMessage) error {
	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return &ValidationError{Message: fmt.Sprintf("invalid JSON: %s", err)}
	}
	return s.ValidateValue(value)
}

// ValidateValue checks a value as produced by encoding/json.
func (s *Schema) ValidateValue(value any) error {
	var w walker
	w.walk(s, "", value)
	if len(w.errs) > 0 {
		return w.errs
	}
	return nil
}

type walker struct {
	errs ValidationErrors
}

func (w *walker) fail(path, format string, args ...any) {
	w.errs = append(w.errs, &ValidationError{Path: path, Message: fmt.Sprintf(format, args...)})
}

func (w *walker) walk(s *Schema, path string, value any) {
	// null satisfies any type; presence is enforced through Required.
	if value == nil {
		return
	}

	switch s.Type {
	case typeObject:
		obj, ok := value.(map[string]any)
		if !ok {
			w.fail(path, "expected object, got %s", kindOf(value))
			return
		}
		w.object(s, path, obj)
	case typeArray:
		items, ok := value.([]any)
		if !ok {
			w.fail(path, "expected array, got %s", kindOf(value))
			return
		}
		if s.Items != nil {
			for i, item := range items {
				w.walk(s.Items, fmt.Sprintf("%s[%d]", path, i), item)
			}
		}
	case typeString:
		str, ok := value.(string)
		if !ok {
			w.fail(path, "expected string, got %s", kindOf(value))
			return
		}
		w.str(s, path, str)
	case typeInteger, typeNumber:
		num, ok := value.(float64)
		if !ok {
			w.fail(path, "expected %s, got %s", s.Type, kindOf(value))
			return
		}
		if s.Type == typeInteger && num != math.Trunc(num) {
			w.fail(path, "expected integer, got decimal number")
			return
		}
		w.bounds(s, path, num)
	case typeBoolean:
		if _, ok := value.(bool); !ok {
			w.fail(path, "expected boolean, got %s", kindOf(value))
		}
	}
}

func (w *walker) object(s *Schema, path string, obj map[string]any) {
	for _, name := range s.Required {
		if _, ok := obj[name]; !ok {
			w.fail(joinPath(path, name), "required field is missing")
		}
	}

	names := make([]string, 0, len(s.Properties))
	for name := range s.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if v, ok := obj[name]; ok {
			w.walk(s.Properties[name], joinPath(path, name), v)
		}
	}
}

// str checks string constraints. Length is counted after trimming, so a
// blank currency code fails minLength=1.
func (w *walker) str(s *Schema, path, str string) {
	if s.MinLength != nil && len([]rune(strings.TrimSpace(str))) < *s.MinLength {
		w.fail(path, "must be at least %d characters", *s.MinLength)
	}
	if len(s.Enum) == 0 {
		return
	}
	for _, e := range s.Enum {
		if e == str {
			return
		}
	}
	w.fail(path, "value must be one of: %v", s.Enum)
}

func (w *walker) bounds(s *Schema, path string, num float64) {
	if s.Minimum != nil && num < *s.Minimum {
		w.fail(path, "value %v is less than minimum %v", num, *s.Minimum)
	}
	if s.Maximum != nil && num > *s.Maximum {
		w.fail(path, "value %v is greater than maximum %v", num, *s.Maximum)
	}
}

// kindOf names the JSON type of a decoded value.
func kindOf(v any) string {
	switch v.(type) {
	case map[string]any:
		return typeObject
	case []any:
		return typeArray
	case string:
		return typeString
	case float64:
		return typeNumber
	case bool:
		return typeBoolean
	default:
		return fmt.Sprintf("%T", v)
	}
}

func joinPath(base, field string) string {
	if base == "" {
		return field
	}
	return base + "." + field
}
