// Package schema derives JSON Schemas for tool inputs from Go structs and
// validates raw tool arguments against them.
//
// Struct tags drive the generated schema:
//
//	type ConvertInput struct {
//	    Amount float64 `json:"amount" jsonschema:"required,description=Amount to convert"`
//	    From   string  `json:"from_currency" jsonschema:"required,minLength=1"`
//	}
package schema

import (
	"reflect"
	"strconv"
	"strings"
)

// Schema is the subset of JSON Schema used for tool input descriptions.
type Schema struct {
	Type        string             `json:"type,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Description string             `json:"description,omitempty"`
	Enum        []any              `json:"enum,omitempty"`
	MinLength   *int               `json:"minLength,omitempty"`
	Minimum     *float64           `json:"minimum,omitempty"`
	Maximum     *float64           `json:"maximum,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
}

// Generate creates a schema from a Go value.
func Generate(v any) (*Schema, error) {
	return generateFromType(reflect.TypeOf(v))
}

// GenerateFromType creates a schema from a reflect.Type.
func GenerateFromType(t reflect.Type) (*Schema, error) {
	return generateFromType(t)
}

func generateFromType(t reflect.Type) (*Schema, error) {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	switch t.Kind() {
	case reflect.Struct:
		return generateStructSchema(t)
	case reflect.String:
		return &Schema{Type: typeString}, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &Schema{Type: typeInteger}, nil
	case reflect.Float32, reflect.Float64:
		return &Schema{Type: typeNumber}, nil
	case reflect.Bool:
		return &Schema{Type: typeBoolean}, nil
	case reflect.Slice, reflect.Array:
		items, err := generateFromType(t.Elem())
		if err != nil {
			return nil, err
		}
		return &Schema{Type: typeArray, Items: items}, nil
	case reflect.Map:
		return &Schema{Type: typeObject}, nil
	default:
		return &Schema{}, nil
	}
}

func generateStructSchema(t reflect.Type) (*Schema, error) {
	s := &Schema{
		Type:       typeObject,
		Properties: make(map[string]*Schema),
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		jsonTag := field.Tag.Get("json")
		if jsonTag == "-" {
			continue
		}
		name := field.Name
		if n, _, _ := strings.Cut(jsonTag, ","); n != "" {
			name = n
		}

		fieldSchema, err := generateFromType(field.Type)
		if err != nil {
			return nil, err
		}
		if applyTag(field.Tag.Get("jsonschema"), fieldSchema) {
			s.Required = append(s.Required, name)
		}
		s.Properties[name] = fieldSchema
	}

	return s, nil
}

// applyTag applies a jsonschema struct tag and reports whether the field is required.
func applyTag(tag string, s *Schema) (required bool) {
	if tag == "" {
		return false
	}

	for _, part := range strings.Split(tag, ",") {
		key, value, _ := strings.Cut(strings.TrimSpace(part), "=")
		switch key {
		case "required":
			required = true
		case "description":
			s.Description = value
		case "minLength":
			if n, err := strconv.Atoi(value); err == nil {
				s.MinLength = &n
			}
		case "minimum":
			if f, err := strconv.ParseFloat(value, 64); err == nil {
				s.Minimum = &f
			}
		case "maximum":
			if f, err := strconv.ParseFloat(value, 64); err == nil {
				s.Maximum = &f
			}
		}
	}
	return required
}
