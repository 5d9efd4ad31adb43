package schema

import (
	"encoding/json"
	"testing"
)

type convertInput struct {
	Amount float64 `json:"amount" jsonschema:"required,description=Amount to convert"`
	From   string  `json:"from_currency" jsonschema:"required,minLength=1,description=Source currency code"`
	To     string  `json:"to_currency" jsonschema:"required,minLength=1"`
	Note   string  `json:"note,omitempty"`
	Secret string  `json:"-"`
	hidden string
}

func TestGenerate(t *testing.T) {
	s, err := Generate(convertInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if s.Type != "object" {
		t.Errorf("Type = %q, want %q", s.Type, "object")
	}
	if len(s.Properties) != 4 {
		t.Fatalf("expected 4 properties, got %d", len(s.Properties))
	}

	tests := []struct {
		field    string
		wantType string
	}{
		{"amount", "number"},
		{"from_currency", "string"},
		{"to_currency", "string"},
		{"note", "string"},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			prop, ok := s.Properties[tt.field]
			if !ok {
				t.Fatalf("missing property %q", tt.field)
			}
			if prop.Type != tt.wantType {
				t.Errorf("Type = %q, want %q", prop.Type, tt.wantType)
			}
		})
	}

	if got := s.Properties["amount"].Description; got != "Amount to convert" {
		t.Errorf("amount description = %q", got)
	}
	if ml := s.Properties["from_currency"].MinLength; ml == nil || *ml != 1 {
		t.Errorf("from_currency minLength = %v, want 1", ml)
	}

	want := []string{"amount", "from_currency", "to_currency"}
	if len(s.Required) != len(want) {
		t.Fatalf("Required = %v, want %v", s.Required, want)
	}
	for i := range want {
		if s.Required[i] != want[i] {
			t.Errorf("Required[%d] = %q, want %q", i, s.Required[i], want[i])
		}
	}
}

func TestGenerate_Types(t *testing.T) {
	tests := []struct {
		name string
		v    any
		want string
	}{
		{"string", "", "string"},
		{"int", 0, "integer"},
		{"float", 0.0, "number"},
		{"bool", false, "boolean"},
		{"slice", []string{}, "array"},
		{"map", map[string]float64{}, "object"},
		{"pointer", new(convertInput), "object"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Generate(tt.v)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if s.Type != tt.want {
				t.Errorf("Type = %q, want %q", s.Type, tt.want)
			}
		})
	}
}

func TestSchema_MarshalJSON(t *testing.T) {
	s, err := Generate(struct {
		Currency string `json:"currency" jsonschema:"description=Currency code to filter"`
	}{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `{"type":"object","properties":{"currency":{"type":"string","description":"Currency code to filter"}}}`
	if string(got) != want {
		t.Errorf("Marshal() = %s, want %s", got, want)
	}
}
