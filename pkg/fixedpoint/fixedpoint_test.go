package fixedpoint

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestMarshalJSON_TwoPlaces(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"85", `"85.00"`},
		{"70.5", `"70.50"`},
		{"-0.1", `"-0.10"`},
		{"0", `"0.00"`},
		{"12345678.99", `"12345678.99"`},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			b, err := json.Marshal(MustParse(tt.in))
			if err != nil {
				t.Fatalf("Marshal() error: %v", err)
			}
			if string(b) != tt.want {
				t.Errorf("Marshal(%s) = %s, want %s", tt.in, b, tt.want)
			}
		})
	}
}

func TestUnmarshalJSON_NumberAndString(t *testing.T) {
	var body struct {
		A Decimal `json:"a"`
		B Decimal `json:"b"`
	}
	if err := json.Unmarshal([]byte(`{"a": 85, "b": "70.25"}`), &body); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if body.A.String() != "85.00" {
		t.Errorf("expected a = 85.00, got %s", body.A)
	}
	if body.B.String() != "70.25" {
		t.Errorf("expected b = 70.25, got %s", body.B)
	}
}

func TestUnmarshalJSON_ZeroExponentDropped(t *testing.T) {
	var d Decimal
	if err := json.Unmarshal([]byte(`"0e-20000000"`), &d); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if d.Exponent() != 0 || d.String() != "0.00" {
		t.Errorf("got %s with exponent %d, want 0.00 with exponent 0", d, d.Exponent())
	}
}

func TestUnmarshalJSON_Invalid(t *testing.T) {
	for _, raw := range []string{`"abc"`, `true`, `null`, `""`} {
		var d Decimal
		if err := d.UnmarshalJSON([]byte(raw)); !errors.Is(err, ErrInvalid) {
			t.Errorf("UnmarshalJSON(%s) error = %v, want ErrInvalid", raw, err)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		in   string
		want error
	}{
		{"85.00", nil},
		{"99999999.99", nil},
		{"-99999999.99", nil},
		{"1.005", ErrTooManyPlaces},
		{"100000000", ErrTooManyDigits},
		{"-100000000.00", ErrTooManyDigits},
		{"0.5e1", nil},
		{"1234e-2", nil},
		{"0e-20000000", nil},
		{"1e20000000", ErrTooManyDigits},
		{"-9e2147483647", ErrTooManyDigits},
		{"1e-20000000", ErrTooManyPlaces},
		{"12345e-2000000000", ErrTooManyPlaces},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			_, err := Parse(tt.in)
			if !errors.Is(err, tt.want) {
				t.Errorf("Parse(%s) error = %v, want %v", tt.in, err, tt.want)
			}
		})
	}
}

func TestBetween(t *testing.T) {
	min, max := MustParse("70"), MustParse("100")
	tests := []struct {
		score string
		want  bool
	}{
		{"85", true},
		{"60", false},
		{"70", true},
		{"100.00", true},
		{"100.01", false},
	}
	for _, tt := range tests {
		if got := MustParse(tt.score).Between(min, max); got != tt.want {
			t.Errorf("Between(%s, [70,100]) = %v, want %v", tt.score, got, tt.want)
		}
	}
}

func TestScanAndValue(t *testing.T) {
	var d Decimal
	if err := d.Scan("42.10"); err != nil {
		t.Fatalf("Scan() error: %v", err)
	}
	if d.String() != "42.10" {
		t.Errorf("expected 42.10 after scan, got %s", d)
	}
	v, err := d.Value()
	if err != nil {
		t.Fatalf("Value() error: %v", err)
	}
	if v != "42.1" {
		t.Errorf("expected driver value 42.1, got %v", v)
	}
}
