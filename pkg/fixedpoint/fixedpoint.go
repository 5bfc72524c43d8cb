// Package fixedpoint provides the two-decimal numeric type used for scores
// and reference bounds. Values marshal to JSON as strings with exactly two
// fractional digits and map onto PostgreSQL NUMERIC(10,2) columns.
package fixedpoint

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	// Places is the number of fractional digits stored and rendered.
	Places = 2
	// MaxDigits is the total number of significant digits allowed.
	MaxDigits = 10
)

var (
	ErrTooManyPlaces = fmt.Errorf("ensure that there are no more than %d decimal places", Places)
	ErrTooManyDigits = fmt.Errorf("ensure that there are no more than %d digits before the decimal point", MaxDigits-Places)
	ErrInvalid       = errors.New("a valid number is required")
)

// Decimal is a fixed-point number with two fractional digits. The embedded
// decimal.Decimal supplies arithmetic plus database/sql scanning and valuing.
type Decimal struct {
	decimal.Decimal
}

// New returns the Decimal for value * 10^exp.
func New(value int64, exp int32) Decimal {
	return Decimal{decimal.New(value, exp)}
}

// Parse parses s and validates its precision.
func Parse(s string) (Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Decimal{}, ErrInvalid
	}
	out := Decimal{normalizeZero(d)}
	if err := out.Validate(); err != nil {
		return Decimal{}, err
	}
	return out, nil
}

// MustParse is Parse that panics on error. Intended for tests and constants.
func MustParse(s string) Decimal {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Validate checks that d fits NUMERIC(MaxDigits, Places) without rounding.
func (d Decimal) Validate() error {
	if d.IsZero() {
		return nil
	}
	// Bound the exponent before any comparison rescales the coefficient.
	digits, exp := int64(d.NumDigits()), int64(d.Exponent())
	if digits+exp > MaxDigits-Places {
		return ErrTooManyDigits
	}
	if exp < -(digits + Places) {
		return ErrTooManyPlaces
	}
	if !d.Equal(d.Truncate(Places)) {
		return ErrTooManyPlaces
	}
	limit := decimal.New(1, MaxDigits-Places)
	if d.Abs().GreaterThanOrEqual(limit) {
		return ErrTooManyDigits
	}
	return nil
}

// String renders d with exactly two fractional digits.
func (d Decimal) String() string {
	return d.StringFixed(Places)
}

// MarshalJSON renders d as a quoted string with two fractional digits.
func (d Decimal) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.StringFixed(Places) + `"`), nil
}

// UnmarshalJSON accepts a JSON number or a JSON string holding a number.
// Precision is checked separately by Validate so that field errors can be
// reported per field.
func (d *Decimal) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return ErrInvalid
	}
	var s string
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return ErrInvalid
		}
	} else {
		s = string(data)
	}
	parsed, err := decimal.NewFromString(s)
	if err != nil {
		return ErrInvalid
	}
	d.Decimal = normalizeZero(parsed)
	return nil
}

// normalizeZero drops the exponent of a zero value such as "0e-9999".
func normalizeZero(d decimal.Decimal) decimal.Decimal {
	if d.IsZero() {
		return decimal.Zero
	}
	return d
}

// Between reports whether min <= d <= max.
func (d Decimal) Between(min, max Decimal) bool {
	return d.GreaterThanOrEqual(min.Decimal) && d.LessThanOrEqual(max.Decimal)
}
