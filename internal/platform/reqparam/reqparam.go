// Package reqparam parses path, query and body parameters into typed
// values, reporting failures as apierr errors.
package reqparam

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/labdata/labdata/internal/platform/apierr"
	"github.com/labdata/labdata/pkg/fixedpoint"
)

// PathID parses the ":id" path parameter. A malformed id cannot name an
// existing row, so it is reported as apierr.ErrNotFound.
func PathID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, apierr.ErrNotFound
	}
	return id, nil
}

// UUID parses an optional UUID query parameter. It returns nil when the
// parameter is absent or empty.
func UUID(c echo.Context, name string) (*uuid.UUID, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, apierr.Field(name, "must be a valid UUID")
	}
	return &id, nil
}

// Bool parses an optional boolean query parameter. Accepted values are
// true/false and 1/0, case-insensitive.
func Bool(c echo.Context, name string) (*bool, error) {
	raw := strings.ToLower(strings.TrimSpace(c.QueryParam(name)))
	var v bool
	switch raw {
	case "":
		return nil, nil
	case "true", "1":
		v = true
	case "false", "0":
		v = false
	default:
		return nil, apierr.Field(name, "must be true or false")
	}
	return &v, nil
}

// String returns the trimmed query parameter, or "" when absent.
func String(c echo.Context, name string) string {
	return strings.TrimSpace(c.QueryParam(name))
}

// Bind decodes the request body into dst. Decoding failures become
// validation errors: type mismatches are reported against their field,
// anything else under "non_field_errors".
func Bind(c echo.Context, dst interface{}) error {
	err := c.Bind(dst)
	if err == nil {
		return nil
	}
	cause := err
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if he.Code == http.StatusUnsupportedMediaType {
			return he
		}
		if he.Internal != nil {
			cause = he.Internal
		}
	}
	var ute *json.UnmarshalTypeError
	if errors.As(cause, &ute) && ute.Field != "" {
		return apierr.Field(ute.Field, "invalid type, expected "+ute.Type.String())
	}
	var se *json.SyntaxError
	if errors.As(cause, &se) || errors.Is(cause, io.ErrUnexpectedEOF) {
		return apierr.Field(NonFieldErrors, "malformed JSON body")
	}
	return apierr.Field(NonFieldErrors, cause.Error())
}

// NonFieldErrors is the error key for problems not tied to one field.
const NonFieldErrors = "non_field_errors"

// UUIDField parses a body field holding a UUID. On failure it records a
// field error on v and returns uuid.Nil.
func UUIDField(v *apierr.ValidationError, field, raw string) uuid.UUID {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return uuid.Nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		v.Add(field, "must be a valid UUID")
		return uuid.Nil
	}
	return id
}

// TimeField parses an RFC 3339 body field. On failure it records a field
// error on v and returns the zero time.
func TimeField(v *apierr.ValidationError, field, raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		v.Add(field, "must be an RFC 3339 timestamp")
		return time.Time{}
	}
	return t.UTC()
}

// DecimalField parses a body field holding a fixed-point number, given as a
// JSON number or string. Absent or null values leave v untouched and return
// ok=false.
func DecimalField(v *apierr.ValidationError, field string, raw json.RawMessage) (fixedpoint.Decimal, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return fixedpoint.Decimal{}, false
	}
	var d fixedpoint.Decimal
	if err := d.UnmarshalJSON(raw); err != nil {
		v.Add(field, err.Error())
		return fixedpoint.Decimal{}, false
	}
	if err := d.Validate(); err != nil {
		v.Add(field, err.Error())
		return fixedpoint.Decimal{}, false
	}
	return d, true
}

// NullableStringField applies a nullable string body field to dst. An absent
// field leaves dst untouched and an explicit null clears it.
func NullableStringField(v *apierr.ValidationError, field string, raw json.RawMessage, dst **string) {
	if len(raw) == 0 {
		return
	}
	if string(raw) == "null" {
		*dst = nil
		return
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		v.Add(field, "must be a string")
		return
	}
	*dst = &s
}
