// Package apierr defines the error values shared by services and handlers
// and renders them as JSON HTTP responses.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// ErrNotFound is returned by repositories when no row matches an id.
var ErrNotFound = errors.New("not found")

// ValidationError carries one message per offending request field.
type ValidationError struct {
	Fields map[string]string
}

// NewValidation returns an empty ValidationError ready for Add calls.
func NewValidation() *ValidationError {
	return &ValidationError{Fields: make(map[string]string)}
}

// Field returns a ValidationError for a single field.
func Field(field, message string) *ValidationError {
	v := NewValidation()
	v.Add(field, message)
	return v
}

// Add records message for field. The first message per field wins.
func (v *ValidationError) Add(field, message string) {
	if _, exists := v.Fields[field]; !exists {
		v.Fields[field] = message
	}
}

// Required records the standard missing-field message.
func (v *ValidationError) Required(field string) {
	v.Add(field, "this field is required")
}

// MaxLength records an error when value is longer than n characters.
func (v *ValidationError) MaxLength(field, value string, n int) {
	if utf8.RuneCountInString(value) > n {
		v.Add(field, fmt.Sprintf("ensure this field has no more than %d characters", n))
	}
}

// Err returns v when it holds at least one field, nil otherwise.
func (v *ValidationError) Err() error {
	if len(v.Fields) == 0 {
		return nil
	}
	return v
}

func (v *ValidationError) Error() string {
	keys := make([]string, 0, len(v.Fields))
	for k := range v.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+v.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Body is the JSON error envelope.
type Body struct {
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// ToHTTP maps a service or repository error onto an *echo.HTTPError.
// Errors that are already HTTP errors pass through; unknown errors become
// 500 with the original kept as Internal for logging.
func ToHTTP(err error) *echo.HTTPError {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return &echo.HTTPError{
			Code:    http.StatusBadRequest,
			Message: Body{Message: "validation failed", Errors: ve.Fields},
		}
	}
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	}
	return &echo.HTTPError{
		Code:     http.StatusInternalServerError,
		Message:  http.StatusText(http.StatusInternalServerError),
		Internal: err,
	}
}

// HTTPErrorHandler renders every error returned by a handler or middleware
// as a JSON Body and logs server-side failures.
func HTTPErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		he := ToHTTP(err)
		body, ok := he.Message.(Body)
		if !ok {
			body = Body{Message: fmt.Sprint(he.Message)}
		}

		if he.Code >= http.StatusInternalServerError {
			cause := err
			if he.Internal != nil {
				cause = he.Internal
			}
			rid, _ := c.Get("request_id").(string)
			logger.Error().
				Err(cause).
				Str("request_id", rid).
				Str("method", c.Request().Method).
				Str("path", c.Request().URL.Path).
				Int("status", he.Code).
				Msg("request failed")
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(he.Code)
		} else {
			werr = c.JSON(he.Code, body)
		}
		if werr != nil {
			logger.Error().Err(werr).Msg("write error response")
		}
	}
}
