package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// IsSafeMethod reports whether method is read-only.
func IsSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

// RequireAuthenticated rejects anonymous requests with 401.
func RequireAuthenticated() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if PrincipalFromContext(c.Request().Context()) == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication credentials were not provided")
			}
			return next(c)
		}
	}
}

// ReadOnlyOrAuthenticated lets safe methods through for everyone and
// requires an authenticated caller for everything else.
func ReadOnlyOrAuthenticated() echo.MiddlewareFunc {
	requireAuth := RequireAuthenticated()
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		authed := requireAuth(next)
		return func(c echo.Context) error {
			if IsSafeMethod(c.Request().Method) {
				return next(c)
			}
			return authed(c)
		}
	}
}

// ObjectPolicy configures the rule applied to writes on an existing object.
type ObjectPolicy struct {
	// AllowNonStaffDelete lets any authenticated caller delete objects.
	AllowNonStaffDelete bool
}

// Allows reports whether p may perform method on an existing object.
func (o ObjectPolicy) Allows(p *Principal, method string) bool {
	if IsSafeMethod(method) {
		return true
	}
	if p == nil {
		return false
	}
	if p.Staff {
		return true
	}
	return method == http.MethodDelete && o.AllowNonStaffDelete
}

// RequireObjectPermission applies policy to object routes (PUT, PATCH and
// DELETE on /{id}). Anonymous callers get 401, authenticated callers the
// policy refuses get 403.
func RequireObjectPermission(policy ObjectPolicy) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			method := c.Request().Method
			if IsSafeMethod(method) {
				return next(c)
			}
			p := PrincipalFromContext(c.Request().Context())
			if p == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication credentials were not provided")
			}
			if !policy.Allows(p, method) {
				return echo.NewHTTPError(http.StatusForbidden, "you do not have permission to perform this action")
			}
			return next(c)
		}
	}
}
