package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// Verifier validates a raw token string.
type Verifier interface {
	Verify(token string) (*Principal, error)
}

// PrincipalLoader refreshes a verified principal from the user store so
// that deactivation and staff changes apply to tokens already issued. It
// returns an error when the user no longer exists or is inactive.
type PrincipalLoader interface {
	LoadPrincipal(ctx context.Context, userID uuid.UUID) (*Principal, error)
}

// ErrInactiveUser is returned by a PrincipalLoader for a deactivated user.
var ErrInactiveUser = errors.New("user inactive or deleted")

// Authenticate resolves the caller from the Authorization header. Both the
// "Token <t>" and "Bearer <t>" schemes are accepted. Requests without the
// header continue anonymously; a malformed, expired or revoked token is
// rejected with 401. loader may be nil.
func Authenticate(v Verifier, loader PrincipalLoader) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return next(c)
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !isTokenScheme(parts[0]) || strings.TrimSpace(parts[1]) == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}

			p, err := v.Verify(strings.TrimSpace(parts[1]))
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
			}

			ctx := c.Request().Context()
			if loader != nil {
				fresh, err := loader.LoadPrincipal(ctx, p.UserID)
				if err != nil {
					if errors.Is(err, ErrInactiveUser) {
						return echo.NewHTTPError(http.StatusUnauthorized, "user inactive or deleted")
					}
					return err
				}
				p.Username = fresh.Username
				p.Staff = fresh.Staff
			}

			c.Set("user_id", p.UserID.String())
			c.SetRequest(c.Request().WithContext(WithPrincipal(ctx, p)))
			return next(c)
		}
	}
}

func isTokenScheme(s string) bool {
	return strings.EqualFold(s, "token") || strings.EqualFold(s, "bearer")
}
