package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type stubVerifier struct {
	p   *Principal
	err error
}

func (s stubVerifier) Verify(token string) (*Principal, error) {
	if token != "good" {
		return nil, ErrInvalidToken
	}
	return s.p, s.err
}

type stubLoader struct {
	staff bool
	err   error
}

func (s stubLoader) LoadPrincipal(ctx context.Context, userID uuid.UUID) (*Principal, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &Principal{UserID: userID, Username: "fresh", Staff: s.staff}, nil
}

func runAuth(t *testing.T, header string, v Verifier, loader PrincipalLoader) (*Principal, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/labs", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var got *Principal
	err := Authenticate(v, loader)(func(c echo.Context) error {
		got = PrincipalFromContext(c.Request().Context())
		return c.NoContent(http.StatusOK)
	})(c)
	return got, err
}

func TestAuthenticate_Anonymous(t *testing.T) {
	p, err := runAuth(t, "", stubVerifier{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p != nil {
		t.Errorf("expected anonymous request, got %+v", p)
	}
}

func TestAuthenticate_Schemes(t *testing.T) {
	uid := uuid.New()
	v := stubVerifier{p: &Principal{UserID: uid}}
	for _, header := range []string{"Token good", "Bearer good", "token good", "BEARER good"} {
		p, err := runAuth(t, header, v, nil)
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", header, err)
		}
		if p == nil || p.UserID != uid {
			t.Errorf("%q: expected principal %s, got %+v", header, uid, p)
		}
	}
}

func TestAuthenticate_Rejects(t *testing.T) {
	v := stubVerifier{p: &Principal{UserID: uuid.New()}}
	for _, header := range []string{"Token bad", "Basic good", "Token", "Token   ", "good"} {
		_, err := runAuth(t, header, v, nil)
		var he *echo.HTTPError
		if !errors.As(err, &he) || he.Code != http.StatusUnauthorized {
			t.Errorf("%q: expected 401, got %v", header, err)
		}
	}
}

func TestAuthenticate_LoaderRefreshesStaff(t *testing.T) {
	v := stubVerifier{p: &Principal{UserID: uuid.New(), Staff: false}}
	p, err := runAuth(t, "Token good", v, stubLoader{staff: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.Staff || p.Username != "fresh" {
		t.Errorf("expected refreshed principal, got %+v", p)
	}
}

func TestAuthenticate_InactiveUser(t *testing.T) {
	v := stubVerifier{p: &Principal{UserID: uuid.New()}}
	_, err := runAuth(t, "Token good", v, stubLoader{err: ErrInactiveUser})
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for inactive user, got %v", err)
	}
}

func runWithPrincipal(method string, p *Principal, mw echo.MiddlewareFunc) error {
	e := echo.New()
	req := httptest.NewRequest(method, "/api/v1/labs/1", nil)
	if p != nil {
		req = req.WithContext(WithPrincipal(req.Context(), p))
	}
	c := e.NewContext(req, httptest.NewRecorder())
	return mw(func(c echo.Context) error { return nil })(c)
}

func statusOf(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return http.StatusInternalServerError
}

func TestReadOnlyOrAuthenticated(t *testing.T) {
	user := &Principal{UserID: uuid.New()}
	tests := []struct {
		method string
		p      *Principal
		want   int
	}{
		{http.MethodGet, nil, http.StatusOK},
		{http.MethodHead, nil, http.StatusOK},
		{http.MethodOptions, nil, http.StatusOK},
		{http.MethodPost, nil, http.StatusUnauthorized},
		{http.MethodPut, nil, http.StatusUnauthorized},
		{http.MethodPatch, nil, http.StatusUnauthorized},
		{http.MethodDelete, nil, http.StatusUnauthorized},
		{http.MethodPost, user, http.StatusOK},
	}
	for _, tt := range tests {
		if got := statusOf(runWithPrincipal(tt.method, tt.p, ReadOnlyOrAuthenticated())); got != tt.want {
			t.Errorf("%s anonymous=%v: got %d, want %d", tt.method, tt.p == nil, got, tt.want)
		}
	}
}

func TestRequireObjectPermission(t *testing.T) {
	user := &Principal{UserID: uuid.New()}
	staff := &Principal{UserID: uuid.New(), Staff: true}

	tests := []struct {
		name   string
		policy ObjectPolicy
		method string
		p      *Principal
		want   int
	}{
		{"anonymous read", ObjectPolicy{}, http.MethodGet, nil, http.StatusOK},
		{"anonymous put", ObjectPolicy{}, http.MethodPut, nil, http.StatusUnauthorized},
		{"user put", ObjectPolicy{}, http.MethodPut, user, http.StatusForbidden},
		{"user patch", ObjectPolicy{}, http.MethodPatch, user, http.StatusForbidden},
		{"user delete strict", ObjectPolicy{}, http.MethodDelete, user, http.StatusForbidden},
		{"user delete permissive", ObjectPolicy{AllowNonStaffDelete: true}, http.MethodDelete, user, http.StatusOK},
		{"user patch permissive", ObjectPolicy{AllowNonStaffDelete: true}, http.MethodPatch, user, http.StatusForbidden},
		{"staff put", ObjectPolicy{}, http.MethodPut, staff, http.StatusOK},
		{"staff delete", ObjectPolicy{}, http.MethodDelete, staff, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusOf(runWithPrincipal(tt.method, tt.p, RequireObjectPermission(tt.policy))); got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestUserIDFromContext(t *testing.T) {
	if got := UserIDFromContext(context.Background()); got != "" {
		t.Errorf("expected empty user id, got %q", got)
	}
	uid := uuid.New()
	ctx := WithPrincipal(context.Background(), &Principal{UserID: uid})
	if got := UserIDFromContext(ctx); got != uid.String() {
		t.Errorf("expected %s, got %q", uid, got)
	}
}
