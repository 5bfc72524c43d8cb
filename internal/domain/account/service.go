package account

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/labdata/labdata/internal/platform/apierr"
	"github.com/labdata/labdata/internal/platform/auth"
	"github.com/labdata/labdata/internal/platform/reqparam"
)

// TokenIssuer issues and revokes API tokens.
type TokenIssuer interface {
	Issue(p auth.Principal) (string, *auth.Claims, error)
	Revoke(ctx context.Context, p *auth.Principal) error
}

type Service struct {
	users  UserRepository
	tokens TokenIssuer
}

func NewService(users UserRepository, tokens TokenIssuer) *Service {
	return &Service{users: users, tokens: tokens}
}

// dummyHash is compared against when the username is unknown so that
// failed logins take the same time either way.
var dummyHash = func() string {
	h, err := auth.HashPassword("not-a-real-password")
	if err != nil {
		panic(err)
	}
	return h
}()

// Register creates an active, non-staff account.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	return s.CreateUser(ctx, in, false)
}

// CreateUser creates an active account, optionally with staff rights.
func (s *Service) CreateUser(ctx context.Context, in RegisterInput, staff bool) (*User, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooShort) || errors.Is(err, auth.ErrPasswordTooLong) {
			return nil, apierr.Field("password", err.Error())
		}
		return nil, err
	}
	u := &User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		IsStaff:      staff,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Login verifies credentials and issues a token.
func (s *Service) Login(ctx context.Context, in LoginInput) (*TokenResponse, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	u, err := s.users.GetByUsername(ctx, in.Username)
	if err != nil {
		if !errors.Is(err, apierr.ErrNotFound) {
			return nil, err
		}
		auth.CheckPassword(dummyHash, in.Password)
		return nil, invalidCredentials()
	}
	if !auth.CheckPassword(u.PasswordHash, in.Password) || !u.IsActive {
		return nil, invalidCredentials()
	}
	token, _, err := s.tokens.Issue(u.Principal())
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &TokenResponse{AuthToken: token}, nil
}

func invalidCredentials() error {
	return apierr.Field(reqparam.NonFieldErrors, ErrInvalidCredentials.Error())
}

// Logout revokes the token the caller authenticated with.
func (s *Service) Logout(ctx context.Context, p *auth.Principal) error {
	if p == nil {
		return echo.ErrUnauthorized
	}
	return s.tokens.Revoke(ctx, p)
}

// Me returns the account of the authenticated caller.
func (s *Service) Me(ctx context.Context, p *auth.Principal) (*User, error) {
	if p == nil {
		return nil, echo.ErrUnauthorized
	}
	return s.users.GetByID(ctx, p.UserID)
}

// LoadPrincipal implements auth.PrincipalLoader.
func (s *Service) LoadPrincipal(ctx context.Context, userID uuid.UUID) (*auth.Principal, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apierr.ErrNotFound) {
			return nil, auth.ErrInactiveUser
		}
		return nil, err
	}
	if !u.IsActive {
		return nil, auth.ErrInactiveUser
	}
	p := u.Principal()
	return &p, nil
}
