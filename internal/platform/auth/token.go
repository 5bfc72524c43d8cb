package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const tokenIssuer = "labdata"

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenRevoked = errors.New("token has been revoked")
)

// Claims are the JWT claims carried by an auth token. Subject holds the
// user id and ID (jti) identifies the token for logout.
type Claims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
	Staff    bool   `json:"staff"`
}

// TokenManager issues and verifies HS256 auth tokens and consults the
// revocation store on verification.
type TokenManager struct {
	secret  []byte
	ttl     time.Duration
	revoked *RevocationStore
	now     func() time.Time
}

// NewTokenManager creates a TokenManager. revoked may be nil, in which case
// logout is not supported.
func NewTokenManager(secret string, ttl time.Duration, revoked *RevocationStore) *TokenManager {
	return &TokenManager{
		secret:  []byte(secret),
		ttl:     ttl,
		revoked: revoked,
		now:     time.Now,
	}
}

// Issue signs a new token for p.
func (m *TokenManager) Issue(p Principal) (string, *Claims, error) {
	now := m.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   p.UserID.String(),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
		Username: p.Username,
		Staff:    p.Staff,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return signed, claims, nil
}

// Verify parses tokenStr and returns the principal it identifies.
func (m *TokenManager) Verify(tokenStr string) (*Principal, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil || claims.ID == "" {
		return nil, ErrInvalidToken
	}
	if m.revoked != nil && m.revoked.IsRevoked(claims.ID) {
		return nil, ErrTokenRevoked
	}

	p := &Principal{
		UserID:   userID,
		Username: claims.Username,
		Staff:    claims.Staff,
		TokenID:  claims.ID,
	}
	if claims.ExpiresAt != nil {
		p.TokenExpiresAt = claims.ExpiresAt.Time
	}
	return p, nil
}

// Revoke invalidates the token held by p until it expires.
func (m *TokenManager) Revoke(ctx context.Context, p *Principal) error {
	if m.revoked == nil {
		return errors.New("token revocation is not configured")
	}
	return m.revoked.Revoke(ctx, p.TokenID, p.TokenExpiresAt)
}
