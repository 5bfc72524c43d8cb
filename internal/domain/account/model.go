package account

import (
	"errors"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/labdata/labdata/internal/platform/apierr"
	"github.com/labdata/labdata/internal/platform/auth"
)

const (
	maxUsernameLength = 150
	maxEmailLength    = 254
)

var usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)

// User is an API account. PasswordHash never leaves the server.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	IsStaff      bool      `json:"is_staff"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Principal returns the auth principal for u.
func (u *User) Principal() auth.Principal {
	return auth.Principal{UserID: u.ID, Username: u.Username, Staff: u.IsStaff}
}

type RegisterInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// normalize trims the identifying fields and validates them together with
// the password.
func (in *RegisterInput) normalize() error {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)

	v := apierr.NewValidation()
	switch {
	case in.Username == "":
		v.Required("username")
	case !usernamePattern.MatchString(in.Username):
		v.Add("username", "may contain only letters, digits and @/./+/-/_")
	}
	v.MaxLength("username", in.Username, maxUsernameLength)

	v.MaxLength("email", in.Email, maxEmailLength)
	if in.Email != "" {
		if addr, err := mail.ParseAddress(in.Email); err != nil || addr.Address != in.Email {
			v.Add("email", "enter a valid email address")
		}
	}

	switch {
	case in.Password == "":
		v.Required("password")
	case len(in.Password) < auth.MinPasswordLength:
		v.Add("password", auth.ErrPasswordTooShort.Error())
	case len(in.Password) > auth.MaxPasswordLength:
		v.Add("password", auth.ErrPasswordTooLong.Error())
	}
	return v.Err()
}

type LoginInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (in LoginInput) validate() error {
	v := apierr.NewValidation()
	if strings.TrimSpace(in.Username) == "" {
		v.Required("username")
	}
	if in.Password == "" {
		v.Required("password")
	}
	return v.Err()
}

// TokenResponse is the body returned by a successful login.
type TokenResponse struct {
	AuthToken string `json:"auth_token"`
}

// ErrInvalidCredentials is returned by Login for an unknown user, a wrong
// password or an inactive account alike.
var ErrInvalidCredentials = errors.New("unable to log in with provided credentials")
