// Package identity wraps the external identity provider that owns email and
// password credentials and issues the bearer tokens presented to the API.
package identity

import (
	"context"
	"errors"
)

var (
	ErrEmailExists        = errors.New("identity: email already exists")
	ErrInvalidPassword    = errors.New("identity: password must be at least 6 characters")
	ErrInvalidCredentials = errors.New("identity: invalid credentials")
	ErrUserDisabled       = errors.New("identity: user disabled")
	ErrUserNotFound       = errors.New("identity: user not found")
	ErrConfiguration      = errors.New("identity: provider misconfigured")
	ErrTokenExpired       = errors.New("identity: token expired")
	ErrInvalidToken       = errors.New("identity: invalid token")
)

// MinPasswordLength is the shortest password the provider accepts.
const MinPasswordLength = 6

type CreateUserParams struct {
	Email       string
	Password    string
	DisplayName string
}

// UpdateUserParams changes only the non-nil fields.
type UpdateUserParams struct {
	Email       *string
	Password    *string
	DisplayName *string
	Disabled    *bool
}

func (p UpdateUserParams) empty() bool {
	return p.Email == nil && p.Password == nil && p.DisplayName == nil && p.Disabled == nil
}

// SignInResult is returned by a successful password sign-in.
type SignInResult struct {
	IDToken      string
	RefreshToken string
	LocalID      string
	Email        string
	ExpiresIn    int
}

// Claims are the verified facts carried by an ID token.
type Claims struct {
	UID   string
	Email string
}

// Provider is the identity provider used by the auth gateway.
type Provider interface {
	CreateUser(ctx context.Context, p CreateUserParams) (uid string, err error)
	UpdateUser(ctx context.Context, uid string, p UpdateUserParams) error
	DeleteUser(ctx context.Context, uid string) error
	SignInWithPassword(ctx context.Context, email, password string) (*SignInResult, error)
	VerifyIDToken(ctx context.Context, token string) (*Claims, error)
}

var (
	_ Provider = (*FirebaseProvider)(nil)
	_ Provider = (*LocalProvider)(nil)
)
