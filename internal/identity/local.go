package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"healthtrack-api/internal/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const localIssuer = "healthtrack-local"

// LocalProvider is an in-process identity provider issuing HS256 ID tokens.
// It backs IDENTITY_PROVIDER=local and tests.
type LocalProvider struct {
	mu       sync.RWMutex
	accounts map[string]*localAccount // keyed by uid
	secret   []byte
	ttl      time.Duration
}

type localAccount struct {
	uid          string
	email        string
	passwordHash string
	displayName  string
	disabled     bool
}

type localClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

func NewLocalProvider(secret string) *LocalProvider {
	return &LocalProvider{
		accounts: make(map[string]*localAccount),
		secret:   []byte(secret),
		ttl:      time.Hour,
	}
}

// findByEmail returns the account for email. Callers hold p.mu.
func (p *LocalProvider) findByEmail(email string) *localAccount {
	for _, a := range p.accounts {
		if strings.EqualFold(a.email, email) {
			return a
		}
	}
	return nil
}

func (p *LocalProvider) CreateUser(ctx context.Context, params CreateUserParams) (string, error) {
	if len(params.Password) < MinPasswordLength {
		return "", ErrInvalidPassword
	}
	hash, err := utils.HashPassword(params.Password)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.findByEmail(params.Email) != nil {
		return "", ErrEmailExists
	}
	uid := strings.ReplaceAll(uuid.NewString(), "-", "")
	p.accounts[uid] = &localAccount{
		uid:          uid,
		email:        params.Email,
		passwordHash: hash,
		displayName:  params.DisplayName,
	}
	return uid, nil
}

func (p *LocalProvider) UpdateUser(ctx context.Context, uid string, params UpdateUserParams) error {
	var hash string
	if params.Password != nil {
		if len(*params.Password) < MinPasswordLength {
			return ErrInvalidPassword
		}
		var err error
		if hash, err = utils.HashPassword(*params.Password); err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	acc, ok := p.accounts[uid]
	if !ok {
		return ErrUserNotFound
	}
	if params.Email != nil {
		if other := p.findByEmail(*params.Email); other != nil && other.uid != uid {
			return ErrEmailExists
		}
		acc.email = *params.Email
	}
	if params.Password != nil {
		acc.passwordHash = hash
	}
	if params.DisplayName != nil {
		acc.displayName = *params.DisplayName
	}
	if params.Disabled != nil {
		acc.disabled = *params.Disabled
	}
	return nil
}

func (p *LocalProvider) DeleteUser(ctx context.Context, uid string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.accounts[uid]; !ok {
		return ErrUserNotFound
	}
	delete(p.accounts, uid)
	return nil
}

func (p *LocalProvider) SignInWithPassword(ctx context.Context, email, password string) (*SignInResult, error) {
	p.mu.RLock()
	acc := p.findByEmail(email)
	var snapshot localAccount
	if acc != nil {
		snapshot = *acc
	}
	p.mu.RUnlock()

	if acc == nil || !utils.CheckPassword(password, snapshot.passwordHash) {
		return nil, ErrInvalidCredentials
	}
	if snapshot.disabled {
		return nil, ErrUserDisabled
	}

	token, err := p.sign(snapshot.uid, snapshot.email)
	if err != nil {
		return nil, err
	}
	return &SignInResult{
		IDToken:   token,
		LocalID:   snapshot.uid,
		Email:     snapshot.email,
		ExpiresIn: int(p.ttl.Seconds()),
	}, nil
}

func (p *LocalProvider) sign(uid, email string) (string, error) {
	now := time.Now()
	claims := localClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    localIssuer,
			Subject:   uid,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
}

func (p *LocalProvider) VerifyIDToken(ctx context.Context, token string) (*Claims, error) {
	claims := &localClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return p.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(localIssuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	p.mu.RLock()
	acc, ok := p.accounts[claims.Subject]
	p.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: unknown subject", ErrInvalidToken)
	}
	return &Claims{UID: acc.uid, Email: acc.email}, nil
}
