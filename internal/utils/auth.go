package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// HashPassword generates a bcrypt hash of the password.
func HashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

// CheckPassword compares a bcrypt hashed password with its possible plaintext equivalent.
// Returns true if the password and hash match, false otherwise.
func CheckPassword(password, hashedPassword string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
	return err == nil
}

// LegacyTokenTTL is the lifetime of tokens issued by the direct login path.
const LegacyTokenTTL = 4 * time.Hour

// LegacyClaims is the payload of the x-token credential.
type LegacyClaims struct {
	UID      string `json:"uid"`
	Rol      string `json:"rol"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// GenerateLegacyToken signs an HS256 x-token for the given profile.
func GenerateLegacyToken(secret []byte, uid, rol, username string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := LegacyClaims{
		UID:      uid,
		Rol:      rol,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uid,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ParseLegacyToken verifies an x-token and returns its claims.
func ParseLegacyToken(secret []byte, tokenString string) (*LegacyClaims, error) {
	claims := &LegacyClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.UID == "" {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}
