package utils

import (
	"testing"
	"time"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("secreto1")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "secreto1" {
		t.Fatal("hash must not equal the plaintext")
	}
	if !CheckPassword("secreto1", hash) {
		t.Error("expected matching password to verify")
	}
	if CheckPassword("otro-secreto", hash) {
		t.Error("expected wrong password to fail")
	}
}

func TestLegacyTokenRoundTrip(t *testing.T) {
	secret := []byte("test-secret")
	token, err := GenerateLegacyToken(secret, "doc-1", "admin", "alice", time.Minute)
	if err != nil {
		t.Fatalf("GenerateLegacyToken: %v", err)
	}

	claims, err := ParseLegacyToken(secret, token)
	if err != nil {
		t.Fatalf("ParseLegacyToken: %v", err)
	}
	if claims.UID != "doc-1" || claims.Rol != "admin" || claims.Username != "alice" {
		t.Errorf("unexpected claims %+v", claims)
	}
}

func TestLegacyTokenRejectsWrongSecretAndExpiry(t *testing.T) {
	token, err := GenerateLegacyToken([]byte("a"), "doc-1", "user", "bob", time.Minute)
	if err != nil {
		t.Fatalf("GenerateLegacyToken: %v", err)
	}
	if _, err := ParseLegacyToken([]byte("b"), token); err == nil {
		t.Error("expected signature failure with a different secret")
	}

	expired, err := GenerateLegacyToken([]byte("a"), "doc-1", "user", "bob", -time.Minute)
	if err != nil {
		t.Fatalf("GenerateLegacyToken: %v", err)
	}
	if _, err := ParseLegacyToken([]byte("a"), expired); err == nil {
		t.Error("expected expired token to be rejected")
	}
}
