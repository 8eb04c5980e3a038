package identity

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSignInWithPasswordSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "api-key" {
			t.Errorf("expected api key in query, got %q", r.URL.RawQuery)
		}
		var req signInRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}
		if req.Email != "alice@example.com" || req.Password != "secreto1" || !req.ReturnSecureToken {
			t.Errorf("unexpected request %+v", req)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"idToken":"tok","refreshToken":"ref","localId":"uid-1","email":"alice@example.com","expiresIn":"3600"}`))
	}))
	defer srv.Close()

	res, err := signInWithPassword(context.Background(), srv.Client(), srv.URL, "api-key", "alice@example.com", "secreto1")
	if err != nil {
		t.Fatalf("signInWithPassword: %v", err)
	}
	if res.IDToken != "tok" || res.LocalID != "uid-1" || res.ExpiresIn != 3600 {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestSignInWithPasswordErrors(t *testing.T) {
	tests := []struct {
		message string
		want    error
	}{
		{"INVALID_PASSWORD", ErrInvalidCredentials},
		{"EMAIL_NOT_FOUND", ErrInvalidCredentials},
		{"INVALID_LOGIN_CREDENTIALS", ErrInvalidCredentials},
		{"USER_DISABLED", ErrUserDisabled},
		{"CONFIGURATION_NOT_FOUND", ErrConfiguration},
		{"TOO_MANY_ATTEMPTS_TRY_LATER : Access disabled", ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				json.NewEncoder(w).Encode(map[string]any{
					"error": map[string]any{"code": 400, "message": tt.message},
				})
			}))
			defer srv.Close()

			_, err := signInWithPassword(context.Background(), srv.Client(), srv.URL, "api-key", "a@b.c", "x")
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestSignInWithPasswordWithoutAPIKey(t *testing.T) {
	_, err := signInWithPassword(context.Background(), http.DefaultClient, "http://unused", "", "a@b.c", "x")
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}
