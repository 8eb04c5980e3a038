package services

import (
	"context"
	"testing"
	"time"

	"healthtrack-api/internal/apperrors"
	"healthtrack-api/internal/identity"
	"healthtrack-api/internal/logging"
	"healthtrack-api/internal/models"
	"healthtrack-api/internal/store"
)

const (
	testSecret = "test-secret"
	testPIN    = "4321"
)

type testEnv struct {
	store    *store.MemoryStore
	provider *identity.LocalProvider
	auth     *AuthService
	users    *UserService
	habits   *HabitService
	chat     *ChatService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	st := store.NewMemoryStore()
	p := identity.NewLocalProvider(testSecret)
	log := logging.Discard()
	return &testEnv{
		store:    st,
		provider: p,
		auth:     NewAuthService(st, p, testSecret, log),
		users:    NewUserService(st, p, testPIN, log),
		habits:   NewHabitService(st, log),
		chat:     NewChatService(st, log),
	}
}

// register creates a user through the identity gateway with password
// "secreto1". Staff roles are granted afterwards with the admin PIN, the
// only way to obtain them.
func (e *testEnv) register(t *testing.T, username, rol string) *models.User {
	t.Helper()
	u, err := e.auth.Register(context.Background(), RegisterInput{
		Nombre:   "Nombre " + username,
		Apellido: "Apellido",
		Email:    username + "@example.com",
		Username: username,
		Password: "secreto1",
	})
	if err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
	if rol == "" || rol == models.RoleUser {
		return u
	}
	u, err = e.users.UpdateAdmin(context.Background(), callerFor(u), username, AdminUpdate{Rol: &rol, PIN: testPIN})
	if err != nil {
		t.Fatalf("grant %s to %s: %v", rol, username, err)
	}
	return u
}

// registerAdmin registers a user and promotes it with the admin PIN.
func (e *testEnv) registerAdmin(t *testing.T, username string) *models.User {
	t.Helper()
	return e.register(t, username, models.RoleAdmin)
}

func callerFor(u *models.User) *Caller {
	return callerFromUser(u.ProviderUID(), u)
}

// clock returns a now func that advances one second per call.
func clock(start time.Time) func() time.Time {
	next := start
	return func() time.Time {
		t := next
		next = next.Add(time.Second)
		return t
	}
}

func assertStatus(t *testing.T, err error, want int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected status %d, got nil error", want)
	}
	if got := apperrors.Status(err); got != want {
		t.Fatalf("expected status %d, got %d (%v)", want, got, err)
	}
}

func ptr[T any](v T) *T { return &v }
