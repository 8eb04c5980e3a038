package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"healthtrack-api/internal/models"
)

func strPtr(s string) *string { return &s }

func TestMemoryStoreUserUniqueness(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	alice := &models.User{ID: "1", Email: "alice@example.com", Username: "alice", FirebaseUID: strPtr("uid-a")}
	if err := s.CreateUser(ctx, alice); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	tests := []struct {
		name string
		user *models.User
	}{
		{"same id", &models.User{ID: "1", Email: "x@example.com", Username: "x"}},
		{"same email", &models.User{ID: "2", Email: "alice@example.com", Username: "x"}},
		{"same username", &models.User{ID: "2", Email: "x@example.com", Username: "alice"}},
		{"same provider uid", &models.User{ID: "2", Email: "x@example.com", Username: "x", FirebaseUID: strPtr("uid-a")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.CreateUser(ctx, tt.user); !errors.Is(err, ErrDuplicate) {
				t.Errorf("expected ErrDuplicate, got %v", err)
			}
		})
	}

	// Two local-only profiles have no provider uid and must not collide.
	if err := s.CreateUser(ctx, &models.User{ID: "2", Email: "b@example.com", Username: "b"}); err != nil {
		t.Fatalf("CreateUser b: %v", err)
	}
	if err := s.CreateUser(ctx, &models.User{ID: "3", Email: "c@example.com", Username: "c"}); err != nil {
		t.Fatalf("CreateUser c: %v", err)
	}

	b, _ := s.GetUserByID(ctx, "2")
	b.Username = "alice"
	if err := s.SaveUser(ctx, b); !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected ErrDuplicate on rename, got %v", err)
	}
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	u := &models.User{ID: "1", Email: "a@example.com", Username: "a", Objetivos: []string{"dormir_mejor"}}
	if err := s.CreateUser(ctx, u); err != nil {
		t.Fatal(err)
	}
	u.Objetivos[0] = "changed"

	got, err := s.FindUserByUsername(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}
	if got.Objetivos[0] != "dormir_mejor" {
		t.Errorf("stored user aliased caller slice: %v", got.Objetivos)
	}
	got.Nombre = "mutated"
	again, _ := s.FindUserByEmail(ctx, "a@example.com")
	if again.Nombre != "" {
		t.Error("lookup result aliased stored user")
	}

	if _, err := s.FindUserByProviderUID(ctx, ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("empty uid must not match local profiles, got %v", err)
	}
}

func TestMemoryStoreDeleteUser(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	for _, id := range []string{"1", "2", "3"} {
		if err := s.CreateUser(ctx, &models.User{ID: id, Email: id + "@example.com", Username: "u" + id}); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.DeleteUser(ctx, "2"); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteUser(ctx, "2"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	users, _ := s.ListUsers(ctx)
	if len(users) != 2 || users[0].ID != "1" || users[1].ID != "3" {
		t.Errorf("unexpected users after delete: %+v", users)
	}
}

func TestMemoryStoreDefinitionVisibility(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defs := []models.HabitDefinition{
		{ID: "g", Nombre: "Pasos"},
		{ID: "a", Nombre: "Leer", Username: strPtr("alice")},
		{ID: "b", Nombre: "Correr", Username: strPtr("bob")},
	}
	for i := range defs {
		if err := s.CreateDefinition(ctx, &defs[i]); err != nil {
			t.Fatal(err)
		}
	}

	got, _ := s.ListDefinitions(ctx, "alice")
	if len(got) != 2 || got[0].ID != "g" || got[1].ID != "a" {
		t.Errorf("alice sees %+v", got)
	}
	got, _ = s.ListDefinitions(ctx, "")
	if len(got) != 1 || got[0].ID != "g" {
		t.Errorf("globals only: %+v", got)
	}
}

func TestMemoryStoreGoalFilter(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	for _, g := range []models.HabitGoal{
		{ID: "1", UID: "u1", Tipo: "sueno"},
		{ID: "2", UID: "u1", Tipo: "hidratacion"},
		{ID: "3", UID: "u2", Tipo: "sueno"},
	} {
		g := g
		if err := s.CreateGoal(ctx, &g); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		filter GoalFilter
		want   int
	}{
		{GoalFilter{}, 3},
		{GoalFilter{UID: "u1"}, 2},
		{GoalFilter{Tipo: "sueno"}, 2},
		{GoalFilter{UID: "u1", Tipo: "sueno"}, 1},
		{GoalFilter{UID: "nobody"}, 0},
	}
	for _, tt := range tests {
		got, err := s.ListGoals(ctx, tt.filter)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != tt.want {
			t.Errorf("filter %+v: expected %d goals, got %d", tt.filter, tt.want, len(got))
		}
	}

	if err := s.SaveGoal(ctx, &models.HabitGoal{ID: "missing"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreMessagesOrdered(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	// Appended out of order; listing sorts by timestamp.
	for i, offset := range []int{2, 0, 1} {
		ts := base.Add(time.Duration(offset) * time.Minute)
		msg := &models.ChatMessage{ID: string(rune('a' + i)), ChatID: "t1", Contenido: "m", Timestamp: ts}
		summary := &models.ChatThread{ID: "t1", UltimoMensaje: "m", TimestampUltimo: ts, Participantes: []string{"t1", "profesional"}}
		if err := s.AppendMessage(ctx, msg, summary); err != nil {
			t.Fatal(err)
		}
	}

	msgs, _ := s.ListMessages(ctx, "t1")
	if len(msgs) != 3 || msgs[0].ID != "b" || msgs[1].ID != "c" || msgs[2].ID != "a" {
		t.Errorf("unexpected order: %+v", msgs)
	}

	if _, err := s.GetThread(ctx, "t2"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	th, err := s.GetThread(ctx, "t1")
	if err != nil || len(th.Participantes) != 2 {
		t.Errorf("unexpected thread %+v, err %v", th, err)
	}
}

func TestMemoryStoreHonorsCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewMemoryStore()
	if err := s.CreateUser(ctx, &models.User{ID: "1"}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
