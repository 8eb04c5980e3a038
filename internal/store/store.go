package store

import (
	"context"
	"errors"

	"healthtrack-api/internal/models"
)

var (
	// ErrNotFound is returned when no document matches the lookup key.
	ErrNotFound = errors.New("store: record not found")
	// ErrDuplicate is returned when a write would break a uniqueness rule
	// (user email, username or provider uid).
	ErrDuplicate = errors.New("store: duplicate key")
)

// UserStore is the usuarios collection.
type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	ListUsers(ctx context.Context) ([]models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	FindUserByProviderUID(ctx context.Context, uid string) (*models.User, error)
	// SaveUser overwrites every mutable field of an existing user.
	SaveUser(ctx context.Context, u *models.User) error
	DeleteUser(ctx context.Context, id string) error
}

// GoalFilter narrows ListGoals; empty fields match everything.
type GoalFilter struct {
	UID  string
	Tipo string
}

// HabitStore holds habit definitions, registrations and the legacy goals.
type HabitStore interface {
	CreateDefinition(ctx context.Context, d *models.HabitDefinition) error
	GetDefinition(ctx context.Context, id string) (*models.HabitDefinition, error)
	// ListDefinitions returns the global definitions plus those owned by
	// username. An empty username returns only the global ones.
	ListDefinitions(ctx context.Context, username string) ([]models.HabitDefinition, error)
	DeleteDefinition(ctx context.Context, id string) error

	CreateRegistration(ctx context.Context, r *models.HabitRegistration) error
	ListRegistrations(ctx context.Context, username string) ([]models.HabitRegistration, error)

	CreateGoal(ctx context.Context, g *models.HabitGoal) error
	ListGoals(ctx context.Context, f GoalFilter) ([]models.HabitGoal, error)
	GetGoal(ctx context.Context, id string) (*models.HabitGoal, error)
	SaveGoal(ctx context.Context, g *models.HabitGoal) error
	DeleteGoal(ctx context.Context, id string) error
}

// ChatStore holds chat threads and their messages.
type ChatStore interface {
	// AppendMessage stores msg and upserts the thread summary as one unit.
	AppendMessage(ctx context.Context, msg *models.ChatMessage, summary *models.ChatThread) error
	// ListMessages returns the thread's messages oldest first.
	ListMessages(ctx context.Context, chatID string) ([]models.ChatMessage, error)
	GetThread(ctx context.Context, chatID string) (*models.ChatThread, error)
}

// Store bundles every collection behind one handle.
type Store interface {
	UserStore
	HabitStore
	ChatStore
	Close() error
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*PostgresStore)(nil)
)
