package config

import (
	"errors"
	"testing"
)

func TestLoadConfigRequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := LoadConfig()
	if !errors.Is(err, ErrMissingJWTSecret) {
		t.Fatalf("expected ErrMissingJWTSecret, got %v", err)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("PORT", "")
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("IDENTITY_PROVIDER", "")
	t.Setenv("CORS_ORIGIN", "")
	t.Setenv("SEED_GLOBAL_HABITS", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.ListenPort != "3000" {
		t.Errorf("expected port 3000, got %s", cfg.ListenPort)
	}
	if cfg.StoreDriver != StorePostgres {
		t.Errorf("expected store driver %s, got %s", StorePostgres, cfg.StoreDriver)
	}
	if cfg.IdentityProvider != IdentityFirebase {
		t.Errorf("expected identity provider %s, got %s", IdentityFirebase, cfg.IdentityProvider)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "http://localhost:8000" {
		t.Errorf("unexpected CORS origins %v", cfg.CORSOrigins)
	}
	if !cfg.SeedGlobalHabits {
		t.Error("expected global habit seeding on by default")
	}
}

func TestLoadConfigRejectsUnknownDrivers(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("STORE_DRIVER", "mongo")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for unknown store driver")
	}

	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("IDENTITY_PROVIDER", "keycloak")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for unknown identity provider")
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" http://a:8000, ,http://b ")
	if len(got) != 2 || got[0] != "http://a:8000" || got[1] != "http://b" {
		t.Fatalf("unexpected split %v", got)
	}
}
