package services

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"healthtrack-api/internal/models"
	"healthtrack-api/internal/store"
)

func TestRegisterEntryJoinedExample(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	alice := callerFor(env.register(t, "alice", ""))

	def, err := env.habits.CreateDefinition(ctx, alice, DefinitionInput{
		Nombre: "Steps", TipoMedicion: "numeric", Meta: ptr(8000.0),
	})
	if err != nil {
		t.Fatalf("CreateDefinition: %v", err)
	}
	if def.TipoMedicion != models.KindNumeric || def.Frecuencia != "diaria" || *def.Username != "alice" {
		t.Errorf("unexpected definition %+v", def)
	}

	if _, err := env.habits.RegisterEntry(ctx, alice, RegistrationInput{
		HabitoID: def.ID, Valor: 9500.0, Fecha: "2024-01-01",
	}); err != nil {
		t.Fatalf("RegisterEntry: %v", err)
	}

	joined, err := env.habits.ListRegistrationsJoined(ctx, alice, "alice")
	if err != nil {
		t.Fatalf("ListRegistrationsJoined: %v", err)
	}
	if len(joined) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(joined))
	}
	got := joined[0]
	if got.NombreHabito != "Steps" || got.ValorRegistrado != 9500 || got.Meta != 8000 || got.Fecha != "2024-01-01" || got.Username != "alice" {
		t.Errorf("unexpected joined entry %+v", got)
	}
}

func TestBinaryCoercion(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	alice := callerFor(env.register(t, "alice", ""))
	def, err := env.habits.CreateDefinition(ctx, alice, DefinitionInput{Nombre: "Meditar", TipoMedicion: "binario"})
	if err != nil {
		t.Fatalf("CreateDefinition: %v", err)
	}
	if def.Meta != 1 {
		t.Errorf("expected binary meta default 1, got %v", def.Meta)
	}

	tests := []struct {
		name string
		in   any
		want float64
	}{
		{"absent", nil, 0},
		{"empty string", "", 0},
		{"zero string", "0", 0},
		{"zero number", 0.0, 0},
		{"false", false, 0},
		{"true", true, 1},
		{"text", "si", 1},
		{"number", 3.0, 1},
		{"json number", json.Number("2"), 1},
		{"negative", -1.0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := env.habits.RegisterEntry(ctx, alice, RegistrationInput{HabitoID: def.ID, Valor: tt.in})
			if err != nil {
				t.Fatalf("RegisterEntry: %v", err)
			}
			if r.ValorRegistrado != tt.want {
				t.Errorf("value %v stored %v, want %v", tt.in, r.ValorRegistrado, tt.want)
			}
		})
	}
}

func TestNumericEntryValidation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	alice := callerFor(env.register(t, "alice", ""))
	def, err := env.habits.CreateDefinition(ctx, alice, DefinitionInput{Nombre: "Agua", TipoMedicion: "numerico", Meta: ptr(8.0)})
	if err != nil {
		t.Fatalf("CreateDefinition: %v", err)
	}

	for _, bad := range []any{nil, "abc", true, ""} {
		_, err := env.habits.RegisterEntry(ctx, alice, RegistrationInput{HabitoID: def.ID, Valor: bad})
		assertStatus(t, err, http.StatusBadRequest)
	}

	r, err := env.habits.RegisterEntry(ctx, alice, RegistrationInput{HabitoID: def.ID, Valor: " 6.5 "})
	if err != nil {
		t.Fatalf("RegisterEntry: %v", err)
	}
	if r.ValorRegistrado != 6.5 {
		t.Errorf("expected 6.5, got %v", r.ValorRegistrado)
	}

	_, err = env.habits.RegisterEntry(ctx, alice, RegistrationInput{HabitoID: def.ID, Valor: 1.0, Fecha: "01/02/2024"})
	assertStatus(t, err, http.StatusBadRequest)

	_, err = env.habits.RegisterEntry(ctx, alice, RegistrationInput{HabitoID: "missing", Valor: 1.0})
	assertStatus(t, err, http.StatusNotFound)

	_, err = env.habits.CreateDefinition(ctx, alice, DefinitionInput{Nombre: "Sin meta", TipoMedicion: "numerico"})
	assertStatus(t, err, http.StatusBadRequest)

	_, err = env.habits.CreateDefinition(ctx, alice, DefinitionInput{Nombre: "Raro", TipoMedicion: "texto"})
	assertStatus(t, err, http.StatusBadRequest)
}

func TestJoinedViewDropsDeletedDefinitionsAndSorts(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.habits.now = clock(time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC))
	alice := callerFor(env.register(t, "alice", ""))

	a, err := env.habits.CreateDefinition(ctx, alice, DefinitionInput{Nombre: "A", TipoMedicion: "numerico", Meta: ptr(1.0)})
	if err != nil {
		t.Fatal(err)
	}
	b, err := env.habits.CreateDefinition(ctx, alice, DefinitionInput{Nombre: "B", TipoMedicion: "numerico", Meta: ptr(1.0)})
	if err != nil {
		t.Fatal(err)
	}

	entries := []struct {
		def   string
		fecha string
		valor float64
	}{
		{a.ID, "2024-01-01", 1},
		{b.ID, "2024-01-03", 2},
		{a.ID, "2024-01-02T23:00:00Z", 3},
		{a.ID, "2024-01-02", 4},
	}
	for _, e := range entries {
		if _, err := env.habits.RegisterEntry(ctx, alice, RegistrationInput{HabitoID: e.def, Valor: e.valor, Fecha: e.fecha}); err != nil {
			t.Fatalf("RegisterEntry: %v", err)
		}
	}

	if err := env.habits.DeleteDefinition(ctx, alice, b.ID); err != nil {
		t.Fatalf("DeleteDefinition: %v", err)
	}

	joined, err := env.habits.ListRegistrationsJoined(ctx, alice, "alice")
	if err != nil {
		t.Fatalf("ListRegistrationsJoined: %v", err)
	}
	var values []float64
	for _, j := range joined {
		values = append(values, j.ValorRegistrado)
	}
	// Same-date entries come newest created first.
	want := []float64{4, 3, 1}
	if len(values) != len(want) {
		t.Fatalf("expected values %v, got %v", want, values)
	}
	for i := range want {
		if values[i] != want[i] {
			t.Fatalf("expected values %v, got %v", want, values)
		}
	}

	regs, _ := env.store.ListRegistrations(ctx, "alice")
	if len(regs) != 4 {
		t.Errorf("registrations must survive definition delete, have %d", len(regs))
	}
}

func TestDefinitionsVisibilityAndDelete(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	admin := callerFor(env.registerAdmin(t, "root"))
	alice := callerFor(env.register(t, "alice", ""))
	bob := callerFor(env.register(t, "bob", ""))

	global, err := env.habits.CreateDefinition(ctx, admin, DefinitionInput{Nombre: "Global", TipoMedicion: "binario", Global: true})
	if err != nil {
		t.Fatalf("global definition: %v", err)
	}
	_, err = env.habits.CreateDefinition(ctx, alice, DefinitionInput{Nombre: "Nope", TipoMedicion: "binario", Global: true})
	assertStatus(t, err, http.StatusForbidden)

	own, err := env.habits.CreateDefinition(ctx, alice, DefinitionInput{Nombre: "Propia", TipoMedicion: "binario"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.habits.CreateDefinition(ctx, bob, DefinitionInput{Nombre: "De Bob", TipoMedicion: "binario"}); err != nil {
		t.Fatal(err)
	}

	defs, err := env.habits.ListDefinitions(ctx, alice, "alice")
	if err != nil {
		t.Fatalf("ListDefinitions: %v", err)
	}
	if len(defs) != 2 || defs[0].ID != global.ID || defs[1].ID != own.ID {
		t.Errorf("expected global and own definition, got %+v", defs)
	}

	_, err = env.habits.ListDefinitions(ctx, bob, "alice")
	assertStatus(t, err, http.StatusForbidden)

	assertStatus(t, env.habits.DeleteDefinition(ctx, bob, own.ID), http.StatusForbidden)
	assertStatus(t, env.habits.DeleteDefinition(ctx, alice, global.ID), http.StatusForbidden)
	assertStatus(t, env.habits.DeleteDefinition(ctx, alice, "missing"), http.StatusNotFound)

	if err := env.habits.DeleteDefinition(ctx, alice, own.ID); err != nil {
		t.Errorf("owner delete: %v", err)
	}
	if err := env.habits.DeleteDefinition(ctx, admin, global.ID); err != nil {
		t.Errorf("admin delete: %v", err)
	}
}

func TestSeedGlobalDefinitionsIsIdempotent(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	n, err := env.habits.SeedGlobalDefinitions(ctx)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if n != len(globalSeeds) {
		t.Errorf("expected %d seeded, got %d", len(globalSeeds), n)
	}
	if n, err = env.habits.SeedGlobalDefinitions(ctx); err != nil || n != 0 {
		t.Errorf("second seed created %d (err %v)", n, err)
	}

	defs, _ := env.store.ListDefinitions(ctx, "")
	if len(defs) != len(globalSeeds) {
		t.Errorf("expected %d global definitions, got %d", len(globalSeeds), len(defs))
	}
}

func TestHabitGoals(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	aliceUser := env.register(t, "alice", "")
	alice := callerFor(aliceUser)
	bob := callerFor(env.register(t, "bob", ""))
	pro := callerFor(env.register(t, "pro", models.RoleProfessional))
	uid := aliceUser.ProviderUID()

	_, err := env.habits.CreateGoal(ctx, alice, GoalInput{UID: uid, Tipo: "yoga", Objetivo: ptr(1.0), Unidad: "h"})
	assertStatus(t, err, http.StatusBadRequest)
	_, err = env.habits.CreateGoal(ctx, alice, GoalInput{UID: uid, Tipo: "sueno"})
	assertStatus(t, err, http.StatusBadRequest)
	_, err = env.habits.CreateGoal(ctx, bob, GoalInput{UID: uid, Tipo: "sueno", Objetivo: ptr(8.0), Unidad: "horas"})
	assertStatus(t, err, http.StatusForbidden)

	sleep, err := env.habits.CreateGoal(ctx, alice, GoalInput{UID: uid, Tipo: "Sueno", Objetivo: ptr(8.0), Unidad: "horas"})
	if err != nil {
		t.Fatalf("CreateGoal: %v", err)
	}
	if !sleep.Activo || sleep.Tipo != "sueno" {
		t.Errorf("unexpected goal %+v", sleep)
	}
	if _, err := env.habits.CreateGoal(ctx, alice, GoalInput{UID: uid, Tipo: "hidratacion", Objetivo: ptr(2.0), Unidad: "litros"}); err != nil {
		t.Fatal(err)
	}

	mine, err := env.habits.ListGoals(ctx, alice, store.GoalFilter{})
	if err != nil || len(mine) != 2 {
		t.Fatalf("ListGoals: %d goals, err %v", len(mine), err)
	}
	filtered, err := env.habits.ListGoals(ctx, pro, store.GoalFilter{UID: uid, Tipo: "SUENO"})
	if err != nil || len(filtered) != 1 || filtered[0].ID != sleep.ID {
		t.Fatalf("filtered ListGoals: %+v, err %v", filtered, err)
	}
	_, err = env.habits.ListGoals(ctx, bob, store.GoalFilter{UID: uid})
	assertStatus(t, err, http.StatusForbidden)

	updated, err := env.habits.UpdateGoal(ctx, alice, sleep.ID, GoalUpdate{Objetivo: ptr(7.5), Activo: ptr(false), Unidad: ptr("")})
	if err != nil {
		t.Fatalf("UpdateGoal: %v", err)
	}
	if updated.Objetivo != 7.5 || updated.Activo || updated.Unidad != "horas" {
		t.Errorf("unexpected update %+v", updated)
	}
	_, err = env.habits.UpdateGoal(ctx, alice, sleep.ID, GoalUpdate{Tipo: ptr("yoga")})
	assertStatus(t, err, http.StatusBadRequest)

	assertStatus(t, env.habits.DeleteGoal(ctx, bob, sleep.ID), http.StatusForbidden)
	if err := env.habits.DeleteGoal(ctx, alice, sleep.ID); err != nil {
		t.Fatalf("DeleteGoal: %v", err)
	}
	_, err = env.habits.GetGoal(ctx, alice, sleep.ID)
	assertStatus(t, err, http.StatusNotFound)
}

func TestParseEventDate(t *testing.T) {
	now := time.Date(2024, 3, 9, 22, 15, 0, 0, time.UTC)
	tests := []struct {
		in   string
		want string
	}{
		{"", "2024-03-09"},
		{"2024-01-05", "2024-01-05"},
		{"2024-01-05T10:30:00Z", "2024-01-05"},
		{"2024-01-05T23:30:00-05:00", "2024-01-05"},
	}
	for _, tt := range tests {
		got, err := parseEventDate(tt.in, now)
		if err != nil {
			t.Fatalf("parseEventDate(%q): %v", tt.in, err)
		}
		if got.Format(dateLayout) != tt.want || got.Location() != time.UTC {
			t.Errorf("parseEventDate(%q) = %v, want %s", tt.in, got, tt.want)
		}
	}
	if _, err := parseEventDate("ayer", now); err == nil {
		t.Error("expected error for invalid date")
	}
}
