package services

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"healthtrack-api/internal/apperrors"
	"healthtrack-api/internal/models"
	"healthtrack-api/internal/store"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	dateLayout        = "2006-01-02"
	defaultFrequency  = "diaria"
	definitionLookups = 8
)

var (
	errDefinitionNotFound = apperrors.NewNotFoundError("Definición de hábito no encontrada.")
	errGoalNotFound       = apperrors.NewNotFoundError("Hábito no encontrado.")
)

// HabitService covers habit definitions, registrations and the legacy
// per-user goals.
type HabitService struct {
	habits store.HabitStore
	log    *slog.Logger
	now    func() time.Time
}

func NewHabitService(habits store.HabitStore, log *slog.Logger) *HabitService {
	return &HabitService{habits: habits, log: log, now: time.Now}
}

// DefinitionInput describes a new habit definition.
type DefinitionInput struct {
	Nombre       string
	TipoMedicion string
	Meta         *float64
	Frecuencia   string
	Username     string // owner; empty means the caller
	Global       bool   // admin only
}

func normalizeKind(kind string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case models.KindNumeric, "numeric":
		return models.KindNumeric, true
	case models.KindBinary, "binary":
		return models.KindBinary, true
	}
	return "", false
}

func (s *HabitService) CreateDefinition(ctx context.Context, caller *Caller, in DefinitionInput) (*models.HabitDefinition, error) {
	d := &models.HabitDefinition{
		Nombre:     strings.TrimSpace(in.Nombre),
		Frecuencia: strings.TrimSpace(in.Frecuencia),
	}
	if d.Nombre == "" {
		return nil, fieldError("nombre", "es requerido")
	}
	kind, ok := normalizeKind(in.TipoMedicion)
	if !ok {
		return nil, fieldError("tipo_medicion", "debe ser 'numerico' o 'binario'")
	}
	d.TipoMedicion = kind
	switch {
	case in.Meta != nil:
		if math.IsNaN(*in.Meta) || math.IsInf(*in.Meta, 0) || *in.Meta < 0 {
			return nil, fieldError("meta", "debe ser un número mayor o igual a 0")
		}
		d.Meta = *in.Meta
	case kind == models.KindBinary:
		d.Meta = 1
	default:
		return nil, fieldError("meta", "es requerido para hábitos numéricos")
	}
	if d.Frecuencia == "" {
		d.Frecuencia = defaultFrequency
	}

	if in.Global {
		if !caller.IsAdmin() {
			return nil, errForbidden
		}
	} else {
		owner := strings.TrimSpace(in.Username)
		if owner == "" {
			owner = caller.Username
		}
		if owner == "" {
			return nil, fieldError("username", "es requerido")
		}
		if !caller.CanActForUsername(owner) {
			return nil, errForbidden
		}
		d.Username = &owner
	}

	d.ID = uuid.NewString()
	d.CreatedAt = s.now().UTC()
	if err := s.habits.CreateDefinition(ctx, d); err != nil {
		return nil, apperrors.Internal("Error al crear la definición del hábito.", err)
	}
	return d, nil
}

// ListDefinitions returns the global definitions plus the user's own.
func (s *HabitService) ListDefinitions(ctx context.Context, caller *Caller, username string) ([]models.HabitDefinition, error) {
	if !caller.CanActForUsername(username) {
		return nil, errForbidden
	}
	defs, err := s.habits.ListDefinitions(ctx, username)
	if err != nil {
		return nil, apperrors.Internal("Error al listar definiciones.", err)
	}
	return defs, nil
}

// DeleteDefinition removes a definition. Owners and admins may delete a
// user definition; global definitions are admin only. Registrations that
// reference it stay stored and drop out of the joined view.
func (s *HabitService) DeleteDefinition(ctx context.Context, caller *Caller, id string) error {
	d, err := s.habits.GetDefinition(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return errDefinitionNotFound
	}
	if err != nil {
		return apperrors.Internal("Error al eliminar la definición.", err)
	}

	allowed := caller.IsAdmin() || (!d.IsGlobal() && caller.IsUsername(*d.Username))
	if !allowed {
		return errForbidden
	}

	if err := s.habits.DeleteDefinition(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return errDefinitionNotFound
		}
		return apperrors.Internal("Error al eliminar la definición.", err)
	}
	s.log.Info("habit definition deleted", "id", id, "caller", caller.UID)
	return nil
}

// RegistrationInput is one logged value. Valor carries the raw decoded JSON
// value so binary and numeric kinds can coerce it differently.
type RegistrationInput struct {
	HabitoID   string
	Username   string
	Valor      any
	Comentario string
	Fecha      string
}

func (s *HabitService) RegisterEntry(ctx context.Context, caller *Caller, in RegistrationInput) (*models.HabitRegistration, error) {
	if strings.TrimSpace(in.HabitoID) == "" {
		return nil, fieldError("habito_id", "es requerido")
	}
	owner := strings.TrimSpace(in.Username)
	if owner == "" {
		owner = caller.Username
	}
	if owner == "" {
		return nil, fieldError("username", "es requerido")
	}
	if !caller.CanActForUsername(owner) {
		return nil, errForbidden
	}

	fecha, err := parseEventDate(in.Fecha, s.now())
	if err != nil {
		return nil, fieldError("fecha", "debe tener el formato YYYY-MM-DD")
	}

	d, err := s.habits.GetDefinition(ctx, in.HabitoID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errDefinitionNotFound
	}
	if err != nil {
		return nil, apperrors.Internal("Error al registrar el hábito.", err)
	}

	var valor float64
	if d.TipoMedicion == models.KindBinary {
		valor = coerceBinary(in.Valor)
	} else {
		if valor, err = coerceNumeric(in.Valor); err != nil {
			return nil, fieldError("valor_registrado", "debe ser un número válido")
		}
	}

	r := &models.HabitRegistration{
		ID:              uuid.NewString(),
		HabitoID:        d.ID,
		Username:        owner,
		ValorRegistrado: valor,
		Comentario:      strings.TrimSpace(in.Comentario),
		Fecha:           fecha,
		CreatedAt:       s.now().UTC(),
	}
	if err := s.habits.CreateRegistration(ctx, r); err != nil {
		return nil, apperrors.Internal("Error al registrar el hábito.", err)
	}
	return r, nil
}

// parseEventDate accepts YYYY-MM-DD or RFC3339 and returns midnight UTC of
// that calendar date. An empty value means today.
func parseEventDate(v string, now time.Time) (time.Time, error) {
	v = strings.TrimSpace(v)
	var t time.Time
	switch {
	case v == "":
		t = now.UTC()
	default:
		var err error
		if t, err = time.Parse(dateLayout, v); err != nil {
			if t, err = time.Parse(time.RFC3339, v); err != nil {
				return time.Time{}, err
			}
		}
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

// coerceBinary maps absent, false, zero, "" and "0" to 0 and anything else to 1.
func coerceBinary(v any) float64 {
	switch x := v.(type) {
	case nil:
		return 0
	case bool:
		if x {
			return 1
		}
		return 0
	case float64:
		if x == 0 {
			return 0
		}
		return 1
	case json.Number:
		if f, err := x.Float64(); err == nil && f == 0 {
			return 0
		}
		return 1
	case string:
		if s := strings.TrimSpace(x); s == "" || s == "0" {
			return 0
		}
		return 1
	}
	return 1
}

func coerceNumeric(v any) (float64, error) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case json.Number:
		var err error
		if f, err = x.Float64(); err != nil {
			return 0, err
		}
	case string:
		var err error
		if f, err = strconv.ParseFloat(strings.TrimSpace(x), 64); err != nil {
			return 0, err
		}
	default:
		return 0, errors.New("not a number")
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errors.New("not a finite number")
	}
	return f, nil
}

// JoinedRegistration is a registration enriched with its definition.
type JoinedRegistration struct {
	ID              string    `json:"id"`
	HabitoID        string    `json:"habito_id"`
	NombreHabito    string    `json:"nombre_habito"`
	TipoMedicion    string    `json:"tipo_medicion"`
	Meta            float64   `json:"meta"`
	Frecuencia      string    `json:"frecuencia"`
	ValorRegistrado float64   `json:"valor_registrado"`
	Comentario      string    `json:"comentario"`
	Fecha           string    `json:"fecha"`
	CreadoEn        time.Time `json:"creado_en"`
	Username        string    `json:"username"`
}

// ListRegistrationsJoined returns the user's registrations joined with their
// definitions, newest event date first. Registrations whose definition no
// longer exists are left out.
func (s *HabitService) ListRegistrationsJoined(ctx context.Context, caller *Caller, username string) ([]JoinedRegistration, error) {
	if !caller.CanActForUsername(username) {
		return nil, errForbidden
	}
	regs, err := s.habits.ListRegistrations(ctx, username)
	if err != nil {
		return nil, apperrors.Internal("Error al listar registros.", err)
	}

	defs, err := s.resolveDefinitions(ctx, regs)
	if err != nil {
		return nil, apperrors.Internal("Error al listar registros.", err)
	}

	out := make([]JoinedRegistration, 0, len(regs))
	for _, r := range regs {
		d, ok := defs[r.HabitoID]
		if !ok {
			continue
		}
		out = append(out, JoinedRegistration{
			ID:              r.ID,
			HabitoID:        r.HabitoID,
			NombreHabito:    d.Nombre,
			TipoMedicion:    d.TipoMedicion,
			Meta:            d.Meta,
			Frecuencia:      d.Frecuencia,
			ValorRegistrado: r.ValorRegistrado,
			Comentario:      r.Comentario,
			Fecha:           r.Fecha.UTC().Format(dateLayout),
			CreadoEn:        r.CreatedAt.UTC(),
			Username:        r.Username,
		})
	}

	slices.SortStableFunc(out, func(a, b JoinedRegistration) int {
		if c := cmp.Compare(b.Fecha, a.Fecha); c != 0 {
			return c
		}
		return b.CreadoEn.Compare(a.CreadoEn)
	})
	return out, nil
}

// resolveDefinitions looks up every distinct definition referenced by regs
// concurrently. Missing definitions are absent from the returned map.
func (s *HabitService) resolveDefinitions(ctx context.Context, regs []models.HabitRegistration) (map[string]*models.HabitDefinition, error) {
	var ids []string
	seen := make(map[string]bool)
	for _, r := range regs {
		if !seen[r.HabitoID] {
			seen[r.HabitoID] = true
			ids = append(ids, r.HabitoID)
		}
	}

	found := make([]*models.HabitDefinition, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(definitionLookups)
	for i, id := range ids {
		g.Go(func() error {
			d, err := s.habits.GetDefinition(gctx, id)
			if errors.Is(err, store.ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			found[i] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	defs := make(map[string]*models.HabitDefinition, len(ids))
	for _, d := range found {
		if d != nil {
			defs[d.ID] = d
		}
	}
	return defs, nil
}

// globalSeeds are the predefined definitions offered to every user.
var globalSeeds = []models.HabitDefinition{
	{Nombre: "Horas de sueño", TipoMedicion: models.KindNumeric, Meta: 8, Frecuencia: defaultFrequency},
	{Nombre: "Pasos", TipoMedicion: models.KindNumeric, Meta: 8000, Frecuencia: defaultFrequency},
	{Nombre: "Vasos de agua", TipoMedicion: models.KindNumeric, Meta: 8, Frecuencia: defaultFrequency},
	{Nombre: "Meditación", TipoMedicion: models.KindBinary, Meta: 1, Frecuencia: defaultFrequency},
}

// SeedGlobalDefinitions creates the predefined global definitions that do
// not exist yet. Running it again is a no-op.
func (s *HabitService) SeedGlobalDefinitions(ctx context.Context) (int, error) {
	existing, err := s.habits.ListDefinitions(ctx, "")
	if err != nil {
		return 0, err
	}
	have := make(map[string]bool, len(existing))
	for _, d := range existing {
		have[strings.ToLower(d.Nombre)] = true
	}

	created := 0
	for _, seed := range globalSeeds {
		if have[strings.ToLower(seed.Nombre)] {
			continue
		}
		d := seed
		d.ID = uuid.NewString()
		d.CreatedAt = s.now().UTC()
		if err := s.habits.CreateDefinition(ctx, &d); err != nil {
			return created, err
		}
		created++
	}
	if created > 0 {
		s.log.Info("seeded global habit definitions", "count", created)
	}
	return created, nil
}

// GoalInput creates a legacy habit goal.
type GoalInput struct {
	UID      string
	Tipo     string
	Objetivo *float64
	Unidad   string
	Activo   *bool
}

func (s *HabitService) CreateGoal(ctx context.Context, caller *Caller, in GoalInput) (*models.HabitGoal, error) {
	g := &models.HabitGoal{
		UID:    strings.TrimSpace(in.UID),
		Tipo:   strings.ToLower(strings.TrimSpace(in.Tipo)),
		Unidad: strings.TrimSpace(in.Unidad),
		Activo: true,
	}
	if g.UID == "" || g.Tipo == "" || in.Objetivo == nil || g.Unidad == "" {
		return nil, apperrors.NewBadRequestError("Faltan campos obligatorios: uid, tipo, objetivo, unidad.")
	}
	if !models.ValidGoalType(g.Tipo) {
		return nil, invalidGoalType()
	}
	if !caller.CanActForID(g.UID) {
		return nil, errForbidden
	}
	g.Objetivo = *in.Objetivo
	if in.Activo != nil {
		g.Activo = *in.Activo
	}

	now := s.now().UTC()
	g.ID = uuid.NewString()
	g.CreatedAt = now
	g.UpdatedAt = now
	if err := s.habits.CreateGoal(ctx, g); err != nil {
		return nil, apperrors.Internal("Error al crear hábito.", err)
	}
	return g, nil
}

// ListGoals filters by uid and tipo. Callers that are not staff only see
// their own goals.
func (s *HabitService) ListGoals(ctx context.Context, caller *Caller, f store.GoalFilter) ([]models.HabitGoal, error) {
	f.Tipo = strings.ToLower(strings.TrimSpace(f.Tipo))
	if !caller.IsStaff() {
		if f.UID == "" {
			f.UID = caller.UID
		}
		if !caller.IsID(f.UID) {
			return nil, errForbidden
		}
	}
	goals, err := s.habits.ListGoals(ctx, f)
	if err != nil {
		return nil, apperrors.Internal("Error al listar hábitos.", err)
	}
	return goals, nil
}

func (s *HabitService) GetGoal(ctx context.Context, caller *Caller, id string) (*models.HabitGoal, error) {
	g, err := s.habits.GetGoal(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errGoalNotFound
	}
	if err != nil {
		return nil, apperrors.Internal("Error al obtener hábito.", err)
	}
	if !caller.CanActForID(g.UID) {
		return nil, errForbidden
	}
	return g, nil
}

// GoalUpdate changes only the non-nil fields.
type GoalUpdate struct {
	Tipo     *string  `json:"tipo"`
	Objetivo *float64 `json:"objetivo"`
	Unidad   *string  `json:"unidad"`
	Activo   *bool    `json:"activo"`
}

func (s *HabitService) UpdateGoal(ctx context.Context, caller *Caller, id string, upd GoalUpdate) (*models.HabitGoal, error) {
	g, err := s.GetGoal(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if upd.Tipo != nil {
		tipo := strings.ToLower(strings.TrimSpace(*upd.Tipo))
		if !models.ValidGoalType(tipo) {
			return nil, invalidGoalType()
		}
		g.Tipo = tipo
	}
	if upd.Objetivo != nil {
		g.Objetivo = *upd.Objetivo
	}
	if upd.Unidad != nil {
		if u := strings.TrimSpace(*upd.Unidad); u != "" {
			g.Unidad = u
		}
	}
	if upd.Activo != nil {
		g.Activo = *upd.Activo
	}
	g.UpdatedAt = s.now().UTC()

	if err := s.habits.SaveGoal(ctx, g); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errGoalNotFound
		}
		return nil, apperrors.Internal("Error al actualizar hábito.", err)
	}
	return g, nil
}

func (s *HabitService) DeleteGoal(ctx context.Context, caller *Caller, id string) error {
	if _, err := s.GetGoal(ctx, caller, id); err != nil {
		return err
	}
	if err := s.habits.DeleteGoal(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return errGoalNotFound
		}
		return apperrors.Internal("Error al eliminar hábito.", err)
	}
	return nil
}

func invalidGoalType() *apperrors.APIError {
	return apperrors.NewBadRequestError("Tipo de hábito inválido. Debe ser uno de: " + strings.Join(models.GoalTypes, ", "))
}
