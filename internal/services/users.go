package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"healthtrack-api/internal/apperrors"
	"healthtrack-api/internal/identity"
	"healthtrack-api/internal/models"
	"healthtrack-api/internal/store"
	"healthtrack-api/internal/utils"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

var (
	errForbidden    = apperrors.NewForbiddenError("No autorizado para esta operación.")
	errUserNotFound = apperrors.NewNotFoundError("Usuario no encontrado.")
	errInvalidPIN   = apperrors.NewForbiddenError("PIN de administrador inválido.")
)

// Accepted values for the genero profile field.
var genders = []string{"masculino", "femenino", "otro"}

// UserService manages usuarios documents.
type UserService struct {
	users    store.UserStore
	provider identity.Provider
	adminPIN string
	log      *slog.Logger
}

func NewUserService(users store.UserStore, provider identity.Provider, adminPIN string, log *slog.Logger) *UserService {
	return &UserService{users: users, provider: provider, adminPIN: adminPIN, log: log}
}

// CreateUserInput is a local profile creation without a provider identity.
type CreateUserInput struct {
	Nombre             string
	Apellido           string
	Email              string
	Username           string
	Password           string
	Edad               *int
	Genero             *string
	CondicionesMedicas string
}

// Create stores a local profile with a hashed password and role "user".
func (s *UserService) Create(ctx context.Context, in CreateUserInput) (*models.User, error) {
	u := &models.User{
		Nombre:             strings.TrimSpace(in.Nombre),
		Apellido:           strings.TrimSpace(in.Apellido),
		Email:              normalizeEmail(in.Email),
		Username:           strings.TrimSpace(in.Username),
		Rol:                models.RoleUser,
		Activo:             true,
		Edad:               in.Edad,
		CondicionesMedicas: strings.TrimSpace(in.CondicionesMedicas),
	}
	if u.Email == "" || u.Username == "" || in.Password == "" {
		return nil, apperrors.NewBadRequestError("Faltan campos obligatorios: email, username, password.")
	}
	if len(in.Password) < identity.MinPasswordLength {
		return nil, apperrors.NewBadRequestError("La contraseña debe ser un texto de al menos 6 caracteres.")
	}
	if in.Genero != nil {
		g, err := normalizeGender(*in.Genero)
		if err != nil {
			return nil, err
		}
		u.Genero = &g
	}
	if u.Edad != nil && *u.Edad < 0 {
		return nil, fieldError("edad", "debe ser un número mayor o igual a 0")
	}

	if err := ensureUnique(ctx, s.users, u.Email, u.Username, ""); err != nil {
		return nil, err
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, apperrors.Internal("Error al crear usuario.", err)
	}
	now := time.Now().UTC()
	u.ID = uuid.NewString()
	u.PasswordHash = hash
	u.CreatedAt = now
	u.UpdatedAt = now

	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperrors.NewConflictError("El correo o el nombre de usuario ya están registrados.")
		}
		return nil, apperrors.Internal("Error al crear usuario.", err)
	}
	return u, nil
}

// List returns every profile. Staff only.
func (s *UserService) List(ctx context.Context, caller *Caller) ([]models.User, error) {
	if !caller.IsStaff() {
		return nil, errForbidden
	}
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, apperrors.Internal("Error al listar usuarios.", err)
	}
	return users, nil
}

// Get resolves ref as a document id, then as a provider uid.
func (s *UserService) Get(ctx context.Context, caller *Caller, ref string) (*models.User, error) {
	u, err := s.lookup(ctx, ref)
	if err != nil {
		return nil, err
	}
	if !caller.IsStaff() && !owns(caller, u) {
		return nil, errForbidden
	}
	return u, nil
}

func (s *UserService) GetByUsername(ctx context.Context, caller *Caller, username string) (*models.User, error) {
	u, err := s.byUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if !caller.IsStaff() && !owns(caller, u) {
		return nil, errForbidden
	}
	return u, nil
}

func (s *UserService) lookup(ctx context.Context, ref string) (*models.User, error) {
	u, err := s.users.GetUserByID(ctx, ref)
	if errors.Is(err, store.ErrNotFound) {
		u, err = s.users.FindUserByProviderUID(ctx, ref)
	}
	if errors.Is(err, store.ErrNotFound) {
		return nil, errUserNotFound
	}
	if err != nil {
		return nil, apperrors.Internal("Error al obtener usuario.", err)
	}
	return u, nil
}

func (s *UserService) byUsername(ctx context.Context, username string) (*models.User, error) {
	u, err := s.users.FindUserByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errUserNotFound
	}
	if err != nil {
		return nil, apperrors.Internal("Error al obtener usuario.", err)
	}
	return u, nil
}

// owns reports whether u is the caller's own profile. Each caller field is
// compared only with the matching field of u.
func owns(c *Caller, u *models.User) bool {
	if c == nil {
		return false
	}
	return (c.DocID != "" && c.DocID == u.ID) || (c.UID != "" && c.UID == u.ProviderUID())
}

// ProfileUpdate holds the self-service profile fields. Nil fields are left untouched.
type ProfileUpdate struct {
	Edad               *int      `json:"edad"`
	Altura             *float64  `json:"altura"`
	Peso               *float64  `json:"peso"`
	Genero             *string   `json:"genero"`
	CondicionesMedicas *string   `json:"condiciones_medicas"`
	HoraDespertar      *string   `json:"hora_despertar"`
	HoraDormir         *string   `json:"hora_dormir"`
	Objetivos          *[]string `json:"objetivos"`
	Activo             *bool     `json:"activo"`
}

// normalize validates every field and returns the cleaned copy. The first
// invalid field aborts the whole update.
func (p ProfileUpdate) normalize() (ProfileUpdate, error) {
	out := p
	if p.Edad != nil && *p.Edad < 0 {
		return out, fieldError("edad", "debe ser un número entero mayor o igual a 0")
	}
	if p.Altura != nil && *p.Altura < 0 {
		return out, fieldError("altura", "debe ser un número mayor o igual a 0")
	}
	if p.Peso != nil && *p.Peso < 0 {
		return out, fieldError("peso", "debe ser un número mayor o igual a 0")
	}
	if p.Genero != nil {
		g, err := normalizeGender(*p.Genero)
		if err != nil {
			return out, err
		}
		out.Genero = &g
	}
	if p.CondicionesMedicas != nil {
		c := strings.TrimSpace(*p.CondicionesMedicas)
		out.CondicionesMedicas = &c
	}
	for _, f := range []struct {
		name string
		src  *string
		dst  **string
	}{
		{"hora_despertar", p.HoraDespertar, &out.HoraDespertar},
		{"hora_dormir", p.HoraDormir, &out.HoraDormir},
	} {
		if f.src == nil {
			continue
		}
		hhmm, err := normalizeClock(*f.src)
		if err != nil {
			return out, fieldError(f.name, "debe tener el formato HH:MM")
		}
		*f.dst = &hhmm
	}
	if p.Objetivos != nil {
		objs := make([]string, 0, len(*p.Objetivos))
		for _, o := range *p.Objetivos {
			if o = strings.TrimSpace(o); o != "" {
				objs = append(objs, o)
			}
		}
		out.Objetivos = &objs
	}
	return out, nil
}

func (p ProfileUpdate) applyTo(u *models.User) {
	if p.Edad != nil {
		u.Edad = p.Edad
	}
	if p.Altura != nil {
		u.Altura = p.Altura
	}
	if p.Peso != nil {
		u.Peso = p.Peso
	}
	if p.Genero != nil {
		u.Genero = p.Genero
	}
	if p.CondicionesMedicas != nil {
		u.CondicionesMedicas = *p.CondicionesMedicas
	}
	if p.HoraDespertar != nil {
		u.HoraDespertar = p.HoraDespertar
	}
	if p.HoraDormir != nil {
		u.HoraDormir = p.HoraDormir
	}
	if p.Objetivos != nil {
		u.Objetivos = datatypes.JSONSlice[string](*p.Objetivos)
	}
	if p.Activo != nil {
		u.Activo = *p.Activo
	}
}

// UpdateProfile applies a self-service profile change to the user named username.
func (s *UserService) UpdateProfile(ctx context.Context, caller *Caller, username string, upd ProfileUpdate) (*models.User, error) {
	clean, err := upd.normalize()
	if err != nil {
		return nil, err
	}
	u, err := s.byUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if !caller.IsStaff() && !owns(caller, u) {
		return nil, errForbidden
	}

	clean.applyTo(u)
	if err := s.save(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// AdminUpdate extends ProfileUpdate with the role and the PIN that guards
// admin promotions.
type AdminUpdate struct {
	ProfileUpdate
	Rol *string `json:"rol"`
	PIN string  `json:"pin"`
}

// UpdateAdmin applies profile fields and a role change. Promoting to admin,
// or touching an account that already is admin, requires the admin PIN.
// Admins may use it freely; other callers only with the PIN.
func (s *UserService) UpdateAdmin(ctx context.Context, caller *Caller, username string, upd AdminUpdate) (*models.User, error) {
	clean, err := upd.ProfileUpdate.normalize()
	if err != nil {
		return nil, err
	}
	var role string
	if upd.Rol != nil {
		role = strings.ToLower(strings.TrimSpace(*upd.Rol))
		if !models.ValidRole(role) {
			return nil, fieldError("rol", "debe ser 'user', 'profesional' o 'admin'")
		}
	}

	u, err := s.byUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	pinOK := s.checkPIN(upd.PIN)
	if !caller.IsAdmin() && !pinOK {
		return nil, errForbidden
	}
	promoting := upd.Rol != nil && role == models.RoleAdmin && u.Rol != models.RoleAdmin
	if (promoting || u.Rol == models.RoleAdmin) && !pinOK {
		s.log.Warn("admin update rejected: invalid pin", "target", u.Username, "caller", caller.UID)
		return nil, errInvalidPIN
	}

	clean.applyTo(u)
	if upd.Rol != nil {
		u.Rol = role
	}
	if err := s.save(ctx, u); err != nil {
		return nil, err
	}
	if promoting {
		s.log.Info("user promoted to admin", "target", u.Username, "caller", caller.UID)
	}
	return u, nil
}

func (s *UserService) checkPIN(pin string) bool {
	if s.adminPIN == "" || pin == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(pin), []byte(s.adminPIN)) == 1
}

// IdentityUpdate changes the identity fields of a profile. Password, email
// and display name changes are pushed to the identity provider first.
type IdentityUpdate struct {
	Nombre   *string `json:"nombre"`
	Apellido *string `json:"apellido"`
	Email    *string `json:"email"`
	Username *string `json:"username"`
	Password *string `json:"password"`
}

// UpdateIdentity resolves ref as a document id or provider uid.
func (s *UserService) UpdateIdentity(ctx context.Context, caller *Caller, ref string, upd IdentityUpdate) (*models.User, error) {
	u, err := s.lookup(ctx, ref)
	if err != nil {
		return nil, err
	}
	if !caller.IsAdmin() && !owns(caller, u) {
		return nil, errForbidden
	}

	var email, username string
	if upd.Email != nil {
		if email = normalizeEmail(*upd.Email); email == "" {
			return nil, fieldError("email", "no puede estar vacío")
		}
	}
	if upd.Username != nil {
		if username = strings.TrimSpace(*upd.Username); username == "" {
			return nil, fieldError("username", "no puede estar vacío")
		}
	}
	if upd.Password != nil && len(*upd.Password) < identity.MinPasswordLength {
		return nil, fieldError("password", "debe tener al menos 6 caracteres")
	}
	if err := ensureUnique(ctx, s.users, email, username, u.ID); err != nil {
		return nil, err
	}

	if upd.Nombre != nil {
		u.Nombre = strings.TrimSpace(*upd.Nombre)
	}
	if upd.Apellido != nil {
		u.Apellido = strings.TrimSpace(*upd.Apellido)
	}

	params := identity.UpdateUserParams{Password: upd.Password}
	if email != "" && email != u.Email {
		params.Email = &email
	}
	if upd.Nombre != nil || upd.Apellido != nil {
		display := strings.TrimSpace(u.Nombre + " " + u.Apellido)
		params.DisplayName = &display
	}
	if uid := u.ProviderUID(); uid != "" {
		err := s.provider.UpdateUser(ctx, uid, params)
		switch {
		case errors.Is(err, identity.ErrEmailExists):
			return nil, apperrors.NewConflictError("El correo ya está registrado.")
		case errors.Is(err, identity.ErrInvalidPassword):
			return nil, fieldError("password", "debe tener al menos 6 caracteres")
		case err != nil:
			return nil, apperrors.Internal("Error al actualizar usuario.", err)
		}
	}

	if email != "" {
		u.Email = email
	}
	if username != "" {
		u.Username = username
	}
	if upd.Password != nil {
		hash, err := utils.HashPassword(*upd.Password)
		if err != nil {
			return nil, apperrors.Internal("Error al actualizar usuario.", err)
		}
		u.PasswordHash = hash
	}
	if err := s.save(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// AssignProfessional links a patient (role "user") to a professional,
// referenced by document id, provider uid or username.
func (s *UserService) AssignProfessional(ctx context.Context, caller *Caller, patientRef, professionalRef string) (*models.User, error) {
	if !caller.IsStaff() {
		return nil, errForbidden
	}
	professionalRef = strings.TrimSpace(professionalRef)
	if professionalRef == "" {
		return nil, fieldError("profesional_asignado", "es requerido")
	}

	patient, err := s.lookup(ctx, patientRef)
	if err != nil {
		return nil, err
	}
	if patient.Rol != models.RoleUser {
		return nil, apperrors.NewBadRequestError("Solo se puede asignar un profesional a un paciente.")
	}

	pro, err := s.lookup(ctx, professionalRef)
	if apperrors.Is(err, http.StatusNotFound) {
		pro, err = s.byUsername(ctx, professionalRef)
	}
	if apperrors.Is(err, http.StatusNotFound) {
		return nil, apperrors.NewNotFoundError("Profesional no encontrado.")
	}
	if err != nil {
		return nil, err
	}
	if pro.Rol != models.RoleProfessional {
		return nil, apperrors.NewBadRequestError("El usuario asignado no tiene rol profesional.")
	}

	patient.ProfesionalAsignado = &pro.ID
	if err := s.save(ctx, patient); err != nil {
		return nil, err
	}
	return patient, nil
}

// Delete removes the provider identity (best effort) and then the local
// document. Deleting an admin account requires the admin PIN.
func (s *UserService) Delete(ctx context.Context, caller *Caller, ref, pin string) error {
	u, err := s.lookup(ctx, ref)
	if err != nil {
		return err
	}
	if !caller.IsAdmin() && !owns(caller, u) {
		return errForbidden
	}
	if u.Rol == models.RoleAdmin && !s.checkPIN(pin) {
		return errInvalidPIN
	}

	if uid := u.ProviderUID(); uid != "" {
		if err := s.provider.DeleteUser(ctx, uid); err != nil && !errors.Is(err, identity.ErrUserNotFound) {
			s.log.Error("failed to delete provider identity", "uid", uid, "err", err)
		}
	}
	if err := s.users.DeleteUser(ctx, u.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return errUserNotFound
		}
		return apperrors.Internal("Error al eliminar usuario.", err)
	}
	s.log.Info("user deleted", "id", u.ID, "caller", caller.UID)
	return nil
}

func (s *UserService) save(ctx context.Context, u *models.User) error {
	u.UpdatedAt = time.Now().UTC()
	err := s.users.SaveUser(ctx, u)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return errUserNotFound
	case errors.Is(err, store.ErrDuplicate):
		return apperrors.NewConflictError("El correo o el nombre de usuario ya están registrados.")
	case err != nil:
		return apperrors.Internal("Error al actualizar usuario.", err)
	}
	return nil
}

func fieldError(field, problem string) *apperrors.APIError {
	return apperrors.NewBadRequestError("El campo '" + field + "' " + problem + ".")
}

func normalizeGender(g string) (string, error) {
	g = strings.ToLower(strings.TrimSpace(g))
	for _, v := range genders {
		if g == v {
			return g, nil
		}
	}
	return "", fieldError("genero", "debe ser 'masculino', 'femenino' u 'otro'")
}

// normalizeClock accepts H:MM, HH:MM and HH:MM:SS and returns HH:MM.
func normalizeClock(v string) (string, error) {
	v = strings.TrimSpace(v)
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t.Format("15:04"), nil
		}
	}
	return "", errors.New("invalid clock value")
}
