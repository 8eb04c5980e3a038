package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"healthtrack-api/internal/apperrors"
	"healthtrack-api/internal/identity"
	"healthtrack-api/internal/models"
	"healthtrack-api/internal/store"
	"healthtrack-api/internal/utils"

	"github.com/google/uuid"
)

var (
	errInvalidCredentials = apperrors.NewUnauthorizedError("Credenciales inválidas.")
	errServerConfig       = apperrors.NewInternalServerError("Error de configuración del servidor.")
)

// AuthService is the identity gateway: it pairs provider identities with
// local usuarios documents and issues or verifies credentials.
type AuthService struct {
	users     store.UserStore
	provider  identity.Provider
	jwtSecret []byte
	log       *slog.Logger
}

func NewAuthService(users store.UserStore, provider identity.Provider, jwtSecret string, log *slog.Logger) *AuthService {
	return &AuthService{
		users:     users,
		provider:  provider,
		jwtSecret: []byte(jwtSecret),
		log:       log,
	}
}

// RegisterInput is a validated registration request.
type RegisterInput struct {
	Nombre             string
	Apellido           string
	Email              string
	Username           string
	Password           string
	Rol                string
	Edad               *int
	Genero             *string
	Altura             *float64
	Peso               *float64
	CondicionesMedicas string
	Activo             *bool
}

// Register creates the provider identity and the linked local document.
// When the local write fails the provider identity is removed again.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if len(strings.TrimSpace(in.Password)) < identity.MinPasswordLength {
		return nil, apperrors.NewBadRequestError("La contraseña debe ser un texto de al menos 6 caracteres.")
	}

	u := &models.User{
		Nombre:             strings.TrimSpace(in.Nombre),
		Apellido:           strings.TrimSpace(in.Apellido),
		Email:              normalizeEmail(in.Email),
		Username:           strings.TrimSpace(in.Username),
		Rol:                strings.ToLower(strings.TrimSpace(in.Rol)),
		Activo:             true,
		Edad:               in.Edad,
		Genero:             in.Genero,
		Altura:             in.Altura,
		Peso:               in.Peso,
		CondicionesMedicas: strings.TrimSpace(in.CondicionesMedicas),
	}
	if in.Activo != nil {
		u.Activo = *in.Activo
	}
	if u.Nombre == "" || u.Apellido == "" || u.Email == "" || u.Username == "" {
		return nil, apperrors.NewBadRequestError("Nombre, apellido, email y username son campos requeridos.")
	}
	if u.Rol == "" {
		u.Rol = models.RoleUser
	}
	if !models.ValidRole(u.Rol) {
		return nil, apperrors.NewBadRequestError("El campo 'rol' debe ser 'user', 'profesional' o 'admin'.")
	}
	// Staff roles are granted only through the PIN-guarded admin update.
	if u.Rol != models.RoleUser {
		return nil, apperrors.NewForbiddenError("Los roles profesional y admin solo se asignan mediante la actualización de administrador.")
	}

	if err := ensureUnique(ctx, s.users, u.Email, u.Username, ""); err != nil {
		return nil, err
	}

	uid, err := s.provider.CreateUser(ctx, identity.CreateUserParams{
		Email:       u.Email,
		Password:    in.Password,
		DisplayName: u.Nombre + " " + u.Apellido,
	})
	switch {
	case errors.Is(err, identity.ErrEmailExists):
		return nil, apperrors.NewConflictError("El correo electrónico ya está registrado en el proveedor de identidad.")
	case errors.Is(err, identity.ErrInvalidPassword):
		return nil, apperrors.NewBadRequestError("La contraseña debe tener al menos 6 caracteres.")
	case err != nil:
		return nil, apperrors.Internal("Error al crear usuario.", err)
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		s.rollbackIdentity(ctx, uid)
		return nil, apperrors.Internal("Error al crear usuario.", err)
	}

	now := time.Now().UTC()
	u.ID = uuid.NewString()
	u.FirebaseUID = &uid
	u.PasswordHash = hash
	u.CreatedAt = now
	u.UpdatedAt = now

	if err := s.users.CreateUser(ctx, u); err != nil {
		s.rollbackIdentity(ctx, uid)
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperrors.NewConflictError("El correo o el nombre de usuario ya están registrados.")
		}
		return nil, apperrors.Internal("Error al crear usuario.", err)
	}

	s.log.Info("user registered", "id", u.ID, "uid", uid, "username", u.Username)
	return u, nil
}

func (s *AuthService) rollbackIdentity(ctx context.Context, uid string) {
	if err := s.provider.DeleteUser(ctx, uid); err != nil {
		s.log.Error("failed to roll back provider identity", "uid", uid, "err", err)
	}
}

// LoginResult carries the provider credential and the resolved profile.
type LoginResult struct {
	Token string
	UID   string
	Email string
	User  *models.User // nil when no local profile is linked yet
}

// DocID returns the local document id, falling back to the provider uid.
func (r *LoginResult) DocID() string {
	if r.User != nil {
		return r.User.ID
	}
	return r.UID
}

// Role returns the profile role, "user" when no profile exists.
func (r *LoginResult) Role() string {
	if r.User != nil && r.User.Rol != "" {
		return r.User.Rol
	}
	return models.RoleUser
}

// Login signs in through the provider. identifier is an email when it
// contains "@", otherwise a username resolved locally.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, apperrors.NewBadRequestError("Identificador (email o username) y contraseña son requeridos.")
	}

	email, err := s.resolveEmail(ctx, identifier)
	if err != nil {
		return nil, err
	}

	res, err := s.provider.SignInWithPassword(ctx, email, password)
	switch {
	case errors.Is(err, identity.ErrInvalidCredentials):
		s.log.Info("login rejected by provider", "identifier", identifier, "err", err)
		return nil, errInvalidCredentials
	case errors.Is(err, identity.ErrUserDisabled):
		return nil, apperrors.NewForbiddenError("Usuario deshabilitado.")
	case errors.Is(err, identity.ErrConfiguration):
		return nil, errServerConfig.Wrap(err)
	case err != nil:
		return nil, apperrors.Internal("Error interno del servidor.", err)
	}

	u, err := s.resolveProfile(ctx, res.LocalID, email, false)
	if err != nil {
		return nil, apperrors.Internal("Error interno del servidor.", err)
	}

	respEmail := res.Email
	if respEmail == "" {
		respEmail = email
	}
	return &LoginResult{Token: res.IDToken, UID: res.LocalID, Email: respEmail, User: u}, nil
}

func (s *AuthService) resolveEmail(ctx context.Context, identifier string) (string, error) {
	if strings.Contains(identifier, "@") {
		return normalizeEmail(identifier), nil
	}
	u, err := s.users.FindUserByUsername(ctx, identifier)
	if errors.Is(err, store.ErrNotFound) {
		return "", errInvalidCredentials
	}
	if err != nil {
		return "", apperrors.Internal("Error interno del servidor.", err)
	}
	if u.Email == "" {
		return "", errInvalidCredentials
	}
	return u.Email, nil
}

// resolveProfile finds the local document for a provider identity: by
// provider uid, then (when byDocID) by document id, then by email.
// A missing profile is not an error.
func (s *AuthService) resolveProfile(ctx context.Context, uid, email string, byDocID bool) (*models.User, error) {
	lookups := []func() (*models.User, error){
		func() (*models.User, error) { return s.users.FindUserByProviderUID(ctx, uid) },
	}
	if byDocID {
		lookups = append(lookups, func() (*models.User, error) { return s.users.GetUserByID(ctx, uid) })
	}
	if email != "" {
		lookups = append(lookups, func() (*models.User, error) { return s.users.FindUserByEmail(ctx, normalizeEmail(email)) })
	}

	for _, lookup := range lookups {
		u, err := lookup()
		if err == nil {
			return u, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
	}
	return nil, nil
}

// VerifyResult describes a verified provider token.
type VerifyResult struct {
	UID   string
	Email string
	User  *models.User
}

func (r *VerifyResult) DocID() string {
	if r.User != nil {
		return r.User.ID
	}
	return r.UID
}

func (r *VerifyResult) Role() string {
	if r.User != nil && r.User.Rol != "" {
		return r.User.Rol
	}
	return models.RoleUser
}

// Verify checks a provider ID token and resolves whatever local profile exists.
func (s *AuthService) Verify(ctx context.Context, token string) (*VerifyResult, error) {
	if strings.TrimSpace(token) == "" {
		return nil, apperrors.NewBadRequestError("Token no proporcionado.")
	}

	claims, err := s.provider.VerifyIDToken(ctx, token)
	if err != nil {
		if errors.Is(err, identity.ErrTokenExpired) {
			return nil, apperrors.NewUnauthorizedError("El token ha expirado.").Wrap(err)
		}
		return nil, apperrors.NewUnauthorizedError("Token inválido o error de verificación.").Wrap(err)
	}

	u, err := s.resolveProfile(ctx, claims.UID, claims.Email, true)
	if err != nil {
		return nil, apperrors.Internal("Error al verificar token.", err)
	}
	return &VerifyResult{UID: claims.UID, Email: claims.Email, User: u}, nil
}

// AuthenticateBearer turns a provider ID token into a Caller.
func (s *AuthService) AuthenticateBearer(ctx context.Context, token string) (*Caller, error) {
	res, err := s.Verify(ctx, token)
	if err != nil {
		return nil, err
	}
	c := callerFromUser(res.UID, res.User)
	if c.Email == "" {
		c.Email = res.Email
	}
	return c, nil
}

// AuthenticateLegacy turns an x-token issued by LocalLogin into a Caller.
func (s *AuthService) AuthenticateLegacy(token string) (*Caller, error) {
	claims, err := utils.ParseLegacyToken(s.jwtSecret, token)
	if err != nil {
		return nil, apperrors.NewUnauthorizedError("Token no válido o expirado.").Wrap(err)
	}
	role := claims.Rol
	if role == "" {
		role = models.RoleUser
	}
	return &Caller{UID: claims.UID, DocID: claims.UID, Username: claims.Username, Role: role}, nil
}

// LocalLoginResult is the outcome of a direct login against the local hash.
type LocalLoginResult struct {
	Token string
	User  *models.User
}

// LocalLogin checks the password against the local hash copy and issues an
// x-token. It keeps working while the identity provider is unreachable.
func (s *AuthService) LocalLogin(ctx context.Context, identifier, password string) (*LocalLoginResult, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, apperrors.NewBadRequestError("Identificador (email o username) y contraseña son requeridos.")
	}

	var (
		u   *models.User
		err error
	)
	if strings.Contains(identifier, "@") {
		u, err = s.users.FindUserByEmail(ctx, normalizeEmail(identifier))
	} else {
		u, err = s.users.FindUserByUsername(ctx, identifier)
	}
	if errors.Is(err, store.ErrNotFound) {
		return nil, errInvalidCredentials
	}
	if err != nil {
		return nil, apperrors.Internal("Error interno del servidor.", err)
	}
	if u.PasswordHash == "" || !utils.CheckPassword(password, u.PasswordHash) {
		return nil, errInvalidCredentials
	}
	if !u.Activo {
		return nil, apperrors.NewForbiddenError("Usuario deshabilitado.")
	}

	token, err := utils.GenerateLegacyToken(s.jwtSecret, u.ID, u.Rol, u.Username, utils.LegacyTokenTTL)
	if err != nil {
		return nil, apperrors.Internal("Error interno del servidor.", err)
	}
	return &LocalLoginResult{Token: token, User: u}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ensureUnique is the pre-write uniqueness check. It only produces a
// friendlier message; the store's unique indexes are the real guard.
func ensureUnique(ctx context.Context, users store.UserStore, email, username, ignoreID string) error {
	if email != "" {
		u, err := users.FindUserByEmail(ctx, email)
		if err == nil && u.ID != ignoreID {
			return apperrors.NewConflictError("El correo ya está registrado.")
		}
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return apperrors.Internal("Error al validar unicidad.", err)
		}
	}
	if username != "" {
		u, err := users.FindUserByUsername(ctx, username)
		if err == nil && u.ID != ignoreID {
			return apperrors.NewConflictError("El nombre de usuario ya está en uso.")
		}
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return apperrors.Internal("Error al validar unicidad.", err)
		}
	}
	return nil
}

// ChangePassword sets a new password on the provider identity and then on
// the local hash copy of the caller's profile.
func (s *AuthService) ChangePassword(ctx context.Context, caller *Caller, newPassword string) error {
	if len(strings.TrimSpace(newPassword)) < identity.MinPasswordLength {
		return apperrors.NewBadRequestError("La nueva contraseña debe tener al menos 6 caracteres.")
	}

	u, err := s.resolveProfile(ctx, caller.UID, caller.Email, true)
	if err != nil {
		return apperrors.Internal("Error al cambiar la contraseña.", err)
	}
	if u == nil {
		return apperrors.NewNotFoundError("Usuario no encontrado.")
	}

	if uid := u.ProviderUID(); uid != "" {
		err := s.provider.UpdateUser(ctx, uid, identity.UpdateUserParams{Password: &newPassword})
		switch {
		case errors.Is(err, identity.ErrInvalidPassword):
			return apperrors.NewBadRequestError("La nueva contraseña debe tener al menos 6 caracteres.")
		case err != nil:
			return apperrors.Internal("Error al cambiar la contraseña.", err)
		}
	}

	hash, err := utils.HashPassword(newPassword)
	if err != nil {
		return apperrors.Internal("Error al cambiar la contraseña.", err)
	}
	u.PasswordHash = hash
	u.UpdatedAt = time.Now().UTC()
	if err := s.users.SaveUser(ctx, u); err != nil {
		return apperrors.Internal("Error al cambiar la contraseña.", err)
	}
	s.log.Info("password changed", "id", u.ID)
	return nil
}
