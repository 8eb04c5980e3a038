package handlers

import (
	"log/slog"
	"net/http"

	"healthtrack-api/internal/middleware"
	"healthtrack-api/internal/models"
	"healthtrack-api/internal/services"

	"github.com/gin-gonic/gin"
)

// --- Structs for Request Binding ---

type RegisterRequest struct {
	Nombre             string   `json:"nombre" binding:"required"`
	Apellido           string   `json:"apellido" binding:"required"`
	Email              string   `json:"email" binding:"required,email"`
	Username           string   `json:"username" binding:"required"`
	Password           string   `json:"password" binding:"required"`
	Rol                string   `json:"rol"`
	Edad               *int     `json:"edad" binding:"omitempty,gte=0"`
	Genero             *string  `json:"genero"`
	Altura             *float64 `json:"altura" binding:"omitempty,gte=0"`
	Peso               *float64 `json:"peso" binding:"omitempty,gte=0"`
	CondicionesMedicas string   `json:"condiciones_medicas"`
	Activo             *bool    `json:"activo"`
}

type LoginRequest struct {
	Identifier string `json:"identifier"`
	Email      string `json:"email"`
	Username   string `json:"username"`
	Password   string `json:"password"`
}

// identifier accepts the explicit field or falls back to email, then username.
func (r LoginRequest) identifier() string {
	switch {
	case r.Identifier != "":
		return r.Identifier
	case r.Email != "":
		return r.Email
	}
	return r.Username
}

type VerifyTokenRequest struct {
	Token string `json:"token"`
}

type ChangePasswordRequest struct {
	Password string `json:"password" binding:"required"`
}

// userPayload is the denormalized profile returned by login and local login.
// The explicit fields shadow the embedded profile's.
type userPayload struct {
	UID   string `json:"uid"`
	ID    string `json:"id"`
	Email string `json:"email"`
	Rol   string `json:"rol"`
	*models.User
}

// --- Handler Functions ---

type AuthHandler struct {
	auth *services.AuthService
	log  *slog.Logger
}

func NewAuthHandler(auth *services.AuthService, log *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, log: log}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if !bindJSON(c, h.log, &req) {
		return
	}

	u, err := h.auth.Register(c.Request.Context(), services.RegisterInput{
		Nombre:             req.Nombre,
		Apellido:           req.Apellido,
		Email:              req.Email,
		Username:           req.Username,
		Password:           req.Password,
		Rol:                req.Rol,
		Edad:               req.Edad,
		Genero:             req.Genero,
		Altura:             req.Altura,
		Peso:               req.Peso,
		CondicionesMedicas: req.CondicionesMedicas,
		Activo:             req.Activo,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !bindJSON(c, h.log, &req) {
		return
	}

	res, err := h.auth.Login(c.Request.Context(), req.identifier(), req.Password)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"token":   res.Token,
		"user": userPayload{
			UID:   res.UID,
			ID:    res.DocID(),
			Email: res.Email,
			Rol:   res.Role(),
			User:  res.User,
		},
	})
}

func (h *AuthHandler) VerifyToken(c *gin.Context) {
	var req VerifyTokenRequest
	if !bindJSON(c, h.log, &req) {
		return
	}

	res, err := h.auth.Verify(c.Request.Context(), req.Token)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	var datos any = gin.H{}
	if res.User != nil {
		datos = res.User
	}
	c.JSON(http.StatusOK, gin.H{
		"valid": true,
		"uid":   res.UID,
		"email": res.Email,
		"rol":   res.Role(),
		"datos": datos,
		"id":    res.DocID(),
	})
}

// LocalLogin checks the local password hash and issues an x-token.
func (h *AuthHandler) LocalLogin(c *gin.Context) {
	var req LoginRequest
	if !bindJSON(c, h.log, &req) {
		return
	}

	res, err := h.auth.LocalLogin(c.Request.Context(), req.identifier(), req.Password)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"token":   res.Token,
		"user": userPayload{
			UID:   res.User.ProviderUID(),
			ID:    res.User.ID,
			Email: res.User.Email,
			Rol:   res.User.Rol,
			User:  res.User,
		},
	})
}

func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if !bindJSON(c, h.log, &req) {
		return
	}

	if err := h.auth.ChangePassword(c.Request.Context(), middleware.CallerFrom(c), req.Password); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Contraseña actualizada."})
}
