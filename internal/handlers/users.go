package handlers

import (
	"log/slog"
	"net/http"

	"healthtrack-api/internal/middleware"
	"healthtrack-api/internal/services"

	"github.com/gin-gonic/gin"
)

type CreateUserRequest struct {
	Nombre             string  `json:"nombre"`
	Apellido           string  `json:"apellido"`
	Email              string  `json:"email" binding:"required,email"`
	Username           string  `json:"username" binding:"required"`
	Password           string  `json:"password" binding:"required"`
	Edad               *int    `json:"edad" binding:"omitempty,gte=0"`
	Genero             *string `json:"genero"`
	CondicionesMedicas string  `json:"condiciones_medicas"`
}

type AssignProfessionalRequest struct {
	ProfesionalAsignado string `json:"profesional_asignado" binding:"required"`
}

type DeleteUserRequest struct {
	PIN string `json:"pin"`
}

type UserHandler struct {
	users *services.UserService
	log   *slog.Logger
}

func NewUserHandler(users *services.UserService, log *slog.Logger) *UserHandler {
	return &UserHandler{users: users, log: log}
}

func (h *UserHandler) Create(c *gin.Context) {
	var req CreateUserRequest
	if !bindJSON(c, h.log, &req) {
		return
	}

	u, err := h.users.Create(c.Request.Context(), services.CreateUserInput{
		Nombre:             req.Nombre,
		Apellido:           req.Apellido,
		Email:              req.Email,
		Username:           req.Username,
		Password:           req.Password,
		Edad:               req.Edad,
		Genero:             req.Genero,
		CondicionesMedicas: req.CondicionesMedicas,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": u.ID, "message": "Usuario creado con éxito."})
}

func (h *UserHandler) List(c *gin.Context) {
	users, err := h.users.List(c.Request.Context(), middleware.CallerFrom(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *UserHandler) Get(c *gin.Context) {
	u, err := h.users.Get(c.Request.Context(), middleware.CallerFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *UserHandler) GetByUsername(c *gin.Context) {
	u, err := h.users.GetByUsername(c.Request.Context(), middleware.CallerFrom(c), c.Param("username"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req services.ProfileUpdate
	if !bindJSON(c, h.log, &req) {
		return
	}

	u, err := h.users.UpdateProfile(c.Request.Context(), middleware.CallerFrom(c), c.Param("username"), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Perfil actualizado.", "usuario": u})
}

func (h *UserHandler) UpdateAdmin(c *gin.Context) {
	var req services.AdminUpdate
	if !bindJSON(c, h.log, &req) {
		return
	}

	u, err := h.users.UpdateAdmin(c.Request.Context(), middleware.CallerFrom(c), c.Param("username"), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Usuario actualizado.", "usuario": u})
}

// UpdateIdentity serves PUT /api/usuarios/:id, where :id is a document id
// or a provider uid.
func (h *UserHandler) UpdateIdentity(c *gin.Context) {
	var req services.IdentityUpdate
	if !bindJSON(c, h.log, &req) {
		return
	}

	u, err := h.users.UpdateIdentity(c.Request.Context(), middleware.CallerFrom(c), c.Param("id"), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *UserHandler) AssignProfessional(c *gin.Context) {
	var req AssignProfessionalRequest
	if !bindJSON(c, h.log, &req) {
		return
	}

	u, err := h.users.AssignProfessional(c.Request.Context(), middleware.CallerFrom(c), c.Param("uid"), req.ProfesionalAsignado)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Profesional asignado.", "usuario": u})
}

// Delete takes the admin PIN from an optional JSON body.
func (h *UserHandler) Delete(c *gin.Context) {
	var req DeleteUserRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, h.log, &req) {
		return
	}

	if err := h.users.Delete(c.Request.Context(), middleware.CallerFrom(c), c.Param("id"), req.PIN); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Usuario eliminado."})
}
