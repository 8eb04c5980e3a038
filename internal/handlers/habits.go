package handlers

import (
	"log/slog"
	"net/http"

	"healthtrack-api/internal/middleware"
	"healthtrack-api/internal/models"
	"healthtrack-api/internal/services"
	"healthtrack-api/internal/store"

	"github.com/gin-gonic/gin"
)

type CreateDefinitionRequest struct {
	Nombre       string   `json:"nombre" binding:"required"`
	TipoMedicion string   `json:"tipo_medicion" binding:"required"`
	Meta         *float64 `json:"meta" binding:"omitempty,gte=0"`
	Frecuencia   string   `json:"frecuencia"`
	Username     string   `json:"username"`
	Global       bool     `json:"global"`
}

// RegisterEntryRequest keeps valor_registrado untyped: binary habits accept
// booleans, strings and numbers alike.
type RegisterEntryRequest struct {
	HabitoID        string `json:"habito_id" binding:"required"`
	Username        string `json:"username"`
	ValorRegistrado any    `json:"valor_registrado"`
	Comentario      string `json:"comentario"`
	Fecha           string `json:"fecha"`
}

type CreateGoalRequest struct {
	UID      string   `json:"uid"`
	Tipo     string   `json:"tipo"`
	Objetivo *float64 `json:"objetivo"`
	Unidad   string   `json:"unidad"`
	Activo   *bool    `json:"activo"`
}

type HabitHandler struct {
	habits *services.HabitService
	log    *slog.Logger
}

func NewHabitHandler(habits *services.HabitService, log *slog.Logger) *HabitHandler {
	return &HabitHandler{habits: habits, log: log}
}

func (h *HabitHandler) CreateDefinition(c *gin.Context) {
	var req CreateDefinitionRequest
	if !bindJSON(c, h.log, &req) {
		return
	}

	d, err := h.habits.CreateDefinition(c.Request.Context(), middleware.CallerFrom(c), services.DefinitionInput{
		Nombre:       req.Nombre,
		TipoMedicion: req.TipoMedicion,
		Meta:         req.Meta,
		Frecuencia:   req.Frecuencia,
		Username:     req.Username,
		Global:       req.Global,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, d)
}

// ListDefinitions serves both /habito-definicion and /habito-definicion/:username;
// without a username the caller's own list is returned.
func (h *HabitHandler) ListDefinitions(c *gin.Context) {
	caller := middleware.CallerFrom(c)
	defs, err := h.habits.ListDefinitions(c.Request.Context(), caller, usernameParam(c, caller))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if defs == nil {
		defs = []models.HabitDefinition{}
	}
	c.JSON(http.StatusOK, defs)
}

func (h *HabitHandler) DeleteDefinition(c *gin.Context) {
	if err := h.habits.DeleteDefinition(c.Request.Context(), middleware.CallerFrom(c), c.Param("id")); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Definición de hábito eliminada."})
}

func (h *HabitHandler) RegisterEntry(c *gin.Context) {
	var req RegisterEntryRequest
	if !bindJSON(c, h.log, &req) {
		return
	}

	r, err := h.habits.RegisterEntry(c.Request.Context(), middleware.CallerFrom(c), services.RegistrationInput{
		HabitoID:   req.HabitoID,
		Username:   req.Username,
		Valor:      req.ValorRegistrado,
		Comentario: req.Comentario,
		Fecha:      req.Fecha,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

func (h *HabitHandler) ListRegistrations(c *gin.Context) {
	caller := middleware.CallerFrom(c)
	joined, err := h.habits.ListRegistrationsJoined(c.Request.Context(), caller, usernameParam(c, caller))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, joined)
}

func usernameParam(c *gin.Context, caller *services.Caller) string {
	if u := c.Param("username"); u != "" {
		return u
	}
	if caller != nil {
		return caller.Username
	}
	return ""
}

// --- legacy goals under /api/habitos ---

func (h *HabitHandler) CreateGoal(c *gin.Context) {
	var req CreateGoalRequest
	if !bindJSON(c, h.log, &req) {
		return
	}

	g, err := h.habits.CreateGoal(c.Request.Context(), middleware.CallerFrom(c), services.GoalInput{
		UID:      req.UID,
		Tipo:     req.Tipo,
		Objetivo: req.Objetivo,
		Unidad:   req.Unidad,
		Activo:   req.Activo,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, struct {
		*models.HabitGoal
		Message string `json:"message"`
	}{g, "Hábito creado con éxito."})
}

func (h *HabitHandler) ListGoals(c *gin.Context) {
	goals, err := h.habits.ListGoals(c.Request.Context(), middleware.CallerFrom(c), store.GoalFilter{
		UID:  c.Query("uid"),
		Tipo: c.Query("tipo"),
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if len(goals) == 0 {
		c.JSON(http.StatusOK, gin.H{"message": "No hay hábitos registrados", "items": []models.HabitGoal{}})
		return
	}
	c.JSON(http.StatusOK, goals)
}

func (h *HabitHandler) GetGoal(c *gin.Context) {
	g, err := h.habits.GetGoal(c.Request.Context(), middleware.CallerFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

func (h *HabitHandler) UpdateGoal(c *gin.Context) {
	var req services.GoalUpdate
	if !bindJSON(c, h.log, &req) {
		return
	}

	g, err := h.habits.UpdateGoal(c.Request.Context(), middleware.CallerFrom(c), c.Param("id"), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

func (h *HabitHandler) DeleteGoal(c *gin.Context) {
	if err := h.habits.DeleteGoal(c.Request.Context(), middleware.CallerFrom(c), c.Param("id")); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Hábito eliminado."})
}
