package handlers

import (
	"log/slog"
	"net/http"

	"healthtrack-api/internal/middleware"
	"healthtrack-api/internal/services"

	"github.com/gin-gonic/gin"
)

type SendMessageRequest struct {
	Contenido     string `json:"contenido" binding:"required"`
	RemitenteTipo string `json:"remitente_tipo" binding:"omitempty,oneof=paciente profesional"`
	RemitenteID   string `json:"remitente_id"`
}

type ChatHandler struct {
	chat *services.ChatService
	log  *slog.Logger
}

func NewChatHandler(chat *services.ChatService, log *slog.Logger) *ChatHandler {
	return &ChatHandler{chat: chat, log: log}
}

func (h *ChatHandler) ListMessages(c *gin.Context) {
	msgs, err := h.chat.ListMessages(c.Request.Context(), middleware.CallerFrom(c), c.Param("uid"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, msgs)
}

func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if !bindJSON(c, h.log, &req) {
		return
	}

	msg, err := h.chat.SendMessage(c.Request.Context(), middleware.CallerFrom(c), c.Param("uid"), services.MessageInput{
		Contenido:     req.Contenido,
		RemitenteTipo: req.RemitenteTipo,
		RemitenteID:   req.RemitenteID,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "mensaje": msg})
}

func (h *ChatHandler) Summary(c *gin.Context) {
	t, err := h.chat.GetSummary(c.Request.Context(), middleware.CallerFrom(c), c.Param("uid"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, t)
}
