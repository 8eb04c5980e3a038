package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"healthtrack-api/internal/apperrors"
	"healthtrack-api/internal/models"
	"healthtrack-api/internal/store"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ChatService serves the per-patient chat threads.
type ChatService struct {
	chats store.ChatStore
	log   *slog.Logger
	now   func() time.Time
}

func NewChatService(chats store.ChatStore, log *slog.Logger) *ChatService {
	return &ChatService{chats: chats, log: log, now: time.Now}
}

// MessageInput is a message to append to a thread.
type MessageInput struct {
	Contenido     string
	RemitenteTipo string
	RemitenteID   string
}

// SendMessage appends a message to the thread keyed by the patient id and
// refreshes the thread summary in the same store operation.
func (s *ChatService) SendMessage(ctx context.Context, caller *Caller, threadID string, in MessageInput) (*models.ChatMessage, error) {
	if !caller.CanActForID(threadID) {
		return nil, errForbidden
	}
	contenido := strings.TrimSpace(in.Contenido)
	if contenido == "" {
		return nil, fieldError("contenido", "es requerido")
	}
	tipo := strings.ToLower(strings.TrimSpace(in.RemitenteTipo))
	switch tipo {
	case "":
		tipo = models.SenderPatient
	case models.SenderPatient, models.SenderProfessional:
	default:
		return nil, fieldError("remitente_tipo", "debe ser 'paciente' o 'profesional'")
	}
	remitente := strings.TrimSpace(in.RemitenteID)
	if remitente == "" {
		remitente = threadID
	}

	// Postgres keeps microseconds; truncate so both stores order identically.
	ts := s.now().UTC().Truncate(time.Microsecond)
	msg := &models.ChatMessage{
		ID:            uuid.NewString(),
		ChatID:        threadID,
		Contenido:     contenido,
		RemitenteID:   remitente,
		RemitenteTipo: tipo,
		Timestamp:     ts,
	}
	summary := &models.ChatThread{
		ID:              threadID,
		UltimoMensaje:   contenido,
		TimestampUltimo: ts,
		Participantes:   datatypes.JSONSlice[string]{threadID, models.SenderProfessional},
	}
	if err := s.chats.AppendMessage(ctx, msg, summary); err != nil {
		return nil, apperrors.Internal("Error al enviar el mensaje.", err)
	}
	return msg, nil
}

// ListMessages returns the thread oldest first. An unknown thread is empty.
func (s *ChatService) ListMessages(ctx context.Context, caller *Caller, threadID string) ([]models.ChatMessage, error) {
	if !caller.CanActForID(threadID) {
		return nil, errForbidden
	}
	msgs, err := s.chats.ListMessages(ctx, threadID)
	if err != nil {
		return nil, apperrors.Internal("Error al obtener los mensajes.", err)
	}
	if msgs == nil {
		msgs = []models.ChatMessage{}
	}
	return msgs, nil
}

func (s *ChatService) GetSummary(ctx context.Context, caller *Caller, threadID string) (*models.ChatThread, error) {
	if !caller.CanActForID(threadID) {
		return nil, errForbidden
	}
	t, err := s.chats.GetThread(ctx, threadID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperrors.NewNotFoundError("Chat no encontrado.")
	}
	if err != nil {
		return nil, apperrors.Internal("Error al obtener el chat.", err)
	}
	return t, nil
}
