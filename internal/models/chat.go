package models

import (
	"time"

	"gorm.io/datatypes"
)

// Sender kinds for chat messages.
const (
	SenderPatient      = "paciente"
	SenderProfessional = "profesional"
)

// ChatThread is the denormalized summary of a patient's conversation, keyed
// by the patient identifier.
type ChatThread struct {
	ID              string                      `json:"id" gorm:"primaryKey"`
	UltimoMensaje   string                      `json:"ultimo_mensaje"`
	TimestampUltimo time.Time                   `json:"timestamp_ultimo"`
	Participantes   datatypes.JSONSlice[string] `json:"participantes"`
}

func (ChatThread) TableName() string { return "chats" }

// ChatMessage is one entry of a thread's append-only log.
type ChatMessage struct {
	ID            string    `json:"id" gorm:"primaryKey;size:36"`
	ChatID        string    `json:"-" gorm:"not null;index:idx_chat_mensajes_chat_ts,priority:1"`
	Contenido     string    `json:"contenido" gorm:"type:text;not null"`
	RemitenteID   string    `json:"remitente_id"`
	RemitenteTipo string    `json:"remitente_tipo"`
	Leido         bool      `json:"leido"`
	Timestamp     time.Time `json:"timestamp" gorm:"not null;index:idx_chat_mensajes_chat_ts,priority:2"`
}

func (ChatMessage) TableName() string { return "chat_mensajes" }
