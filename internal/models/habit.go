package models

import "time"

// Measurement kinds for habit definitions.
const (
	KindNumeric = "numerico"
	KindBinary  = "binario"
)

// HabitDefinition is a goal template. A nil Owner marks a global definition
// visible to every user.
type HabitDefinition struct {
	ID           string    `json:"id" gorm:"primaryKey;size:36"`
	Nombre       string    `json:"nombre" gorm:"not null"`
	TipoMedicion string    `json:"tipo_medicion" gorm:"not null"`
	Meta         float64   `json:"meta"`
	Frecuencia   string    `json:"frecuencia"`
	Username     *string   `json:"username" gorm:"index"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (HabitDefinition) TableName() string { return "habito_definiciones" }

// IsGlobal reports whether the definition is predefined for all users.
func (d *HabitDefinition) IsGlobal() bool { return d.Username == nil }

// HabitRegistration is one logged value for a definition. Registrations are
// never updated or deleted.
type HabitRegistration struct {
	ID              string    `json:"id" gorm:"primaryKey;size:36"`
	HabitoID        string    `json:"habito_id" gorm:"not null;index"`
	Username        string    `json:"username" gorm:"not null;index"`
	ValorRegistrado float64   `json:"valor_registrado"`
	Comentario      string    `json:"comentario"`
	Fecha           time.Time `json:"fecha" gorm:"type:date;index"`
	CreatedAt       time.Time `json:"creado_en"`
}

func (HabitRegistration) TableName() string { return "habito_registros" }

// Goal categories accepted by the legacy habit goal collection.
var GoalTypes = []string{"sueno", "actividad", "hidratacion", "alimentacion"}

// HabitGoal is the legacy per-user goal record served under /api/habitos.
type HabitGoal struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	UID       string    `json:"uid" gorm:"not null;index"`
	Tipo      string    `json:"tipo" gorm:"not null;index"`
	Objetivo  float64   `json:"objetivo"`
	Unidad    string    `json:"unidad"`
	Activo    bool      `json:"activo" gorm:"not null"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (HabitGoal) TableName() string { return "habitos" }

// ValidGoalType reports whether t is one of GoalTypes.
func ValidGoalType(t string) bool {
	for _, g := range GoalTypes {
		if g == t {
			return true
		}
	}
	return false
}
