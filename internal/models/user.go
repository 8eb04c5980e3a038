package models

import (
	"time"

	"gorm.io/datatypes"
)

// User is the local profile document. The identity provider owns the
// credential; PasswordHash is a redundant local copy used by the direct login path.
type User struct {
	ID                  string                      `json:"id" gorm:"primaryKey;size:36"`
	FirebaseUID         *string                     `json:"firebaseUid,omitempty" gorm:"uniqueIndex"` // nil for profiles created without the provider
	Nombre              string                      `json:"nombre"`
	Apellido            string                      `json:"apellido"`
	Email               string                      `json:"email" gorm:"uniqueIndex;not null"`
	Username            string                      `json:"username" gorm:"uniqueIndex;not null"`
	Rol                 string                      `json:"rol" gorm:"not null;index"`
	Activo              bool                        `json:"activo" gorm:"not null"`
	Edad                *int                        `json:"edad"`
	Altura              *float64                    `json:"altura"`
	Peso                *float64                    `json:"peso"`
	Genero              *string                     `json:"genero"`
	CondicionesMedicas  string                      `json:"condiciones_medicas"`
	HoraDespertar       *string                     `json:"hora_despertar,omitempty"`
	HoraDormir          *string                     `json:"hora_dormir,omitempty"`
	Objetivos           datatypes.JSONSlice[string] `json:"objetivos,omitempty"`
	ProfesionalAsignado *string                     `json:"profesional_asignado,omitempty" gorm:"index"`
	PasswordHash        string                      `json:"-"`
	CreatedAt           time.Time                   `json:"createdAt"`
	UpdatedAt           time.Time                   `json:"updatedAt"`
}

func (User) TableName() string { return "usuarios" }

// ProviderUID returns the identity provider uid or "" when the profile has none.
func (u *User) ProviderUID() string {
	if u.FirebaseUID == nil {
		return ""
	}
	return *u.FirebaseUID
}

// Clone returns a copy that shares no mutable state with u.
func (u User) Clone() User {
	c := u
	if u.Objetivos != nil {
		c.Objetivos = append(datatypes.JSONSlice[string]{}, u.Objetivos...)
	}
	return c
}
