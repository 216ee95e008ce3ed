package models

import (
	"time"

	"gorm.io/datatypes"
)

// User repräsentiert einen Nutzer der Paper-Bibliothek.
// Authentifizierung (Passwörter, Tokens) liegt außerhalb dieses Dienstes.
type User struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Email    string `json:"email" gorm:"uniqueIndex;not null;size:255"`
	FullName string `json:"full_name,omitempty" gorm:"size:255"`

	// Forschungsinteressen als Liste von Stichwörtern
	ResearchInterests datatypes.JSON `json:"research_interests,omitempty" gorm:"type:jsonb"`
}

// TableName gibt explizit den Tabellennamen an.
func (User) TableName() string {
	return "users"
}
