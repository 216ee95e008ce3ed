package models

import (
	"time"

	"gorm.io/datatypes"
)

// ReadingStatus beschreibt, wo ein Paper in der Bibliothek eines Users steht.
type ReadingStatus string

const (
	ReadingSaved     ReadingStatus = "saved"
	ReadingActive    ReadingStatus = "reading"
	ReadingCompleted ReadingStatus = "completed"
	ReadingArchived  ReadingStatus = "archived"
)

// UserPaper verknüpft einen User mit einem Paper und hält den Lesestand.
// Pro (User, Paper) existiert höchstens ein Eintrag.
type UserPaper struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID  uint `json:"user_id" gorm:"index:idx_user_paper,unique;not null"`
	PaperID uint `json:"paper_id" gorm:"index:idx_user_paper,unique;not null"`

	Status          ReadingStatus `json:"status" gorm:"default:'saved'"`
	ReadingProgress int           `json:"reading_progress" gorm:"default:0"` // Prozent 0-100
	TimeSpent       int           `json:"time_spent" gorm:"default:0"`       // Sekunden

	Rating *int           `json:"rating,omitempty"` // 1-5 Sterne
	Tags   datatypes.JSON `json:"tags,omitempty" gorm:"type:jsonb"`
	Notes  string         `json:"notes,omitempty" gorm:"type:text"`

	LastAccessedAt time.Time `json:"last_accessed_at"`
}

// TableName gibt explizit den Tabellennamen an.
func (UserPaper) TableName() string {
	return "user_papers"
}
