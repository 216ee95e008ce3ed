package models

import (
	"time"

	"gorm.io/datatypes"
)

// EntryType klassifiziert einen Wissenseintrag.
type EntryType string

const (
	EntrySummary   EntryType = "summary"
	EntryNote      EntryType = "note"
	EntryHighlight EntryType = "highlight"
	EntryInsight   EntryType = "insight"
	EntryQuestion  EntryType = "question"
)

// KnowledgeEntry ist ein Eintrag in der persönlichen Wissensbasis eines Users,
// optional mit einem Paper verknüpft.
type KnowledgeEntry struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID  uint  `json:"user_id" gorm:"index;not null"`
	PaperID *uint `json:"paper_id,omitempty" gorm:"index"`

	Title     string    `json:"title" gorm:"size:500;not null"`
	Content   string    `json:"content" gorm:"type:text;not null"`
	EntryType EntryType `json:"entry_type" gorm:"index;not null"`

	Tags             datatypes.JSON `json:"tags,omitempty" gorm:"type:jsonb"`
	SectionReference string         `json:"section_reference,omitempty" gorm:"size:100"`
	PageNumber       *int           `json:"page_number,omitempty"`

	// KI-generierte Zusammenfassung für längere Einträge
	Summary string `json:"summary,omitempty" gorm:"type:text"`
}

// TableName gibt explizit den Tabellennamen an.
func (KnowledgeEntry) TableName() string {
	return "knowledge_entries"
}
