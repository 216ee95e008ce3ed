package models

import (
	"time"
)

// Citation modelliert eine gerichtete Kante: Quelle zitiert Ziel (A cites B).
// Pro geordnetem Paar (citing, cited) existiert höchstens eine Kante.
type Citation struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`

	CitingPaperID uint `json:"citing_paper_id" gorm:"index:idx_citation_edge,unique;not null"`
	CitedPaperID  uint `json:"cited_paper_id" gorm:"index:idx_citation_edge,unique;not null"`

	// Textstelle, an der die Zitierung auftritt
	Context   string `json:"context,omitempty" gorm:"type:text"`
	Section   string `json:"section,omitempty" gorm:"size:100"`
	Sentiment string `json:"sentiment,omitempty" gorm:"size:20"` // positive, negative, neutral

	// Gewicht der Zitierung, gedacht als 0-1, beim Schreiben nicht erzwungen
	Strength float64 `json:"strength" gorm:"default:1.0"`
}

// TableName gibt explizit den Tabellennamen an.
func (Citation) TableName() string {
	return "citations"
}
