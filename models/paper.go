package models

import (
	"time"

	"gorm.io/datatypes"
)

// ProcessingStatus beschreibt den Stand der KI-Verarbeitung eines Papers.
type ProcessingStatus string

const (
	ProcessingPending   ProcessingStatus = "pending"
	ProcessingRunning   ProcessingStatus = "processing"
	ProcessingCompleted ProcessingStatus = "completed"
	ProcessingFailed    ProcessingStatus = "failed"
)

// PaperSource gibt an, woher ein Paper ursprünglich stammt.
type PaperSource string

const (
	SourceArxiv     PaperSource = "arxiv"
	SourceJournal   PaperSource = "journal"
	SourcePDFUpload PaperSource = "pdf_upload"
	SourceURL       PaperSource = "url"
)

// Author ist ein Eintrag in der Autorenliste eines Papers.
type Author struct {
	Name        string `json:"name"`
	Affiliation string `json:"affiliation,omitempty"`
}

// Paper repräsentiert eine wissenschaftliche Studie und deren Metadaten.
// Papers werden nie hart gelöscht, nur aus der Bibliothek eines Users entfernt.
type Paper struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Externe Identifier, jeweils global eindeutig, wenn vorhanden
	DOI     *string `json:"doi,omitempty" gorm:"column:doi;uniqueIndex"`
	ArxivID *string `json:"arxiv_id,omitempty" gorm:"uniqueIndex"`
	PMID    *string `json:"pmid,omitempty" gorm:"column:pmid;uniqueIndex"`

	Title    string         `json:"title" gorm:"type:text;not null;index"`
	Authors  datatypes.JSON `json:"authors" gorm:"type:jsonb"`
	Abstract string         `json:"abstract,omitempty" gorm:"type:text"`
	Keywords datatypes.JSON `json:"keywords" gorm:"type:jsonb"`

	Journal         string     `json:"journal,omitempty"`
	Volume          string     `json:"volume,omitempty"`
	Issue           string     `json:"issue,omitempty"`
	Pages           string     `json:"pages,omitempty"`
	PublicationDate *time.Time `json:"publication_date,omitempty"`
	PublicationYear int        `json:"publication_year,omitempty" gorm:"index"`

	URL    string      `json:"url,omitempty" gorm:"size:500"`
	PDFURL string      `json:"pdf_url,omitempty" gorm:"size:500"`
	Source PaperSource `json:"source" gorm:"not null"`
	S3Link string      `json:"s3_link,omitempty"`

	FullText string `json:"-" gorm:"type:text"`

	// KI-generierte Analyse
	Summary     datatypes.JSON `json:"summary,omitempty" gorm:"type:jsonb"`
	KeyInsights datatypes.JSON `json:"key_insights,omitempty" gorm:"type:jsonb"`
	Methodology string         `json:"methodology,omitempty" gorm:"type:text"`
	Limitations string         `json:"limitations,omitempty" gorm:"type:text"`

	ProcessingStatus ProcessingStatus `json:"processing_status" gorm:"index;default:'pending'"`
	ProcessedAt      *time.Time       `json:"processed_at,omitempty"`
	ProcessingError  string           `json:"processing_error,omitempty" gorm:"type:text"`

	// Gecachte Metriken, werden vom Refresh-Job gepflegt
	CitationCount  int     `json:"citation_count" gorm:"default:0"`
	InfluenceScore float64 `json:"influence_score" gorm:"default:0"`
}

// TableName gibt explizit den Tabellennamen an.
func (Paper) TableName() string {
	return "papers"
}
