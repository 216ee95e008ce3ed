package services

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"paperbase/models"
)

// PaperGetter liefert einzelne Paper-Datensätze.
type PaperGetter interface {
	GetPaperByID(ctx context.Context, id uint) (*models.Paper, error)
}

// CitationStore liefert Zitationskanten in beide Richtungen.
type CitationStore interface {
	// Citing gibt alle Kanten zurück, deren Ziel paperID ist (eingehend).
	Citing(ctx context.Context, paperID uint) ([]models.Citation, error)
	// CitedBy gibt alle Kanten zurück, deren Quelle paperID ist (ausgehend).
	CitedBy(ctx context.Context, paperID uint) ([]models.Citation, error)
}

// Store ist die GORM-gestützte Implementierung der Lese-Interfaces.
type Store struct {
	DB *gorm.DB
}

// NewStore erstellt einen Store über der gegebenen Datenbank.
func NewStore(db *gorm.DB) *Store {
	return &Store{DB: db}
}

// GetPaperByID holt ein Paper per Primärschlüssel.
func (s *Store) GetPaperByID(ctx context.Context, id uint) (*models.Paper, error) {
	var paper models.Paper
	if err := s.DB.WithContext(ctx).First(&paper, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &paper, nil
}

// Citing gibt alle Kanten zurück, die paperID zitieren.
func (s *Store) Citing(ctx context.Context, paperID uint) ([]models.Citation, error) {
	var citations []models.Citation
	err := s.DB.WithContext(ctx).
		Where("cited_paper_id = ?", paperID).
		Find(&citations).Error
	return citations, err
}

// CitedBy gibt alle Kanten zurück, die von paperID ausgehen.
func (s *Store) CitedBy(ctx context.Context, paperID uint) ([]models.Citation, error) {
	var citations []models.Citation
	err := s.DB.WithContext(ctx).
		Where("citing_paper_id = ?", paperID).
		Find(&citations).Error
	return citations, err
}

// UpsertCitations schreibt Zitationskanten als Batch. Existiert eine Kante
// für das Paar (citing, cited) bereits, werden Kontext, Abschnitt, Sentiment
// und Gewicht aktualisiert.
func (s *Store) UpsertCitations(ctx context.Context, citations []models.Citation) error {
	if len(citations) == 0 {
		return nil
	}
	return s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "citing_paper_id"}, {Name: "cited_paper_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"context", "section", "sentiment", "strength",
			}),
		}).
		Create(&citations).Error
}
