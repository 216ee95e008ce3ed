package providers

import (
	"context"
	"time"

	"paperbase/models"
)

// Metadata ist das standardisierte Ergebnis einer Metadaten-Auflösung,
// unabhängig davon, welche Quelle die Daten geliefert hat.
type Metadata struct {
	Title           string
	Abstract        string
	Authors         []models.Author
	Keywords        []string
	Journal         string
	PublicationDate *time.Time
	PublicationYear int

	DOI     string
	ArxivID string
	PMID    string

	PDFURL string
	Source models.PaperSource
}

// Resolver ist das Interface, das jeder Metadaten-Resolver (z.B. arXiv,
// PubMed) implementieren muss.
type Resolver interface {
	// CanResolve prüft, ob dieser Resolver für die URL zuständig ist.
	CanResolve(url string) bool

	// Resolve löst die URL zu standardisierten Paper-Metadaten auf.
	Resolve(ctx context.Context, url string) (*Metadata, error)

	// Name gibt den eindeutigen Namen des Resolvers zurück (z.B. "arxiv").
	Name() string
}
