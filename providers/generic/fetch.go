package generic

import (
	"context"
	"html"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"paperbase/models"
	"paperbase/providers"
)

var httpClient = &http.Client{Timeout: 30 * time.Second}

var (
	titleTagRe     = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	citationMetaRe = regexp.MustCompile(`(?i)<meta[^>]+name="citation_(\w+)"[^>]+content="([^"]*)"`)
	metaReversedRe = regexp.MustCompile(`(?i)<meta[^>]+content="([^"]*)"[^>]+name="citation_(\w+)"`)
)

// Fetcher ist der Fallback-Resolver für beliebige URLs. Er liest die
// citation_*-Meta-Tags, die Google Scholar auch verwendet.
type Fetcher struct {
	Logger *zap.Logger
}

// NewFetcher erstellt eine neue Instanz des generischen Fetchers.
func NewFetcher(logger *zap.Logger) *Fetcher {
	return &Fetcher{Logger: logger}
}

// Name gibt den Namen des Resolvers zurück.
func (f *Fetcher) Name() string {
	return "generic"
}

// CanResolve ist immer wahr; der generische Resolver steht am Ende der Kette.
func (f *Fetcher) CanResolve(string) bool {
	return true
}

// Resolve lädt die Seite und parst Titel, Autoren und Abstract aus den
// Meta-Tags. Liefert die Seite nichts Brauchbares, kommt ein Platzhalter
// zurück statt eines Fehlers.
func (f *Fetcher) Resolve(ctx context.Context, url string) (*providers.Metadata, error) {
	log := f.Logger.With(zap.String("url", url))
	log.Info("Löse generische URL auf")

	meta := &providers.Metadata{
		Title:  "Academic Paper",
		Source: models.SourceURL,
	}

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		log.Warn("Seite nicht erreichbar, verwende Platzhalter-Metadaten", zap.Error(err))
		return meta, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Warn("Seite antwortete mit Fehlerstatus, verwende Platzhalter-Metadaten",
			zap.Int("status", resp.StatusCode))
		return meta, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return meta, nil
	}

	parsed := ParseHTMLMetadata(string(body))
	if parsed.Title != "" {
		meta.Title = parsed.Title
	}
	meta.Abstract = parsed.Abstract
	meta.Authors = parsed.Authors
	meta.Journal = parsed.Journal
	meta.DOI = parsed.DOI
	meta.PDFURL = parsed.PDFURL

	log.Info("Generische Metadaten aufgelöst", zap.String("title", meta.Title))
	return meta, nil
}

// ParseHTMLMetadata extrahiert Paper-Metadaten aus HTML.
func ParseHTMLMetadata(content string) *providers.Metadata {
	meta := &providers.Metadata{Source: models.SourceURL}

	if matches := titleTagRe.FindStringSubmatch(content); len(matches) > 1 {
		meta.Title = strings.TrimSpace(html.UnescapeString(matches[1]))
	}

	apply := func(name, value string) {
		value = strings.TrimSpace(html.UnescapeString(value))
		if value == "" {
			return
		}
		switch strings.ToLower(name) {
		case "title":
			meta.Title = value
		case "author":
			meta.Authors = append(meta.Authors, models.Author{Name: value})
		case "abstract":
			meta.Abstract = value
		case "journal_title":
			meta.Journal = value
		case "doi":
			meta.DOI = value
		case "pdf_url":
			meta.PDFURL = value
		case "publication_date", "date":
			if t := parseCitationDate(value); t != nil {
				meta.PublicationDate = t
				meta.PublicationYear = t.Year()
			}
		}
	}

	for _, m := range citationMetaRe.FindAllStringSubmatch(content, -1) {
		apply(m[1], m[2])
	}
	// Attribut-Reihenfolge content-vor-name kommt in freier Wildbahn vor
	for _, m := range metaReversedRe.FindAllStringSubmatch(content, -1) {
		apply(m[2], m[1])
	}

	return meta
}

func parseCitationDate(s string) *time.Time {
	for _, layout := range []string{"2006/01/02", "2006-01-02", "2006/1/2", "2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
