package pubmed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"paperbase/config"
	"paperbase/models"
	"paperbase/providers"
)

var httpClient = &http.Client{Timeout: 30 * time.Second}

var pubmedURLRe = regexp.MustCompile(`pubmed\.ncbi\.nlm\.nih\.gov/(\d+)`)

// Fetcher löst PubMed-URLs über die NCBI E-Utilities zu Metadaten auf.
type Fetcher struct {
	Config  *config.Config
	Logger  *zap.Logger
	limiter *rate.Limiter
}

// NewFetcher erstellt eine neue Instanz des PubMed-Fetchers.
func NewFetcher(cfg *config.Config, logger *zap.Logger) *Fetcher {
	// Ohne API-Key erlaubt NCBI 3 Anfragen pro Sekunde, mit Key 10
	limit := rate.Limit(3)
	if cfg.PubMedAPIKey != "" {
		limit = rate.Limit(10)
	}
	return &Fetcher{
		Config:  cfg,
		Logger:  logger,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Name gibt den Namen des Resolvers zurück.
func (f *Fetcher) Name() string {
	return "pubmed"
}

// CanResolve prüft, ob die URL auf pubmed.ncbi.nlm.nih.gov zeigt.
func (f *Fetcher) CanResolve(url string) bool {
	return strings.Contains(url, "pubmed.ncbi.nlm.nih.gov")
}

// Resolve holt die Metadaten eines PubMed-Eintrags via ESummary.
func (f *Fetcher) Resolve(ctx context.Context, url string) (*providers.Metadata, error) {
	pmid, err := ParsePMID(url)
	if err != nil {
		return nil, err
	}
	log := f.Logger.With(zap.String("pmid", pmid))
	log.Info("Löse PubMed-Metadaten auf")

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	apiURL := f.buildESummaryURL(pmid)
	req, err := http.NewRequestWithContext(ctx, "GET", apiURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("esummary-Anfrage fehlgeschlagen: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("esummary antwortete mit Status %d", resp.StatusCode)
	}

	var summary eSummaryResponse
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		return nil, fmt.Errorf("esummary-Antwort nicht parsbar: %w", err)
	}

	result, ok := summary.Result[pmid]
	if !ok {
		return nil, fmt.Errorf("kein Ergebnis in esummary-Antwort für PMID %s", pmid)
	}

	meta := &providers.Metadata{
		Title:   strings.TrimSpace(result.Title),
		Journal: result.Source,
		PMID:    pmid,
		Source:  models.SourceJournal,
	}
	for _, a := range result.Authors {
		if a.Name != "" {
			meta.Authors = append(meta.Authors, models.Author{Name: a.Name})
		}
	}
	if t := parsePubDate(result.PubDate); t != nil {
		meta.PublicationDate = t
		meta.PublicationYear = t.Year()
	}
	for _, id := range result.ArticleIDs {
		if id.IDType == "doi" {
			meta.DOI = id.Value
		}
	}

	log.Info("PubMed-Metadaten aufgelöst", zap.String("title", meta.Title))
	return meta, nil
}

// ParsePMID extrahiert die PMID aus einer PubMed-URL.
func ParsePMID(url string) (string, error) {
	matches := pubmedURLRe.FindStringSubmatch(url)
	if len(matches) < 2 {
		return "", fmt.Errorf("keine gültige PubMed-URL: %s", url)
	}
	return matches[1], nil
}

func (f *Fetcher) buildESummaryURL(pmid string) string {
	base := fmt.Sprintf("%s/esummary.fcgi?db=pubmed&id=%s&retmode=json", f.Config.PubMedBaseURL, pmid)
	if f.Config.PubMedAPIKey != "" {
		base += "&api_key=" + f.Config.PubMedAPIKey
	}
	if f.Config.PubMedTool != "" {
		base += "&tool=" + f.Config.PubMedTool
	}
	if f.Config.PubMedEmail != "" {
		base += "&email=" + f.Config.PubMedEmail
	}
	return base
}

type eSummaryResponse struct {
	Result map[string]eSummaryResult `json:"result"`
}

type eSummaryResult struct {
	Title      string     `json:"title"`
	Source     string     `json:"source"`
	PubDate    string     `json:"pubdate"`
	Authors    []eAuthor  `json:"authors"`
	ArticleIDs []articleID `json:"articleids"`
}

type eAuthor struct {
	Name string `json:"name"`
}

type articleID struct {
	IDType string `json:"idtype"`
	Value  string `json:"value"`
}

// parsePubDate versteht die üblichen PubMed-Datumsformate
// ("2023", "2023 Mar", "2023 Mar 15").
func parsePubDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range []string{"2006 Jan 2", "2006 Jan", "2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
