package arxiv

import (
	"context"
	"encoding/xml"
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

var arxivURLRe = regexp.MustCompile(`arxiv\.org/(?:abs|pdf)/([^/?#]+?)(?:\.pdf)?$`)

// Fetcher löst arXiv-URLs über die Atom-API zu Paper-Metadaten auf.
type Fetcher struct {
	Config  *config.Config
	Logger  *zap.Logger
	limiter *rate.Limiter
}

// NewFetcher erstellt eine neue Instanz des arXiv-Fetchers.
func NewFetcher(cfg *config.Config, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		Config: cfg,
		Logger: logger,
		// arXiv erlaubt höchstens eine Anfrage alle drei Sekunden
		limiter: rate.NewLimiter(rate.Every(3*time.Second), 1),
	}
}

// Name gibt den Namen des Resolvers zurück.
func (f *Fetcher) Name() string {
	return "arxiv"
}

// CanResolve prüft, ob die URL auf arxiv.org zeigt.
func (f *Fetcher) CanResolve(url string) bool {
	return strings.Contains(url, "arxiv.org")
}

// Resolve holt die Metadaten eines arXiv-Papers über die Atom-API.
func (f *Fetcher) Resolve(ctx context.Context, url string) (*providers.Metadata, error) {
	arxivID, err := ParseArxivID(url)
	if err != nil {
		return nil, err
	}
	log := f.Logger.With(zap.String("arxiv_id", arxivID))
	log.Info("Löse arXiv-Metadaten auf")

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	apiURL := fmt.Sprintf("%s?id_list=%s", f.Config.ArxivBaseURL, arxivID)
	req, err := http.NewRequestWithContext(ctx, "GET", apiURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("arXiv-API nicht erreichbar: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arXiv-API antwortete mit Status %d", resp.StatusCode)
	}

	var feed feed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("arXiv-Antwort nicht parsbar: %w", err)
	}
	if len(feed.Entries) == 0 {
		return nil, fmt.Errorf("kein Eintrag in arXiv-Antwort für %s", arxivID)
	}

	meta := mapEntry(&feed.Entries[0])
	meta.ArxivID = arxivID
	meta.PDFURL = fmt.Sprintf("https://arxiv.org/pdf/%s.pdf", arxivID)
	meta.Source = models.SourceArxiv

	log.Info("arXiv-Metadaten aufgelöst", zap.String("title", meta.Title))
	return meta, nil
}

// ParseArxivID extrahiert die arXiv-ID aus einer abs- oder pdf-URL.
func ParseArxivID(url string) (string, error) {
	matches := arxivURLRe.FindStringSubmatch(url)
	if len(matches) < 2 {
		return "", fmt.Errorf("keine gültige arXiv-URL: %s", url)
	}
	return matches[1], nil
}

type feed struct {
	XMLName xml.Name `xml:"feed"`
	Entries []entry  `xml:"entry"`
}

type entry struct {
	Title      string     `xml:"title"`
	Summary    string     `xml:"summary"`
	Published  string     `xml:"published"`
	Authors    []author   `xml:"author"`
	Categories []category `xml:"category"`
}

type author struct {
	Name string `xml:"name"`
}

type category struct {
	Term string `xml:"term,attr"`
}

func mapEntry(e *entry) *providers.Metadata {
	meta := &providers.Metadata{
		Title:    strings.TrimSpace(e.Title),
		Abstract: strings.TrimSpace(e.Summary),
	}

	for _, a := range e.Authors {
		if name := strings.TrimSpace(a.Name); name != "" {
			meta.Authors = append(meta.Authors, models.Author{Name: name})
		}
	}
	for _, c := range e.Categories {
		if c.Term != "" {
			meta.Keywords = append(meta.Keywords, c.Term)
		}
	}

	if e.Published != "" {
		if t, err := time.Parse(time.RFC3339, e.Published); err == nil {
			meta.PublicationDate = &t
			meta.PublicationYear = t.Year()
		}
	}

	return meta
}
