package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"paperbase/config"
	"paperbase/models"
	"paperbase/providers"
	"paperbase/storage"
)

var (
	papersAddedCounter     prometheus.Counter
	papersProcessedCounter prometheus.Counter
)

func init() {
	papersAddedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "paperbase_papers_added_total",
		Help: "Anzahl neu angelegter Paper.",
	})
	papersProcessedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "paperbase_papers_processed_total",
		Help: "Anzahl erfolgreich mit KI verarbeiteter Paper.",
	})
	prometheus.MustRegister(papersAddedCounter, papersProcessedCounter)
}

// customTransport fügt jeder Anfrage einen User-Agent-Header hinzu.
type customTransport struct {
	Transport http.RoundTripper
}

func (t *customTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", "paperbase/1.0 (academic paper manager)")
	return t.Transport.RoundTrip(req)
}

// paperHTTPClient wird für PDF-Downloads verwendet.
var paperHTTPClient = &http.Client{
	Timeout: 60 * time.Second,
	Transport: &customTransport{
		Transport: http.DefaultTransport,
	},
}

// PaperService kümmert sich um das Anlegen, Verarbeiten und Durchsuchen
// von Papern sowie um den Lesestatus der User.
type PaperService struct {
	Config    *config.Config
	DB        *gorm.DB
	S3Client  *s3.Client
	Logger    *zap.Logger
	Resolvers []providers.Resolver
	AI        PaperAnalyzer
	PDF       *PDFExtractor
	Pool      *WorkerPool
}

// NewPaperService erstellt eine neue Instanz des PaperService.
func NewPaperService(cfg *config.Config, db *gorm.DB, s3Client *s3.Client, logger *zap.Logger,
	resolvers []providers.Resolver, ai PaperAnalyzer, pdf *PDFExtractor, pool *WorkerPool) *PaperService {
	return &PaperService{
		Config:    cfg,
		DB:        db,
		S3Client:  s3Client,
		Logger:    logger,
		Resolvers: resolvers,
		AI:        ai,
		PDF:       pdf,
		Pool:      pool,
	}
}

// AddFromURL legt ein Paper aus einer URL an und hängt es an die Bibliothek
// des Users. Existiert das Paper bereits (DOI, arXiv-ID oder URL), wird nur
// die Bibliotheks-Verknüpfung ergänzt. Der zweite Rückgabewert sagt, ob das
// Paper neu angelegt wurde.
func (ps *PaperService) AddFromURL(ctx context.Context, userID uint, url string) (*models.Paper, bool, error) {
	log := ps.Logger.With(zap.String("url", url), zap.Uint("user_id", userID))
	log.Info("Verarbeite Paper aus URL")

	meta, err := ps.resolveMetadata(ctx, url)
	if err != nil {
		return nil, false, fmt.Errorf("metadaten-Auflösung fehlgeschlagen: %w", err)
	}

	existing, err := ps.findExisting(ctx, meta, url)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		log.Info("Paper existiert bereits", zap.Uint("paper_id", existing.ID))
		if err := ps.attachToLibrary(ctx, userID, existing.ID); err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}

	paper := ps.paperFromMetadata(meta, url)
	if err := ps.DB.WithContext(ctx).Create(paper).Error; err != nil {
		return nil, false, fmt.Errorf("paper konnte nicht angelegt werden: %w", err)
	}
	papersAddedCounter.Inc()

	if err := ps.attachToLibrary(ctx, userID, paper.ID); err != nil {
		return nil, false, err
	}

	if err := ps.queueProcessing(ctx, paper.ID, userID); err != nil {
		log.Warn("Paper konnte nicht zur Verarbeitung eingereiht werden", zap.Error(err))
	}

	log.Info("Paper angelegt und zur Verarbeitung eingereiht", zap.Uint("paper_id", paper.ID))
	return paper, true, nil
}

// ProcessUpload verarbeitet eine hochgeladene PDF-Datei: Text- und
// Metadaten-Extraktion, S3-Upload, Anlegen der Datensätze.
func (ps *PaperService) ProcessUpload(ctx context.Context, userID uint, filename string, data []byte) (*models.Paper, error) {
	log := ps.Logger.With(zap.String("filename", filename), zap.Uint("user_id", userID))
	log.Info("Verarbeite PDF-Upload", zap.Int("bytes", len(data)))

	if int64(len(data)) > ps.Config.UploadMaxBytes {
		return nil, fmt.Errorf("PDF zu groß: %d bytes", len(data))
	}

	text, err := ps.PDF.ExtractText(data)
	if err != nil {
		return nil, err
	}
	info, err := ps.PDF.ExtractInfo(data)
	if err != nil {
		return nil, err
	}
	doi, _ := ps.PDF.ExtractDOI(data)

	if doi != "" {
		var existing models.Paper
		err := ps.DB.WithContext(ctx).Where("doi = ?", doi).First(&existing).Error
		if err == nil {
			log.Info("PDF gehört zu bereits bekanntem Paper", zap.Uint("paper_id", existing.ID))
			if err := ps.attachToLibrary(ctx, userID, existing.ID); err != nil {
				return nil, err
			}
			return &existing, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	key := fmt.Sprintf("uploads/%s-%s", uuid.NewString(), filename)
	s3link, err := storage.UploadFile(ctx, ps.S3Client, ps.Config.S3Bucket, key, data, ps.Config)
	if err != nil {
		log.Error("S3-Upload fehlgeschlagen", zap.Error(err))
		// Paper trotzdem anlegen, der Text ist ja extrahiert
	}

	title := info.Title
	if title == "" {
		title = filename
	}

	paper := &models.Paper{
		Title:            title,
		Abstract:         info.Abstract,
		Authors:          authorsJSON(info.Authors),
		Source:           models.SourcePDFUpload,
		FullText:         text,
		S3Link:           s3link,
		ProcessingStatus: models.ProcessingPending,
	}
	if doi != "" {
		paper.DOI = &doi
	}
	if err := ps.DB.WithContext(ctx).Create(paper).Error; err != nil {
		return nil, fmt.Errorf("paper konnte nicht angelegt werden: %w", err)
	}
	papersAddedCounter.Inc()

	if err := ps.attachToLibrary(ctx, userID, paper.ID); err != nil {
		return nil, err
	}
	if err := ps.queueProcessing(ctx, paper.ID, userID); err != nil {
		log.Warn("Paper konnte nicht zur Verarbeitung eingereiht werden", zap.Error(err))
	}

	log.Info("Upload verarbeitet", zap.Uint("paper_id", paper.ID))
	return paper, nil
}

// ProcessContent ist der Worker-Einstiegspunkt für die KI-Analyse eines
// Papers. Fehler werden am Paper vermerkt und zurückgegeben, damit der
// Worker-Pool den Task wiederholen kann.
func (ps *PaperService) ProcessContent(ctx context.Context, paperID uint) error {
	log := ps.Logger.With(zap.Uint("paper_id", paperID))
	log.Info("Starte KI-Verarbeitung")
	start := time.Now()

	var paper models.Paper
	if err := ps.DB.WithContext(ctx).First(&paper, paperID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	ps.setProcessingStatus(ctx, paperID, models.ProcessingRunning, "")

	if err := ps.analyze(ctx, &paper); err != nil {
		log.Error("KI-Verarbeitung fehlgeschlagen", zap.Error(err))
		ps.setProcessingStatus(ctx, paperID, models.ProcessingFailed, err.Error())
		return err
	}

	ps.setProcessingStatus(ctx, paperID, models.ProcessingCompleted, "")
	papersProcessedCounter.Inc()
	log.Info("KI-Verarbeitung abgeschlossen", zap.Duration("took", time.Since(start)))
	return nil
}

func (ps *PaperService) analyze(ctx context.Context, paper *models.Paper) error {
	// Volltext nachladen, falls nur eine PDF-URL bekannt ist
	if paper.FullText == "" && paper.PDFURL != "" {
		text, err := ps.extractTextFromURL(ctx, paper.PDFURL)
		if err != nil {
			ps.Logger.Warn("PDF-Text konnte nicht geladen werden",
				zap.Uint("paper_id", paper.ID), zap.Error(err))
		} else if text != "" {
			paper.FullText = text
			if err := ps.DB.WithContext(ctx).Model(paper).Update("full_text", text).Error; err != nil {
				return err
			}
		}
	}

	content := prepareContent(paper)
	if content == "" {
		return fmt.Errorf("kein Inhalt für die KI-Verarbeitung verfügbar")
	}

	authors := authorNames(paper.Authors)

	summary, err := ps.AI.SummarizePaper(ctx, content, paper.Title, authors)
	if err != nil {
		return err
	}
	insights, err := ps.AI.ExtractInsights(ctx, content, paper.Title, 7)
	if err != nil {
		return err
	}
	methodology, err := ps.AI.AnalyzeMethodology(ctx, content, paper.Title)
	if err != nil {
		return err
	}
	limitations, err := ps.AI.IdentifyLimitations(ctx, content, paper.Title)
	if err != nil {
		return err
	}

	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	insightsJSON, err := json.Marshal(insights)
	if err != nil {
		return err
	}

	return ps.DB.WithContext(ctx).Model(paper).Updates(map[string]any{
		"summary":      datatypes.JSON(summaryJSON),
		"key_insights": datatypes.JSON(insightsJSON),
		"methodology":  methodology,
		"limitations":  limitations,
	}).Error
}

// SearchRequest beschreibt eine Suchanfrage über die Bibliothek.
type SearchRequest struct {
	Query     string        `json:"query"`
	Filters   SearchFilters `json:"filters"`
	SortBy    string        `json:"sort_by"`
	SortOrder string        `json:"sort_order"`
	Limit     int           `json:"limit"`
	Offset    int           `json:"offset"`
}

// SearchFilters sind die optionalen Filter einer Suchanfrage.
type SearchFilters struct {
	PublicationYear  *int   `json:"publication_year,omitempty"`
	Source           string `json:"source,omitempty"`
	Journal          string `json:"journal,omitempty"`
	Author           string `json:"author,omitempty"`
	HasPDF           bool   `json:"has_pdf,omitempty"`
	CitationCountMin *int   `json:"citation_count_min,omitempty"`
	CitationCountMax *int   `json:"citation_count_max,omitempty"`
}

// SearchResponse ist das Ergebnis einer Suche inklusive Paginierung.
type SearchResponse struct {
	Papers  []models.Paper `json:"papers"`
	Total   int64          `json:"total"`
	Query   string         `json:"query"`
	TookMs  int64          `json:"took_ms"`
	Page    int            `json:"page"`
	PerPage int            `json:"per_page"`
	HasNext bool           `json:"has_next"`
	HasPrev bool           `json:"has_prev"`
}

// Search durchsucht die Bibliothek eines Users mit Filtern, Sortierung und
// Paginierung. Mit userID 0 wird der gesamte Bestand durchsucht.
func (ps *PaperService) Search(ctx context.Context, userID uint, req SearchRequest) (*SearchResponse, error) {
	start := time.Now()

	if req.Limit <= 0 {
		req.Limit = 20
	}
	if req.Offset < 0 {
		req.Offset = 0
	}

	query := ps.DB.WithContext(ctx).Model(&models.Paper{})
	query = ps.applySearchQuery(query, userID, req)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("suche fehlgeschlagen: %w", err)
	}

	query = ps.applySearchOrder(query, req)

	var papers []models.Paper
	if err := query.Offset(req.Offset).Limit(req.Limit).Find(&papers).Error; err != nil {
		return nil, fmt.Errorf("suche fehlgeschlagen: %w", err)
	}

	took := time.Since(start)
	ps.Logger.Info("Suche abgeschlossen",
		zap.String("query", req.Query),
		zap.Int("results", len(papers)),
		zap.Duration("took", took))

	return &SearchResponse{
		Papers:  papers,
		Total:   total,
		Query:   req.Query,
		TookMs:  took.Milliseconds(),
		Page:    (req.Offset / req.Limit) + 1,
		PerPage: req.Limit,
		HasNext: int64(req.Offset+req.Limit) < total,
		HasPrev: req.Offset > 0,
	}, nil
}

func (ps *PaperService) applySearchQuery(query *gorm.DB, userID uint, req SearchRequest) *gorm.DB {
	if userID != 0 {
		query = query.Joins("JOIN user_papers ON user_papers.paper_id = papers.id").
			Where("user_papers.user_id = ?", userID)
	}

	if req.Query != "" {
		like := "%" + req.Query + "%"
		query = query.Where("papers.title ILIKE ? OR papers.abstract ILIKE ? OR papers.keywords::text ILIKE ?",
			like, like, like)
	}

	f := req.Filters
	if f.PublicationYear != nil {
		query = query.Where("papers.publication_year = ?", *f.PublicationYear)
	}
	if f.Source != "" {
		query = query.Where("papers.source = ?", f.Source)
	}
	if f.Journal != "" {
		query = query.Where("papers.journal ILIKE ?", "%"+f.Journal+"%")
	}
	if f.Author != "" {
		query = query.Where("papers.authors::text ILIKE ?", "%"+f.Author+"%")
	}
	if f.HasPDF {
		query = query.Where("papers.pdf_url <> ''")
	}
	if f.CitationCountMin != nil {
		query = query.Where("papers.citation_count >= ?", *f.CitationCountMin)
	}
	if f.CitationCountMax != nil {
		query = query.Where("papers.citation_count <= ?", *f.CitationCountMax)
	}

	return query
}

func (ps *PaperService) applySearchOrder(query *gorm.DB, req SearchRequest) *gorm.DB {
	column := "papers.influence_score" // relevance (default)
	switch req.SortBy {
	case "date":
		column = "papers.publication_date"
	case "citations":
		column = "papers.citation_count"
	case "title":
		column = "papers.title"
	}

	direction := "DESC"
	if strings.EqualFold(req.SortOrder, "asc") {
		direction = "ASC"
	}
	return query.Order(column + " " + direction)
}

// ListUserPapers gibt die Bibliothek eines Users zurück, optional nach
// Lesestatus gefiltert, neueste zuerst.
func (ps *PaperService) ListUserPapers(ctx context.Context, userID uint, status models.ReadingStatus, limit, offset int) ([]models.Paper, error) {
	if limit <= 0 {
		limit = 20
	}
	query := ps.DB.WithContext(ctx).Model(&models.Paper{}).
		Joins("JOIN user_papers ON user_papers.paper_id = papers.id").
		Where("user_papers.user_id = ?", userID)
	if status != "" {
		query = query.Where("user_papers.status = ?", status)
	}

	var papers []models.Paper
	err := query.Order("user_papers.created_at DESC").Offset(offset).Limit(limit).Find(&papers).Error
	return papers, err
}

// ReadingStateUpdate ist eine partielle Aktualisierung des Lesestatus.
// Nicht gesetzte Felder bleiben unverändert.
type ReadingStateUpdate struct {
	Status          *models.ReadingStatus `json:"status,omitempty"`
	ReadingProgress *int                  `json:"reading_progress,omitempty"`
	TimeSpent       *int                  `json:"time_spent,omitempty"`
	Rating          *int                  `json:"rating,omitempty"`
	Tags            []string              `json:"tags,omitempty"`
	Notes           *string               `json:"notes,omitempty"`
}

// UpdateReadingState aktualisiert den Lesestatus eines Users für ein Paper
// und setzt last_accessed_at.
func (ps *PaperService) UpdateReadingState(ctx context.Context, userID, paperID uint, upd ReadingStateUpdate) (*models.UserPaper, error) {
	var userPaper models.UserPaper
	err := ps.DB.WithContext(ctx).
		Where("user_id = ? AND paper_id = ?", userID, paperID).
		First(&userPaper).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	updates := map[string]any{"last_accessed_at": time.Now()}
	if upd.Status != nil {
		updates["status"] = *upd.Status
	}
	if upd.ReadingProgress != nil {
		updates["reading_progress"] = *upd.ReadingProgress
	}
	if upd.TimeSpent != nil {
		updates["time_spent"] = *upd.TimeSpent
	}
	if upd.Rating != nil {
		updates["rating"] = *upd.Rating
	}
	if upd.Tags != nil {
		tagsJSON, err := json.Marshal(upd.Tags)
		if err != nil {
			return nil, err
		}
		updates["tags"] = datatypes.JSON(tagsJSON)
	}
	if upd.Notes != nil {
		updates["notes"] = *upd.Notes
	}

	if err := ps.DB.WithContext(ctx).Model(&userPaper).Updates(updates).Error; err != nil {
		return nil, err
	}
	if err := ps.DB.WithContext(ctx).First(&userPaper, userPaper.ID).Error; err != nil {
		return nil, err
	}

	ps.Logger.Info("Lesestatus aktualisiert",
		zap.Uint("user_id", userID), zap.Uint("paper_id", paperID))
	return &userPaper, nil
}

// Recommendation ist ein Empfehlungs-Eintrag mit Begründung.
type Recommendation struct {
	Paper              models.Paper `json:"paper"`
	RelevanceScore     float64      `json:"relevance_score"`
	Reason             string       `json:"reason"`
	RecommendationType string       `json:"recommendation_type"`
}

// Recommendations erzeugt Paper-Empfehlungen: Keyword-Überschneidung mit
// gelesenen Papern, für neue User die populärsten Paper.
func (ps *PaperService) Recommendations(ctx context.Context, userID uint, limit int) ([]Recommendation, error) {
	if limit <= 0 {
		limit = 10
	}
	log := ps.Logger.With(zap.Uint("user_id", userID))

	completed, err := ps.ListUserPapers(ctx, userID, models.ReadingCompleted, 50, 0)
	if err != nil {
		return nil, err
	}

	if len(completed) == 0 {
		var popular []models.Paper
		if err := ps.DB.WithContext(ctx).
			Order("citation_count DESC").Limit(limit).Find(&popular).Error; err != nil {
			return nil, err
		}
		recs := make([]Recommendation, 0, len(popular))
		for _, p := range popular {
			recs = append(recs, Recommendation{
				Paper:              p,
				RelevanceScore:     0.5,
				Reason:             "Popular paper in the community",
				RecommendationType: "popular",
			})
		}
		log.Info("Empfehlungen für neuen User erzeugt", zap.Int("count", len(recs)))
		return recs, nil
	}

	keywords := collectKeywords(completed, 5)
	if len(keywords) == 0 {
		return []Recommendation{}, nil
	}

	ownIDs := make(map[uint]bool, len(completed))
	for _, p := range completed {
		ownIDs[p.ID] = true
	}

	query := ps.DB.WithContext(ctx).Model(&models.Paper{})
	conditions := ps.DB.Where("keywords::text ILIKE ?", "%"+keywords[0]+"%")
	for _, kw := range keywords[1:] {
		conditions = conditions.Or("keywords::text ILIKE ?", "%"+kw+"%")
	}
	var similar []models.Paper
	if err := query.Where(conditions).Limit(limit * 2).Find(&similar).Error; err != nil {
		return nil, err
	}

	var recs []Recommendation
	for _, p := range similar {
		if ownIDs[p.ID] {
			continue
		}
		recs = append(recs, Recommendation{
			Paper:              p,
			RelevanceScore:     0.7,
			Reason:             "Similar to your reading interests",
			RecommendationType: "similar_topic",
		})
		if len(recs) >= limit {
			break
		}
	}

	log.Info("Empfehlungen erzeugt", zap.Int("count", len(recs)))
	return recs, nil
}

// PaperDetail ist die zusammengeführte Detail-Antwort aus Paper und dem
// Lesestatus des anfragenden Users.
type PaperDetail struct {
	models.Paper
	ReadingStatus   *models.ReadingStatus `json:"reading_status,omitempty"`
	ReadingProgress int                   `json:"reading_progress"`
	TimeSpent       int                   `json:"time_spent"`
	Rating          *int                  `json:"rating,omitempty"`
	UserTags        datatypes.JSON        `json:"user_tags,omitempty"`
	UserNotes       string                `json:"user_notes,omitempty"`
	CitingCount     int64                 `json:"citing_count"`
	ReferenceCount  int64                 `json:"reference_count"`
}

// BuildPaperDetail führt Paper und UserPaper zu einer Detail-Antwort
// zusammen. userPaper darf nil sein.
func BuildPaperDetail(paper *models.Paper, userPaper *models.UserPaper, citing, references int64) *PaperDetail {
	detail := &PaperDetail{
		Paper:          *paper,
		CitingCount:    citing,
		ReferenceCount: references,
	}
	if userPaper != nil {
		status := userPaper.Status
		detail.ReadingStatus = &status
		detail.ReadingProgress = userPaper.ReadingProgress
		detail.TimeSpent = userPaper.TimeSpent
		detail.Rating = userPaper.Rating
		detail.UserTags = userPaper.Tags
		detail.UserNotes = userPaper.Notes
	}
	return detail
}

// GetDetail lädt ein Paper samt Lesestatus und Zitations-Zählern.
func (ps *PaperService) GetDetail(ctx context.Context, userID, paperID uint) (*PaperDetail, error) {
	var paper models.Paper
	if err := ps.DB.WithContext(ctx).First(&paper, paperID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var userPaper *models.UserPaper
	if userID != 0 {
		var up models.UserPaper
		err := ps.DB.WithContext(ctx).
			Where("user_id = ? AND paper_id = ?", userID, paperID).
			First(&up).Error
		if err == nil {
			userPaper = &up
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	var citing, references int64
	if err := ps.DB.WithContext(ctx).Model(&models.Citation{}).
		Where("cited_paper_id = ?", paperID).Count(&citing).Error; err != nil {
		return nil, err
	}
	if err := ps.DB.WithContext(ctx).Model(&models.Citation{}).
		Where("citing_paper_id = ?", paperID).Count(&references).Error; err != nil {
		return nil, err
	}

	return BuildPaperDetail(&paper, userPaper, citing, references), nil
}

// PaperStats sind die globalen Bestands-Statistiken.
type PaperStats struct {
	TotalPapers     int64 `json:"total_papers"`
	ProcessedPapers int64 `json:"processed_papers"`
	PendingPapers   int64 `json:"pending_papers"`
	FailedPapers    int64 `json:"failed_papers"`
}

// UserPaperStats sind die Statistiken der Bibliothek eines Users.
type UserPaperStats struct {
	TotalPapers      int64 `json:"total_papers"`
	ReadingPapers    int64 `json:"reading_papers"`
	CompletedPapers  int64 `json:"completed_papers"`
	TotalReadingTime int64 `json:"total_reading_time"`
}

// GlobalStats zählt den Paper-Bestand nach Verarbeitungsstatus.
func (ps *PaperService) GlobalStats(ctx context.Context) (*PaperStats, error) {
	var stats PaperStats
	db := ps.DB.WithContext(ctx).Model(&models.Paper{})

	if err := db.Count(&stats.TotalPapers).Error; err != nil {
		return nil, err
	}
	counts := []struct {
		status models.ProcessingStatus
		target *int64
	}{
		{models.ProcessingCompleted, &stats.ProcessedPapers},
		{models.ProcessingPending, &stats.PendingPapers},
		{models.ProcessingFailed, &stats.FailedPapers},
	}
	for _, c := range counts {
		if err := ps.DB.WithContext(ctx).Model(&models.Paper{}).
			Where("processing_status = ?", c.status).Count(c.target).Error; err != nil {
			return nil, err
		}
	}
	return &stats, nil
}

// UserStats zählt die Bibliothek eines Users.
func (ps *PaperService) UserStats(ctx context.Context, userID uint) (*UserPaperStats, error) {
	var stats UserPaperStats
	db := ps.DB.WithContext(ctx).Model(&models.UserPaper{}).Where("user_id = ?", userID)

	if err := db.Count(&stats.TotalPapers).Error; err != nil {
		return nil, err
	}
	if err := ps.DB.WithContext(ctx).Model(&models.UserPaper{}).
		Where("user_id = ? AND status = ?", userID, models.ReadingActive).
		Count(&stats.ReadingPapers).Error; err != nil {
		return nil, err
	}
	if err := ps.DB.WithContext(ctx).Model(&models.UserPaper{}).
		Where("user_id = ? AND status = ?", userID, models.ReadingCompleted).
		Count(&stats.CompletedPapers).Error; err != nil {
		return nil, err
	}

	var totalTime *int64
	if err := ps.DB.WithContext(ctx).Model(&models.UserPaper{}).
		Where("user_id = ?", userID).
		Select("SUM(time_spent)").Scan(&totalTime).Error; err != nil {
		return nil, err
	}
	if totalTime != nil {
		stats.TotalReadingTime = *totalTime
	}
	return &stats, nil
}

// RefreshMetrics berechnet die gecachten Zitations-Metriken aller Paper neu
// und gibt die Anzahl aktualisierter Paper zurück. Wird nächtlich per Cron
// aufgerufen.
func (ps *PaperService) RefreshMetrics(ctx context.Context) (int, error) {
	log := ps.Logger
	log.Info("Starte Metrik-Refresh")

	var papers []models.Paper
	if err := ps.DB.WithContext(ctx).Select("id").Find(&papers).Error; err != nil {
		return 0, err
	}

	updated := 0
	for _, paper := range papers {
		var count int64
		if err := ps.DB.WithContext(ctx).Model(&models.Citation{}).
			Where("cited_paper_id = ?", paper.ID).Count(&count).Error; err != nil {
			log.Error("Zitations-Zählung fehlgeschlagen", zap.Uint("paper_id", paper.ID), zap.Error(err))
			continue
		}

		influence := float64(count) * 0.1
		if influence > 1.0 {
			influence = 1.0
		}

		if err := ps.DB.WithContext(ctx).Model(&models.Paper{}).
			Where("id = ?", paper.ID).
			Updates(map[string]any{
				"citation_count":  count,
				"influence_score": influence,
			}).Error; err != nil {
			log.Error("Metrik-Update fehlgeschlagen", zap.Uint("paper_id", paper.ID), zap.Error(err))
			continue
		}
		updated++
	}

	log.Info("Metrik-Refresh abgeschlossen", zap.Int("updated", updated))
	return updated, nil
}

// TaskStatus liest den Status eines Hintergrund-Tasks.
func (ps *PaperService) TaskStatus(ctx context.Context, taskID string) (*models.ProcessingTask, error) {
	var task models.ProcessingTask
	err := ps.DB.WithContext(ctx).Where("task_id = ?", taskID).First(&task).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &task, nil
}

// interne Helfer

func (ps *PaperService) resolveMetadata(ctx context.Context, url string) (*providers.Metadata, error) {
	// Direkte PDF-URLs werden heruntergeladen und lokal analysiert
	if strings.HasSuffix(strings.ToLower(url), ".pdf") && !strings.Contains(url, "arxiv.org") {
		return ps.resolvePDFURL(ctx, url)
	}

	for _, resolver := range ps.Resolvers {
		if !resolver.CanResolve(url) {
			continue
		}
		meta, err := resolver.Resolve(ctx, url)
		if err != nil {
			ps.Logger.Warn("Resolver fehlgeschlagen",
				zap.String("resolver", resolver.Name()), zap.Error(err))
			continue
		}
		return meta, nil
	}
	return nil, fmt.Errorf("kein Resolver für URL: %s", url)
}

func (ps *PaperService) resolvePDFURL(ctx context.Context, url string) (*providers.Metadata, error) {
	data, err := ps.downloadPDF(ctx, url)
	if err != nil {
		// Minimale Metadaten, die Extraktion holt der Worker nach
		return &providers.Metadata{
			Title:  "PDF Document",
			PDFURL: url,
			Source: models.SourcePDFUpload,
		}, nil
	}

	meta := &providers.Metadata{
		Title:  "PDF Document",
		PDFURL: url,
		Source: models.SourcePDFUpload,
	}
	if info, err := ps.PDF.ExtractInfo(data); err == nil {
		if info.Title != "" {
			meta.Title = info.Title
		}
		meta.Authors = info.Authors
		meta.Abstract = info.Abstract
	}
	if doi, err := ps.PDF.ExtractDOI(data); err == nil && doi != "" {
		meta.DOI = doi
	}
	return meta, nil
}

func (ps *PaperService) downloadPDF(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := paperHTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("PDF-Download fehlgeschlagen: Status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, ps.Config.UploadMaxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > ps.Config.UploadMaxBytes {
		return nil, fmt.Errorf("PDF zu groß")
	}
	return data, nil
}

func (ps *PaperService) extractTextFromURL(ctx context.Context, pdfURL string) (string, error) {
	data, err := ps.downloadPDF(ctx, pdfURL)
	if err != nil {
		return "", err
	}
	return ps.PDF.ExtractText(data)
}

func (ps *PaperService) findExisting(ctx context.Context, meta *providers.Metadata, url string) (*models.Paper, error) {
	lookups := []struct {
		column string
		value  string
	}{
		{"doi", meta.DOI},
		{"arxiv_id", meta.ArxivID},
		{"pmid", meta.PMID},
		{"url", url},
	}

	for _, l := range lookups {
		if l.value == "" {
			continue
		}
		var paper models.Paper
		err := ps.DB.WithContext(ctx).Where(l.column+" = ?", l.value).First(&paper).Error
		if err == nil {
			return &paper, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	return nil, nil
}

func (ps *PaperService) paperFromMetadata(meta *providers.Metadata, url string) *models.Paper {
	paper := &models.Paper{
		Title:            meta.Title,
		Abstract:         meta.Abstract,
		Authors:          authorsJSON(meta.Authors),
		Keywords:         keywordsJSON(meta.Keywords),
		Journal:          meta.Journal,
		PublicationDate:  meta.PublicationDate,
		PublicationYear:  meta.PublicationYear,
		URL:              url,
		PDFURL:           meta.PDFURL,
		Source:           meta.Source,
		ProcessingStatus: models.ProcessingPending,
	}
	if meta.DOI != "" {
		doi := meta.DOI
		paper.DOI = &doi
	}
	if meta.ArxivID != "" {
		id := meta.ArxivID
		paper.ArxivID = &id
	}
	if meta.PMID != "" {
		pmid := meta.PMID
		paper.PMID = &pmid
	}
	return paper
}

func (ps *PaperService) attachToLibrary(ctx context.Context, userID, paperID uint) error {
	userPaper := models.UserPaper{
		UserID:  userID,
		PaperID: paperID,
		Status:  models.ReadingSaved,
	}
	return ps.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&userPaper).Error
}

func (ps *PaperService) queueProcessing(ctx context.Context, paperID, userID uint) error {
	pid := paperID
	uid := userID
	_, err := ps.Pool.Enqueue(ctx, Task{
		Type:    "paper_processing",
		PaperID: &pid,
		UserID:  &uid,
		Run: func(taskCtx context.Context) error {
			return ps.ProcessContent(taskCtx, pid)
		},
	})
	return err
}

func (ps *PaperService) setProcessingStatus(ctx context.Context, paperID uint, status models.ProcessingStatus, errMsg string) {
	updates := map[string]any{"processing_status": status}
	if status == models.ProcessingCompleted {
		updates["processed_at"] = time.Now()
	}
	if status == models.ProcessingFailed {
		updates["processing_error"] = errMsg
	}
	if err := ps.DB.WithContext(ctx).Model(&models.Paper{}).
		Where("id = ?", paperID).Updates(updates).Error; err != nil {
		ps.Logger.Error("Verarbeitungsstatus konnte nicht gespeichert werden",
			zap.Uint("paper_id", paperID), zap.Error(err))
	}
}

// prepareContent baut den Text für die KI-Verarbeitung aus Titel, Abstract
// und Volltext zusammen.
func prepareContent(paper *models.Paper) string {
	var parts []string
	if paper.Title != "" {
		parts = append(parts, "Title: "+paper.Title)
	}
	if paper.Abstract != "" {
		parts = append(parts, "Abstract: "+paper.Abstract)
	}
	if paper.FullText != "" {
		parts = append(parts, "Full Text: "+paper.FullText)
	}
	if len(parts) == 0 {
		return ""
	}
	if paper.Title != "" && paper.Abstract == "" && paper.FullText == "" {
		// Nur ein Titel reicht nicht für eine Analyse
		return ""
	}
	return strings.Join(parts, "\n\n")
}

// collectKeywords sammelt bis zu max Keywords aus den Papern, in
// Reihenfolge des ersten Auftretens.
func collectKeywords(papers []models.Paper, max int) []string {
	seen := make(map[string]bool)
	var keywords []string
	for _, p := range papers {
		if len(p.Keywords) == 0 {
			continue
		}
		var kws []string
		if err := json.Unmarshal(p.Keywords, &kws); err != nil {
			continue
		}
		for _, kw := range kws {
			if kw == "" || seen[kw] {
				continue
			}
			seen[kw] = true
			keywords = append(keywords, kw)
			if len(keywords) >= max {
				return keywords
			}
		}
	}
	return keywords
}

func authorsJSON(authors []models.Author) datatypes.JSON {
	if len(authors) == 0 {
		return datatypes.JSON([]byte("[]"))
	}
	data, err := json.Marshal(authors)
	if err != nil {
		return datatypes.JSON([]byte("[]"))
	}
	return datatypes.JSON(data)
}

func keywordsJSON(keywords []string) datatypes.JSON {
	if len(keywords) == 0 {
		return datatypes.JSON([]byte("[]"))
	}
	data, err := json.Marshal(keywords)
	if err != nil {
		return datatypes.JSON([]byte("[]"))
	}
	return datatypes.JSON(data)
}
