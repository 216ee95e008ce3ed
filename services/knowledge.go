package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"paperbase/models"
)

// summaryMinLength ist die Mindestlänge, ab der für einen Eintrag eine
// KI-Zusammenfassung erzeugt wird.
const summaryMinLength = 500

// NoteSummarizer erzeugt Kurzzusammenfassungen für Wissenseinträge.
type NoteSummarizer interface {
	SummarizeNote(ctx context.Context, content string) (string, error)
}

// KnowledgeService verwaltet die persönliche Wissensbasis der User.
type KnowledgeService struct {
	DB     *gorm.DB
	AI     NoteSummarizer
	Logger *zap.Logger
}

// NewKnowledgeService erstellt eine neue Instanz des KnowledgeService.
func NewKnowledgeService(db *gorm.DB, ai NoteSummarizer, logger *zap.Logger) *KnowledgeService {
	return &KnowledgeService{DB: db, AI: ai, Logger: logger}
}

// KnowledgeEntryInput sind die Felder zum Anlegen eines Eintrags.
type KnowledgeEntryInput struct {
	PaperID          *uint            `json:"paper_id,omitempty"`
	Title            string           `json:"title" binding:"required"`
	Content          string           `json:"content" binding:"required"`
	EntryType        models.EntryType `json:"entry_type" binding:"required"`
	Tags             []string         `json:"tags,omitempty"`
	SectionReference string           `json:"section_reference,omitempty"`
	PageNumber       *int             `json:"page_number,omitempty"`
}

// KnowledgeEntryUpdate ist eine partielle Aktualisierung eines Eintrags.
type KnowledgeEntryUpdate struct {
	Title            *string           `json:"title,omitempty"`
	Content          *string           `json:"content,omitempty"`
	EntryType        *models.EntryType `json:"entry_type,omitempty"`
	Tags             []string          `json:"tags,omitempty"`
	SectionReference *string           `json:"section_reference,omitempty"`
	PageNumber       *int              `json:"page_number,omitempty"`
}

// CreateEntry legt einen Wissenseintrag an. Für längere Einträge wird eine
// KI-Zusammenfassung erzeugt; schlägt das fehl, bleibt der Eintrag trotzdem
// bestehen.
func (ks *KnowledgeService) CreateEntry(ctx context.Context, userID uint, input KnowledgeEntryInput) (*models.KnowledgeEntry, error) {
	if !validEntryType(input.EntryType) {
		return nil, fmt.Errorf("unbekannter entry_type: %s", input.EntryType)
	}

	entry := &models.KnowledgeEntry{
		UserID:           userID,
		PaperID:          input.PaperID,
		Title:            input.Title,
		Content:          input.Content,
		EntryType:        input.EntryType,
		Tags:             keywordsJSON(input.Tags),
		SectionReference: input.SectionReference,
		PageNumber:       input.PageNumber,
	}

	if err := ks.DB.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, fmt.Errorf("eintrag konnte nicht angelegt werden: %w", err)
	}

	if len(input.Content) > summaryMinLength {
		ks.attachSummary(ctx, entry)
	}

	ks.Logger.Info("Wissenseintrag angelegt",
		zap.Uint("entry_id", entry.ID), zap.Uint("user_id", userID),
		zap.String("entry_type", string(entry.EntryType)))
	return entry, nil
}

// GetEntry liest einen Eintrag, sofern er dem User gehört.
func (ks *KnowledgeService) GetEntry(ctx context.Context, userID, entryID uint) (*models.KnowledgeEntry, error) {
	var entry models.KnowledgeEntry
	err := ks.DB.WithContext(ctx).
		Where("id = ? AND user_id = ?", entryID, userID).
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// ListEntries gibt die Einträge eines Users zurück, optional nach Typ und
// Paper gefiltert, neueste zuerst.
func (ks *KnowledgeService) ListEntries(ctx context.Context, userID uint, entryType models.EntryType, paperID *uint, limit, offset int) ([]models.KnowledgeEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	query := ks.DB.WithContext(ctx).Where("user_id = ?", userID)
	if entryType != "" {
		if !validEntryType(entryType) {
			ks.Logger.Warn("Unbekannter entry_type ignoriert", zap.String("entry_type", string(entryType)))
		} else {
			query = query.Where("entry_type = ?", entryType)
		}
	}
	if paperID != nil {
		query = query.Where("paper_id = ?", *paperID)
	}

	var entries []models.KnowledgeEntry
	err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&entries).Error
	return entries, err
}

// UpdateEntry aktualisiert einen Eintrag partiell. Wird der Inhalt geändert
// und ist lang genug, wird die Zusammenfassung neu erzeugt.
func (ks *KnowledgeService) UpdateEntry(ctx context.Context, userID, entryID uint, upd KnowledgeEntryUpdate) (*models.KnowledgeEntry, error) {
	entry, err := ks.GetEntry(ctx, userID, entryID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if upd.Title != nil {
		entry.Title = *upd.Title
		updates["title"] = *upd.Title
	}
	if upd.Content != nil {
		entry.Content = *upd.Content
		updates["content"] = *upd.Content
	}
	if upd.EntryType != nil {
		if !validEntryType(*upd.EntryType) {
			return nil, fmt.Errorf("unbekannter entry_type: %s", *upd.EntryType)
		}
		entry.EntryType = *upd.EntryType
		updates["entry_type"] = *upd.EntryType
	}
	if upd.Tags != nil {
		entry.Tags = keywordsJSON(upd.Tags)
		updates["tags"] = entry.Tags
	}
	if upd.SectionReference != nil {
		entry.SectionReference = *upd.SectionReference
		updates["section_reference"] = *upd.SectionReference
	}
	if upd.PageNumber != nil {
		entry.PageNumber = upd.PageNumber
		updates["page_number"] = *upd.PageNumber
	}

	if len(updates) > 0 {
		if err := ks.DB.WithContext(ctx).Model(entry).Updates(updates).Error; err != nil {
			return nil, err
		}
	}

	if upd.Content != nil && len(entry.Content) > summaryMinLength {
		ks.attachSummary(ctx, entry)
	}

	ks.Logger.Info("Wissenseintrag aktualisiert",
		zap.Uint("entry_id", entryID), zap.Uint("user_id", userID))
	return entry, nil
}

// DeleteEntry löscht einen Eintrag des Users.
func (ks *KnowledgeService) DeleteEntry(ctx context.Context, userID, entryID uint) error {
	result := ks.DB.WithContext(ctx).
		Where("id = ? AND user_id = ?", entryID, userID).
		Delete(&models.KnowledgeEntry{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	ks.Logger.Info("Wissenseintrag gelöscht",
		zap.Uint("entry_id", entryID), zap.Uint("user_id", userID))
	return nil
}

// KnowledgeSearchRequest beschreibt eine Suche über die Wissensbasis.
type KnowledgeSearchRequest struct {
	Query      string             `json:"query"`
	EntryTypes []models.EntryType `json:"entry_types,omitempty"`
	Tags       []string           `json:"tags,omitempty"`
	PaperID    *uint              `json:"paper_id,omitempty"`
	Limit      int                `json:"limit"`
	Offset     int                `json:"offset"`
}

// KnowledgeSearchResponse ist das Suchergebnis.
type KnowledgeSearchResponse struct {
	Entries []models.KnowledgeEntry `json:"entries"`
	Total   int64                   `json:"total"`
	Query   string                  `json:"query"`
	TookMs  int64                   `json:"took_ms"`
}

// SearchEntries durchsucht die Wissensbasis eines Users über Titel, Inhalt
// und Zusammenfassung.
func (ks *KnowledgeService) SearchEntries(ctx context.Context, userID uint, req KnowledgeSearchRequest) (*KnowledgeSearchResponse, error) {
	start := time.Now()
	if req.Limit <= 0 {
		req.Limit = 20
	}

	query := ks.DB.WithContext(ctx).Model(&models.KnowledgeEntry{}).
		Where("user_id = ?", userID)

	if req.Query != "" {
		like := "%" + req.Query + "%"
		query = query.Where("title ILIKE ? OR content ILIKE ? OR summary ILIKE ?", like, like, like)
	}
	if len(req.EntryTypes) > 0 {
		query = query.Where("entry_type IN ?", req.EntryTypes)
	}
	for _, tag := range req.Tags {
		query = query.Where("tags::text ILIKE ?", "%"+tag+"%")
	}
	if req.PaperID != nil {
		query = query.Where("paper_id = ?", *req.PaperID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var entries []models.KnowledgeEntry
	if err := query.Order("updated_at DESC").
		Offset(req.Offset).Limit(req.Limit).Find(&entries).Error; err != nil {
		return nil, err
	}

	took := time.Since(start)
	ks.Logger.Info("Wissenssuche abgeschlossen",
		zap.String("query", req.Query), zap.Int("results", len(entries)),
		zap.Duration("took", took))

	return &KnowledgeSearchResponse{
		Entries: entries,
		Total:   total,
		Query:   req.Query,
		TookMs:  took.Milliseconds(),
	}, nil
}

// TagCount ist ein Tag mit seiner Verwendungshäufigkeit.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// KnowledgeStats sind die Statistiken der Wissensbasis eines Users.
type KnowledgeStats struct {
	TotalEntries  int64            `json:"total_entries"`
	EntriesByType map[string]int64 `json:"entries_by_type"`
	RecentEntries int64            `json:"recent_entries"`
	TotalTags     int              `json:"total_tags"`
	MostUsedTags  []TagCount       `json:"most_used_tags"`
}

// Stats zählt die Wissensbasis eines Users: Einträge nach Typ, Einträge der
// letzten sieben Tage und die meistgenutzten Tags.
func (ks *KnowledgeService) Stats(ctx context.Context, userID uint) (*KnowledgeStats, error) {
	stats := &KnowledgeStats{EntriesByType: map[string]int64{}}

	if err := ks.DB.WithContext(ctx).Model(&models.KnowledgeEntry{}).
		Where("user_id = ?", userID).Count(&stats.TotalEntries).Error; err != nil {
		return nil, err
	}

	for _, et := range []models.EntryType{
		models.EntrySummary, models.EntryNote, models.EntryHighlight,
		models.EntryInsight, models.EntryQuestion,
	} {
		var count int64
		if err := ks.DB.WithContext(ctx).Model(&models.KnowledgeEntry{}).
			Where("user_id = ? AND entry_type = ?", userID, et).
			Count(&count).Error; err != nil {
			return nil, err
		}
		stats.EntriesByType[string(et)] = count
	}

	cutoff := time.Now().AddDate(0, 0, -7)
	if err := ks.DB.WithContext(ctx).Model(&models.KnowledgeEntry{}).
		Where("user_id = ? AND created_at >= ?", userID, cutoff).
		Count(&stats.RecentEntries).Error; err != nil {
		return nil, err
	}

	var entries []models.KnowledgeEntry
	if err := ks.DB.WithContext(ctx).Select("tags").
		Where("user_id = ?", userID).Find(&entries).Error; err != nil {
		return nil, err
	}
	stats.MostUsedTags = topTags(entries, 10)
	stats.TotalTags = countDistinctTags(entries)

	return stats, nil
}

func (ks *KnowledgeService) attachSummary(ctx context.Context, entry *models.KnowledgeEntry) {
	summary, err := ks.AI.SummarizeNote(ctx, entry.Content)
	if err != nil {
		ks.Logger.Warn("Zusammenfassung konnte nicht erzeugt werden",
			zap.Uint("entry_id", entry.ID), zap.Error(err))
		return
	}
	entry.Summary = summary
	if err := ks.DB.WithContext(ctx).Model(entry).Update("summary", summary).Error; err != nil {
		ks.Logger.Warn("Zusammenfassung konnte nicht gespeichert werden",
			zap.Uint("entry_id", entry.ID), zap.Error(err))
	}
}

func validEntryType(et models.EntryType) bool {
	switch et {
	case models.EntrySummary, models.EntryNote, models.EntryHighlight,
		models.EntryInsight, models.EntryQuestion:
		return true
	}
	return false
}

func entryTags(tags datatypes.JSON) []string {
	if len(tags) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal(tags, &out); err != nil {
		return nil
	}
	return out
}

// topTags zählt alle Tags und gibt die max häufigsten zurück, bei gleicher
// Häufigkeit alphabetisch sortiert.
func topTags(entries []models.KnowledgeEntry, max int) []TagCount {
	counts := map[string]int{}
	for _, entry := range entries {
		for _, tag := range entryTags(entry.Tags) {
			counts[tag]++
		}
	}

	all := make([]TagCount, 0, len(counts))
	for tag, count := range counts {
		all = append(all, TagCount{Tag: tag, Count: count})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Count != all[j].Count {
			return all[i].Count > all[j].Count
		}
		return all[i].Tag < all[j].Tag
	})
	if len(all) > max {
		all = all[:max]
	}
	return all
}

func countDistinctTags(entries []models.KnowledgeEntry) int {
	seen := map[string]bool{}
	for _, entry := range entries {
		for _, tag := range entryTags(entry.Tags) {
			seen[tag] = true
		}
	}
	return len(seen)
}
