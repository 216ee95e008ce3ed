package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"paperbase/models"
)

// NetworkNode ist ein Knoten im Zitationsnetzwerk.
type NetworkNode struct {
	ID              uint     `json:"id"`
	Title           string   `json:"title"`
	Authors         []string `json:"authors"`
	PublicationYear int      `json:"publication_year"`
	CitationCount   int      `json:"citation_count"`
	InfluenceScore  float64  `json:"influence_score"`
	IsCenter        bool     `json:"is_center"`
	Depth           int      `json:"depth"`
}

// NetworkEdge ist eine gerichtete Kante im Zitationsnetzwerk (Quelle zitiert Ziel).
type NetworkEdge struct {
	Source   uint    `json:"source"`
	Target   uint    `json:"target"`
	Strength float64 `json:"strength"`
	Context  string  `json:"context"`
	Type     string  `json:"type"`
}

// CitationNetwork ist das Ergebnis der BFS-Traversierung um ein Zentrums-Paper.
// Es wird pro Anfrage berechnet und nicht persistiert.
type CitationNetwork struct {
	Nodes          []NetworkNode `json:"nodes"`
	Edges          []NetworkEdge `json:"edges"`
	CenterPaperID  uint          `json:"center_paper_id"`
	Depth          int           `json:"depth"`
	TotalPapers    int           `json:"total_papers"`
	TotalCitations int           `json:"total_citations"`
}

// InfluenceMetrics fasst die bibliometrischen Kennzahlen eines Papers zusammen.
// PercentileRank und FieldNormalizedScore sind Platzhalter und immer 0.0,
// da sie den vollen Datensatz bzw. eine Fach-Klassifikation erfordern würden.
type InfluenceMetrics struct {
	PaperID              uint    `json:"paper_id"`
	DirectCitations      int     `json:"direct_citations"`
	SecondOrderCitations int     `json:"second_order_citations"`
	HIndex               int     `json:"h_index"`
	InfluenceScore       float64 `json:"influence_score"`
	PublicationAgeYears  int     `json:"publication_age_years"`
	CitationRatePerYear  float64 `json:"citation_rate_per_year"`
	PercentileRank       float64 `json:"percentile_rank"`
	FieldNormalizedScore float64 `json:"field_normalized_score"`
}

// PaperSummary beschreibt ein Nachbar-Paper inklusive Zitationskontext.
type PaperSummary struct {
	PaperID          uint     `json:"paper_id"`
	Title            string   `json:"title"`
	Authors          []string `json:"authors"`
	PublicationYear  int      `json:"publication_year"`
	CitationCount    int      `json:"citation_count"`
	CitationContext  string   `json:"citation_context"`
	CitationStrength float64  `json:"citation_strength"`
}

// contextSnippetLen begrenzt den Kontext-Ausschnitt auf Netzwerk-Kanten.
const contextSnippetLen = 100

// CitationService baut Zitationsnetzwerke und berechnet Einfluss-Metriken.
// Beide Operationen sind zustandslos und rein lesend.
type CitationService struct {
	Papers    PaperGetter
	Citations CitationStore
	Logger    *zap.Logger

	// now ist in Tests überschreibbar
	now func() time.Time
}

// NewCitationService erstellt einen neuen CitationService.
func NewCitationService(papers PaperGetter, citations CitationStore, logger *zap.Logger) *CitationService {
	return &CitationService{
		Papers:    papers,
		Citations: citations,
		Logger:    logger,
		now:       time.Now,
	}
}

// BuildNetwork traversiert den Zitationsgraphen per BFS um centerID herum.
// depth begrenzt die Entfernung vom Zentrum, maxPapers die Gesamtzahl der
// Knoten. Kanten werden nur zurückgegeben, wenn beide Endpunkte im Ergebnis
// enthalten sind.
func (cs *CitationService) BuildNetwork(ctx context.Context, centerID uint, depth, maxPapers int) (*CitationNetwork, error) {
	log := cs.Logger.With(zap.Uint("center_paper_id", centerID), zap.Int("depth", depth), zap.Int("max_papers", maxPapers))
	log.Info("Baue Zitationsnetzwerk auf")

	// Zentrum muss existieren, sonst kein (Teil-)Ergebnis
	if _, err := cs.Papers.GetPaperByID(ctx, centerID); err != nil {
		return nil, err
	}

	type queueItem struct {
		paperID uint
		depth   int
	}

	nodes := make(map[uint]NetworkNode)
	nodeOrder := make([]uint, 0, maxPapers)
	var candidateEdges []NetworkEdge
	visited := make(map[uint]bool)
	queue := []queueItem{{paperID: centerID, depth: 0}}

	for len(queue) > 0 && len(nodes) < maxPapers {
		item := queue[0]
		queue = queue[1:]

		if visited[item.paperID] || item.depth > depth {
			continue
		}
		visited[item.paperID] = true

		paper, err := cs.Papers.GetPaperByID(ctx, item.paperID)
		if errors.Is(err, ErrNotFound) {
			// Kante auf ein gelöschtes/unbekanntes Paper: Knoten überspringen
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("netzwerk-traversierung abgebrochen: %w", err)
		}

		nodes[item.paperID] = NetworkNode{
			ID:              paper.ID,
			Title:           paper.Title,
			Authors:         authorNames(paper.Authors),
			PublicationYear: paper.PublicationYear,
			CitationCount:   paper.CitationCount,
			InfluenceScore:  paper.InfluenceScore,
			IsCenter:        item.paperID == centerID,
			Depth:           item.depth,
		}
		nodeOrder = append(nodeOrder, item.paperID)

		if item.depth >= depth {
			continue
		}

		// Beide Richtungen: erst zitierende, dann zitierte Paper
		citing, err := cs.Citations.Citing(ctx, item.paperID)
		if err != nil {
			return nil, fmt.Errorf("netzwerk-traversierung abgebrochen: %w", err)
		}
		for _, c := range citing {
			candidateEdges = append(candidateEdges, NetworkEdge{
				Source:   c.CitingPaperID,
				Target:   item.paperID,
				Strength: c.Strength,
				Context:  truncate(c.Context, contextSnippetLen),
				Type:     "cites",
			})
			if !visited[c.CitingPaperID] {
				queue = append(queue, queueItem{paperID: c.CitingPaperID, depth: item.depth + 1})
			}
		}

		cited, err := cs.Citations.CitedBy(ctx, item.paperID)
		if err != nil {
			return nil, fmt.Errorf("netzwerk-traversierung abgebrochen: %w", err)
		}
		for _, c := range cited {
			candidateEdges = append(candidateEdges, NetworkEdge{
				Source:   item.paperID,
				Target:   c.CitedPaperID,
				Strength: c.Strength,
				Context:  truncate(c.Context, contextSnippetLen),
				Type:     "cites",
			})
			if !visited[c.CitedPaperID] {
				queue = append(queue, queueItem{paperID: c.CitedPaperID, depth: item.depth + 1})
			}
		}
	}

	// Nur Kanten behalten, deren Endpunkte beide als Knoten aufgenommen
	// wurden; Nachbarn hinter dem Knoten-Limit fallen hier raus. Duplikate
	// (eine Kante wird von beiden Endpunkten aus gesehen) ebenfalls.
	nodeList := make([]NetworkNode, 0, len(nodeOrder))
	for _, id := range nodeOrder {
		nodeList = append(nodeList, nodes[id])
	}

	seen := make(map[[2]uint]bool)
	edges := make([]NetworkEdge, 0, len(candidateEdges))
	for _, e := range candidateEdges {
		if _, okSrc := nodes[e.Source]; !okSrc {
			continue
		}
		if _, okTgt := nodes[e.Target]; !okTgt {
			continue
		}
		key := [2]uint{e.Source, e.Target}
		if seen[key] {
			continue
		}
		seen[key] = true
		edges = append(edges, e)
	}

	log.Info("Zitationsnetzwerk aufgebaut",
		zap.Int("total_papers", len(nodeList)),
		zap.Int("total_citations", len(edges)))

	return &CitationNetwork{
		Nodes:          nodeList,
		Edges:          edges,
		CenterPaperID:  centerID,
		Depth:          depth,
		TotalPapers:    len(nodeList),
		TotalCitations: len(edges),
	}, nil
}

// CalculateInfluence berechnet die Einfluss-Metriken eines Papers.
// Das Ergebnis wird nicht gecacht; jeder Aufruf rechnet neu.
func (cs *CitationService) CalculateInfluence(ctx context.Context, paperID uint) (*InfluenceMetrics, error) {
	paper, err := cs.Papers.GetPaperByID(ctx, paperID)
	if err != nil {
		return nil, err
	}

	citing, err := cs.Citations.Citing(ctx, paperID)
	if err != nil {
		return nil, fmt.Errorf("direkte Zitierungen: %w", err)
	}
	directCitations := len(citing)

	// Zitierungen der Zitierer: zählt Kanten, nicht distinkte Paper.
	// Teilen sich mehrere Zitierer einen Zweitzitierer, wird mehrfach
	// gezählt; das entspricht dem dokumentierten Verhalten.
	secondOrder := 0
	citerIDs := make(map[uint]bool)
	for _, c := range citing {
		citerIDs[c.CitingPaperID] = true
	}
	for citerID := range citerIDs {
		edges, err := cs.Citations.Citing(ctx, citerID)
		if err != nil {
			return nil, fmt.Errorf("zweitgrad-Zitierungen: %w", err)
		}
		secondOrder += len(edges)
	}

	hIndex, err := cs.citingHIndex(ctx, citing)
	if err != nil {
		return nil, err
	}

	influence := (float64(directCitations)*0.5 + float64(secondOrder)*0.3 + float64(hIndex)*0.2) / 100
	if influence > 1.0 {
		influence = 1.0
	}

	ageYears := 0
	if paper.PublicationDate != nil {
		ageYears = int(cs.now().Sub(*paper.PublicationDate).Hours() / 24 / 365)
	}
	citationRate := 0.0
	if ageYears > 0 {
		citationRate = float64(directCitations) / float64(ageYears)
	}

	return &InfluenceMetrics{
		PaperID:              paperID,
		DirectCitations:      directCitations,
		SecondOrderCitations: secondOrder,
		HIndex:               hIndex,
		InfluenceScore:       influence,
		PublicationAgeYears:  ageYears,
		CitationRatePerYear:  citationRate,
		PercentileRank:       0.0,
		FieldNormalizedScore: 0.0,
	}, nil
}

// citingHIndex berechnet die h-Index-artige Statistik über die gecachten
// citation_counts der direkt zitierenden Paper: größtes i (1-basiert), für
// das der i-t-höchste Zitierer mindestens i Zitierungen hat.
func (cs *CitationService) citingHIndex(ctx context.Context, citing []models.Citation) (int, error) {
	counts := make([]int, 0, len(citing))
	for _, c := range citing {
		p, err := cs.Papers.GetPaperByID(ctx, c.CitingPaperID)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("h-index: %w", err)
		}
		counts = append(counts, p.CitationCount)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(counts)))

	hIndex := 0
	for i, count := range counts {
		if count >= i+1 {
			hIndex = i + 1
		} else {
			break
		}
	}
	return hIndex, nil
}

// CitingPapers gibt bis zu limit Paper zurück, die paperID zitieren.
func (cs *CitationService) CitingPapers(ctx context.Context, paperID uint, limit int) ([]PaperSummary, error) {
	if _, err := cs.Papers.GetPaperByID(ctx, paperID); err != nil {
		return nil, err
	}
	citing, err := cs.Citations.Citing(ctx, paperID)
	if err != nil {
		return nil, err
	}
	return cs.neighborSummaries(ctx, citing, limit, func(c models.Citation) uint { return c.CitingPaperID })
}

// ReferencedPapers gibt bis zu limit Paper zurück, die paperID zitiert.
func (cs *CitationService) ReferencedPapers(ctx context.Context, paperID uint, limit int) ([]PaperSummary, error) {
	if _, err := cs.Papers.GetPaperByID(ctx, paperID); err != nil {
		return nil, err
	}
	cited, err := cs.Citations.CitedBy(ctx, paperID)
	if err != nil {
		return nil, err
	}
	return cs.neighborSummaries(ctx, cited, limit, func(c models.Citation) uint { return c.CitedPaperID })
}

func (cs *CitationService) neighborSummaries(ctx context.Context, citations []models.Citation, limit int, neighborID func(models.Citation) uint) ([]PaperSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	summaries := make([]PaperSummary, 0, limit)
	for _, c := range citations {
		if len(summaries) >= limit {
			break
		}
		paper, err := cs.Papers.GetPaperByID(ctx, neighborID(c))
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, PaperSummary{
			PaperID:          paper.ID,
			Title:            paper.Title,
			Authors:          authorNames(paper.Authors),
			PublicationYear:  paper.PublicationYear,
			CitationCount:    paper.CitationCount,
			CitationContext:  c.Context,
			CitationStrength: c.Strength,
		})
	}
	return summaries, nil
}

// authorNames extrahiert die Namen aus der JSONB-Autorenliste eines Papers.
func authorNames(raw []byte) []string {
	if len(raw) == 0 {
		return []string{}
	}
	var authors []models.Author
	if err := json.Unmarshal(raw, &authors); err != nil {
		return []string{}
	}
	names := make([]string, 0, len(authors))
	for _, a := range authors {
		names = append(names, a.Name)
	}
	return names
}

// truncate kürzt s auf höchstens n Runen.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
