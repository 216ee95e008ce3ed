package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

var aiRequestsCounter prometheus.Counter

func init() {
	aiRequestsCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "paperbase_ai_requests_total",
		Help: "Anzahl der Anfragen an den KI-Endpunkt.",
	})
	prometheus.MustRegister(aiRequestsCounter)
}

// PaperAnalyzer erzeugt KI-gestützte Analysen von Paper-Volltexten.
// Die Implementierung wird per Konstruktor injiziert, damit Tests und
// alternative Backends ohne globale Zustände auskommen.
type PaperAnalyzer interface {
	SummarizePaper(ctx context.Context, content, title string, authors []string) (*PaperAISummary, error)
	ExtractInsights(ctx context.Context, content, title string, maxInsights int) ([]KeyInsight, error)
	AnalyzeMethodology(ctx context.Context, content, title string) (string, error)
	IdentifyLimitations(ctx context.Context, content, title string) (string, error)
}

// PaperAISummary ist die strukturierte Zusammenfassung eines Papers.
type PaperAISummary struct {
	ResearchQuestion string   `json:"research_question"`
	Methodology      string   `json:"methodology"`
	KeyFindings      []string `json:"key_findings"`
	Limitations      []string `json:"limitations"`
	Significance     string   `json:"significance"`
	FutureWork       []string `json:"future_work"`
	ConfidenceScore  float64  `json:"confidence_score"`
}

// KeyInsight ist eine einzelne Kernaussage mit Relevanz-Bewertung.
type KeyInsight struct {
	Insight        string  `json:"insight"`
	RelevanceScore float64 `json:"relevance_score"`
	Section        string  `json:"section,omitempty"`
	PageNumber     *int    `json:"page_number,omitempty"`
}

// AIClient spricht einen OpenAI-kompatiblen Chat-Completions-Endpunkt an.
type AIClient struct {
	BaseURL        string
	APIKey         string
	Model          string
	MaxPaperLength int
	HTTPClient     *http.Client
	Logger         *zap.Logger
}

// NewAIClient erstellt einen neuen AIClient.
func NewAIClient(baseURL, apiKey, model string, maxPaperLength, timeoutSeconds int, logger *zap.Logger) *AIClient {
	return &AIClient{
		BaseURL:        strings.TrimRight(baseURL, "/"),
		APIKey:         apiKey,
		Model:          model,
		MaxPaperLength: maxPaperLength,
		HTTPClient:     &http.Client{Timeout: time.Duration(timeoutSeconds) * time.Second},
		Logger:         logger,
	}
}

// SummarizePaper erzeugt eine strukturierte Zusammenfassung des Papers.
func (a *AIClient) SummarizePaper(ctx context.Context, content, title string, authors []string) (*PaperAISummary, error) {
	a.Logger.Info("Erzeuge Paper-Zusammenfassung", zap.String("title", shorten(title, 50)))
	start := time.Now()

	prepared := fmt.Sprintf("Title: %s\n\n", title)
	if len(authors) > 0 {
		prepared += fmt.Sprintf("Authors: %s\n\n", strings.Join(authors, ", "))
	}
	prepared += a.truncateContent(content)

	prompt := fmt.Sprintf(`Analyze this academic paper and provide a comprehensive summary in JSON format:

%s

Return a JSON object with this exact structure:
{
    "research_question": "What is the main research question or problem addressed?",
    "methodology": "Brief description of the research methods and approach used",
    "key_findings": ["Finding 1", "Finding 2", "Finding 3"],
    "limitations": ["Limitation 1", "Limitation 2"],
    "significance": "Why this research is important and its contribution to the field",
    "future_work": ["Future direction 1", "Future direction 2"],
    "confidence_score": 0.85
}

Guidelines:
- Be specific and accurate
- Focus on the most important aspects
- Limit key_findings to 3-5 items
- Limit limitations to 2-4 items
- Limit future_work to 2-3 items
- Confidence score should reflect how well the paper is understood (0.0-1.0)`, prepared)

	raw, err := a.chat(ctx, prompt, 0.2, 1200)
	if err != nil {
		return nil, fmt.Errorf("summarization fehlgeschlagen: %w", err)
	}

	var summary PaperAISummary
	if err := json.Unmarshal(stripCodeFences(raw), &summary); err != nil {
		return nil, fmt.Errorf("summary-Antwort nicht parsbar: %w", err)
	}

	a.Logger.Info("Zusammenfassung erzeugt",
		zap.String("title", shorten(title, 50)),
		zap.Duration("took", time.Since(start)))
	return &summary, nil
}

// ExtractInsights extrahiert die wichtigsten Erkenntnisse, absteigend nach
// Relevanz sortiert und auf maxInsights begrenzt.
func (a *AIClient) ExtractInsights(ctx context.Context, content, title string, maxInsights int) ([]KeyInsight, error) {
	a.Logger.Info("Extrahiere Kernaussagen", zap.String("title", shorten(title, 50)))

	prompt := fmt.Sprintf(`Extract %d key insights from this academic paper that would be valuable for researchers:

Title: %s
Content: %s

Return as a JSON array of objects with this structure:
[
    {
        "insight": "The specific insight or finding",
        "relevance_score": 0.9,
        "section": "Results",
        "page_number": 5
    }
]

Focus on:
1. Novel findings and discoveries
2. Methodological innovations
3. Practical implications
4. Theoretical contributions
5. Limitations and future work
6. Surprising or counterintuitive results
7. Connections to other research areas

Ensure insights are specific, actionable, and ranked by relevance (0.0-1.0).`, maxInsights, title, a.truncateContent(content))

	raw, err := a.chat(ctx, prompt, 0.3, 1000)
	if err != nil {
		return nil, fmt.Errorf("insight-Extraktion fehlgeschlagen: %w", err)
	}

	var insights []KeyInsight
	if err := json.Unmarshal(stripCodeFences(raw), &insights); err != nil {
		return nil, fmt.Errorf("insight-Antwort nicht parsbar: %w", err)
	}

	sort.SliceStable(insights, func(i, j int) bool {
		return insights[i].RelevanceScore > insights[j].RelevanceScore
	})
	if len(insights) > maxInsights {
		insights = insights[:maxInsights]
	}

	a.Logger.Info("Kernaussagen extrahiert",
		zap.String("title", shorten(title, 50)),
		zap.Int("count", len(insights)))
	return insights, nil
}

// AnalyzeMethodology analysiert den Methodik-Teil des Papers als Freitext.
func (a *AIClient) AnalyzeMethodology(ctx context.Context, content, title string) (string, error) {
	prompt := fmt.Sprintf(`Analyze the methodology section of this academic paper and provide a comprehensive summary:

Title: %s
Content: %s

Provide a detailed analysis covering:
1. Research design and approach
2. Data collection methods
3. Sample size and selection criteria
4. Analytical techniques used
5. Tools and software employed
6. Experimental setup (if applicable)
7. Controls and variables
8. Validation methods

Focus on being specific and technical while remaining accessible.`, title, a.truncateContent(content))

	result, err := a.chat(ctx, prompt, 0.2, 800)
	if err != nil {
		return "", fmt.Errorf("methodik-Analyse fehlgeschlagen: %w", err)
	}
	return result, nil
}

// IdentifyLimitations identifiziert explizite und implizite Limitationen.
func (a *AIClient) IdentifyLimitations(ctx context.Context, content, title string) (string, error) {
	prompt := fmt.Sprintf(`Identify and analyze the limitations of this academic paper:

Title: %s
Content: %s

Analyze both explicitly stated limitations and potential implicit limitations:

1. Methodological limitations
2. Sample size or selection limitations
3. Data quality or availability issues
4. Scope and generalizability constraints
5. Temporal limitations
6. Technical or resource constraints
7. Potential biases
8. Areas not addressed

Be constructive and specific in identifying limitations.`, title, a.truncateContent(content))

	result, err := a.chat(ctx, prompt, 0.3, 600)
	if err != nil {
		return "", fmt.Errorf("limitations-Analyse fehlgeschlagen: %w", err)
	}
	return result, nil
}

// SummarizeNote fasst einen Wissenseintrag in ein bis zwei Sätzen zusammen.
func (a *AIClient) SummarizeNote(ctx context.Context, content string) (string, error) {
	prompt := fmt.Sprintf(`Summarize this knowledge entry in 1-2 sentences, focusing on the key points:

%s

Make the summary concise but informative.`, shorten(content, 2000))

	result, err := a.chat(ctx, prompt, 0.3, 100)
	if err != nil {
		return "", fmt.Errorf("notiz-Zusammenfassung fehlgeschlagen: %w", err)
	}
	return result, nil
}

// chat schickt einen einzelnen User-Prompt an den Chat-Completions-Endpunkt.
func (a *AIClient) chat(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	if a.APIKey == "" {
		return "", fmt.Errorf("kein AI API-Key konfiguriert")
	}

	body := map[string]any{
		"model": a.Model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"temperature": temperature,
		"max_tokens":  maxTokens,
	}

	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("request marshaling: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", a.BaseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("request-Erstellung: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.APIKey)

	aiRequestsCounter.Inc()
	resp, err := a.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("chat API antwortete %d: %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("antwort-Dekodierung: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("keine choices in der chat-Antwort")
	}

	return result.Choices[0].Message.Content, nil
}

func (a *AIClient) truncateContent(content string) string {
	if a.MaxPaperLength > 0 && len(content) > a.MaxPaperLength {
		return content[:a.MaxPaperLength]
	}
	return content
}

// stripCodeFences entfernt Markdown-Code-Fences, mit denen Modelle ihre
// JSON-Antworten gern umschließen.
func stripCodeFences(s string) []byte {
	trimmed := strings.TrimSpace(s)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
		trimmed = strings.TrimSpace(trimmed)
	}
	return []byte(trimmed)
}

func shorten(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
