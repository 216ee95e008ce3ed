package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chatResponse(content string) map[string]any {
	return map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	}
}

func newChatServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(chatResponse(content))
	}))
}

func newTestAIClient(serverURL string) *AIClient {
	return NewAIClient(serverURL, "test-key", "gpt-4-turbo", 48000, 5, zap.NewNop())
}

func TestSummarizePaper(t *testing.T) {
	summary := `{
		"research_question": "Does X improve Y?",
		"methodology": "Randomized controlled trial",
		"key_findings": ["X improves Y by 12%"],
		"limitations": ["Small sample"],
		"significance": "First causal evidence",
		"future_work": ["Replicate at scale"],
		"confidence_score": 0.85
	}`
	server := newChatServer(t, summary)
	defer server.Close()

	client := newTestAIClient(server.URL)
	result, err := client.SummarizePaper(context.Background(), "full text", "X and Y", []string{"A. Author"})
	require.NoError(t, err)
	assert.Equal(t, "Does X improve Y?", result.ResearchQuestion)
	assert.Equal(t, []string{"X improves Y by 12%"}, result.KeyFindings)
	assert.Equal(t, 0.85, result.ConfidenceScore)
}

func TestSummarizePaperCodeFenced(t *testing.T) {
	// Modelle packen JSON gern in Markdown-Fences
	fenced := "```json\n{\"research_question\": \"Q\", \"confidence_score\": 0.5}\n```"
	server := newChatServer(t, fenced)
	defer server.Close()

	client := newTestAIClient(server.URL)
	result, err := client.SummarizePaper(context.Background(), "text", "Title", nil)
	require.NoError(t, err)
	assert.Equal(t, "Q", result.ResearchQuestion)
}

func TestSummarizePaperInvalidJSON(t *testing.T) {
	server := newChatServer(t, "I could not analyze this paper.")
	defer server.Close()

	client := newTestAIClient(server.URL)
	_, err := client.SummarizePaper(context.Background(), "text", "Title", nil)
	assert.Error(t, err)
}

func TestExtractInsightsSortedAndCapped(t *testing.T) {
	insights := `[
		{"insight": "medium", "relevance_score": 0.5},
		{"insight": "high", "relevance_score": 0.9, "section": "Results"},
		{"insight": "low", "relevance_score": 0.2},
		{"insight": "top", "relevance_score": 0.95}
	]`
	server := newChatServer(t, insights)
	defer server.Close()

	client := newTestAIClient(server.URL)
	result, err := client.ExtractInsights(context.Background(), "text", "Title", 3)
	require.NoError(t, err)
	require.Len(t, result, 3)
	assert.Equal(t, "top", result[0].Insight)
	assert.Equal(t, "high", result[1].Insight)
	assert.Equal(t, "medium", result[2].Insight)
}

func TestAnalyzeMethodologyFreeText(t *testing.T) {
	server := newChatServer(t, "The study uses a double-blind design.")
	defer server.Close()

	client := newTestAIClient(server.URL)
	result, err := client.AnalyzeMethodology(context.Background(), "text", "Title")
	require.NoError(t, err)
	assert.Contains(t, result, "double-blind")
}

func TestChatServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := newTestAIClient(server.URL)
	_, err := client.IdentifyLimitations(context.Background(), "text", "Title")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestChatMissingAPIKey(t *testing.T) {
	client := NewAIClient("http://localhost:0", "", "gpt-4-turbo", 48000, 5, zap.NewNop())
	_, err := client.SummarizePaper(context.Background(), "text", "Title", nil)
	assert.Error(t, err)
}

func TestStripCodeFences(t *testing.T) {
	inputs := []string{
		"{\"a\":1}",
		"```json\n{\"a\":1}\n```",
		"```\n{\"a\":1}\n```",
		"  \n {\"a\":1} \n ",
	}
	for _, in := range inputs {
		assert.Equal(t, "{\"a\":1}", string(stripCodeFences(in)))
	}
}

func TestTruncateContentLimit(t *testing.T) {
	client := NewAIClient("http://localhost:0", "k", "m", 10, 5, zap.NewNop())
	assert.Equal(t, "0123456789", client.truncateContent("0123456789abcdef"))
	assert.Equal(t, "short", client.truncateContent("short"))
}
