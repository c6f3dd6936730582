package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/casefile/internal/core/domain"
	"github.com/custodia-labs/casefile/internal/core/ports/driven"
)

// newTestGenerator points a generator at a stub completions server.
func newTestGenerator(t *testing.T, handler http.HandlerFunc) *Generator {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	gen, err := NewGenerator(Config{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Model:   "test-model",
	})
	require.NoError(t, err)
	return gen
}

// completionHandler answers every chat completion with the given text.
func completionHandler(t *testing.T, content string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req chatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		require.Len(t, req.Messages, 1)

		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": content}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}
}

func TestNewGenerator_RequiresAPIKey(t *testing.T) {
	_, err := NewGenerator(Config{})
	assert.Error(t, err)
}

func TestSummarise(t *testing.T) {
	gen := newTestGenerator(t, completionHandler(t, `{"ref-1": "alice sent the invoice"}`))

	summaries, err := gen.Summarise(context.Background(), []driven.EvidenceItem{
		{Ref: "ref-1", Kind: domain.SourceChat, Title: "msg", Body: "invoice sent"},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"ref-1": "alice sent the invoice"}, summaries)
}

func TestSummarise_FencedOutput(t *testing.T) {
	gen := newTestGenerator(t, completionHandler(t, "```json\n{\"ref-1\": \"summary\"}\n```"))

	summaries, err := gen.Summarise(context.Background(), []driven.EvidenceItem{{Ref: "ref-1"}})
	require.NoError(t, err)
	assert.Equal(t, "summary", summaries["ref-1"])
}

func TestSummarise_MalformedOutput(t *testing.T) {
	gen := newTestGenerator(t, completionHandler(t, "I could not produce JSON, sorry."))

	_, err := gen.Summarise(context.Background(), []driven.EvidenceItem{{Ref: "ref-1"}})
	assert.ErrorIs(t, err, domain.ErrParse)
}

func TestSelectEvidence(t *testing.T) {
	payload := `[{"ref": "msg-1", "kind": "email", "title": "wire transfer", "description": "d", "relevance": "r"}]`
	gen := newTestGenerator(t, completionHandler(t, payload))

	candidates, err := gen.SelectEvidence(context.Background(), []driven.EvidenceItem{
		{Ref: "msg-1", Kind: domain.SourceEmail},
	})
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "wire transfer", candidates[0].Title)
	assert.Equal(t, domain.SourceEmail, candidates[0].Kind)
	assert.Equal(t, "msg-1", candidates[0].Ref)
}

func TestComposeReport(t *testing.T) {
	gen := newTestGenerator(t, completionHandler(t, "  Background\n\nChronology\n"))

	content, err := gen.ComposeReport(context.Background(), driven.ReportContext{
		Title:    "Final report",
		Timeline: &domain.Timeline{ID: "tl-1", Title: "events"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Background\n\nChronology", content)
}

func TestChatCompletion_APIError(t *testing.T) {
	gen := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"message": "invalid api key", "type": "auth"}}`))
	})

	_, err := gen.Summarise(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid api key")
}

func TestChatCompletion_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	t.Cleanup(server.Close)

	gen, err := NewGenerator(Config{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Timeout: 20 * time.Millisecond,
	})
	require.NoError(t, err)

	_, err = gen.Summarise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrTimeout)
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFences("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFences(`{"a":1}`))
}
