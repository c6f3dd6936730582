// Package openai provides a generation collaborator adapter using
// the OpenAI chat completions API.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/casefile/internal/core/domain"
	"github.com/custodia-labs/casefile/internal/core/ports/driven"
)

// Ensure Generator implements the interface.
var _ driven.Generator = (*Generator)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4o-mini"
	DefaultTimeout = 120 * time.Second
)

// Config holds configuration for the OpenAI generator.
type Config struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.openai.com/v1).
	// Can be changed for Azure OpenAI or compatible APIs.
	BaseURL string

	// Model is the model to use (default: gpt-4o-mini).
	Model string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration
}

// Generator calls the OpenAI chat completions API for evidence
// summarisation, selection and report composition.
type Generator struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
}

// chatCompletionRequest is the OpenAI /chat/completions request format.
type chatCompletionRequest struct {
	Model       string              `json:"model"`
	Messages    []chatCompletionMsg `json:"messages"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
	Temperature float64             `json:"temperature,omitempty"`
}

// chatCompletionMsg is the OpenAI chat message format.
type chatCompletionMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatCompletionResponse is the OpenAI /chat/completions response format.
type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewGenerator creates a new OpenAI generator.
func NewGenerator(cfg Config) (*Generator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Generator{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
	}, nil
}

// summarisePrompt asks for one-line summaries keyed by ref.
const summarisePrompt = `You are summarising evidence items for an investigation timeline.
For each item below, write a single-sentence factual summary of what happened.
Return ONLY a JSON object mapping each item's "ref" to its summary string.

Items:
%s`

// selectPrompt asks for a scored selection of relevant items.
const selectPrompt = `You are reviewing evidence items for an investigation.
Select the items most relevant to establishing what happened and why.
Return ONLY a JSON array of objects with fields:
"ref" (copied from the item), "kind" (copied from the item),
"title" (short label), "description" (what the evidence shows),
"relevance" (why it matters).

Items:
%s`

// reportPrompt asks for a narrative report over a timeline and the
// recommended evidence.
const reportPrompt = `You are writing an investigation report titled %q.
Use the timeline of events and the recommended evidence below.
Write a structured narrative report in plain text with sections for
background, chronology of events, key evidence and conclusions.

Timeline:
%s

Recommended evidence:
%s`

// Summarise produces a one-line summary per item, keyed by ref.
func (g *Generator) Summarise(ctx context.Context, items []driven.EvidenceItem) (map[string]string, error) {
	payload, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("marshal items: %w", err)
	}

	content, err := g.chatCompletion(ctx, fmt.Sprintf(summarisePrompt, string(payload)), 0.3)
	if err != nil {
		return nil, fmt.Errorf("summarise: %w", err)
	}

	var summaries map[string]string
	if err := json.Unmarshal([]byte(stripFences(content)), &summaries); err != nil {
		return nil, fmt.Errorf("%w: decoding summaries: %v", domain.ErrParse, err)
	}
	return summaries, nil
}

// SelectEvidence scores a batch of items and returns the subset the
// model deems relevant.
func (g *Generator) SelectEvidence(ctx context.Context, items []driven.EvidenceItem) ([]driven.Candidate, error) {
	payload, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("marshal items: %w", err)
	}

	content, err := g.chatCompletion(ctx, fmt.Sprintf(selectPrompt, string(payload)), 0.3)
	if err != nil {
		return nil, fmt.Errorf("select evidence: %w", err)
	}

	var raw []struct {
		Ref         string `json:"ref"`
		Kind        string `json:"kind"`
		Title       string `json:"title"`
		Description string `json:"description"`
		Relevance   string `json:"relevance"`
	}
	if err := json.Unmarshal([]byte(stripFences(content)), &raw); err != nil {
		return nil, fmt.Errorf("%w: decoding candidates: %v", domain.ErrParse, err)
	}

	candidates := make([]driven.Candidate, 0, len(raw))
	for _, c := range raw {
		candidates = append(candidates, driven.Candidate{
			Title:       c.Title,
			Description: c.Description,
			Relevance:   c.Relevance,
			Kind:        domain.SourceKind(c.Kind),
			Ref:         c.Ref,
		})
	}
	return candidates, nil
}

// ComposeReport generates a report document from structured context.
func (g *Generator) ComposeReport(ctx context.Context, rc driven.ReportContext) (string, error) {
	timelineJSON, err := json.Marshal(rc.Timeline)
	if err != nil {
		return "", fmt.Errorf("marshal timeline: %w", err)
	}
	recsJSON, err := json.Marshal(rc.Recommendations)
	if err != nil {
		return "", fmt.Errorf("marshal recommendations: %w", err)
	}

	content, err := g.chatCompletion(ctx,
		fmt.Sprintf(reportPrompt, rc.Title, string(timelineJSON), string(recsJSON)), 0.5)
	if err != nil {
		return "", fmt.Errorf("compose report: %w", err)
	}
	return strings.TrimSpace(content), nil
}

// chatCompletion posts one user message and returns the reply text.
func (g *Generator) chatCompletion(ctx context.Context, prompt string, temperature float64) (string, error) {
	reqBody := chatCompletionRequest{
		Model: g.model,
		Messages: []chatCompletionMsg{
			{Role: "user", Content: prompt},
		},
		Temperature: temperature,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		g.baseURL+"/chat/completions",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isClientTimeout(err) {
			return "", fmt.Errorf("%w: %v", domain.ErrTimeout, err)
		}
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var chatResp chatCompletionResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	if chatResp.Error != nil {
		return "", fmt.Errorf("openai error: %s", chatResp.Error.Message)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("openai error (status %d): %s", resp.StatusCode, string(body))
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("openai: no response choices returned")
	}

	return chatResp.Choices[0].Message.Content, nil
}

// isClientTimeout reports whether the error is an http.Client timeout.
func isClientTimeout(err error) bool {
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}

// stripFences removes a Markdown code fence wrapper if the model
// added one around its JSON output.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// Ping validates the service is reachable by checking the /models endpoint.
// This is a lightweight check that validates the API key without running inference.
func (g *Generator) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/models", http.NoBody)
	if err != nil {
		return fmt.Errorf("openai: failed to create ping request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("openai: ping failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("openai: API returned status %d (failed to read body: %w)", resp.StatusCode, err)
		}
		return fmt.Errorf("openai: API returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// ModelName returns the name of the model being used.
func (g *Generator) ModelName() string {
	return g.model
}

// Close releases resources.
func (g *Generator) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}
