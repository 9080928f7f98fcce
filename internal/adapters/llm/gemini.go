package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/okian/gamesdesk/internal/domain/grading"
	"github.com/okian/gamesdesk/pkg/logger"
)

const defaultGeminiModel = "gemini-2.0-flash"

// Gemini is a grading.Completer backed by the Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
	log    logger.Logger
}

// NewGemini creates a Gemini completer.
func NewGemini(ctx context.Context, apiKey string, opts ...Option) (*Gemini, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	s := settings{model: defaultGeminiModel}
	for _, opt := range opts {
		opt(&s)
	}
	cfg := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: s.client,
	}
	if s.baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: s.baseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	if s.log == nil {
		s.log = logger.Named("llm")
	}
	return &Gemini{client: client, model: s.model, log: s.log}, nil
}

// Complete runs one deterministic generation.
func (g *Gemini) Complete(ctx context.Context, req grading.Request) (grading.Response, error) {
	cfg := &genai.GenerateContentConfig{Temperature: genai.Ptr[float32](0)}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens) //nolint:gosec // small budgets
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(req.Prompt), cfg)
	if err != nil {
		return grading.Response{}, fmt.Errorf("call %s: %w", g.model, err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return grading.Response{}, ErrEmptyCompletion
	}
	out := grading.Response{Text: text}
	if u := resp.UsageMetadata; u != nil {
		out.PromptTokens = int(u.PromptTokenCount)
		out.CompletionTokens = int(u.CandidatesTokenCount)
	}
	return out, nil
}
