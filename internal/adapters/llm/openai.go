// Package llm provides the grading service backends: OpenAI chat
// completions over HTTP and Gemini through the genai SDK.
package llm

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

	"github.com/okian/gamesdesk/internal/domain/grading"
	"github.com/okian/gamesdesk/pkg/logger"
)

const (
	defaultOpenAIBaseURL  = "https://api.openai.com/v1"
	defaultOpenAIModel    = "gpt-4o"
	defaultOpenAIFallback = "gpt-4o-mini"
	defaultTimeout        = 60 * time.Second
	maxErrorBody          = 2048
)

// OpenAI is a grading.Completer backed by the chat completions endpoint.
type OpenAI struct {
	apiKey   string
	baseURL  string
	model    string
	fallback string
	http     *http.Client
	log      logger.Logger
}

// NewOpenAI creates an OpenAI completer.
func NewOpenAI(apiKey string, opts ...Option) (*OpenAI, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	s := settings{baseURL: defaultOpenAIBaseURL, model: defaultOpenAIModel, fallback: defaultOpenAIFallback}
	for _, opt := range opts {
		opt(&s)
	}
	if s.client == nil {
		s.client = &http.Client{Timeout: defaultTimeout}
	}
	if s.log == nil {
		s.log = logger.Named("llm")
	}
	return &OpenAI{
		apiKey:   apiKey,
		baseURL:  strings.TrimRight(s.baseURL, "/"),
		model:    s.model,
		fallback: s.fallback,
		http:     s.client,
		log:      s.log,
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Complete sends the prompt as a single user message at temperature 0.
// When the primary model fails the fallback model is tried once.
func (o *OpenAI) Complete(ctx context.Context, req grading.Request) (grading.Response, error) {
	resp, err := o.chat(ctx, o.model, req)
	if err == nil || o.fallback == "" || o.fallback == o.model || ctx.Err() != nil {
		return resp, err
	}
	o.log.Warn(ctx, "primary model failed, trying fallback",
		logger.String("model", o.model),
		logger.String("fallback", o.fallback),
		logger.Error(err))
	resp, ferr := o.chat(ctx, o.fallback, req)
	if ferr != nil {
		return grading.Response{}, errors.Join(err, ferr)
	}
	return resp, nil
}

func (o *OpenAI) chat(ctx context.Context, model string, req grading.Request) (grading.Response, error) {
	payload, err := json.Marshal(chatRequest{
		Model:     model,
		Messages:  []chatMessage{{Role: "user", Content: req.Prompt}},
		MaxTokens: req.MaxTokens,
	})
	if err != nil {
		return grading.Response{}, fmt.Errorf("encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return grading.Response{}, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := o.http.Do(httpReq)
	if err != nil {
		return grading.Response{}, fmt.Errorf("call %s: %w", model, err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return grading.Response{}, fmt.Errorf("read %s reply: %w", model, err)
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return grading.Response{}, &HTTPError{StatusCode: httpResp.StatusCode, Body: string(body)}
	}

	var out chatResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return grading.Response{}, fmt.Errorf("decode %s reply: %w", model, err)
	}
	if len(out.Choices) == 0 {
		return grading.Response{}, ErrEmptyCompletion
	}
	return grading.Response{
		Text:             strings.TrimSpace(out.Choices[0].Message.Content),
		PromptTokens:     out.Usage.PromptTokens,
		CompletionTokens: out.Usage.CompletionTokens,
	}, nil
}
