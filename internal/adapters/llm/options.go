package llm

import (
	"net/http"

	"github.com/okian/gamesdesk/pkg/logger"
)

// Option applies a configuration option to a completion backend.
type Option func(*settings)

type settings struct {
	baseURL  string
	model    string
	fallback string
	client   *http.Client
	log      logger.Logger
}

// WithBaseURL overrides the API root.
func WithBaseURL(u string) Option {
	return func(s *settings) {
		if u != "" {
			s.baseURL = u
		}
	}
}

// WithModel sets the model used for every request.
func WithModel(m string) Option {
	return func(s *settings) {
		if m != "" {
			s.model = m
		}
	}
}

// WithFallbackModel sets a model tried once when the primary one fails.
// An empty name disables the fallback.
func WithFallbackModel(m string) Option {
	return func(s *settings) { s.fallback = m }
}

// WithHTTPClient sets the client requests go through. Retries and backoff
// are expected to live in its transport.
func WithHTTPClient(c *http.Client) Option {
	return func(s *settings) {
		if c != nil {
			s.client = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) { s.log = l }
}
