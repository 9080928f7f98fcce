package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const sendTimeout = 5 * time.Second

// Slack posts to an incoming webhook.
type Slack struct {
	url    string
	client *http.Client
}

// NewSlack creates a Slack sender. A nil client gets a short timeout.
func NewSlack(webhookURL string, client *http.Client) *Slack {
	if client == nil {
		client = &http.Client{Timeout: sendTimeout}
	}
	return &Slack{url: webhookURL, client: client}
}

func (s *Slack) Name() string { return "slack" }

// Send posts {"text": text}.
func (s *Slack) Send(ctx context.Context, text string) error {
	if s.url == "" {
		return ErrBadWebhook
	}
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBadWebhook, err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: slack status %d", ErrRejected, resp.StatusCode)
	}
	return nil
}
