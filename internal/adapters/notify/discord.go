package notify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/bwmarrin/discordgo"
)

const discordMaxContent = 2000

// Discord posts to a Discord channel webhook.
type Discord struct {
	session *discordgo.Session
	id      string
	token   string
}

// NewDiscord creates a Discord sender from a webhook URL of the form
// https://discord.com/api/webhooks/{id}/{token}.
func NewDiscord(webhookURL string, client *http.Client) (*Discord, error) {
	id, token, err := parseWebhook(webhookURL)
	if err != nil {
		return nil, err
	}
	session, err := discordgo.New("")
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	if client == nil {
		client = &http.Client{Timeout: sendTimeout}
	}
	session.Client = client
	return &Discord{session: session, id: id, token: token}, nil
}

func (d *Discord) Name() string { return "discord" }

// Send executes the webhook. Discord caps message content, so long text is
// truncated.
func (d *Discord) Send(ctx context.Context, text string) error {
	if r := []rune(text); len(r) > discordMaxContent {
		text = string(r[:discordMaxContent-1]) + "…"
	}
	_, err := d.session.WebhookExecute(d.id, d.token, false, &discordgo.WebhookParams{Content: text}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRejected, err)
	}
	return nil
}

func parseWebhook(raw string) (string, string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return "", "", fmt.Errorf("%w: %q", ErrBadWebhook, raw)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 0; i+2 < len(parts); i++ {
		if parts[i] == "webhooks" && parts[i+1] != "" && parts[i+2] != "" {
			return parts[i+1], parts[i+2], nil
		}
	}
	return "", "", fmt.Errorf("%w: %q", ErrBadWebhook, raw)
}
