// Package mail reads contest submissions from Gmail labels.
package mail

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/okian/gamesdesk/internal/domain/model"
	"github.com/okian/gamesdesk/pkg/logger"
	"github.com/okian/gamesdesk/pkg/metrics"
)

const (
	me       = "me"
	pageSize = 100
)

// Page is one listing page of message ids, newest first.
type Page struct {
	IDs  []string
	Next string
}

// Label is a mailbox label.
type Label struct {
	ID   string
	Name string
	Type string
}

// Gmail lists and fetches messages through the Gmail API. Retries and
// backoff come from the HTTP client passed in opts.
type Gmail struct {
	users    *gmail.UsersService
	linkBase string
	log      logger.Logger
}

// NewGmail creates a Gmail source. linkBase is prefixed to message ids to
// build the Link recorded with each submission.
func NewGmail(ctx context.Context, linkBase string, opts ...option.ClientOption) (*Gmail, error) {
	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}
	return &Gmail{users: svc.Users, linkBase: linkBase, log: logger.Named("mail")}, nil
}

// List returns one page of message ids carrying label.
func (g *Gmail) List(ctx context.Context, label, pageToken string) (Page, error) {
	if label == "" {
		return Page{}, ErrMissingLabel
	}
	call := g.users.Messages.List(me).LabelIds(label).MaxResults(pageSize).Context(ctx)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}
	resp, err := call.Do()
	if err != nil {
		return Page{}, fmt.Errorf("list label %s: %w", label, err)
	}
	page := Page{Next: resp.NextPageToken, IDs: make([]string, 0, len(resp.Messages))}
	for _, m := range resp.Messages {
		if m != nil && m.Id != "" {
			page.IDs = append(page.IDs, m.Id)
		}
	}
	return page, nil
}

// Get fetches one message with its full MIME tree and tags it with game.
func (g *Gmail) Get(ctx context.Context, id, game string) (model.RawMessage, error) {
	msg, err := g.users.Messages.Get(me, id).Format("full").Context(ctx).Do()
	if err != nil {
		return model.RawMessage{}, fmt.Errorf("get message %s: %w", id, err)
	}
	metrics.RecordMessageFetched(game)

	raw := model.RawMessage{
		ID:   msg.Id,
		Game: game,
		Link: g.linkBase + msg.Id,
	}
	if msg.InternalDate > 0 {
		raw.Received = time.UnixMilli(msg.InternalDate)
	}
	if msg.Payload != nil {
		raw.From = header(msg.Payload, "From")
		raw.ReplyTo = header(msg.Payload, "Reply-To")
		raw.Subject = header(msg.Payload, "Subject")
		raw.Date = header(msg.Payload, "Date")
		raw.Payload = g.part(ctx, id, msg.Payload)
	}
	return raw, nil
}

// Labels lists every label in the mailbox.
func (g *Gmail) Labels(ctx context.Context) ([]Label, error) {
	resp, err := g.users.Labels.List(me).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("list labels: %w", err)
	}
	out := make([]Label, 0, len(resp.Labels))
	for _, l := range resp.Labels {
		out = append(out, Label{ID: l.Id, Name: l.Name, Type: l.Type})
	}
	return out, nil
}

func header(p *gmail.MessagePart, name string) string {
	for _, h := range p.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// part converts a Gmail MIME part, decoding inline bodies. A body that
// fails to decode is dropped with a warning.
func (g *Gmail) part(ctx context.Context, id string, p *gmail.MessagePart) *model.MessagePart {
	out := &model.MessagePart{MimeType: p.MimeType}
	if p.Body != nil && p.Body.Data != "" {
		body, err := decodeBody(p.Body.Data)
		if err != nil {
			g.log.Warn(ctx, "skipping undecodable body part", logger.String("message", id), logger.String("mime", p.MimeType), logger.Error(err))
		} else {
			out.Body = body
		}
	}
	for _, child := range p.Parts {
		if child != nil {
			out.Parts = append(out.Parts, g.part(ctx, id, child))
		}
	}
	return out
}

func decodeBody(data string) ([]byte, error) {
	b, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(data, "="))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecodeBody, err)
	}
	return b, nil
}
