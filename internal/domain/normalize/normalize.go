// Package normalize turns raw mail messages into canonical submissions.
package normalize

import (
	"context"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/okian/gamesdesk/internal/domain/dedupe"
	"github.com/okian/gamesdesk/internal/domain/model"
	"github.com/okian/gamesdesk/pkg/logger"
)

var (
	viaSuffix = regexp.MustCompile(`(?i)\s+via\s+.*$`)
	quotes    = regexp.MustCompile(`["']`)

	digestSubjects = []string{"moderator's spam report", "digest"}
	digestSenders  = []string{"noreply-spamdigest", "no-reply", "noreply"}
	approveLink    = "approve: https://groups.google.com"
)

// Normalizer converts RawMessages into Submissions and their dedup keys.
type Normalizer struct {
	loc     *time.Location
	aliases map[string]bool
	log     logger.Logger
}

// New creates a Normalizer.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{loc: time.UTC, aliases: map[string]bool{}}
	for _, opt := range opts {
		opt(n)
	}
	if n.log == nil {
		n.log = logger.Named("normalize")
	}
	return n
}

// Normalize returns the submission for msg and its dedup key. Messages that
// are not submissions yield a *SkipError.
func (n *Normalizer) Normalize(ctx context.Context, msg model.RawMessage) (model.Submission, dedupe.Key, error) {
	from := parseAddress(msg.From)
	if looksLikeDigest(msg.Subject, from.Address, "") {
		return model.Submission{}, dedupe.Key{}, skip(msg.ID, ReasonDigest)
	}

	sender := from
	if n.relayed(from) {
		if rt := parseAddress(msg.ReplyTo); rt.Address != "" {
			sender = rt
		}
	}
	if sender.Address == "" {
		return model.Submission{}, dedupe.Key{}, skip(msg.ID, ReasonNoSender)
	}

	body := bodyText(msg.Payload)
	if looksLikeDigest("", "", body) {
		return model.Submission{}, dedupe.Key{}, skip(msg.ID, ReasonDigest)
	}
	if body == "" {
		body = subjectFallback(msg.Subject)
		n.log.Debug(ctx, "no body, answer taken from subject", logger.String("message", msg.ID))
	}
	answer := cleanAnswer(body)
	if answer == "" {
		return model.Submission{}, dedupe.Key{}, skip(msg.ID, ReasonEmptyAnswer)
	}

	at, ok := n.timestamp(msg)
	if !ok {
		return model.Submission{}, dedupe.Key{}, skip(msg.ID, ReasonNoTimestamp)
	}

	first, initial := splitName(sender)
	sub := model.Submission{
		Game:        msg.Game,
		SubmittedAt: at,
		FirstName:   first,
		LastInitial: initial,
		Email:       strings.ToLower(sender.Address),
		Answer:      answer,
		Link:        msg.Link,
	}
	return sub, KeyOf(sub, n.loc), nil
}

// KeyOf derives the dedup key of a submission.
func KeyOf(sub model.Submission, loc *time.Location) dedupe.Key {
	return dedupe.NewKey(sub.Game, sub.Email, model.FormatTimestamp(sub.SubmittedAt, loc), sub.Answer)
}

// relayed reports whether the envelope sender is a list or relay rather
// than the reader.
func (n *Normalizer) relayed(from mail.Address) bool {
	if n.aliases[strings.ToLower(from.Address)] {
		return true
	}
	return strings.Contains(strings.ToLower(from.Name), " via ")
}

// timestamp reads the Date header, falling back to the receive time, and
// truncates to the minute in the sheet's zone.
func (n *Normalizer) timestamp(msg model.RawMessage) (time.Time, bool) {
	var at time.Time
	if d := strings.TrimSpace(msg.Date); d != "" {
		if t, err := mail.ParseDate(d); err == nil {
			at = t
		} else if t, err := dateparse.ParseAny(d); err == nil {
			at = t
		}
	}
	if at.IsZero() {
		at = msg.Received
	}
	if at.IsZero() {
		return time.Time{}, false
	}
	at = at.In(n.loc)
	return time.Date(at.Year(), at.Month(), at.Day(), at.Hour(), at.Minute(), 0, 0, n.loc), true
}

func parseAddress(raw string) mail.Address {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return mail.Address{}
	}
	if a, err := mail.ParseAddress(raw); err == nil {
		return *a
	}
	// Bare or malformed: keep whatever looks like an address.
	for _, field := range strings.Fields(raw) {
		field = strings.Trim(field, "<>\"',;")
		if strings.Contains(field, "@") {
			return mail.Address{Address: field}
		}
	}
	return mail.Address{}
}

// splitName takes the first name from the first word of the display name
// and the initial from its last word. Without a display name the email
// local part stands in for the first name.
func splitName(a mail.Address) (string, string) {
	name := viaSuffix.ReplaceAllString(a.Name, "")
	name = strings.TrimSpace(quotes.ReplaceAllString(name, ""))
	parts := strings.Fields(name)
	if len(parts) == 0 {
		return FirstName(a.Address), ""
	}
	first := FirstName(parts[0])
	if first == "" {
		first = FirstName(a.Address)
	}
	if len(parts) < 2 {
		return first, ""
	}
	return first, LastInitial(parts[len(parts)-1])
}

func looksLikeDigest(subject, fromEmail, body string) bool {
	s := strings.ToLower(subject)
	for _, marker := range digestSubjects {
		if s != "" && strings.Contains(s, marker) {
			return true
		}
	}
	f := strings.ToLower(fromEmail)
	for _, marker := range digestSenders {
		if f != "" && strings.Contains(f, marker) {
			return true
		}
	}
	return body != "" && strings.Contains(strings.ToLower(body), approveLink)
}
