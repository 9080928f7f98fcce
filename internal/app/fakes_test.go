package service_test

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/okian/gamesdesk/internal/adapters/mail"
	"github.com/okian/gamesdesk/internal/adapters/sheets"
	"github.com/okian/gamesdesk/internal/domain/grading"
	"github.com/okian/gamesdesk/internal/domain/model"
)

var errNoMessage = errors.New("no such message")

// fakeMail serves fixed pages of messages per label.
type fakeMail struct {
	mu       sync.Mutex
	pages    map[string][][]model.RawMessage
	fetched  []string
	listings int
}

func (f *fakeMail) List(_ context.Context, label, token string) (mail.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listings++
	pages := f.pages[label]
	n := 0
	if token != "" {
		var err error
		if n, err = strconv.Atoi(token); err != nil {
			return mail.Page{}, err
		}
	}
	if n >= len(pages) {
		return mail.Page{}, nil
	}
	var page mail.Page
	for _, m := range pages[n] {
		page.IDs = append(page.IDs, m.ID)
	}
	if n+1 < len(pages) {
		page.Next = strconv.Itoa(n + 1)
	}
	return page, nil
}

func (f *fakeMail) Get(_ context.Context, id, game string) (model.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetched = append(f.fetched, id)
	for _, pages := range f.pages {
		for _, page := range pages {
			for _, m := range page {
				if m.ID == id {
					m.Game = game
					return m, nil
				}
			}
		}
	}
	return model.RawMessage{}, fmt.Errorf("%w: %s", errNoMessage, id)
}

func (f *fakeMail) Fetched() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.fetched...)
}

// judge writes rubrics on request and marks any message mentioning a
// lighthouse correct.
type judge struct {
	mu       sync.Mutex
	rubrics  int
	verdicts int
}

func (j *judge) Complete(_ context.Context, req grading.Request) (grading.Response, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if strings.Contains(req.Prompt, "Provide grading logic:") {
		j.rubrics++
		return grading.Response{Text: "Accept lighthouse or light house.", PromptTokens: 100, CompletionTokens: 10}, nil
	}
	j.verdicts++
	_, answer, _ := strings.Cut(req.Prompt, "User's raw message:")
	text := "Correctness: Incorrect\nConfidence: 85"
	if strings.Contains(strings.ToLower(answer), "lighthouse") {
		text = "Correctness: Correct\nConfidence: 90"
	}
	return grading.Response{Text: text, PromptTokens: 200, CompletionTokens: 20}, nil
}

func (j *judge) Calls() (int, int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.rubrics, j.verdicts
}

// recorder collects notifications.
type recorder struct {
	mu    sync.Mutex
	texts []string
}

func (r *recorder) Name() string { return "recorder" }

func (r *recorder) Send(_ context.Context, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.texts = append(r.texts, text)
	return nil
}

func (r *recorder) Last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.texts) == 0 {
		return ""
	}
	return r.texts[len(r.texts)-1]
}

type sleeps struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (s *sleeps) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.waits = append(s.waits, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *sleeps) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.waits)
}

var tabs = sheets.Tabs{Games: "Games", Submissions: "Submissions", Winners: "Winners", PastWinners: "Previous Winners"}

func workbook() *sheets.MemoryBackend {
	return sheets.NewMemoryBackend(map[string][][]string{
		"Games": {
			{"Game", "Start Time", "End Time", "Question", "Answer", "AI Grading Prompt"},
			{"(Required)", "(Required)", "(Required)", "", "", ""},
			{"Riddler", "2025-01-01 09:00", "2025-01-08 09:00", "What guides ships?", "lighthouse", "Accept 'light house'."},
			{"Scrambler", "2025-01-01 09:00", "2025-01-08 09:00", "WOTER", "tower", ""},
		},
		"Submissions": {
			{"Game", "Timestamp", "First Name", "Last Name Initial", "Email", "Answer", "AI Grade", "AI Confidence", "Override", "Link"},
			{"(Required)", "(Autopopulated)", "", "", "", "", "", "", "", ""},
			{"Riddler", "2025-01-02 10:00", "amy", "kramer", "a@x.com", "a lighthouse", "", "", "", ""},
		},
		"Winners": {
			{"Start Time", "End Time", "Game", "Swag Winner", "Swag Winner Email", "Winners", "Winner Emails", "Full Text"},
			{"", "", "", "", "", "", "", ""},
		},
		"Previous Winners": {
			{"Email"},
		},
	})
}

func plain(text string) *model.MessagePart {
	return &model.MessagePart{MimeType: "text/plain", Body: []byte(text)}
}

// riddlerMail holds two pages, newest first. m1 predates the sheet's latest
// row, so m0 is never reached.
func riddlerMail() *fakeMail {
	return &fakeMail{pages: map[string][][]model.RawMessage{
		"L_RIDDLE": {
			{
				{ID: "m4", From: "Moderator <noreply-spamdigest@google.com>", Subject: "Moderator's spam report", Date: "Fri, 3 Jan 2025 13:00:00 -0500", Payload: plain("3 messages held")},
				{ID: "m3", From: "Ben Lee <Ben@X.com>", Subject: "Riddle", Date: "Fri, 3 Jan 2025 12:00:00 -0500", Payload: plain("Lighthouse!\n\nSent from my iPhone")},
				{ID: "m2", From: "Cy Dunn <c@x.com>", Subject: "Riddle", Date: "Thu, 2 Jan 2025 15:00:00 -0500", Payload: plain("a boat")},
			},
			{
				{ID: "m1", From: "Amy Kramer <a@x.com>", Subject: "Riddle", Date: "Thu, 2 Jan 2025 09:00:00 -0500", Payload: plain("a lighthouse")},
				{ID: "m0", From: "Dee Fox <d@x.com>", Subject: "Riddle", Date: "Wed, 1 Jan 2025 10:00:00 -0500", Payload: plain("lighthouse")},
			},
		},
	}}
}
