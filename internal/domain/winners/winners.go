// Package winners recomputes the per-window winner records from graded
// submissions.
package winners

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/okian/gamesdesk/internal/domain/gameindex"
	"github.com/okian/gamesdesk/internal/domain/model"
	"github.com/okian/gamesdesk/pkg/logger"
	"github.com/okian/gamesdesk/pkg/metrics"
)

const defaultSponsor = "Spotlight PA"

// Engine selects winners. Given the same inputs and a kept prior swag
// winner it always yields the same records.
type Engine struct {
	rng     *rand.Rand
	sponsor string
	log     logger.Logger
}

// New creates an Engine. Without WithRand new swag winners are drawn from
// a time-seeded source.
func New(opts ...Option) *Engine {
	e := &Engine{sponsor: defaultSponsor}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewSource(time.Now().UnixNano())) //nolint:gosec // prize draws need no crypto strength
	}
	if e.log == nil {
		e.log = logger.Named("winners")
	}
	return e
}

// entry is one eligible correct answer.
type entry struct {
	name  string
	email string
	link  string
}

// Recompute builds one record per window, in index order. Each submission
// counts toward the window ix.Find assigns it. previous holds the records
// of the last run and excluded the lowercased emails of recent winners.
func (e *Engine) Recompute(ctx context.Context, ix *gameindex.Index, subs []model.Submission,
	previous []model.WinnerRecord, excluded map[string]bool,
) []model.WinnerRecord {
	prior := make(map[model.WindowKey]model.WinnerRecord, len(previous))
	for _, r := range previous {
		prior[r.Key()] = r
	}

	byWindow := map[int][]model.Submission{}
	for _, s := range subs {
		if !s.EffectivelyCorrect() || s.DisplayName() == "" || strings.TrimSpace(s.Email) == "" || s.SubmittedAt.IsZero() {
			continue
		}
		w, ok := ix.Find(s.Game, s.SubmittedAt)
		if !ok {
			continue
		}
		byWindow[w.Row] = append(byWindow[w.Row], s)
	}

	windows := ix.Windows()
	out := make([]model.WinnerRecord, 0, len(windows))
	for _, w := range windows {
		rec := model.WinnerRecord{
			Game:     w.Game,
			Start:    w.Start,
			End:      w.End,
			Question: w.Question,
			Answer:   w.Answer,
		}
		entries := eligible(byWindow[w.Row])
		if len(entries) > 0 {
			rec.Names = names(entries)
			rec.Emails = emails(entries)
			swag := e.pickSwag(ctx, w, entries, prior, excluded)
			rec.SwagName, rec.SwagEmail, rec.SwagLink = swag.name, swag.email, swag.link
			rec.Summary = e.summary(swag.name, rec.Names)
		}
		out = append(out, rec)
	}
	metrics.UpdateWinnerWindows(len(out))
	return out
}

// eligible dedupes by display name, keeping the first occurrence.
func eligible(subs []model.Submission) []entry {
	seen := map[string]bool{}
	var out []entry
	for _, s := range subs {
		name := s.DisplayName()
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, entry{name: name, email: strings.TrimSpace(s.Email), link: s.Link})
	}
	return out
}

func names(entries []entry) []string {
	out := make([]string, len(entries))
	for i, en := range entries {
		out[i] = en.name
	}
	return out
}

// emails is the alphabetized, case-insensitively deduplicated email list.
func emails(entries []entry) []string {
	seen := map[string]bool{}
	var out []string
	for _, en := range entries {
		key := strings.ToLower(en.email)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, en.email)
	}
	sort.SliceStable(out, func(i, j int) bool { return strings.ToLower(out[i]) < strings.ToLower(out[j]) })
	return out
}

// pickSwag keeps the prior swag winner while they are still eligible and
// not excluded; otherwise it draws from the non-excluded entries, or from
// every entry when all are excluded.
func (e *Engine) pickSwag(ctx context.Context, w model.GameWindow, entries []entry,
	prior map[model.WindowKey]model.WinnerRecord, excluded map[string]bool,
) entry {
	if prev, ok := prior[w.Key()]; ok && prev.SwagEmail != "" {
		for _, en := range entries {
			if en.name == strings.TrimSpace(prev.SwagName) &&
				strings.EqualFold(en.email, strings.TrimSpace(prev.SwagEmail)) &&
				!excluded[strings.ToLower(en.email)] {
				metrics.RecordSwagKept()
				return en
			}
		}
	}

	var pool []entry
	for _, en := range entries {
		if !excluded[strings.ToLower(en.email)] {
			pool = append(pool, en)
		}
	}
	if len(pool) == 0 {
		e.log.Info(ctx, "every correct entry is a recent winner; drawing from all of them",
			logger.String("game", w.Game), logger.Int("games_row", w.Row))
		pool = entries
	}
	metrics.RecordSwagReroll()
	return pool[e.rng.Intn(len(pool))]
}

func (e *Engine) summary(swag string, all []string) string {
	text := fmt.Sprintf("Congrats to %s, who will receive %s swag.", swag, e.sponsor)
	var others []string
	for _, n := range all {
		if n != swag {
			others = append(others, n)
		}
	}
	if len(others) > 0 {
		text += " Others who answered correctly: " + strings.Join(others, ", ") + "."
	}
	return collapsePeriods(text)
}

// collapsePeriods turns an accidental ".." at the end into one period.
func collapsePeriods(s string) string {
	for strings.HasSuffix(s, "..") {
		s = strings.TrimSuffix(s, ".")
	}
	return s
}
