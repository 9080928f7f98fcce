// Package grading turns submissions into verdicts through a text-in,
// text-out grading service. It owns rubric synthesis, prompt construction
// and reply parsing.
package grading

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/okian/gamesdesk/internal/domain/gameindex"
	"github.com/okian/gamesdesk/internal/domain/model"
	"github.com/okian/gamesdesk/pkg/logger"
	"github.com/okian/gamesdesk/pkg/metrics"
)

// Default grading configuration constants.
const (
	defaultRubricTokens  = 250
	defaultVerdictTokens = 200
	defaultMissLimit     = 3
)

// Rubric sources, for metrics.
const (
	sourceService   = "service"
	sourceScrambler = "scrambler"
)

// Request is one prompt for the grading service.
type Request struct {
	Prompt    string
	MaxTokens int
}

// Response is the service's free text plus the tokens it consumed.
type Response struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
}

// Completer is the grading service: prompt in, free text out.
type Completer interface {
	// Complete runs one completion, honoring ctx for cancellation.
	Complete(ctx context.Context, req Request) (Response, error)
}

// Verdict is the grade decided for one Submissions row.
type Verdict struct {
	Row        int
	Grade      model.Grade
	Confidence model.Confidence
}

// RubricUpdate is a rubric generated for one Games row.
type RubricUpdate struct {
	Row      int
	Guidance string
	Rubric   string
}

// Result is what one grading pass decided. Nothing has been persisted yet.
type Result struct {
	Verdicts []Verdict
	// Rubrics generated lazily while grading.
	Rubrics []RubricUpdate
	// NoWindow counts submissions left ungraded because no window matched.
	NoWindow int
	// Skipped counts rows left ungraded for any other reason.
	Skipped int
}

// Usage totals the tokens the grading service consumed.
type Usage struct {
	Calls            int
	PromptTokens     int
	CompletionTokens int
	Cost             float64
}

// Orchestrator grades submissions against game windows.
type Orchestrator struct {
	completer     Completer
	log           logger.Logger
	missLimit     int
	rubricTokens  int
	verdictTokens int

	mu    sync.Mutex
	usage Usage
}

// New creates an Orchestrator backed by the given grading service.
func New(c Completer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		completer:     c,
		missLimit:     defaultMissLimit,
		rubricTokens:  defaultRubricTokens,
		verdictTokens: defaultVerdictTokens,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.log == nil {
		o.log = logger.Named("grading")
	}
	return o
}

// Usage returns the tokens consumed so far.
func (o *Orchestrator) Usage() Usage {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.usage
}

// Rubric produces the rubric for a window. Scrambler rubrics are derived
// from the answer list; every other game asks the grading service.
func (o *Orchestrator) Rubric(ctx context.Context, w model.GameWindow) (string, error) {
	if IsScrambler(w.Game) {
		metrics.RecordRubricGenerated(sourceScrambler)
		return ScramblerRubric(w.Question, w.Answer), nil
	}
	resp, err := o.complete(ctx, Request{Prompt: RubricPrompt(w), MaxTokens: o.rubricTokens})
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", ErrEmptyRubric
	}
	metrics.RecordRubricGenerated(sourceService)
	return text, nil
}

// EnsureRubrics generates a rubric for every window that has a question and
// an answer but no machine-authored rubric yet. The index is updated in
// place; the returned updates still have to be persisted. A failure for
// one window is logged and leaves it for lazy generation.
func (o *Orchestrator) EnsureRubrics(ctx context.Context, ix *gameindex.Index) []RubricUpdate {
	var out []RubricUpdate
	for _, w := range ix.Windows() {
		if !needsRubric(w) {
			continue
		}
		if w.Question == "" || w.Answer == "" {
			o.log.Debug(ctx, "games row has no question or answer", logger.Int("row", w.Row), logger.String("game", w.Game))
			continue
		}
		if ctx.Err() != nil {
			return out
		}
		rubric, err := o.Rubric(ctx, w)
		if err != nil {
			o.log.Warn(ctx, "rubric generation failed", logger.Int("row", w.Row), logger.String("game", w.Game), logger.Error(err))
			continue
		}
		ix.SetRubric(w.Row, rubric)
		out = append(out, RubricUpdate{Row: w.Row, Guidance: w.Guidance, Rubric: rubric})
		o.log.Info(ctx, "rubric generated", logger.Int("row", w.Row), logger.String("game", w.Game))
	}
	return out
}

// GradeAll grades every ungraded submission. Rows that already carry an AI
// grade are never sent to the service again. A failed or unreadable
// verdict yields Uncertain with an unknown confidence and does not stop
// the pass.
func (o *Orchestrator) GradeAll(ctx context.Context, subs []model.Submission, ix *gameindex.Index) (Result, error) {
	var res Result
	misses := map[string]int{}

	for _, sub := range subs {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("grading interrupted: %w", err)
		}
		if sub.Graded() {
			continue
		}
		if strings.TrimSpace(sub.Game) == "" || strings.TrimSpace(sub.Answer) == "" {
			res.Skipped++
			continue
		}
		if sub.SubmittedAt.IsZero() {
			o.log.Warn(ctx, "submission has no usable timestamp", logger.Int("row", sub.Row), logger.String("field", "Timestamp"))
			res.Skipped++
			continue
		}

		w, ok := ix.Find(sub.Game, sub.SubmittedAt)
		if !ok {
			res.NoWindow++
			o.noteMiss(ctx, misses, sub)
			continue
		}

		if needsRubric(w) {
			if w.Question == "" || w.Answer == "" {
				o.log.Warn(ctx, "window has no question or answer", logger.Int("row", sub.Row), logger.Int("games_row", w.Row))
				res.Skipped++
				continue
			}
			rubric, err := o.Rubric(ctx, w)
			if err != nil {
				o.log.Warn(ctx, "rubric generation failed", logger.Int("row", sub.Row), logger.Int("games_row", w.Row), logger.Error(err))
				res.Skipped++
				continue
			}
			ix.SetRubric(w.Row, rubric)
			res.Rubrics = append(res.Rubrics, RubricUpdate{Row: w.Row, Guidance: w.Guidance, Rubric: rubric})
			w.Rubric, w.RubricMachineAuthored = rubric, true
		}

		v := o.judge(ctx, w, sub)
		res.Verdicts = append(res.Verdicts, v)
		metrics.RecordGrade(string(v.Grade))
	}

	o.log.Info(ctx, "grading pass finished",
		logger.Int("graded", len(res.Verdicts)),
		logger.Int("rubrics", len(res.Rubrics)),
		logger.Int("no_window", res.NoWindow),
		logger.Int("skipped", res.Skipped))
	return res, nil
}

func (o *Orchestrator) judge(ctx context.Context, w model.GameWindow, sub model.Submission) Verdict {
	v := Verdict{Row: sub.Row, Grade: model.GradeUncertain}
	resp, err := o.complete(ctx, Request{Prompt: VerdictPrompt(w, sub.Answer), MaxTokens: o.verdictTokens})
	if err != nil {
		metrics.RecordGradingError()
		o.log.Error(ctx, "grading call failed", logger.Int("row", sub.Row), logger.Error(err))
		return v
	}
	grade, conf, err := ParseVerdict(resp.Text)
	if err != nil {
		o.log.Warn(ctx, "grading reply could not be parsed", logger.Int("row", sub.Row), logger.String("reply", resp.Text))
		return v
	}
	v.Grade, v.Confidence = grade, conf
	return v
}

func (o *Orchestrator) complete(ctx context.Context, req Request) (Response, error) {
	resp, err := o.completer.Complete(ctx, req)
	if err != nil {
		return Response{}, fmt.Errorf("%w: %w", ErrGradingService, err)
	}
	cost := metrics.RecordGraderUsage(resp.PromptTokens, resp.CompletionTokens)
	o.mu.Lock()
	o.usage.Calls++
	o.usage.PromptTokens += resp.PromptTokens
	o.usage.CompletionTokens += resp.CompletionTokens
	o.usage.Cost += cost
	o.mu.Unlock()
	return resp, nil
}

// noteMiss logs the first few missing-window rows per game, then one
// suppression notice.
func (o *Orchestrator) noteMiss(ctx context.Context, misses map[string]int, sub model.Submission) {
	game := strings.ToLower(strings.TrimSpace(sub.Game))
	metrics.RecordWindowMiss(game)
	n := misses[game]
	misses[game] = n + 1
	switch {
	case n < o.missLimit:
		o.log.Info(ctx, "no matching window",
			logger.Int("row", sub.Row),
			logger.String("game", sub.Game),
			logger.Any("at", sub.SubmittedAt))
	case n == o.missLimit:
		o.log.Info(ctx, "further rows without a window suppressed", logger.String("game", sub.Game))
	}
}

func needsRubric(w model.GameWindow) bool {
	return !w.RubricMachineAuthored || strings.TrimSpace(w.Rubric) == ""
}
