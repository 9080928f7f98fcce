// Package service runs the contest batch: it sequences the ingest, cleanup,
// rubric, grading and winner phases over the workbook.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/okian/gamesdesk/internal/adapters/mail"
	"github.com/okian/gamesdesk/internal/adapters/notify"
	"github.com/okian/gamesdesk/internal/adapters/remote"
	"github.com/okian/gamesdesk/internal/adapters/sheets"
	"github.com/okian/gamesdesk/internal/domain/gameindex"
	"github.com/okian/gamesdesk/internal/domain/grading"
	"github.com/okian/gamesdesk/internal/domain/model"
	"github.com/okian/gamesdesk/internal/domain/normalize"
	"github.com/okian/gamesdesk/internal/domain/winners"
	"github.com/okian/gamesdesk/pkg/logger"
	"github.com/okian/gamesdesk/pkg/metrics"
)

const defaultPhaseDelay = 10 * time.Second

// Workbook is the spreadsheet the batch reads and writes.
type Workbook interface {
	Location() *time.Location
	Games(ctx context.Context) ([]gameindex.Row, sheets.Binding, error)
	WriteRubrics(ctx context.Context, b sheets.Binding, writes []sheets.RubricWrite) error
	Submissions(ctx context.Context) (*sheets.SubmissionSheet, error)
	AppendSubmissions(ctx context.Context, b sheets.Binding, subs []model.Submission) error
	WriteCells(ctx context.Context, b sheets.Binding, cells []sheets.CellWrite) error
	WriteVerdicts(ctx context.Context, b sheets.Binding, verdicts []sheets.Verdict) error
	PastWinnerEmails(ctx context.Context) (map[string]bool, error)
	Winners(ctx context.Context) ([]model.WinnerRecord, sheets.Binding, error)
	ReplaceWinners(ctx context.Context, b sheets.Binding, records []model.WinnerRecord) error
}

// MailSource lists and fetches labelled messages.
type MailSource interface {
	List(ctx context.Context, label, pageToken string) (mail.Page, error)
	Get(ctx context.Context, id, game string) (model.RawMessage, error)
}

// Report summarizes one run.
type Report struct {
	RunID      string
	Reformat   int
	Ingested   int
	Duplicates int
	Skipped    int
	Rubrics    int
	Graded     int
	Windows    int
	Usage      grading.Usage
}

// Service owns the batch components.
type Service struct {
	workbook   Workbook
	mail       MailSource
	normalizer *normalize.Normalizer
	grader     *grading.Orchestrator
	winners    *winners.Engine
	notifier   *notify.Notifier

	labels     map[string]string
	cutoffs    map[string]time.Time
	fetchAll   bool
	skipIngest bool
	phaseDelay time.Duration
	sleep      remote.Sleeper
	pushURL    string
	runID      string

	logger logger.Logger
}

// New constructs a Service. A workbook and a grader are required; Run
// reports their absence.
func New(opts ...Option) *Service {
	s := &Service{
		labels:     map[string]string{},
		cutoffs:    map[string]time.Time{},
		phaseDelay: defaultPhaseDelay,
		sleep:      remote.Sleep,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Named("service")
	}
	if s.runID == "" {
		s.runID = uuid.NewString()
	}
	if s.winners == nil {
		s.winners = winners.New()
	}
	return s
}

type phase struct {
	name string
	run  func(ctx context.Context, r *Report) error
}

// Run executes every phase in order. Phases never overlap: each one reads
// what the previous one flushed. The first error stops the run.
func (s *Service) Run(ctx context.Context) (Report, error) {
	report := Report{RunID: s.runID}
	if s.workbook == nil || s.grader == nil {
		return report, ErrNotConfigured
	}
	ctx = logger.WithRunID(ctx, s.runID)
	start := time.Now()
	s.logger.Info(ctx, "run started", logger.Bool("fetch_all", s.fetchAll), logger.Bool("skip_ingest", s.skipIngest))
	s.notifier.Notify(ctx, fmt.Sprintf("gamesdesk run %s started", s.runID))

	phases := []phase{{"cleanup", s.cleanup}}
	if s.ingestEnabled() {
		phases = append(phases, phase{"ingest", s.ingest}, phase{"cleanup", s.cleanup})
	}
	phases = append(phases,
		phase{"rubrics", s.rubrics},
		phase{"grade", s.grade},
		phase{"winners", s.selectWinners},
	)

	for i, p := range phases {
		if i > 0 && s.phaseDelay > 0 {
			if err := s.sleep(ctx, s.phaseDelay); err != nil {
				return s.fail(ctx, report, p.name, err)
			}
		}
		began := time.Now()
		err := p.run(ctx, &report)
		metrics.RecordPhaseDuration(p.name, time.Since(began).Seconds())
		if err != nil {
			return s.fail(ctx, report, p.name, err)
		}
		s.logger.Info(ctx, "phase finished", logger.String("phase", p.name), logger.Duration("took", time.Since(began)))
	}

	report.Usage = s.grader.Usage()
	metrics.MarkRunSucceeded()
	s.logger.Info(ctx, "run finished",
		logger.Duration("took", time.Since(start)),
		logger.Int("ingested", report.Ingested),
		logger.Int("graded", report.Graded),
		logger.Int("winner_rows", report.Windows),
		logger.Int("grader_prompt_tokens", report.Usage.PromptTokens),
		logger.Int("grader_completion_tokens", report.Usage.CompletionTokens),
		logger.Float64("grader_cost_usd", report.Usage.Cost))
	s.notifier.Notify(ctx, fmt.Sprintf("gamesdesk run %s finished: %d new submissions, %d graded, %d winner rows, grader cost $%.4f",
		s.runID, report.Ingested, report.Graded, report.Windows, report.Usage.Cost))
	s.push(ctx)
	return report, nil
}

func (s *Service) ingestEnabled() bool {
	return !s.skipIngest && s.mail != nil && s.normalizer != nil && len(s.labels) > 0
}

func (s *Service) fail(ctx context.Context, report Report, phase string, err error) (Report, error) {
	if s.grader != nil {
		report.Usage = s.grader.Usage()
	}
	msg := fmt.Sprintf("gamesdesk run %s failed during %s: %v", s.runID, phase, err)
	var h interface{ Hint() string }
	if errors.As(err, &h) && h.Hint() != "" {
		msg += "\nFix: " + h.Hint()
	}
	s.logger.Error(ctx, "run failed", logger.String("phase", phase), logger.Error(err))
	s.notifier.Notify(ctx, msg)
	s.push(context.WithoutCancel(ctx))
	return report, fmt.Errorf("%s: %w", phase, err)
}

func (s *Service) push(ctx context.Context) {
	if err := metrics.Push(ctx, s.pushURL, s.runID); err != nil {
		s.logger.Warn(ctx, "metrics push failed", logger.Error(err))
	}
}
