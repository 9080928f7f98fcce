package service

import (
	"strings"
	"time"

	"github.com/okian/gamesdesk/internal/adapters/notify"
	"github.com/okian/gamesdesk/internal/adapters/remote"
	"github.com/okian/gamesdesk/internal/domain/grading"
	"github.com/okian/gamesdesk/internal/domain/normalize"
	"github.com/okian/gamesdesk/internal/domain/winners"
	"github.com/okian/gamesdesk/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkbook sets the spreadsheet the run works on.
func WithWorkbook(w Workbook) Option {
	return func(s *Service) { s.workbook = w }
}

// WithMail sets the message source used by ingestion.
func WithMail(m MailSource) Option {
	return func(s *Service) { s.mail = m }
}

// WithLabels maps game names to mail label ids.
func WithLabels(labels map[string]string) Option {
	return func(s *Service) {
		for game, label := range labels {
			if strings.TrimSpace(game) != "" && strings.TrimSpace(label) != "" {
				s.labels[game] = label
			}
		}
	}
}

// WithCutoffs sets per-game ingestion floors. Game names are matched
// case-insensitively.
func WithCutoffs(cutoffs map[string]time.Time) Option {
	return func(s *Service) {
		for game, at := range cutoffs {
			s.cutoffs[strings.ToLower(strings.TrimSpace(game))] = at
		}
	}
}

// WithFetchAll disables the incremental ingestion boundary.
func WithFetchAll(v bool) Option {
	return func(s *Service) { s.fetchAll = v }
}

// WithSkipIngest runs every phase except ingestion.
func WithSkipIngest(v bool) Option {
	return func(s *Service) { s.skipIngest = v }
}

// WithPhaseDelay sets the pause between phases. Zero disables it.
func WithPhaseDelay(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.phaseDelay = d
		}
	}
}

// WithSleeper replaces the sleep used for phase delays.
func WithSleeper(fn remote.Sleeper) Option {
	return func(s *Service) {
		if fn != nil {
			s.sleep = fn
		}
	}
}

// WithNormalizer sets the message normalizer.
func WithNormalizer(n *normalize.Normalizer) Option {
	return func(s *Service) { s.normalizer = n }
}

// WithGrader sets the grading orchestrator.
func WithGrader(g *grading.Orchestrator) Option {
	return func(s *Service) { s.grader = g }
}

// WithWinners sets the winner selection engine.
func WithWinners(e *winners.Engine) Option {
	return func(s *Service) { s.winners = e }
}

// WithNotifier sets where run notices are sent.
func WithNotifier(n *notify.Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithPushgateway sets the Pushgateway that receives the run's metrics.
func WithPushgateway(url string) Option {
	return func(s *Service) { s.pushURL = url }
}

// WithRunID overrides the generated run id.
func WithRunID(id string) Option {
	return func(s *Service) { s.runID = id }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) { s.logger = l }
}
