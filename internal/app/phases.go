package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/okian/gamesdesk/internal/adapters/sheets"
	"github.com/okian/gamesdesk/internal/domain/dedupe"
	"github.com/okian/gamesdesk/internal/domain/gameindex"
	"github.com/okian/gamesdesk/internal/domain/grading"
	"github.com/okian/gamesdesk/internal/domain/model"
	"github.com/okian/gamesdesk/internal/domain/normalize"
	"github.com/okian/gamesdesk/pkg/logger"
	"github.com/okian/gamesdesk/pkg/metrics"
)

var placeholders = []string{"(Autopopulated)", "(Required)"}

// cleanup rewrites the name and timestamp cells of existing submissions into
// canonical form with one batch write.
func (s *Service) cleanup(ctx context.Context, r *Report) error {
	sheet, err := s.workbook.Submissions(ctx)
	if err != nil {
		return err
	}
	loc := s.workbook.Location()
	var writes []sheets.CellWrite
	for _, row := range sheet.Rows {
		fix := func(col, current, want string) {
			if want == "" || want == current || isPlaceholder(current) {
				return
			}
			writes = append(writes, sheets.CellWrite{Row: row.Row, Column: col, Value: want})
		}
		fix(sheets.ColFirstName, row.FirstName, normalize.FirstName(row.FirstName))
		fix(sheets.ColLastInitial, row.LastInitial, normalize.LastInitial(row.LastInitial))
		if ts, ok := model.CanonicalTimestamp(row.Timestamp, loc); ok {
			fix(sheets.ColTimestamp, row.Timestamp, ts)
		} else if strings.TrimSpace(row.Timestamp) != "" && !isPlaceholder(row.Timestamp) {
			s.logger.Warn(ctx, "unparseable timestamp left as is",
				logger.String("sheet", sheet.Binding.Tab), logger.Int("row", row.Row),
				logger.String("field", sheets.ColTimestamp), logger.String("value", row.Timestamp))
		}
	}
	if err := s.workbook.WriteCells(ctx, sheet.Binding, writes); err != nil {
		return fmt.Errorf("write cleaned cells: %w", err)
	}
	metrics.RecordCellsReformatted(len(writes))
	r.Reformat += len(writes)
	if len(writes) > 0 {
		s.logger.Info(ctx, "submission cells reformatted", logger.Int("cells", len(writes)))
	}
	return nil
}

func isPlaceholder(cell string) bool {
	for _, p := range placeholders {
		if strings.Contains(cell, p) {
			return true
		}
	}
	return false
}

// ingest pulls new messages for every configured label, newest first, and
// appends the ones not already on the sheet. Each page is appended before the
// next one is fetched.
func (s *Service) ingest(ctx context.Context, r *Report) error {
	sheet, err := s.workbook.Submissions(ctx)
	if err != nil {
		return err
	}
	loc := s.workbook.Location()
	seen := dedupe.NewInMemoryDeduper(dedupe.WithSizeHint(len(sheet.Rows)))
	latest := map[string]time.Time{}
	for _, row := range sheet.Rows {
		if row.SubmittedAt.IsZero() {
			continue
		}
		seen.SeenAndRecord(ctx, normalize.KeyOf(row.Submission, loc))
		game := strings.ToLower(strings.TrimSpace(row.Game))
		if row.SubmittedAt.After(latest[game]) {
			latest[game] = row.SubmittedAt
		}
	}

	games := make([]string, 0, len(s.labels))
	for game := range s.labels {
		games = append(games, game)
	}
	sort.Strings(games)

	for _, game := range games {
		var boundary time.Time
		if !s.fetchAll {
			key := strings.ToLower(game)
			boundary = latest[key]
			if c, ok := s.cutoffs[key]; ok && c.After(boundary) {
				boundary = c
			}
		}
		if err := s.ingestLabel(ctx, r, sheet.Binding, seen, game, s.labels[game], boundary); err != nil {
			return fmt.Errorf("label %s: %w", game, err)
		}
	}
	return nil
}

func (s *Service) ingestLabel(ctx context.Context, r *Report, b sheets.Binding, seen dedupe.Deduper,
	game, label string, boundary time.Time,
) error {
	log := s.logger
	added := 0
	token := ""
	for {
		page, err := s.mail.List(ctx, label, token)
		if err != nil {
			return err
		}
		var (
			batch []model.Submission
			keys  []dedupe.Key
			done  bool
		)
		for _, id := range page.IDs {
			raw, err := s.mail.Get(ctx, id, game)
			if err != nil {
				return err
			}
			sub, key, err := s.normalizer.Normalize(ctx, raw)
			var skip *normalize.SkipError
			switch {
			case errors.As(err, &skip):
				metrics.RecordMessageSkipped(skip.Reason)
				r.Skipped++
				log.Debug(ctx, "message skipped", logger.String("message", id), logger.String("reason", skip.Reason))
				continue
			case err != nil:
				return err
			}
			if !boundary.IsZero() && !sub.SubmittedAt.After(boundary) {
				done = true
				break
			}
			if seen.SeenAndRecord(ctx, key) {
				metrics.RecordSubmissionDuplicate()
				r.Duplicates++
				continue
			}
			batch = append(batch, sub)
			keys = append(keys, key)
		}
		if err := s.workbook.AppendSubmissions(ctx, b, batch); err != nil {
			for _, k := range keys {
				seen.Unrecord(ctx, k)
			}
			return fmt.Errorf("append submissions: %w", err)
		}
		added += len(batch)
		if done || page.Next == "" {
			break
		}
		token = page.Next
	}
	r.Ingested += added
	metrics.RecordSubmissionsIngested(game, added)
	log.Info(ctx, "label ingested", logger.String("game", game), logger.Int("added", added))
	return nil
}

func (s *Service) index(ctx context.Context) (*gameindex.Index, sheets.Binding, error) {
	rows, b, err := s.workbook.Games(ctx)
	if err != nil {
		return nil, sheets.Binding{}, err
	}
	return gameindex.Build(ctx, rows, s.workbook.Location()), b, nil
}

// rubrics backfills machine-authored rubrics for every complete window.
func (s *Service) rubrics(ctx context.Context, r *Report) error {
	ix, b, err := s.index(ctx)
	if err != nil {
		return err
	}
	updates := s.grader.EnsureRubrics(ctx, ix)
	if err := s.workbook.WriteRubrics(ctx, b, rubricWrites(updates)); err != nil {
		return fmt.Errorf("write rubrics: %w", err)
	}
	r.Rubrics += len(updates)
	return nil
}

// grade judges every ungraded submission. Whatever was judged before a
// failure is still written.
func (s *Service) grade(ctx context.Context, r *Report) error {
	ix, gb, err := s.index(ctx)
	if err != nil {
		return err
	}
	sheet, err := s.workbook.Submissions(ctx)
	if err != nil {
		return err
	}
	res, gradeErr := s.grader.GradeAll(ctx, submissions(sheet), ix)

	persist := context.WithoutCancel(ctx)
	if err := s.workbook.WriteRubrics(persist, gb, rubricWrites(res.Rubrics)); err != nil {
		return errors.Join(gradeErr, fmt.Errorf("write rubrics: %w", err))
	}
	verdicts := make([]sheets.Verdict, 0, len(res.Verdicts))
	for _, v := range res.Verdicts {
		verdicts = append(verdicts, sheets.Verdict{Row: v.Row, Grade: v.Grade, Confidence: v.Confidence})
	}
	if err := s.workbook.WriteVerdicts(persist, sheet.Binding, verdicts); err != nil {
		return errors.Join(gradeErr, fmt.Errorf("write verdicts: %w", err))
	}
	r.Rubrics += len(res.Rubrics)
	r.Graded += len(verdicts)
	s.logger.Info(ctx, "grading finished",
		logger.Int("graded", len(verdicts)),
		logger.Int("no_window", res.NoWindow),
		logger.Int("skipped", res.Skipped))
	return gradeErr
}

// selectWinners rebuilds the Winners tab from the current grades.
func (s *Service) selectWinners(ctx context.Context, r *Report) error {
	ix, _, err := s.index(ctx)
	if err != nil {
		return err
	}
	sheet, err := s.workbook.Submissions(ctx)
	if err != nil {
		return err
	}
	previous, wb, err := s.workbook.Winners(ctx)
	if err != nil {
		return err
	}
	excluded, err := s.workbook.PastWinnerEmails(ctx)
	if err != nil {
		return err
	}
	records := s.winners.Recompute(ctx, ix, submissions(sheet), previous, excluded)
	if err := s.workbook.ReplaceWinners(ctx, wb, records); err != nil {
		return fmt.Errorf("write winners: %w", err)
	}
	r.Windows = len(records)
	return nil
}

func submissions(sheet *sheets.SubmissionSheet) []model.Submission {
	subs := make([]model.Submission, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		subs = append(subs, row.Submission)
	}
	return subs
}

func rubricWrites(updates []grading.RubricUpdate) []sheets.RubricWrite {
	writes := make([]sheets.RubricWrite, 0, len(updates))
	for _, u := range updates {
		writes = append(writes, sheets.RubricWrite{Row: u.Row, Guidance: u.Guidance, Rubric: u.Rubric})
	}
	return writes
}
