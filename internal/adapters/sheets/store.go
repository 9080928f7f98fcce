package sheets

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/okian/gamesdesk/internal/domain/gameindex"
	"github.com/okian/gamesdesk/internal/domain/model"
	"github.com/okian/gamesdesk/pkg/logger"
)

const listSeparator = ", "

// Tabs names the workbook's tabs.
type Tabs struct {
	Games       string
	Submissions string
	Winners     string
	PastWinners string
}

// Store reads and writes the contest workbook through a Backend.
type Store struct {
	backend Backend
	tabs    Tabs
	loc     *time.Location
	log     logger.Logger
}

// NewStore creates a Store.
func NewStore(backend Backend, tabs Tabs, loc *time.Location) *Store {
	if loc == nil {
		loc = time.UTC
	}
	return &Store{backend: backend, tabs: tabs, loc: loc, log: logger.Named("sheets")}
}

// Location is the zone sheet timestamps are read and written in.
func (s *Store) Location() *time.Location { return s.loc }

// read fetches a tab and binds its header.
func (s *Store) read(ctx context.Context, schema Schema) (Binding, [][]string, error) {
	rows, err := s.backend.Get(ctx, TabRange(schema.Tab))
	if err != nil {
		return Binding{}, nil, fmt.Errorf("read %s: %w", schema.Tab, err)
	}
	if len(rows) == 0 {
		return Binding{}, nil, &MissingColumnError{Tab: schema.Tab, Column: schema.Columns[0].Name}
	}
	b, err := schema.Bind(rows[0])
	if err != nil {
		return b, nil, err
	}
	return b, rows, nil
}

// dataRows yields (sheet row number, cells) from row 3 on.
func dataRows(rows [][]string) func(yield func(int, []string) bool) {
	return func(yield func(int, []string) bool) {
		for i := FirstDataRow - 1; i < len(rows); i++ {
			if !yield(i+1, rows[i]) {
				return
			}
		}
	}
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// Games reads the Games tab.
func (s *Store) Games(ctx context.Context) ([]gameindex.Row, Binding, error) {
	b, rows, err := s.read(ctx, GamesSchema(s.tabs.Games))
	if err != nil {
		return nil, b, err
	}
	var out []gameindex.Row
	for line, row := range dataRows(rows) {
		if blank(row) {
			continue
		}
		guidance, rubric, machine := DecodeRubric(b.Cell(row, ColPrompt))
		out = append(out, gameindex.Row{
			Line:            line,
			Game:            b.Cell(row, ColGame),
			Start:           b.Cell(row, ColStart),
			End:             b.Cell(row, ColEnd),
			Question:        b.Cell(row, ColQuestion),
			Answer:          b.Cell(row, ColAnswer),
			Guidance:        guidance,
			Rubric:          rubric,
			MachineAuthored: machine,
		})
	}
	return out, b, nil
}

// RubricWrite stores a generated rubric next to the existing guidance.
type RubricWrite struct {
	Row      int
	Guidance string
	Rubric   string
}

// WriteRubrics persists rubrics in as few contiguous range writes as
// possible, all in one batch request.
func (s *Store) WriteRubrics(ctx context.Context, b Binding, writes []RubricWrite) error {
	if len(writes) == 0 {
		return nil
	}
	cells := make([]CellWrite, 0, len(writes))
	for _, w := range writes {
		cells = append(cells, CellWrite{Row: w.Row, Column: ColPrompt, Value: EncodeRubric(w.Guidance, w.Rubric)})
	}
	return s.WriteCells(ctx, b, cells)
}

// WriteCells writes single cells, grouped per column into contiguous runs,
// in one batch request.
func (s *Store) WriteCells(ctx context.Context, b Binding, cells []CellWrite) error {
	if len(cells) == 0 {
		return nil
	}
	byCol := map[string]map[int]string{}
	for _, c := range cells {
		if !b.Has(c.Column) {
			return &MissingColumnError{Tab: b.Tab, Column: c.Column}
		}
		if byCol[c.Column] == nil {
			byCol[c.Column] = map[int]string{}
		}
		byCol[c.Column][c.Row] = c.Value
	}
	names := make([]string, 0, len(byCol))
	for name := range byCol {
		names = append(names, name)
	}
	sort.Strings(names)

	var data []ValueRange
	for _, name := range names {
		data = append(data, contiguous(b.Tab, b.Index(name), byCol[name])...)
	}
	if err := s.backend.BatchUpdate(ctx, data); err != nil {
		return fmt.Errorf("write %d cells to %s: %w", len(cells), b.Tab, err)
	}
	s.log.Debug(ctx, "cells written", logger.String("tab", b.Tab), logger.Int("cells", len(cells)), logger.Int("ranges", len(data)))
	return nil
}

// SubmissionRow is one Submissions row, raw and parsed.
type SubmissionRow struct {
	model.Submission
	// Cells holds the raw row as read.
	Cells []string
	// Timestamp is the raw timestamp cell; TimestampErr is set when it
	// could not be parsed, leaving SubmittedAt zero.
	Timestamp    string
	TimestampErr error
}

// SubmissionSheet is the Submissions tab with its binding.
type SubmissionSheet struct {
	Binding Binding
	Rows    []SubmissionRow
}

// Submissions reads the Submissions tab. Optional columns missing from the
// header are appended to it first.
func (s *Store) Submissions(ctx context.Context) (*SubmissionSheet, error) {
	schema := SubmissionsSchema(s.tabs.Submissions)
	b, rows, err := s.read(ctx, schema)
	if err != nil {
		return nil, err
	}
	if absent := b.Absent(); len(absent) > 0 {
		header := append([]string(nil), rows[0]...)
		for len(header) > 0 && strings.TrimSpace(header[len(header)-1]) == "" {
			header = header[:len(header)-1]
		}
		start := len(header)
		var added []string
		for _, col := range absent {
			added = append(added, col.Name)
		}
		rng := CellRange(schema.Tab, start, HeaderRow, start+len(added)-1, HeaderRow)
		if err := s.backend.Update(ctx, rng, [][]string{added}); err != nil {
			return nil, fmt.Errorf("add columns to %s: %w", schema.Tab, err)
		}
		s.log.Info(ctx, "added missing columns", logger.String("tab", schema.Tab), logger.Any("columns", added))
		rows[0] = append(header, added...)
		if b, err = schema.Bind(rows[0]); err != nil {
			return nil, err
		}
	}

	sheet := &SubmissionSheet{Binding: b}
	for line, row := range dataRows(rows) {
		if blank(row) {
			continue
		}
		sr := SubmissionRow{
			Cells:     row,
			Timestamp: b.Cell(row, ColTimestamp),
			Submission: model.Submission{
				Row:          line,
				Game:         b.Cell(row, ColGame),
				FirstName:    b.Cell(row, ColFirstName),
				LastInitial:  b.Cell(row, ColLastInitial),
				Email:        b.Cell(row, ColEmail),
				Answer:       b.Cell(row, ColAnswer),
				AIGrade:      model.ParseGrade(b.Cell(row, ColAIGrade)),
				AIConfidence: parseConfidence(b.Cell(row, ColConfidence)),
				Override:     model.ParseOverride(b.Cell(row, ColOverride)),
				Link:         b.Cell(row, ColLink),
			},
		}
		sr.SubmittedAt, sr.TimestampErr = model.ParseTime(sr.Timestamp, s.loc)
		sheet.Rows = append(sheet.Rows, sr)
	}
	return sheet, nil
}

func parseConfidence(s string) model.Confidence {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	var v float64
	if _, err := fmt.Sscanf(s, "%g", &v); err != nil {
		return model.Confidence{}
	}
	return model.ConfidenceOf(int(v + 0.5))
}

// AppendSubmissions adds rows in header order with one append call.
func (s *Store) AppendSubmissions(ctx context.Context, b Binding, subs []model.Submission) error {
	if len(subs) == 0 {
		return nil
	}
	rows := make([][]string, 0, len(subs))
	for _, sub := range subs {
		row := make([]string, b.Width)
		row = b.Put(row, ColGame, sub.Game)
		row = b.Put(row, ColTimestamp, model.FormatTimestamp(sub.SubmittedAt, s.loc))
		row = b.Put(row, ColFirstName, sub.FirstName)
		row = b.Put(row, ColLastInitial, sub.LastInitial)
		row = b.Put(row, ColEmail, sub.Email)
		row = b.Put(row, ColAnswer, sub.Answer)
		row = b.Put(row, ColLink, sub.Link)
		rows = append(rows, row)
	}
	width := b.Width
	for _, r := range rows {
		if len(r) > width {
			width = len(r)
		}
	}
	rng := CellRange(b.Tab, 0, HeaderRow, width-1, 0)
	if err := s.backend.Append(ctx, rng, rows); err != nil {
		return fmt.Errorf("append %d submissions: %w", len(rows), err)
	}
	return nil
}

// Verdict is a grade to persist for one Submissions row.
type Verdict struct {
	Row        int
	Grade      model.Grade
	Confidence model.Confidence
}

// WriteVerdicts persists grades and confidences in one batch request. When
// the two columns are adjacent each run of consecutive rows is a single
// two-column range.
func (s *Store) WriteVerdicts(ctx context.Context, b Binding, verdicts []Verdict) error {
	if len(verdicts) == 0 {
		return nil
	}
	gi, ci := b.Index(ColAIGrade), b.Index(ColConfidence)
	if gi < 0 || ci != gi+1 {
		cells := make([]CellWrite, 0, 2*len(verdicts))
		for _, v := range verdicts {
			cells = append(cells,
				CellWrite{Row: v.Row, Column: ColAIGrade, Value: string(v.Grade)},
				CellWrite{Row: v.Row, Column: ColConfidence, Value: v.Confidence.String()},
			)
		}
		return s.WriteCells(ctx, b, cells)
	}

	rows := make(map[int][]string, len(verdicts))
	for _, v := range verdicts {
		rows[v.Row] = []string{string(v.Grade), v.Confidence.String()}
	}
	data := rowBlocks(b.Tab, gi, ci, rows)
	if err := s.backend.BatchUpdate(ctx, data); err != nil {
		return fmt.Errorf("write %d verdicts to %s: %w", len(verdicts), b.Tab, err)
	}
	s.log.Debug(ctx, "verdicts written", logger.String("tab", b.Tab), logger.Int("rows", len(verdicts)), logger.Int("ranges", len(data)))
	return nil
}

// PastWinnerEmails reads the exclusion list, lowercased.
func (s *Store) PastWinnerEmails(ctx context.Context) (map[string]bool, error) {
	b, rows, err := s.read(ctx, PastWinnersSchema(s.tabs.PastWinners))
	if err != nil {
		return nil, err
	}
	out := map[string]bool{}
	// The exclusion tab has no template row.
	for i := 1; i < len(rows); i++ {
		if email := strings.ToLower(b.Cell(rows[i], ColEmail)); strings.Contains(email, "@") {
			out[email] = true
		}
	}
	return out, nil
}

// Winners reads the records written by the previous run.
func (s *Store) Winners(ctx context.Context) ([]model.WinnerRecord, Binding, error) {
	b, rows, err := s.read(ctx, WinnersSchema(s.tabs.Winners))
	if err != nil {
		return nil, b, err
	}
	var out []model.WinnerRecord
	for line, row := range dataRows(rows) {
		if blank(row) {
			continue
		}
		start, err1 := model.ParseTime(b.Cell(row, ColStart), s.loc)
		end, err2 := model.ParseTime(b.Cell(row, ColEnd), s.loc)
		if err1 != nil || err2 != nil {
			s.log.Debug(ctx, "winners row without a window", logger.Int("row", line))
			continue
		}
		out = append(out, model.WinnerRecord{
			Game:      b.Cell(row, ColGame),
			Start:     start,
			End:       end,
			SwagName:  b.Cell(row, ColSwagName),
			SwagEmail: b.Cell(row, ColSwagEmail),
			SwagLink:  b.Cell(row, ColSwagLink),
			Names:     splitList(b.Cell(row, ColWinners)),
			Emails:    splitList(b.Cell(row, ColWinnerMails)),
			Summary:   b.Cell(row, ColFullText),
		})
	}
	return out, b, nil
}

// ReplaceWinners clears every data row of the Winners tab and writes the
// records in one range write, in the given order.
func (s *Store) ReplaceWinners(ctx context.Context, b Binding, records []model.WinnerRecord) error {
	last := b.Width - 1
	if last < 0 {
		return fmt.Errorf("%w: %s", ErrEmptyTab, b.Tab)
	}
	if err := s.backend.Clear(ctx, CellRange(b.Tab, 0, FirstDataRow, last, 0)); err != nil {
		return fmt.Errorf("clear %s: %w", b.Tab, err)
	}
	if len(records) == 0 {
		return nil
	}
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		row := make([]string, b.Width)
		row = b.Put(row, ColStart, model.FormatTimestamp(r.Start, s.loc))
		row = b.Put(row, ColEnd, model.FormatTimestamp(r.End, s.loc))
		row = b.Put(row, ColGame, r.Game)
		row = b.Put(row, ColSwagName, r.SwagName)
		row = b.Put(row, ColSwagEmail, r.SwagEmail)
		row = b.Put(row, ColSwagLink, r.SwagLink)
		row = b.Put(row, ColWinners, strings.Join(r.Names, listSeparator))
		row = b.Put(row, ColWinnerMails, strings.Join(r.Emails, listSeparator))
		row = b.Put(row, ColFullText, r.Summary)
		row = b.Put(row, ColQuestion, r.Question)
		row = b.Put(row, ColAnswer, r.Answer)
		rows = append(rows, row)
	}
	rng := CellRange(b.Tab, 0, FirstDataRow, last, FirstDataRow+len(rows)-1)
	if err := s.backend.Update(ctx, rng, rows); err != nil {
		return fmt.Errorf("write %s: %w", b.Tab, err)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
