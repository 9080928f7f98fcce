// Package gameindex holds the sorted, in-memory set of game windows and
// answers "which window was open for this game at this time".
package gameindex

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/okian/gamesdesk/internal/domain/model"
	"github.com/okian/gamesdesk/pkg/logger"
)

// Row is one Games tab row as read from the sheet.
type Row struct {
	Line            int
	Game            string
	Start           string
	End             string
	Question        string
	Answer          string
	Guidance        string
	Rubric          string
	MachineAuthored bool
}

// Index is the sorted window list plus a per-game view of it.
type Index struct {
	windows []model.GameWindow
	byGame  map[string][]int
	byLine  map[int]int
}

// Build parses rows into windows. Rows missing a game, a start or an end,
// or whose times cannot be parsed, are template or incomplete rows and are
// left out. Windows are ordered by (game, start).
func Build(ctx context.Context, rows []Row, loc *time.Location) *Index {
	log := logger.Named("gameindex")
	ix := &Index{byGame: map[string][]int{}, byLine: map[int]int{}}

	for _, r := range rows {
		game := strings.TrimSpace(r.Game)
		if game == "" || strings.TrimSpace(r.Start) == "" || strings.TrimSpace(r.End) == "" {
			continue
		}
		start, err := model.ParseTime(r.Start, loc)
		if err != nil {
			log.Debug(ctx, "games row skipped", logger.Int("row", r.Line), logger.String("field", "Start Time"), logger.Error(err))
			continue
		}
		end, err := model.ParseTime(r.End, loc)
		if err != nil {
			log.Debug(ctx, "games row skipped", logger.Int("row", r.Line), logger.String("field", "End Time"), logger.Error(err))
			continue
		}
		if !start.Before(end) {
			log.Warn(ctx, "games row skipped: start is not before end", logger.Int("row", r.Line))
			continue
		}
		ix.windows = append(ix.windows, model.GameWindow{
			Row:                   r.Line,
			Game:                  game,
			Start:                 start,
			End:                   end,
			Question:              strings.TrimSpace(r.Question),
			Answer:                strings.TrimSpace(r.Answer),
			Guidance:              r.Guidance,
			Rubric:                r.Rubric,
			RubricMachineAuthored: r.MachineAuthored,
		})
	}

	sort.SliceStable(ix.windows, func(i, j int) bool {
		gi, gj := strings.ToLower(ix.windows[i].Game), strings.ToLower(ix.windows[j].Game)
		if gi != gj {
			return gi < gj
		}
		if !ix.windows[i].Start.Equal(ix.windows[j].Start) {
			return ix.windows[i].Start.Before(ix.windows[j].Start)
		}
		return ix.windows[i].Row < ix.windows[j].Row
	})
	for i, w := range ix.windows {
		key := strings.ToLower(w.Game)
		ix.byGame[key] = append(ix.byGame[key], i)
		ix.byLine[w.Row] = i
	}
	return ix
}

// Find returns the first window, in sorted order, of the given game that
// contains at. Both ends are inclusive, so with overlapping windows the
// earlier-starting one wins.
func (ix *Index) Find(game string, at time.Time) (model.GameWindow, bool) {
	for _, i := range ix.byGame[strings.ToLower(strings.TrimSpace(game))] {
		if ix.windows[i].Contains(at) {
			return ix.windows[i], true
		}
	}
	return model.GameWindow{}, false
}

// Windows returns the windows in sorted order.
func (ix *Index) Windows() []model.GameWindow {
	return append([]model.GameWindow(nil), ix.windows...)
}

// Len is the number of usable windows.
func (ix *Index) Len() int { return len(ix.windows) }

// SetRubric records a rubric generated for the window on the given sheet row.
func (ix *Index) SetRubric(row int, rubric string) {
	if i, ok := ix.byLine[row]; ok {
		ix.windows[i].Rubric = rubric
		ix.windows[i].RubricMachineAuthored = true
	}
}
