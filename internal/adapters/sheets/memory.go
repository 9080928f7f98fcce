package sheets

import (
	"context"
	"sync"
)

// MemoryBackend keeps tabs in memory. It follows the values API closely
// enough for tests and dry runs: reads drop trailing empty rows and cells,
// appends land after the last non-empty row.
type MemoryBackend struct {
	mu    sync.Mutex
	tabs  map[string][][]string
	calls map[string]int
}

// NewMemoryBackend creates a backend seeded with the given tabs.
func NewMemoryBackend(tabs map[string][][]string) *MemoryBackend {
	m := &MemoryBackend{tabs: map[string][][]string{}, calls: map[string]int{}}
	for name, rows := range tabs {
		m.tabs[name] = cloneRows(rows)
	}
	return m
}

// Tab returns a copy of a tab's cells.
func (m *MemoryBackend) Tab(name string) [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return trim(cloneRows(m.tabs[name]))
}

// Calls reports how many times a primitive ("get", "update", ...) ran.
func (m *MemoryBackend) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

func (m *MemoryBackend) Get(_ context.Context, rng string) ([][]string, error) {
	r, err := parseA1(rng)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["get"]++
	rows := m.tabs[r.tab]
	var out [][]string
	for i := r.row1; i < len(rows) && (r.row2 < 0 || i <= r.row2); i++ {
		var line []string
		for j := r.col1; j < len(rows[i]) && (r.col2 < 0 || j <= r.col2); j++ {
			line = append(line, rows[i][j])
		}
		out = append(out, line)
	}
	return trim(out), nil
}

func (m *MemoryBackend) Update(_ context.Context, rng string, rows [][]string) error {
	r, err := parseA1(rng)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["update"]++
	m.write(r.tab, r.row1, r.col1, rows)
	return nil
}

func (m *MemoryBackend) BatchUpdate(_ context.Context, data []ValueRange) error {
	parsed := make([]a1, len(data))
	for i, d := range data {
		r, err := parseA1(d.Range)
		if err != nil {
			return err
		}
		parsed[i] = r
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["batch_update"]++
	for i, d := range data {
		m.write(parsed[i].tab, parsed[i].row1, parsed[i].col1, d.Values)
	}
	return nil
}

func (m *MemoryBackend) Append(_ context.Context, rng string, rows [][]string) error {
	r, err := parseA1(rng)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["append"]++
	m.write(r.tab, usedRows(m.tabs[r.tab]), r.col1, rows)
	return nil
}

func (m *MemoryBackend) Clear(_ context.Context, rng string) error {
	r, err := parseA1(rng)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["clear"]++
	rows := m.tabs[r.tab]
	for i := r.row1; i < len(rows) && (r.row2 < 0 || i <= r.row2); i++ {
		for j := r.col1; j < len(rows[i]) && (r.col2 < 0 || j <= r.col2); j++ {
			rows[i][j] = ""
		}
	}
	return nil
}

// write must be called with mu held.
func (m *MemoryBackend) write(tab string, row, col int, values [][]string) {
	rows := m.tabs[tab]
	for i, line := range values {
		for len(rows) <= row+i {
			rows = append(rows, nil)
		}
		for j, v := range line {
			for len(rows[row+i]) <= col+j {
				rows[row+i] = append(rows[row+i], "")
			}
			rows[row+i][col+j] = v
		}
	}
	m.tabs[tab] = rows
}

func cloneRows(rows [][]string) [][]string {
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = append([]string(nil), r...)
	}
	return out
}

// usedRows counts rows up to the last one holding any text.
func usedRows(rows [][]string) int {
	for n := len(rows); n > 0; n-- {
		for _, v := range rows[n-1] {
			if v != "" {
				return n
			}
		}
	}
	return 0
}

// trim drops trailing empty cells and rows, like the values API does.
func trim(rows [][]string) [][]string {
	for i := range rows {
		n := len(rows[i])
		for n > 0 && rows[i][n-1] == "" {
			n--
		}
		rows[i] = rows[i][:n]
	}
	n := len(rows)
	for n > 0 && len(rows[n-1]) == 0 {
		n--
	}
	return rows[:n]
}
