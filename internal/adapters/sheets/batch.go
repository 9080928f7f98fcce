package sheets

import "sort"

// CellWrite is a single cell to write, by one-based row and column name.
type CellWrite struct {
	Row    int
	Column string
	Value  string
}

// contiguous groups writes to one column into runs of consecutive rows and
// returns one ValueRange per run.
func contiguous(tab string, col int, writes map[int]string) []ValueRange {
	if len(writes) == 0 {
		return nil
	}
	rows := make([]int, 0, len(writes))
	for r := range writes {
		rows = append(rows, r)
	}
	sort.Ints(rows)

	var out []ValueRange
	start := 0
	for i := 1; i <= len(rows); i++ {
		if i < len(rows) && rows[i] == rows[i-1]+1 {
			continue
		}
		run := rows[start:i]
		values := make([][]string, len(run))
		for j, r := range run {
			values[j] = []string{writes[r]}
		}
		out = append(out, ValueRange{
			Range:  CellRange(tab, col, run[0], col, run[len(run)-1]),
			Values: values,
		})
		start = i
	}
	return out
}

// rowBlocks groups full-width row writes spanning columns [c1, c2] into
// runs of consecutive rows.
func rowBlocks(tab string, c1, c2 int, writes map[int][]string) []ValueRange {
	if len(writes) == 0 {
		return nil
	}
	rows := make([]int, 0, len(writes))
	for r := range writes {
		rows = append(rows, r)
	}
	sort.Ints(rows)

	var out []ValueRange
	start := 0
	for i := 1; i <= len(rows); i++ {
		if i < len(rows) && rows[i] == rows[i-1]+1 {
			continue
		}
		run := rows[start:i]
		values := make([][]string, len(run))
		for j, r := range run {
			values[j] = writes[r]
		}
		out = append(out, ValueRange{
			Range:  CellRange(tab, c1, run[0], c2, run[len(run)-1]),
			Values: values,
		})
		start = i
	}
	return out
}
