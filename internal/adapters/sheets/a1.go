package sheets

import (
	"fmt"
	"strconv"
	"strings"
)

// Row numbers of the fixed sheet layout.
const (
	HeaderRow    = 1
	TemplateRow  = 2
	FirstDataRow = 3
)

// ColumnLetter turns a zero-based column index into A1 letters.
func ColumnLetter(idx int) string {
	if idx < 0 {
		return ""
	}
	var b []byte
	for n := idx + 1; n > 0; n = (n - 1) / 26 {
		b = append([]byte{byte('A' + (n-1)%26)}, b...)
	}
	return string(b)
}

// columnIndex is the inverse of ColumnLetter; it returns -1 for bad input.
func columnIndex(letters string) int {
	if letters == "" {
		return -1
	}
	n := 0
	for _, r := range strings.ToUpper(letters) {
		if r < 'A' || r > 'Z' {
			return -1
		}
		n = n*26 + int(r-'A'+1)
	}
	return n - 1
}

// QuoteTab quotes a tab name for use in an A1 range.
func QuoteTab(tab string) string {
	return "'" + strings.ReplaceAll(tab, "'", "''") + "'"
}

// CellRange addresses a rectangle; row numbers are one-based, columns
// zero-based. endRow 0 leaves the range open downwards.
func CellRange(tab string, startCol, startRow, endCol, endRow int) string {
	if endRow <= 0 {
		return fmt.Sprintf("%s!%s%d:%s", QuoteTab(tab), ColumnLetter(startCol), startRow, ColumnLetter(endCol))
	}
	return fmt.Sprintf("%s!%s%d:%s%d", QuoteTab(tab), ColumnLetter(startCol), startRow, ColumnLetter(endCol), endRow)
}

// TabRange addresses a whole tab.
func TabRange(tab string) string { return QuoteTab(tab) }

// a1 is a parsed range. Zero-based; -1 means unbounded.
type a1 struct {
	tab        string
	col1, row1 int
	col2, row2 int
}

func parseA1(rng string) (a1, error) {
	out := a1{col1: 0, row1: 0, col2: -1, row2: -1}
	tab, cells := rng, ""
	if i := strings.LastIndex(rng, "!"); i >= 0 {
		tab, cells = rng[:i], rng[i+1:]
	}
	if strings.HasPrefix(tab, "'") && strings.HasSuffix(tab, "'") && len(tab) >= 2 {
		tab = strings.ReplaceAll(tab[1:len(tab)-1], "''", "'")
	}
	if tab == "" {
		return out, fmt.Errorf("%w: %q", ErrBadRange, rng)
	}
	out.tab = tab
	if cells == "" {
		return out, nil
	}
	from, to, hasTo := strings.Cut(cells, ":")
	c, r, err := parseCell(from)
	if err != nil {
		return out, fmt.Errorf("%w: %q", ErrBadRange, rng)
	}
	if c >= 0 {
		out.col1 = c
	}
	if r >= 0 {
		out.row1 = r
	}
	if !hasTo {
		out.col2, out.row2 = c, r
		return out, nil
	}
	c, r, err = parseCell(to)
	if err != nil {
		return out, fmt.Errorf("%w: %q", ErrBadRange, rng)
	}
	out.col2, out.row2 = c, r
	return out, nil
}

// parseCell splits "AB12" into (27, 11); a missing part is -1.
func parseCell(s string) (int, int, error) {
	i := 0
	for i < len(s) && (s[i] >= 'A' && s[i] <= 'Z' || s[i] >= 'a' && s[i] <= 'z') {
		i++
	}
	col, row := -1, -1
	if i > 0 {
		col = columnIndex(s[:i])
	}
	if i < len(s) {
		n, err := strconv.Atoi(s[i:])
		if err != nil || n < 1 {
			return 0, 0, fmt.Errorf("bad row in %q", s)
		}
		row = n - 1
	}
	if col < 0 && row < 0 {
		return 0, 0, fmt.Errorf("empty cell %q", s)
	}
	return col, row, nil
}
