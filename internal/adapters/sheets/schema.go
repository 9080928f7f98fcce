package sheets

import (
	"sort"
	"strings"
	"unicode"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Column describes one header the code depends on.
type Column struct {
	Name     string
	Aliases  []string
	Required bool
}

// Schema is the column contract of one tab.
type Schema struct {
	Tab     string
	Columns []Column
}

// Column names.
const (
	ColGame        = "Game"
	ColStart       = "Start Time"
	ColEnd         = "End Time"
	ColQuestion    = "Question"
	ColAnswer      = "Answer"
	ColPrompt      = "AI Grading Prompt"
	ColTimestamp   = "Timestamp"
	ColFirstName   = "First Name"
	ColLastInitial = "Last Name Initial"
	ColEmail       = "Email"
	ColAIGrade     = "AI Grade"
	ColConfidence  = "AI Confidence"
	ColOverride    = "Override"
	ColLink        = "Link"
	ColSwagName    = "Swag Winner"
	ColSwagEmail   = "Swag Winner Email"
	ColSwagLink    = "Swag Winner Link"
	ColWinners     = "Winners"
	ColWinnerMails = "Winner Emails"
	ColFullText    = "Full Text"
)

// GamesSchema describes the Games tab.
func GamesSchema(tab string) Schema {
	return Schema{Tab: tab, Columns: []Column{
		{Name: ColGame, Aliases: []string{"Game Type"}, Required: true},
		{Name: ColStart, Aliases: []string{"Start", "Start Date"}, Required: true},
		{Name: ColEnd, Aliases: []string{"End", "End Date"}, Required: true},
		{Name: ColQuestion, Aliases: []string{"Clue", "Riddle"}, Required: true},
		{Name: ColAnswer, Aliases: []string{"Accepted Answer", "Accepted Answers", "Answers"}, Required: true},
		{Name: ColPrompt, Aliases: []string{"AI Grading Instructions", "Grading Prompt", "Rubric"}, Required: true},
	}}
}

// SubmissionsSchema describes the Submissions tab. The grading and link
// columns are optional and get added when absent.
func SubmissionsSchema(tab string) Schema {
	return Schema{Tab: tab, Columns: []Column{
		{Name: ColGame, Required: true},
		{Name: ColTimestamp, Aliases: []string{"Date", "Submitted At"}, Required: true},
		{Name: ColFirstName, Aliases: []string{"First"}, Required: true},
		{Name: ColLastInitial, Aliases: []string{"Last Initial", "Last Name"}, Required: true},
		{Name: ColEmail, Aliases: []string{"Email Address"}, Required: true},
		{Name: ColAnswer, Aliases: []string{"Response", "Submission"}, Required: true},
		{Name: ColAIGrade, Aliases: []string{"Grade"}},
		{Name: ColConfidence, Aliases: []string{"Confidence"}},
		{Name: ColOverride, Aliases: []string{"Human Override", "Manual Override"}},
		{Name: ColLink, Aliases: []string{"Email Link", "Message Link"}},
	}}
}

// WinnersSchema describes the Winners tab.
func WinnersSchema(tab string) Schema {
	return Schema{Tab: tab, Columns: []Column{
		{Name: ColStart, Aliases: []string{"Start"}, Required: true},
		{Name: ColEnd, Aliases: []string{"End"}, Required: true},
		{Name: ColGame, Required: true},
		{Name: ColSwagName, Required: true},
		{Name: ColSwagEmail, Required: true},
		{Name: ColWinners, Aliases: []string{"All Winners"}, Required: true},
		{Name: ColWinnerMails, Aliases: []string{"All Winner Emails"}, Required: true},
		{Name: ColFullText, Aliases: []string{"Newsletter Text", "Summary"}, Required: true},
		{Name: ColSwagLink},
		{Name: ColQuestion},
		{Name: ColAnswer},
	}}
}

// PastWinnersSchema describes the recent past winners tab.
func PastWinnersSchema(tab string) Schema {
	return Schema{Tab: tab, Columns: []Column{
		{Name: ColEmail, Aliases: []string{"Email Address", "Emails"}, Required: true},
	}}
}

// Binding maps column names to zero-based positions in one header row.
type Binding struct {
	Tab    string
	Width  int
	index  map[string]int
	absent []Column
}

// Index returns the position of a column, or -1.
func (b Binding) Index(name string) int {
	if i, ok := b.index[name]; ok {
		return i
	}
	return -1
}

// Has reports whether a column is present.
func (b Binding) Has(name string) bool { return b.Index(name) >= 0 }

// Absent lists optional columns not found in the header.
func (b Binding) Absent() []Column { return b.absent }

// Cell reads a column from a row, tolerating short rows.
func (b Binding) Cell(row []string, name string) string {
	i := b.Index(name)
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// Put writes value into row at the column's position, growing row as needed.
func (b Binding) Put(row []string, name, value string) []string {
	i := b.Index(name)
	if i < 0 {
		return row
	}
	for len(row) <= i {
		row = append(row, "")
	}
	row[i] = value
	return row
}

// Bind matches a header row against the schema. Exact matches on the name
// or an alias win; remaining columns fall back to fuzzy matching against
// unclaimed headers. A missing required column is a MissingColumnError.
func (s Schema) Bind(header []string) (Binding, error) {
	b := Binding{Tab: s.Tab, Width: len(header), index: map[string]int{}}
	claimed := map[int]bool{}

	normalized := make([]string, len(header))
	for i, h := range header {
		normalized[i] = normalizeHeader(h)
	}

	var pending []Column
	for _, col := range s.Columns {
		found := -1
		for _, name := range append([]string{col.Name}, col.Aliases...) {
			want := normalizeHeader(name)
			for i, h := range normalized {
				if h != "" && h == want && !claimed[i] {
					found = i
					break
				}
			}
			if found >= 0 {
				break
			}
		}
		if found < 0 {
			pending = append(pending, col)
			continue
		}
		b.index[col.Name] = found
		claimed[found] = true
	}

	for _, col := range pending {
		if i := fuzzyHeader(col, header, claimed); i >= 0 {
			b.index[col.Name] = i
			claimed[i] = true
			continue
		}
		if col.Required {
			return b, &MissingColumnError{Tab: s.Tab, Column: col.Name}
		}
		b.absent = append(b.absent, col)
	}
	return b, nil
}

// fuzzyHeader finds the closest unclaimed header that contains the column
// name as a subsequence, e.g. "Timestamp (EST)" for "Timestamp".
func fuzzyHeader(col Column, header []string, claimed map[int]bool) int {
	var free []string
	var pos []int
	for i, h := range header {
		if !claimed[i] && strings.TrimSpace(h) != "" {
			free = append(free, h)
			pos = append(pos, i)
		}
	}
	if len(free) == 0 {
		return -1
	}
	var ranks fuzzy.Ranks
	for _, name := range append([]string{col.Name}, col.Aliases...) {
		ranks = append(ranks, fuzzy.RankFindNormalizedFold(name, free)...)
	}
	if len(ranks) == 0 {
		return -1
	}
	sort.Stable(ranks)
	best := ranks[0]
	// Reject matches where most of the header is unrelated text.
	if best.Distance > len(best.Source)+len(best.Source)/2 {
		return -1
	}
	return pos[best.OriginalIndex]
}

func normalizeHeader(h string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(h) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
