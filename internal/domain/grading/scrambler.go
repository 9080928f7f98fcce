package grading

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-andiamo/splitter"
)

const scramblerGame = "scrambler"

var (
	wordSeparators = regexp.MustCompile(`(?i)\b(?:or|and)\b`)
	markSeparators = strings.NewReplacer("•", ",", "·", ",", "|", ",", ";", ",", "/", ",", "\n", ",")
	wideGap        = regexp.MustCompile(`\s{2,}`)
	nonLetters     = regexp.MustCompile(`[^A-Za-z]+`)

	commaSplitter, _ = splitter.NewSplitter(',', splitter.DoubleQuotes, splitter.LeftRightDoubleDoubleQuotes)
)

// IsScrambler reports whether a game's rubric is derived from its answer
// list instead of the grading service.
func IsScrambler(game string) bool {
	return strings.EqualFold(strings.TrimSpace(game), scramblerGame)
}

// AcceptedAnswers splits a Scrambler answer cell into its accepted answers,
// in order, dropping entries that repeat an earlier one letter for letter.
func AcceptedAnswers(cell string) []string {
	s := strings.TrimSpace(cell)
	if s == "" {
		return nil
	}
	s = wordSeparators.ReplaceAllString(s, ",")
	s = markSeparators.Replace(s)

	parts, err := commaSplitter.Split(s)
	if err != nil {
		parts = strings.Split(s, ",")
	}
	parts = nonEmpty(parts)
	if len(parts) == 1 {
		if gaps := nonEmpty(wideGap.Split(parts[0], -1)); len(gaps) > 1 {
			parts = gaps
		}
	}

	var out []string
	seen := map[string]bool{}
	for _, p := range parts {
		letters := strings.ToLower(nonLetters.ReplaceAllString(p, ""))
		if letters == "" || seen[letters] {
			continue
		}
		seen[letters] = true
		out = append(out, p)
	}
	return out
}

// ScramblerRubric builds the rubric for a Scrambler window.
func ScramblerRubric(question, answer string) string {
	accepted := AcceptedAnswers(answer)
	switch len(accepted) {
	case 0:
		return fmt.Sprintf("Accepted answer: must use all and only the letters from %s.", strings.TrimSpace(question))
	case 1:
		return "Accepted answer: " + accepted[0]
	default:
		return "Accepted answers: " + strings.Join(accepted, ", ")
	}
}

func nonEmpty(parts []string) []string {
	out := parts[:0]
	for _, p := range parts {
		p = strings.TrimSpace(strings.Trim(strings.TrimSpace(p), "\"“”"))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
