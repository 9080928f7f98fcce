package grading

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/okian/gamesdesk/internal/domain/model"
)

const rubricInstructions = `You are tasked with creating concise grading logic to evaluate if a user's answer to a riddle is correct.
Do not restate these general rules. Assume trivial differences like punctuation, capitalization, or filler words are ignored.
Be specific about variations or synonyms that should be accepted or rejected. Provide guidance in 1-3 sentences.`

const verdictInstructions = `You are grading a riddle submission that was copied from an email. The raw text may contain the user's answer plus non-answer content (e.g., signatures, legal disclaimers, quotes, addresses/phone numbers, URLs, reply headers, or other footers).

INSTRUCTIONS:
1) Identify the candidate answer: the earliest, shortest span that clearly attempts to answer the puzzle.
   • Prefer the first non-empty line(s) that read as an answer.
   • Stop when you reach common signature/disclaimer markers (mobile signatures, lines like "Sent from", "Regards", "Thank you", dash separators, quoted-reply markers such as "On ... wrote:"), or when content shifts to contact info, legal notices, or unrelated quotations.
   • If multiple guesses appear, grade the first clear answer.
2) Judge correctness ONLY using the candidate answer; ignore any trailing non-answer content.
3) Ignore case, punctuation, filler words, and trivial formatting differences. If the grading logic says to treat the answer in letters-only form, remove ALL non-letters (e.g., *, spaces, punctuation, markdown) before comparing.
4) Be faithful to the riddle's intended meaning per the grading logic.

Respond in this format exactly:
Correctness: Correct or Incorrect
Confidence: [number from 0 to 100]`

var (
	correctnessRe = regexp.MustCompile(`(?i)Correctness:\s*(Correct|Incorrect)`)
	confidenceRe  = regexp.MustCompile(`(?i)Confidence:\s*([0-9]+(?:\.[0-9]+)?)\s*%?`)
)

// RubricPrompt asks the grading service for grading logic for a window.
func RubricPrompt(w model.GameWindow) string {
	var b strings.Builder
	b.WriteString(rubricInstructions)
	if g := strings.TrimSpace(w.Guidance); g != "" {
		b.WriteString("\n\n")
		b.WriteString(g)
	}
	b.WriteString("\n\nRiddle Question: ")
	b.WriteString(w.Question)
	b.WriteString("\nCorrect Answer: ")
	b.WriteString(w.Answer)
	b.WriteString("\n\nProvide grading logic:")
	return b.String()
}

// VerdictPrompt asks the grading service to judge one raw answer against
// the window's guidance and rubric.
func VerdictPrompt(w model.GameWindow, answer string) string {
	var b strings.Builder
	if g := strings.TrimSpace(w.Guidance); g != "" {
		b.WriteString(g)
		b.WriteString("\n")
	}
	b.WriteString("Grading logic: ")
	b.WriteString(strings.TrimSpace(w.Rubric))
	b.WriteString("\n\n")
	b.WriteString(verdictInstructions)
	b.WriteString("\n\nUser's raw message:\n")
	b.WriteString(strings.TrimSpace(answer))
	return b.String()
}

// ParseVerdict reads the two-line verdict out of free text. Confidences of
// at most 1.0 are read as fractions. Both lines must be present; otherwise
// the verdict is Uncertain with an unknown confidence.
func ParseVerdict(text string) (model.Grade, model.Confidence, error) {
	g := correctnessRe.FindStringSubmatch(text)
	c := confidenceRe.FindStringSubmatch(text)
	if g == nil || c == nil {
		return model.GradeUncertain, model.Confidence{}, ErrUnparsedVerdict
	}
	v, err := strconv.ParseFloat(c[1], 64)
	if err != nil {
		return model.GradeUncertain, model.Confidence{}, ErrUnparsedVerdict
	}
	if v <= 1.0 {
		v *= 100
	}
	grade := model.GradeIncorrect
	if strings.EqualFold(g[1], "correct") {
		grade = model.GradeCorrect
	}
	return grade, model.ConfidenceOf(int(v + 0.5)), nil
}
