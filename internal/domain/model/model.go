// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"strings"
	"time"
)

// TimestampLayout is the canonical minute-resolution timestamp written to
// the Submissions tab.
const TimestampLayout = "01/02/2006 03:04 PM"

// Grade is the automated verdict stored in the AI Grade column.
type Grade string

const (
	GradeUnset     Grade = ""
	GradeCorrect   Grade = "Correct"
	GradeIncorrect Grade = "Incorrect"
	GradeUncertain Grade = "Uncertain"
)

// ParseGrade reads a cell value, ignoring case and surrounding space.
// Unrecognised text is treated as Uncertain so it is never regraded.
func ParseGrade(s string) Grade {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return GradeUnset
	case "correct":
		return GradeCorrect
	case "incorrect":
		return GradeIncorrect
	default:
		return GradeUncertain
	}
}

// Override is the human decision stored in the Override column.
type Override string

const (
	OverrideUnset     Override = ""
	OverrideCorrect   Override = "Correct"
	OverrideIncorrect Override = "Incorrect"
)

// ParseOverride reads a cell value. Anything other than correct/incorrect
// counts as unset.
func ParseOverride(s string) Override {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "correct", "yes", "y":
		return OverrideCorrect
	case "incorrect", "no", "n":
		return OverrideIncorrect
	default:
		return OverrideUnset
	}
}

// Confidence is a 0-100 grading confidence. An unknown confidence renders
// as N/A.
type Confidence struct {
	Value int
	Known bool
}

// ConfidenceOf clamps v into 0-100 and marks it known.
func ConfidenceOf(v int) Confidence {
	if v < 0 {
		v = 0
	}
	if v > 100 {
		v = 100
	}
	return Confidence{Value: v, Known: true}
}

func (c Confidence) String() string {
	if !c.Known {
		return "N/A"
	}
	return fmt.Sprintf("%d%%", c.Value)
}

// GameWindow is one playable puzzle instance.
type GameWindow struct {
	Row      int
	Game     string
	Start    time.Time
	End      time.Time
	Question string
	Answer   string

	// Guidance is human-authored grading advice kept alongside the rubric.
	Guidance string
	// Rubric is the grading logic sent to the grader.
	Rubric string
	// RubricMachineAuthored is set once a rubric has been generated and
	// stored; such rubrics are never regenerated.
	RubricMachineAuthored bool
}

// Key identifies the window for winner stability lookups.
func (w GameWindow) Key() WindowKey {
	return WindowKey{Start: w.Start.Unix(), End: w.End.Unix(), Game: strings.ToLower(strings.TrimSpace(w.Game))}
}

// Contains reports whether at falls inside the window, both ends inclusive.
func (w GameWindow) Contains(at time.Time) bool {
	return !at.Before(w.Start) && !at.After(w.End)
}

// WindowKey is the (start, end, game) identity of a window.
type WindowKey struct {
	Start int64
	End   int64
	Game  string
}

// Submission is one reader's attempt at one puzzle instance.
type Submission struct {
	Row         int
	Game        string
	SubmittedAt time.Time
	FirstName   string
	LastInitial string
	Email       string
	Answer      string

	AIGrade      Grade
	AIConfidence Confidence
	Override     Override
	Link         string
}

// DisplayName renders "First L." or just "First" without an initial.
func (s Submission) DisplayName() string {
	first := strings.TrimSpace(s.FirstName)
	initial := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s.LastInitial), "."))
	if first == "" {
		return ""
	}
	if initial == "" {
		return first
	}
	return first + " " + initial + "."
}

// Graded reports whether the automated grade has been written.
func (s Submission) Graded() bool { return s.AIGrade != GradeUnset }

// EffectivelyCorrect applies override precedence over the automated grade.
func (s Submission) EffectivelyCorrect() bool {
	switch s.Override {
	case OverrideCorrect:
		return true
	case OverrideIncorrect:
		return false
	default:
		return s.AIGrade == GradeCorrect
	}
}

// WinnerRecord is the derived per-window result.
type WinnerRecord struct {
	Game      string
	Start     time.Time
	End       time.Time
	SwagName  string
	SwagEmail string
	SwagLink  string
	Names     []string
	Emails    []string
	Summary   string
	Question  string
	Answer    string
}

// Key identifies the record's window.
func (r WinnerRecord) Key() WindowKey {
	return WindowKey{Start: r.Start.Unix(), End: r.End.Unix(), Game: strings.ToLower(strings.TrimSpace(r.Game))}
}

// RawMessage is a mail message as fetched from the mail backend.
type RawMessage struct {
	ID       string
	Game     string
	From     string
	ReplyTo  string
	Subject  string
	Date     string
	Received time.Time
	Payload  *MessagePart
	Link     string
}

// MessagePart is one node of a MIME tree. Body holds decoded bytes.
type MessagePart struct {
	MimeType string
	Body     []byte
	Parts    []*MessagePart
}
