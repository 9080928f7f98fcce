package grading

import "errors"

var (
	// ErrGradingService wraps failures of the completion backend.
	ErrGradingService = errors.New("grading service failed")
	// ErrEmptyRubric is returned when the service produced no rubric text.
	ErrEmptyRubric = errors.New("grading service returned an empty rubric")
	// ErrUnparsedVerdict is returned when a reply lacks the verdict lines.
	ErrUnparsedVerdict = errors.New("verdict could not be parsed")
)
