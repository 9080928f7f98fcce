package normalize

import (
	"errors"
	"fmt"
)

// ErrSkipped marks a message that is not a submission.
var ErrSkipped = errors.New("message skipped")

// Skip reasons.
const (
	ReasonDigest      = "digest"
	ReasonNoSender    = "no_sender"
	ReasonEmptyAnswer = "empty_answer"
	ReasonNoTimestamp = "no_timestamp"
)

// SkipError says why a message was not turned into a submission.
type SkipError struct {
	MessageID string
	Reason    string
}

func (e *SkipError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", ErrSkipped, e.MessageID, e.Reason)
}

func (e *SkipError) Unwrap() error { return ErrSkipped }

func skip(id, reason string) error { return &SkipError{MessageID: id, Reason: reason} }
