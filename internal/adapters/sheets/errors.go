package sheets

import (
	"errors"
	"fmt"
)

// Sentinel error kinds for this package.
var (
	ErrMissingColumn = errors.New("required column missing")
	ErrBadRange      = errors.New("malformed A1 range")
	ErrEmptyTab      = errors.New("tab has no header row")
)

// MissingColumnError reports a required header that could not be found.
type MissingColumnError struct {
	Tab    string
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("%s: %q on tab %q", ErrMissingColumn, e.Column, e.Tab)
}

func (e *MissingColumnError) Unwrap() error { return ErrMissingColumn }

// Hint tells the operator how to repair the sheet.
func (e *MissingColumnError) Hint() string {
	return fmt.Sprintf("add a %q header to row 1 of the %q tab", e.Column, e.Tab)
}
