package remote

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
)

// Sentinel error kinds for this package.
var (
	ErrFatal     = errors.New("remote call failed permanently")
	ErrExhausted = errors.New("remote call retries exhausted")
)

// FatalError is returned when the retry policy gives up on a call.
type FatalError struct {
	Op  string
	Err error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrFatal, e.Op, e.Err)
}

func (e *FatalError) Unwrap() []error { return []error{ErrFatal, e.Err} }

// Hint suggests the operator action for the underlying failure.
func (e *FatalError) Hint() string {
	var rerr *oauth2.RetrieveError
	if errors.As(e.Err, &rerr) {
		return "the saved token was rejected; run `gamesdesk authorize` to create a new one"
	}
	var gerr *googleapi.Error
	if !errors.As(e.Err, &gerr) {
		return "check network access and credentials, then rerun"
	}
	switch gerr.Code {
	case http.StatusUnauthorized:
		return "credentials are missing or expired; run `gamesdesk authorize`"
	case http.StatusForbidden:
		return "share the spreadsheet and mailbox with the authorized account"
	case http.StatusNotFound:
		return "check spreadsheet_id and the tab names in the config"
	case http.StatusBadRequest:
		if strings.Contains(gerr.Message, "Unable to parse range") {
			return "a configured tab name does not exist in the workbook"
		}
	}
	return "inspect the error above; the request was rejected as malformed"
}
