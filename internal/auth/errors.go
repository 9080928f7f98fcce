package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrCredentials marks an unusable OAuth client file.
	ErrCredentials = errors.New("oauth client credentials unusable")
	// ErrToken marks a missing or unreadable token file.
	ErrToken = errors.New("oauth token unusable")
	// ErrDenied is returned when consent is refused in the browser.
	ErrDenied = errors.New("authorization denied")
)

// CredentialsError is a fatal problem with the OAuth client file.
type CredentialsError struct {
	Path string
	Err  error
}

func (e *CredentialsError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrCredentials, e.Path, e.Err)
}

func (e *CredentialsError) Unwrap() []error { return []error{ErrCredentials, e.Err} }

// Hint tells the operator how to fix it.
func (e *CredentialsError) Hint() string {
	return fmt.Sprintf("download an OAuth client ID (Desktop app) JSON from the Google Cloud console and save it as %s, or point credentials_file at it", e.Path)
}

// TokenError is a fatal problem with the stored token.
type TokenError struct {
	Path string
	Err  error
}

func (e *TokenError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrToken, e.Path, e.Err)
}

func (e *TokenError) Unwrap() []error { return []error{ErrToken, e.Err} }

// Hint tells the operator how to fix it.
func (e *TokenError) Hint() string {
	return fmt.Sprintf("run `gamesdesk authorize` to create %s", e.Path)
}
