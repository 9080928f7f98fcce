// Package auth loads the Google OAuth client, keeps the user token on disk
// and runs the one-time consent flow.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/sheets/v4"

	"github.com/okian/gamesdesk/pkg/logger"
)

const tokenFileMode = 0o600

// Scopes requested for the workbook and the mailbox.
var Scopes = []string{sheets.SpreadsheetsScope, gmail.GmailReadonlyScope}

// LoadConfig reads an OAuth client JSON file.
func LoadConfig(credentialsFile string) (*oauth2.Config, error) {
	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, &CredentialsError{Path: credentialsFile, Err: err}
	}
	cfg, err := google.ConfigFromJSON(b, Scopes...)
	if err != nil {
		return nil, &CredentialsError{Path: credentialsFile, Err: err}
	}
	return cfg, nil
}

// ReadToken loads a token saved by SaveToken.
func ReadToken(path string) (*oauth2.Token, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, &TokenError{Path: path, Err: err}
	}
	tok := &oauth2.Token{}
	if err := json.Unmarshal(b, tok); err != nil {
		return nil, &TokenError{Path: path, Err: err}
	}
	if tok.AccessToken == "" && tok.RefreshToken == "" {
		return nil, &TokenError{Path: path, Err: errors.New("token file holds no token")}
	}
	return tok, nil
}

// SaveToken writes tok to path, readable only by the owner.
func SaveToken(path string, tok *oauth2.Token) error {
	b, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create token dir: %w", err)
		}
	}
	if err := os.WriteFile(path, b, tokenFileMode); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	return nil
}

// Client returns an HTTP client authorized with the stored token. Refreshed
// tokens are written back to the token file.
func Client(ctx context.Context, cfg *oauth2.Config, tokenFile string) (*http.Client, error) {
	tok, err := ReadToken(tokenFile)
	if err != nil {
		return nil, err
	}
	src := &savingSource{
		base: cfg.TokenSource(ctx, tok),
		path: tokenFile,
		last: tok.AccessToken,
		log:  logger.Named("auth"),
		ctx:  ctx,
	}
	return oauth2.NewClient(ctx, oauth2.ReuseTokenSource(tok, src)), nil
}

// savingSource persists a token whenever the underlying source refreshes it.
type savingSource struct {
	base oauth2.TokenSource
	path string
	log  logger.Logger
	ctx  context.Context //nolint:containedctx // only used for logging

	mu   sync.Mutex
	last string
}

func (s *savingSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, &TokenError{Path: s.path, Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken != s.last {
		s.last = tok.AccessToken
		if err := SaveToken(s.path, tok); err != nil {
			s.log.Warn(s.ctx, "refreshed token not saved", logger.String("path", s.path), logger.Error(err))
		}
	}
	return tok, nil
}
