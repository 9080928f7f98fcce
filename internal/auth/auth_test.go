package auth_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/okian/gamesdesk/internal/auth"
	"github.com/okian/gamesdesk/pkg/logger"
)

func init() {
	_ = logger.Init()
}

const clientJSON = `{"installed":{"client_id":"cid.apps.googleusercontent.com","client_secret":"secret",
"auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token",
"redirect_uris":["http://localhost"]}}`

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()

	_, err := auth.LoadConfig(filepath.Join(dir, "missing.json"))
	var cerr *auth.CredentialsError
	require.True(t, errors.As(err, &cerr))
	assert.True(t, errors.Is(err, auth.ErrCredentials))
	assert.Contains(t, cerr.Hint(), "missing.json")

	path := filepath.Join(dir, "credentials.json")
	require.NoError(t, os.WriteFile(path, []byte(clientJSON), 0o600))
	cfg, err := auth.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "cid.apps.googleusercontent.com", cfg.ClientID)
	assert.ElementsMatch(t, auth.Scopes, cfg.Scopes)
}

func TestTokenFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "token.json")

	_, err := auth.Client(context.Background(), &oauth2.Config{}, path)
	var terr *auth.TokenError
	require.True(t, errors.As(err, &terr))
	assert.Contains(t, terr.Hint(), "gamesdesk authorize")

	tok := &oauth2.Token{AccessToken: "at", RefreshToken: "rt", TokenType: "Bearer", Expiry: time.Now().Add(time.Hour)}
	require.NoError(t, auth.SaveToken(path, tok))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err := auth.ReadToken(path)
	require.NoError(t, err)
	assert.Equal(t, "rt", got.RefreshToken)

	client, err := auth.Client(context.Background(), &oauth2.Config{}, path)
	require.NoError(t, err)
	assert.NotNil(t, client)

	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o600))
	_, err = auth.ReadToken(path)
	assert.True(t, errors.Is(err, auth.ErrToken))
}

// lineWriter hands every write to a channel.
type lineWriter struct {
	mu  sync.Mutex
	out chan string
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	select {
	case w.out <- string(p):
	default:
	}
	return len(p), nil
}

func TestAuthorize(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "the-code", r.PostForm.Get("code"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"access_token":"fresh","refresh_token":"keep","token_type":"Bearer","expires_in":3600}`)
	}))
	defer tokenServer.Close()

	cfg := &oauth2.Config{
		ClientID:     "cid",
		ClientSecret: "secret",
		Endpoint:     oauth2.Endpoint{AuthURL: "https://accounts.example/auth", TokenURL: tokenServer.URL},
		Scopes:       auth.Scopes,
	}
	path := filepath.Join(t.TempDir(), "token.json")
	out := &lineWriter{out: make(chan string, 4)}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- auth.Authorize(ctx, cfg, path, out) }()

	var consent string
	select {
	case consent = <-out.out:
	case <-ctx.Done():
		t.Fatal("no consent url printed")
	}
	raw := regexp.MustCompile(`https://\S+`).FindString(consent)
	u, err := url.Parse(raw)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "offline", q.Get("access_type"))
	redirect := q.Get("redirect_uri")
	require.NotEmpty(t, redirect)

	resp, err := http.Get(redirect + "?state=wrong&code=x")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Get(redirect + "?state=" + url.QueryEscape(q.Get("state")) + "&code=the-code")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, <-done)
	tok, err := auth.ReadToken(path)
	require.NoError(t, err)
	assert.Equal(t, "fresh", tok.AccessToken)
	assert.Equal(t, "keep", tok.RefreshToken)
}
