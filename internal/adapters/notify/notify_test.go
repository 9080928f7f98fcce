package notify_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okian/gamesdesk/internal/adapters/notify"
	"github.com/okian/gamesdesk/pkg/logger"
)

func init() {
	_ = logger.Init()
}

// redirect sends every request to the test server regardless of host.
type redirect struct{ target *url.URL }

func (r redirect) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.URL.Scheme = r.target.Scheme
	req.URL.Host = r.target.Host
	return http.DefaultTransport.RoundTrip(req)
}

type failing struct{ calls int }

func (f *failing) Name() string { return "failing" }
func (f *failing) Send(context.Context, string) error {
	f.calls++
	return errors.New("down")
}

func TestSlack(t *testing.T) {
	var got map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/services/T/B/X", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		if got["text"] == "reject" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	s := notify.NewSlack(server.URL+"/services/T/B/X", server.Client())
	require.NoError(t, s.Send(context.Background(), "run finished"))
	assert.Equal(t, "run finished", got["text"])

	err := s.Send(context.Background(), "reject")
	assert.True(t, errors.Is(err, notify.ErrRejected))

	assert.True(t, errors.Is(notify.NewSlack("", nil).Send(context.Background(), "x"), notify.ErrBadWebhook))
}

func TestDiscord(t *testing.T) {
	var path, content string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		var body map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		content, _ = body["content"].(string)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()
	target, _ := url.Parse(server.URL)

	d, err := notify.NewDiscord("https://discord.com/api/webhooks/123/tok-en", &http.Client{Transport: redirect{target: target}})
	require.NoError(t, err)
	require.NoError(t, d.Send(context.Background(), strings.Repeat("a", 2500)))
	assert.True(t, strings.HasSuffix(path, "/webhooks/123/tok-en"), path)
	assert.Equal(t, 2000, len([]rune(content)))

	for _, bad := range []string{"", "not a url", "https://discord.com/api/channels/1"} {
		_, err := notify.NewDiscord(bad, nil)
		assert.True(t, errors.Is(err, notify.ErrBadWebhook), bad)
	}
}

func TestNotifier(t *testing.T) {
	f := &failing{}
	n := notify.New(nil, f, f)
	assert.Equal(t, 2, n.Len())
	n.Notify(context.Background(), "hello")
	assert.Equal(t, 2, f.calls)

	var empty *notify.Notifier
	assert.NotPanics(t, func() { empty.Notify(context.Background(), "hello") })
	assert.Equal(t, 0, empty.Len())
}
