package remote_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okian/gamesdesk/internal/adapters/remote"
)

func TestTransportRetriesThrottledResponses(t *testing.T) {
	var hits int32
	var bodies []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(b))
		if atomic.AddInt32(&hits, 1) < 3 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = io.WriteString(w, `{"error":{"code":429,"message":"Quota exceeded per minute","errors":[{"reason":"rateLimitExceeded"}]}}`)
			return
		}
		_, _ = io.WriteString(w, `{"ok":true}`)
	}))
	defer server.Close()

	clock := newFakeClock()
	client := &http.Client{Transport: &remote.Transport{
		Caller: remote.NewCaller(remote.WithSleeper(clock.Sleep)),
		Op:     "test",
	}}

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, server.URL, strings.NewReader(`{"q":1}`))
	require.NoError(t, err)
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `{"ok":true}`, string(body))
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
	assert.Equal(t, []string{`{"q":1}`, `{"q":1}`, `{"q":1}`}, bodies)
	assert.Equal(t, 5*time.Minute, clock.Total())
}

func TestTransportPassesThroughClientErrors(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `{"error":{"code":403,"message":"The caller does not have permission"}}`)
	}))
	defer server.Close()

	clock := newFakeClock()
	client := &http.Client{Transport: &remote.Transport{
		Caller: remote.NewCaller(remote.WithSleeper(clock.Sleep)),
	}}

	resp, err := client.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Contains(t, string(body), "does not have permission")
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
	assert.Zero(t, clock.Total())
}

func TestTransportBoundedAttempts(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	clock := newFakeClock()
	client := &http.Client{Transport: &remote.Transport{
		Caller: remote.NewCaller(remote.WithSleeper(clock.Sleep), remote.WithMaxAttempts(2)),
	}}

	_, err := client.Get(server.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, remote.ErrExhausted)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}
