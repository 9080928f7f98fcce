package sheets_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/okian/gamesdesk/internal/adapters/remote"
	"github.com/okian/gamesdesk/internal/adapters/sheets"
)

func TestAPIBackendRetriesQuotaErrors(t *testing.T) {
	var hits int32
	var updateBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodGet && strings.Contains(r.URL.Path, "/values/"):
			if atomic.AddInt32(&hits, 1) == 1 {
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = io.WriteString(w, `{"error":{"code":429,"message":"Quota exceeded for 'Read requests per minute per user'","errors":[{"reason":"rateLimitExceeded"}]}}`)
				return
			}
			_, _ = io.WriteString(w, `{"range":"Games!A1:B2","majorDimension":"ROWS","values":[["Game","Start Time"],["Riddler","2025-01-01"]]}`)
		case r.Method == http.MethodPut:
			body, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(body, &updateBody)
			assert.Equal(t, "USER_ENTERED", r.URL.Query().Get("valueInputOption"))
			_, _ = io.WriteString(w, `{"updatedCells":2}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	var slept time.Duration
	caller := remote.NewCaller(remote.WithSleeper(func(_ context.Context, d time.Duration) error {
		slept += d
		return nil
	}))

	ctx := context.Background()
	backend, err := sheets.NewAPIBackend(ctx, "sheet-1", caller,
		option.WithEndpoint(server.URL+"/"),
		option.WithHTTPClient(server.Client()),
	)
	require.NoError(t, err)

	rows, err := backend.Get(ctx, "'Games'")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Game", "Start Time"}, {"Riddler", "2025-01-01"}}, rows)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
	assert.Equal(t, 2*time.Minute, slept)

	require.NoError(t, backend.Update(ctx, "'Games'!F3:F3", [][]string{{"AI: x"}}))
	assert.Equal(t, []interface{}{[]interface{}{"AI: x"}}, updateBody["values"])
}

func TestAPIBackendFatalErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":{"code":400,"message":"Unable to parse range: Gmes","status":"INVALID_ARGUMENT"}}`)
	}))
	defer server.Close()

	ctx := context.Background()
	backend, err := sheets.NewAPIBackend(ctx, "sheet-1", remote.NewCaller(),
		option.WithEndpoint(server.URL+"/"),
		option.WithHTTPClient(server.Client()),
	)
	require.NoError(t, err)

	_, err = backend.Get(ctx, "'Gmes'")
	require.Error(t, err)
	var ferr *remote.FatalError
	require.ErrorAs(t, err, &ferr)
	assert.Contains(t, ferr.Hint(), "tab name")
}
