package notifications

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"astroweather/internal/config"
	"astroweather/internal/external"
	"astroweather/internal/types"
)

func pushoverClient(server *httptest.Server) *PushoverClient {
	httpClient := external.NewClient(
		server.Client(), "pushover-test", external.DefaultRetryPolicy(), "astroweather-test")
	cfg := config.NotifyConfig{
		PushoverToken: types.SecretString("app-token"),
		PushoverUser:  types.SecretString("user-key"),
		PushoverURL:   server.URL,
	}
	return NewPushoverClient(httpClient, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestPushoverClient_Send_Success(t *testing.T) {
	var gotForm map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotForm = map[string]string{
			"token":    r.PostForm.Get("token"),
			"user":     r.PostForm.Get("user"),
			"title":    r.PostForm.Get("title"),
			"priority": r.PostForm.Get("priority"),
		}
		w.Write([]byte(`{"status":1,"request":"abc123"}`))
	}))
	defer server.Close()

	err := pushoverClient(server).Send(context.Background(), "Clear skies", "tonight looks good", 0)
	require.NoError(t, err)

	assert.Equal(t, "app-token", gotForm["token"])
	assert.Equal(t, "user-key", gotForm["user"])
	assert.Equal(t, "Clear skies", gotForm["title"])
	assert.Equal(t, "0", gotForm["priority"])
}

func TestPushoverClient_Send_RejectedInBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":0,"errors":["user key is invalid"]}`))
	}))
	defer server.Close()

	err := pushoverClient(server).Send(context.Background(), "t", "m", 0)
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeUpstreamPushover, appErr.Code)
	assert.Contains(t, appErr.Message, "user key is invalid")
}

func TestPushoverClient_Send_ClientErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"status":0}`, http.StatusBadRequest)
	}))
	defer server.Close()

	err := pushoverClient(server).Send(context.Background(), "t", "m", 0)
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeUpstreamPushover, appErr.Code)
}
