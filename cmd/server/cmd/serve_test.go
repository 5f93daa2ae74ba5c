package cmd

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventplanner/config"
	"eventplanner/internal/notify"
)

func memoryConfig() *config.Config {
	return &config.Config{
		Port:               "0",
		StoreDriver:        config.StoreDriverMemory,
		JWTSecret:          "secret",
		JWTExpiry:          time.Hour,
		RequestTimeout:     time.Second,
		AllowedOrigins:     []string{"*"},
		LoginRatePerMinute: 10,
		LoginBurst:         5,
		HubBufferSize:      4,
		DispatchQueueSize:  4,
		Mailer:             config.MailerConfig{Provider: "noop"},
	}
}

func TestNewApp_MemoryStore(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	a, err := newApp(context.Background(), memoryConfig(), logger)
	require.NoError(t, err)
	defer a.close()

	for _, path := range []string{"/healthz", "/events", "/users"} {
		rec := httptest.NewRecorder()
		a.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestApp_RunShutsDownInOrder(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	a, err := newApp(context.Background(), memoryConfig(), logger)
	require.NoError(t, err)
	defer a.close()

	sub, err := a.hub.Subscribe()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- a.run(ctx, &http.Server{Addr: "127.0.0.1:0", Handler: a.handler})
	}()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return")
	}

	_, open := <-sub.C()
	assert.False(t, open, "hub subscriptions are closed on shutdown")
	_, err = a.hub.Subscribe()
	assert.ErrorIs(t, err, notify.ErrHubClosed)
}
