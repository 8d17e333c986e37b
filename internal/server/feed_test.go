package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/eventscope/internal/config"
	"github.com/zeusync/eventscope/internal/core/models"
)

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(url, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestHubBroadcast(t *testing.T) {
	hub := NewHub(nil)
	s := httptest.NewServer(hub)
	defer s.Close()

	conn := dial(t, s.URL)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 10*time.Millisecond)

	want := Snapshot{
		Reason:     "scan.full",
		At:         time.Unix(0, 0).UTC(),
		Containers: []models.SceneStatistics{{Container: "Level1", Listeners: 1}},
		Totals:     models.SceneStatistics{Listeners: 1},
	}
	require.NoError(t, hub.Broadcast(want))

	var got Snapshot
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, want, got)
}

func TestHubReplaysLastSnapshot(t *testing.T) {
	hub := NewHub(nil)
	require.NoError(t, hub.Broadcast(Snapshot{Reason: "scan.full"}))

	s := httptest.NewServer(hub)
	defer s.Close()
	conn := dial(t, s.URL)

	var got Snapshot
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, "scan.full", got.Reason)
}

func TestHubCloseDisconnects(t *testing.T) {
	hub := NewHub(nil)
	s := httptest.NewServer(hub)
	defer s.Close()

	conn := dial(t, s.URL)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 10*time.Millisecond)
	hub.Close()
	assert.Zero(t, hub.Clients())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

func TestHTTPServerRoutes(t *testing.T) {
	cfg := config.Defaults().Serve
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	srv := NewHTTPServer(cfg, NewHub(nil), metrics, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, cfg.MetricsPath, nil))
	assert.Equal(t, "ok", rec.Body.String())

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHTTPServerStopsOnCancel(t *testing.T) {
	cfg := config.Defaults().Serve
	cfg.Addr = "127.0.0.1:0"
	srv := NewHTTPServer(cfg, NewHub(nil), nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}
