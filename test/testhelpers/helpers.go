// Package testhelpers provides common utilities for integration-testing the
// messenger: assembling a full server over httptest and driving the HTTP and
// WebSocket protocol the way a conforming client would.
package testhelpers

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/andreireporter13/terminal-messenger/internal/auth"
	"github.com/andreireporter13/terminal-messenger/internal/server"
	"github.com/andreireporter13/terminal-messenger/internal/store"
)

// TestSecret signs tokens in integration tests.
const TestSecret = "integration-test-secret"

// Messenger bundles a fully assembled server with the httptest listener in
// front of it.
type Messenger struct {
	Server *server.Server
	HTTP   *httptest.Server
	Tokens *auth.TokenService
}

// Start assembles a messenger with the default configuration.
func Start(t *testing.T) *Messenger {
	t.Helper()
	return StartWithConfig(t, server.DefaultConfig())
}

// StartWithConfig assembles a messenger with a custom configuration.
func StartWithConfig(t *testing.T, cfg server.Config) *Messenger {
	t.Helper()

	users, err := store.NewCredentialStore()
	require.NoError(t, err)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	tokens := auth.NewTokenService([]byte(TestSecret), time.Hour)
	srv := server.New(cfg, log, users, tokens)

	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)

	return &Messenger{Server: srv, HTTP: ts, Tokens: tokens}
}

// PostJSON sends a JSON body and decodes the JSON response.
func (m *Messenger) PostJSON(t *testing.T, path string, body any) (int, map[string]any) {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(m.HTTP.URL+path, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	defer resp.Body.Close()

	var parsed map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&parsed))
	return resp.StatusCode, parsed
}

// Register creates a user and fails the test on any non-200 response.
func (m *Messenger) Register(t *testing.T, username, password string) {
	t.Helper()
	status, _ := m.PostJSON(t, "/register/", map[string]string{"username": username, "password": password})
	require.Equal(t, http.StatusOK, status)
}

// Login authenticates and returns the bearer token.
func (m *Messenger) Login(t *testing.T, username, password string) string {
	t.Helper()
	status, body := m.PostJSON(t, "/login/", map[string]string{"username": username, "password": password})
	require.Equal(t, http.StatusOK, status)
	token, _ := body["access_token"].(string)
	require.NotEmpty(t, token)
	return token
}

// WebSocketURL returns the ws:// endpoint, optionally with a token.
func (m *Messenger) WebSocketURL(token string) string {
	wsURL := "ws" + strings.TrimPrefix(m.HTTP.URL, "http") + "/ws"
	if token != "" {
		wsURL += "?token=" + token
	}
	return wsURL
}

// Connect dials the WebSocket endpoint with the given token.
func (m *Messenger) Connect(t *testing.T, token string) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.DefaultDialer.Dial(m.WebSocketURL(token), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// ConnectUser registers, logs in, and connects in one step.
func (m *Messenger) ConnectUser(t *testing.T, username, password string) *websocket.Conn {
	t.Helper()
	m.Register(t, username, password)
	return m.Connect(t, m.Login(t, username, password))
}

// SendEnvelope writes one {"to","msg"} frame.
func SendEnvelope(t *testing.T, conn *websocket.Conn, to, msg string) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(map[string]string{"to": to, "msg": msg}))
}

// ReadText reads one text frame with a deadline.
func ReadText(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, frame, err := conn.ReadMessage()
	require.NoError(t, err)
	return string(frame)
}

// ReadClose expects the next read to end with a close frame and returns it.
func ReadClose(t *testing.T, conn *websocket.Conn) *websocket.CloseError {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	closeErr, ok := err.(*websocket.CloseError)
	require.True(t, ok, "expected close error, got %v", err)
	return closeErr
}

// WaitOnline blocks until the expected number of sessions are attached.
func (m *Messenger) WaitOnline(t *testing.T, count int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return m.Server.Registry().Len() == count
	}, 2*time.Second, 10*time.Millisecond)
}
