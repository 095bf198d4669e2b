// Package testhelpers provides common utilities and helper functions for
// testing the ChatWire server.
//
// It contains reusable utilities shared across the integration tests:
// assembling a fully wired test server, dialing WebSocket clients, and
// exchanging protocol envelopes with deadlines so a missing event fails
// the test instead of hanging it.
package testhelpers

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mwestri/chatwire/internal/chat"
	"github.com/mwestri/chatwire/internal/server"
)

// ChatServer bundles everything an integration test needs to talk to a
// running ChatWire instance.
type ChatServer struct {
	HTTP   *httptest.Server
	Hub    *server.Hub
	Router *chat.Router
	Config *server.Config
}

// StartChatServer assembles a complete server (router, hub, upload store,
// routes) on an ephemeral port and tears it down with the test. The
// customize callback may adjust the config before anything is built.
func StartChatServer(t *testing.T, customize func(cfg *server.Config)) *ChatServer {
	t.Helper()

	cfg := server.NewConfig()
	cfg.AllowedOrigins = []string{"*"}
	cfg.UploadDir = t.TempDir()
	// Integration tests exchange frames far faster than a human chats.
	cfg.RateLimit.Burst = 1000
	if customize != nil {
		customize(cfg)
	}

	router := chat.NewRouter(chat.NewRegistry(), chat.NewHistory(cfg.HistoryLimit))
	hub := server.NewHub(router, cfg)
	go hub.Run()

	uploads, err := server.NewUploadStore(cfg.UploadDir, cfg.MaxUploadSize)
	if err != nil {
		t.Fatalf("Failed to create upload store: %v", err)
	}

	handlers := server.NewHandlers(hub, uploads, cfg)
	testServer := httptest.NewServer(server.SetupRoutes(handlers))

	t.Cleanup(func() {
		testServer.Close()
		_ = hub.Shutdown(2 * time.Second)
	})

	return &ChatServer{HTTP: testServer, Hub: hub, Router: router, Config: cfg}
}

// WebSocketURL converts the test server's base URL into its WebSocket
// endpoint URL.
func (s *ChatServer) WebSocketURL() string {
	return "ws" + s.HTTP.URL[len("http"):] + "/ws"
}

// Dial opens a WebSocket connection to the test server with an Origin
// header the default test config accepts.
func (s *ChatServer) Dial(t *testing.T) *websocket.Conn {
	t.Helper()

	header := http.Header{}
	header.Set("Origin", s.HTTP.URL)

	conn, resp, err := websocket.DefaultDialer.Dial(s.WebSocketURL(), header)
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}
	_ = resp.Body.Close()

	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// SendEvent marshals and writes one protocol envelope.
func SendEvent(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()

	payload, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("Failed to marshal %s payload: %v", event, err)
	}
	frame, err := json.Marshal(chat.Envelope{Event: event, Data: payload})
	if err != nil {
		t.Fatalf("Failed to marshal %s envelope: %v", event, err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		t.Fatalf("Failed to send %s event: %v", event, err)
	}
}

// SendBareEvent writes an envelope with no payload, as typing signals do.
func SendBareEvent(t *testing.T, conn *websocket.Conn, event string) {
	t.Helper()

	frame, err := json.Marshal(chat.Envelope{Event: event})
	if err != nil {
		t.Fatalf("Failed to marshal %s envelope: %v", event, err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		t.Fatalf("Failed to send %s event: %v", event, err)
	}
}

// ReadEvent reads the next envelope off the connection, failing the test
// if nothing arrives within the timeout.
func ReadEvent(t *testing.T, conn *websocket.Conn, timeout time.Duration) chat.Envelope {
	t.Helper()

	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		t.Fatalf("Failed to set read deadline: %v", err)
	}
	_, frame, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read event: %v", err)
	}

	var env chat.Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		t.Fatalf("Failed to decode envelope %q: %v", frame, err)
	}
	return env
}

// ExpectEvent reads the next envelope and fails unless it is the named
// event, decoding its payload into out when out is non-nil.
func ExpectEvent(t *testing.T, conn *websocket.Conn, event string, out any) {
	t.Helper()

	env := ReadEvent(t, conn, 2*time.Second)
	if env.Event != event {
		t.Fatalf("Expected %s event, got %s", event, env.Event)
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			t.Fatalf("Failed to decode %s payload: %v", event, err)
		}
	}
}

// ExpectNoEvent verifies that nothing arrives on the connection within
// the timeout.
func ExpectNoEvent(t *testing.T, conn *websocket.Conn, timeout time.Duration) {
	t.Helper()

	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		t.Fatalf("Failed to set read deadline: %v", err)
	}
	_, frame, err := conn.ReadMessage()
	if err == nil {
		t.Fatalf("Expected no event, but received %q", frame)
	}
	if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
		return
	}
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return
	}
	t.Fatalf("Unexpected error while waiting for absence of events: %v", err)
}

// AssertStatusCode checks if the HTTP response has the expected status code.
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("Expected status code %d, got %d", expected, resp.StatusCode)
	}
}
