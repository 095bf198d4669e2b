package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mwestri/chatwire/internal/chat"
)

func newTestHandlers(t *testing.T) (*Handlers, *chat.Router) {
	t.Helper()

	cfg := NewConfig()
	cfg.AllowedOrigins = []string{"*"}
	cfg.UploadDir = t.TempDir()

	router := chat.NewRouter(chat.NewRegistry(), chat.NewHistory(cfg.HistoryLimit))
	hub := NewHub(router, cfg)

	uploads, err := NewUploadStore(cfg.UploadDir, cfg.MaxUploadSize)
	if err != nil {
		t.Fatalf("NewUploadStore() returned error: %v", err)
	}

	return NewHandlers(hub, uploads, cfg), router
}

// TestHealthHandler verifies that the health endpoint reports the server
// as running.
func TestHealthHandler(t *testing.T) {
	h, _ := newTestHandlers(t)

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "running") {
		t.Errorf("Unexpected health body: %s", body)
	}
}

// TestMessagesHandlerReturnsHistory verifies that the REST history
// endpoint serves the same snapshot joining clients receive.
func TestMessagesHandlerReturnsHistory(t *testing.T) {
	h, router := newTestHandlers(t)

	router.Join("conn-a", chat.Identity{UserID: "1", Username: "alice"})
	router.Send("conn-a", "hello", nil)

	rec := httptest.NewRecorder()
	h.Messages(rec, httptest.NewRequest(http.MethodGet, "/messages", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected application/json, got %s", ct)
	}

	var msgs []chat.Message
	if err := json.NewDecoder(rec.Body).Decode(&msgs); err != nil {
		t.Fatalf("Failed to decode history response: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("Expected 1 message, got %d", len(msgs))
	}
	if msgs[0].Text != "hello" || msgs[0].Username != "alice" {
		t.Errorf("Unexpected message: %+v", msgs[0])
	}
}

// TestMessagesHandlerEmptyHistory verifies that an empty history encodes
// as an empty JSON array, not null.
func TestMessagesHandlerEmptyHistory(t *testing.T) {
	h, _ := newTestHandlers(t)

	rec := httptest.NewRecorder()
	h.Messages(rec, httptest.NewRequest(http.MethodGet, "/messages", nil))

	if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
		t.Errorf("Expected empty JSON array, got %q", got)
	}
}

// TestMessagesHandlerRejectsPost verifies the method guard on the history
// endpoint.
func TestMessagesHandlerRejectsPost(t *testing.T) {
	h, _ := newTestHandlers(t)

	rec := httptest.NewRecorder()
	h.Messages(rec, httptest.NewRequest(http.MethodPost, "/messages", strings.NewReader("{}")))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
	}
}

// TestWebSocketHandlerRejectsPost verifies that the upgrade endpoint only
// accepts GET requests.
func TestWebSocketHandlerRejectsPost(t *testing.T) {
	h, _ := newTestHandlers(t)

	rec := httptest.NewRecorder()
	h.WebSocket(rec, httptest.NewRequest(http.MethodPost, "/ws", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
	}
}

// TestWebSocketHandlerRejectsPlainGet verifies that a GET without
// WebSocket upgrade headers fails the handshake.
func TestWebSocketHandlerRejectsPlainGet(t *testing.T) {
	h, _ := newTestHandlers(t)

	rec := httptest.NewRecorder()
	h.WebSocket(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}
