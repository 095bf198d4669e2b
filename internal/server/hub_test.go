package server

import (
	"testing"
	"time"

	"github.com/mwestri/chatwire/internal/chat"
)

func newTestHub() *Hub {
	cfg := NewConfig()
	router := chat.NewRouter(chat.NewRegistry(), chat.NewHistory(cfg.HistoryLimit))
	return NewHub(router, cfg)
}

// TestNewHub verifies that NewHub returns a hub ready to manage
// connections, with an empty client set and a reachable router.
func TestNewHub(t *testing.T) {
	hub := newTestHub()

	if hub == nil {
		t.Fatal("NewHub() returned nil")
	}
	if hub.ClientCount() != 0 {
		t.Errorf("Expected empty client set, got %d", hub.ClientCount())
	}
	if hub.Router() == nil {
		t.Error("Expected hub to expose its router")
	}
}

// TestNewHubNilConfig verifies that a nil config falls back to defaults
// instead of panicking later.
func TestNewHubNilConfig(t *testing.T) {
	router := chat.NewRouter(chat.NewRegistry(), chat.NewHistory(0))
	hub := NewHub(router, nil)

	if hub.cfg == nil {
		t.Fatal("Expected hub to carry a default config")
	}
}

// TestHubIgnoresNilRegistration verifies that a nil client registration
// is skipped rather than crashing the run loop.
func TestHubIgnoresNilRegistration(t *testing.T) {
	hub := newTestHub()
	go hub.Run()
	defer func() { _ = hub.Shutdown(time.Second) }()

	select {
	case hub.GetRegisterChan() <- nil:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Run loop did not accept registration")
	}

	time.Sleep(10 * time.Millisecond)
	if hub.ClientCount() != 0 {
		t.Errorf("Expected nil registration to be ignored, got %d clients", hub.ClientCount())
	}
}

// TestHubShutdownCompletes verifies that Shutdown returns promptly when
// no clients are connected.
func TestHubShutdownCompletes(t *testing.T) {
	hub := newTestHub()
	go hub.Run()

	if err := hub.Shutdown(time.Second); err != nil {
		t.Errorf("Shutdown returned error: %v", err)
	}
}

// TestNewClientAssignsUniqueHandles verifies that every client gets a
// fresh connection handle and a usable send channel.
func TestNewClientAssignsUniqueHandles(t *testing.T) {
	hub := newTestHub()

	a := NewClient(nil, hub, "127.0.0.1:1111")
	b := NewClient(nil, hub, "127.0.0.1:2222")

	if a.ID() == "" || b.ID() == "" {
		t.Fatal("Expected clients to carry connection handles")
	}
	if a.ID() == b.ID() {
		t.Error("Expected connection handles to be unique")
	}
	if a.GetSendChan() == nil {
		t.Error("Client send channel is nil")
	}
}

// TestHubUnregisterUnknownClientIsNoop verifies that unregistering a
// client that was never registered does not panic or block.
func TestHubUnregisterUnknownClientIsNoop(t *testing.T) {
	hub := newTestHub()
	go hub.Run()
	defer func() { _ = hub.Shutdown(time.Second) }()

	client := NewClient(nil, hub, "127.0.0.1:3333")

	select {
	case hub.GetUnregisterChan() <- client:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Run loop did not accept unregistration")
	}

	time.Sleep(10 * time.Millisecond)
	if hub.ClientCount() != 0 {
		t.Errorf("Expected no clients, got %d", hub.ClientCount())
	}
}
