// Package integration contains graceful shutdown tests for the hub and
// its client connections.
package integration

import (
	"testing"
	"time"

	"github.com/mwestri/chatwire/internal/chat"
	"github.com/mwestri/chatwire/internal/server"
	"github.com/mwestri/chatwire/test/testhelpers"
)

// TestHubShutdownWithoutClients verifies that an idle hub shuts down
// promptly.
func TestHubShutdownWithoutClients(t *testing.T) {
	cfg := server.NewConfig()
	router := chat.NewRouter(chat.NewRegistry(), chat.NewHistory(cfg.HistoryLimit))
	hub := server.NewHub(router, cfg)
	go hub.Run()

	time.Sleep(50 * time.Millisecond)

	if err := hub.Shutdown(5 * time.Second); err != nil {
		t.Errorf("Hub shutdown failed: %v", err)
	}
}

// TestHubShutdownClosesClients verifies that active connections are
// closed during graceful shutdown and their goroutines finish.
func TestHubShutdownClosesClients(t *testing.T) {
	srv := testhelpers.StartChatServer(t, nil)

	conns := make([]interface{ Close() error }, 0, 3)
	for i := 0; i < 3; i++ {
		conn := srv.Dial(t)
		conns = append(conns, conn)
	}
	time.Sleep(100 * time.Millisecond)

	if got := srv.Hub.ClientCount(); got != 3 {
		t.Fatalf("Expected 3 registered clients, got %d", got)
	}

	if err := srv.Hub.Shutdown(5 * time.Second); err != nil {
		t.Errorf("Hub shutdown with clients failed: %v", err)
	}

	for _, conn := range conns {
		_ = conn.Close()
	}
}
