// Package server exposes HTTP handlers, including WebSocket upgrades,
// health checks, and the message history endpoint.
package server

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/websocket"
)

// Handlers bundles the HTTP endpoints with their dependencies so routing
// can be wired without package-level state.
type Handlers struct {
	hub      *Hub
	uploads  *UploadStore
	upgrader websocket.Upgrader
}

// NewHandlers creates the handler set for a hub and upload store, with
// WebSocket origin checking driven by the configured allow-list.
func NewHandlers(hub *Hub, uploads *UploadStore, cfg *Config) *Handlers {
	if cfg == nil {
		cfg = NewConfig()
	}
	origins := newOriginPolicy(cfg.AllowedOrigins)

	return &Handlers{
		hub:     hub,
		uploads: uploads,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     origins.check,
		},
	}
}

// WebSocket handles WebSocket upgrade requests. It validates the request
// method, upgrades the connection, and registers a new client with the
// hub, which launches the read/write pumps. The connection carries no
// identity until the client sends a user_join event.
func (h *Handlers) WebSocket(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := NewClient(conn, h.hub, r.RemoteAddr)
	h.hub.register <- client
}

// Health provides a simple health check endpoint that returns server status.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "ChatWire server is running!")
}

// Messages returns the current message history snapshot as a JSON array,
// oldest first. This is the REST view of the same buffer new WebSocket
// clients receive as message_history.
func (h *Handlers) Messages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	if err := json.NewEncoder(w).Encode(h.hub.Router().HistorySnapshot()); err != nil {
		log.Printf("Error writing message history response: %v", err)
	}
}
