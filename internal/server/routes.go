// Package server wires HTTP handlers into a ServeMux for the ChatWire
// application via routing helpers.
package server

import "net/http"

// SetupRoutes configures and returns an HTTP ServeMux with all
// application routes: health check, WebSocket endpoint, message history,
// file upload, and static serving of uploaded files.
func SetupRoutes(h *Handlers) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", h.Health)
	mux.HandleFunc("/ws", h.WebSocket)
	mux.HandleFunc("/messages", h.Messages)
	mux.HandleFunc("/upload", h.Upload)
	mux.Handle("/uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(h.uploads.Dir()))))
	return mux
}
