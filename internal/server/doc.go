// Package server implements the transport boundary and HTTP surface of
// the ChatWire realtime chat service.
//
// The implementation is organized into specialized files for
// configuration, hub management, clients, routing, uploads, and HTTP
// handlers. The hub adapts the transport-independent event router in
// internal/chat to WebSocket connections: one run loop serializes every
// inbound event, applies it through the router, and fans the resulting
// deliveries out to the live connections.
package server
