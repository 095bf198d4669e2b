// Package server coordinates client registration, inbound event routing,
// and broadcast fan-out for the ChatWire WebSocket system via the Hub type.
package server

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/mwestri/chatwire/internal/chat"
)

// inboundFrame is one raw payload read from a client connection, queued
// for the hub's run loop.
type inboundFrame struct {
	client  *Client
	payload []byte
}

// Hub owns the live client set and the event router. A single run loop
// consumes registrations, disconnects, and inbound frames, so every event
// is fully processed (core mutation plus outbound fan-out) before the
// next one is dequeued. That serialization is what keeps the presence
// list and message history consistent with the broadcasts announcing
// them.
type Hub struct {
	router *chat.Router
	cfg    *Config

	clients map[chat.ConnID]*Client

	register   chan *Client
	unregister chan *Client
	inbound    chan inboundFrame

	mutex  sync.RWMutex
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewHub creates a hub around an explicitly constructed event router.
// The returned Hub is ready to manage WebSocket connections once Run is
// started in its own goroutine.
func NewHub(router *chat.Router, cfg *Config) *Hub {
	if cfg == nil {
		cfg = NewConfig()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		router:     router,
		cfg:        cfg,
		clients:    make(map[chat.ConnID]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan inboundFrame, 64),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// Router returns the event router the hub dispatches into.
func (h *Hub) Router() *chat.Router {
	return h.router
}

// GetRegisterChan returns the channel used for registering new clients to the hub.
// This channel is write-only from the caller's perspective.
func (h *Hub) GetRegisterChan() chan<- *Client {
	return h.register
}

// GetUnregisterChan returns the channel used for unregistering clients from the hub.
// This channel is write-only from the caller's perspective.
func (h *Hub) GetUnregisterChan() chan<- *Client {
	return h.unregister
}

// ClientCount reports how many connections are currently registered.
func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// Run starts the hub's main event loop, handling client registration,
// unregistration, and inbound event dispatch. This method should be
// called in a separate goroutine as it runs until Shutdown.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case client := <-h.register:
			if client == nil {
				log.Printf("Received nil client registration; skipping")
				continue
			}
			h.addClient(client)

		case client := <-h.unregister:
			h.dropClient(client)

		case frame := <-h.inbound:
			h.dispatch(frame.client, frame.payload)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mutex.Lock()
	client.closed = false
	h.clients[client.id] = client
	clientCount := len(h.clients)
	h.mutex.Unlock()
	log.Printf("Client %s connected from %s. Total clients: %d", client.id, client.addr, clientCount)

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		client.writePump()
	}()
	go func() {
		defer h.wg.Done()
		client.readPump()
	}()
}

// dropClient removes a client from the live set and feeds the disconnect
// through the router so its presence entry is cleaned up and the
// departure is announced to everyone still connected.
func (h *Hub) dropClient(client *Client) {
	h.mutex.Lock()
	if _, ok := h.clients[client.id]; !ok {
		h.mutex.Unlock()
		return
	}
	delete(h.clients, client.id)
	client.closed = true
	clientCount := len(h.clients)
	h.mutex.Unlock()

	// Close the channel after releasing the lock.
	close(client.send)
	log.Printf("Client %s disconnected from %s. Total clients: %d", client.id, client.addr, clientCount)

	h.deliver(h.router.Disconnect(client.id))
}

// dispatch decodes one inbound frame, hands it to the router, and fans
// the resulting deliveries out. Malformed frames and unknown events are
// logged and dropped; the only protocol-level error travels back inside
// a delivery.
func (h *Hub) dispatch(client *Client, payload []byte) {
	var env chat.Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		log.Printf("Invalid frame from %s: %v", client.addr, err)
		return
	}

	deliveries, err := h.router.Handle(client.id, env)
	if err != nil {
		log.Printf("Dropping event from %s: %v", client.addr, err)
		return
	}

	h.deliver(deliveries)
}

// deliver resolves each delivery's target selector against the live
// client set and queues the serialized event. Clients whose send buffers
// are full are removed afterwards, which also announces their departure.
func (h *Hub) deliver(deliveries []chat.Delivery) {
	var failed []*Client

	for _, d := range deliveries {
		payload, err := json.Marshal(d.Event)
		if err != nil {
			log.Printf("Error serializing %s event: %v", d.Event.Event, err)
			continue
		}

		switch d.Kind {
		case chat.TargetOne:
			if client := h.clientByID(d.Conn); client != nil {
				if !h.safeSend(client, payload) {
					failed = append(failed, client)
				}
			}
		case chat.TargetAllExcept:
			for _, client := range h.clientSnapshot() {
				if client.id == d.Conn {
					continue
				}
				if !h.safeSend(client, payload) {
					failed = append(failed, client)
				}
			}
		case chat.TargetAll:
			for _, client := range h.clientSnapshot() {
				if !h.safeSend(client, payload) {
					failed = append(failed, client)
				}
			}
		}
	}

	h.removeFailedClients(failed)
}

func (h *Hub) clientByID(id chat.ConnID) *Client {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.clients[id]
}

// clientSnapshot returns a stable view of the current clients so a
// broadcast is not affected by removals happening mid-iteration.
func (h *Hub) clientSnapshot() []*Client {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	clients := make([]*Client, 0, len(h.clients))
	for _, client := range h.clients {
		clients = append(clients, client)
	}
	return clients
}

func (h *Hub) safeSend(client *Client, payload []byte) bool {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic in safeSend: %v", r)
		}
	}()

	h.mutex.RLock()
	defer h.mutex.RUnlock()

	if _, exists := h.clients[client.id]; !exists || client.closed {
		return false
	}

	select {
	case client.send <- payload:
		return true
	default:
		return false
	}
}

// removeFailedClients drops clients that could not be delivered to. The
// resulting user_left broadcasts are best-effort; a client that also
// fails here is removed on its next send attempt or when its read pump
// exits.
func (h *Hub) removeFailedClients(failed []*Client) {
	for _, client := range failed {
		log.Printf("Client %s from %s removed due to full send buffer", client.id, client.addr)
		h.dropClient(client)
	}
}

// shutdownClients gracefully closes all active client connections.
func (h *Hub) shutdownClients() {
	log.Println("Shutting down all client connections...")

	clients := h.clientSnapshot()
	for _, client := range clients {
		if client.conn != nil {
			if err := client.conn.Close(); err != nil {
				if !isExpectedCloseError(err) {
					log.Printf("Error closing client connection from %s: %v", client.addr, err)
				}
			}
		}
	}

	log.Printf("Closed %d client connections", len(clients))
}

// Shutdown initiates graceful shutdown of the hub and waits for all
// goroutines to complete, or until the timeout is reached.
func (h *Hub) Shutdown(timeout time.Duration) error {
	log.Println("Initiating hub shutdown...")

	h.cancel()
	<-h.done

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("Hub shutdown completed successfully")
		return nil
	case <-time.After(timeout):
		log.Println("Hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
