// Package chat routes inbound connection events to presence and history
// mutations and decides which connections receive which broadcasts.
package chat

import (
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"
)

// notJoinedMessage is the only core-level failure the protocol knows: a
// connection attempted to send before a successful join. It travels back
// to the offending connection as a unicast error event and is never
// raised process-wide.
const notJoinedMessage = "You must join before sending messages"

// TargetKind selects which connections receive a delivery.
type TargetKind int

const (
	// TargetAll delivers to every live connection, including the sender.
	TargetAll TargetKind = iota
	// TargetAllExcept delivers to every live connection except Conn.
	TargetAllExcept
	// TargetOne delivers only to Conn.
	TargetOne
)

// Delivery pairs an outbound event with the connections that should
// receive it. The transport layer resolves the target selector against
// its live connection set.
type Delivery struct {
	Kind  TargetKind
	Conn  ConnID
	Event Outbound
}

// Router is the per-connection protocol state machine. It owns the
// presence registry and the message history, and converts each inbound
// event into zero or more deliveries without ever touching a socket, so
// it can be exercised in tests with no live transport.
//
// A single mutex wraps every handler: each event is fully applied
// (registry/history mutation plus delivery construction) before the next
// one starts, which is what makes broadcasts consistent with the state
// they announce.
type Router struct {
	mu       sync.Mutex
	presence *Registry
	history  *History
	now      func() time.Time
	lastID   int64
}

// NewRouter creates a router around explicitly owned presence and history
// instances. Nothing else may mutate them once handed over.
func NewRouter(presence *Registry, history *History) *Router {
	return &Router{
		presence: presence,
		history:  history,
		now:      time.Now,
	}
}

// Handle decodes one inbound frame and applies it. Unknown event names
// and malformed payloads produce no deliveries and a non-nil error for
// the transport to log; they are transport noise, not protocol errors.
func (rt *Router) Handle(conn ConnID, env Envelope) ([]Delivery, error) {
	switch env.Event {
	case EventUserJoin:
		var p JoinPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", env.Event, err)
		}
		return rt.Join(conn, Identity{UserID: p.UserID, Username: p.Username}), nil
	case EventSendMessage:
		var p SendPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", env.Event, err)
		}
		return rt.Send(conn, p.Text, p.Attachment), nil
	case EventTyping:
		return rt.Typing(conn), nil
	case EventStopTyping:
		return rt.StopTyping(conn), nil
	default:
		return nil, fmt.Errorf("unknown event %q", env.Event)
	}
}

// Join records the identity for a connection and announces the updated
// presence list to everyone, sender included. The joining connection
// additionally receives the current message history. Join never fails;
// a repeated join overwrites the previous identity.
func (rt *Router) Join(conn ConnID, id Identity) []Delivery {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	rt.presence.Join(conn, id)

	return []Delivery{
		{
			Kind: TargetAll,
			Event: Outbound{Event: EventUserJoined, Data: PresencePayload{
				UserID:   id.UserID,
				Username: id.Username,
				Users:    rt.presence.All(),
			}},
		},
		{
			Kind:  TargetOne,
			Conn:  conn,
			Event: Outbound{Event: EventMessageHistory, Data: rt.history.Snapshot()},
		},
	}
}

// Send appends a message from a joined connection and broadcasts it to
// everyone. A connection that has not joined gets a single error event
// back and the history is left untouched.
func (rt *Router) Send(conn ConnID, text string, attachment *Attachment) []Delivery {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	id, ok := rt.presence.Lookup(conn)
	if !ok {
		return []Delivery{{
			Kind:  TargetOne,
			Conn:  conn,
			Event: Outbound{Event: EventError, Data: ErrorPayload{Message: notJoinedMessage}},
		}}
	}

	now := rt.now()
	msg := Message{
		ID:         rt.nextID(now),
		UserID:     id.UserID,
		Username:   id.Username,
		Text:       text,
		Attachment: attachment,
		Timestamp:  now,
	}
	rt.history.Append(msg)

	return []Delivery{{
		Kind:  TargetAll,
		Event: Outbound{Event: EventNewMessage, Data: msg},
	}}
}

// Typing relays a typing indicator to everyone except the sender.
// Unjoined senders are silently ignored; the signal is a UX hint, not
// something worth an error round-trip.
func (rt *Router) Typing(conn ConnID) []Delivery {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	id, ok := rt.presence.Lookup(conn)
	if !ok {
		return nil
	}
	return []Delivery{{
		Kind:  TargetAllExcept,
		Conn:  conn,
		Event: Outbound{Event: EventUserTyping, Data: TypingPayload{UserID: id.UserID, Username: id.Username}},
	}}
}

// StopTyping relays the end of a typing indicator to everyone except the
// sender, with the same no-op behavior for unjoined connections.
func (rt *Router) StopTyping(conn ConnID) []Delivery {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	id, ok := rt.presence.Lookup(conn)
	if !ok {
		return nil
	}
	return []Delivery{{
		Kind:  TargetAllExcept,
		Conn:  conn,
		Event: Outbound{Event: EventUserStopTyping, Data: StopTypingPayload{UserID: id.UserID}},
	}}
}

// Disconnect removes the connection's presence entry and, if an identity
// was present, announces the departure with the updated presence list.
// Connections that never joined disappear without a broadcast.
func (rt *Router) Disconnect(conn ConnID) []Delivery {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	id, ok := rt.presence.Leave(conn)
	if !ok {
		return nil
	}
	return []Delivery{{
		Kind: TargetAll,
		Event: Outbound{Event: EventUserLeft, Data: PresencePayload{
			UserID:   id.UserID,
			Username: id.Username,
			Users:    rt.presence.All(),
		}},
	}}
}

// HistorySnapshot returns the retained messages for the history REST
// endpoint. Safe to call from outside the event loop.
func (rt *Router) HistorySnapshot() []Message {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.history.Snapshot()
}

// Present returns the current presence list. Safe to call from outside
// the event loop.
func (rt *Router) Present() []Identity {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.presence.All()
}

// nextID produces a time-based token that stays unique even when two
// messages land in the same millisecond.
func (rt *Router) nextID(now time.Time) string {
	ms := now.UnixMilli()
	if ms <= rt.lastID {
		ms = rt.lastID + 1
	}
	rt.lastID = ms
	return strconv.FormatInt(ms, 10)
}
