// Package chat implements the transport-independent core of the ChatWire
// messaging system: presence tracking, a bounded message history, and the
// event router that turns inbound connection events into outbound
// deliveries. The package never touches a socket; the transport layer in
// internal/server feeds it events and fans its deliveries out.
package chat

import (
	"encoding/json"
	"time"
)

// ConnID identifies one live transport session. It is assigned by the
// transport when a connection is accepted and is never reused.
type ConnID string

// Identity is the user identity a client asserts when joining. It is
// accepted as given; verifying it belongs to an external auth layer.
type Identity struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// Attachment describes an uploaded file referenced by a message. The core
// treats it as an opaque value produced by the upload endpoint.
type Attachment struct {
	Filename     string `json:"filename"`
	OriginalName string `json:"originalname"`
	Mimetype     string `json:"mimetype"`
	Size         int64  `json:"size"`
	URL          string `json:"url"`
}

// Message is a chat message retained in history. Immutable once created.
type Message struct {
	ID         string      `json:"id"`
	UserID     string      `json:"userId"`
	Username   string      `json:"username"`
	Text       string      `json:"text"`
	Attachment *Attachment `json:"attachment,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
}

// Inbound event names accepted from clients.
const (
	EventUserJoin    = "user_join"
	EventSendMessage = "send_message"
	EventTyping      = "typing"
	EventStopTyping  = "stop_typing"
)

// Outbound event names emitted to clients.
const (
	EventUserJoined     = "user_joined"
	EventMessageHistory = "message_history"
	EventNewMessage     = "new_message"
	EventUserTyping     = "user_typing"
	EventUserStopTyping = "user_stop_typing"
	EventUserLeft       = "user_left"
	EventError          = "error"
)

// Envelope is the JSON frame received from clients. The payload stays raw
// until the router knows which event it is decoding.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Outbound is an event ready for serialization to one or more clients.
// Data is always emitted, so an empty history still serializes as an
// empty array rather than a missing field.
type Outbound struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// JoinPayload carries the identity asserted with a user_join event.
type JoinPayload struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// SendPayload carries the content of a send_message event.
type SendPayload struct {
	Text       string      `json:"text"`
	Attachment *Attachment `json:"attachment,omitempty"`
}

// PresencePayload is emitted with user_joined and user_left events and
// carries the full updated presence list.
type PresencePayload struct {
	UserID   string     `json:"userId"`
	Username string     `json:"username"`
	Users    []Identity `json:"users"`
}

// TypingPayload is emitted with user_typing events.
type TypingPayload struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// StopTypingPayload is emitted with user_stop_typing events.
type StopTypingPayload struct {
	UserID string `json:"userId"`
}

// ErrorPayload is unicast back to a connection that attempted an
// operation it is not eligible for.
type ErrorPayload struct {
	Message string `json:"message"`
}
