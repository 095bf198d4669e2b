// Package chat retains the most recent messages in send order via the
// History type, so newly joined connections can catch up.
package chat

// DefaultHistoryLimit is how many messages are retained when no explicit
// limit is configured.
const DefaultHistoryLimit = 100

// History is a bounded, insertion-ordered buffer of recent messages.
// Once the buffer is full the oldest message is dropped first. Lifetime
// is the process lifetime; nothing is persisted.
//
// History is not safe for concurrent use on its own. The Router
// serializes every access to it.
type History struct {
	limit int
	msgs  []Message
}

// NewHistory creates a history buffer holding at most limit messages.
// A non-positive limit falls back to DefaultHistoryLimit.
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &History{
		limit: limit,
		msgs:  make([]Message, 0, limit),
	}
}

// Append inserts a message at the tail, evicting from the head once the
// buffer exceeds its limit.
func (h *History) Append(msg Message) {
	h.msgs = append(h.msgs, msg)
	if len(h.msgs) > h.limit {
		h.msgs = h.msgs[len(h.msgs)-h.limit:]
	}
}

// Snapshot returns a copy of the retained messages, oldest first. Callers
// may hold on to or mutate the returned slice freely.
func (h *History) Snapshot() []Message {
	out := make([]Message, len(h.msgs))
	copy(out, h.msgs)
	return out
}

// Len reports how many messages are currently retained.
func (h *History) Len() int {
	return len(h.msgs)
}
