// Package chat tracks which connections are currently joined and under
// what identity via the Registry type.
package chat

// Registry is the live mapping of connections to identities. Entries are
// created on join, overwritten on re-join, and removed synchronously when
// a connection leaves; no stale entries survive a disconnect.
//
// Registry is not safe for concurrent use on its own. The Router
// serializes every access to it.
type Registry struct {
	entries map[ConnID]Identity
	order   []ConnID
}

// NewRegistry creates an empty presence registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[ConnID]Identity),
	}
}

// Join registers or overwrites the identity for a connection. It always
// succeeds; the identity is trusted as given. A re-join keeps the
// connection's original position in the presence order.
func (r *Registry) Join(conn ConnID, id Identity) {
	if _, ok := r.entries[conn]; !ok {
		r.order = append(r.order, conn)
	}
	r.entries[conn] = id
}

// Leave removes the entry for a connection and reports the identity that
// was removed. Leaving without a prior join is a no-op, not an error.
func (r *Registry) Leave(conn ConnID) (Identity, bool) {
	id, ok := r.entries[conn]
	if !ok {
		return Identity{}, false
	}
	delete(r.entries, conn)
	for i, c := range r.order {
		if c == conn {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return id, true
}

// Lookup returns the identity for a connection, if it has joined.
func (r *Registry) Lookup(conn ConnID) (Identity, bool) {
	id, ok := r.entries[conn]
	return id, ok
}

// All returns the identities of every joined connection in join order.
func (r *Registry) All() []Identity {
	ids := make([]Identity, 0, len(r.order))
	for _, c := range r.order {
		ids = append(ids, r.entries[c])
	}
	return ids
}

// Len reports how many connections are currently joined.
func (r *Registry) Len() int {
	return len(r.entries)
}
