package chat

import "testing"

// TestLookupBeforeJoin verifies that a connection has no identity until
// it joins.
func TestLookupBeforeJoin(t *testing.T) {
	reg := NewRegistry()

	if _, ok := reg.Lookup("conn-1"); ok {
		t.Error("Expected lookup to report absent before join")
	}
	if got := len(reg.All()); got != 0 {
		t.Errorf("Expected empty presence list, got %d entries", got)
	}
}

// TestJoinThenLookup verifies that a joined connection resolves to the
// identity it asserted.
func TestJoinThenLookup(t *testing.T) {
	reg := NewRegistry()
	reg.Join("conn-1", Identity{UserID: "1", Username: "alice"})

	id, ok := reg.Lookup("conn-1")
	if !ok {
		t.Fatal("Expected lookup to succeed after join")
	}
	if id.UserID != "1" || id.Username != "alice" {
		t.Errorf("Unexpected identity: %+v", id)
	}
}

// TestRejoinOverwritesIdentity verifies last-write-wins semantics: the
// second join replaces the first identity and the presence list reflects
// only the latest one.
func TestRejoinOverwritesIdentity(t *testing.T) {
	reg := NewRegistry()
	reg.Join("conn-1", Identity{UserID: "1", Username: "alice"})
	reg.Join("conn-1", Identity{UserID: "2", Username: "bob"})

	id, ok := reg.Lookup("conn-1")
	if !ok {
		t.Fatal("Expected lookup to succeed after re-join")
	}
	if id.UserID != "2" || id.Username != "bob" {
		t.Errorf("Expected second identity to win, got %+v", id)
	}

	all := reg.All()
	if len(all) != 1 {
		t.Fatalf("Expected exactly one presence entry, got %d", len(all))
	}
	if all[0].Username != "bob" {
		t.Errorf("Expected presence list to hold the latest identity, got %+v", all[0])
	}
}

// TestLeaveRemovesEntry verifies that leaving removes the entry and
// returns the identity that was present.
func TestLeaveRemovesEntry(t *testing.T) {
	reg := NewRegistry()
	reg.Join("conn-1", Identity{UserID: "1", Username: "alice"})

	id, ok := reg.Leave("conn-1")
	if !ok {
		t.Fatal("Expected leave to report a removed identity")
	}
	if id.Username != "alice" {
		t.Errorf("Unexpected removed identity: %+v", id)
	}

	if _, ok := reg.Lookup("conn-1"); ok {
		t.Error("Expected lookup to report absent after leave")
	}
	if reg.Len() != 0 {
		t.Errorf("Expected empty registry, got %d entries", reg.Len())
	}
}

// TestLeaveWithoutJoinIsNoop verifies that leaving without a prior join
// is not an error and reports no identity.
func TestLeaveWithoutJoinIsNoop(t *testing.T) {
	reg := NewRegistry()

	if _, ok := reg.Leave("conn-1"); ok {
		t.Error("Expected leave without join to report no identity")
	}
}

// TestAllPreservesJoinOrder verifies that the presence list is returned
// in join order, with departures removed in place.
func TestAllPreservesJoinOrder(t *testing.T) {
	reg := NewRegistry()
	reg.Join("conn-1", Identity{UserID: "1", Username: "alice"})
	reg.Join("conn-2", Identity{UserID: "2", Username: "bob"})
	reg.Join("conn-3", Identity{UserID: "3", Username: "carol"})
	reg.Leave("conn-2")

	all := reg.All()
	if len(all) != 2 {
		t.Fatalf("Expected 2 presence entries, got %d", len(all))
	}
	if all[0].Username != "alice" || all[1].Username != "carol" {
		t.Errorf("Unexpected presence order: %+v", all)
	}
}
