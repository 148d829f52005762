package model

import "testing"

func TestSnapshotKey(t *testing.T) {
	// Publisher and resolver rely on this exact format.
	if got := SnapshotKey("kabu", "promo"); got != "user:kabu:main:promo" {
		t.Errorf("key = %q, want user:kabu:main:promo", got)
	}
}

func TestSnapshotActivePreservesOrder(t *testing.T) {
	snap := &Snapshot{
		Destinations: []DestinationRef{
			{ID: 1, IsActive: false},
			{ID: 2, IsActive: true},
			{ID: 3, IsActive: false},
			{ID: 4, IsActive: true},
		},
	}

	active := snap.Active()
	if len(active) != 2 {
		t.Fatalf("active = %d entries, want 2", len(active))
	}
	if active[0].ID != 2 || active[1].ID != 4 {
		t.Errorf("active ids = %d, %d, want 2, 4 in stored order", active[0].ID, active[1].ID)
	}
}
