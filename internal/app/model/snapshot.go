package model

import "fmt"

// Selection modes for a main link.
const (
	ModeRoundRobin = "round-robin"
	ModeRandom     = "random"
)

// Snapshot is the denormalized KV projection of a main link, sized so the
// redirect hot path needs exactly one read. It is a best-effort cache: it
// may lag the relational store or be absent entirely, and absence maps to
// a plain 404.
type Snapshot struct {
	Mode            string           `json:"mode"`
	RoundRobinIndex int              `json:"round_robin_index"`
	Destinations    []DestinationRef `json:"destinations"`
}

// DestinationRef is the slice of a destination link the hot path needs.
// Counts are not embedded; they live under their own counter keys.
type DestinationRef struct {
	ID       int64  `json:"id"`
	Slug     string `json:"slug"`
	URL      string `json:"url"`
	IsActive bool   `json:"is_active"`
}

// Active returns the destinations with is_active set, preserving the
// stored order.
func (s *Snapshot) Active() []DestinationRef {
	active := make([]DestinationRef, 0, len(s.Destinations))
	for _, d := range s.Destinations {
		if d.IsActive {
			active = append(active, d)
		}
	}
	return active
}

// SnapshotKey builds the KV key for a main link. The publisher and the
// resolver must produce identical keys, so the format is fixed:
// user:{ownerSlug}:main:{campaignSlug}.
func SnapshotKey(ownerSlug, campaignSlug string) string {
	return fmt.Sprintf("user:%s:main:%s", ownerSlug, campaignSlug)
}
