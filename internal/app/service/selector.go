package service

import (
	"errors"
	"math/rand"

	"github.com/taekabu/linkfan/internal/app/model"
)

// ErrNoActiveDestination signals a snapshot with an empty or fully inactive
// destination list. It is an expected outcome, not a fault; callers map it
// to a plain 404.
var ErrNoActiveDestination = errors.New("no active destination")

// Selector picks a destination from a snapshot. It is pure decision logic:
// the cursor transition comes back as a value and persisting it is the
// caller's job.
type Selector struct {
	intN func(n int) int
}

// NewSelector returns a selector drawing random picks from the process RNG.
func NewSelector() *Selector {
	return &Selector{intN: rand.Intn}
}

// Select filters active destinations and applies the snapshot's mode.
// Round-robin returns the snapshot to persist with the cursor advanced;
// any other mode is a uniform random pick and returns a nil snapshot.
//
// The cursor may be arbitrarily large or stale relative to the current
// active set; the modulo keeps it in range regardless.
func (s *Selector) Select(snap *model.Snapshot) (model.DestinationRef, *model.Snapshot, error) {
	active := snap.Active()
	if len(active) == 0 {
		return model.DestinationRef{}, nil, ErrNoActiveDestination
	}

	if snap.Mode == model.ModeRoundRobin {
		cursor := snap.RoundRobinIndex
		if cursor < 0 {
			cursor = 0
		}
		index := cursor % len(active)

		updated := &model.Snapshot{
			Mode:            snap.Mode,
			RoundRobinIndex: (index + 1) % len(active),
			Destinations:    snap.Destinations,
		}
		return active[index], updated, nil
	}

	return active[s.intN(len(active))], nil, nil
}
