package kv

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/taekabu/linkfan/internal/app/model"
)

// MemorySnapshotStore is an in-process SnapshotStore for tests and local
// development. It mimics the redis store's last-writer-wins behaviour.
type MemorySnapshotStore struct {
	mu    sync.Mutex
	items map[string]model.Snapshot
}

// NewMemorySnapshotStore returns an empty in-memory snapshot store.
func NewMemorySnapshotStore() *MemorySnapshotStore {
	return &MemorySnapshotStore{items: make(map[string]model.Snapshot)}
}

func (s *MemorySnapshotStore) Get(_ context.Context, key string) (*model.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.items[key]
	if !ok {
		return nil, ErrSnapshotNotFound
	}
	out := snap
	return &out, nil
}

func (s *MemorySnapshotStore) Put(_ context.Context, key string, snap *model.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = *snap
	return nil
}

func (s *MemorySnapshotStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}

// MemoryCounterStore is an in-process CounterStore for tests and local
// development.
type MemoryCounterStore struct {
	mu     sync.Mutex
	counts map[string]int64
}

// NewMemoryCounterStore returns an empty in-memory counter store.
func NewMemoryCounterStore() *MemoryCounterStore {
	return &MemoryCounterStore{counts: make(map[string]int64)}
}

func (s *MemoryCounterStore) Increment(_ context.Context, kind CounterKind, destinationID int64) error {
	key := CounterKey(kind, destinationID)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.counts[key] == math.MaxInt64 {
		return fmt.Errorf("counter %s: %w", key, ErrCounterOverflow)
	}
	s.counts[key]++
	return nil
}

func (s *MemoryCounterStore) Get(_ context.Context, kind CounterKind, destinationID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[CounterKey(kind, destinationID)], nil
}
