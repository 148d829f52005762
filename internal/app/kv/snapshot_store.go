package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/taekabu/linkfan/internal/app/model"
)

var (
	// ErrSnapshotNotFound signals that no snapshot is published under the
	// key. Absence is a normal state, not corruption.
	ErrSnapshotNotFound = errors.New("snapshot not found")
	// ErrInvalidSnapshot signals a stored snapshot that cannot be decoded.
	// Callers must be able to tell corruption apart from absence.
	ErrInvalidSnapshot = errors.New("invalid snapshot")
)

// SnapshotStore is the eventually-consistent KV holding published
// snapshots. Writes are last-writer-wins; there are no transactions and no
// compare-and-swap, and everything built on top is designed to tolerate
// that.
type SnapshotStore interface {
	Get(ctx context.Context, key string) (*model.Snapshot, error)
	Put(ctx context.Context, key string, snap *model.Snapshot) error
	Delete(ctx context.Context, key string) error
}

type redisSnapshotStore struct {
	rdb *redis.Client
}

// NewSnapshotStore returns a redis-backed SnapshotStore.
func NewSnapshotStore(rdb *redis.Client) SnapshotStore {
	return &redisSnapshotStore{rdb: rdb}
}

func (s *redisSnapshotStore) Get(ctx context.Context, key string) (*model.Snapshot, error) {
	data, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("snapshot get %s: %w", key, err)
	}

	snap, err := decodeSnapshot(data)
	if err != nil {
		return nil, fmt.Errorf("snapshot get %s: %w", key, err)
	}
	return snap, nil
}

func (s *redisSnapshotStore) Put(ctx context.Context, key string, snap *model.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("snapshot encode %s: %w", key, err)
	}
	if err := s.rdb.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("snapshot put %s: %w", key, err)
	}
	return nil
}

// Delete is idempotent; removing an absent key is not an error.
func (s *redisSnapshotStore) Delete(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("snapshot delete %s: %w", key, err)
	}
	return nil
}

func decodeSnapshot(data []byte) (*model.Snapshot, error) {
	var snap model.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	if snap.Mode == "" {
		return nil, fmt.Errorf("%w: missing mode", ErrInvalidSnapshot)
	}
	if snap.RoundRobinIndex < 0 {
		return nil, fmt.Errorf("%w: negative round_robin_index", ErrInvalidSnapshot)
	}
	return &snap, nil
}
