package kv

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// CounterKind namespaces counters per tracked event type.
type CounterKind string

const (
	CounterClick      CounterKind = "click"
	CounterConversion CounterKind = "conversion"
)

// ErrCounterOverflow signals a counter already at the representable
// ceiling; it is never silently wrapped.
var ErrCounterOverflow = errors.New("counter overflow")

// CounterKey builds the KV key for a destination counter:
// {kind}:{destinationID}.
func CounterKey(kind CounterKind, destinationID int64) string {
	return fmt.Sprintf("%s:%d", kind, destinationID)
}

// CounterStore maps destination ids to event counters. Values are decimal
// strings; an increment is a plain read-modify-write with no
// compare-and-swap, so concurrent increments can lose updates.
// Undercounting is accepted.
type CounterStore interface {
	Increment(ctx context.Context, kind CounterKind, destinationID int64) error
	Get(ctx context.Context, kind CounterKind, destinationID int64) (int64, error)
}

type redisCounterStore struct {
	rdb *redis.Client
}

// NewCounterStore returns a redis-backed CounterStore.
func NewCounterStore(rdb *redis.Client) CounterStore {
	return &redisCounterStore{rdb: rdb}
}

func (s *redisCounterStore) Increment(ctx context.Context, kind CounterKind, destinationID int64) error {
	key := CounterKey(kind, destinationID)

	current, err := s.Get(ctx, kind, destinationID)
	if err != nil {
		return err
	}
	if current == math.MaxInt64 {
		return fmt.Errorf("counter %s: %w", key, ErrCounterOverflow)
	}

	next := strconv.FormatInt(current+1, 10)
	if err := s.rdb.Set(ctx, key, next, 0).Err(); err != nil {
		return fmt.Errorf("counter put %s: %w", key, err)
	}
	return nil
}

// Get returns 0 for a counter that has never been incremented.
func (s *redisCounterStore) Get(ctx context.Context, kind CounterKind, destinationID int64) (int64, error) {
	key := CounterKey(kind, destinationID)

	raw, err := s.rdb.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("counter get %s: %w", key, err)
	}

	return parseCounterValue(key, raw)
}

// parseCounterValue decodes a stored counter. Counters are non-negative
// decimal strings; anything else is corruption, not a zero.
func parseCounterValue(key, raw string) (int64, error) {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("counter get %s: malformed value %q", key, raw)
	}
	return n, nil
}
