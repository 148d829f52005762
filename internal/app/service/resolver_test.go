package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/taekabu/linkfan/internal/app/kv"
	"github.com/taekabu/linkfan/internal/app/model"
)

func seedSnapshot(t *testing.T, store *kv.MemorySnapshotStore, ownerSlug, campaignSlug string, snap *model.Snapshot) string {
	t.Helper()
	key := model.SnapshotKey(ownerSlug, campaignSlug)
	if err := store.Put(context.Background(), key, snap); err != nil {
		t.Fatal(err)
	}
	return key
}

func TestResolverMissingSnapshot(t *testing.T) {
	store := kv.NewMemorySnapshotStore()
	sink := &collectSink{}
	runner := &syncRunner{}
	r := NewResolver(ResolverDeps{Snapshots: store, Clicks: sink, Tasks: runner})

	_, err := r.Resolve(context.Background(), "kabu", "nope", RequestMeta{})
	if !errors.Is(err, ErrRedirectNotFound) {
		t.Fatalf("err = %v, want ErrRedirectNotFound", err)
	}
	if len(sink.events) != 0 {
		t.Errorf("published %d click events on a miss, want 0", len(sink.events))
	}
}

func TestResolverNoActiveDestination(t *testing.T) {
	store := kv.NewMemorySnapshotStore()
	seedSnapshot(t, store, "kabu", "promo", &model.Snapshot{
		Mode: model.ModeRoundRobin,
		Destinations: []model.DestinationRef{
			{ID: 1, Slug: "a", URL: "https://a.example", IsActive: false},
		},
	})
	r := NewResolver(ResolverDeps{Snapshots: store, Clicks: &collectSink{}, Tasks: &syncRunner{}})

	_, err := r.Resolve(context.Background(), "kabu", "promo", RequestMeta{})
	if !errors.Is(err, ErrRedirectNotFound) {
		t.Fatalf("err = %v, want ErrRedirectNotFound", err)
	}
}

func TestResolverCorruptSnapshotIsNotMissing(t *testing.T) {
	store := &mockSnapshotStore{
		getFn: func(context.Context, string) (*model.Snapshot, error) {
			return nil, fmt.Errorf("%w: mode is empty", kv.ErrInvalidSnapshot)
		},
	}
	r := NewResolver(ResolverDeps{Snapshots: store, Tasks: &syncRunner{}})

	_, err := r.Resolve(context.Background(), "kabu", "promo", RequestMeta{})
	if errors.Is(err, ErrRedirectNotFound) {
		t.Fatal("corrupt snapshot reported as not found, want internal error")
	}
	if !errors.Is(err, kv.ErrInvalidSnapshot) {
		t.Fatalf("err = %v, want ErrInvalidSnapshot", err)
	}
}

// A hanging snapshot read fails within the budget as an internal error,
// never as a 404 and never by stalling the redirect.
func TestResolverHungStoreTimesOut(t *testing.T) {
	store := &mockSnapshotStore{
		getFn: func(ctx context.Context, _ string) (*model.Snapshot, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	r := NewResolver(ResolverDeps{Snapshots: store, Clicks: &collectSink{}, Tasks: &syncRunner{}})

	start := time.Now()
	_, err := r.Resolve(context.Background(), "kabu", "promo", RequestMeta{})
	elapsed := time.Since(start)

	if err == nil {
		t.Fatal("resolve succeeded against a hung store")
	}
	if errors.Is(err, ErrRedirectNotFound) {
		t.Fatal("hung store reported as not found, want internal error")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want context.DeadlineExceeded", err)
	}
	if elapsed > 2*time.Second {
		t.Errorf("resolve took %v against a hung store, want it bounded by the read budget", elapsed)
	}
}

func TestResolverStoreFailurePropagates(t *testing.T) {
	storeErr := errors.New("connection refused")
	store := &mockSnapshotStore{
		getFn: func(context.Context, string) (*model.Snapshot, error) {
			return nil, storeErr
		},
	}
	r := NewResolver(ResolverDeps{Snapshots: store, Tasks: &syncRunner{}})

	_, err := r.Resolve(context.Background(), "kabu", "promo", RequestMeta{})
	if !errors.Is(err, storeErr) {
		t.Fatalf("err = %v, want the store error", err)
	}
}

func TestResolverRoundRobinAdvancesCursor(t *testing.T) {
	store := kv.NewMemorySnapshotStore()
	key := seedSnapshot(t, store, "kabu", "promo", &model.Snapshot{
		Mode:            model.ModeRoundRobin,
		RoundRobinIndex: 0,
		Destinations: []model.DestinationRef{
			{ID: 10, Slug: "a", URL: "https://a.example", IsActive: true},
			{ID: 20, Slug: "b", URL: "https://b.example", IsActive: true},
		},
	})
	sink := &collectSink{}
	runner := &syncRunner{}
	r := NewResolver(ResolverDeps{Snapshots: store, Clicks: sink, Tasks: runner})

	first, err := r.Resolve(context.Background(), "kabu", "promo", RequestMeta{IP: "203.0.113.9", UserAgent: "curl"})
	if err != nil {
		t.Fatal(err)
	}
	if first.URL != "https://a.example" {
		t.Errorf("first URL = %q, want https://a.example", first.URL)
	}

	snap, err := store.Get(context.Background(), key)
	if err != nil {
		t.Fatal(err)
	}
	if snap.RoundRobinIndex != 1 {
		t.Errorf("persisted cursor = %d, want 1", snap.RoundRobinIndex)
	}

	second, err := r.Resolve(context.Background(), "kabu", "promo", RequestMeta{})
	if err != nil {
		t.Fatal(err)
	}
	if second.URL != "https://b.example" {
		t.Errorf("second URL = %q, want https://b.example", second.URL)
	}

	if len(sink.events) != 2 {
		t.Fatalf("published %d click events, want 2", len(sink.events))
	}
	if sink.events[0].DestinationID != 10 || sink.events[1].DestinationID != 20 {
		t.Errorf("click destination ids = %d, %d, want 10, 20",
			sink.events[0].DestinationID, sink.events[1].DestinationID)
	}
	if sink.events[0].IP != "203.0.113.9" || sink.events[0].UserAgent != "curl" {
		t.Errorf("click meta = %q %q, want request attributes carried through",
			sink.events[0].IP, sink.events[0].UserAgent)
	}
	if sink.events[0].ID == "" || sink.events[0].ID == sink.events[1].ID {
		t.Error("click events must carry distinct non-empty ids")
	}
}

func TestResolverRandomLeavesCursorAlone(t *testing.T) {
	store := kv.NewMemorySnapshotStore()
	key := seedSnapshot(t, store, "kabu", "promo", &model.Snapshot{
		Mode:            model.ModeRandom,
		RoundRobinIndex: 3,
		Destinations: []model.DestinationRef{
			{ID: 1, Slug: "a", URL: "https://a.example", IsActive: true},
		},
	})
	r := NewResolver(ResolverDeps{Snapshots: store, Clicks: &collectSink{}, Tasks: &syncRunner{}})

	if _, err := r.Resolve(context.Background(), "kabu", "promo", RequestMeta{}); err != nil {
		t.Fatal(err)
	}

	snap, err := store.Get(context.Background(), key)
	if err != nil {
		t.Fatal(err)
	}
	if snap.RoundRobinIndex != 3 {
		t.Errorf("cursor = %d after random resolve, want untouched 3", snap.RoundRobinIndex)
	}
}

// The resolution must exist before any deferred write runs.
func TestResolverDefersWrites(t *testing.T) {
	store := kv.NewMemorySnapshotStore()
	key := seedSnapshot(t, store, "kabu", "promo", &model.Snapshot{
		Mode:            model.ModeRoundRobin,
		RoundRobinIndex: 0,
		Destinations: []model.DestinationRef{
			{ID: 1, Slug: "a", URL: "https://a.example", IsActive: true},
			{ID: 2, Slug: "b", URL: "https://b.example", IsActive: true},
		},
	})
	sink := &collectSink{}
	runner := &recordingRunner{}
	r := NewResolver(ResolverDeps{Snapshots: store, Clicks: sink, Tasks: runner})

	res, err := r.Resolve(context.Background(), "kabu", "promo", RequestMeta{})
	if err != nil {
		t.Fatal(err)
	}
	if res.URL != "https://a.example" {
		t.Errorf("URL = %q, want https://a.example", res.URL)
	}

	snap, _ := store.Get(context.Background(), key)
	if snap.RoundRobinIndex != 0 {
		t.Errorf("cursor advanced to %d before deferred tasks ran", snap.RoundRobinIndex)
	}
	if len(sink.events) != 0 {
		t.Error("click published before deferred tasks ran")
	}

	if errs := runner.runAll(); len(errs) != 0 {
		t.Fatalf("deferred tasks failed: %v", errs)
	}
	snap, _ = store.Get(context.Background(), key)
	if snap.RoundRobinIndex != 1 {
		t.Errorf("cursor = %d after deferred tasks, want 1", snap.RoundRobinIndex)
	}
	if len(sink.events) != 1 {
		t.Errorf("published %d click events after deferred tasks, want 1", len(sink.events))
	}
}

// A failing deferred write never surfaces to the redirect caller.
func TestResolverWriteBackFailureStaysBackground(t *testing.T) {
	backing := kv.NewMemorySnapshotStore()
	seedSnapshot(t, backing, "kabu", "promo", &model.Snapshot{
		Mode:            model.ModeRoundRobin,
		RoundRobinIndex: 0,
		Destinations: []model.DestinationRef{
			{ID: 1, Slug: "a", URL: "https://a.example", IsActive: true},
		},
	})
	store := &mockSnapshotStore{
		getFn: backing.Get,
		putFn: func(context.Context, string, *model.Snapshot) error {
			return errors.New("redis down")
		},
	}
	runner := &syncRunner{}
	r := NewResolver(ResolverDeps{Snapshots: store, Clicks: &collectSink{}, Tasks: runner})

	res, err := r.Resolve(context.Background(), "kabu", "promo", RequestMeta{})
	if err != nil {
		t.Fatalf("resolve failed because of a deferred write: %v", err)
	}
	if res.URL != "https://a.example" {
		t.Errorf("URL = %q, want https://a.example", res.URL)
	}
	if len(runner.errs) != 1 {
		t.Errorf("deferred errors = %d, want the write-back failure recorded", len(runner.errs))
	}
}
