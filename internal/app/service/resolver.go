package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/taekabu/linkfan/internal/app/kv"
	"github.com/taekabu/linkfan/internal/app/model"
	"go.uber.org/zap"
)

// ErrRedirectNotFound covers both a missing snapshot and a snapshot with no
// active destination; either way there is nothing to redirect to.
var ErrRedirectNotFound = errors.New("redirect not found")

// A hanging snapshot read must never stall the redirect; past this budget
// the lookup fails as an internal error.
const snapshotReadTimeout = 300 * time.Millisecond

// ClickSink receives click events for asynchronous counting.
type ClickSink interface {
	Publish(event model.ClickEvent) error
}

// ResolverDeps groups the collaborators of the redirect resolver.
type ResolverDeps struct {
	Logger    *zap.Logger
	Snapshots kv.SnapshotStore
	Clicks    ClickSink
	Tasks     TaskRunner
}

// Resolver turns (ownerSlug, campaignSlug) into a redirect target with a
// single snapshot read, then schedules the cursor write-back and the click
// event without blocking the response.
type Resolver struct {
	logger    *zap.Logger
	snapshots kv.SnapshotStore
	selector  *Selector
	clicks    ClickSink
	tasks     TaskRunner
}

// RequestMeta carries the request attributes recorded with a click.
type RequestMeta struct {
	IP        string
	UserAgent string
}

// Resolution is a successful redirect decision.
type Resolution struct {
	Destination model.DestinationRef
	URL         string
}

// NewResolver creates a resolver with the provided dependencies.
func NewResolver(deps ResolverDeps) *Resolver {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		logger:    logger,
		snapshots: deps.Snapshots,
		selector:  NewSelector(),
		clicks:    deps.Clicks,
		tasks:     deps.Tasks,
	}
}

// Resolve performs the hot-path lookup. ErrRedirectNotFound maps to 404;
// any other error is internal. Deferred writes run after return, so the
// caller can send the 302 immediately.
func (r *Resolver) Resolve(ctx context.Context, ownerSlug, campaignSlug string, meta RequestMeta) (*Resolution, error) {
	key := model.SnapshotKey(ownerSlug, campaignSlug)

	readCtx, cancel := context.WithTimeout(ctx, snapshotReadTimeout)
	defer cancel()

	snap, err := r.snapshots.Get(readCtx, key)
	if err != nil {
		if errors.Is(err, kv.ErrSnapshotNotFound) {
			return nil, ErrRedirectNotFound
		}
		// Corruption and store failures both surface as internal errors
		// but are logged apart so they stay distinguishable.
		if errors.Is(err, kv.ErrInvalidSnapshot) {
			r.logger.Error("corrupt snapshot", zap.String("key", key), zap.Error(err))
		} else {
			r.logger.Error("snapshot read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, err
	}

	chosen, updated, err := r.selector.Select(snap)
	if err != nil {
		if errors.Is(err, ErrNoActiveDestination) {
			return nil, ErrRedirectNotFound
		}
		return nil, err
	}

	// Last-writer-wins overwrite: two concurrent reads of the same cursor
	// will race here and one advance is lost. Accepted.
	if updated != nil {
		r.tasks.Go("snapshot write-back", func(taskCtx context.Context) error {
			return r.snapshots.Put(taskCtx, key, updated)
		})
	}

	if r.clicks != nil {
		event := model.ClickEvent{
			ID:            uuid.New().String(),
			DestinationID: chosen.ID,
			OwnerSlug:     ownerSlug,
			CampaignSlug:  campaignSlug,
			IP:            meta.IP,
			UserAgent:     meta.UserAgent,
			Timestamp:     time.Now(),
		}
		r.tasks.Go("click publish", func(context.Context) error {
			return r.clicks.Publish(event)
		})
	}

	return &Resolution{Destination: chosen, URL: chosen.URL}, nil
}
