package service

import (
	"context"
	"fmt"

	"github.com/taekabu/linkfan/internal/app/kv"
	"github.com/taekabu/linkfan/internal/app/model"
	"github.com/taekabu/linkfan/internal/app/repository"
	"go.uber.org/zap"
)

// PublisherDeps groups the collaborators of the snapshot publisher.
type PublisherDeps struct {
	Logger       *zap.Logger
	MainLinks    repository.MainLinkRepository
	Destinations repository.DestinationRepository
	Users        repository.UserRepository
	Snapshots    kv.SnapshotStore
}

// SnapshotPublisher rebuilds a main link's snapshot from the relational
// store and overwrites the KV entry. It runs synchronously in the aftermath
// of every admin mutation, so the admin's own next read sees the change
// even though the redirect hot path tolerates staleness.
type SnapshotPublisher struct {
	logger       *zap.Logger
	mainLinks    repository.MainLinkRepository
	destinations repository.DestinationRepository
	users        repository.UserRepository
	snapshots    kv.SnapshotStore
}

// NewSnapshotPublisher creates a publisher with the provided dependencies.
func NewSnapshotPublisher(deps PublisherDeps) *SnapshotPublisher {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SnapshotPublisher{
		logger:       logger,
		mainLinks:    deps.MainLinks,
		destinations: deps.Destinations,
		users:        deps.Users,
		snapshots:    deps.Snapshots,
	}
}

// Publish rebuilds and overwrites the snapshot for mainLinkID. The cursor
// always restarts at 0: round-robin fairness is only guaranteed between
// administrative changes.
func (p *SnapshotPublisher) Publish(ctx context.Context, mainLinkID int64) error {
	link, err := p.mainLinks.GetByID(ctx, mainLinkID)
	if err != nil {
		return fmt.Errorf("publish snapshot: %w", err)
	}

	owner, err := p.users.GetByID(ctx, link.UserID)
	if err != nil {
		return fmt.Errorf("publish snapshot: %w", err)
	}

	dests, err := p.destinations.ListByMainLink(ctx, link.ID)
	if err != nil {
		return fmt.Errorf("publish snapshot: %w", err)
	}

	snap := &model.Snapshot{
		Mode:            link.Mode,
		RoundRobinIndex: 0,
		Destinations:    make([]model.DestinationRef, 0, len(dests)),
	}
	for _, d := range dests {
		snap.Destinations = append(snap.Destinations, model.DestinationRef{
			ID:       d.ID,
			Slug:     d.Slug,
			URL:      d.URL,
			IsActive: d.IsActive,
		})
	}

	key := model.SnapshotKey(owner.UserSlug, link.Slug)
	if err := p.snapshots.Put(ctx, key, snap); err != nil {
		return fmt.Errorf("publish snapshot: %w", err)
	}

	p.logger.Debug("snapshot published",
		zap.String("key", key),
		zap.String("mode", snap.Mode),
		zap.Int("destinations", len(snap.Destinations)))
	return nil
}

// Retract removes the snapshot for a deleted main link. Idempotent.
func (p *SnapshotPublisher) Retract(ctx context.Context, ownerSlug, campaignSlug string) error {
	key := model.SnapshotKey(ownerSlug, campaignSlug)
	if err := p.snapshots.Delete(ctx, key); err != nil {
		return fmt.Errorf("retract snapshot: %w", err)
	}
	return nil
}
