package service

import (
	"context"
	"time"

	"github.com/taekabu/linkfan/internal/app/repository"
	"go.uber.org/zap"
)

const resyncPageSize = 100

// SnapshotResyncer periodically republishes every main link's snapshot.
// A publish that failed during an admin mutation leaves the cache stale;
// the resync pass repairs it without waiting for the next mutation.
type SnapshotResyncer struct {
	logger    *zap.Logger
	links     repository.MainLinkRepository
	publisher *SnapshotPublisher
	interval  time.Duration
	stopChan  chan struct{}
}

// NewSnapshotResyncer creates a resyncer running every interval.
func NewSnapshotResyncer(logger *zap.Logger, links repository.MainLinkRepository, publisher *SnapshotPublisher, interval time.Duration) *SnapshotResyncer {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &SnapshotResyncer{
		logger:    logger,
		links:     links,
		publisher: publisher,
		interval:  interval,
		stopChan:  make(chan struct{}),
	}
}

// Start begins the periodic resync passes.
func (s *SnapshotResyncer) Start() {
	go s.run()
}

// Stop stops the periodic resync passes.
func (s *SnapshotResyncer) Stop() {
	close(s.stopChan)
}

func (s *SnapshotResyncer) run() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.resyncAll()
		case <-s.stopChan:
			s.logger.Info("snapshot resyncer stopped")
			return
		}
	}
}

func (s *SnapshotResyncer) resyncAll() {
	ctx := context.Background()
	var published, failed int

	for offset := 0; ; offset += resyncPageSize {
		links, err := s.links.List(ctx, resyncPageSize, offset)
		if err != nil {
			s.logger.Error("failed to list main links for resync", zap.Error(err))
			return
		}
		if len(links) == 0 {
			break
		}

		for _, link := range links {
			if err := s.publisher.Publish(ctx, link.ID); err != nil {
				failed++
				s.logger.Warn("snapshot resync failed",
					zap.Int64("main_link_id", link.ID),
					zap.Error(err))
				continue
			}
			published++
		}
	}

	if published > 0 || failed > 0 {
		s.logger.Info("snapshot resync pass finished",
			zap.Int("published", published),
			zap.Int("failed", failed))
	}
}
