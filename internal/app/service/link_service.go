package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/taekabu/linkfan/internal/app/kv"
	"github.com/taekabu/linkfan/internal/app/model"
	"github.com/taekabu/linkfan/internal/app/repository"
	"go.uber.org/zap"
)

var (
	// ErrMaxLinksReached signals the owner hit their main-link quota.
	ErrMaxLinksReached = errors.New("maximum main links limit reached")
	// ErrSlugExists signals a duplicate campaign slug for the same owner.
	ErrSlugExists = errors.New("slug already exists for this user")
	// ErrConfirmSlugMismatch signals a delete without the owner-slug
	// confirmation.
	ErrConfirmSlugMismatch = errors.New("user slug confirmation required")
	// ErrInvalidMode signals a selection mode outside the known set.
	ErrInvalidMode = errors.New("mode must be round-robin or random")
	// ErrPublishFailed signals that the relational write committed but the
	// snapshot could not be published; the cache is stale until the next
	// successful publish.
	ErrPublishFailed = errors.New("snapshot publish failed")
)

// DestinationStats is the admin view of a destination: the relational row
// joined with its counters and conversion setting.
type DestinationStats struct {
	model.DestinationLink
	Clicks            int64
	Conversions       int64
	ConversionSetting *model.ConversionSetting
}

// CreateMainLinkInput captures data required to create a main link.
type CreateMainLinkInput struct {
	Slug string
	Icon string
}

// UpdateMainLinkInput captures fields that can change on a main link.
type UpdateMainLinkInput struct {
	Mode *string
	Icon *string
}

// CreateDestinationInput captures data required to create a destination.
type CreateDestinationInput struct {
	Slug string
	URL  string
}

// UpdateDestinationInput captures fields that can change on a destination.
type UpdateDestinationInput struct {
	URL      *string
	IsActive *bool
}

// LinkService defines behaviour-level operations on main links and their
// destinations. Every committed mutation republishes the affected snapshot
// before returning; a publish failure is surfaced but never rolls back the
// relational write.
type LinkService interface {
	CreateMainLink(ctx context.Context, owner *model.User, input CreateMainLinkInput) (*model.MainLink, error)
	ListMainLinks(ctx context.Context, userID int64) ([]model.MainLink, error)
	UpdateMainLink(ctx context.Context, userID, id int64, input UpdateMainLinkInput) error
	DeleteMainLink(ctx context.Context, owner *model.User, id int64, confirmSlug string) error

	ListDestinations(ctx context.Context, userID, mainLinkID int64) ([]DestinationStats, error)
	CreateDestination(ctx context.Context, userID, mainLinkID int64, input CreateDestinationInput) (*model.DestinationLink, error)
	UpdateDestination(ctx context.Context, userID, id int64, input UpdateDestinationInput) error
	DeleteDestination(ctx context.Context, userID, id int64) error

	RenameOwnerSlug(ctx context.Context, owner *model.User, newSlug string) error
}

// LinkServiceDeps groups the collaborators of the link service.
type LinkServiceDeps struct {
	Logger       *zap.Logger
	Users        repository.UserRepository
	MainLinks    repository.MainLinkRepository
	Destinations repository.DestinationRepository
	Settings     repository.ConversionSettingRepository
	Counters     kv.CounterStore
	Publisher    *SnapshotPublisher
}

type linkService struct {
	logger       *zap.Logger
	users        repository.UserRepository
	mainLinks    repository.MainLinkRepository
	destinations repository.DestinationRepository
	settings     repository.ConversionSettingRepository
	counters     kv.CounterStore
	publisher    *SnapshotPublisher
}

// NewLinkService returns a service implementation backed by the given
// repositories and publisher.
func NewLinkService(deps LinkServiceDeps) LinkService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &linkService{
		logger:       logger,
		users:        deps.Users,
		mainLinks:    deps.MainLinks,
		destinations: deps.Destinations,
		settings:     deps.Settings,
		counters:     deps.Counters,
		publisher:    deps.Publisher,
	}
}

func (s *linkService) CreateMainLink(ctx context.Context, owner *model.User, input CreateMainLinkInput) (*model.MainLink, error) {
	count, err := s.mainLinks.CountByUser(ctx, owner.ID)
	if err != nil {
		return nil, fmt.Errorf("create main link: %w", err)
	}
	if count >= int64(owner.MaxLinks) {
		return nil, ErrMaxLinksReached
	}

	exists, err := s.mainLinks.ExistsSlug(ctx, owner.ID, input.Slug)
	if err != nil {
		return nil, fmt.Errorf("create main link: %w", err)
	}
	if exists {
		return nil, ErrSlugExists
	}

	link := &model.MainLink{
		UserID: owner.ID,
		Slug:   input.Slug,
		Mode:   model.ModeRoundRobin,
		Icon:   input.Icon,
	}
	if link.Icon == "" {
		link.Icon = "link"
	}
	if err := s.mainLinks.Create(ctx, link); err != nil {
		return nil, fmt.Errorf("create main link: %w", err)
	}

	// Publish even with no destinations yet, so the key exists.
	if err := s.publisher.Publish(ctx, link.ID); err != nil {
		return link, fmt.Errorf("%w: %v", ErrPublishFailed, err)
	}
	return link, nil
}

func (s *linkService) ListMainLinks(ctx context.Context, userID int64) ([]model.MainLink, error) {
	links, err := s.mainLinks.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list main links: %w", err)
	}
	return links, nil
}

func (s *linkService) UpdateMainLink(ctx context.Context, userID, id int64, input UpdateMainLinkInput) error {
	link, err := s.mainLinks.GetOwned(ctx, id, userID)
	if err != nil {
		return fmt.Errorf("update main link: %w", err)
	}

	if input.Mode != nil {
		if *input.Mode != model.ModeRoundRobin && *input.Mode != model.ModeRandom {
			return ErrInvalidMode
		}
		link.Mode = *input.Mode
	}
	if input.Icon != nil {
		link.Icon = *input.Icon
	}

	if err := s.mainLinks.Update(ctx, link); err != nil {
		return fmt.Errorf("update main link: %w", err)
	}

	if err := s.publisher.Publish(ctx, link.ID); err != nil {
		return fmt.Errorf("%w: %v", ErrPublishFailed, err)
	}
	return nil
}

func (s *linkService) DeleteMainLink(ctx context.Context, owner *model.User, id int64, confirmSlug string) error {
	if confirmSlug == "" || confirmSlug != owner.UserSlug {
		return ErrConfirmSlugMismatch
	}

	link, err := s.mainLinks.GetOwned(ctx, id, owner.ID)
	if err != nil {
		return fmt.Errorf("delete main link: %w", err)
	}

	if err := s.mainLinks.Delete(ctx, link.ID); err != nil {
		return fmt.Errorf("delete main link: %w", err)
	}

	// Counters for the deleted destinations are left behind on purpose;
	// destination ids are never reused.
	if err := s.publisher.Retract(ctx, owner.UserSlug, link.Slug); err != nil {
		return fmt.Errorf("%w: %v", ErrPublishFailed, err)
	}
	return nil
}

func (s *linkService) ListDestinations(ctx context.Context, userID, mainLinkID int64) ([]DestinationStats, error) {
	if _, err := s.mainLinks.GetOwned(ctx, mainLinkID, userID); err != nil {
		return nil, fmt.Errorf("list destinations: %w", err)
	}

	dests, err := s.destinations.ListByMainLink(ctx, mainLinkID)
	if err != nil {
		return nil, fmt.Errorf("list destinations: %w", err)
	}

	stats := make([]DestinationStats, 0, len(dests))
	for _, dest := range dests {
		stats = append(stats, DestinationStats{
			DestinationLink:   dest,
			Clicks:            s.counterValue(ctx, kv.CounterClick, dest.ID),
			Conversions:       s.counterValue(ctx, kv.CounterConversion, dest.ID),
			ConversionSetting: s.settingOrNil(ctx, dest.ID),
		})
	}
	return stats, nil
}

func (s *linkService) CreateDestination(ctx context.Context, userID, mainLinkID int64, input CreateDestinationInput) (*model.DestinationLink, error) {
	if _, err := s.mainLinks.GetOwned(ctx, mainLinkID, userID); err != nil {
		return nil, fmt.Errorf("create destination: %w", err)
	}

	// Destination slugs may repeat; only main-link slugs are unique.
	dest := &model.DestinationLink{
		MainLinkID: mainLinkID,
		Slug:       input.Slug,
		URL:        input.URL,
		IsActive:   true,
	}
	if err := s.destinations.Create(ctx, dest); err != nil {
		return nil, fmt.Errorf("create destination: %w", err)
	}

	if err := s.publisher.Publish(ctx, mainLinkID); err != nil {
		return dest, fmt.Errorf("%w: %v", ErrPublishFailed, err)
	}
	return dest, nil
}

func (s *linkService) UpdateDestination(ctx context.Context, userID, id int64, input UpdateDestinationInput) error {
	dest, err := s.destinations.GetOwned(ctx, id, userID)
	if err != nil {
		return fmt.Errorf("update destination: %w", err)
	}

	if input.URL != nil {
		dest.URL = *input.URL
	}
	if input.IsActive != nil {
		dest.IsActive = *input.IsActive
	}

	if err := s.destinations.Update(ctx, dest); err != nil {
		return fmt.Errorf("update destination: %w", err)
	}

	if err := s.publisher.Publish(ctx, dest.MainLinkID); err != nil {
		return fmt.Errorf("%w: %v", ErrPublishFailed, err)
	}
	return nil
}

func (s *linkService) DeleteDestination(ctx context.Context, userID, id int64) error {
	dest, err := s.destinations.GetOwned(ctx, id, userID)
	if err != nil {
		return fmt.Errorf("delete destination: %w", err)
	}

	if err := s.destinations.Delete(ctx, dest.ID); err != nil {
		return fmt.Errorf("delete destination: %w", err)
	}

	if err := s.publisher.Publish(ctx, dest.MainLinkID); err != nil {
		return fmt.Errorf("%w: %v", ErrPublishFailed, err)
	}
	return nil
}

// RenameOwnerSlug moves every published snapshot of the owner to the new
// key prefix: retract under the old slug, republish under the new one.
func (s *linkService) RenameOwnerSlug(ctx context.Context, owner *model.User, newSlug string) error {
	oldSlug := owner.UserSlug

	if err := s.users.UpdateSlug(ctx, owner.ID, newSlug); err != nil {
		return fmt.Errorf("rename owner slug: %w", err)
	}

	links, err := s.mainLinks.ListByUser(ctx, owner.ID)
	if err != nil {
		return fmt.Errorf("rename owner slug: %w", err)
	}

	var firstErr error
	for _, link := range links {
		if err := s.publisher.Retract(ctx, oldSlug, link.Slug); err != nil && firstErr == nil {
			firstErr = err
		}
		if err := s.publisher.Publish(ctx, link.ID); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return fmt.Errorf("%w: %v", ErrPublishFailed, firstErr)
	}

	owner.UserSlug = newSlug
	return nil
}

func (s *linkService) counterValue(ctx context.Context, kind kv.CounterKind, destID int64) int64 {
	n, err := s.counters.Get(ctx, kind, destID)
	if err != nil {
		s.logger.Warn("counter read failed",
			zap.String("kind", string(kind)),
			zap.Int64("destination_id", destID),
			zap.Error(err))
		return 0
	}
	return n
}

func (s *linkService) settingOrNil(ctx context.Context, destID int64) *model.ConversionSetting {
	setting, err := s.settings.GetByDestination(ctx, destID)
	if err != nil {
		if !errors.Is(err, repository.ErrConversionSettingNotFound) {
			s.logger.Warn("conversion setting read failed",
				zap.Int64("destination_id", destID),
				zap.Error(err))
		}
		return nil
	}
	return setting
}
