package repository

import (
	"context"
	"errors"

	"github.com/taekabu/linkfan/internal/app/model"
	"gorm.io/gorm"
)

var (
	// ErrMainLinkNotFound signals that the requested main link does not exist
	// or is not owned by the caller.
	ErrMainLinkNotFound = errors.New("main link not found")
)

// MainLinkRepository defines the data access contract for main links.
type MainLinkRepository interface {
	Create(ctx context.Context, link *model.MainLink) error
	GetByID(ctx context.Context, id int64) (*model.MainLink, error)
	GetOwned(ctx context.Context, id, userID int64) (*model.MainLink, error)
	ListByUser(ctx context.Context, userID int64) ([]model.MainLink, error)
	List(ctx context.Context, limit, offset int) ([]model.MainLink, error)
	ExistsSlug(ctx context.Context, userID int64, slug string) (bool, error)
	CountByUser(ctx context.Context, userID int64) (int64, error)
	Update(ctx context.Context, link *model.MainLink) error
	Delete(ctx context.Context, id int64) error
}

type mainLinkRepository struct {
	db *gorm.DB
}

// NewMainLinkRepository returns a GORM-backed MainLinkRepository.
func NewMainLinkRepository(db *gorm.DB) MainLinkRepository {
	return &mainLinkRepository{db: db}
}

func (r *mainLinkRepository) Create(ctx context.Context, link *model.MainLink) error {
	return r.db.WithContext(ctx).Create(link).Error
}

func (r *mainLinkRepository) GetByID(ctx context.Context, id int64) (*model.MainLink, error) {
	var link model.MainLink
	if err := r.db.WithContext(ctx).First(&link, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMainLinkNotFound
		}
		return nil, err
	}
	return &link, nil
}

func (r *mainLinkRepository) GetOwned(ctx context.Context, id, userID int64) (*model.MainLink, error) {
	var link model.MainLink
	if err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMainLinkNotFound
		}
		return nil, err
	}
	return &link, nil
}

func (r *mainLinkRepository) ListByUser(ctx context.Context, userID int64) ([]model.MainLink, error) {
	var result []model.MainLink
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id ASC").
		Find(&result).Error; err != nil {
		return nil, err
	}
	return result, nil
}

// List pages through all main links; the resync worker walks the whole
// table with it.
func (r *mainLinkRepository) List(ctx context.Context, limit, offset int) ([]model.MainLink, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	var result []model.MainLink
	if err := r.db.WithContext(ctx).
		Order("id ASC").
		Limit(limit).
		Offset(offset).
		Find(&result).Error; err != nil {
		return nil, err
	}
	return result, nil
}

func (r *mainLinkRepository) ExistsSlug(ctx context.Context, userID int64, slug string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&model.MainLink{}).
		Where("user_id = ? AND slug = ?", userID, slug).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *mainLinkRepository) CountByUser(ctx context.Context, userID int64) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&model.MainLink{}).
		Where("user_id = ?", userID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *mainLinkRepository) Update(ctx context.Context, link *model.MainLink) error {
	result := r.db.WithContext(ctx).
		Model(&model.MainLink{}).
		Where("id = ?", link.ID).
		Updates(map[string]interface{}{
			"mode": link.Mode,
			"icon": link.Icon,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrMainLinkNotFound
	}
	return nil
}

func (r *mainLinkRepository) Delete(ctx context.Context, id int64) error {
	// Destinations and conversion settings go with the main link; the
	// snapshot retract is the caller's job.
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var destIDs []int64
		if err := tx.Model(&model.DestinationLink{}).
			Where("main_link_id = ?", id).
			Pluck("id", &destIDs).Error; err != nil {
			return err
		}
		if len(destIDs) > 0 {
			if err := tx.Where("destination_link_id IN ?", destIDs).
				Delete(&model.ConversionSetting{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("main_link_id = ?", id).
			Delete(&model.DestinationLink{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.MainLink{}, id).Error
	})
}
