package repository

import (
	"context"
	"errors"

	"github.com/taekabu/linkfan/internal/app/model"
	"gorm.io/gorm"
)

var (
	// ErrDestinationNotFound signals that the destination does not exist or
	// is not owned by the caller.
	ErrDestinationNotFound = errors.New("destination not found")
)

// DestinationRepository defines the data access contract for destination
// links.
type DestinationRepository interface {
	Create(ctx context.Context, dest *model.DestinationLink) error
	GetBySlug(ctx context.Context, slug string) (*model.DestinationLink, error)
	GetOwned(ctx context.Context, id, userID int64) (*model.DestinationLink, error)
	ListByMainLink(ctx context.Context, mainLinkID int64) ([]model.DestinationLink, error)
	Update(ctx context.Context, dest *model.DestinationLink) error
	Delete(ctx context.Context, id int64) error
}

type destinationRepository struct {
	db *gorm.DB
}

// NewDestinationRepository returns a GORM-backed DestinationRepository.
func NewDestinationRepository(db *gorm.DB) DestinationRepository {
	return &destinationRepository{db: db}
}

func (r *destinationRepository) Create(ctx context.Context, dest *model.DestinationLink) error {
	return r.db.WithContext(ctx).Create(dest).Error
}

// GetBySlug resolves a destination by its slug alone. Destination slugs are
// not unique; the first match by creation order wins, which is what the
// conversion endpoint relies on.
func (r *destinationRepository) GetBySlug(ctx context.Context, slug string) (*model.DestinationLink, error) {
	var dest model.DestinationLink
	if err := r.db.WithContext(ctx).
		Where("slug = ?", slug).
		Order("id ASC").
		First(&dest).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDestinationNotFound
		}
		return nil, err
	}
	return &dest, nil
}

// GetOwned loads a destination only when its main link belongs to userID.
func (r *destinationRepository) GetOwned(ctx context.Context, id, userID int64) (*model.DestinationLink, error) {
	var dest model.DestinationLink
	if err := r.db.WithContext(ctx).
		Joins("JOIN main_links ON main_links.id = destination_links.main_link_id").
		Where("destination_links.id = ? AND main_links.user_id = ?", id, userID).
		First(&dest).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDestinationNotFound
		}
		return nil, err
	}
	return &dest, nil
}

// ListByMainLink returns destinations in creation order; that order is the
// fan-out order everywhere downstream.
func (r *destinationRepository) ListByMainLink(ctx context.Context, mainLinkID int64) ([]model.DestinationLink, error) {
	var result []model.DestinationLink
	if err := r.db.WithContext(ctx).
		Where("main_link_id = ?", mainLinkID).
		Order("id ASC").
		Find(&result).Error; err != nil {
		return nil, err
	}
	return result, nil
}

func (r *destinationRepository) Update(ctx context.Context, dest *model.DestinationLink) error {
	result := r.db.WithContext(ctx).
		Model(&model.DestinationLink{}).
		Where("id = ?", dest.ID).
		Updates(map[string]interface{}{
			"url":       dest.URL,
			"is_active": dest.IsActive,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrDestinationNotFound
	}
	return nil
}

func (r *destinationRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("destination_link_id = ?", id).
			Delete(&model.ConversionSetting{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.DestinationLink{}, id).Error
	})
}
