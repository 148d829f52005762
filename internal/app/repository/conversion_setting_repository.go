package repository

import (
	"context"
	"errors"

	"github.com/taekabu/linkfan/internal/app/model"
	"gorm.io/gorm"
)

var (
	// ErrConversionSettingNotFound signals that a destination has no
	// conversion setting configured.
	ErrConversionSettingNotFound = errors.New("conversion setting not found")
)

// ConversionSettingRepository defines the data access contract for
// conversion settings.
type ConversionSettingRepository interface {
	GetByDestination(ctx context.Context, destinationLinkID int64) (*model.ConversionSetting, error)
	Replace(ctx context.Context, setting *model.ConversionSetting) error
}

type conversionSettingRepository struct {
	db *gorm.DB
}

// NewConversionSettingRepository returns a GORM-backed
// ConversionSettingRepository.
func NewConversionSettingRepository(db *gorm.DB) ConversionSettingRepository {
	return &conversionSettingRepository{db: db}
}

func (r *conversionSettingRepository) GetByDestination(ctx context.Context, destinationLinkID int64) (*model.ConversionSetting, error) {
	var setting model.ConversionSetting
	if err := r.db.WithContext(ctx).
		Where("destination_link_id = ?", destinationLinkID).
		First(&setting).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversionSettingNotFound
		}
		return nil, err
	}
	return &setting, nil
}

// Replace drops any existing setting for the destination and inserts the
// new one; a destination has at most one setting.
func (r *conversionSettingRepository) Replace(ctx context.Context, setting *model.ConversionSetting) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("destination_link_id = ?", setting.DestinationLinkID).
			Delete(&model.ConversionSetting{}).Error; err != nil {
			return err
		}
		return tx.Create(setting).Error
	})
}
