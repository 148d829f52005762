package repository

import (
	"context"
	"errors"

	"github.com/taekabu/linkfan/internal/app/model"
	"gorm.io/gorm"
)

var (
	// ErrUserNotFound signals that no user matches the lookup.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserSlugTaken signals a slug rename collision with another user.
	ErrUserSlugTaken = errors.New("user slug already exists")
)

// UserRepository defines the data access contract for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetBySlug(ctx context.Context, slug string) (*model.User, error)
	UpdateSlug(ctx context.Context, id int64, newSlug string) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a GORM-backed UserRepository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetBySlug(ctx context.Context, slug string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).
		Where("user_slug = ?", slug).
		First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) UpdateSlug(ctx context.Context, id int64, newSlug string) error {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("user_slug = ? AND id != ?", newSlug, id).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrUserSlugTaken
	}

	result := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", id).
		Update("user_slug", newSlug)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}
