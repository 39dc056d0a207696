package store

import (
	"context"
	"errors"

	"SafeHaven/internal/models"

	"gorm.io/gorm"
)

// ProfileStore reads and updates requester and responder profiles.
// Creation belongs to the external registration service.
type ProfileStore struct {
	db *gorm.DB
}

func NewProfileStore(db *gorm.DB) *ProfileStore {
	return &ProfileStore{db: db}
}

func (s *ProfileStore) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *ProfileStore) UpdateUser(ctx context.Context, id uint, updates map[string]interface{}) (*models.User, error) {
	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(&models.User{}).
			Where("id = ?", id).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return s.GetUser(ctx, id)
}

func (s *ProfileStore) GetResponder(ctx context.Context, id uint) (*models.Responder, error) {
	var responder models.Responder
	err := s.db.WithContext(ctx).First(&responder, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &responder, nil
}

func (s *ProfileStore) UpdateResponder(ctx context.Context, id uint, updates map[string]interface{}) (*models.Responder, error) {
	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(&models.Responder{}).
			Where("id = ?", id).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return s.GetResponder(ctx, id)
}

// SetAvailability flips a responder's availability. The change affects
// only future dispatch decisions; alerts already assigned keep their
// assignee.
func (s *ProfileStore) SetAvailability(ctx context.Context, id uint, available bool) (*models.Responder, error) {
	return s.UpdateResponder(ctx, id, map[string]interface{}{"is_available": available})
}
