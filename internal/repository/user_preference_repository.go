package repository

import (
	"context"
	"errors"

	"pulseai/internal/entity"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NewUserPreferenceRepository creates a new instance of UserPreferenceRepository.
func NewUserPreferenceRepository(db *gorm.DB) UserPreferenceRepository {
	return &userPreferenceRepository{
		db: db,
	}
}

type userPreferenceRepository struct {
	db *gorm.DB
}

// Get returns the user's preferences, falling back to defaults when the user
// has none stored yet.
func (r *userPreferenceRepository) Get(ctx context.Context, userID int64) (*entity.UserPreference, error) {
	var pref entity.UserPreference
	err := r.db.WithContext(ctx).First(&pref, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return entity.DefaultUserPreference(userID), nil
	}
	if err != nil {
		return nil, err
	}
	return &pref, nil
}

func (r *userPreferenceRepository) Save(ctx context.Context, pref *entity.UserPreference) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		UpdateAll: true,
	}).Create(pref).Error
}

func (r *userPreferenceRepository) FindByNotificationHour(ctx context.Context, hour int) ([]entity.UserPreference, error) {
	var prefs []entity.UserPreference
	err := r.db.WithContext(ctx).Where("notification_hour = ?", hour).Find(&prefs).Error
	return prefs, err
}
