package entity

import "time"

// UserPreference stores per-user digest tuning.
type UserPreference struct {
	UserID           int64     `gorm:"primaryKey" json:"user_id"`
	PreferredStyle   string    `json:"preferred_style"`
	PreferredLength  string    `json:"preferred_length"`
	MinImportance    float64   `json:"min_importance"`
	NotificationHour int       `json:"notification_hour"`
	SmartFiltering   bool      `json:"smart_filtering"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for the UserPreference model.
func (UserPreference) TableName() string {
	return "user_preferences"
}

// DefaultUserPreference returns the preferences used for a user with no
// stored row.
func DefaultUserPreference(userID int64) *UserPreference {
	return &UserPreference{
		UserID:           userID,
		PreferredStyle:   "",
		PreferredLength:  "medium",
		MinImportance:    0,
		NotificationHour: 8,
		SmartFiltering:   true,
	}
}
