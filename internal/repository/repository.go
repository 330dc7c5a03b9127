package repository

import (
	"context"
	"time"

	"pulseai/internal/entity"
)

// NewsQuery narrows news item lookups for digest composition.
type NewsQuery struct {
	Categories    []string
	MinImportance float64
	Since         time.Time
	Limit         int
}

// NewsRepository defines the interface for interacting with stored news items.
type NewsRepository interface {
	Upsert(ctx context.Context, item *entity.NewsItem) (bool, error)
	UpsertAsync(ctx context.Context, item *entity.NewsItem)
	FindForDigest(ctx context.Context, q NewsQuery) ([]entity.NewsItem, error)
	FindRecent(ctx context.Context, since time.Time, limit int) ([]entity.NewsItem, error)
	FindByUIDs(ctx context.Context, uids []string) ([]entity.NewsItem, error)
	FindByIDs(ctx context.Context, ids []uint) ([]entity.NewsItem, error)
	ExistingUIDs(ctx context.Context, uids []string) (map[string]struct{}, error)
}

// DigestRepository defines the interface for interacting with generated digests.
type DigestRepository interface {
	Create(ctx context.Context, digest *entity.Digest) error
	Get(ctx context.Context, id uint) (*entity.Digest, error)
	ListByUser(ctx context.Context, userID int64, filter entity.DigestFilter, limit, offset int) ([]entity.Digest, error)
	Mutate(ctx context.Context, id uint, op entity.DigestOp) (*entity.Digest, error)
	AddFeedback(ctx context.Context, id uint, rating float64) (*entity.Digest, error)
	FindWithFeedback(ctx context.Context, userID int64) ([]entity.Digest, error)
}

// UserPreferenceRepository defines the interface for per-user digest preferences.
type UserPreferenceRepository interface {
	Get(ctx context.Context, userID int64) (*entity.UserPreference, error)
	Save(ctx context.Context, pref *entity.UserPreference) error
	FindByNotificationHour(ctx context.Context, hour int) ([]entity.UserPreference, error)
}

// NewsLinkRepository defines the interface for the related-news graph.
type NewsLinkRepository interface {
	UpsertLink(ctx context.Context, link *entity.NewsLink) error
	FindLinks(ctx context.Context, itemID uint, limit int) ([]entity.NewsLink, error)
}

// AIRepository defines the interface for AI-backed scoring and text generation.
type AIRepository interface {
	ScoreImportance(ctx context.Context, item *entity.NewsItem) (float64, error)
	ScoreCredibility(ctx context.Context, item *entity.NewsItem) (float64, error)
	GenerateDigest(ctx context.Context, prompt string) (string, error)
}
