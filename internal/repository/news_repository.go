package repository

import (
	"context"
	"time"

	"pulseai/internal/entity"
	"pulseai/pkg/logger"
	"pulseai/pkg/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NewNewsRepository creates a new instance of NewsRepository.
func NewNewsRepository(db *gorm.DB, log *logger.Logger) NewsRepository {
	return &newsRepository{
		db:     db,
		logger: log,
	}
}

type newsRepository struct {
	db     *gorm.DB
	logger *logger.Logger
}

// Upsert saves a news item. On a uid conflict the newer version wins for the
// mutable columns while created_at is preserved. Returns true when a new row
// was inserted.
func (r *newsRepository) Upsert(ctx context.Context, item *entity.NewsItem) (bool, error) {
	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "uid"}},
		DoNothing: true,
	}).Create(item)
	if tx.Error != nil {
		return false, tx.Error
	}
	if tx.RowsAffected > 0 {
		return true, nil
	}

	updates := map[string]interface{}{
		"title":        item.Title,
		"content":      item.Body,
		"link":         item.Link,
		"source":       item.SourceName,
		"category":     item.Category,
		"subcategory":  item.Subcategory,
		"published_at": item.PublishedAt,
	}
	// Unscored refreshes keep the stored scores.
	if item.Importance > 0 || item.Credibility > 0 {
		updates["importance"] = item.Importance
		updates["credibility"] = item.Credibility
	}
	err := r.db.WithContext(ctx).
		Model(&entity.NewsItem{}).
		Where("uid = ?", item.UID).
		Updates(updates).Error
	return false, err
}

// UpsertAsync saves a news item in the background and logs failures instead
// of returning them.
func (r *newsRepository) UpsertAsync(ctx context.Context, item *entity.NewsItem) {
	utils.GoSafe(func() {
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if _, err := r.Upsert(saveCtx, item); err != nil {
			r.logger.Error("Failed to save news item",
				logger.ErrorField(err),
				logger.StringField("uid", item.UID),
				logger.StringField("title", item.Title),
			)
		}
	})
}

func (r *newsRepository) FindForDigest(ctx context.Context, q NewsQuery) ([]entity.NewsItem, error) {
	var items []entity.NewsItem
	query := r.db.WithContext(ctx).Model(&entity.NewsItem{})
	if len(q.Categories) > 0 {
		query = query.Where("category IN ?", q.Categories)
	}
	if q.MinImportance > 0 {
		query = query.Where("importance >= ?", q.MinImportance)
	}
	if !q.Since.IsZero() {
		query = query.Where("published_at >= ?", q.Since)
	}
	query = query.Order("published_at DESC, importance DESC")
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}
	err := query.Find(&items).Error
	return items, err
}

func (r *newsRepository) FindRecent(ctx context.Context, since time.Time, limit int) ([]entity.NewsItem, error) {
	var items []entity.NewsItem
	query := r.db.WithContext(ctx).
		Where("published_at >= ?", since).
		Order("published_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&items).Error
	return items, err
}

func (r *newsRepository) FindByUIDs(ctx context.Context, uids []string) ([]entity.NewsItem, error) {
	if len(uids) == 0 {
		return nil, nil
	}
	var items []entity.NewsItem
	err := r.db.WithContext(ctx).Where("uid IN ?", uids).Find(&items).Error
	return items, err
}

func (r *newsRepository) FindByIDs(ctx context.Context, ids []uint) ([]entity.NewsItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var items []entity.NewsItem
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&items).Error
	return items, err
}

// ExistingUIDs returns which of the given uids are already stored.
func (r *newsRepository) ExistingUIDs(ctx context.Context, uids []string) (map[string]struct{}, error) {
	existing := make(map[string]struct{}, len(uids))
	if len(uids) == 0 {
		return existing, nil
	}
	var found []string
	err := r.db.WithContext(ctx).
		Model(&entity.NewsItem{}).
		Where("uid IN ?", uids).
		Pluck("uid", &found).Error
	if err != nil {
		return nil, err
	}
	for _, uid := range found {
		existing[uid] = struct{}{}
	}
	return existing, nil
}
