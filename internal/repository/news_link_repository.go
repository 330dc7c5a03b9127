package repository

import (
	"context"

	"pulseai/internal/entity"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NewNewsLinkRepository creates a new instance of NewsLinkRepository.
func NewNewsLinkRepository(db *gorm.DB) NewsLinkRepository {
	return &newsLinkRepository{
		db: db,
	}
}

type newsLinkRepository struct {
	db *gorm.DB
}

// UpsertLink stores a related-news edge, refreshing the similarity score when
// the pair already exists.
func (r *newsLinkRepository) UpsertLink(ctx context.Context, link *entity.NewsLink) error {
	link.ItemAID, link.ItemBID = entity.OrderedPair(link.ItemAID, link.ItemBID)
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "item_a_id"}, {Name: "item_b_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"similarity"}),
	}).Create(link).Error
}

func (r *newsLinkRepository) FindLinks(ctx context.Context, itemID uint, limit int) ([]entity.NewsLink, error) {
	var links []entity.NewsLink
	query := r.db.WithContext(ctx).
		Where("item_a_id = ? OR item_b_id = ?", itemID, itemID).
		Order("similarity DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&links).Error
	return links, err
}
