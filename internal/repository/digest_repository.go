package repository

import (
	"context"
	"fmt"
	"time"

	"pulseai/internal/entity"

	"gorm.io/gorm"
)

// NewDigestRepository creates a new instance of DigestRepository.
func NewDigestRepository(db *gorm.DB) DigestRepository {
	return &digestRepository{
		db: db,
	}
}

type digestRepository struct {
	db *gorm.DB
}

func (r *digestRepository) Create(ctx context.Context, digest *entity.Digest) error {
	return r.db.WithContext(ctx).Create(digest).Error
}

func (r *digestRepository) Get(ctx context.Context, id uint) (*entity.Digest, error) {
	var digest entity.Digest
	if err := r.db.WithContext(ctx).First(&digest, id).Error; err != nil {
		return nil, err
	}
	return &digest, nil
}

// ListByUser returns the user's digests in the given lifecycle scope, newest
// first. The active, archived and deleted scopes are pairwise disjoint.
func (r *digestRepository) ListByUser(ctx context.Context, userID int64, filter entity.DigestFilter, limit, offset int) ([]entity.Digest, error) {
	var digests []entity.Digest
	query := r.db.WithContext(ctx).Where("user_id = ?", userID)

	switch filter {
	case entity.DigestFilterActive:
		query = query.Where("archived = ? AND deleted_at IS NULL", false)
	case entity.DigestFilterArchived:
		query = query.Where("archived = ? AND deleted_at IS NULL", true)
	case entity.DigestFilterDeleted:
		query = query.Where("deleted_at IS NOT NULL")
	case entity.DigestFilterAll:
	default:
		return nil, fmt.Errorf("unknown digest filter: %q", filter)
	}

	query = query.Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	err := query.Find(&digests).Error
	return digests, err
}

// Mutate applies a lifecycle operation to a digest and returns the updated row.
func (r *digestRepository) Mutate(ctx context.Context, id uint, op entity.DigestOp) (*entity.Digest, error) {
	switch op {
	case entity.DigestOpArchive, entity.DigestOpUnarchive, entity.DigestOpSoftDelete, entity.DigestOpRestore:
	default:
		return nil, entity.NewAppError(entity.KindValidation, "digest.mutate", fmt.Sprintf("unknown operation %q", op), nil)
	}

	var digest entity.Digest
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&digest, id).Error; err != nil {
			return err
		}
		if !digest.ApplyOp(op, time.Now().UTC()) {
			return nil
		}
		return tx.Model(&digest).Select("archived", "deleted_at").Updates(map[string]interface{}{
			"archived":   digest.Archived,
			"deleted_at": digest.DeletedAt,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &digest, nil
}

// AddFeedback folds a rating into the digest's running feedback mean.
func (r *digestRepository) AddFeedback(ctx context.Context, id uint, rating float64) (*entity.Digest, error) {
	var digest entity.Digest
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&digest, id).Error; err != nil {
			return err
		}
		digest.AddFeedback(rating)
		return tx.Model(&digest).Select("feedback_score", "feedback_count").Updates(map[string]interface{}{
			"feedback_score": digest.FeedbackScore,
			"feedback_count": digest.FeedbackCount,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &digest, nil
}

func (r *digestRepository) FindWithFeedback(ctx context.Context, userID int64) ([]entity.Digest, error) {
	var digests []entity.Digest
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND feedback_count > 0", userID).
		Order("created_at DESC").
		Find(&digests).Error
	return digests, err
}
