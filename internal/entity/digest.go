package entity

import (
	"time"

	"gorm.io/datatypes"
)

// DigestFilter selects which digests a listing returns.
type DigestFilter string

const (
	DigestFilterActive   DigestFilter = "active"
	DigestFilterArchived DigestFilter = "archived"
	DigestFilterDeleted  DigestFilter = "deleted"
	DigestFilterAll      DigestFilter = "all"
)

// DigestOp is a soft mutation on a digest.
type DigestOp string

const (
	DigestOpArchive    DigestOp = "archive"
	DigestOpUnarchive  DigestOp = "unarchive"
	DigestOpSoftDelete DigestOp = "soft_delete"
	DigestOpRestore    DigestOp = "restore"
)

// Digest is a generated per-user news summary.
type Digest struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	UserID        int64          `gorm:"index;not null" json:"user_id"`
	Summary       string         `gorm:"type:text" json:"summary"`
	Category      string         `json:"category"`
	Style         string         `json:"style"`
	Period        string         `json:"period"`
	Length        string         `json:"length"`
	LimitCount    int            `json:"limit_count"`
	Archived      bool           `json:"archived"`
	DeletedAt     *time.Time     `json:"deleted_at,omitempty"`
	FeedbackScore float64        `json:"feedback_score"`
	FeedbackCount int            `json:"feedback_count"`
	Metadata      datatypes.JSON `json:"metadata"`
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"created_at"`
}

// TableName specifies the table name for the Digest model.
func (Digest) TableName() string {
	return "digests"
}

// MatchesFilter reports whether the digest belongs to the given listing filter.
// Active, archived and deleted are pairwise disjoint; all is their union.
func (d *Digest) MatchesFilter(f DigestFilter) bool {
	switch f {
	case DigestFilterActive:
		return d.DeletedAt == nil && !d.Archived
	case DigestFilterArchived:
		return d.DeletedAt == nil && d.Archived
	case DigestFilterDeleted:
		return d.DeletedAt != nil
	case DigestFilterAll:
		return true
	default:
		return false
	}
}

// ApplyOp mutates only the archive and delete flags. It reports whether the
// operation changed anything.
func (d *Digest) ApplyOp(op DigestOp, now time.Time) bool {
	switch op {
	case DigestOpArchive:
		if d.Archived || d.DeletedAt != nil {
			return false
		}
		d.Archived = true
	case DigestOpUnarchive:
		if !d.Archived || d.DeletedAt != nil {
			return false
		}
		d.Archived = false
	case DigestOpSoftDelete:
		if d.DeletedAt != nil {
			return false
		}
		ts := now
		d.DeletedAt = &ts
		d.Archived = false
	case DigestOpRestore:
		if d.DeletedAt == nil {
			return false
		}
		d.DeletedAt = nil
	default:
		return false
	}
	return true
}

// AddFeedback folds a new score into the running mean.
func (d *Digest) AddFeedback(score float64) {
	total := d.FeedbackScore*float64(d.FeedbackCount) + score
	d.FeedbackCount++
	d.FeedbackScore = total / float64(d.FeedbackCount)
}
