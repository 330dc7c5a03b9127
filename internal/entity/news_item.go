package entity

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"pulseai/pkg/utils"
)

// MaxTitleLen caps stored titles.
const MaxTitleLen = 512

// NewsItem represents a single ingested news article.
type NewsItem struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UID         string    `gorm:"uniqueIndex;not null" json:"uid"`
	Title       string    `gorm:"not null" json:"title"`
	Body        string    `gorm:"column:content" json:"content"`
	Link        string    `json:"link"`
	SourceName  string    `gorm:"column:source" json:"source"`
	Category    string    `json:"category"`
	Subcategory string    `json:"subcategory"`
	PublishedAt time.Time `json:"published_at"`
	Importance  float64   `json:"importance"`
	Credibility float64   `json:"credibility"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`

	// Diagnostic only, set by the extractor.
	ExtractionMethod string `gorm:"-" json:"extraction_method,omitempty"`
}

// TableName specifies the table name for the NewsItem model.
func (NewsItem) TableName() string {
	return "news_items"
}

// ComputeUID derives the dedup fingerprint for an item. Items without a link
// fall back to title and source so distinct sources never collide.
func ComputeUID(link, title, source string) string {
	key := link + "|" + title
	if link == "" {
		key = title + "|" + source
	}
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// AssignUID computes and sets the item fingerprint.
func (n *NewsItem) AssignUID() {
	n.UID = ComputeUID(n.Link, n.Title, n.SourceName)
}

// ClampScores forces importance and credibility into [0, 1].
func (n *NewsItem) ClampScores() {
	n.Importance = utils.Clamp01(n.Importance)
	n.Credibility = utils.Clamp01(n.Credibility)
}
