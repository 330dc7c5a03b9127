package entity

import "time"

// NewsLink is a symmetric similarity edge between two news items.
// Links are stored once, keyed by the ordered pair (ItemAID < ItemBID).
type NewsLink struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ItemAID    uint      `gorm:"uniqueIndex:idx_news_link_pair;not null" json:"item_a_id"`
	ItemBID    uint      `gorm:"uniqueIndex:idx_news_link_pair;not null" json:"item_b_id"`
	Similarity float64   `gorm:"not null" json:"similarity"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName specifies the table name for the NewsLink model.
func (NewsLink) TableName() string {
	return "news_links"
}

// OrderedPair normalizes two item IDs into link-key order.
func OrderedPair(a, b uint) (uint, uint) {
	if a < b {
		return a, b
	}
	return b, a
}
