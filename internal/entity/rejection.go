package entity

import "time"

// Stable rejection reason identifiers recorded in the rejection log.
const (
	ReasonPreFilter           = "pre_filter"
	ReasonAIBelowThreshold    = "ai_below_threshold"
	ReasonDuplicate           = "duplicate"
	ReasonParseError          = "parse_error"
	ReasonNetworkError        = "network_error"
	ReasonContentExtraction   = "content_extraction_failed"
	ReasonInsufficientContent = "insufficient_content"
	ReasonLimitReached        = "limit_reached"
	ReasonNoEntries           = "no_entries"
)

// RejectionRecord is one append-only log entry describing a dropped item.
type RejectionRecord struct {
	Timestamp time.Time `json:"timestamp"`
	Reason    string    `json:"reason"`
	Category  string    `json:"category"`
	Source    string    `json:"source"`
	Title     string    `json:"title"`
}
