package dto

import (
	"encoding/json"
	"time"

	"pulseai/internal/entity"
)

// GenerateDigestRequest is the request body for digest generation.
type GenerateDigestRequest struct {
	UserID             int64   `json:"user_id"`
	Category           string  `json:"category"`
	Style              string  `json:"style"`
	Length             string  `json:"length"`
	PeriodHours        int     `json:"period_hours"`
	Limit              int     `json:"limit"`
	MinImportance      float64 `json:"min_importance"`
	Audience           string  `json:"audience"`
	UseUserPreferences bool    `json:"use_user_preferences"`
}

// DigestResponse is the wire representation of a digest.
type DigestResponse struct {
	ID            uint            `json:"id"`
	UserID        int64           `json:"user_id"`
	Summary       string          `json:"summary"`
	Category      string          `json:"category"`
	Style         string          `json:"style"`
	Period        string          `json:"period"`
	Length        string          `json:"length"`
	LimitCount    int             `json:"limit_count"`
	Archived      bool            `json:"archived"`
	DeletedAt     *time.Time      `json:"deleted_at,omitempty"`
	FeedbackScore float64         `json:"feedback_score"`
	FeedbackCount int             `json:"feedback_count"`
	Metadata      json.RawMessage `json:"metadata,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// NewDigestResponse maps a digest entity to its wire form.
func NewDigestResponse(d *entity.Digest) DigestResponse {
	return DigestResponse{
		ID:            d.ID,
		UserID:        d.UserID,
		Summary:       d.Summary,
		Category:      d.Category,
		Style:         d.Style,
		Period:        d.Period,
		Length:        d.Length,
		LimitCount:    d.LimitCount,
		Archived:      d.Archived,
		DeletedAt:     d.DeletedAt,
		FeedbackScore: d.FeedbackScore,
		FeedbackCount: d.FeedbackCount,
		Metadata:      json.RawMessage(d.Metadata),
		CreatedAt:     d.CreatedAt,
	}
}

// MutateDigestRequest is the request body for digest lifecycle operations.
type MutateDigestRequest struct {
	UserID int64  `json:"user_id"`
	Op     string `json:"op"`
}

// MutateDigestResponse reports a lifecycle operation result.
type MutateDigestResponse struct {
	Success bool           `json:"success"`
	Digest  DigestResponse `json:"digest"`
}

// FeedbackRequest is the request body for digest feedback.
type FeedbackRequest struct {
	UserID int64   `json:"user_id"`
	Rating float64 `json:"rating"`
}

// FeedbackReportResponse wraps a feedback analysis report. Status is
// "insufficient_data" when too few rated digests exist to analyze.
type FeedbackReportResponse struct {
	Status string      `json:"status"`
	Report interface{} `json:"report,omitempty"`
}
