package entity

import "time"

// Word classification statuses produced by the rejection analyzer.
const (
	WordStatusHighFrequency   = "high_frequency"
	WordStatusMediumFrequency = "medium_frequency"
	WordStatusLowFrequency    = "low_frequency"
)

// Analyzer recommendations per word.
const (
	RecommendAddToStopMarkers = "add_to_stop_markers"
	RecommendMonitor          = "monitor"
	RecommendIgnore           = "ignore"
)

// CountEntry is one histogram bucket.
type CountEntry struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// WordStats describes one title word in the rejection window.
type WordStats struct {
	Count          int     `json:"count"`
	Frequency      float64 `json:"frequency"`
	Status         string  `json:"status"`
	Recommendation string  `json:"recommendation"`
}

// MarkerRecommendation proposes a new auto stop marker.
type MarkerRecommendation struct {
	Word         string  `json:"word"`
	Confidence   float64 `json:"confidence"`
	SamplesCount int     `json:"samples_count"`
}

// SourceRecommendation proposes a new auto-blacklisted source.
type SourceRecommendation struct {
	Source       string  `json:"source"`
	Confidence   float64 `json:"confidence"`
	SamplesCount int     `json:"samples_count"`
}

// Recommendations aggregates the analyzer's proposals.
type Recommendations struct {
	AddStopMarkers  []MarkerRecommendation `json:"add_stop_markers"`
	SourceBlacklist []SourceRecommendation `json:"source_blacklist"`
	RuleAdjustments []string               `json:"rule_adjustments"`
}

// AnalysisReport is the output of one rejection-log analysis run.
type AnalysisReport struct {
	GeneratedAt           time.Time            `json:"generated_at"`
	TotalRejectedItems    int                  `json:"total_rejected_items"`
	PeriodDays            int                  `json:"period_days"`
	TopCategories         []CountEntry         `json:"top_categories"`
	TopSources            []CountEntry         `json:"top_sources"`
	TopReasons            []CountEntry         `json:"top_reasons"`
	TopTitleWords         []CountEntry         `json:"top_title_words"`
	WordFrequencyAnalysis map[string]WordStats `json:"word_frequency_analysis"`
	Recommendations       Recommendations      `json:"recommendations"`
}

// Empty reports whether the analysis produced no data.
func (r *AnalysisReport) Empty() bool {
	return r.TotalRejectedItems == 0
}
