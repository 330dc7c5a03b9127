package prefilter

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"pulseai/internal/entity"
	"pulseai/pkg/logger"
)

// AnalyzerConfig tunes the rejection analyzer.
type AnalyzerConfig struct {
	MinSamples         int
	TopWordsLimit      int
	TopSourcesLimit    int
	FrequencyThreshold float64
	PeriodDays         int
	ReportPath         string
}

// Analyzer defaults.
const (
	DefaultMinSamples         = 100
	DefaultTopWordsLimit      = 50
	DefaultTopSourcesLimit    = 20
	DefaultFrequencyThreshold = 0.02
	DefaultPeriodDays         = 7
)

func (c *AnalyzerConfig) withDefaults() AnalyzerConfig {
	out := *c
	if out.MinSamples <= 0 {
		out.MinSamples = DefaultMinSamples
	}
	if out.TopWordsLimit <= 0 {
		out.TopWordsLimit = DefaultTopWordsLimit
	}
	if out.TopSourcesLimit <= 0 {
		out.TopSourcesLimit = DefaultTopSourcesLimit
	}
	if out.FrequencyThreshold <= 0 {
		out.FrequencyThreshold = DefaultFrequencyThreshold
	}
	if out.PeriodDays <= 0 {
		out.PeriodDays = DefaultPeriodDays
	}
	return out
}

// Analyzer aggregates the rejection log into rule recommendations.
// Analysis over the same input window is idempotent.
type Analyzer struct {
	log    *RejectionLog
	cfg    AnalyzerConfig
	logger *logger.Logger
}

// NewAnalyzer creates a rejection analyzer over the given log.
func NewAnalyzer(log *RejectionLog, cfg AnalyzerConfig, lg *logger.Logger) *Analyzer {
	return &Analyzer{log: log, cfg: cfg.withDefaults(), logger: lg}
}

// Analyze reads the log window and builds the analysis report. With fewer
// than MinSamples records the report is empty and carries no recommendations.
func (a *Analyzer) Analyze(now time.Time) (*entity.AnalysisReport, error) {
	since := now.Add(-time.Duration(a.cfg.PeriodDays) * 24 * time.Hour)
	records, err := a.log.ReadSince(since)
	if err != nil {
		return nil, fmt.Errorf("failed to read rejection log: %w", err)
	}

	report := &entity.AnalysisReport{
		GeneratedAt:           now.UTC(),
		PeriodDays:            a.cfg.PeriodDays,
		WordFrequencyAnalysis: map[string]entity.WordStats{},
	}

	if len(records) < a.cfg.MinSamples {
		a.logger.Info("Not enough rejection samples for analysis",
			logger.IntField("records", len(records)),
			logger.IntField("min_samples", a.cfg.MinSamples),
		)
		return report, nil
	}

	report.TotalRejectedItems = len(records)
	total := float64(len(records))

	categories := map[string]int{}
	sources := map[string]int{}
	reasons := map[string]int{}
	words := map[string]int{}

	for _, rec := range records {
		categories[rec.Category]++
		sources[rec.Source]++
		reasons[rec.Reason]++
		seen := map[string]bool{}
		for _, token := range Tokenize(rec.Title) {
			if seen[token] {
				continue
			}
			seen[token] = true
			words[token]++
		}
	}

	report.TopCategories = topEntries(categories, len(categories))
	report.TopSources = topEntries(sources, a.cfg.TopSourcesLimit)
	report.TopReasons = topEntries(reasons, len(reasons))
	report.TopTitleWords = topEntries(words, a.cfg.TopWordsLimit)

	threshold := a.cfg.FrequencyThreshold
	for _, e := range report.TopTitleWords {
		frequency := float64(e.Count) / total
		stats := entity.WordStats{Count: e.Count, Frequency: frequency}
		switch {
		case frequency >= threshold:
			stats.Status = entity.WordStatusHighFrequency
			stats.Recommendation = entity.RecommendAddToStopMarkers
			report.Recommendations.AddStopMarkers = append(report.Recommendations.AddStopMarkers, entity.MarkerRecommendation{
				Word:         e.Name,
				Confidence:   math.Min(1.0, frequency*10),
				SamplesCount: e.Count,
			})
		case frequency >= threshold/2:
			stats.Status = entity.WordStatusMediumFrequency
			stats.Recommendation = entity.RecommendMonitor
		default:
			stats.Status = entity.WordStatusLowFrequency
			stats.Recommendation = entity.RecommendIgnore
		}
		report.WordFrequencyAnalysis[e.Name] = stats
	}

	for _, e := range report.TopSources {
		if e.Name == "" {
			continue
		}
		frequency := float64(e.Count) / total
		if frequency >= 2*threshold {
			report.Recommendations.SourceBlacklist = append(report.Recommendations.SourceBlacklist, entity.SourceRecommendation{
				Source:       e.Name,
				Confidence:   math.Min(1.0, frequency*5),
				SamplesCount: e.Count,
			})
		}
	}

	if n := len(report.Recommendations.AddStopMarkers); n > 0 {
		report.Recommendations.RuleAdjustments = append(report.Recommendations.RuleAdjustments,
			fmt.Sprintf("%d high-frequency title words proposed as stop markers", n))
	}
	if n := len(report.Recommendations.SourceBlacklist); n > 0 {
		report.Recommendations.RuleAdjustments = append(report.Recommendations.RuleAdjustments,
			fmt.Sprintf("%d sources proposed for the blacklist", n))
	}

	return report, nil
}

// WriteReport persists the report as JSON for inspection.
func (a *Analyzer) WriteReport(report *entity.AnalysisReport) error {
	if a.cfg.ReportPath == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(a.cfg.ReportPath), 0o755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(a.cfg.ReportPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	a.logger.Info("Rejection analysis report written",
		logger.StringField("path", a.cfg.ReportPath),
		logger.IntField("total_rejected", report.TotalRejectedItems),
	)
	return nil
}

// topEntries sorts a histogram descending by count, breaking ties by name so
// repeated runs produce identical reports.
func topEntries(counts map[string]int, limit int) []entity.CountEntry {
	entries := make([]entity.CountEntry, 0, len(counts))
	for name, count := range counts {
		entries = append(entries, entity.CountEntry{Name: name, Count: count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Name < entries[j].Name
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}
