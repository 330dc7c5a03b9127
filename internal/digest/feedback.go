package digest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"pulseai/internal/repository"
	"pulseai/pkg/logger"
	"pulseai/pkg/utils"
)

// ErrInsufficientData marks a feedback analysis aborted for lack of samples.
var ErrInsufficientData = errors.New("insufficient_data")

// Feedback analysis bounds.
const (
	feedbackMinSamples  = 10
	feedbackWindow      = 7 * 24 * time.Hour
	thresholdStep       = 0.05
	thresholdFloor      = 0.4
	thresholdCeil       = 0.85
	bucketMinSamples    = 3
	correlationRelevant = 0.2
)

// lengthBuckets are the digest word-count ranges compared by mean score.
var lengthBuckets = []struct {
	Label    string
	Lo, Hi   int
	Midpoint int
}{
	{"0-300", 0, 300, 150},
	{"300-600", 300, 600, 450},
	{"600-900", 600, 900, 750},
	{"900-1500", 900, 1500, 1200},
}

// StyleStats aggregates feedback per digest style.
type StyleStats struct {
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
	Count int     `json:"count"`
}

// Adjustments are the numeric parameter changes derived from feedback.
type Adjustments struct {
	ImportanceThreshold  float64 `json:"importance_threshold"`
	CredibilityThreshold float64 `json:"credibility_threshold"`
	PreferredStyle       string  `json:"preferred_style,omitempty"`
	TargetLengthWords    int     `json:"target_length_words,omitempty"`
}

// FeedbackReport is the output of one feedback analysis run.
type FeedbackReport struct {
	UserID        int64                 `json:"user_id"`
	SampleSize    int                   `json:"sample_size"`
	Correlations  map[string]float64    `json:"correlations"`
	StyleStats    map[string]StyleStats `json:"style_stats"`
	OptimalLength string                `json:"optimal_length_bucket,omitempty"`
	Adjustments   Adjustments           `json:"adjustments"`
	Recommend     []string              `json:"recommendations"`
}

// FeedbackAnalyzer correlates digest parameters with user scores and derives
// threshold adjustments.
type FeedbackAnalyzer struct {
	digestRepo repository.DigestRepository
	logger     *logger.Logger
}

// NewFeedbackAnalyzer creates a feedback analyzer.
func NewFeedbackAnalyzer(digestRepo repository.DigestRepository, log *logger.Logger) *FeedbackAnalyzer {
	return &FeedbackAnalyzer{
		digestRepo: digestRepo,
		logger:     log,
	}
}

// Analyze inspects the user's rated digests from the rolling window and
// returns a report with adjusted thresholds. Returns ErrInsufficientData for
// fewer than 10 rated digests.
func (a *FeedbackAnalyzer) Analyze(ctx context.Context, userID int64, baseImportance, baseCredibility float64) (*FeedbackReport, error) {
	digests, err := a.digestRepo.FindWithFeedback(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load rated digests: %w", err)
	}

	cutoff := time.Now().UTC().Add(-feedbackWindow)
	samples := digests[:0]
	for _, d := range digests {
		if d.CreatedAt.Before(cutoff) {
			continue
		}
		samples = append(samples, d)
	}

	if len(samples) < feedbackMinSamples {
		return nil, fmt.Errorf("%w: %d rated digests in window, need %d", ErrInsufficientData, len(samples), feedbackMinSamples)
	}

	var scores, importances, credibilities, lengths []float64
	styleScores := make(map[string][]float64)
	for _, d := range samples {
		var meta Metadata
		if err := json.Unmarshal(d.Metadata, &meta); err != nil {
			a.logger.Warn("Skipping digest with unreadable metadata",
				logger.IntField("digest_id", int(d.ID)),
				logger.ErrorField(err),
			)
			continue
		}
		scores = append(scores, d.FeedbackScore)
		importances = append(importances, meta.AvgImportance)
		credibilities = append(credibilities, meta.AvgCredibility)
		lengths = append(lengths, float64(utils.CountWords(d.Summary)))
		styleScores[d.Style] = append(styleScores[d.Style], d.FeedbackScore)
	}

	report := &FeedbackReport{
		UserID:     userID,
		SampleSize: len(scores),
		Correlations: map[string]float64{
			"importance":  Pearson(scores, importances),
			"credibility": Pearson(scores, credibilities),
			"length":      Pearson(scores, lengths),
		},
		StyleStats: styleAggregates(styleScores),
	}

	report.Adjustments = a.deriveAdjustments(report, baseImportance, baseCredibility, lengths, scores)
	report.Recommend = a.recommendations(report)

	a.logger.Info("Feedback analysis complete",
		logger.IntField("user_id", int(userID)),
		logger.IntField("samples", report.SampleSize),
		logger.Float64Field("importance_corr", report.Correlations["importance"]),
		logger.Float64Field("credibility_corr", report.Correlations["credibility"]),
	)
	return report, nil
}

func (a *FeedbackAnalyzer) deriveAdjustments(report *FeedbackReport, baseImportance, baseCredibility float64, lengths, scores []float64) Adjustments {
	adj := Adjustments{
		ImportanceThreshold:  baseImportance,
		CredibilityThreshold: baseCredibility,
	}

	if c := report.Correlations["importance"]; c > correlationRelevant {
		adj.ImportanceThreshold += thresholdStep
	} else if c < -correlationRelevant {
		adj.ImportanceThreshold -= thresholdStep
	}
	if c := report.Correlations["credibility"]; c > correlationRelevant {
		adj.CredibilityThreshold += thresholdStep
	} else if c < -correlationRelevant {
		adj.CredibilityThreshold -= thresholdStep
	}
	adj.ImportanceThreshold = clampThreshold(adj.ImportanceThreshold)
	adj.CredibilityThreshold = clampThreshold(adj.CredibilityThreshold)

	if style := bestStyle(report.StyleStats); style != "" {
		adj.PreferredStyle = style
	}

	if bucket, midpoint, ok := optimalLengthBucket(lengths, scores); ok {
		report.OptimalLength = bucket
		adj.TargetLengthWords = midpoint
	}

	return adj
}

func (a *FeedbackAnalyzer) recommendations(report *FeedbackReport) []string {
	var recs []string
	if c := report.Correlations["importance"]; math.Abs(c) > correlationRelevant {
		recs = append(recs, fmt.Sprintf("feedback correlates with importance (r=%.2f), adjust importance threshold to %.2f", c, report.Adjustments.ImportanceThreshold))
	}
	if c := report.Correlations["credibility"]; math.Abs(c) > correlationRelevant {
		recs = append(recs, fmt.Sprintf("feedback correlates with credibility (r=%.2f), adjust credibility threshold to %.2f", c, report.Adjustments.CredibilityThreshold))
	}
	if report.Adjustments.PreferredStyle != "" {
		recs = append(recs, fmt.Sprintf("style %q performs best for this user", report.Adjustments.PreferredStyle))
	}
	if report.OptimalLength != "" {
		recs = append(recs, fmt.Sprintf("digests of %s words score highest, target %d words", report.OptimalLength, report.Adjustments.TargetLengthWords))
	}
	return recs
}

// Pearson computes the sample correlation of two equal-length series.
// Degenerate series yield zero.
func Pearson(x, y []float64) float64 {
	n := len(x)
	if n == 0 || n != len(y) {
		return 0
	}

	var sumX, sumY float64
	for i := 0; i < n; i++ {
		sumX += x[i]
		sumY += y[i]
	}
	meanX, meanY := sumX/float64(n), sumY/float64(n)

	var cov, varX, varY float64
	for i := 0; i < n; i++ {
		dx, dy := x[i]-meanX, y[i]-meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return 0
	}
	return cov / math.Sqrt(varX*varY)
}

func styleAggregates(styleScores map[string][]float64) map[string]StyleStats {
	stats := make(map[string]StyleStats, len(styleScores))
	for style, scores := range styleScores {
		var sum float64
		for _, s := range scores {
			sum += s
		}
		mean := sum / float64(len(scores))

		var variance float64
		for _, s := range scores {
			variance += (s - mean) * (s - mean)
		}
		variance /= float64(len(scores))

		stats[style] = StyleStats{Mean: mean, Std: math.Sqrt(variance), Count: len(scores)}
	}
	return stats
}

// bestStyle returns the style with the highest mean score, ties broken by
// name for determinism.
func bestStyle(stats map[string]StyleStats) string {
	styles := make([]string, 0, len(stats))
	for style := range stats {
		styles = append(styles, style)
	}
	sort.Strings(styles)

	best := ""
	bestMean := math.Inf(-1)
	for _, style := range styles {
		if stats[style].Mean > bestMean {
			best = style
			bestMean = stats[style].Mean
		}
	}
	return best
}

func optimalLengthBucket(lengths, scores []float64) (string, int, bool) {
	type acc struct {
		sum   float64
		count int
	}
	perBucket := make([]acc, len(lengthBuckets))
	for i, l := range lengths {
		for bi, bucket := range lengthBuckets {
			if int(l) >= bucket.Lo && int(l) < bucket.Hi {
				perBucket[bi].sum += scores[i]
				perBucket[bi].count++
				break
			}
		}
	}

	bestIdx := -1
	bestMean := math.Inf(-1)
	for bi, a := range perBucket {
		if a.count < bucketMinSamples {
			continue
		}
		mean := a.sum / float64(a.count)
		if mean > bestMean {
			bestMean = mean
			bestIdx = bi
		}
	}
	if bestIdx < 0 {
		return "", 0, false
	}
	return lengthBuckets[bestIdx].Label, lengthBuckets[bestIdx].Midpoint, true
}

func clampThreshold(v float64) float64 {
	return math.Min(thresholdCeil, math.Max(thresholdFloor, v))
}
