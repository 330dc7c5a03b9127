package prefilter

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"pulseai/internal/entity"
	"pulseai/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func testReport() *entity.AnalysisReport {
	return &entity.AnalysisReport{
		GeneratedAt:        time.Now().UTC(),
		TotalRejectedItems: 60,
		PeriodDays:         7,
		Recommendations: entity.Recommendations{
			AddStopMarkers: []entity.MarkerRecommendation{
				{Word: "giveaway", Confidence: 0.9, SamplesCount: 50},
				{Word: "weak", Confidence: 0.3, SamplesCount: 2},
			},
			SourceBlacklist: []entity.SourceRecommendation{
				{Source: "spamsite", Confidence: 0.95, SamplesCount: 50},
				{Source: "borderline", Confidence: 0.6, SamplesCount: 8},
			},
		},
	}
}

func newTestManager(t *testing.T, autoApply, backup bool) (*Manager, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := ManagerConfig{
		RulesPath:     filepath.Join(dir, "prefilter_rules.yaml"),
		BackupDir:     filepath.Join(dir, "backups"),
		AutoApply:     autoApply,
		BackupEnabled: backup,
	}
	m, err := NewManager(cfg, logger.NewNop())
	require.NoError(t, err)
	return m, dir
}

func TestApplyWritesRulesAndBackup(t *testing.T) {
	m, dir := newTestManager(t, true, true)
	now := time.Now().UTC()

	result, err := m.Apply(testReport(), now)
	require.NoError(t, err)
	assert.True(t, result.Success)
	// Low-confidence recommendations are filtered by the §3 thresholds.
	assert.Equal(t, 2, result.RulesAdded)
	assert.Equal(t, 1, result.BackupsCreated)
	assert.True(t, strings.HasPrefix(filepath.Base(result.BackupPath), "prefilter_rules_backup_"))

	_, err = os.Stat(result.BackupPath)
	require.NoError(t, err)

	rules := m.Rules()
	assert.True(t, rules.HasStopMarker("giveaway"))
	assert.False(t, rules.HasStopMarker("weak"))
	assert.True(t, rules.HasBlacklistedSource("spamsite"))
	assert.False(t, rules.HasBlacklistedSource("borderline"))
	assert.NoError(t, rules.Validate())

	// Rule file was written and round-trips.
	data, err := os.ReadFile(filepath.Join(dir, "prefilter_rules.yaml"))
	require.NoError(t, err)
	var persisted entity.RuleSet
	require.NoError(t, yaml.Unmarshal(data, &persisted))
	assert.True(t, persisted.HasStopMarker("giveaway"))
	assert.Equal(t, 1, persisted.Metadata.TotalRuns)
	assert.Equal(t, 2, persisted.Metadata.RulesAdded)
}

func TestApplyIdempotent(t *testing.T) {
	m, _ := newTestManager(t, true, true)
	now := time.Now().UTC()
	report := testReport()

	first, err := m.Apply(report, now)
	require.NoError(t, err)
	assert.Equal(t, 2, first.RulesAdded)

	second, err := m.Apply(report, now)
	require.NoError(t, err)
	assert.Equal(t, 0, second.RulesAdded)

	// Counters moved by exactly the accepted changes; no duplicates exist.
	rules := m.Rules()
	assert.Equal(t, 2, rules.Metadata.RulesAdded)
	count := 0
	for _, r := range rules.AutoGenerated.StopMarkers {
		if r.Word == "giveaway" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestApplyDisabledReturnsRecommendationsOnly(t *testing.T) {
	m, dir := newTestManager(t, false, true)

	result, err := m.Apply(testReport(), time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 0, result.RulesAdded)
	require.NotNil(t, result.Recommendations)
	assert.Len(t, result.Recommendations.AddStopMarkers, 2)

	_, err = os.Stat(filepath.Join(dir, "prefilter_rules.yaml"))
	assert.True(t, os.IsNotExist(err), "rules file must not be written when auto-apply is off")
}

func TestApplyEmptyReportNoop(t *testing.T) {
	m, _ := newTestManager(t, true, true)
	result, err := m.Apply(&entity.AnalysisReport{}, time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 0, result.RulesAdded)
	assert.Equal(t, 0, result.BackupsCreated)
}

func TestApplyBackupFailureAborts(t *testing.T) {
	dir := t.TempDir()
	blocked := filepath.Join(dir, "blocked")
	// A file where the backup directory should be makes MkdirAll fail.
	require.NoError(t, os.WriteFile(blocked, []byte("x"), 0o644))

	m, err := NewManager(ManagerConfig{
		RulesPath:     filepath.Join(dir, "rules.yaml"),
		BackupDir:     filepath.Join(blocked, "backups"),
		AutoApply:     true,
		BackupEnabled: true,
	}, logger.NewNop())
	require.NoError(t, err)

	_, err = m.Apply(testReport(), time.Now().UTC())
	require.Error(t, err)

	_, statErr := os.Stat(filepath.Join(dir, "rules.yaml"))
	assert.True(t, os.IsNotExist(statErr), "rules must stay untouched when backup fails")
}

func TestAgingEvictsStaleLowConfidenceRules(t *testing.T) {
	m, _ := newTestManager(t, true, false)
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	lastMonth := time.Date(2026, 7, 3, 0, 0, 0, 0, time.UTC)

	// Seed by a first apply, then backdate entries through a second rule set.
	_, err := m.Apply(&entity.AnalysisReport{
		TotalRejectedItems: 10,
		Recommendations: entity.Recommendations{
			AddStopMarkers: []entity.MarkerRecommendation{
				{Word: "stale", Confidence: 0.6, SamplesCount: 5},
				{Word: "sticky", Confidence: 0.9, SamplesCount: 9},
			},
		},
	}, lastMonth)
	require.NoError(t, err)

	result, err := m.Apply(&entity.AnalysisReport{
		TotalRejectedItems: 10,
		Recommendations: entity.Recommendations{
			AddStopMarkers: []entity.MarkerRecommendation{{Word: "fresh", Confidence: 0.7, SamplesCount: 6}},
		},
	}, now)
	require.NoError(t, err)

	assert.Equal(t, 1, result.RulesAdded)
	assert.Equal(t, 1, result.RulesRemoved, "stale low-confidence rule is evicted")

	rules := m.Rules()
	assert.False(t, rules.HasStopMarker("stale"))
	assert.True(t, rules.HasStopMarker("sticky"), "high-confidence rules survive aging")
	assert.True(t, rules.HasStopMarker("fresh"))
}

func TestManagerLoadsExistingRules(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	doc := "stop_markers:\n  - scam\nsource_blacklist:\n  - spamsite\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	m, err := NewManager(ManagerConfig{RulesPath: path}, logger.NewNop())
	require.NoError(t, err)
	rules := m.Rules()
	assert.True(t, rules.HasStopMarker("scam"))
	assert.True(t, rules.HasBlacklistedSource("spamsite"))
}
