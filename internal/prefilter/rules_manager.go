package prefilter

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"pulseai/internal/entity"
	"pulseai/pkg/logger"
	"pulseai/pkg/utils"

	"gopkg.in/yaml.v3"
)

// ManagerConfig tunes the rule manager.
type ManagerConfig struct {
	RulesPath     string
	BackupDir     string
	AutoApply     bool
	BackupEnabled bool
}

// ApplyResult reports one rule application run.
type ApplyResult struct {
	Success        bool   `json:"success"`
	RulesAdded     int    `json:"rules_added"`
	RulesRemoved   int    `json:"rules_removed"`
	BackupsCreated int    `json:"backups_created"`
	BackupPath     string `json:"backup_path,omitempty"`
	// Recommendations-only mode: filled instead of changes when auto-apply
	// is disabled.
	Recommendations *entity.Recommendations `json:"recommendations,omitempty"`
}

// Manager is the single writer of the rule-set file. Readers get snapshots;
// every apply backs up the current document and swaps the file atomically.
type Manager struct {
	cfg    ManagerConfig
	logger *logger.Logger

	mu    sync.RWMutex
	rules *entity.RuleSet
}

// NewManager creates a rule manager and loads the current rule set.
// A missing rules file yields an empty rule set.
func NewManager(cfg ManagerConfig, lg *logger.Logger) (*Manager, error) {
	m := &Manager{cfg: cfg, logger: lg}

	rules, err := loadRuleSet(cfg.RulesPath)
	if err != nil {
		return nil, err
	}
	m.rules = rules
	return m, nil
}

// Rules returns an immutable snapshot of the current rule set.
func (m *Manager) Rules() *entity.RuleSet {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rules.Clone()
}

// Apply merges the report's recommendations into the rule set. With
// auto-apply disabled it returns the recommendations without mutating
// anything. Applying the same report twice is a no-op the second time.
func (m *Manager) Apply(report *entity.AnalysisReport, now time.Time) (*ApplyResult, error) {
	if report == nil || report.Empty() {
		return &ApplyResult{Success: true}, nil
	}

	if !m.cfg.AutoApply {
		recs := report.Recommendations
		return &ApplyResult{Success: true, Recommendations: &recs}, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	result := &ApplyResult{}

	if m.cfg.BackupEnabled {
		backupPath, err := m.backupLocked(now)
		if err != nil {
			return nil, fmt.Errorf("failed to back up rule set, aborting apply: %w", err)
		}
		result.BackupsCreated = 1
		result.BackupPath = backupPath
	}

	updated := m.rules.Clone()

	for _, rec := range report.Recommendations.AddStopMarkers {
		if rec.Confidence < entity.MinStopMarkerConfidence {
			continue
		}
		if updated.HasStopMarker(rec.Word) {
			continue
		}
		updated.AutoGenerated.StopMarkers = append(updated.AutoGenerated.StopMarkers, entity.AutoRule{
			Word:         rec.Word,
			CreatedAt:    now.UTC(),
			Confidence:   rec.Confidence,
			SamplesCount: rec.SamplesCount,
			Origin:       entity.AutoRuleOriginAnalyzer,
		})
		result.RulesAdded++
	}

	for _, rec := range report.Recommendations.SourceBlacklist {
		if rec.Confidence < entity.MinBlacklistConfidence {
			continue
		}
		if updated.HasBlacklistedSource(rec.Source) {
			continue
		}
		updated.AutoGenerated.SourceBlacklist = append(updated.AutoGenerated.SourceBlacklist, entity.AutoRule{
			Source:       rec.Source,
			CreatedAt:    now.UTC(),
			Confidence:   rec.Confidence,
			SamplesCount: rec.SamplesCount,
			Origin:       entity.AutoRuleOriginAnalyzer,
		})
		result.RulesAdded++
	}

	result.RulesRemoved = ageOutStale(updated, now)

	updated.Metadata.LastAnalysis = now.UTC()
	updated.Metadata.TotalRuns++
	updated.Metadata.RulesAdded += result.RulesAdded
	updated.Metadata.RulesRemoved += result.RulesRemoved
	if result.BackupPath != "" {
		updated.Metadata.LastBackup = result.BackupPath
	}

	if err := writeRuleSetAtomic(m.cfg.RulesPath, updated); err != nil {
		return nil, err
	}
	m.rules = updated
	result.Success = true

	m.logger.Info("Rule set updated",
		logger.IntField("rules_added", result.RulesAdded),
		logger.IntField("rules_removed", result.RulesRemoved),
		logger.IntField("backups_created", result.BackupsCreated),
	)
	return result, nil
}

// backupLocked writes a timestamped copy of the current rule set.
func (m *Manager) backupLocked(now time.Time) (string, error) {
	dir := m.cfg.BackupDir
	if dir == "" {
		dir = filepath.Dir(m.cfg.RulesPath)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	name := fmt.Sprintf("prefilter_rules_backup_%s.yaml", utils.BackupTimestamp(now))
	path := filepath.Join(dir, name)

	data, err := yaml.Marshal(m.rules)
	if err != nil {
		return "", fmt.Errorf("failed to marshal rule set for backup: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write backup file: %w", err)
	}
	return path, nil
}

// ageOutStale evicts auto rules created before the current calendar month,
// keeping entries whose confidence is high enough to be exempt.
func ageOutStale(rs *entity.RuleSet, now time.Time) int {
	monthStart := utils.StartOfMonth(now)
	removed := 0

	keepMarkers := rs.AutoGenerated.StopMarkers[:0]
	for _, r := range rs.AutoGenerated.StopMarkers {
		if r.CreatedAt.Before(monthStart) && r.Confidence < entity.AgingExemptConfidence {
			removed++
			continue
		}
		keepMarkers = append(keepMarkers, r)
	}
	rs.AutoGenerated.StopMarkers = keepMarkers

	keepSources := rs.AutoGenerated.SourceBlacklist[:0]
	for _, r := range rs.AutoGenerated.SourceBlacklist {
		if r.CreatedAt.Before(monthStart) && r.Confidence < entity.AgingExemptConfidence {
			removed++
			continue
		}
		keepSources = append(keepSources, r)
	}
	rs.AutoGenerated.SourceBlacklist = keepSources

	return removed
}

func loadRuleSet(path string) (*entity.RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return entity.NewRuleSet(), nil
		}
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}

	rules := entity.NewRuleSet()
	if err := yaml.Unmarshal(data, rules); err != nil {
		return nil, fmt.Errorf("failed to parse rules file: %w", err)
	}
	return rules, nil
}

// writeRuleSetAtomic writes the document to a temp file in the target
// directory and renames it over the original, so readers see either the
// full prior document or the full new one.
func writeRuleSetAtomic(path string, rs *entity.RuleSet) error {
	data, err := yaml.Marshal(rs)
	if err != nil {
		return fmt.Errorf("failed to marshal rule set: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create rules directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".rules-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to create temp rules file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp rules file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp rules file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace rules file: %w", err)
	}
	return nil
}
