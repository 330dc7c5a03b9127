package entity

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Confidence floors for auto-generated rules.
const (
	MinStopMarkerConfidence = 0.5
	MinBlacklistConfidence  = 0.7
	// Auto rules at or above this confidence survive monthly aging.
	AgingExemptConfidence = 0.8
)

// AutoRuleOrigin marks where an auto rule came from.
const AutoRuleOriginAnalyzer = "rejection_analyzer"

// AutoRule is a prefilter rule proposed by the analyzer and installed by
// the rule manager. Exactly one of Word or Source is set.
type AutoRule struct {
	Word         string    `yaml:"word,omitempty"`
	Source       string    `yaml:"source,omitempty"`
	CreatedAt    time.Time `yaml:"created_at"`
	Confidence   float64   `yaml:"confidence"`
	SamplesCount int       `yaml:"samples_count"`
	Origin       string    `yaml:"origin"`
}

// UnmarshalYAML accepts both the structured entry form and the legacy
// bare-string form found in hand-edited rule files.
func (r *AutoRule) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		var word string
		if err := value.Decode(&word); err != nil {
			return err
		}
		r.Word = word
		r.Confidence = MinStopMarkerConfidence
		r.Origin = "legacy"
		return nil
	}

	type plain AutoRule
	var p plain
	if err := value.Decode(&p); err != nil {
		return err
	}
	*r = AutoRule(p)
	return nil
}

// Key returns the identifying token of the rule.
func (r AutoRule) Key() string {
	if r.Word != "" {
		return r.Word
	}
	return r.Source
}

// AutoGenerated holds the auto-learned part of the rule set.
type AutoGenerated struct {
	StopMarkers     []AutoRule `yaml:"stop_markers"`
	SourceBlacklist []AutoRule `yaml:"source_blacklist"`
}

// RuleMetadata carries bookkeeping for the rule set document.
type RuleMetadata struct {
	LastAnalysis time.Time `yaml:"last_analysis"`
	TotalRuns    int       `yaml:"total_runs"`
	RulesAdded   int       `yaml:"rules_added"`
	RulesRemoved int       `yaml:"rules_removed"`
	LastBackup   string    `yaml:"last_backup,omitempty"`
}

// RuleSet is the versioned prefilter rule document. The rule manager is its
// only writer; readers get immutable snapshots.
type RuleSet struct {
	StopMarkers     []string      `yaml:"stop_markers"`
	SourceBlacklist []string      `yaml:"source_blacklist"`
	AutoGenerated   AutoGenerated `yaml:"auto_generated"`
	Metadata        RuleMetadata  `yaml:"metadata"`
}

// NewRuleSet returns an empty rule set.
func NewRuleSet() *RuleSet {
	return &RuleSet{}
}

// Clone deep-copies the rule set.
func (rs *RuleSet) Clone() *RuleSet {
	out := &RuleSet{
		StopMarkers:     append([]string(nil), rs.StopMarkers...),
		SourceBlacklist: append([]string(nil), rs.SourceBlacklist...),
		Metadata:        rs.Metadata,
	}
	out.AutoGenerated.StopMarkers = append([]AutoRule(nil), rs.AutoGenerated.StopMarkers...)
	out.AutoGenerated.SourceBlacklist = append([]AutoRule(nil), rs.AutoGenerated.SourceBlacklist...)
	return out
}

// HasStopMarker reports whether word is covered by a manual or auto marker.
func (rs *RuleSet) HasStopMarker(word string) bool {
	for _, m := range rs.StopMarkers {
		if m == word {
			return true
		}
	}
	for _, r := range rs.AutoGenerated.StopMarkers {
		if r.Word == word {
			return true
		}
	}
	return false
}

// HasBlacklistedSource reports whether source is blacklisted manually or automatically.
func (rs *RuleSet) HasBlacklistedSource(source string) bool {
	for _, s := range rs.SourceBlacklist {
		if s == source {
			return true
		}
	}
	for _, r := range rs.AutoGenerated.SourceBlacklist {
		if r.Source == source {
			return true
		}
	}
	return false
}

// Validate checks the auto-rule confidence invariants.
func (rs *RuleSet) Validate() error {
	for _, r := range rs.AutoGenerated.StopMarkers {
		if r.Confidence < MinStopMarkerConfidence {
			return fmt.Errorf("auto stop marker %q below confidence floor: %.2f", r.Word, r.Confidence)
		}
	}
	for _, r := range rs.AutoGenerated.SourceBlacklist {
		if r.Confidence < MinBlacklistConfidence {
			return fmt.Errorf("auto blacklist source %q below confidence floor: %.2f", r.Source, r.Confidence)
		}
	}
	return nil
}
