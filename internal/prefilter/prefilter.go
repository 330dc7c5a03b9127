package prefilter

import (
	"pulseai/internal/entity"
)

// Verdict is the outcome of a prefilter evaluation.
type Verdict struct {
	Accepted bool
	Reason   string
	// Matched carries the rule token that caused a rejection.
	Matched string
}

// Accept is the accepting verdict.
var Accept = Verdict{Accepted: true}

// RuleProvider hands out the current rule-set snapshot. The rule manager
// implements it; tests supply fixed rule sets.
type RuleProvider interface {
	Rules() *entity.RuleSet
}

// StaticRules adapts a fixed RuleSet into a RuleProvider.
type StaticRules struct {
	Set *entity.RuleSet
}

// Rules returns the wrapped rule set.
func (s StaticRules) Rules() *entity.RuleSet {
	return s.Set
}

// Prefilter applies deterministic accept/reject rules before AI scoring.
// Evaluation is pure: the same item against the same rule set always yields
// the same verdict.
type Prefilter struct {
	rules RuleProvider
}

// New creates a prefilter reading rules from the given provider.
func New(rules RuleProvider) *Prefilter {
	return &Prefilter{rules: rules}
}

// Evaluate checks the item against the source blacklists, then the title
// stop markers, in that order.
func (p *Prefilter) Evaluate(item *entity.NewsItem) Verdict {
	rs := p.rules.Rules()
	if rs == nil {
		return Accept
	}

	if rs.HasBlacklistedSource(item.SourceName) {
		return Verdict{Reason: entity.ReasonPreFilter, Matched: item.SourceName}
	}

	for _, token := range Tokenize(item.Title) {
		if rs.HasStopMarker(token) {
			return Verdict{Reason: entity.ReasonPreFilter, Matched: token}
		}
	}

	return Accept
}
