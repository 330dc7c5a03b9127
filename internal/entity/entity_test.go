package entity

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestComputeUID(t *testing.T) {
	sum := sha256.Sum256([]byte("https://example.com/a|Bitcoin ATH"))
	want := hex.EncodeToString(sum[:])
	assert.Equal(t, want, ComputeUID("https://example.com/a", "Bitcoin ATH", "coindesk"))

	// Same (link, title) always yields the same uid.
	assert.Equal(t,
		ComputeUID("https://example.com/a", "Bitcoin ATH", "coindesk"),
		ComputeUID("https://example.com/a", "Bitcoin ATH", "cointelegraph"),
	)
}

func TestComputeUIDEmptyLink(t *testing.T) {
	sum := sha256.Sum256([]byte("Some title|coindesk"))
	want := hex.EncodeToString(sum[:])
	assert.Equal(t, want, ComputeUID("", "Some title", "coindesk"))
	assert.NotEqual(t, ComputeUID("", "Some title", "coindesk"), ComputeUID("", "Some title", "other"))
}

func TestClampScores(t *testing.T) {
	item := NewsItem{Importance: 1.4, Credibility: -0.1}
	item.ClampScores()
	assert.Equal(t, 1.0, item.Importance)
	assert.Equal(t, 0.0, item.Credibility)
}

func TestDigestFiltersDisjoint(t *testing.T) {
	now := time.Now().UTC()
	digests := []Digest{
		{ID: 1},
		{ID: 2, Archived: true},
		{ID: 3, DeletedAt: &now},
		{ID: 4, Archived: true},
		{ID: 5},
	}

	filters := []DigestFilter{DigestFilterActive, DigestFilterArchived, DigestFilterDeleted}
	for _, d := range digests {
		matched := 0
		for _, f := range filters {
			if d.MatchesFilter(f) {
				matched++
			}
		}
		assert.Equal(t, 1, matched, "digest %d must match exactly one exclusive filter", d.ID)
		assert.True(t, d.MatchesFilter(DigestFilterAll))
	}
}

func TestDigestApplyOpLifecycle(t *testing.T) {
	now := time.Now().UTC()
	d := Digest{ID: 1}

	require.True(t, d.ApplyOp(DigestOpArchive, now))
	assert.False(t, d.MatchesFilter(DigestFilterActive))
	assert.True(t, d.MatchesFilter(DigestFilterArchived))

	require.True(t, d.ApplyOp(DigestOpSoftDelete, now))
	assert.False(t, d.MatchesFilter(DigestFilterArchived))
	assert.True(t, d.MatchesFilter(DigestFilterDeleted))

	require.True(t, d.ApplyOp(DigestOpRestore, now))
	assert.True(t, d.MatchesFilter(DigestFilterActive))

	// No-ops report false.
	assert.False(t, d.ApplyOp(DigestOpUnarchive, now))
	assert.False(t, d.ApplyOp(DigestOpRestore, now))
}

func TestDigestAddFeedbackRunningMean(t *testing.T) {
	d := Digest{}
	d.AddFeedback(4)
	d.AddFeedback(2)
	d.AddFeedback(3)
	assert.Equal(t, 3, d.FeedbackCount)
	assert.InDelta(t, 3.0, d.FeedbackScore, 1e-9)
}

func TestRuleSetLegacyEntries(t *testing.T) {
	doc := `
stop_markers: [scam]
auto_generated:
  stop_markers:
    - giveaway
    - word: airdrop
      confidence: 0.9
      samples_count: 12
      origin: rejection_analyzer
`
	var rs RuleSet
	require.NoError(t, yaml.Unmarshal([]byte(doc), &rs))
	require.Len(t, rs.AutoGenerated.StopMarkers, 2)
	assert.Equal(t, "giveaway", rs.AutoGenerated.StopMarkers[0].Word)
	assert.Equal(t, MinStopMarkerConfidence, rs.AutoGenerated.StopMarkers[0].Confidence)
	assert.Equal(t, "airdrop", rs.AutoGenerated.StopMarkers[1].Word)
	assert.True(t, rs.HasStopMarker("giveaway"))
	assert.True(t, rs.HasStopMarker("scam"))
	assert.False(t, rs.HasStopMarker("bitcoin"))
	assert.NoError(t, rs.Validate())
}

func TestRuleSetValidateConfidenceFloors(t *testing.T) {
	rs := NewRuleSet()
	rs.AutoGenerated.SourceBlacklist = append(rs.AutoGenerated.SourceBlacklist, AutoRule{Source: "spamsite", Confidence: 0.6})
	assert.Error(t, rs.Validate())
}

func TestPersonaByIDClones(t *testing.T) {
	p := PersonaByID(PersonaAnalytical)
	p.Characteristics[0] = "mutated"
	fresh := PersonaByID(PersonaAnalytical)
	assert.NotEqual(t, "mutated", fresh.Characteristics[0])

	assert.Equal(t, PersonaNeutral, PersonaByID("unknown").ID)
}

func TestOrderedPair(t *testing.T) {
	a, b := OrderedPair(9, 4)
	assert.Equal(t, uint(4), a)
	assert.Equal(t, uint(9), b)
}
