package digest

import (
	"strings"
	"testing"
	"time"

	"pulseai/internal/entity"

	"github.com/stretchr/testify/assert"
)

func TestSelectPersonaOrderedRules(t *testing.T) {
	tests := []struct {
		name    string
		signals Signals
		want    string
	}{
		{"high urgency wins first", Signals{Urgency: 0.9, Complexity: 0.9, Category: "tech"}, entity.PersonaBreaking},
		{"high complexity", Signals{Complexity: 0.75, Category: "sports"}, entity.PersonaAnalytical},
		{"high avg importance", Signals{AvgImportance: 0.85, Category: "sports"}, entity.PersonaAnalytical},
		{"tech category", Signals{Category: "tech"}, entity.PersonaTech},
		{"crypto category", Signals{Category: "crypto"}, entity.PersonaFinancial},
		{"markets category", Signals{Category: "markets"}, entity.PersonaFinancial},
		{"sports category", Signals{Category: "sports"}, entity.PersonaCasual},
		{"world complex", Signals{Category: "world", Complexity: 0.5}, entity.PersonaNarrative},
		{"world simple", Signals{Category: "world", Complexity: 0.2}, entity.PersonaNeutral},
		{"trading subcategory", Signals{Category: "other", Subcategory: "trading"}, entity.PersonaFinancial},
		{"startup subcategory", Signals{Category: "other", Subcategory: "startup"}, entity.PersonaTech},
		{"breaking subcategory", Signals{Category: "other", Subcategory: "breaking"}, entity.PersonaBreaking},
		{"small count fallback", Signals{Category: "other", NewsCount: 2}, entity.PersonaCasual},
		{"large count fallback", Signals{Category: "other", NewsCount: 9}, entity.PersonaAnalytical},
		{"medium count fallback", Signals{Category: "other", NewsCount: 5}, entity.PersonaNarrative},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SelectPersona(tt.signals).ID)
		})
	}
}

func TestDeriveSignals(t *testing.T) {
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	items := []entity.NewsItem{
		{Importance: 0.9, PublishedAt: now.Add(-time.Hour), Body: strings.Repeat("word ", 800), Subcategory: "trading"},
		{Importance: 0.7, PublishedAt: now.Add(-26 * time.Hour), Body: "short", Subcategory: "trading"},
	}

	s := DeriveSignals(items, "Crypto", now)
	assert.Equal(t, "crypto", s.Category)
	assert.Equal(t, 2, s.NewsCount)
	assert.InDelta(t, 0.5, s.Urgency, 1e-9)
	assert.InDelta(t, 0.8, s.AvgImportance, 1e-9)
	assert.Equal(t, "trading", s.Subcategory)
	assert.Greater(t, s.Complexity, 0.4)
}

func TestDeriveSignalsEmpty(t *testing.T) {
	s := DeriveSignals(nil, "tech", time.Now())
	assert.Equal(t, 0, s.NewsCount)
	assert.Zero(t, s.Urgency)
	assert.Zero(t, s.AvgImportance)
}
