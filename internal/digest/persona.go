package digest

import (
	"strings"
	"time"

	"pulseai/internal/entity"
	"pulseai/pkg/utils"
)

// Signals are the aggregate inputs driving persona selection.
type Signals struct {
	Category      string
	Subcategory   string
	Urgency       float64
	Complexity    float64
	NewsCount     int
	AvgImportance float64
}

// DeriveSignals computes selection signals from a candidate set.
// Urgency is the share of items published within the last two hours,
// complexity the average body length normalized against 800 words.
func DeriveSignals(items []entity.NewsItem, category string, now time.Time) Signals {
	s := Signals{
		Category:  strings.ToLower(category),
		NewsCount: len(items),
	}
	if len(items) == 0 {
		return s
	}

	var recent int
	var importanceSum, wordSum float64
	subcats := make(map[string]int)
	for _, item := range items {
		if now.Sub(item.PublishedAt) <= 2*time.Hour {
			recent++
		}
		importanceSum += item.Importance
		wordSum += float64(utils.CountWords(item.Body))
		if item.Subcategory != "" {
			subcats[item.Subcategory]++
		}
	}

	s.Urgency = float64(recent) / float64(len(items))
	s.AvgImportance = importanceSum / float64(len(items))
	s.Complexity = utils.Clamp01(wordSum / float64(len(items)) / 800)

	best := 0
	for sub, n := range subcats {
		if n > best {
			best = n
			s.Subcategory = sub
		}
	}
	return s
}

// SelectPersona picks an editorial persona for the given signals.
// Rules are evaluated in order; the first match wins.
func SelectPersona(s Signals) entity.PersonaConfig {
	if s.Urgency > 0.8 {
		return entity.PersonaByID(entity.PersonaBreaking)
	}
	if s.Complexity > 0.7 || s.AvgImportance > 0.8 {
		return entity.PersonaByID(entity.PersonaAnalytical)
	}

	switch s.Category {
	case "tech":
		return entity.PersonaByID(entity.PersonaTech)
	case "crypto", "markets":
		return entity.PersonaByID(entity.PersonaFinancial)
	case "sports":
		return entity.PersonaByID(entity.PersonaCasual)
	case "world":
		if s.Complexity > 0.4 {
			return entity.PersonaByID(entity.PersonaNarrative)
		}
		return entity.PersonaByID(entity.PersonaNeutral)
	}

	switch s.Subcategory {
	case "breaking":
		return entity.PersonaByID(entity.PersonaBreaking)
	case "analysis":
		return entity.PersonaByID(entity.PersonaAnalytical)
	case "startup":
		return entity.PersonaByID(entity.PersonaTech)
	case "trading", "earnings":
		return entity.PersonaByID(entity.PersonaFinancial)
	}

	switch {
	case s.NewsCount <= 3:
		return entity.PersonaByID(entity.PersonaCasual)
	case s.NewsCount >= 8:
		return entity.PersonaByID(entity.PersonaAnalytical)
	default:
		return entity.PersonaByID(entity.PersonaNarrative)
	}
}
