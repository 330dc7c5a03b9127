package entity

// Sentence length tags for persona configuration.
const (
	SentenceShort  = "short"
	SentenceMedium = "medium"
	SentenceLong   = "long"
)

// Built-in persona identifiers.
const (
	PersonaBreaking   = "breaking"
	PersonaAnalytical = "analytical"
	PersonaTech       = "tech"
	PersonaFinancial  = "financial"
	PersonaCasual     = "casual"
	PersonaNarrative  = "narrative"
	PersonaNeutral    = "neutral"
)

// PersonaConfig is a named editorial style bundle guiding prompt construction.
type PersonaConfig struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	Style             string   `json:"style"`
	Characteristics   []string `json:"characteristics"`
	UseCases          []string `json:"use_cases"`
	Tone              string   `json:"tone"`
	SentenceLength    string   `json:"sentence_length"`
	Description       string   `json:"description"`
	StyleInstructions string   `json:"style_instructions"`
}

// Clone returns an independent copy of the persona.
func (p PersonaConfig) Clone() PersonaConfig {
	out := p
	out.Characteristics = append([]string(nil), p.Characteristics...)
	out.UseCases = append([]string(nil), p.UseCases...)
	return out
}

var personas = map[string]PersonaConfig{
	PersonaBreaking: {
		ID:                PersonaBreaking,
		Name:              "Newsroom Flash",
		Style:             "breaking",
		Characteristics:   []string{"urgent", "factual", "time-stamped"},
		UseCases:          []string{"breaking news", "market-moving events"},
		Tone:              "urgent but precise",
		SentenceLength:    SentenceShort,
		Description:       "Fast, neutral delivery of breaking developments.",
		StyleInstructions: "Lead with what just happened. Short declarative sentences, no speculation, state only confirmed facts and timestamps.",
	},
	PersonaAnalytical: {
		ID:                PersonaAnalytical,
		Name:              "Deep Analyst",
		Style:             "analytical",
		Characteristics:   []string{"structured", "contextual", "evidence-driven"},
		UseCases:          []string{"complex stories", "high-importance clusters"},
		Tone:              "measured and authoritative",
		SentenceLength:    SentenceLong,
		Description:       "Structured analysis connecting events to their causes and consequences.",
		StyleInstructions: "Group related items, explain causal links, quantify where possible, close each topic with what to watch next.",
	},
	PersonaTech: {
		ID:                PersonaTech,
		Name:              "Tech Insider",
		Style:             "tech",
		Characteristics:   []string{"technical", "product-aware", "trend-focused"},
		UseCases:          []string{"technology news", "product launches"},
		Tone:              "informed and direct",
		SentenceLength:    SentenceMedium,
		Description:       "Technology coverage with engineering literacy.",
		StyleInstructions: "Name the technology precisely, explain why it matters to practitioners, skip marketing language.",
	},
	PersonaFinancial: {
		ID:                PersonaFinancial,
		Name:              "Markets Desk",
		Style:             "financial",
		Characteristics:   []string{"numeric", "risk-aware", "concise"},
		UseCases:          []string{"crypto", "markets", "earnings"},
		Tone:              "sober and numerate",
		SentenceLength:    SentenceMedium,
		Description:       "Market coverage centered on figures and exposures.",
		StyleInstructions: "Always include the numbers, state direction and magnitude, flag uncertainty explicitly, no investment advice.",
	},
	PersonaCasual: {
		ID:                PersonaCasual,
		Name:              "Friendly Brief",
		Style:             "casual",
		Characteristics:   []string{"light", "conversational", "accessible"},
		UseCases:          []string{"sports", "small digests"},
		Tone:              "relaxed and friendly",
		SentenceLength:    SentenceShort,
		Description:       "Easy conversational summaries for quick reading.",
		StyleInstructions: "Write like telling a friend the news over coffee. Plain words, a touch of warmth, no jargon.",
	},
	PersonaNarrative: {
		ID:                PersonaNarrative,
		Name:              "Story Weaver",
		Style:             "narrative",
		Characteristics:   []string{"flowing", "connective", "scene-setting"},
		UseCases:          []string{"world news", "multi-item digests"},
		Tone:              "engaging and descriptive",
		SentenceLength:    SentenceMedium,
		Description:       "Narrative digests that connect items into one storyline.",
		StyleInstructions: "Open with the day's through-line, weave items into a single narrative arc, keep transitions smooth.",
	},
	PersonaNeutral: {
		ID:                PersonaNeutral,
		Name:              "Wire Service",
		Style:             "neutral",
		Characteristics:   []string{"balanced", "plain", "complete"},
		UseCases:          []string{"default digests"},
		Tone:              "neutral",
		SentenceLength:    SentenceMedium,
		Description:       "Plain balanced summaries without editorial color.",
		StyleInstructions: "Report each item factually in order of importance. No opinion, no color, complete coverage.",
	},
}

// PersonaByID returns a clone of the persona with the given id,
// falling back to the neutral persona for unknown ids.
func PersonaByID(id string) PersonaConfig {
	if p, ok := personas[id]; ok {
		return p.Clone()
	}
	return personas[PersonaNeutral].Clone()
}

// PersonaIDs lists the built-in persona identifiers.
func PersonaIDs() []string {
	ids := make([]string, 0, len(personas))
	for id := range personas {
		ids = append(ids, id)
	}
	return ids
}
