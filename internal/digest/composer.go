package digest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"pulseai/internal/entity"
	"pulseai/internal/repository"
	"pulseai/pkg/logger"
	"pulseai/pkg/utils"
)

// Request describes one digest generation call.
type Request struct {
	UserID             int64
	Category           string
	Style              string
	Length             string
	Period             time.Duration
	Limit              int
	MinImportance      float64
	Audience           string
	UseUserPreferences bool
}

// Config tunes the composer.
type Config struct {
	MinImportanceDefault float64
	LengthSpecs          map[string]int
	GenerationTimeout    time.Duration
	MaxContextItems      int
	DefaultAudience      string
}

// Metadata recorded on every generated digest.
type Metadata struct {
	Persona          string  `json:"persona"`
	NewsCount        int     `json:"news_count"`
	GenerationTimeMs int64   `json:"generation_time_ms"`
	MinImportance    float64 `json:"min_importance"`
	TargetWords      int     `json:"target_words"`
	AvgImportance    float64 `json:"avg_importance"`
	AvgCredibility   float64 `json:"avg_credibility"`
	Fallback         bool    `json:"fallback"`
}

// Composer assembles digest prompts and persists generated digests.
type Composer struct {
	newsRepo   repository.NewsRepository
	digestRepo repository.DigestRepository
	prefRepo   repository.UserPreferenceRepository
	ai         repository.AIRepository
	graph      *Graph
	logger     *logger.Logger
	cfg        Config
}

// NewComposer creates a digest composer.
func NewComposer(
	newsRepo repository.NewsRepository,
	digestRepo repository.DigestRepository,
	prefRepo repository.UserPreferenceRepository,
	ai repository.AIRepository,
	graph *Graph,
	log *logger.Logger,
	cfg Config,
) *Composer {
	if cfg.MinImportanceDefault <= 0 {
		cfg.MinImportanceDefault = 0.3
	}
	if len(cfg.LengthSpecs) == 0 {
		cfg.LengthSpecs = map[string]int{"short": 150, "medium": 400, "long": 800}
	}
	if cfg.GenerationTimeout <= 0 {
		cfg.GenerationTimeout = 60 * time.Second
	}
	if cfg.MaxContextItems <= 0 {
		cfg.MaxContextItems = 5
	}
	if cfg.DefaultAudience == "" {
		cfg.DefaultAudience = "general"
	}
	return &Composer{
		newsRepo:   newsRepo,
		digestRepo: digestRepo,
		prefRepo:   prefRepo,
		ai:         ai,
		graph:      graph,
		logger:     log,
		cfg:        cfg,
	}
}

// Generate produces a digest for the request, persists it and returns it.
// Generation failures degrade to a bulleted headline digest instead of an
// error; the fallback is flagged in metadata.
func (c *Composer) Generate(ctx context.Context, req Request) (*entity.Digest, error) {
	pref, err := c.prefRepo.Get(ctx, req.UserID)
	if err != nil {
		c.logger.Warn("Failed to load user preferences, using defaults",
			logger.IntField("user_id", int(req.UserID)),
			logger.ErrorField(err),
		)
		pref = entity.DefaultUserPreference(req.UserID)
	}

	req = c.resolveRequest(req, pref)

	since := time.Now().UTC().Add(-req.Period)
	items, err := c.newsRepo.FindForDigest(ctx, repository.NewsQuery{
		Categories:    categoriesFor(req.Category),
		MinImportance: req.MinImportance,
		Since:         since,
		Limit:         req.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load digest candidates: %w", err)
	}
	if len(items) == 0 {
		return nil, entity.NewAppError(entity.KindValidation, "digest.generate",
			fmt.Sprintf("no news items match category=%q min_importance=%.2f period=%s", req.Category, req.MinImportance, req.Period), nil)
	}

	signals := DeriveSignals(items, req.Category, time.Now().UTC())
	persona := c.selectPersona(req, signals)

	contextBlock := ""
	if c.graph != nil {
		anchor := &items[0]
		for i := range items {
			if items[i].Importance > anchor.Importance {
				anchor = &items[i]
			}
		}
		contextBlock = c.graph.ContextBlock(ctx, anchor, c.cfg.MaxContextItems)
	}

	targetWords := c.targetWords(req.Length)
	var contextBlocks []string
	if contextBlock != "" {
		contextBlocks = []string{contextBlock}
	}
	prompt := repository.BuildDigestPrompt(persona, items, targetWords, req.Audience, contextBlocks)

	start := time.Now()
	summary, fallback := c.generateText(ctx, prompt, items)
	elapsed := time.Since(start)

	meta := Metadata{
		Persona:          persona.ID,
		NewsCount:        len(items),
		GenerationTimeMs: elapsed.Milliseconds(),
		MinImportance:    req.MinImportance,
		TargetWords:      targetWords,
		AvgImportance:    signals.AvgImportance,
		AvgCredibility:   avgCredibility(items),
		Fallback:         fallback,
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal digest metadata: %w", err)
	}

	digest := &entity.Digest{
		UserID:     req.UserID,
		Summary:    summary,
		Category:   req.Category,
		Style:      persona.Style,
		Period:     req.Period.String(),
		Length:     req.Length,
		LimitCount: req.Limit,
		Metadata:   metaJSON,
	}
	if err := c.digestRepo.Create(ctx, digest); err != nil {
		return nil, fmt.Errorf("failed to persist digest: %w", err)
	}

	c.logger.Info("Digest generated",
		logger.IntField("user_id", int(req.UserID)),
		logger.StringField("category", req.Category),
		logger.StringField("persona", persona.ID),
		logger.IntField("news_count", len(items)),
		logger.BoolField("fallback", fallback),
		logger.DurationField("duration", elapsed),
	)

	if req.UseUserPreferences {
		c.updatePreferences(ctx, pref, req)
	}

	return digest, nil
}

// resolveRequest fills unset request fields from preferences and defaults.
func (c *Composer) resolveRequest(req Request, pref *entity.UserPreference) Request {
	if req.Limit <= 0 {
		req.Limit = 10
	}
	if req.Period <= 0 {
		req.Period = 24 * time.Hour
	}
	if req.Audience == "" {
		req.Audience = c.cfg.DefaultAudience
	}
	if req.Length == "" {
		req.Length = pref.PreferredLength
		if req.Length == "" {
			req.Length = "medium"
		}
	}
	if req.Style == "" {
		req.Style = pref.PreferredStyle
	}
	if req.MinImportance <= 0 {
		if req.UseUserPreferences && pref.SmartFiltering && pref.MinImportance > 0 {
			req.MinImportance = pref.MinImportance
		} else {
			req.MinImportance = TimeOfDayMinImportance(time.Now().UTC().Hour())
		}
	}
	return req
}

// TimeOfDayMinImportance picks the default importance floor by hour: mornings
// get a wider net, evenings a tighter one, and the overnight window the
// tightest.
func TimeOfDayMinImportance(hour int) float64 {
	switch {
	case hour >= 6 && hour <= 11:
		return 0.35
	case hour >= 12 && hour <= 17:
		return 0.4
	case hour >= 18 && hour <= 23:
		return 0.45
	default:
		return 0.5
	}
}

// selectPersona honors an explicitly requested style when it names a known
// persona, otherwise derives one from the candidate signals.
func (c *Composer) selectPersona(req Request, signals Signals) entity.PersonaConfig {
	if req.Style != "" {
		if utils.ContainsString(entity.PersonaIDs(), req.Style) {
			return entity.PersonaByID(req.Style)
		}
		c.logger.Warn("Unknown digest style, selecting persona from signals",
			logger.StringField("style", req.Style),
		)
	}
	return SelectPersona(signals)
}

func (c *Composer) targetWords(length string) int {
	if words, ok := c.cfg.LengthSpecs[length]; ok {
		return words
	}
	return c.cfg.LengthSpecs["medium"]
}

// generateText invokes the AI provider with a timeout; failures fall back to
// a bulleted headline digest.
func (c *Composer) generateText(ctx context.Context, prompt string, items []entity.NewsItem) (string, bool) {
	genCtx, cancel := context.WithTimeout(ctx, c.cfg.GenerationTimeout)
	defer cancel()

	text, err := c.ai.GenerateDigest(genCtx, prompt)
	if err == nil && strings.TrimSpace(text) != "" {
		return strings.TrimSpace(text), false
	}
	if err != nil {
		c.logger.Warn("Digest generation failed, using fallback",
			logger.ErrorField(err),
		)
	}
	return FallbackDigest(items), true
}

// FallbackDigest renders candidate headlines as a plain bulleted list.
func FallbackDigest(items []entity.NewsItem) string {
	var sb strings.Builder
	for _, item := range items {
		sb.WriteString(fmt.Sprintf("• %s (%s, %s)\n",
			item.Title,
			item.SourceName,
			item.PublishedAt.Format("2006-01-02"),
		))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (c *Composer) updatePreferences(ctx context.Context, pref *entity.UserPreference, req Request) {
	pref.PreferredLength = req.Length
	if utils.ContainsString(entity.PersonaIDs(), req.Style) {
		pref.PreferredStyle = req.Style
	}
	if err := c.prefRepo.Save(ctx, pref); err != nil {
		c.logger.Warn("Failed to update user preferences",
			logger.IntField("user_id", int(pref.UserID)),
			logger.ErrorField(err),
		)
	}
}

func categoriesFor(category string) []string {
	if category == "" || category == "all" {
		return nil
	}
	return []string{strings.ToLower(category)}
}

func avgCredibility(items []entity.NewsItem) float64 {
	if len(items) == 0 {
		return 0
	}
	var sum float64
	for _, item := range items {
		sum += item.Credibility
	}
	return sum / float64(len(items))
}
