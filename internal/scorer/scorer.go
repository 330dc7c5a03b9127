package scorer

import (
	"context"
	"sync"
	"time"

	"pulseai/internal/entity"
	"pulseai/pkg/logger"
	"pulseai/pkg/utils"
)

// DefaultScore is substituted whenever the AI capability fails.
const DefaultScore = 0.5

// Scoring call budget.
const (
	callTimeout  = 10 * time.Second
	maxRetries   = 2
	retryBackoff = 500 * time.Millisecond
)

// Provider is the opaque AI capability producing single-float signals.
type Provider interface {
	ScoreImportance(ctx context.Context, item *entity.NewsItem) (float64, error)
	ScoreCredibility(ctx context.Context, item *entity.NewsItem) (float64, error)
}

// Scorer enriches items with importance and credibility. Provider failures
// never propagate: both scores default to 0.5 and the item stays eligible
// for storage.
type Scorer struct {
	provider Provider
	logger   *logger.Logger
	// Concurrency cap protecting the AI provider.
	sem chan struct{}
}

// New creates a scorer with the given provider concurrency cap.
func New(provider Provider, maxConcurrent int, log *logger.Logger) *Scorer {
	if maxConcurrent <= 0 {
		maxConcurrent = 5
	}
	return &Scorer{
		provider: provider,
		logger:   log,
		sem:      make(chan struct{}, maxConcurrent),
	}
}

// Score issues the two provider calls for one item in parallel and returns
// clamped scores.
func (s *Scorer) Score(ctx context.Context, item *entity.NewsItem) (importance, credibility float64) {
	var wg sync.WaitGroup
	importance, credibility = DefaultScore, DefaultScore

	wg.Add(2)
	go func() {
		defer wg.Done()
		importance = s.callWithRetry(ctx, item, "importance", s.provider.ScoreImportance)
	}()
	go func() {
		defer wg.Done()
		credibility = s.callWithRetry(ctx, item, "credibility", s.provider.ScoreCredibility)
	}()
	wg.Wait()

	return importance, credibility
}

// Enrich scores the item in place.
func (s *Scorer) Enrich(ctx context.Context, item *entity.NewsItem) {
	item.Importance, item.Credibility = s.Score(ctx, item)
	item.ClampScores()
}

func (s *Scorer) callWithRetry(ctx context.Context, item *entity.NewsItem, signal string, call func(context.Context, *entity.NewsItem) (float64, error)) float64 {
	select {
	case s.sem <- struct{}{}:
		defer func() { <-s.sem }()
	case <-ctx.Done():
		return DefaultScore
	}
	if ctx.Err() != nil {
		return DefaultScore
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(retryBackoff * time.Duration(attempt)):
			}
			if ctx.Err() != nil {
				lastErr = ctx.Err()
				break
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, callTimeout)
		score, err := call(callCtx, item)
		cancel()
		if err == nil {
			return utils.Clamp01(score)
		}
		lastErr = err
	}

	s.logger.Warn("AI scoring failed, using default score",
		logger.StringField("signal", signal),
		logger.StringField("title", utils.TruncateText(item.Title, 80)),
		logger.ErrorField(lastErr),
	)
	return DefaultScore
}
