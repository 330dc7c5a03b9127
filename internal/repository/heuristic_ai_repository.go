package repository

import (
	"context"
	"strings"
	"time"

	"pulseai/internal/entity"
	"pulseai/pkg/logger"
	"pulseai/pkg/utils"
)

// heuristicAIRepository is a model-free AIRepository used when no external
// provider is configured. Scores come from cheap content signals and digest
// generation is refused so callers fall back to template output.
type heuristicAIRepository struct {
	logger *logger.Logger
}

// NewHeuristicAIRepository creates a new instance of heuristicAIRepository.
func NewHeuristicAIRepository(log *logger.Logger) AIRepository {
	return &heuristicAIRepository{logger: log}
}

func (r *heuristicAIRepository) ScoreImportance(ctx context.Context, item *entity.NewsItem) (float64, error) {
	score := 0.4
	if utils.CountWords(item.Body) > 200 {
		score += 0.15
	}
	if time.Since(item.PublishedAt) < 6*time.Hour {
		score += 0.15
	}
	title := strings.ToLower(item.Title)
	for _, marker := range []string{"breaking", "urgent", "exclusive"} {
		if strings.Contains(title, marker) {
			score += 0.1
			break
		}
	}
	return utils.Clamp01(score), nil
}

func (r *heuristicAIRepository) ScoreCredibility(ctx context.Context, item *entity.NewsItem) (float64, error) {
	score := 0.4
	if item.Link != "" {
		score += 0.2
	}
	if utils.CountWords(item.Body) > 100 {
		score += 0.1
	}
	if strings.Count(item.Title, "!") == 0 {
		score += 0.1
	}
	return utils.Clamp01(score), nil
}

func (r *heuristicAIRepository) GenerateDigest(ctx context.Context, prompt string) (string, error) {
	return "", entity.NewAppError(entity.KindAIService, "heuristic.generate",
		"heuristic provider does not generate text", nil)
}
