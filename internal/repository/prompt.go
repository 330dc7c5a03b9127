package repository

import (
	"fmt"
	"strings"

	"pulseai/internal/entity"
	"pulseai/pkg/utils"
)

const scorePromptBodyLimit = 2000

// BuildImportancePrompt asks the model to rate newsworthiness of an item.
func BuildImportancePrompt(item *entity.NewsItem) string {
	return fmt.Sprintf(`You are a news editor rating how important a news article is for a general audience.

Rate the article below on a scale from 0.0 to 1.0:
- 0.0-0.2: trivial, promotional, or clickbait content
- 0.2-0.4: minor local interest
- 0.4-0.6: moderately notable
- 0.6-0.8: significant development in its field
- 0.8-1.0: major news with broad impact

Article:
Title: %s
Source: %s
Category: %s
Published: %s
Content: %s

Respond with ONLY a JSON object, no markdown fences:
{"score": <float>, "reasoning": "<one short sentence>"}`,
		item.Title,
		item.SourceName,
		item.Category,
		item.PublishedAt.Format("2006-01-02"),
		utils.TruncateText(item.Body, scorePromptBodyLimit),
	)
}

// BuildCredibilityPrompt asks the model to rate how trustworthy an item looks.
func BuildCredibilityPrompt(item *entity.NewsItem) string {
	return fmt.Sprintf(`You are a fact-checking assistant rating the credibility of a news article.

Rate the article below on a scale from 0.0 to 1.0 considering:
- Whether claims are attributed to named sources
- Presence of verifiable facts versus speculation
- Sensationalist or manipulative language
- The reputation signals of the publishing source

Article:
Title: %s
Source: %s
Link: %s
Content: %s

Respond with ONLY a JSON object, no markdown fences:
{"score": <float>, "reasoning": "<one short sentence>"}`,
		item.Title,
		item.SourceName,
		item.Link,
		utils.TruncateText(item.Body, scorePromptBodyLimit),
	)
}

// BuildDigestPrompt assembles the digest generation prompt from the selected
// persona, the news items and optional related-story context blocks.
func BuildDigestPrompt(persona entity.PersonaConfig, items []entity.NewsItem, targetWords int, audience string, contextBlocks []string) string {
	var sb strings.Builder

	sb.WriteString(persona.StyleInstructions)
	sb.WriteString("\n\n")
	sb.WriteString(fmt.Sprintf("Write a news digest of roughly %d words for a %s audience.\n", targetWords, audience))
	sb.WriteString("Cover the stories below. Group related stories together, lead with the most important ones, and do not invent facts that are not in the material.\n\n")

	for i, item := range items {
		sb.WriteString(fmt.Sprintf("--- Story %d ---\n", i+1))
		sb.WriteString(fmt.Sprintf("Title: %s\n", item.Title))
		sb.WriteString(fmt.Sprintf("Source: %s\n", item.SourceName))
		sb.WriteString(fmt.Sprintf("Published: %s\n", item.PublishedAt.Format("2006-01-02 15:04")))
		sb.WriteString(fmt.Sprintf("Importance: %.2f\n", item.Importance))
		sb.WriteString(fmt.Sprintf("Content: %s\n\n", utils.TruncateText(item.Body, scorePromptBodyLimit)))
	}

	if len(contextBlocks) > 0 {
		sb.WriteString("Background from earlier coverage, reference it only where it adds continuity:\n")
		for _, block := range contextBlocks {
			sb.WriteString(block)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	sb.WriteString("Respond with the digest text only, no preamble and no closing remarks.")

	return sb.String()
}
