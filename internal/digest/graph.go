package digest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"pulseai/internal/entity"
	"pulseai/internal/prefilter"
	"pulseai/internal/repository"
	"pulseai/pkg/logger"
	"pulseai/pkg/utils"
)

// Similarity weights and inclusion threshold for related-news links.
const (
	weightKeywords = 0.4
	weightEntities = 0.3
	weightCategory = 0.2
	weightSource   = 0.1

	SimilarityThreshold = 0.3
	DefaultLookbackDays = 30
	DefaultMaxRelated   = 5
)

const contextHeader = "📚 Ранее мы писали:"

// Related pairs a news item with its similarity to the anchor item.
type Related struct {
	Item       entity.NewsItem
	Similarity float64
}

// Graph computes similarity between news items and maintains the persisted
// related-news links.
type Graph struct {
	newsRepo repository.NewsRepository
	linkRepo repository.NewsLinkRepository
	logger   *logger.Logger
}

// NewGraph creates a news graph.
func NewGraph(newsRepo repository.NewsRepository, linkRepo repository.NewsLinkRepository, log *logger.Logger) *Graph {
	return &Graph{
		newsRepo: newsRepo,
		linkRepo: linkRepo,
		logger:   log,
	}
}

// Similarity computes the composite similarity of two items: keyword overlap,
// named-entity overlap, category match and source match, weighted 4/3/2/1.
func Similarity(a, b *entity.NewsItem) float64 {
	score := weightKeywords * jaccard(keywordSet(a), keywordSet(b))
	score += weightEntities * jaccard(entitySet(a), entitySet(b))
	if a.Category != "" && a.Category == b.Category {
		score += weightCategory
	}
	if a.SourceName != "" && a.SourceName == b.SourceName {
		score += weightSource
	}
	return score
}

// Related returns up to max items similar to the anchor, most similar first.
// Stored items are served from the persisted link table; recomputation is
// the fallback for unstored anchors and empty link sets.
func (g *Graph) Related(ctx context.Context, item *entity.NewsItem, lookbackDays, max int) ([]Related, error) {
	if lookbackDays <= 0 {
		lookbackDays = DefaultLookbackDays
	}
	if max <= 0 {
		max = DefaultMaxRelated
	}

	if item.ID != 0 {
		if related, ok := g.storedRelated(ctx, item, max); ok {
			return related, nil
		}
	}

	since := time.Now().UTC().AddDate(0, 0, -lookbackDays)
	candidates, err := g.newsRepo.FindRecent(ctx, since, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to load graph candidates: %w", err)
	}

	var related []Related
	for i := range candidates {
		if candidates[i].UID == item.UID {
			continue
		}
		sim := Similarity(item, &candidates[i])
		if sim < SimilarityThreshold {
			continue
		}
		related = append(related, Related{Item: candidates[i], Similarity: sim})
	}

	sort.Slice(related, func(i, j int) bool { return related[i].Similarity > related[j].Similarity })
	if len(related) > max {
		related = related[:max]
	}
	return related, nil
}

// storedRelated serves related items from the links the graph update job
// persisted. False means the caller should recompute instead.
func (g *Graph) storedRelated(ctx context.Context, item *entity.NewsItem, max int) ([]Related, bool) {
	links, err := g.linkRepo.FindLinks(ctx, item.ID, max)
	if err != nil {
		g.logger.Warn("Failed to load stored news links", logger.ErrorField(err))
		return nil, false
	}
	if len(links) == 0 {
		return nil, false
	}

	ids := make([]uint, 0, len(links))
	for _, link := range links {
		other := link.ItemAID
		if other == item.ID {
			other = link.ItemBID
		}
		ids = append(ids, other)
	}
	items, err := g.newsRepo.FindByIDs(ctx, ids)
	if err != nil {
		g.logger.Warn("Failed to load linked news items", logger.ErrorField(err))
		return nil, false
	}

	byID := make(map[uint]entity.NewsItem, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}
	related := make([]Related, 0, len(links))
	for i, link := range links {
		it, ok := byID[ids[i]]
		if !ok {
			continue
		}
		related = append(related, Related{Item: it, Similarity: link.Similarity})
	}
	return related, len(related) > 0
}

// ContextBlock renders the historical-context string for a digest prompt.
// Empty when no candidate passes the similarity threshold.
func (g *Graph) ContextBlock(ctx context.Context, item *entity.NewsItem, maxItems int) string {
	related, err := g.Related(ctx, item, DefaultLookbackDays, maxItems)
	if err != nil {
		g.logger.Warn("Failed to build historical context", logger.ErrorField(err))
		return ""
	}
	return FormatContext(related)
}

// FormatContext renders related items as the historical-context block.
func FormatContext(related []Related) string {
	if len(related) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(contextHeader)
	sb.WriteString("\n")
	for _, rel := range related {
		sb.WriteString(fmt.Sprintf("- %s (%s, сходство %.2f)\n",
			utils.TruncateText(rel.Item.Title, 80),
			rel.Item.PublishedAt.Format("2006-01-02"),
			rel.Similarity,
		))
	}
	return sb.String()
}

// Update recomputes pairwise similarity over the recent window and persists
// links above the threshold. Returns the number of links stored.
func (g *Graph) Update(ctx context.Context, lookbackDays int) (int, error) {
	if lookbackDays <= 0 {
		lookbackDays = DefaultLookbackDays
	}
	since := time.Now().UTC().AddDate(0, 0, -lookbackDays)
	items, err := g.newsRepo.FindRecent(ctx, since, 0)
	if err != nil {
		return 0, fmt.Errorf("failed to load items for graph update: %w", err)
	}

	stored := 0
	for i := 0; i < len(items); i++ {
		if ctx.Err() != nil {
			return stored, ctx.Err()
		}
		for j := i + 1; j < len(items); j++ {
			sim := Similarity(&items[i], &items[j])
			if sim < SimilarityThreshold {
				continue
			}
			aID, bID := entity.OrderedPair(items[i].ID, items[j].ID)
			link := entity.NewsLink{ItemAID: aID, ItemBID: bID, Similarity: sim}
			if err := g.linkRepo.UpsertLink(ctx, &link); err != nil {
				g.logger.Error("Failed to store news link",
					logger.IntField("item_a", int(link.ItemAID)),
					logger.IntField("item_b", int(link.ItemBID)),
					logger.ErrorField(err),
				)
				continue
			}
			stored++
		}
	}

	g.logger.Info("News graph updated",
		logger.IntField("items", len(items)),
		logger.IntField("links", stored),
	)
	return stored, nil
}

func keywordSet(item *entity.NewsItem) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range prefilter.Tokenize(item.Title + " " + item.Body) {
		set[tok] = struct{}{}
	}
	return set
}

// entitySet extracts capitalized words as a cheap named-entity proxy.
func entitySet(item *entity.NewsItem) map[string]struct{} {
	set := make(map[string]struct{})
	for _, word := range strings.Fields(item.Title + " " + item.Body) {
		word = strings.Trim(word, ".,!?:;\"'()[]")
		runes := []rune(word)
		if len(runes) < 3 || !unicode.IsUpper(runes[0]) {
			continue
		}
		lower := strings.ToLower(word)
		if prefilter.IsStopword(lower) {
			continue
		}
		set[lower] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for k := range a {
		if _, ok := b[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
