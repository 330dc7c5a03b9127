package ingest

import (
	"context"
	"sync"
	"time"

	"pulseai/internal/entity"
	"pulseai/internal/prefilter"
	"pulseai/internal/repository"
	"pulseai/internal/scorer"
	"pulseai/pkg/logger"

	gocache "github.com/patrickmn/go-cache"
)

// Recently stored uids are cached so repeat runs skip the store lookup.
const (
	uidCacheTTL     = 6 * time.Hour
	uidCacheCleanup = 30 * time.Minute
)

// Stats summarizes one pipeline run.
type Stats struct {
	Sources    int `json:"sources"`
	Fetched    int `json:"fetched"`
	Saved      int `json:"saved"`
	Duplicates int `json:"duplicates"`
	Rejected   int `json:"rejected"`
	Failed     int `json:"failed_sources"`
}

// Options tunes a pipeline instance.
type Options struct {
	MaxConcurrent  int
	PerSourceLimit int
	MinImportance  float64
	FetchTimeout   time.Duration
}

// Pipeline runs the full ingestion flow for a set of sources: fetch,
// extract, pre-filter, score, deduplicate and store. Every dropped item is
// recorded in the rejection log with a stable reason.
type Pipeline struct {
	fetcher   Fetcher
	extractor *Extractor
	prefilter *prefilter.Prefilter
	scorer    *scorer.Scorer
	newsRepo  repository.NewsRepository
	rejLog    *prefilter.RejectionLog
	logger    *logger.Logger
	opts      Options
	uidCache  *gocache.Cache
}

// NewPipeline creates an ingestion pipeline.
func NewPipeline(
	fetcher Fetcher,
	extractor *Extractor,
	pf *prefilter.Prefilter,
	sc *scorer.Scorer,
	newsRepo repository.NewsRepository,
	rejLog *prefilter.RejectionLog,
	log *logger.Logger,
	opts Options,
) *Pipeline {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 10
	}
	if opts.PerSourceLimit <= 0 {
		opts.PerSourceLimit = 30
	}
	return &Pipeline{
		fetcher:   fetcher,
		extractor: extractor,
		prefilter: pf,
		scorer:    sc,
		newsRepo:  newsRepo,
		rejLog:    rejLog,
		logger:    log,
		opts:      opts,
		uidCache:  gocache.New(uidCacheTTL, uidCacheCleanup),
	}
}

// RunOverrides narrows a single run without changing the pipeline defaults.
type RunOverrides struct {
	PerSourceLimit int
}

// Run ingests all given sources concurrently and returns aggregate counters.
func (p *Pipeline) Run(ctx context.Context, sources []entity.Source) Stats {
	return p.RunWithOverrides(ctx, sources, RunOverrides{})
}

// RunWithOverrides is Run with per-run tuning, used by the manual trigger.
func (p *Pipeline) RunWithOverrides(ctx context.Context, sources []entity.Source, ov RunOverrides) Stats {
	perSourceLimit := ov.PerSourceLimit
	if perSourceLimit <= 0 {
		perSourceLimit = p.opts.PerSourceLimit
	}

	start := time.Now()
	p.logger.Info("Starting ingestion run", logger.IntField("sources", len(sources)))

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		stats = Stats{Sources: len(sources)}
		sem   = make(chan struct{}, p.opts.MaxConcurrent)
	)

	for _, src := range sources {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(src entity.Source) {
			defer wg.Done()
			defer func() { <-sem }()

			srcStats := p.processSource(ctx, src, perSourceLimit)

			mu.Lock()
			stats.Fetched += srcStats.Fetched
			stats.Saved += srcStats.Saved
			stats.Duplicates += srcStats.Duplicates
			stats.Rejected += srcStats.Rejected
			stats.Failed += srcStats.Failed
			mu.Unlock()
		}(src)
	}
	wg.Wait()

	p.logger.Info("Ingestion run complete",
		logger.IntField("sources", stats.Sources),
		logger.IntField("fetched", stats.Fetched),
		logger.IntField("saved", stats.Saved),
		logger.IntField("duplicates", stats.Duplicates),
		logger.IntField("rejected", stats.Rejected),
		logger.IntField("failed_sources", stats.Failed),
		logger.DurationField("duration", time.Since(start)),
	)
	return stats
}

func (p *Pipeline) processSource(ctx context.Context, src entity.Source, perSourceLimit int) Stats {
	var stats Stats
	ingestTime := time.Now().UTC()

	timeout := p.opts.FetchTimeout
	if timeout <= 0 {
		timeout = HTMLTotalBudget
		if src.Type == entity.SourceTypeRSS {
			timeout = RSSTotalBudget
		}
	}

	result, err := p.fetcher.Fetch(ctx, src.URL, FetchOptions{Timeout: timeout})
	if err != nil {
		stats.Failed++
		p.logger.Warn("Source fetch failed",
			logger.StringField("source", src.Name),
			logger.StringField("url", src.URL),
			logger.ErrorField(err),
		)
		p.reject(entity.RejectionRecord{
			Timestamp: ingestTime,
			Reason:    entity.ReasonNetworkError,
			Category:  src.Category,
			Source:    src.Name,
			Title:     src.URL,
		})
		stats.Rejected++
		return stats
	}

	var items []entity.NewsItem
	switch src.Type {
	case entity.SourceTypeHTML:
		item, outcome := p.extractor.ExtractHTML(result, src, ingestTime)
		if outcome != nil {
			p.reject(entity.RejectionRecord{
				Timestamp: ingestTime,
				Reason:    outcome.Reason,
				Category:  src.Category,
				Source:    src.Name,
				Title:     src.URL,
			})
			stats.Rejected++
			return stats
		}
		items = []entity.NewsItem{*item}
	default:
		extracted, outcome := p.extractor.ExtractRSS(result, src, ingestTime)
		if outcome != nil {
			p.reject(entity.RejectionRecord{
				Timestamp: ingestTime,
				Reason:    outcome.Reason,
				Category:  src.Category,
				Source:    src.Name,
				Title:     src.URL,
			})
			stats.Rejected++
			return stats
		}
		items = extracted
	}
	stats.Fetched = len(items)

	// Entries beyond the per-source cap are dropped before any AI spend.
	if len(items) > perSourceLimit {
		for _, item := range items[perSourceLimit:] {
			p.reject(entity.RejectionRecord{
				Timestamp: ingestTime,
				Reason:    entity.ReasonLimitReached,
				Category:  item.Category,
				Source:    item.SourceName,
				Title:     item.Title,
			})
			stats.Rejected++
		}
		items = items[:perSourceLimit]
	}

	accepted := items[:0]
	for i := range items {
		verdict := p.prefilter.Evaluate(&items[i])
		if !verdict.Accepted {
			p.reject(entity.RejectionRecord{
				Timestamp: ingestTime,
				Reason:    verdict.Reason,
				Category:  items[i].Category,
				Source:    items[i].SourceName,
				Title:     items[i].Title,
			})
			stats.Rejected++
			continue
		}
		accepted = append(accepted, items[i])
	}

	fresh, dupes, err := p.filterDuplicates(ctx, accepted)
	if err != nil {
		p.logger.Error("Duplicate lookup failed, keeping all items",
			logger.StringField("source", src.Name),
			logger.ErrorField(err),
		)
		fresh, dupes = accepted, nil
	}
	// Known items skip scoring but still refresh their mutable fields, so a
	// corrected title or body from the source is not lost.
	for i := range dupes {
		if _, err := p.newsRepo.Upsert(ctx, &dupes[i]); err != nil {
			p.logger.Warn("Failed to refresh duplicate item",
				logger.StringField("uid", dupes[i].UID),
				logger.ErrorField(err),
			)
		}
		p.reject(entity.RejectionRecord{
			Timestamp: ingestTime,
			Reason:    entity.ReasonDuplicate,
			Category:  dupes[i].Category,
			Source:    dupes[i].SourceName,
			Title:     dupes[i].Title,
		})
	}
	stats.Duplicates = len(dupes)
	stats.Rejected += len(dupes)

	for i := range fresh {
		if ctx.Err() != nil {
			break
		}
		p.scorer.Enrich(ctx, &fresh[i])

		if p.opts.MinImportance > 0 && fresh[i].Importance < p.opts.MinImportance {
			p.reject(entity.RejectionRecord{
				Timestamp: ingestTime,
				Reason:    entity.ReasonAIBelowThreshold,
				Category:  fresh[i].Category,
				Source:    fresh[i].SourceName,
				Title:     fresh[i].Title,
			})
			stats.Rejected++
			continue
		}

		inserted, err := p.newsRepo.Upsert(ctx, &fresh[i])
		if err != nil {
			p.logger.Error("Failed to store news item",
				logger.StringField("uid", fresh[i].UID),
				logger.StringField("title", fresh[i].Title),
				logger.ErrorField(err),
			)
			continue
		}
		p.uidCache.Set(fresh[i].UID, struct{}{}, gocache.DefaultExpiration)
		if !inserted {
			stats.Duplicates++
			stats.Rejected++
			p.reject(entity.RejectionRecord{
				Timestamp: ingestTime,
				Reason:    entity.ReasonDuplicate,
				Category:  fresh[i].Category,
				Source:    fresh[i].SourceName,
				Title:     fresh[i].Title,
			})
			continue
		}
		stats.Saved++
	}

	return stats
}

// filterDuplicates splits items into unseen ones and duplicates, consulting
// the in-process cache before the store.
func (p *Pipeline) filterDuplicates(ctx context.Context, items []entity.NewsItem) (fresh, dupes []entity.NewsItem, err error) {
	if len(items) == 0 {
		return nil, nil, nil
	}

	var unknownUIDs []string
	for i := range items {
		if _, found := p.uidCache.Get(items[i].UID); found {
			dupes = append(dupes, items[i])
			continue
		}
		unknownUIDs = append(unknownUIDs, items[i].UID)
	}

	existing, err := p.newsRepo.ExistingUIDs(ctx, unknownUIDs)
	if err != nil {
		return nil, nil, err
	}

	for i := range items {
		if _, found := p.uidCache.Get(items[i].UID); found {
			continue
		}
		if _, ok := existing[items[i].UID]; ok {
			p.uidCache.Set(items[i].UID, struct{}{}, gocache.DefaultExpiration)
			dupes = append(dupes, items[i])
			continue
		}
		fresh = append(fresh, items[i])
	}
	return fresh, dupes, nil
}

func (p *Pipeline) reject(rec entity.RejectionRecord) {
	if p.rejLog == nil {
		return
	}
	if err := p.rejLog.Append(rec); err != nil {
		p.logger.Error("Failed to append rejection record", logger.ErrorField(err))
	}
}
