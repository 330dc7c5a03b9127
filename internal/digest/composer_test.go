package digest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"pulseai/internal/entity"
	"pulseai/internal/repository"
	"pulseai/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNewsStore struct {
	items []entity.NewsItem
}

func (f *fakeNewsStore) Upsert(ctx context.Context, item *entity.NewsItem) (bool, error) {
	f.items = append(f.items, *item)
	return true, nil
}

func (f *fakeNewsStore) UpsertAsync(ctx context.Context, item *entity.NewsItem) {
	f.Upsert(ctx, item)
}

// FindForDigest mirrors the store ordering: newest first, importance as
// tiebreaker, limit applied after sorting.
func (f *fakeNewsStore) FindForDigest(ctx context.Context, q repository.NewsQuery) ([]entity.NewsItem, error) {
	var out []entity.NewsItem
	for _, item := range f.items {
		if len(q.Categories) > 0 && item.Category != q.Categories[0] {
			continue
		}
		if item.Importance < q.MinImportance {
			continue
		}
		if !q.Since.IsZero() && item.PublishedAt.Before(q.Since) {
			continue
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PublishedAt.Equal(out[j].PublishedAt) {
			return out[i].PublishedAt.After(out[j].PublishedAt)
		}
		return out[i].Importance > out[j].Importance
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (f *fakeNewsStore) FindRecent(ctx context.Context, since time.Time, limit int) ([]entity.NewsItem, error) {
	var out []entity.NewsItem
	for _, item := range f.items {
		if item.PublishedAt.Before(since) {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

func (f *fakeNewsStore) FindByUIDs(ctx context.Context, uids []string) ([]entity.NewsItem, error) {
	return nil, nil
}

func (f *fakeNewsStore) FindByIDs(ctx context.Context, ids []uint) ([]entity.NewsItem, error) {
	var out []entity.NewsItem
	for _, id := range ids {
		for _, item := range f.items {
			if item.ID == id {
				out = append(out, item)
			}
		}
	}
	return out, nil
}

func (f *fakeNewsStore) ExistingUIDs(ctx context.Context, uids []string) (map[string]struct{}, error) {
	return map[string]struct{}{}, nil
}

type fakeDigestStore struct {
	mu      sync.Mutex
	created []entity.Digest
	rated   []entity.Digest
}

func (f *fakeDigestStore) Create(ctx context.Context, digest *entity.Digest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	digest.ID = uint(len(f.created) + 1)
	digest.CreatedAt = time.Now().UTC()
	f.created = append(f.created, *digest)
	return nil
}

func (f *fakeDigestStore) Get(ctx context.Context, id uint) (*entity.Digest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.created {
		if f.created[i].ID == id {
			d := f.created[i]
			return &d, nil
		}
	}
	return nil, fmt.Errorf("digest %d not found", id)
}

func (f *fakeDigestStore) ListByUser(ctx context.Context, userID int64, filter entity.DigestFilter, limit, offset int) ([]entity.Digest, error) {
	var out []entity.Digest
	for _, d := range f.created {
		if d.UserID == userID && d.MatchesFilter(filter) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeDigestStore) Mutate(ctx context.Context, id uint, op entity.DigestOp) (*entity.Digest, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeDigestStore) AddFeedback(ctx context.Context, id uint, rating float64) (*entity.Digest, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeDigestStore) FindWithFeedback(ctx context.Context, userID int64) ([]entity.Digest, error) {
	return f.rated, nil
}

type fakePrefStore struct {
	pref  *entity.UserPreference
	saved *entity.UserPreference
}

func (f *fakePrefStore) Get(ctx context.Context, userID int64) (*entity.UserPreference, error) {
	if f.pref != nil {
		return f.pref, nil
	}
	return entity.DefaultUserPreference(userID), nil
}

func (f *fakePrefStore) Save(ctx context.Context, pref *entity.UserPreference) error {
	f.saved = pref
	return nil
}

func (f *fakePrefStore) FindByNotificationHour(ctx context.Context, hour int) ([]entity.UserPreference, error) {
	return nil, nil
}

type fakeLinkStore struct {
	links []entity.NewsLink
}

func (f *fakeLinkStore) UpsertLink(ctx context.Context, link *entity.NewsLink) error {
	f.links = append(f.links, *link)
	return nil
}

func (f *fakeLinkStore) FindLinks(ctx context.Context, itemID uint, limit int) ([]entity.NewsLink, error) {
	var out []entity.NewsLink
	for _, link := range f.links {
		if link.ItemAID == itemID || link.ItemBID == itemID {
			out = append(out, link)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeAI struct {
	text string
	err  error
}

func (f *fakeAI) ScoreImportance(ctx context.Context, item *entity.NewsItem) (float64, error) {
	return 0.5, nil
}

func (f *fakeAI) ScoreCredibility(ctx context.Context, item *entity.NewsItem) (float64, error) {
	return 0.5, nil
}

func (f *fakeAI) GenerateDigest(ctx context.Context, prompt string) (string, error) {
	return f.text, f.err
}

func cryptoItems(now time.Time) []entity.NewsItem {
	return []entity.NewsItem{
		{ID: 1, UID: "u1", Title: "Bitcoin breaks record", Body: "Bitcoin climbed past its prior peak.", Category: "crypto", SourceName: "coindesk", Importance: 0.9, Credibility: 0.8, PublishedAt: now.Add(-3 * time.Hour)},
		{ID: 2, UID: "u2", Title: "Ethereum fees drop", Body: "Transaction fees hit a yearly low.", Category: "crypto", SourceName: "coindesk", Importance: 0.85, Credibility: 0.7, PublishedAt: now.Add(-5 * time.Hour)},
		{ID: 3, UID: "u3", Title: "Exchange lists new token", Body: "A major exchange added a new asset.", Category: "crypto", SourceName: "theblock", Importance: 0.8, Credibility: 0.6, PublishedAt: now.Add(-7 * time.Hour)},
	}
}

func newTestComposer(news *fakeNewsStore, digests *fakeDigestStore, prefs *fakePrefStore, ai repository.AIRepository) *Composer {
	log := logger.NewNop()
	graph := NewGraph(news, &fakeLinkStore{}, log)
	return NewComposer(news, digests, prefs, ai, graph, log, Config{})
}

func TestGenerateDigest(t *testing.T) {
	now := time.Now().UTC()
	news := &fakeNewsStore{items: cryptoItems(now)}
	digests := &fakeDigestStore{}
	prefs := &fakePrefStore{}
	c := newTestComposer(news, digests, prefs, &fakeAI{text: "Today in crypto: records fell."})

	digest, err := c.Generate(context.Background(), Request{
		UserID:   42,
		Category: "crypto",
		Style:    "analytical",
		Length:   "medium",
		Limit:    3,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, digest.Summary)
	assert.Equal(t, "crypto", digest.Category)
	assert.Equal(t, "analytical", digest.Style)
	require.Len(t, digests.created, 1)

	var meta Metadata
	require.NoError(t, json.Unmarshal(digest.Metadata, &meta))
	assert.Equal(t, entity.PersonaAnalytical, meta.Persona)
	assert.Equal(t, 3, meta.NewsCount)
	assert.GreaterOrEqual(t, meta.GenerationTimeMs, int64(0))
	assert.InDelta(t, 0.85, meta.AvgImportance, 1e-9)
	assert.False(t, meta.Fallback)
}

func TestGenerateDigestPrefersRecentCandidates(t *testing.T) {
	now := time.Now().UTC()
	news := &fakeNewsStore{items: []entity.NewsItem{
		{ID: 1, UID: "r1", Title: "Fresh minor update", Body: "A small release shipped this morning.", Category: "tech", SourceName: "verge", Importance: 0.5, Credibility: 0.6, PublishedAt: now.Add(-1 * time.Hour)},
		{ID: 2, UID: "r2", Title: "Morning roundup", Body: "Several vendors announced patches.", Category: "tech", SourceName: "verge", Importance: 0.6, Credibility: 0.6, PublishedAt: now.Add(-2 * time.Hour)},
		{ID: 3, UID: "r3", Title: "Major outage postmortem", Body: "A detailed look at last week's outage.", Category: "tech", SourceName: "arstechnica", Importance: 0.95, Credibility: 0.9, PublishedAt: now.Add(-10 * time.Hour)},
	}}
	digests := &fakeDigestStore{}
	c := newTestComposer(news, digests, &fakePrefStore{}, &fakeAI{text: "Tech today."})

	digest, err := c.Generate(context.Background(), Request{UserID: 3, Category: "tech", Limit: 2})
	require.NoError(t, err)

	var meta Metadata
	require.NoError(t, json.Unmarshal(digest.Metadata, &meta))
	assert.Equal(t, 2, meta.NewsCount)
	// The two newest items make the cut, not the older high-importance one.
	assert.InDelta(t, 0.55, meta.AvgImportance, 1e-9)
}

func TestGenerateDigestFallback(t *testing.T) {
	now := time.Now().UTC()
	news := &fakeNewsStore{items: cryptoItems(now)}
	digests := &fakeDigestStore{}
	c := newTestComposer(news, digests, &fakePrefStore{}, &fakeAI{err: errors.New("provider down")})

	digest, err := c.Generate(context.Background(), Request{UserID: 1, Category: "crypto", Limit: 3})
	require.NoError(t, err)

	assert.Contains(t, digest.Summary, "Bitcoin breaks record")
	assert.True(t, strings.HasPrefix(digest.Summary, "•"))

	var meta Metadata
	require.NoError(t, json.Unmarshal(digest.Metadata, &meta))
	assert.True(t, meta.Fallback)
}

func TestGenerateDigestNoCandidates(t *testing.T) {
	c := newTestComposer(&fakeNewsStore{}, &fakeDigestStore{}, &fakePrefStore{}, &fakeAI{text: "x"})

	_, err := c.Generate(context.Background(), Request{UserID: 1, Category: "sports"})
	require.Error(t, err)
	assert.Equal(t, entity.KindValidation, entity.KindOf(err))
}

func TestGenerateDigestUpdatesPreferences(t *testing.T) {
	now := time.Now().UTC()
	news := &fakeNewsStore{items: cryptoItems(now)}
	prefs := &fakePrefStore{}
	c := newTestComposer(news, &fakeDigestStore{}, prefs, &fakeAI{text: "digest"})

	_, err := c.Generate(context.Background(), Request{
		UserID:             7,
		Category:           "crypto",
		Style:              "financial",
		Length:             "long",
		Limit:              3,
		MinImportance:      0.5,
		UseUserPreferences: true,
	})
	require.NoError(t, err)
	require.NotNil(t, prefs.saved)
	assert.Equal(t, "long", prefs.saved.PreferredLength)
	assert.Equal(t, "financial", prefs.saved.PreferredStyle)
}

func TestTimeOfDayMinImportance(t *testing.T) {
	assert.Equal(t, 0.35, TimeOfDayMinImportance(8))
	assert.Equal(t, 0.4, TimeOfDayMinImportance(14))
	assert.Equal(t, 0.45, TimeOfDayMinImportance(20))
	assert.Equal(t, 0.5, TimeOfDayMinImportance(3))
}

func TestFallbackDigest(t *testing.T) {
	items := []entity.NewsItem{
		{Title: "One", SourceName: "a", PublishedAt: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)},
		{Title: "Two", SourceName: "b", PublishedAt: time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)},
	}
	text := FallbackDigest(items)
	assert.Equal(t, "• One (a, 2025-06-01)\n• Two (b, 2025-06-02)", text)
}
