package ingest

import (
	"strings"
	"testing"
	"time"

	"pulseai/internal/entity"
	"pulseai/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rssFixture = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Example Feed</title>
    <item>
      <title>Bitcoin hits new high</title>
      <link>https://example.com/btc</link>
      <description>Bitcoin reached a new all-time high today.</description>
      <pubDate>Mon, 02 Jun 2025 10:00:00 GMT</pubDate>
    </item>
    <item>
      <title></title>
      <link>https://example.com/empty</link>
    </item>
    <item>
      <title>Ethereum upgrade shipped</title>
      <link>https://example.com/eth</link>
      <description>The upgrade went live this morning.</description>
    </item>
  </channel>
</rss>`

func rssSource() entity.Source {
	return entity.Source{Name: "example", URL: "https://example.com/rss", Type: entity.SourceTypeRSS, Category: "crypto", Subcategory: "markets"}
}

func TestExtractRSS(t *testing.T) {
	e := NewExtractor(logger.NewNop())
	ingestTime := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

	items, outcome := e.ExtractRSS(&FetchResult{ContentType: "application/rss+xml", Body: []byte(rssFixture)}, rssSource(), ingestTime)
	require.Nil(t, outcome)
	require.Len(t, items, 2, "entry with empty title must be skipped")

	first := items[0]
	assert.Equal(t, "Bitcoin hits new high", first.Title)
	assert.Equal(t, "https://example.com/btc", first.Link)
	assert.Equal(t, "example", first.SourceName)
	assert.Equal(t, "crypto", first.Category)
	assert.Equal(t, "markets", first.Subcategory)
	assert.Equal(t, time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC), first.PublishedAt)
	assert.Equal(t, entity.ComputeUID(first.Link, first.Title, first.SourceName), first.UID)

	// Entry without a date falls back to the ingestion time.
	assert.Equal(t, ingestTime, items[1].PublishedAt)
}

func TestExtractRSSRejectsNonFeedContentType(t *testing.T) {
	e := NewExtractor(logger.NewNop())
	_, outcome := e.ExtractRSS(&FetchResult{ContentType: "text/html; charset=utf-8", Body: []byte("<html></html>")}, rssSource(), time.Now())
	require.NotNil(t, outcome)
	assert.Equal(t, entity.ReasonParseError, outcome.Reason)
}

func TestExtractRSSEmptyFeed(t *testing.T) {
	e := NewExtractor(logger.NewNop())
	empty := `<?xml version="1.0"?><rss version="2.0"><channel><title>x</title></channel></rss>`
	_, outcome := e.ExtractRSS(&FetchResult{ContentType: "application/xml", Body: []byte(empty)}, rssSource(), time.Now())
	require.NotNil(t, outcome)
	assert.Equal(t, entity.ReasonNoEntries, outcome.Reason)
}

func htmlSource() entity.Source {
	return entity.Source{Name: "site", URL: "https://site.example/article", Type: entity.SourceTypeHTML, Category: "tech"}
}

func TestExtractHTMLJSONLD(t *testing.T) {
	body := strings.Repeat("A sentence about the launch. ", 20)
	page := `<html><head><script type="application/ld+json">
{"@type":"NewsArticle","headline":"Startup ships product","articleBody":"` + body + `"}
</script></head><body></body></html>`

	e := NewExtractor(logger.NewNop())
	item, outcome := e.ExtractHTML(&FetchResult{Body: []byte(page), URL: "https://site.example/article"}, htmlSource(), time.Now().UTC())
	require.Nil(t, outcome)
	assert.Equal(t, MethodJSONLD, item.ExtractionMethod)
	assert.Equal(t, "Startup ships product", item.Title)
	assert.Contains(t, item.Body, "A sentence about the launch.")
	assert.Equal(t, "https://site.example/article", item.Link)
	assert.NotEmpty(t, item.UID)
}

func TestExtractHTMLOpenGraph(t *testing.T) {
	para := strings.Repeat("Meaningful paragraph text for the article body. ", 10)
	page := `<html><head><meta property="og:title" content="Big tech story"/></head>
<body><article><p>` + para + `</p></article></body></html>`

	e := NewExtractor(logger.NewNop())
	item, outcome := e.ExtractHTML(&FetchResult{Body: []byte(page), URL: "https://site.example/a"}, htmlSource(), time.Now().UTC())
	require.Nil(t, outcome)
	assert.Equal(t, MethodOpenGraph, item.ExtractionMethod)
	assert.Equal(t, "Big tech story", item.Title)
}

func TestExtractHTMLShortJSONLDFallsThrough(t *testing.T) {
	para := strings.Repeat("The full article body lives in the page markup. ", 10)
	page := `<html><head><meta property="og:title" content="Quarterly results"/>
<script type="application/ld+json">
{"@type":"NewsArticle","headline":"Quarterly results","articleBody":"Just a teaser."}
</script></head>
<body><article><p>` + para + `</p></article></body></html>`

	e := NewExtractor(logger.NewNop())
	item, outcome := e.ExtractHTML(&FetchResult{Body: []byte(page), URL: "https://site.example/q"}, htmlSource(), time.Now().UTC())
	require.Nil(t, outcome)
	assert.Equal(t, MethodOpenGraph, item.ExtractionMethod)
	assert.Contains(t, item.Body, "full article body")
}

func TestExtractHTMLInsufficientContent(t *testing.T) {
	page := `<html><head><meta property="og:title" content="Short"/></head>
<body><article><p>too short</p></article></body></html>`

	e := NewExtractor(logger.NewNop())
	_, outcome := e.ExtractHTML(&FetchResult{Body: []byte(page)}, htmlSource(), time.Now().UTC())
	require.NotNil(t, outcome)
	assert.Equal(t, entity.ReasonInsufficientContent, outcome.Reason)
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "Hello world", cleanText("<p>Hello&nbsp;&nbsp; world</p>"))
	assert.Equal(t, "", cleanText(""))
}
