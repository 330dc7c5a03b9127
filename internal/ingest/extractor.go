package ingest

import (
	"bytes"
	"encoding/json"
	"html"
	"strings"
	"time"

	"pulseai/internal/entity"
	"pulseai/pkg/logger"
	"pulseai/pkg/utils"

	"github.com/PuerkitoBio/goquery"
	"github.com/mauidude/go-readability"
	"github.com/mmcdole/gofeed"
)

// HTML extraction method identifiers attached to items for diagnostics.
const (
	MethodJSONLD      = "jsonld"
	MethodOpenGraph   = "opengraph"
	MethodReadability = "readability"
	MethodDensity     = "density"
)

// A maintext shorter than this is treated as extraction failure.
const minContentLen = 200

// ExtractOutcome explains why an extraction produced no item.
// The pipeline records the reason instead of receiving an error.
type ExtractOutcome struct {
	Reason string
	Detail string
}

// Extractor turns fetched response bodies into NewsItem skeletons.
type Extractor struct {
	logger *logger.Logger
	parser *gofeed.Parser
}

// NewExtractor creates a content extractor.
func NewExtractor(log *logger.Logger) *Extractor {
	return &Extractor{
		logger: log,
		parser: gofeed.NewParser(),
	}
}

// ExtractRSS parses a feed body into item skeletons. Entries with empty
// titles are skipped; missing or unparseable dates fall back to ingestTime.
func (e *Extractor) ExtractRSS(result *FetchResult, src entity.Source, ingestTime time.Time) ([]entity.NewsItem, *ExtractOutcome) {
	if !looksLikeFeed(result.ContentType) {
		e.logger.Warn("Rejecting non-feed content type for RSS source",
			logger.StringField("source", src.Name),
			logger.StringField("content_type", result.ContentType),
		)
		return nil, &ExtractOutcome{Reason: entity.ReasonParseError, Detail: "content type is not a feed: " + result.ContentType}
	}

	feed, err := e.parser.ParseString(string(result.Body))
	if err != nil {
		return nil, &ExtractOutcome{Reason: entity.ReasonParseError, Detail: err.Error()}
	}
	if len(feed.Items) == 0 {
		return nil, &ExtractOutcome{Reason: entity.ReasonNoEntries}
	}

	var items []entity.NewsItem
	for _, fi := range feed.Items {
		title := cleanText(fi.Title)
		if title == "" {
			continue
		}

		body := fi.Content
		if body == "" {
			body = fi.Description
		}

		publishedAt := ingestTime
		if fi.PublishedParsed != nil {
			publishedAt = fi.PublishedParsed.UTC()
		} else if fi.UpdatedParsed != nil {
			publishedAt = fi.UpdatedParsed.UTC()
		}

		item := entity.NewsItem{
			Title:       utils.TruncateText(title, entity.MaxTitleLen),
			Body:        cleanText(body),
			Link:        strings.TrimSpace(fi.Link),
			SourceName:  src.Name,
			Category:    strings.ToLower(src.Category),
			Subcategory: src.Subcategory,
			PublishedAt: publishedAt,
		}
		item.AssignUID()
		items = append(items, item)
	}

	if len(items) == 0 {
		return nil, &ExtractOutcome{Reason: entity.ReasonNoEntries}
	}
	return items, nil
}

// ExtractHTML runs the cascaded article-extraction strategies in order and
// returns the first successful result. Success requires both a title and a
// maintext of useful length.
func (e *Extractor) ExtractHTML(result *FetchResult, src entity.Source, ingestTime time.Time) (*entity.NewsItem, *ExtractOutcome) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(result.Body))
	if err != nil {
		return nil, &ExtractOutcome{Reason: entity.ReasonParseError, Detail: err.Error()}
	}

	type strategy struct {
		method string
		run    func(*goquery.Document, []byte) (string, string, bool)
	}
	strategies := []strategy{
		{MethodJSONLD, extractJSONLD},
		{MethodOpenGraph, extractOpenGraph},
		{MethodReadability, extractReadability},
		{MethodDensity, extractDensity},
	}

	shortMethod := ""
	for _, s := range strategies {
		title, maintext, ok := s.run(doc, result.Body)
		if !ok {
			continue
		}
		title = cleanText(title)
		maintext = cleanText(maintext)
		if title == "" || maintext == "" {
			continue
		}
		if len(maintext) < minContentLen {
			// A later strategy may still find the full text.
			if shortMethod == "" {
				shortMethod = s.method
			}
			continue
		}

		item := entity.NewsItem{
			Title:            utils.TruncateText(title, entity.MaxTitleLen),
			Body:             maintext,
			Link:             result.URL,
			SourceName:       src.Name,
			Category:         strings.ToLower(src.Category),
			Subcategory:      src.Subcategory,
			PublishedAt:      ingestTime,
			ExtractionMethod: s.method,
		}
		item.AssignUID()
		return &item, nil
	}

	if shortMethod != "" {
		return nil, &ExtractOutcome{Reason: entity.ReasonInsufficientContent, Detail: shortMethod}
	}
	return nil, &ExtractOutcome{Reason: entity.ReasonContentExtraction}
}

// extractJSONLD reads structured article metadata from ld+json script blocks.
func extractJSONLD(doc *goquery.Document, _ []byte) (string, string, bool) {
	var title, body string
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		var payload map[string]interface{}
		if err := json.Unmarshal([]byte(sel.Text()), &payload); err != nil {
			return true
		}
		t, _ := payload["headline"].(string)
		b, _ := payload["articleBody"].(string)
		if t != "" && b != "" {
			title, body = t, b
			return false
		}
		return true
	})
	return title, body, title != "" && body != ""
}

// extractOpenGraph combines OpenGraph metadata with dedicated article-body
// selectors.
func extractOpenGraph(doc *goquery.Document, _ []byte) (string, string, bool) {
	title, _ := doc.Find(`meta[property="og:title"]`).Attr("content")
	if title == "" {
		title = doc.Find("title").First().Text()
	}

	selectors := []string{
		`[itemprop="articleBody"]`,
		"article",
		".article-body",
		".post-content",
		".entry-content",
	}
	for _, sel := range selectors {
		node := doc.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		var parts []string
		node.Find("p").Each(func(_ int, p *goquery.Selection) {
			if txt := strings.TrimSpace(p.Text()); txt != "" {
				parts = append(parts, txt)
			}
		})
		body := strings.Join(parts, "\n")
		if body == "" {
			body = strings.TrimSpace(node.Text())
		}
		if title != "" && body != "" {
			return title, body, true
		}
	}
	return "", "", false
}

// extractReadability applies the readability content heuristic to the raw page.
func extractReadability(doc *goquery.Document, raw []byte) (string, string, bool) {
	rdoc, err := readability.NewDocument(string(raw))
	if err != nil {
		return "", "", false
	}
	content := rdoc.Content()
	contentDoc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return "", "", false
	}

	title, _ := doc.Find(`meta[property="og:title"]`).Attr("content")
	if title == "" {
		title = doc.Find("title").First().Text()
	}
	return title, contentDoc.Text(), title != ""
}

// extractDensity is the generic fallback: pick the element holding the most
// paragraph text.
func extractDensity(doc *goquery.Document, _ []byte) (string, string, bool) {
	title := doc.Find("title").First().Text()
	if h1 := strings.TrimSpace(doc.Find("h1").First().Text()); h1 != "" {
		title = h1
	}

	best := ""
	bestLen := 0
	doc.Find("div, section, main, td").Each(func(_ int, sel *goquery.Selection) {
		var parts []string
		sel.ChildrenFiltered("p").Each(func(_ int, p *goquery.Selection) {
			parts = append(parts, strings.TrimSpace(p.Text()))
		})
		text := strings.Join(parts, "\n")
		if len(text) > bestLen {
			best = text
			bestLen = len(text)
		}
	})
	return title, best, title != "" && best != ""
}

// cleanText strips tags, decodes entities and collapses whitespace.
func cleanText(s string) string {
	if s == "" {
		return ""
	}
	if strings.ContainsAny(s, "<>") {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(s)); err == nil {
			s = doc.Text()
		}
	}
	s = html.UnescapeString(s)
	return utils.SafeText(utils.CollapseWhitespace(s))
}

func looksLikeFeed(contentType string) bool {
	ct := strings.ToLower(contentType)
	return ct == "" ||
		strings.Contains(ct, "xml") ||
		strings.Contains(ct, "rss") ||
		strings.Contains(ct, "atom")
}
