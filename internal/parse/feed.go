// Package parse turns raw syndication XML (RSS 2.0 or Atom) and raw
// search-API JSON into normalized news items. Parsers never fail past
// their boundary: malformed input yields an empty batch, items without a
// usable title or link are dropped, and unparseable dates fall back to
// ingestion time.
package parse

import (
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"pulso/internal/classify"
	"pulso/internal/logging"
	"pulso/internal/news"
	"pulso/internal/relevance"
)

// Parser normalizes raw payloads into news items, running the injected
// text detectors and, for regional categories, the relevance classifier.
type Parser struct {
	Detectors classify.Detectors
	feed      *gofeed.Parser
}

// New creates a Parser with the given detectors.
func New(d classify.Detectors) *Parser {
	return &Parser{Detectors: d, feed: gofeed.NewParser()}
}

// Feed parses raw RSS/Atom content from sourceName for category.
// The gofeed universal parser handles both dialects and exposes the
// field fallbacks (link vs href, pubDate vs published/updated,
// description vs summary vs content) through one item shape.
func (p *Parser) Feed(raw []byte, sourceName string, category news.Category) []news.Item {
	feed, err := p.feed.ParseString(string(raw))
	if err != nil {
		logging.Warn("feed parse failed", "source", sourceName, "category", category, "err", err)
		return nil
	}

	now := time.Now()
	items := make([]news.Item, 0, len(feed.Items))
	rejected := 0

	for _, entry := range feed.Items {
		title := strings.TrimSpace(entry.Title)
		link := strings.TrimSpace(entry.Link)
		if link == "" && len(entry.Links) > 0 {
			link = strings.TrimSpace(entry.Links[0])
		}
		if title == "" || link == "" {
			continue
		}

		publishedRaw := entry.Published
		if publishedRaw == "" {
			publishedRaw = entry.Updated
		}
		published := now
		if entry.PublishedParsed != nil {
			published = *entry.PublishedParsed
		} else if entry.UpdatedParsed != nil {
			published = *entry.UpdatedParsed
		}

		desc := entry.Description
		if desc == "" {
			desc = entry.Content
		}
		desc = CleanDescription(desc)

		item := p.normalize(title, link, desc, publishedRaw, published, sourceName, category)

		if category.Regional() {
			decision := relevance.Classify(title, desc, category)
			if !decision.Accepted {
				rejected++
				continue
			}
		}

		items = append(items, item)
	}

	if rejected > 0 {
		logging.Info("relevance filter dropped items",
			"category", category, "source", sourceName, "rejected", rejected)
	}
	return items
}

// normalize assembles one Item, running the text detectors over
// title+description.
func (p *Parser) normalize(title, link, desc, publishedRaw string, published time.Time, sourceName string, category news.Category) news.Item {
	text := title + " " + desc

	item := news.Item{
		ID:           news.ItemID(sourceName, link, category),
		Title:        title,
		Link:         link,
		PublishedRaw: publishedRaw,
		Timestamp:    published.UnixMilli(),
		Description:  news.Truncate(desc, news.MaxDescriptionLen),
		Source:       sourceName,
		Category:     category,
	}

	if p.Detectors.ContainsAlertKeyword != nil {
		if ok, kw := p.Detectors.ContainsAlertKeyword(text); ok {
			item.IsAlert = true
			item.AlertKeyword = kw
		}
	}
	if p.Detectors.DetectRegion != nil {
		item.Region = p.Detectors.DetectRegion(text)
	}
	if p.Detectors.DetectTopics != nil {
		item.Topics = p.Detectors.DetectTopics(text)
	}

	return item
}
