package parse

import (
	"fmt"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"pulso/internal/logging"
	"pulso/internal/news"
	"pulso/internal/relevance"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// searchResponse mirrors the search API's JSON envelope.
type searchResponse struct {
	Status   string          `json:"status"`
	Articles []searchArticle `json:"articles"`
}

type searchArticle struct {
	Source struct {
		Name string `json:"name"`
	} `json:"source"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	PublishedAt string `json:"publishedAt"`
}

// SearchResponse parses raw search-API JSON into items for category.
// Malformed JSON yields an empty batch. Ids include the positional index
// alongside the URL hash so duplicate or missing URLs within a single
// response still produce distinct ids.
func (p *Parser) SearchResponse(raw []byte, category news.Category) []news.Item {
	var resp searchResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		logging.Warn("search response parse failed", "category", category, "err", err)
		return nil
	}

	now := time.Now()
	items := make([]news.Item, 0, len(resp.Articles))
	rejected := 0

	for i, art := range resp.Articles {
		title := strings.TrimSpace(art.Title)
		link := strings.TrimSpace(art.URL)
		if title == "" || link == "" {
			continue
		}

		published := now
		if art.PublishedAt != "" {
			if t, err := time.Parse(time.RFC3339, art.PublishedAt); err == nil {
				published = t
			}
		}

		sourceName := strings.TrimSpace(art.Source.Name)
		if sourceName == "" {
			sourceName = "Search"
		}

		desc := CleanDescription(art.Description)

		item := p.normalize(title, link, desc, art.PublishedAt, published, sourceName, category)
		// Positional id: tolerates duplicate or missing URLs in one response.
		item.ID = fmt.Sprintf("%s-%s-%d", category, news.HashString(link), i)

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
			"category", category, "source", "search", "rejected", rejected)
	}
	return items
}
