// Package fetch retrieves raw content for one category at a time,
// dispatching on the category's retrieval mode: direct feeds, a
// search-API query, or both concurrently. Individual source failures
// degrade to empty batches; a category-level error means nothing at
// all could be attempted.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"pulso/internal/dedupe"
	"pulso/internal/health"
	"pulso/internal/logging"
	"pulso/internal/news"
	"pulso/internal/parse"
	"pulso/internal/sources"
)

const (
	// defaultSourceTimeout bounds each individual feed request.
	defaultSourceTimeout = 10 * time.Second

	// searchLookbackDays is the time window requested from the search API.
	searchLookbackDays = 7

	// maxSearchRecords caps one search response.
	maxSearchRecords = 50
)

// Options configures a Fetcher. Zero values get sane defaults.
type Options struct {
	Client         *http.Client
	Limiter        *rate.Limiter
	SourceTimeout  time.Duration
	SearchEndpoint string
	SearchAPIKey   string
}

// Fetcher retrieves and parses items for categories.
type Fetcher struct {
	registry *sources.Registry
	parser   *parse.Parser
	health   health.Tracker

	client         *http.Client
	limiter        *rate.Limiter
	sourceTimeout  time.Duration
	searchEndpoint string
	searchKey      string
}

// New creates a Fetcher.
func New(registry *sources.Registry, parser *parse.Parser, tracker health.Tracker, opts Options) *Fetcher {
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: 30 * time.Second}
	}
	if opts.Limiter == nil {
		// Polite default: a few requests per second with a small burst.
		opts.Limiter = rate.NewLimiter(rate.Limit(5), 10)
	}
	if opts.SourceTimeout <= 0 {
		opts.SourceTimeout = defaultSourceTimeout
	}
	return &Fetcher{
		registry:       registry,
		parser:         parser,
		health:         tracker,
		client:         opts.Client,
		limiter:        opts.Limiter,
		sourceTimeout:  opts.SourceTimeout,
		searchEndpoint: opts.SearchEndpoint,
		searchKey:      opts.SearchAPIKey,
	}
}

// FetchCategory retrieves items for one category per its retrieval
// mode. The result is age-filtered and sorted newest first. An error is
// returned only when no retrieval path could run at all.
func (f *Fetcher) FetchCategory(ctx context.Context, category news.Category) ([]news.Item, error) {
	var items []news.Item

	switch news.ModeFor(category) {
	case news.ModeRSSOnly:
		items = f.fetchFeeds(ctx, category)

	case news.ModeRSSAndSearch:
		var feedItems, searchItems []news.Item
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			feedItems = f.fetchFeeds(gctx, category)
			return nil
		})
		g.Go(func() error {
			searchItems = f.fetchSearch(gctx, category)
			return nil
		})
		g.Wait()
		items = append(feedItems, searchItems...)

	default: // ModeSearchOnly
		if f.searchEndpoint == "" {
			return nil, fmt.Errorf("category %s requires a search endpoint", category)
		}
		items = f.fetchSearch(ctx, category)
	}

	items = dedupe.FilterAge(items, time.Now())
	dedupe.SortNewestFirst(items)
	return items, nil
}

// fetchFeeds queries every enabled feed source for the category
// concurrently. A failing source contributes an empty batch.
func (f *Fetcher) fetchFeeds(ctx context.Context, category news.Category) []news.Item {
	enabled := f.registry.EnabledFor(category)
	if len(enabled) == 0 {
		return nil
	}

	var mu sync.Mutex
	var items []news.Item

	g := new(errgroup.Group)
	for _, src := range enabled {
		g.Go(func() error {
			batch := f.fetchOneFeed(ctx, src, category)
			if len(batch) == 0 {
				return nil
			}
			mu.Lock()
			items = append(items, batch...)
			mu.Unlock()
			return nil
		})
	}
	g.Wait()
	return items
}

// fetchOneFeed retrieves and parses a single feed under its own
// timeout. All failures are soft: logged, recorded against the source's
// health, and returned as an empty batch.
func (f *Fetcher) fetchOneFeed(ctx context.Context, src sources.Source, category news.Category) []news.Item {
	if f.health != nil && !f.health.Allow(src.Name) {
		logging.Debug("skipping source, breaker open", "source", src.Name, "category", category)
		return nil
	}

	fctx, cancel := context.WithTimeout(ctx, f.sourceTimeout)
	defer cancel()

	raw, err := f.get(fctx, src.URL, "")
	f.recordHealth(src.Name, err)
	if err != nil {
		logging.Warn("feed fetch failed", "source", src.Name, "category", category, "error", err)
		return nil
	}

	return f.parser.Feed(raw, src.Name, category)
}

// fetchSearch runs the category's boolean query against the search API.
// A non-JSON response or any failure yields an empty batch.
func (f *Fetcher) fetchSearch(ctx context.Context, category news.Category) []news.Item {
	if f.searchEndpoint == "" {
		return nil
	}
	query := f.registry.Query(category)
	if query == "" {
		return nil
	}

	from := time.Now().AddDate(0, 0, -searchLookbackDays).UTC().Format("2006-01-02")
	params := url.Values{}
	params.Set("q", query)
	params.Set("from", from)
	params.Set("pageSize", strconv.Itoa(maxSearchRecords))
	params.Set("sortBy", "publishedAt")
	reqURL := f.searchEndpoint + "?" + params.Encode()

	fctx, cancel := context.WithTimeout(ctx, f.sourceTimeout)
	defer cancel()

	raw, err := f.get(fctx, reqURL, "application/json")
	if err != nil {
		logging.Warn("search fetch failed", "category", category, "error", err)
		return nil
	}
	if len(raw) == 0 {
		// Wrong content type; treated as an empty result, not an error.
		return nil
	}

	return f.parser.SearchResponse(raw, category)
}

// get performs a rate-limited GET. When wantType is non-empty and the
// response carries a different content type, get returns an empty body
// with no error.
func (f *Fetcher) get(ctx context.Context, rawURL, wantType string) ([]byte, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	if f.searchKey != "" && wantType != "" {
		req.Header.Set("X-Api-Key", f.searchKey)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	if wantType != "" && !strings.Contains(resp.Header.Get("Content-Type"), wantType) {
		return nil, nil
	}

	return io.ReadAll(resp.Body)
}

func (f *Fetcher) recordHealth(source string, err error) {
	if f.health != nil {
		f.health.Record(source, err)
	}
}
