package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"pulso/internal/classify"
	"pulso/internal/health"
	"pulso/internal/news"
	"pulso/internal/parse"
	"pulso/internal/sources"
)

func rssBody(titles ...string) string {
	now := time.Now().UTC().Format(time.RFC1123Z)
	body := `<?xml version="1.0"?><rss version="2.0"><channel><title>Feed</title>`
	for i, title := range titles {
		body += fmt.Sprintf(
			`<item><title>%s</title><link>http://example.com/%d</link><pubDate>%s</pubDate></item>`,
			title, i, now,
		)
	}
	return body + `</channel></rss>`
}

// registryFor builds a registry from a temp YAML file so tests exercise
// the same load path production uses.
func registryFor(t *testing.T, yamlBody string) *sources.Registry {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sources.yaml")
	if err := os.WriteFile(path, []byte(yamlBody), 0o644); err != nil {
		t.Fatal(err)
	}
	r, err := sources.LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry failed: %v", err)
	}
	return r
}

func newTestFetcher(r *sources.Registry, tracker health.Tracker, opts Options) *Fetcher {
	if opts.Limiter == nil {
		opts.Limiter = rate.NewLimiter(rate.Inf, 1)
	}
	return New(r, parse.New(classify.Default()), tracker, opts)
}

func TestFetchCategoryRSSPartialFailure(t *testing.T) {
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(rssBody("Senate passes budget resolution", "Cabinet reshuffle announced")))
	}))
	defer good.Close()
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer bad.Close()

	reg := registryFor(t, fmt.Sprintf(`
sources:
  - name: Good
    url: %s
    category: politics
    enabled: true
  - name: Bad
    url: %s
    category: politics
    enabled: true
`, good.URL, bad.URL))

	tracker := health.NewMemoryTracker()
	f := newTestFetcher(reg, tracker, Options{})

	items, err := f.FetchCategory(context.Background(), news.CategoryPolitics)
	if err != nil {
		t.Fatalf("FetchCategory failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items from good source, got %d", len(items))
	}
	for _, item := range items {
		if item.Source != "Good" {
			t.Errorf("unexpected source %q", item.Source)
		}
	}

	h := tracker.AllFeedHealth()
	if h["Bad"].ConsecErrors != 1 {
		t.Errorf("bad source error not recorded: %+v", h["Bad"])
	}
	if h["Good"].ConsecErrors != 0 || h["Good"].LastSuccess.IsZero() {
		t.Errorf("good source success not recorded: %+v", h["Good"])
	}
}

func TestFetchCategorySkipsOpenBreaker(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(rssBody("Some headline")))
	}))
	defer srv.Close()

	reg := registryFor(t, fmt.Sprintf(`
sources:
  - name: Flaky
    url: %s
    category: politics
    enabled: true
`, srv.URL))

	tracker := health.NewMemoryTracker()
	for i := 0; i < 5; i++ {
		tracker.Record("Flaky", fmt.Errorf("connection refused"))
	}

	f := newTestFetcher(reg, tracker, Options{})
	items, err := f.FetchCategory(context.Background(), news.CategoryPolitics)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 0 {
		t.Errorf("expected no items while breaker open, got %d", len(items))
	}
	if hits.Load() != 0 {
		t.Errorf("open breaker must prevent the request, got %d hits", hits.Load())
	}
}

func TestFetchCategorySearchOnly(t *testing.T) {
	published := time.Now().UTC().Format(time.RFC3339)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got == "" {
			t.Error("search query parameter missing")
		}
		if got := r.URL.Query().Get("from"); got == "" {
			t.Error("lookback window parameter missing")
		}
		if got := r.Header.Get("X-Api-Key"); got != "test-key" {
			t.Errorf("api key header = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"ok","articles":[
			{"source":{"name":"Reuters"},"title":"Tehran responds to new sanctions","url":"http://example.com/1","publishedAt":%q}
		]}`, published)
	}))
	defer srv.Close()

	reg := registryFor(t, "sources: []\n")
	f := newTestFetcher(reg, nil, Options{SearchEndpoint: srv.URL, SearchAPIKey: "test-key"})

	items, err := f.FetchCategory(context.Background(), news.CategoryIran)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].Source != "Reuters" {
		t.Fatalf("unexpected items: %v", items)
	}
	if items[0].Category != news.CategoryIran {
		t.Errorf("category = %s", items[0].Category)
	}
}

func TestFetchCategorySearchWrongContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html>rate limited</html>"))
	}))
	defer srv.Close()

	reg := registryFor(t, "sources: []\n")
	f := newTestFetcher(reg, nil, Options{SearchEndpoint: srv.URL})

	items, err := f.FetchCategory(context.Background(), news.CategoryIran)
	if err != nil {
		t.Fatalf("non-JSON response must not be an error: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("non-JSON response must yield empty result, got %d", len(items))
	}
}

func TestFetchCategorySearchOnlyWithoutEndpoint(t *testing.T) {
	reg := registryFor(t, "sources: []\n")
	f := newTestFetcher(reg, nil, Options{})

	if _, err := f.FetchCategory(context.Background(), news.CategoryIran); err == nil {
		t.Error("search-only category without endpoint must error")
	}
}

func TestFetchCategoryCombinesFeedsAndSearch(t *testing.T) {
	feedSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(rssBody("Chip export rules tighten")))
	}))
	defer feedSrv.Close()
	searchSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"ok","articles":[
			{"source":{"name":"Wired"},"title":"Datacenter buildout accelerates","url":"http://example.com/dc","publishedAt":%q}
		]}`, time.Now().UTC().Format(time.RFC3339))
	}))
	defer searchSrv.Close()

	reg := registryFor(t, fmt.Sprintf(`
sources:
  - name: TechFeed
    url: %s
    category: tech
    enabled: true
`, feedSrv.URL))

	f := newTestFetcher(reg, nil, Options{SearchEndpoint: searchSrv.URL})
	items, err := f.FetchCategory(context.Background(), news.CategoryTech)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 {
		t.Fatalf("expected feed + search items, got %d", len(items))
	}

	seen := map[string]bool{}
	for _, item := range items {
		seen[item.Source] = true
	}
	if !seen["TechFeed"] || !seen["Wired"] {
		t.Errorf("sources = %v", seen)
	}
}

func TestFetchCategoryAgeFilterAndSort(t *testing.T) {
	recent := time.Now().UTC()
	old := recent.AddDate(0, 0, -10)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := fmt.Sprintf(`<?xml version="1.0"?><rss version="2.0"><channel><title>Feed</title>
			<item><title>Older but recent story</title><link>http://example.com/a</link><pubDate>%s</pubDate></item>
			<item><title>Newest story today</title><link>http://example.com/b</link><pubDate>%s</pubDate></item>
			<item><title>Expired story from last week</title><link>http://example.com/c</link><pubDate>%s</pubDate></item>
			</channel></rss>`,
			recent.Add(-time.Hour).Format(time.RFC1123Z),
			recent.Format(time.RFC1123Z),
			old.Format(time.RFC1123Z),
		)
		w.Write([]byte(body))
	}))
	defer srv.Close()

	reg := registryFor(t, fmt.Sprintf(`
sources:
  - name: Feed
    url: %s
    category: politics
    enabled: true
`, srv.URL))

	f := newTestFetcher(reg, nil, Options{})
	items, err := f.FetchCategory(context.Background(), news.CategoryPolitics)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 {
		t.Fatalf("age filter failed, got %d items", len(items))
	}
	if items[0].Title != "Newest story today" {
		t.Errorf("not sorted newest first: %q", items[0].Title)
	}
}
