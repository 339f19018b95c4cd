package parse

import (
	"strings"
	"testing"
	"time"

	"pulso/internal/classify"
	"pulso/internal/news"
)

const rssSample = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Test Feed</title>
    <item>
      <title>Congress passes new budget legislation</title>
      <link>http://example.com/article1</link>
      <description>&lt;p&gt;The vote concluded &lt;b&gt;late&lt;/b&gt; on Tuesday.&lt;/p&gt;</description>
      <pubDate>Mon, 01 Jan 2024 12:00:00 GMT</pubDate>
    </item>
    <item>
      <title>Missing link item</title>
      <description>Dropped silently</description>
    </item>
    <item>
      <title>Unparseable date story about trade policy</title>
      <link>http://example.com/article2</link>
      <pubDate>not a date</pubDate>
    </item>
  </channel>
</rss>`

const atomSample = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Atom Feed</title>
  <entry>
    <title>Ministry publishes updated regulation guidance</title>
    <link href="http://example.com/atom1"/>
    <summary>Guidance for the new reporting rules.</summary>
    <updated>2024-01-02T08:30:00Z</updated>
  </entry>
</feed>`

func newTestParser() *Parser {
	return New(classify.Default())
}

func TestFeedParsesRSS(t *testing.T) {
	p := newTestParser()
	items := p.Feed([]byte(rssSample), "Test Feed", news.CategoryPolitics)

	if len(items) != 2 {
		t.Fatalf("expected 2 items (link-less item dropped), got %d", len(items))
	}

	first := items[0]
	if first.Title != "Congress passes new budget legislation" {
		t.Errorf("unexpected title: %s", first.Title)
	}
	if first.Link != "http://example.com/article1" {
		t.Errorf("unexpected link: %s", first.Link)
	}
	if strings.Contains(first.Description, "<") {
		t.Errorf("description retains markup: %q", first.Description)
	}
	if first.PublishedRaw != "Mon, 01 Jan 2024 12:00:00 GMT" {
		t.Errorf("publishedRaw not preserved: %q", first.PublishedRaw)
	}
	want := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC).UnixMilli()
	if first.Timestamp != want {
		t.Errorf("timestamp = %d, want %d", first.Timestamp, want)
	}
	if first.Source != "Test Feed" || first.Category != news.CategoryPolitics {
		t.Errorf("source/category not set: %+v", first)
	}
}

func TestFeedParsesAtom(t *testing.T) {
	p := newTestParser()
	items := p.Feed([]byte(atomSample), "Atom Source", news.CategoryGov)

	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	it := items[0]
	if it.Link != "http://example.com/atom1" {
		t.Errorf("href-attribute link not resolved: %s", it.Link)
	}
	if it.Description != "Guidance for the new reporting rules." {
		t.Errorf("summary fallback not applied: %q", it.Description)
	}
	want := time.Date(2024, 1, 2, 8, 30, 0, 0, time.UTC).UnixMilli()
	if it.Timestamp != want {
		t.Errorf("updated date not used: %d", it.Timestamp)
	}
}

func TestFeedUnparseableDateFallsBackToNow(t *testing.T) {
	p := newTestParser()
	before := time.Now().UnixMilli()
	items := p.Feed([]byte(rssSample), "Test Feed", news.CategoryPolitics)
	after := time.Now().UnixMilli()

	var story news.Item
	for _, it := range items {
		if it.Link == "http://example.com/article2" {
			story = it
		}
	}
	if story.ID == "" {
		t.Fatal("story with bad date missing")
	}
	if story.Timestamp < before || story.Timestamp > after {
		t.Errorf("timestamp %d not within ingestion window [%d,%d]", story.Timestamp, before, after)
	}
}

func TestFeedMalformedXMLReturnsEmpty(t *testing.T) {
	p := newTestParser()
	items := p.Feed([]byte("definitely not xml"), "Bad Feed", news.CategoryTech)
	if len(items) != 0 {
		t.Errorf("expected empty batch for malformed XML, got %d", len(items))
	}
}

func TestFeedDeterministicID(t *testing.T) {
	p := newTestParser()
	a := p.Feed([]byte(rssSample), "Test Feed", news.CategoryPolitics)
	b := p.Feed([]byte(rssSample), "Test Feed", news.CategoryPolitics)

	if a[0].ID != b[0].ID {
		t.Error("same raw article must produce the same id")
	}
}

func TestFeedRegionalFiltering(t *testing.T) {
	rss := `<?xml version="1.0"?>
<rss version="2.0"><channel><title>BR</title>
  <item>
    <title>Brazil congress approves fiscal reform package</title>
    <link>http://example.com/keep</link>
  </item>
  <item>
    <title>Brazil wins football match in Sao Paulo</title>
    <link>http://example.com/drop</link>
  </item>
</channel></rss>`

	p := newTestParser()
	items := p.Feed([]byte(rss), "G1", news.CategoryBrazil)

	if len(items) != 1 {
		t.Fatalf("expected 1 surviving item, got %d", len(items))
	}
	if items[0].Link != "http://example.com/keep" {
		t.Errorf("wrong item survived: %s", items[0].Link)
	}
}

func TestFeedDetectorsApplied(t *testing.T) {
	rss := `<?xml version="1.0"?>
<rss version="2.0"><channel><title>T</title>
  <item>
    <title>Breaking: central bank intervention in Brazil</title>
    <link>http://example.com/alert</link>
  </item>
</channel></rss>`

	p := newTestParser()
	items := p.Feed([]byte(rss), "Wire", news.CategoryFinance)

	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	it := items[0]
	if !it.IsAlert || it.AlertKeyword != "breaking" {
		t.Errorf("alert detector not applied: %+v", it)
	}
	if it.Region != "brazil" {
		t.Errorf("region detector not applied: %q", it.Region)
	}
	hasEconomy := false
	for _, tp := range it.Topics {
		if tp == "economy" {
			hasEconomy = true
		}
	}
	if !hasEconomy {
		t.Errorf("topic detector not applied: %v", it.Topics)
	}
}

const searchSample = `{
  "status": "ok",
  "articles": [
    {
      "source": {"name": "Example Wire"},
      "title": "Tehran signals openness to nuclear talks",
      "description": "Officials said discussions could resume.",
      "url": "http://example.com/iran1",
      "publishedAt": "2024-01-03T10:00:00Z"
    },
    {
      "source": {"name": "Example Wire"},
      "title": "Second take on the same development",
      "description": "",
      "url": "http://example.com/iran1",
      "publishedAt": "bad-date"
    },
    {
      "source": {"name": ""},
      "title": "",
      "url": "http://example.com/skipped"
    }
  ]
}`

func TestSearchResponseParses(t *testing.T) {
	p := newTestParser()
	items := p.SearchResponse([]byte(searchSample), news.CategoryIran)

	if len(items) != 2 {
		t.Fatalf("expected 2 items (titleless dropped), got %d", len(items))
	}

	if items[0].Timestamp != time.Date(2024, 1, 3, 10, 0, 0, 0, time.UTC).UnixMilli() {
		t.Errorf("publishedAt not parsed: %d", items[0].Timestamp)
	}
	// Duplicate URLs still get distinct positional ids.
	if items[0].ID == items[1].ID {
		t.Error("duplicate URLs must yield distinct ids via positional index")
	}
}

func TestSearchResponseDeterministicIDs(t *testing.T) {
	p := newTestParser()
	a := p.SearchResponse([]byte(searchSample), news.CategoryIran)
	b := p.SearchResponse([]byte(searchSample), news.CategoryIran)
	if a[0].ID != b[0].ID {
		t.Error("same response must parse to the same ids")
	}
}

func TestSearchResponseMalformedJSON(t *testing.T) {
	p := newTestParser()
	if items := p.SearchResponse([]byte("{broken"), news.CategoryIran); len(items) != 0 {
		t.Errorf("expected empty batch, got %d", len(items))
	}
}

func TestCleanDescription(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"<p>Hello <b>world</b></p>", "Hello world"},
		{"plain text stays", "plain text stays"},
		{"<script>evil()</script>visible", "visible"},
		{"  spaced\n\nout  ", "spaced out"},
		{"", ""},
	}

	for _, tc := range tests {
		if got := CleanDescription(tc.in); got != tc.want {
			t.Errorf("CleanDescription(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
