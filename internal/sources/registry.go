// Package sources holds the registry of syndication feed sources per
// category and the search query templates for search-mode categories.
// Enabling or disabling a source changes the category's signature, which
// callers use as part of their cache keys.
package sources

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"pulso/internal/news"
)

// Source is one configured syndication feed.
type Source struct {
	Name     string        `yaml:"name"`
	URL      string        `yaml:"url"`
	Category news.Category `yaml:"category"`
	Enabled  bool          `yaml:"enabled"`
}

// Registry is the config-driven source list. Safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	sources []Source
	queries map[news.Category]string
}

// registryFile is the on-disk YAML shape.
type registryFile struct {
	Sources []Source                 `yaml:"sources"`
	Queries map[news.Category]string `yaml:"queries"`
}

// NewRegistry returns a registry seeded with the built-in defaults.
func NewRegistry() *Registry {
	return &Registry{
		sources: DefaultSources(),
		queries: defaultQueries(),
	}
}

// LoadRegistry reads a YAML registry file. Queries absent from the file
// fall back to the built-in defaults.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry: %w", err)
	}

	var rf registryFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parse registry: %w", err)
	}

	queries := defaultQueries()
	for cat, q := range rf.Queries {
		queries[cat] = q
	}

	return &Registry{sources: rf.Sources, queries: queries}, nil
}

// EnabledFor returns the enabled sources for a category.
func (r *Registry) EnabledFor(category news.Category) []Source {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Source
	for _, s := range r.sources {
		if s.Category == category && s.Enabled {
			out = append(out, s)
		}
	}
	return out
}

// SetEnabled toggles a source by name. Returns false if unknown.
func (r *Registry) SetEnabled(name string, enabled bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.sources {
		if r.sources[i].Name == name {
			r.sources[i].Enabled = enabled
			return true
		}
	}
	return false
}

// Query returns the boolean search query template for a category.
// Categories with no configured query fall back to the category name.
func (r *Registry) Query(category news.Category) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if q, ok := r.queries[category]; ok {
		return q
	}
	return string(category)
}

// Signature fingerprints the enabled source set for a category. Any change
// to which sources are enabled yields a different signature, so cache
// entries keyed on it go stale automatically.
func (r *Registry) Signature(category news.Category) string {
	enabled := r.EnabledFor(category)

	pairs := make([]string, 0, len(enabled))
	for _, s := range enabled {
		pairs = append(pairs, s.Name+"|"+s.URL)
	}
	sort.Strings(pairs)

	h := sha256.Sum256([]byte(strings.Join(pairs, "\n")))
	return hex.EncodeToString(h[:8])
}

// DefaultSources returns the built-in feed list.
func DefaultSources() []Source {
	return []Source{
		// Wire and politics
		{Name: "AP Politics", URL: "https://feedx.net/rss/ap.xml", Category: news.CategoryPolitics, Enabled: true},
		{Name: "BBC World", URL: "https://feeds.bbci.co.uk/news/world/rss.xml", Category: news.CategoryPolitics, Enabled: true},
		{Name: "Politico", URL: "https://www.politico.com/rss/politicopicks.xml", Category: news.CategoryPolitics, Enabled: true},

		// Government
		{Name: "White House", URL: "https://www.whitehouse.gov/feed/", Category: news.CategoryGov, Enabled: true},
		{Name: "GovExec", URL: "https://www.govexec.com/rss/all/", Category: news.CategoryGov, Enabled: true},

		// Tech
		{Name: "Hacker News", URL: "https://news.ycombinator.com/rss", Category: news.CategoryTech, Enabled: true},
		{Name: "Ars Technica", URL: "https://feeds.arstechnica.com/arstechnica/index", Category: news.CategoryTech, Enabled: true},
		{Name: "The Verge", URL: "https://www.theverge.com/rss/index.xml", Category: news.CategoryTech, Enabled: false},

		// Finance
		{Name: "Bloomberg Markets", URL: "https://feeds.bloomberg.com/markets/news.rss", Category: news.CategoryFinance, Enabled: true},
		{Name: "FT World", URL: "https://www.ft.com/world?format=rss", Category: news.CategoryFinance, Enabled: true},

		// Brazil (Portuguese-language feeds)
		{Name: "G1 Politica", URL: "https://g1.globo.com/rss/g1/politica/", Category: news.CategoryBrazil, Enabled: true},
		{Name: "Folha Poder", URL: "https://feeds.folha.uol.com.br/poder/rss091.xml", Category: news.CategoryBrazil, Enabled: true},
		{Name: "Agencia Brasil", URL: "https://agenciabrasil.ebc.com.br/rss/ultimasnoticias/feed.xml", Category: news.CategoryBrazil, Enabled: true},
	}
}

// defaultQueries returns the boolean search query per category for
// search-mode retrieval. Categories not listed fall back to their name.
func defaultQueries() map[news.Category]string {
	return map[news.Category]string{
		news.CategoryTech:      `("artificial intelligence" OR semiconductor OR cybersecurity) AND technology`,
		news.CategoryFinance:   `("central bank" OR inflation OR markets) AND (policy OR rates)`,
		news.CategoryAI:        `("artificial intelligence" OR "machine learning" OR LLM) AND (regulation OR research OR funding)`,
		news.CategoryIntel:     `(intelligence OR espionage OR surveillance) AND (agency OR operation)`,
		news.CategoryBrazil:    `(Brazil OR Brasil OR Brasilia) AND (government OR economy OR policy OR congress)`,
		news.CategoryLatam:     `("Latin America" OR Argentina OR Chile OR Colombia OR Mexico OR Peru) AND (government OR economy OR policy)`,
		news.CategoryIran:      `(Iran OR Tehran) AND (sanctions OR nuclear OR government OR military)`,
		news.CategoryVenezuela: `(Venezuela OR Caracas OR Maduro) AND (government OR economy OR opposition)`,
		news.CategoryGreenland: `(Greenland OR Nuuk OR Arctic) AND (policy OR sovereignty OR minerals OR military)`,
		news.CategoryFringe:    `(conspiracy OR disinformation OR "information operation") AND (campaign OR network)`,
	}
}
