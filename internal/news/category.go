package news

// Category identifies one of the fixed monitored news categories.
type Category string

const (
	CategoryPolitics  Category = "politics"
	CategoryTech      Category = "tech"
	CategoryFinance   Category = "finance"
	CategoryGov       Category = "gov"
	CategoryAI        Category = "ai"
	CategoryIntel     Category = "intel"
	CategoryBrazil    Category = "brazil"
	CategoryLatam     Category = "latam"
	CategoryIran      Category = "iran"
	CategoryVenezuela Category = "venezuela"
	CategoryGreenland Category = "greenland"
	CategoryFringe    Category = "fringe"
)

// AllCategories lists every known category in a stable order.
func AllCategories() []Category {
	return []Category{
		CategoryPolitics, CategoryTech, CategoryFinance, CategoryGov,
		CategoryAI, CategoryIntel, CategoryBrazil, CategoryLatam,
		CategoryIran, CategoryVenezuela, CategoryGreenland, CategoryFringe,
	}
}

// Valid reports whether c is a member of the fixed category set.
func (c Category) Valid() bool {
	switch c {
	case CategoryPolitics, CategoryTech, CategoryFinance, CategoryGov,
		CategoryAI, CategoryIntel, CategoryBrazil, CategoryLatam,
		CategoryIran, CategoryVenezuela, CategoryGreenland, CategoryFringe:
		return true
	}
	return false
}

// RetrievalMode says how a category's items are gathered.
type RetrievalMode int

const (
	// ModeSearchOnly queries the full-text search API only. Default.
	ModeSearchOnly RetrievalMode = iota
	// ModeRSSOnly fetches every enabled syndication source for the category.
	ModeRSSOnly
	// ModeRSSAndSearch runs both paths and combines the results.
	ModeRSSAndSearch
)

func (m RetrievalMode) String() string {
	switch m {
	case ModeRSSOnly:
		return "rss"
	case ModeRSSAndSearch:
		return "rss+search"
	default:
		return "search"
	}
}

// retrievalModes is the static category -> mode table. Categories absent
// from the table use the search-only default.
var retrievalModes = map[Category]RetrievalMode{
	CategoryPolitics: ModeRSSOnly,
	CategoryGov:      ModeRSSOnly,
	CategoryTech:     ModeRSSAndSearch,
	CategoryFinance:  ModeRSSAndSearch,
	CategoryBrazil:   ModeRSSAndSearch,
}

// ModeFor returns the retrieval mode for a category.
func ModeFor(c Category) RetrievalMode {
	if m, ok := retrievalModes[c]; ok {
		return m
	}
	return ModeSearchOnly
}

// regionalCategories require strict regional relevance classification.
var regionalCategories = map[Category]bool{
	CategoryBrazil: true,
	CategoryLatam:  true,
}

// Regional reports whether items in this category must pass the
// regional relevance classifier before being kept.
func (c Category) Regional() bool {
	return regionalCategories[c]
}
