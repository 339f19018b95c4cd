// Package classify supplies the keyword, region and topic detectors the
// parsers run over every normalized article. The rule tables here are the
// default implementation; callers inject the function fields so tests and
// alternative rule sets can swap them out.
package classify

import "strings"

// AlertFunc reports whether text contains an alert keyword, returning the
// matched keyword.
type AlertFunc func(text string) (bool, string)

// RegionFunc returns the dominant region mentioned in text, or "".
type RegionFunc func(text string) string

// TopicsFunc returns topic tags for text. Order is not significant.
type TopicsFunc func(text string) []string

// Detectors bundles the three text classifiers consumed by the parsers.
type Detectors struct {
	ContainsAlertKeyword AlertFunc
	DetectRegion         RegionFunc
	DetectTopics         TopicsFunc
}

// Default returns detectors backed by the built-in rule tables.
func Default() Detectors {
	return Detectors{
		ContainsAlertKeyword: ContainsAlertKeyword,
		DetectRegion:         DetectRegion,
		DetectTopics:         DetectTopics,
	}
}

// alertKeywords trigger the alert flag on an item. Checked as whole words.
var alertKeywords = []string{
	"breaking", "urgent", "explosion", "earthquake", "coup",
	"assassination", "invasion", "airstrike", "missile", "evacuation",
	"state of emergency", "urgente", "atentado", "golpe de estado",
}

// ContainsAlertKeyword checks text against the fixed alert keyword list.
func ContainsAlertKeyword(text string) (bool, string) {
	lower := strings.ToLower(text)
	for _, kw := range alertKeywords {
		if containsWord(lower, kw) {
			return true, kw
		}
	}
	return false, ""
}

// regionNames maps place and political-entity mentions to a normalized
// region id. Variants share one id so repeated mentions collapse.
var regionNames = map[string]string{
	"brazil": "brazil", "brasil": "brazil", "brazilian": "brazil", "brasilia": "brazil",
	"sao paulo": "brazil", "rio de janeiro": "brazil", "planalto": "brazil",

	"argentina": "latam", "chile": "latam", "colombia": "latam", "peru": "latam",
	"mexico": "latam", "bolivia": "latam", "ecuador": "latam", "uruguay": "latam",
	"paraguay": "latam", "latin america": "latam", "america latina": "latam",

	"venezuela": "venezuela", "caracas": "venezuela", "maduro": "venezuela",

	"iran": "iran", "tehran": "iran", "iranian": "iran",

	"greenland": "greenland", "nuuk": "greenland", "arctic": "greenland",

	"united states": "us", "washington": "us", "white house": "us", "pentagon": "us",
	"china": "china", "beijing": "china",
	"russia": "russia", "moscow": "russia", "kremlin": "russia",
	"european union": "eu", "brussels": "eu",
}

// DetectRegion returns the region with the most distinct term matches in
// text, or "" when nothing matched.
func DetectRegion(text string) string {
	lower := strings.ToLower(text)
	counts := make(map[string]int)
	for name, region := range regionNames {
		if containsWord(lower, name) {
			counts[region]++
		}
	}

	best, bestCount := "", 0
	for region, n := range counts {
		if n > bestCount || (n == bestCount && region < best) {
			best, bestCount = region, n
		}
	}
	return best
}

// topicTerms maps topic tags to their trigger vocabularies.
var topicTerms = map[string][]string{
	"economy":  {"inflation", "gdp", "interest rate", "central bank", "economia", "inflacao", "juros"},
	"energy":   {"oil", "gas", "petroleum", "petrobras", "opec", "energia", "petroleo"},
	"defense":  {"military", "defense", "weapons", "troops", "armed forces", "militar", "forcas armadas"},
	"elections": {"election", "ballot", "candidate", "campaign", "eleicao", "eleicoes", "voto"},
	"trade":    {"tariff", "export", "import", "trade deal", "sanctions", "tarifa", "exportacao"},
	"crypto":   {"bitcoin", "cryptocurrency", "blockchain", "stablecoin"},
	"ai":       {"artificial intelligence", "machine learning", "neural network", "llm"},
}

// DetectTopics tags text with every topic whose vocabulary matches.
func DetectTopics(text string) []string {
	lower := strings.ToLower(text)
	var topics []string
	for topic, terms := range topicTerms {
		for _, term := range terms {
			if containsWord(lower, term) {
				topics = append(topics, topic)
				break
			}
		}
	}
	return topics
}

// containsWord checks if text contains word as a whole word (not substring).
// Multi-word phrases match as contiguous word sequences.
func containsWord(text, word string) bool {
	idx := strings.Index(text, word)
	if idx < 0 {
		return false
	}

	if idx > 0 && isAlphaNum(text[idx-1]) {
		return containsWord(text[idx+len(word):], word)
	}

	end := idx + len(word)
	if end < len(text) && isAlphaNum(text[end]) {
		return containsWord(text[end:], word)
	}

	return true
}

func isAlphaNum(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
