// Package relevance decides whether a candidate article actually concerns
// the region a strict category tracks. Two independent signals are required
// jointly: a geo anchor (the place) and a policy term (the substance), so
// that travel pieces mentioning a country or policy stories without the
// region are both excluded. The blocklist runs first and wins outright.
package relevance

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"pulso/internal/news"
)

// Reason tags one step of the classification outcome.
type Reason string

const (
	ReasonNonRegional    Reason = "non-regional-category"
	ReasonLowInformation Reason = "low-information"
	ReasonBlocklist      Reason = "blocklist"
	ReasonMissingGeo     Reason = "missing-geo"
	ReasonMissingPolicy  Reason = "missing-policy"
	ReasonGeoPolicyMatch Reason = "geo-policy-match"
)

// Decision is the result of classifying one item. Matched term slices are
// kept for diagnostics; the decision itself is never persisted.
type Decision struct {
	Accepted     bool
	Reasons      []Reason
	BlockedTerms []string
	GeoTerms     []string
	PolicyTerms  []string
}

// minTitleLen is the minimum normalized title length considered
// informative enough to classify.
const minTitleLen = 12

// stripMarks removes combining diacritical marks after NFD decomposition.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Classify runs the regional relevance pipeline for title+description under
// the given category. Non-regional categories short-circuit accept.
func Classify(title, description string, category news.Category) Decision {
	if !category.Regional() {
		return Decision{Accepted: true, Reasons: []Reason{ReasonNonRegional}}
	}

	normTitle := Normalize(title)
	if len(normTitle) < minTitleLen {
		return Decision{Reasons: []Reason{ReasonLowInformation}}
	}

	text := normTitle
	if description != "" {
		text += " " + Normalize(description)
	}

	if blocked := matchTerms(text, blocklist); len(blocked) > 0 {
		return Decision{Reasons: []Reason{ReasonBlocklist}, BlockedTerms: blocked}
	}

	geo := matchTerms(text, geoAnchors[category])
	policy := matchTerms(text, policyTerms)

	if len(geo) == 0 {
		return Decision{Reasons: []Reason{ReasonMissingGeo}, PolicyTerms: policy}
	}
	if len(policy) == 0 {
		return Decision{Reasons: []Reason{ReasonMissingPolicy}, GeoTerms: geo}
	}

	return Decision{
		Accepted:    true,
		Reasons:     []Reason{ReasonGeoPolicyMatch},
		GeoTerms:    geo,
		PolicyTerms: policy,
	}
}

// Normalize lowercases, strips diacritics, folds every non-alphanumeric
// rune to a space and collapses runs of whitespace.
func Normalize(s string) string {
	s = strings.ToLower(s)
	if folded, _, err := transform.String(stripMarks, s); err == nil {
		s = folded
	}

	var b strings.Builder
	b.Grow(len(s))
	lastSpace := true
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastSpace = false
			continue
		}
		if !lastSpace {
			b.WriteByte(' ')
			lastSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}

// matchTerms returns every term from the list present in text as a whole
// word. Multi-word terms must appear as a contiguous word sequence.
func matchTerms(text string, terms []string) []string {
	var matched []string
	for _, term := range terms {
		if containsWord(text, term) {
			matched = append(matched, term)
		}
	}
	return matched
}

// containsWord checks if text contains word at word boundaries. The text is
// already normalized so only lowercase alphanumerics and single spaces occur.
func containsWord(text, word string) bool {
	idx := strings.Index(text, word)
	for idx >= 0 {
		leftOK := idx == 0 || text[idx-1] == ' '
		end := idx + len(word)
		rightOK := end == len(text) || text[end] == ' '
		if leftOK && rightOK {
			return true
		}
		next := strings.Index(text[idx+1:], word)
		if next < 0 {
			return false
		}
		idx += 1 + next
	}
	return false
}
