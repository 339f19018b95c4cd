package parse

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// whitespaceRe matches runs of whitespace.
var whitespaceRe = regexp.MustCompile(`\s+`)

// CleanDescription strips HTML markup from a feed description and
// collapses whitespace. Feed descriptions routinely embed markup,
// tracking pixels and script tags; goquery's text extraction handles
// nesting that a tag regex would not.
func CleanDescription(s string) string {
	if s == "" {
		return ""
	}

	if strings.ContainsAny(s, "<&") {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
		if err == nil {
			doc.Find("script, style").Remove()
			s = doc.Text()
		}
	}

	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
