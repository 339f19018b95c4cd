// Package news defines the normalized article model shared by the
// ingestion pipeline: one Item shape regardless of which feed dialect
// or search API the article came from.
package news

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// MaxDescriptionLen bounds the normalized description length in runes.
const MaxDescriptionLen = 200

// Item is one normalized news article.
type Item struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Link         string   `json:"link"`
	PublishedRaw string   `json:"publishedRaw,omitempty"` // original date string, kept for diagnostics
	Timestamp    int64    `json:"timestamp"`              // epoch milliseconds, never zero
	Description  string   `json:"description,omitempty"`
	Source       string   `json:"source"`
	Category     Category `json:"category"`
	IsAlert      bool     `json:"isAlert,omitempty"`
	AlertKeyword string   `json:"alertKeyword,omitempty"`
	Region       string   `json:"region,omitempty"`
	Topics       []string `json:"topics,omitempty"`
}

// PublishedAt converts the epoch-millisecond timestamp back to time.Time.
func (it Item) PublishedAt() time.Time {
	return time.UnixMilli(it.Timestamp)
}

// ItemID derives the stable item id from source, link and category.
// The same underlying article always hashes to the same id, which is
// what makes merge and dedup idempotent across repeated fetches.
func ItemID(source, link string, category Category) string {
	return HashString(source + "|" + link + "|" + string(category))
}

// HashString returns a short stable hex digest of s.
func HashString(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:8])
}

// Truncate shortens s to maxLen runes, adding "..." if truncated.
// Rune-aware to avoid splitting UTF-8 sequences.
func Truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
