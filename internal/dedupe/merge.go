// Package dedupe combines item batches into a single deduplicated,
// age-bounded, newest-first result. Duplicate detection uses both the
// stable item id and a SimHash title-similarity check, so the same story
// syndicated under different URLs still collapses to one representative.
package dedupe

import (
	"sort"
	"time"

	"pulso/internal/news"
)

// MaxAge is the item retention window relative to merge time.
const MaxAge = 7 * 24 * time.Hour

// Merge combines incoming ahead of existing, removes duplicates, drops
// items older than MaxAge relative to now, and returns the remainder
// sorted by timestamp descending (stable, so incoming wins ties).
//
// Idempotent: merging an empty batch only re-applies the age filter and
// sort, and re-merging an already-included batch changes nothing.
func Merge(existing, incoming []news.Item, now time.Time) []news.Item {
	combined := make([]news.Item, 0, len(existing)+len(incoming))
	combined = append(combined, incoming...)
	combined = append(combined, existing...)

	cutoff := now.Add(-MaxAge).UnixMilli()

	seenIDs := make(map[string]bool, len(combined))
	// seenHashes records every processed title hash, including hashes of
	// items dropped as duplicates. Comparing candidates against dropped
	// hashes keeps near-duplicate chains (A~B, B~C) down to one
	// representative even when A and C alone would not match.
	var seenHashes []uint64

	kept := combined[:0]
	for _, item := range combined {
		if seenIDs[item.ID] {
			continue
		}
		seenIDs[item.ID] = true

		hash := SimHash(item.Title)
		dup := false
		for _, seen := range seenHashes {
			if AreDuplicates(hash, seen) {
				dup = true
				break
			}
		}
		seenHashes = append(seenHashes, hash)
		if dup {
			continue
		}

		if item.Timestamp < cutoff {
			continue
		}
		kept = append(kept, item)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Timestamp > kept[j].Timestamp
	})
	return kept
}

// FilterAge returns only items within MaxAge of now, preserving order.
func FilterAge(items []news.Item, now time.Time) []news.Item {
	cutoff := now.Add(-MaxAge).UnixMilli()
	out := make([]news.Item, 0, len(items))
	for _, item := range items {
		if item.Timestamp >= cutoff {
			out = append(out, item)
		}
	}
	return out
}

// SortNewestFirst stable-sorts items by timestamp descending in place.
func SortNewestFirst(items []news.Item) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Timestamp > items[j].Timestamp
	})
}
