package dedupe

import (
	"math/bits"
	"strings"
)

// SimHash computes a 64-bit trigram fingerprint of text. Each word trigram
// sets one bit, so near-identical titles produce nearly identical bit sets
// and similarity reduces to bit-set overlap, with no pairwise string
// comparison at merge time.
func SimHash(text string) uint64 {
	text = strings.ToLower(text)
	text = strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == ' ' {
			return r
		}
		return ' '
	}, text)

	var hash uint64
	words := strings.Fields(text)

	for i := 0; i < len(words)-2; i++ {
		trigram := words[i] + " " + words[i+1] + " " + words[i+2]
		var h uint64 = 5381
		for _, c := range trigram {
			h = ((h << 5) + h) + uint64(c)
		}
		hash |= 1 << (h % 64)
	}

	return hash
}

// SimilarityScore returns the overlap of the two fingerprints' set bits
// in [0,1] (Jaccard over bits). Titles sharing no trigram score near zero
// regardless of length, which plain Hamming agreement over all 64 bits
// does not guarantee for short titles.
func SimilarityScore(hash1, hash2 uint64) float64 {
	union := bits.OnesCount64(hash1 | hash2)
	if union == 0 {
		return 0
	}
	inter := bits.OnesCount64(hash1 & hash2)
	return float64(inter) / float64(union)
}

// duplicateThreshold is the minimum fingerprint overlap treated as a
// duplicate.
const duplicateThreshold = 0.8

// AreDuplicates reports whether two title fingerprints are close enough to
// be the same story. Zero hashes (titles shorter than three words) never
// match by similarity; those fall back to id-based dedup only.
func AreDuplicates(hash1, hash2 uint64) bool {
	if hash1 == 0 || hash2 == 0 {
		return false
	}
	return SimilarityScore(hash1, hash2) >= duplicateThreshold
}
