package match

// Weights for combining title and artist similarity into a pair score.
// Titles discriminate better than artists, so they carry more weight.
const (
	titleWeight  = 0.6
	artistWeight = 0.4
)

// Similarity computes the Jaccard index of the padded character-trigram sets
// of two normalized strings. Returns a score in [0,1]; 0 if either input is
// empty or yields no trigrams.
func Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}

	ta := trigrams(a)
	tb := trigrams(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	intersection := 0
	for t := range ta {
		if _, ok := tb[t]; ok {
			intersection++
		}
	}

	union := len(ta) + len(tb) - intersection
	return float64(intersection) / float64(union)
}

// PairScore combines title and artist similarity into a single weighted score.
func PairScore(titleA, artistA, titleB, artistB string) float64 {
	return titleWeight*Similarity(titleA, titleB) + artistWeight*Similarity(artistA, artistB)
}

// trigrams extracts the set of length-3 rune substrings of s, padded with two
// leading and two trailing spaces so word boundaries contribute trigrams.
func trigrams(s string) map[string]struct{} {
	runes := []rune("  " + s + "  ")
	set := make(map[string]struct{}, len(runes))
	for i := 0; i+3 <= len(runes); i++ {
		set[string(runes[i:i+3])] = struct{}{}
	}
	return set
}
