// package match implements the duplicate-detection primitives for the catalog:
// string normalization, trigram similarity scoring, day-first date parsing and
// the song matcher that combines them.
package match

import (
	"regexp"
	"strings"
)

var (
	bracketRe     = regexp.MustCompile(`\s*[(\[{][^)\]}]*[)\]}]`)
	contractionRe = regexp.MustCompile(`([a-z])in'`)
	punctRe       = regexp.MustCompile(`[^\p{L}\p{N}\s]`)
	spaceRe       = regexp.MustCompile(`\s+`)
)

var digitWords = map[rune]string{
	'0': "zero", '1': "one", '2': "two", '3': "three", '4': "four",
	'5': "five", '6': "six", '7': "seven", '8': "eight", '9': "nine",
}

var articles = []string{"a ", "an ", "the "}

// Normalize canonicalizes a free-text title or artist string for equality
// comparison. Beyond the lightweight rules it expands ampersands and digits,
// collapses "...in'" contractions and strips a single leading article, so
// "The Beatles" and "Beatles" or "4 Non Blondes" and "Four Non Blondes"
// compare equal. Used for catalog backfill and paste imports.
func Normalize(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return ""
	}

	s = bracketRe.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)

	s = strings.ReplaceAll(s, "&", " and ")
	s = contractionRe.ReplaceAllString(s, "${1}ing")
	s = expandDigits(s)
	s = stripArticle(s)

	return scrub(s)
}

// NormalizeLite canonicalizes a string without digit, article or ampersand
// expansion. Scrobble feed titles carry bracketed remix annotations that the
// stripping step handles, but their digits and articles are usually already
// consistent with the catalog, so the extra rewriting causes more mismatches
// than it fixes.
func NormalizeLite(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return ""
	}

	s = bracketRe.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)

	return scrub(s)
}

// scrub removes punctuation and collapses whitespace runs.
func scrub(s string) string {
	s = punctRe.ReplaceAllString(s, "")
	s = spaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// expandDigits replaces each digit with its English word, padded with spaces
// so adjacent digits become separate words.
func expandDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if word, ok := digitWords[r]; ok {
			b.WriteString(" " + word + " ")
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// stripArticle removes a single leading indefinite or definite article.
func stripArticle(s string) string {
	trimmed := strings.TrimSpace(s)
	for _, article := range articles {
		if strings.HasPrefix(trimmed, article) {
			return trimmed[len(article):]
		}
	}
	return trimmed
}
