package match

import (
	"fmt"
	"strings"

	"github.com/desertthunder/chartlog/internal/models"
)

// DefaultCandidateLimit bounds the candidate set fetched for fuzzy ranking.
const DefaultCandidateLimit = 50

// Catalog is the slice of the song store the matcher needs. Implemented by
// repositories.SongRepository.
type Catalog interface {
	// FindByNormalized returns the song whose normalized title and artist both
	// equal the given strings, or nil if none exists.
	FindByNormalized(normTitle, normArtist string) (*models.Song, error)

	// SearchCandidates returns up to limit songs whose normalized title or
	// artist contains the token as a case-insensitive substring.
	SearchCandidates(token string, limit int) ([]*models.Song, error)
}

// FuzzyMatch is a ranked fuzzy candidate. The matcher applies no acceptance
// threshold; callers decide whether the score is good enough to surface.
type FuzzyMatch struct {
	Song  *models.Song
	Score float64
}

// SongMatcher finds catalog entries for incoming (title, artist) candidates,
// first by normalized equality and then by weighted trigram ranking.
type SongMatcher struct {
	catalog Catalog
	limit   int
}

// NewSongMatcher creates a matcher over the given catalog. A non-positive
// limit falls back to DefaultCandidateLimit.
func NewSongMatcher(catalog Catalog, limit int) *SongMatcher {
	if limit <= 0 {
		limit = DefaultCandidateLimit
	}
	return &SongMatcher{catalog: catalog, limit: limit}
}

// Exact looks up a catalog row by full-normalized equality of title and
// artist. Returns nil without error when no row matches.
func (m *SongMatcher) Exact(title, artist string) (*models.Song, error) {
	normTitle := Normalize(title)
	normArtist := Normalize(artist)
	if normTitle == "" && normArtist == "" {
		return nil, nil
	}

	song, err := m.catalog.FindByNormalized(normTitle, normArtist)
	if err != nil {
		return nil, fmt.Errorf("exact lookup failed: %w", err)
	}
	return song, nil
}

// Fuzzy fetches a bounded candidate set keyed on the first normalized word of
// the title (falling back to the artist) and returns the single best-scoring
// candidate with its weighted trigram score, or nil if no candidates exist.
func (m *SongMatcher) Fuzzy(title, artist string) (*FuzzyMatch, error) {
	normTitle := Normalize(title)
	normArtist := Normalize(artist)

	token := firstWord(normTitle)
	if token == "" {
		token = firstWord(normArtist)
	}
	if token == "" {
		return nil, nil
	}

	candidates, err := m.catalog.SearchCandidates(token, m.limit)
	if err != nil {
		return nil, fmt.Errorf("candidate search failed: %w", err)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	var best *FuzzyMatch
	for _, candidate := range candidates {
		score := PairScore(normTitle, normArtist, candidate.NormTitle(), candidate.NormArtist())
		if best == nil || score > best.Score {
			best = &FuzzyMatch{Song: candidate, Score: score}
		}
	}

	return best, nil
}

func firstWord(s string) string {
	word, _, _ := strings.Cut(s, " ")
	return word
}
