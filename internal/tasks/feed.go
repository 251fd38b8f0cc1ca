package tasks

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/chartlog/internal/match"
	"github.com/desertthunder/chartlog/internal/services"
	"github.com/desertthunder/chartlog/internal/shared"
)

// Bounds for feed scans.
const (
	DefaultMaxPages   = 200
	DefaultMaxResults = 100

	// A scan gives up after this many consecutive page failures and returns
	// whatever it has, plus warnings.
	maxConsecutiveFailures = 3
)

// HistoryOpts configures a full-history feed import.
type HistoryOpts struct {
	MaxPages int  // page budget, defaults to DefaultMaxPages
	Annotate bool // attach exact catalog matches to each entry
}

// HistoryEntry is one dated play, optionally annotated with the catalog song
// it matches exactly under lightweight normalization.
type HistoryEntry struct {
	services.PlayEvent
	SongID *string `json:"song_id,omitempty"`
}

// HistoryResult holds a full-history scan: dated plays in ascending timestamp
// order, plus warnings for pages that could not be fetched.
type HistoryResult struct {
	Entries      []HistoryEntry `json:"entries"`
	PagesFetched int            `json:"pages_fetched"`
	Dropped      int            `json:"dropped"` // in-progress plays without a timestamp
	Warnings     []string       `json:"warnings,omitempty"`
}

// SearchOpts configures a feed search scan.
type SearchOpts struct {
	MaxPages   int
	MaxResults int
	Threshold  float64 // fuzzy score gate; 0 disables fuzzy matching
}

// SearchHit is a feed entry that matched the query, with how it matched.
type SearchHit struct {
	services.PlayEvent
	MatchKind string  `json:"match_kind"` // substring | exact | fuzzy
	Score     float64 `json:"score,omitempty"`
}

// SearchResult holds the hits of a bounded feed scan.
type SearchResult struct {
	Hits         []SearchHit `json:"hits"`
	PagesScanned int         `json:"pages_scanned"`
	Warnings     []string    `json:"warnings,omitempty"`
}

// FeedImporter pulls listening history out of a scrobble feed and reconciles
// it against the catalog using the lightweight normalizer; scrobble metadata
// is noisy in ways the full normalizer's digit and article expansion makes
// worse.
type FeedImporter struct {
	feed    services.Feed
	catalog match.Catalog
	logger  *log.Logger
}

// NewFeedImporter creates a feed pipeline. catalog may be nil when no
// annotation is needed.
func NewFeedImporter(feed services.Feed, catalog match.Catalog, logger *log.Logger) *FeedImporter {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &FeedImporter{feed: feed, catalog: catalog, logger: logger}
}

// History paginates through the whole feed, drops entries with no timestamp,
// and returns the remainder sorted ascending by timestamp. Page failures are
// retried inside the service; after maxConsecutiveFailures the scan degrades
// to partial results with a warning per failed page.
func (f *FeedImporter) History(ctx context.Context, opts HistoryOpts) (*HistoryResult, error) {
	if f.feed == nil {
		return nil, fmt.Errorf("%w: feed not initialized", shared.ErrFeedRequest)
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = DefaultMaxPages
	}

	result := &HistoryResult{}
	var events []services.PlayEvent

	totalPages := 1
	failures := 0

	for page := 1; page <= totalPages && page <= opts.MaxPages; page++ {
		feedPage, err := f.feed.RecentTracksPage(ctx, page)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			failures++
			result.Warnings = append(result.Warnings, fmt.Sprintf("page %d: %v", page, err))
			f.logger.Warn("feed page failed", "page", page, "err", err)
			if failures >= maxConsecutiveFailures {
				f.logger.Error("aborting feed scan after consecutive failures", "failures", failures)
				break
			}
			continue
		}

		failures = 0
		totalPages = feedPage.TotalPages
		result.PagesFetched++

		for _, event := range feedPage.Events {
			if event.Timestamp == 0 {
				result.Dropped++
				continue
			}
			events = append(events, event)
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp < events[j].Timestamp
	})

	for _, event := range events {
		entry := HistoryEntry{PlayEvent: event}
		if opts.Annotate && f.catalog != nil {
			song, err := f.catalog.FindByNormalized(match.NormalizeLite(event.Title), match.NormalizeLite(event.Artist))
			if err != nil {
				return nil, fmt.Errorf("annotation lookup failed: %w", err)
			}
			if song != nil {
				id := song.ID()
				entry.SongID = &id
			}
		}
		result.Entries = append(result.Entries, entry)
	}

	return result, nil
}

// Search scans feed pages for entries matching the query by substring, exact
// normalized equality, or trigram similarity above the threshold. The scan is
// bounded by page and result budgets and degrades to partial results on
// repeated page failures.
func (f *FeedImporter) Search(ctx context.Context, query string, opts SearchOpts) (*SearchResult, error) {
	if f.feed == nil {
		return nil, fmt.Errorf("%w: feed not initialized", shared.ErrFeedRequest)
	}
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: search query", shared.ErrEmptyInput)
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = DefaultMaxPages
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = DefaultMaxResults
	}

	queryLower := strings.ToLower(query)
	queryNorm := match.NormalizeLite(query)

	result := &SearchResult{}
	totalPages := 1
	failures := 0

scan:
	for page := 1; page <= totalPages && page <= opts.MaxPages; page++ {
		feedPage, err := f.feed.RecentTracksPage(ctx, page)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			failures++
			result.Warnings = append(result.Warnings, fmt.Sprintf("page %d: %v", page, err))
			f.logger.Warn("feed page failed", "page", page, "err", err)
			if failures >= maxConsecutiveFailures {
				break
			}
			continue
		}

		failures = 0
		totalPages = feedPage.TotalPages
		result.PagesScanned++

		for _, event := range feedPage.Events {
			hit, ok := matchEvent(event, queryLower, queryNorm, opts.Threshold)
			if !ok {
				continue
			}
			result.Hits = append(result.Hits, hit)
			if len(result.Hits) >= opts.MaxResults {
				break scan
			}
		}
	}

	return result, nil
}

// matchEvent checks one feed entry against the query, cheapest comparison
// first.
func matchEvent(event services.PlayEvent, queryLower, queryNorm string, threshold float64) (SearchHit, bool) {
	hit := SearchHit{PlayEvent: event}

	if strings.Contains(strings.ToLower(event.Title), queryLower) || strings.Contains(strings.ToLower(event.Artist), queryLower) {
		hit.MatchKind = "substring"
		return hit, true
	}

	normTitle := match.NormalizeLite(event.Title)
	normArtist := match.NormalizeLite(event.Artist)

	if queryNorm != "" && (normTitle == queryNorm || normArtist == queryNorm) {
		hit.MatchKind = "exact"
		return hit, true
	}

	if threshold > 0 {
		score := match.Similarity(queryNorm, normTitle)
		if artistScore := match.Similarity(queryNorm, normArtist); artistScore > score {
			score = artistScore
		}
		if score >= threshold {
			hit.MatchKind = "fuzzy"
			hit.Score = score
			return hit, true
		}
	}

	return SearchHit{}, false
}
