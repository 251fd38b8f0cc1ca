// package services defines clients for external listening history feeds
//
// Last.fm is the only provider today; the Feed interface keeps the task
// pipelines decoupled from its wire format.
package services

import (
	"context"
)

// PlayEvent represents a single play from a scrobble feed.
// Timestamp is 0 for in-progress plays, which carry no date on the wire.
type PlayEvent struct {
	Title     string `json:"title"`
	Artist    string `json:"artist"`
	Timestamp int64  `json:"timestamp"`
	Date      string `json:"date"` // ISO YYYY-MM-DD derived from Timestamp
}

// FeedPage is one page of a paginated scrobble feed.
type FeedPage struct {
	Events     []PlayEvent
	Page       int
	TotalPages int
	Total      int
}

// Feed defines the interface for paginated scrobble history providers.
type Feed interface {
	// RecentTracksPage fetches one page of the user's play history.
	// Pages are 1-based.
	RecentTracksPage(ctx context.Context, page int) (*FeedPage, error)

	// Name returns the name of the feed provider (e.g. "Last.fm")
	Name() string
}
