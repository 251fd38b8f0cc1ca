// Last.fm implementation of [Feed]
//
// Wire types based on https://www.last.fm/api/show/user.getRecentTracks
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/desertthunder/chartlog/internal/shared"
	"golang.org/x/time/rate"
)

const (
	lastfmBaseURL = "https://ws.audioscrobbler.com/2.0/"

	// Page size requested from the API; 200 is the documented maximum.
	lastfmPageLimit = 200

	// Retry budget for a single page request.
	lastfmMaxAttempts = 4

	lastfmBackoffBase = 500 * time.Millisecond
)

type lfmText struct {
	Text string `json:"#text"`
}

type lfmDate struct {
	UTS  string `json:"uts"`
	Text string `json:"#text"`
}

type lfmTrack struct {
	Name   string   `json:"name"`
	Artist lfmText  `json:"artist"`
	Date   *lfmDate `json:"date"`
	Attr   *struct {
		NowPlaying string `json:"nowplaying"`
	} `json:"@attr"`
}

type lfmPageAttr struct {
	Page       string `json:"page"`
	TotalPages string `json:"totalPages"`
	Total      string `json:"total"`
}

type lfmRecentTracks struct {
	RecentTracks *struct {
		Track []lfmTrack  `json:"track"`
		Attr  lfmPageAttr `json:"@attr"`
	} `json:"recenttracks"`
	Error   int    `json:"error"`
	Message string `json:"message"`
}

// LastFMService implements the Feed interface against the Last.fm REST API.
//
// Requests are spaced by a rate limiter, and transient failures (HTTP 429
// honoring Retry-After, 5xx, network errors) are retried with exponential
// backoff plus jitter before the page is given up on.
type LastFMService struct {
	apiKey     string
	user       string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewLastFMService creates a Last.fm feed client for the given user.
func NewLastFMService(cfg shared.LastFMConfig, client *http.Client) (*LastFMService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: lastfm api_key", shared.ErrMissingAPIKey)
	}
	if cfg.User == "" {
		return nil, fmt.Errorf("%w: lastfm user", shared.ErrMissingArgument)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = lastfmBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &LastFMService{
		apiKey:     cfg.APIKey,
		user:       cfg.User,
		baseURL:    cfg.BaseURL,
		httpClient: client,
		limiter:    rate.NewLimiter(rate.Every(250*time.Millisecond), 1),
	}, nil
}

func (s *LastFMService) Name() string {
	return "Last.fm"
}

// RecentTracksPage fetches one page of the user's play history.
func (s *LastFMService) RecentTracksPage(ctx context.Context, page int) (*FeedPage, error) {
	if page < 1 {
		page = 1
	}

	params := url.Values{}
	params.Set("method", "user.getrecenttracks")
	params.Set("user", s.user)
	params.Set("api_key", s.apiKey)
	params.Set("format", "json")
	params.Set("limit", strconv.Itoa(lastfmPageLimit))
	params.Set("page", strconv.Itoa(page))

	requestURL := s.baseURL + "?" + params.Encode()

	var lastErr error
	for attempt := 0; attempt < lastfmMaxAttempts; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, backoffDelay(attempt, lastErr)); err != nil {
				return nil, err
			}
		}

		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		feedPage, retryable, err := s.fetchPage(ctx, requestURL, page)
		if err == nil {
			return feedPage, nil
		}
		if !retryable {
			return nil, err
		}
		lastErr = err
	}

	return nil, fmt.Errorf("%w: page %d: %v", shared.ErrFeedExhausted, page, lastErr)
}

// fetchPage performs a single request attempt. The second return value reports
// whether the failure is transient and worth retrying.
func (s *LastFMService) fetchPage(ctx context.Context, requestURL string, page int) (*FeedPage, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("%w: %v", shared.ErrFeedRequest, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, true, retryAfterError(resp)
	case resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("%w: status %d", shared.ErrFeedRequest, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, false, fmt.Errorf("%w: status %d", shared.ErrFeedRequest, resp.StatusCode)
	}

	var payload lfmRecentTracks
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, false, fmt.Errorf("failed to decode response: %w", err)
	}

	if payload.RecentTracks == nil {
		if payload.Message != "" {
			return nil, false, fmt.Errorf("%w: %s", shared.ErrFeedRequest, payload.Message)
		}
		return nil, false, fmt.Errorf("%w: empty response", shared.ErrFeedRequest)
	}

	feedPage := &FeedPage{
		Page:       page,
		TotalPages: atoiDefault(payload.RecentTracks.Attr.TotalPages, 1),
		Total:      atoiDefault(payload.RecentTracks.Attr.Total, 0),
	}

	for _, track := range payload.RecentTracks.Track {
		event := PlayEvent{
			Title:  track.Name,
			Artist: track.Artist.Text,
		}
		if track.Date != nil {
			if uts, err := strconv.ParseInt(track.Date.UTS, 10, 64); err == nil {
				event.Timestamp = uts
				event.Date = time.Unix(uts, 0).UTC().Format("2006-01-02")
			}
		}
		feedPage.Events = append(feedPage.Events, event)
	}

	return feedPage, false, nil
}

// retryAfterDelay holds a server-provided delay hint alongside the error.
type retryAfterErr struct {
	delay time.Duration
}

func (e *retryAfterErr) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.delay)
}

func (e *retryAfterErr) Unwrap() error { return shared.ErrFeedRateLimited }

func retryAfterError(resp *http.Response) error {
	delay := time.Duration(0)
	if header := resp.Header.Get("Retry-After"); header != "" {
		if seconds, err := strconv.Atoi(header); err == nil && seconds > 0 {
			delay = time.Duration(seconds) * time.Second
		}
	}
	return &retryAfterErr{delay: delay}
}

// backoffDelay computes the wait before the given retry attempt: the server's
// Retry-After hint when present, otherwise exponential backoff with jitter.
func backoffDelay(attempt int, lastErr error) time.Duration {
	if ra, ok := lastErr.(*retryAfterErr); ok && ra.delay > 0 {
		return ra.delay
	}

	delay := lastfmBackoffBase << (attempt - 1)
	jitter := time.Duration(rand.Int63n(int64(delay) / 2))
	return delay + jitter
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func atoiDefault(s string, def int) int {
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}
