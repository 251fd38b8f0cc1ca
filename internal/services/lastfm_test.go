package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/desertthunder/chartlog/internal/shared"
)

const recentTracksBody = `{
	"recenttracks": {
		"track": [
			{"name": "Now Spinning", "artist": {"#text": "Oasis"}, "@attr": {"nowplaying": "true"}},
			{"name": "Wonderwall", "artist": {"#text": "Oasis"}, "date": {"uts": "1135468800", "#text": "25 Dec 2005"}}
		],
		"@attr": {"page": "1", "totalPages": "3", "total": "420"}
	}
}`

func testConfig(baseURL string) shared.LastFMConfig {
	return shared.LastFMConfig{APIKey: "key", User: "listener", BaseURL: baseURL}
}

func TestNewLastFMService(t *testing.T) {
	t.Run("requires an API key", func(t *testing.T) {
		_, err := NewLastFMService(shared.LastFMConfig{User: "listener"}, nil)
		if !errors.Is(err, shared.ErrMissingAPIKey) {
			t.Errorf("expected ErrMissingAPIKey, got %v", err)
		}
	})

	t.Run("requires a user", func(t *testing.T) {
		_, err := NewLastFMService(shared.LastFMConfig{APIKey: "key"}, nil)
		if err == nil {
			t.Error("expected error for missing user")
		}
	})

	t.Run("defaults base URL and client", func(t *testing.T) {
		svc, err := NewLastFMService(shared.LastFMConfig{APIKey: "key", User: "listener"}, nil)
		if err != nil {
			t.Fatalf("NewLastFMService() error: %v", err)
		}
		if svc.baseURL != lastfmBaseURL {
			t.Errorf("expected default base URL, got %s", svc.baseURL)
		}
		if svc.httpClient == nil {
			t.Error("expected default HTTP client")
		}
	})
}

func TestRecentTracksPage(t *testing.T) {
	t.Run("parses a page of plays", func(t *testing.T) {
		var gotQuery string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotQuery = r.URL.RawQuery
			fmt.Fprint(w, recentTracksBody)
		}))
		defer server.Close()

		svc, err := NewLastFMService(testConfig(server.URL), server.Client())
		if err != nil {
			t.Fatalf("NewLastFMService() error: %v", err)
		}

		page, err := svc.RecentTracksPage(context.Background(), 1)
		if err != nil {
			t.Fatalf("RecentTracksPage() error: %v", err)
		}

		if page.TotalPages != 3 || page.Total != 420 {
			t.Errorf("unexpected page attrs: pages=%d total=%d", page.TotalPages, page.Total)
		}
		if len(page.Events) != 2 {
			t.Fatalf("expected 2 events, got %d", len(page.Events))
		}

		nowPlaying := page.Events[0]
		if nowPlaying.Timestamp != 0 {
			t.Errorf("in-progress play should have no timestamp, got %d", nowPlaying.Timestamp)
		}

		dated := page.Events[1]
		if dated.Title != "Wonderwall" || dated.Artist != "Oasis" {
			t.Errorf("unexpected event: %s - %s", dated.Artist, dated.Title)
		}
		if dated.Timestamp != 1135468800 || dated.Date != "2005-12-25" {
			t.Errorf("unexpected timestamp/date: %d %s", dated.Timestamp, dated.Date)
		}

		for _, param := range []string{"method=user.getrecenttracks", "user=listener", "page=1"} {
			if !contains(gotQuery, param) {
				t.Errorf("query %q missing %q", gotQuery, param)
			}
		}
	})

	t.Run("retries transient server errors", func(t *testing.T) {
		attempts := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attempts++
			if attempts == 1 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			fmt.Fprint(w, recentTracksBody)
		}))
		defer server.Close()

		svc, err := NewLastFMService(testConfig(server.URL), server.Client())
		if err != nil {
			t.Fatalf("NewLastFMService() error: %v", err)
		}

		page, err := svc.RecentTracksPage(context.Background(), 1)
		if err != nil {
			t.Fatalf("RecentTracksPage() error after retry: %v", err)
		}
		if attempts != 2 {
			t.Errorf("expected 2 attempts, got %d", attempts)
		}
		if len(page.Events) != 2 {
			t.Errorf("expected parsed page after retry, got %d events", len(page.Events))
		}
	})

	t.Run("client errors are fatal", func(t *testing.T) {
		attempts := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attempts++
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		svc, err := NewLastFMService(testConfig(server.URL), server.Client())
		if err != nil {
			t.Fatalf("NewLastFMService() error: %v", err)
		}

		if _, err := svc.RecentTracksPage(context.Background(), 1); !errors.Is(err, shared.ErrFeedRequest) {
			t.Errorf("expected ErrFeedRequest, got %v", err)
		}
		if attempts != 1 {
			t.Errorf("fatal status should not be retried, got %d attempts", attempts)
		}
	})

	t.Run("API error payload is fatal", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"error": 10, "message": "Invalid API key"}`)
		}))
		defer server.Close()

		svc, err := NewLastFMService(testConfig(server.URL), server.Client())
		if err != nil {
			t.Fatalf("NewLastFMService() error: %v", err)
		}

		if _, err := svc.RecentTracksPage(context.Background(), 1); !errors.Is(err, shared.ErrFeedRequest) {
			t.Errorf("expected ErrFeedRequest, got %v", err)
		}
	})

	t.Run("canceled context aborts", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		svc, err := NewLastFMService(testConfig(server.URL), server.Client())
		if err != nil {
			t.Fatalf("NewLastFMService() error: %v", err)
		}

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if _, err := svc.RecentTracksPage(ctx, 1); err == nil {
			t.Error("expected error for canceled context")
		}
	})
}

func TestRetryAfterError(t *testing.T) {
	resp := &http.Response{Header: http.Header{"Retry-After": []string{"7"}}}
	err := retryAfterError(resp)

	if !errors.Is(err, shared.ErrFeedRateLimited) {
		t.Errorf("expected ErrFeedRateLimited, got %v", err)
	}

	var ra *retryAfterErr
	if !errors.As(err, &ra) {
		t.Fatal("expected retryAfterErr")
	}
	if got := backoffDelay(1, ra); got.Seconds() != 7 {
		t.Errorf("expected Retry-After hint to win, got %s", got)
	}
}

func contains(s, sub string) bool {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}
