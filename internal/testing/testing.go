// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"

	"github.com/desertthunder/chartlog/internal/services"
)

// MockFeed is a test double for [services.Feed]. Pages are returned by index;
// an entry in Failures makes that page return an error instead.
type MockFeed struct {
	Pages    []services.FeedPage
	Failures map[int]error
	Calls    []int
}

func (m *MockFeed) RecentTracksPage(ctx context.Context, page int) (*services.FeedPage, error) {
	m.Calls = append(m.Calls, page)
	if err, ok := m.Failures[page]; ok {
		return nil, err
	}
	if page < 1 || page > len(m.Pages) {
		return nil, fmt.Errorf("no such page: %d", page)
	}
	result := m.Pages[page-1]
	return &result, nil
}

func (m *MockFeed) Name() string { return "mock" }

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing. Responses are
// consumed in order; the last one repeats.
type MockRoundTripper struct {
	responses []*http.Response
	errs      []error
	calls     int
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{responses: []*http.Response{r}, errs: []error{e}}
}

func NewSequenceRoundTripper(responses []*http.Response, errs []error) *MockRoundTripper {
	return &MockRoundTripper{responses: responses, errs: errs}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	i := m.calls
	if i >= len(m.responses) {
		i = len(m.responses) - 1
	}
	m.calls++
	return m.responses[i], m.errs[i]
}

func (m *MockRoundTripper) Calls() int { return m.calls }

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
