// Package sourcestest provides fixtures for exercising source adapters
// against httptest servers.
package sourcestest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/jonesrussell/coupon-crawler/internal/fetcher"
	"github.com/jonesrussell/coupon-crawler/internal/sources"
)

// FixedNow is the timestamp stamped on candidates built through Deps.
var FixedNow = time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

// Policy is a fast retry policy for tests.
func Policy(maxRetries int) fetcher.RetryPolicy {
	return fetcher.RetryPolicy{
		MaxRetries: maxRetries,
		Timeouts:   []time.Duration{2 * time.Second},
		Backoff:    []time.Duration{time.Millisecond},
	}
}

// NoSleep skips backoff pauses.
var NoSleep = fetcher.SleeperFunc(func(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
})

// Deps returns adapter dependencies with a fast fetcher, the given permit
// count and the local test server's host as vendor.
func Deps(maxRetries, permits int, vendor string) sources.Deps {
	return sources.Deps{
		Fetcher: fetcher.New(Policy(maxRetries), fetcher.WithSleeper(NoSleep)),
		Limiter: fetcher.NewLimiter(permits),
		Vendor:  vendor,
		Now:     func() time.Time { return FixedNow },
	}.WithDefaults()
}

// Site is an httptest server that serves fixed responses by path and
// counts requests per path.
type Site struct {
	*httptest.Server

	mu     sync.Mutex
	routes map[string]http.HandlerFunc
	hits   map[string]int
}

// NewSite starts an empty Site that is closed when the test ends.
func NewSite(t *testing.T) *Site {
	t.Helper()

	s := &Site{routes: make(map[string]http.HandlerFunc), hits: make(map[string]int)}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)

	return s
}

// HTML serves body as text/html at path.
func (s *Site) HTML(path, body string) {
	s.Handle(path, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(body))
	})
}

// JSON serves body as application/json at path.
func (s *Site) JSON(path, body string) {
	s.Handle(path, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	})
}

// Status answers path with code.
func (s *Site) Status(path string, code int) {
	s.Handle(path, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(code)
	})
}

// Redirect answers path with a 302 to target.
func (s *Site) Redirect(path, target string) {
	s.Handle(path, func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, target, http.StatusFound)
	})
}

// Handle registers h at path.
func (s *Site) Handle(path string, h http.HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.routes[path] = h
}

// Hits returns how many requests path received.
func (s *Site) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.hits[path]
}

// TotalHits returns how many requests paths received together.
func (s *Site) TotalHits(paths ...string) int {
	total := 0
	for _, p := range paths {
		total += s.Hits(p)
	}
	return total
}

func (s *Site) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.hits[r.URL.Path]++
	h, ok := s.routes[r.URL.Path]
	s.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	h(w, r)
}
