package sources

import (
	"context"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/jonesrussell/coupon-crawler/internal/fetcher"
)

// FetchAll fetches every URL in parallel and returns the results by index.
// Each fetch retries on its own; one failure never cancels the others.
func FetchAll(ctx context.Context, f *fetcher.Fetcher, urls []string, headers http.Header) []fetcher.Result {
	results := make([]fetcher.Result, len(urls))

	var g errgroup.Group
	for i, u := range urls {
		g.Go(func() error {
			results[i] = f.Fetch(ctx, u, headers)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// ForEachLimited calls fn for indices 0..n-1. A permit is acquired from l
// before each goroutine is spawned and released when fn returns. If ctx ends
// while waiting for a permit the remaining indices are not visited and the
// number visited is returned.
func ForEachLimited(ctx context.Context, l *fetcher.Limiter, n int, fn func(ctx context.Context, i int)) int {
	var g errgroup.Group

	visited := 0
	for i := range n {
		if err := l.Acquire(ctx); err != nil {
			break
		}
		visited++

		g.Go(func() error {
			defer l.Release()
			fn(ctx, i)
			return nil
		})
	}
	_ = g.Wait()

	return visited
}

// Truncate applies an item budget. A budget of zero keeps every item.
func Truncate[T any](items []T, budget int) []T {
	if budget <= 0 || len(items) <= budget {
		return items
	}
	return items[:budget]
}
