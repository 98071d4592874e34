package yofreesamples_test

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/coupon-crawler/internal/domain"
	"github.com/jonesrussell/coupon-crawler/internal/sources"
	"github.com/jonesrussell/coupon-crawler/internal/sources/sourcestest"
	"github.com/jonesrussell/coupon-crawler/internal/sources/yofreesamples"
)

const (
	listPath       = "/courses/free-discounted-udemy-courses-list/"
	testMaxRetries = 1
	testPermits    = 2
	vendorHost     = "www.udemy.com"
	slowPage       = 2 * time.Second
)

func courseEntry(title, link string) string {
	return fmt.Sprintf(`<div class="course-entry"><h2>%s</h2><a href="%s">Get course</a></div>`, title, link)
}

func newAdapter(t *testing.T, site *sourcestest.Site) *yofreesamples.Adapter {
	t.Helper()

	return yofreesamples.New(site.URL+listPath, sourcestest.Deps(testMaxRetries, testPermits, vendorHost))
}

// pagedHTML serves page 1 at the bare listing URL and page N at ?page=N.
func pagedHTML(site *sourcestest.Site, pages map[string]string) {
	site.Handle(listPath, func(w http.ResponseWriter, r *http.Request) {
		body, ok := pages[r.URL.Query().Get("page")]
		if !ok {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(body))
	})
}

func TestFind_CollectsVendorEntries(t *testing.T) {
	t.Parallel()

	site := sourcestest.NewSite(t)
	pagedHTML(site, map[string]string{
		"": "<html><body>" +
			courseEntry("Go Basics", "https://www.udemy.com/course/go-basics/?couponCode=GOB") +
			courseEntry("Not a course", "https://example.com/ad") +
			courseEntry("No Coupon", "https://www.udemy.com/course/none/") +
			"</body></html>",
		"2": "<html><body>" +
			`<div class="course-entry"><a href="https://www.udemy.com/course/text/">Text Course</a> Coupon: TXT1</div>` +
			courseEntry("Go Basics repost", "https://www.udemy.com/course/go-basics/?couponCode=GOB") +
			"</body></html>",
	})

	res := newAdapter(t, site).Find(context.Background(), sources.Budget{Pages: 2})

	require.Len(t, res.Candidates, 2)
	assert.Equal(t, "Go Basics", res.Candidates[0].Title)
	assert.Equal(t, "GOB", res.Candidates[0].Coupon)
	assert.Equal(t, "Text Course", res.Candidates[1].Title)
	assert.Equal(t, "TXT1", res.Candidates[1].Coupon)
	assert.Equal(t, yofreesamples.Name, res.Candidates[1].Source)

	assert.Equal(t, 4, res.Stats.TotalFound)
	assert.Equal(t, 1, res.Stats.SkippedNoCoupon)
	assert.Equal(t, 1, res.Stats.SkippedDuplicateLink)
	assert.Zero(t, res.Stats.Errors)
}

func TestFind_FallsBackToArticleContainers(t *testing.T) {
	t.Parallel()

	site := sourcestest.NewSite(t)
	pagedHTML(site, map[string]string{
		"": `<html><body><article><h3>Article Course</h3>` +
			`<a href="https://www.udemy.com/course/article/?coupon=ART">Go</a></article></body></html>`,
	})

	res := newAdapter(t, site).Find(context.Background(), sources.Budget{Pages: 1})

	require.Len(t, res.Candidates, 1)
	assert.Equal(t, "ART", res.Candidates[0].Coupon)
	assert.Equal(t, "Article Course", res.Candidates[0].Title)
}

func TestFind_PageFailureCountsOneError(t *testing.T) {
	t.Parallel()

	site := sourcestest.NewSite(t)
	pagedHTML(site, map[string]string{
		"": "<html><body>" + courseEntry("Go", "https://www.udemy.com/course/go/?couponCode=G") + "</body></html>",
	})

	res := newAdapter(t, site).Find(context.Background(), sources.Budget{Pages: 2})

	assert.Equal(t, 1, res.Stats.Errors)
	assert.Len(t, res.Candidates, 1)
	assert.Equal(t, testMaxRetries+1+1, site.Hits(listPath))
}

func TestFind_CancelledContextAbortsSlowPage(t *testing.T) {
	t.Parallel()

	site := sourcestest.NewSite(t)
	site.Handle(listPath, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(slowPage):
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte("<html><body>" +
				courseEntry("Late", "https://www.udemy.com/course/late/?couponCode=LATE") +
				"</body></html>"))
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	res := newAdapter(t, site).Find(ctx, sources.Budget{Pages: 1})
	elapsed := time.Since(start)

	assert.Less(t, elapsed, slowPage/2, "Find must not wait for the slow page")
	assert.Equal(t, 1, res.Stats.Errors)
	assert.Empty(t, res.Candidates)
	assert.Zero(t, res.Stats.TotalFound)
}

func TestFind_ItemBudget(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	for i := range 10 {
		b.WriteString(courseEntry(fmt.Sprintf("C%d", i), fmt.Sprintf("https://www.udemy.com/course/c%d/?couponCode=C%d", i, i)))
	}

	site := sourcestest.NewSite(t)
	pagedHTML(site, map[string]string{"": "<html><body>" + b.String() + "</body></html>"})

	res := newAdapter(t, site).Find(context.Background(), sources.Budget{Pages: 1, ItemBudget: 3})

	assert.Equal(t, 3, res.Stats.TotalFound)
	require.Len(t, res.Candidates, 3)
	assert.Equal(t, "C2", res.Candidates[2].Coupon)
}

func TestFind_PageURLs(t *testing.T) {
	t.Parallel()

	site := sourcestest.NewSite(t)
	var (
		mu   sync.Mutex
		seen []string
	)
	site.Handle(listPath, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.URL.RawQuery)
		mu.Unlock()
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html></html>"))
	})

	res := newAdapter(t, site).Find(context.Background(), sources.Budget{Pages: 3})

	mu.Lock()
	defer mu.Unlock()
	assert.Empty(t, res.Candidates)
	assert.ElementsMatch(t, []string{"", url.Values{"page": {"2"}}.Encode(), "page=3"}, seen)
	assert.Empty(t, res.Skipped)
	assert.Equal(t, domain.AdapterStats{}, res.Stats)
}
