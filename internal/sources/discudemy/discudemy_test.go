package discudemy_test

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/coupon-crawler/internal/domain"
	"github.com/jonesrussell/coupon-crawler/internal/sources"
	"github.com/jonesrussell/coupon-crawler/internal/sources/discudemy"
	"github.com/jonesrussell/coupon-crawler/internal/sources/sourcestest"
)

const (
	testPermits    = 2
	testMaxRetries = 2
)

func card(title, href string) string {
	return fmt.Sprintf(`<div class="card"><a href="%s"><div class="card-header">%s</div></a></div>`, href, title)
}

func page(cards ...string) string {
	return "<html><body>" + strings.Join(cards, "") + "</body></html>"
}

// fixture wires a source site and a vendor site.
type fixture struct {
	site   *sourcestest.Site
	vendor *sourcestest.Site
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	return &fixture{site: sourcestest.NewSite(t), vendor: sourcestest.NewSite(t)}
}

func (f *fixture) vendorHost(t *testing.T) string {
	t.Helper()

	u, err := url.Parse(f.vendor.URL)
	require.NoError(t, err)

	return u.Host
}

func (f *fixture) adapter(t *testing.T) *discudemy.Adapter {
	t.Helper()

	return discudemy.New(f.site.URL, sourcestest.Deps(testMaxRetries, testPermits, f.vendorHost(t)))
}

// course registers /course/<slug> with a go link that either redirects to the
// vendor (redirect=true) or links to it.
func (f *fixture) course(slug, query string, redirect bool) {
	vendorPath := "/course/" + slug + "/"
	target := f.vendor.URL + vendorPath + query
	f.vendor.HTML(vendorPath, "<html>course</html>")

	f.site.HTML("/course/"+slug, fmt.Sprintf(`<html><a href="/go/%s">Take course</a></html>`, slug))
	if redirect {
		f.site.Redirect("/go/"+slug, target)
		return
	}
	f.site.HTML("/go/"+slug, fmt.Sprintf(`<html><p>Coupon: TXT-%s</p> <a href="%s">Enroll</a></html>`, slug, target))
}

func TestFind_ResolvesVendorLinks(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.course("go", "?couponCode=GO1", true)
	f.course("rust", "", false)
	f.course("plain", "", true)
	f.site.HTML("/all/1", page(card("Learn Go", "/course/go"), card("Learn Rust", "/course/rust")))
	f.site.HTML("/all/2", page(card("Plain", "/course/plain"), card("", "/course/untitled")))

	res := f.adapter(t).Find(context.Background(), sources.Budget{Pages: 2})

	require.Len(t, res.Candidates, 2)
	assert.Equal(t, "Learn Go", res.Candidates[0].Title)
	assert.Equal(t, "GO1", res.Candidates[0].Coupon)
	assert.Equal(t, f.vendor.URL+"/course/go/?couponCode=GO1", res.Candidates[0].Link)
	assert.Equal(t, discudemy.Name, res.Candidates[0].Source)
	assert.Equal(t, "TXT-rust", res.Candidates[1].Coupon)
	assert.Equal(t, sourcestest.FixedNow, res.Candidates[1].DateFound)

	assert.Equal(t, 4, res.Stats.TotalFound)
	assert.Equal(t, 2, res.Stats.Added)
	assert.Equal(t, 1, res.Stats.SkippedNoCoupon)
	assert.Equal(t, 1, res.Stats.SkippedInvalidData)
	assert.Zero(t, res.Stats.Errors)

	reasons := make([]domain.SkipReason, 0, len(res.Skipped))
	for _, s := range res.Skipped {
		reasons = append(reasons, s.Reason)
	}
	assert.Equal(t, []domain.SkipReason{domain.SkipNoCoupon, domain.SkipInvalidData}, reasons)
}

func TestFind_LocalDuplicateLink(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.course("go", "?couponCode=GO1", true)
	f.site.HTML("/all/1", page(card("Learn Go", "/course/go"), card("Learn Go again", "/course/go")))

	res := f.adapter(t).Find(context.Background(), sources.Budget{Pages: 1})

	require.Len(t, res.Candidates, 1)
	assert.Equal(t, "Learn Go", res.Candidates[0].Title)
	assert.Equal(t, 1, res.Stats.SkippedDuplicateLink)
}

func TestFind_FastModeTruncatesBeforeDetailFetch(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	cards := make([]string, 0, 10)
	paths := make([]string, 0, 10)
	for i := range 10 {
		slug := fmt.Sprintf("c%d", i)
		f.course(slug, "?couponCode="+strings.ToUpper(slug), true)
		cards = append(cards, card("Course "+slug, "/course/"+slug))
		paths = append(paths, "/course/"+slug)
	}
	f.site.HTML("/all/1", page(cards...))

	res := f.adapter(t).Find(context.Background(), sources.Budget{Pages: 1, ItemBudget: 3})

	assert.Equal(t, 3, f.site.TotalHits(paths...))
	assert.Equal(t, 3, res.Stats.TotalFound)
	assert.Len(t, res.Candidates, 3)
}

func TestFind_ListingFailureIsAbsorbed(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.course("go", "?couponCode=GO1", true)
	f.site.HTML("/all/1", page(card("Learn Go", "/course/go")))
	f.site.Status("/all/2", http.StatusServiceUnavailable)

	res := f.adapter(t).Find(context.Background(), sources.Budget{Pages: 2})

	assert.Equal(t, testMaxRetries+1, f.site.Hits("/all/2"))
	assert.Equal(t, 1, res.Stats.Errors)
	assert.Len(t, res.Candidates, 1)
}

func TestFind_DetailFailureIsSkipped(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.site.Status("/course/broken", http.StatusInternalServerError)
	f.site.HTML("/course/nogo", "<html><p>No links here</p></html>")
	f.site.HTML("/all/1", page(card("Broken", "/course/broken"), card("No go", "/course/nogo")))

	res := f.adapter(t).Find(context.Background(), sources.Budget{Pages: 1})

	assert.Empty(t, res.Candidates)
	assert.Equal(t, 1, res.Stats.Errors)
	assert.Equal(t, 1, res.Stats.SkippedInvalidData)
	require.Len(t, res.Skipped, 2)
	assert.Equal(t, domain.SkipFetchFailed, res.Skipped[0].Reason)
}

func TestFind_Deterministic(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	for _, slug := range []string{"a", "b", "c", "d", "e"} {
		f.course(slug, "?couponCode="+strings.ToUpper(slug), true)
	}
	f.site.HTML("/all/1", page(card("A", "/course/a"), card("B", "/course/b"), card("C", "/course/c")))
	f.site.HTML("/all/2", page(card("D", "/course/d"), card("E", "/course/e")))

	a := f.adapter(t)
	first := a.Find(context.Background(), sources.Budget{Pages: 2})
	second := a.Find(context.Background(), sources.Budget{Pages: 2})

	assert.Equal(t, first, second)
	require.Len(t, first.Candidates, 5)
	assert.Equal(t, "E", first.Candidates[4].Coupon)
}
