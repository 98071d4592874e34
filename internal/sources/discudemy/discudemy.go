// Package discudemy scrapes free course coupons from discudemy.com.
//
// Listing pages link to a course page, which links to a "go" page, which
// either redirects to the vendor or links to it.
package discudemy

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonesrussell/coupon-crawler/internal/domain"
	"github.com/jonesrussell/coupon-crawler/internal/logger"
	"github.com/jonesrussell/coupon-crawler/internal/sources"
)

// Name identifies the source.
const Name = "discudemy"

var titleSelectors = []string{".card-header", "h3", "h2", "h1"}

const goLinkSelector = `a[href*="/go/"]`

// Adapter implements sources.Adapter for discudemy.
type Adapter struct {
	baseURL string
	deps    sources.Deps
	log     logger.Logger
}

// New creates an adapter rooted at baseURL.
func New(baseURL string, deps sources.Deps) *Adapter {
	deps = deps.WithDefaults()
	return &Adapter{
		baseURL: strings.TrimRight(baseURL, "/"),
		deps:    deps,
		log:     deps.Logger.With(logger.Source(Name)),
	}
}

// Name returns the source name.
func (a *Adapter) Name() string {
	return Name
}

type listing struct {
	title string
	url   string
}

type resolution struct {
	link   string
	text   string
	reason domain.SkipReason
}

// Find fetches the listing pages, resolves each course to its vendor link and
// records the outcome of every item.
func (a *Adapter) Find(ctx context.Context, budget sources.Budget) sources.Result {
	rec := sources.NewRecorder(Name, a.deps)

	urls := make([]string, 0, budget.Pages)
	for page := 1; page <= budget.Pages; page++ {
		urls = append(urls, fmt.Sprintf("%s/all/%d", a.baseURL, page))
	}

	var items []listing
	for i, res := range sources.FetchAll(ctx, a.deps.Fetcher, urls, nil) {
		if !res.OK {
			rec.FetchError()
			a.log.Warn("Listing page unavailable", logger.URL(urls[i]), logger.Error(res.Err))
			continue
		}
		found, err := a.parseListing(urls[i], res.Body)
		if err != nil {
			rec.FetchError()
			a.log.Warn("Listing page unparseable", logger.URL(urls[i]), logger.Error(err))
			continue
		}
		items = append(items, found...)
	}

	items = sources.Truncate(items, budget.ItemBudget)
	rec.Found(len(items))

	resolved := make([]resolution, len(items))
	visited := sources.ForEachLimited(ctx, a.deps.Limiter, len(items), func(ctx context.Context, i int) {
		resolved[i] = a.resolve(ctx, items[i])
	})

	for i, it := range items {
		r := resolved[i]
		if i >= visited {
			r.reason = domain.SkipFetchFailed
		}
		if r.reason != "" {
			rec.Skip(it.title, it.url, r.reason)
			continue
		}
		rec.Offer(it.title, r.link, r.text)
	}

	return rec.Result()
}

func (a *Adapter) parseListing(pageURL string, body []byte) ([]listing, error) {
	doc, err := sources.ParseHTML(body)
	if err != nil {
		return nil, err
	}

	var items []listing
	doc.Find(".card").Each(func(_ int, card *goquery.Selection) {
		href, _ := card.Find("a[href]").First().Attr("href")
		items = append(items, listing{
			title: sources.CollapseSpace(sources.FirstText(card, titleSelectors...)),
			url:   sources.ResolveURL(pageURL, href),
		})
	})

	return items, nil
}

// resolve follows a course page to its vendor link.
func (a *Adapter) resolve(ctx context.Context, it listing) resolution {
	if it.title == "" || it.url == "" {
		return resolution{reason: domain.SkipInvalidData}
	}

	detail := a.deps.Fetcher.Fetch(ctx, it.url, nil)
	if !detail.OK {
		return resolution{reason: domain.SkipFetchFailed}
	}
	if sources.IsVendorLink(detail.FinalURL, a.deps.Vendor) {
		return resolution{link: detail.FinalURL}
	}

	doc, err := sources.ParseHTML(detail.Body)
	if err != nil {
		return resolution{reason: domain.SkipInvalidData}
	}
	href, ok := doc.Find(goLinkSelector).First().Attr("href")
	if !ok {
		if link := a.vendorAnchor(doc.Selection, detail.FinalURL); link != "" {
			return resolution{link: link, text: doc.Text()}
		}
		a.log.Debug("Course page has no go link", logger.URL(it.url))
		return resolution{reason: domain.SkipInvalidData}
	}

	goRes := a.deps.Fetcher.Fetch(ctx, sources.ResolveURL(detail.FinalURL, href), nil)
	if !goRes.OK {
		return resolution{reason: domain.SkipFetchFailed}
	}
	if sources.IsVendorLink(goRes.FinalURL, a.deps.Vendor) {
		return resolution{link: goRes.FinalURL}
	}

	goDoc, err := sources.ParseHTML(goRes.Body)
	if err != nil {
		return resolution{reason: domain.SkipInvalidData}
	}

	link := a.vendorAnchor(goDoc.Selection, goRes.FinalURL)
	if link == "" {
		return resolution{reason: domain.SkipNotVendor}
	}

	return resolution{link: link, text: goDoc.Text()}
}

// vendorAnchor returns the first anchor under s that points at the vendor.
func (a *Adapter) vendorAnchor(s *goquery.Selection, base string) string {
	var link string
	s.Find("a[href]").EachWithBreak(func(_ int, anchor *goquery.Selection) bool {
		href, _ := anchor.Attr("href")
		if candidate := sources.ResolveURL(base, href); sources.IsVendorLink(candidate, a.deps.Vendor) {
			link = candidate
			return false
		}
		return true
	})
	return link
}
