// Package yofreesamples scrapes free course coupons from yofreesamples.com,
// whose listing entries link straight to the vendor.
package yofreesamples

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"github.com/jonesrussell/coupon-crawler/internal/domain"
	"github.com/jonesrussell/coupon-crawler/internal/logger"
	"github.com/jonesrussell/coupon-crawler/internal/sources"
)

// Name identifies the source.
const Name = "yofreesamples"

// Entry containers in the order they are tried; the first that matches wins.
var entrySelectors = []string{"div.course-entry", "article", "div.course"}

var titleSelectors = []string{"h2", "h3", "h1"}

const (
	pageKey = "page"
	// requestSlack covers colly's own bookkeeping on top of the retry budget.
	requestSlack = 5 * time.Second
)

// Adapter implements sources.Adapter for yofreesamples.
type Adapter struct {
	baseURL string
	deps    sources.Deps
	log     logger.Logger
}

// New creates an adapter for the listing at baseURL.
func New(baseURL string, deps sources.Deps) *Adapter {
	deps = deps.WithDefaults()
	return &Adapter{
		baseURL: baseURL,
		deps:    deps,
		log:     deps.Logger.With(logger.Source(Name)),
	}
}

// Name returns the source name.
func (a *Adapter) Name() string {
	return Name
}

type entry struct {
	title string
	link  string
	text  string
}

type pageResult struct {
	entries []entry
	failed  bool
}

// Find crawls the listing pages and accepts every vendor entry with a coupon.
func (a *Adapter) Find(ctx context.Context, budget sources.Budget) sources.Result {
	rec := sources.NewRecorder(Name, a.deps)

	pages := a.crawl(ctx, a.pageURLs(budget.Pages))

	var entries []entry
	for _, p := range pages {
		if p.failed {
			rec.FetchError()
			continue
		}
		entries = append(entries, p.entries...)
	}

	entries = sources.Truncate(entries, budget.ItemBudget)
	rec.Found(len(entries))

	for _, e := range entries {
		if e.title == "" {
			rec.Skip(e.title, e.link, domain.SkipInvalidData)
			continue
		}
		rec.Offer(e.title, e.link, e.text)
	}

	return rec.Result()
}

func (a *Adapter) pageURLs(pages int) []string {
	urls := make([]string, 0, pages)
	for page := 1; page <= pages; page++ {
		if page == 1 {
			urls = append(urls, a.baseURL)
			continue
		}
		u, err := url.Parse(a.baseURL)
		if err != nil {
			urls = append(urls, a.baseURL)
			continue
		}
		q := u.Query()
		q.Set("page", strconv.Itoa(page))
		u.RawQuery = q.Encode()
		urls = append(urls, u.String())
	}
	return urls
}

// crawl fetches the pages with an async collector whose transport is the
// retrying fetcher. Requests carry ctx, so cancelling it aborts in-flight
// pages and marks them failed. Results are returned by page index.
func (a *Adapter) crawl(ctx context.Context, urls []string) []pageResult {
	results := make([]pageResult, len(urls))
	var mu sync.Mutex

	c := colly.NewCollector(colly.Async(true), colly.AllowURLRevisit(), colly.StdlibContext(ctx))
	c.UserAgent = ""
	c.WithTransport(a.deps.Fetcher.Transport(nil))
	c.SetRequestTimeout(a.deps.Fetcher.Policy().Budget() + requestSlack)
	if err := c.Limit(&colly.LimitRule{DomainGlob: "*", Parallelism: a.deps.Limiter.Size()}); err != nil {
		a.log.Warn("Failed to set collector limit", logger.Error(err))
	}

	c.OnHTML("html", func(e *colly.HTMLElement) {
		idx, ok := e.Request.Ctx.GetAny(pageKey).(int)
		if !ok {
			return
		}
		found := a.parseEntries(e.Request.URL.String(), e.DOM)

		mu.Lock()
		defer mu.Unlock()
		results[idx].entries = found
	})

	c.OnError(func(r *colly.Response, err error) {
		idx, ok := r.Request.Ctx.GetAny(pageKey).(int)
		if !ok {
			return
		}
		a.log.Warn("Listing page unavailable", logger.URL(r.Request.URL.String()), logger.Error(err))

		mu.Lock()
		defer mu.Unlock()
		results[idx].failed = true
	})

	for i, u := range urls {
		if ctx.Err() != nil {
			results[i].failed = true
			continue
		}
		reqCtx := colly.NewContext()
		reqCtx.Put(pageKey, i)
		if err := c.Request(http.MethodGet, u, nil, reqCtx, nil); err != nil {
			a.log.Warn("Failed to queue listing page", logger.URL(u), logger.Error(err))
			mu.Lock()
			results[i].failed = true
			mu.Unlock()
		}
	}
	c.Wait()

	return results
}

func (a *Adapter) parseEntries(pageURL string, doc *goquery.Selection) []entry {
	var entries []entry

	sources.FirstMatch(doc, entrySelectors...).Each(func(_ int, s *goquery.Selection) {
		anchor := s.Find("a[href]").First()
		href, _ := anchor.Attr("href")
		link := sources.ResolveURL(pageURL, href)
		if !sources.IsVendorLink(link, a.deps.Vendor) {
			return
		}

		title := sources.CollapseSpace(sources.FirstText(s, titleSelectors...))
		if title == "" {
			title = sources.CollapseSpace(anchor.Text())
		}

		entries = append(entries, entry{
			title: title,
			link:  link,
			text:  sources.CollapseSpace(s.Text()),
		})
	})

	return entries
}
