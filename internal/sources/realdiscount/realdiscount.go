// Package realdiscount collects free course coupons from the real.discount JSON API.
package realdiscount

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/jonesrussell/coupon-crawler/internal/domain"
	"github.com/jonesrussell/coupon-crawler/internal/logger"
	"github.com/jonesrussell/coupon-crawler/internal/probe"
	"github.com/jonesrussell/coupon-crawler/internal/sources"
)

// Name identifies the source.
const Name = "realdiscount"

// DefaultStore is the store name the API uses for the vendor.
const DefaultStore = "Udemy"

// Config locates the API.
type Config struct {
	APIURL   string
	PageSize int
	// Store is the store name items must carry.
	Store string
}

// Prober decides whether an offer link is still live.
type Prober interface {
	Check(ctx context.Context, link string) probe.Verdict
}

// Connectivity is the pre-flight check run before the source.
type Connectivity interface {
	Check(ctx context.Context) error
}

// Adapter implements sources.Adapter for real.discount.
type Adapter struct {
	cfg   Config
	deps  sources.Deps
	probe Prober
	check Connectivity
	log   logger.Logger
}

// New creates an adapter. A nil prober accepts every link and a nil
// connectivity check always passes.
func New(cfg Config, deps sources.Deps, prober Prober, check Connectivity) *Adapter {
	deps = deps.WithDefaults()
	if cfg.Store == "" {
		cfg.Store = DefaultStore
	}
	return &Adapter{
		cfg:   cfg,
		deps:  deps,
		probe: prober,
		check: check,
		log:   deps.Logger.With(logger.Source(Name)),
	}
}

// Name returns the source name.
func (a *Adapter) Name() string {
	return Name
}

var requestHeaders = http.Header{
	"Accept":          {"application/json"},
	"Accept-Language": {"en-US,en;q=0.9"},
}

// Find checks connectivity, pulls the API pages, filters the items and probes
// the survivors before accepting them.
func (a *Adapter) Find(ctx context.Context, budget sources.Budget) sources.Result {
	rec := sources.NewRecorder(Name, a.deps)

	if a.check != nil {
		if err := a.check.Check(ctx); err != nil {
			a.log.Warn("Connectivity check failed, skipping source", logger.Error(err))
			rec.Unavailable()
			return rec.Result()
		}
	}

	urls := a.pageURLs(budget.Pages)

	var raw []rawItem
	for i, res := range sources.FetchAll(ctx, a.deps.Fetcher, urls, requestHeaders) {
		rec.Timeouts(res.Timeouts)
		if !res.OK {
			rec.FetchError()
			a.log.Warn("API page unavailable", logger.URL(urls[i]), logger.Error(res.Err))
			continue
		}
		items, err := decodePage(res.Body)
		if err != nil {
			rec.FetchError()
			a.log.Warn("API page unparseable", logger.URL(urls[i]), logger.Error(err))
			continue
		}
		raw = append(raw, items...)
	}

	raw = sources.Truncate(raw, budget.ItemBudget)
	rec.Found(len(raw))

	reasons := make([]domain.SkipReason, len(raw))
	var pending []int
	for i, r := range raw {
		if reasons[i] = a.filter(r); reasons[i] == "" {
			pending = append(pending, i)
		}
	}

	verdicts := make([]probe.Verdict, len(raw))
	if a.probe != nil {
		visited := sources.ForEachLimited(ctx, a.deps.Limiter, len(pending), func(ctx context.Context, j int) {
			i := pending[j]
			verdicts[i] = a.probe.Check(ctx, raw[i].item.URL)
		})
		for _, i := range pending[visited:] {
			verdicts[i] = probe.Unverified
		}
	}

	for i, r := range raw {
		title, link := strings.TrimSpace(r.item.Name), strings.TrimSpace(r.item.URL)
		if reasons[i] != "" {
			rec.Skip(title, link, reasons[i])
			continue
		}
		if verdicts[i] == probe.Invalid {
			rec.Skip(title, link, domain.SkipExpired)
			continue
		}
		if rec.Offer(title, link, "") && verdicts[i] == probe.Unverified {
			rec.Unverified()
		}
	}

	return rec.Result()
}

// filter returns the reason an item is rejected before probing, or "".
// Items without a coupon are never probed.
func (a *Adapter) filter(r rawItem) domain.SkipReason {
	switch {
	case r.err != nil:
		return domain.SkipInvalidData
	case r.item.isAdvertisement():
		return domain.SkipAdvertisement
	case strings.TrimSpace(r.item.Name) == "" || strings.TrimSpace(r.item.URL) == "":
		return domain.SkipInvalidData
	case !a.isVendorStore(r.item):
		return domain.SkipNotVendor
	case r.item.SalePrice != 0:
		return domain.SkipNotFree
	case !a.hasCoupon(r.item):
		return domain.SkipNoCoupon
	default:
		return ""
	}
}

func (a *Adapter) hasCoupon(it item) bool {
	_, ok := a.deps.Extractor.Extract(strings.TrimSpace(it.URL), "")
	return ok
}

// isVendorStore accepts items attributed to the vendor store whose link
// points at the vendor.
func (a *Adapter) isVendorStore(it item) bool {
	if !strings.EqualFold(strings.TrimSpace(it.Store), a.cfg.Store) {
		return false
	}
	return sources.IsVendorLink(strings.TrimSpace(it.URL), a.deps.Vendor)
}

func (a *Adapter) pageURLs(pages int) []string {
	urls := make([]string, 0, pages)
	for p := 1; p <= pages; p++ {
		u, err := url.Parse(a.cfg.APIURL)
		if err != nil {
			urls = append(urls, a.cfg.APIURL)
			continue
		}
		q := u.Query()
		q.Set("page", strconv.Itoa(p))
		q.Set("store", a.cfg.Store)
		if a.cfg.PageSize > 0 {
			q.Set("limit", strconv.Itoa(a.cfg.PageSize))
		}
		u.RawQuery = q.Encode()
		urls = append(urls, u.String())
	}
	return urls
}
