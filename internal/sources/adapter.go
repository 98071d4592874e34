// Package sources defines the contract shared by the coupon source adapters
// and the helpers they use to fetch listings and record outcomes.
package sources

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/jonesrussell/coupon-crawler/internal/coupon"
	"github.com/jonesrussell/coupon-crawler/internal/domain"
	"github.com/jonesrussell/coupon-crawler/internal/fetcher"
	"github.com/jonesrussell/coupon-crawler/internal/logger"
)

// Budget bounds the work of one Find call.
type Budget struct {
	// Pages is the number of listing pages to fetch.
	Pages int
	// ItemBudget caps the items that proceed to detail fetching. Zero means unbounded.
	ItemBudget int
}

// Result is everything an adapter produced during one Find call.
type Result struct {
	Candidates []domain.CourseCandidate
	Stats      domain.AdapterStats
	Skipped    []domain.SkipRecord
}

//go:generate mockgen -source=adapter.go -destination=../testutils/mocks/adapter/mock_adapter.go -package=adapter Adapter

// Adapter finds coupon candidates on one source. Find never fails: every
// problem is absorbed into the returned statistics and skip records.
type Adapter interface {
	Name() string
	Find(ctx context.Context, budget Budget) Result
}

// Deps are the collaborators every adapter is built from.
type Deps struct {
	Fetcher   *fetcher.Fetcher
	Limiter   *fetcher.Limiter
	Extractor *coupon.Extractor
	Logger    logger.Logger
	// Vendor is the host that final course links must belong to.
	Vendor string
	Now    func() time.Time
}

const defaultVendor = "udemy.com"

// WithDefaults fills unset collaborators.
func (d Deps) WithDefaults() Deps {
	if d.Fetcher == nil {
		d.Fetcher = fetcher.New(fetcher.RetryPolicy{Timeouts: []time.Duration{30 * time.Second}})
	}
	if d.Limiter == nil {
		d.Limiter = fetcher.NewLimiter(fetcher.DefaultPermits)
	}
	if d.Extractor == nil {
		d.Extractor = coupon.NewExtractor()
	}
	d.Logger = logger.OrNop(d.Logger)
	if d.Vendor == "" {
		d.Vendor = defaultVendor
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

// IsVendorLink reports whether link points at vendor or one of its subdomains.
// A vendor given with a port must match host and port exactly.
func IsVendorLink(link, vendor string) bool {
	u, err := url.Parse(link)
	if err != nil || u.Host == "" {
		return false
	}
	vendor = strings.ToLower(vendor)
	if strings.Contains(vendor, ":") {
		return strings.ToLower(u.Host) == vendor
	}
	host := strings.ToLower(u.Hostname())
	return host == vendor || strings.HasSuffix(host, "."+vendor)
}

// ResolveURL resolves ref against base. Unparseable references resolve to "".
func ResolveURL(base, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	b, err := url.Parse(base)
	if err != nil {
		return ""
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	return b.ResolveReference(r).String()
}
