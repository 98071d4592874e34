package sources

import (
	"github.com/jonesrussell/coupon-crawler/internal/coupon"
	"github.com/jonesrussell/coupon-crawler/internal/dedup"
	"github.com/jonesrussell/coupon-crawler/internal/domain"
	"github.com/jonesrussell/coupon-crawler/internal/logger"
)

// Recorder accumulates one adapter's candidates, stats and skip records.
// Adapters gather concurrent outcomes by index and feed them to the Recorder
// from a single goroutine, so it needs no locking and its output is ordered.
type Recorder struct {
	source    string
	deps      Deps
	extractor *coupon.Extractor
	links     *dedup.LinkSet
	log       logger.Logger
	res       Result
}

// NewRecorder starts an empty result for source.
func NewRecorder(source string, deps Deps) *Recorder {
	deps = deps.WithDefaults()
	return &Recorder{
		source:    source,
		deps:      deps,
		extractor: deps.Extractor,
		links:     dedup.NewLinkSet(),
		log:       deps.Logger.With(logger.Source(source)),
	}
}

// Found counts n raw items that entered processing.
func (r *Recorder) Found(n int) {
	r.res.Stats.TotalFound += n
}

// FetchError counts a fetch that exhausted its retries.
func (r *Recorder) FetchError() {
	r.res.Stats.Errors++
}

// Timeouts counts attempts that ended on their deadline.
func (r *Recorder) Timeouts(n int) {
	r.res.Stats.Timeouts += n
}

// Unverified counts an offer admitted because its probe could not complete.
func (r *Recorder) Unverified() {
	r.res.Stats.Unverified++
}

// Unavailable marks the whole source as skipped for this run.
func (r *Recorder) Unavailable() {
	r.res.Stats.Unavailable++
}

// Skip records a rejected item and increments the matching counter.
func (r *Recorder) Skip(title, link string, reason domain.SkipReason) {
	switch reason {
	case domain.SkipNoCoupon:
		r.res.Stats.SkippedNoCoupon++
	case domain.SkipDuplicateLink:
		r.res.Stats.SkippedDuplicateLink++
	case domain.SkipDuplicateCoupon:
		r.res.Stats.SkippedDuplicateCoupon++
	case domain.SkipNotFree:
		r.res.Stats.SkippedNotFree++
	case domain.SkipFetchFailed:
		r.res.Stats.Errors++
	default:
		r.res.Stats.SkippedInvalidData++
	}

	r.res.Skipped = append(r.res.Skipped, domain.SkipRecord{
		Title:  title,
		Link:   link,
		Source: r.source,
		Reason: reason,
	})

	r.log.Debug("Skipped item",
		logger.String("title", title),
		logger.URL(link),
		logger.String("reason", string(reason)),
	)
}

// Offer extracts a coupon for link and accepts the item unless the coupon is
// missing or the link was already accepted. It reports whether it was added.
func (r *Recorder) Offer(title, link, pageText string) bool {
	token, ok := r.extractor.Extract(link, pageText)
	if !ok {
		r.Skip(title, link, domain.SkipNoCoupon)
		return false
	}

	if !r.links.Accept(link) {
		r.Skip(title, link, domain.SkipDuplicateLink)
		return false
	}

	r.res.Candidates = append(r.res.Candidates, domain.CourseCandidate{
		Title:     title,
		Link:      link,
		Coupon:    token,
		DateFound: r.deps.Now(),
		Source:    r.source,
	})
	r.res.Stats.Added++

	return true
}

// Result returns the accumulated result.
func (r *Recorder) Result() Result {
	r.log.Info("Source finished",
		logger.Int("found", r.res.Stats.TotalFound),
		logger.Int("added", r.res.Stats.Added),
		logger.Int("skipped", r.res.Stats.Skipped()),
		logger.Int("errors", r.res.Stats.Errors),
	)
	return r.res
}
