// Package job runs one complete scrape: the orchestrated run followed by the
// persistence, distribution and reporting steps around it.
package job

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jonesrussell/coupon-crawler/internal/analytics"
	"github.com/jonesrussell/coupon-crawler/internal/domain"
	"github.com/jonesrussell/coupon-crawler/internal/logger"
	"github.com/jonesrussell/coupon-crawler/internal/sources"
)

// Runner produces a scrape run result.
type Runner interface {
	Run(ctx context.Context, budget sources.Budget) domain.ScrapeRunResult
}

// CourseStore remembers courses across runs.
type CourseStore interface {
	KnownLinks(ctx context.Context, links []string) (map[string]struct{}, error)
	SaveNew(ctx context.Context, candidates []domain.CourseCandidate) ([]domain.CourseCandidate, error)
}

// CoursePublisher hands stored courses to downstream senders.
type CoursePublisher interface {
	Publish(ctx context.Context, candidates []domain.CourseCandidate) (int, error)
}

// ReportIndexer stores run reports.
type ReportIndexer interface {
	IndexReport(ctx context.Context, report analytics.Report) error
}

// Options tune a Scrape job.
type Options struct {
	Budget sources.Budget
	// MaxCoursesToSend caps how many new courses are stored and published. Zero means no cap.
	MaxCoursesToSend int
	// DryRun skips every step that writes outside the process except report files.
	DryRun bool
	// ReportDir receives JSON and CSV report files when set.
	ReportDir string
	// Output receives the rendered summary table when set.
	Output io.Writer
}

// Outcome is everything one job execution produced.
type Outcome struct {
	Run       domain.ScrapeRunResult   `json:"run"`
	Report    analytics.Report         `json:"report"`
	New       []domain.CourseCandidate `json:"new"`
	Saved     []domain.CourseCandidate `json:"saved"`
	Published int                      `json:"published"`
	Files     analytics.Files          `json:"files"`
}

// Scrape wires the orchestrator to its optional collaborators. A nil
// collaborator skips its step.
type Scrape struct {
	runner    Runner
	store     CourseStore
	publisher CoursePublisher
	indexer   ReportIndexer
	opts      Options
	log       logger.Logger
}

// Option configures a Scrape job.
type Option func(*Scrape)

// WithStore enables filtering and persistence.
func WithStore(s CourseStore) Option { return func(j *Scrape) { j.store = s } }

// WithPublisher enables distribution.
func WithPublisher(p CoursePublisher) Option { return func(j *Scrape) { j.publisher = p } }

// WithIndexer enables report indexing.
func WithIndexer(i ReportIndexer) Option { return func(j *Scrape) { j.indexer = i } }

// New creates a Scrape job.
func New(runner Runner, opts Options, log logger.Logger, options ...Option) *Scrape {
	j := &Scrape{runner: runner, opts: opts, log: logger.OrNop(log)}
	for _, o := range options {
		o(j)
	}
	return j
}

// Execute runs the scrape and the steps after it. The outcome is always
// returned; failures of individual steps are logged and joined into the
// error.
func (j *Scrape) Execute(ctx context.Context) (Outcome, error) {
	var out Outcome
	var errs []error

	out.Run = j.runner.Run(ctx, j.opts.Budget)
	out.Report = analytics.Summarize(out.Run)
	log := j.log.With(logger.String("run_id", out.Run.RunID))

	log.Info("Scrape run summarized",
		logger.Int("found", out.Report.TotalFound),
		logger.Int("accepted", out.Report.TotalAccepted),
		logger.Float64("success_rate", out.Report.SuccessRate),
	)
	if j.opts.Output != nil {
		analytics.RenderTable(j.opts.Output, out.Report)
	}

	fresh, err := j.filterKnown(ctx, out.Run.Candidates)
	if err != nil {
		log.Error("Known course lookup failed, keeping all candidates", logger.Error(err))
		errs = append(errs, err)
	}
	out.New = sources.Truncate(fresh, j.opts.MaxCoursesToSend)

	if j.opts.DryRun {
		log.Info("Dry run, nothing stored or published", logger.Int("new", len(out.New)))
	} else {
		out.Saved, out.Published, errs = j.deliver(ctx, log, out.New, errs)
		if j.indexer != nil {
			if err := j.indexer.IndexReport(ctx, out.Report); err != nil {
				log.Error("Failed to index report", logger.Error(err))
				errs = append(errs, fmt.Errorf("index report: %w", err))
			}
		}
	}

	if j.opts.ReportDir != "" {
		files, err := analytics.WriteFiles(j.opts.ReportDir, out.Run, out.Report)
		if err != nil {
			log.Error("Failed to write report files", logger.Error(err))
			errs = append(errs, fmt.Errorf("write report files: %w", err))
		} else {
			out.Files = files
			log.Info("Report files written", logger.String("json", files.JSON), logger.String("csv", files.Courses))
		}
	}

	return out, errors.Join(errs...)
}

// deliver stores the new courses and publishes those actually stored. With
// no store configured every new course is published.
func (j *Scrape) deliver(
	ctx context.Context,
	log logger.Logger,
	courses []domain.CourseCandidate,
	errs []error,
) ([]domain.CourseCandidate, int, []error) {
	saved := courses
	if j.store != nil {
		var err error
		saved, err = j.store.SaveNew(ctx, courses)
		if err != nil {
			log.Error("Failed to store courses", logger.Error(err))
			return nil, 0, append(errs, fmt.Errorf("store courses: %w", err))
		}
		log.Info("Stored new courses", logger.Int("count", len(saved)))
	}

	if j.publisher == nil || len(saved) == 0 {
		return saved, 0, errs
	}

	sent, err := j.publisher.Publish(ctx, saved)
	if err != nil {
		log.Error("Failed to publish some courses", logger.Int("sent", sent), logger.Error(err))
		errs = append(errs, fmt.Errorf("publish courses: %w", err))
	}

	return saved, sent, errs
}

func (j *Scrape) filterKnown(ctx context.Context, candidates []domain.CourseCandidate) ([]domain.CourseCandidate, error) {
	if j.store == nil || len(candidates) == 0 {
		return candidates, nil
	}

	links := make([]string, 0, len(candidates))
	for _, c := range candidates {
		links = append(links, c.Link)
	}

	known, err := j.store.KnownLinks(ctx, links)
	if err != nil {
		return candidates, fmt.Errorf("lookup known courses: %w", err)
	}

	fresh := make([]domain.CourseCandidate, 0, len(candidates))
	for _, c := range candidates {
		if _, ok := known[c.Link]; !ok {
			fresh = append(fresh, c)
		}
	}

	j.log.Debug("Filtered known courses",
		logger.Int("candidates", len(candidates)),
		logger.Int("known", len(candidates)-len(fresh)),
	)

	return fresh, nil
}
