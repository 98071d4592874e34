// Package scheduler repeats the scrape job on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jonesrussell/coupon-crawler/internal/logger"
)

// ErrEmptySpec is returned when no schedule is configured.
var ErrEmptySpec = errors.New("schedule spec is required")

// Task is one scheduled unit of work.
type Task func(ctx context.Context) error

// Options tune a Scheduler.
type Options struct {
	// RunOnStart triggers the task as soon as Run is called.
	RunOnStart bool
	// Iterations stops Run after this many completed executions. Zero runs until cancelled.
	Iterations int
}

// Scheduler runs a Task on a cron schedule. An execution that is due while
// the previous one is still running is skipped.
type Scheduler struct {
	cron     *cron.Cron
	job      cron.Job
	spec     string
	schedule cron.Schedule
	task     Task
	opts     Options
	log      logger.Logger

	mu        sync.Mutex
	ctx       context.Context
	completed int
	running   sync.WaitGroup
	done      chan struct{}
	doneOnce  sync.Once
}

// New validates spec and prepares a Scheduler. Five-field cron expressions
// and descriptors such as "@every 30m" are accepted.
func New(spec string, task Task, opts Options, log logger.Logger) (*Scheduler, error) {
	if spec == "" {
		return nil, ErrEmptySpec
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	schedule, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("failed to parse cron expression: %w", err)
	}

	log = logger.OrNop(log)
	cl := cronLogger{log: log}

	s := &Scheduler{
		cron:     cron.New(cron.WithParser(parser), cron.WithLogger(cl)),
		spec:     spec,
		schedule: schedule,
		task:     task,
		opts:     opts,
		log:      log,
		ctx:      context.Background(),
		done:     make(chan struct{}),
	}
	s.job = cron.NewChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)).Then(cron.FuncJob(s.execute))

	s.cron.Schedule(schedule, s.job)

	return s, nil
}

// Run starts the schedule and blocks until ctx is cancelled or the
// configured number of iterations has completed. Running executions are
// waited for before it returns.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	s.log.Info("Scheduler started",
		logger.String("spec", s.spec),
		logger.Bool("run_on_start", s.opts.RunOnStart),
		logger.Int("iterations", s.opts.Iterations),
	)

	s.cron.Start()
	if s.opts.RunOnStart {
		s.running.Add(1)
		go func() {
			defer s.running.Done()
			s.job.Run()
		}()
	}

	select {
	case <-ctx.Done():
		s.log.Info("Scheduler stopping", logger.Error(ctx.Err()))
	case <-s.done:
		s.log.Info("Scheduler reached iteration limit", logger.Int("iterations", s.opts.Iterations))
	}

	<-s.cron.Stop().Done()
	s.running.Wait()

	return nil
}

// RunNow executes the task in the calling goroutine unless an execution is
// already in progress.
func (s *Scheduler) RunNow() {
	s.job.Run()
}

// Completed is the number of finished executions.
func (s *Scheduler) Completed() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.completed
}

// Next returns when the task is next due. Before Run it is computed from now.
func (s *Scheduler) Next() time.Time {
	if entries := s.cron.Entries(); len(entries) > 0 && !entries[0].Next.IsZero() {
		return entries[0].Next
	}
	return s.schedule.Next(time.Now())
}

func (s *Scheduler) execute() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	if ctx.Err() != nil {
		return
	}

	start := time.Now()
	s.log.Info("Scheduled run started")

	if err := s.task(ctx); err != nil {
		s.log.Error("Scheduled run failed", logger.Error(err), logger.Duration("duration", time.Since(start)))
	} else {
		s.log.Info("Scheduled run finished", logger.Duration("duration", time.Since(start)))
	}

	s.mu.Lock()
	s.completed++
	n := s.completed
	s.mu.Unlock()

	if s.opts.Iterations > 0 && n >= s.opts.Iterations {
		s.doneOnce.Do(func() { close(s.done) })
	}
}
