package api

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/coupon-crawler/internal/analytics"
	"github.com/jonesrussell/coupon-crawler/internal/domain"
	"github.com/jonesrussell/coupon-crawler/internal/job"
)

// Executor runs one scrape job.
type Executor interface {
	Execute(ctx context.Context) (job.Outcome, error)
}

// RunSummary is the API view of a finished job.
type RunSummary struct {
	RunID      string                   `json:"run_id"`
	FinishedAt time.Time                `json:"finished_at"`
	Report     analytics.Report         `json:"report"`
	New        []domain.CourseCandidate `json:"new_courses"`
	Saved      int                      `json:"saved"`
	Published  int                      `json:"published"`
	Error      string                   `json:"error,omitempty"`
}

// NewRunSummary builds the API view of outcome.
func NewRunSummary(outcome job.Outcome, err error) RunSummary {
	s := RunSummary{
		RunID:      outcome.Run.RunID,
		FinishedAt: outcome.Run.FinishedAt,
		Report:     outcome.Report,
		New:        outcome.New,
		Saved:      len(outcome.Saved),
		Published:  outcome.Published,
	}
	if s.New == nil {
		s.New = []domain.CourseCandidate{}
	}
	if err != nil {
		s.Error = err.Error()
	}
	return s
}

// RunsHandler triggers runs and serves the latest one. Only one run is
// executed at a time.
type RunsHandler struct {
	exec    Executor
	running atomic.Bool

	mu     sync.RWMutex
	latest *RunSummary
}

// NewRunsHandler creates a handler around exec.
func NewRunsHandler(exec Executor) *RunsHandler {
	return &RunsHandler{exec: exec}
}

// Record stores the outcome of a run started elsewhere, such as by the scheduler.
func (h *RunsHandler) Record(outcome job.Outcome, err error) {
	s := NewRunSummary(outcome, err)

	h.mu.Lock()
	h.latest = &s
	h.mu.Unlock()
}

// Trigger handles POST /api/v1/runs. The run executes synchronously and the
// summary is returned. A run that partly failed still answers 200 with the
// failure in the error field.
func (h *RunsHandler) Trigger(c *gin.Context) {
	if !h.running.CompareAndSwap(false, true) {
		c.JSON(http.StatusConflict, gin.H{"error": "a run is already in progress"})
		return
	}
	defer h.running.Store(false)

	outcome, err := h.exec.Execute(c.Request.Context())
	h.Record(outcome, err)

	c.JSON(http.StatusOK, NewRunSummary(outcome, err))
}

// Latest handles GET /api/v1/runs/latest.
func (h *RunsHandler) Latest(c *gin.Context) {
	h.mu.RLock()
	latest := h.latest
	h.mu.RUnlock()

	if latest == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no run has completed yet"})
		return
	}

	c.JSON(http.StatusOK, latest)
}
