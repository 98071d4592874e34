package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/coupon-crawler/internal/analytics"
	"github.com/jonesrussell/coupon-crawler/internal/api"
	"github.com/jonesrussell/coupon-crawler/internal/domain"
	"github.com/jonesrussell/coupon-crawler/internal/job"
)

type stubExecutor struct {
	outcome job.Outcome
	err     error
	block   chan struct{}
	entered chan struct{}
}

func (s *stubExecutor) Execute(context.Context) (job.Outcome, error) {
	if s.entered != nil {
		close(s.entered)
	}
	if s.block != nil {
		<-s.block
	}
	return s.outcome, s.err
}

func sampleOutcome() job.Outcome {
	return job.Outcome{
		Run:    domain.ScrapeRunResult{RunID: "run-7", FinishedAt: time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)},
		Report: analytics.Report{RunID: "run-7", TotalFound: 5, TotalAccepted: 2},
		New: []domain.CourseCandidate{
			{Title: "Go", Link: "https://www.udemy.com/course/go/", Coupon: "GO1"},
		},
		Saved:     []domain.CourseCandidate{{Link: "https://www.udemy.com/course/go/"}},
		Published: 1,
	}
}

func newRouter(exec api.Executor) (*gin.Engine, *api.RunsHandler) {
	handler := api.NewRunsHandler(exec)
	router := api.NewRouter(nil, handler)
	gin.SetMode(gin.TestMode)
	return router, handler
}

func serve(router http.Handler, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(method, path, http.NoBody))
	return w
}

func TestHealth(t *testing.T) {
	router, _ := newRouter(&stubExecutor{})

	w := serve(router, http.MethodGet, "/health")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestLatest_NotFoundBeforeFirstRun(t *testing.T) {
	router, _ := newRouter(&stubExecutor{})

	w := serve(router, http.MethodGet, "/api/v1/runs/latest")

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTrigger_ReturnsSummaryAndUpdatesLatest(t *testing.T) {
	router, _ := newRouter(&stubExecutor{outcome: sampleOutcome()})

	w := serve(router, http.MethodPost, "/api/v1/runs")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var summary api.RunSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.Equal(t, "run-7", summary.RunID)
	assert.Equal(t, 5, summary.Report.TotalFound)
	assert.Equal(t, 1, summary.Saved)
	assert.Equal(t, 1, summary.Published)
	assert.Empty(t, summary.Error)

	latest := serve(router, http.MethodGet, "/api/v1/runs/latest")
	require.Equal(t, http.StatusOK, latest.Code)
	assert.JSONEq(t, w.Body.String(), latest.Body.String())
}

func TestTrigger_PartialFailureIsReported(t *testing.T) {
	router, _ := newRouter(&stubExecutor{outcome: sampleOutcome(), err: errors.New("publish courses: redis down")})

	w := serve(router, http.MethodPost, "/api/v1/runs")
	require.Equal(t, http.StatusOK, w.Code)

	var summary api.RunSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.Equal(t, "publish courses: redis down", summary.Error)
}

func TestTrigger_RejectsConcurrentRuns(t *testing.T) {
	exec := &stubExecutor{outcome: sampleOutcome(), block: make(chan struct{}), entered: make(chan struct{})}
	router, _ := newRouter(exec)

	first := make(chan *httptest.ResponseRecorder, 1)
	go func() { first <- serve(router, http.MethodPost, "/api/v1/runs") }()
	<-exec.entered

	second := serve(router, http.MethodPost, "/api/v1/runs")
	close(exec.block)

	assert.Equal(t, http.StatusConflict, second.Code)
	assert.Equal(t, http.StatusOK, (<-first).Code)
}

func TestRecord_ServesScheduledRuns(t *testing.T) {
	router, handler := newRouter(&stubExecutor{})

	handler.Record(sampleOutcome(), nil)

	w := serve(router, http.MethodGet, "/api/v1/runs/latest")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "run-7")
}
