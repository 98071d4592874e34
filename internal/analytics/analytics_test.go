package analytics_test

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/coupon-crawler/internal/analytics"
	"github.com/jonesrussell/coupon-crawler/internal/domain"
)

var started = time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

func sampleRun() domain.ScrapeRunResult {
	return domain.ScrapeRunResult{
		RunID:      "run-1",
		StartedAt:  started,
		FinishedAt: started.Add(90 * time.Second),
		Order:      []string{"discudemy", "realdiscount"},
		Candidates: []domain.CourseCandidate{
			{Title: "Go", Link: "https://www.udemy.com/course/go/", Coupon: "GO1", Source: "discudemy", DateFound: started},
			{Title: "Rust", Link: "https://www.udemy.com/course/rust/?couponCode=RS", Coupon: "RS", Source: "realdiscount", DateFound: started},
		},
		Stats: map[string]domain.AdapterStats{
			"discudemy":    {TotalFound: 4, Added: 1, SkippedNoCoupon: 2, SkippedDuplicateLink: 1, Errors: 1},
			"realdiscount": {TotalFound: 4, Added: 1, SkippedNotFree: 3, Unverified: 1},
		},
		Skipped: []domain.SkipRecord{
			{Title: "A", Source: "discudemy", Reason: domain.SkipNoCoupon},
			{Title: "B", Source: "discudemy", Reason: domain.SkipNoCoupon},
			{Title: "C", Source: "discudemy", Reason: domain.SkipDuplicateLink},
			{Title: "D", Source: "realdiscount", Reason: domain.SkipNotFree},
		},
	}
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	r := analytics.Summarize(sampleRun())

	assert.Equal(t, "run-1", r.RunID)
	assert.Equal(t, 90*time.Second, r.Duration)
	assert.Equal(t, 8, r.TotalFound)
	assert.Equal(t, 2, r.TotalAccepted)
	assert.Equal(t, 4, r.TotalSkipped)
	assert.Equal(t, 1, r.TotalErrors)
	assert.InDelta(t, 25.0, r.SuccessRate, 0.001)

	require.Len(t, r.Sources, 2)
	assert.Equal(t, "discudemy", r.Sources[0].Name)
	assert.InDelta(t, 25.0, r.Sources[0].SuccessRate, 0.001)
	assert.Equal(t, 3, r.Sources[1].Stats.SkippedNotFree)

	assert.Equal(t, map[string]int{"no_coupon": 2, "duplicate_link": 1, "not_free": 1}, r.SkipReasons)
	assert.Len(t, r.Recommendations, 2)
}

func TestSummarize_EmptyRun(t *testing.T) {
	t.Parallel()

	r := analytics.Summarize(domain.ScrapeRunResult{})

	assert.Zero(t, r.TotalFound)
	assert.Zero(t, r.SuccessRate)
	assert.Empty(t, r.Sources)
	assert.Equal(t, []string{"no new courses found"}, r.Recommendations)
}

func TestSummarize_FlagsUnavailableSource(t *testing.T) {
	t.Parallel()

	r := analytics.Summarize(domain.ScrapeRunResult{
		Order: []string{"realdiscount"},
		Stats: map[string]domain.AdapterStats{"realdiscount": {Unavailable: 1}},
	})

	assert.Contains(t, r.Recommendations, "source realdiscount was unavailable and skipped")
}

func TestRenderTable(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	analytics.RenderTable(&buf, analytics.Summarize(sampleRun()))

	out := buf.String()
	assert.Contains(t, out, "discudemy")
	assert.Contains(t, out, "realdiscount")
	assert.Contains(t, out, "25.0%")
	assert.Contains(t, out, "run-1")
}

func TestWriteFiles(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "reports")
	run := sampleRun()

	files, err := analytics.WriteFiles(dir, run, analytics.Summarize(run))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "scraping_report_20240301_120000.json"), files.JSON)

	body, err := os.ReadFile(files.JSON)
	require.NoError(t, err)
	var decoded struct {
		Report  analytics.Report         `json:"report"`
		Courses []domain.CourseCandidate `json:"courses"`
	}
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, 8, decoded.Report.TotalFound)
	assert.Len(t, decoded.Courses, 2)

	rows := readCSV(t, files.Courses)
	require.Len(t, rows, 3)
	assert.Equal(t, "link_with_coupon", rows[0][3])
	assert.Equal(t, "https://www.udemy.com/course/go/?couponCode=GO1", rows[1][3])
	assert.Equal(t, "https://www.udemy.com/course/rust/?couponCode=RS", rows[2][3])

	skipped := readCSV(t, files.Skipped)
	require.Len(t, skipped, 5)
	assert.Equal(t, []string{"4", "D", "", "realdiscount", "not_free"}, skipped[4])
}

func TestWriteFiles_NoSkipped(t *testing.T) {
	t.Parallel()

	run := sampleRun()
	run.Skipped = nil

	files, err := analytics.WriteFiles(t.TempDir(), run, analytics.Summarize(run))
	require.NoError(t, err)
	assert.Empty(t, files.Skipped)
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	return rows
}
