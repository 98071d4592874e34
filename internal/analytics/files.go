package analytics

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jonesrussell/coupon-crawler/internal/domain"
)

const (
	filePrefix      = "scraping_report"
	timestampLayout = "20060102_150405"
	dirPerm         = 0o755
	filePerm        = 0o644
)

// Files are the paths written by WriteFiles. Skipped is empty when nothing
// was skipped.
type Files struct {
	JSON    string
	Courses string
	Skipped string
}

type fileReport struct {
	Report  Report                   `json:"report"`
	Courses []domain.CourseCandidate `json:"courses"`
	Skipped []domain.SkipRecord      `json:"skipped_courses"`
}

// WriteFiles writes the report and run details to dir as one JSON file and
// CSV files for the accepted and skipped courses. Names carry the run start
// time.
func WriteFiles(dir string, result domain.ScrapeRunResult, r Report) (Files, error) {
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return Files{}, fmt.Errorf("failed to create report directory: %w", err)
	}

	stamp := result.StartedAt.Format(timestampLayout)
	files := Files{
		JSON:    filepath.Join(dir, fmt.Sprintf("%s_%s.json", filePrefix, stamp)),
		Courses: filepath.Join(dir, fmt.Sprintf("%s_%s.csv", filePrefix, stamp)),
	}

	body, err := json.MarshalIndent(fileReport{Report: r, Courses: result.Candidates, Skipped: result.Skipped}, "", "  ")
	if err != nil {
		return Files{}, fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(files.JSON, body, filePerm); err != nil {
		return Files{}, fmt.Errorf("failed to write report: %w", err)
	}

	courseRows := make([][]string, 0, len(result.Candidates))
	for _, c := range result.Candidates {
		courseRows = append(courseRows, []string{
			c.Title, c.Link, c.Coupon, c.LinkWithCoupon(), c.Source, c.DateFound.Format(time.RFC3339),
		})
	}
	header := []string{"title", "link", "coupon_code", "link_with_coupon", "source", "date_found"}
	if err := writeCSV(files.Courses, header, courseRows); err != nil {
		return Files{}, err
	}

	if len(result.Skipped) == 0 {
		return files, nil
	}

	files.Skipped = filepath.Join(dir, fmt.Sprintf("%s_skipped_%s.csv", filePrefix, stamp))
	skipRows := make([][]string, 0, len(result.Skipped))
	for i, s := range result.Skipped {
		skipRows = append(skipRows, []string{strconv.Itoa(i + 1), s.Title, s.Link, s.Source, string(s.Reason)})
	}
	if err := writeCSV(files.Skipped, []string{"n", "title", "link", "source", "reason"}, skipRows); err != nil {
		return Files{}, err
	}

	return files, nil
}

func writeCSV(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	return f.Close()
}
