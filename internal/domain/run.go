package domain

import "time"

// ScrapeRunResult is the outcome of one orchestrated run.
type ScrapeRunResult struct {
	RunID      string                  `json:"run_id"`
	StartedAt  time.Time               `json:"started_at"`
	FinishedAt time.Time               `json:"finished_at"`
	Order      []string                `json:"order"`
	Candidates []CourseCandidate       `json:"candidates"`
	Stats      map[string]AdapterStats `json:"stats"`
	Skipped    []SkipRecord            `json:"skipped"`
}

// Duration is the wall-clock time the run took.
func (r ScrapeRunResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
