// Package analytics summarizes scrape runs and renders the summary for
// operators.
package analytics

import (
	"fmt"
	"time"

	"github.com/jonesrussell/coupon-crawler/internal/domain"
)

// lowSuccessRate is the global rate in percent below which a run is flagged.
const lowSuccessRate = 50.0

// SourceReport is the breakdown for one adapter.
type SourceReport struct {
	Name  string              `json:"name"`
	Stats domain.AdapterStats `json:"stats"`
	// SuccessRate is Added as a percentage of TotalFound.
	SuccessRate float64 `json:"success_rate"`
}

// Report aggregates one run.
type Report struct {
	RunID           string         `json:"run_id"`
	StartedAt       time.Time      `json:"started_at"`
	FinishedAt      time.Time      `json:"finished_at"`
	Duration        time.Duration  `json:"duration"`
	TotalFound      int            `json:"total_found"`
	TotalAccepted   int            `json:"total_accepted"`
	TotalSkipped    int            `json:"total_skipped"`
	TotalErrors     int            `json:"total_errors"`
	SuccessRate     float64        `json:"success_rate"`
	Sources         []SourceReport `json:"sources"`
	SkipReasons     map[string]int `json:"skip_reasons"`
	Recommendations []string       `json:"recommendations,omitempty"`
}

// Summarize aggregates result. It has no side effects.
func Summarize(result domain.ScrapeRunResult) Report {
	r := Report{
		RunID:         result.RunID,
		StartedAt:     result.StartedAt,
		FinishedAt:    result.FinishedAt,
		Duration:      result.Duration(),
		TotalAccepted: len(result.Candidates),
		TotalSkipped:  len(result.Skipped),
		Sources:       make([]SourceReport, 0, len(result.Order)),
		SkipReasons:   make(map[string]int),
	}

	for _, name := range result.Order {
		stats := result.Stats[name]
		r.TotalFound += stats.TotalFound
		r.TotalErrors += stats.Errors
		r.Sources = append(r.Sources, SourceReport{
			Name:        name,
			Stats:       stats,
			SuccessRate: rate(stats.Added, stats.TotalFound),
		})
	}

	for _, s := range result.Skipped {
		r.SkipReasons[string(s.Reason)]++
	}

	r.SuccessRate = rate(r.TotalAccepted, r.TotalFound)
	r.Recommendations = recommend(r)

	return r
}

func rate(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

func recommend(r Report) []string {
	var out []string
	if r.TotalErrors > 0 {
		out = append(out, fmt.Sprintf("%d errors detected, check network connectivity and site availability", r.TotalErrors))
	}
	for _, s := range r.Sources {
		if s.Stats.Unavailable > 0 {
			out = append(out, fmt.Sprintf("source %s was unavailable and skipped", s.Name))
		}
	}
	if r.TotalFound > 0 && r.SuccessRate < lowSuccessRate {
		out = append(out, fmt.Sprintf("low success rate (%.1f%%), consider adjusting scraping parameters", r.SuccessRate))
	}
	if r.TotalAccepted == 0 {
		out = append(out, "no new courses found")
	}
	return out
}
