package analytics

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
)

// RenderTable writes the per-source breakdown and the run totals to w.
func RenderTable(w io.Writer, r Report) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("Scrape run " + r.RunID)

	t.AppendHeader(table.Row{
		"Source", "Found", "Added", "Dup Link", "Dup Coupon", "No Coupon",
		"Invalid", "Not Free", "Errors", "Timeouts", "Unverified", "Success",
	})
	for _, s := range r.Sources {
		name := s.Name
		if s.Stats.Unavailable > 0 {
			name += " (unavailable)"
		}
		t.AppendRow(table.Row{
			name,
			s.Stats.TotalFound,
			s.Stats.Added,
			s.Stats.SkippedDuplicateLink,
			s.Stats.SkippedDuplicateCoupon,
			s.Stats.SkippedNoCoupon,
			s.Stats.SkippedInvalidData,
			s.Stats.SkippedNotFree,
			s.Stats.Errors,
			s.Stats.Timeouts,
			s.Stats.Unverified,
			percent(s.SuccessRate),
		})
	}
	t.AppendFooter(table.Row{
		"Total", r.TotalFound, r.TotalAccepted, "", "", "", "", "", r.TotalErrors, "", "", percent(r.SuccessRate),
	})
	t.Render()

	for _, rec := range r.Recommendations {
		_, _ = fmt.Fprintf(w, "! %s\n", rec)
	}
}

func percent(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}
