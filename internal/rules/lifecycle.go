package rules

import (
	"fmt"
	"time"

	"github.com/Alias1177/spacradar/models"
)

// milestoneWindow is a day-count range after IPO during which a
// lifecycle alert fires. Windows do not overlap; only the first matching
// window produces an alert.
type milestoneWindow struct {
	from, to int
	label    string
}

var milestoneWindows = []milestoneWindow{
	{12, 20, "15-day"},
	{30, 43, "1-month"},
	{55, 68, "3-month"},
}

// EvaluateLifecycle emits a milestone alert when the elapsed days since
// IPO fall inside one of the fixed windows.
func EvaluateLifecycle(symbol string, ipoDate, now time.Time) []models.AnomalyRecord {
	days := daysBetween(ipoDate, now)

	for _, w := range milestoneWindows {
		if days >= w.from && days <= w.to {
			return []models.AnomalyRecord{{
				Ticker: symbol,
				Type:   models.AnomalyLifecycle,
				Description: fmt.Sprintf("%d days since IPO (near %s milestone)",
					days, w.label),
			}}
		}
	}

	return nil
}

// daysBetween counts whole calendar days from a to b, ignoring the time
// of day on either side.
func daysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	start := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	end := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(end.Sub(start).Hours() / 24)
}
