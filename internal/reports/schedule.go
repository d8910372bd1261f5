package reports

import (
	"time"

	"github.com/dropDatabas3/reviewflow/internal/store"
)

// nextRun computes the following run time from now. Always strictly after
// now, so a permanently-broken report cannot be retried every cycle
// (at-most-once-per-period semantics).
func nextRun(sch store.ReportSchedule, now time.Time) time.Time {
	switch sch.Frequency {
	case store.Daily:
		return now.AddDate(0, 0, 1)
	case store.Weekly:
		return now.AddDate(0, 0, 7)
	case store.Monthly:
		return now.AddDate(0, 1, 0)
	case store.Quarterly:
		return now.AddDate(0, 3, 0)
	case store.Custom:
		days := sch.CustomDays
		if days <= 0 {
			days = 7
		}
		return now.AddDate(0, 0, days)
	default:
		return now.AddDate(0, 0, 7)
	}
}
