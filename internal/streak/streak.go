// Package streak computes consecutive-day completion streaks for habits.
package streak

import "cloud.google.com/go/civil"

// MaxWindow caps the backward walk so the computation terminates even on
// a malformed or very long-lived date set.
const MaxWindow = 365

// Current returns the number of consecutive completed days ending at
// today. A gap at today itself yields 0: the chain counts only if it
// reaches the reference date. Entries that are not valid ISO calendar
// dates are ignored.
//
// The function is pure and stateless; callers recompute it from the full
// set on every render, so toggling a day off is reflected immediately.
func Current(completedDates []string, today civil.Date) int {
	if len(completedDates) == 0 {
		return 0
	}

	done := make(map[civil.Date]bool, len(completedDates))
	for _, raw := range completedDates {
		if d, err := civil.ParseDate(raw); err == nil {
			done[d] = true
		}
	}

	count := 0
	for day := today; count < MaxWindow && done[day]; day = day.AddDays(-1) {
		count++
	}
	return count
}
