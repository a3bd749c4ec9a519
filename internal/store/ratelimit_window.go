package store

import "time"

// decideWindow applies the fixed-window rule to the current record state.
// A zero resetAt (or one that has elapsed) means the record counts as
// absent and the admission opens a fresh window.
func decideWindow(count int, resetAt, now time.Time, window time.Duration, max int) (admit bool, newCount int, newResetAt time.Time) {
	if resetAt.After(now) {
		if count >= max {
			return false, count, resetAt
		}
		return true, count + 1, resetAt
	}
	return true, 1, now.Add(window)
}
