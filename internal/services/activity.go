package services

import "time"

const day = 24 * time.Hour

// DaysSince returns the number of whole days between t and now. ok is false
// when t is nil.
func DaysSince(t *time.Time, now time.Time) (days int, ok bool) {
	if t == nil {
		return 0, false
	}
	d := now.Sub(*t)
	if d < 0 {
		return 0, true
	}
	return int(d / day), true
}

// IsActive reports whether the latest submission is at most activeDays old.
// A student without submissions is inactive.
func IsActive(lastSubmission *time.Time, now time.Time, activeDays int) bool {
	days, ok := DaysSince(lastSubmission, now)
	return ok && days <= activeDays
}
