package schedule

import (
	"fmt"
	"time"
)

// FiringPlan is one computed future firing: the weekday it covers and the
// absolute instant at which it must go off.
type FiringPlan struct {
	Day Weekday
	At  time.Time
}

// Expand computes, for every distinct weekday in days, the next instant at
// which an alarm set to tod fires, relative to now. Every returned instant
// is strictly after now: if today's slot has already passed (or is exactly
// now), that weekday's occurrence lands next week instead.
//
// Expand is pure. It must be re-run whenever an alarm becomes active, is
// edited while active, or once its nearest firing has elapsed; the results
// cover exactly one recurrence cycle and go stale after that.
func Expand(tod TimeOfDay, days []Weekday, now time.Time) ([]FiringPlan, error) {
	if err := tod.Validate(); err != nil {
		return nil, err
	}
	if len(days) == 0 {
		return nil, fmt.Errorf("%w: empty day set", ErrInvalidInput)
	}

	var seen [7]bool
	plans := make([]FiringPlan, 0, len(days))
	for _, d := range days {
		if !d.Valid() {
			return nil, fmt.Errorf("%w: weekday %d out of range", ErrInvalidInput, int(d))
		}
		if seen[d] {
			continue
		}
		seen[d] = true

		// Normalized so the remainder is never negative.
		delta := (int(d) - int(now.Weekday()) + 7) % 7
		at := time.Date(now.Year(), now.Month(), now.Day()+delta,
			tod.Hour, tod.Minute, tod.Second, 0, now.Location())
		if delta == 0 && !at.After(now) {
			// Today's slot already passed; schedule next week's occurrence.
			at = at.AddDate(0, 0, 7)
		}
		plans = append(plans, FiringPlan{Day: d, At: at})
	}
	return plans, nil
}
