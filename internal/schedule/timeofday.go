package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeOfDay is a wall-clock time without a date or timezone. It is
// interpreted in the device's local timezone at evaluation time.
type TimeOfDay struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
	Second int `json:"second"`
}

func (t TimeOfDay) Validate() error {
	if t.Hour < 0 || t.Hour > 23 {
		return fmt.Errorf("%w: hour %d out of range", ErrInvalidInput, t.Hour)
	}
	if t.Minute < 0 || t.Minute > 59 {
		return fmt.Errorf("%w: minute %d out of range", ErrInvalidInput, t.Minute)
	}
	if t.Second < 0 || t.Second > 59 {
		return fmt.Errorf("%w: second %d out of range", ErrInvalidInput, t.Second)
	}
	return nil
}

// String renders the stored form, "15:04:05".
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

// On returns the instant at this time of day on the given calendar date,
// in that date's location.
func (t TimeOfDay) On(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour, t.Minute, t.Second, 0, date.Location())
}

// ParseTimeOfDay accepts "HH:MM:SS" or "HH:MM" (seconds default to zero).
// Anything beyond the last component makes the whole string invalid.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return TimeOfDay{}, fmt.Errorf("%w: malformed time of day %q", ErrInvalidInput, s)
	}
	nums := make([]int, len(parts))
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return TimeOfDay{}, fmt.Errorf("%w: malformed time of day %q", ErrInvalidInput, s)
		}
		nums[i] = n
	}
	t := TimeOfDay{Hour: nums[0], Minute: nums[1]}
	if len(nums) == 3 {
		t.Second = nums[2]
	}
	if err := t.Validate(); err != nil {
		return TimeOfDay{}, err
	}
	return t, nil
}
