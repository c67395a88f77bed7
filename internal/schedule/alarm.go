package schedule

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidInput marks local validation failures: malformed times, empty
// day sets, bad dates. These are caught before anything reaches the
// notification platform.
var ErrInvalidInput = errors.New("invalid input")

// Kind separates weekly alarms from one-shot calendar events.
type Kind string

const (
	KindAlarm    Kind = "alarm"
	KindCalendar Kind = "calendar"
)

// DateLayout is the stored form of a calendar event's date.
const DateLayout = "2006-01-02"

// Alarm is one schedule record. Weekly alarms carry a day set; calendar
// events carry a single absolute date and never recur. Records are owned by
// the persistence layer; the scheduling core only reads them.
type Alarm struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	Title     string    `json:"title"`
	Time      TimeOfDay `json:"time"`
	Days      []Weekday `json:"days,omitempty"`
	IsActive  bool      `json:"isActive"`
	Kind      Kind      `json:"type"`
	Date      string    `json:"date,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func (a Alarm) Validate() error {
	if a.Title == "" {
		return fmt.Errorf("%w: title must not be empty", ErrInvalidInput)
	}
	if err := a.Time.Validate(); err != nil {
		return err
	}
	switch a.Kind {
	case KindAlarm:
		if len(a.Days) == 0 {
			return fmt.Errorf("%w: alarm has no selected weekdays", ErrInvalidInput)
		}
		for _, d := range a.Days {
			if !d.Valid() {
				return fmt.Errorf("%w: weekday %d out of range", ErrInvalidInput, int(d))
			}
		}
	case KindCalendar:
		if _, err := time.Parse(DateLayout, a.Date); err != nil {
			return fmt.Errorf("%w: malformed event date %q", ErrInvalidInput, a.Date)
		}
	default:
		return fmt.Errorf("%w: unknown schedule kind %q", ErrInvalidInput, a.Kind)
	}
	return nil
}
