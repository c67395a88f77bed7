package schedule

import (
	"fmt"
	"strings"
)

// Weekday indexes the days of the week, Sunday = 0 through Saturday = 6,
// matching time.Weekday.
type Weekday int

const (
	Sunday Weekday = iota
	Monday
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
)

var longDayNames = [7]string{
	"Sunday",
	"Monday",
	"Tuesday",
	"Wednesday",
	"Thursday",
	"Friday",
	"Saturday",
}

func (d Weekday) Valid() bool {
	return d >= Sunday && d <= Saturday
}

// String returns the long English name, which is also how the app stores
// day sets in schedule documents.
func (d Weekday) String() string {
	if !d.Valid() {
		return fmt.Sprintf("Weekday(%d)", int(d))
	}
	return longDayNames[d]
}

// Short returns the three-letter abbreviation ("Mon").
func (d Weekday) Short() string {
	if !d.Valid() {
		return fmt.Sprintf("Weekday(%d)", int(d))
	}
	return longDayNames[d][:3]
}

// ParseWeekday accepts long or short English day names, case-insensitive.
func ParseWeekday(name string) (Weekday, error) {
	trimmed := strings.TrimSpace(name)
	for i, long := range longDayNames {
		if strings.EqualFold(trimmed, long) || strings.EqualFold(trimmed, long[:3]) {
			return Weekday(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown weekday %q", ErrInvalidInput, name)
}

// ParseWeekdays converts a list of stored day names into weekdays,
// preserving order and duplicates.
func ParseWeekdays(names []string) ([]Weekday, error) {
	days := make([]Weekday, 0, len(names))
	for _, name := range names {
		d, err := ParseWeekday(name)
		if err != nil {
			return nil, err
		}
		days = append(days, d)
	}
	return days, nil
}

// WeekdayNames renders a day set back into its stored long-name form.
func WeekdayNames(days []Weekday) []string {
	names := make([]string, 0, len(days))
	for _, d := range days {
		names = append(names, d.String())
	}
	return names
}
