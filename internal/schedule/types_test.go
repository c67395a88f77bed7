package schedule

import (
	"errors"
	"testing"
)

func TestParseTimeOfDay(t *testing.T) {
	cases := []struct {
		in   string
		want TimeOfDay
	}{
		{"08:30:00", TimeOfDay{Hour: 8, Minute: 30}},
		{"23:59:59", TimeOfDay{Hour: 23, Minute: 59, Second: 59}},
		{"00:00:00", TimeOfDay{}},
		{"9:15", TimeOfDay{Hour: 9, Minute: 15}},
	}
	for _, c := range cases {
		got, err := ParseTimeOfDay(c.in)
		if err != nil {
			t.Errorf("ParseTimeOfDay(%q) failed: %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("ParseTimeOfDay(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestParseTimeOfDay_Invalid(t *testing.T) {
	for _, in := range []string{"", "soon", "24:00:00", "12:60:00", "12:00:60", "-1:00:00", "08:30xyz", "08:30:00junk", "08:30:00:00"} {
		if _, err := ParseTimeOfDay(in); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("ParseTimeOfDay(%q): expected ErrInvalidInput, got %v", in, err)
		}
	}
}

func TestParseWeekday(t *testing.T) {
	cases := []struct {
		in   string
		want Weekday
	}{
		{"Sunday", Sunday},
		{"monday", Monday},
		{"Wed", Wednesday},
		{"SAT", Saturday},
		{" Friday ", Friday},
	}
	for _, c := range cases {
		got, err := ParseWeekday(c.in)
		if err != nil {
			t.Errorf("ParseWeekday(%q) failed: %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("ParseWeekday(%q) = %v, want %v", c.in, got, c.want)
		}
	}

	if _, err := ParseWeekday("Someday"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for unknown weekday, got %v", err)
	}
}

func TestAlarmValidate(t *testing.T) {
	valid := Alarm{Title: "Pills", Time: TimeOfDay{Hour: 8}, Days: []Weekday{Monday}, Kind: KindAlarm}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid alarm rejected: %v", err)
	}

	event := Alarm{Title: "Checkup", Kind: KindCalendar, Date: "2025-01-31"}
	if err := event.Validate(); err != nil {
		t.Errorf("valid event rejected: %v", err)
	}

	invalid := []Alarm{
		{Title: "", Time: TimeOfDay{Hour: 8}, Days: []Weekday{Monday}, Kind: KindAlarm},
		{Title: "x", Time: TimeOfDay{Hour: 8}, Kind: KindAlarm},
		{Title: "x", Time: TimeOfDay{Hour: 25}, Days: []Weekday{Monday}, Kind: KindAlarm},
		{Title: "x", Kind: KindCalendar, Date: "31/01/2025"},
		{Title: "x", Kind: Kind("note")},
	}
	for i, a := range invalid {
		if err := a.Validate(); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("case %d: expected ErrInvalidInput, got %v", i, err)
		}
	}
}
