package store

import (
	"testing"

	"caregpt-mind/internal/schedule"
)

func TestAlarmFromDoc(t *testing.T) {
	data := map[string]interface{}{
		"title":     "Blood pressure pills",
		"time":      "08:30:00",
		"days":      []interface{}{"Monday", "Wednesday", "Friday"},
		"isActive":  true,
		"type":      "alarm",
		"createdAt": "2024-07-01T10:00:00Z",
	}

	alarm, err := alarmFromDoc("user-1", "doc-1", data)
	if err != nil {
		t.Fatalf("alarmFromDoc failed: %v", err)
	}
	if alarm.ID != "doc-1" || alarm.UserID != "user-1" {
		t.Errorf("identity lost: %+v", alarm)
	}
	if alarm.Time != (schedule.TimeOfDay{Hour: 8, Minute: 30}) {
		t.Errorf("time decoded as %v", alarm.Time)
	}
	if len(alarm.Days) != 3 || alarm.Days[1] != schedule.Wednesday {
		t.Errorf("days decoded as %v", alarm.Days)
	}
	if !alarm.IsActive || alarm.Kind != schedule.KindAlarm {
		t.Errorf("flags decoded as active=%v kind=%v", alarm.IsActive, alarm.Kind)
	}
	if alarm.CreatedAt.IsZero() {
		t.Error("createdAt ISO string not decoded")
	}
}

func TestAlarmFromDoc_BadDayName(t *testing.T) {
	data := map[string]interface{}{
		"title": "x",
		"time":  "08:00:00",
		"days":  []interface{}{"Moonday"},
	}
	if _, err := alarmFromDoc("user-1", "doc-1", data); err == nil {
		t.Error("expected error for unknown day name")
	}
}

func TestScheduleUpdateColumns(t *testing.T) {
	assignments, args, err := scheduleUpdateColumns(map[string]interface{}{
		"isActive": false,
	})
	if err != nil {
		t.Fatalf("scheduleUpdateColumns failed: %v", err)
	}
	if len(assignments) != 1 || assignments[0] != "is_active = $1" {
		t.Errorf("unexpected assignments %v", assignments)
	}
	if len(args) != 1 || args[0] != false {
		t.Errorf("unexpected args %v", args)
	}
}

func TestScheduleUpdateColumns_DaysJoined(t *testing.T) {
	_, args, err := scheduleUpdateColumns(map[string]interface{}{
		"days": []string{"Monday", "Tuesday"},
	})
	if err != nil {
		t.Fatalf("scheduleUpdateColumns failed: %v", err)
	}
	if args[0] != "Monday,Tuesday" {
		t.Errorf("days not joined for storage: %v", args[0])
	}
}

func TestScheduleUpdateColumns_RejectsUnknownField(t *testing.T) {
	if _, _, err := scheduleUpdateColumns(map[string]interface{}{"owner": "x"}); err == nil {
		t.Error("expected error for unknown field")
	}
}
