package schedule

import (
	"context"
	"errors"
	"testing"
	"time"
)

type armedFiring struct {
	at      time.Time
	payload Payload
}

// fakePlatform records armed firings in memory and can be told to refuse
// specific keys.
type fakePlatform struct {
	armed    map[Key]armedFiring
	failArm  map[Key]error
	armCalls int
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{armed: make(map[Key]armedFiring), failArm: make(map[Key]error)}
}

func (p *fakePlatform) Arm(_ context.Context, key Key, at time.Time, payload Payload) error {
	p.armCalls++
	if err := p.failArm[key]; err != nil {
		return err
	}
	p.armed[key] = armedFiring{at: at, payload: payload}
	return nil
}

func (p *fakePlatform) Cancel(_ context.Context, key Key) error {
	delete(p.armed, key)
	return nil
}

func (p *fakePlatform) CancelAll(_ context.Context) error {
	p.armed = make(map[Key]armedFiring)
	return nil
}

func testSynchronizer(p Platform, now time.Time) *Synchronizer {
	s := NewSynchronizer(p)
	s.now = func() time.Time { return now }
	return s
}

func weeklyAlarm(id string, active bool, days ...Weekday) Alarm {
	return Alarm{
		ID:       id,
		UserID:   "user-1",
		Title:    "Vitamin D",
		Time:     TimeOfDay{Hour: 8},
		Days:     days,
		IsActive: active,
		Kind:     KindAlarm,
	}
}

func TestOnSave_InactiveArmsNothing(t *testing.T) {
	platform := newFakePlatform()
	sync := testSynchronizer(platform, wednesday(9, 0))

	res, err := sync.OnSave(context.Background(), weeklyAlarm("a1", false, Monday))
	if err != nil {
		t.Fatalf("OnSave failed: %v", err)
	}
	if len(res.Armed) != 0 || len(platform.armed) != 0 {
		t.Errorf("inactive alarm armed %d firings", len(platform.armed))
	}
}

func TestOnSave_ArmsOneKeyPerDay(t *testing.T) {
	platform := newFakePlatform()
	sync := testSynchronizer(platform, wednesday(9, 0))

	res, err := sync.OnSave(context.Background(), weeklyAlarm("a1", true, Monday, Wednesday, Friday))
	if err != nil {
		t.Fatalf("OnSave failed: %v", err)
	}
	if res.Err() != nil {
		t.Fatalf("unexpected sync failure: %v", res.Err())
	}
	if len(platform.armed) != 3 {
		t.Fatalf("expected 3 armed keys, got %d", len(platform.armed))
	}
	for key, f := range platform.armed {
		if key.AlarmID != "a1" {
			t.Errorf("armed key %s for wrong alarm", key)
		}
		if f.payload.Body != "Vitamin D alarm at 08:00:00" {
			t.Errorf("unexpected payload body %q", f.payload.Body)
		}
	}
}

func TestOnSave_TwiceIsIdempotent(t *testing.T) {
	platform := newFakePlatform()
	sync := testSynchronizer(platform, wednesday(9, 0))
	alarm := weeklyAlarm("a1", true, Monday, Tuesday)

	if _, err := sync.OnSave(context.Background(), alarm); err != nil {
		t.Fatalf("first OnSave failed: %v", err)
	}
	first := len(platform.armed)
	if _, err := sync.OnSave(context.Background(), alarm); err != nil {
		t.Fatalf("second OnSave failed: %v", err)
	}

	if len(platform.armed) != first {
		t.Errorf("re-save changed armed key count: %d -> %d", first, len(platform.armed))
	}
}

func TestOnEdit_RemovesStaleDayKeys(t *testing.T) {
	platform := newFakePlatform()
	sync := testSynchronizer(platform, wednesday(9, 0))

	old := weeklyAlarm("a1", true, Monday, Tuesday)
	if _, err := sync.OnSave(context.Background(), old); err != nil {
		t.Fatalf("OnSave failed: %v", err)
	}

	updated := weeklyAlarm("a1", true, Tuesday)
	res, err := sync.OnEdit(context.Background(), old, updated)
	if err != nil {
		t.Fatalf("OnEdit failed: %v", err)
	}
	if res.Err() != nil {
		t.Fatalf("unexpected sync failure: %v", res.Err())
	}

	if len(platform.armed) != 1 {
		t.Fatalf("expected exactly 1 armed key after edit, got %d", len(platform.armed))
	}
	if _, ok := platform.armed[Key{AlarmID: "a1", Day: Tuesday}]; !ok {
		t.Errorf("surviving key is not Tuesday: %v", platform.armed)
	}
}

func TestOnEdit_InvalidUpdateLeavesArmedStateUntouched(t *testing.T) {
	platform := newFakePlatform()
	sync := testSynchronizer(platform, wednesday(9, 0))

	old := weeklyAlarm("a1", true, Monday)
	if _, err := sync.OnSave(context.Background(), old); err != nil {
		t.Fatalf("OnSave failed: %v", err)
	}

	bad := weeklyAlarm("a1", true) // no days
	if _, err := sync.OnEdit(context.Background(), old, bad); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if len(platform.armed) != 1 {
		t.Errorf("failed edit disturbed armed state: %d keys", len(platform.armed))
	}
}

func TestOnEdit_InactiveUpdateSkipsExpansion(t *testing.T) {
	platform := newFakePlatform()
	sync := NewSynchronizer(platform)
	clockReads := 0
	sync.now = func() time.Time {
		clockReads++
		return wednesday(9, 0)
	}

	old := weeklyAlarm("a1", true, Monday)
	if _, err := sync.OnSave(context.Background(), old); err != nil {
		t.Fatalf("OnSave failed: %v", err)
	}

	clockReads = 0
	res, err := sync.OnEdit(context.Background(), old, weeklyAlarm("a1", false, Monday))
	if err != nil {
		t.Fatalf("OnEdit failed: %v", err)
	}
	if clockReads != 0 {
		t.Errorf("deactivating edit expanded firings anyway (%d clock reads)", clockReads)
	}
	if len(res.Armed) != 0 || len(platform.armed) != 0 {
		t.Errorf("deactivating edit left %d armed keys", len(platform.armed))
	}
}

func TestOnToggle_OffCancelsEverything(t *testing.T) {
	platform := newFakePlatform()
	sync := testSynchronizer(platform, wednesday(9, 0))

	alarm := weeklyAlarm("a1", true, Monday, Friday, Saturday)
	if _, err := sync.OnSave(context.Background(), alarm); err != nil {
		t.Fatalf("OnSave failed: %v", err)
	}

	res, err := sync.OnToggle(context.Background(), alarm, false)
	if err != nil {
		t.Fatalf("OnToggle failed: %v", err)
	}
	if len(res.Cancelled) != 7 {
		t.Errorf("expected cancels for all 7 weekday keys, got %d", len(res.Cancelled))
	}
	if len(platform.armed) != 0 {
		t.Errorf("toggle-off left %d armed keys", len(platform.armed))
	}
}

func TestOnToggle_OnArmsRegardlessOfStoredFlag(t *testing.T) {
	platform := newFakePlatform()
	sync := testSynchronizer(platform, wednesday(9, 0))

	alarm := weeklyAlarm("a1", false, Sunday)
	res, err := sync.OnToggle(context.Background(), alarm, true)
	if err != nil {
		t.Fatalf("OnToggle failed: %v", err)
	}
	if len(res.ArmedKeys()) != 1 || len(platform.armed) != 1 {
		t.Errorf("toggle-on armed %d keys, expected 1", len(platform.armed))
	}
}

func TestOnDelete_LeavesZeroKeys(t *testing.T) {
	platform := newFakePlatform()
	sync := testSynchronizer(platform, wednesday(9, 0))

	alarm := weeklyAlarm("a1", true, Monday, Tuesday, Wednesday, Thursday)
	if _, err := sync.OnSave(context.Background(), alarm); err != nil {
		t.Fatalf("OnSave failed: %v", err)
	}
	if _, err := sync.OnDelete(context.Background(), alarm); err != nil {
		t.Fatalf("OnDelete failed: %v", err)
	}
	if len(platform.armed) != 0 {
		t.Errorf("delete left %d armed keys", len(platform.armed))
	}
}

func TestOnSave_PartialFailureSurfacesAndContinues(t *testing.T) {
	platform := newFakePlatform()
	platform.failArm[Key{AlarmID: "a1", Day: Friday}] = ErrPermissionDenied
	sync := testSynchronizer(platform, wednesday(9, 0))

	res, err := sync.OnSave(context.Background(), weeklyAlarm("a1", true, Monday, Friday, Saturday))
	if err != nil {
		t.Fatalf("OnSave failed outright: %v", err)
	}
	if !errors.Is(res.Err(), ErrPermissionDenied) {
		t.Errorf("aggregate result does not surface the failure: %v", res.Err())
	}
	if len(res.ArmedKeys()) != 2 {
		t.Errorf("expected 2 successful arms despite the failure, got %d", len(res.ArmedKeys()))
	}
	if len(platform.armed) != 2 {
		t.Errorf("expected remaining plans to still be attempted, got %d armed", len(platform.armed))
	}
}

func TestOnSave_CalendarEventArmsSingleFiring(t *testing.T) {
	platform := newFakePlatform()
	now := wednesday(9, 0)
	sync := testSynchronizer(platform, now)

	event := Alarm{
		ID:       "e1",
		UserID:   "user-1",
		Title:    "Doctor visit",
		Time:     TimeOfDay{Hour: 14, Minute: 30},
		IsActive: true,
		Kind:     KindCalendar,
		Date:     "2024-07-12", // the Friday after now
	}
	res, err := sync.OnSave(context.Background(), event)
	if err != nil {
		t.Fatalf("OnSave failed: %v", err)
	}
	if len(res.Armed) != 1 {
		t.Fatalf("expected 1 firing for a calendar event, got %d", len(res.Armed))
	}
	got := res.Armed[0]
	if got.Key.Day != Friday {
		t.Errorf("expected Friday key, got %s", got.Key.Day)
	}
	want := time.Date(2024, 7, 12, 14, 30, 0, 0, time.UTC)
	if !got.At.Equal(want) {
		t.Errorf("expected firing at %v, got %v", want, got.At)
	}
}

func TestOnSave_PastCalendarEventArmsNothing(t *testing.T) {
	platform := newFakePlatform()
	sync := testSynchronizer(platform, wednesday(9, 0))

	event := Alarm{
		ID:       "e1",
		UserID:   "user-1",
		Title:    "Missed it",
		IsActive: true,
		Kind:     KindCalendar,
		Date:     "2024-07-01",
	}
	res, err := sync.OnSave(context.Background(), event)
	if err != nil {
		t.Fatalf("OnSave failed: %v", err)
	}
	if len(res.Armed) != 0 || len(platform.armed) != 0 {
		t.Errorf("past event armed %d firings", len(platform.armed))
	}
}

func TestOnSave_InvalidAlarmNeverReachesPlatform(t *testing.T) {
	platform := newFakePlatform()
	sync := testSynchronizer(platform, wednesday(9, 0))

	bad := Alarm{ID: "a1", Title: "", Kind: KindAlarm, IsActive: true, Days: []Weekday{Monday}}
	if _, err := sync.OnSave(context.Background(), bad); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if platform.armCalls != 0 {
		t.Errorf("validation failure still reached the platform (%d calls)", platform.armCalls)
	}
}
