package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Synchronizer reconciles an alarm's persisted state with the set of
// firings armed on the notification platform. It never touches alarm
// storage; the caller persists the record and then feeds it in here.
type Synchronizer struct {
	platform Platform
	now      func() time.Time
}

func NewSynchronizer(platform Platform) *Synchronizer {
	return &Synchronizer{platform: platform, now: time.Now}
}

// ArmOutcome is the result of one Arm call. Err is nil on success.
type ArmOutcome struct {
	Key Key
	At  time.Time
	Err error
}

// CancelOutcome is the result of one Cancel call.
type CancelOutcome struct {
	Key Key
	Err error
}

// SyncResult aggregates the per-key outcomes of one lifecycle operation.
// One failed key does not abort the rest; callers inspect Err for the
// combined failure.
type SyncResult struct {
	AlarmID   string
	Armed     []ArmOutcome
	Cancelled []CancelOutcome
}

// Err joins every per-key failure, or nil if all calls succeeded.
func (r *SyncResult) Err() error {
	var errs []error
	for _, c := range r.Cancelled {
		if c.Err != nil {
			errs = append(errs, fmt.Errorf("cancel %s: %w", c.Key, c.Err))
		}
	}
	for _, a := range r.Armed {
		if a.Err != nil {
			errs = append(errs, fmt.Errorf("arm %s: %w", a.Key, a.Err))
		}
	}
	return errors.Join(errs...)
}

// ArmedKeys returns the keys that were successfully armed.
func (r *SyncResult) ArmedKeys() []Key {
	keys := make([]Key, 0, len(r.Armed))
	for _, a := range r.Armed {
		if a.Err == nil {
			keys = append(keys, a.Key)
		}
	}
	return keys
}

// OnSave arms one firing per selected weekday for an active alarm, or
// nothing for an inactive one. Validation happens before any platform
// call, so invalid input never arms a partial plan.
func (s *Synchronizer) OnSave(ctx context.Context, alarm Alarm) (*SyncResult, error) {
	if err := alarm.Validate(); err != nil {
		return nil, err
	}
	res := &SyncResult{AlarmID: alarm.ID}
	if !alarm.IsActive {
		return res, nil
	}
	plans, err := s.plansFor(alarm)
	if err != nil {
		return nil, err
	}
	s.armPlans(ctx, alarm, plans, res)
	return res, nil
}

// OnEdit cancels every possible key of the previous version, then behaves
// as OnSave for the new one. Cancelling across all seven weekday keys,
// rather than diffing the day sets, means a shrunken day set cannot leak a
// stale firing. The id is stable across edits.
func (s *Synchronizer) OnEdit(ctx context.Context, old, updated Alarm) (*SyncResult, error) {
	if err := updated.Validate(); err != nil {
		// Fail before the cancel fan-out so the previously armed state
		// survives intact.
		return nil, err
	}
	var plans []FiringPlan
	if updated.IsActive {
		var err error
		plans, err = s.plansFor(updated)
		if err != nil {
			return nil, err
		}
	}
	res := &SyncResult{AlarmID: old.ID}
	s.cancelAllKeys(ctx, old.ID, res)
	if updated.IsActive {
		s.armPlans(ctx, updated, plans, res)
	}
	return res, nil
}

// OnToggle re-arms the full schedule when an alarm turns active and
// cancels every key when it turns inactive.
func (s *Synchronizer) OnToggle(ctx context.Context, alarm Alarm, active bool) (*SyncResult, error) {
	if active {
		alarm.IsActive = true
		return s.OnSave(ctx, alarm)
	}
	res := &SyncResult{AlarmID: alarm.ID}
	s.cancelAllKeys(ctx, alarm.ID, res)
	return res, nil
}

// OnDelete cancels every key for the alarm. It does not validate the
// record: even a malformed alarm must still be disarmable.
func (s *Synchronizer) OnDelete(ctx context.Context, alarm Alarm) (*SyncResult, error) {
	res := &SyncResult{AlarmID: alarm.ID}
	s.cancelAllKeys(ctx, alarm.ID, res)
	return res, nil
}

func (s *Synchronizer) plansFor(alarm Alarm) ([]FiringPlan, error) {
	now := s.now()
	if alarm.Kind == KindCalendar {
		return eventPlan(alarm, now), nil
	}
	return Expand(alarm.Time, alarm.Days, now)
}

// eventPlan computes a calendar event's single firing, keyed by the date's
// weekday. A past-dated event yields no plan rather than an error.
func eventPlan(alarm Alarm, now time.Time) []FiringPlan {
	date, err := time.ParseInLocation(DateLayout, alarm.Date, now.Location())
	if err != nil {
		return nil
	}
	at := alarm.Time.On(date)
	if !at.After(now) {
		return nil
	}
	return []FiringPlan{{Day: Weekday(at.Weekday()), At: at}}
}

func (s *Synchronizer) armPlans(ctx context.Context, alarm Alarm, plans []FiringPlan, res *SyncResult) {
	for _, p := range plans {
		key := Key{AlarmID: alarm.ID, Day: p.Day}
		payload := Payload{
			Title:  "Reminder",
			Body:   fmt.Sprintf("%s alarm at %s", alarm.Title, alarm.Time),
			UserID: alarm.UserID,
		}
		err := s.platform.Arm(ctx, key, p.At, payload)
		res.Armed = append(res.Armed, ArmOutcome{Key: key, At: p.At, Err: err})
	}
}

// cancelAllKeys issues cancels for every weekday slot of one alarm.
// Cancellation completes before any re-arm on the same alarm, so a stale
// and a fresh firing never coexist under one key.
func (s *Synchronizer) cancelAllKeys(ctx context.Context, alarmID string, res *SyncResult) {
	for d := Sunday; d <= Saturday; d++ {
		key := Key{AlarmID: alarmID, Day: d}
		err := s.platform.Cancel(ctx, key)
		res.Cancelled = append(res.Cancelled, CancelOutcome{Key: key, Err: err})
	}
}
