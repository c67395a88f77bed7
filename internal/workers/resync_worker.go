package workers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"caregpt-mind/internal/schedule"
	"caregpt-mind/internal/store"
)

// Registry exposes which alarms currently hold armed firings.
type Registry interface {
	ArmedAlarms() map[string]string
}

// ResyncWorker reconciles the armed registry against the store. Alarms
// deleted or deactivated out-of-band lose their keys; active ones get a
// full cancel-then-arm pass, which also repairs any firing the dispatcher
// failed to roll forward.
type ResyncWorker struct {
	registry Registry
	store    store.Store
	syncer   *schedule.Synchronizer
	interval time.Duration
}

func NewResyncWorker(registry Registry, st store.Store, syncer *schedule.Synchronizer, interval time.Duration) *ResyncWorker {
	return &ResyncWorker{registry: registry, store: st, syncer: syncer, interval: interval}
}

func (w *ResyncWorker) Name() string { return "schedule-resync" }

func (w *ResyncWorker) Interval() time.Duration { return w.interval }

func (w *ResyncWorker) Run(ctx context.Context) error {
	var failures []error
	for alarmID, userID := range w.registry.ArmedAlarms() {
		alarm, err := w.store.GetSchedule(ctx, userID, alarmID)
		if errors.Is(err, store.ErrNotFound) {
			if _, err := w.syncer.OnDelete(ctx, schedule.Alarm{ID: alarmID, UserID: userID}); err != nil {
				failures = append(failures, fmt.Errorf("alarm %s: %w", alarmID, err))
			}
			continue
		}
		if err != nil {
			failures = append(failures, fmt.Errorf("alarm %s: %w", alarmID, err))
			continue
		}

		if !alarm.IsActive {
			if _, err := w.syncer.OnToggle(ctx, *alarm, false); err != nil {
				failures = append(failures, fmt.Errorf("alarm %s: %w", alarmID, err))
			}
			continue
		}

		res, err := w.syncer.OnEdit(ctx, *alarm, *alarm)
		if err != nil {
			failures = append(failures, fmt.Errorf("alarm %s: %w", alarmID, err))
			continue
		}
		if err := res.Err(); err != nil {
			failures = append(failures, fmt.Errorf("alarm %s: %w", alarmID, err))
		}
	}
	return errors.Join(failures...)
}
