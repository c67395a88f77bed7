package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"caregpt-mind/internal/feed"
	"caregpt-mind/internal/schedule"
	"caregpt-mind/internal/store"
)

// Sender delivers one fired reminder to a device token.
type Sender interface {
	SendReminder(ctx context.Context, deviceToken, title, body string) error
}

// Firing is one armed notification pending delivery.
type Firing struct {
	Key     schedule.Key
	At      time.Time
	Payload schedule.Payload
}

// Dispatcher is the in-process notification platform: it holds the armed
// firings in a registry and pumps due ones out through FCM and the
// websocket feed. It implements schedule.Platform.
type Dispatcher struct {
	mu    sync.Mutex
	armed map[schedule.Key]Firing

	cron   *cron.Cron
	sender Sender
	store  store.Store
	hub    *feed.Hub
	syncer *schedule.Synchronizer
	now    func() time.Time
}

func New(sender Sender, st store.Store, hub *feed.Hub) *Dispatcher {
	return &Dispatcher{
		armed:  make(map[schedule.Key]Firing),
		cron:   cron.New(cron.WithSeconds()),
		sender: sender,
		store:  st,
		hub:    hub,
		now:    time.Now,
	}
}

// BindSynchronizer wires the synchronizer used to roll weekly schedules
// forward after a firing. The synchronizer itself arms through this
// dispatcher, so the two are bound after construction.
func (d *Dispatcher) BindSynchronizer(s *schedule.Synchronizer) {
	d.syncer = s
}

// Start begins the delivery pump.
func (d *Dispatcher) Start(interval time.Duration) error {
	spec := fmt.Sprintf("@every %s", interval)
	if _, err := d.cron.AddFunc(spec, d.pump); err != nil {
		return fmt.Errorf("failed to schedule dispatch pump: %w", err)
	}
	d.cron.Start()
	log.Printf("⏰ Dispatcher started (pump %s)", spec)
	return nil
}

// Stop drains the cron and waits for a running pump to finish.
func (d *Dispatcher) Stop() {
	ctx := d.cron.Stop()
	<-ctx.Done()
	log.Println("🛑 Dispatcher stopped")
}

// Arm registers a firing under key, replacing any firing already held
// there. It refuses when the owner has no registered device: without a
// token the platform can never deliver, which is the server-side shape of
// notification permission being denied.
func (d *Dispatcher) Arm(ctx context.Context, key schedule.Key, at time.Time, payload schedule.Payload) error {
	token, err := d.store.DeviceToken(ctx, payload.UserID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("failed to resolve device token: %w", err)
	}
	if token == "" {
		return fmt.Errorf("%w: user %s has no registered device", schedule.ErrPermissionDenied, payload.UserID)
	}

	d.mu.Lock()
	d.armed[key] = Firing{Key: key, At: at, Payload: payload}
	d.mu.Unlock()
	return nil
}

// Cancel removes the firing held under key; a key that was never armed is
// a no-op.
func (d *Dispatcher) Cancel(_ context.Context, key schedule.Key) error {
	d.mu.Lock()
	delete(d.armed, key)
	d.mu.Unlock()
	return nil
}

// CancelAll clears the whole registry. Used at shutdown, never for
// per-alarm bookkeeping.
func (d *Dispatcher) CancelAll(_ context.Context) error {
	d.mu.Lock()
	d.armed = make(map[schedule.Key]Firing)
	d.mu.Unlock()
	return nil
}

// ArmedCount reports the number of pending firings.
func (d *Dispatcher) ArmedCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.armed)
}

// ArmedAlarms maps every alarm holding at least one armed key to its
// owner. The resync worker reconciles this set against the store.
func (d *Dispatcher) ArmedAlarms() map[string]string {
	d.mu.Lock()
	defer d.mu.Unlock()
	owners := make(map[string]string)
	for key, f := range d.armed {
		owners[key.AlarmID] = f.Payload.UserID
	}
	return owners
}

// pump delivers every due firing and rolls the affected weekly schedules
// forward so the next cycle is armed.
func (d *Dispatcher) pump() {
	now := d.now()

	d.mu.Lock()
	var due []Firing
	for key, f := range d.armed {
		if !f.At.After(now) {
			due = append(due, f)
			delete(d.armed, key)
		}
	}
	d.mu.Unlock()

	for _, f := range due {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		d.deliver(ctx, f)
		d.rollForward(ctx, f)
		cancel()
	}
}

func (d *Dispatcher) deliver(ctx context.Context, f Firing) {
	token, err := d.store.DeviceToken(ctx, f.Payload.UserID)
	if err != nil || token == "" {
		log.Printf("⚠️  No device token for %s, firing %s dropped", f.Payload.UserID, f.Key)
	} else if err := d.sender.SendReminder(ctx, token, f.Payload.Title, f.Payload.Body); err != nil {
		log.Printf("❌ Failed to deliver firing %s: %v", f.Key, err)
	}

	if d.hub != nil {
		d.hub.Broadcast(f.Payload.UserID, feed.Event{
			Type:    "reminder_fired",
			AlarmID: f.Key.AlarmID,
			Day:     f.Key.Day.String(),
			Title:   f.Payload.Title,
			Body:    f.Payload.Body,
			FiredAt: f.At,
		})
	}
}

// rollForward re-expands a weekly alarm after one of its firings elapsed.
// A schedule computed once at creation time stops firing after a week;
// this keeps the next cycle armed on a long-running process.
func (d *Dispatcher) rollForward(ctx context.Context, f Firing) {
	if d.syncer == nil {
		return
	}

	alarm, err := d.store.GetSchedule(ctx, f.Payload.UserID, f.Key.AlarmID)
	if errors.Is(err, store.ErrNotFound) {
		return
	}
	if err != nil {
		log.Printf("⚠️  Failed to refetch alarm %s for roll-forward: %v", f.Key.AlarmID, err)
		return
	}
	if alarm.Kind != schedule.KindAlarm || !alarm.IsActive {
		return
	}

	res, err := d.syncer.OnSave(ctx, *alarm)
	if err != nil {
		log.Printf("❌ Roll-forward of alarm %s failed: %v", alarm.ID, err)
		return
	}
	if err := res.Err(); err != nil {
		log.Printf("⚠️  Roll-forward of alarm %s partially failed: %v", alarm.ID, err)
	}
}
