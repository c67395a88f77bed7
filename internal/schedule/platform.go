package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrPermissionDenied is returned by a Platform that declines to arm a
// firing, e.g. when the user never granted notification permission or has
// no registered device.
var ErrPermissionDenied = errors.New("notification permission denied")

// Key addresses one armed firing on the platform so it can be cancelled
// individually later. It is derived deterministically from the alarm and
// the weekday the firing covers.
type Key struct {
	AlarmID string
	Day     Weekday
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%d", k.AlarmID, int(k.Day))
}

// Payload is what the platform shows (and routes) when a firing goes off.
type Payload struct {
	Title  string `json:"title"`
	Body   string `json:"body"`
	UserID string `json:"userId"`
}

// Platform is the host notification service the synchronizer arms firings
// on. Arm replaces any firing already held under the same key. Cancel is a
// no-op for keys that were never armed.
type Platform interface {
	Arm(ctx context.Context, key Key, at time.Time, payload Payload) error
	Cancel(ctx context.Context, key Key) error
	CancelAll(ctx context.Context) error
}
