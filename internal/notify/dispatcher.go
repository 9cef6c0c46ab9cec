package notify

import (
	"log"
	gosync "sync"

	"github.com/gen2brain/beeep"
)

// permissionState tracks whether the OS will show our alerts.
type permissionState int

const (
	permissionUnknown permissionState = iota
	permissionGranted
	permissionDenied
)

// DesktopDispatcher delivers notifications as native desktop alerts,
// with an audible sound when enabled. Delivery is intentionally
// decoupled from any push transport: an alert is scheduled for every
// qualifying realtime arrival even if the OS receives the same logical
// notification another way.
//
// The first dispatch doubles as the just-in-time permission attempt:
// if the OS refuses it, the denial is logged once and every later
// dispatch is silently skipped. Dispatch never blocks the caller and
// never surfaces an error.
type DesktopDispatcher struct {
	sound bool

	mu         gosync.Mutex
	permission permissionState

	// alert and notify are swappable for tests.
	alert  func(title, message string) error
	notify func(title, message string) error
}

// NewDesktopDispatcher creates a dispatcher. When sound is true alerts
// play the system alert sound.
func NewDesktopDispatcher(sound bool) *DesktopDispatcher {
	return &DesktopDispatcher{
		sound: sound,
		alert: func(title, message string) error {
			return beeep.Alert(title, message, "")
		},
		notify: func(title, message string) error {
			return beeep.Notify(title, message, "")
		},
	}
}

// Dispatch schedules one immediate local alert. The opaque data payload
// is accepted for interface parity but desktop alerts have no deep-link
// target to attach it to.
func (d *DesktopDispatcher) Dispatch(title, message string, data map[string]any) {
	d.mu.Lock()
	if d.permission == permissionDenied {
		d.mu.Unlock()
		return
	}
	d.mu.Unlock()

	go d.send(title, message)
}

// send performs the OS call off the caller's goroutine and settles the
// permission state based on the outcome.
func (d *DesktopDispatcher) send(title, message string) {
	var err error
	if d.sound {
		err = d.alert(title, message)
	} else {
		err = d.notify(title, message)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err != nil {
		if d.permission != permissionDenied {
			log.Printf("notify: local alerts unavailable, skipping from now on: %v", err)
		}
		d.permission = permissionDenied
		return
	}
	d.permission = permissionGranted
}
