package notify

import (
	"errors"
	gosync "sync"
	"testing"
	"time"
)

// countingSender records alert attempts and answers with a fixed error.
type countingSender struct {
	mu    gosync.Mutex
	calls int
	err   error
}

func (c *countingSender) send(title, message string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return c.err
}

func (c *countingSender) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestDispatcherUsesAlertWhenSoundEnabled(t *testing.T) {
	alert := &countingSender{}
	notify := &countingSender{}
	d := &DesktopDispatcher{sound: true, alert: alert.send, notify: notify.send}

	d.Dispatch("Order shipped", "on the way", nil)
	waitFor(t, func() bool { return alert.count() == 1 }, "alert not sent")
	if notify.count() != 0 {
		t.Errorf("silent path used %d times with sound enabled", notify.count())
	}
}

func TestDispatcherUsesNotifyWhenSoundDisabled(t *testing.T) {
	alert := &countingSender{}
	notify := &countingSender{}
	d := &DesktopDispatcher{sound: false, alert: alert.send, notify: notify.send}

	d.Dispatch("Order shipped", "on the way", nil)
	waitFor(t, func() bool { return notify.count() == 1 }, "notification not sent")
	if alert.count() != 0 {
		t.Errorf("sound path used %d times with sound disabled", alert.count())
	}
}

func TestDispatcherKeepsSendingAfterSuccess(t *testing.T) {
	alert := &countingSender{}
	d := &DesktopDispatcher{sound: true, alert: alert.send}

	d.Dispatch("one", "", nil)
	waitFor(t, func() bool { return alert.count() == 1 }, "first alert not sent")

	d.Dispatch("two", "", nil)
	waitFor(t, func() bool { return alert.count() == 2 }, "second alert not sent")

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.permission != permissionGranted {
		t.Errorf("permission = %d after success, want granted", d.permission)
	}
}

func TestDispatcherStopsAfterDenial(t *testing.T) {
	alert := &countingSender{err: errors.New("notifications disabled")}
	d := &DesktopDispatcher{sound: true, alert: alert.send}

	d.Dispatch("one", "", nil)
	waitFor(t, func() bool { return alert.count() == 1 }, "first attempt not made")
	waitFor(t, func() bool {
		d.mu.Lock()
		defer d.mu.Unlock()
		return d.permission == permissionDenied
	}, "denial not recorded")

	// Later dispatches are skipped without touching the OS again.
	d.Dispatch("two", "", nil)
	d.Dispatch("three", "", nil)
	time.Sleep(50 * time.Millisecond)
	if alert.count() != 1 {
		t.Errorf("OS called %d times after denial, want 1", alert.count())
	}
}
