package testutil

import (
	"context"
	"encoding/json"
	gosync "sync"
	"time"

	"github.com/sbabadag/sevapp/internal/model"
)

// FakeBackend is an in-memory notify.Backend with controllable
// latency and failure injection, standing in for the hosted backend.
type FakeBackend struct {
	mu   gosync.Mutex
	rows []model.Notification

	listDelay     time.Duration
	listErr       error
	countErr      error
	markErr       error
	subscribeErr  error
	countOverride *int

	markReadCalls  []int64
	markAllMatched []int
	subscribeCalls int
	disposed       int

	insertFn func(json.RawMessage)
}

// NewFakeBackend creates a fake backend seeded with the given rows,
// which are returned in the order provided (callers seed newest first).
func NewFakeBackend(rows ...model.Notification) *FakeBackend {
	return &FakeBackend{rows: rows}
}

// SetListDelay makes Notifications block for d before answering.
func (f *FakeBackend) SetListDelay(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listDelay = d
}

// SetListErr makes Notifications fail.
func (f *FakeBackend) SetListErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listErr = err
}

// SetCountErr makes UnreadCount fail.
func (f *FakeBackend) SetCountErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.countErr = err
}

// SetMarkErr makes MarkRead and MarkAllRead fail.
func (f *FakeBackend) SetMarkErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markErr = err
}

// SetSubscribeErr makes SubscribeInserts fail.
func (f *FakeBackend) SetSubscribeErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribeErr = err
}

// SetCountOverride pins the unread count reported to callers,
// regardless of row state. Passing a value simulates server-side
// activity the client has not observed yet.
func (f *FakeBackend) SetCountOverride(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.countOverride = &n
}

// Notifications implements notify.Backend.
func (f *FakeBackend) Notifications(ctx context.Context, userID string, limit int) ([]model.Notification, error) {
	f.mu.Lock()
	delay, err := f.listDelay, f.listErr
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
		case <-time.After(delay):
		}
	}
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	n := len(f.rows)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]model.Notification, n)
	copy(out, f.rows[:n])
	return out, nil
}

// UnreadCount implements notify.Backend.
func (f *FakeBackend) UnreadCount(ctx context.Context, userID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.countErr != nil {
		return 0, f.countErr
	}
	if f.countOverride != nil {
		return *f.countOverride, nil
	}
	count := 0
	for _, r := range f.rows {
		if !r.Read {
			count++
		}
	}
	return count, nil
}

// MarkRead implements notify.Backend.
func (f *FakeBackend) MarkRead(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markReadCalls = append(f.markReadCalls, id)
	if f.markErr != nil {
		return f.markErr
	}
	for i := range f.rows {
		if f.rows[i].ID == id {
			f.rows[i].Read = true
		}
	}
	return nil
}

// MarkAllRead implements notify.Backend, recording how many rows the
// bulk predicate matched on each call.
func (f *FakeBackend) MarkAllRead(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.markErr != nil {
		return f.markErr
	}
	matched := 0
	for i := range f.rows {
		if f.rows[i].UserID == userID && !f.rows[i].Read {
			f.rows[i].Read = true
			matched++
		}
	}
	f.markAllMatched = append(f.markAllMatched, matched)
	return nil
}

// SubscribeInserts implements notify.Backend.
func (f *FakeBackend) SubscribeInserts(ctx context.Context, userID string, fn func(json.RawMessage)) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribeCalls++
	if f.subscribeErr != nil {
		return nil, f.subscribeErr
	}
	f.insertFn = fn
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.disposed++
		f.insertFn = nil
	}, nil
}

// Subscribed reports whether a realtime callback is registered.
func (f *FakeBackend) Subscribed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.insertFn != nil
}

// Emit simulates a realtime INSERT delivery for the given record.
// It reports whether a subscriber was attached to receive it.
func (f *FakeBackend) Emit(n model.Notification) bool {
	f.mu.Lock()
	fn := f.insertFn
	f.mu.Unlock()

	if fn == nil {
		return false
	}
	raw, _ := json.Marshal(n)
	fn(raw)
	return true
}

// EmitRaw simulates a realtime delivery of an arbitrary payload.
func (f *FakeBackend) EmitRaw(raw json.RawMessage) bool {
	f.mu.Lock()
	fn := f.insertFn
	f.mu.Unlock()

	if fn == nil {
		return false
	}
	fn(raw)
	return true
}

// MarkReadCalls returns the ids passed to MarkRead, in order.
func (f *FakeBackend) MarkReadCalls() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]int64, len(f.markReadCalls))
	copy(out, f.markReadCalls)
	return out
}

// MarkAllMatched returns, per MarkAllRead call, how many rows the
// bulk predicate matched.
func (f *FakeBackend) MarkAllMatched() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]int, len(f.markAllMatched))
	copy(out, f.markAllMatched)
	return out
}

// SubscribeCalls returns how many times SubscribeInserts was invoked.
func (f *FakeBackend) SubscribeCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subscribeCalls
}

// Disposed returns how many subscription disposers have been invoked.
func (f *FakeBackend) Disposed() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.disposed
}

// FakeDispatcher records local alert dispatches.
type FakeDispatcher struct {
	mu     gosync.Mutex
	titles []string
}

// Dispatch implements notify.Dispatcher.
func (d *FakeDispatcher) Dispatch(title, message string, data map[string]any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.titles = append(d.titles, title)
}

// Count returns how many alerts were dispatched.
func (d *FakeDispatcher) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.titles)
}

// Titles returns the dispatched alert titles, in order.
func (d *FakeDispatcher) Titles() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.titles))
	copy(out, d.titles)
	return out
}
