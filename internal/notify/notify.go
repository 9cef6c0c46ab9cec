// Package notify implements the client-side notification synchronization
// subsystem: an in-memory store of the user's notifications reconciled
// from three sources: realtime insert events, a fixed-interval unread
// count poll, and optimistic local read-state mutations.
//
// All three sources submit events to a single ordered queue applied by
// one reducer goroutine, so there are no read-modify-write races between
// them. Every event carries the session generation it was produced for;
// events from a torn-down session are discarded, which makes late
// completions of in-flight fetches harmless.
//
// No failure inside this package ever reaches the caller as an error:
// fetch, subscription, mutation, and alert failures degrade to log
// lines and a safe last-known-good state.
package notify

import (
	"context"
	"encoding/json"

	"github.com/sbabadag/sevapp/internal/model"
)

// Backend is the slice of the SevApp backend this subsystem consumes.
// It is passed in explicitly so tests can substitute a fake.
type Backend interface {
	// Notifications fetches the most recent notifications for a user,
	// newest first, bounded by limit.
	Notifications(ctx context.Context, userID string, limit int) ([]model.Notification, error)

	// UnreadCount returns the user's number of unread notifications.
	UnreadCount(ctx context.Context, userID string) (int, error)

	// MarkRead flags a single notification as read.
	MarkRead(ctx context.Context, id int64) error

	// MarkAllRead flags all of the user's unread notifications as read.
	MarkAllRead(ctx context.Context, userID string) error

	// SubscribeInserts opens a realtime channel delivering raw INSERT
	// payloads for the user's notification rows and returns a disposer.
	SubscribeInserts(ctx context.Context, userID string, fn func(record json.RawMessage)) (func(), error)
}

// Dispatcher schedules an immediate on-device alert for a freshly
// arrived unread notification. Implementations must never block the
// caller or return an error; a refused permission is logged and the
// dispatch silently skipped.
type Dispatcher interface {
	Dispatch(title, message string, data map[string]any)
}

// Cache is an optional best-effort local mirror of the notification
// list, used to prime the store before the first network load resolves.
// It is never authoritative and its failures are only logged.
type Cache interface {
	Recent(ctx context.Context, userID string, limit int) ([]model.Notification, error)
	Upsert(ctx context.Context, notifications []model.Notification) error
	MarkRead(ctx context.Context, id int64) error
	MarkAllRead(ctx context.Context, userID string) error
}
