package model

import (
	"fmt"
	"time"
)

// NotificationType classifies a notification for display and deep-linking.
type NotificationType string

const (
	NotificationOrder     NotificationType = "order"
	NotificationPromotion NotificationType = "promotion"
	NotificationGeneral   NotificationType = "general"
	NotificationSystem    NotificationType = "system"
)

// Valid reports whether t is one of the known notification types.
func (t NotificationType) Valid() bool {
	switch t {
	case NotificationOrder, NotificationPromotion, NotificationGeneral, NotificationSystem:
		return true
	}
	return false
}

// Notification is a single notification row as stored in the backend.
// Records are created server-side only; the client observes them via
// fetch or the realtime channel and mutates nothing but Read.
type Notification struct {
	// ID is the server-assigned identifier, monotonic per user.
	ID int64 `json:"id" db:"id"`

	// UserID is the owning user's identifier.
	UserID string `json:"user_id" db:"user_id"`

	// Title is the short headline shown in lists and alerts.
	Title string `json:"title" db:"title"`

	// Message is the full notification body.
	Message string `json:"message" db:"message"`

	// Type classifies the notification (order, promotion, general, system).
	Type NotificationType `json:"type" db:"type"`

	// Data is an opaque key-value payload, e.g. a deep-link target.
	Data map[string]any `json:"data,omitempty" db:"-"`

	// Read indicates whether the user has seen this notification.
	// The only transition in normal operation is false -> true.
	Read bool `json:"read" db:"read"`

	// CreatedAt is the server-side creation time, the source of truth
	// for relative "time ago" display.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// TimeAgo renders CreatedAt relative to now for list display.
func (n Notification) TimeAgo(now time.Time) string {
	diff := now.Sub(n.CreatedAt)

	switch {
	case diff < time.Minute:
		return "Just now"
	case diff < time.Hour:
		m := int(diff.Minutes())
		return fmt.Sprintf("%d %s ago", m, plural(m, "minute"))
	case diff < 24*time.Hour:
		h := int(diff.Hours())
		return fmt.Sprintf("%d %s ago", h, plural(h, "hour"))
	case diff < 7*24*time.Hour:
		d := int(diff.Hours() / 24)
		return fmt.Sprintf("%d %s ago", d, plural(d, "day"))
	default:
		return n.CreatedAt.Format("Jan 2, 2006")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return unit
	}
	return unit + "s"
}
