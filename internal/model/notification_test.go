package model

import (
	"testing"
	"time"
)

func TestNotificationTypeValid(t *testing.T) {
	for _, typ := range []NotificationType{
		NotificationOrder, NotificationPromotion, NotificationGeneral, NotificationSystem,
	} {
		if !typ.Valid() {
			t.Errorf("%q not recognized as valid", typ)
		}
	}
	for _, typ := range []NotificationType{"", "flash-sale", "ORDER"} {
		if typ.Valid() {
			t.Errorf("%q accepted as valid", typ)
		}
	}
}

func TestTimeAgo(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		age  time.Duration
		want string
	}{
		{"seconds", 30 * time.Second, "Just now"},
		{"one minute", 90 * time.Second, "1 minute ago"},
		{"minutes", 5 * time.Minute, "5 minutes ago"},
		{"one hour", 90 * time.Minute, "1 hour ago"},
		{"hours", 5 * time.Hour, "5 hours ago"},
		{"one day", 30 * time.Hour, "1 day ago"},
		{"days", 3 * 24 * time.Hour, "3 days ago"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := Notification{CreatedAt: now.Add(-tt.age)}
			if got := n.TimeAgo(now); got != tt.want {
				t.Errorf("TimeAgo = %q, want %q", got, tt.want)
			}
		})
	}

	old := Notification{CreatedAt: time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)}
	if got := old.TimeAgo(now); got != "Jul 1, 2026" {
		t.Errorf("TimeAgo for old record = %q, want absolute date", got)
	}
}
