package notifcenter

import (
	"fmt"
	"time"

	"github.com/sbabadag/sevapp/internal/model"
	"github.com/sbabadag/sevapp/internal/theme"
)

// NotificationItem wraps a model.Notification so it can be used in a
// bubbles/list.
type NotificationItem struct {
	Notification model.Notification
}

// FilterValue returns the string used for fuzzy filtering.
func (i NotificationItem) FilterValue() string { return i.Notification.Title }

// Title returns the notification headline, marking unread entries.
func (i NotificationItem) Title() string {
	if i.Notification.Read {
		return theme.ReadItemStyle.Render(i.Notification.Title)
	}
	return theme.UnreadItemStyle.Render("● " + i.Notification.Title)
}

// Description returns a short summary line for the list.
func (i NotificationItem) Description() string {
	n := i.Notification
	return fmt.Sprintf("%s  %s  %s",
		theme.TypeStyle(n.Type).Render(string(n.Type)),
		n.TimeAgo(time.Now()),
		truncate(n.Message, 60),
	)
}

// truncate shortens s to at most n runes with an ellipsis.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
