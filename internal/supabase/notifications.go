package supabase

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/sbabadag/sevapp/internal/model"
)

// notificationsPath is the PostgREST endpoint for the notifications table.
const notificationsPath = "/rest/v1/notifications"

// Notifications fetches the most recent notifications for a user,
// newest first, bounded by limit.
func (c *Client) Notifications(ctx context.Context, userID string, limit int) ([]model.Notification, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("user_id", "eq."+userID)
	q.Set("order", "created_at.desc")
	q.Set("limit", strconv.Itoa(limit))

	var rows []model.Notification
	_, err := c.do(ctx, http.MethodGet, notificationsPath+"?"+q.Encode(), nil, nil, &rows)
	if err != nil {
		return nil, fmt.Errorf("fetching notifications: %w", err)
	}
	return rows, nil
}

// UnreadCount returns the number of unread notifications for a user.
// It issues a HEAD request with an exact-count preference and parses
// the total from the Content-Range header, so no row data crosses the
// wire.
func (c *Client) UnreadCount(ctx context.Context, userID string) (int, error) {
	q := url.Values{}
	q.Set("select", "id")
	q.Set("user_id", "eq."+userID)
	q.Set("read", "is.false")

	extra := http.Header{}
	extra.Set("Prefer", "count=exact")

	header, err := c.do(ctx, http.MethodHead, notificationsPath+"?"+q.Encode(), extra, nil, nil)
	if err != nil {
		return 0, fmt.Errorf("fetching unread count: %w", err)
	}

	return parseContentRangeTotal(header.Get("Content-Range"))
}

// MarkRead flags a single notification as read.
func (c *Client) MarkRead(ctx context.Context, id int64) error {
	q := url.Values{}
	q.Set("id", "eq."+strconv.FormatInt(id, 10))

	body := map[string]bool{"read": true}
	_, err := c.do(ctx, http.MethodPatch, notificationsPath+"?"+q.Encode(), nil, body, nil)
	if err != nil {
		return fmt.Errorf("marking notification %d read: %w", id, err)
	}
	return nil
}

// MarkAllRead flags every unread notification belonging to a user as
// read in a single bulk update. Calling it when nothing is unread is a
// harmless no-op: the predicate simply matches zero rows.
func (c *Client) MarkAllRead(ctx context.Context, userID string) error {
	q := url.Values{}
	q.Set("user_id", "eq."+userID)
	q.Set("read", "is.false")

	body := map[string]bool{"read": true}
	_, err := c.do(ctx, http.MethodPatch, notificationsPath+"?"+q.Encode(), nil, body, nil)
	if err != nil {
		return fmt.Errorf("marking all notifications read: %w", err)
	}
	return nil
}

// CreateNotification inserts a notification row and returns the
// server-assigned record. This is admin/system tooling (the `send`
// command); the sync subsystem itself never originates records.
func (c *Client) CreateNotification(ctx context.Context, n model.Notification) (model.Notification, error) {
	extra := http.Header{}
	extra.Set("Prefer", "return=representation")

	insert := map[string]any{
		"user_id": n.UserID,
		"title":   n.Title,
		"message": n.Message,
		"type":    n.Type,
	}
	if n.Data != nil {
		insert["data"] = n.Data
	}

	var rows []model.Notification
	_, err := c.do(ctx, http.MethodPost, notificationsPath, extra, insert, &rows)
	if err != nil {
		return model.Notification{}, fmt.Errorf("creating notification: %w", err)
	}
	if len(rows) == 0 {
		return model.Notification{}, fmt.Errorf("creating notification: empty representation")
	}
	return rows[0], nil
}

// DeleteNotification removes a notification row. Server-side concern
// surfaced for admin tooling only; the sync subsystem never deletes.
func (c *Client) DeleteNotification(ctx context.Context, id int64) error {
	q := url.Values{}
	q.Set("id", "eq."+strconv.FormatInt(id, 10))

	_, err := c.do(ctx, http.MethodDelete, notificationsPath+"?"+q.Encode(), nil, nil, nil)
	if err != nil {
		return fmt.Errorf("deleting notification %d: %w", id, err)
	}
	return nil
}

// parseContentRangeTotal extracts the total from a PostgREST
// Content-Range header such as "0-24/57" or "*/0".
func parseContentRangeTotal(value string) (int, error) {
	idx := strings.LastIndex(value, "/")
	if idx < 0 || idx == len(value)-1 {
		return 0, fmt.Errorf("malformed Content-Range %q", value)
	}
	total := value[idx+1:]
	if total == "*" {
		return 0, fmt.Errorf("backend omitted exact count in Content-Range %q", value)
	}
	n, err := strconv.Atoi(total)
	if err != nil {
		return 0, fmt.Errorf("parsing Content-Range %q: %w", value, err)
	}
	return n, nil
}
