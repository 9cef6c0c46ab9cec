// Package cache keeps a best-effort local SQLite mirror of the user's
// notification list so the UI has last-known content before the first
// network load resolves and across restarts. The backend is always
// authoritative; a load overwrites whatever is cached here.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/sbabadag/sevapp/internal/model"
)

// pruneKeep bounds how many rows are retained per user.
const pruneKeep = 200

// SQLiteCache stores notifications in a local SQLite database.
type SQLiteCache struct {
	db *sqlx.DB
}

// DefaultCachePath returns the default location of the cache database,
// ~/.config/sevapp/notifications.db.
func DefaultCachePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "notifications.db")
	}
	return filepath.Join(home, ".config", "sevapp", "notifications.db")
}

// NewSQLiteCache opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteCache(dbPath string) (*SQLiteCache, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory %s: %w", dir, err)
		}
	}

	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	c := &SQLiteCache{db: db}
	if err := c.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return c, nil
}

// Close closes the underlying database connection.
func (c *SQLiteCache) Close() error {
	return c.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (c *SQLiteCache) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := c.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = c.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := c.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// Upsert inserts or replaces a batch of notifications and prunes each
// affected user's rows to the retention bound.
func (c *SQLiteCache) Upsert(ctx context.Context, notifications []model.Notification) error {
	if len(notifications) == 0 {
		return nil
	}

	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	const query = `
		INSERT OR REPLACE INTO notifications (
			id, user_id, title, message, type, data, read, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	stmt, err := tx.PreparexContext(ctx, query)
	if err != nil {
		return fmt.Errorf("preparing upsert statement: %w", err)
	}
	defer stmt.Close()

	users := make(map[string]struct{})
	for _, n := range notifications {
		data, err := json.Marshal(n.Data)
		if err != nil {
			return fmt.Errorf("marshaling data for notification %d: %w", n.ID, err)
		}

		_, err = stmt.ExecContext(ctx,
			n.ID, n.UserID, n.Title, n.Message, string(n.Type),
			string(data), boolToInt(n.Read), n.CreatedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("upserting notification %d: %w", n.ID, err)
		}
		users[n.UserID] = struct{}{}
	}

	for userID := range users {
		_, err := tx.ExecContext(ctx, `
			DELETE FROM notifications WHERE user_id = ? AND id NOT IN (
				SELECT id FROM notifications WHERE user_id = ?
				ORDER BY created_at DESC LIMIT ?
			)`,
			userID, userID, pruneKeep,
		)
		if err != nil {
			return fmt.Errorf("pruning notifications for user %s: %w", userID, err)
		}
	}

	return tx.Commit()
}

// Recent retrieves a user's cached notifications, newest first.
func (c *SQLiteCache) Recent(ctx context.Context, userID string, limit int) ([]model.Notification, error) {
	rows, err := c.db.QueryxContext(ctx, `
		SELECT id, user_id, title, message, type, data, read, created_at
		FROM notifications WHERE user_id = ?
		ORDER BY created_at DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying cached notifications: %w", err)
	}
	defer rows.Close()

	var notifications []model.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}

	return notifications, rows.Err()
}

// MarkRead flags a single cached notification as read.
func (c *SQLiteCache) MarkRead(ctx context.Context, id int64) error {
	_, err := c.db.ExecContext(ctx,
		"UPDATE notifications SET read = 1 WHERE id = ?", id,
	)
	if err != nil {
		return fmt.Errorf("marking cached notification %d as read: %w", id, err)
	}
	return nil
}

// MarkAllRead flags all of a user's cached notifications as read.
func (c *SQLiteCache) MarkAllRead(ctx context.Context, userID string) error {
	_, err := c.db.ExecContext(ctx,
		"UPDATE notifications SET read = 1 WHERE user_id = ? AND read = 0", userID,
	)
	if err != nil {
		return fmt.Errorf("marking cached notifications as read: %w", err)
	}
	return nil
}

// Clear removes every cached row for a user, used on logout so a later
// sign-in by a different account cannot see stale records.
func (c *SQLiteCache) Clear(ctx context.Context, userID string) error {
	_, err := c.db.ExecContext(ctx,
		"DELETE FROM notifications WHERE user_id = ?", userID,
	)
	if err != nil {
		return fmt.Errorf("clearing cached notifications: %w", err)
	}
	return nil
}

// scanNotification scans a notification row from a sqlx.Rows result set.
func scanNotification(rows *sqlx.Rows) (model.Notification, error) {
	var (
		n         model.Notification
		typ       string
		data      string
		read      int
		createdAt time.Time
	)

	err := rows.Scan(
		&n.ID, &n.UserID, &n.Title, &n.Message, &typ,
		&data, &read, &createdAt,
	)
	if err != nil {
		return model.Notification{}, fmt.Errorf("scanning notification row: %w", err)
	}

	n.Type = model.NotificationType(typ)
	n.Read = read != 0
	n.CreatedAt = createdAt

	if data != "" && data != "{}" {
		if err := json.Unmarshal([]byte(data), &n.Data); err != nil {
			return model.Notification{}, fmt.Errorf("unmarshaling notification data: %w", err)
		}
	}

	return n, nil
}

// boolToInt converts a bool to a SQLite integer.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
