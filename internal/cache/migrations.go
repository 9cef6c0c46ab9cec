package cache

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS notifications (
	id          INTEGER PRIMARY KEY,
	user_id     TEXT NOT NULL,
	title       TEXT NOT NULL,
	message     TEXT NOT NULL DEFAULT '',
	type        TEXT NOT NULL DEFAULT 'general',
	data        TEXT NOT NULL DEFAULT '{}',
	read        INTEGER NOT NULL DEFAULT 0,
	created_at  DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_notifications_user_created
	ON notifications(user_id, created_at);
CREATE INDEX IF NOT EXISTS idx_notifications_user_read
	ON notifications(user_id, read);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
}
