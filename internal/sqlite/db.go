package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection
type DB struct {
	*sql.DB
}

// New creates a new SQLite database connection
func New(dataSourceName string) (*DB, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return &DB{db}, nil
}

// RunMigrations creates the snapshot schema. The version row itself is
// written by the first Save, so a freshly migrated database still reads as
// "no stored state".
func (db *DB) RunMigrations() error {
	migration := `
-- Snapshot format version
CREATE TABLE IF NOT EXISTS schema_meta (
    version INTEGER NOT NULL
);

-- Tasks table; position preserves creation order
CREATE TABLE IF NOT EXISTS tasks (
    id TEXT PRIMARY KEY,
    position INTEGER NOT NULL,
    name TEXT NOT NULL,
    priority INTEGER NOT NULL,
    starts_at TEXT,
    due_at TEXT,
    accumulated_ns INTEGER NOT NULL,
    created_at TEXT NOT NULL,
    imported_uid TEXT,
    state TEXT NOT NULL CHECK(state IN ('idle', 'running', 'paused', 'completed')),
    started_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_tasks_position ON tasks(position);

-- Closed session intervals
CREATE TABLE IF NOT EXISTS intervals (
    task_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    start_at TEXT NOT NULL,
    end_at TEXT NOT NULL,
    PRIMARY KEY (task_id, position),
    FOREIGN KEY (task_id) REFERENCES tasks(id) ON DELETE CASCADE
);
`

	_, err := db.Exec(migration)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
