package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ganot/task-timer/internal/domain/task"
	"github.com/ganot/task-timer/internal/storage"
)

// timeLayout keeps full nanosecond precision through the round trip.
const timeLayout = time.RFC3339Nano

// Store implements storage.Store on SQLite. Save replaces the whole snapshot
// inside one transaction, which gives the same crash safety as
// write-new-then-rename on a flat file.
type Store struct {
	db *DB
}

// NewStore creates a new snapshot store.
func NewStore(db *DB) *Store {
	return &Store{db: db}
}

// Save writes the snapshot, replacing any prior state.
func (s *Store) Save(ctx context.Context, snap *task.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM intervals`,
		`DELETE FROM tasks`,
		`DELETE FROM schema_meta`,
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("clear prior state: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_meta (version) VALUES (?)`, snap.SchemaVersion); err != nil {
		return fmt.Errorf("write schema version: %w", err)
	}

	for pos := range snap.Tasks {
		t := &snap.Tasks[pos]
		_, err := tx.ExecContext(ctx, `
			INSERT INTO tasks (
				id, position, name, priority, starts_at, due_at,
				accumulated_ns, created_at, imported_uid, state, started_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			t.ID,
			pos,
			t.Name,
			t.Priority,
			encodeTimePtr(t.StartsAt),
			encodeTimePtr(t.DueAt),
			int64(t.Accumulated),
			encodeTime(t.CreatedAt),
			t.ImportedUID,
			string(t.Session.State),
			encodeTimePtr(t.Session.StartedAt),
		)
		if err != nil {
			return fmt.Errorf("write task %s: %w", t.ID, err)
		}

		for i, iv := range t.Session.Intervals {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO intervals (task_id, position, start_at, end_at)
				VALUES (?, ?, ?, ?)
			`, t.ID, i, encodeTime(iv.Start), encodeTime(iv.End))
			if err != nil {
				return fmt.Errorf("write interval for task %s: %w", t.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

// Load reconstructs the last saved snapshot. A database without a version
// row reads as storage.ErrNotFound; an unknown version or unreadable row
// reads as storage.ErrCorruptState.
func (s *Store) Load(ctx context.Context) (*task.Snapshot, error) {
	var version int
	err := s.db.QueryRowContext(ctx, `SELECT version FROM schema_meta`).Scan(&version)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading schema version: %v", storage.ErrCorruptState, err)
	}
	if version != task.SchemaVersion {
		return nil, fmt.Errorf("%w: unsupported schema version %d", storage.ErrCorruptState, version)
	}

	snap := &task.Snapshot{SchemaVersion: version}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, priority, starts_at, due_at,
		       accumulated_ns, created_at, imported_uid, state, started_at
		FROM tasks
		ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: reading tasks: %v", storage.ErrCorruptState, err)
	}
	defer rows.Close()

	index := make(map[string]int)
	for rows.Next() {
		var (
			t                          task.Task
			startsAt, dueAt, startedAt sql.NullString
			importedUID                sql.NullString
			accumulatedNS              int64
			createdAt, state           string
		)
		err := rows.Scan(
			&t.ID, &t.Name, &t.Priority, &startsAt, &dueAt,
			&accumulatedNS, &createdAt, &importedUID, &state, &startedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("%w: reading task row: %v", storage.ErrCorruptState, err)
		}

		t.Accumulated = time.Duration(accumulatedNS)
		t.ImportedUID = importedUID.String
		if t.CreatedAt, err = decodeTime(createdAt); err != nil {
			return nil, err
		}
		if t.StartsAt, err = decodeTimePtr(startsAt); err != nil {
			return nil, err
		}
		if t.DueAt, err = decodeTimePtr(dueAt); err != nil {
			return nil, err
		}
		if t.Session.StartedAt, err = decodeTimePtr(startedAt); err != nil {
			return nil, err
		}
		switch task.State(state) {
		case task.StateIdle, task.StateRunning, task.StatePaused, task.StateCompleted:
			t.Session.State = task.State(state)
		default:
			return nil, fmt.Errorf("%w: unknown task state %q", storage.ErrCorruptState, state)
		}
		t.Session.Intervals = []task.Interval{}

		index[t.ID] = len(snap.Tasks)
		snap.Tasks = append(snap.Tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading tasks: %v", storage.ErrCorruptState, err)
	}

	if err := s.loadIntervals(ctx, snap, index); err != nil {
		return nil, err
	}
	return snap, nil
}

func (s *Store) loadIntervals(ctx context.Context, snap *task.Snapshot, index map[string]int) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT task_id, start_at, end_at
		FROM intervals
		ORDER BY task_id, position
	`)
	if err != nil {
		return fmt.Errorf("%w: reading intervals: %v", storage.ErrCorruptState, err)
	}
	defer rows.Close()

	for rows.Next() {
		var taskID, startAt, endAt string
		if err := rows.Scan(&taskID, &startAt, &endAt); err != nil {
			return fmt.Errorf("%w: reading interval row: %v", storage.ErrCorruptState, err)
		}
		pos, ok := index[taskID]
		if !ok {
			return fmt.Errorf("%w: interval for unknown task %s", storage.ErrCorruptState, taskID)
		}
		var iv task.Interval
		if iv.Start, err = decodeTime(startAt); err != nil {
			return err
		}
		if iv.End, err = decodeTime(endAt); err != nil {
			return err
		}
		snap.Tasks[pos].Session.Intervals = append(snap.Tasks[pos].Session.Intervals, iv)
	}
	return rows.Err()
}

func encodeTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func encodeTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return encodeTime(*t)
}

func decodeTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad timestamp %q", storage.ErrCorruptState, s)
	}
	return t, nil
}

func decodeTimePtr(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := decodeTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
