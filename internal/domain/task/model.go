// Package task defines the task data model and its session state machine.
package task

import "time"

// State represents the lifecycle state of a task's session.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StatePaused    State = "paused"
	StateCompleted State = "completed"
)

// Action is a user-driven session transition.
type Action string

const (
	ActionStart  Action = "start"
	ActionPause  Action = "pause"
	ActionResume Action = "resume"
	ActionStop   Action = "stop"
)

// DefaultPriority is the iCalendar "undefined" priority.
const DefaultPriority = 11

// Interval is a closed [Start, End) span during which the session was running.
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Length returns the span of the interval.
func (i Interval) Length() time.Duration {
	return i.End.Sub(i.Start)
}

// Session holds the timer state and interval history of one task.
type Session struct {
	State     State      `json:"state"`
	StartedAt *time.Time `json:"started_at,omitempty"` // set only while running
	Intervals []Interval `json:"intervals"`
}

// Task is a named unit of work whose elapsed active time is tracked.
type Task struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Priority    int           `json:"priority"` // 1 high .. 9 low, 11 unset
	StartsAt    *time.Time    `json:"starts_at,omitempty"`
	DueAt       *time.Time    `json:"due_at,omitempty"`
	Accumulated time.Duration `json:"accumulated"`
	CreatedAt   time.Time     `json:"created_at"`
	ImportedUID string        `json:"imported_uid,omitempty"`
	Session     Session       `json:"session"`
}

// LiveDuration returns the accumulated duration plus, while running, the
// elapsed portion of the open interval. It never mutates the task.
func (t *Task) LiveDuration(now time.Time) time.Duration {
	d := t.Accumulated
	if t.Session.State == StateRunning && t.Session.StartedAt != nil {
		if live := now.Sub(*t.Session.StartedAt); live > 0 {
			d += live
		}
	}
	return d
}

// Clone returns a deep copy of the task.
func (t *Task) Clone() *Task {
	c := *t
	if t.Session.StartedAt != nil {
		started := *t.Session.StartedAt
		c.Session.StartedAt = &started
	}
	if t.StartsAt != nil {
		starts := *t.StartsAt
		c.StartsAt = &starts
	}
	if t.DueAt != nil {
		due := *t.DueAt
		c.DueAt = &due
	}
	c.Session.Intervals = make([]Interval, len(t.Session.Intervals))
	copy(c.Session.Intervals, t.Session.Intervals)
	return &c
}

// SchemaVersion tags persisted snapshots so incompatible formats are
// rejected on load instead of misread.
const SchemaVersion = 1

// Snapshot is an immutable, point-in-time read of the registry's contents,
// ordered by creation time.
type Snapshot struct {
	SchemaVersion int
	Tasks         []Task
}
