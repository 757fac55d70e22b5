// Package registry owns all task records and serializes every mutation.
package registry

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ganot/task-timer/internal/clock"
	"github.com/ganot/task-timer/internal/domain/task"
	"github.com/ganot/task-timer/internal/ical"
	"github.com/google/uuid"
)

// Registry is the single owner of the task set. All reads hand out clones;
// all mutations run under one lock, so a reader never observes a task
// mid-transition.
type Registry struct {
	mu           sync.Mutex
	tasks        map[string]*task.Task
	order        []string // creation order
	revision     uint64
	singleActive bool

	clock  clock.Clock
	logger *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithSingleActive restricts the registry to one running session at a time:
// starting or resuming a task pauses whichever other task is running.
func WithSingleActive(enabled bool) Option {
	return func(r *Registry) { r.singleActive = enabled }
}

// New creates an empty registry.
func New(clk clock.Clock, logger *slog.Logger, opts ...Option) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		tasks:  make(map[string]*task.Task),
		clock:  clk,
		logger: logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CreateRequest defines task creation inputs.
type CreateRequest struct {
	Name     string
	Priority int
	StartsAt *time.Time
	DueAt    *time.Time
}

// CreateTask adds a new idle task and returns a copy of it.
func (r *Registry) CreateTask(req CreateRequest) (*task.Task, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, task.ErrInvalidName
	}
	priority := req.Priority
	if priority == 0 {
		priority = task.DefaultPriority
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	t := &task.Task{
		ID:        uuid.NewString(),
		Name:      name,
		Priority:  priority,
		StartsAt:  req.StartsAt,
		DueAt:     req.DueAt,
		CreatedAt: r.clock.Now(),
		Session:   task.Session{State: task.StateIdle},
	}
	r.tasks[t.ID] = t
	r.order = append(r.order, t.ID)
	r.revision++

	return t.Clone(), nil
}

// DeleteTask removes a task and its session. An open running interval is
// discarded with it.
func (r *Registry) DeleteTask(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[id]; !ok {
		return task.ErrTaskNotFound
	}
	delete(r.tasks, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.revision++
	r.logger.Debug("task deleted", "id", id)
	return nil
}

// TaskView is a read-only view of one task with its live-computed duration.
type TaskView struct {
	Task    task.Task
	Elapsed time.Duration
}

// ListTasks returns a creation-ordered snapshot. Running tasks carry the
// elapsed portion of their open interval in Elapsed; stored state is not
// touched.
func (r *Registry) ListTasks() []TaskView {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	views := make([]TaskView, 0, len(r.order))
	for _, id := range r.order {
		t := r.tasks[id]
		views = append(views, TaskView{
			Task:    *t.Clone(),
			Elapsed: t.LiveDuration(now),
		})
	}
	return views
}

// View returns a read-only view of one task with its live duration.
func (r *Registry) View(id string) (TaskView, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[id]
	if !ok {
		return TaskView{}, task.ErrTaskNotFound
	}
	return TaskView{Task: *t.Clone(), Elapsed: t.LiveDuration(r.clock.Now())}, nil
}

// GetTask returns a copy of one task.
func (r *Registry) GetTask(id string) (*task.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[id]
	if !ok {
		return nil, task.ErrTaskNotFound
	}
	return t.Clone(), nil
}

// ApplyTransition drives the task's session state machine. In single-active
// mode, starting or resuming a task first pauses any other running task,
// within the same critical section.
func (r *Registry) ApplyTransition(id string, action task.Action) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[id]
	if !ok {
		return task.ErrTaskNotFound
	}

	now := r.clock.Now()
	if r.singleActive && (action == task.ActionStart || action == task.ActionResume) {
		for _, other := range r.tasks {
			if other.ID == id || other.Session.State != task.StateRunning {
				continue
			}
			if err := other.Apply(task.ActionPause, now); err != nil {
				return err
			}
			r.logger.Debug("paused running task", "id", other.ID, "for", id)
		}
	}

	if err := t.Apply(action, now); err != nil {
		return err
	}
	r.revision++
	return nil
}

// Revision increments on every successful mutation; the update loop uses it
// to detect unsaved changes.
func (r *Registry) Revision() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.revision
}

// Snapshot produces an immutable copy of the full registry for persistence.
func (r *Registry) Snapshot() *task.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := &task.Snapshot{SchemaVersion: task.SchemaVersion}
	snap.Tasks = make([]task.Task, 0, len(r.order))
	for _, id := range r.order {
		snap.Tasks = append(snap.Tasks, *r.tasks[id].Clone())
	}
	return snap
}

// Restore replaces the registry contents with a loaded snapshot.
func (r *Registry) Restore(snap *task.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tasks = make(map[string]*task.Task, len(snap.Tasks))
	r.order = make([]string, 0, len(snap.Tasks))
	for i := range snap.Tasks {
		t := snap.Tasks[i].Clone()
		r.tasks[t.ID] = t
		r.order = append(r.order, t.ID)
	}
	r.revision++
}

// ImportTodos adds a task for every todo whose UID hasn't been imported
// before, and returns how many were added.
func (r *Registry) ImportTodos(todos []ical.Todo) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]bool, len(r.tasks))
	for _, t := range r.tasks {
		if t.ImportedUID != "" {
			seen[t.ImportedUID] = true
		}
	}

	added := 0
	for _, todo := range todos {
		if todo.UID == "" || seen[todo.UID] {
			continue
		}
		seen[todo.UID] = true
		t := &task.Task{
			ID:          uuid.NewString(),
			Name:        todo.Summary,
			Priority:    todo.Priority,
			StartsAt:    todo.StartsAt,
			DueAt:       todo.DueAt,
			CreatedAt:   r.clock.Now(),
			ImportedUID: todo.UID,
			Session:     task.Session{State: task.StateIdle},
		}
		r.tasks[t.ID] = t
		r.order = append(r.order, t.ID)
		added++
	}
	if added > 0 {
		r.revision++
		r.logger.Info("imported todos", "count", added)
	}
	return added
}
