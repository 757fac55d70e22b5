// Package engine couples the task registry with the pomodoro cycle and the
// task picker behind one coordination point.
package engine

import (
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/ganot/task-timer/internal/clock"
	"github.com/ganot/task-timer/internal/domain/task"
	"github.com/ganot/task-timer/internal/notify"
	"github.com/ganot/task-timer/internal/picker"
	"github.com/ganot/task-timer/internal/pomodoro"
	"github.com/ganot/task-timer/internal/registry"
)

// Engine serializes access to the pomodoro timer and suggestion state. The
// registry carries its own lock; the engine only guards what it owns.
type Engine struct {
	Registry *registry.Registry

	mu       sync.Mutex
	timer    *pomodoro.Timer
	settings pomodoro.Settings
	rng      *rand.Rand

	clock    clock.Clock
	notifier notify.Notifier
	logger   *slog.Logger
}

// New creates an engine around an existing registry.
func New(reg *registry.Registry, clk clock.Clock, settings pomodoro.Settings, notifier notify.Notifier, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if notifier == nil {
		notifier = notify.NewLogNotifier(logger)
	}
	return &Engine{
		Registry: reg,
		timer:    pomodoro.New(),
		settings: settings,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		clock:    clk,
		notifier: notifier,
		logger:   logger,
	}
}

// TimerStatus describes the pomodoro cycle for display.
type TimerStatus struct {
	Phase     pomodoro.Phase
	Remaining time.Duration
	Running   bool
}

// Status returns the current pomodoro phase and remaining time.
func (e *Engine) Status() TimerStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.clock.Now()
	return TimerStatus{
		Phase:     e.timer.Phase(),
		Remaining: e.timer.Remaining(now, e.settings),
		Running:   e.timer.Running(),
	}
}

// StartTimer begins a fresh work period.
func (e *Engine) StartTimer() TimerStatus {
	e.mu.Lock()
	e.timer.Start(e.clock.Now())
	e.mu.Unlock()
	return e.Status()
}

// StopTimer halts the cycle.
func (e *Engine) StopTimer() TimerStatus {
	e.mu.Lock()
	e.timer.Stop()
	e.mu.Unlock()
	return e.Status()
}

// SkipPhase forces the cycle into its next phase and pings the notifier.
func (e *Engine) SkipPhase() TimerStatus {
	e.mu.Lock()
	if e.timer.Tick(e.settings, e.clock.Now(), true) {
		e.notifier.Ping(string(e.timer.Phase()))
	}
	e.mu.Unlock()
	return e.Status()
}

// Tick advances the cycle if its phase has expired, pinging the notifier on
// a change. The update loop calls this once per tick.
func (e *Engine) Tick(now time.Time) {
	e.mu.Lock()
	changed := e.timer.Tick(e.settings, now, false)
	phase := e.timer.Phase()
	e.mu.Unlock()
	if changed {
		e.notifier.Ping(string(phase))
	}
}

// Suggest picks a task to work on next, weighted by priority and due dates.
func (e *Engine) Suggest() *task.Task {
	views := e.Registry.ListTasks()
	tasks := make([]task.Task, 0, len(views))
	for _, v := range views {
		tasks = append(tasks, v.Task)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return picker.Suggest(tasks, e.clock.Now(), e.rng)
}
