// Package mcp exposes the timer core as an MCP server so GUI shells and
// agents can drive it over stdio or HTTP.
package mcp

import (
	"context"
	"log/slog"

	"github.com/ganot/task-timer/internal/domain/task"
	"github.com/ganot/task-timer/internal/engine"
	"github.com/ganot/task-timer/internal/ical"
	"github.com/ganot/task-timer/internal/registry"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// TaskService defines the registry operations needed by MCP.
type TaskService interface {
	CreateTask(req registry.CreateRequest) (*task.Task, error)
	DeleteTask(id string) error
	ListTasks() []registry.TaskView
	View(id string) (registry.TaskView, error)
	ApplyTransition(id string, action task.Action) error
	ImportTodos(todos []ical.Todo) int
	Snapshot() *task.Snapshot
}

// TimerService defines the pomodoro operations needed by MCP.
type TimerService interface {
	Status() engine.TimerStatus
	StartTimer() engine.TimerStatus
	StopTimer() engine.TimerStatus
	SkipPhase() engine.TimerStatus
	Suggest() *task.Task
}

// Saver persists on-demand snapshots for the save_now tool.
type Saver interface {
	Save(ctx context.Context, snap *task.Snapshot) error
}

// Config contains server configuration.
type Config struct {
	Tasks  TaskService
	Timer  TimerService
	Store  Saver
	Logger *slog.Logger
}

// NewServer creates and configures an MCP server with all tools and
// middleware.
func NewServer(cfg Config) *sdkmcp.Server {
	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "task-timer",
		Version: "0.1.0",
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
		Logger:       cfg.Logger,
	})

	server.AddReceivingMiddleware(trafficLoggingMiddleware(cfg.Logger, "inbound"))
	server.AddSendingMiddleware(trafficLoggingMiddleware(cfg.Logger, "outbound"))

	registerTools(server, cfg)

	return server
}

const serverInstructions = `task-timer tracks named tasks and the time actively
spent on them, plus a pomodoro work/break cycle.

Typical flow: create_task, then start_task / pause_task / resume_task /
stop_task to drive its session. list_tasks shows live elapsed time for
running tasks. suggest_task picks what to work on next, weighted by priority
and due dates. timer_status, start_timer, stop_timer and skip_phase control
the pomodoro cycle. import_todos pulls open VTODO entries from an iCalendar
file. State autosaves continuously; save_now forces a flush.`
