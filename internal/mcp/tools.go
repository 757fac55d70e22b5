package mcp

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ganot/task-timer/internal/domain/task"
	"github.com/ganot/task-timer/internal/engine"
	"github.com/ganot/task-timer/internal/ical"
	"github.com/ganot/task-timer/internal/registry"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

type CreateTaskParams struct {
	Name     string `json:"name" jsonschema:"task display name"`
	Priority int    `json:"priority,omitempty" jsonschema:"1 (highest) to 9 (lowest), 11 = unset"`
	StartsAt string `json:"starts_at,omitempty" jsonschema:"RFC 3339 timestamp before which the task is not actionable"`
	DueAt    string `json:"due_at,omitempty" jsonschema:"RFC 3339 due timestamp"`
}

type TaskIDParams struct {
	ID string `json:"id" jsonschema:"task ID"`
}

type ImportTodosParams struct {
	Path string `json:"path" jsonschema:"path to an iCalendar (.ics) file"`
}

type EmptyParams struct{}

// TaskResult is the wire representation of one task.
type TaskResult struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	State          string `json:"state"`
	Priority       int    `json:"priority"`
	ElapsedSeconds int64  `json:"elapsed_seconds"`
	CreatedAt      string `json:"created_at"`
	StartsAt       string `json:"starts_at,omitempty"`
	DueAt          string `json:"due_at,omitempty"`
	ImportedUID    string `json:"imported_uid,omitempty"`
}

type TaskListResult struct {
	Tasks []TaskResult `json:"tasks"`
}

type SuggestResult struct {
	Task *TaskResult `json:"task,omitempty"`
}

type TimerStatusResult struct {
	Phase            string `json:"phase"`
	RemainingSeconds int64  `json:"remaining_seconds"`
	Running          bool   `json:"running"`
}

type ImportTodosResult struct {
	Imported int `json:"imported"`
}

type StatusResult struct {
	Status string `json:"status"`
}

func registerTools(server *sdkmcp.Server, cfg Config) {
	tasks, timer, store := cfg.Tasks, cfg.Timer, cfg.Store

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "create_task",
		Description: "Create a new task to track time against",
	}, func(ctx context.Context, req *sdkmcp.CallToolRequest, in CreateTaskParams) (*sdkmcp.CallToolResult, TaskResult, error) {
		startsAt, err := parseOptionalTime(in.StartsAt)
		if err != nil {
			return nil, TaskResult{}, fmt.Errorf("starts_at: %w", err)
		}
		dueAt, err := parseOptionalTime(in.DueAt)
		if err != nil {
			return nil, TaskResult{}, fmt.Errorf("due_at: %w", err)
		}
		created, err := tasks.CreateTask(registry.CreateRequest{
			Name:     in.Name,
			Priority: in.Priority,
			StartsAt: startsAt,
			DueAt:    dueAt,
		})
		if err != nil {
			return nil, TaskResult{}, mapError(err)
		}
		return nil, taskResult(created, 0), nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "delete_task",
		Description: "Delete a task and its recorded sessions",
	}, func(ctx context.Context, req *sdkmcp.CallToolRequest, in TaskIDParams) (*sdkmcp.CallToolResult, StatusResult, error) {
		if err := tasks.DeleteTask(in.ID); err != nil {
			return nil, StatusResult{}, mapError(err)
		}
		return nil, StatusResult{Status: "deleted"}, nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "list_tasks",
		Description: "List all tasks in creation order with live elapsed time",
	}, func(ctx context.Context, req *sdkmcp.CallToolRequest, in EmptyParams) (*sdkmcp.CallToolResult, TaskListResult, error) {
		views := tasks.ListTasks()
		out := TaskListResult{Tasks: make([]TaskResult, 0, len(views))}
		for _, v := range views {
			out.Tasks = append(out.Tasks, taskResult(&v.Task, v.Elapsed))
		}
		return nil, out, nil
	})

	transitions := []struct {
		name        string
		description string
		action      task.Action
	}{
		{"start_task", "Start timing a task (idle tasks only)", task.ActionStart},
		{"pause_task", "Pause a running task, closing the current interval", task.ActionPause},
		{"resume_task", "Resume a paused task", task.ActionResume},
		{"stop_task", "Complete a task; no-op if already completed", task.ActionStop},
	}
	for _, tr := range transitions {
		action := tr.action
		sdkmcp.AddTool(server, &sdkmcp.Tool{
			Name:        tr.name,
			Description: tr.description,
		}, func(ctx context.Context, req *sdkmcp.CallToolRequest, in TaskIDParams) (*sdkmcp.CallToolResult, TaskResult, error) {
			if err := tasks.ApplyTransition(in.ID, action); err != nil {
				return nil, TaskResult{}, mapError(err)
			}
			view, err := tasks.View(in.ID)
			if err != nil {
				return nil, TaskResult{}, mapError(err)
			}
			return nil, taskResult(&view.Task, view.Elapsed), nil
		})
	}

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "suggest_task",
		Description: "Suggest the next task to work on, weighted by priority and overdue status",
	}, func(ctx context.Context, req *sdkmcp.CallToolRequest, in EmptyParams) (*sdkmcp.CallToolResult, SuggestResult, error) {
		picked := timer.Suggest()
		if picked == nil {
			return nil, SuggestResult{}, nil
		}
		result := taskResult(picked, picked.Accumulated)
		return nil, SuggestResult{Task: &result}, nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "timer_status",
		Description: "Get the current pomodoro phase and remaining time",
	}, func(ctx context.Context, req *sdkmcp.CallToolRequest, in EmptyParams) (*sdkmcp.CallToolResult, TimerStatusResult, error) {
		return nil, timerResult(timer.Status()), nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "start_timer",
		Description: "Start the pomodoro cycle with a fresh work period",
	}, func(ctx context.Context, req *sdkmcp.CallToolRequest, in EmptyParams) (*sdkmcp.CallToolResult, TimerStatusResult, error) {
		return nil, timerResult(timer.StartTimer()), nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "stop_timer",
		Description: "Stop the pomodoro cycle",
	}, func(ctx context.Context, req *sdkmcp.CallToolRequest, in EmptyParams) (*sdkmcp.CallToolResult, TimerStatusResult, error) {
		return nil, timerResult(timer.StopTimer()), nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "skip_phase",
		Description: "Skip ahead to the next pomodoro phase",
	}, func(ctx context.Context, req *sdkmcp.CallToolRequest, in EmptyParams) (*sdkmcp.CallToolResult, TimerStatusResult, error) {
		return nil, timerResult(timer.SkipPhase()), nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "import_todos",
		Description: "Import open VTODO entries from an iCalendar file as tasks",
	}, func(ctx context.Context, req *sdkmcp.CallToolRequest, in ImportTodosParams) (*sdkmcp.CallToolResult, ImportTodosResult, error) {
		f, err := os.Open(in.Path)
		if err != nil {
			return nil, ImportTodosResult{}, fmt.Errorf("open calendar file: %w", err)
		}
		defer f.Close()
		todos, err := ical.ParseTodos(f)
		if err != nil {
			return nil, ImportTodosResult{}, err
		}
		return nil, ImportTodosResult{Imported: tasks.ImportTodos(todos)}, nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "save_now",
		Description: "Flush the current state to durable storage immediately",
	}, func(ctx context.Context, req *sdkmcp.CallToolRequest, in EmptyParams) (*sdkmcp.CallToolResult, StatusResult, error) {
		if err := store.Save(ctx, tasks.Snapshot()); err != nil {
			return nil, StatusResult{}, fmt.Errorf("save: %w", err)
		}
		return nil, StatusResult{Status: "saved"}, nil
	})
}

func taskResult(t *task.Task, elapsed time.Duration) TaskResult {
	if elapsed == 0 {
		elapsed = t.Accumulated
	}
	out := TaskResult{
		ID:             t.ID,
		Name:           t.Name,
		State:          string(t.Session.State),
		Priority:       t.Priority,
		ElapsedSeconds: int64(elapsed.Seconds()),
		CreatedAt:      t.CreatedAt.UTC().Format(time.RFC3339),
		ImportedUID:    t.ImportedUID,
	}
	if t.StartsAt != nil {
		out.StartsAt = t.StartsAt.UTC().Format(time.RFC3339)
	}
	if t.DueAt != nil {
		out.DueAt = t.DueAt.UTC().Format(time.RFC3339)
	}
	return out
}

func timerResult(status engine.TimerStatus) TimerStatusResult {
	return TimerStatusResult{
		Phase:            string(status.Phase),
		RemainingSeconds: int64(status.Remaining.Seconds()),
		Running:          status.Running,
	}
}

func parseOptionalTime(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, fmt.Errorf("expected RFC 3339 timestamp: %w", err)
	}
	return &t, nil
}
