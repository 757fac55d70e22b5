package task_test

import (
	"testing"
	"time"

	"github.com/ganot/task-timer/internal/domain/task"
	"github.com/stretchr/testify/require"
)

func newTask(t0 time.Time) *task.Task {
	return &task.Task{
		ID:        "t1",
		Name:      "Write report",
		Priority:  task.DefaultPriority,
		CreatedAt: t0,
		Session:   task.Session{State: task.StateIdle},
	}
}

func TestSession_PauseResumeStopAccumulates(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	tk := newTask(t0)

	require.NoError(t, tk.Apply(task.ActionStart, t0))
	require.Equal(t, task.StateRunning, tk.Session.State)
	require.NotNil(t, tk.Session.StartedAt)

	require.NoError(t, tk.Apply(task.ActionPause, t0.Add(120*time.Second)))
	require.Equal(t, task.StatePaused, tk.Session.State)
	require.Equal(t, 120*time.Second, tk.Accumulated)
	require.Nil(t, tk.Session.StartedAt)
	require.Len(t, tk.Session.Intervals, 1)

	require.NoError(t, tk.Apply(task.ActionResume, t0.Add(200*time.Second)))
	require.NoError(t, tk.Apply(task.ActionStop, t0.Add(260*time.Second)))
	require.Equal(t, task.StateCompleted, tk.Session.State)
	require.Equal(t, 180*time.Second, tk.Accumulated)
	require.Len(t, tk.Session.Intervals, 2)
}

func TestSession_IllegalTransitionsLeaveStateUnchanged(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	cases := []struct {
		name    string
		prepare []task.Action
		action  task.Action
	}{
		{"pause while idle", nil, task.ActionPause},
		{"resume while idle", nil, task.ActionResume},
		{"start while running", []task.Action{task.ActionStart}, task.ActionStart},
		{"resume while running", []task.Action{task.ActionStart}, task.ActionResume},
		{"start while paused", []task.Action{task.ActionStart, task.ActionPause}, task.ActionStart},
		{"pause while paused", []task.Action{task.ActionStart, task.ActionPause}, task.ActionPause},
		{"start after stop", []task.Action{task.ActionStart, task.ActionStop}, task.ActionStart},
		{"pause after stop", []task.Action{task.ActionStart, task.ActionStop}, task.ActionPause},
		{"resume after stop", []task.Action{task.ActionStart, task.ActionStop}, task.ActionResume},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tk := newTask(t0)
			now := t0
			for _, a := range tc.prepare {
				now = now.Add(time.Second)
				require.NoError(t, tk.Apply(a, now))
			}
			before := *tk.Clone()
			err := tk.Apply(tc.action, now.Add(time.Second))
			require.ErrorIs(t, err, task.ErrInvalidTransition)
			require.Equal(t, before.Session.State, tk.Session.State)
			require.Equal(t, before.Accumulated, tk.Accumulated)
			require.Equal(t, len(before.Session.Intervals), len(tk.Session.Intervals))
		})
	}
}

func TestSession_StopIsIdempotentOnCompleted(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	tk := newTask(t0)
	require.NoError(t, tk.Apply(task.ActionStart, t0))
	require.NoError(t, tk.Apply(task.ActionStop, t0.Add(time.Minute)))

	require.NoError(t, tk.Apply(task.ActionStop, t0.Add(2*time.Minute)))
	require.Equal(t, task.StateCompleted, tk.Session.State)
	require.Equal(t, time.Minute, tk.Accumulated)
}

func TestSession_StopFromIdleAndPaused(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	idle := newTask(t0)
	require.NoError(t, idle.Apply(task.ActionStop, t0))
	require.Equal(t, task.StateCompleted, idle.Session.State)
	require.Zero(t, idle.Accumulated)

	paused := newTask(t0)
	require.NoError(t, paused.Apply(task.ActionStart, t0))
	require.NoError(t, paused.Apply(task.ActionPause, t0.Add(30*time.Second)))
	require.NoError(t, paused.Apply(task.ActionStop, t0.Add(90*time.Second)))
	require.Equal(t, task.StateCompleted, paused.Session.State)
	require.Equal(t, 30*time.Second, paused.Accumulated)
}

func TestTask_LiveDuration(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	tk := newTask(t0)

	require.Zero(t, tk.LiveDuration(t0))

	require.NoError(t, tk.Apply(task.ActionStart, t0))
	require.Equal(t, 45*time.Second, tk.LiveDuration(t0.Add(45*time.Second)))

	require.NoError(t, tk.Apply(task.ActionPause, t0.Add(60*time.Second)))
	// Frozen while paused.
	require.Equal(t, time.Minute, tk.LiveDuration(t0.Add(10*time.Minute)))
}

func TestTask_CloneIsDeep(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	tk := newTask(t0)
	require.NoError(t, tk.Apply(task.ActionStart, t0))

	c := tk.Clone()
	require.NoError(t, tk.Apply(task.ActionPause, t0.Add(time.Minute)))

	require.Equal(t, task.StateRunning, c.Session.State)
	require.NotNil(t, c.Session.StartedAt)
	require.Empty(t, c.Session.Intervals)
}
