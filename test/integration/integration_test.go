package integration_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/ganot/task-timer/internal/clock"
	"github.com/ganot/task-timer/internal/domain/task"
	"github.com/ganot/task-timer/internal/engine"
	"github.com/ganot/task-timer/internal/loop"
	"github.com/ganot/task-timer/internal/notify"
	"github.com/ganot/task-timer/internal/pomodoro"
	"github.com/ganot/task-timer/internal/registry"
	"github.com/ganot/task-timer/internal/sqlite"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	db    *sqlite.DB
	store *sqlite.Store
	clk   *clock.Fake
	reg   *registry.Registry
	eng   *engine.Engine
}

func newTestEnv(t *testing.T, opts ...registry.Option) *testEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := sqlite.New(dsn)
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())
	t.Cleanup(func() { _ = db.Close() })

	clk := clock.NewFake(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	reg := registry.New(clk, nil, opts...)
	eng := engine.New(reg, clk, pomodoro.DefaultSettings(), notify.NewLogNotifier(nil), nil)

	return &testEnv{
		db:    db,
		store: sqlite.NewStore(db),
		clk:   clk,
		reg:   reg,
		eng:   eng,
	}
}

func TestIntegration_TrackPersistRestore(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	created, err := env.reg.CreateTask(registry.CreateRequest{Name: "Write report"})
	require.NoError(t, err)

	require.NoError(t, env.reg.ApplyTransition(created.ID, task.ActionStart))
	env.clk.Advance(120 * time.Second)
	require.NoError(t, env.reg.ApplyTransition(created.ID, task.ActionPause))
	env.clk.Advance(80 * time.Second)
	require.NoError(t, env.reg.ApplyTransition(created.ID, task.ActionResume))
	env.clk.Advance(60 * time.Second)
	require.NoError(t, env.reg.ApplyTransition(created.ID, task.ActionStop))

	view, err := env.reg.View(created.ID)
	require.NoError(t, err)
	require.Equal(t, task.StateCompleted, view.Task.Session.State)
	require.Equal(t, 180*time.Second, view.Task.Accumulated)

	require.NoError(t, env.store.Save(ctx, env.reg.Snapshot()))

	// A second process start against the same database.
	restored := registry.New(env.clk, nil)
	snap, err := env.store.Load(ctx)
	require.NoError(t, err)
	restored.Restore(snap)
	require.Equal(t, env.reg.Snapshot(), restored.Snapshot())
}

func TestIntegration_RunningTaskSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	created, err := env.reg.CreateTask(registry.CreateRequest{Name: "long haul"})
	require.NoError(t, err)
	require.NoError(t, env.reg.ApplyTransition(created.ID, task.ActionStart))
	env.clk.Advance(30 * time.Second)

	require.NoError(t, env.store.Save(ctx, env.reg.Snapshot()))

	restored := registry.New(env.clk, nil)
	snap, err := env.store.Load(ctx)
	require.NoError(t, err)
	restored.Restore(snap)

	// The open interval keeps accruing against the restored start time.
	env.clk.Advance(30 * time.Second)
	view, err := restored.View(created.ID)
	require.NoError(t, err)
	require.Equal(t, task.StateRunning, view.Task.Session.State)
	require.Equal(t, time.Minute, view.Elapsed)
}

func TestIntegration_DriverAutosavesThroughStore(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	driver := loop.New(env.eng, env.store, env.clk, nil, nil, loop.Options{AutosaveTicks: 1})

	_, err := env.reg.CreateTask(registry.CreateRequest{Name: "autosaved"})
	require.NoError(t, err)

	driver.Tick()
	require.NoError(t, driver.Flush(ctx))

	snap, err := env.store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Tasks, 1)
	require.Equal(t, "autosaved", snap.Tasks[0].Name)
}
