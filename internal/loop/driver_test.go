package loop_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ganot/task-timer/internal/clock"
	"github.com/ganot/task-timer/internal/domain/task"
	"github.com/ganot/task-timer/internal/engine"
	"github.com/ganot/task-timer/internal/loop"
	"github.com/ganot/task-timer/internal/notify"
	"github.com/ganot/task-timer/internal/pomodoro"
	"github.com/ganot/task-timer/internal/registry"
	"github.com/ganot/task-timer/internal/storage/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	clk    *clock.Fake
	reg    *registry.Registry
	eng    *engine.Engine
	store  *mocks.Store
	redraw int
}

func newFixture(t *testing.T, opts loop.Options) (*fixture, *loop.Driver) {
	t.Helper()
	f := &fixture{
		clk:   clock.NewFake(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)),
		store: &mocks.Store{},
	}
	f.reg = registry.New(f.clk, nil)
	f.eng = engine.New(f.reg, f.clk, pomodoro.DefaultSettings(), notify.NewLogNotifier(nil), nil)
	driver := loop.New(f.eng, f.store, f.clk, func() { f.redraw++ }, nil, opts)
	return f, driver
}

func TestDriver_RedrawOnlyWhenDisplayedStateChanges(t *testing.T) {
	f, driver := newFixture(t, loop.Options{AutosaveTicks: 1000})

	created, err := f.reg.CreateTask(registry.CreateRequest{Name: "work"})
	require.NoError(t, err)
	require.NoError(t, f.reg.ApplyTransition(created.ID, task.ActionStart))

	driver.Tick()
	require.Equal(t, 1, f.redraw, "first tick renders the initial state")

	driver.Tick()
	require.Equal(t, 1, f.redraw, "nothing changed, no redraw")

	f.clk.Advance(time.Second)
	driver.Tick()
	require.Equal(t, 2, f.redraw, "visible duration advanced a second")

	f.clk.Advance(300 * time.Millisecond)
	driver.Tick()
	require.Equal(t, 2, f.redraw, "sub-second movement is not displayed")
}

func TestDriver_AutosaveAfterTickBudget(t *testing.T) {
	f, driver := newFixture(t, loop.Options{AutosaveTicks: 2})
	f.store.On("Save", mock.Anything, mock.Anything).Return(nil)

	_, err := f.reg.CreateTask(registry.CreateRequest{Name: "dirty"})
	require.NoError(t, err)

	driver.Tick()
	f.store.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)

	driver.Tick()
	require.NoError(t, driver.Flush(context.Background()))
	f.store.AssertNumberOfCalls(t, "Save", 1)

	// Clean registry: further ticks stay quiet.
	driver.Tick()
	driver.Tick()
	require.NoError(t, driver.Flush(context.Background()))
	f.store.AssertNumberOfCalls(t, "Save", 1)
}

func TestDriver_SaveFailureKeepsMemoryAuthoritative(t *testing.T) {
	f, driver := newFixture(t, loop.Options{AutosaveTicks: 1})
	ioErr := errors.New("disk full")
	f.store.On("Save", mock.Anything, mock.Anything).Return(ioErr).Twice()
	f.store.On("Save", mock.Anything, mock.Anything).Return(nil)

	created, err := f.reg.CreateTask(registry.CreateRequest{Name: "fragile"})
	require.NoError(t, err)

	driver.Tick() // save fails, and the immediate retry fails too
	require.NoError(t, driver.Flush(context.Background()))
	f.store.AssertNumberOfCalls(t, "Save", 3) // two failures + flush retry

	// The registry never noticed.
	got, err := f.reg.GetTask(created.ID)
	require.NoError(t, err)
	require.Equal(t, "fragile", got.Name)

	saved := f.store.Calls[len(f.store.Calls)-1].Arguments.Get(1).(*task.Snapshot)
	require.Equal(t, f.reg.Snapshot(), saved)
}

// blockingStore lets a test hold a save open to observe coalescing.
type blockingStore struct {
	mu      sync.Mutex
	entered chan struct{}
	release chan struct{}
	saves   []*task.Snapshot
}

func (s *blockingStore) Load(ctx context.Context) (*task.Snapshot, error) {
	return nil, nil
}

func (s *blockingStore) Save(ctx context.Context, snap *task.Snapshot) error {
	s.entered <- struct{}{}
	<-s.release
	s.mu.Lock()
	s.saves = append(s.saves, snap)
	s.mu.Unlock()
	return nil
}

func TestDriver_PendingSavesCoalesce(t *testing.T) {
	clk := clock.NewFake(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	reg := registry.New(clk, nil)
	eng := engine.New(reg, clk, pomodoro.DefaultSettings(), notify.NewLogNotifier(nil), nil)
	store := &blockingStore{
		entered: make(chan struct{}, 4),
		release: make(chan struct{}),
	}
	driver := loop.New(eng, store, clk, nil, nil, loop.Options{AutosaveTicks: 1})

	_, err := reg.CreateTask(registry.CreateRequest{Name: "one"})
	require.NoError(t, err)
	driver.Tick() // first save starts and blocks
	<-store.entered

	// Two more dirty ticks while the save is held open.
	_, err = reg.CreateTask(registry.CreateRequest{Name: "two"})
	require.NoError(t, err)
	driver.Tick()
	_, err = reg.CreateTask(registry.CreateRequest{Name: "three"})
	require.NoError(t, err)
	driver.Tick()

	store.release <- struct{}{} // finish first save
	<-store.entered             // coalesced save starts
	store.release <- struct{}{}

	require.NoError(t, driver.Flush(context.Background()))

	store.mu.Lock()
	defer store.mu.Unlock()
	require.Len(t, store.saves, 2, "intermediate requests collapse into one")
	require.Len(t, store.saves[1].Tasks, 3, "the coalesced save carries the latest snapshot")
}
