// Package loop drives the periodic refresh, redraw signaling and autosave.
package loop

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ganot/task-timer/internal/clock"
	"github.com/ganot/task-timer/internal/domain/task"
	"github.com/ganot/task-timer/internal/engine"
	"github.com/ganot/task-timer/internal/storage"
)

const slowSaveWarn = 2 * time.Second

// Options configures the driver cadence.
type Options struct {
	// TickInterval is the refresh cadence. Defaults to 250ms.
	TickInterval time.Duration
	// AutosaveTicks is how many ticks may pass between autosaves of a
	// dirty registry. Defaults to 40.
	AutosaveTicks int
}

func (o *Options) applyDefaults() {
	if o.TickInterval <= 0 {
		o.TickInterval = 250 * time.Millisecond
	}
	if o.AutosaveTicks <= 0 {
		o.AutosaveTicks = 40
	}
}

// Driver ties the redraw cycle to state refresh. Each tick it advances the
// pomodoro cycle, recomputes the visible state, and signals the GUI only
// when something it would display has changed. It also flushes dirty
// registry state to the store, one save in flight at a time.
type Driver struct {
	engine *engine.Engine
	store  storage.Store
	clock  clock.Clock
	redraw func()
	logger *slog.Logger
	opts   Options

	lastFingerprint string
	ticksSinceSave  int

	saveMu       sync.Mutex
	saveDone     *sync.Cond
	saving       bool
	pending      *task.Snapshot
	pendingRev   uint64
	lastSavedRev uint64
}

// New creates a driver. redraw may be nil when no GUI is attached.
func New(eng *engine.Engine, store storage.Store, clk clock.Clock, redraw func(), logger *slog.Logger, opts Options) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	opts.applyDefaults()
	d := &Driver{
		engine: eng,
		store:  store,
		clock:  clk,
		redraw: redraw,
		logger: logger,
		opts:   opts,
	}
	d.saveDone = sync.NewCond(&d.saveMu)
	return d
}

// Run ticks until the context is canceled, then flushes any unsaved state.
func (d *Driver) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.opts.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return d.Flush(flushCtx)
		case <-ticker.C:
			d.Tick()
		}
	}
}

// Tick performs one refresh cycle. It is exported so a GUI frontend can
// drive the loop from its own frame callback instead of Run.
func (d *Driver) Tick() {
	now := d.clock.Now()
	d.engine.Tick(now)

	fp := d.fingerprint(now)
	if fp != d.lastFingerprint {
		d.lastFingerprint = fp
		if d.redraw != nil {
			d.redraw()
		}
	}

	d.ticksSinceSave++
	if d.ticksSinceSave < d.opts.AutosaveTicks {
		return
	}
	d.ticksSinceSave = 0

	rev := d.engine.Registry.Revision()
	if rev == d.savedRevision() {
		return
	}
	d.requestSave(d.engine.Registry.Snapshot(), rev)
}

// Flush waits for any in-flight save and synchronously saves remaining
// dirty state. Used at shutdown.
func (d *Driver) Flush(ctx context.Context) error {
	d.saveMu.Lock()
	for d.saving {
		d.saveDone.Wait()
	}
	d.saveMu.Unlock()

	rev := d.engine.Registry.Revision()
	if rev == d.savedRevision() {
		return nil
	}
	if err := d.saveOnce(ctx, d.engine.Registry.Snapshot(), rev); err != nil {
		return fmt.Errorf("final save: %w", err)
	}
	return nil
}

// fingerprint captures everything the GUI displays, truncated to the
// second so sub-second ticks don't force redraws.
func (d *Driver) fingerprint(now time.Time) string {
	var b strings.Builder
	status := d.engine.Status()
	fmt.Fprintf(&b, "%s/%d;", status.Phase, int(status.Remaining.Seconds()))
	fmt.Fprintf(&b, "%d;", d.engine.Registry.Revision())
	for _, v := range d.engine.Registry.ListTasks() {
		fmt.Fprintf(&b, "%s=%d,", v.Task.ID, int(v.Elapsed.Seconds()))
	}
	return b.String()
}

// requestSave hands a snapshot to the save worker. While a save is in
// flight, later requests coalesce into a single pending one.
func (d *Driver) requestSave(snap *task.Snapshot, rev uint64) {
	d.saveMu.Lock()
	if d.saving {
		d.pending = snap
		d.pendingRev = rev
		d.saveMu.Unlock()
		return
	}
	d.saving = true
	d.saveMu.Unlock()

	go d.saveWorker(snap, rev)
}

func (d *Driver) saveWorker(snap *task.Snapshot, rev uint64) {
	for {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := d.saveOnce(ctx, snap, rev); err != nil {
			d.logger.Warn("autosave failed, state kept in memory", "error", err)
		}
		cancel()

		d.saveMu.Lock()
		if d.pending != nil {
			snap, rev = d.pending, d.pendingRev
			d.pending = nil
			d.saveMu.Unlock()
			continue
		}
		d.saving = false
		d.saveDone.Broadcast()
		d.saveMu.Unlock()
		return
	}
}

// saveOnce writes the snapshot, retrying a failed write once.
func (d *Driver) saveOnce(ctx context.Context, snap *task.Snapshot, rev uint64) error {
	start := time.Now()
	err := d.store.Save(ctx, snap)
	if err != nil {
		d.logger.Warn("save failed, retrying", "error", err)
		err = d.store.Save(ctx, snap)
	}
	if elapsed := time.Since(start); elapsed > slowSaveWarn {
		d.logger.Warn("save took unusually long", "elapsed", elapsed)
	}
	if err != nil {
		return err
	}

	d.saveMu.Lock()
	if rev > d.lastSavedRev {
		d.lastSavedRev = rev
	}
	d.saveMu.Unlock()
	d.logger.Debug("snapshot saved", "tasks", len(snap.Tasks), "revision", rev)
	return nil
}

func (d *Driver) savedRevision() uint64 {
	d.saveMu.Lock()
	defer d.saveMu.Unlock()
	return d.lastSavedRev
}
