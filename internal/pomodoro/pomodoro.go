// Package pomodoro implements the work/break phase cycle.
package pomodoro

import "time"

// Phase is the current position in the pomodoro cycle.
type Phase string

const (
	PhaseNotRunning Phase = "not_running"
	PhaseWorking    Phase = "working"
	PhaseShortBreak Phase = "short_break"
	PhaseLongBreak  Phase = "long_break"
)

// Settings controls the phase lengths. Every LongRestInterval-th work period
// flows into a long break instead of a short one.
type Settings struct {
	Work             time.Duration
	ShortRest        time.Duration
	LongRest         time.Duration
	LongRestInterval int
}

// DefaultSettings matches the classic 25/10/30 minute cycle.
func DefaultSettings() Settings {
	return Settings{
		Work:             25 * time.Minute,
		ShortRest:        10 * time.Minute,
		LongRest:         30 * time.Minute,
		LongRestInterval: 4,
	}
}

// Timer tracks the current phase. It is a pure state machine; callers feed
// it instants and it never reads the clock itself.
type Timer struct {
	phase          Phase
	startedAt      time.Time
	workSinceBreak int
}

// New returns a stopped timer.
func New() *Timer {
	return &Timer{phase: PhaseNotRunning}
}

// Start begins a fresh work period.
func (t *Timer) Start(now time.Time) {
	t.phase = PhaseWorking
	t.startedAt = now
	t.workSinceBreak = 0
}

// Stop returns the timer to not running.
func (t *Timer) Stop() {
	t.phase = PhaseNotRunning
	t.workSinceBreak = 0
}

// Tick advances the cycle when the current phase has run its course, or
// immediately when skip is set. It reports whether the phase changed.
func (t *Timer) Tick(settings Settings, now time.Time, skip bool) bool {
	switch t.phase {
	case PhaseWorking:
		if !skip && now.Sub(t.startedAt) < settings.Work {
			return false
		}
		t.workSinceBreak++
		if t.workSinceBreak >= settings.LongRestInterval {
			t.phase = PhaseLongBreak
		} else {
			t.phase = PhaseShortBreak
		}
		t.startedAt = now
	case PhaseShortBreak:
		if !skip && now.Sub(t.startedAt) < settings.ShortRest {
			return false
		}
		t.phase = PhaseWorking
		t.startedAt = now
	case PhaseLongBreak:
		if !skip && now.Sub(t.startedAt) < settings.LongRest {
			return false
		}
		t.phase = PhaseWorking
		t.startedAt = now
		t.workSinceBreak = 0
	default:
		return false
	}
	return true
}

// Phase returns the current phase.
func (t *Timer) Phase() Phase { return t.phase }

// Running reports whether the cycle is active at all.
func (t *Timer) Running() bool { return t.phase != PhaseNotRunning }

// Working reports whether the cycle is in a work period.
func (t *Timer) Working() bool { return t.phase == PhaseWorking }

// Remaining returns how much of the current phase is left. It is zero when
// not running and clamps at zero once the phase is due to flip.
func (t *Timer) Remaining(now time.Time, settings Settings) time.Duration {
	var span time.Duration
	switch t.phase {
	case PhaseWorking:
		span = settings.Work
	case PhaseShortBreak:
		span = settings.ShortRest
	case PhaseLongBreak:
		span = settings.LongRest
	default:
		return 0
	}
	left := span - now.Sub(t.startedAt)
	if left < 0 {
		return 0
	}
	return left
}
