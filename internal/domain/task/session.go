package task

import "time"

// Apply drives the session state machine:
//
//	idle → running → paused → running → completed
//
// with idle → completed and paused → completed also allowed. Stop on a
// completed task is a no-op so UI retries stay cheap. Any other illegal
// transition returns ErrInvalidTransition and leaves the task unchanged.
func (t *Task) Apply(action Action, now time.Time) error {
	switch action {
	case ActionStart:
		if t.Session.State != StateIdle {
			return ErrInvalidTransition
		}
		t.open(now)
	case ActionPause:
		if t.Session.State != StateRunning {
			return ErrInvalidTransition
		}
		t.closeInterval(now)
		t.Session.State = StatePaused
	case ActionResume:
		if t.Session.State != StatePaused {
			return ErrInvalidTransition
		}
		t.open(now)
	case ActionStop:
		switch t.Session.State {
		case StateCompleted:
			return nil // idempotent
		case StateRunning:
			t.closeInterval(now)
		case StatePaused, StateIdle:
		default:
			return ErrInvalidTransition
		}
		t.Session.State = StateCompleted
	default:
		return ErrInvalidTransition
	}
	return nil
}

func (t *Task) open(now time.Time) {
	started := now
	t.Session.StartedAt = &started
	t.Session.State = StateRunning
}

// closeInterval appends [StartedAt, now) and folds its length into
// Accumulated in the same step, so readers never see one without the other.
func (t *Task) closeInterval(now time.Time) {
	if t.Session.StartedAt == nil {
		return
	}
	iv := Interval{Start: *t.Session.StartedAt, End: now}
	if iv.End.Before(iv.Start) {
		iv.End = iv.Start
	}
	t.Session.Intervals = append(t.Session.Intervals, iv)
	t.Accumulated += iv.Length()
	t.Session.StartedAt = nil
}
