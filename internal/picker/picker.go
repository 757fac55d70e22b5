// Package picker chooses which task to work on next.
package picker

import (
	"math/rand"
	"time"

	"github.com/ganot/task-timer/internal/domain/task"
)

// maxWeightedPriority caps the weight scale: priority 0 is the heaviest
// candidate, priority 11 (unset) still gets weight 1.
const maxWeightedPriority = 12

// Suggest picks a weighted-random task to work on. Completed tasks and tasks
// whose start date lies in the future are skipped; lower priority numbers
// weigh more, and overdue tasks have their weight doubled.
func Suggest(tasks []task.Task, now time.Time, rng *rand.Rand) *task.Task {
	type candidate struct {
		index  int
		weight int
	}

	var candidates []candidate
	total := 0
	for i := range tasks {
		w := weight(&tasks[i], now)
		if w <= 0 {
			continue
		}
		candidates = append(candidates, candidate{index: i, weight: w})
		total += w
	}
	if total == 0 {
		return nil
	}

	pick := rng.Intn(total)
	for _, c := range candidates {
		pick -= c.weight
		if pick < 0 {
			return tasks[c.index].Clone()
		}
	}
	return nil
}

func weight(t *task.Task, now time.Time) int {
	if t.Session.State == task.StateCompleted {
		return 0
	}
	if t.StartsAt != nil && !t.StartsAt.Before(now) {
		return 0
	}
	w := maxWeightedPriority - t.Priority
	if t.DueAt != nil && t.DueAt.Before(now) {
		w *= 2
		if w < 1 {
			w = 1
		}
	}
	return w
}
