// Package storage defines the persistence boundary for registry snapshots.
package storage

import (
	"context"
	"errors"

	"github.com/ganot/task-timer/internal/domain/task"
)

var (
	// ErrNotFound is returned by Load when no prior state exists.
	ErrNotFound = errors.New("no stored state")

	// ErrCorruptState is returned by Load when the stored representation
	// cannot be parsed or carries an incompatible schema version.
	ErrCorruptState = errors.New("corrupt stored state")
)

// Store persists registry snapshots between runs.
//
// Save must replace the prior state atomically so a crash mid-write cannot
// corrupt it, and Load immediately after Save must reproduce the snapshot
// with at least second-level timestamp precision.
type Store interface {
	Load(ctx context.Context) (*task.Snapshot, error)
	Save(ctx context.Context, snap *task.Snapshot) error
}
