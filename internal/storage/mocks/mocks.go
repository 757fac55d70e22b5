// Package mocks provides testify mocks for storage interfaces.
package mocks

import (
	"context"

	"github.com/ganot/task-timer/internal/domain/task"
	"github.com/stretchr/testify/mock"
)

// Store is a mock for storage.Store.
type Store struct {
	mock.Mock
}

func (m *Store) Load(ctx context.Context) (*task.Snapshot, error) {
	args := m.Called(ctx)
	if snap, ok := args.Get(0).(*task.Snapshot); ok {
		return snap, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Store) Save(ctx context.Context, snap *task.Snapshot) error {
	args := m.Called(ctx, snap)
	return args.Error(0)
}
