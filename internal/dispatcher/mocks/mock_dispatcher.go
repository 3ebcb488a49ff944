package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/retroshelf/retroshelf/internal/dispatcher"
)

// MockDispatcher is a mock implementation of dispatcher.Dispatcher.
type MockDispatcher struct {
	mock.Mock
}

//nolint:revive
func (m *MockDispatcher) Schedule(ctx context.Context, payload dispatcher.Payload, firesAt time.Time) (string, error) {
	args := m.Called(ctx, payload, firesAt)
	return args.String(0), args.Error(1)
}

//nolint:revive
func (m *MockDispatcher) Cancel(ctx context.Context, jobID string) error {
	args := m.Called(ctx, jobID)
	return args.Error(0)
}

//nolint:revive
func (m *MockDispatcher) ListScheduled(ctx context.Context) ([]dispatcher.Job, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]dispatcher.Job), args.Error(1)
}
