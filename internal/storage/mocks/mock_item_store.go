package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/retroshelf/retroshelf/internal/storage"
)

// MockItemStore is a mock implementation of storage.ItemStore.
type MockItemStore struct {
	mock.Mock
}

//nolint:revive
func (m *MockItemStore) ListItems(ctx context.Context) ([]*storage.Item, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*storage.Item), args.Error(1)
}

//nolint:revive
func (m *MockItemStore) ListItemsByType(ctx context.Context, t storage.ItemType) ([]*storage.Item, error) {
	args := m.Called(ctx, t)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*storage.Item), args.Error(1)
}

//nolint:revive
func (m *MockItemStore) GetItem(ctx context.Context, id string) (*storage.Item, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.Item), args.Error(1)
}

//nolint:revive
func (m *MockItemStore) CreateItem(ctx context.Context, item *storage.Item) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

//nolint:revive
func (m *MockItemStore) UpdateItem(ctx context.Context, item *storage.Item) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

//nolint:revive
func (m *MockItemStore) DeleteItem(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
