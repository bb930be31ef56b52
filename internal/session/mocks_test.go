package session

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sandkasten/pool/internal/store"
)

// MockPool mocks the ContainerPool interface.
type MockPool struct {
	mock.Mock
}

func (m *MockPool) Acquire(ctx context.Context, sessionID string) (store.ContainerRecord, error) {
	args := m.Called(ctx, sessionID)
	rec, _ := args.Get(0).(store.ContainerRecord)
	return rec, args.Error(1)
}

func (m *MockPool) Release(ctx context.Context, containerID string, destroy bool) error {
	args := m.Called(ctx, containerID, destroy)
	return args.Error(0)
}

func (m *MockPool) Forget(containerID string) error {
	args := m.Called(containerID)
	return args.Error(0)
}

// MockStatus mocks the StatusPublisher interface.
type MockStatus struct {
	mock.Mock
}

func (m *MockStatus) PublishSessionCounts(queued, active, queueLength int) {
	m.Called(queued, active, queueLength)
}
