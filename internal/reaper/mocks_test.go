package reaper

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sandkasten/pool/internal/engine"
	"github.com/sandkasten/pool/internal/store"
)

// MockSessions mocks the Sessions interface.
type MockSessions struct {
	mock.Mock
}

func (m *MockSessions) List() ([]store.SessionRecord, error) {
	args := m.Called()
	recs, _ := args.Get(0).([]store.SessionRecord)
	return recs, args.Error(1)
}

func (m *MockSessions) Destroy(ctx context.Context, sessionID string, destroyContainer bool) error {
	args := m.Called(ctx, sessionID, destroyContainer)
	return args.Error(0)
}

func (m *MockSessions) OnContainerRemovedExternally(ctx context.Context, containerID string) error {
	args := m.Called(ctx, containerID)
	return args.Error(0)
}

// MockEngine mocks the Engine interface.
type MockEngine struct {
	mock.Mock
}

func (m *MockEngine) ListManagedContainers(ctx context.Context, labelPrefix string) ([]engine.ContainerRecord, error) {
	args := m.Called(ctx, labelPrefix)
	recs, _ := args.Get(0).([]engine.ContainerRecord)
	return recs, args.Error(1)
}

func (m *MockEngine) RemoveContainer(ctx context.Context, containerID string) error {
	args := m.Called(ctx, containerID)
	return args.Error(0)
}

// MockPool mocks the Pool interface.
type MockPool struct {
	mock.Mock
}

func (m *MockPool) GetAll() ([]store.ContainerRecord, error) {
	args := m.Called()
	recs, _ := args.Get(0).([]store.ContainerRecord)
	return recs, args.Error(1)
}
