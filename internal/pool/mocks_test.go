package pool

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"github.com/sandkasten/pool/internal/engine"
)

// MockEngine mocks the Engine interface.
type MockEngine struct {
	mock.Mock
}

func (m *MockEngine) EnsureImage(ctx context.Context, ref string, progressSink io.Writer) error {
	args := m.Called(ctx, ref, progressSink)
	return args.Error(0)
}

func (m *MockEngine) CreateManagedContainer(ctx context.Context, name string, opts engine.CreateOpts) (*engine.ContainerRecord, error) {
	args := m.Called(ctx, name, opts)
	rec, _ := args.Get(0).(*engine.ContainerRecord)
	return rec, args.Error(1)
}

func (m *MockEngine) RemoveContainer(ctx context.Context, containerID string) error {
	args := m.Called(ctx, containerID)
	return args.Error(0)
}

func (m *MockEngine) AssignSession(ctx context.Context, containerID, sessionID string) error {
	args := m.Called(ctx, containerID, sessionID)
	return args.Error(0)
}
