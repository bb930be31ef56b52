package command

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/sandkasten/pool/internal/engine"
	"github.com/sandkasten/pool/internal/store"
)

// MockSessions mocks the SessionLookup interface.
type MockSessions struct {
	mock.Mock
}

func (m *MockSessions) Get(sessionID string) (store.SessionRecord, error) {
	args := m.Called(sessionID)
	rec, _ := args.Get(0).(store.SessionRecord)
	return rec, args.Error(1)
}

func (m *MockSessions) SetExecuting(sessionID string, executing bool) error {
	args := m.Called(sessionID, executing)
	return args.Error(0)
}

func (m *MockSessions) IncrementCommandCount(sessionID string) error {
	args := m.Called(sessionID)
	return args.Error(0)
}

// MockEngine mocks the Engine interface.
type MockEngine struct {
	mock.Mock
}

func (m *MockEngine) ExecCommand(ctx context.Context, containerID string, argv []string, cmd, workDir string, timeout time.Duration) (engine.ExecResult, error) {
	args := m.Called(ctx, containerID, argv, cmd, workDir, timeout)
	res, _ := args.Get(0).(engine.ExecResult)
	return res, args.Error(1)
}

func (m *MockEngine) ExecCommandStream(ctx context.Context, containerID string, argv []string, cmd, workDir string, timeout time.Duration) (<-chan engine.StreamEvent, error) {
	args := m.Called(ctx, containerID, argv, cmd, workDir, timeout)
	ch, _ := args.Get(0).(<-chan engine.StreamEvent)
	return ch, args.Error(1)
}
