package fileio

import (
	"context"

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

func (m *MockSessions) UpdateActivity(sessionID string) error {
	args := m.Called(sessionID)
	return args.Error(0)
}

// MockEngine mocks the Engine interface.
type MockEngine struct {
	mock.Mock
}

func (m *MockEngine) UploadFile(ctx context.Context, containerID, destPath string, content []byte, mode int64) error {
	args := m.Called(ctx, containerID, destPath, content, mode)
	return args.Error(0)
}

func (m *MockEngine) DownloadFile(ctx context.Context, containerID, srcPath string) ([]byte, error) {
	args := m.Called(ctx, containerID, srcPath)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

func (m *MockEngine) ListDirectory(ctx context.Context, containerID, dirPath string) ([]engine.FileEntry, error) {
	args := m.Called(ctx, containerID, dirPath)
	entries, _ := args.Get(0).([]engine.FileEntry)
	return entries, args.Error(1)
}

func (m *MockEngine) DeleteFile(ctx context.Context, containerID, targetPath string) error {
	args := m.Called(ctx, containerID, targetPath)
	return args.Error(0)
}
