package api

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/sandkasten/pool/internal/command"
	"github.com/sandkasten/pool/internal/engine"
	"github.com/sandkasten/pool/internal/status"
	"github.com/sandkasten/pool/internal/store"
)

// MockSessions mocks the Sessions interface.
type MockSessions struct {
	mock.Mock
}

func (m *MockSessions) Create(ctx context.Context, timeoutSeconds int) (store.SessionRecord, error) {
	args := m.Called(ctx, timeoutSeconds)
	rec, _ := args.Get(0).(store.SessionRecord)
	return rec, args.Error(1)
}

func (m *MockSessions) Get(sessionID string) (store.SessionRecord, error) {
	args := m.Called(sessionID)
	rec, _ := args.Get(0).(store.SessionRecord)
	return rec, args.Error(1)
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

func (m *MockSessions) DestroyByContainerID(ctx context.Context, containerID string) error {
	args := m.Called(ctx, containerID)
	return args.Error(0)
}

// MockCommands mocks the Commands interface.
type MockCommands struct {
	mock.Mock
}

func (m *MockCommands) Run(ctx context.Context, sessionID string, argv []string, cmd, workDir string, timeout time.Duration) (command.Result, error) {
	args := m.Called(ctx, sessionID, argv, cmd, workDir, timeout)
	res, _ := args.Get(0).(command.Result)
	return res, args.Error(1)
}

func (m *MockCommands) RunStream(ctx context.Context, sessionID string, argv []string, cmd, workDir string, timeout time.Duration) (<-chan engine.StreamEvent, error) {
	args := m.Called(ctx, sessionID, argv, cmd, workDir, timeout)
	ch, _ := args.Get(0).(<-chan engine.StreamEvent)
	return ch, args.Error(1)
}

// MockFiles mocks the Files interface.
type MockFiles struct {
	mock.Mock
}

func (m *MockFiles) Upload(ctx context.Context, sessionID, destPath string, content []byte, mode int64) error {
	args := m.Called(ctx, sessionID, destPath, content, mode)
	return args.Error(0)
}

func (m *MockFiles) Download(ctx context.Context, sessionID, srcPath string) ([]byte, error) {
	args := m.Called(ctx, sessionID, srcPath)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

func (m *MockFiles) List(ctx context.Context, sessionID, dirPath string) ([]engine.FileEntry, error) {
	args := m.Called(ctx, sessionID, dirPath)
	entries, _ := args.Get(0).([]engine.FileEntry)
	return entries, args.Error(1)
}

func (m *MockFiles) Delete(ctx context.Context, sessionID, targetPath string) error {
	args := m.Called(ctx, sessionID, targetPath)
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

func (m *MockPool) ForceDelete(ctx context.Context, containerID string) error {
	args := m.Called(ctx, containerID)
	return args.Error(0)
}

func (m *MockPool) DeleteAll(ctx context.Context) {
	m.Called(ctx)
}

func (m *MockPool) EnsurePrewarmed(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockPool) CreateIdle(ctx context.Context) (store.ContainerRecord, error) {
	args := m.Called(ctx)
	rec, _ := args.Get(0).(store.ContainerRecord)
	return rec, args.Error(1)
}

// MockStatus mocks the StatusSource interface.
type MockStatus struct {
	mock.Mock
}

func (m *MockStatus) Last() status.Snapshot {
	args := m.Called()
	snap, _ := args.Get(0).(status.Snapshot)
	return snap
}

func (m *MockStatus) Subscribe() (<-chan status.Snapshot, func()) {
	args := m.Called()
	ch, _ := args.Get(0).(<-chan status.Snapshot)
	unsub, _ := args.Get(1).(func())
	return ch, unsub
}
