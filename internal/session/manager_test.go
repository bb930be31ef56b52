package session

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sandkasten/pool/internal/pool"
	"github.com/sandkasten/pool/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCreateBindsActiveWhenPoolHasCapacity(t *testing.T) {
	p := new(MockPool)
	repo := store.NewMemorySessionRepo()
	m := New(repo, p, nil, testLogger(), 1800, 86400)

	p.On("Acquire", mock.Anything, mock.Anything).Return(store.ContainerRecord{ContainerID: "c1"}, nil)

	rec, err := m.Create(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, store.SessionActive, rec.Status)
	assert.Equal(t, "c1", rec.ContainerID)
	assert.Equal(t, 1800, rec.TimeoutSeconds)
}

func TestCreateQueuesWhenPoolExhausted(t *testing.T) {
	p := new(MockPool)
	repo := store.NewMemorySessionRepo()
	m := New(repo, p, nil, testLogger(), 1800, 86400)

	p.On("Acquire", mock.Anything, mock.Anything).Return(store.ContainerRecord{}, pool.ErrMaxContainersReached)

	rec, err := m.Create(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, store.SessionQueued, rec.Status)
	assert.Equal(t, 1, rec.QueuePosition)
}

func TestCreateRejectsInvalidTimeout(t *testing.T) {
	p := new(MockPool)
	repo := store.NewMemorySessionRepo()
	m := New(repo, p, nil, testLogger(), 1800, 86400)

	_, err := m.Create(context.Background(), 100000)
	assert.ErrorIs(t, err, ErrInvalidTimeout)
}

func TestDestroyReleasesContainerAndPromotesQueued(t *testing.T) {
	p := new(MockPool)
	repo := store.NewMemorySessionRepo()
	m := New(repo, p, nil, testLogger(), 1800, 86400)

	require.NoError(t, repo.Create(store.SessionRecord{ID: "active1", Status: store.SessionActive, ContainerID: "c1"}))
	require.NoError(t, repo.Create(store.SessionRecord{ID: "queued1", Status: store.SessionQueued, QueuePosition: 1}))

	p.On("Release", mock.Anything, "c1", false).Return(nil)
	p.On("Acquire", mock.Anything, "queued1").Return(store.ContainerRecord{ContainerID: "c2"}, nil)

	require.NoError(t, m.Destroy(context.Background(), "active1", false))

	got, err := repo.Get("queued1")
	require.NoError(t, err)
	assert.Equal(t, store.SessionActive, got.Status)
	assert.Equal(t, "c2", got.ContainerID)
}

func TestSetExecutingRejectsConcurrentCommand(t *testing.T) {
	p := new(MockPool)
	repo := store.NewMemorySessionRepo()
	m := New(repo, p, nil, testLogger(), 1800, 86400)

	require.NoError(t, repo.Create(store.SessionRecord{ID: "s1", Status: store.SessionActive}))

	require.NoError(t, m.SetExecuting("s1", true))
	err := m.SetExecuting("s1", true)
	assert.ErrorIs(t, err, ErrSessionBusy)

	require.NoError(t, m.SetExecuting("s1", false))
	require.NoError(t, m.SetExecuting("s1", true))
}

func TestSetExecutingRequiresActiveSession(t *testing.T) {
	p := new(MockPool)
	repo := store.NewMemorySessionRepo()
	m := New(repo, p, nil, testLogger(), 1800, 86400)

	require.NoError(t, repo.Create(store.SessionRecord{ID: "s1", Status: store.SessionQueued}))

	err := m.SetExecuting("s1", true)
	assert.ErrorIs(t, err, ErrSessionNotActive)
}

func TestIncrementCommandCount(t *testing.T) {
	p := new(MockPool)
	repo := store.NewMemorySessionRepo()
	m := New(repo, p, nil, testLogger(), 1800, 86400)

	require.NoError(t, repo.Create(store.SessionRecord{ID: "s1", Status: store.SessionActive}))
	require.NoError(t, m.IncrementCommandCount("s1"))
	require.NoError(t, m.IncrementCommandCount("s1"))

	got, err := repo.Get("s1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.CommandCount)
}

func TestOnContainerRemovedExternallyDestroysBoundSession(t *testing.T) {
	p := new(MockPool)
	repo := store.NewMemorySessionRepo()
	m := New(repo, p, nil, testLogger(), 1800, 86400)

	require.NoError(t, repo.Create(store.SessionRecord{ID: "s1", Status: store.SessionActive, ContainerID: "c1"}))
	p.On("Forget", "c1").Return(nil)

	require.NoError(t, m.OnContainerRemovedExternally(context.Background(), "c1"))

	_, err := repo.Get("s1")
	assert.ErrorIs(t, err, store.ErrNotFound)
	p.AssertNotCalled(t, "Release", mock.Anything, mock.Anything, mock.Anything)
}

func TestDestroyByContainerIDNoSessionBoundIsNoop(t *testing.T) {
	p := new(MockPool)
	repo := store.NewMemorySessionRepo()
	m := New(repo, p, nil, testLogger(), 1800, 86400)

	require.NoError(t, m.DestroyByContainerID(context.Background(), "missing"))
	p.AssertNotCalled(t, "Forget", mock.Anything)
}

func TestGetUnknownSession(t *testing.T) {
	p := new(MockPool)
	repo := store.NewMemorySessionRepo()
	m := New(repo, p, nil, testLogger(), 1800, 86400)

	_, err := m.Get("missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
