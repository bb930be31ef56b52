package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *SQLContainerRepo {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := DB(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSQLContainerRepo(db)
}

func TestSQLContainerRepoCRUD(t *testing.T) {
	repo := openTestDB(t)

	rec := ContainerRecord{ContainerID: "c1", Image: "img", Status: ContainerWarming, CreatedAt: time.Now()}
	require.NoError(t, repo.Create(rec))

	got, err := repo.Get("c1")
	require.NoError(t, err)
	assert.Equal(t, "img", got.Image)
	assert.Equal(t, ContainerWarming, got.Status)

	rec.Status = ContainerBusy
	rec.SessionID = "s1"
	require.NoError(t, repo.Update(rec))

	got, err = repo.Get("c1")
	require.NoError(t, err)
	assert.Equal(t, ContainerBusy, got.Status)
	assert.Equal(t, "s1", got.SessionID)

	list, err := repo.ListByStatus(ContainerBusy)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, repo.Delete("c1"))
	_, err = repo.Get("c1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLContainerRepoUpdateMissing(t *testing.T) {
	repo := openTestDB(t)
	err := repo.Update(ContainerRecord{ContainerID: "nope", CreatedAt: time.Now()})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLSessionRepoCRUD(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := DB(dbPath)
	require.NoError(t, err)
	defer db.Close()
	repo := NewSQLSessionRepo(db)

	rec := SessionRecord{ID: "s1", Status: SessionQueued, QueuePosition: 1, TimeoutSeconds: 1800,
		CreatedAt: time.Now(), LastActivityAt: time.Now()}
	require.NoError(t, repo.Create(rec))

	got, err := repo.Get("s1")
	require.NoError(t, err)
	assert.Equal(t, SessionQueued, got.Status)
	assert.Equal(t, 1, got.QueuePosition)

	rec.Status = SessionActive
	rec.IsExecutingCommand = true
	rec.CommandCount = 3
	require.NoError(t, repo.Update(rec))

	got, err = repo.Get("s1")
	require.NoError(t, err)
	assert.True(t, got.IsExecutingCommand)
	assert.Equal(t, 3, got.CommandCount)

	list, err := repo.ListByStatus(SessionActive)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestSQLSessionRepoGetByContainerID(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := DB(dbPath)
	require.NoError(t, err)
	defer db.Close()
	repo := NewSQLSessionRepo(db)

	require.NoError(t, repo.Create(SessionRecord{ID: "s1", Status: SessionActive, ContainerID: "c1",
		CreatedAt: time.Now(), LastActivityAt: time.Now()}))

	got, err := repo.GetByContainerID("c1")
	require.NoError(t, err)
	assert.Equal(t, "s1", got.ID)

	_, err = repo.GetByContainerID("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
