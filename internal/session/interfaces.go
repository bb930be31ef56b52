package session

import (
	"context"

	"github.com/sandkasten/pool/internal/store"
)

// ContainerPool is the narrow capability the session manager needs from the
// container pool.
type ContainerPool interface {
	Acquire(ctx context.Context, sessionID string) (store.ContainerRecord, error)
	Release(ctx context.Context, containerID string, destroy bool) error
	Forget(containerID string) error
}

// Repo is the narrow capability the session manager needs from the session
// store.
type Repo interface {
	Create(rec store.SessionRecord) error
	Get(sessionID string) (store.SessionRecord, error)
	Update(rec store.SessionRecord) error
	Delete(sessionID string) error
	List() ([]store.SessionRecord, error)
	ListByStatus(status string) ([]store.SessionRecord, error)
	GetByContainerID(containerID string) (store.SessionRecord, error)
}

// StatusPublisher is the narrow capability the session manager needs from
// the status broadcaster; satisfied by *status.Broadcaster.
type StatusPublisher interface {
	PublishSessionCounts(queued, active, queueLength int)
}
