package pool

import (
	"context"
	"io"

	"github.com/sandkasten/pool/internal/engine"
	"github.com/sandkasten/pool/internal/store"
)

// Engine is the narrow capability the pool needs from the Docker driver.
type Engine interface {
	EnsureImage(ctx context.Context, ref string, progressSink io.Writer) error
	CreateManagedContainer(ctx context.Context, name string, opts engine.CreateOpts) (*engine.ContainerRecord, error)
	RemoveContainer(ctx context.Context, containerID string) error
	AssignSession(ctx context.Context, containerID, sessionID string) error
}

// Repo is the narrow capability the pool needs from the container store.
type Repo interface {
	Create(rec store.ContainerRecord) error
	Get(containerID string) (store.ContainerRecord, error)
	Update(rec store.ContainerRecord) error
	Delete(containerID string) error
	List() ([]store.ContainerRecord, error)
	ListByStatus(status string) ([]store.ContainerRecord, error)
}
