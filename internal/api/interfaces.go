// Package api exposes the pool daemon over HTTP: session lifecycle, command
// execution (batched and SSE-streamed), file transfer, and an admin/status
// surface, per spec.md §6.
package api

import (
	"context"
	"time"

	"github.com/sandkasten/pool/internal/command"
	"github.com/sandkasten/pool/internal/engine"
	"github.com/sandkasten/pool/internal/status"
	"github.com/sandkasten/pool/internal/store"
)

// Sessions is the narrow capability this package needs from the session
// manager.
type Sessions interface {
	Create(ctx context.Context, timeoutSeconds int) (store.SessionRecord, error)
	Get(sessionID string) (store.SessionRecord, error)
	List() ([]store.SessionRecord, error)
	Destroy(ctx context.Context, sessionID string, destroyContainer bool) error
	DestroyByContainerID(ctx context.Context, containerID string) error
}

// Commands is the narrow capability this package needs from the command
// runner.
type Commands interface {
	Run(ctx context.Context, sessionID string, argv []string, cmd, workDir string, timeout time.Duration) (command.Result, error)
	RunStream(ctx context.Context, sessionID string, argv []string, cmd, workDir string, timeout time.Duration) (<-chan engine.StreamEvent, error)
}

// Files is the narrow capability this package needs from the file I/O
// manager.
type Files interface {
	Upload(ctx context.Context, sessionID, destPath string, content []byte, mode int64) error
	Download(ctx context.Context, sessionID, srcPath string) ([]byte, error)
	List(ctx context.Context, sessionID, dirPath string) ([]engine.FileEntry, error)
	Delete(ctx context.Context, sessionID, targetPath string) error
}

// Pool is the narrow capability this package needs from the container pool,
// for admin endpoints.
type Pool interface {
	GetAll() ([]store.ContainerRecord, error)
	ForceDelete(ctx context.Context, containerID string) error
	DeleteAll(ctx context.Context)
	EnsurePrewarmed(ctx context.Context) error
	CreateIdle(ctx context.Context) (store.ContainerRecord, error)
}

// StatusSource is the narrow capability this package needs from the status
// broadcaster.
type StatusSource interface {
	Last() status.Snapshot
	Subscribe() (<-chan status.Snapshot, func())
}
