// Package command runs shell commands inside a session's bound container,
// batched or streamed, and handles the bookkeeping (activity timestamp,
// command count, executing latch) each run requires.
package command

import (
	"context"
	"time"

	"github.com/sandkasten/pool/internal/engine"
	"github.com/sandkasten/pool/internal/store"
)

// SessionLookup is the narrow capability this package needs from the
// session manager.
type SessionLookup interface {
	Get(sessionID string) (store.SessionRecord, error)
	SetExecuting(sessionID string, executing bool) error
	IncrementCommandCount(sessionID string) error
}

// Engine is the narrow capability this package needs from the Docker
// driver.
type Engine interface {
	ExecCommand(ctx context.Context, containerID string, argv []string, cmd, workDir string, timeout time.Duration) (engine.ExecResult, error)
	ExecCommandStream(ctx context.Context, containerID string, argv []string, cmd, workDir string, timeout time.Duration) (<-chan engine.StreamEvent, error)
}

// DurationObserver records completed command durations (satisfied by
// *status.Broadcaster); nil is valid, metrics simply aren't recorded.
type DurationObserver interface {
	ObserveCommandDuration(seconds float64)
}
