// Package reaper destroys idle sessions once they pass their configured
// timeout, and reconciles store state against the engine driver's reality
// at startup to recover from a prior crash.
package reaper

import (
	"context"
	"log/slog"
	"time"

	"github.com/sandkasten/pool/internal/engine"
	"github.com/sandkasten/pool/internal/store"
)

// Sessions is the narrow capability this package needs from the session
// manager.
type Sessions interface {
	List() ([]store.SessionRecord, error)
	Destroy(ctx context.Context, sessionID string, destroyContainer bool) error
	OnContainerRemovedExternally(ctx context.Context, containerID string) error
}

// Engine is the narrow capability this package needs from the Docker
// driver.
type Engine interface {
	ListManagedContainers(ctx context.Context, labelPrefix string) ([]engine.ContainerRecord, error)
	RemoveContainer(ctx context.Context, containerID string) error
}

// Pool is the narrow capability this package needs from the container pool.
type Pool interface {
	GetAll() ([]store.ContainerRecord, error)
}

// Reaper periodically destroys sessions that have been idle (no activity,
// not mid-command) past their timeout, and reconciles state on startup.
type Reaper struct {
	sessions    Sessions
	engine      Engine
	pool        Pool
	labelPrefix string
	interval    time.Duration
	logger      *slog.Logger
}

// New constructs a Reaper.
func New(sessions Sessions, eng Engine, p Pool, labelPrefix string, interval time.Duration, logger *slog.Logger) *Reaper {
	return &Reaper{sessions: sessions, engine: eng, pool: p, labelPrefix: labelPrefix, interval: interval, logger: logger}
}

// Run blocks, ticking every r.interval and reaping timed-out sessions, until
// ctx is cancelled. It reconciles once before entering the loop.
func (r *Reaper) Run(ctx context.Context) {
	r.logger.Info("reaper started", "interval", r.interval)

	r.reconcile(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reaper stopped")
			return
		case <-ticker.C:
			r.reapExpired(ctx)
		}
	}
}

// reapExpired destroys every active, non-executing session whose
// last-activity time is older than its configured timeout. A session
// currently executing a command is never reaped mid-command, per spec.md
// §4.6.
func (r *Reaper) reapExpired(ctx context.Context) {
	sessions, err := r.sessions.List()
	if err != nil {
		r.logger.Error("reaper: list sessions", "error", err)
		return
	}

	now := time.Now().UTC()
	reaped := 0
	for _, sess := range sessions {
		if sess.Status != store.SessionActive || sess.IsExecutingCommand {
			continue
		}
		deadline := sess.LastActivityAt.Add(time.Duration(sess.TimeoutSeconds) * time.Second)
		if now.Before(deadline) {
			continue
		}

		r.logger.Info("reaping idle session", "session_id", sess.ID, "last_activity", sess.LastActivityAt)
		if err := r.sessions.Destroy(ctx, sess.ID, false); err != nil {
			r.logger.Error("reaper: destroy session", "session_id", sess.ID, "error", err)
			continue
		}
		reaped++
	}
	if reaped > 0 {
		r.logger.Info("reaper: reaped sessions", "count", reaped)
	}
}

// reconcile compares the store's view of sessions and pool containers
// against the set of containers Docker actually reports: sessions bound to
// a vanished container are destroyed (the daemon crashed mid-session), and
// containers Docker reports but the pool has no record of at all (neither
// bound to a session nor sitting warm/idle — a leftover from an unclean
// prior shutdown) are force-removed.
func (r *Reaper) reconcile(ctx context.Context) {
	r.logger.Info("reconciliation starting")

	containers, err := r.engine.ListManagedContainers(ctx, r.labelPrefix)
	if err != nil {
		r.logger.Error("reconcile: list containers", "error", err)
		return
	}
	live := make(map[string]bool, len(containers))
	for _, c := range containers {
		live[c.ContainerID] = true
	}

	tracked, err := r.pool.GetAll()
	if err != nil {
		r.logger.Error("reconcile: list pool containers", "error", err)
		return
	}
	trackedIDs := make(map[string]bool, len(tracked))
	for _, rec := range tracked {
		trackedIDs[rec.ContainerID] = true
	}

	sessions, err := r.sessions.List()
	if err != nil {
		r.logger.Error("reconcile: list sessions", "error", err)
		return
	}

	for _, sess := range sessions {
		if sess.Status != store.SessionActive {
			continue
		}
		if !live[sess.ContainerID] {
			r.logger.Warn("reconcile: container missing for active session, destroying", "session_id", sess.ID)
			if err := r.sessions.OnContainerRemovedExternally(ctx, sess.ContainerID); err != nil {
				r.logger.Error("reconcile: destroy orphaned session", "session_id", sess.ID, "error", err)
			}
		}
	}

	for containerID := range live {
		if !trackedIDs[containerID] {
			r.logger.Warn("reconcile: orphan container, removing", "container_id", containerID)
			if err := r.engine.RemoveContainer(ctx, containerID); err != nil {
				r.logger.Error("reconcile: remove orphan container", "container_id", containerID, "error", err)
			}
		}
	}

	r.logger.Info("reconciliation complete")
}
