package session

import (
	"context"
	"time"

	"github.com/sandkasten/pool/internal/store"
)

// UpdateActivity bumps sessionID's last-activity timestamp so the reaper
// doesn't treat it as idle-timed-out.
func (m *Manager) UpdateActivity(sessionID string) error {
	rec, err := m.Get(sessionID)
	if err != nil {
		return err
	}
	rec.LastActivityAt = time.Now().UTC()
	return m.repo.Update(rec)
}

// IncrementCommandCount bumps sessionID's executed-command counter and
// activity timestamp together, called once a command finishes.
func (m *Manager) IncrementCommandCount(sessionID string) error {
	rec, err := m.Get(sessionID)
	if err != nil {
		return err
	}
	rec.CommandCount++
	rec.LastActivityAt = time.Now().UTC()
	return m.repo.Update(rec)
}

// SetExecuting marks sessionID as currently running a command (executing
// true) or having finished (executing false). A session must be active to
// start executing, and a second concurrent attempt to start is rejected
// with ErrSessionBusy rather than silently queued (Open Question 3,
// resolved in SPEC_FULL.md §4.3).
func (m *Manager) SetExecuting(sessionID string, executing bool) error {
	lock := m.lockFor(sessionID)
	lock.Lock()
	defer lock.Unlock()

	rec, err := m.Get(sessionID)
	if err != nil {
		return err
	}
	if rec.Status != store.SessionActive {
		return ErrSessionNotActive
	}
	if executing && rec.IsExecutingCommand {
		return ErrSessionBusy
	}

	rec.IsExecutingCommand = executing
	rec.LastActivityAt = time.Now().UTC()
	return m.repo.Update(rec)
}

// DestroyByContainerID tears down whichever session is bound to containerID,
// if any, discarding the pool's record of the container via Forget rather
// than Release — the container itself is already gone (removed externally,
// or force-deleted by admin tooling), so there is nothing to return to the
// idle set. A no-op, not an error, if no session is bound to containerID.
func (m *Manager) DestroyByContainerID(ctx context.Context, containerID string) error {
	rec, err := m.repo.GetByContainerID(containerID)
	if err != nil {
		if err == store.ErrNotFound {
			return nil
		}
		return err
	}

	if err := m.pool.Forget(containerID); err != nil {
		m.logf("session %s: forget container %s failed: %v", rec.ID, containerID, err)
	}

	return m.finishDestroy(ctx, rec)
}

// OnContainerRemovedExternally marks any session bound to containerID as
// destroyed without touching the pool's idle set — used by the reaper when
// it finds a container gone from Docker that the store still thinks is
// alive (spec.md §4.6).
func (m *Manager) OnContainerRemovedExternally(ctx context.Context, containerID string) error {
	return m.DestroyByContainerID(ctx, containerID)
}
