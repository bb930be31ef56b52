package session

import (
	"context"
	"fmt"
	"time"

	"github.com/sandkasten/pool/internal/pool"
	"github.com/sandkasten/pool/internal/store"
)

// Create registers a new session and attempts to bind it to an idle
// container immediately. If the pool is at capacity, the session is queued
// (status SessionQueued) at the back of the FIFO line instead.
func (m *Manager) Create(ctx context.Context, timeoutSeconds int) (store.SessionRecord, error) {
	timeout, err := m.resolveTimeout(timeoutSeconds)
	if err != nil {
		return store.SessionRecord{}, err
	}

	now := time.Now().UTC()
	rec := store.SessionRecord{
		ID:             newUUID(),
		TimeoutSeconds: timeout,
		CreatedAt:      now,
		LastActivityAt: now,
	}

	ctr, err := m.pool.Acquire(ctx, rec.ID)
	switch {
	case err == nil:
		rec.Status = store.SessionActive
		rec.ContainerID = ctr.ContainerID
	case err == pool.ErrMaxContainersReached:
		rec.Status = store.SessionQueued
		rec.QueuePosition = m.nextQueuePosition()
	default:
		return store.SessionRecord{}, fmt.Errorf("acquire container: %w", err)
	}

	if err := m.repo.Create(rec); err != nil {
		if rec.Status == store.SessionActive {
			_ = m.pool.Release(ctx, rec.ContainerID, false)
		}
		return store.SessionRecord{}, fmt.Errorf("store session: %w", err)
	}

	m.publishCounts()
	return rec, nil
}

// nextQueuePosition returns the 1-based position a new session joining the
// back of the queue would occupy.
func (m *Manager) nextQueuePosition() int {
	queued, err := m.repo.ListByStatus(store.SessionQueued)
	if err != nil {
		return 1
	}
	return len(queued) + 1
}
