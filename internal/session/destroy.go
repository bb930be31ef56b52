package session

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sandkasten/pool/internal/store"
)

// Destroy ends a session: releases its container back to the pool (or
// destroys the container outright if destroyContainer is set, e.g. a fatal
// exec failure), removes the session record, then promotes as many queued
// sessions, oldest first, as the freed capacity allows.
func (m *Manager) Destroy(ctx context.Context, sessionID string, destroyContainer bool) error {
	rec, err := m.Get(sessionID)
	if err != nil {
		return err
	}

	if rec.Status == store.SessionActive && rec.ContainerID != "" {
		if err := m.pool.Release(ctx, rec.ContainerID, destroyContainer); err != nil {
			m.logf("session %s: release container %s failed: %v", sessionID, rec.ContainerID, err)
		}
	}

	return m.finishDestroy(ctx, rec)
}

// finishDestroy removes rec's session record and runs the bookkeeping common
// to every destruction path (dropping its exec lock, closing the queue gap
// if it was waiting, and attempting to promote the queue into any freed
// capacity). Callers have already reconciled the container side (Release or
// Forget) before calling this.
func (m *Manager) finishDestroy(ctx context.Context, rec store.SessionRecord) error {
	if err := m.repo.Delete(rec.ID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	m.dropLock(rec.ID)

	if rec.Status == store.SessionQueued {
		m.closeQueueGap(rec.QueuePosition)
	}

	m.publishCounts()
	m.promoteQueued(ctx)
	return nil
}

// closeQueueGap decrements the queue position of every session behind the
// removed position, keeping positions 1-based and contiguous.
func (m *Manager) closeQueueGap(removedPosition int) {
	queued, err := m.repo.ListByStatus(store.SessionQueued)
	if err != nil {
		return
	}
	for _, rec := range queued {
		if rec.QueuePosition > removedPosition {
			rec.QueuePosition--
			_ = m.repo.Update(rec)
		}
	}
}

// promoteQueued drains as much of the queue as current capacity allows: each
// attempt walks every currently-queued session in FIFO order, promoting one
// after another without pausing as long as the pool keeps handing out
// containers, per spec.md §4.3's nested promotion loop. An attempt stops
// early the moment an Acquire fails (capacity exhausted) or the queue is
// empty; if capacity was exhausted, the outer loop sleeps promotionStep and
// tries again, up to promotionRetries times, in case a concurrent Release
// frees a slot. Gives up silently once exhausted — the next Release/Destroy
// trigger will try again.
func (m *Manager) promoteQueued(ctx context.Context) {
	for attempt := 0; attempt < promotionRetries; attempt++ {
		promoted := false

		for {
			queued, err := m.repo.ListByStatus(store.SessionQueued)
			if err != nil {
				return
			}
			if len(queued) == 0 {
				if promoted {
					m.publishCounts()
				}
				return
			}
			sort.Slice(queued, func(i, j int) bool { return queued[i].QueuePosition < queued[j].QueuePosition })
			next := queued[0]

			ctr, err := m.pool.Acquire(ctx, next.ID)
			if err != nil {
				if promoted {
					m.publishCounts()
				}
				break
			}

			next.Status = store.SessionActive
			next.ContainerID = ctr.ContainerID
			next.QueuePosition = 0
			if err := m.repo.Update(next); err != nil {
				m.logf("session %s: promote update failed: %v", next.ID, err)
				_ = m.pool.Release(ctx, ctr.ContainerID, false)
				if promoted {
					m.publishCounts()
				}
				return
			}

			m.closeQueueGap(0)
			promoted = true
		}

		time.Sleep(promotionStep)
	}
}
