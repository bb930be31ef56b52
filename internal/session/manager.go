// Package session tracks client sessions: their queue position while
// waiting for container capacity, their bound container once active, and
// the bookkeeping (activity time, command count, in-flight exec latch) the
// reaper and command runner depend on.
package session

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sandkasten/pool/internal/store"
)

// promotionRetries and promotionStep implement spec.md §4.3's queue
// promotion protocol: when a container frees up, the oldest queued session
// is retried against the pool up to promotionRetries times, sleeping
// promotionStep between attempts, before giving up for this trigger (the
// next Release will try again).
const (
	promotionRetries = 10
	promotionStep    = 500 * time.Millisecond
)

// Manager owns the session lifecycle: creation (queued or active),
// activity bookkeeping, command-exec serialization, and destruction.
type Manager struct {
	repo                     Repo
	pool                     ContainerPool
	status                   StatusPublisher
	logger                   *slog.Logger
	defaultTimeoutSeconds    int
	maxTimeoutSeconds        int

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// New constructs a Manager. statusPublisher may be nil.
func New(repo Repo, pool ContainerPool, statusPublisher StatusPublisher, logger *slog.Logger, defaultTimeoutSeconds, maxTimeoutSeconds int) *Manager {
	return &Manager{
		repo:                  repo,
		pool:                  pool,
		status:                statusPublisher,
		logger:                logger,
		defaultTimeoutSeconds: defaultTimeoutSeconds,
		maxTimeoutSeconds:     maxTimeoutSeconds,
		locks:                 make(map[string]*sync.Mutex),
	}
}

func (m *Manager) lockFor(sessionID string) *sync.Mutex {
	m.locksMu.Lock()
	defer m.locksMu.Unlock()
	mu, ok := m.locks[sessionID]
	if !ok {
		mu = &sync.Mutex{}
		m.locks[sessionID] = mu
	}
	return mu
}

func (m *Manager) dropLock(sessionID string) {
	m.locksMu.Lock()
	defer m.locksMu.Unlock()
	delete(m.locks, sessionID)
}

// resolveTimeout validates a requested timeout against the configured
// bounds, falling back to the default when the caller passes 0.
func (m *Manager) resolveTimeout(requested int) (int, error) {
	if requested == 0 {
		return m.defaultTimeoutSeconds, nil
	}
	if requested < 0 || requested > m.maxTimeoutSeconds {
		return 0, ErrInvalidTimeout
	}
	return requested, nil
}

// Get returns the current record for sessionID.
func (m *Manager) Get(sessionID string) (store.SessionRecord, error) {
	rec, err := m.repo.Get(sessionID)
	if err != nil {
		if err == store.ErrNotFound {
			return store.SessionRecord{}, ErrSessionNotFound
		}
		return store.SessionRecord{}, err
	}
	return rec, nil
}

// List returns every tracked session.
func (m *Manager) List() ([]store.SessionRecord, error) {
	return m.repo.List()
}

func (m *Manager) publishCounts() {
	if m.status == nil {
		return
	}
	all, err := m.repo.List()
	if err != nil {
		return
	}
	var queued, active int
	for _, rec := range all {
		switch rec.Status {
		case store.SessionQueued:
			queued++
		case store.SessionActive:
			active++
		}
	}
	m.status.PublishSessionCounts(queued, active, queued)
}

func newUUID() string {
	return uuid.New().String()
}

func (m *Manager) logf(format string, args ...any) {
	if m.logger != nil {
		m.logger.Warn(fmt.Sprintf(format, args...))
	}
}
