// Package pool manages the fleet of Docker containers backing code
// execution sessions: a capacity-bounded set warmed ahead of demand,
// acquired by the session manager on session creation and released back to
// idle when a session finishes or is destroyed.
package pool

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sandkasten/pool/internal/engine"
	"github.com/sandkasten/pool/internal/status"
	"github.com/sandkasten/pool/internal/store"
)

// Options configures a Pool at construction time.
type Options struct {
	Image         string
	LabelPrefix   string
	PrewarmCount  int
	MaxContainers int
	CreateOpts    engine.CreateOpts
}

// Pool tracks container lifecycle state and enforces the capacity cap.
// The mutex guards the *decision* operations — picking an idle container,
// reserving a Warming placeholder against the capacity cap, the replenish
// flag — never an engine call. Once a decision is committed to the store,
// the lock is released before any Docker API call, matching the teacher's
// poolImpl discipline of never holding a lock across a Docker call.
type Pool struct {
	eng    Engine
	repo   Repo
	status *status.Broadcaster
	logger *slog.Logger
	opts   Options

	mu           sync.Mutex
	replenishing bool
}

// New constructs a Pool. broadcaster may be nil in tests that don't care
// about status pushes.
func New(eng Engine, repo Repo, broadcaster *status.Broadcaster, logger *slog.Logger, opts Options) *Pool {
	return &Pool{
		eng:    eng,
		repo:   repo,
		status: broadcaster,
		logger: logger,
		opts:   opts,
	}
}

// EnsurePrewarmed pulls the configured image and brings the warm pool up to
// PrewarmCount idle containers. Called at daemon startup and by the admin
// prewarm endpoint.
func (p *Pool) EnsurePrewarmed(ctx context.Context) error {
	if err := p.eng.EnsureImage(ctx, p.opts.Image, nil); err != nil {
		return fmt.Errorf("ensure image: %w", err)
	}
	return p.replenish(ctx)
}

// Acquire claims an idle container and marks it busy, or creates one
// on-demand if none are idle and capacity allows. The returned container is
// bound to sessionID atomically with the Busy transition, so invariant 1
// (Busy ⇔ sessionId≠⊥, spec.md §3) never observes an intermediate state
// where a container is Busy with no owning session. Returns
// ErrMaxContainersReached if the pool is already at capacity with no idle
// container available — the caller (session manager) is expected to queue.
//
// The idle-pick-or-reserve decision runs as a single critical section under
// p.mu (matching spec.md §4.2/§5: the mutex serializes the *decision*, never
// the engine calls). Reusing an idle container commits entirely inside the
// lock. Creating a new one only reserves a Warming placeholder inside the
// lock — the actual engine call happens after release — so two concurrent
// Acquire calls can never both observe spare capacity and overshoot
// MaxContainers.
func (p *Pool) Acquire(ctx context.Context, sessionID string) (store.ContainerRecord, error) {
	p.mu.Lock()
	idle, err := p.repo.ListByStatus(store.ContainerIdle)
	if err != nil {
		p.mu.Unlock()
		return store.ContainerRecord{}, fmt.Errorf("list idle containers: %w", err)
	}
	if len(idle) > 0 {
		rec := idle[0]
		rec.Status = store.ContainerBusy
		rec.SessionID = sessionID
		if err := p.repo.Update(rec); err != nil {
			p.mu.Unlock()
			return store.ContainerRecord{}, fmt.Errorf("mark busy: %w", err)
		}
		p.mu.Unlock()
		p.mirrorSessionAssignment(ctx, rec.ContainerID, sessionID)
		p.publishStatus()
		go p.replenishAsync()
		return rec, nil
	}

	placeholderID, err := p.reserveSlotLocked()
	p.mu.Unlock()
	if err != nil {
		return store.ContainerRecord{}, err
	}

	rec, err := p.finishCreate(ctx, placeholderID, store.ContainerBusy, sessionID)
	if err != nil {
		return store.ContainerRecord{}, err
	}
	p.publishStatus()
	return rec, nil
}

// reserveSlotLocked counts containers that occupy capacity (Idle, Busy or
// Warming — Destroying never counts, per spec.md §3 invariant 3) and, if
// there is room, inserts a Warming placeholder record to reserve the slot.
// Callers must hold p.mu.
func (p *Pool) reserveSlotLocked() (string, error) {
	all, err := p.repo.List()
	if err != nil {
		return "", fmt.Errorf("list containers: %w", err)
	}
	active := 0
	for _, rec := range all {
		if rec.Status != store.ContainerDestroying {
			active++
		}
	}
	if active >= p.opts.MaxContainers {
		return "", ErrMaxContainersReached
	}
	placeholderID := "warming-" + uuid.New().String()
	placeholder := store.ContainerRecord{
		ContainerID: placeholderID,
		Status:      store.ContainerWarming,
		CreatedAt:   time.Now(),
	}
	if err := p.repo.Create(placeholder); err != nil {
		return "", fmt.Errorf("reserve warming slot: %w", err)
	}
	return placeholderID, nil
}

// Release returns a container to the idle pool after its session ends, or
// destroys it outright if destroy is true (e.g. the container's process
// crashed or the session reported a fatal error).
func (p *Pool) Release(ctx context.Context, containerID string, destroy bool) error {
	rec, err := p.repo.Get(containerID)
	if err != nil {
		return err
	}

	if destroy {
		return p.destroy(ctx, rec)
	}

	rec.Status = store.ContainerIdle
	rec.SessionID = ""
	if err := p.repo.Update(rec); err != nil {
		return fmt.Errorf("mark idle: %w", err)
	}
	p.publishStatus()
	go p.replenishAsync()
	return nil
}

// ForceDelete destroys a specific container regardless of its current
// state, used by admin tooling.
func (p *Pool) ForceDelete(ctx context.Context, containerID string) error {
	rec, err := p.repo.Get(containerID)
	if err != nil {
		if err == store.ErrNotFound {
			return ErrContainerNotFound
		}
		return err
	}
	return p.destroy(ctx, rec)
}

func (p *Pool) destroy(ctx context.Context, rec store.ContainerRecord) error {
	rec.Status = store.ContainerDestroying
	_ = p.repo.Update(rec)

	if err := p.eng.RemoveContainer(ctx, rec.ContainerID); err != nil {
		p.logger.Error("pool: remove container failed", "container_id", rec.ContainerID, "error", err)
	}
	if err := p.repo.Delete(rec.ContainerID); err != nil {
		return fmt.Errorf("delete container record: %w", err)
	}
	p.publishStatus()
	go p.replenishAsync()
	return nil
}

// mirrorSessionAssignment best-effort mirrors a session binding into the
// container via the engine driver (a marker file inside it). Failure here
// never fails the Acquire — the store record is the source of truth.
func (p *Pool) mirrorSessionAssignment(ctx context.Context, containerID, sessionID string) {
	if sessionID == "" {
		return
	}
	if err := p.eng.AssignSession(ctx, containerID, sessionID); err != nil {
		p.logger.Warn("pool: container-side session marker failed", "container_id", containerID, "error", err)
	}
}

// Forget discards a container's store record without touching the engine —
// used when the engine has already confirmed the container is gone (an
// externally removed container, spec.md §4.6) and a normal Release would
// wrongly resurrect the record as Idle. Idempotent: forgetting an
// already-absent container is not an error.
func (p *Pool) Forget(containerID string) error {
	if err := p.repo.Delete(containerID); err != nil && err != store.ErrNotFound {
		return fmt.Errorf("forget container: %w", err)
	}
	p.publishStatus()
	return nil
}

// CreateIdle creates a single container directly into the idle set,
// bypassing the prewarm target — used by the admin "create one container"
// endpoint. Still subject to the capacity cap.
func (p *Pool) CreateIdle(ctx context.Context) (store.ContainerRecord, error) {
	rec, err := p.createOne(ctx, store.ContainerIdle)
	if err != nil {
		return store.ContainerRecord{}, err
	}
	p.publishStatus()
	return rec, nil
}

// GetAll returns every tracked container record.
func (p *Pool) GetAll() ([]store.ContainerRecord, error) {
	return p.repo.List()
}

// DeleteAll destroys every managed container; used on graceful shutdown.
func (p *Pool) DeleteAll(ctx context.Context) {
	all, err := p.repo.List()
	if err != nil {
		p.logger.Error("pool: list containers for shutdown", "error", err)
		return
	}
	for _, rec := range all {
		if err := p.destroy(ctx, rec); err != nil {
			p.logger.Error("pool: shutdown destroy failed", "container_id", rec.ContainerID, "error", err)
		}
	}
}

// createOne reserves a capacity slot (under lock) and creates the container
// outside the lock. Used by replenish and CreateIdle, where the reservation
// and the engine call happen back-to-back with no intervening idle-reuse
// check; Acquire calls reserveSlotLocked/finishCreate directly so it can try
// the idle-reuse path first inside the same critical section.
func (p *Pool) createOne(ctx context.Context, finalStatus string) (store.ContainerRecord, error) {
	p.mu.Lock()
	placeholderID, err := p.reserveSlotLocked()
	p.mu.Unlock()
	if err != nil {
		return store.ContainerRecord{}, err
	}
	return p.finishCreate(ctx, placeholderID, finalStatus, "")
}

// finishCreate turns a reserved Warming placeholder into a real container
// record, per spec.md §4.2's warm-and-ready protocol: create, start, and
// (on any failure) remove both the placeholder and the half-created
// container rather than leaking either. sessionID is bound into the record
// together with finalStatus when non-empty (the Acquire path); callers that
// aren't handing the container straight to a session (replenish, CreateIdle)
// pass "".
func (p *Pool) finishCreate(ctx context.Context, placeholderID, finalStatus, sessionID string) (store.ContainerRecord, error) {
	name := p.opts.LabelPrefix + "-" + uuid.New().String()[:12]
	ctr, err := p.eng.CreateManagedContainer(ctx, name, p.opts.CreateOpts)
	if err != nil {
		_ = p.repo.Delete(placeholderID)
		p.publishStatus()
		return store.ContainerRecord{}, fmt.Errorf("create container: %w", err)
	}

	rec := store.ContainerRecord{
		ContainerID: ctr.ContainerID,
		Image:       p.opts.Image,
		Status:      finalStatus,
		SessionID:   sessionID,
		CreatedAt:   ctr.CreatedAt,
	}
	if err := p.repo.Create(rec); err != nil {
		_ = p.repo.Delete(placeholderID)
		_ = p.eng.RemoveContainer(ctx, ctr.ContainerID)
		p.publishStatus()
		return store.ContainerRecord{}, fmt.Errorf("store container: %w", err)
	}
	_ = p.repo.Delete(placeholderID)
	p.mirrorSessionAssignment(ctx, rec.ContainerID, sessionID)
	return rec, nil
}

// replenishAsync runs replenish with a background context and bounded
// lifetime, dropping the call entirely if a replenish is already underway
// (overlap-tolerant: at most one concurrent replenish per trigger, matching
// spec.md's background replenish requirement).
func (p *Pool) replenishAsync() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := p.replenish(ctx); err != nil {
		p.logger.Error("pool: replenish failed", "error", err)
	}
}

func (p *Pool) replenish(ctx context.Context) error {
	p.mu.Lock()
	if p.replenishing {
		p.mu.Unlock()
		return nil
	}
	p.replenishing = true
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.replenishing = false
		p.mu.Unlock()
	}()

	for {
		all, err := p.repo.List()
		if err != nil {
			return fmt.Errorf("list containers: %w", err)
		}
		var idleAndWarming, active int
		for _, rec := range all {
			switch rec.Status {
			case store.ContainerIdle, store.ContainerWarming:
				idleAndWarming++
				active++
			case store.ContainerBusy:
				active++
			}
		}
		if idleAndWarming >= p.opts.PrewarmCount || active >= p.opts.MaxContainers {
			return nil
		}

		if _, err := p.createOne(ctx, store.ContainerIdle); err != nil {
			if err == ErrMaxContainersReached {
				return nil
			}
			return err
		}
		p.publishStatus()
	}
}

func (p *Pool) publishStatus() {
	if p.status == nil {
		return
	}
	all, err := p.repo.List()
	if err != nil {
		return
	}
	var warming, idle, busy, destroying int
	for _, rec := range all {
		switch rec.Status {
		case store.ContainerWarming:
			warming++
		case store.ContainerIdle:
			idle++
		case store.ContainerBusy:
			busy++
		case store.ContainerDestroying:
			destroying++
		}
	}
	p.status.PublishContainerCounts(warming, idle, busy, destroying, p.opts.MaxContainers)
}
