package command

import (
	"context"
	"fmt"
	"time"

	"github.com/sandkasten/pool/internal/engine"
)

// DefaultTimeout bounds a batched command's execution when the caller
// doesn't specify one.
const DefaultTimeout = 30 * time.Second

// Runner executes commands against a session's bound container.
type Runner struct {
	sessions SessionLookup
	engine   Engine
	metrics  DurationObserver
}

// New constructs a Runner. metrics may be nil.
func New(sessions SessionLookup, eng Engine, metrics DurationObserver) *Runner {
	return &Runner{sessions: sessions, engine: eng, metrics: metrics}
}

// Result is the outcome of a batched Run.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Run executes cmd inside sessionID's container and waits for it to finish
// (or timeout), updating session bookkeeping around the call.
func (r *Runner) Run(ctx context.Context, sessionID string, argv []string, cmd, workDir string, timeout time.Duration) (Result, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	rec, err := r.sessions.Get(sessionID)
	if err != nil {
		return Result{}, err
	}

	if err := r.sessions.SetExecuting(sessionID, true); err != nil {
		return Result{}, err
	}
	defer r.sessions.SetExecuting(sessionID, false)

	start := time.Now()
	execRes, err := r.engine.ExecCommand(ctx, rec.ContainerID, argv, cmd, workDir, timeout)
	if r.metrics != nil {
		r.metrics.ObserveCommandDuration(time.Since(start).Seconds())
	}
	if err != nil {
		return Result{}, fmt.Errorf("exec command: %w", err)
	}

	if err := r.sessions.IncrementCommandCount(sessionID); err != nil {
		return Result{}, fmt.Errorf("record command count: %w", err)
	}

	return Result{Stdout: execRes.Stdout, Stderr: execRes.Stderr, ExitCode: execRes.ExitCode}, nil
}

// RunStream executes cmd inside sessionID's container and returns a channel
// of StreamEvent, for callers (the SSE handler) that forward output as it
// arrives rather than waiting for completion. Session bookkeeping is
// finalized once the terminal event is observed.
func (r *Runner) RunStream(ctx context.Context, sessionID string, argv []string, cmd, workDir string, timeout time.Duration) (<-chan engine.StreamEvent, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	rec, err := r.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}

	if err := r.sessions.SetExecuting(sessionID, true); err != nil {
		return nil, err
	}

	start := time.Now()
	events, err := r.engine.ExecCommandStream(ctx, rec.ContainerID, argv, cmd, workDir, timeout)
	if err != nil {
		r.sessions.SetExecuting(sessionID, false)
		return nil, fmt.Errorf("exec command stream: %w", err)
	}

	out := make(chan engine.StreamEvent, 16)
	go func() {
		defer close(out)
		defer r.sessions.SetExecuting(sessionID, false)

		for ev := range events {
			out <- ev
			if ev.Kind == engine.EventExit {
				if r.metrics != nil {
					r.metrics.ObserveCommandDuration(time.Since(start).Seconds())
				}
				if err := r.sessions.IncrementCommandCount(sessionID); err != nil {
					continue
				}
			}
		}
	}()

	return out, nil
}
