package engine

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/pkg/stdcopy"
)

// ExecCommand runs cmd in containerID's shell, waiting up to timeout for
// completion. argv, if non-nil, is used verbatim instead of a shell
// invocation of cmd.
func (c *Client) ExecCommand(ctx context.Context, containerID string, argv []string, cmd, workDir string, timeout time.Duration) (ExecResult, error) {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	execCmd := argv
	if execCmd == nil {
		execCmd = []string{"sh", "-c", cmd}
	}

	execID, err := c.docker.ContainerExecCreate(cctx, containerID, container.ExecOptions{
		Cmd:          execCmd,
		WorkingDir:   workDir,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return ExecResult{}, wrapErr(err)
	}

	attach, err := c.docker.ContainerExecAttach(cctx, execID.ID, container.ExecStartOptions{})
	if err != nil {
		return ExecResult{}, wrapErr(err)
	}
	defer attach.Close()

	var stdout, stderr bytes.Buffer
	done := make(chan error, 1)
	go func() {
		_, err := stdcopy.StdCopy(&stdout, &stderr, attach.Reader)
		done <- err
	}()

	select {
	case <-cctx.Done():
		// A timeout is a normal outcome (spec.md §7's OperationTimeout), not
		// an engine failure: close the attach stream and wait for the copy
		// goroutine to observe it before reading the buffers below, so this
		// read never races the goroutine's writes into stdout/stderr.
		attach.Close()
		<-done
		return ExecResult{
			Stdout:   stdout.String(),
			Stderr:   stderr.String(),
			ExitCode: -1,
			TimedOut: true,
		}, nil
	case err := <-done:
		if err != nil && err != io.EOF {
			return ExecResult{}, wrapErr(err)
		}
	}

	inspect, err := c.docker.ContainerExecInspect(ctx, execID.ID)
	if err != nil {
		return ExecResult{}, wrapErr(err)
	}

	return ExecResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: inspect.ExitCode,
	}, nil
}

// ExecCommandStream runs cmd in containerID's shell and returns a channel of
// StreamEvents: stdout/stderr chunks as they arrive, followed by exactly one
// terminal EventExit (or an event carrying Err if something failed). The
// channel is closed once the terminal event has been sent. Cancel ctx to
// abandon the stream early; no exit event is guaranteed in that case.
// Exceeding timeout ends the stream the same way a batched ExecCommand
// timeout does: a terminal EventExit with ExitCode -1, not an error event,
// per spec.md §7's OperationTimeout semantics.
func (c *Client) ExecCommandStream(ctx context.Context, containerID string, argv []string, cmd, workDir string, timeout time.Duration) (<-chan StreamEvent, error) {
	cctx, cancel := context.WithTimeout(ctx, timeout)

	execCmd := argv
	if execCmd == nil {
		execCmd = []string{"sh", "-c", cmd}
	}

	execID, err := c.docker.ContainerExecCreate(cctx, containerID, container.ExecOptions{
		Cmd:          execCmd,
		WorkingDir:   workDir,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		cancel()
		return nil, wrapErr(err)
	}

	attach, err := c.docker.ContainerExecAttach(cctx, execID.ID, container.ExecStartOptions{})
	if err != nil {
		cancel()
		return nil, wrapErr(err)
	}

	events := make(chan StreamEvent, 16)
	go func() {
		defer cancel()
		defer close(events)
		defer attach.Close()

		stdoutW := &eventWriter{kind: EventStdout, out: events, ctx: cctx}
		stderrW := &eventWriter{kind: EventStderr, out: events, ctx: cctx}

		copyDone := make(chan error, 1)
		go func() {
			_, copyErr := stdcopy.StdCopy(stdoutW, stderrW, attach.Reader)
			copyDone <- copyErr
		}()

		select {
		case <-cctx.Done():
			attach.Close()
			<-copyDone
			select {
			case events <- StreamEvent{Kind: EventExit, ExitCode: -1}:
			case <-ctx.Done():
			}
			return
		case copyErr := <-copyDone:
			if copyErr != nil && copyErr != io.EOF {
				select {
				case events <- StreamEvent{Kind: EventExit, Err: wrapErr(copyErr)}:
				case <-ctx.Done():
				}
				return
			}
		}

		inspect, err := c.docker.ContainerExecInspect(context.Background(), execID.ID)
		exitCode := -1
		if err == nil {
			exitCode = inspect.ExitCode
		}
		select {
		case events <- StreamEvent{Kind: EventExit, ExitCode: exitCode}:
		case <-ctx.Done():
		}
	}()

	return events, nil
}

// eventWriter adapts an io.Writer onto a StreamEvent channel, used as the
// stdout/stderr sink stdcopy.StdCopy writes demultiplexed frames into.
type eventWriter struct {
	kind EventKind
	out  chan<- StreamEvent
	ctx  context.Context
}

func (w *eventWriter) Write(p []byte) (int, error) {
	buf := make([]byte, len(p))
	copy(buf, p)
	select {
	case w.out <- StreamEvent{Kind: w.kind, Data: buf}:
		return len(p), nil
	case <-w.ctx.Done():
		return 0, w.ctx.Err()
	}
}
