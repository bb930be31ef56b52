// Package engine wraps the Docker Engine API into the narrow capability set
// the container pool and session manager need: image readiness, container
// lifecycle, exec with multiplexed output, and tar-based file transfer.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/docker/errdefs"
)

// Sentinel error kinds, per spec §4.1 / §7. Every Client method that calls
// the engine, other than Close, wraps the underlying Docker error into one of
// these so callers never see Docker's own error types.
var (
	ErrEngineUnreachable = errors.New("engine unreachable")
	ErrNotFound          = errors.New("not found")
	ErrEngineError       = errors.New("engine error")
)

// Client wraps the Docker API client for sandkasten's managed containers.
type Client struct {
	docker *client.Client
}

// New creates a Client connected to the Docker daemon reachable from the
// environment (DOCKER_HOST, or the default unix socket).
func New() (*Client, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("docker client: %w", err)
	}
	return &Client{docker: cli}, nil
}

// Close releases the underlying Docker API connection.
func (c *Client) Close() error {
	return c.docker.Close()
}

// Ping verifies the Docker daemon is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.docker.Ping(ctx); err != nil {
		return wrapErr(err)
	}
	return nil
}

func wrapErr(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errdefs.IsNotFound(err), client.IsErrNotFound(err):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, context.DeadlineExceeded), errdefs.IsUnavailable(err), client.IsErrConnectionFailed(err):
		return fmt.Errorf("%w: %v", ErrEngineUnreachable, err)
	default:
		return fmt.Errorf("%w: %v", ErrEngineError, err)
	}
}

// EnsureImage inspects the image and pulls it if missing, streaming pull
// progress lines to progressSink (nil is valid: progress is simply dropped).
func (c *Client) EnsureImage(ctx context.Context, ref string, progressSink io.Writer) error {
	_, _, err := c.docker.ImageInspectWithRaw(ctx, ref)
	if err == nil {
		return nil
	}
	if !client.IsErrNotFound(err) {
		return wrapErr(err)
	}

	rc, err := c.docker.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return wrapErr(err)
	}
	defer rc.Close()

	if progressSink != nil {
		_, _ = io.Copy(progressSink, rc)
	} else {
		_, _ = io.Copy(io.Discard, rc)
	}
	return nil
}

// ListManagedContainers returns every container carrying the managed label,
// regardless of running state (crash-recovery needs to see stopped ones too).
func (c *Client) ListManagedContainers(ctx context.Context, labelPrefix string) ([]ContainerRecord, error) {
	f := filters.NewArgs()
	f.Add("label", labelPrefix+".managed=true")

	containers, err := c.docker.ContainerList(ctx, container.ListOptions{All: true, Filters: f})
	if err != nil {
		return nil, wrapErr(err)
	}

	out := make([]ContainerRecord, 0, len(containers))
	for _, ctr := range containers {
		name := ctr.ID
		if len(ctr.Names) > 0 {
			name = trimSlash(ctr.Names[0])
		}
		out = append(out, ContainerRecord{
			ContainerID:  ctr.ID,
			Name:         name,
			Image:        ctr.Image,
			EngineStatus: ctr.State,
			Labels:       ctr.Labels,
			CreatedAt:    time.Unix(ctr.Created, 0).UTC(),
		})
	}
	return out, nil
}

func trimSlash(s string) string {
	if len(s) > 0 && s[0] == '/' {
		return s[1:]
	}
	return s
}

// Inspect returns the current record for a container, or (nil, nil) if it no
// longer exists.
func (c *Client) Inspect(ctx context.Context, containerID string) (*ContainerRecord, error) {
	info, err := c.docker.ContainerInspect(ctx, containerID)
	if err != nil {
		if client.IsErrNotFound(err) {
			return nil, nil
		}
		return nil, wrapErr(err)
	}

	rec := &ContainerRecord{
		ContainerID:  info.ID,
		Name:         trimSlash(info.Name),
		Image:        info.Config.Image,
		EngineStatus: info.State.Status,
		Labels:       info.Config.Labels,
	}
	if info.Created != "" {
		if t, err := time.Parse(time.RFC3339Nano, info.Created); err == nil {
			rec.CreatedAt = t
		}
	}
	if info.State != nil && info.State.StartedAt != "" {
		if t, err := time.Parse(time.RFC3339Nano, info.State.StartedAt); err == nil {
			rec.StartedAt = &t
		}
	}
	return rec, nil
}

// RemoveContainer stops (with a short grace period) and force-removes a
// container. Missing containers are not an error — removal is idempotent.
func (c *Client) RemoveContainer(ctx context.Context, containerID string) error {
	timeout := 2
	if err := c.docker.ContainerStop(ctx, containerID, container.StopOptions{Timeout: &timeout}); err != nil && !client.IsErrNotFound(err) {
		// Fall through to force-remove even if the graceful stop failed.
		_ = err
	}
	if err := c.docker.ContainerRemove(ctx, containerID, container.RemoveOptions{Force: true}); err != nil && !client.IsErrNotFound(err) {
		return wrapErr(err)
	}
	return nil
}

// AssignSession records the session binding for an existing container.
//
// Docker's API has no endpoint to mutate a running container's labels, so
// the authoritative binding lives in the pool's own store (see
// internal/store); this call best-effort mirrors the binding into the
// container itself (a marker file) purely for operator forensics when
// attaching to a container by hand.
func (c *Client) AssignSession(ctx context.Context, containerID, sessionID string) error {
	res, err := c.ExecCommand(ctx, containerID, nil, "printf '%s' '"+sessionID+"' > /.sandkasten-session", "/", 5*time.Second)
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("%w: writing session marker exited %d", ErrEngineError, res.ExitCode)
	}
	return nil
}
