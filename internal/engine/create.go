package engine

import (
	"context"
	"fmt"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/go-units"
)

// CreateManagedContainer creates and starts a new container labeled as
// managed, with the resource limits and network mode in opts. The container
// runs an indefinite sleep so it stays alive for exec-based command
// execution, mirroring the teacher's long-running sandbox container.
func (c *Client) CreateManagedContainer(ctx context.Context, name string, opts CreateOpts) (*ContainerRecord, error) {
	labels := map[string]string{
		opts.LabelPrefix + ".managed": "true",
	}
	for k, v := range opts.ExtraLabels {
		labels[k] = v
	}

	nanoCPUs := int64(opts.CPULimit * 1e9)
	memBytes := int64(opts.MemLimitMB) * 1024 * 1024
	pidsLimit := int64(opts.PidsLimit)

	hostCfg := &container.HostConfig{
		NetworkMode:    container.NetworkMode(opts.NetworkMode),
		ReadonlyRootfs: opts.ReadonlyRootfs,
		Resources: container.Resources{
			NanoCPUs:  nanoCPUs,
			Memory:    memBytes,
			PidsLimit: &pidsLimit,
		},
		Tmpfs: map[string]string{
			"/tmp": fmt.Sprintf("size=%d", units.MiB*64),
		},
		CapDrop:     []string{"ALL"},
		SecurityOpt: []string{"no-new-privileges"},
	}

	containerCfg := &container.Config{
		Image:      opts.Image,
		Labels:     labels,
		WorkingDir: opts.WorkDir,
		Cmd:        []string{"sleep", "infinity"},
		Tty:        false,
	}
	if opts.ReadonlyRootfs {
		hostCfg.Mounts = []mount.Mount{
			{
				Type:   mount.TypeTmpfs,
				Target: opts.WorkDir,
			},
		}
	}

	resp, err := c.docker.ContainerCreate(ctx, containerCfg, hostCfg, nil, nil, name)
	if err != nil {
		return nil, wrapErr(err)
	}

	if err := c.docker.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		_ = c.RemoveContainer(ctx, resp.ID)
		return nil, wrapErr(err)
	}

	return c.Inspect(ctx, resp.ID)
}
