package engine

import (
	"archive/tar"
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
)

// UploadFile writes content to destPath inside containerID, packing it into
// a single-entry tar stream as Docker's CopyToContainer API requires.
func (c *Client) UploadFile(ctx context.Context, containerID, destPath string, content []byte, mode int64) error {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)

	hdr := &tar.Header{
		Name:    path.Base(destPath),
		Mode:    mode,
		Size:    int64(len(content)),
		ModTime: time.Now(),
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("%w: tar header: %v", ErrEngineError, err)
	}
	if _, err := tw.Write(content); err != nil {
		return fmt.Errorf("%w: tar write: %v", ErrEngineError, err)
	}
	if err := tw.Close(); err != nil {
		return fmt.Errorf("%w: tar close: %v", ErrEngineError, err)
	}

	destDir := path.Dir(destPath)
	mkRes, err := c.ExecCommand(ctx, containerID, nil, fmt.Sprintf("mkdir -p -- %q", destDir), "/", 10*time.Second)
	if err != nil {
		return err
	}
	if mkRes.ExitCode != 0 {
		return fmt.Errorf("%w: mkdir -p exited %d: %s", ErrEngineError, mkRes.ExitCode, mkRes.Stderr)
	}

	if err := c.docker.CopyToContainer(ctx, containerID, destDir, &buf, container.CopyToContainerOptions{}); err != nil {
		return wrapErr(err)
	}
	return nil
}

// DownloadFile reads srcPath from containerID and returns its contents.
func (c *Client) DownloadFile(ctx context.Context, containerID, srcPath string) ([]byte, error) {
	rc, _, err := c.docker.CopyFromContainer(ctx, containerID, srcPath)
	if err != nil {
		return nil, wrapErr(err)
	}
	defer rc.Close()

	tr := tar.NewReader(rc)
	hdr, err := tr.Next()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: empty archive for %s", ErrNotFound, srcPath)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: tar read: %v", ErrEngineError, err)
	}
	if hdr.FileInfo().IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrEngineError, srcPath)
	}

	data, err := io.ReadAll(tr)
	if err != nil {
		return nil, fmt.Errorf("%w: tar body read: %v", ErrEngineError, err)
	}
	return data, nil
}

// ListDirectory lists the immediate entries of dirPath inside containerID by
// requesting a tar stream of that directory and reading only its headers.
func (c *Client) ListDirectory(ctx context.Context, containerID, dirPath string) ([]FileEntry, error) {
	rc, _, err := c.docker.CopyFromContainer(ctx, containerID, dirPath)
	if err != nil {
		return nil, wrapErr(err)
	}
	defer rc.Close()

	tr := tar.NewReader(rc)
	var entries []FileEntry
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: tar read: %v", ErrEngineError, err)
		}
		// The root entry itself (".") is the requested directory; skip it.
		if hdr.Name == "." || hdr.Name == path.Base(dirPath)+"/" {
			continue
		}
		// Entries inside a subdirectory are not immediate children; skip them.
		rel := strings.TrimSuffix(strings.TrimPrefix(hdr.Name, path.Base(dirPath)+"/"), "/")
		if strings.Contains(rel, "/") {
			continue
		}
		entries = append(entries, FileEntry{
			Name:    path.Base(hdr.Name),
			IsDir:   hdr.FileInfo().IsDir(),
			SizeB:   hdr.Size,
			Mode:    uint32(hdr.Mode),
			ModTime: hdr.ModTime,
		})
	}
	return entries, nil
}

// DeleteFile removes path inside containerID via an exec call; Docker's API
// has no direct filesystem-delete endpoint.
func (c *Client) DeleteFile(ctx context.Context, containerID, targetPath string) error {
	res, err := c.ExecCommand(ctx, containerID, nil, fmt.Sprintf("rm -rf -- %q", targetPath), "/", 5*time.Second)
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("%w: rm exited %d: %s", ErrEngineError, res.ExitCode, res.Stderr)
	}
	return nil
}
