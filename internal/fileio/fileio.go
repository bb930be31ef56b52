// Package fileio exchanges files with a session's bound container through
// the engine driver's tar interface, and updates session activity
// bookkeeping around each transfer.
package fileio

import (
	"context"
	"fmt"

	"github.com/sandkasten/pool/internal/engine"
	"github.com/sandkasten/pool/internal/store"
)

// SessionLookup is the narrow capability this package needs from the
// session manager.
type SessionLookup interface {
	Get(sessionID string) (store.SessionRecord, error)
	UpdateActivity(sessionID string) error
}

// Engine is the narrow capability this package needs from the Docker
// driver.
type Engine interface {
	UploadFile(ctx context.Context, containerID, destPath string, content []byte, mode int64) error
	DownloadFile(ctx context.Context, containerID, srcPath string) ([]byte, error)
	ListDirectory(ctx context.Context, containerID, dirPath string) ([]engine.FileEntry, error)
	DeleteFile(ctx context.Context, containerID, targetPath string) error
}

// Manager wires session lookup to engine file transfer calls.
type Manager struct {
	sessions SessionLookup
	engine   Engine
}

// New constructs a Manager.
func New(sessions SessionLookup, eng Engine) *Manager {
	return &Manager{sessions: sessions, engine: eng}
}

func (m *Manager) containerFor(sessionID string) (string, error) {
	rec, err := m.sessions.Get(sessionID)
	if err != nil {
		return "", err
	}
	if rec.Status != store.SessionActive {
		return "", fmt.Errorf("session %s is not active", sessionID)
	}
	return rec.ContainerID, nil
}

// Upload writes content to destPath inside sessionID's container.
func (m *Manager) Upload(ctx context.Context, sessionID, destPath string, content []byte, mode int64) error {
	containerID, err := m.containerFor(sessionID)
	if err != nil {
		return err
	}
	if err := m.engine.UploadFile(ctx, containerID, destPath, content, mode); err != nil {
		return fmt.Errorf("upload file: %w", err)
	}
	return m.sessions.UpdateActivity(sessionID)
}

// Download reads srcPath from sessionID's container.
func (m *Manager) Download(ctx context.Context, sessionID, srcPath string) ([]byte, error) {
	containerID, err := m.containerFor(sessionID)
	if err != nil {
		return nil, err
	}
	data, err := m.engine.DownloadFile(ctx, containerID, srcPath)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	_ = m.sessions.UpdateActivity(sessionID)
	return data, nil
}

// List lists dirPath inside sessionID's container.
func (m *Manager) List(ctx context.Context, sessionID, dirPath string) ([]engine.FileEntry, error) {
	containerID, err := m.containerFor(sessionID)
	if err != nil {
		return nil, err
	}
	entries, err := m.engine.ListDirectory(ctx, containerID, dirPath)
	if err != nil {
		return nil, fmt.Errorf("list directory: %w", err)
	}
	_ = m.sessions.UpdateActivity(sessionID)
	return entries, nil
}

// Delete removes targetPath inside sessionID's container.
func (m *Manager) Delete(ctx context.Context, sessionID, targetPath string) error {
	containerID, err := m.containerFor(sessionID)
	if err != nil {
		return err
	}
	if err := m.engine.DeleteFile(ctx, containerID, targetPath); err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	return m.sessions.UpdateActivity(sessionID)
}
