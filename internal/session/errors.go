package session

import "errors"

// Sentinel errors returned by Manager operations, mapped to HTTP statuses by
// internal/api per spec.md §7.
var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrSessionNotReady  = errors.New("session not ready")
	ErrSessionNotActive = errors.New("session not active")
	ErrSessionBusy      = errors.New("session busy")
	ErrInvalidTimeout   = errors.New("invalid timeout")
)
