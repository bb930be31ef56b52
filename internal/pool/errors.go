package pool

import "errors"

// Sentinel errors returned by Pool operations, mapped to HTTP statuses by
// internal/api per spec.md §7.
var (
	ErrMaxContainersReached = errors.New("max containers reached")
	ErrContainerNotFound    = errors.New("container not found")
)
