package api

import (
	"errors"
	"net/http"

	"github.com/sandkasten/pool/internal/engine"
	"github.com/sandkasten/pool/internal/pool"
	"github.com/sandkasten/pool/internal/session"
	"github.com/sandkasten/pool/internal/store"
)

// Error codes, per spec.md §7.
const (
	CodeEngineUnreachable   = "ENGINE_UNREACHABLE"
	CodeContainerNotFound   = "CONTAINER_NOT_FOUND"
	CodeEngineError         = "ENGINE_ERROR"
	CodeSessionNotFound     = "SESSION_NOT_FOUND"
	CodeSessionNotReady     = "SESSION_NOT_READY"
	CodeSessionNotActive    = "SESSION_NOT_ACTIVE"
	CodeFileNotFound        = "FILE_NOT_FOUND"
	CodeInvalidArgument     = "INVALID_ARGUMENT"
	CodeOperationTimeout    = "OPERATION_TIMEOUT"
	CodeMaxContainersReached = "MAX_CONTAINERS_REACHED"
	CodeInvalidTimeout      = "INVALID_TIMEOUT"
	CodeUnauthorized        = "UNAUTHORIZED"
)

// ErrFileNotFound is returned by handlers when a download target is absent;
// internal/fileio and internal/engine don't define a dedicated sentinel for
// it since "file missing" only matters at this HTTP boundary.
var ErrFileNotFound = errors.New("file not found")

// classifyError maps a core error to the (code, HTTP status, message) triple
// from spec.md §7. The switch checks more specific sentinels before the
// generic engine ones, since some wrap others (e.g. engine.ErrNotFound can
// surface underneath a session or pool error).
func classifyError(err error) (code string, status int, message string) {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		return CodeSessionNotFound, http.StatusNotFound, "session not found"
	case errors.Is(err, session.ErrSessionNotActive):
		return CodeSessionNotReady, http.StatusBadRequest, "session has no bound container (queued or inactive)"
	case errors.Is(err, session.ErrSessionBusy):
		return CodeSessionNotReady, http.StatusBadRequest, "session is busy executing another command"
	case errors.Is(err, session.ErrInvalidTimeout):
		return CodeInvalidTimeout, http.StatusBadRequest, "timeoutSeconds out of range"
	case errors.Is(err, pool.ErrMaxContainersReached):
		return CodeMaxContainersReached, http.StatusServiceUnavailable, "container capacity exhausted"
	case errors.Is(err, pool.ErrContainerNotFound):
		return CodeContainerNotFound, http.StatusNotFound, "container not found"
	case errors.Is(err, store.ErrNotFound):
		return CodeSessionNotFound, http.StatusNotFound, "not found"
	case errors.Is(err, ErrFileNotFound):
		return CodeFileNotFound, http.StatusNotFound, "file not found"
	case errors.Is(err, engine.ErrNotFound):
		return CodeContainerNotFound, http.StatusNotFound, "container not found"
	case errors.Is(err, engine.ErrEngineUnreachable):
		return CodeEngineUnreachable, http.StatusServiceUnavailable, "engine unreachable"
	case errors.Is(err, engine.ErrEngineError):
		return CodeEngineError, http.StatusInternalServerError, "engine error"
	default:
		return CodeEngineError, http.StatusInternalServerError, err.Error()
	}
}
