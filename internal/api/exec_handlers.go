package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sandkasten/pool/internal/command"
	"github.com/sandkasten/pool/internal/engine"
)

type runCommandRequest struct {
	Command          string `json:"command"`
	WorkingDirectory string `json:"workingDirectory,omitempty"`
	TimeoutSeconds   int    `json:"timeoutSeconds,omitempty"`
}

func decodeRunCommandRequest(w http.ResponseWriter, r *http.Request) (runCommandRequest, bool) {
	var req runCommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidationError(w, "malformed request body", nil)
		return req, false
	}
	if req.Command == "" {
		writeValidationError(w, "command is required", map[string]any{"command": "required"})
		return req, false
	}
	return req, true
}

// resolveCommandTimeout applies the command runner's default timeout unless
// the request specified one, shared by both the batched and streamed exec
// endpoints so neither silently drops req.TimeoutSeconds (spec.md §4.1/§4.4).
func resolveCommandTimeout(req runCommandRequest) time.Duration {
	if req.TimeoutSeconds > 0 {
		return time.Duration(req.TimeoutSeconds) * time.Second
	}
	return command.DefaultTimeout
}

func (s *Server) handleRunCommand(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	req, ok := decodeRunCommandRequest(w, r)
	if !ok {
		return
	}

	workDir := req.WorkingDirectory
	if workDir == "" {
		workDir = s.workDir
	}
	timeout := resolveCommandTimeout(req)

	res, err := s.commands.Run(r.Context(), id, nil, req.Command, workDir, timeout)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (s *Server) handleRunCommandStream(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	req, ok := decodeRunCommandRequest(w, r)
	if !ok {
		return
	}

	workDir := req.WorkingDirectory
	if workDir == "" {
		workDir = s.workDir
	}
	timeout := resolveCommandTimeout(req)

	events, err := s.commands.RunStream(r.Context(), id, nil, req.Command, workDir, timeout)
	if err != nil {
		writeAPIError(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeErrorResponse(w, http.StatusInternalServerError, CodeEngineError, "streaming unsupported", nil)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	start := time.Now()
	for ev := range events {
		switch ev.Kind {
		case engine.EventStdout:
			writeSSE(w, "stdout", map[string]any{"data": string(ev.Data)})
		case engine.EventStderr:
			writeSSE(w, "stderr", map[string]any{"data": string(ev.Data)})
		case engine.EventExit:
			writeSSE(w, "exit", map[string]any{
				"exitCode":        ev.ExitCode,
				"executionTimeMs": time.Since(start).Milliseconds(),
			})
		}
		flusher.Flush()
	}
}

func writeSSE(w http.ResponseWriter, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}
