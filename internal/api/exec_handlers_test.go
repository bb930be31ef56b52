package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sandkasten/pool/internal/command"
	"github.com/sandkasten/pool/internal/engine"
)

func TestHandleRunCommandSuccess(t *testing.T) {
	s, m := newTestServer("")
	m.commands.On("Run", mock.Anything, "s1", []string(nil), "echo hi", "/workspace", command.DefaultTimeout).
		Return(command.Result{Stdout: "hi\n", ExitCode: 0}, nil)

	body := `{"command":"echo hi"}`
	req := httptest.NewRequest(http.MethodPost, "/api/sessions/s1/commands", strings.NewReader(body))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
}

func TestHandleRunCommandRejectsMissingCommand(t *testing.T) {
	s, _ := newTestServer("")

	req := httptest.NewRequest(http.MethodPost, "/api/sessions/s1/commands", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleRunCommandStreamForwardsSSE(t *testing.T) {
	s, m := newTestServer("")
	events := make(chan engine.StreamEvent, 3)
	events <- engine.StreamEvent{Kind: engine.EventStdout, Data: []byte("o1")}
	events <- engine.StreamEvent{Kind: engine.EventStderr, Data: []byte("e1")}
	events <- engine.StreamEvent{Kind: engine.EventExit, ExitCode: 0}
	close(events)

	m.commands.On("RunStream", mock.Anything, "s1", []string(nil), "echo hi", "/workspace", command.DefaultTimeout).
		Return((<-chan engine.StreamEvent)(events), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/sessions/s1/commands/stream", strings.NewReader(`{"command":"echo hi"}`))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "event: stdout")
	assert.Contains(t, body, "event: stderr")
	assert.Contains(t, body, "event: exit")
}
