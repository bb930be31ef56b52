package command

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sandkasten/pool/internal/engine"
	"github.com/sandkasten/pool/internal/store"
)

func TestRunSuccess(t *testing.T) {
	sessions := new(MockSessions)
	eng := new(MockEngine)
	r := New(sessions, eng, nil)

	sessions.On("Get", "s1").Return(store.SessionRecord{ID: "s1", ContainerID: "c1"}, nil)
	sessions.On("SetExecuting", "s1", true).Return(nil)
	sessions.On("SetExecuting", "s1", false).Return(nil)
	sessions.On("IncrementCommandCount", "s1").Return(nil)
	eng.On("ExecCommand", mock.Anything, "c1", []string(nil), "echo hi", "/", mock.Anything).
		Return(engine.ExecResult{Stdout: "hi\n", ExitCode: 0}, nil)

	res, err := r.Run(context.Background(), "s1", nil, "echo hi", "/", time.Second)
	require.NoError(t, err)
	assert.Equal(t, "hi\n", res.Stdout)
	assert.Equal(t, 0, res.ExitCode)
}

func TestRunRejectsWhenSessionBusy(t *testing.T) {
	sessions := new(MockSessions)
	eng := new(MockEngine)
	r := New(sessions, eng, nil)

	busyErr := errors.New("session busy")
	sessions.On("Get", "s1").Return(store.SessionRecord{ID: "s1", ContainerID: "c1"}, nil)
	sessions.On("SetExecuting", "s1", true).Return(busyErr)

	_, err := r.Run(context.Background(), "s1", nil, "echo hi", "/", time.Second)
	assert.ErrorIs(t, err, busyErr)
	eng.AssertNotCalled(t, "ExecCommand", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRunClearsExecutingOnEngineError(t *testing.T) {
	sessions := new(MockSessions)
	eng := new(MockEngine)
	r := New(sessions, eng, nil)

	sessions.On("Get", "s1").Return(store.SessionRecord{ID: "s1", ContainerID: "c1"}, nil)
	sessions.On("SetExecuting", "s1", true).Return(nil)
	sessions.On("SetExecuting", "s1", false).Return(nil)
	eng.On("ExecCommand", mock.Anything, "c1", []string(nil), "boom", "/", mock.Anything).
		Return(engine.ExecResult{}, errors.New("engine blew up"))

	_, err := r.Run(context.Background(), "s1", nil, "boom", "/", time.Second)
	assert.Error(t, err)
	sessions.AssertCalled(t, "SetExecuting", "s1", false)
}

func TestRunStreamForwardsEventsAndClearsExecuting(t *testing.T) {
	sessions := new(MockSessions)
	eng := new(MockEngine)
	r := New(sessions, eng, nil)

	events := make(chan engine.StreamEvent, 2)
	events <- engine.StreamEvent{Kind: engine.EventStdout, Data: []byte("hi")}
	events <- engine.StreamEvent{Kind: engine.EventExit, ExitCode: 0}
	close(events)

	sessions.On("Get", "s1").Return(store.SessionRecord{ID: "s1", ContainerID: "c1"}, nil)
	sessions.On("SetExecuting", "s1", true).Return(nil)
	sessions.On("SetExecuting", "s1", false).Return(nil)
	sessions.On("IncrementCommandCount", "s1").Return(nil)
	eng.On("ExecCommandStream", mock.Anything, "c1", []string(nil), "echo hi", "/", mock.Anything).
		Return((<-chan engine.StreamEvent)(events), nil)

	out, err := r.RunStream(context.Background(), "s1", nil, "echo hi", "/", time.Second)
	require.NoError(t, err)

	var seen []engine.StreamEvent
	for ev := range out {
		seen = append(seen, ev)
	}
	require.Len(t, seen, 2)
	assert.Equal(t, engine.EventExit, seen[1].Kind)
	sessions.AssertCalled(t, "SetExecuting", "s1", false)
}
