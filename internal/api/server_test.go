package api

import (
	"io"
	"log/slog"
)

type testServerMocks struct {
	sessions *MockSessions
	commands *MockCommands
	files    *MockFiles
	pool     *MockPool
	status   *MockStatus
}

func newTestServer(apiKey string) (*Server, *testServerMocks) {
	m := &testServerMocks{
		sessions: new(MockSessions),
		commands: new(MockCommands),
		files:    new(MockFiles),
		pool:     new(MockPool),
		status:   new(MockStatus),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := NewServer(m.sessions, m.commands, m.files, m.pool, m.status, apiKey, "/workspace", logger)
	return s, m
}
