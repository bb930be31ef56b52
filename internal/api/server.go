package api

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server wires the HTTP surface to the daemon's core components.
type Server struct {
	sessions Sessions
	commands Commands
	files    Files
	pool     Pool
	status   StatusSource

	apiKey  string
	workDir string
	logger  *slog.Logger

	mux *http.ServeMux
}

// NewServer constructs a Server and registers its routes.
func NewServer(sessions Sessions, commands Commands, files Files, p Pool, statusSrc StatusSource, apiKey, workDir string, logger *slog.Logger) *Server {
	s := &Server{
		sessions: sessions,
		commands: commands,
		files:    files,
		pool:     p,
		status:   statusSrc,
		apiKey:   apiKey,
		workDir:  workDir,
		logger:   logger,
		mux:      http.NewServeMux(),
	}
	s.routes()
	return s
}

// Handler returns the fully wrapped HTTP handler (auth + request ID around
// the route mux), following the teacher's Handler() composition.
func (s *Server) Handler() http.Handler {
	return s.requestIDMiddleware(s.authMiddleware(s.mux))
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	s.mux.Handle("GET /metrics", promhttp.Handler())

	s.mux.HandleFunc("GET /api/admin/status", s.handleAdminStatus)
	s.mux.HandleFunc("GET /api/admin/status/stream", s.handleAdminStatusStream)
	s.mux.HandleFunc("GET /api/admin/containers", s.handleAdminListContainers)
	s.mux.HandleFunc("POST /api/admin/containers", s.handleAdminCreateContainer)
	s.mux.HandleFunc("DELETE /api/admin/containers/{id}", s.handleAdminDeleteContainer)
	s.mux.HandleFunc("DELETE /api/admin/containers", s.handleAdminDeleteAllContainers)
	s.mux.HandleFunc("POST /api/admin/prewarm", s.handleAdminPrewarm)
	s.mux.HandleFunc("GET /api/admin/sessions", s.handleAdminListSessions)
	s.mux.HandleFunc("DELETE /api/admin/sessions/{id}", s.handleAdminDestroySession)

	s.mux.HandleFunc("GET /api/sessions", s.handleListSessions)
	s.mux.HandleFunc("POST /api/sessions", s.handleCreateSession)
	s.mux.HandleFunc("GET /api/sessions/{id}", s.handleGetSession)
	s.mux.HandleFunc("DELETE /api/sessions/{id}", s.handleDestroySession)

	s.mux.HandleFunc("POST /api/sessions/{id}/commands", s.handleRunCommand)
	s.mux.HandleFunc("POST /api/sessions/{id}/commands/stream", s.handleRunCommandStream)

	s.mux.HandleFunc("GET /api/sessions/{id}/files/list", s.handleFilesList)
	s.mux.HandleFunc("POST /api/sessions/{id}/files/upload", s.handleFilesUpload)
	s.mux.HandleFunc("GET /api/sessions/{id}/files/download", s.handleFilesDownload)
	s.mux.HandleFunc("DELETE /api/sessions/{id}/files", s.handleFilesDelete)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
