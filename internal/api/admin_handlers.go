package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

func (s *Server) handleAdminStatus(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, s.status.Last())
}

var statusUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleAdminStatusStream pushes a SystemStatus snapshot over a websocket
// connection on every pool/session transition, per spec.md §6's status push
// requirement.
func (s *Server) handleAdminStatusStream(w http.ResponseWriter, r *http.Request) {
	conn, err := statusUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logErr(r, "status stream upgrade failed", err)
		return
	}
	defer conn.Close()

	updates, unsubscribe := s.status.Subscribe()
	defer unsubscribe()

	if err := conn.WriteJSON(s.status.Last()); err != nil {
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case snap, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.WriteJSON(snap); err != nil {
				return
			}
		}
	}
}

func (s *Server) handleAdminListContainers(w http.ResponseWriter, r *http.Request) {
	recs, err := s.pool.GetAll()
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, recs)
}

func (s *Server) handleAdminCreateContainer(w http.ResponseWriter, r *http.Request) {
	rec, err := s.pool.CreateIdle(r.Context())
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, rec)
}

func (s *Server) handleAdminDeleteContainer(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.pool.ForceDelete(r.Context(), id); err != nil {
		writeAPIError(w, err)
		return
	}
	if err := s.sessions.DestroyByContainerID(r.Context(), id); err != nil {
		s.logErr(r, "mark session destroyed after container force-delete", err)
	}
	writeSuccess(w, http.StatusOK, map[string]any{"id": id, "deleted": true})
}

func (s *Server) handleAdminDeleteAllContainers(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()
	s.pool.DeleteAll(ctx)
	writeSuccess(w, http.StatusOK, map[string]any{"deleted": true})
}

func (s *Server) handleAdminPrewarm(w http.ResponseWriter, r *http.Request) {
	if err := s.pool.EnsurePrewarmed(r.Context()); err != nil {
		writeAPIError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"prewarmed": true})
}

func (s *Server) handleAdminListSessions(w http.ResponseWriter, r *http.Request) {
	recs, err := s.sessions.List()
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, nonDestroyedSessions(recs))
}

func (s *Server) handleAdminDestroySession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.sessions.Destroy(r.Context(), id, true); err != nil {
		writeAPIError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"id": id, "destroyed": true})
}
