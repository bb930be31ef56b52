package api

import (
	"encoding/json"
	"net/http"

	"github.com/sandkasten/pool/internal/store"
)

type createSessionRequest struct {
	Name           string `json:"name,omitempty"`
	TimeoutSeconds int    `json:"timeoutSeconds,omitempty"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeValidationError(w, "malformed request body", nil)
			return
		}
	}

	rec, err := s.sessions.Create(r.Context(), req.TimeoutSeconds)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, rec)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	recs, err := s.sessions.List()
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, recs)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	rec, err := s.sessions.Get(id)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, rec)
}

func (s *Server) handleDestroySession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.sessions.Destroy(r.Context(), id, false); err != nil {
		writeAPIError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"id": id, "destroyed": true})
}

// nonDestroyedSessions filters out nothing today (Destroy deletes the
// record outright, so List() never returns a destroyed session) but keeps
// the admin endpoint's contract explicit about intent.
func nonDestroyedSessions(recs []store.SessionRecord) []store.SessionRecord {
	out := make([]store.SessionRecord, 0, len(recs))
	for _, rec := range recs {
		if rec.Status == store.SessionDestroyed {
			continue
		}
		out = append(out, rec)
	}
	return out
}
