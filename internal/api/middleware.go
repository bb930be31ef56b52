package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

type contextKey string

const requestIDKey contextKey = "requestID"

// publicPaths never require auth, even when an API key is configured.
var publicPaths = map[string]bool{
	"/healthz": true,
	"/metrics": true,
}

// authMiddleware rejects requests missing a valid bearer token, following
// the teacher's authMiddleware. A blank apiKey disables auth entirely (the
// caller is expected to log a startup warning in that case).
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey == "" || publicPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		const prefix = "Bearer "
		auth := r.Header.Get("Authorization")
		if strings.HasPrefix(auth, prefix) && strings.TrimPrefix(auth, prefix) == s.apiKey {
			next.ServeHTTP(w, r)
			return
		}
		if r.URL.Query().Get("api_key") == s.apiKey {
			next.ServeHTTP(w, r)
			return
		}

		writeErrorResponse(w, http.StatusUnauthorized, CodeUnauthorized, "missing or invalid API key", nil)
	})
}

// requestIDMiddleware reads X-Request-ID from the caller or generates one,
// echoes it back on the response, and stores it in the request context for
// logging.
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", id)
		ctx := context.WithValue(r.Context(), requestIDKey, id)

		s.logger.Info("request", "method", r.Method, "path", r.URL.Path, "request_id", id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func (s *Server) logErr(r *http.Request, msg string, err error) {
	s.logger.Error(msg, "path", r.URL.Path, "request_id", requestIDFrom(r.Context()), "error", err)
}
