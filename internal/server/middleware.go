package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"helpconnect/pkg/types"

	"github.com/sirupsen/logrus"
)

// Context key types to avoid collisions
type contextKey string

const contextKeyActor contextKey = "actor"

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (s *Service) LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		s.logger.WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rw.statusCode,
			"duration_ms": time.Since(started).Milliseconds(),
		}).Info("http request")
	})
}

// CORSMiddleware mirrors the headers browsers got from the previous
// deployment and short-circuits preflight.
func (s *Service) CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,OPTIONS")

		if r.Method == http.MethodOptions {
			s.respondJSON(w, http.StatusOK, map[string]string{"message": "OK"})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RequireAuth verifies the bearer token and places the typed actor in the
// request context. Every shape the token can arrive in is normalized here;
// nothing downstream looks at the transport again.
func (s *Service) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			s.respondError(w, types.ErrUnauthorized)
			return
		}

		actor, err := s.verifier.Verify(r.Context(), strings.TrimSpace(raw))
		if err != nil {
			s.logger.WithError(err).Debug("token verification failed")
			s.respondError(w, types.ErrUnauthorized)
			return
		}

		s.logger.WithFields(logrus.Fields{
			"user_id": actor.ID,
			"email":   actor.Email,
		}).Debug("authenticated user")

		ctx := context.WithValue(r.Context(), contextKeyActor, actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Service) actorFromContext(ctx context.Context) (types.Actor, error) {
	actor, ok := ctx.Value(contextKeyActor).(types.Actor)
	if !ok || actor.ID == "" {
		return types.Actor{}, types.ErrUnauthorized
	}
	return actor, nil
}
