package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/siftql/sift/internal/cache"
	"github.com/siftql/sift/pkg/sift"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": true})
}

// handleQuery evaluates the request's query string against the entity
// named in the path.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	entity := chi.URLParam(r, "entity")
	if _, ok := s.store.Registry().Get(entity); !ok {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{
			"status":  false,
			"code":    "UNKNOWN_ENTITY",
			"message": "no such entity: " + entity,
		})
		return
	}

	subject := s.subject(r)

	var key string
	if s.cache != nil {
		key = cache.Key(entity, r.URL.RawQuery, subject)
		if body, err := s.cache.Get(r.Context(), key); err == nil {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("X-Cache", "hit")
			w.WriteHeader(http.StatusOK)
			w.Write(body)
			return
		} else if !errors.Is(err, cache.ErrMiss) {
			s.logger.Warn("cache lookup failed",
				zap.String("request_id", RequestID(r.Context())),
				zap.Error(err))
		}
	}

	opts := []sift.Option{
		sift.WithSettings(s.settings),
		sift.WithLogger(s.logger),
	}
	if subject != "" {
		opts = append(opts, sift.WithUser(subject))
	}
	if s.perms != nil {
		opts = append(opts, sift.WithPermissions(s.perms))
	}

	query := sift.New(s.store, entity, sift.ParseQuery(r.URL.RawQuery), opts...)
	env := query.Evaluate(r.Context())

	body, err := json.Marshal(env)
	if err != nil {
		s.logger.Error("failed to serialize envelope",
			zap.String("request_id", RequestID(r.Context())),
			zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"status": false,
			"code":   "UNKNOWN",
		})
		return
	}

	status := http.StatusOK
	if !env.Status() {
		status = http.StatusBadRequest
	} else if s.cache != nil {
		s.cache.Set(r.Context(), key, body)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
