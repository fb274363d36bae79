// Package web exposes the query engine over HTTP: one generic GET
// endpoint per registered entity, with the whole query expressed in
// the URL query string.
package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/siftql/sift/internal/cache"
	"github.com/siftql/sift/internal/censor"
	"github.com/siftql/sift/pkg/sift"
	"github.com/siftql/sift/pkg/storage"
)

// Server serves query requests against one store.
type Server struct {
	store    *storage.Store
	settings sift.Settings
	logger   *zap.Logger
	cache    *cache.Cache
	perms    censor.PermissionChecker
	jwtKey   []byte
}

// ServerOption customizes the server.
type ServerOption func(*Server)

// WithLogger sets the request logger.
func WithLogger(l *zap.Logger) ServerOption {
	return func(s *Server) { s.logger = l }
}

// WithSettings replaces the engine settings used for every request.
func WithSettings(settings sift.Settings) ServerOption {
	return func(s *Server) { s.settings = settings }
}

// WithCache serves repeated identical queries from Redis.
func WithCache(c *cache.Cache) ServerOption {
	return func(s *Server) { s.cache = c }
}

// WithPermissions enables permission-based relation censoring. The
// caller identity comes from the request's bearer token.
func WithPermissions(p censor.PermissionChecker) ServerOption {
	return func(s *Server) { s.perms = p }
}

// WithJWTKey sets the HMAC key used to verify bearer tokens. Without
// it, requests are anonymous.
func WithJWTKey(key []byte) ServerOption {
	return func(s *Server) { s.jwtKey = key }
}

// NewServer creates a server over the given store.
func NewServer(store *storage.Store, opts ...ServerOption) *Server {
	s := &Server{
		store:    store,
		settings: sift.DefaultSettings(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the HTTP routing table.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(s.logRequests)
	r.Get("/health", s.handleHealth)
	r.Get("/{entity}", s.handleQuery)
	return r
}

// ListenAndServe runs the server until the listener fails.
func (s *Server) ListenAndServe(addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	s.logger.Info("listening", zap.String("addr", addr))
	return srv.ListenAndServe()
}
