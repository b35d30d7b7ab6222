package httpserver

import (
	"context"
	"net/http"
	"strings"
	"time"

	"accounts/backend/internal/config"
	domain "accounts/backend/internal/domain/auth"
	"accounts/backend/internal/logging"
	"accounts/backend/internal/ratelimit"
	authusecase "accounts/backend/internal/usecase/auth"
)

// Server wraps the HTTP server lifecycle.
type Server struct {
	httpServer  *http.Server
	router      *http.ServeMux
	authService *authusecase.Service
	users       domain.UserRepository
	transport   TokenTransport
	limiter     *ratelimit.Limiter
	log         logging.Logger
	adminEmails map[string]struct{}
	addr        string
}

// NewServer constructs a new Server with configured dependencies.
func NewServer(cfg config.Config, authService *authusecase.Service, users domain.UserRepository, limiter *ratelimit.Limiter, log logging.Logger) *Server {
	mux := http.NewServeMux()
	addr := cfg.HTTPPort
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	admins := make(map[string]struct{}, len(cfg.AdminEmails))
	for _, email := range cfg.AdminEmails {
		admins[authusecase.NormalizeEmail(email)] = struct{}{}
	}

	handler := withLogging(withCORS(mux, cfg.AllowedOrigins), log)

	srv := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      handler,
			ReadTimeout:  time.Duration(cfg.ReadTimeoutSec) * time.Second,
			WriteTimeout: time.Duration(cfg.WriteTimeoutSec) * time.Second,
			IdleTimeout:  time.Duration(cfg.IdleTimeoutSec) * time.Second,
		},
		router:      mux,
		authService: authService,
		users:       users,
		transport:   newTokenTransport(cfg),
		limiter:     limiter,
		log:         log,
		adminEmails: admins,
		addr:        addr,
	}
	srv.registerRoutes()
	return srv
}

// Start bootstraps the HTTP server on the configured address.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Router exposes the underlying ServeMux so routes can be registered.
func (s *Server) Router() *http.ServeMux {
	return s.router
}

// Addr returns the configured network address for the HTTP server.
func (s *Server) Addr() string {
	return s.addr
}
