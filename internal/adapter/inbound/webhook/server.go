package webhook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jonny/engagebot/internal/adapter/inbound/webhook/middleware"
)

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            int
	Path            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	VerifyToken     string
	AdminToken      string
	RateLimit       int
	TrustProxy      bool
}

// Server wraps an HTTP server with graceful shutdown support.
type Server struct {
	cfg     ServerConfig
	handler *Handler
	admin   *AdminHandler
	health  http.HandlerFunc
	logger  *slog.Logger
	srv     *http.Server
}

// NewServer creates a Server. admin may be nil; it is also left unmounted
// when no admin token is configured.
func NewServer(cfg ServerConfig, handler *Handler, admin *AdminHandler, health http.HandlerFunc, logger *slog.Logger) *Server {
	if cfg.Path == "" {
		cfg.Path = "/webhook"
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	if health == nil {
		health = HealthHandler()
	}
	return &Server{cfg: cfg, handler: handler, admin: admin, health: health, logger: logger}
}

// SetupRoutes builds and returns an http.Handler with all middleware applied.
// Route layout:
//
//	GET  /health              - Health check
//	GET  /webhook             - Subscription verification
//	POST /webhook             - Callback ingestion
//	     /admin/...           - Template and interaction admin (token only)
func (s *Server) SetupRoutes(ctx context.Context) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.health)
	mux.HandleFunc("GET "+s.cfg.Path, VerifyHandler(s.cfg.VerifyToken, s.logger))
	mux.Handle("POST "+s.cfg.Path, middleware.NewRateLimiter(ctx, s.cfg.RateLimit, s.cfg.TrustProxy)(s.handler))

	if s.admin != nil && s.cfg.AdminToken != "" {
		s.admin.Register(mux, middleware.BearerAuth(s.cfg.AdminToken))
	}

	// Apply middleware stack (outermost = first to execute):
	//   Logging -> Recover -> SecurityHeaders -> BodyReader
	var h http.Handler = mux
	h = middleware.BodyReader(h)
	h = middleware.SecurityHeaders(h)
	h = middleware.Recover(s.logger)(h)
	h = middleware.NewLoggingMiddleware(s.logger)(h)

	return h
}

// Start starts the HTTP server and blocks until ctx is cancelled, then performs
// a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	s.srv = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.SetupRoutes(ctx),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("webhook server listening", "port", s.cfg.Port, "path", s.cfg.Path)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("webhook server shutdown error: %w", err)
		}
		return nil
	case err := <-errCh:
		return err
	}
}

// HealthHandler returns an http.HandlerFunc for the /health endpoint.
func HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
