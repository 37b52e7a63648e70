package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/kozaktomas/face-touch/internal/alert"
	"github.com/kozaktomas/face-touch/internal/config"
	"github.com/kozaktomas/face-touch/internal/frame"
	"github.com/kozaktomas/face-touch/internal/session"
	"github.com/kozaktomas/face-touch/internal/web/handlers"
	"github.com/kozaktomas/face-touch/internal/web/middleware"
	"github.com/sirupsen/logrus"
)

// Deps are the session components the server exposes.
type Deps struct {
	Controller *session.Controller
	Gate       *alert.Gate
	Push       *frame.PushSource      // nil unless frames come from the browser
	Player     *alert.BrowserPlayer   // nil unless the browser plays the sound
	Journal    handlers.JournalReader // nil when no database is configured
}

// Server represents the web server
type Server struct {
	config     *config.Config
	deps       Deps
	router     *chi.Mux
	httpServer *http.Server
	log        logrus.FieldLogger

	// ctx bounds training bursts and detection loops started over HTTP.
	ctx    context.Context
	cancel context.CancelFunc
}

// NewServer creates a new web server
func NewServer(cfg *config.Config, deps Deps, log logrus.FieldLogger) *Server {
	r := chi.NewRouter()
	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		config: cfg,
		deps:   deps,
		router: r,
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}

	// Set up middleware stack
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.RequestLogger(&chiMiddleware.DefaultLogFormatter{Logger: log, NoColor: true}))
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.Web.AllowedOrigins))

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port),
		Handler:     r,
		ReadTimeout: 30 * time.Second,
		// No WriteTimeout: the event stream stays open for the whole session.
		IdleTimeout: 60 * time.Second,
	}

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.WithField("addr", s.httpServer.Addr).Info("starting web server")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown stops background session work and gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down web server")
	s.cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// Context returns the context bounding background session work.
func (s *Server) Context() context.Context {
	return s.ctx
}

// Router returns the chi router for testing
func (s *Server) Router() *chi.Mux {
	return s.router
}
