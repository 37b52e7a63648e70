package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/kozaktomas/face-touch/internal/web/handlers"
	"github.com/kozaktomas/face-touch/internal/web/middleware"
	"github.com/kozaktomas/face-touch/internal/web/static"
)

func (s *Server) setupRoutes() {
	sessionHandler := handlers.NewSessionHandler(s.ctx, s.deps.Controller, s.config.Session.AutoRun, s.log)
	framesHandler := handlers.NewFramesHandler(s.deps.Push)
	alertHandler := handlers.NewAlertHandler(s.deps.Player, s.deps.Gate)
	journalHandler := handlers.NewJournalHandler(s.deps.Journal, s.log)
	configHandler := handlers.NewConfigHandler(s.config, s.deps.Journal != nil)

	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		// Event stream is long lived and stays outside the timeout group
		r.Get("/session/events", sessionHandler.Events)

		r.Group(func(r chi.Router) {
			r.Use(chiMiddleware.Timeout(30 * time.Second))

			r.Get("/config", configHandler.Get)

			// Frames
			r.Post("/frames", framesHandler.Push)
			r.Post("/camera/error", framesHandler.CameraError)

			// Session
			r.Get("/session", sessionHandler.State)
			r.Post("/session/initialize", sessionHandler.Initialize)
			r.Post("/session/train/not-touching", sessionHandler.TrainNotTouching)
			r.Post("/session/train/touching", sessionHandler.TrainTouching)
			r.Post("/session/run", sessionHandler.Run)
			r.Post("/session/stop", sessionHandler.Stop)

			// Alert
			r.Get("/alert", alertHandler.Status)
			r.Post("/alert/finished", alertHandler.Finished)

			// Journal
			r.Get("/journal", journalHandler.List)
		})
	})

	// Browser page
	s.router.With(middleware.SecurityHeaders()).Handle("/*", http.FileServer(static.GetFileSystem()))
}
