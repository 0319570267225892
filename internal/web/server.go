// Package web serves the local JSON API the app's screens talk to.
package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/andreagonzahe/lunaria-app/internal/logger"
	"github.com/andreagonzahe/lunaria-app/internal/reminders"
	lsync "github.com/andreagonzahe/lunaria-app/internal/sync"
)

// DefaultAddr is the default listen address. The API is bound to loopback
// only.
const DefaultAddr = "127.0.0.1:8787"

// ServerConfig holds server dependencies. Accounts, Reminders and Push may
// be nil; the matching routes then answer 503.
type ServerConfig struct {
	Addr        string
	Coordinator *lsync.Coordinator
	Accounts    Accounts
	Reminders   *reminders.Scheduler
	Push        *reminders.WebPushNotifier
	Logger      *logger.Logger
	Now         func() time.Time
}

// Server is the HTTP server for the local API.
type Server struct {
	router   chi.Router
	server   *http.Server
	handlers *Handlers
	log      *logger.Logger
}

// NewServer creates a new server.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Coordinator == nil {
		return nil, errors.New("web: coordinator is required")
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	s := &Server{
		router:   chi.NewRouter(),
		handlers: NewHandlers(cfg),
		log:      cfg.Logger,
	}
	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.log))
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
}

func (s *Server) setupRoutes() {
	h := s.handlers

	s.router.Get("/healthz", h.Health)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/questionnaire", h.Questionnaire)

		r.Get("/profile", h.GetProfile)
		r.Put("/profile", h.PutProfile)

		r.Get("/entries", h.ListEntries)
		r.Get("/entries/{date}", h.GetEntry)
		r.Put("/entries/{date}", h.CheckIn)

		r.Get("/medications", h.GetMedications)
		r.Put("/medications", h.PutMedications)
		r.Get("/reminders", h.ListReminders)

		r.Get("/safety-plan", h.GetSafetyPlan)
		r.Put("/safety-plan", h.PutSafetyPlan)

		r.Get("/insights", h.Insights)
		r.Post("/sync", h.Sync)
		r.Delete("/data", h.DeleteData)

		r.Route("/auth", func(r chi.Router) {
			r.Get("/session", h.Session)
			r.Post("/login", h.Login)
			r.Post("/signup", h.SignUp)
			r.Post("/logout", h.Logout)
		})

		r.Route("/push", func(r chi.Router) {
			r.Get("/key", h.PushKey)
			r.Post("/subscriptions", h.Subscribe)
			r.Delete("/subscriptions", h.Unsubscribe)
		})
	})
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("starting server", "addr", "http://"+s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.log.Info("shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	s.log.Info("server stopped")
	return nil
}

// requestLogger logs one line per request through the structured logger.
func requestLogger(l *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			l.Debug("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start).String(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
