// Package server sets up the HTTP server, router, and all route definitions.
//
// This is the composition root: every dependency — database, token service,
// hub, services, handlers — is constructed and wired here, in one place.
// main.go only supplies configuration and calls Start.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/contact-manager/internal/auth"
	"github.com/sakif/contact-manager/internal/handler"
	"github.com/sakif/contact-manager/internal/middleware"
	"github.com/sakif/contact-manager/internal/realtime"
	sqliteRepo "github.com/sakif/contact-manager/internal/repository/sqlite"
	"github.com/sakif/contact-manager/internal/service"
)

// Config holds server configuration, loaded from the environment in main.
type Config struct {
	Port           int
	DBPath         string
	SessionSecret  string // signs session tokens
	RealtimeSecret string // signs realtime tokens — MUST differ from SessionSecret
	SessionTTL     time.Duration
	RealtimeTTL    time.Duration
}

// Server owns the router and the resources that need cleanup on shutdown.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
	hub    *realtime.Hub
}

// New assembles the full dependency chain:
//
//	sqlite.DB → repositories
//	TokenService (two secrets) → middleware + hub + auth service
//	Hub → notifier for the contact service
//	services → handlers → routes
//
// The contact service gets the Hub as its Notifier — that single edge is
// what ties a committed mutation to the live sessions of its owner.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	tokens, err := auth.NewTokenService(cfg.SessionSecret, cfg.RealtimeSecret, cfg.SessionTTL, cfg.RealtimeTTL)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating token service: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
		hub:    realtime.NewHub(tokens, logger),
	}

	s.setupRoutes(tokens)

	return s, nil
}

// setupRoutes configures middleware and routes.
//
// ROUTE STRUCTURE:
//
//	POST /api/auth/register        → create account + session cookie
//	POST /api/auth/login           → session cookie
//	POST /api/auth/logout          → clear cookie
//	GET  /api/auth/me              → profile            [auth]
//	POST /api/auth/realtime-token  → realtime cookie    [auth]
//	GET  /api/contacts             → list               [auth]
//	POST /api/contacts             → create             [auth]
//	GET  /api/contacts/{id}        → get                [auth]
//	PUT  /api/contacts/{id}        → update             [auth]
//	DELETE /api/contacts/{id}      → delete             [auth]
//	GET  /ws                       → realtime channel (realtime cookie)
func (s *Server) setupRoutes(tokens *auth.TokenService) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	passwords := auth.NewPasswordService()
	authService := service.NewAuthService(s.db.Users(), tokens, passwords, s.logger)
	contactService := service.NewContactService(s.db, s.hub, s.logger)

	authHandler := handler.NewAuthHandler(authService, s.config.SessionTTL, s.logger)
	contactHandler := handler.NewContactHandler(contactService, s.logger)

	requireAuth := auth.RequireAuth(tokens)

	s.router.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", authHandler.HandleRegister)
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/logout", authHandler.HandleLogout)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/me", authHandler.HandleMe)
			r.Post("/realtime-token", authHandler.HandleRealtimeToken)
		})
	})

	s.router.Route("/api/contacts", func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/", contactHandler.HandleList)
		r.Post("/", contactHandler.HandleCreate)
		r.Get("/{id}", contactHandler.HandleGet)
		r.Put("/{id}", contactHandler.HandleUpdate)
		r.Delete("/{id}", contactHandler.HandleDelete)
	})

	// The websocket endpoint authenticates itself with the realtime cookie;
	// it does NOT sit behind requireAuth (a session token is the wrong kind
	// of credential for this surface).
	s.router.Get("/ws", s.hub.HandleWS)
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully: stop accepting connections, give in-flight requests 30s, close
// the database (flushes the WAL, releases the file lock).
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:        fmt.Sprintf(":%d", s.config.Port),
		Handler:     s.router,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: it would sever long-lived websocket connections.
		// Handler write deadlines are managed per-frame in the realtime
		// package instead.
		IdleTimeout: 60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
