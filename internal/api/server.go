// Package api provides the HTTP server: the management API and the edge
// ingress that fronts it.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/magnusfroste/domainproxy/internal/api/handlers"
	"github.com/magnusfroste/domainproxy/internal/api/health"
	"github.com/magnusfroste/domainproxy/internal/api/middleware"
	"github.com/magnusfroste/domainproxy/internal/auth"
	"github.com/magnusfroste/domainproxy/internal/edge"
	"github.com/magnusfroste/domainproxy/internal/events"
	"github.com/magnusfroste/domainproxy/internal/proxy"
	"github.com/magnusfroste/domainproxy/internal/resolver"
	"github.com/magnusfroste/domainproxy/internal/store"
	"github.com/magnusfroste/domainproxy/internal/terminator"
	"github.com/magnusfroste/domainproxy/pkg/config"
)

// Version is the current version of the server.
// This should be set at build time using ldflags.
var Version = "dev"

// Server serves all HTTP traffic on one listener. The edge handler
// classifies each request by host: control-plane hosts reach the
// management router built here, registered tenant hosts are forwarded,
// the rest get the fallback page.
type Server struct {
	router        chi.Router
	edge          *edge.Handler
	httpServer    *http.Server
	store         store.Store
	auth          *auth.Service
	resolver      *resolver.Resolver
	forwarder     proxy.Forwarder
	events        *events.Broker
	terminator    *terminator.Client
	config        *config.Config
	logger        *slog.Logger
	healthChecker *health.Checker
}

// Pinger is implemented by stores that can report connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewServer creates the server with the given dependencies.
func NewServer(cfg *config.Config, st store.Store, authSvc *auth.Service, res *resolver.Resolver, fwd proxy.Forwarder, broker *events.Broker, term *terminator.Client, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		store:      st,
		auth:       authSvc,
		resolver:   res,
		forwarder:  fwd,
		events:     broker,
		terminator: term,
		config:     cfg,
		logger:     logger,
	}

	if pinger, ok := st.(Pinger); ok {
		s.healthChecker = health.NewChecker(pinger, Version)
	} else {
		s.healthChecker = health.NewChecker(nil, Version)
	}

	s.setupRouter()
	s.edge = edge.New(res, fwd, s.router, nil, broker, logger)

	// Built here rather than in Start so a shutdown signal arriving during
	// the startup window finds a server to stop.
	s.httpServer = &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.ListenHost, cfg.ListenPort),
		Handler:     s.edge,
		ReadTimeout: 15 * time.Second,
		// No write timeout: dispatched responses may stream indefinitely.
		IdleTimeout: 120 * time.Second,
	}
	return s
}

// setupRouter configures the control-plane router with middleware and routes.
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(s.logger))
	r.Use(middleware.Recovery(s.logger))
	r.Use(chimiddleware.Timeout(60 * time.Second))

	// Health check endpoint (no auth required)
	r.Get("/health", s.healthChecker.Handler())

	// Certificate authorization endpoint for the TLS terminator. No auth:
	// the terminator is inside the trust boundary and the answer leaks
	// nothing beyond mapping existence.
	askHandler := handlers.NewAskHandler(s.resolver, s.events, s.logger)
	r.Get("/ask", askHandler.Ask)

	// Admin login (no auth required)
	authHandler := handlers.NewAuthHandler(s.auth, s.logger)
	r.Post("/v1/auth/login", authHandler.Login)

	// API v1 routes
	r.Route("/v1", func(r chi.Router) {
		authMiddleware := middleware.NewAuthMiddleware(s.auth, s.config.APIKeyHeader, s.logger)

		// Owner-scoped domain and mapping management
		mappingHandler := handlers.NewMappingHandler(s.store, s.resolver, s.terminator, s.logger)
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.RequireOwner)

			r.Get("/domains", mappingHandler.ListDomains)
			r.Route("/domains/{domain}", func(r chi.Router) {
				r.Post("/mappings", mappingHandler.Create)
				r.Get("/mappings", mappingHandler.List)
				r.Delete("/mappings/{label}", mappingHandler.Delete)
			})
		})

		// Admin-only routes
		ownerHandler := handlers.NewOwnerHandler(s.store, s.logger)
		eventsHandler := handlers.NewEventsHandler(s.events, s.logger)
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.RequireAdmin)

			r.Post("/owners", ownerHandler.Create)
			r.Get("/owners", ownerHandler.List)
			r.Delete("/owners/{ownerID}", ownerHandler.Delete)

			r.Get("/events/ws", eventsHandler.Stream)
		})
	})

	s.router = r
}

// Start starts the HTTP server.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("starting server", "addr", s.httpServer.Addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok && err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		// Closed channel: the listener stopped via Shutdown.
		return nil
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

// HTTPServer returns the underlying http.Server for shutdown coordination.
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// Router returns the control-plane router for testing purposes.
func (s *Server) Router() chi.Router {
	return s.router
}

// Edge returns the top-level handler for testing purposes.
func (s *Server) Edge() http.Handler {
	return s.edge
}
