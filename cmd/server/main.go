// Package main provides the entry point for the proxy server.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/magnusfroste/domainproxy/internal/api"
	"github.com/magnusfroste/domainproxy/internal/auth"
	"github.com/magnusfroste/domainproxy/internal/events"
	"github.com/magnusfroste/domainproxy/internal/proxy"
	"github.com/magnusfroste/domainproxy/internal/resolver"
	"github.com/magnusfroste/domainproxy/internal/shutdown"
	pgstore "github.com/magnusfroste/domainproxy/internal/store/postgres"
	"github.com/magnusfroste/domainproxy/internal/terminator"
	"github.com/magnusfroste/domainproxy/pkg/config"
	"github.com/magnusfroste/domainproxy/pkg/logger"
)

func main() {
	log := logger.New(slog.LevelInfo, true)

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Error("failed to load configuration")
		os.Exit(1)
	}

	// Registry store
	storeCfg := pgstore.DefaultConfig(cfg.DatabaseDSN)
	store, err := pgstore.NewPostgresStore(storeCfg, log.WithComponent("store").Logger)
	if err != nil {
		log.WithError(err).Error("failed to connect to registry database")
		os.Exit(1)
	}

	// Routing pipeline
	broker := events.NewBroker(log.WithComponent("events").Logger)
	res := resolver.New(store.Mappings(), cfg.ReservedLabels, log.WithComponent("resolver").Logger)
	fwd := proxy.NewReverseForwarder(proxy.ParseHostPolicy(cfg.HostPolicy), log.WithComponent("proxy").Logger)
	term := terminator.NewClient(cfg.TerminatorURL, log.WithComponent("terminator").Logger)

	// Auth
	authService := auth.NewService(&auth.Config{
		JWTSecret:         []byte(cfg.JWTSecret),
		AdminPasswordHash: cfg.AdminPasswordHash,
		TokenExpiry:       cfg.JWTExpiry,
	}, store.Owners(), log.WithComponent("auth").Logger)

	server := api.NewServer(cfg, store, authService, res, fwd, broker, term, log.WithComponent("api").Logger)

	// Graceful shutdown: server first, registry connection last.
	coordinator := shutdown.NewCoordinator(
		shutdown.WithTimeout(cfg.ShutdownTimeout),
		shutdown.WithLogger(log.WithComponent("shutdown").Logger),
	)
	coordinator.Register(shutdown.NewCloserComponent("store", store))
	coordinator.Register(shutdown.NewHTTPServerComponent("server", server.HTTPServer()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		coordinator.WaitForSignal()
		cancel()
	}()

	log.Info("starting proxy server",
		"host", cfg.ListenHost,
		"port", cfg.ListenPort,
		"host_policy", cfg.HostPolicy,
	)

	if err := server.Start(ctx); err != nil {
		log.WithError(err).Error("server error")
		os.Exit(1)
	}

	coordinator.Wait()
	log.Info("server stopped")
	os.Exit(coordinator.ExitCode())
}
