// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package server wires the storage tiers, the resolution chain and the HTTP
// surface together and runs the process.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v3"

	"github.com/scanlinkhq/scanlink/internal/config"
	"github.com/scanlinkhq/scanlink/internal/database"
	"github.com/scanlinkhq/scanlink/internal/handlers"
	"github.com/scanlinkhq/scanlink/internal/notify"
	"github.com/scanlinkhq/scanlink/internal/ratelimit"
	"github.com/scanlinkhq/scanlink/internal/records"
	"github.com/scanlinkhq/scanlink/internal/resolver"
	"github.com/scanlinkhq/scanlink/internal/safety"
	"github.com/scanlinkhq/scanlink/internal/sse"
	"github.com/scanlinkhq/scanlink/internal/storage"
	"github.com/scanlinkhq/scanlink/internal/vault"
)

// Run starts the server with the given CLI command.
func Run(ctx context.Context, cmd *cli.Command) error {
	cfg := config.NewFromCLI(cmd)
	setupLogger(cfg.Log.Level, cfg.Log.Format)

	slog.Info("starting server",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"base_url", cfg.Server.BaseURL,
	)

	// Local cache database
	db, err := database.Open(cfg.Cache.DSN)
	if err != nil {
		return fmt.Errorf("failed to open cache database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("failed to close cache database", "error", closeErr)
		}
	}()

	// Cache encryption
	keyHex := cfg.Cache.Key
	if keyHex == "" {
		keyHex, err = vault.GenerateKey()
		if err != nil {
			return fmt.Errorf("failed to generate cache key: %w", err)
		}
		slog.Warn("cache.key not configured, generated an ephemeral key; cached records will be unreadable after restart")
	}
	cacheVault, err := vault.NewFromHex(keyHex)
	if err != nil {
		return fmt.Errorf("failed to create cache vault: %w", err)
	}

	// Storage tiers
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer func() {
		if closeErr := client.Close(); closeErr != nil {
			slog.Error("failed to close redis client", "error", closeErr)
		}
	}()

	remote := storage.NewRemoteStore(client, cfg.Redis.Namespace)
	local := storage.NewLocalStore(db, cacheVault)
	store := storage.New(remote, local, remote)

	// Core services
	limiter := ratelimit.New(
		ratelimit.WithLimit(cfg.Limiter.Limit),
		ratelimit.WithWindow(time.Duration(cfg.Limiter.WindowSeconds)*time.Second),
	)
	hub := sse.NewHub()
	scanResolver := resolver.New(store, safety.New(), hub)
	service := records.NewService(store, limiter, cfg.Server.BaseURL)

	// Optional scan alerts
	notifyCtx, stopNotifier := context.WithCancel(ctx)
	defer stopNotifier()
	if cfg.SMTP.Host != "" {
		notifier, notifyErr := notify.New(&cfg.SMTP)
		if notifyErr != nil {
			slog.Warn("scan alerts disabled", "error", notifyErr)
		} else {
			go notifier.Run(notifyCtx, hub)
			slog.Info("scan alerts enabled", "to", cfg.SMTP.To)
		}
	}

	// Echo
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	sc := securecookie.New(securecookie.GenerateRandomKey(32), nil)
	setupMiddleware(e, cfg, sc)

	h := handlers.New(service, store, scanResolver, hub)
	setupRoutes(e, h)

	return startWithGracefulShutdown(e, cfg)
}

func setupRoutes(e *echo.Echo, h *handlers.Handlers) {
	e.GET("/health", h.Health)

	// Resolution endpoint scanned codes point at; its shape is a wire
	// contract for already-issued links.
	e.GET(records.ResolvePath, h.Resolve)

	api := e.Group("/api")
	api.POST("/records", h.CreateRecord)
	api.GET("/records", h.ListRecords)
	api.GET("/records/:id", h.GetRecord)
	api.GET("/records/:id/qr", h.RecordQR)
	api.GET("/records/:id/events", h.Events)
}

func startWithGracefulShutdown(e *echo.Echo, cfg *config.Config) error {
	tlsMode, err := ResolveTLS(cfg)
	if err != nil {
		return fmt.Errorf("TLS setup failed: %w", err)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	errChan := make(chan error, 1)

	go func() {
		slog.Info("Server running", "url", cfg.Server.BaseURL)

		var startErr error
		if tlsMode == TLSModeManual {
			startErr = e.StartTLS(addr, cfg.TLS.CertFile, cfg.TLS.KeyFile)
		} else {
			startErr = e.Start(addr)
		}
		if startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
			errChan <- startErr
		}
	}()

	// Wait for interrupt signal or error
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		slog.Info("shutting down server")
	case err := <-errChan:
		slog.Error("server error", "error", err)
		return err
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
	}

	slog.Info("server stopped")
	return nil
}
