// jobpt - local job-search assistant API server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ashureev/jobpt/internal/api"
	"github.com/ashureev/jobpt/internal/app"
	"github.com/ashureev/jobpt/internal/config"
	"github.com/ashureev/jobpt/internal/identity"
	"github.com/ashureev/jobpt/internal/middleware"
	"github.com/ashureev/jobpt/internal/observability"
	"github.com/ashureev/jobpt/web"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger, closeLog := config.SetupLogger(cfg.Log.File, cfg.Log.Level)
	defer func() {
		if err := closeLog(); err != nil {
			slog.Error("Failed to close log file", "error", err)
		}
	}()
	slog.SetDefault(logger)

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment(), "advisor", cfg.Advisor.BaseURL)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize dependencies.
	a, err := app.Build(ctx, cfg, logger, app.Options{RuntimeCollectors: true})
	if err != nil {
		slog.Error("Failed to initialize application", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			slog.Error("Failed to close application", "error", closeErr)
		}
	}()
	slog.Info("Store ready", "path", cfg.DBPath, "schema_version", a.Store.Version())

	// Initialize handlers.
	handler := api.NewHandler(a.Assistant, logger)
	healthHandler := api.NewHealthHandler(a.Store)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS(allowedOrigins(cfg)))
	r.Use(identity.Middleware(a.Identity))

	// Public routes.
	healthHandler.RegisterHealth(r)
	r.Handle("/metrics", observability.Handler(a.Registry))

	handler.RegisterRoutes(r)

	// Serve the prebuilt frontend (SPA catch-all) when configured.
	if cfg.UIDir != "" {
		r.Handle("/*", web.SPAHandler(cfg.UIDir))
		slog.Info("Serving UI", "dir", cfg.UIDir)
	}

	// Create server. WriteTimeout covers the slowest advisor call.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.Advisor.RequestTimeout + 15*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			stop()
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Server stopped successfully")
}

// allowedOrigins permits any origin in development and only the configured
// frontend otherwise.
func allowedOrigins(cfg *config.Config) []string {
	if cfg.IsDevelopment() {
		return []string{"*"}
	}
	return []string{cfg.FrontendURL}
}
