// splitkit - feature flag and experiment assignment service
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

	"github.com/averline/splitkit/internal/analytics"
	"github.com/averline/splitkit/internal/api"
	"github.com/averline/splitkit/internal/config"
	"github.com/averline/splitkit/internal/experiment"
	"github.com/averline/splitkit/internal/flags"
	"github.com/averline/splitkit/internal/identity"
	"github.com/averline/splitkit/internal/middleware"
	"github.com/averline/splitkit/internal/store"
	"github.com/averline/splitkit/internal/stream"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	// Event tracking sink, consent-gated per request.
	var baseSink analytics.Sink = analytics.NopSink{}
	var httpSink *analytics.HTTPSink
	if cfg.Analytics.Endpoint != "" {
		httpSink = analytics.NewHTTPSink(analytics.HTTPSinkConfig{
			Endpoint:  cfg.Analytics.Endpoint,
			APIKey:    cfg.Analytics.APIKey,
			QueueSize: cfg.Analytics.QueueSize,
			Logger:    logger,
		})
		baseSink = httpSink
		slog.Info("Analytics sink enabled", "endpoint", cfg.Analytics.Endpoint)
	} else {
		slog.Info("Analytics sink disabled (ANALYTICS_ENDPOINT not set)")
	}
	sink := analytics.WithConsent(baseSink, identity.ConsentFromContext)

	// Flag engine with flag-stream fan-out.
	engine := flags.New(flags.Config{
		Endpoint:        cfg.Flags.Endpoint,
		Defaults:        cfg.Flags.Defaults,
		RefreshInterval: cfg.Flags.RefreshInterval,
		Debug:           cfg.Flags.Debug,
		Logger:          logger,
	})
	streamMgr := stream.NewManager()
	engine.OnUpdate(streamMgr.Broadcast)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine.Init(ctx)
	defer engine.Stop()
	slog.Info("Flag engine initialized",
		"endpoint", cfg.Flags.Endpoint,
		"defaults", len(cfg.Flags.Defaults),
		"refresh_interval", cfg.Flags.RefreshInterval)

	expSvc := experiment.NewService(repo, sink, logger)

	// Initialize handlers.
	apiHandler := api.NewHandler(engine, expSvc)
	wsHandler := stream.NewHandler(streamMgr, engine, cfg.FrontendURL, cfg.IsDevelopment())

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS([]string{"*"}))
	r.Use(identity.Middleware(cfg.IsDevelopment()))

	apiHandler.RegisterRoutes(r)

	// WebSocket flag stream.
	r.Get("/ws/flags", wsHandler.ServeHTTP)

	// Create server.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start assignment cleanup worker.
	store.StartCleanupWorker(ctx, repo, cfg.AssignmentTTL)

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
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
		os.Exit(1)
	}

	engine.Stop()
	if httpSink != nil {
		httpSink.Close()
	}

	slog.Info("Server stopped successfully")
}
