package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"hogar/internal/auth"
	"hogar/internal/backend"
	"hogar/internal/config"
	"hogar/internal/household"
	apphttp "hogar/internal/http"
	"hogar/internal/log"
	"hogar/internal/metrics"
	"hogar/internal/middleware/ratelimit"
	"hogar/internal/services"
	"hogar/internal/visibility"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.Config{
		Level:     log.LevelFromEnv(),
		Component: log.ComponentApp,
	})
	log.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	b, err := backend.Build(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err)
		os.Exit(1)
	}
	defer func() {
		if err := b.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err)
		}
	}()

	m := metrics.New()

	resolver := household.NewResolver(b.Store, logger)
	reconciler := services.NewReconciler(b.Store, logger, m)

	var events household.EventPublisher
	if b.Events != nil {
		events = b.Events
	}
	lifecycle := household.NewLifecycle(b.Store, resolver, reconciler, events, logger)
	engine := visibility.NewEngine(b.Store, resolver, logger)
	expenses := services.NewExpenseService(b.Store, resolver, logger)

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)
	authSvc := auth.NewService(b.Store, jwtManager, logger)

	limiter := ratelimit.NewLimiter(ratelimit.DefaultConfig())
	defer limiter.Shutdown()

	handler := apphttp.NewHandler(authSvc, expenses, engine, resolver, lifecycle, b.Store, logger)
	srv := apphttp.NewServer(":"+cfg.Port, handler.Router(m, limiter))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting hogar server", "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
