package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"essence-store/internal/auth"
	"essence-store/internal/config"
	"essence-store/internal/coupon"
	"essence-store/internal/database"
	"essence-store/internal/handler"
	"essence-store/internal/realtime"
	"essence-store/internal/repository"
	"essence-store/internal/router"
	"essence-store/internal/service"
	"essence-store/internal/storage"

	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Logger)
	logger.Info().Msg("starting essence-store API server")

	// Create context for application lifecycle
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	if cfg.Database.Migrate {
		if err := database.Migrate(ctx, pool, cfg.Realtime.Channel, logger); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	// Initialize avatar storage
	store, uploadsDir, err := newObjectStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(pool, logger)
	profileRepo := repository.NewProfileRepository(pool, logger)
	productRepo := repository.NewProductRepository(pool, logger)
	cartRepo := repository.NewCartRepository(pool, logger)
	likeRepo := repository.NewLikeRepository(pool, logger)
	orderRepo := repository.NewOrderRepository(pool, logger)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	validator := coupon.NewValidator(coupon.DefaultSet(), logger)

	// Initialize services
	authService := service.NewAuthService(userRepo, profileRepo, tokens, logger)
	profileService := service.NewProfileService(profileRepo, store, cfg.S3.Prefix, logger)
	productService := service.NewProductService(productRepo, logger)
	cartService := service.NewCartService(cartRepo, validator, logger)
	likeService := service.NewLikeService(likeRepo, logger)
	orderService := service.NewOrderService(orderRepo, cartRepo, validator, logger)
	adminService := service.NewAdminService(productRepo, orderRepo, logger)

	// Start the row change feed
	hub := realtime.NewHub(logger)
	listener := realtime.NewListener(pool, cfg.Realtime.Channel, hub, logger)
	listenerDone := make(chan struct{})
	go func() {
		defer close(listenerDone)
		if err := listener.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("realtime listener stopped")
		}
	}()
	// The listener holds a pooled connection; stop it before pool.Close.
	defer func() {
		cancel()
		<-listenerDone
	}()

	// Initialize HTTP handlers
	handlers := router.Handlers{
		Auth:     handler.NewAuthHandler(authService, logger),
		Profile:  handler.NewProfileHandler(profileService, logger),
		Product:  handler.NewProductHandler(productService, logger),
		Cart:     handler.NewCartHandler(cartService, logger),
		Like:     handler.NewLikeHandler(likeService, logger),
		Order:    handler.NewOrderHandler(orderService, logger),
		Admin:    handler.NewAdminHandler(adminService, logger),
		Realtime: handler.NewRealtimeHandler(hub, cfg.Server.AllowedOrigin, logger),
	}

	// Initialize router
	mux := router.New(handlers, tokens, profileService, router.Options{
		AllowedOrigin: cfg.Server.AllowedOrigin,
		RatePerMinute: cfg.RateLimit.PerMinute,
		RateBurst:     cfg.RateLimit.Burst,
		UploadsDir:    uploadsDir,
	}, logger)

	// Create HTTP server. WriteTimeout is left unset so websocket streams
	// are not cut off; handlers bound their own writes.
	server := &http.Server{
		Addr:              cfg.Server.Address(),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Channel to listen for errors from the server
	serverErrors := make(chan error, 1)

	// Start HTTP server in a goroutine
	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	// Channel to listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or an error
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		// Create a context with timeout for shutdown
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		// Attempt graceful shutdown
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			// Force close
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		logger.Info().Msg("server shutdown completed")
	}

	return nil
}

// newObjectStore picks S3 when enabled and the local directory otherwise.
// The returned directory is non-empty only for local storage, which the
// API serves itself.
func newObjectStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (storage.ObjectStore, string, error) {
	if cfg.S3.Enabled {
		store, err := storage.NewS3Store(ctx, cfg.S3, logger)
		if err != nil {
			return nil, "", err
		}
		return store, "", nil
	}

	logger.Info().Str("dir", cfg.Local.Dir).Msg("using local file system for uploads (S3 disabled)")
	store, err := storage.NewLocalStore(cfg.Local.Dir, cfg.Local.BaseURL, logger)
	if err != nil {
		return nil, "", err
	}
	return store, cfg.Local.Dir, nil
}
