package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/creations-api/internal/amazon"
	"github.com/creations-api/internal/api"
	"github.com/creations-api/internal/config"
	"github.com/creations-api/internal/database"
	"github.com/creations-api/internal/kvstore"
	"github.com/creations-api/internal/repository"
	"github.com/creations-api/internal/service"
	"github.com/creations-api/pkg/logger"
)

func main() {
	// Initialize logger
	log := logger.New()
	log.Info().Msg("Starting creations API server...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize database
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	// Run migrations
	migrationsPath := os.Getenv("MIGRATIONS_PATH")
	if migrationsPath == "" {
		migrationsPath = "./migrations"
	}
	if err := db.RunMigrations(migrationsPath); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Initialize repositories
	repos := repository.New(db)

	// Key-value store for queue contents, locks and the sweep guard
	store, err := kvstore.Open(&cfg.Store, db.DB, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open key-value store")
	}
	if closer, ok := store.(io.Closer); ok {
		defer closer.Close()
	}

	client := amazon.NewHTTPClient(cfg.Amazon, log)
	if !client.IsConfigured() {
		log.Warn().Msg("Amazon affiliate credentials missing; product scraping disabled")
	}

	// Initialize services
	services, err := service.NewServices(repos, store, client, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}

	// Start background refresh processor
	services.Refresh.StartProcessor(context.Background())
	log.Info().Msg("Background refresh processor started")

	// Initialize router
	router := api.NewRouter(services, cfg, db, log)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.ReadTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Stop refresh processor
	services.Refresh.StopProcessor()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited gracefully")
}
