package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/creations-api/internal/amazon"
	"github.com/creations-api/internal/config"
	"github.com/creations-api/internal/database"
	"github.com/creations-api/internal/kvstore"
	"github.com/creations-api/internal/repository"
	"github.com/creations-api/internal/service"
	"github.com/creations-api/pkg/logger"
	"github.com/rs/zerolog"
)

// schemaMigrator applies or rolls back the database schema
type schemaMigrator interface {
	RunMigrations(migrationsPath string) error
	MigrateDown(migrationsPath string) error
}

// stack is the service graph a command runs against
type stack struct {
	refresh    service.RefreshService
	migrations schemaMigrator
	close      func()
}

type stackBuilder func(ctx context.Context) (*stack, error)

type commandContext struct {
	build      stackBuilder
	jsonOutput bool
}

func newCommandContext(build stackBuilder) *commandContext {
	return &commandContext{build: build}
}

func (c *commandContext) withRefresh(ctx context.Context, fn func(service.RefreshService) error) error {
	s, err := c.build(ctx)
	if err != nil {
		return err
	}
	if s.close != nil {
		defer s.close()
	}
	return fn(s.refresh)
}

func (c *commandContext) withMigrator(ctx context.Context, fn func(schemaMigrator) error) error {
	s, err := c.build(ctx)
	if err != nil {
		return err
	}
	if s.close != nil {
		defer s.close()
	}
	if s.migrations == nil {
		return fmt.Errorf("schema migrations are not available")
	}
	return fn(s.migrations)
}

// buildStack wires the same dependencies as the server, minus HTTP and the
// background processor. Logs go to stderr so command output stays clean.
func buildStack(ctx context.Context) (*stack, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	log := zerolog.New(os.Stderr).
		Level(logger.ParseLevel(cfg.Log.Level)).
		With().
		Timestamp().
		Str("service", "queuectl").
		Logger()

	db, err := database.New(&cfg.Database, log)
	if err != nil {
		return nil, err
	}

	store, err := kvstore.Open(&cfg.Store, db.DB, log)
	if err != nil {
		db.Close()
		return nil, err
	}

	services, err := service.NewServices(repository.New(db), store, amazon.NewHTTPClient(cfg.Amazon, log), cfg, log)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &stack{
		refresh:    services.Refresh,
		migrations: db,
		close: func() {
			if closer, ok := store.(io.Closer); ok {
				closer.Close()
			}
			db.Close()
		},
	}, nil
}
