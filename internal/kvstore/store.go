package kvstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/creations-api/internal/config"
	"github.com/rs/zerolog"
)

// Store is a string key-value store with optional per-key expiry.
// A ttl of zero stores the value without expiry.
type Store interface {
	// Get returns the value for key. ok is false when the key is absent or expired.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Open builds the backend selected by cfg.Backend
func Open(cfg *config.StoreConfig, db *sql.DB, log zerolog.Logger) (Store, error) {
	log = log.With().Str("component", "kvstore").Str("backend", cfg.Backend).Logger()

	switch cfg.Backend {
	case "memory":
		log.Warn().Msg("Using in-memory key-value store; queue state will not survive restarts")
		return NewMemory(), nil
	case "redis":
		store, err := NewRedis(RedisOptions{URL: cfg.RedisURL, Prefix: cfg.Prefix})
		if err != nil {
			return nil, err
		}
		log.Info().Msg("Redis key-value store connected")
		return store, nil
	case "postgres":
		if db == nil {
			return nil, fmt.Errorf("postgres key-value store requires a database connection")
		}
		log.Info().Msg("Using postgres options table as key-value store")
		return NewPostgres(db, cfg.Prefix), nil
	default:
		return nil, fmt.Errorf("unknown key-value backend: %s", cfg.Backend)
	}
}
