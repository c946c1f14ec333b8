package kvstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Postgres implements Store on the options table.
// Expired rows read as absent and are removed on the next read.
type Postgres struct {
	db     *sql.DB
	prefix string
	now    func() time.Time
}

// NewPostgres creates a Store backed by the options table
func NewPostgres(db *sql.DB, prefix string) *Postgres {
	return &Postgres{db: db, prefix: prefix, now: time.Now}
}

// Get returns the value stored under key
func (p *Postgres) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	var expiresAt sql.NullTime

	err := p.db.QueryRowContext(ctx,
		`SELECT value, expires_at FROM options WHERE name = $1`, p.prefix+key,
	).Scan(&value, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("options get error: %w", err)
	}

	if expiresAt.Valid && !p.now().Before(expiresAt.Time) {
		if _, err := p.db.ExecContext(ctx,
			`DELETE FROM options WHERE name = $1 AND expires_at <= $2`, p.prefix+key, p.now(),
		); err != nil {
			return "", false, fmt.Errorf("options purge error: %w", err)
		}
		return "", false, nil
	}
	return value, true, nil
}

// Set upserts value under key
func (p *Postgres) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	var expiresAt sql.NullTime
	if ttl > 0 {
		expiresAt = sql.NullTime{Time: p.now().Add(ttl), Valid: true}
	}

	query := `
		INSERT INTO options (name, value, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at
	`
	if _, err := p.db.ExecContext(ctx, query, p.prefix+key, value, expiresAt); err != nil {
		return fmt.Errorf("options set error: %w", err)
	}
	return nil
}

// Delete removes key
func (p *Postgres) Delete(ctx context.Context, key string) error {
	if _, err := p.db.ExecContext(ctx, `DELETE FROM options WHERE name = $1`, p.prefix+key); err != nil {
		return fmt.Errorf("options delete error: %w", err)
	}
	return nil
}
