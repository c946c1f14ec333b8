package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/creations-api/internal/database"
	"github.com/creations-api/internal/models"
)

// mediaRepo is the concrete implementation of MediaRepository
type mediaRepo struct {
	db *database.DB
}

// NewMediaRepo creates a new media repository
func NewMediaRepo(db *database.DB) MediaRepository {
	return &mediaRepo{db: db}
}

// GetByID retrieves an attachment by ID
func (r *mediaRepo) GetByID(ctx context.Context, id int64) (*models.Attachment, error) {
	var a models.Attachment
	var source sql.NullString

	err := r.db.QueryRowContext(ctx,
		`SELECT id, url, source_url, created FROM attachments WHERE id = $1`, id,
	).Scan(&a.ID, &a.URL, &source, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	a.SourceURL = source.String
	return &a, nil
}

// ImportFromURL registers a remote image as a local attachment, reusing a
// previous import of the same URL
func (r *mediaRepo) ImportFromURL(ctx context.Context, sourceURL string) (*models.Attachment, error) {
	query := `
		INSERT INTO attachments (url, source_url, created)
		VALUES ($1, $1, $2)
		ON CONFLICT (source_url) WHERE source_url IS NOT NULL DO UPDATE SET source_url = EXCLUDED.source_url
		RETURNING id, url, source_url, created
	`
	var a models.Attachment
	var source sql.NullString
	err := r.db.QueryRowContext(ctx, query, sourceURL, time.Now().UTC()).
		Scan(&a.ID, &a.URL, &source, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	a.SourceURL = source.String
	return &a, nil
}
