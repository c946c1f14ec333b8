package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/creations-api/internal/database"
	"github.com/creations-api/internal/models"
)

const productColumns = `id, asin, link, title, thumbnail_id, remote_thumbnail_uri,
	external_thumbnail_url, meta, expires, created, modified`

// productRepo is the concrete implementation of ProductRepository
type productRepo struct {
	db *database.DB
}

// NewProductRepo creates a new product repository
func NewProductRepo(db *database.DB) ProductRepository {
	return &productRepo{db: db}
}

func scanProduct(row rowScanner) (*models.Product, error) {
	var p models.Product
	var asin sql.NullString
	var thumbnailID sql.NullInt64
	var meta []byte
	var expires sql.NullTime

	err := row.Scan(
		&p.ID, &asin, &p.Link, &p.Title, &thumbnailID, &p.RemoteThumbnailURI,
		&p.ExternalThumbnailURL, &meta, &expires, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.ASIN = stringPtr(asin)
	p.ThumbnailID = int64Ptr(thumbnailID)
	p.Expires = timePtr(expires)
	if len(meta) > 0 {
		p.Meta = meta
	}
	return &p, nil
}

func (r *productRepo) getOne(ctx context.Context, where string, arg any) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE ` + where + ` LIMIT 1`
	p, err := scanProduct(r.db.QueryRowContext(ctx, query, arg))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetByID retrieves a product by ID
func (r *productRepo) GetByID(ctx context.Context, id int64) (*models.Product, error) {
	return r.getOne(ctx, "id = $1", id)
}

// GetByASIN retrieves a product by ASIN
func (r *productRepo) GetByASIN(ctx context.Context, asin string) (*models.Product, error) {
	return r.getOne(ctx, "asin = $1", asin)
}

// GetByLink retrieves a non-Amazon product by link
func (r *productRepo) GetByLink(ctx context.Context, link string) (*models.Product, error) {
	return r.getOne(ctx, "asin IS NULL AND link = $1", link)
}

// Upsert inserts or updates a product, matching on asin or link
func (r *productRepo) Upsert(ctx context.Context, p *models.Product) (*models.Product, error) {
	conflict := `ON CONFLICT (asin) DO UPDATE SET`
	if p.ASIN == nil || *p.ASIN == "" {
		conflict = `ON CONFLICT (link) WHERE asin IS NULL AND link <> '' DO UPDATE SET`
	}

	query := `
		INSERT INTO products (asin, link, title, thumbnail_id, remote_thumbnail_uri,
			external_thumbnail_url, meta, expires, created, modified)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		` + conflict + `
			link = EXCLUDED.link,
			title = EXCLUDED.title,
			thumbnail_id = EXCLUDED.thumbnail_id,
			remote_thumbnail_uri = EXCLUDED.remote_thumbnail_uri,
			external_thumbnail_url = EXCLUDED.external_thumbnail_url,
			meta = EXCLUDED.meta,
			expires = EXCLUDED.expires,
			modified = EXCLUDED.modified
		RETURNING ` + productColumns

	now := time.Now().UTC()
	return scanProduct(r.db.QueryRowContext(ctx, query,
		nullStringPtr(p.ASIN), p.Link, p.Title, nullInt64Ptr(p.ThumbnailID), p.RemoteThumbnailURI,
		p.ExternalThumbnailURL, nullJSON(p.Meta), nullTimePtr(p.Expires), now,
	))
}

// FindExpiring selects Amazon products due for a refresh
func (r *productRepo) FindExpiring(ctx context.Context, before time.Time, limit int) ([]int64, error) {
	query := `
		SELECT id FROM products
		WHERE asin IS NOT NULL AND expires IS NOT NULL AND expires < $1
		ORDER BY expires ASC
		LIMIT $2
	`
	return queryIDs(ctx, r.db, query, before, limit)
}

// UpdateScrape writes refreshed scrape metadata
func (r *productRepo) UpdateScrape(ctx context.Context, id int64, update ScrapeUpdate) error {
	query := `
		UPDATE products SET
			asin = $1, meta = $2, expires = $3,
			external_thumbnail_url = COALESCE($4, external_thumbnail_url),
			modified = $5
		WHERE id = $6
	`
	_, err := r.db.ExecContext(ctx, query,
		nullString(update.ASIN), nullJSON(update.Meta), nullTimePtr(update.Expires),
		nullStringPtr(update.ExternalThumbnailURL), time.Now().UTC(), id,
	)
	return err
}
