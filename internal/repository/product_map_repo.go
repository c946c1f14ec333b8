package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/creations-api/internal/database"
	"github.com/creations-api/internal/models"
	"github.com/lib/pq"
)

// productMapRepo is the concrete implementation of ProductMapRepository
type productMapRepo struct {
	db *database.DB
}

// NewProductMapRepo creates a new product map repository
func NewProductMapRepo(db *database.DB) ProductMapRepository {
	return &productMapRepo{db: db}
}

// ListByCreation retrieves a creation's product map joined with its products
func (r *productMapRepo) ListByCreation(ctx context.Context, creationID int64) ([]*models.ProductMap, error) {
	return listProductMap(ctx, r.db, creationID)
}

func listProductMap(ctx context.Context, q database.Querier, creationID int64) ([]*models.ProductMap, error) {
	query := `
		SELECT m.id, m.creation, m.product_id, m.title, m.link, m.thumbnail_id, m.position, m.created,
			p.id, p.asin, p.link, p.title, p.thumbnail_id, p.remote_thumbnail_uri,
			p.external_thumbnail_url, p.meta, p.expires, p.created, p.modified
		FROM products_map m
		JOIN products p ON p.id = m.product_id
		WHERE m.creation = $1
		ORDER BY m.id
	`
	rows, err := q.QueryContext(ctx, query, creationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*models.ProductMap
	for rows.Next() {
		var m models.ProductMap
		var p models.Product
		var mapThumb, position, prodThumb sql.NullInt64
		var asin sql.NullString
		var meta []byte
		var expires sql.NullTime

		err := rows.Scan(
			&m.ID, &m.CreationID, &m.ProductID, &m.Title, &m.Link, &mapThumb, &position, &m.CreatedAt,
			&p.ID, &asin, &p.Link, &p.Title, &prodThumb, &p.RemoteThumbnailURI,
			&p.ExternalThumbnailURL, &meta, &expires, &p.CreatedAt, &p.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}

		m.ThumbnailID = int64Ptr(mapThumb)
		m.Position = intPtr(position)
		p.ASIN = stringPtr(asin)
		p.ThumbnailID = int64Ptr(prodThumb)
		p.Expires = timePtr(expires)
		if len(meta) > 0 {
			p.Meta = meta
		}
		m.Product = &p
		items = append(items, &m)
	}
	return items, rows.Err()
}

// Replace swaps the creation's product map for rows inside one transaction
func (r *productMapRepo) Replace(ctx context.Context, creationID int64, rows []*models.ProductMap) ([]*models.ProductMap, error) {
	var stored []*models.ProductMap

	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM products_map WHERE creation = $1`, creationID); err != nil {
			return fmt.Errorf("delete product map: %w", err)
		}

		if len(rows) > 0 {
			stmt, err := tx.PrepareContext(ctx, pq.CopyIn("products_map",
				"creation", "product_id", "title", "link", "thumbnail_id", "position", "created",
			))
			if err != nil {
				return err
			}
			defer stmt.Close()

			now := time.Now().UTC()
			for _, m := range rows {
				if _, err := stmt.ExecContext(ctx,
					creationID, m.ProductID, m.Title, m.Link, nullInt64Ptr(m.ThumbnailID),
					nullIntPtr(m.Position), now,
				); err != nil {
					return fmt.Errorf("copy product map: %w", err)
				}
			}

			if _, err := stmt.ExecContext(ctx); err != nil {
				return fmt.Errorf("flush product map: %w", err)
			}
		}

		var err error
		stored, err = listProductMap(ctx, tx, creationID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// DeleteByIDs removes product map rows by primary key
func (r *productMapRepo) DeleteByIDs(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.db.ExecContext(ctx, `DELETE FROM products_map WHERE id = ANY($1)`, pq.Array(ids))
	return err
}
