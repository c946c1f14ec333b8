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

const relationColumns = `id, creation, type, content_type, relation_id, url, asin, meta, expires,
	position, thumbnail_id, thumbnail_uri, external_thumbnail_url, title, description,
	nofollow, link_text, created, modified`

// relationRepo is the concrete implementation of RelationRepository
type relationRepo struct {
	db *database.DB
}

// NewRelationRepo creates a new relation repository
func NewRelationRepo(db *database.DB) RelationRepository {
	return &relationRepo{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRelation(row rowScanner) (*models.Relation, error) {
	var rel models.Relation
	var relationID, position, thumbnailID sql.NullInt64
	var asin sql.NullString
	var meta []byte
	var expires sql.NullTime

	err := row.Scan(
		&rel.ID, &rel.CreationID, &rel.Type, &rel.ContentType, &relationID, &rel.URL, &asin,
		&meta, &expires, &position, &thumbnailID, &rel.ThumbnailURI, &rel.ExternalThumbnailURL,
		&rel.Title, &rel.Description, &rel.Nofollow, &rel.LinkText, &rel.CreatedAt, &rel.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rel.RelationID = int64Ptr(relationID)
	rel.Position = intPtr(position)
	rel.ThumbnailID = int64Ptr(thumbnailID)
	rel.ASIN = stringPtr(asin)
	rel.Expires = timePtr(expires)
	if len(meta) > 0 {
		rel.Meta = meta
	}
	return &rel, nil
}

// GetByID retrieves a relation by ID
func (r *relationRepo) GetByID(ctx context.Context, id int64) (*models.Relation, error) {
	query := `SELECT ` + relationColumns + ` FROM relations WHERE id = $1`

	rel, err := scanRelation(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rel, nil
}

// ListByCreation retrieves a creation's relations of relType in insertion order
func (r *relationRepo) ListByCreation(ctx context.Context, creationID int64, relType string) ([]*models.Relation, error) {
	return listRelations(ctx, r.db, creationID, relType)
}

func listRelations(ctx context.Context, q database.Querier, creationID int64, relType string) ([]*models.Relation, error) {
	query := `SELECT ` + relationColumns + ` FROM relations WHERE creation = $1 AND type = $2 ORDER BY id`
	rows, err := q.QueryContext(ctx, query, creationID, relType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var relations []*models.Relation
	for rows.Next() {
		rel, err := scanRelation(rows)
		if err != nil {
			return nil, err
		}
		relations = append(relations, rel)
	}
	return relations, rows.Err()
}

// Replace swaps the creation's relations for rows inside one transaction,
// bulk loading the new set with COPY
func (r *relationRepo) Replace(ctx context.Context, creationID int64, relType string, rows []*models.Relation) ([]*models.Relation, error) {
	var stored []*models.Relation

	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM relations WHERE creation = $1 AND type = $2`, creationID, relType,
		); err != nil {
			return fmt.Errorf("delete relations: %w", err)
		}

		if len(rows) > 0 {
			stmt, err := tx.PrepareContext(ctx, pq.CopyIn("relations",
				"creation", "type", "content_type", "relation_id", "url", "asin", "meta", "expires",
				"position", "thumbnail_id", "thumbnail_uri", "external_thumbnail_url", "title",
				"description", "nofollow", "link_text", "created", "modified",
			))
			if err != nil {
				return err
			}
			defer stmt.Close()

			now := time.Now().UTC()
			for _, rel := range rows {
				_, err := stmt.ExecContext(ctx,
					creationID, relType, string(rel.ContentType), nullInt64Ptr(rel.RelationID), rel.URL,
					nullStringPtr(rel.ASIN), nullJSON(rel.Meta), nullTimePtr(rel.Expires),
					nullIntPtr(rel.Position), nullInt64Ptr(rel.ThumbnailID), rel.ThumbnailURI,
					rel.ExternalThumbnailURL, rel.Title, rel.Description, rel.Nofollow, rel.LinkText,
					now, now,
				)
				if err != nil {
					return fmt.Errorf("copy relation: %w", err)
				}
			}

			// Flush the COPY buffer
			if _, err := stmt.ExecContext(ctx); err != nil {
				return fmt.Errorf("flush relations: %w", err)
			}
		}

		var err error
		stored, err = listRelations(ctx, tx, creationID, relType)
		return err
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// DeleteByCreation removes every relation of relType from a creation
func (r *relationRepo) DeleteByCreation(ctx context.Context, creationID int64, relType string) (int, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM relations WHERE creation = $1 AND type = $2`, creationID, relType,
	)
	if err != nil {
		return 0, err
	}
	n, _ := result.RowsAffected()
	return int(n), nil
}

// DeleteByIDs removes relations by primary key
func (r *relationRepo) DeleteByIDs(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.db.ExecContext(ctx, `DELETE FROM relations WHERE id = ANY($1)`, pq.Array(ids))
	return err
}

// FindExpiring selects external Amazon relations due for a refresh
func (r *relationRepo) FindExpiring(ctx context.Context, before time.Time, limit int) ([]int64, error) {
	query := `
		SELECT id FROM relations
		WHERE asin IS NOT NULL
			AND expires IS NOT NULL
			AND expires < $1
			AND content_type = 'external'
		ORDER BY expires ASC
		LIMIT $2
	`
	return queryIDs(ctx, r.db, query, before, limit)
}

// UpdateScrape writes refreshed scrape metadata
func (r *relationRepo) UpdateScrape(ctx context.Context, id int64, update ScrapeUpdate) error {
	query := `
		UPDATE relations SET
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

func queryIDs(ctx context.Context, q database.Querier, query string, args ...any) ([]int64, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
