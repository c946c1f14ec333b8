package repository

import (
	"context"
	"strings"

	"github.com/creations-api/internal/database"
	"github.com/creations-api/internal/models"
)

// contentRepo is the concrete implementation of ContentRepository
type contentRepo struct {
	db *database.DB
}

// NewContentRepo creates a new content repository
func NewContentRepo(db *database.DB) ContentRepository {
	return &contentRepo{db: db}
}

// likePattern escapes LIKE wildcards in a user query
func likePattern(query string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(query) + "%"
}

// SearchPosts finds published posts whose title contains query
func (r *contentRepo) SearchPosts(ctx context.Context, query string, limit int) ([]*models.Post, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, url, status FROM posts
		WHERE status = 'publish' AND title ILIKE $1
		ORDER BY title
		LIMIT $2
	`, likePattern(query), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []*models.Post
	for rows.Next() {
		var p models.Post
		if err := rows.Scan(&p.ID, &p.Title, &p.URL, &p.Status); err != nil {
			return nil, err
		}
		posts = append(posts, &p)
	}
	return posts, rows.Err()
}

// SearchCreations finds cards whose title contains query
func (r *contentRepo) SearchCreations(ctx context.Context, query string, limit int) ([]*models.Creation, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, type, title, published, created, modified FROM creations
		WHERE title ILIKE $1
		ORDER BY title
		LIMIT $2
	`, likePattern(query), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var creations []*models.Creation
	for rows.Next() {
		var c models.Creation
		if err := rows.Scan(&c.ID, &c.Type, &c.Title, &c.Published, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		creations = append(creations, &c)
	}
	return creations, rows.Err()
}
