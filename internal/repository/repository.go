package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/creations-api/internal/database"
	"github.com/creations-api/internal/models"
)

// RelationRepository defines the interface for relation data operations
type RelationRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Relation, error)
	ListByCreation(ctx context.Context, creationID int64, relType string) ([]*models.Relation, error)
	// Replace deletes the creation's relations of relType and inserts rows in
	// one transaction. It returns the stored rows in insertion order.
	Replace(ctx context.Context, creationID int64, relType string, rows []*models.Relation) ([]*models.Relation, error)
	DeleteByCreation(ctx context.Context, creationID int64, relType string) (int, error)
	DeleteByIDs(ctx context.Context, ids []int64) error
	// FindExpiring returns ids of external Amazon relations expiring before
	// the given time, soonest first.
	FindExpiring(ctx context.Context, before time.Time, limit int) ([]int64, error)
	UpdateScrape(ctx context.Context, id int64, update ScrapeUpdate) error
}

// ProductRepository defines the interface for shared product operations
type ProductRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Product, error)
	GetByASIN(ctx context.Context, asin string) (*models.Product, error)
	GetByLink(ctx context.Context, link string) (*models.Product, error)
	// Upsert matches on asin when set, otherwise on link
	Upsert(ctx context.Context, product *models.Product) (*models.Product, error)
	FindExpiring(ctx context.Context, before time.Time, limit int) ([]int64, error)
	UpdateScrape(ctx context.Context, id int64, update ScrapeUpdate) error
}

// ProductMapRepository defines the interface for creation-to-product links
type ProductMapRepository interface {
	ListByCreation(ctx context.Context, creationID int64) ([]*models.ProductMap, error)
	Replace(ctx context.Context, creationID int64, rows []*models.ProductMap) ([]*models.ProductMap, error)
	DeleteByIDs(ctx context.Context, ids []int64) error
}

// MediaRepository defines the interface for the local media library
type MediaRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Attachment, error)
	// ImportFromURL returns the attachment imported from sourceURL,
	// registering it on first use
	ImportFromURL(ctx context.Context, sourceURL string) (*models.Attachment, error)
}

// ContentRepository defines the interface for searching linkable content
type ContentRepository interface {
	SearchPosts(ctx context.Context, query string, limit int) ([]*models.Post, error)
	SearchCreations(ctx context.Context, query string, limit int) ([]*models.Creation, error)
}

// ScrapeUpdate carries the columns written after a successful re-scrape
type ScrapeUpdate struct {
	ASIN                 string
	Meta                 json.RawMessage
	Expires              *time.Time
	ExternalThumbnailURL *string // nil leaves the column untouched
}

// Repositories holds all repository interfaces
type Repositories struct {
	Relation   RelationRepository
	Product    ProductRepository
	ProductMap ProductMapRepository
	Media      MediaRepository
	Content    ContentRepository
}

// New creates all repositories with the given database connection
func New(db *database.DB) *Repositories {
	return &Repositories{
		Relation:   NewRelationRepo(db),
		Product:    NewProductRepo(db),
		ProductMap: NewProductMapRepo(db),
		Media:      NewMediaRepo(db),
		Content:    NewContentRepo(db),
	}
}
