package service

import (
	"context"
	"fmt"

	"github.com/creations-api/internal/amazon"
	"github.com/creations-api/internal/config"
	"github.com/creations-api/internal/kvstore"
	"github.com/creations-api/internal/models"
	"github.com/creations-api/internal/queue"
	"github.com/creations-api/internal/repository"
	"github.com/rs/zerolog"
)

// Queue names persisted in the key-value store
const (
	RelationsQueueName = "amazon_relations_queue"
	ProductsQueueName  = "amazon_products_queue"
	SweepGuardKey      = "amazon_queue_sweep_guard"
)

// RelationService defines the interface for creation relation operations
type RelationService interface {
	SetRelations(ctx context.Context, creationID int64, relType string, items []models.RelationInput) (*models.RelationsResult, error)
	GetRelations(ctx context.Context, creationID int64, relType string) ([]*models.Relation, error)
	DeleteRelations(ctx context.Context, creationID int64, relType string) (int, error)
}

// ProductMapService defines the interface for creation product map operations
type ProductMapService interface {
	UpsertProductMap(ctx context.Context, creationID int64, items []models.ProductMapInput) (*models.ProductMapResult, error)
	GetProductMap(ctx context.Context, creationID int64) ([]*models.ProductMap, error)
}

// SearchService defines the interface for linkable content search
type SearchService interface {
	SearchContent(ctx context.Context, query string, limit int) ([]models.SearchResult, error)
}

// RefreshService defines the interface for the Amazon metadata refresh queues
type RefreshService interface {
	StartProcessor(ctx context.Context)
	StopProcessor()
	Sweep(ctx context.Context, force bool) (*models.SweepResult, error)
	StepRelations(ctx context.Context) (bool, error)
	StepProducts(ctx context.Context) (bool, error)
	Enqueue(ctx context.Context, target string, ids []int64, force bool) (int, error)
	Status(ctx context.Context) (*models.QueueStatus, error)
}

// Services holds all service interfaces
type Services struct {
	Relations RelationService
	Products  ProductMapService
	Search    SearchService
	Refresh   RefreshService
}

// NewServices creates all services
func NewServices(repos *repository.Repositories, store kvstore.Store, client amazon.Client, cfg *config.Config, log zerolog.Logger) (*Services, error) {
	opts := []queue.Option{
		queue.WithLockTimeout(cfg.Queue.AmazonLockTimeout),
		queue.WithAutoUnlock(true),
		queue.WithLogger(log),
	}

	relQueue, err := queue.New(store, RelationsQueueName, opts...)
	if err != nil {
		return nil, fmt.Errorf("create relations queue: %w", err)
	}
	prodQueue, err := queue.New(store, ProductsQueueName, opts...)
	if err != nil {
		return nil, fmt.Errorf("create products queue: %w", err)
	}

	meta := newMetadataResolver(client, repos.Media, log)

	return &Services{
		Relations: newRelationService(repos, meta, log),
		Products:  newProductMapService(repos, meta, log),
		Search:    newSearchService(repos.Content, log),
		Refresh:   newRefreshService(repos, store, client, relQueue, prodQueue, cfg.Queue, log),
	}, nil
}
