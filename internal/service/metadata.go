package service

import (
	"context"
	"fmt"
	"slices"

	"github.com/creations-api/internal/amazon"
	"github.com/creations-api/internal/models"
	"github.com/creations-api/internal/repository"
	"github.com/rs/zerolog"
)

// metadataResolver wraps the scraper and the media library for the
// relation and product normalization passes
type metadataResolver struct {
	client amazon.Client
	media  repository.MediaRepository
	log    zerolog.Logger
}

func newMetadataResolver(client amazon.Client, media repository.MediaRepository, log zerolog.Logger) *metadataResolver {
	return &metadataResolver{
		client: client,
		media:  media,
		log:    log.With().Str("component", "metadata").Logger(),
	}
}

// asinFor returns the ASIN of link, or "" when the link is not an Amazon
// product or affiliate credentials are missing
func (m *metadataResolver) asinFor(link string) string {
	if m.client == nil || !m.client.IsConfigured() {
		return ""
	}
	return amazon.GetASINFromLink(link)
}

// scrape fetches fresh metadata for one ASIN
func (m *metadataResolver) scrape(ctx context.Context, asin string) (*models.ScrapedProduct, error) {
	products, err := m.client.GetProductsByASIN(ctx, asin)
	if err != nil {
		return nil, err
	}
	p, ok := products[asin]
	if !ok {
		return nil, amazon.ErrNoProducts
	}
	return &p, nil
}

// attachmentURL returns the URL of a local attachment, "" when it is missing
func (m *metadataResolver) attachmentURL(ctx context.Context, id int64) (string, error) {
	a, err := m.media.GetByID(ctx, id)
	if err != nil {
		return "", fmt.Errorf("load attachment %d: %w", id, err)
	}
	if a == nil {
		return "", nil
	}
	return a.URL, nil
}

// importThumbnail resolves a remote image URL to a local attachment id
func (m *metadataResolver) importThumbnail(ctx context.Context, uri string) (*int64, error) {
	a, err := m.media.ImportFromURL(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("import thumbnail: %w", err)
	}
	id := a.ID
	return &id, nil
}

// sortByPosition orders items by ascending position. A nil position on
// either side compares equal, so those items keep their relative order.
func sortByPosition[T any](items []T, position func(T) *int) {
	slices.SortStableFunc(items, func(a, b T) int {
		pa, pb := position(a), position(b)
		if pa == nil || pb == nil {
			return 0
		}
		return *pa - *pb
	})
}
