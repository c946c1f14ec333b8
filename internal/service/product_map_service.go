package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/creations-api/internal/models"
	"github.com/creations-api/internal/repository"
	"github.com/creations-api/internal/validation"
	"github.com/rs/zerolog"
)

// productMapService is the concrete implementation of ProductMapService
type productMapService struct {
	repos     *repository.Repositories
	meta      *metadataResolver
	validator *validation.Validator
	log       zerolog.Logger
	now       func() time.Time
}

func newProductMapService(repos *repository.Repositories, meta *metadataResolver, log zerolog.Logger) *productMapService {
	return &productMapService{
		repos:     repos,
		meta:      meta,
		validator: validation.NewValidator(),
		log:       log.With().Str("service", "products").Logger(),
		now:       time.Now,
	}
}

// UpsertProductMap replaces a creation's recommended products with items.
// Each item is resolved to a shared product row, scraping Amazon metadata
// only when the shared row has none or it has expired.
func (s *productMapService) UpsertProductMap(ctx context.Context, creationID int64, items []models.ProductMapInput) (*models.ProductMapResult, error) {
	result := &models.ProductMapResult{Items: []*models.ProductMap{}, Errors: []models.ItemError{}}

	rows := make([]*models.ProductMap, 0, len(items))
	for _, item := range items {
		if errs := s.validator.ValidateProduct(&item); len(errs) > 0 {
			result.Errors = append(result.Errors, validation.ToItemErrors(item.Index, errs)...)
			continue
		}

		row, itemErrs, err := s.resolveItem(ctx, &item)
		if err != nil {
			return nil, err
		}
		result.Errors = append(result.Errors, itemErrs...)
		if row != nil {
			rows = append(rows, row)
		}
	}

	stored, err := s.repos.ProductMap.Replace(ctx, creationID, rows)
	if err != nil {
		return nil, fmt.Errorf("replace product map: %w", err)
	}

	kept, duplicates := dedupeProductMap(stored)
	if len(duplicates) > 0 {
		if err := s.repos.ProductMap.DeleteByIDs(ctx, duplicates); err != nil {
			return nil, fmt.Errorf("delete duplicate products: %w", err)
		}
	}

	sortByPosition(kept, func(p *models.ProductMap) *int { return p.Position })
	result.Items = kept

	s.log.Info().
		Int64("creation", creationID).
		Int("saved", len(kept)).
		Int("duplicates", len(duplicates)).
		Int("errors", len(result.Errors)).
		Msg("Product map saved")

	return result, nil
}

// resolveItem turns one input into a map row backed by an upserted product.
// Scrape and thumbnail failures come back as item errors; the returned
// error is reserved for storage failures.
func (s *productMapService) resolveItem(ctx context.Context, item *models.ProductMapInput) (*models.ProductMap, []models.ItemError, error) {
	var itemErrs []models.ItemError

	product, err := s.lookupProduct(ctx, item)
	if err != nil {
		return nil, nil, err
	}
	if product == nil {
		product = &models.Product{}
	}

	link := strings.TrimSpace(item.Link)
	if s.relinked(product, link) {
		// the shared row stays with its ASIN; the new link gets its own row
		product = &models.Product{}
	}
	if link != "" {
		product.Link = link
	}
	if item.Title != "" {
		product.Title = item.Title
	}
	if uri := strings.TrimSpace(item.RemoteThumbnailURI); uri != "" {
		product.RemoteThumbnailURI = uri
	}
	if id := item.ThumbnailID.Ptr(); id != nil {
		product.ThumbnailID = id
	}

	if asin := s.meta.asinFor(product.Link); asin != "" {
		if !s.fresh(product, asin) {
			scraped, err := s.meta.scrape(ctx, asin)
			if err != nil {
				s.log.Warn().Err(err).Str("asin", asin).Msg("Amazon scrape failed")
				itemErrs = append(itemErrs, models.ItemError{
					Index:   item.Index,
					Field:   "link",
					Message: fmt.Sprintf("unable to retrieve Amazon product data: %v", err),
					Value:   product.Link,
				})
			} else {
				expires := scraped.Expires
				product.ASIN = &asin
				product.Meta = scraped.Meta()
				product.Expires = &expires
				product.ExternalThumbnailURL = scraped.ExternalThumbnailURL
				if product.Title == "" {
					product.Title = scraped.Title
				}
			}
		}
	}

	if err := s.resolveThumbnail(ctx, product); err != nil {
		s.log.Warn().Err(err).Str("link", product.Link).Msg("Thumbnail resolution failed")
		itemErrs = append(itemErrs, models.ItemError{Index: item.Index, Field: "thumbnail_id", Message: err.Error()})
	}

	saved, err := s.repos.Product.Upsert(ctx, product)
	if err != nil {
		return nil, nil, fmt.Errorf("upsert product: %w", err)
	}

	row := &models.ProductMap{
		ProductID:   saved.ID,
		Title:       item.Title,
		Link:        saved.Link,
		ThumbnailID: saved.ThumbnailID,
		Position:    item.Position,
	}
	if row.Title == "" {
		row.Title = saved.Title
	}
	return row, itemErrs, nil
}

// lookupProduct finds the shared row an item refers to, by explicit id,
// then by the ASIN of its link, then by the link itself
func (s *productMapService) lookupProduct(ctx context.Context, item *models.ProductMapInput) (*models.Product, error) {
	if id := item.ProductID.Ptr(); id != nil {
		p, err := s.repos.Product.GetByID(ctx, *id)
		if err != nil {
			return nil, fmt.Errorf("load product %d: %w", *id, err)
		}
		if p != nil {
			return p, nil
		}
	}

	link := strings.TrimSpace(item.Link)
	if link == "" {
		return nil, nil
	}
	if asin := s.meta.asinFor(link); asin != "" {
		p, err := s.repos.Product.GetByASIN(ctx, asin)
		if err != nil {
			return nil, fmt.Errorf("load product by asin: %w", err)
		}
		if p != nil {
			return p, nil
		}
	}
	p, err := s.repos.Product.GetByLink(ctx, link)
	if err != nil {
		return nil, fmt.Errorf("load product by link: %w", err)
	}
	return p, nil
}

// relinked reports whether link points a product that already carries an
// ASIN at a different one
func (s *productMapService) relinked(p *models.Product, link string) bool {
	if p.ASIN == nil || link == "" || link == p.Link {
		return false
	}
	return s.meta.asinFor(link) != *p.ASIN
}

// fresh reports whether the product already carries unexpired scrape data
// for asin
func (s *productMapService) fresh(p *models.Product, asin string) bool {
	if p.ASIN == nil || *p.ASIN != asin || len(p.Meta) == 0 {
		return false
	}
	if p.Expires == nil {
		// a user thumbnail cleared the expiry; the metadata is still ours
		return p.ThumbnailID != nil
	}
	return s.now().Before(*p.Expires)
}

func (s *productMapService) resolveThumbnail(ctx context.Context, p *models.Product) error {
	if p.ASIN == nil {
		if p.RemoteThumbnailURI != "" && p.ThumbnailID == nil {
			id, err := s.meta.importThumbnail(ctx, p.RemoteThumbnailURI)
			if err != nil {
				return err
			}
			p.ThumbnailID = id
		}
		return nil
	}

	if p.ThumbnailID != nil {
		url, err := s.meta.attachmentURL(ctx, *p.ThumbnailID)
		if err != nil {
			return err
		}
		p.ExternalThumbnailURL = url
		p.Expires = nil
	}
	return nil
}

// GetProductMap returns a creation's products ordered by position
func (s *productMapService) GetProductMap(ctx context.Context, creationID int64) ([]*models.ProductMap, error) {
	items, err := s.repos.ProductMap.ListByCreation(ctx, creationID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*models.ProductMap{}
	}
	sortByPosition(items, func(p *models.ProductMap) *int { return p.Position })
	return items, nil
}

// dedupeProductMap keeps the first row per product and returns the ids of
// later duplicates
func dedupeProductMap(rows []*models.ProductMap) ([]*models.ProductMap, []int64) {
	seen := make(map[int64]bool, len(rows))
	kept := make([]*models.ProductMap, 0, len(rows))
	var duplicates []int64

	for _, row := range rows {
		if seen[row.ProductID] {
			duplicates = append(duplicates, row.ID)
			continue
		}
		seen[row.ProductID] = true
		kept = append(kept, row)
	}
	return kept, duplicates
}
