package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/creations-api/internal/models"
	"github.com/creations-api/internal/repository"
	"github.com/creations-api/internal/validation"
	"github.com/rs/zerolog"
)

// DefaultRelationType is used when a request does not name a relation type
const DefaultRelationType = "list"

// relationService is the concrete implementation of RelationService
type relationService struct {
	repos     *repository.Repositories
	meta      *metadataResolver
	validator *validation.Validator
	log       zerolog.Logger
}

func newRelationService(repos *repository.Repositories, meta *metadataResolver, log zerolog.Logger) *relationService {
	return &relationService{
		repos:     repos,
		meta:      meta,
		validator: validation.NewValidator(),
		log:       log.With().Str("service", "relations").Logger(),
	}
}

// asinIndex maps each ASIN scraped for the previous relation set to the
// position of its first occurrence
type asinIndex map[string]int

func buildASINIndex(original []*models.Relation) asinIndex {
	idx := make(asinIndex, len(original))
	for i, rel := range original {
		if rel.ASIN == nil || *rel.ASIN == "" {
			continue
		}
		if _, seen := idx[*rel.ASIN]; !seen {
			idx[*rel.ASIN] = i
		}
	}
	return idx
}

// SetRelations replaces a creation's relations of relType with items.
// Scrape failures are reported per item; the remaining items are saved.
func (s *relationService) SetRelations(ctx context.Context, creationID int64, relType string, items []models.RelationInput) (*models.RelationsResult, error) {
	relType = normalizeRelationType(relType)
	result := &models.RelationsResult{Items: []*models.Relation{}, Errors: []models.ItemError{}}

	original, err := s.repos.Relation.ListByCreation(ctx, creationID, relType)
	if err != nil {
		return nil, fmt.Errorf("load existing relations: %w", err)
	}
	existing := buildASINIndex(original)

	rows := make([]*models.Relation, 0, len(items))
	for _, item := range items {
		if errs := s.validator.ValidateRelation(&item); len(errs) > 0 {
			result.Errors = append(result.Errors, validation.ToItemErrors(item.Index, errs)...)
			continue
		}

		rel := newRelationFromInput(creationID, relType, &item)

		if asin := s.meta.asinFor(rel.URL); asin != "" {
			scraped, err := s.amazonProductMetadata(ctx, asin, original, existing)
			if err != nil {
				s.log.Warn().Err(err).Int64("creation", creationID).Str("asin", asin).Msg("Amazon scrape failed")
				result.Errors = append(result.Errors, models.ItemError{
					Index:   item.Index,
					Field:   "url",
					Message: fmt.Sprintf("unable to retrieve Amazon product data: %v", err),
					Value:   rel.URL,
				})
			} else {
				applyScrape(rel, asin, scraped)
			}
		}

		if err := s.resolveThumbnail(ctx, rel); err != nil {
			s.log.Warn().Err(err).Int64("creation", creationID).Msg("Thumbnail resolution failed")
			result.Errors = append(result.Errors, models.ItemError{
				Index:   item.Index,
				Field:   "thumbnail_id",
				Message: err.Error(),
			})
		}

		rows = append(rows, rel)
	}

	stored, err := s.repos.Relation.Replace(ctx, creationID, relType, rows)
	if err != nil {
		return nil, fmt.Errorf("replace relations: %w", err)
	}

	kept, duplicates := dedupeRelations(stored)
	if len(duplicates) > 0 {
		if err := s.repos.Relation.DeleteByIDs(ctx, duplicates); err != nil {
			return nil, fmt.Errorf("delete duplicate relations: %w", err)
		}
	}

	sortByPosition(kept, func(r *models.Relation) *int { return r.Position })
	result.Items = kept

	s.log.Info().
		Int64("creation", creationID).
		Str("type", relType).
		Int("saved", len(kept)).
		Int("duplicates", len(duplicates)).
		Int("errors", len(result.Errors)).
		Msg("Relations saved")

	return result, nil
}

// amazonProductMetadata reuses the metadata already scraped for asin in the
// previous relation set, and only calls the scraper on a miss. The expiry
// comes from the meta itself since a thumbnail override may have cleared
// the previous row's column.
func (s *relationService) amazonProductMetadata(ctx context.Context, asin string, original []*models.Relation, existing asinIndex) (*scrapeSource, error) {
	if k, ok := existing[asin]; ok {
		prev := original[k]
		if scraped, ok := models.ParseScrapeMeta(prev.Meta); ok {
			expires := prev.Expires
			if !scraped.Expires.IsZero() {
				expires = &scraped.Expires
			}
			return &scrapeSource{product: scraped, meta: prev.Meta, expires: expires}, nil
		}
	}

	scraped, err := s.meta.scrape(ctx, asin)
	if err != nil {
		return nil, err
	}
	expires := scraped.Expires
	return &scrapeSource{product: scraped, meta: scraped.Meta(), expires: &expires}, nil
}

// resolveThumbnail applies image precedence: a user-assigned attachment
// overrides the scraped image and clears the expiry; a remote thumbnail
// URI on a non-Amazon item is imported into the media library.
func (s *relationService) resolveThumbnail(ctx context.Context, rel *models.Relation) error {
	if rel.ASIN == nil {
		if rel.ThumbnailURI != "" && rel.ThumbnailID == nil {
			id, err := s.meta.importThumbnail(ctx, rel.ThumbnailURI)
			if err != nil {
				return err
			}
			rel.ThumbnailID = id
		}
		return nil
	}

	if rel.ThumbnailID != nil {
		url, err := s.meta.attachmentURL(ctx, *rel.ThumbnailID)
		if err != nil {
			return err
		}
		rel.ExternalThumbnailURL = url
		rel.Expires = nil
	}
	return nil
}

// GetRelations returns a creation's relations ordered by position
func (s *relationService) GetRelations(ctx context.Context, creationID int64, relType string) ([]*models.Relation, error) {
	relations, err := s.repos.Relation.ListByCreation(ctx, creationID, normalizeRelationType(relType))
	if err != nil {
		return nil, err
	}
	if relations == nil {
		relations = []*models.Relation{}
	}
	sortByPosition(relations, func(r *models.Relation) *int { return r.Position })
	return relations, nil
}

// DeleteRelations removes a creation's relations of relType
func (s *relationService) DeleteRelations(ctx context.Context, creationID int64, relType string) (int, error) {
	return s.repos.Relation.DeleteByCreation(ctx, creationID, normalizeRelationType(relType))
}

// scrapeSource is scrape metadata for one item, cached or freshly fetched
type scrapeSource struct {
	product *models.ScrapedProduct
	meta    json.RawMessage
	expires *time.Time
}

func applyScrape(rel *models.Relation, asin string, src *scrapeSource) {
	rel.ASIN = &asin
	rel.Meta = src.meta
	rel.Expires = src.expires
	rel.ExternalThumbnailURL = src.product.ExternalThumbnailURL
}

// newRelationFromInput fills structural defaults for one editor item
func newRelationFromInput(creationID int64, relType string, item *models.RelationInput) *models.Relation {
	rel := &models.Relation{
		CreationID:   creationID,
		Type:         relType,
		ContentType:  item.ContentType,
		RelationID:   item.RelationID.Ptr(),
		URL:          strings.TrimSpace(item.URL),
		Position:     item.Position,
		ThumbnailID:  item.ThumbnailID.Ptr(),
		ThumbnailURI: strings.TrimSpace(item.ThumbnailURI),
		Title:        item.Title,
		Description:  item.Description,
		Nofollow:     bool(item.Nofollow),
		LinkText:     item.LinkText,
	}
	if !rel.ContentType.IsExternal() {
		rel.URL = ""
	}
	return rel
}

// dedupeRelations keeps the first relation per identity key and returns
// the ids of later duplicates
func dedupeRelations(rows []*models.Relation) ([]*models.Relation, []int64) {
	seen := make(map[string]bool, len(rows))
	kept := make([]*models.Relation, 0, len(rows))
	var duplicates []int64

	for _, rel := range rows {
		key, ok := rel.IdentityKey()
		if ok && seen[key] {
			duplicates = append(duplicates, rel.ID)
			continue
		}
		if ok {
			seen[key] = true
		}
		kept = append(kept, rel)
	}
	return kept, duplicates
}

func normalizeRelationType(relType string) string {
	relType = strings.TrimSpace(relType)
	if relType == "" {
		return DefaultRelationType
	}
	return relType
}
