package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/creations-api/internal/models"
	"github.com/creations-api/internal/repository"
	"github.com/rs/zerolog"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
)

type searchService struct {
	content repository.ContentRepository
	log     zerolog.Logger
}

func newSearchService(content repository.ContentRepository, log zerolog.Logger) *searchService {
	return &searchService{
		content: content,
		log:     log.With().Str("service", "search").Logger(),
	}
}

// SearchContent returns cards and posts whose title matches query, cards first
func (s *searchService) SearchContent(ctx context.Context, query string, limit int) ([]models.SearchResult, error) {
	query = strings.TrimSpace(query)
	results := []models.SearchResult{}
	if query == "" {
		return results, nil
	}

	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	creations, err := s.content.SearchCreations(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search creations: %w", err)
	}
	for _, c := range creations {
		results = append(results, models.SearchResult{
			ID:          c.ID,
			ContentType: models.ContentTypeCard,
			Title:       c.Title,
			Type:        c.Type,
		})
	}

	if remaining := limit - len(results); remaining > 0 {
		posts, err := s.content.SearchPosts(ctx, query, remaining)
		if err != nil {
			return nil, fmt.Errorf("search posts: %w", err)
		}
		for _, p := range posts {
			results = append(results, models.SearchResult{
				ID:          p.ID,
				ContentType: models.ContentTypePost,
				Title:       p.Title,
				URL:         p.URL,
			})
		}
	}

	s.log.Debug().Str("query", query).Int("results", len(results)).Msg("Content search")
	return results, nil
}
