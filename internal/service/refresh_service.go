package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/creations-api/internal/amazon"
	"github.com/creations-api/internal/config"
	"github.com/creations-api/internal/kvstore"
	"github.com/creations-api/internal/models"
	"github.com/creations-api/internal/queue"
	"github.com/creations-api/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Refresh targets accepted by Enqueue
const (
	TargetRelations = "relations"
	TargetProducts  = "products"
)

// ErrUnknownTarget is returned by Enqueue for a target other than
// relations or products
var ErrUnknownTarget = errors.New("unknown refresh target")

// refreshService is the concrete implementation of RefreshService
type refreshService struct {
	repos     *repository.Repositories
	store     kvstore.Store
	client    amazon.Client
	relations *queue.Queue
	products  *queue.Queue
	cfg       config.QueueConfig
	log       zerolog.Logger
	now       func() time.Time

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
	mu      sync.Mutex
}

func newRefreshService(repos *repository.Repositories, store kvstore.Store, client amazon.Client, relQueue, prodQueue *queue.Queue, cfg config.QueueConfig, log zerolog.Logger) *refreshService {
	return &refreshService{
		repos:     repos,
		store:     store,
		client:    client,
		relations: relQueue,
		products:  prodQueue,
		cfg:       cfg,
		log:       log.With().Str("service", "refresh").Logger(),
		now:       time.Now,
	}
}

func (s *refreshService) configured() bool {
	return s.client != nil && s.client.IsConfigured()
}

// StartProcessor launches a loop that runs the sweep and one step per queue
// on every poll tick until ctx is cancelled or StopProcessor is called.
// It returns once the processor is marked running.
func (s *refreshService) StartProcessor(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)

	go s.run(s.ctx)
}

func (s *refreshService) run(ctx context.Context) {
	defer s.wg.Done()

	s.log.Info().Dur("interval", s.cfg.PollInterval).Msg("Refresh processor started")

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("Refresh processor stopping")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// StopProcessor stops the background processor and waits for the current
// tick to finish
func (s *refreshService) StopProcessor() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	s.log.Info().Msg("Refresh processor stopped")
}

// tick is one processor cycle. A panic is logged and the cycle abandoned.
func (s *refreshService) tick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Msg("Refresh cycle panicked - recovered")
		}
	}()

	if _, err := s.Sweep(ctx, false); err != nil {
		s.log.Error().Err(err).Msg("Refresh sweep failed")
	}
	if _, err := s.StepRelations(ctx); err != nil {
		s.log.Error().Err(err).Msg("Relations refresh step failed")
	}
	if _, err := s.StepProducts(ctx); err != nil {
		s.log.Error().Err(err).Msg("Products refresh step failed")
	}
}

// Sweep queues relations and products whose scraped metadata expires within
// the refresh window. Unless force is set, a sweep inside the guard interval
// of the previous one is skipped.
func (s *refreshService) Sweep(ctx context.Context, force bool) (*models.SweepResult, error) {
	if !s.configured() {
		return &models.SweepResult{Skipped: true, Reason: "amazon not configured"}, nil
	}

	if !force {
		_, guarded, err := s.store.Get(ctx, SweepGuardKey)
		if err != nil {
			return nil, fmt.Errorf("read sweep guard: %w", err)
		}
		if guarded {
			return &models.SweepResult{Skipped: true, Reason: "sweep interval not elapsed"}, nil
		}
	}

	now := s.now()
	runID := uuid.New().String()
	if err := s.store.Set(ctx, SweepGuardKey, now.UTC().Format(time.RFC3339), s.cfg.SweepInterval); err != nil {
		return nil, fmt.Errorf("set sweep guard: %w", err)
	}

	before := now.Add(s.cfg.RefreshWindow)
	result := &models.SweepResult{RunID: runID}

	relIDs, err := s.repos.Relation.FindExpiring(ctx, before, s.cfg.SweepLimit)
	if err != nil {
		return nil, fmt.Errorf("find expiring relations: %w", err)
	}
	result.RelationsFound = len(relIDs)
	if result.RelationsQueued, err = pushIDs(ctx, s.relations, relIDs, false); err != nil {
		return nil, err
	}

	prodIDs, err := s.repos.Product.FindExpiring(ctx, before, s.cfg.SweepLimit)
	if err != nil {
		return nil, fmt.Errorf("find expiring products: %w", err)
	}
	result.ProductsFound = len(prodIDs)
	if result.ProductsQueued, err = pushIDs(ctx, s.products, prodIDs, false); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("run_id", runID).
		Bool("forced", force).
		Int("relations_found", result.RelationsFound).
		Int("relations_queued", result.RelationsQueued).
		Int("products_found", result.ProductsFound).
		Int("products_queued", result.ProductsQueued).
		Msg("Refresh sweep completed")

	return result, nil
}

func pushIDs(ctx context.Context, q *queue.Queue, ids []int64, force bool) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	items := make([]any, len(ids))
	for i, id := range ids {
		items[i] = id
	}
	_, added, err := q.PushMany(ctx, items, force)
	if err != nil {
		return 0, fmt.Errorf("push to %s: %w", q.Name(), err)
	}
	return added, nil
}

// StepRelations refreshes the relation at the head of the relations queue.
// It reports whether an item was processed.
func (s *refreshService) StepRelations(ctx context.Context) (bool, error) {
	return s.step(ctx, s.relations, s.refreshRelation)
}

// StepProducts refreshes the product at the head of the products queue
func (s *refreshService) StepProducts(ctx context.Context) (bool, error) {
	return s.step(ctx, s.products, s.refreshProduct)
}

func (s *refreshService) step(ctx context.Context, q *queue.Queue, refresh func(context.Context, int64) error) (bool, error) {
	if !s.configured() {
		return false, nil
	}

	err := q.Step(ctx, func(ctx context.Context, item queue.Item) error {
		id, ok := queue.ParseID(item)
		if !ok {
			s.log.Warn().Str("queue", q.Name()).RawJSON("item", item).Msg("Dropping non-numeric queue item")
			return nil
		}
		return refresh(ctx, id)
	})

	switch {
	case errors.Is(err, queue.ErrLocked), errors.Is(err, queue.ErrEmpty):
		return false, nil
	case err != nil:
		return true, err
	}
	return true, nil
}

// refreshRelation re-scrapes one relation. Scrape failures leave the row
// untouched; the next sweep queues it again.
func (s *refreshService) refreshRelation(ctx context.Context, id int64) error {
	rel, err := s.repos.Relation.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("load relation %d: %w", id, err)
	}
	if rel == nil {
		s.log.Debug().Int64("relation", id).Msg("Queued relation no longer exists")
		return nil
	}

	asin := ""
	if rel.ASIN != nil {
		asin = *rel.ASIN
	}
	if asin == "" {
		asin = amazon.GetASINFromLink(rel.URL)
	}
	if asin == "" {
		s.log.Debug().Int64("relation", id).Str("url", rel.URL).Msg("Queued relation has no ASIN")
		return nil
	}

	update, ok := s.scrapeUpdate(ctx, asin, rel.ThumbnailID != nil)
	if !ok {
		return nil
	}
	if err := s.repos.Relation.UpdateScrape(ctx, id, update); err != nil {
		return fmt.Errorf("update relation %d: %w", id, err)
	}
	s.log.Info().Int64("relation", id).Str("asin", asin).Msg("Relation metadata refreshed")
	return nil
}

func (s *refreshService) refreshProduct(ctx context.Context, id int64) error {
	p, err := s.repos.Product.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("load product %d: %w", id, err)
	}
	if p == nil {
		s.log.Debug().Int64("product", id).Msg("Queued product no longer exists")
		return nil
	}

	asin := ""
	if p.ASIN != nil {
		asin = *p.ASIN
	}
	if asin == "" {
		asin = amazon.GetASINFromLink(p.Link)
	}
	if asin == "" {
		return nil
	}

	update, ok := s.scrapeUpdate(ctx, asin, p.ThumbnailID != nil)
	if !ok {
		return nil
	}
	if err := s.repos.Product.UpdateScrape(ctx, id, update); err != nil {
		return fmt.Errorf("update product %d: %w", id, err)
	}
	s.log.Info().Int64("product", id).Str("asin", asin).Msg("Product metadata refreshed")
	return nil
}

// scrapeUpdate fetches fresh metadata for asin. A row with a user-assigned
// thumbnail keeps its thumbnail and gets no expiry.
func (s *refreshService) scrapeUpdate(ctx context.Context, asin string, userThumbnail bool) (repository.ScrapeUpdate, bool) {
	products, err := s.client.GetProductsByASIN(ctx, asin)
	if err != nil {
		s.log.Warn().Err(err).Str("asin", asin).Msg("Amazon refresh scrape failed")
		return repository.ScrapeUpdate{}, false
	}
	scraped, ok := products[asin]
	if !ok {
		s.log.Warn().Str("asin", asin).Msg("Amazon refresh returned no data")
		return repository.ScrapeUpdate{}, false
	}

	update := repository.ScrapeUpdate{
		ASIN: asin,
		Meta: scraped.Meta(),
	}
	if !userThumbnail {
		expires := scraped.Expires
		thumb := scraped.ExternalThumbnailURL
		update.Expires = &expires
		update.ExternalThumbnailURL = &thumb
	}
	return update, true
}

// Enqueue pushes ids onto the named refresh queue and returns how many
// were added
func (s *refreshService) Enqueue(ctx context.Context, target string, ids []int64, force bool) (int, error) {
	q, err := s.queueFor(target)
	if err != nil {
		return 0, err
	}
	return pushIDs(ctx, q, ids, force)
}

func (s *refreshService) queueFor(target string) (*queue.Queue, error) {
	switch target {
	case TargetRelations:
		return s.relations, nil
	case TargetProducts:
		return s.products, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownTarget, target)
}

// Status reports the length and lock state of both refresh queues
func (s *refreshService) Status(ctx context.Context) (*models.QueueStatus, error) {
	status := &models.QueueStatus{Configured: s.configured(), Queues: []models.QueueInfo{}}
	for _, q := range []*queue.Queue{s.relations, s.products} {
		n, err := q.Len(ctx)
		if err != nil {
			return nil, err
		}
		locked, err := q.IsLocked(ctx)
		if err != nil {
			return nil, err
		}
		status.Queues = append(status.Queues, models.QueueInfo{Name: q.Name(), Length: n, Locked: locked})
	}
	return status, nil
}
