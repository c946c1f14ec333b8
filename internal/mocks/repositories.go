package mocks

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/creations-api/internal/models"
	"github.com/creations-api/internal/repository"
)

// MockRelationRepository is an in-memory implementation of RelationRepository
type MockRelationRepository struct {
	mu           sync.Mutex
	Relations    map[int64]*models.Relation
	nextID       int64
	ReplaceError error
	ReplaceCalls int
	DeletedIDs   []int64
	Now          func() time.Time
}

// Verify interface compliance
var _ repository.RelationRepository = (*MockRelationRepository)(nil)

func NewMockRelationRepository() *MockRelationRepository {
	return &MockRelationRepository{
		Relations: make(map[int64]*models.Relation),
		Now:       time.Now,
	}
}

// Seed stores rel with a fresh id and returns it
func (m *MockRelationRepository) Seed(rel *models.Relation) *models.Relation {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	rel.ID = m.nextID
	m.Relations[rel.ID] = rel
	return rel
}

func (m *MockRelationRepository) GetByID(ctx context.Context, id int64) (*models.Relation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rel, ok := m.Relations[id]
	if !ok {
		return nil, nil
	}
	cp := *rel
	return &cp, nil
}

func (m *MockRelationRepository) ListByCreation(ctx context.Context, creationID int64, relType string) ([]*models.Relation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.list(creationID, relType), nil
}

func (m *MockRelationRepository) list(creationID int64, relType string) []*models.Relation {
	var out []*models.Relation
	for _, rel := range m.Relations {
		if rel.CreationID == creationID && rel.Type == relType {
			cp := *rel
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *MockRelationRepository) Replace(ctx context.Context, creationID int64, relType string, rows []*models.Relation) ([]*models.Relation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReplaceCalls++
	if m.ReplaceError != nil {
		return nil, m.ReplaceError
	}

	for id, rel := range m.Relations {
		if rel.CreationID == creationID && rel.Type == relType {
			delete(m.Relations, id)
		}
	}
	now := m.Now()
	for _, row := range rows {
		m.nextID++
		cp := *row
		cp.ID = m.nextID
		cp.CreationID = creationID
		cp.Type = relType
		cp.CreatedAt, cp.UpdatedAt = now, now
		m.Relations[cp.ID] = &cp
	}
	return m.list(creationID, relType), nil
}

func (m *MockRelationRepository) DeleteByCreation(ctx context.Context, creationID int64, relType string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, rel := range m.Relations {
		if rel.CreationID == creationID && rel.Type == relType {
			delete(m.Relations, id)
			n++
		}
	}
	return n, nil
}

func (m *MockRelationRepository) DeleteByIDs(ctx context.Context, ids []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.Relations, id)
	}
	m.DeletedIDs = append(m.DeletedIDs, ids...)
	return nil
}

func (m *MockRelationRepository) FindExpiring(ctx context.Context, before time.Time, limit int) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var due []*models.Relation
	for _, rel := range m.Relations {
		if rel.ASIN != nil && rel.Expires != nil && rel.Expires.Before(before) && rel.ContentType == models.ContentTypeExternal {
			due = append(due, rel)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].Expires.Before(*due[j].Expires) })
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	ids := make([]int64, len(due))
	for i, rel := range due {
		ids[i] = rel.ID
	}
	return ids, nil
}

func (m *MockRelationRepository) UpdateScrape(ctx context.Context, id int64, update repository.ScrapeUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rel, ok := m.Relations[id]
	if !ok {
		return nil
	}
	if update.ASIN != "" {
		asin := update.ASIN
		rel.ASIN = &asin
	} else {
		rel.ASIN = nil
	}
	rel.Meta = update.Meta
	rel.Expires = update.Expires
	if update.ExternalThumbnailURL != nil && *update.ExternalThumbnailURL != "" {
		rel.ExternalThumbnailURL = *update.ExternalThumbnailURL
	}
	rel.UpdatedAt = m.Now()
	return nil
}

// MockProductRepository is an in-memory implementation of ProductRepository
type MockProductRepository struct {
	mu          sync.Mutex
	Products    map[int64]*models.Product
	nextID      int64
	UpsertCalls int
	Now         func() time.Time
}

var _ repository.ProductRepository = (*MockProductRepository)(nil)

func NewMockProductRepository() *MockProductRepository {
	return &MockProductRepository{
		Products: make(map[int64]*models.Product),
		Now:      time.Now,
	}
}

// Seed stores p with a fresh id and returns it
func (m *MockProductRepository) Seed(p *models.Product) *models.Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	p.ID = m.nextID
	m.Products[p.ID] = p
	return p
}

func (m *MockProductRepository) GetByID(ctx context.Context, id int64) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.Products[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (m *MockProductRepository) GetByASIN(ctx context.Context, asin string) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p := m.findByASIN(asin); p != nil {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (m *MockProductRepository) GetByLink(ctx context.Context, link string) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p := m.findByLink(link); p != nil {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (m *MockProductRepository) findByASIN(asin string) *models.Product {
	for _, p := range m.Products {
		if p.ASIN != nil && *p.ASIN == asin {
			return p
		}
	}
	return nil
}

func (m *MockProductRepository) findByLink(link string) *models.Product {
	for _, p := range m.Products {
		if p.ASIN == nil && p.Link == link && link != "" {
			return p
		}
	}
	return nil
}

func (m *MockProductRepository) Upsert(ctx context.Context, p *models.Product) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpsertCalls++

	var existing *models.Product
	if p.ASIN != nil && *p.ASIN != "" {
		existing = m.findByASIN(*p.ASIN)
	} else {
		existing = m.findByLink(p.Link)
	}

	cp := *p
	now := m.Now()
	if existing != nil {
		cp.ID = existing.ID
		cp.CreatedAt = existing.CreatedAt
	} else {
		m.nextID++
		cp.ID = m.nextID
		cp.CreatedAt = now
	}
	cp.UpdatedAt = now
	m.Products[cp.ID] = &cp

	out := cp
	return &out, nil
}

func (m *MockProductRepository) FindExpiring(ctx context.Context, before time.Time, limit int) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var due []*models.Product
	for _, p := range m.Products {
		if p.ASIN != nil && p.Expires != nil && p.Expires.Before(before) {
			due = append(due, p)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].Expires.Before(*due[j].Expires) })
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	ids := make([]int64, len(due))
	for i, p := range due {
		ids[i] = p.ID
	}
	return ids, nil
}

func (m *MockProductRepository) UpdateScrape(ctx context.Context, id int64, update repository.ScrapeUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.Products[id]
	if !ok {
		return nil
	}
	asin := update.ASIN
	p.ASIN = &asin
	p.Meta = update.Meta
	p.Expires = update.Expires
	if update.ExternalThumbnailURL != nil && *update.ExternalThumbnailURL != "" {
		p.ExternalThumbnailURL = *update.ExternalThumbnailURL
	}
	p.UpdatedAt = m.Now()
	return nil
}

// MockProductMapRepository is an in-memory implementation of ProductMapRepository
type MockProductMapRepository struct {
	mu         sync.Mutex
	Items      map[int64]*models.ProductMap
	Products   *MockProductRepository
	nextID     int64
	DeletedIDs []int64
}

var _ repository.ProductMapRepository = (*MockProductMapRepository)(nil)

func NewMockProductMapRepository(products *MockProductRepository) *MockProductMapRepository {
	return &MockProductMapRepository{
		Items:    make(map[int64]*models.ProductMap),
		Products: products,
	}
}

func (m *MockProductMapRepository) ListByCreation(ctx context.Context, creationID int64) ([]*models.ProductMap, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.list(ctx, creationID), nil
}

func (m *MockProductMapRepository) list(ctx context.Context, creationID int64) []*models.ProductMap {
	var out []*models.ProductMap
	for _, item := range m.Items {
		if item.CreationID == creationID {
			cp := *item
			if m.Products != nil {
				cp.Product, _ = m.Products.GetByID(ctx, cp.ProductID)
			}
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *MockProductMapRepository) Replace(ctx context.Context, creationID int64, rows []*models.ProductMap) ([]*models.ProductMap, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, item := range m.Items {
		if item.CreationID == creationID {
			delete(m.Items, id)
		}
	}
	for _, row := range rows {
		m.nextID++
		cp := *row
		cp.ID = m.nextID
		cp.CreationID = creationID
		cp.Product = nil
		m.Items[cp.ID] = &cp
	}
	return m.list(ctx, creationID), nil
}

func (m *MockProductMapRepository) DeleteByIDs(ctx context.Context, ids []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.Items, id)
	}
	m.DeletedIDs = append(m.DeletedIDs, ids...)
	return nil
}

// MockMediaRepository is an in-memory implementation of MediaRepository
type MockMediaRepository struct {
	mu          sync.Mutex
	Attachments map[int64]*models.Attachment
	nextID      int64
	ImportError error
	Imported    []string
}

var _ repository.MediaRepository = (*MockMediaRepository)(nil)

func NewMockMediaRepository() *MockMediaRepository {
	return &MockMediaRepository{Attachments: make(map[int64]*models.Attachment)}
}

// Add stores an attachment with the given id
func (m *MockMediaRepository) Add(id int64, url string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Attachments[id] = &models.Attachment{ID: id, URL: url}
	if id > m.nextID {
		m.nextID = id
	}
}

func (m *MockMediaRepository) GetByID(ctx context.Context, id int64) (*models.Attachment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.Attachments[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, nil
}

func (m *MockMediaRepository) ImportFromURL(ctx context.Context, sourceURL string) (*models.Attachment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ImportError != nil {
		return nil, m.ImportError
	}
	for _, a := range m.Attachments {
		if a.SourceURL == sourceURL {
			cp := *a
			return &cp, nil
		}
	}
	m.nextID++
	a := &models.Attachment{ID: m.nextID, URL: sourceURL, SourceURL: sourceURL}
	m.Attachments[a.ID] = a
	m.Imported = append(m.Imported, sourceURL)
	cp := *a
	return &cp, nil
}

// MockContentRepository is an in-memory implementation of ContentRepository
type MockContentRepository struct {
	Posts     []*models.Post
	Creations []*models.Creation
	Err       error
}

var _ repository.ContentRepository = (*MockContentRepository)(nil)

func NewMockContentRepository() *MockContentRepository {
	return &MockContentRepository{}
}

func (m *MockContentRepository) SearchPosts(ctx context.Context, query string, limit int) ([]*models.Post, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	var out []*models.Post
	for _, p := range m.Posts {
		if containsFold(p.Title, query) && len(out) < limit {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *MockContentRepository) SearchCreations(ctx context.Context, query string, limit int) ([]*models.Creation, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	var out []*models.Creation
	for _, c := range m.Creations {
		if containsFold(c.Title, query) && len(out) < limit {
			out = append(out, c)
		}
	}
	return out, nil
}

// ErrMock is a generic failure for tests
var ErrMock = errors.New("mock failure")

// NewRepositories bundles fresh in-memory repositories
func NewRepositories() (*repository.Repositories, *Repos) {
	products := NewMockProductRepository()
	r := &Repos{
		Relation:   NewMockRelationRepository(),
		Product:    products,
		ProductMap: NewMockProductMapRepository(products),
		Media:      NewMockMediaRepository(),
		Content:    NewMockContentRepository(),
	}
	return &repository.Repositories{
		Relation:   r.Relation,
		Product:    r.Product,
		ProductMap: r.ProductMap,
		Media:      r.Media,
		Content:    r.Content,
	}, r
}

// Repos exposes the concrete mocks behind a Repositories bundle
type Repos struct {
	Relation   *MockRelationRepository
	Product    *MockProductRepository
	ProductMap *MockProductMapRepository
	Media      *MockMediaRepository
	Content    *MockContentRepository
}
