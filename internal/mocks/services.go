package mocks

import (
	"context"

	"github.com/creations-api/internal/models"
	"github.com/creations-api/internal/service"
)

// MockRelationService is a mock implementation of RelationService
type MockRelationService struct {
	SetFunc   func(ctx context.Context, creationID int64, relType string, items []models.RelationInput) (*models.RelationsResult, error)
	Relations map[int64][]*models.Relation
	Err       error
	LastType  string
	LastItems []models.RelationInput
}

// Verify interface compliance
var _ service.RelationService = (*MockRelationService)(nil)

func NewMockRelationService() *MockRelationService {
	return &MockRelationService{Relations: make(map[int64][]*models.Relation)}
}

func (m *MockRelationService) SetRelations(ctx context.Context, creationID int64, relType string, items []models.RelationInput) (*models.RelationsResult, error) {
	m.LastType, m.LastItems = relType, items
	if m.SetFunc != nil {
		return m.SetFunc(ctx, creationID, relType, items)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]*models.Relation, 0, len(items))
	for i, item := range items {
		out = append(out, &models.Relation{
			ID:          int64(i + 1),
			CreationID:  creationID,
			Type:        relType,
			ContentType: item.ContentType,
			RelationID:  item.RelationID.Ptr(),
			URL:         item.URL,
			Position:    item.Position,
		})
	}
	m.Relations[creationID] = out
	return &models.RelationsResult{Items: out, Errors: []models.ItemError{}}, nil
}

func (m *MockRelationService) GetRelations(ctx context.Context, creationID int64, relType string) ([]*models.Relation, error) {
	m.LastType = relType
	if m.Err != nil {
		return nil, m.Err
	}
	if rels, ok := m.Relations[creationID]; ok {
		return rels, nil
	}
	return []*models.Relation{}, nil
}

func (m *MockRelationService) DeleteRelations(ctx context.Context, creationID int64, relType string) (int, error) {
	if m.Err != nil {
		return 0, m.Err
	}
	n := len(m.Relations[creationID])
	delete(m.Relations, creationID)
	return n, nil
}

// MockProductMapService is a mock implementation of ProductMapService
type MockProductMapService struct {
	Items     map[int64][]*models.ProductMap
	Err       error
	LastItems []models.ProductMapInput
}

var _ service.ProductMapService = (*MockProductMapService)(nil)

func NewMockProductMapService() *MockProductMapService {
	return &MockProductMapService{Items: make(map[int64][]*models.ProductMap)}
}

func (m *MockProductMapService) UpsertProductMap(ctx context.Context, creationID int64, items []models.ProductMapInput) (*models.ProductMapResult, error) {
	m.LastItems = items
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]*models.ProductMap, 0, len(items))
	for i, item := range items {
		out = append(out, &models.ProductMap{
			ID:         int64(i + 1),
			CreationID: creationID,
			ProductID:  int64(i + 1),
			Title:      item.Title,
			Link:       item.Link,
			Position:   item.Position,
		})
	}
	m.Items[creationID] = out
	return &models.ProductMapResult{Items: out, Errors: []models.ItemError{}}, nil
}

func (m *MockProductMapService) GetProductMap(ctx context.Context, creationID int64) ([]*models.ProductMap, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if items, ok := m.Items[creationID]; ok {
		return items, nil
	}
	return []*models.ProductMap{}, nil
}

// MockSearchService is a mock implementation of SearchService
type MockSearchService struct {
	Results   []models.SearchResult
	Err       error
	LastQuery string
	LastLimit int
}

var _ service.SearchService = (*MockSearchService)(nil)

func NewMockSearchService() *MockSearchService {
	return &MockSearchService{}
}

func (m *MockSearchService) SearchContent(ctx context.Context, query string, limit int) ([]models.SearchResult, error) {
	m.LastQuery, m.LastLimit = query, limit
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Results == nil {
		return []models.SearchResult{}, nil
	}
	return m.Results, nil
}

// MockRefreshService is a mock implementation of RefreshService
type MockRefreshService struct {
	SweepResult  *models.SweepResult
	QueueStatus  *models.QueueStatus
	Err          error
	SweepCalls   []bool
	Enqueued     map[string][]int64
	StepResult   bool
	StartedCount int
	StoppedCount int
}

var _ service.RefreshService = (*MockRefreshService)(nil)

func NewMockRefreshService() *MockRefreshService {
	return &MockRefreshService{
		SweepResult: &models.SweepResult{RunID: "test-run"},
		QueueStatus: &models.QueueStatus{Configured: true, Queues: []models.QueueInfo{}},
		Enqueued:    make(map[string][]int64),
	}
}

func (m *MockRefreshService) StartProcessor(ctx context.Context) { m.StartedCount++ }

func (m *MockRefreshService) StopProcessor() { m.StoppedCount++ }

func (m *MockRefreshService) Sweep(ctx context.Context, force bool) (*models.SweepResult, error) {
	m.SweepCalls = append(m.SweepCalls, force)
	if m.Err != nil {
		return nil, m.Err
	}
	return m.SweepResult, nil
}

func (m *MockRefreshService) StepRelations(ctx context.Context) (bool, error) {
	return m.StepResult, m.Err
}

func (m *MockRefreshService) StepProducts(ctx context.Context) (bool, error) {
	return m.StepResult, m.Err
}

func (m *MockRefreshService) Enqueue(ctx context.Context, target string, ids []int64, force bool) (int, error) {
	if m.Err != nil {
		return 0, m.Err
	}
	m.Enqueued[target] = append(m.Enqueued[target], ids...)
	return len(ids), nil
}

func (m *MockRefreshService) Status(ctx context.Context) (*models.QueueStatus, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.QueueStatus, nil
}
