package mocks

import (
	"context"
	"sync"

	"github.com/creations-api/internal/amazon"
	"github.com/creations-api/internal/models"
)

// MockAmazonClient is a scripted implementation of amazon.Client
type MockAmazonClient struct {
	mu         sync.Mutex
	Configured bool
	Products   map[string]models.ScrapedProduct
	Errors     map[string]error
	Calls      [][]string
}

var _ amazon.Client = (*MockAmazonClient)(nil)

func NewMockAmazonClient() *MockAmazonClient {
	return &MockAmazonClient{
		Configured: true,
		Products:   make(map[string]models.ScrapedProduct),
		Errors:     make(map[string]error),
	}
}

func (m *MockAmazonClient) IsConfigured() bool {
	return m.Configured
}

func (m *MockAmazonClient) GetProductsByASIN(ctx context.Context, asins ...string) (map[string]models.ScrapedProduct, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, asins)

	if !m.Configured {
		return nil, amazon.ErrNotConfigured
	}

	out := make(map[string]models.ScrapedProduct)
	for _, asin := range asins {
		if err, ok := m.Errors[asin]; ok {
			return nil, err
		}
		if p, ok := m.Products[asin]; ok {
			out[asin] = p
		}
	}
	if len(out) == 0 {
		return nil, amazon.ErrNoProducts
	}
	return out, nil
}

// CallCount returns how many scrape calls were made
func (m *MockAmazonClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
