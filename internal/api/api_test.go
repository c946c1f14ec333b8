package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/creations-api/internal/api"
	"github.com/creations-api/internal/config"
	"github.com/creations-api/internal/mocks"
	"github.com/creations-api/internal/models"
	"github.com/creations-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type testMocks struct {
	relations *mocks.MockRelationService
	products  *mocks.MockProductMapService
	search    *mocks.MockSearchService
	refresh   *mocks.MockRefreshService
}

type fakeHealth struct{ err error }

func (f fakeHealth) HealthCheck(ctx context.Context) error { return f.err }

func setupTestRouter(db api.HealthChecker) (*gin.Engine, *testMocks) {
	gin.SetMode(gin.TestMode)

	m := &testMocks{
		relations: mocks.NewMockRelationService(),
		products:  mocks.NewMockProductMapService(),
		search:    mocks.NewMockSearchService(),
		refresh:   mocks.NewMockRefreshService(),
	}

	services := &service.Services{
		Relations: m.relations,
		Products:  m.products,
		Search:    m.search,
		Refresh:   m.refresh,
	}

	cfg := &config.Config{
		Server: config.ServerConfig{Port: "8080"},
		Queue: config.QueueConfig{
			RefreshWindow: 3 * time.Hour,
			SweepInterval: time.Hour,
		},
	}

	router := api.NewRouter(services, cfg, db, zerolog.Nop())
	return router, m
}

func doRequest(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := setupTestRouter(fakeHealth{})

	w := doRequest(router, "GET", "/health", "")
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var response map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)

	if response["status"] != "healthy" {
		t.Errorf("Expected status 'healthy', got %v", response["status"])
	}
	if response["service"] != "creations-api" {
		t.Errorf("Expected service name, got %v", response["service"])
	}
	if response["database"] != "ok" {
		t.Errorf("Expected database ok, got %v", response["database"])
	}
}

func TestHealthEndpoint_DatabaseDown(t *testing.T) {
	router, _ := setupTestRouter(fakeHealth{err: errors.New("connection refused")})

	w := doRequest(router, "GET", "/health", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", w.Code)
	}
}

func TestRequestID(t *testing.T) {
	router, _ := setupTestRouter(nil)

	w := doRequest(router, "GET", "/health", "")
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("Expected a generated X-Request-ID header")
	}

	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if got := w.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Errorf("Expected caller request id to be echoed, got %q", got)
	}
}

func TestSetRelations(t *testing.T) {
	router, m := setupTestRouter(nil)

	body := `{"type":"list","items":[
		{"content_type":"card","relation_id":"5","position":1},
		{"content_type":"external","url":"https://example.com","relation_id":"","position":0}
	]}`
	w := doRequest(router, "POST", "/v1/creations/12/relations", body)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	if m.relations.LastType != "list" {
		t.Errorf("Expected type list, got %q", m.relations.LastType)
	}
	if len(m.relations.LastItems) != 2 {
		t.Fatalf("Expected 2 items passed to service, got %d", len(m.relations.LastItems))
	}
	if id := m.relations.LastItems[0].RelationID; !id.Valid || id.Value != 5 {
		t.Errorf("Expected numeric string id to decode, got %+v", id)
	}
	if m.relations.LastItems[1].RelationID.Valid {
		t.Error("Empty string id should decode to no id")
	}

	var result models.RelationsResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("Invalid response: %v", err)
	}
	if len(result.Items) != 2 {
		t.Errorf("Expected 2 items in response, got %d", len(result.Items))
	}
}

func TestSetRelations_NonArrayItems(t *testing.T) {
	router, m := setupTestRouter(nil)

	for _, body := range []string{`{"items":{"0":{}}}`, `{"items":"x"}`, `{}`} {
		w := doRequest(router, "POST", "/v1/creations/1/relations", body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("Body %s: expected 400, got %d", body, w.Code)
		}
	}
	if m.relations.LastItems != nil {
		t.Error("Service should not be called for an invalid payload")
	}
}

func TestSetRelations_BadElementReportedPerItem(t *testing.T) {
	router, _ := setupTestRouter(nil)

	body := `{"items":[{"content_type":"card","relation_id":1},"oops"]}`
	w := doRequest(router, "POST", "/v1/creations/1/relations", body)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var result models.RelationsResult
	json.Unmarshal(w.Body.Bytes(), &result)
	if len(result.Errors) != 1 || result.Errors[0].Index != 1 {
		t.Errorf("Expected one error at index 1, got %+v", result.Errors)
	}
	if len(result.Items) != 1 {
		t.Errorf("Expected the valid item saved, got %d", len(result.Items))
	}
}

func TestSetRelations_InvalidCreationID(t *testing.T) {
	router, _ := setupTestRouter(nil)

	w := doRequest(router, "POST", "/v1/creations/abc/relations", `{"items":[]}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", w.Code)
	}
}

func TestSetRelations_ServiceError(t *testing.T) {
	router, m := setupTestRouter(nil)
	m.relations.Err = mocks.ErrMock

	w := doRequest(router, "POST", "/v1/creations/1/relations", `{"items":[]}`)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500, got %d", w.Code)
	}
}

func TestGetAndDeleteRelations(t *testing.T) {
	router, m := setupTestRouter(nil)
	m.relations.Relations[3] = []*models.Relation{{ID: 1, CreationID: 3}, {ID: 2, CreationID: 3}}

	w := doRequest(router, "GET", "/v1/creations/3/relations?type=related", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if m.relations.LastType != "related" {
		t.Errorf("Expected type from query, got %q", m.relations.LastType)
	}
	var response struct {
		Items []models.Relation `json:"items"`
	}
	json.Unmarshal(w.Body.Bytes(), &response)
	if len(response.Items) != 2 {
		t.Errorf("Expected 2 relations, got %d", len(response.Items))
	}

	w = doRequest(router, "DELETE", "/v1/creations/3/relations", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var deleted map[string]int
	json.Unmarshal(w.Body.Bytes(), &deleted)
	if deleted["deleted"] != 2 {
		t.Errorf("Expected 2 deleted, got %v", deleted)
	}
}

func TestUpsertProductMap(t *testing.T) {
	router, m := setupTestRouter(nil)

	body := `{"items":[{"link":"https://shop.example.com/knife","title":"Knife","product_id":null,"position":0}]}`
	w := doRequest(router, "POST", "/v1/creations/4/products", body)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if len(m.products.LastItems) != 1 || m.products.LastItems[0].Title != "Knife" {
		t.Errorf("Unexpected items passed to service: %+v", m.products.LastItems)
	}

	w = doRequest(router, "GET", "/v1/creations/4/products", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var response struct {
		Items []models.ProductMap `json:"items"`
	}
	json.Unmarshal(w.Body.Bytes(), &response)
	if len(response.Items) != 1 {
		t.Errorf("Expected 1 product, got %d", len(response.Items))
	}
}

func TestUpsertProductMap_NonArrayItems(t *testing.T) {
	router, _ := setupTestRouter(nil)

	w := doRequest(router, "POST", "/v1/creations/4/products", `{"items":{"link":"x"}}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", w.Code)
	}
}

func TestSearch(t *testing.T) {
	router, m := setupTestRouter(nil)
	m.search.Results = []models.SearchResult{{ID: 1, ContentType: models.ContentTypeCard, Title: "Pancakes"}}

	w := doRequest(router, "GET", "/v1/search?q=pan&limit=5", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if m.search.LastQuery != "pan" || m.search.LastLimit != 5 {
		t.Errorf("Unexpected query/limit: %q %d", m.search.LastQuery, m.search.LastLimit)
	}

	w = doRequest(router, "GET", "/v1/search?q=pan&limit=abc", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad limit, got %d", w.Code)
	}
}

func TestQueueStatus(t *testing.T) {
	router, m := setupTestRouter(nil)
	m.refresh.QueueStatus = &models.QueueStatus{
		Configured: true,
		Queues:     []models.QueueInfo{{Name: service.RelationsQueueName, Length: 4}},
	}

	w := doRequest(router, "GET", "/v1/queues/amazon", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var response map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)
	if response["configured"] != true {
		t.Errorf("Expected configured true, got %v", response["configured"])
	}
	if response["refresh_window"] != "3h0m0s" {
		t.Errorf("Unexpected refresh window %v", response["refresh_window"])
	}
	queues := response["queues"].([]interface{})
	if len(queues) != 1 {
		t.Errorf("Expected 1 queue, got %d", len(queues))
	}
}

func TestQueueSweep_IsForced(t *testing.T) {
	router, m := setupTestRouter(nil)
	m.refresh.SweepResult = &models.SweepResult{RunID: "run-1", RelationsFound: 2, RelationsQueued: 2}

	w := doRequest(router, "POST", "/v1/queues/amazon/sweep", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if len(m.refresh.SweepCalls) != 1 || !m.refresh.SweepCalls[0] {
		t.Errorf("Expected one forced sweep, got %v", m.refresh.SweepCalls)
	}

	var result models.SweepResult
	json.Unmarshal(w.Body.Bytes(), &result)
	if result.RelationsQueued != 2 {
		t.Errorf("Expected 2 queued, got %d", result.RelationsQueued)
	}
}

func TestCORSHeaders(t *testing.T) {
	router, _ := setupTestRouter(nil)

	w := doRequest(router, "OPTIONS", "/v1/creations/1/relations", "")
	if w.Code != http.StatusNoContent {
		t.Errorf("Expected 204 for OPTIONS, got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("Expected CORS origin header")
	}
}
