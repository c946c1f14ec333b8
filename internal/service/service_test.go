package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/creations-api/internal/config"
	"github.com/creations-api/internal/kvstore"
	"github.com/creations-api/internal/mocks"
	"github.com/creations-api/internal/models"
	"github.com/creations-api/internal/service"
	"github.com/rs/zerolog"
)

const testASIN = "B000000001"

var testAmazonURL = "https://www.amazon.com/dp/" + testASIN

type fixture struct {
	services *service.Services
	repos    *mocks.Repos
	client   *mocks.MockAmazonClient
	store    *kvstore.Memory
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repos, concrete := mocks.NewRepositories()
	client := mocks.NewMockAmazonClient()
	store := kvstore.NewMemory()
	cfg := &config.Config{Queue: config.QueueConfig{
		LockTimeout:       300 * time.Second,
		AmazonLockTimeout: 12 * time.Hour,
		RefreshWindow:     3 * time.Hour,
		SweepInterval:     time.Hour,
		SweepLimit:        50,
		PollInterval:      10 * time.Millisecond,
	}}

	services, err := service.NewServices(repos, store, client, cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewServices failed: %v", err)
	}
	return &fixture{services: services, repos: concrete, client: client, store: store}
}

func intp(v int) *int { return &v }

func relationID(id int64) models.NullableID {
	return models.NullableID{Value: id, Valid: true}
}

func scraped(asin, thumb string, expires time.Time) models.ScrapedProduct {
	return models.ScrapedProduct{ASIN: asin, Title: "Whisk", ExternalThumbnailURL: thumb, Expires: expires}
}

func TestSetRelations_DedupKeepsFirstOccurrence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	items := []models.RelationInput{
		{Index: 0, ContentType: models.ContentTypeCard, RelationID: relationID(5), Title: "first"},
		{Index: 1, ContentType: models.ContentTypeCard, RelationID: relationID(5), Title: "second"},
		{Index: 2, ContentType: models.ContentTypeCard, RelationID: relationID(7)},
	}

	result, err := f.services.Relations.SetRelations(ctx, 1, "", items)
	if err != nil {
		t.Fatalf("SetRelations failed: %v", err)
	}
	if len(result.Items) != 2 {
		t.Fatalf("Expected 2 relations after dedup, got %d", len(result.Items))
	}
	if result.Items[0].Title != "first" || *result.Items[0].RelationID != 5 {
		t.Errorf("Expected first relation_id 5 entry to survive, got %+v", result.Items[0])
	}
	if *result.Items[1].RelationID != 7 {
		t.Errorf("Expected relation_id 7 second, got %d", *result.Items[1].RelationID)
	}
	if len(f.repos.Relation.DeletedIDs) != 1 {
		t.Fatalf("Expected the duplicate row to be deleted, got %v", f.repos.Relation.DeletedIDs)
	}

	stored, _ := f.repos.Relation.ListByCreation(ctx, 1, service.DefaultRelationType)
	if len(stored) != 2 {
		t.Errorf("Expected 2 stored relations, got %d", len(stored))
	}
}

func TestSetRelations_ExternalDedupByURL(t *testing.T) {
	f := newFixture(t)
	f.client.Configured = false

	items := []models.RelationInput{
		{Index: 0, ContentType: models.ContentTypeExternal, URL: "https://example.com/a"},
		{Index: 1, ContentType: models.ContentTypeExternal, URL: "https://example.com/a"},
		{Index: 2, ContentType: models.ContentTypePost, RelationID: relationID(3)},
	}

	result, err := f.services.Relations.SetRelations(context.Background(), 1, "list", items)
	if err != nil {
		t.Fatalf("SetRelations failed: %v", err)
	}
	if len(result.Items) != 2 {
		t.Errorf("Expected 2 relations after URL dedup, got %d", len(result.Items))
	}
}

func TestSetRelations_InternalDedupIgnoresContentType(t *testing.T) {
	f := newFixture(t)
	f.client.Configured = false

	items := []models.RelationInput{
		{Index: 0, ContentType: models.ContentTypeCard, RelationID: relationID(5), Title: "card"},
		{Index: 1, ContentType: models.ContentTypePost, RelationID: relationID(5), Title: "post"},
		{Index: 2, ContentType: models.ContentTypeCard, RelationID: relationID(7)},
	}

	result, err := f.services.Relations.SetRelations(context.Background(), 1, "list", items)
	if err != nil {
		t.Fatalf("SetRelations failed: %v", err)
	}
	if len(result.Items) != 2 {
		t.Fatalf("Expected 2 relations, got %d", len(result.Items))
	}
	if result.Items[0].Title != "card" {
		t.Errorf("Expected the first relation_id 5 entry to survive, got %q", result.Items[0].Title)
	}
	if len(f.repos.Relation.DeletedIDs) != 1 {
		t.Errorf("Expected 1 deleted duplicate, got %v", f.repos.Relation.DeletedIDs)
	}
}

func TestSetRelations_ReusesExistingASINMetadata(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	expires := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Second)
	cached := scraped(testASIN, "https://images.example.com/cached.jpg", expires)
	asin := testASIN
	f.repos.Relation.Seed(&models.Relation{
		CreationID:  1,
		Type:        "list",
		ContentType: models.ContentTypeExternal,
		URL:         testAmazonURL,
		ASIN:        &asin,
		Meta:        cached.Meta(),
		Expires:     &expires,
	})

	items := []models.RelationInput{{ContentType: models.ContentTypeExternal, URL: testAmazonURL}}
	result, err := f.services.Relations.SetRelations(ctx, 1, "list", items)
	if err != nil {
		t.Fatalf("SetRelations failed: %v", err)
	}

	if f.client.CallCount() != 0 {
		t.Errorf("Scraper should not be called for a known ASIN, got %d calls", f.client.CallCount())
	}
	if len(result.Items) != 1 {
		t.Fatalf("Expected 1 relation, got %d", len(result.Items))
	}
	rel := result.Items[0]
	if string(rel.Meta) != string(cached.Meta()) {
		t.Errorf("Expected cached meta %s, got %s", cached.Meta(), rel.Meta)
	}
	if rel.ExternalThumbnailURL != cached.ExternalThumbnailURL {
		t.Errorf("Expected cached thumbnail, got %q", rel.ExternalThumbnailURL)
	}
}

func TestSetRelations_ScrapesNewASIN(t *testing.T) {
	f := newFixture(t)
	expires := time.Now().Add(24 * time.Hour)
	f.client.Products[testASIN] = scraped(testASIN, "https://images.example.com/new.jpg", expires)

	items := []models.RelationInput{{ContentType: models.ContentTypeExternal, URL: testAmazonURL}}
	result, err := f.services.Relations.SetRelations(context.Background(), 1, "list", items)
	if err != nil {
		t.Fatalf("SetRelations failed: %v", err)
	}

	if f.client.CallCount() != 1 {
		t.Errorf("Expected 1 scrape call, got %d", f.client.CallCount())
	}
	rel := result.Items[0]
	if rel.ASIN == nil || *rel.ASIN != testASIN {
		t.Errorf("Expected ASIN %s, got %v", testASIN, rel.ASIN)
	}
	if rel.Expires == nil || !rel.Expires.Equal(expires) {
		t.Errorf("Expected expires %v, got %v", expires, rel.Expires)
	}
	if rel.ExternalThumbnailURL != "https://images.example.com/new.jpg" {
		t.Errorf("Unexpected thumbnail %q", rel.ExternalThumbnailURL)
	}
}

func TestSetRelations_UserThumbnailOverridesScrape(t *testing.T) {
	f := newFixture(t)
	f.client.Products[testASIN] = scraped(testASIN, "https://images.example.com/scraped.jpg", time.Now().Add(time.Hour))
	f.repos.Media.Add(42, "https://cdn.example.com/uploads/local.jpg")

	items := []models.RelationInput{{
		ContentType: models.ContentTypeExternal,
		URL:         testAmazonURL,
		ThumbnailID: relationID(42),
	}}
	result, err := f.services.Relations.SetRelations(context.Background(), 1, "list", items)
	if err != nil {
		t.Fatalf("SetRelations failed: %v", err)
	}

	rel := result.Items[0]
	if rel.Expires != nil {
		t.Errorf("User thumbnail should clear expires, got %v", rel.Expires)
	}
	if rel.ExternalThumbnailURL != "https://cdn.example.com/uploads/local.jpg" {
		t.Errorf("Thumbnail should come from the local attachment, got %q", rel.ExternalThumbnailURL)
	}
	if rel.ASIN == nil {
		t.Error("ASIN should still be recorded")
	}
}

func TestSetRelations_RemovingThumbnailOverrideRestoresExpiry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	expires := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Second)
	f.client.Products[testASIN] = scraped(testASIN, "https://images.example.com/s.jpg", expires)
	f.repos.Media.Add(42, "https://cdn.example.com/uploads/local.jpg")

	withOverride := []models.RelationInput{{
		ContentType: models.ContentTypeExternal,
		URL:         testAmazonURL,
		ThumbnailID: relationID(42),
	}}
	if _, err := f.services.Relations.SetRelations(ctx, 1, "list", withOverride); err != nil {
		t.Fatalf("First save failed: %v", err)
	}

	plain := []models.RelationInput{{ContentType: models.ContentTypeExternal, URL: testAmazonURL}}
	result, err := f.services.Relations.SetRelations(ctx, 1, "list", plain)
	if err != nil {
		t.Fatalf("Second save failed: %v", err)
	}

	if f.client.CallCount() != 1 {
		t.Errorf("Second save should reuse stored metadata, got %d scrape calls", f.client.CallCount())
	}
	rel := result.Items[0]
	if rel.ExternalThumbnailURL != "https://images.example.com/s.jpg" {
		t.Errorf("Expected scraped thumbnail back, got %q", rel.ExternalThumbnailURL)
	}
	if rel.Expires == nil || !rel.Expires.Equal(expires) {
		t.Errorf("Expected expires %v restored from metadata, got %v", expires, rel.Expires)
	}
}

func TestSetRelations_ScrapeErrorIsPerItem(t *testing.T) {
	f := newFixture(t)
	f.client.Errors[testASIN] = errors.New("scraper unavailable")

	items := []models.RelationInput{
		{Index: 0, ContentType: models.ContentTypeExternal, URL: testAmazonURL},
		{Index: 1, ContentType: models.ContentTypePost, RelationID: relationID(9)},
	}
	result, err := f.services.Relations.SetRelations(context.Background(), 1, "list", items)
	if err != nil {
		t.Fatalf("SetRelations failed: %v", err)
	}

	if len(result.Errors) != 1 || result.Errors[0].Index != 0 {
		t.Fatalf("Expected one error for item 0, got %+v", result.Errors)
	}
	if len(result.Items) != 2 {
		t.Fatalf("Both items should be saved, got %d", len(result.Items))
	}
	for _, rel := range result.Items {
		if rel.ASIN != nil || rel.Expires != nil {
			t.Errorf("Failed scrape should leave ASIN and expires empty, got %+v", rel)
		}
	}
}

func TestSetRelations_NotConfiguredSkipsScraping(t *testing.T) {
	f := newFixture(t)
	f.client.Configured = false

	items := []models.RelationInput{{ContentType: models.ContentTypeExternal, URL: testAmazonURL}}
	result, err := f.services.Relations.SetRelations(context.Background(), 1, "list", items)
	if err != nil {
		t.Fatalf("SetRelations failed: %v", err)
	}
	if f.client.CallCount() != 0 {
		t.Error("Scraper should not be called without credentials")
	}
	if len(result.Errors) != 0 {
		t.Errorf("Missing credentials is not an error, got %+v", result.Errors)
	}
	if result.Items[0].ASIN != nil {
		t.Error("Link should be treated as a plain external link")
	}
}

func TestSetRelations_ImportsThumbnailURI(t *testing.T) {
	f := newFixture(t)

	items := []models.RelationInput{{
		ContentType:  models.ContentTypeExternal,
		URL:          "https://example.com/recipe",
		ThumbnailURI: "https://example.com/image.jpg",
	}}
	result, err := f.services.Relations.SetRelations(context.Background(), 1, "list", items)
	if err != nil {
		t.Fatalf("SetRelations failed: %v", err)
	}

	if len(f.repos.Media.Imported) != 1 {
		t.Fatalf("Expected thumbnail import, got %v", f.repos.Media.Imported)
	}
	if result.Items[0].ThumbnailID == nil {
		t.Error("Imported attachment id should be assigned")
	}
}

func TestSetRelations_ValidationErrorsSkipItem(t *testing.T) {
	f := newFixture(t)

	items := []models.RelationInput{
		{Index: 0, ContentType: "video"},
		{Index: 1, ContentType: models.ContentTypeExternal},
		{Index: 2, ContentType: models.ContentTypeCard, RelationID: relationID(1)},
	}
	result, err := f.services.Relations.SetRelations(context.Background(), 1, "list", items)
	if err != nil {
		t.Fatalf("SetRelations failed: %v", err)
	}
	if len(result.Items) != 1 {
		t.Errorf("Expected 1 valid relation saved, got %d", len(result.Items))
	}
	if len(result.Errors) != 2 {
		t.Errorf("Expected 2 item errors, got %+v", result.Errors)
	}
}

func TestSetRelations_ReplaceFailure(t *testing.T) {
	f := newFixture(t)
	f.repos.Relation.ReplaceError = mocks.ErrMock

	_, err := f.services.Relations.SetRelations(context.Background(), 1, "list", []models.RelationInput{
		{ContentType: models.ContentTypeCard, RelationID: relationID(1)},
	})
	if !errors.Is(err, mocks.ErrMock) {
		t.Errorf("Expected wrapped ErrMock, got %v", err)
	}
}

func TestGetRelations_SortedByPosition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	items := []models.RelationInput{
		{ContentType: models.ContentTypeCard, RelationID: relationID(1), Position: intp(2)},
		{ContentType: models.ContentTypeCard, RelationID: relationID(2), Position: intp(0)},
		{ContentType: models.ContentTypeCard, RelationID: relationID(3), Position: intp(1)},
	}
	if _, err := f.services.Relations.SetRelations(ctx, 1, "list", items); err != nil {
		t.Fatalf("SetRelations failed: %v", err)
	}

	got, err := f.services.Relations.GetRelations(ctx, 1, "list")
	if err != nil {
		t.Fatalf("GetRelations failed: %v", err)
	}
	want := []int64{2, 3, 1}
	for i, rel := range got {
		if *rel.RelationID != want[i] {
			t.Errorf("Position %d: expected relation %d, got %d", i, want[i], *rel.RelationID)
		}
	}
}

func TestSortByPosition_NullPositionsCompareEqual(t *testing.T) {
	rels := []*models.Relation{
		{ID: 1, Position: intp(3)},
		{ID: 2},
		{ID: 3, Position: intp(1)},
	}
	service.SortRelationsByPosition(rels)

	// no comparison moves anything across the null entry
	for i, want := range []int64{1, 2, 3} {
		if rels[i].ID != want {
			t.Errorf("Index %d: expected id %d, got %d", i, want, rels[i].ID)
		}
	}
}

func TestDeleteRelations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.services.Relations.SetRelations(ctx, 1, "list", []models.RelationInput{
		{ContentType: models.ContentTypeCard, RelationID: relationID(1)},
		{ContentType: models.ContentTypeCard, RelationID: relationID(2)},
	})

	n, err := f.services.Relations.DeleteRelations(ctx, 1, "list")
	if err != nil {
		t.Fatalf("DeleteRelations failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Expected 2 deleted, got %d", n)
	}
}

func TestUpsertProductMap_ReusesFreshProduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	asin := testASIN
	expires := time.Now().Add(24 * time.Hour)
	meta := scraped(testASIN, "https://images.example.com/p.jpg", expires)
	existing := f.repos.Product.Seed(&models.Product{
		ASIN:    &asin,
		Link:    testAmazonURL,
		Title:   "Stand mixer",
		Meta:    meta.Meta(),
		Expires: &expires,
	})

	result, err := f.services.Products.UpsertProductMap(ctx, 1, []models.ProductMapInput{{Link: testAmazonURL}})
	if err != nil {
		t.Fatalf("UpsertProductMap failed: %v", err)
	}
	if f.client.CallCount() != 0 {
		t.Errorf("Fresh product should not be scraped, got %d calls", f.client.CallCount())
	}
	if len(result.Items) != 1 || result.Items[0].ProductID != existing.ID {
		t.Fatalf("Expected map row for product %d, got %+v", existing.ID, result.Items)
	}
	if result.Items[0].Title != "Stand mixer" {
		t.Errorf("Row title should fall back to the product title, got %q", result.Items[0].Title)
	}
}

func TestUpsertProductMap_ScrapesExpiredProduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	asin := testASIN
	expired := time.Now().Add(-time.Hour)
	f.repos.Product.Seed(&models.Product{ASIN: &asin, Link: testAmazonURL, Meta: json.RawMessage(`{}`), Expires: &expired})
	fresh := time.Now().Add(24 * time.Hour)
	f.client.Products[testASIN] = scraped(testASIN, "https://images.example.com/fresh.jpg", fresh)

	result, err := f.services.Products.UpsertProductMap(ctx, 1, []models.ProductMapInput{{Link: testAmazonURL}})
	if err != nil {
		t.Fatalf("UpsertProductMap failed: %v", err)
	}
	if f.client.CallCount() != 1 {
		t.Errorf("Expired product should be scraped once, got %d calls", f.client.CallCount())
	}
	p := result.Items[0].Product
	if p == nil || p.Expires == nil || !p.Expires.Equal(fresh) {
		t.Errorf("Expected refreshed expiry on the shared product, got %+v", p)
	}
	if len(f.repos.Product.Products) != 1 {
		t.Errorf("Product should be upserted in place, got %d rows", len(f.repos.Product.Products))
	}
}

func TestUpsertProductMap_DedupByProduct(t *testing.T) {
	f := newFixture(t)
	f.client.Configured = false

	items := []models.ProductMapInput{
		{Index: 0, Link: "https://shop.example.com/knife", Title: "Knife", Position: intp(1)},
		{Index: 1, Link: "https://shop.example.com/knife", Title: "Knife again", Position: intp(0)},
		{Index: 2, Link: "https://shop.example.com/board", Title: "Board", Position: intp(2)},
	}
	result, err := f.services.Products.UpsertProductMap(context.Background(), 1, items)
	if err != nil {
		t.Fatalf("UpsertProductMap failed: %v", err)
	}
	if len(result.Items) != 2 {
		t.Fatalf("Expected 2 rows after dedup, got %d", len(result.Items))
	}
	if result.Items[0].Title != "Knife" {
		t.Errorf("First occurrence should win, got %q", result.Items[0].Title)
	}
	if len(f.repos.ProductMap.DeletedIDs) != 1 {
		t.Errorf("Expected the duplicate map row deleted, got %v", f.repos.ProductMap.DeletedIDs)
	}
}

func TestUpsertProductMap_UserThumbnailClearsExpiry(t *testing.T) {
	f := newFixture(t)
	f.client.Products[testASIN] = scraped(testASIN, "https://images.example.com/p.jpg", time.Now().Add(time.Hour))
	f.repos.Media.Add(7, "https://cdn.example.com/uploads/mine.jpg")

	result, err := f.services.Products.UpsertProductMap(context.Background(), 1, []models.ProductMapInput{
		{Link: testAmazonURL, ThumbnailID: relationID(7)},
	})
	if err != nil {
		t.Fatalf("UpsertProductMap failed: %v", err)
	}
	p := result.Items[0].Product
	if p.Expires != nil {
		t.Errorf("Expected expires cleared, got %v", p.Expires)
	}
	if p.ExternalThumbnailURL != "https://cdn.example.com/uploads/mine.jpg" {
		t.Errorf("Unexpected thumbnail %q", p.ExternalThumbnailURL)
	}
}

func TestUpsertProductMap_RelinkedProductKeepsSharedRow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	asin := testASIN
	expires := time.Now().Add(24 * time.Hour)
	meta := scraped(testASIN, "https://images.example.com/a.jpg", expires)
	shared := f.repos.Product.Seed(&models.Product{
		ASIN:    &asin,
		Link:    testAmazonURL,
		Title:   "Stand mixer",
		Meta:    meta.Meta(),
		Expires: &expires,
	})

	otherASIN := "B000000002"
	otherURL := "https://www.amazon.com/dp/" + otherASIN
	f.client.Errors[otherASIN] = errors.New("scraper unavailable")

	result, err := f.services.Products.UpsertProductMap(ctx, 1, []models.ProductMapInput{
		{ProductID: relationID(shared.ID), Link: otherURL},
	})
	if err != nil {
		t.Fatalf("UpsertProductMap failed: %v", err)
	}
	if len(result.Errors) != 1 || result.Errors[0].Field != "link" {
		t.Errorf("Expected a link error for the failed scrape, got %+v", result.Errors)
	}

	row, _ := f.repos.Product.GetByID(ctx, shared.ID)
	if row.Link != testAmazonURL {
		t.Errorf("Shared product link should be untouched, got %q", row.Link)
	}
	if row.ASIN == nil || *row.ASIN != testASIN {
		t.Errorf("Shared product ASIN should be untouched, got %v", row.ASIN)
	}
	if len(result.Items) != 1 || result.Items[0].ProductID == shared.ID {
		t.Errorf("Relinked item should map to a new product, got %+v", result.Items)
	}
}

func TestSearchContent(t *testing.T) {
	f := newFixture(t)
	f.repos.Content.Creations = []*models.Creation{{ID: 1, Title: "Pancake recipe", Type: "recipe"}}
	f.repos.Content.Posts = []*models.Post{
		{ID: 10, Title: "Best pancake pans", URL: "https://example.com/pans"},
		{ID: 11, Title: "Waffles"},
	}

	results, err := f.services.Search.SearchContent(context.Background(), "  pancake ", 0)
	if err != nil {
		t.Fatalf("SearchContent failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}
	if results[0].ContentType != models.ContentTypeCard || results[1].ContentType != models.ContentTypePost {
		t.Errorf("Expected card then post, got %+v", results)
	}

	empty, err := f.services.Search.SearchContent(context.Background(), "   ", 10)
	if err != nil || len(empty) != 0 {
		t.Errorf("Blank query should return nothing, got %v %v", empty, err)
	}
}

func TestSearchContent_RepositoryError(t *testing.T) {
	f := newFixture(t)
	f.repos.Content.Err = mocks.ErrMock

	if _, err := f.services.Search.SearchContent(context.Background(), "x", 5); !errors.Is(err, mocks.ErrMock) {
		t.Errorf("Expected ErrMock, got %v", err)
	}
}
