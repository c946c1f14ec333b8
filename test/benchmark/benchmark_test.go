package benchmark

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/creations-api/internal/config"
	"github.com/creations-api/internal/kvstore"
	"github.com/creations-api/internal/mocks"
	"github.com/creations-api/internal/models"
	"github.com/creations-api/internal/queue"
	"github.com/creations-api/internal/service"
	"github.com/creations-api/internal/validation"
	"github.com/rs/zerolog"
)

// BenchmarkQueuePushManyDedup benchmarks a sweep-sized batch pushed onto a
// queue that already holds half of it
func BenchmarkQueuePushManyDedup(b *testing.B) {
	ctx := context.Background()
	batch := make([]any, 50)
	for i := range batch {
		batch[i] = int64(i)
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		b.StopTimer()
		q, _ := queue.New(kvstore.NewMemory(), "bench_queue")
		q.PushMany(ctx, batch[:25], false)
		b.StartTimer()

		if _, _, err := q.PushMany(ctx, batch, false); err != nil {
			b.Fatal(err)
		}
	}

	b.ReportMetric(float64(50*b.N)/b.Elapsed().Seconds(), "items/sec")
}

// BenchmarkQueueStep benchmarks lock, shift and unlock on a 1000-item queue
func BenchmarkQueueStep(b *testing.B) {
	ctx := context.Background()
	q, _ := queue.New(kvstore.NewMemory(), "bench_queue")
	noop := func(context.Context, queue.Item) error { return nil }

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if i%1000 == 0 {
			b.StopTimer()
			items := make([]any, 1000)
			for j := range items {
				items[j] = j
			}
			q.PushMany(ctx, items, true)
			b.StartTimer()
		}
		if err := q.Step(ctx, noop); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkDecodeRelations benchmarks decoding an editor payload
func BenchmarkDecodeRelations(b *testing.B) {
	items := make([]map[string]any, 200)
	for i := range items {
		items[i] = map[string]any{
			"content_type": "card",
			"relation_id":  fmt.Sprint(i + 1),
			"position":     i,
			"title":        "Card " + fmt.Sprint(i),
			"nofollow":     "1",
		}
	}
	raw, _ := json.Marshal(items)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if _, _, err := models.DecodeRelationInputs(raw); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkValidation benchmarks relation validation
func BenchmarkValidation(b *testing.B) {
	validator := validation.NewValidator()
	item := &models.RelationInput{
		ContentType:  models.ContentTypeExternal,
		URL:          "https://www.example.com/recipes/pancakes",
		ThumbnailURI: "https://images.example.com/pancakes.jpg",
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		validator.ValidateRelation(item)
	}
}

// BenchmarkSetRelations benchmarks a full save with duplicate cleanup
func BenchmarkSetRelations(b *testing.B) {
	repos, _ := mocks.NewRepositories()
	client := mocks.NewMockAmazonClient()
	client.Configured = false
	cfg := &config.Config{Queue: config.QueueConfig{AmazonLockTimeout: time.Hour, SweepLimit: 50, PollInterval: time.Second}}
	services, err := service.NewServices(repos, kvstore.NewMemory(), client, cfg, zerolog.Nop())
	if err != nil {
		b.Fatal(err)
	}

	items := make([]models.RelationInput, 100)
	for i := range items {
		pos := i
		items[i] = models.RelationInput{
			Index:       i,
			ContentType: models.ContentTypeCard,
			RelationID:  models.NullableID{Value: int64(i%80 + 1), Valid: true},
			Position:    &pos,
		}
	}

	ctx := context.Background()
	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if _, err := services.Relations.SetRelations(ctx, 1, "list", items); err != nil {
			b.Fatal(err)
		}
	}

	b.ReportMetric(float64(100*b.N)/b.Elapsed().Seconds(), "rows/sec")
}
