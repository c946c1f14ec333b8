package service

import (
	"time"

	"github.com/creations-api/internal/models"
	"github.com/creations-api/internal/queue"
)

// SetRefreshClock replaces the clock used by the refresh sweep
func SetRefreshClock(r RefreshService, now func() time.Time) {
	r.(*refreshService).now = now
}

// RefreshQueues returns the relations and products queues behind r
func RefreshQueues(r RefreshService) (*queue.Queue, *queue.Queue) {
	rs := r.(*refreshService)
	return rs.relations, rs.products
}

func SortRelationsByPosition(rels []*models.Relation) {
	sortByPosition(rels, func(r *models.Relation) *int { return r.Position })
}
