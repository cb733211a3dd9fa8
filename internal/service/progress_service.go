package service

import (
	"context"

	"github.com/clearstone-ma/be-diligence/internal/progress"
	"github.com/clearstone-ma/be-diligence/internal/repository"
)

// ProgressService exposes the deal-level rollups: completion by category and
// by stage. It is a thin fetch-classify-aggregate composition over the
// progress engine; nothing here is persisted.
type ProgressService struct {
	requestRepo RequestStore
}

// NewProgressService creates a new progress service.
func NewProgressService(requestRepo RequestStore) *ProgressService {
	return &ProgressService{requestRepo: requestRepo}
}

// CategoryProgress returns completion per category for a deal.
func (s *ProgressService) CategoryProgress(ctx context.Context, dealID string) ([]progress.GroupProgress, error) {
	return s.aggregate(ctx, dealID, progress.GroupByCategory)
}

// StageProgress returns completion per stage for a deal, including the
// unassigned pseudo-group when present.
func (s *ProgressService) StageProgress(ctx context.Context, dealID string) ([]progress.GroupProgress, error) {
	return s.aggregate(ctx, dealID, progress.GroupByStage)
}

func (s *ProgressService) aggregate(ctx context.Context, dealID string, by progress.GroupBy) ([]progress.GroupProgress, error) {
	requests, _, err := s.requestRepo.ListByDeal(ctx, dealID, repository.RequestFilter{}, 0, 0)
	if err != nil {
		return nil, err
	}

	items := make([]progress.Item, 0, len(requests))
	for _, r := range requests {
		items = append(items, toItem(r))
	}
	return progress.Aggregate(items, by), nil
}
