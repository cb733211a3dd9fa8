package service

import (
	"context"
	"strings"

	"github.com/clearstone-ma/be-diligence/internal/errors"
	"github.com/clearstone-ma/be-diligence/internal/logger"
	"github.com/clearstone-ma/be-diligence/internal/progress"
	"github.com/clearstone-ma/be-diligence/internal/repository"
)

// StageService manages deal stages and computes the stage board: per-stage
// completion plus gate state from the progress engine.
type StageService struct {
	stageRepo   StageStore
	requestRepo RequestStore
	log         *logger.Logger
}

// NewStageService creates a new stage service.
func NewStageService(stageRepo StageStore, requestRepo RequestStore, log *logger.Logger) *StageService {
	return &StageService{stageRepo: stageRepo, requestRepo: requestRepo, log: log}
}

// CreateStageRequest represents a create stage payload.
type CreateStageRequest struct {
	DealID              string  `json:"deal_id"`
	Name                string  `json:"name"`
	Description         *string `json:"description"`
	CompletionThreshold int     `json:"completion_threshold"`
}

// UpdateStageRequest represents mutable stage fields.
type UpdateStageRequest struct {
	ID                  string  `json:"id"`
	Name                string  `json:"name"`
	Description         *string `json:"description"`
	CompletionThreshold int     `json:"completion_threshold"`
	IsActive            bool    `json:"is_active"`
}

// BoardStage is one stage on the deal board with its rollup and gate state.
type BoardStage struct {
	Stage    *repository.Stage      `json:"stage"`
	Progress progress.GroupProgress `json:"progress"`
	Unlocked bool                   `json:"unlocked"`
}

// Board is the full stage view of a deal. Unassigned covers requests with
// no stage; it is nil when every request is staged.
type Board struct {
	DealID     string                  `json:"deal_id"`
	Stages     []*BoardStage           `json:"stages"`
	Unassigned *progress.GroupProgress `json:"unassigned,omitempty"`
}

// CreateStage appends a stage to the end of a deal's workflow.
func (s *StageService) CreateStage(ctx context.Context, req *CreateStageRequest) (*repository.Stage, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, errors.InvalidInput("name", "stage name is required")
	}
	if req.CompletionThreshold < 0 || req.CompletionThreshold > 100 {
		return nil, errors.InvalidInput("completion_threshold", "threshold must be between 0 and 100")
	}

	existing, err := s.stageRepo.ListByDeal(ctx, req.DealID, false)
	if err != nil {
		return nil, err
	}
	nextOrder := 1
	for _, st := range existing {
		if st.SortOrder >= nextOrder {
			nextOrder = st.SortOrder + 1
		}
	}

	stage := &repository.Stage{
		DealID:              req.DealID,
		Name:                strings.TrimSpace(req.Name),
		Description:         req.Description,
		SortOrder:           nextOrder,
		CompletionThreshold: req.CompletionThreshold,
		IsActive:            true,
	}
	if err := s.stageRepo.Create(ctx, stage); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("stage_id", stage.ID).
		Str("deal_id", stage.DealID).
		Int("sort_order", stage.SortOrder).
		Msg("Stage created")

	return stage, nil
}

// GetStage retrieves a stage by ID.
func (s *StageService) GetStage(ctx context.Context, id string) (*repository.Stage, error) {
	return s.stageRepo.GetByID(ctx, id)
}

// ListStages returns a deal's stages in workflow order.
func (s *StageService) ListStages(ctx context.Context, dealID string, activeOnly bool) ([]*repository.Stage, error) {
	return s.stageRepo.ListByDeal(ctx, dealID, activeOnly)
}

// UpdateStage persists stage edits.
func (s *StageService) UpdateStage(ctx context.Context, req *UpdateStageRequest) (*repository.Stage, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, errors.InvalidInput("name", "stage name is required")
	}
	if req.CompletionThreshold < 0 || req.CompletionThreshold > 100 {
		return nil, errors.InvalidInput("completion_threshold", "threshold must be between 0 and 100")
	}

	stage, err := s.stageRepo.GetByID(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	stage.Name = strings.TrimSpace(req.Name)
	stage.Description = req.Description
	stage.CompletionThreshold = req.CompletionThreshold
	stage.IsActive = req.IsActive

	if err := s.stageRepo.Update(ctx, stage); err != nil {
		return nil, err
	}

	s.log.Info().Str("stage_id", stage.ID).Msg("Stage updated")
	return stage, nil
}

// ReorderStages rewrites a deal's workflow order to match the given ID list.
// Every stage of the deal must appear exactly once.
func (s *StageService) ReorderStages(ctx context.Context, dealID string, stageIDs []string) ([]*repository.Stage, error) {
	existing, err := s.stageRepo.ListByDeal(ctx, dealID, false)
	if err != nil {
		return nil, err
	}
	if len(stageIDs) != len(existing) {
		return nil, errors.InvalidInput("stage_ids", "reorder must list every stage of the deal exactly once")
	}
	known := make(map[string]bool, len(existing))
	for _, st := range existing {
		known[st.ID] = true
	}
	seen := make(map[string]bool, len(stageIDs))
	for _, id := range stageIDs {
		if !known[id] {
			return nil, errors.InvalidInput("stage_ids", "unknown stage id "+id)
		}
		if seen[id] {
			return nil, errors.InvalidInput("stage_ids", "duplicate stage id "+id)
		}
		seen[id] = true
	}

	if err := s.stageRepo.Reorder(ctx, dealID, stageIDs); err != nil {
		return nil, err
	}

	s.log.Info().Str("deal_id", dealID).Int("stages", len(stageIDs)).Msg("Stages reordered")
	return s.stageRepo.ListByDeal(ctx, dealID, false)
}

// DeleteStage removes a stage; its requests become unassigned.
func (s *StageService) DeleteStage(ctx context.Context, id string) error {
	if _, err := s.stageRepo.GetByID(ctx, id); err != nil {
		return err
	}
	if err := s.stageRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info().Str("stage_id", id).Msg("Stage deleted")
	return nil
}

// DealBoard fetches the deal's active stages and requests, runs the progress
// engine, and returns per-stage completion with gate state. Stages with no
// requests get a zero-value rollup so the board always shows every stage.
func (s *StageService) DealBoard(ctx context.Context, dealID string) (*Board, error) {
	stages, err := s.stageRepo.ListByDeal(ctx, dealID, true)
	if err != nil {
		return nil, err
	}

	requests, _, err := s.requestRepo.ListByDeal(ctx, dealID, repository.RequestFilter{}, 0, 0)
	if err != nil {
		return nil, err
	}

	items := make([]progress.Item, 0, len(requests))
	for _, r := range requests {
		items = append(items, toItem(r))
	}
	groups := progress.Aggregate(items, progress.GroupByStage)
	byID := progress.ProgressByID(groups)

	refs := make([]progress.StageRef, 0, len(stages))
	for _, st := range stages {
		refs = append(refs, progress.StageRef{
			ID:                  st.ID,
			SortOrder:           st.SortOrder,
			CompletionThreshold: st.CompletionThreshold,
		})
	}

	board := &Board{DealID: dealID, Stages: make([]*BoardStage, 0, len(stages))}
	for i, st := range stages {
		gp, ok := byID[st.ID]
		if !ok {
			gp = progress.GroupProgress{Key: st.ID}
		}
		board.Stages = append(board.Stages, &BoardStage{
			Stage:    st,
			Progress: gp,
			Unlocked: progress.IsUnlocked(refs[i], i, refs, byID),
		})
	}
	if gp, ok := byID[progress.StageUnassigned]; ok {
		board.Unassigned = &gp
	}
	return board, nil
}
