package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/clearstone-ma/be-diligence/internal/errors"
	"github.com/clearstone-ma/be-diligence/internal/logger"
	"github.com/clearstone-ma/be-diligence/internal/repository"
)

// DealService handles deal business logic.
type DealService struct {
	dealRepo DealStore
	log      *logger.Logger
}

// NewDealService creates a new deal service.
func NewDealService(dealRepo DealStore, log *logger.Logger) *DealService {
	return &DealService{dealRepo: dealRepo, log: log}
}

// CreateDealRequest represents a create deal request.
type CreateDealRequest struct {
	Name          string  `json:"name"`
	Code          string  `json:"code"`
	TargetCompany *string `json:"target_company"`
	Description   *string `json:"description"`
	CreatedBy     string  `json:"created_by"`
}

// CreateDeal creates a new deal in active status.
func (s *DealService) CreateDeal(ctx context.Context, req *CreateDealRequest) (*repository.Deal, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, errors.InvalidInput("name", "deal name is required")
	}
	if strings.TrimSpace(req.Code) == "" {
		return nil, errors.InvalidInput("code", "deal code is required")
	}

	deal := &repository.Deal{
		Name:          strings.TrimSpace(req.Name),
		Code:          strings.ToUpper(strings.TrimSpace(req.Code)),
		Status:        repository.DealActive,
		TargetCompany: req.TargetCompany,
		Description:   req.Description,
	}
	if req.CreatedBy != "" {
		deal.CreatedBy = &req.CreatedBy
	}

	if err := s.dealRepo.Create(ctx, deal); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("deal_id", deal.ID).
		Str("deal_code", deal.Code).
		Msg("Deal created")

	return deal, nil
}

// GetDeal retrieves a deal by ID.
func (s *DealService) GetDeal(ctx context.Context, id string) (*repository.Deal, error) {
	return s.dealRepo.GetByID(ctx, id)
}

// ListDeals lists deals with an optional status filter and pagination.
func (s *DealService) ListDeals(ctx context.Context, status *string, page, pageSize int) ([]*repository.Deal, int64, error) {
	var statusFilter *repository.DealStatus
	if status != nil {
		st, err := parseDealStatus(*status)
		if err != nil {
			return nil, 0, err
		}
		statusFilter = &st
	}

	offset := (page - 1) * pageSize
	return s.dealRepo.List(ctx, statusFilter, pageSize, offset)
}

// UpdateDealStatus transitions a deal to a new status. Archived is terminal.
func (s *DealService) UpdateDealStatus(ctx context.Context, id, status string) (*repository.Deal, error) {
	newStatus, err := parseDealStatus(status)
	if err != nil {
		return nil, err
	}

	deal, err := s.dealRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if deal.Status == repository.DealArchived {
		return nil, errors.Conflict("archived deals cannot change status")
	}
	if deal.Status == newStatus {
		return deal, nil
	}

	if err := s.dealRepo.UpdateStatus(ctx, id, newStatus); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("deal_id", id).
		Str("from", string(deal.Status)).
		Str("to", string(newStatus)).
		Msg("Deal status updated")

	return s.dealRepo.GetByID(ctx, id)
}

// DeleteDeal removes a deal that has no requests attached.
func (s *DealService) DeleteDeal(ctx context.Context, id string) error {
	if _, err := s.dealRepo.GetByID(ctx, id); err != nil {
		return err
	}

	n, err := s.dealRepo.CountRequests(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return errors.Conflict(fmt.Sprintf("cannot delete deal with %d requests attached", n))
	}

	if err := s.dealRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.log.Info().Str("deal_id", id).Msg("Deal deleted")
	return nil
}

func parseDealStatus(s string) (repository.DealStatus, error) {
	switch repository.DealStatus(s) {
	case repository.DealActive, repository.DealOnHold, repository.DealClosed, repository.DealArchived:
		return repository.DealStatus(s), nil
	default:
		return "", errors.InvalidInput("status", fmt.Sprintf("unknown deal status %q", s))
	}
}
