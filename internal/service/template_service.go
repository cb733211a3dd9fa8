package service

import (
	"context"
	"strings"

	"github.com/clearstone-ma/be-diligence/internal/errors"
	"github.com/clearstone-ma/be-diligence/internal/logger"
	"github.com/clearstone-ma/be-diligence/internal/progress"
	"github.com/clearstone-ma/be-diligence/internal/repository"
)

// TemplateService manages questionnaire templates and applies them to deals.
type TemplateService struct {
	templateRepo TemplateStore
	requestRepo  RequestStore
	stageRepo    StageStore
	dealRepo     DealStore
	publisher    EventPublisher
	log          *logger.Logger
}

// NewTemplateService creates a new template service.
func NewTemplateService(
	templateRepo TemplateStore,
	requestRepo RequestStore,
	stageRepo StageStore,
	dealRepo DealStore,
	publisher EventPublisher,
	log *logger.Logger,
) *TemplateService {
	return &TemplateService{
		templateRepo: templateRepo,
		requestRepo:  requestRepo,
		stageRepo:    stageRepo,
		dealRepo:     dealRepo,
		publisher:    publisher,
		log:          log,
	}
}

// CreateTemplateRequest represents a create template payload.
type CreateTemplateRequest struct {
	Name        string                `json:"name"`
	Description *string               `json:"description"`
	Items       []TemplateItemRequest `json:"items"`
}

// TemplateItemRequest is one request blueprint within a create payload.
type TemplateItemRequest struct {
	Category    string  `json:"category"`
	Priority    string  `json:"priority"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
}

// ApplyTemplateRequest applies a template's items to a deal.
type ApplyTemplateRequest struct {
	TemplateID string  `json:"template_id"`
	DealID     string  `json:"deal_id"`
	StageID    *string `json:"stage_id"`
	AppliedBy  string  `json:"applied_by"`
}

// CreateTemplate creates a template with its items.
func (s *TemplateService) CreateTemplate(ctx context.Context, req *CreateTemplateRequest) (*repository.Template, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, errors.InvalidInput("name", "template name is required")
	}
	if len(req.Items) < 1 {
		return nil, errors.InvalidInput("items", "template must have at least 1 item")
	}

	tpl := &repository.Template{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		IsActive:    true,
		Items:       make([]*repository.TemplateItem, 0, len(req.Items)),
	}

	for i, itemReq := range req.Items {
		category, err := progress.ParseCategory(strings.ToLower(itemReq.Category))
		if err != nil {
			return nil, errors.InvalidInput("items.category", err.Error())
		}
		priority, err := progress.ParsePriority(strings.ToLower(itemReq.Priority))
		if err != nil {
			return nil, errors.InvalidInput("items.priority", err.Error())
		}
		if strings.TrimSpace(itemReq.Title) == "" {
			return nil, errors.InvalidInput("items.title", "item title is required")
		}

		tpl.Items = append(tpl.Items, &repository.TemplateItem{
			Category:    category,
			Priority:    priority,
			Title:       strings.TrimSpace(itemReq.Title),
			Description: itemReq.Description,
			SortOrder:   i + 1,
		})
	}

	if err := s.templateRepo.Create(ctx, tpl); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("template_id", tpl.ID).
		Str("name", tpl.Name).
		Int("item_count", len(tpl.Items)).
		Msg("Template created")

	return tpl, nil
}

// GetTemplate retrieves a template with items.
func (s *TemplateService) GetTemplate(ctx context.Context, id string) (*repository.Template, error) {
	return s.templateRepo.GetByID(ctx, id)
}

// ListTemplates lists templates without their items.
func (s *TemplateService) ListTemplates(ctx context.Context, activeOnly bool) ([]*repository.Template, error) {
	return s.templateRepo.List(ctx, activeOnly)
}

// DeactivateTemplate hides a template from future application without
// touching requests already created from it.
func (s *TemplateService) DeactivateTemplate(ctx context.Context, id string) error {
	return s.templateRepo.SetActive(ctx, id, false)
}

// ApplyTemplate creates one pending request per template item on the target
// deal, all in a single transaction.
func (s *TemplateService) ApplyTemplate(ctx context.Context, req *ApplyTemplateRequest) ([]*repository.Request, error) {
	tpl, err := s.templateRepo.GetByID(ctx, req.TemplateID)
	if err != nil {
		return nil, err
	}
	if !tpl.IsActive {
		return nil, errors.Conflict("cannot apply an inactive template")
	}
	if len(tpl.Items) == 0 {
		return nil, errors.Conflict("template has no items")
	}

	deal, err := s.dealRepo.GetByID(ctx, req.DealID)
	if err != nil {
		return nil, err
	}
	if deal.Status == repository.DealArchived {
		return nil, errors.Conflict("cannot apply a template to an archived deal")
	}

	if req.StageID != nil {
		stage, err := s.stageRepo.GetByID(ctx, *req.StageID)
		if err != nil {
			return nil, err
		}
		if stage.DealID != req.DealID {
			return nil, errors.InvalidInput("stage_id", "stage belongs to a different deal")
		}
	}

	requests := make([]*repository.Request, 0, len(tpl.Items))
	for _, item := range tpl.Items {
		r := &repository.Request{
			DealID:      req.DealID,
			StageID:     req.StageID,
			Category:    item.Category,
			Priority:    item.Priority,
			Title:       item.Title,
			Description: item.Description,
			Approval:    progress.ApprovalPending,
		}
		if req.AppliedBy != "" {
			r.CreatedBy = &req.AppliedBy
		}
		requests = append(requests, r)
	}

	if err := s.requestRepo.CreateBatch(ctx, requests); err != nil {
		return nil, err
	}
	for _, r := range requests {
		r.DerivedStatus = progress.Classify(toItem(r))
	}

	s.publisher.PublishDealEvent("template_applied", req.DealID, req.AppliedBy,
		map[string]interface{}{"template_id": tpl.ID, "request_count": len(requests)})

	s.log.Info().
		Str("template_id", tpl.ID).
		Str("deal_id", req.DealID).
		Int("request_count", len(requests)).
		Msg("Template applied")

	return requests, nil
}
