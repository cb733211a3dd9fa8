package service

import (
	"context"

	"github.com/clearstone-ma/be-diligence/internal/progress"
	"github.com/clearstone-ma/be-diligence/internal/repository"
)

// Storage interfaces consumed by the services. The Postgres repositories in
// internal/repository satisfy them; tests substitute in-memory fakes.

type DealStore interface {
	Create(ctx context.Context, deal *repository.Deal) error
	GetByID(ctx context.Context, id string) (*repository.Deal, error)
	List(ctx context.Context, status *repository.DealStatus, limit, offset int) ([]*repository.Deal, int64, error)
	UpdateStatus(ctx context.Context, id string, status repository.DealStatus) error
	CountRequests(ctx context.Context, id string) (int64, error)
	Delete(ctx context.Context, id string) error
}

type RequestStore interface {
	Create(ctx context.Context, req *repository.Request) error
	CreateBatch(ctx context.Context, reqs []*repository.Request) error
	GetByID(ctx context.Context, id string) (*repository.Request, error)
	ListByDeal(ctx context.Context, dealID string, filter repository.RequestFilter, limit, offset int) ([]*repository.Request, int64, error)
	UpdateApproval(ctx context.Context, id string, status progress.ApprovalStatus) error
	Approve(ctx context.Context, id string, approvedBy string, notes *string) error
	Reject(ctx context.Context, id, rejectedBy, reason string) error
	AssignStage(ctx context.Context, id string, stageID *string) error
	Delete(ctx context.Context, id string) error
}

type StageStore interface {
	Create(ctx context.Context, stage *repository.Stage) error
	GetByID(ctx context.Context, id string) (*repository.Stage, error)
	ListByDeal(ctx context.Context, dealID string, activeOnly bool) ([]*repository.Stage, error)
	Update(ctx context.Context, stage *repository.Stage) error
	Reorder(ctx context.Context, dealID string, stageIDs []string) error
	Delete(ctx context.Context, id string) error
}

type ResponseStore interface {
	Create(ctx context.Context, resp *repository.Response) error
	ListByRequest(ctx context.Context, requestID string) ([]*repository.Response, error)
}

type DocumentStore interface {
	Create(ctx context.Context, doc *repository.Document) error
	ListByRequest(ctx context.Context, requestID string) ([]*repository.Document, error)
	Delete(ctx context.Context, id string) error
}

type TemplateStore interface {
	Create(ctx context.Context, tpl *repository.Template) error
	GetByID(ctx context.Context, id string) (*repository.Template, error)
	List(ctx context.Context, activeOnly bool) ([]*repository.Template, error)
	SetActive(ctx context.Context, id string, active bool) error
}

type AuditStore interface {
	Append(ctx context.Context, entry *repository.AuditEntry) error
	GetByRequestID(ctx context.Context, requestID string) ([]*repository.AuditEntry, error)
	GetByDealID(ctx context.Context, dealID string, limit int) ([]*repository.AuditEntry, error)
}

// EventPublisher is the notification fan-out. Implementations must be
// non-fatal: publish failures are swallowed and logged, never returned.
type EventPublisher interface {
	PublishRequestEvent(eventType, requestID, dealID, actorID string, payload map[string]interface{})
	PublishStageEvent(eventType, stageID, dealID, actorID string, payload map[string]interface{})
	PublishDealEvent(eventType, dealID, actorID string, payload map[string]interface{})
}
