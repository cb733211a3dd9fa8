package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/clearstone-ma/be-diligence/internal/errors"
	"github.com/clearstone-ma/be-diligence/internal/logger"
	"github.com/clearstone-ma/be-diligence/internal/progress"
	"github.com/clearstone-ma/be-diligence/internal/repository"
)

// RequestService handles diligence request business logic: creation,
// evidence submission, the approve/reject lifecycle and stage assignment.
type RequestService struct {
	requestRepo  RequestStore
	stageRepo    StageStore
	responseRepo ResponseStore
	documentRepo DocumentStore
	auditRepo    AuditStore
	publisher    EventPublisher
	log          *logger.Logger
}

// NewRequestService creates a new request service.
func NewRequestService(
	requestRepo RequestStore,
	stageRepo StageStore,
	responseRepo ResponseStore,
	documentRepo DocumentStore,
	auditRepo AuditStore,
	publisher EventPublisher,
	log *logger.Logger,
) *RequestService {
	return &RequestService{
		requestRepo:  requestRepo,
		stageRepo:    stageRepo,
		responseRepo: responseRepo,
		documentRepo: documentRepo,
		auditRepo:    auditRepo,
		publisher:    publisher,
		log:          log,
	}
}

// CreateRequestRequest represents a create request payload.
type CreateRequestRequest struct {
	DealID      string  `json:"deal_id"`
	StageID     *string `json:"stage_id"`
	Category    string  `json:"category"`
	Priority    string  `json:"priority"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	DueDate     *string `json:"due_date"`
	CreatedBy   string  `json:"created_by"`
}

// SubmitResponseRequest represents a text response submission.
type SubmitResponseRequest struct {
	RequestID   string `json:"request_id"`
	Body        string `json:"body"`
	SubmittedBy string `json:"submitted_by"`
}

// AttachDocumentRequest represents an uploaded document's metadata.
type AttachDocumentRequest struct {
	RequestID   string `json:"request_id"`
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
	StorageKey  string `json:"storage_key"`
	UploadedBy  string `json:"uploaded_by"`
}

// ApproveRequestRequest represents an approval action.
type ApproveRequestRequest struct {
	ID         string  `json:"id"`
	ApprovedBy string  `json:"approved_by"`
	Notes      *string `json:"notes"`
}

// CreateRequest creates a new diligence request in pending status.
func (s *RequestService) CreateRequest(ctx context.Context, req *CreateRequestRequest) (*repository.Request, error) {
	category, err := progress.ParseCategory(strings.ToLower(req.Category))
	if err != nil {
		return nil, errors.InvalidInput("category", err.Error())
	}
	priority, err := progress.ParsePriority(strings.ToLower(req.Priority))
	if err != nil {
		return nil, errors.InvalidInput("priority", err.Error())
	}
	if strings.TrimSpace(req.Title) == "" {
		return nil, errors.InvalidInput("title", "title is required")
	}
	if req.DueDate != nil {
		if _, err := time.Parse("2006-01-02", *req.DueDate); err != nil {
			return nil, errors.InvalidInput("due_date", "invalid date format, expected YYYY-MM-DD")
		}
	}
	if req.StageID != nil {
		if err := s.assertStageInDeal(ctx, *req.StageID, req.DealID); err != nil {
			return nil, err
		}
	}

	request := &repository.Request{
		DealID:      req.DealID,
		StageID:     req.StageID,
		Category:    category,
		Priority:    priority,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Approval:    progress.ApprovalPending,
		DueDate:     req.DueDate,
	}
	if req.CreatedBy != "" {
		request.CreatedBy = &req.CreatedBy
	}

	if err := s.requestRepo.Create(ctx, request); err != nil {
		return nil, err
	}
	request.DerivedStatus = progress.Classify(toItem(request))

	s.appendAudit(ctx, &repository.AuditEntry{
		RequestID:   request.ID,
		DealID:      request.DealID,
		Action:      "created",
		PerformedBy: req.CreatedBy,
		Metadata:    map[string]interface{}{"category": string(category), "priority": string(priority)},
	})

	s.log.Info().
		Str("request_id", request.ID).
		Str("deal_id", request.DealID).
		Str("category", string(category)).
		Msg("Request created")

	return request, nil
}

// GetRequest retrieves a request with its derived status resolved.
func (s *RequestService) GetRequest(ctx context.Context, id string) (*repository.Request, error) {
	request, err := s.requestRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	request.DerivedStatus = progress.Classify(toItem(request))
	return request, nil
}

// ListRequests lists a deal's requests with filters, pagination and derived
// statuses resolved.
func (s *RequestService) ListRequests(ctx context.Context, dealID string, filter repository.RequestFilter, page, pageSize int) ([]*repository.Request, int64, error) {
	offset := (page - 1) * pageSize
	requests, total, err := s.requestRepo.ListByDeal(ctx, dealID, filter, pageSize, offset)
	if err != nil {
		return nil, 0, err
	}
	for _, r := range requests {
		r.DerivedStatus = progress.Classify(toItem(r))
	}
	return requests, total, nil
}

// AssignStage moves a request into a stage of the same deal, or clears the
// assignment with a nil stage ID.
func (s *RequestService) AssignStage(ctx context.Context, requestID string, stageID *string, actedBy string) (*repository.Request, error) {
	request, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if stageID != nil {
		if err := s.assertStageInDeal(ctx, *stageID, request.DealID); err != nil {
			return nil, err
		}
	}

	if err := s.requestRepo.AssignStage(ctx, requestID, stageID); err != nil {
		return nil, err
	}

	s.appendAudit(ctx, &repository.AuditEntry{
		RequestID:   requestID,
		DealID:      request.DealID,
		Action:      "stage_assigned",
		PerformedBy: actedBy,
		Metadata:    map[string]interface{}{"stage_id": derefOr(stageID, "")},
	})

	return s.GetRequest(ctx, requestID)
}

// SubmitResponse records a text answer against a request. A pending request
// moves to submitted; an approved request no longer accepts responses.
func (s *RequestService) SubmitResponse(ctx context.Context, req *SubmitResponseRequest) (*repository.Request, error) {
	if strings.TrimSpace(req.Body) == "" {
		return nil, errors.InvalidInput("body", "response body is required")
	}

	request, err := s.requestRepo.GetByID(ctx, req.RequestID)
	if err != nil {
		return nil, err
	}
	if request.Approval == progress.ApprovalApproved {
		return nil, errors.Conflict("cannot add a response to an approved request")
	}

	response := &repository.Response{
		RequestID:   req.RequestID,
		Body:        req.Body,
		SubmittedBy: req.SubmittedBy,
	}
	if err := s.responseRepo.Create(ctx, response); err != nil {
		return nil, err
	}

	if err := s.markSubmitted(ctx, request, req.SubmittedBy); err != nil {
		return nil, err
	}

	s.publisher.PublishRequestEvent("request_submitted", request.ID, request.DealID, req.SubmittedBy,
		map[string]interface{}{"kind": "response", "response_id": response.ID})

	s.log.Info().
		Str("request_id", request.ID).
		Str("response_id", response.ID).
		Msg("Response submitted")

	return s.GetRequest(ctx, req.RequestID)
}

// AttachDocument records an uploaded file's metadata against a request,
// with the same status rules as SubmitResponse.
func (s *RequestService) AttachDocument(ctx context.Context, req *AttachDocumentRequest) (*repository.Request, error) {
	if strings.TrimSpace(req.FileName) == "" {
		return nil, errors.InvalidInput("file_name", "file name is required")
	}
	if req.SizeBytes < 0 {
		return nil, errors.InvalidInput("size_bytes", "size cannot be negative")
	}
	if strings.TrimSpace(req.StorageKey) == "" {
		return nil, errors.InvalidInput("storage_key", "storage key is required")
	}

	request, err := s.requestRepo.GetByID(ctx, req.RequestID)
	if err != nil {
		return nil, err
	}
	if request.Approval == progress.ApprovalApproved {
		return nil, errors.Conflict("cannot attach a document to an approved request")
	}

	doc := &repository.Document{
		RequestID:   req.RequestID,
		FileName:    req.FileName,
		ContentType: req.ContentType,
		SizeBytes:   req.SizeBytes,
		StorageKey:  req.StorageKey,
		UploadedBy:  req.UploadedBy,
	}
	if err := s.documentRepo.Create(ctx, doc); err != nil {
		return nil, err
	}

	if err := s.markSubmitted(ctx, request, req.UploadedBy); err != nil {
		return nil, err
	}

	s.publisher.PublishRequestEvent("request_submitted", request.ID, request.DealID, req.UploadedBy,
		map[string]interface{}{"kind": "document", "document_id": doc.ID, "file_name": doc.FileName})

	s.log.Info().
		Str("request_id", request.ID).
		Str("document_id", doc.ID).
		Str("file_name", doc.FileName).
		Msg("Document attached")

	return s.GetRequest(ctx, req.RequestID)
}

// ListResponses returns the responses recorded against a request.
func (s *RequestService) ListResponses(ctx context.Context, requestID string) ([]*repository.Response, error) {
	if _, err := s.requestRepo.GetByID(ctx, requestID); err != nil {
		return nil, err
	}
	return s.responseRepo.ListByRequest(ctx, requestID)
}

// ListDocuments returns the document metadata recorded against a request.
func (s *RequestService) ListDocuments(ctx context.Context, requestID string) ([]*repository.Document, error) {
	if _, err := s.requestRepo.GetByID(ctx, requestID); err != nil {
		return nil, err
	}
	return s.documentRepo.ListByRequest(ctx, requestID)
}

// ApproveRequest accepts a submitted request. When the approval pushes a
// stage past its successor's threshold, a stage_unlocked event is published
// for each gate that flipped open.
func (s *RequestService) ApproveRequest(ctx context.Context, req *ApproveRequestRequest) (*repository.Request, error) {
	request, err := s.requestRepo.GetByID(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if request.Approval != progress.ApprovalSubmitted {
		return nil, errors.Conflict(
			fmt.Sprintf("cannot approve request with status '%s'", request.Approval))
	}

	unlockedBefore, err := s.unlockedStages(ctx, request.DealID)
	if err != nil {
		return nil, err
	}

	if err := s.requestRepo.Approve(ctx, req.ID, req.ApprovedBy, req.Notes); err != nil {
		return nil, err
	}

	statusBefore := string(progress.ApprovalSubmitted)
	statusAfter := string(progress.ApprovalApproved)
	s.appendAudit(ctx, &repository.AuditEntry{
		RequestID:      req.ID,
		DealID:         request.DealID,
		Action:         "approved",
		PerformedBy:    req.ApprovedBy,
		ApprovalBefore: &statusBefore,
		ApprovalAfter:  &statusAfter,
	})

	s.publisher.PublishRequestEvent("request_approved", req.ID, request.DealID, req.ApprovedBy, nil)

	unlockedAfter, err := s.unlockedStages(ctx, request.DealID)
	if err != nil {
		return nil, err
	}
	for stageID := range unlockedAfter {
		if !unlockedBefore[stageID] {
			s.publisher.PublishStageEvent("stage_unlocked", stageID, request.DealID, req.ApprovedBy, nil)
			s.log.Info().
				Str("deal_id", request.DealID).
				Str("stage_id", stageID).
				Msg("Stage unlocked")
		}
	}

	s.log.Info().
		Str("request_id", req.ID).
		Str("approved_by", req.ApprovedBy).
		Msg("Request approved")

	return s.GetRequest(ctx, req.ID)
}

// RejectRequest rejects a submitted request with a required reason.
func (s *RequestService) RejectRequest(ctx context.Context, id, rejectedBy, reason string) (*repository.Request, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, errors.InvalidInput("reason", "rejection reason is required")
	}

	request, err := s.requestRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if request.Approval != progress.ApprovalSubmitted {
		return nil, errors.Conflict(
			fmt.Sprintf("cannot reject request with status '%s'", request.Approval))
	}

	if err := s.requestRepo.Reject(ctx, id, rejectedBy, reason); err != nil {
		return nil, err
	}

	statusBefore := string(progress.ApprovalSubmitted)
	statusAfter := string(progress.ApprovalRejected)
	s.appendAudit(ctx, &repository.AuditEntry{
		RequestID:      id,
		DealID:         request.DealID,
		Action:         "rejected",
		PerformedBy:    rejectedBy,
		ApprovalBefore: &statusBefore,
		ApprovalAfter:  &statusAfter,
		Metadata:       map[string]interface{}{"reason": reason},
	})

	s.publisher.PublishRequestEvent("request_rejected", id, request.DealID, rejectedBy,
		map[string]interface{}{"reason": reason})

	s.log.Info().
		Str("request_id", id).
		Str("rejected_by", rejectedBy).
		Msg("Request rejected")

	return s.GetRequest(ctx, id)
}

// ReopenRequest returns a rejected request to pending so the counterparty
// can resubmit.
func (s *RequestService) ReopenRequest(ctx context.Context, id, actedBy string) (*repository.Request, error) {
	request, err := s.requestRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if request.Approval != progress.ApprovalRejected {
		return nil, errors.Conflict(
			fmt.Sprintf("cannot reopen request with status '%s'", request.Approval))
	}

	if err := s.requestRepo.UpdateApproval(ctx, id, progress.ApprovalPending); err != nil {
		return nil, err
	}

	statusBefore := string(progress.ApprovalRejected)
	statusAfter := string(progress.ApprovalPending)
	s.appendAudit(ctx, &repository.AuditEntry{
		RequestID:      id,
		DealID:         request.DealID,
		Action:         "reopened",
		PerformedBy:    actedBy,
		ApprovalBefore: &statusBefore,
		ApprovalAfter:  &statusAfter,
	})

	s.publisher.PublishRequestEvent("request_reopened", id, request.DealID, actedBy, nil)

	return s.GetRequest(ctx, id)
}

// DeleteRequest removes a pending request.
func (s *RequestService) DeleteRequest(ctx context.Context, id, actedBy string) error {
	request, err := s.requestRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if request.Approval != progress.ApprovalPending {
		return errors.Conflict(
			fmt.Sprintf("cannot delete request with status '%s'", request.Approval))
	}

	if err := s.requestRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.appendAudit(ctx, &repository.AuditEntry{
		RequestID:   id,
		DealID:      request.DealID,
		Action:      "deleted",
		PerformedBy: actedBy,
	})

	s.log.Info().Str("request_id", id).Msg("Request deleted")
	return nil
}

// GetAuditTrail returns the audit history for a request, oldest first.
func (s *RequestService) GetAuditTrail(ctx context.Context, requestID string) ([]*repository.AuditEntry, error) {
	return s.auditRepo.GetByRequestID(ctx, requestID)
}

// GetDealAudit returns the most recent audit entries across a deal.
func (s *RequestService) GetDealAudit(ctx context.Context, dealID string, limit int) ([]*repository.AuditEntry, error) {
	return s.auditRepo.GetByDealID(ctx, dealID, limit)
}

// ── internal helpers ─────────────────────────────────────────────────────────

// markSubmitted moves a pending request to submitted. Already-submitted and
// rejected requests keep their status: evidence accumulates without
// resetting the review position.
func (s *RequestService) markSubmitted(ctx context.Context, request *repository.Request, actedBy string) error {
	if request.Approval != progress.ApprovalPending {
		return nil
	}
	if err := s.requestRepo.UpdateApproval(ctx, request.ID, progress.ApprovalSubmitted); err != nil {
		return err
	}

	statusBefore := string(progress.ApprovalPending)
	statusAfter := string(progress.ApprovalSubmitted)
	s.appendAudit(ctx, &repository.AuditEntry{
		RequestID:      request.ID,
		DealID:         request.DealID,
		Action:         "submitted",
		PerformedBy:    actedBy,
		ApprovalBefore: &statusBefore,
		ApprovalAfter:  &statusAfter,
	})
	return nil
}

// unlockedStages computes the set of currently unlocked stage IDs for a deal.
func (s *RequestService) unlockedStages(ctx context.Context, dealID string) (map[string]bool, error) {
	stages, err := s.stageRepo.ListByDeal(ctx, dealID, true)
	if err != nil {
		return nil, err
	}
	if len(stages) == 0 {
		return map[string]bool{}, nil
	}

	requests, _, err := s.requestRepo.ListByDeal(ctx, dealID, repository.RequestFilter{}, 0, 0)
	if err != nil {
		return nil, err
	}

	items := make([]progress.Item, 0, len(requests))
	for _, r := range requests {
		items = append(items, toItem(r))
	}
	byID := progress.ProgressByID(progress.Aggregate(items, progress.GroupByStage))

	refs := make([]progress.StageRef, 0, len(stages))
	for _, st := range stages {
		refs = append(refs, progress.StageRef{
			ID:                  st.ID,
			SortOrder:           st.SortOrder,
			CompletionThreshold: st.CompletionThreshold,
		})
	}

	unlocked := make(map[string]bool, len(refs))
	for i, ref := range refs {
		if progress.IsUnlocked(ref, i, refs, byID) {
			unlocked[ref.ID] = true
		}
	}
	return unlocked, nil
}

func (s *RequestService) assertStageInDeal(ctx context.Context, stageID, dealID string) error {
	stage, err := s.stageRepo.GetByID(ctx, stageID)
	if err != nil {
		return err
	}
	if stage.DealID != dealID {
		return errors.InvalidInput("stage_id", "stage belongs to a different deal")
	}
	return nil
}

// appendAudit writes an audit entry and logs a warning on failure (never
// returns error).
func (s *RequestService) appendAudit(ctx context.Context, entry *repository.AuditEntry) {
	if err := s.auditRepo.Append(ctx, entry); err != nil {
		s.log.Warn().Err(err).
			Str("request_id", entry.RequestID).
			Str("action", entry.Action).
			Msg("Failed to write audit log entry")
	}
}

// toItem projects a stored request into the progress engine's input view.
func toItem(r *repository.Request) progress.Item {
	return progress.Item{
		ID:            r.ID,
		Category:      r.Category,
		StageID:       r.StageID,
		Approval:      r.Approval,
		DocumentCount: r.DocumentCount,
		HasResponse:   r.HasResponse,
	}
}

func derefOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}
