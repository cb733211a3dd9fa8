package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/clearstone-ma/be-diligence/internal/database"
	"github.com/clearstone-ma/be-diligence/internal/errors"
	"github.com/clearstone-ma/be-diligence/internal/progress"
)

// requestColumns is the shared select list. document_count and has_response
// are observations derived at read time; the requests table never stores them.
const requestColumns = `
	r.id, r.deal_id, r.stage_id, r.category, r.priority, r.title, r.description,
	r.approval_status, r.due_date,
	r.approved_by, r.approved_at, r.approval_notes,
	r.created_by, r.created_at, r.updated_at,
	COALESCE(d.doc_count, 0) AS document_count,
	COALESCE(resp.resp_count, 0) > 0 AS has_response
`

const requestJoins = `
	FROM diligence_requests r
	LEFT JOIN (
		SELECT request_id, COUNT(*) AS doc_count
		FROM request_documents
		GROUP BY request_id
	) d ON d.request_id = r.id
	LEFT JOIN (
		SELECT request_id, COUNT(*) AS resp_count
		FROM request_responses
		GROUP BY request_id
	) resp ON resp.request_id = r.id
`

// RequestRepository handles diligence request data operations.
type RequestRepository struct {
	db *database.DB
}

// NewRequestRepository creates a new request repository.
func NewRequestRepository(db *database.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// Create inserts a new request.
func (r *RequestRepository) Create(ctx context.Context, req *Request) error {
	query := `
		INSERT INTO diligence_requests
		    (deal_id, stage_id, category, priority, title, description,
		     approval_status, due_date, created_by)
		VALUES ($1, $2, $3::request_category, $4::request_priority, $5, $6,
		        $7::approval_status, $8, $9)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		req.DealID,
		req.StageID,
		req.Category,
		req.Priority,
		req.Title,
		req.Description,
		req.Approval,
		req.DueDate,
		req.CreatedBy,
	).Scan(&req.ID, &req.CreatedAt, &req.UpdatedAt)

	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to create request")
	}
	return nil
}

// CreateBatch inserts requests in one transaction. Used by template application.
func (r *RequestRepository) CreateBatch(ctx context.Context, reqs []*Request) error {
	return r.db.InTransaction(ctx, func(tx pgx.Tx) error {
		query := `
			INSERT INTO diligence_requests
			    (deal_id, stage_id, category, priority, title, description,
			     approval_status, due_date, created_by)
			VALUES ($1, $2, $3::request_category, $4::request_priority, $5, $6,
			        $7::approval_status, $8, $9)
			RETURNING id, created_at, updated_at
		`
		for _, req := range reqs {
			err := tx.QueryRow(ctx, query,
				req.DealID,
				req.StageID,
				req.Category,
				req.Priority,
				req.Title,
				req.Description,
				req.Approval,
				req.DueDate,
				req.CreatedBy,
			).Scan(&req.ID, &req.CreatedAt, &req.UpdatedAt)
			if err != nil {
				return errors.Wrap(err, errors.ErrCodeInternal, "failed to create request from template")
			}
		}
		return nil
	})
}

// GetByID retrieves a request with derived counts.
func (r *RequestRepository) GetByID(ctx context.Context, id string) (*Request, error) {
	query := `SELECT ` + requestColumns + requestJoins + ` WHERE r.id = $1`

	req, err := scanRequest(r.db.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("request", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get request")
	}
	return req, nil
}

// ListByDeal retrieves requests for a deal with filtering and pagination.
// Pass limit <= 0 to fetch the full set (used by the progress rollups).
func (r *RequestRepository) ListByDeal(ctx context.Context, dealID string, filter RequestFilter, limit, offset int) ([]*Request, int64, error) {
	where := " WHERE r.deal_id = $1"
	args := []interface{}{dealID}
	argCount := 2

	if filter.StageID != nil {
		where += fmt.Sprintf(" AND r.stage_id = $%d", argCount)
		args = append(args, *filter.StageID)
		argCount++
	}
	if filter.Category != nil {
		where += fmt.Sprintf(" AND r.category = $%d::request_category", argCount)
		args = append(args, *filter.Category)
		argCount++
	}
	if filter.Priority != nil {
		where += fmt.Sprintf(" AND r.priority = $%d::request_priority", argCount)
		args = append(args, *filter.Priority)
		argCount++
	}
	if filter.Approval != nil {
		where += fmt.Sprintf(" AND r.approval_status = $%d::approval_status", argCount)
		args = append(args, *filter.Approval)
		argCount++
	}

	countQuery := `SELECT COUNT(*) FROM diligence_requests r` + where

	query := `SELECT ` + requestColumns + requestJoins + where +
		" ORDER BY r.created_at ASC, r.id ASC"
	queryArgs := args
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argCount, argCount+1)
		queryArgs = append(args, limit, offset)
	}

	var total int64
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeInternal, "failed to count requests")
	}

	rows, err := r.db.Query(ctx, query, queryArgs...)
	if err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeInternal, "failed to list requests")
	}
	defer rows.Close()

	reqs := make([]*Request, 0)
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, 0, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan request")
		}
		reqs = append(reqs, req)
	}
	return reqs, total, nil
}

// UpdateApproval updates the approval status of a request.
func (r *RequestRepository) UpdateApproval(ctx context.Context, id string, status progress.ApprovalStatus) error {
	query := `
		UPDATE diligence_requests
		SET approval_status = $2::approval_status,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING id
	`

	var returnedID string
	err := r.db.QueryRow(ctx, query, id, status).Scan(&returnedID)
	if err == pgx.ErrNoRows {
		return errors.NotFound("request", id)
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to update request status")
	}
	return nil
}

// Approve marks a request approved and stamps the approver.
func (r *RequestRepository) Approve(ctx context.Context, id string, approvedBy string, notes *string) error {
	query := `
		UPDATE diligence_requests
		SET approval_status = 'approved'::approval_status,
		    approved_by = $2,
		    approved_at = NOW(),
		    approval_notes = $3,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING id
	`

	var returnedID string
	err := r.db.QueryRow(ctx, query, id, approvedBy, notes).Scan(&returnedID)
	if err == pgx.ErrNoRows {
		return errors.NotFound("request", id)
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to approve request")
	}
	return nil
}

// Reject marks a request rejected, storing the reason in approval_notes.
func (r *RequestRepository) Reject(ctx context.Context, id, rejectedBy, reason string) error {
	query := `
		UPDATE diligence_requests
		SET approval_status = 'rejected'::approval_status,
		    approved_by = NULL,
		    approved_at = NULL,
		    approval_notes = $3,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING id
	`

	var returnedID string
	err := r.db.QueryRow(ctx, query, id, rejectedBy, reason).Scan(&returnedID)
	if err == pgx.ErrNoRows {
		return errors.NotFound("request", id)
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to reject request")
	}
	return nil
}

// AssignStage moves a request to a stage (or clears it with nil).
func (r *RequestRepository) AssignStage(ctx context.Context, id string, stageID *string) error {
	query := `
		UPDATE diligence_requests
		SET stage_id = $2,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING id
	`

	var returnedID string
	err := r.db.QueryRow(ctx, query, id, stageID).Scan(&returnedID)
	if err == pgx.ErrNoRows {
		return errors.NotFound("request", id)
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to assign request stage")
	}
	return nil
}

// Delete removes a pending request. Responses and documents cascade.
func (r *RequestRepository) Delete(ctx context.Context, id string) error {
	query := `
		DELETE FROM diligence_requests
		WHERE id = $1 AND approval_status = 'pending'
	`

	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to delete request")
	}
	if tag.RowsAffected() == 0 {
		return errors.Conflict("cannot delete a request that is no longer pending")
	}
	return nil
}

// ── scan helper ──────────────────────────────────────────────────────────────

type requestScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row requestScanner) (*Request, error) {
	req := &Request{}
	err := row.Scan(
		&req.ID,
		&req.DealID,
		&req.StageID,
		&req.Category,
		&req.Priority,
		&req.Title,
		&req.Description,
		&req.Approval,
		&req.DueDate,
		&req.ApprovedBy,
		&req.ApprovedAt,
		&req.ApprovalNotes,
		&req.CreatedBy,
		&req.CreatedAt,
		&req.UpdatedAt,
		&req.DocumentCount,
		&req.HasResponse,
	)
	if err != nil {
		return nil, err
	}
	return req, nil
}
