package repository

import (
	"context"

	"github.com/clearstone-ma/be-diligence/internal/database"
	"github.com/clearstone-ma/be-diligence/internal/errors"
)

// ResponseRepository stores text responses submitted against requests.
type ResponseRepository struct {
	db *database.DB
}

// NewResponseRepository creates a new response repository.
func NewResponseRepository(db *database.DB) *ResponseRepository {
	return &ResponseRepository{db: db}
}

// Create inserts a response row.
func (r *ResponseRepository) Create(ctx context.Context, resp *Response) error {
	query := `
		INSERT INTO request_responses (request_id, body, submitted_by)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	err := r.db.QueryRow(ctx, query,
		resp.RequestID,
		resp.Body,
		resp.SubmittedBy,
	).Scan(&resp.ID, &resp.CreatedAt)

	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to create response")
	}
	return nil
}

// ListByRequest returns all responses for a request, oldest first.
func (r *ResponseRepository) ListByRequest(ctx context.Context, requestID string) ([]*Response, error) {
	query := `
		SELECT id, request_id, body, submitted_by, created_at
		FROM request_responses
		WHERE request_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.db.Query(ctx, query, requestID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to list responses")
	}
	defer rows.Close()

	responses := make([]*Response, 0)
	for rows.Next() {
		resp := &Response{}
		err := rows.Scan(&resp.ID, &resp.RequestID, &resp.Body, &resp.SubmittedBy, &resp.CreatedAt)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan response")
		}
		responses = append(responses, resp)
	}
	return responses, nil
}
