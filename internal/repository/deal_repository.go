package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/clearstone-ma/be-diligence/internal/database"
	"github.com/clearstone-ma/be-diligence/internal/errors"
)

// DealRepository handles deal data operations.
type DealRepository struct {
	db *database.DB
}

// NewDealRepository creates a new deal repository.
func NewDealRepository(db *database.DB) *DealRepository {
	return &DealRepository{db: db}
}

// Create inserts a new deal.
func (r *DealRepository) Create(ctx context.Context, deal *Deal) error {
	query := `
		INSERT INTO deals (name, code, status, target_company, description, created_by)
		VALUES ($1, $2, $3::deal_status, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		deal.Name,
		deal.Code,
		deal.Status,
		deal.TargetCompany,
		deal.Description,
		deal.CreatedBy,
	).Scan(&deal.ID, &deal.CreatedAt, &deal.UpdatedAt)

	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to create deal")
	}
	return nil
}

// GetByID retrieves a deal by ID.
func (r *DealRepository) GetByID(ctx context.Context, id string) (*Deal, error) {
	query := `
		SELECT id, name, code, status, target_company, description,
		       created_by, created_at, updated_at
		FROM deals
		WHERE id = $1
	`

	deal, err := scanDeal(r.db.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("deal", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get deal")
	}
	return deal, nil
}

// List retrieves deals with optional status filter and pagination.
func (r *DealRepository) List(ctx context.Context, status *DealStatus, limit, offset int) ([]*Deal, int64, error) {
	query := `
		SELECT id, name, code, status, target_company, description,
		       created_by, created_at, updated_at
		FROM deals
	`
	countQuery := `SELECT COUNT(*) FROM deals`

	args := []interface{}{}
	if status != nil {
		query += " WHERE status = $1::deal_status"
		countQuery += " WHERE status = $1::deal_status"
		args = append(args, *status)
	}

	query += " ORDER BY created_at DESC"
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	queryArgs := append(args, limit, offset)

	var total int64
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeInternal, "failed to count deals")
	}

	rows, err := r.db.Query(ctx, query, queryArgs...)
	if err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeInternal, "failed to list deals")
	}
	defer rows.Close()

	deals := make([]*Deal, 0)
	for rows.Next() {
		deal, err := scanDeal(rows)
		if err != nil {
			return nil, 0, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan deal")
		}
		deals = append(deals, deal)
	}
	return deals, total, nil
}

// UpdateStatus updates the status of a deal.
func (r *DealRepository) UpdateStatus(ctx context.Context, id string, status DealStatus) error {
	query := `
		UPDATE deals
		SET status = $2::deal_status,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING id
	`

	var returnedID string
	err := r.db.QueryRow(ctx, query, id, status).Scan(&returnedID)
	if err == pgx.ErrNoRows {
		return errors.NotFound("deal", id)
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to update deal status")
	}
	return nil
}

// CountRequests returns the number of requests attached to a deal.
func (r *DealRepository) CountRequests(ctx context.Context, id string) (int64, error) {
	var n int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM diligence_requests WHERE deal_id = $1`, id).Scan(&n)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeInternal, "failed to count deal requests")
	}
	return n, nil
}

// Delete removes a deal. The service layer ensures no requests remain.
func (r *DealRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM deals WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to delete deal")
	}
	if tag.RowsAffected() == 0 {
		return errors.NotFound("deal", id)
	}
	return nil
}

// ── scan helper ──────────────────────────────────────────────────────────────

type dealScanner interface {
	Scan(dest ...any) error
}

func scanDeal(row dealScanner) (*Deal, error) {
	deal := &Deal{}
	err := row.Scan(
		&deal.ID,
		&deal.Name,
		&deal.Code,
		&deal.Status,
		&deal.TargetCompany,
		&deal.Description,
		&deal.CreatedBy,
		&deal.CreatedAt,
		&deal.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return deal, nil
}
