package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/clearstone-ma/be-diligence/internal/database"
	"github.com/clearstone-ma/be-diligence/internal/errors"
)

// StageRepository manages deal stages. Reordering rewrites every stage's
// sort_order in a single transaction so orders stay contiguous.
type StageRepository struct {
	db *database.DB
}

// NewStageRepository creates a new stage repository.
func NewStageRepository(db *database.DB) *StageRepository {
	return &StageRepository{db: db}
}

// Create inserts a new stage.
func (r *StageRepository) Create(ctx context.Context, stage *Stage) error {
	query := `
		INSERT INTO deal_stages
		    (deal_id, name, description, sort_order, completion_threshold, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		stage.DealID,
		stage.Name,
		stage.Description,
		stage.SortOrder,
		stage.CompletionThreshold,
		stage.IsActive,
	).Scan(&stage.ID, &stage.CreatedAt, &stage.UpdatedAt)

	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to create stage")
	}
	return nil
}

// GetByID retrieves a stage by primary key.
func (r *StageRepository) GetByID(ctx context.Context, id string) (*Stage, error) {
	query := `
		SELECT id, deal_id, name, description, sort_order, completion_threshold,
		       is_active, created_at, updated_at
		FROM deal_stages
		WHERE id = $1
	`

	stage, err := scanStage(r.db.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("stage", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get stage")
	}
	return stage, nil
}

// ListByDeal returns a deal's stages ordered by sort_order, optionally
// filtered to active only.
func (r *StageRepository) ListByDeal(ctx context.Context, dealID string, activeOnly bool) ([]*Stage, error) {
	query := `
		SELECT id, deal_id, name, description, sort_order, completion_threshold,
		       is_active, created_at, updated_at
		FROM deal_stages
		WHERE deal_id = $1
	`
	if activeOnly {
		query += " AND is_active = TRUE"
	}
	query += " ORDER BY sort_order ASC"

	rows, err := r.db.Query(ctx, query, dealID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to list stages")
	}
	defer rows.Close()

	stages := make([]*Stage, 0)
	for rows.Next() {
		stage, err := scanStage(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan stage")
		}
		stages = append(stages, stage)
	}
	return stages, nil
}

// Update persists mutable fields of a stage.
func (r *StageRepository) Update(ctx context.Context, stage *Stage) error {
	query := `
		UPDATE deal_stages
		SET name                 = $2,
		    description          = $3,
		    completion_threshold = $4,
		    is_active            = $5,
		    updated_at           = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.QueryRow(ctx, query,
		stage.ID,
		stage.Name,
		stage.Description,
		stage.CompletionThreshold,
		stage.IsActive,
	).Scan(&stage.UpdatedAt)

	if err == pgx.ErrNoRows {
		return errors.NotFound("stage", stage.ID)
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to update stage")
	}
	return nil
}

// Reorder rewrites the sort_order of all given stages in one transaction.
// The slice order becomes the new workflow order (1-based, contiguous).
// Orders are first parked at negative values to dodge the unique constraint
// on (deal_id, sort_order) mid-rewrite.
func (r *StageRepository) Reorder(ctx context.Context, dealID string, stageIDs []string) error {
	return r.db.InTransaction(ctx, func(tx pgx.Tx) error {
		for i, id := range stageIDs {
			tag, err := tx.Exec(ctx,
				`UPDATE deal_stages SET sort_order = $3, updated_at = NOW()
				 WHERE id = $1 AND deal_id = $2`,
				id, dealID, -(i + 1))
			if err != nil {
				return errors.Wrap(err, errors.ErrCodeInternal, "failed to reorder stage")
			}
			if tag.RowsAffected() == 0 {
				return errors.NotFound("stage", id)
			}
		}
		_, err := tx.Exec(ctx,
			`UPDATE deal_stages SET sort_order = -sort_order
			 WHERE deal_id = $1 AND sort_order < 0`, dealID)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to finalize stage order")
		}
		return nil
	})
}

// Delete removes a stage; requests assigned to it fall back to unassigned
// via the FK's ON DELETE SET NULL.
func (r *StageRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM deal_stages WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to delete stage")
	}
	if tag.RowsAffected() == 0 {
		return errors.NotFound("stage", id)
	}
	return nil
}

// ── scan helper ──────────────────────────────────────────────────────────────

type stageScanner interface {
	Scan(dest ...any) error
}

func scanStage(row stageScanner) (*Stage, error) {
	stage := &Stage{}
	err := row.Scan(
		&stage.ID,
		&stage.DealID,
		&stage.Name,
		&stage.Description,
		&stage.SortOrder,
		&stage.CompletionThreshold,
		&stage.IsActive,
		&stage.CreatedAt,
		&stage.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return stage, nil
}
