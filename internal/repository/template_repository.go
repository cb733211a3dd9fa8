package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/clearstone-ma/be-diligence/internal/database"
	"github.com/clearstone-ma/be-diligence/internal/errors"
)

// TemplateRepository manages questionnaire templates and their items.
// Template + item creation is always done together in a single transaction.
type TemplateRepository struct {
	db *database.DB
}

// NewTemplateRepository creates a new template repository.
func NewTemplateRepository(db *database.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

// Create inserts a template and its items in one transaction.
func (r *TemplateRepository) Create(ctx context.Context, tpl *Template) error {
	return r.db.InTransaction(ctx, func(tx pgx.Tx) error {
		tplQuery := `
			INSERT INTO request_templates (name, description, is_active)
			VALUES ($1, $2, $3)
			RETURNING id, created_at, updated_at
		`

		err := tx.QueryRow(ctx, tplQuery,
			tpl.Name,
			tpl.Description,
			tpl.IsActive,
		).Scan(&tpl.ID, &tpl.CreatedAt, &tpl.UpdatedAt)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to create template")
		}

		itemQuery := `
			INSERT INTO template_items
			    (template_id, category, priority, title, description, sort_order)
			VALUES ($1, $2::request_category, $3::request_priority, $4, $5, $6)
			RETURNING id
		`

		for _, item := range tpl.Items {
			item.TemplateID = tpl.ID
			err := tx.QueryRow(ctx, itemQuery,
				item.TemplateID,
				item.Category,
				item.Priority,
				item.Title,
				item.Description,
				item.SortOrder,
			).Scan(&item.ID)
			if err != nil {
				return errors.Wrap(err, errors.ErrCodeInternal, "failed to create template item")
			}
		}
		return nil
	})
}

// GetByID retrieves a template with its items ordered by sort_order.
func (r *TemplateRepository) GetByID(ctx context.Context, id string) (*Template, error) {
	query := `
		SELECT id, name, description, is_active, created_at, updated_at
		FROM request_templates
		WHERE id = $1
	`

	tpl := &Template{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&tpl.ID,
		&tpl.Name,
		&tpl.Description,
		&tpl.IsActive,
		&tpl.CreatedAt,
		&tpl.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("template", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get template")
	}

	items, err := r.getItems(ctx, tpl.ID)
	if err != nil {
		return nil, err
	}
	tpl.Items = items
	return tpl, nil
}

// List returns templates without items, optionally active only.
func (r *TemplateRepository) List(ctx context.Context, activeOnly bool) ([]*Template, error) {
	query := `
		SELECT id, name, description, is_active, created_at, updated_at
		FROM request_templates
	`
	if activeOnly {
		query += " WHERE is_active = TRUE"
	}
	query += " ORDER BY name ASC"

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to list templates")
	}
	defer rows.Close()

	templates := make([]*Template, 0)
	for rows.Next() {
		tpl := &Template{}
		err := rows.Scan(&tpl.ID, &tpl.Name, &tpl.Description, &tpl.IsActive, &tpl.CreatedAt, &tpl.UpdatedAt)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan template")
		}
		templates = append(templates, tpl)
	}
	return templates, nil
}

// SetActive flips a template's active flag.
func (r *TemplateRepository) SetActive(ctx context.Context, id string, active bool) error {
	query := `
		UPDATE request_templates
		SET is_active = $2,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING id
	`

	var returnedID string
	err := r.db.QueryRow(ctx, query, id, active).Scan(&returnedID)
	if err == pgx.ErrNoRows {
		return errors.NotFound("template", id)
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to update template")
	}
	return nil
}

func (r *TemplateRepository) getItems(ctx context.Context, templateID string) ([]*TemplateItem, error) {
	query := `
		SELECT id, template_id, category, priority, title, description, sort_order
		FROM template_items
		WHERE template_id = $1
		ORDER BY sort_order ASC
	`

	rows, err := r.db.Query(ctx, query, templateID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get template items")
	}
	defer rows.Close()

	items := make([]*TemplateItem, 0)
	for rows.Next() {
		item := &TemplateItem{}
		err := rows.Scan(
			&item.ID,
			&item.TemplateID,
			&item.Category,
			&item.Priority,
			&item.Title,
			&item.Description,
			&item.SortOrder,
		)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan template item")
		}
		items = append(items, item)
	}
	return items, nil
}
