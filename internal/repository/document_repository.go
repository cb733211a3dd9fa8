package repository

import (
	"context"

	"github.com/clearstone-ma/be-diligence/internal/database"
	"github.com/clearstone-ma/be-diligence/internal/errors"
)

// DocumentRepository stores metadata rows for uploaded files.
type DocumentRepository struct {
	db *database.DB
}

// NewDocumentRepository creates a new document repository.
func NewDocumentRepository(db *database.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Create inserts a document metadata row.
func (r *DocumentRepository) Create(ctx context.Context, doc *Document) error {
	query := `
		INSERT INTO request_documents
		    (request_id, file_name, content_type, size_bytes, storage_key, uploaded_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	err := r.db.QueryRow(ctx, query,
		doc.RequestID,
		doc.FileName,
		doc.ContentType,
		doc.SizeBytes,
		doc.StorageKey,
		doc.UploadedBy,
	).Scan(&doc.ID, &doc.CreatedAt)

	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to create document")
	}
	return nil
}

// ListByRequest returns all document metadata for a request, oldest first.
func (r *DocumentRepository) ListByRequest(ctx context.Context, requestID string) ([]*Document, error) {
	query := `
		SELECT id, request_id, file_name, content_type, size_bytes, storage_key,
		       uploaded_by, created_at
		FROM request_documents
		WHERE request_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.db.Query(ctx, query, requestID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to list documents")
	}
	defer rows.Close()

	docs := make([]*Document, 0)
	for rows.Next() {
		doc := &Document{}
		err := rows.Scan(
			&doc.ID,
			&doc.RequestID,
			&doc.FileName,
			&doc.ContentType,
			&doc.SizeBytes,
			&doc.StorageKey,
			&doc.UploadedBy,
			&doc.CreatedAt,
		)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan document")
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Delete removes a document metadata row.
func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM request_documents WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to delete document")
	}
	if tag.RowsAffected() == 0 {
		return errors.NotFound("document", id)
	}
	return nil
}
