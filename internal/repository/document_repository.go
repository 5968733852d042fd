package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/noah-isme/nu-admissions-api/internal/models"
)

const documentColumns = `id, application_id, doc_type, status, storage_ref, uploaded_at, validated_at, validated_by, superseded`

// DocumentRepository reads and validates uploaded credentials.
type DocumentRepository struct {
	db DBTX
}

// NewDocumentRepository constructs the repository.
func NewDocumentRepository(db DBTX) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// ListByApplication returns every upload for an application, superseded ones
// included, ordered oldest first.
func (r *DocumentRepository) ListByApplication(ctx context.Context, applicationID int64) ([]models.Document, error) {
	query := fmt.Sprintf(`SELECT %s FROM documents WHERE application_id = $1 ORDER BY uploaded_at ASC, id ASC`, documentColumns)
	var docs []models.Document
	if err := r.db.SelectContext(ctx, &docs, query, applicationID); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

// FindByIDForUpdate fetches and row-locks a document.
func (r *DocumentRepository) FindByIDForUpdate(ctx context.Context, id int64) (*models.Document, error) {
	query := fmt.Sprintf(`SELECT %s FROM documents WHERE id = $1 FOR UPDATE`, documentColumns)
	var doc models.Document
	if err := r.db.GetContext(ctx, &doc, query, id); err != nil {
		return nil, err
	}
	return &doc, nil
}

// UpdateDocumentStatusParams groups the columns written by a validation decision.
type UpdateDocumentStatusParams struct {
	ID          int64
	Status      models.DocumentStatus
	ValidatedBy string
	ValidatedAt time.Time
}

// UpdateStatus records a validation decision.
func (r *DocumentRepository) UpdateStatus(ctx context.Context, params UpdateDocumentStatusParams) error {
	const query = `UPDATE documents SET status = $2, validated_by = $3, validated_at = $4 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, params.ID, params.Status, params.ValidatedBy, params.ValidatedAt)
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	return expectAffected(result, "document status")
}
