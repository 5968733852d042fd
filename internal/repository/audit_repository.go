package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/noah-isme/nu-admissions-api/internal/models"
)

// AuditRepository appends to the audit trail. Rows are never updated.
type AuditRepository struct {
	db DBTX
}

// NewAuditRepository constructs the repository.
func NewAuditRepository(db DBTX) *AuditRepository {
	return &AuditRepository{db: db}
}

// Append writes one audit row.
func (r *AuditRepository) Append(ctx context.Context, entry *models.AuditTrailEntry) error {
	const query = `INSERT INTO audit_trail (entity_type, entity_id, field_name, old_value, new_value, actor, reason, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id`
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	err := r.db.QueryRowxContext(ctx, query, entry.EntityType, entry.EntityID, entry.FieldName,
		entry.OldValue, entry.NewValue, entry.Actor, entry.Reason, entry.CreatedAt).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

// ListByEntity returns the history of one entity, oldest first.
func (r *AuditRepository) ListByEntity(ctx context.Context, entityType, entityID string) ([]models.AuditTrailEntry, error) {
	const query = `SELECT id, entity_type, entity_id, field_name, old_value, new_value, actor, reason, created_at
FROM audit_trail WHERE entity_type = $1 AND entity_id = $2 ORDER BY created_at ASC, id ASC`
	var entries []models.AuditTrailEntry
	if err := r.db.SelectContext(ctx, &entries, query, entityType, entityID); err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	return entries, nil
}
