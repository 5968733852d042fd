package models

import "time"

// Audited entity types.
const (
	EntityApplication = "application"
	EntityDocument    = "document"
	EntitySetting     = "admission_setting"
	EntityUser        = "user"
)

// AuditTrailEntry records one changed field of one mutation. Rows are append-only.
type AuditTrailEntry struct {
	ID         int64     `db:"id" json:"id"`
	EntityType string    `db:"entity_type" json:"entity_type"`
	EntityID   string    `db:"entity_id" json:"entity_id"`
	FieldName  string    `db:"field_name" json:"field_name"`
	OldValue   *string   `db:"old_value" json:"old_value"`
	NewValue   *string   `db:"new_value" json:"new_value"`
	Actor      string    `db:"actor" json:"actor"`
	Reason     *string   `db:"reason" json:"reason,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
