package service

import (
	"context"
	"strings"

	"github.com/noah-isme/nu-admissions-api/internal/models"
)

// AuditChange is one field transition to be written to the trail.
type AuditChange struct {
	EntityType string
	EntityID   string
	Field      string
	OldValue   string
	NewValue   string
	Actor      string
	Reason     string
}

// RecordAudit appends change unless the value did not change. It reports
// whether a row was written.
func RecordAudit(ctx context.Context, store AuditStore, change AuditChange) (bool, error) {
	if change.OldValue == change.NewValue {
		return false, nil
	}
	entry := &models.AuditTrailEntry{
		EntityType: change.EntityType,
		EntityID:   change.EntityID,
		FieldName:  change.Field,
		OldValue:   nullable(change.OldValue),
		NewValue:   nullable(change.NewValue),
		Actor:      change.Actor,
		Reason:     nullable(strings.TrimSpace(change.Reason)),
	}
	if err := store.Append(ctx, entry); err != nil {
		return false, err
	}
	return true, nil
}

func nullable(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
