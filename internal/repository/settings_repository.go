package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/noah-isme/nu-admissions-api/internal/models"
)

// SettingsRepository persists admission settings.
type SettingsRepository struct {
	db DBTX
}

// NewSettingsRepository constructs the repository.
func NewSettingsRepository(db DBTX) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// List returns every setting ordered by key.
func (r *SettingsRepository) List(ctx context.Context) ([]models.AdmissionSetting, error) {
	const query = `SELECT key, value, description, updated_by, updated_at FROM admission_settings ORDER BY key ASC`
	var settings []models.AdmissionSetting
	if err := r.db.SelectContext(ctx, &settings, query); err != nil {
		return nil, fmt.Errorf("list admission settings: %w", err)
	}
	return settings, nil
}

// Get fetches a single setting by key; sql.ErrNoRows when absent.
func (r *SettingsRepository) Get(ctx context.Context, key string) (*models.AdmissionSetting, error) {
	const query = `SELECT key, value, description, updated_by, updated_at FROM admission_settings WHERE key = $1`
	var setting models.AdmissionSetting
	if err := r.db.GetContext(ctx, &setting, query, key); err != nil {
		return nil, err
	}
	return &setting, nil
}

// Upsert inserts or updates a setting.
func (r *SettingsRepository) Upsert(ctx context.Context, setting *models.AdmissionSetting) error {
	const query = `INSERT INTO admission_settings (key, value, description, updated_by, updated_at)
VALUES (:key, :value, :description, :updated_by, :updated_at)
ON CONFLICT (key)
DO UPDATE SET value = EXCLUDED.value, description = COALESCE(EXCLUDED.description, admission_settings.description),
              updated_by = EXCLUDED.updated_by, updated_at = EXCLUDED.updated_at`
	setting.UpdatedAt = time.Now().UTC()
	if _, err := r.db.NamedExecContext(ctx, query, setting); err != nil {
		return fmt.Errorf("upsert admission setting: %w", err)
	}
	return nil
}
