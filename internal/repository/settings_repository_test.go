package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/nu-admissions-api/internal/models"
)

func TestSettingsRepositoryGet(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSettingsRepository(db)

	mock.ExpectQuery("SELECT key, value").
		WithArgs(models.SettingAdmissionFee).
		WillReturnRows(sqlmock.NewRows([]string{"key", "value", "description", "updated_by", "updated_at"}).
			AddRow("admission_fee", "15000.00", "Admission fee", nil, time.Now()))

	setting, err := repo.Get(context.Background(), models.SettingAdmissionFee)
	require.NoError(t, err)
	assert.Equal(t, "15000.00", setting.Value)
}

func TestSettingsRepositoryUpsert(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSettingsRepository(db)

	mock.ExpectExec("INSERT INTO admission_settings").
		WillReturnResult(sqlmock.NewResult(1, 1))

	setting := &models.AdmissionSetting{Key: models.SettingAdmissionFee, Value: "18000", UpdatedBy: strPtr("admin")}
	require.NoError(t, repo.Upsert(context.Background(), setting))
	assert.False(t, setting.UpdatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}
