package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/nu-admissions-api/internal/models"
)

func TestPermissionRepositoryRolePermissions(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPermissionRepository(db)

	mock.ExpectQuery("SELECT permission FROM role_permissions").
		WithArgs(models.RoleReviewer).
		WillReturnRows(sqlmock.NewRows([]string{"permission"}).AddRow(models.PermApplicationsView))

	perms, err := repo.RolePermissions(context.Background(), models.RoleReviewer)
	require.NoError(t, err)
	assert.Equal(t, []string{models.PermApplicationsView}, perms)
}

func TestPermissionRepositoryUserOverrides(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPermissionRepository(db)

	mock.ExpectQuery("FROM user_permissions WHERE user_id").
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "permission", "granted", "updated_by", "updated_at"}).
			AddRow("u1", models.PermApplicationsApprove, false, "admin", time.Now()))

	overrides, err := repo.UserOverrides(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, overrides, 1)
	assert.False(t, overrides[0].Granted)
}

func TestPermissionRepositoryReplaceInTransaction(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM user_permissions").WithArgs("u1").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("INSERT INTO user_permissions").
		WithArgs("u1", models.PermApplicationsApprove, true, "admin", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := WithTx(context.Background(), db, func(tx *sqlx.Tx) error {
		return NewPermissionRepository(tx).ReplaceUserOverrides(context.Background(), "u1",
			[]models.UserPermission{{Permission: models.PermApplicationsApprove, Granted: true}}, "admin")
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTxRollsBackOnError(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := WithTx(context.Background(), db, func(tx *sqlx.Tx) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}
