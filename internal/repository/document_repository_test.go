package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/nu-admissions-api/internal/models"
)

func TestDocumentRepositoryListByApplication(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDocumentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "application_id", "doc_type", "status", "storage_ref", "uploaded_at",
		"validated_at", "validated_by", "superseded"}).
		AddRow(1, 7, "SSC", "Validated", "s3://docs/1", now, now, "officer-1", false).
		AddRow(2, 7, "Photo", "Pending", "s3://docs/2", now, nil, nil, false)
	mock.ExpectQuery(regexp.QuoteMeta("FROM documents WHERE application_id = $1")).
		WithArgs(int64(7)).
		WillReturnRows(rows)

	docs, err := repo.ListByApplication(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, models.DocumentTypeSSC, docs[0].Type)
	assert.Nil(t, docs[1].ValidatedAt)
}

func TestDocumentRepositoryUpdateStatusMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDocumentRepository(db)

	now := time.Now()
	mock.ExpectExec("UPDATE documents SET status").
		WithArgs(int64(99), models.DocumentStatusValidated, "officer-1", now).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), UpdateDocumentStatusParams{
		ID: 99, Status: models.DocumentStatusValidated, ValidatedBy: "officer-1", ValidatedAt: now,
	})
	assert.ErrorIs(t, err, sql.ErrNoRows)
}
