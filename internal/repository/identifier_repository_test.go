package repository

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/nu-admissions-api/internal/models"
)

func TestIdentifierRepositoryListIssued(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewIdentifierRepository(db)

	mock.ExpectQuery(`SELECT university_id FROM id_generation WHERE university_id LIKE \$1 AND UPPER\(program_code\) = \$2 ORDER BY university_id ASC`).
		WithArgs("NU24CSE%", "CSE").
		WillReturnRows(sqlmock.NewRows([]string{"university_id"}).AddRow("NU24CSE001").AddRow("NU24CSE002"))

	ids, err := repo.ListIssued(context.Background(), models.IdentifierKindUniversity, "cse", "NU24CSE")
	require.NoError(t, err)
	assert.Equal(t, []string{"NU24CSE001", "NU24CSE002"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdentifierRepositoryListIssuedUnknownKind(t *testing.T) {
	db, _, cleanup := newMock(t)
	defer cleanup()
	repo := NewIdentifierRepository(db)

	_, err := repo.ListIssued(context.Background(), models.IdentifierKind("reference_no"), "", "X")
	assert.Error(t, err)
}

func TestIdentifierRepositoryListIssuedAllPrograms(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewIdentifierRepository(db)

	mock.ExpectQuery(`SELECT ugc_id FROM id_generation WHERE ugc_id LIKE \$1 ORDER BY ugc_id ASC`).
		WithArgs("UGC2024%").
		WillReturnRows(sqlmock.NewRows([]string{"ugc_id"}).AddRow("UGC2024000001"))

	ids, err := repo.ListIssued(context.Background(), models.IdentifierKindUGC, "", "UGC2024")
	require.NoError(t, err)
	assert.Equal(t, []string{"UGC2024000001"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdentifierRepositoryAdvanceSequence(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewIdentifierRepository(db)

	mock.ExpectQuery("INSERT INTO id_sequences").
		WithArgs("NU24CSE", 1, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"last_value"}).AddRow(3))

	next, err := repo.AdvanceSequence(context.Background(), "NU24CSE", 0)
	require.NoError(t, err)
	assert.Equal(t, 3, next)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdentifierRepositoryCreateDuplicate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewIdentifierRepository(db)

	mock.ExpectQuery("INSERT INTO id_generation").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "id_generation_university_id_key"})

	err := repo.Create(context.Background(), &models.IdentifierRecord{ApplicationID: 1, UniversityID: "NU24CSE001"})
	assert.ErrorIs(t, err, ErrDuplicateKey)
}
