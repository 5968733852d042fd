package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/nu-admissions-api/internal/models"
)

func TestStudentRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery("INSERT INTO students").
		WithArgs(int64(5), "NU24CSE001", "UGC2024000001", "Rahim", "", "", "CSE", "Dhaka", "Fall", "CSE-24", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))

	student := &models.Student{
		ApplicationID: 5, UniversityID: "NU24CSE001", UGCID: "UGC2024000001", FullName: "Rahim",
		ProgramCode: "CSE", Campus: "Dhaka", Semester: "Fall", Batch: "CSE-24",
	}
	require.NoError(t, repo.Create(context.Background(), student))
	assert.Equal(t, int64(42), student.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryFindByApplication(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	rows := sqlmock.NewRows([]string{"id", "application_id", "university_id", "ugc_id", "full_name", "email", "phone",
		"program_code", "campus", "semester", "batch", "created_at"}).
		AddRow(42, 5, "NU24CSE001", "UGC2024000001", "Rahim", "", "", "CSE", "Dhaka", "Fall", "CSE-24", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM students WHERE application_id = $1")).
		WithArgs(int64(5)).
		WillReturnRows(rows)

	student, err := repo.FindByApplication(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, "NU24CSE001", student.UniversityID)
}

func TestBillRepositoryCreateAndList(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewBillRepository(db)

	mock.ExpectQuery("INSERT INTO student_bills").
		WithArgs(int64(42), models.BillDescriptionAdmissionFee, 15000.0, models.PaymentStatusUnpaid, "officer-1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM student_bills WHERE student_id = $1")).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "student_id", "description", "amount", "payment_status", "created_by", "created_at"}).
			AddRow(1, 42, models.BillDescriptionAdmissionFee, 15000.0, "Unpaid", "officer-1", time.Now()))

	bill := &models.Bill{StudentID: 42, Description: models.BillDescriptionAdmissionFee, Amount: 15000,
		PaymentStatus: models.PaymentStatusUnpaid, CreatedBy: "officer-1"}
	require.NoError(t, repo.Create(context.Background(), bill))
	assert.Equal(t, int64(1), bill.ID)

	bills, err := repo.ListByStudent(context.Background(), 42)
	require.NoError(t, err)
	require.Len(t, bills, 1)
	assert.Equal(t, 15000.0, bills[0].Amount)
	assert.NoError(t, mock.ExpectationsWereMet())
}
