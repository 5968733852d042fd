package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/noah-isme/nu-admissions-api/internal/models"
)

const studentColumns = `id, application_id, university_id, ugc_id, full_name, email, phone, program_code, campus, semester, batch, created_at`

// StudentRepository persists students created at approval.
type StudentRepository struct {
	db DBTX
}

// NewStudentRepository constructs the repository.
func NewStudentRepository(db DBTX) *StudentRepository {
	return &StudentRepository{db: db}
}

// Create inserts a student and fills its ID.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	const query = `INSERT INTO students
    (application_id, university_id, ugc_id, full_name, email, phone, program_code, campus, semester, batch, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING id`
	if student.CreatedAt.IsZero() {
		student.CreatedAt = time.Now().UTC()
	}
	err := r.db.QueryRowxContext(ctx, query, student.ApplicationID, student.UniversityID, student.UGCID,
		student.FullName, student.Email, student.Phone, student.ProgramCode, student.Campus, student.Semester,
		student.Batch, student.CreatedAt).Scan(&student.ID)
	if err != nil {
		return fmt.Errorf("insert student: %w", mapError(err))
	}
	return nil
}

// FindByID fetches a student; sql.ErrNoRows when absent.
func (r *StudentRepository) FindByID(ctx context.Context, id int64) (*models.Student, error) {
	query := fmt.Sprintf(`SELECT %s FROM students WHERE id = $1`, studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindByApplication fetches the student converted from an application.
func (r *StudentRepository) FindByApplication(ctx context.Context, applicationID int64) (*models.Student, error) {
	query := fmt.Sprintf(`SELECT %s FROM students WHERE application_id = $1`, studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, applicationID); err != nil {
		return nil, err
	}
	return &student, nil
}
