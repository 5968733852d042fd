package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/noah-isme/nu-admissions-api/internal/models"
)

const applicationColumns = `id, reference_no, full_name, email, phone, program_code, campus, semester, status,
       payment_status, identifiers_locked, converted_student_id, nid_no, passport_no, birth_certificate_no,
       created_at, updated_at`

// nullableApplicationColumns are stored as NULL when cleared.
var nullableApplicationColumns = map[string]bool{
	models.FieldNIDNo:              true,
	models.FieldPassportNo:         true,
	models.FieldBirthCertificateNo: true,
}

// ApplicationRepository persists admission applications.
type ApplicationRepository struct {
	db DBTX
}

// NewApplicationRepository constructs the repository.
func NewApplicationRepository(db DBTX) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

// FindByID fetches an application; sql.ErrNoRows when absent.
func (r *ApplicationRepository) FindByID(ctx context.Context, id int64) (*models.Application, error) {
	query := fmt.Sprintf(`SELECT %s FROM applications_v2 WHERE id = $1`, applicationColumns)
	var app models.Application
	if err := r.db.GetContext(ctx, &app, query, id); err != nil {
		return nil, err
	}
	return &app, nil
}

// FindByIDForUpdate fetches and row-locks an application until the surrounding transaction ends.
func (r *ApplicationRepository) FindByIDForUpdate(ctx context.Context, id int64) (*models.Application, error) {
	query := fmt.Sprintf(`SELECT %s FROM applications_v2 WHERE id = $1 FOR UPDATE`, applicationColumns)
	var app models.Application
	if err := r.db.GetContext(ctx, &app, query, id); err != nil {
		return nil, err
	}
	return &app, nil
}

// List returns applications matching the filter with the total count.
func (r *ApplicationRepository) List(ctx context.Context, filter models.ApplicationFilter) ([]models.Application, int, error) {
	conditions := make([]string, 0, 5)
	args := make([]interface{}, 0, 8)

	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.ProgramCode != "" {
		args = append(args, filter.ProgramCode)
		conditions = append(conditions, fmt.Sprintf("program_code = $%d", len(args)))
	}
	if filter.Campus != "" {
		args = append(args, filter.Campus)
		conditions = append(conditions, fmt.Sprintf("campus = $%d", len(args)))
	}
	if filter.Semester != "" {
		args = append(args, filter.Semester)
		conditions = append(conditions, fmt.Sprintf("semester = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		conditions = append(conditions, fmt.Sprintf("(LOWER(full_name) LIKE $%[1]d OR LOWER(reference_no) LIKE $%[1]d OR LOWER(email) LIKE $%[1]d)", len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM applications_v2"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count applications: %w", err)
	}

	page, size := normalisePage(filter.Page, filter.PageSize)
	query := fmt.Sprintf("SELECT %s FROM applications_v2%s ORDER BY created_at DESC, id DESC LIMIT %d OFFSET %d",
		applicationColumns, where, size, (page-1)*size)

	var apps []models.Application
	if err := r.db.SelectContext(ctx, &apps, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list applications: %w", err)
	}
	return apps, total, nil
}

// UpdateFields writes the given editable columns. Empty values for nullable
// identity columns are stored as NULL.
func (r *ApplicationRepository) UpdateFields(ctx context.Context, id int64, changes map[string]string) error {
	if len(changes) == 0 {
		return nil
	}
	allowed := make(map[string]bool, len(models.EditableApplicationFields))
	for _, f := range models.EditableApplicationFields {
		allowed[f] = true
	}

	fields := make([]string, 0, len(changes))
	for field := range changes {
		if !allowed[field] {
			return fmt.Errorf("update application: field %q is not editable", field)
		}
		fields = append(fields, field)
	}
	sort.Strings(fields)

	setParts := make([]string, 0, len(fields)+1)
	args := make([]interface{}, 0, len(fields)+2)
	for _, field := range fields {
		value := changes[field]
		if nullableApplicationColumns[field] && value == "" {
			args = append(args, nil)
		} else {
			args = append(args, value)
		}
		setParts = append(setParts, fmt.Sprintf("%s = $%d", field, len(args)))
	}
	args = append(args, time.Now().UTC())
	setParts = append(setParts, fmt.Sprintf("updated_at = $%d", len(args)))
	args = append(args, id)

	query := fmt.Sprintf("UPDATE applications_v2 SET %s WHERE id = $%d", strings.Join(setParts, ", "), len(args))
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update application: %w", err)
	}
	return expectAffected(result, "application update")
}

// AdmitApplicationParams groups the columns written by the approval transition.
type AdmitApplicationParams struct {
	ID                 int64
	ConvertedStudentID string
	PaymentStatus      models.PaymentStatus
	UpdatedAt          time.Time
}

// MarkAdmitted moves an application to ADMITTED. sql.ErrNoRows when the row is
// missing or already admitted.
func (r *ApplicationRepository) MarkAdmitted(ctx context.Context, params AdmitApplicationParams) error {
	const query = `UPDATE applications_v2
SET status = $2, converted_student_id = $3, payment_status = $4, updated_at = $5
WHERE id = $1 AND status <> $2`
	result, err := r.db.ExecContext(ctx, query, params.ID, models.ApplicationStatusAdmitted,
		params.ConvertedStudentID, params.PaymentStatus, params.UpdatedAt)
	if err != nil {
		return fmt.Errorf("mark application admitted: %w", err)
	}
	return expectAffected(result, "application admit")
}

// SetIdentifiersLocked flips the lock flag. sql.ErrNoRows when the flag already has that value.
func (r *ApplicationRepository) SetIdentifiersLocked(ctx context.Context, id int64, locked bool) error {
	const query = `UPDATE applications_v2 SET identifiers_locked = $2, updated_at = $3
WHERE id = $1 AND identifiers_locked <> $2`
	result, err := r.db.ExecContext(ctx, query, id, locked, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set identifiers lock: %w", err)
	}
	return expectAffected(result, "identifiers lock")
}

func normalisePage(page, size int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 || size > 200 {
		size = 20
	}
	return page, size
}
