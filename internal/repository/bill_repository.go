package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/noah-isme/nu-admissions-api/internal/models"
)

// BillRepository persists student billing lines.
type BillRepository struct {
	db DBTX
}

// NewBillRepository constructs the repository.
func NewBillRepository(db DBTX) *BillRepository {
	return &BillRepository{db: db}
}

// Create inserts a bill and fills its ID.
func (r *BillRepository) Create(ctx context.Context, bill *models.Bill) error {
	const query = `INSERT INTO student_bills (student_id, description, amount, payment_status, created_by, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id`
	if bill.CreatedAt.IsZero() {
		bill.CreatedAt = time.Now().UTC()
	}
	err := r.db.QueryRowxContext(ctx, query, bill.StudentID, bill.Description, bill.Amount,
		bill.PaymentStatus, bill.CreatedBy, bill.CreatedAt).Scan(&bill.ID)
	if err != nil {
		return fmt.Errorf("insert bill: %w", err)
	}
	return nil
}

// ListByStudent returns a student's bills, oldest first.
func (r *BillRepository) ListByStudent(ctx context.Context, studentID int64) ([]models.Bill, error) {
	const query = `SELECT id, student_id, description, amount, payment_status, created_by, created_at
FROM student_bills WHERE student_id = $1 ORDER BY created_at ASC, id ASC`
	var bills []models.Bill
	if err := r.db.SelectContext(ctx, &bills, query, studentID); err != nil {
		return nil, fmt.Errorf("list bills: %w", err)
	}
	return bills, nil
}
