package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/nu-admissions-api/internal/models"
)

// IdentifierRepository owns the issued-identifier ledger and the per-prefix counters.
type IdentifierRepository struct {
	db DBTX
}

// NewIdentifierRepository constructs the repository.
func NewIdentifierRepository(db DBTX) *IdentifierRepository {
	return &IdentifierRepository{db: db}
}

// ListIssued returns ledger identifiers of the given kind starting with prefix.
// A non-empty programCode restricts the scan to that program's rows, so codes
// that prefix one another (CS, CS1) never read each other's sequences.
func (r *IdentifierRepository) ListIssued(ctx context.Context, kind models.IdentifierKind, programCode, prefix string) ([]string, error) {
	var column string
	switch kind {
	case models.IdentifierKindUniversity:
		column = "university_id"
	case models.IdentifierKindUGC:
		column = "ugc_id"
	default:
		return nil, fmt.Errorf("list issued identifiers: unknown kind %q", kind)
	}
	query := fmt.Sprintf(`SELECT %[1]s FROM id_generation WHERE %[1]s LIKE $1`, column)
	args := []interface{}{prefix + "%"}
	if programCode != "" {
		query += ` AND UPPER(program_code) = $2`
		args = append(args, strings.ToUpper(programCode))
	}
	query += fmt.Sprintf(` ORDER BY %s ASC`, column)

	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, args...); err != nil {
		return nil, fmt.Errorf("list issued identifiers: %w", err)
	}
	return ids, nil
}

// AdvanceSequence atomically reserves the next value for prefix. The counter
// never drops below floor, so a counter that lags the ledger catches up.
func (r *IdentifierRepository) AdvanceSequence(ctx context.Context, prefix string, floor int) (int, error) {
	const query = `INSERT INTO id_sequences (prefix, last_value, updated_at)
VALUES ($1, $2, $3)
ON CONFLICT (prefix)
DO UPDATE SET last_value = GREATEST(id_sequences.last_value + 1, EXCLUDED.last_value),
              updated_at = EXCLUDED.updated_at
RETURNING last_value`
	if floor < 1 {
		floor = 1
	}
	var next int
	if err := r.db.QueryRowxContext(ctx, query, prefix, floor, time.Now().UTC()).Scan(&next); err != nil {
		return 0, fmt.Errorf("advance sequence %s: %w", prefix, err)
	}
	return next, nil
}

// Create appends a ledger row. Unique violations surface as ErrDuplicateKey.
func (r *IdentifierRepository) Create(ctx context.Context, record *models.IdentifierRecord) error {
	const query = `INSERT INTO id_generation
    (application_id, university_id, ugc_id, program_code, university_seq, ugc_seq, generated_by, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id`
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	err := r.db.QueryRowxContext(ctx, query, record.ApplicationID, record.UniversityID, record.UGCID,
		record.ProgramCode, record.UniversitySeq, record.UGCSeq, record.GeneratedBy, record.CreatedAt).Scan(&record.ID)
	if err != nil {
		return fmt.Errorf("insert identifier record: %w", mapError(err))
	}
	return nil
}

// FindByApplication returns the ledger row for an application.
func (r *IdentifierRepository) FindByApplication(ctx context.Context, applicationID int64) (*models.IdentifierRecord, error) {
	const query = `SELECT id, application_id, university_id, ugc_id, program_code, university_seq, ugc_seq, generated_by, created_at
FROM id_generation WHERE application_id = $1`
	var record models.IdentifierRecord
	if err := r.db.GetContext(ctx, &record, query, applicationID); err != nil {
		return nil, err
	}
	return &record, nil
}
