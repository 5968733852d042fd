package service

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/nu-admissions-api/internal/models"
	"github.com/noah-isme/nu-admissions-api/internal/repository"
)

// ApplicationStore persists applications.
type ApplicationStore interface {
	FindByID(ctx context.Context, id int64) (*models.Application, error)
	FindByIDForUpdate(ctx context.Context, id int64) (*models.Application, error)
	List(ctx context.Context, filter models.ApplicationFilter) ([]models.Application, int, error)
	UpdateFields(ctx context.Context, id int64, changes map[string]string) error
	MarkAdmitted(ctx context.Context, params repository.AdmitApplicationParams) error
	SetIdentifiersLocked(ctx context.Context, id int64, locked bool) error
}

// DocumentStore reads and validates uploaded credentials.
type DocumentStore interface {
	ListByApplication(ctx context.Context, applicationID int64) ([]models.Document, error)
	FindByIDForUpdate(ctx context.Context, id int64) (*models.Document, error)
	UpdateStatus(ctx context.Context, params repository.UpdateDocumentStatusParams) error
}

// IdentifierStore owns the issued-identifier ledger and sequence counters.
type IdentifierStore interface {
	ListIssued(ctx context.Context, kind models.IdentifierKind, programCode, prefix string) ([]string, error)
	AdvanceSequence(ctx context.Context, prefix string, floor int) (int, error)
	Create(ctx context.Context, record *models.IdentifierRecord) error
	FindByApplication(ctx context.Context, applicationID int64) (*models.IdentifierRecord, error)
}

// StudentStore persists students.
type StudentStore interface {
	Create(ctx context.Context, student *models.Student) error
	FindByID(ctx context.Context, id int64) (*models.Student, error)
	FindByApplication(ctx context.Context, applicationID int64) (*models.Student, error)
}

// BillStore persists billing lines.
type BillStore interface {
	Create(ctx context.Context, bill *models.Bill) error
	ListByStudent(ctx context.Context, studentID int64) ([]models.Bill, error)
}

// AuditStore appends to the audit trail.
type AuditStore interface {
	Append(ctx context.Context, entry *models.AuditTrailEntry) error
	ListByEntity(ctx context.Context, entityType, entityID string) ([]models.AuditTrailEntry, error)
}

// SettingsStore persists admission settings.
type SettingsStore interface {
	List(ctx context.Context) ([]models.AdmissionSetting, error)
	Get(ctx context.Context, key string) (*models.AdmissionSetting, error)
	Upsert(ctx context.Context, setting *models.AdmissionSetting) error
}

// PermissionStore reads role grants and user overrides.
type PermissionStore interface {
	RolePermissions(ctx context.Context, role models.UserRole) ([]string, error)
	UserOverrides(ctx context.Context, userID string) ([]models.UserPermission, error)
	ReplaceUserOverrides(ctx context.Context, userID string, overrides []models.UserPermission, updatedBy string) error
}

// AdmissionStores bundles the stores bound to one database handle or transaction.
type AdmissionStores struct {
	Applications ApplicationStore
	Documents    DocumentStore
	Identifiers  IdentifierStore
	Students     StudentStore
	Bills        BillStore
	Audit        AuditStore
	Settings     SettingsStore
	Permissions  PermissionStore
}

// UnitOfWork runs several store calls atomically. Stores returns handles for
// reads that need no transaction.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, stores AdmissionStores) error) error
	Stores() AdmissionStores
}

// Clock returns the current time; swapped in tests.
type Clock func() time.Time

func utcNow() time.Time { return time.Now().UTC() }

// SQLUnitOfWork is the sqlx implementation of UnitOfWork.
type SQLUnitOfWork struct {
	db *sqlx.DB
}

// NewSQLUnitOfWork constructs a unit of work over db.
func NewSQLUnitOfWork(db *sqlx.DB) *SQLUnitOfWork {
	return &SQLUnitOfWork{db: db}
}

// Do runs fn inside one transaction.
func (u *SQLUnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, stores AdmissionStores) error) error {
	return repository.WithTx(ctx, u.db, func(tx *sqlx.Tx) error {
		return fn(ctx, storesFor(tx))
	})
}

// Stores returns stores bound to the pool.
func (u *SQLUnitOfWork) Stores() AdmissionStores {
	return storesFor(u.db)
}

func storesFor(db repository.DBTX) AdmissionStores {
	return AdmissionStores{
		Applications: repository.NewApplicationRepository(db),
		Documents:    repository.NewDocumentRepository(db),
		Identifiers:  repository.NewIdentifierRepository(db),
		Students:     repository.NewStudentRepository(db),
		Bills:        repository.NewBillRepository(db),
		Audit:        repository.NewAuditRepository(db),
		Settings:     repository.NewSettingsRepository(db),
		Permissions:  repository.NewPermissionRepository(db),
	}
}
