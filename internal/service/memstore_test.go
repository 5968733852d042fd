package service

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/noah-isme/nu-admissions-api/internal/models"
	"github.com/noah-isme/nu-admissions-api/internal/repository"
)

// memState is the full dataset of the in-memory store.
type memState struct {
	apps      map[int64]models.Application
	docs      []models.Document
	ledger    []models.IdentifierRecord
	sequences map[string]int
	students  []models.Student
	bills     []models.Bill
	audit     []models.AuditTrailEntry
	settings  map[string]models.AdmissionSetting
	rolePerms map[models.UserRole][]string
	overrides map[string][]models.UserPermission
	nextID    int64
}

func newMemState() *memState {
	return &memState{
		apps:      map[int64]models.Application{},
		sequences: map[string]int{},
		settings:  map[string]models.AdmissionSetting{},
		rolePerms: map[models.UserRole][]string{},
		overrides: map[string][]models.UserPermission{},
		nextID:    1000,
	}
}

func (s *memState) clone() *memState {
	out := &memState{
		apps:      make(map[int64]models.Application, len(s.apps)),
		docs:      append([]models.Document(nil), s.docs...),
		ledger:    append([]models.IdentifierRecord(nil), s.ledger...),
		sequences: make(map[string]int, len(s.sequences)),
		students:  append([]models.Student(nil), s.students...),
		bills:     append([]models.Bill(nil), s.bills...),
		audit:     append([]models.AuditTrailEntry(nil), s.audit...),
		settings:  make(map[string]models.AdmissionSetting, len(s.settings)),
		rolePerms: make(map[models.UserRole][]string, len(s.rolePerms)),
		overrides: make(map[string][]models.UserPermission, len(s.overrides)),
		nextID:    s.nextID,
	}
	for k, v := range s.apps {
		out.apps[k] = v
	}
	for k, v := range s.sequences {
		out.sequences[k] = v
	}
	for k, v := range s.settings {
		out.settings[k] = v
	}
	for k, v := range s.rolePerms {
		out.rolePerms[k] = append([]string(nil), v...)
	}
	for k, v := range s.overrides {
		out.overrides[k] = append([]models.UserPermission(nil), v...)
	}
	return out
}

func (s *memState) id() int64 {
	s.nextID++
	return s.nextID
}

// memDB implements UnitOfWork over memState. Units of work are serialised and
// roll back to a snapshot when fn fails.
type memDB struct {
	mu     sync.Mutex
	state  *memState
	failOn map[string]error
	txs    int
}

func newMemDB() *memDB {
	return &memDB{state: newMemState(), failOn: map[string]error{}}
}

func (db *memDB) Do(ctx context.Context, fn func(ctx context.Context, stores AdmissionStores) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.txs++
	snapshot := db.state.clone()
	if err := fn(ctx, db.stores(false)); err != nil {
		db.state = snapshot
		return err
	}
	return nil
}

func (db *memDB) Stores() AdmissionStores {
	return db.stores(true)
}

func (db *memDB) stores(lock bool) AdmissionStores {
	h := &memHandle{db: db, lock: lock}
	return AdmissionStores{
		Applications: memApplications{h},
		Documents:    memDocuments{h},
		Identifiers:  memIdentifiers{h},
		Students:     memStudents{h},
		Bills:        memBills{h},
		Audit:        memAudit{h},
		Settings:     memSettings{h},
		Permissions:  memPermissions{h},
	}
}

// snapshot returns a copy of the current state for assertions.
func (db *memDB) snapshot() *memState {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.state.clone()
}

func (db *memDB) seed(fn func(s *memState)) {
	db.mu.Lock()
	defer db.mu.Unlock()
	fn(db.state)
}

type memHandle struct {
	db   *memDB
	lock bool
}

func (h *memHandle) run(op string, fn func(s *memState) error) error {
	if h.lock {
		h.db.mu.Lock()
		defer h.db.mu.Unlock()
	}
	if err := h.db.failOn[op]; err != nil {
		return err
	}
	return fn(h.db.state)
}

type memApplications struct{ h *memHandle }

func (m memApplications) FindByID(ctx context.Context, id int64) (*models.Application, error) {
	var out *models.Application
	err := m.h.run("applications.find", func(s *memState) error {
		app, ok := s.apps[id]
		if !ok {
			return sql.ErrNoRows
		}
		out = &app
		return nil
	})
	return out, err
}

func (m memApplications) FindByIDForUpdate(ctx context.Context, id int64) (*models.Application, error) {
	return m.FindByID(ctx, id)
}

func (m memApplications) List(ctx context.Context, filter models.ApplicationFilter) ([]models.Application, int, error) {
	var out []models.Application
	err := m.h.run("applications.list", func(s *memState) error {
		for _, app := range s.apps {
			if filter.ProgramCode != "" && app.ProgramCode != filter.ProgramCode {
				continue
			}
			if len(filter.Status) > 0 {
				match := false
				for _, st := range filter.Status {
					match = match || st == app.Status
				}
				if !match {
					continue
				}
			}
			out = append(out, app)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		return nil
	})
	return out, len(out), err
}

func (m memApplications) UpdateFields(ctx context.Context, id int64, changes map[string]string) error {
	return m.h.run("applications.update", func(s *memState) error {
		app, ok := s.apps[id]
		if !ok {
			return sql.ErrNoRows
		}
		for field, v := range changes {
			value := v
			switch field {
			case models.FieldFullName:
				app.FullName = value
			case models.FieldEmail:
				app.Email = value
			case models.FieldPhone:
				app.Phone = value
			case models.FieldProgramCode:
				app.ProgramCode = value
			case models.FieldCampus:
				app.Campus = value
			case models.FieldSemester:
				app.Semester = value
			case models.FieldPaymentStatus:
				app.PaymentStatus = models.PaymentStatus(value)
			case models.FieldNIDNo:
				app.NIDNo = nullable(value)
			case models.FieldPassportNo:
				app.PassportNo = nullable(value)
			case models.FieldBirthCertificateNo:
				app.BirthCertificateNo = nullable(value)
			}
		}
		app.UpdatedAt = time.Now().UTC()
		s.apps[id] = app
		return nil
	})
}

func (m memApplications) MarkAdmitted(ctx context.Context, params repository.AdmitApplicationParams) error {
	return m.h.run("applications.mark_admitted", func(s *memState) error {
		app, ok := s.apps[params.ID]
		if !ok || app.Status == models.ApplicationStatusAdmitted {
			return sql.ErrNoRows
		}
		app.Status = models.ApplicationStatusAdmitted
		converted := params.ConvertedStudentID
		app.ConvertedStudentID = &converted
		app.PaymentStatus = params.PaymentStatus
		app.UpdatedAt = params.UpdatedAt
		s.apps[params.ID] = app
		return nil
	})
}

func (m memApplications) SetIdentifiersLocked(ctx context.Context, id int64, locked bool) error {
	return m.h.run("applications.set_lock", func(s *memState) error {
		app, ok := s.apps[id]
		if !ok || app.IdentifiersLocked == locked {
			return sql.ErrNoRows
		}
		app.IdentifiersLocked = locked
		s.apps[id] = app
		return nil
	})
}

type memDocuments struct{ h *memHandle }

func (m memDocuments) ListByApplication(ctx context.Context, applicationID int64) ([]models.Document, error) {
	var out []models.Document
	err := m.h.run("documents.list", func(s *memState) error {
		for _, d := range s.docs {
			if d.ApplicationID == applicationID {
				out = append(out, d)
			}
		}
		return nil
	})
	return out, err
}

func (m memDocuments) FindByIDForUpdate(ctx context.Context, id int64) (*models.Document, error) {
	var out *models.Document
	err := m.h.run("documents.find", func(s *memState) error {
		for _, d := range s.docs {
			if d.ID == id {
				doc := d
				out = &doc
				return nil
			}
		}
		return sql.ErrNoRows
	})
	return out, err
}

func (m memDocuments) UpdateStatus(ctx context.Context, params repository.UpdateDocumentStatusParams) error {
	return m.h.run("documents.update_status", func(s *memState) error {
		for i := range s.docs {
			if s.docs[i].ID == params.ID {
				at := params.ValidatedAt
				by := params.ValidatedBy
				s.docs[i].Status = params.Status
				s.docs[i].ValidatedAt = &at
				s.docs[i].ValidatedBy = &by
				return nil
			}
		}
		return sql.ErrNoRows
	})
}

type memIdentifiers struct{ h *memHandle }

func (m memIdentifiers) ListIssued(ctx context.Context, kind models.IdentifierKind, programCode, prefix string) ([]string, error) {
	var out []string
	err := m.h.run("identifiers.list", func(s *memState) error {
		for _, r := range s.ledger {
			value := r.UniversityID
			if kind == models.IdentifierKindUGC {
				value = r.UGCID
			}
			if programCode != "" && !strings.EqualFold(r.ProgramCode, programCode) {
				continue
			}
			if strings.HasPrefix(value, prefix) {
				out = append(out, value)
			}
		}
		return nil
	})
	return out, err
}

func (m memIdentifiers) AdvanceSequence(ctx context.Context, prefix string, floor int) (int, error) {
	var next int
	err := m.h.run("identifiers.advance", func(s *memState) error {
		if floor < 1 {
			floor = 1
		}
		current, ok := s.sequences[prefix]
		next = floor
		if ok && current+1 > floor {
			next = current + 1
		}
		s.sequences[prefix] = next
		return nil
	})
	return next, err
}

func (m memIdentifiers) Create(ctx context.Context, record *models.IdentifierRecord) error {
	return m.h.run("identifiers.create", func(s *memState) error {
		for _, r := range s.ledger {
			if r.UniversityID == record.UniversityID || r.UGCID == record.UGCID || r.ApplicationID == record.ApplicationID {
				return repository.ErrDuplicateKey
			}
		}
		record.ID = s.id()
		s.ledger = append(s.ledger, *record)
		return nil
	})
}

func (m memIdentifiers) FindByApplication(ctx context.Context, applicationID int64) (*models.IdentifierRecord, error) {
	var out *models.IdentifierRecord
	err := m.h.run("identifiers.find", func(s *memState) error {
		for _, r := range s.ledger {
			if r.ApplicationID == applicationID {
				rec := r
				out = &rec
				return nil
			}
		}
		return sql.ErrNoRows
	})
	return out, err
}

type memStudents struct{ h *memHandle }

func (m memStudents) Create(ctx context.Context, student *models.Student) error {
	return m.h.run("students.create", func(s *memState) error {
		for _, st := range s.students {
			if st.UniversityID == student.UniversityID || st.UGCID == student.UGCID || st.ApplicationID == student.ApplicationID {
				return repository.ErrDuplicateKey
			}
		}
		student.ID = s.id()
		s.students = append(s.students, *student)
		return nil
	})
}

func (m memStudents) FindByID(ctx context.Context, id int64) (*models.Student, error) {
	var out *models.Student
	err := m.h.run("students.find", func(s *memState) error {
		for _, st := range s.students {
			if st.ID == id {
				student := st
				out = &student
				return nil
			}
		}
		return sql.ErrNoRows
	})
	return out, err
}

func (m memStudents) FindByApplication(ctx context.Context, applicationID int64) (*models.Student, error) {
	var out *models.Student
	err := m.h.run("students.find", func(s *memState) error {
		for _, st := range s.students {
			if st.ApplicationID == applicationID {
				student := st
				out = &student
				return nil
			}
		}
		return sql.ErrNoRows
	})
	return out, err
}

type memBills struct{ h *memHandle }

func (m memBills) Create(ctx context.Context, bill *models.Bill) error {
	return m.h.run("bills.create", func(s *memState) error {
		bill.ID = s.id()
		s.bills = append(s.bills, *bill)
		return nil
	})
}

func (m memBills) ListByStudent(ctx context.Context, studentID int64) ([]models.Bill, error) {
	var out []models.Bill
	err := m.h.run("bills.list", func(s *memState) error {
		for _, b := range s.bills {
			if b.StudentID == studentID {
				out = append(out, b)
			}
		}
		return nil
	})
	return out, err
}

type memAudit struct{ h *memHandle }

func (m memAudit) Append(ctx context.Context, entry *models.AuditTrailEntry) error {
	return m.h.run("audit.append", func(s *memState) error {
		entry.ID = s.id()
		s.audit = append(s.audit, *entry)
		return nil
	})
}

func (m memAudit) ListByEntity(ctx context.Context, entityType, entityID string) ([]models.AuditTrailEntry, error) {
	var out []models.AuditTrailEntry
	err := m.h.run("audit.list", func(s *memState) error {
		for _, e := range s.audit {
			if e.EntityType == entityType && e.EntityID == entityID {
				out = append(out, e)
			}
		}
		return nil
	})
	return out, err
}

type memSettings struct{ h *memHandle }

func (m memSettings) List(ctx context.Context) ([]models.AdmissionSetting, error) {
	var out []models.AdmissionSetting
	err := m.h.run("settings.list", func(s *memState) error {
		for _, v := range s.settings {
			out = append(out, v)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
		return nil
	})
	return out, err
}

func (m memSettings) Get(ctx context.Context, key string) (*models.AdmissionSetting, error) {
	var out *models.AdmissionSetting
	err := m.h.run("settings.get", func(s *memState) error {
		v, ok := s.settings[key]
		if !ok {
			return sql.ErrNoRows
		}
		out = &v
		return nil
	})
	return out, err
}

func (m memSettings) Upsert(ctx context.Context, setting *models.AdmissionSetting) error {
	return m.h.run("settings.upsert", func(s *memState) error {
		setting.UpdatedAt = time.Now().UTC()
		s.settings[setting.Key] = *setting
		return nil
	})
}

type memPermissions struct{ h *memHandle }

func (m memPermissions) RolePermissions(ctx context.Context, role models.UserRole) ([]string, error) {
	var out []string
	err := m.h.run("permissions.role", func(s *memState) error {
		out = append(out, s.rolePerms[role]...)
		return nil
	})
	return out, err
}

func (m memPermissions) UserOverrides(ctx context.Context, userID string) ([]models.UserPermission, error) {
	var out []models.UserPermission
	err := m.h.run("permissions.user", func(s *memState) error {
		out = append(out, s.overrides[userID]...)
		return nil
	})
	return out, err
}

func (m memPermissions) ReplaceUserOverrides(ctx context.Context, userID string, overrides []models.UserPermission, updatedBy string) error {
	return m.h.run("permissions.replace", func(s *memState) error {
		s.overrides[userID] = append([]models.UserPermission(nil), overrides...)
		return nil
	})
}
