package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strconv"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/nu-admissions-api/internal/dto"
	"github.com/noah-isme/nu-admissions-api/internal/models"
	appErrors "github.com/noah-isme/nu-admissions-api/pkg/errors"
)

// requiredApplicationFields may be changed but never cleared.
var requiredApplicationFields = map[string]bool{
	models.FieldFullName:    true,
	models.FieldProgramCode: true,
}

// ApplicationService exposes application reads, field edits and lock transitions.
type ApplicationService struct {
	uow       UnitOfWork
	validator *validator.Validate
	logger    *zap.Logger
}

// NewApplicationService constructs the service.
func NewApplicationService(uow UnitOfWork, validate *validator.Validate, logger *zap.Logger) *ApplicationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ApplicationService{uow: uow, validator: validate, logger: logger}
}

// List returns a page of applications.
func (s *ApplicationService) List(ctx context.Context, filter models.ApplicationFilter) ([]models.Application, *models.Pagination, error) {
	for _, status := range filter.Status {
		if !status.Valid() {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown application status "+string(status))
		}
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 200 {
		filter.PageSize = 20
	}

	apps, total, err := s.uow.Stores().Applications.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list applications")
	}
	if apps == nil {
		apps = []models.Application{}
	}
	return apps, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Get returns an application with documents, completeness, issued identifiers and audit trail.
func (s *ApplicationService) Get(ctx context.Context, id int64) (*dto.ApplicationDetail, error) {
	stores := s.uow.Stores()
	app, err := stores.Applications.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "application not found", "failed to load application")
	}

	docs, err := stores.Documents.ListByApplication(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load documents")
	}
	if docs == nil {
		docs = []models.Document{}
	}

	record, err := stores.Identifiers.FindByApplication(ctx, id)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load identifiers")
	}

	trail, err := stores.Audit.ListByEntity(ctx, models.EntityApplication, strconv.FormatInt(id, 10))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load audit trail")
	}
	if trail == nil {
		trail = []models.AuditTrailEntry{}
	}

	return &dto.ApplicationDetail{
		Application:  *app,
		Documents:    docs,
		Completeness: CheckDocumentCompleteness(docs),
		Identifiers:  record,
		AuditTrail:   trail,
	}, nil
}

// Update applies a field-level edit. The PII guard runs against the locked row
// before any write; one audit row is written per field whose value changed.
func (s *ApplicationService) Update(ctx context.Context, actor *models.Actor, id int64, req dto.UpdateApplicationRequest) (*models.Application, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid application payload")
	}
	if readOnly := req.ReadOnlyFields(); len(readOnly) > 0 {
		return nil, appErrors.WithDetails(
			appErrors.Clone(appErrors.ErrValidation, "fields can only change through dedicated transitions"),
			map[string]interface{}{"fields": readOnly})
	}
	changes := req.Changes()
	for field := range requiredApplicationFields {
		if v, ok := changes[field]; ok && v == "" {
			return nil, appErrors.WithDetails(
				appErrors.Clone(appErrors.ErrValidation, "field cannot be empty"),
				map[string]interface{}{"fields": []string{field}})
		}
	}

	var updated *models.Application
	err := s.uow.Do(ctx, func(ctx context.Context, st AdmissionStores) error {
		app, err := st.Applications.FindByIDForUpdate(ctx, id)
		if err != nil {
			return notFoundOr(err, "application not found", "failed to load application")
		}
		if err := AssertPIIMutable(app, changes, actor); err != nil {
			return err
		}

		diff := make(map[string]string, len(changes))
		old := make(map[string]string, len(changes))
		for field, value := range changes {
			stored, _ := app.FieldValue(field)
			if stored != value {
				diff[field] = value
				old[field] = stored
			}
		}
		if len(diff) == 0 {
			updated = app
			return nil
		}
		if err := st.Applications.UpdateFields(ctx, id, diff); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update application")
		}

		fields := make([]string, 0, len(diff))
		for field := range diff {
			fields = append(fields, field)
		}
		sort.Strings(fields)
		for _, field := range fields {
			if _, err := RecordAudit(ctx, st.Audit, AuditChange{
				EntityType: models.EntityApplication,
				EntityID:   strconv.FormatInt(id, 10),
				Field:      field,
				OldValue:   old[field],
				NewValue:   diff[field],
				Actor:      actor.UserID,
				Reason:     req.Reason,
			}); err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record audit entry")
			}
		}

		updated, err = st.Applications.FindByID(ctx, id)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload application")
		}
		s.logger.Info("application updated", zap.Int64("application_id", id), zap.Strings("fields", fields), zap.String("actor", actor.UserID))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// LockIdentifiers sets the identifier lock.
func (s *ApplicationService) LockIdentifiers(ctx context.Context, actor *models.Actor, id int64, reason string) (*models.Application, error) {
	return s.setLock(ctx, actor, id, true, reason)
}

// UnlockIdentifiers clears the identifier lock.
func (s *ApplicationService) UnlockIdentifiers(ctx context.Context, actor *models.Actor, id int64, reason string) (*models.Application, error) {
	return s.setLock(ctx, actor, id, false, reason)
}

func (s *ApplicationService) setLock(ctx context.Context, actor *models.Actor, id int64, locked bool, reason string) (*models.Application, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(dto.LockRequest{Reason: reason}); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid lock payload")
	}
	var app *models.Application
	err := s.uow.Do(ctx, func(ctx context.Context, st AdmissionStores) error {
		var err error
		app, err = st.Applications.FindByIDForUpdate(ctx, id)
		if err != nil {
			return notFoundOr(err, "application not found", "failed to load application")
		}
		if app.IdentifiersLocked == locked {
			if locked {
				return appErrors.Clone(appErrors.ErrAlreadyLocked, "")
			}
			return appErrors.Clone(appErrors.ErrNotLocked, "")
		}
		if err := st.Applications.SetIdentifiersLocked(ctx, id, locked); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update identifier lock")
		}
		if _, err := RecordAudit(ctx, st.Audit, AuditChange{
			EntityType: models.EntityApplication,
			EntityID:   strconv.FormatInt(id, 10),
			Field:      models.FieldIdentifiersLocked,
			OldValue:   strconv.FormatBool(app.IdentifiersLocked),
			NewValue:   strconv.FormatBool(locked),
			Actor:      actor.UserID,
			Reason:     reason,
		}); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record audit entry")
		}
		app.IdentifiersLocked = locked
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("identifier lock changed", zap.Int64("application_id", id), zap.Bool("locked", locked), zap.String("actor", actor.UserID))
	return app, nil
}

func notFoundOr(err error, notFound, internal string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, internal)
}
