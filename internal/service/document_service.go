package service

import (
	"context"
	"strconv"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/nu-admissions-api/internal/dto"
	"github.com/noah-isme/nu-admissions-api/internal/models"
	"github.com/noah-isme/nu-admissions-api/internal/repository"
	appErrors "github.com/noah-isme/nu-admissions-api/pkg/errors"
)

// DocumentService records validation decisions on uploaded credentials.
type DocumentService struct {
	uow       UnitOfWork
	validator *validator.Validate
	logger    *zap.Logger
	now       Clock
}

// NewDocumentService constructs the service.
func NewDocumentService(uow UnitOfWork, validate *validator.Validate, logger *zap.Logger) *DocumentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentService{uow: uow, validator: validate, logger: logger, now: utcNow}
}

// UpdateStatus sets a document's validation status and audits the transition.
// Superseded uploads cannot be changed.
func (s *DocumentService) UpdateStatus(ctx context.Context, actor *models.Actor, id int64, req dto.UpdateDocumentStatusRequest) (*models.Document, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid document status payload")
	}
	status, ok := models.ParseDocumentStatus(req.Status)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "status must be Pending, Validated or Rejected")
	}

	var doc *models.Document
	err := s.uow.Do(ctx, func(ctx context.Context, st AdmissionStores) error {
		var err error
		doc, err = st.Documents.FindByIDForUpdate(ctx, id)
		if err != nil {
			return notFoundOr(err, "document not found", "failed to load document")
		}
		if doc.Superseded {
			return appErrors.Clone(appErrors.ErrConflict, "document has been superseded")
		}
		if doc.Status == status {
			return nil
		}

		now := s.now()
		if err := st.Documents.UpdateStatus(ctx, repository.UpdateDocumentStatusParams{
			ID: id, Status: status, ValidatedBy: actor.UserID, ValidatedAt: now,
		}); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update document")
		}
		if _, err := RecordAudit(ctx, st.Audit, AuditChange{
			EntityType: models.EntityDocument,
			EntityID:   strconv.FormatInt(id, 10),
			Field:      "status",
			OldValue:   string(doc.Status),
			NewValue:   string(status),
			Actor:      actor.UserID,
			Reason:     req.Reason,
		}); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record audit entry")
		}
		doc.Status = status
		doc.ValidatedAt = &now
		validatedBy := actor.UserID
		doc.ValidatedBy = &validatedBy
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("document status updated", zap.Int64("document_id", id), zap.String("status", string(status)), zap.String("actor", actor.UserID))
	return doc, nil
}
