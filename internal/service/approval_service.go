package service

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/nu-admissions-api/internal/dto"
	"github.com/noah-isme/nu-admissions-api/internal/models"
	"github.com/noah-isme/nu-admissions-api/internal/repository"
	appErrors "github.com/noah-isme/nu-admissions-api/pkg/errors"
)

type admissionNotifier interface {
	NotifyAdmission(ctx context.Context, notice AdmissionNotice) error
}

type approvalMetrics interface {
	RecordApproval(outcome string)
}

// ApprovalConfig holds approval defaults.
type ApprovalConfig struct {
	DefaultAdmissionFee float64
}

// ApprovalService converts applications into students.
type ApprovalService struct {
	uow       UnitOfWork
	generator *IdentifierGenerator
	notifier  admissionNotifier
	metrics   approvalMetrics
	validator *validator.Validate
	logger    *zap.Logger
	config    ApprovalConfig
	now       Clock
}

// NewApprovalService constructs the service. notifier and metrics may be nil.
func NewApprovalService(uow UnitOfWork, generator *IdentifierGenerator, notifier admissionNotifier, metrics approvalMetrics, validate *validator.Validate, logger *zap.Logger, cfg ApprovalConfig) *ApprovalService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if generator == nil {
		generator = NewIdentifierGenerator(logger)
	}
	return &ApprovalService{
		uow:       uow,
		generator: generator,
		notifier:  notifier,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		config:    cfg,
		now:       utcNow,
	}
}

// Approve admits an application. Preconditions are checked in order under the
// application row lock; every write happens in the same transaction, so a
// failure at any step leaves nothing behind.
func (s *ApprovalService) Approve(ctx context.Context, actor *models.Actor, applicationID int64, req dto.ApproveRequest) (*dto.ApproveResponse, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid approval payload")
	}

	var (
		result *dto.ApproveResponse
		notice AdmissionNotice
	)
	err := s.uow.Do(ctx, func(ctx context.Context, st AdmissionStores) error {
		app, err := st.Applications.FindByIDForUpdate(ctx, applicationID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "application not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load application")
		}

		if app.Status == models.ApplicationStatusAdmitted {
			details := map[string]interface{}{}
			if app.ConvertedStudentID != nil {
				details["university_id"] = *app.ConvertedStudentID
			}
			return appErrors.WithDetails(appErrors.ErrAlreadyAdmitted, details)
		}

		if !req.OverrideMissingDocs && !actor.IsAdministrator() {
			docs, err := st.Documents.ListByApplication(ctx, app.ID)
			if err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load documents")
			}
			if completeness := CheckDocumentCompleteness(docs); !completeness.Complete {
				return appErrors.WithDetails(appErrors.ErrMissingDocuments, map[string]interface{}{"missing": completeness.Missing})
			}
		}

		if app.Status == models.ApplicationStatusFlagged && !actor.IsAdministrator() {
			return appErrors.Clone(appErrors.ErrFlaggedApplication, "")
		}

		issuedAt := s.now().UTC()
		ids, err := s.generator.Next(ctx, st.Identifiers, app.ProgramCode, issuedAt)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate identifiers")
		}

		record := &models.IdentifierRecord{
			ApplicationID: app.ID,
			UniversityID:  ids.UniversityID,
			UGCID:         ids.UGCID,
			ProgramCode:   normaliseProgramCode(app.ProgramCode),
			UniversitySeq: ids.UniversitySeq,
			UGCSeq:        ids.UGCSeq,
			GeneratedBy:   actor.UserID,
			CreatedAt:     issuedAt,
		}
		if err := st.Identifiers.Create(ctx, record); err != nil {
			return writeFailure(err, "failed to record issued identifiers")
		}

		student := &models.Student{
			ApplicationID: app.ID,
			UniversityID:  ids.UniversityID,
			UGCID:         ids.UGCID,
			FullName:      app.FullName,
			Email:         app.Email,
			Phone:         app.Phone,
			ProgramCode:   normaliseProgramCode(app.ProgramCode),
			Campus:        app.Campus,
			Semester:      app.Semester,
			Batch:         BatchLabel(app.ProgramCode, issuedAt),
			CreatedAt:     issuedAt,
		}
		if err := st.Students.Create(ctx, student); err != nil {
			return writeFailure(err, "failed to create student")
		}

		fee, err := s.admissionFee(ctx, st.Settings)
		if err != nil {
			return err
		}
		paymentStatus := models.NormalizePaymentStatus(string(app.PaymentStatus))
		bill := &models.Bill{
			StudentID:     student.ID,
			Description:   models.BillDescriptionAdmissionFee,
			Amount:        fee,
			PaymentStatus: paymentStatus,
			CreatedBy:     actor.UserID,
			CreatedAt:     issuedAt,
		}
		if err := st.Bills.Create(ctx, bill); err != nil {
			return writeFailure(err, "failed to create admission bill")
		}

		err = st.Applications.MarkAdmitted(ctx, repository.AdmitApplicationParams{
			ID:                 app.ID,
			ConvertedStudentID: ids.UniversityID,
			PaymentStatus:      paymentStatus,
			UpdatedAt:          issuedAt,
		})
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrAlreadyAdmitted, "")
			}
			return writeFailure(err, "failed to update application")
		}

		if _, err := RecordAudit(ctx, st.Audit, AuditChange{
			EntityType: models.EntityApplication,
			EntityID:   strconv.FormatInt(app.ID, 10),
			Field:      models.FieldStatus,
			OldValue:   string(app.Status),
			NewValue:   string(models.ApplicationStatusAdmitted),
			Actor:      actor.UserID,
			Reason:     req.Reason,
		}); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record audit entry")
		}

		result = &dto.ApproveResponse{
			Success:      true,
			Status:       models.ApplicationStatusAdmitted,
			UniversityID: ids.UniversityID,
			UGCID:        ids.UGCID,
			StudentID:    student.ID,
		}
		notice = AdmissionNotice{
			ApplicationID: app.ID,
			ReferenceNo:   app.ReferenceNo,
			FullName:      app.FullName,
			Email:         app.Email,
			ProgramCode:   student.ProgramCode,
			Batch:         student.Batch,
			UniversityID:  ids.UniversityID,
			UGCID:         ids.UGCID,
			StudentID:     student.ID,
			AdmittedAt:    issuedAt,
		}
		return nil
	})
	if err != nil {
		s.recordOutcome(err)
		return nil, err
	}
	s.recordOutcome(nil)

	s.logger.Info("application admitted",
		zap.Int64("application_id", applicationID),
		zap.String("university_id", result.UniversityID),
		zap.String("ugc_id", result.UGCID),
		zap.String("actor", actor.UserID),
		zap.Bool("override_missing_docs", req.OverrideMissingDocs))

	if s.notifier != nil {
		if err := s.notifier.NotifyAdmission(ctx, notice); err != nil {
			s.logger.Warn("failed to schedule admission notice", zap.Int64("application_id", applicationID), zap.Error(err))
		}
	}
	return result, nil
}

func (s *ApprovalService) admissionFee(ctx context.Context, settings SettingsStore) (float64, error) {
	setting, err := settings.Get(ctx, models.SettingAdmissionFee)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return s.config.DefaultAdmissionFee, nil
		}
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load admission fee")
	}
	fee, err := strconv.ParseFloat(strings.TrimSpace(setting.Value), 64)
	if err != nil || fee < 0 {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "admission fee setting is not a valid amount")
	}
	return fee, nil
}

func (s *ApprovalService) recordOutcome(err error) {
	if s.metrics == nil {
		return
	}
	if err == nil {
		s.metrics.RecordApproval("admitted")
		return
	}
	s.metrics.RecordApproval(strings.ToLower(appErrors.FromError(err).Code))
}

// writeFailure maps unique violations to DUPLICATE_IDENTIFIER.
func writeFailure(err error, message string) error {
	if errors.Is(err, repository.ErrDuplicateKey) {
		return appErrors.Wrap(err, appErrors.ErrDuplicateIdentifier.Code, appErrors.ErrDuplicateIdentifier.Status, appErrors.ErrDuplicateIdentifier.Message)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}
