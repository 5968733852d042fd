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
	appErrors "github.com/noah-isme/nu-admissions-api/pkg/errors"
)

type settingValidator func(value string) error

var settingValidators = map[string]settingValidator{
	models.SettingAdmissionFee: func(value string) error {
		fee, err := strconv.ParseFloat(value, 64)
		if err != nil || fee < 0 {
			return errors.New("admission_fee must be a non-negative number")
		}
		return nil
	},
}

// SettingsService manages admission settings.
type SettingsService struct {
	uow       UnitOfWork
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSettingsService constructs the service.
func NewSettingsService(uow UnitOfWork, validate *validator.Validate, logger *zap.Logger) *SettingsService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettingsService{uow: uow, validator: validate, logger: logger}
}

// List returns every setting.
func (s *SettingsService) List(ctx context.Context) ([]models.AdmissionSetting, error) {
	settings, err := s.uow.Stores().Settings.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list settings")
	}
	if settings == nil {
		settings = []models.AdmissionSetting{}
	}
	return settings, nil
}

// Update writes one known setting and audits the value change.
func (s *SettingsService) Update(ctx context.Context, actor *models.Actor, key string, req dto.UpdateSettingRequest) (*models.AdmissionSetting, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid setting payload")
	}
	check, known := settingValidators[key]
	if !known {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "unknown setting")
	}
	value := strings.TrimSpace(req.Value)
	if err := check(value); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}

	setting := &models.AdmissionSetting{Key: key, Value: value, Description: req.Description}
	err := s.uow.Do(ctx, func(ctx context.Context, st AdmissionStores) error {
		previous := ""
		current, err := st.Settings.Get(ctx, key)
		switch {
		case err == nil:
			previous = current.Value
		case !errors.Is(err, sql.ErrNoRows):
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load setting")
		}

		updatedBy := actor.UserID
		setting.UpdatedBy = &updatedBy
		if err := st.Settings.Upsert(ctx, setting); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store setting")
		}
		if _, err := RecordAudit(ctx, st.Audit, AuditChange{
			EntityType: models.EntitySetting,
			EntityID:   key,
			Field:      "value",
			OldValue:   previous,
			NewValue:   value,
			Actor:      actor.UserID,
			Reason:     req.Reason,
		}); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record audit entry")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("admission setting updated", zap.String("key", key), zap.String("actor", actor.UserID))
	return setting, nil
}
