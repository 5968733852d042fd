package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/nu-admissions-api/internal/dto"
	"github.com/noah-isme/nu-admissions-api/internal/models"
	"github.com/noah-isme/nu-admissions-api/pkg/response"
)

type settingsService interface {
	List(ctx context.Context) ([]models.AdmissionSetting, error)
	Update(ctx context.Context, actor *models.Actor, key string, req dto.UpdateSettingRequest) (*models.AdmissionSetting, error)
}

// SettingsHandler exposes admission settings.
type SettingsHandler struct {
	service settingsService
}

// NewSettingsHandler builds the handler.
func NewSettingsHandler(service settingsService) *SettingsHandler {
	return &SettingsHandler{service: service}
}

// List godoc
// @Summary List admission settings
// @Tags Settings
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admissions/settings [get]
func (h *SettingsHandler) List(c *gin.Context) {
	settings, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, settings, nil)
}

// Update godoc
// @Summary Update admission setting
// @Tags Settings
// @Accept json
// @Produce json
// @Param key path string true "Setting key"
// @Param payload body dto.UpdateSettingRequest true "New value"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admissions/settings/{key} [put]
func (h *SettingsHandler) Update(c *gin.Context) {
	var req dto.UpdateSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid setting payload"))
		return
	}
	setting, err := h.service.Update(c.Request.Context(), actorFromContext(c), c.Param("key"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, setting, nil)
}
