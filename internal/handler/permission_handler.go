package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/nu-admissions-api/internal/dto"
	"github.com/noah-isme/nu-admissions-api/internal/models"
	appErrors "github.com/noah-isme/nu-admissions-api/pkg/errors"
	"github.com/noah-isme/nu-admissions-api/pkg/response"
)

type permissionService interface {
	Describe(ctx context.Context, userID string) (*dto.PermissionsResponse, error)
	ReplaceOverrides(ctx context.Context, actor *models.Actor, userID string, req dto.UpdatePermissionsRequest) (*dto.PermissionsResponse, error)
}

// PermissionHandler manages per-user permission overrides.
type PermissionHandler struct {
	service permissionService
}

// NewPermissionHandler builds the handler.
func NewPermissionHandler(service permissionService) *PermissionHandler {
	return &PermissionHandler{service: service}
}

// Get godoc
// @Summary Get user permissions
// @Tags Permissions
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} response.Envelope
// @Router /admissions/users/{id}/permissions [get]
func (h *PermissionHandler) Get(c *gin.Context) {
	resp, err := h.service.Describe(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}

// Replace godoc
// @Summary Replace user permission overrides
// @Tags Permissions
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param payload body dto.UpdatePermissionsRequest true "Overrides"
// @Success 200 {object} response.Envelope
// @Router /admissions/users/{id}/permissions [put]
func (h *PermissionHandler) Replace(c *gin.Context) {
	var req dto.UpdatePermissionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid permission payload"))
		return
	}
	resp, err := h.service.ReplaceOverrides(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}

// Mine godoc
// @Summary Get current user's permissions
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /auth/me/permissions [get]
func (h *PermissionHandler) Mine(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	resp, err := h.service.Describe(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}
