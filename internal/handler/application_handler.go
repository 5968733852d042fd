package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/nu-admissions-api/internal/dto"
	"github.com/noah-isme/nu-admissions-api/internal/models"
	"github.com/noah-isme/nu-admissions-api/pkg/response"
)

type applicationService interface {
	List(ctx context.Context, filter models.ApplicationFilter) ([]models.Application, *models.Pagination, error)
	Get(ctx context.Context, id int64) (*dto.ApplicationDetail, error)
	Update(ctx context.Context, actor *models.Actor, id int64, req dto.UpdateApplicationRequest) (*models.Application, error)
	LockIdentifiers(ctx context.Context, actor *models.Actor, id int64, reason string) (*models.Application, error)
	UnlockIdentifiers(ctx context.Context, actor *models.Actor, id int64, reason string) (*models.Application, error)
}

type approvalService interface {
	Approve(ctx context.Context, actor *models.Actor, applicationID int64, req dto.ApproveRequest) (*dto.ApproveResponse, error)
}

// ApplicationHandler exposes admission application endpoints.
type ApplicationHandler struct {
	applications applicationService
	approvals    approvalService
}

// NewApplicationHandler builds the handler.
func NewApplicationHandler(applications applicationService, approvals approvalService) *ApplicationHandler {
	return &ApplicationHandler{applications: applications, approvals: approvals}
}

// List godoc
// @Summary List applications
// @Tags Applications
// @Produce json
// @Param status query string false "Comma separated statuses"
// @Param program_code query string false "Program code"
// @Param campus query string false "Campus"
// @Param semester query string false "Semester"
// @Param q query string false "Name, e-mail or reference search"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /admissions/applications [get]
func (h *ApplicationHandler) List(c *gin.Context) {
	filter := models.ApplicationFilter{
		ProgramCode: strings.ToUpper(strings.TrimSpace(c.Query("program_code"))),
		Campus:      strings.TrimSpace(c.Query("campus")),
		Semester:    strings.TrimSpace(c.Query("semester")),
		Search:      strings.TrimSpace(c.Query("q")),
	}
	for _, raw := range strings.Split(c.Query("status"), ",") {
		if s := strings.ToUpper(strings.TrimSpace(raw)); s != "" {
			filter.Status = append(filter.Status, models.ApplicationStatus(s))
		}
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))

	apps, pagination, err := h.applications.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, apps, pagination)
}

// Get godoc
// @Summary Get application detail
// @Tags Applications
// @Produce json
// @Param id path int true "Application ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admissions/applications/{id} [get]
func (h *ApplicationHandler) Get(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	detail, err := h.applications.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Update godoc
// @Summary Edit application fields
// @Description Identity fields are rejected with PII_LOCKED while identifiers are locked.
// @Tags Applications
// @Accept json
// @Produce json
// @Param id path int true "Application ID"
// @Param payload body dto.UpdateApplicationRequest true "Changed fields"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 423 {object} response.Envelope
// @Router /admissions/applications/{id} [patch]
func (h *ApplicationHandler) Update(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.UpdateApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid application payload"))
		return
	}
	app, err := h.applications.Update(c.Request.Context(), actorFromContext(c), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, app, nil)
}

// Approve godoc
// @Summary Approve application
// @Description Issues University and UGC identifiers and creates the student record.
// @Tags Applications
// @Accept json
// @Produce json
// @Param id path int true "Application ID"
// @Param payload body dto.ApproveRequest false "Approval options"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /admissions/applications/{id}/approve [post]
func (h *ApplicationHandler) Approve(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.ApproveRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		response.Error(c, bindError(err, "invalid approval payload"))
		return
	}
	res, err := h.approvals.Approve(c.Request.Context(), actorFromContext(c), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Lock godoc
// @Summary Lock identity fields
// @Tags Applications
// @Accept json
// @Produce json
// @Param id path int true "Application ID"
// @Param payload body dto.LockRequest false "Reason"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admissions/applications/{id}/identifiers/lock [post]
func (h *ApplicationHandler) Lock(c *gin.Context) {
	h.setLock(c, true)
}

// Unlock godoc
// @Summary Unlock identity fields
// @Tags Applications
// @Accept json
// @Produce json
// @Param id path int true "Application ID"
// @Param payload body dto.LockRequest false "Reason"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admissions/applications/{id}/identifiers/unlock [post]
func (h *ApplicationHandler) Unlock(c *gin.Context) {
	h.setLock(c, false)
}

func (h *ApplicationHandler) setLock(c *gin.Context, locked bool) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.LockRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		response.Error(c, bindError(err, "invalid lock payload"))
		return
	}
	var app *models.Application
	if locked {
		app, err = h.applications.LockIdentifiers(c.Request.Context(), actorFromContext(c), id, req.Reason)
	} else {
		app, err = h.applications.UnlockIdentifiers(c.Request.Context(), actorFromContext(c), id, req.Reason)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, app, nil)
}
