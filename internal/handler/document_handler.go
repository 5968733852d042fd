package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/nu-admissions-api/internal/dto"
	"github.com/noah-isme/nu-admissions-api/internal/models"
	"github.com/noah-isme/nu-admissions-api/pkg/response"
)

type documentService interface {
	UpdateStatus(ctx context.Context, actor *models.Actor, id int64, req dto.UpdateDocumentStatusRequest) (*models.Document, error)
}

// DocumentHandler records document validation decisions.
type DocumentHandler struct {
	service documentService
}

// NewDocumentHandler builds the handler.
func NewDocumentHandler(service documentService) *DocumentHandler {
	return &DocumentHandler{service: service}
}

// UpdateStatus godoc
// @Summary Set document validation status
// @Tags Documents
// @Accept json
// @Produce json
// @Param id path int true "Document ID"
// @Param payload body dto.UpdateDocumentStatusRequest true "Status"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admissions/documents/{id}/status [patch]
func (h *DocumentHandler) UpdateStatus(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.UpdateDocumentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid document status payload"))
		return
	}
	doc, err := h.service.UpdateStatus(c.Request.Context(), actorFromContext(c), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doc, nil)
}
