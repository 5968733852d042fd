package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/nu-admissions-api/internal/dto"
	"github.com/noah-isme/nu-admissions-api/pkg/response"
)

type studentService interface {
	Get(ctx context.Context, id int64) (*dto.StudentDetail, error)
	IDCard(ctx context.Context, id int64) ([]byte, string, error)
}

// StudentHandler exposes admitted students.
type StudentHandler struct {
	service studentService
}

// NewStudentHandler builds the handler.
func NewStudentHandler(service studentService) *StudentHandler {
	return &StudentHandler{service: service}
}

// Get godoc
// @Summary Get student with bills
// @Tags Students
// @Produce json
// @Param id path int true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admissions/students/{id} [get]
func (h *StudentHandler) Get(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	detail, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// IDCard godoc
// @Summary Download student ID card
// @Tags Students
// @Produce application/pdf
// @Param id path int true "Student ID"
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /admissions/students/{id}/id-card [get]
func (h *StudentHandler) IDCard(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	pdf, filename, err := h.service.IDCard(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, "application/pdf", filename, pdf)
}
