package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/nu-admissions-api/internal/dto"
	"github.com/noah-isme/nu-admissions-api/internal/models"
	appErrors "github.com/noah-isme/nu-admissions-api/pkg/errors"
	"github.com/noah-isme/nu-admissions-api/pkg/export"
)

type idCardRenderer interface {
	Render(card export.IDCard) ([]byte, error)
}

// StudentConfig controls ID card content.
type StudentConfig struct {
	InstitutionName string
	ValidityYears   int
}

// StudentService exposes admitted students, their bills and ID cards.
type StudentService struct {
	uow      UnitOfWork
	renderer idCardRenderer
	logger   *zap.Logger
	config   StudentConfig
}

// NewStudentService constructs the service.
func NewStudentService(uow UnitOfWork, renderer idCardRenderer, logger *zap.Logger, cfg StudentConfig) *StudentService {
	if renderer == nil {
		renderer = export.NewIDCardRenderer()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ValidityYears <= 0 {
		cfg.ValidityYears = 4
	}
	return &StudentService{uow: uow, renderer: renderer, logger: logger, config: cfg}
}

// Get returns a student with billing lines.
func (s *StudentService) Get(ctx context.Context, id int64) (*dto.StudentDetail, error) {
	stores := s.uow.Stores()
	student, err := stores.Students.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "student not found", "failed to load student")
	}
	bills, err := stores.Bills.ListByStudent(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "student not found", "failed to load bills")
	}
	if bills == nil {
		bills = []models.Bill{}
	}
	return &dto.StudentDetail{Student: *student, Bills: bills}, nil
}

// IDCard renders the student's ID card and returns the PDF with a file name.
func (s *StudentService) IDCard(ctx context.Context, id int64) ([]byte, string, error) {
	student, err := s.uow.Stores().Students.FindByID(ctx, id)
	if err != nil {
		return nil, "", notFoundOr(err, "student not found", "failed to load student")
	}
	card := export.IDCard{
		Institution:  s.config.InstitutionName,
		FullName:     student.FullName,
		UniversityID: student.UniversityID,
		UGCID:        student.UGCID,
		Program:      student.ProgramCode,
		Batch:        student.Batch,
		Campus:       student.Campus,
		ValidThrough: fmt.Sprintf("%d", student.CreatedAt.UTC().Year()+s.config.ValidityYears),
	}
	pdf, err := s.renderer.Render(card)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render id card")
	}
	s.logger.Debug("id card rendered", zap.Int64("student_id", id))
	return pdf, fmt.Sprintf("id-card-%s.pdf", student.UniversityID), nil
}
