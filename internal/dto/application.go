package dto

import (
	"strings"

	"github.com/noah-isme/nu-admissions-api/internal/models"
)

// UpdateApplicationRequest is the PATCH payload. Absent fields are left as is;
// an empty string clears an identity field.
type UpdateApplicationRequest struct {
	FullName           *string `json:"full_name" validate:"omitempty,max=200"`
	Email              *string `json:"email" validate:"omitempty,email,max=254"`
	Phone              *string `json:"phone" validate:"omitempty,max=32"`
	ProgramCode        *string `json:"program_code" validate:"omitempty,alphanum,max=16"`
	Campus             *string `json:"campus" validate:"omitempty,max=100"`
	Semester           *string `json:"semester" validate:"omitempty,max=50"`
	PaymentStatus      *string `json:"payment_status" validate:"omitempty,oneof=Paid Unpaid paid unpaid PAID UNPAID"`
	NIDNo              *string `json:"nid_no" validate:"omitempty,max=32"`
	PassportNo         *string `json:"passport_no" validate:"omitempty,max=32"`
	BirthCertificateNo *string `json:"birth_certificate_no" validate:"omitempty,max=32"`
	Reason             string  `json:"reason" validate:"max=500"`

	// Present only so attempts to set them can be rejected.
	Status            *string `json:"status"`
	IdentifiersLocked *bool   `json:"identifiers_locked"`
	ConvertedStudent  *string `json:"converted_student_id"`
}

// Changes returns the submitted editable fields keyed by column name.
func (r UpdateApplicationRequest) Changes() map[string]string {
	changes := make(map[string]string)
	set := func(field string, v *string) {
		if v != nil {
			changes[field] = strings.TrimSpace(*v)
		}
	}
	set(models.FieldFullName, r.FullName)
	set(models.FieldEmail, r.Email)
	set(models.FieldPhone, r.Phone)
	set(models.FieldProgramCode, r.ProgramCode)
	set(models.FieldCampus, r.Campus)
	set(models.FieldSemester, r.Semester)
	set(models.FieldNIDNo, r.NIDNo)
	set(models.FieldPassportNo, r.PassportNo)
	set(models.FieldBirthCertificateNo, r.BirthCertificateNo)
	if r.PaymentStatus != nil {
		changes[models.FieldPaymentStatus] = string(models.NormalizePaymentStatus(*r.PaymentStatus))
	}
	if v, ok := changes[models.FieldProgramCode]; ok {
		changes[models.FieldProgramCode] = strings.ToUpper(v)
	}
	return changes
}

// ReadOnlyFields lists fields the caller tried to set that only dedicated transitions may change.
func (r UpdateApplicationRequest) ReadOnlyFields() []string {
	var fields []string
	if r.Status != nil {
		fields = append(fields, models.FieldStatus)
	}
	if r.IdentifiersLocked != nil {
		fields = append(fields, models.FieldIdentifiersLocked)
	}
	if r.ConvertedStudent != nil {
		fields = append(fields, "converted_student_id")
	}
	return fields
}

// ApproveRequest is the approval payload.
type ApproveRequest struct {
	OverrideMissingDocs bool   `json:"override_missing_docs"`
	Reason              string `json:"reason" validate:"max=500"`
}

// ApproveResponse reports the identifiers issued by an approval.
type ApproveResponse struct {
	Success      bool                     `json:"success"`
	Status       models.ApplicationStatus `json:"status"`
	UniversityID string                   `json:"university_id"`
	UGCID        string                   `json:"ugc_id"`
	StudentID    int64                    `json:"student_id"`
}

// LockRequest carries the optional reason for a lock transition.
type LockRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// ApplicationDetail is an application with its documents and history.
type ApplicationDetail struct {
	Application  models.Application          `json:"application"`
	Documents    []models.Document           `json:"documents"`
	Completeness models.DocumentCompleteness `json:"completeness"`
	Identifiers  *models.IdentifierRecord    `json:"identifiers,omitempty"`
	AuditTrail   []models.AuditTrailEntry    `json:"audit_trail"`
}
