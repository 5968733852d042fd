package models

import (
	"strings"
	"time"
)

// ApplicationStatus is the lifecycle state of an admission application.
type ApplicationStatus string

const (
	ApplicationStatusProvisional ApplicationStatus = "PROVISIONAL"
	ApplicationStatusFlagged     ApplicationStatus = "FLAGGED"
	ApplicationStatusUnderReview ApplicationStatus = "UNDER_REVIEW"
	ApplicationStatusAdmitted    ApplicationStatus = "ADMITTED"
	ApplicationStatusRejected    ApplicationStatus = "REJECTED"
	ApplicationStatusWithdrawn   ApplicationStatus = "WITHDRAWN"
)

// Valid reports whether s is a known status.
func (s ApplicationStatus) Valid() bool {
	switch s {
	case ApplicationStatusProvisional, ApplicationStatusFlagged, ApplicationStatusUnderReview,
		ApplicationStatusAdmitted, ApplicationStatusRejected, ApplicationStatusWithdrawn:
		return true
	}
	return false
}

// PaymentStatus mirrors the applicant's fee payment state.
type PaymentStatus string

const (
	PaymentStatusPaid   PaymentStatus = "Paid"
	PaymentStatusUnpaid PaymentStatus = "Unpaid"
)

// NormalizePaymentStatus maps free-form values onto Paid/Unpaid.
func NormalizePaymentStatus(raw string) PaymentStatus {
	if strings.EqualFold(strings.TrimSpace(raw), string(PaymentStatusPaid)) {
		return PaymentStatusPaid
	}
	return PaymentStatusUnpaid
}

// Application field names as used by PATCH payloads and the audit trail.
const (
	FieldFullName           = "full_name"
	FieldEmail              = "email"
	FieldPhone              = "phone"
	FieldProgramCode        = "program_code"
	FieldCampus             = "campus"
	FieldSemester           = "semester"
	FieldPaymentStatus      = "payment_status"
	FieldStatus             = "status"
	FieldIdentifiersLocked  = "identifiers_locked"
	FieldNIDNo              = "nid_no"
	FieldPassportNo         = "passport_no"
	FieldBirthCertificateNo = "birth_certificate_no"
)

// PIIFields lists the identity-proof fields guarded by the identifier lock.
var PIIFields = []string{FieldNIDNo, FieldPassportNo, FieldBirthCertificateNo}

// EditableApplicationFields lists the fields a PATCH may change. Status and the
// lock flag are deliberately absent; they move only through dedicated transitions.
var EditableApplicationFields = []string{
	FieldFullName, FieldEmail, FieldPhone, FieldProgramCode, FieldCampus, FieldSemester,
	FieldPaymentStatus, FieldNIDNo, FieldPassportNo, FieldBirthCertificateNo,
}

// IsPIIField reports whether field is lock-protected.
func IsPIIField(field string) bool {
	for _, f := range PIIFields {
		if f == field {
			return true
		}
	}
	return false
}

// Application is one admissions submission.
type Application struct {
	ID                 int64             `db:"id" json:"id"`
	ReferenceNo        string            `db:"reference_no" json:"reference_no"`
	FullName           string            `db:"full_name" json:"full_name"`
	Email              string            `db:"email" json:"email"`
	Phone              string            `db:"phone" json:"phone"`
	ProgramCode        string            `db:"program_code" json:"program_code"`
	Campus             string            `db:"campus" json:"campus"`
	Semester           string            `db:"semester" json:"semester"`
	Status             ApplicationStatus `db:"status" json:"status"`
	PaymentStatus      PaymentStatus     `db:"payment_status" json:"payment_status"`
	IdentifiersLocked  bool              `db:"identifiers_locked" json:"identifiers_locked"`
	ConvertedStudentID *string           `db:"converted_student_id" json:"converted_student_id,omitempty"`
	NIDNo              *string           `db:"nid_no" json:"nid_no,omitempty"`
	PassportNo         *string           `db:"passport_no" json:"passport_no,omitempty"`
	BirthCertificateNo *string           `db:"birth_certificate_no" json:"birth_certificate_no,omitempty"`
	CreatedAt          time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time         `db:"updated_at" json:"updated_at"`
}

// FieldValue returns the string form of an editable field, used for change detection.
func (a *Application) FieldValue(field string) (string, bool) {
	switch field {
	case FieldFullName:
		return a.FullName, true
	case FieldEmail:
		return a.Email, true
	case FieldPhone:
		return a.Phone, true
	case FieldProgramCode:
		return a.ProgramCode, true
	case FieldCampus:
		return a.Campus, true
	case FieldSemester:
		return a.Semester, true
	case FieldPaymentStatus:
		return string(a.PaymentStatus), true
	case FieldStatus:
		return string(a.Status), true
	case FieldNIDNo:
		return deref(a.NIDNo), true
	case FieldPassportNo:
		return deref(a.PassportNo), true
	case FieldBirthCertificateNo:
		return deref(a.BirthCertificateNo), true
	}
	return "", false
}

// ApplicationFilter narrows application listings.
type ApplicationFilter struct {
	Status      []ApplicationStatus
	ProgramCode string
	Campus      string
	Semester    string
	Search      string
	Page        int
	PageSize    int
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
