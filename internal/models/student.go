package models

import "time"

// Student is created once, at approval, as a snapshot of its application.
type Student struct {
	ID            int64     `db:"id" json:"id"`
	ApplicationID int64     `db:"application_id" json:"application_id"`
	UniversityID  string    `db:"university_id" json:"university_id"`
	UGCID         string    `db:"ugc_id" json:"ugc_id"`
	FullName      string    `db:"full_name" json:"full_name"`
	Email         string    `db:"email" json:"email"`
	Phone         string    `db:"phone" json:"phone"`
	ProgramCode   string    `db:"program_code" json:"program_code"`
	Campus        string    `db:"campus" json:"campus"`
	Semester      string    `db:"semester" json:"semester"`
	Batch         string    `db:"batch" json:"batch"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// Bill is one billing line for a student.
type Bill struct {
	ID            int64         `db:"id" json:"id"`
	StudentID     int64         `db:"student_id" json:"student_id"`
	Description   string        `db:"description" json:"description"`
	Amount        float64       `db:"amount" json:"amount"`
	PaymentStatus PaymentStatus `db:"payment_status" json:"payment_status"`
	CreatedBy     string        `db:"created_by" json:"created_by"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
}

// BillDescriptionAdmissionFee labels the first bill line opened at approval.
const BillDescriptionAdmissionFee = "Admission Fee"

// IdentifierRecord is one ledger row of an issued University/UGC ID pair.
type IdentifierRecord struct {
	ID            int64     `db:"id" json:"id"`
	ApplicationID int64     `db:"application_id" json:"application_id"`
	UniversityID  string    `db:"university_id" json:"university_id"`
	UGCID         string    `db:"ugc_id" json:"ugc_id"`
	ProgramCode   string    `db:"program_code" json:"program_code"`
	UniversitySeq int       `db:"university_seq" json:"university_seq"`
	UGCSeq        int       `db:"ugc_seq" json:"ugc_seq"`
	GeneratedBy   string    `db:"generated_by" json:"generated_by"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// IdentifierKind selects which ledger column a sequence lookup reads.
type IdentifierKind string

const (
	IdentifierKindUniversity IdentifierKind = "university_id"
	IdentifierKindUGC        IdentifierKind = "ugc_id"
)
