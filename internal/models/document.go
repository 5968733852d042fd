package models

import (
	"strings"
	"time"
)

// DocumentType enumerates uploaded credential kinds.
type DocumentType string

const (
	DocumentTypeSSC        DocumentType = "SSC"
	DocumentTypeHSC        DocumentType = "HSC"
	DocumentTypePhoto      DocumentType = "Photo"
	DocumentTypeTranscript DocumentType = "Transcript"
	DocumentTypeOther      DocumentType = "Other"
)

// MandatoryDocumentTypes must all be validated before ordinary approval, in reporting order.
var MandatoryDocumentTypes = []DocumentType{DocumentTypeSSC, DocumentTypeHSC, DocumentTypePhoto}

// DocumentStatus is the validation state of an upload.
type DocumentStatus string

const (
	DocumentStatusPending   DocumentStatus = "Pending"
	DocumentStatusValidated DocumentStatus = "Validated"
	DocumentStatusRejected  DocumentStatus = "Rejected"
)

// ParseDocumentStatus accepts statuses case-insensitively.
func ParseDocumentStatus(raw string) (DocumentStatus, bool) {
	for _, s := range []DocumentStatus{DocumentStatusPending, DocumentStatusValidated, DocumentStatusRejected} {
		if strings.EqualFold(strings.TrimSpace(raw), string(s)) {
			return s, true
		}
	}
	return "", false
}

// Document is one uploaded credential tied to an application.
type Document struct {
	ID            int64          `db:"id" json:"id"`
	ApplicationID int64          `db:"application_id" json:"application_id"`
	Type          DocumentType   `db:"doc_type" json:"type"`
	Status        DocumentStatus `db:"status" json:"status"`
	StorageRef    string         `db:"storage_ref" json:"storage_ref"`
	UploadedAt    time.Time      `db:"uploaded_at" json:"uploaded_at"`
	ValidatedAt   *time.Time     `db:"validated_at" json:"validated_at,omitempty"`
	ValidatedBy   *string        `db:"validated_by" json:"validated_by,omitempty"`
	Superseded    bool           `db:"superseded" json:"superseded"`
}

// DocumentCompleteness reports which mandatory types are not yet validated.
type DocumentCompleteness struct {
	Complete bool           `json:"complete"`
	Missing  []DocumentType `json:"missing"`
}
