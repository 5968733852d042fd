package service

import "github.com/noah-isme/nu-admissions-api/internal/models"

// CheckDocumentCompleteness reports which mandatory types lack a validated
// upload. Only the newest non-superseded upload of each type counts, so a
// later rejected copy hides an older validated one.
func CheckDocumentCompleteness(docs []models.Document) models.DocumentCompleteness {
	latest := make(map[models.DocumentType]models.Document, len(models.MandatoryDocumentTypes))
	for _, doc := range docs {
		if doc.Superseded {
			continue
		}
		current, ok := latest[doc.Type]
		if !ok || doc.UploadedAt.After(current.UploadedAt) ||
			(doc.UploadedAt.Equal(current.UploadedAt) && doc.ID > current.ID) {
			latest[doc.Type] = doc
		}
	}

	missing := make([]models.DocumentType, 0, len(models.MandatoryDocumentTypes))
	for _, docType := range models.MandatoryDocumentTypes {
		doc, ok := latest[docType]
		if !ok || doc.Status != models.DocumentStatusValidated {
			missing = append(missing, docType)
		}
	}
	return models.DocumentCompleteness{Complete: len(missing) == 0, Missing: missing}
}
