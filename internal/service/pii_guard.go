package service

import (
	"sort"

	"github.com/noah-isme/nu-admissions-api/internal/models"
	appErrors "github.com/noah-isme/nu-admissions-api/pkg/errors"
)

// AssertPIIMutable rejects changes to locked identity fields unless the actor
// may override the lock. Fields resubmitted with their stored value pass.
func AssertPIIMutable(app *models.Application, changes map[string]string, actor *models.Actor) error {
	if app == nil || !app.IdentifiersLocked {
		return nil
	}
	blocked := make([]string, 0, len(models.PIIFields))
	for field, value := range changes {
		if !models.IsPIIField(field) {
			continue
		}
		if stored, _ := app.FieldValue(field); stored != value {
			blocked = append(blocked, field)
		}
	}
	if len(blocked) == 0 || canOverridePIILock(actor) {
		return nil
	}
	sort.Strings(blocked)
	return appErrors.WithDetails(appErrors.ErrPIILocked, map[string]interface{}{"fields": blocked})
}

func canOverridePIILock(actor *models.Actor) bool {
	return actor.IsAdministrator() || actor.Can(models.PermApplicationsOverridePIILock)
}
