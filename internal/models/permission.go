package models

import (
	"sort"
	"time"
)

// Permission strings checked by the API.
const (
	PermApplicationsView            = "applications:view"
	PermApplicationsEdit            = "applications:edit"
	PermApplicationsApprove         = "applications:approve"
	PermApplicationsLockIdentifiers = "applications:lock_identifiers"
	PermApplicationsOverridePIILock = "applications:override_pii_lock"
	PermDocumentsValidate           = "documents:validate"
	PermStudentsView                = "students:view"
	PermSettingsManage              = "settings:manage"
	PermUsersManage                 = "users:manage"
)

// KnownPermissions is the full catalogue, used to validate overrides.
var KnownPermissions = []string{
	PermApplicationsView,
	PermApplicationsEdit,
	PermApplicationsApprove,
	PermApplicationsLockIdentifiers,
	PermApplicationsOverridePIILock,
	PermDocumentsValidate,
	PermStudentsView,
	PermSettingsManage,
	PermUsersManage,
}

// IsKnownPermission reports whether p is part of the catalogue.
func IsKnownPermission(p string) bool {
	for _, known := range KnownPermissions {
		if known == p {
			return true
		}
	}
	return false
}

// UserPermission is a per-user grant (Granted=true) or revoke of one permission.
type UserPermission struct {
	UserID     string    `db:"user_id" json:"user_id"`
	Permission string    `db:"permission" json:"permission"`
	Granted    bool      `db:"granted" json:"granted"`
	UpdatedBy  *string   `db:"updated_by" json:"updated_by,omitempty"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// Actor is an authenticated user together with the effective permissions
// resolved from the server-side store.
type Actor struct {
	UserID      string          `json:"user_id"`
	Role        UserRole        `json:"role"`
	Permissions map[string]bool `json:"-"`
}

// IsAdministrator reports whether the actor holds an administrative role.
func (a *Actor) IsAdministrator() bool {
	return a != nil && a.Role.IsAdministrator()
}

// Can reports whether the actor holds permission.
func (a *Actor) Can(permission string) bool {
	if a == nil {
		return false
	}
	if a.IsAdministrator() {
		return true
	}
	return a.Permissions[permission]
}

// PermissionList returns the sorted effective permission set.
func (a *Actor) PermissionList() []string {
	if a == nil {
		return nil
	}
	if a.IsAdministrator() {
		out := append([]string(nil), KnownPermissions...)
		sort.Strings(out)
		return out
	}
	out := make([]string, 0, len(a.Permissions))
	for p, ok := range a.Permissions {
		if ok {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}
