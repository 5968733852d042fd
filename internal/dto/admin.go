package dto

import "github.com/noah-isme/nu-admissions-api/internal/models"

// UpdateDocumentStatusRequest records a validation decision.
type UpdateDocumentStatusRequest struct {
	Status string `json:"status" validate:"required"`
	Reason string `json:"reason" validate:"max=500"`
}

// UpdateSettingRequest changes one admission setting.
type UpdateSettingRequest struct {
	Value       string  `json:"value" validate:"required,max=500"`
	Description *string `json:"description" validate:"omitempty,max=500"`
	Reason      string  `json:"reason" validate:"max=500"`
}

// PermissionOverride grants or revokes one permission for a user.
type PermissionOverride struct {
	Permission string `json:"permission" validate:"required"`
	Granted    bool   `json:"granted"`
}

// UpdatePermissionsRequest replaces a user's overrides.
type UpdatePermissionsRequest struct {
	Overrides []PermissionOverride `json:"overrides" validate:"dive"`
}

// PermissionsResponse describes a user's effective permissions.
type PermissionsResponse struct {
	UserID    string                  `json:"user_id"`
	Role      models.UserRole         `json:"role"`
	Effective []string                `json:"effective"`
	Overrides []models.UserPermission `json:"overrides"`
}

// StudentDetail is a student with billing lines.
type StudentDetail struct {
	Student models.Student `json:"student"`
	Bills   []models.Bill  `json:"bills"`
}
