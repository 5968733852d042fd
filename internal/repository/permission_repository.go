package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/noah-isme/nu-admissions-api/internal/models"
)

// PermissionRepository reads role grants and per-user overrides.
type PermissionRepository struct {
	db DBTX
}

// NewPermissionRepository constructs the repository.
func NewPermissionRepository(db DBTX) *PermissionRepository {
	return &PermissionRepository{db: db}
}

// RolePermissions returns the permissions granted to a role.
func (r *PermissionRepository) RolePermissions(ctx context.Context, role models.UserRole) ([]string, error) {
	const query = `SELECT permission FROM role_permissions WHERE role = $1 ORDER BY permission ASC`
	var perms []string
	if err := r.db.SelectContext(ctx, &perms, query, role); err != nil {
		return nil, fmt.Errorf("list role permissions: %w", err)
	}
	return perms, nil
}

// UserOverrides returns a user's explicit grants and revokes.
func (r *PermissionRepository) UserOverrides(ctx context.Context, userID string) ([]models.UserPermission, error) {
	const query = `SELECT user_id, permission, granted, updated_by, updated_at
FROM user_permissions WHERE user_id = $1 ORDER BY permission ASC`
	var overrides []models.UserPermission
	if err := r.db.SelectContext(ctx, &overrides, query, userID); err != nil {
		return nil, fmt.Errorf("list user permissions: %w", err)
	}
	return overrides, nil
}

// ReplaceUserOverrides swaps a user's override set. Callers run it inside a
// transaction so readers never see a partial set.
func (r *PermissionRepository) ReplaceUserOverrides(ctx context.Context, userID string, overrides []models.UserPermission, updatedBy string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM user_permissions WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("clear user permissions: %w", err)
	}
	const insert = `INSERT INTO user_permissions (user_id, permission, granted, updated_by, updated_at)
VALUES ($1, $2, $3, $4, $5)`
	now := time.Now().UTC()
	for _, o := range overrides {
		if _, err := r.db.ExecContext(ctx, insert, userID, o.Permission, o.Granted, updatedBy, now); err != nil {
			return fmt.Errorf("insert user permission %s: %w", o.Permission, err)
		}
	}
	return nil
}
