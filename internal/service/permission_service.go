package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/nu-admissions-api/internal/dto"
	"github.com/noah-isme/nu-admissions-api/internal/models"
	appErrors "github.com/noah-isme/nu-admissions-api/pkg/errors"
)

type permissionUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type permissionCache interface {
	Get(ctx context.Context, key string, dest interface{}) bool
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration)
	Invalidate(ctx context.Context, keys ...string)
	InvalidatePattern(ctx context.Context, pattern string)
}

// PermissionService resolves effective permissions from the server-side store:
// role defaults plus user grants minus user revokes. Results are cached per user.
type PermissionService struct {
	uow       UnitOfWork
	users     permissionUserReader
	cache     permissionCache
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPermissionService constructs the service. cache may be nil.
func NewPermissionService(uow UnitOfWork, users permissionUserReader, cache permissionCache, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *PermissionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PermissionService{uow: uow, users: users, cache: cache, cacheTTL: cacheTTL, validator: validate, logger: logger}
}

func permissionCacheKey(userID string) string {
	return fmt.Sprintf("perm:user:%s", userID)
}

// cachedActor is what the permission cache stores per user. Role and active
// flag come from the users table, so a demoted or deactivated user loses
// access once the entry is invalidated or expires.
type cachedActor struct {
	Role        models.UserRole `json:"role"`
	Active      bool            `json:"active"`
	Permissions []string        `json:"permissions"`
}

// ResolveActor loads the caller's role, status and effective permissions.
func (s *PermissionService) ResolveActor(ctx context.Context, userID string) (*models.Actor, error) {
	var cached cachedActor
	if s.cache != nil && s.cache.Get(ctx, permissionCacheKey(userID), &cached) {
		return actorFromCache(userID, cached)
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "user no longer exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	actor, err := s.actorFor(ctx, user)
	if err != nil {
		return nil, err
	}
	cached = cachedActor{Role: user.Role, Active: user.Active, Permissions: actor.PermissionList()}
	if s.cache != nil {
		s.cache.Set(ctx, permissionCacheKey(userID), cached, s.cacheTTL)
	}
	return actorFromCache(userID, cached)
}

func actorFromCache(userID string, cached cachedActor) (*models.Actor, error) {
	if !cached.Active {
		return nil, appErrors.Clone(appErrors.ErrInactiveAccount, "account is inactive")
	}
	actor := &models.Actor{UserID: userID, Role: cached.Role, Permissions: make(map[string]bool, len(cached.Permissions))}
	for _, p := range cached.Permissions {
		actor.Permissions[p] = true
	}
	return actor, nil
}

// actorFor computes the effective set for user straight from the store.
func (s *PermissionService) actorFor(ctx context.Context, user *models.User) (*models.Actor, error) {
	actor := &models.Actor{UserID: user.ID, Role: user.Role, Permissions: map[string]bool{}}
	if user.Role.IsAdministrator() {
		return actor, nil
	}
	stores := s.uow.Stores()
	rolePerms, err := stores.Permissions.RolePermissions(ctx, user.Role)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve permissions")
	}
	overrides, err := stores.Permissions.UserOverrides(ctx, user.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve permissions")
	}
	actor.Permissions = effectivePermissions(rolePerms, overrides)
	return actor, nil
}

// Describe returns a user's effective permissions and raw overrides.
func (s *PermissionService) Describe(ctx context.Context, userID string) (*dto.PermissionsResponse, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	actor, err := s.actorFor(ctx, user)
	if err != nil {
		return nil, err
	}
	overrides, err := s.uow.Stores().Permissions.UserOverrides(ctx, user.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load overrides")
	}
	if overrides == nil {
		overrides = []models.UserPermission{}
	}
	return &dto.PermissionsResponse{UserID: user.ID, Role: user.Role, Effective: actor.PermissionList(), Overrides: overrides}, nil
}

// ReplaceOverrides swaps a user's overrides, audits the change and drops the cached set.
func (s *PermissionService) ReplaceOverrides(ctx context.Context, actor *models.Actor, userID string, req dto.UpdatePermissionsRequest) (*dto.PermissionsResponse, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid permission payload")
	}
	overrides := make([]models.UserPermission, 0, len(req.Overrides))
	seen := make(map[string]bool, len(req.Overrides))
	for _, o := range req.Overrides {
		if !models.IsKnownPermission(o.Permission) {
			return nil, appErrors.WithDetails(appErrors.Clone(appErrors.ErrValidation, "unknown permission"),
				map[string]interface{}{"permission": o.Permission})
		}
		if seen[o.Permission] {
			return nil, appErrors.WithDetails(appErrors.Clone(appErrors.ErrValidation, "duplicate permission"),
				map[string]interface{}{"permission": o.Permission})
		}
		seen[o.Permission] = true
		overrides = append(overrides, models.UserPermission{UserID: userID, Permission: o.Permission, Granted: o.Granted})
	}

	if _, err := s.users.FindByID(ctx, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	err := s.uow.Do(ctx, func(ctx context.Context, st AdmissionStores) error {
		previous, err := st.Permissions.UserOverrides(ctx, userID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load overrides")
		}
		if err := st.Permissions.ReplaceUserOverrides(ctx, userID, overrides, actor.UserID); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store overrides")
		}
		if _, err := RecordAudit(ctx, st.Audit, AuditChange{
			EntityType: models.EntityUser,
			EntityID:   userID,
			Field:      "permission_overrides",
			OldValue:   formatOverrides(previous),
			NewValue:   formatOverrides(overrides),
			Actor:      actor.UserID,
		}); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record audit entry")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, permissionCacheKey(userID))
	}
	s.logger.Info("permission overrides replaced", zap.String("user_id", userID), zap.Int("count", len(overrides)), zap.String("actor", actor.UserID))
	return s.Describe(ctx, userID)
}

// ResetCache drops every cached permission set. Called at startup because
// migrations may have changed role defaults.
func (s *PermissionService) ResetCache(ctx context.Context) {
	if s.cache != nil {
		s.cache.InvalidatePattern(ctx, permissionCacheKey("*"))
	}
}

func effectivePermissions(rolePerms []string, overrides []models.UserPermission) map[string]bool {
	perms := make(map[string]bool, len(rolePerms)+len(overrides))
	for _, p := range rolePerms {
		perms[p] = true
	}
	for _, o := range overrides {
		if o.Granted {
			perms[o.Permission] = true
		} else {
			delete(perms, o.Permission)
		}
	}
	return perms
}

// formatOverrides renders overrides as a stable "+perm,-perm" list for the audit trail.
func formatOverrides(overrides []models.UserPermission) string {
	parts := make([]string, 0, len(overrides))
	for _, o := range overrides {
		sign := "-"
		if o.Granted {
			sign = "+"
		}
		parts = append(parts, sign+o.Permission)
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}
