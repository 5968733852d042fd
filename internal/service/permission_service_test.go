package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/nu-admissions-api/internal/dto"
	"github.com/noah-isme/nu-admissions-api/internal/models"
	appErrors "github.com/noah-isme/nu-admissions-api/pkg/errors"
)

type userReaderStub struct {
	users map[string]*models.User
}

func (u *userReaderStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	user, ok := u.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

type permissionCacheStub struct {
	entries     map[string][]byte
	sets        int
	invalidated []string
	patterns    []string
}

func newPermissionCacheStub() *permissionCacheStub {
	return &permissionCacheStub{entries: map[string][]byte{}}
}

func (c *permissionCacheStub) Get(ctx context.Context, key string, dest interface{}) bool {
	v, ok := c.entries[key]
	if !ok {
		return false
	}
	return json.Unmarshal(v, dest) == nil
}

func (c *permissionCacheStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	c.sets++
	c.entries[key], _ = json.Marshal(value)
}

func (c *permissionCacheStub) Invalidate(ctx context.Context, keys ...string) {
	for _, k := range keys {
		delete(c.entries, k)
		c.invalidated = append(c.invalidated, k)
	}
}

func (c *permissionCacheStub) InvalidatePattern(ctx context.Context, pattern string) {
	c.patterns = append(c.patterns, pattern)
	c.entries = map[string][]byte{}
}

func newPermissionFixture(t *testing.T) (*PermissionService, *memDB, *permissionCacheStub) {
	t.Helper()
	db := newMemDB()
	db.seed(func(s *memState) {
		s.rolePerms[models.RoleAdmissionsOfficer] = []string{
			models.PermApplicationsView, models.PermApplicationsEdit, models.PermApplicationsApprove,
		}
		s.overrides["officer-1"] = []models.UserPermission{
			{UserID: "officer-1", Permission: models.PermApplicationsOverridePIILock, Granted: true},
			{UserID: "officer-1", Permission: models.PermApplicationsApprove, Granted: false},
		}
	})
	users := &userReaderStub{users: map[string]*models.User{
		"officer-1": {ID: "officer-1", Role: models.RoleAdmissionsOfficer, Active: true},
		"admin-1":   {ID: "admin-1", Role: models.RoleAdmin, Active: true},
		"retired-1": {ID: "retired-1", Role: models.RoleAdmin, Active: false},
	}}
	cache := newPermissionCacheStub()
	return NewPermissionService(db, users, cache, time.Minute, nil, nil), db, cache
}

func (c *permissionCacheStub) put(t *testing.T, userID string, entry cachedActor) {
	t.Helper()
	raw, err := json.Marshal(entry)
	require.NoError(t, err)
	c.entries[permissionCacheKey(userID)] = raw
}

func TestResolveActorAppliesGrantsAndRevokes(t *testing.T) {
	svc, _, cache := newPermissionFixture(t)

	actor, err := svc.ResolveActor(context.Background(), "officer-1")
	require.NoError(t, err)
	assert.Equal(t, []string{
		models.PermApplicationsEdit,
		models.PermApplicationsOverridePIILock,
		models.PermApplicationsView,
	}, actor.PermissionList())
	assert.False(t, actor.Can(models.PermApplicationsApprove))
	assert.Equal(t, 1, cache.sets)
}

func TestResolveActorUsesCache(t *testing.T) {
	svc, db, cache := newPermissionFixture(t)
	cache.put(t, "officer-1", cachedActor{Role: models.RoleAdmissionsOfficer, Active: true, Permissions: []string{models.PermStudentsView}})
	db.failOn["permissions.role"] = sql.ErrConnDone

	actor, err := svc.ResolveActor(context.Background(), "officer-1")
	require.NoError(t, err)
	assert.Equal(t, []string{models.PermStudentsView}, actor.PermissionList())
}

func TestResolveActorAdministratorSkipsStore(t *testing.T) {
	svc, db, _ := newPermissionFixture(t)
	db.failOn["permissions.role"] = sql.ErrConnDone

	actor, err := svc.ResolveActor(context.Background(), "admin-1")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, actor.Role)
	assert.True(t, actor.Can(models.PermUsersManage))
}

func TestResolveActorReadsRoleAndStatusFromStore(t *testing.T) {
	svc, _, cache := newPermissionFixture(t)
	ctx := context.Background()

	_, err := svc.ResolveActor(ctx, "retired-1")
	assert.ErrorIs(t, err, appErrors.ErrInactiveAccount)

	_, err = svc.ResolveActor(ctx, "ghost")
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	cache.put(t, "officer-1", cachedActor{Role: models.RoleAdmissionsOfficer, Active: false})
	_, err = svc.ResolveActor(ctx, "officer-1")
	assert.ErrorIs(t, err, appErrors.ErrInactiveAccount)
}

func TestResolveActorDemotedUserLosesAdministratorAccess(t *testing.T) {
	svc, _, _ := newPermissionFixture(t)
	svc.users.(*userReaderStub).users["admin-1"].Role = models.RoleAdmissionsOfficer

	actor, err := svc.ResolveActor(context.Background(), "admin-1")
	require.NoError(t, err)
	assert.False(t, actor.IsAdministrator())
	assert.False(t, actor.Can(models.PermUsersManage))
	assert.True(t, actor.Can(models.PermApplicationsApprove))
}

func TestResolveActorStoreFailure(t *testing.T) {
	svc, db, _ := newPermissionFixture(t)
	db.failOn["permissions.user"] = sql.ErrConnDone

	_, err := svc.ResolveActor(context.Background(), "officer-1")
	assert.ErrorIs(t, err, appErrors.ErrInternal)
}

func TestReplaceOverridesAuditsAndInvalidates(t *testing.T) {
	svc, db, cache := newPermissionFixture(t)
	ctx := context.Background()
	_, err := svc.ResolveActor(ctx, "officer-1")
	require.NoError(t, err)

	resp, err := svc.ReplaceOverrides(ctx, admin(), "officer-1", dto.UpdatePermissionsRequest{
		Overrides: []dto.PermissionOverride{{Permission: models.PermStudentsView, Granted: true}},
	})
	require.NoError(t, err)
	assert.Contains(t, cache.invalidated, permissionCacheKey("officer-1"))
	assert.Contains(t, resp.Effective, models.PermApplicationsApprove)
	assert.Contains(t, resp.Effective, models.PermStudentsView)
	assert.NotContains(t, resp.Effective, models.PermApplicationsOverridePIILock)
	require.Len(t, resp.Overrides, 1)

	state := db.snapshot()
	require.Len(t, state.audit, 1)
	entry := state.audit[0]
	assert.Equal(t, models.EntityUser, entry.EntityType)
	assert.Equal(t, "+applications:override_pii_lock,-applications:approve", *entry.OldValue)
	assert.Equal(t, "+students:view", *entry.NewValue)
	assert.Equal(t, "admin-1", entry.Actor)
}

func TestReplaceOverridesValidation(t *testing.T) {
	svc, db, _ := newPermissionFixture(t)
	ctx := context.Background()

	_, err := svc.ReplaceOverrides(ctx, admin(), "officer-1", dto.UpdatePermissionsRequest{
		Overrides: []dto.PermissionOverride{{Permission: "rockets:launch", Granted: true}},
	})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.ReplaceOverrides(ctx, admin(), "officer-1", dto.UpdatePermissionsRequest{
		Overrides: []dto.PermissionOverride{
			{Permission: models.PermStudentsView, Granted: true},
			{Permission: models.PermStudentsView, Granted: false},
		},
	})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.ReplaceOverrides(ctx, admin(), "ghost", dto.UpdatePermissionsRequest{})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	assert.Len(t, db.snapshot().overrides["officer-1"], 2)
}

func TestDescribeAndResetCache(t *testing.T) {
	svc, _, cache := newPermissionFixture(t)
	ctx := context.Background()

	resp, err := svc.Describe(ctx, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, resp.Role)
	assert.Len(t, resp.Effective, len(models.KnownPermissions))
	assert.Empty(t, resp.Overrides)

	_, err = svc.Describe(ctx, "ghost")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	svc.ResetCache(ctx)
	assert.Equal(t, []string{"perm:user:*"}, cache.patterns)
}
