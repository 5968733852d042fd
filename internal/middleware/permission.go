package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/nu-admissions-api/internal/models"
	appErrors "github.com/noah-isme/nu-admissions-api/pkg/errors"
	"github.com/noah-isme/nu-admissions-api/pkg/response"
)

// ContextActorKey is the gin context key storing the resolved *models.Actor.
const ContextActorKey = "currentActor"

type actorResolver interface {
	ResolveActor(ctx context.Context, userID string) (*models.Actor, error)
}

// ResolveActor loads the caller's role, status and effective permissions from
// the server-side store. Only the token subject is taken from the claims.
func ResolveActor(resolver actorResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := Actor(c); ok {
			c.Next()
			return
		}
		claims, ok := Claims(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		actor, err := resolver.ResolveActor(c.Request.Context(), claims.UserID)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		c.Set(ContextActorKey, actor)
		c.Next()
	}
}

// RequirePermission aborts with 403 unless the resolved actor holds every
// listed permission. It must run after ResolveActor.
func RequirePermission(permissions ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := Actor(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		for _, p := range permissions {
			if !actor.Can(p) {
				response.Error(c, appErrors.WithDetails(appErrors.ErrForbidden, map[string]interface{}{"permission": p}))
				c.Abort()
				return
			}
		}
		c.Next()
	}
}

// Actor returns the actor stored by ResolveActor.
func Actor(c *gin.Context) (*models.Actor, bool) {
	value, ok := c.Get(ContextActorKey)
	if !ok {
		return nil, false
	}
	actor, ok := value.(*models.Actor)
	return actor, ok && actor != nil
}
