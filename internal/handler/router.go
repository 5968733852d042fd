package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/nu-admissions-api/internal/middleware"
	"github.com/noah-isme/nu-admissions-api/internal/models"
)

// Handlers groups every HTTP handler served under the API prefix.
type Handlers struct {
	Auth         *AuthHandler
	Applications *ApplicationHandler
	Documents    *DocumentHandler
	Settings     *SettingsHandler
	Students     *StudentHandler
	Permissions  *PermissionHandler
}

// RegisterRoutes mounts the API. authenticate validates the bearer token and
// resolve loads the caller's permissions; both run before any permission check.
func RegisterRoutes(api *gin.RouterGroup, h Handlers, authenticate, resolve gin.HandlerFunc) {
	api.POST("/auth/login", h.Auth.Login)

	me := api.Group("/auth/me", authenticate)
	me.GET("", h.Auth.Me)
	me.GET("/permissions", h.Permissions.Mine)

	admissions := api.Group("/admissions", authenticate, resolve)
	require := middleware.RequirePermission

	apps := admissions.Group("/applications")
	apps.GET("", require(models.PermApplicationsView), h.Applications.List)
	apps.GET("/:id", require(models.PermApplicationsView), h.Applications.Get)
	apps.PATCH("/:id", require(models.PermApplicationsEdit), h.Applications.Update)
	apps.POST("/:id/approve", require(models.PermApplicationsApprove), h.Applications.Approve)
	apps.POST("/:id/identifiers/lock", require(models.PermApplicationsLockIdentifiers), h.Applications.Lock)
	apps.POST("/:id/identifiers/unlock", require(models.PermApplicationsLockIdentifiers), h.Applications.Unlock)

	admissions.PATCH("/documents/:id/status", require(models.PermDocumentsValidate), h.Documents.UpdateStatus)

	admissions.GET("/settings", require(models.PermSettingsManage), h.Settings.List)
	admissions.PUT("/settings/:key", require(models.PermSettingsManage), h.Settings.Update)

	admissions.GET("/students/:id", require(models.PermStudentsView), h.Students.Get)
	admissions.GET("/students/:id/id-card", require(models.PermStudentsView), h.Students.IDCard)

	admissions.GET("/users/:id/permissions", require(models.PermUsersManage), h.Permissions.Get)
	admissions.PUT("/users/:id/permissions", require(models.PermUsersManage), h.Permissions.Replace)
}
