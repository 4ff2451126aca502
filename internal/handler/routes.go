package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/pixelforge/intake-api/internal/middleware"
	"github.com/pixelforge/intake-api/internal/models"
)

// Routes groups every HTTP handler plus the auth middleware that gates the
// admin surface.
type Routes struct {
	Requests *RequestHandler
	Catalog  *CatalogHandler
	Auth     *AuthHandler
	Metrics  *MetricsHandler
	AuthMW   gin.HandlerFunc
}

// Register mounts all endpoints under the versioned API prefix. Catalog
// browsing, request submission, tracking and signed downloads are public;
// everything else requires a staff token.
func (rt Routes) Register(router *gin.Engine) {
	api := router.Group("/api/v1")

	// Public catalog browsing.
	api.GET("/categories", rt.Catalog.ListCategories)
	api.GET("/services", rt.Catalog.ListServices)
	api.GET("/templates", rt.Catalog.ListTemplates)
	api.GET("/combos", rt.Catalog.ListCombos)

	// Public intake and tracking.
	api.POST("/service-requests", rt.Requests.Create)
	api.GET("/service-requests/track/:requestId", rt.Requests.Track)
	api.GET("/deliverables/download", rt.Requests.Download)

	auth := api.Group("/auth")
	{
		auth.POST("/login", rt.Auth.Login)
		auth.POST("/refresh", rt.Auth.Refresh)
		auth.POST("/logout", rt.AuthMW, rt.Auth.Logout)
	}

	admin := api.Group("/service-requests/admin")
	admin.Use(rt.AuthMW)
	{
		admin.GET("", rt.Requests.List)
		admin.GET("/dashboard-stats", rt.Requests.Stats)
		admin.GET("/stats", rt.Requests.Stats)
		admin.GET("/export", rt.Requests.Export)
		admin.GET("/:id", rt.Requests.Get)
		// PUT is the documented verb for mutations; PATCH stays as an alias.
		admin.PUT("/:id/status", rt.Requests.UpdateStatus)
		admin.PATCH("/:id/status", rt.Requests.UpdateStatus)
		admin.PUT("/:id/priority", rt.Requests.UpdatePriority)
		admin.PATCH("/:id/priority", rt.Requests.UpdatePriority)
		admin.POST("/:id/notes", rt.Requests.AddNote)
		admin.PUT("/:id/assign", rt.Requests.Assign)
		admin.PATCH("/:id/assign", rt.Requests.Assign)
		admin.POST("/:id/send-email", rt.Requests.SendEmail)
		admin.POST("/:id/deliverables", rt.Requests.UploadDeliverable)
		admin.DELETE("/:id", rt.Requests.Cancel)
	}

	// Catalog mutations stay admin-only.
	adminOnly := middleware.RequireRole(models.RoleAdmin)
	api.POST("/categories/admin", rt.AuthMW, adminOnly, rt.Catalog.CreateCategory)
	api.PUT("/categories/admin/:id", rt.AuthMW, adminOnly, rt.Catalog.UpdateCategory)
	api.POST("/services/admin", rt.AuthMW, adminOnly, rt.Catalog.CreateService)
	api.PUT("/services/admin/:id", rt.AuthMW, adminOnly, rt.Catalog.UpdateService)
	api.POST("/combos/admin", rt.AuthMW, adminOnly, rt.Catalog.CreateCombo)
	api.POST("/templates/admin", rt.AuthMW, adminOnly, rt.Catalog.CreateTemplate)

	if rt.Metrics != nil {
		router.GET("/metrics", rt.Metrics.Scrape)
	}
}
