package routes

import (
	"student-services/internal/middleware"
	"student-services/models"

	"github.com/gin-gonic/gin"
)

// RegisterAPIRoutes регистрирует маршруты, требующие аутентификации.
func RegisterAPIRoutes(api *gin.RouterGroup, h *Handlers) {
	admin := middleware.RoleMiddleware(models.RoleAdmin, models.RoleSuperAdmin)
	superAdmin := middleware.RoleMiddleware(models.RoleSuperAdmin)
	userOnly := middleware.RoleMiddleware(models.RoleUser)

	api.GET("/me", h.Auth.Me)

	// --- ПЛАТЕЖИ ---
	payments := api.Group("/payments")
	{
		payments.POST("", userOnly, h.Payments.Create)
		payments.GET("", h.Payments.List)
		payments.GET("/export", admin, h.Payments.Export)
		payments.GET("/stats", admin, h.Payments.Stats)
		payments.GET("/:id", h.Payments.Get)
		payments.POST("/:id/process", admin, h.Payments.Process)
		payments.DELETE("/:id", admin, h.Payments.Delete)
	}

	// --- УВЕДОМЛЕНИЯ ---
	notifications := api.Group("/notifications")
	{
		notifications.GET("", h.Notifications.List)
		notifications.GET("/unread-count", h.Notifications.UnreadCount)
		notifications.POST("/read-all", h.Notifications.MarkAllRead)
		notifications.POST("/:id/read", h.Notifications.MarkRead)
	}

	// --- ПОЛЬЗОВАТЕЛИ ---
	users := api.Group("/users", admin)
	{
		users.GET("", h.Users.List)
		users.PUT("/:id/role", superAdmin, h.Users.ChangeRole)
		users.POST("/:id/balance", h.Users.AdjustBalance)
		users.POST("/:id/block", h.Users.SetBlocked)
	}
	api.GET("/admin-actions", admin, h.Users.ListActions)

	// --- ОФОРМЛЕНИЯ ---
	designs := api.Group("/designs")
	{
		designs.GET("", h.Designs.List)
		designs.GET("/:id", h.Designs.Get)
		designs.POST("", admin, h.Designs.Create)
		designs.PUT("/:id", admin, h.Designs.Update)
		designs.DELETE("/:id", admin, h.Designs.Delete)
	}

	// --- ПРЕЗЕНТАЦИИ ---
	presentations := api.Group("/presentations")
	{
		presentations.POST("", userOnly, h.Presentations.Create)
		presentations.POST("/photos", userOnly, h.Presentations.UploadPhoto)
		presentations.POST("/generate-text", h.Presentations.GenerateText)
		presentations.GET("", h.Presentations.List)
		presentations.GET("/:id", h.Presentations.Get)
		presentations.POST("/:id/assemble", h.Presentations.Assemble)
		presentations.POST("/:id/deliver", h.Presentations.Deliver)
		presentations.GET("/:id/download", h.Presentations.Download)
	}

	// --- API КЛЮЧИ ---
	keys := api.Group("/api-keys", superAdmin)
	{
		keys.GET("", h.APIKeys.List)
		keys.POST("", h.APIKeys.Add)
		keys.DELETE("/:id", h.APIKeys.Deactivate)
	}

	// --- LIVE-ЛЕНТА ---
	api.GET("/admin/feed/ws", admin, h.Feed.ServeWS)
}
