package routes

import (
	"net/http"
	"time"

	"student-services/internal/feed"
	"student-services/internal/handlers"

	"github.com/gin-gonic/gin"
)

// Handlers - всё, что нужно для регистрации маршрутов.
type Handlers struct {
	Auth          *handlers.AuthHandler
	Payments      *handlers.PaymentHandler
	Users         *handlers.UserHandler
	Notifications *handlers.NotificationHandler
	Designs       *handlers.DesignHandler
	Presentations *handlers.PresentationHandler
	APIKeys       *handlers.APIKeyHandler
	Feed          *feed.Hub
	RequireAuth   gin.HandlerFunc
}

// SetupRoutes инициализирует все маршруты приложения.
func SetupRoutes(r *gin.Engine, h *Handlers) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})

	// публичные маршруты
	RegisterAuthRoutes(r, h.Auth)

	// всё остальное под /api требует токен
	authRequired := r.Group("/api")
	authRequired.Use(h.RequireAuth)
	RegisterAPIRoutes(authRequired, h)
}
