package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"student-services/internal/auth"
	"student-services/internal/cache"
	"student-services/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type userLoader interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
}

// AuthMiddleware проверяет JWT из cookie auth_token или заголовка Authorization
// и кладёт пользователя в контекст. Данные пользователя кэшируются в Redis.
func AuthMiddleware(tokens *auth.TokenIssuer, users userLoader, userCache *cache.UserCache) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, err := c.Cookie("auth_token")
		if err != nil || tokenStr == "" {
			authHeader := c.GetHeader("Authorization")
			if authHeader == "" {
				handleAuthError(c, "Authorization token not provided")
				return
			}
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				handleAuthError(c, "Invalid Authorization header format")
				return
			}
			tokenStr = parts[1]
		}

		claims, err := tokens.Parse(tokenStr)
		if err != nil {
			c.SetCookie("auth_token", "", -1, "/", "", false, true)
			handleAuthError(c, "Invalid or expired token")
			return
		}

		ctx := c.Request.Context()
		userData, ok := userCache.Get(ctx, claims.UserID)
		if !ok {
			slog.Debug("User data cache miss, loading from DATABASE", "user_id", claims.UserID)
			dbUser, err := users.GetByID(ctx, claims.UserID)
			if err != nil {
				c.SetCookie("auth_token", "", -1, "/", "", false, true)
				handleAuthError(c, "User from token not found in DB")
				return
			}
			userData = &cache.CachedUser{
				UserID:     dbUser.ID,
				FullName:   dbUser.FullName,
				Role:       dbUser.Role,
				IsVerified: dbUser.IsVerified,
				IsBlocked:  dbUser.IsBlocked,
			}
			userCache.Set(ctx, userData)
		}

		if userData.IsBlocked {
			c.JSON(http.StatusForbidden, gin.H{"success": false, "message": "User is blocked", "timestamp": time.Now().UTC()})
			c.Abort()
			return
		}

		setContextAndProceed(c, userData)
	}
}

func setContextAndProceed(c *gin.Context, userData *cache.CachedUser) {
	c.Set("user_id", userData.UserID)
	c.Set("userName", userData.FullName)
	c.Set("role", userData.Role)
	c.Next()
}

// CurrentUser собирает пользователя из контекста запроса. Баланс и контакты не заполняются.
func CurrentUser(c *gin.Context) *models.User {
	id := c.GetUint("user_id")
	if id == 0 {
		return nil
	}
	return &models.User{
		Model:    gorm.Model{ID: id},
		FullName: c.GetString("userName"),
		Role:     c.GetString("role"),
	}
}

// RoleMiddleware пропускает только перечисленные роли.
func RoleMiddleware(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString("role")
		for _, allowed := range roles {
			if role == allowed {
				c.Next()
				return
			}
		}
		c.JSON(http.StatusForbidden, gin.H{"success": false, "message": "Permission denied", "timestamp": time.Now().UTC()})
		c.Abort()
	}
}

func handleAuthError(c *gin.Context, message string) {
	c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": message, "timestamp": time.Now().UTC()})
	c.Abort()
}
