package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"student-services/internal/services"

	"github.com/gin-gonic/gin"
)

// Envelope - единый формат ответа API.
type Envelope struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Message   string      `json:"message,omitempty"`
	Errors    []string    `json:"errors,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

func respondOK(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Envelope{Success: true, Data: data, Timestamp: time.Now().UTC()})
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, Envelope{Success: false, Message: message, Timestamp: time.Now().UTC()})
}

// respondServiceError переводит ошибку сервиса в HTTP-статус.
func respondServiceError(c *gin.Context, err error) {
	var ve *services.ValidationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, Envelope{Success: false, Message: "Validation failed", Errors: ve.Problems, Timestamp: time.Now().UTC()})
	case services.IsValidation(err),
		errors.Is(err, services.ErrInvalidCode),
		errors.Is(err, services.ErrCodeExpired):
		respondError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrNotFound):
		respondError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrInvalidCredentials):
		respondError(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, services.ErrForbidden),
		errors.Is(err, services.ErrSelfRoleChange),
		errors.Is(err, services.ErrNotVerified),
		errors.Is(err, services.ErrUserBlocked):
		respondError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, services.ErrPhoneTaken),
		errors.Is(err, services.ErrDesignInUse),
		errors.Is(err, services.ErrNotAssembled),
		errors.Is(err, services.ErrNoTelegramChat):
		respondError(c, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrInsufficientBalance):
		respondError(c, http.StatusPaymentRequired, err.Error())
	case errors.Is(err, services.ErrTooManyAttempts):
		respondError(c, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, services.ErrNoAPIKey):
		respondError(c, http.StatusServiceUnavailable, err.Error())
	default:
		slog.Error("Request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
		respondError(c, http.StatusInternalServerError, "Internal server error")
	}
}

// paramID читает числовой :id из пути.
func paramID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, http.StatusBadRequest, "Invalid id")
		return 0, false
	}
	return uint(id), true
}
