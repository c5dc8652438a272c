package handlers

import (
	"net/http"

	"student-services/internal/services"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	Notifications *services.NotificationService
}

func NewNotificationHandler(notifications *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{Notifications: notifications}
}

func (h *NotificationHandler) List(c *gin.Context) {
	page := pageFromQuery(c)
	items, total, err := h.Notifications.List(c.Request.Context(), c.GetUint("user_id"), c.Query("unread") == "true", page)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, http.StatusOK, CreatePaginatedResponse(page, items, total))
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if err := h.Notifications.MarkRead(c.Request.Context(), c.GetUint("user_id"), id); err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"id": id, "isRead": true})
}

func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	n, err := h.Notifications.MarkAllRead(c.Request.Context(), c.GetUint("user_id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"updated": n})
}

func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	n, err := h.Notifications.UnreadCount(c.Request.Context(), c.GetUint("user_id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"unread": n})
}
