package handlers

import (
	"net/http"
	"strconv"

	"student-services/internal/services"

	"github.com/gin-gonic/gin"
)

// UserHandler - администрирование пользователей.
type UserHandler struct {
	Users  *services.UserService
	Admins *services.AdminService
}

func NewUserHandler(users *services.UserService, admins *services.AdminService) *UserHandler {
	return &UserHandler{Users: users, Admins: admins}
}

func (h *UserHandler) List(c *gin.Context) {
	page := pageFromQuery(c)
	users, total, err := h.Users.ListUsers(c.Request.Context(), c.Query("search"), c.Query("role"), page)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, http.StatusOK, CreatePaginatedResponse(page, users, total))
}

type roleRequest struct {
	Role   string `json:"role" binding:"required"`
	Reason string `json:"reason"`
}

func (h *UserHandler) ChangeRole(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var body roleRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	user, err := h.Admins.ChangeRole(c.Request.Context(), c.GetUint("user_id"), id, body.Role, body.Reason)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, http.StatusOK, user)
}

type balanceRequest struct {
	Delta  int64  `json:"delta" binding:"required"`
	Reason string `json:"reason" binding:"required"`
}

func (h *UserHandler) AdjustBalance(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var body balanceRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	user, err := h.Admins.AdjustBalance(c.Request.Context(), c.GetUint("user_id"), id, body.Delta, body.Reason)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, http.StatusOK, user)
}

type blockRequest struct {
	Blocked bool   `json:"blocked"`
	Reason  string `json:"reason"`
}

func (h *UserHandler) SetBlocked(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var body blockRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	user, err := h.Admins.SetBlocked(c.Request.Context(), c.GetUint("user_id"), id, body.Blocked, body.Reason)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, http.StatusOK, user)
}

// ListActions - журнал действий администраторов.
func (h *UserHandler) ListActions(c *gin.Context) {
	filter := services.ActionFilter{ActionType: c.Query("actionType")}
	if v, err := strconv.ParseUint(c.Query("adminId"), 10, 64); err == nil {
		filter.AdminID = uint(v)
	}
	if v, err := strconv.ParseUint(c.Query("targetUserId"), 10, 64); err == nil {
		filter.TargetUserID = uint(v)
	}
	page := pageFromQuery(c)
	actions, total, err := h.Admins.ListActions(c.Request.Context(), filter, page)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, http.StatusOK, CreatePaginatedResponse(page, actions, total))
}
