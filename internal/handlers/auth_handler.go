package handlers

import (
	"net/http"
	"time"

	"student-services/internal/middleware"
	"student-services/internal/services"
	"student-services/models"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	Users    *services.UserService
	TokenTTL time.Duration
}

func NewAuthHandler(users *services.UserService, tokenTTL time.Duration) *AuthHandler {
	return &AuthHandler{Users: users, TokenTTL: tokenTTL}
}

type registerRequest struct {
	FullName string `json:"fullName" binding:"required"`
	Phone    string `json:"phone" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type tokenResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Register - POST /api/auth/register. Дальше пользователь получает код в Telegram-боте.
func (h *AuthHandler) Register(c *gin.Context) {
	var body registerRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	user, err := h.Users.Register(c.Request.Context(), services.RegisterInput{
		FullName: body.FullName,
		Phone:    body.Phone,
		Password: body.Password,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, user)
}

type verifyRequest struct {
	Phone string `json:"phone" binding:"required"`
	Code  string `json:"code" binding:"required"`
}

func (h *AuthHandler) Verify(c *gin.Context) {
	var body verifyRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	user, token, err := h.Users.Verify(c.Request.Context(), body.Phone, body.Code)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	h.setAuthCookie(c, token)
	respondOK(c, http.StatusOK, tokenResponse{Token: token, User: user})
}

type loginRequest struct {
	Phone    string `json:"phone" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var body loginRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	user, token, err := h.Users.Login(c.Request.Context(), body.Phone, body.Password)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	h.setAuthCookie(c, token)
	respondOK(c, http.StatusOK, tokenResponse{Token: token, User: user})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	c.SetCookie("auth_token", "", -1, "/", "", false, true)
	respondOK(c, http.StatusOK, gin.H{"loggedOut": true})
}

// Me возвращает актуальные данные текущего пользователя, включая баланс.
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.Users.GetByID(c.Request.Context(), c.GetUint("user_id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, http.StatusOK, user)
}

func (h *AuthHandler) setAuthCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie("auth_token", token, int(h.TokenTTL.Seconds()), "/", "", false, true)
}

// currentUser - пользователь из контекста AuthMiddleware.
func currentUser(c *gin.Context) *models.User {
	return middleware.CurrentUser(c)
}
