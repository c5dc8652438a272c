package handlers

import (
	"net/http"

	"student-services/internal/services"

	"github.com/gin-gonic/gin"
)

type APIKeyHandler struct {
	Keys *services.APIKeyService
}

func NewAPIKeyHandler(keys *services.APIKeyService) *APIKeyHandler {
	return &APIKeyHandler{Keys: keys}
}

func (h *APIKeyHandler) List(c *gin.Context) {
	keys, err := h.Keys.ListKeys(c.Request.Context(), c.Query("provider"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, http.StatusOK, keys)
}

type addKeyRequest struct {
	Provider string `json:"provider"`
	Key      string `json:"key" binding:"required"`
	Label    string `json:"label"`
}

func (h *APIKeyHandler) Add(c *gin.Context) {
	var body addKeyRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	key, err := h.Keys.AddKey(c.Request.Context(), body.Provider, body.Key, body.Label)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, key)
}

func (h *APIKeyHandler) Deactivate(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if err := h.Keys.DeactivateKey(c.Request.Context(), id); err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"id": id, "isActive": false})
}
