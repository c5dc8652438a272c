package handlers

import (
	"net/http"

	"student-services/internal/services"

	"github.com/gin-gonic/gin"
)

type DesignHandler struct {
	Designs *services.DesignService
}

func NewDesignHandler(designs *services.DesignService) *DesignHandler {
	return &DesignHandler{Designs: designs}
}

// List - пользователи видят только активные оформления.
func (h *DesignHandler) List(c *gin.Context) {
	activeOnly := !currentUser(c).IsAdmin() || c.Query("active") == "true"
	designs, err := h.Designs.ListDesigns(c.Request.Context(), activeOnly)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, http.StatusOK, designs)
}

func (h *DesignHandler) Get(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	design, err := h.Designs.GetDesign(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, http.StatusOK, design)
}

func (h *DesignHandler) Create(c *gin.Context) {
	var body services.DesignInput
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	design, err := h.Designs.CreateDesign(c.Request.Context(), body)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, design)
}

func (h *DesignHandler) Update(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var body services.DesignInput
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	design, err := h.Designs.UpdateDesign(c.Request.Context(), id, body)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, http.StatusOK, design)
}

func (h *DesignHandler) Delete(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if err := h.Designs.DeleteDesign(c.Request.Context(), id); err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"deleted": id})
}
