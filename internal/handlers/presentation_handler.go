package handlers

import (
	"net/http"
	"time"

	"student-services/internal/services"

	"github.com/gin-gonic/gin"
)

type PresentationHandler struct {
	Presentations *services.PresentationService
}

func NewPresentationHandler(presentations *services.PresentationService) *PresentationHandler {
	return &PresentationHandler{Presentations: presentations}
}

// UploadPhoto - POST /api/presentations/photos, multipart поле photo.
func (h *PresentationHandler) UploadPhoto(c *gin.Context) {
	header, err := c.FormFile("photo")
	if err != nil {
		respondError(c, http.StatusBadRequest, "Photo file is required")
		return
	}
	file, err := header.Open()
	if err != nil {
		respondError(c, http.StatusBadRequest, "Cannot read photo file")
		return
	}
	defer file.Close()

	path, err := h.Presentations.SavePhoto(c.Request.Context(), c.GetUint("user_id"),
		&services.Upload{FileName: header.Filename, Size: header.Size, Body: file})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, gin.H{"path": path})
}

func (h *PresentationHandler) Create(c *gin.Context) {
	var body services.CreatePresentationInput
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	body.UserID = c.GetUint("user_id")
	p, err := h.Presentations.CreatePresentation(c.Request.Context(), body)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, p)
}

func (h *PresentationHandler) List(c *gin.Context) {
	page := pageFromQuery(c)
	items, total, err := h.Presentations.ListPresentations(c.Request.Context(), currentUser(c), page)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, http.StatusOK, CreatePaginatedResponse(page, items, total))
}

func (h *PresentationHandler) Get(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	p, err := h.Presentations.GetPresentation(c.Request.Context(), id, currentUser(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, http.StatusOK, p)
}

func (h *PresentationHandler) Assemble(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	p, err := h.Presentations.AssemblePresentation(c.Request.Context(), id, currentUser(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, http.StatusOK, p)
}

func (h *PresentationHandler) Deliver(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	post, err := h.Presentations.DeliverPresentation(c.Request.Context(), id, currentUser(c))
	if err != nil && post != nil {
		// файл не ушёл в Telegram, но попытка записана
		c.JSON(http.StatusBadGateway, Envelope{Success: false, Data: post, Message: "Telegram delivery failed", Timestamp: time.Now().UTC()})
		return
	}
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, http.StatusOK, post)
}

func (h *PresentationHandler) Download(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	path, name, err := h.Presentations.DownloadPresentation(c.Request.Context(), id, currentUser(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.FileAttachment(path, name)
}

type generateTextRequest struct {
	Topic    string `json:"topic" binding:"required"`
	Language string `json:"language"`
}

func (h *PresentationHandler) GenerateText(c *gin.Context) {
	var body generateTextRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	text, err := h.Presentations.GenerateSlideText(c.Request.Context(), body.Topic, body.Language)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"text": text})
}
