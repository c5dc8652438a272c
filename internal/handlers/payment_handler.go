package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"time"

	"student-services/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type PaymentHandler struct {
	Payments *services.PaymentService
}

func NewPaymentHandler(payments *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{Payments: payments}
}

// Create - POST /api/payments, multipart: amount, description, receipt.
func (h *PaymentHandler) Create(c *gin.Context) {
	amount, err := decimal.NewFromString(strings.TrimSpace(c.PostForm("amount")))
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid amount")
		return
	}

	in := services.CreatePaymentInput{
		SenderID:    c.GetUint("user_id"),
		Amount:      amount,
		Description: c.PostForm("description"),
	}
	if header, err := c.FormFile("receipt"); err == nil {
		file, err := header.Open()
		if err != nil {
			respondError(c, http.StatusBadRequest, "Cannot read receipt file")
			return
		}
		defer file.Close()
		in.Receipt = &services.Upload{FileName: header.Filename, Size: header.Size, Body: file}
	}

	payment, err := h.Payments.CreatePayment(c.Request.Context(), in)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, payment)
}

func (h *PaymentHandler) filter(c *gin.Context) (services.PaymentFilter, bool) {
	f := services.PaymentFilter{Status: c.Query("status")}
	viewer := currentUser(c)
	if !viewer.IsAdmin() {
		f.SenderID = viewer.ID
	} else if v := c.Query("senderId"); v != "" {
		var id uint
		if _, err := fmt.Sscan(v, &id); err != nil {
			respondError(c, http.StatusBadRequest, "Invalid senderId")
			return f, false
		}
		f.SenderID = id
	}
	for key, target := range map[string]**time.Time{"from": &f.From, "to": &f.To} {
		if v := c.Query(key); v != "" {
			t, err := time.Parse("2006-01-02", v)
			if err != nil {
				respondError(c, http.StatusBadRequest, "Invalid date in "+key+", expected YYYY-MM-DD")
				return f, false
			}
			*target = &t
		}
	}
	return f, true
}

// List - свои платежи для пользователя, все для администратора.
func (h *PaymentHandler) List(c *gin.Context) {
	f, ok := h.filter(c)
	if !ok {
		return
	}
	page := pageFromQuery(c)
	payments, total, err := h.Payments.ListPayments(c.Request.Context(), f, page)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, http.StatusOK, CreatePaginatedResponse(page, payments, total))
}

func (h *PaymentHandler) Get(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	payment, err := h.Payments.GetPayment(c.Request.Context(), id, currentUser(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, http.StatusOK, payment)
}

type processRequest struct {
	Status         string           `json:"status" binding:"required"`
	ApprovedAmount *decimal.Decimal `json:"approvedAmount"`
	RejectReason   string           `json:"rejectReason"`
	AdminNotes     string           `json:"adminNotes"`
}

// Process - POST /api/payments/:id/process.
func (h *PaymentHandler) Process(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var body processRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.Payments.ProcessPayment(c.Request.Context(), services.ProcessPaymentInput{
		PaymentID:      id,
		Status:         body.Status,
		ApprovedAmount: body.ApprovedAmount,
		RejectReason:   body.RejectReason,
		AdminNotes:     body.AdminNotes,
		AdminID:        c.GetUint("user_id"),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	status := http.StatusOK
	switch result.Code {
	case services.ResultNotFound:
		status = http.StatusNotFound
	case services.ResultUnauthorized:
		status = http.StatusForbidden
	case services.ResultAlreadySuccess, services.ResultInvalidTransition:
		status = http.StatusConflict
	}
	c.JSON(status, gin.H{
		"success":    result.Success,
		"message":    result.Message,
		"resultCode": result.Code,
		"data":       result.Payment,
		"timestamp":  time.Now().UTC(),
	})
}

func (h *PaymentHandler) Delete(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if err := h.Payments.DeletePayment(c.Request.Context(), id, c.GetUint("user_id")); err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"deleted": id})
}

func (h *PaymentHandler) Stats(c *gin.Context) {
	stats, err := h.Payments.Stats(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, http.StatusOK, stats)
}

// Export отдаёт xlsx с платежами по тем же фильтрам, что и List.
func (h *PaymentHandler) Export(c *gin.Context) {
	f, ok := h.filter(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := h.Payments.ExportPayments(c.Request.Context(), f, &buf); err != nil {
		respondServiceError(c, err)
		return
	}
	fileName := fmt.Sprintf("payments_%s.xlsx", time.Now().Format("20060102_150405"))
	c.Header("Content-Disposition", "attachment; filename="+fileName)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}
