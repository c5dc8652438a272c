package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"student-services/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const maxReceiptSize = 5 << 20

// errStatusChanged - статус платежа поменялся между чтением и записью (параллельная обработка).
var errStatusChanged = errors.New("payment status changed concurrently")

type PaymentService struct {
	db            *gorm.DB
	notifications *NotificationService
	uploadDir     string
	now           func() time.Time
}

func NewPaymentService(db *gorm.DB, notifications *NotificationService, uploadDir string) *PaymentService {
	return &PaymentService{db: db, notifications: notifications, uploadDir: uploadDir, now: time.Now}
}

type CreatePaymentInput struct {
	SenderID    uint
	Amount      decimal.Decimal
	Description string
	Receipt     *Upload
}

// CreatePayment создаёт заявку на пополнение в статусе Waiting.
// Заявки создают только пользователи с базовой ролью.
func (s *PaymentService) CreatePayment(ctx context.Context, in CreatePaymentInput) (*models.Payment, error) {
	var sender models.User
	if err := s.db.WithContext(ctx).First(&sender, in.SenderID).Error; err != nil {
		if notFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if sender.Role != models.RoleUser {
		return nil, ErrForbidden
	}
	if sender.IsBlocked {
		return nil, ErrUserBlocked
	}
	if _, err := wholeAmount(in.Amount); err != nil {
		return nil, err
	}
	if in.Receipt == nil || in.Receipt.Body == nil {
		return nil, ErrReceiptRequired
	}

	photoPath, err := s.saveReceipt(in.Receipt)
	if err != nil {
		return nil, err
	}

	payment := models.Payment{
		SenderID:        sender.ID,
		RequestedAmount: in.Amount,
		PhotoPath:       photoPath,
		Description:     strings.TrimSpace(in.Description),
		Status:          models.PaymentWaiting,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&payment).Error; err != nil {
			return fmt.Errorf("save payment: %w", err)
		}
		return enqueueEvent(tx, TopicPaymentCreated, fmt.Sprint(payment.ID), &PaymentEvent{
			PaymentID: payment.ID,
			SenderID:  sender.ID,
			Status:    payment.Status,
			Requested: payment.RequestedAmount.String(),
		})
	})
	if err != nil {
		os.Remove(photoPath)
		return nil, err
	}
	payment.Sender = sender

	slog.Info("Создана заявка на пополнение", "payment_id", payment.ID, "sender_id", sender.ID, "amount", payment.RequestedAmount.String())

	s.notifications.NotifyAdmins(ctx,
		"Новая заявка на пополнение",
		fmt.Sprintf("%s (%s) отправил чек на сумму %s. Заявка #%d.", sender.FullName, sender.Phone, payment.RequestedAmount.String(), payment.ID))
	s.notifications.Broadcast("payment.created", payment)

	return &payment, nil
}

func (s *PaymentService) saveReceipt(r *Upload) (string, error) {
	path, err := saveImage(filepath.Join(s.uploadDir, "receipts"), r, maxReceiptSize)
	if errors.Is(err, errBadImage) {
		return "", ErrInvalidReceipt
	}
	return path, err
}

type ProcessPaymentInput struct {
	PaymentID      uint
	Status         string
	ApprovedAmount *decimal.Decimal
	RejectReason   string
	AdminNotes     string
	AdminID        uint
}

// ProcessResult - структурированный итог обработки платежа.
type ProcessResult struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Code    ResultCode      `json:"resultCode"`
	Payment *models.Payment `json:"payment,omitempty"`
}

// ProcessPayment применяет решение администратора к платежу.
// Ошибка возвращается только для некорректных аргументов и сбоев хранилища,
// бизнес-исходы передаются через ProcessResult.Code.
func (s *PaymentService) ProcessPayment(ctx context.Context, in ProcessPaymentInput) (*ProcessResult, error) {
	db := s.db.WithContext(ctx)

	var admin models.User
	if err := db.First(&admin, in.AdminID).Error; err != nil && !notFound(err) {
		return nil, err
	}
	if admin.ID == 0 || !admin.IsAdmin() {
		return &ProcessResult{Code: ResultUnauthorized, Message: "Only administrators can process payments"}, nil
	}

	if !models.ValidPaymentStatus(in.Status) {
		return nil, ErrInvalidStatus
	}
	reason := strings.TrimSpace(in.RejectReason)
	if in.Status == models.PaymentRejected && reason == "" {
		return nil, ErrRejectReasonRequired
	}
	var payment models.Payment
	if err := db.First(&payment, in.PaymentID).Error; err != nil {
		if notFound(err) {
			return &ProcessResult{Code: ResultNotFound, Message: "Payment not found"}, nil
		}
		return nil, err
	}

	if code := checkTransition(payment.Status, in.Status); code != ResultSuccess {
		if code == ResultAlreadySuccess {
			slog.Info("Платёж уже одобрен. Повторная обработка пропущена.", "payment_id", payment.ID, "admin_id", admin.ID)
		}
		return &ProcessResult{Code: code, Message: transitionMessage(code, payment.Status, in.Status), Payment: &payment}, nil
	}

	// Сумма проверяется после перехода: повторное одобрение всегда AlreadySuccess.
	override := in.ApprovedAmount
	if override != nil && !override.IsPositive() {
		override = nil
	}
	if override != nil {
		if _, err := wholeAmount(*override); err != nil {
			return nil, err
		}
	}

	previous := payment.Status
	now := s.now()
	var approved decimal.Decimal
	var credited int64

	err := db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"status":                in.Status,
			"processed_by_admin_id": admin.ID,
			"processed_at":          now,
			"admin_notes":           strings.TrimSpace(in.AdminNotes),
		}
		if in.Status == models.PaymentSuccess {
			approved = payment.RequestedAmount
			if override != nil {
				approved = *override
			}
			amount, err := wholeAmount(approved)
			if err != nil {
				return err
			}
			credited = amount
			updates["approved_amount"] = approved
			updates["reject_reason"] = ""
		} else {
			updates["approved_amount"] = nil
			updates["reject_reason"] = reason
		}

		// Условие по статусу защищает от двойного начисления при параллельной обработке.
		res := tx.Model(&models.Payment{}).
			Where("id = ? AND status = ?", payment.ID, previous).
			Updates(updates)
		if res.Error != nil {
			return fmt.Errorf("update payment: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return errStatusChanged
		}

		if credited > 0 {
			res := tx.Model(&models.User{}).
				Where("id = ?", payment.SenderID).
				Update("balance", gorm.Expr("balance + ?", credited))
			if res.Error != nil {
				return fmt.Errorf("credit balance: %w", res.Error)
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("credit balance: sender %d not found", payment.SenderID)
			}
		}

		details, _ := json.Marshal(map[string]interface{}{
			"paymentId":      payment.ID,
			"previousStatus": previous,
			"status":         in.Status,
			"requested":      payment.RequestedAmount.String(),
			"approved":       approvedString(in.Status, approved),
			"credited":       credited,
		})
		senderID := payment.SenderID
		if err := tx.Create(&models.AdminAction{
			AdminID:      admin.ID,
			TargetUserID: &senderID,
			ActionType:   models.ActionPaymentProcessed,
			Details:      details,
			Reason:       reason,
		}).Error; err != nil {
			return fmt.Errorf("save admin action: %w", err)
		}

		title, body := paymentNotificationText(&payment, in.Status, credited, reason)
		if _, err := s.notifications.Record(tx, payment.SenderID, models.NotificationPayment, title, body); err != nil {
			return err
		}

		event := &PaymentEvent{
			PaymentID:      payment.ID,
			SenderID:       payment.SenderID,
			Status:         in.Status,
			PreviousStatus: previous,
			Requested:      payment.RequestedAmount.String(),
			Credited:       credited,
			AdminID:        admin.ID,
		}
		if in.Status == models.PaymentSuccess {
			a := approved.String()
			event.Approved = &a
		}
		return enqueueEvent(tx, TopicPaymentProcessed, fmt.Sprint(payment.ID), event)
	})

	if errors.Is(err, errStatusChanged) {
		var fresh models.Payment
		if err := db.First(&fresh, payment.ID).Error; err != nil {
			if notFound(err) {
				return &ProcessResult{Code: ResultNotFound, Message: "Payment not found"}, nil
			}
			return nil, err
		}
		code := checkTransition(fresh.Status, in.Status)
		if code == ResultSuccess {
			code = ResultInvalidTransition
		}
		slog.Warn("Платёж был изменён параллельно", "payment_id", payment.ID, "status", fresh.Status, "admin_id", admin.ID)
		return &ProcessResult{Code: code, Message: "Payment was processed by another administrator", Payment: &fresh}, nil
	}
	if err != nil {
		return nil, err
	}

	if err := db.Preload("Sender").Preload("ProcessedByAdmin").First(&payment, payment.ID).Error; err != nil {
		return nil, err
	}

	slog.Info("Платёж обработан", "payment_id", payment.ID, "status", payment.Status, "credited", credited, "admin_id", admin.ID)

	title, body := paymentNotificationText(&payment, in.Status, credited, reason)
	s.notifications.Push(ctx, payment.SenderID, title+"\n\n"+body)
	s.notifications.Broadcast("payment.processed", payment)

	return &ProcessResult{
		Success: true,
		Code:    ResultSuccess,
		Message: "Payment status updated to " + payment.Status,
		Payment: &payment,
	}, nil
}

func approvedString(status string, approved decimal.Decimal) string {
	if status != models.PaymentSuccess {
		return ""
	}
	return approved.String()
}

func paymentNotificationText(p *models.Payment, status string, credited int64, reason string) (string, string) {
	if status == models.PaymentSuccess {
		return "Платёж одобрен",
			fmt.Sprintf("Заявка #%d одобрена. На баланс зачислено %s.", p.ID, amountInWords(credited))
	}
	return "Платёж отклонён", fmt.Sprintf("Заявка #%d отклонена. Причина: %s", p.ID, reason)
}

// PaymentFilter - фильтр списка платежей.
type PaymentFilter struct {
	Status   string
	SenderID uint
	From     *time.Time
	To       *time.Time
}

func (f PaymentFilter) apply(db *gorm.DB) *gorm.DB {
	if f.Status != "" {
		db = db.Where("status = ?", f.Status)
	}
	if f.SenderID != 0 {
		db = db.Where("sender_id = ?", f.SenderID)
	}
	if f.From != nil {
		db = db.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		db = db.Where("created_at < ?", *f.To)
	}
	return db
}

// ListPayments возвращает страницу платежей, новые сначала.
func (s *PaymentService) ListPayments(ctx context.Context, filter PaymentFilter, page PageRequest) ([]models.Payment, int64, error) {
	query := filter.apply(s.db.WithContext(ctx).Model(&models.Payment{}))

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var payments []models.Payment
	err := query.Scopes(page.Scope()).
		Preload("Sender").
		Order("created_at DESC, id DESC").
		Find(&payments).Error
	return payments, total, err
}

// GetPayment доступен владельцу платежа и администраторам.
func (s *PaymentService) GetPayment(ctx context.Context, id uint, viewer *models.User) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.WithContext(ctx).Preload("Sender").Preload("ProcessedByAdmin").First(&payment, id).Error
	if err != nil {
		if notFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !viewer.IsAdmin() && payment.SenderID != viewer.ID {
		return nil, ErrForbidden
	}
	return &payment, nil
}

// DeletePayment мягко удаляет платёж и пишет запись в журнал действий.
func (s *PaymentService) DeletePayment(ctx context.Context, id, adminID uint) error {
	var admin models.User
	if err := s.db.WithContext(ctx).First(&admin, adminID).Error; err != nil || !admin.IsAdmin() {
		return ErrForbidden
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var payment models.Payment
		if err := tx.First(&payment, id).Error; err != nil {
			if notFound(err) {
				return ErrNotFound
			}
			return err
		}
		if err := tx.Delete(&payment).Error; err != nil {
			return err
		}
		details, _ := json.Marshal(map[string]interface{}{"paymentId": payment.ID, "status": payment.Status})
		senderID := payment.SenderID
		return tx.Create(&models.AdminAction{
			AdminID:      admin.ID,
			TargetUserID: &senderID,
			ActionType:   models.ActionPaymentDeleted,
			Details:      details,
		}).Error
	})
}

// PaymentStats - количество заявок по статусам и сумма одобренных.
type PaymentStats struct {
	Waiting       int64  `json:"waiting"`
	Success       int64  `json:"success"`
	Rejected      int64  `json:"rejected"`
	TotalApproved string `json:"totalApproved"`
}

func (s *PaymentService) Stats(ctx context.Context) (*PaymentStats, error) {
	type row struct {
		Status string
		Count  int64
	}
	var rows []row
	if err := s.db.WithContext(ctx).Model(&models.Payment{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	stats := &PaymentStats{}
	for _, r := range rows {
		switch r.Status {
		case models.PaymentWaiting:
			stats.Waiting = r.Count
		case models.PaymentSuccess:
			stats.Success = r.Count
		case models.PaymentRejected:
			stats.Rejected = r.Count
		}
	}

	var approved []models.Payment
	if err := s.db.WithContext(ctx).Select("status", "approved_amount").
		Where("status = ?", models.PaymentSuccess).
		Find(&approved).Error; err != nil {
		return nil, err
	}
	total := decimal.Zero
	for _, p := range approved {
		total = total.Add(p.FinalAmount())
	}
	stats.TotalApproved = total.String()
	return stats, nil
}
