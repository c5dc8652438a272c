package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"student-services/models"

	"gorm.io/gorm"
)

// NotificationService сохраняет уведомления и рассылает их по внешним каналам.
// Все внешние каналы работают по принципу best effort: ошибка только логируется.
type NotificationService struct {
	db           *gorm.DB
	telegram     MessageSender
	mail         MailSender
	feed         Broadcaster
	adminChatIDs []int64
	adminEmails  []string
}

type NotificationOptions struct {
	Telegram     MessageSender
	Mail         MailSender
	Feed         Broadcaster
	AdminChatIDs []int64
	AdminEmails  []string
}

func NewNotificationService(db *gorm.DB, opts NotificationOptions) *NotificationService {
	return &NotificationService{
		db:           db,
		telegram:     opts.Telegram,
		mail:         opts.Mail,
		feed:         opts.Feed,
		adminChatIDs: opts.AdminChatIDs,
		adminEmails:  opts.AdminEmails,
	}
}

// Record сохраняет уведомление через переданный хэндл БД (обычно транзакцию).
func (s *NotificationService) Record(tx *gorm.DB, userID uint, kind, title, body string) (*models.Notification, error) {
	n := &models.Notification{UserID: userID, Kind: kind, Title: title, Body: body}
	if err := tx.Create(n).Error; err != nil {
		return nil, fmt.Errorf("save notification: %w", err)
	}
	return n, nil
}

// Notify сохраняет уведомление и отправляет его в Telegram, если чат привязан.
func (s *NotificationService) Notify(ctx context.Context, userID uint, kind, title, body string) (*models.Notification, error) {
	n, err := s.Record(s.db.WithContext(ctx), userID, kind, title, body)
	if err != nil {
		return nil, err
	}
	s.Push(ctx, userID, title+"\n\n"+body)
	return n, nil
}

// Push отправляет сообщение пользователю в Telegram без сохранения.
func (s *NotificationService) Push(ctx context.Context, userID uint, text string) {
	if s.telegram == nil {
		return
	}
	var user models.User
	if err := s.db.WithContext(ctx).Select("id", "telegram_id").First(&user, userID).Error; err != nil {
		slog.Warn("Не удалось найти пользователя для отправки уведомления", "user_id", userID, "error", err)
		return
	}
	if user.TelegramID == nil {
		return
	}
	if err := s.telegram.SendText(*user.TelegramID, text); err != nil {
		slog.Error("Telegram notification failed", "user_id", userID, "error", err)
	}
}

// NotifyAdmins рассылает сообщение администраторам из конфигурации.
func (s *NotificationService) NotifyAdmins(ctx context.Context, title, body string) {
	if s.telegram != nil {
		for _, chatID := range s.adminChatIDs {
			if err := s.telegram.SendText(chatID, title+"\n\n"+body); err != nil {
				slog.Error("Telegram admin notification failed", "chat_id", chatID, "error", err)
			}
		}
	}
	if s.mail != nil && len(s.adminEmails) > 0 {
		if err := s.mail.Send(s.adminEmails, title, body); err != nil {
			slog.Error("Email admin notification failed", "recipients", len(s.adminEmails), "error", err)
		}
	}
}

// Broadcast отправляет событие подключённым администраторам (live feed).
func (s *NotificationService) Broadcast(eventType string, payload interface{}) {
	if s.feed == nil {
		return
	}
	s.feed.Broadcast(eventType, payload)
}

func (s *NotificationService) List(ctx context.Context, userID uint, unreadOnly bool, page PageRequest) ([]models.Notification, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Notification{}).Where("user_id = ?", userID)
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []models.Notification
	if err := query.Scopes(page.Scope()).Order("created_at DESC, id DESC").Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID uint) error {
	now := time.Now()
	res := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Updates(map[string]interface{}{"is_read": true, "read_at": now})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": time.Now()})
	return res.RowsAffected, res.Error
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&n).Error
	return n, err
}
