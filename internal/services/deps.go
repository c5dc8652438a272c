package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// Каналы доставки, которые сервисы используют после коммита транзакции.

type MessageSender interface {
	SendText(chatID int64, text string) error
}

type DocumentSender interface {
	SendDocument(chatID int64, path, caption string) (int, error)
}

type MailSender interface {
	Send(to []string, subject, body string) error
}

type Broadcaster interface {
	Broadcast(eventType string, payload interface{})
}

type UserCacheInvalidator interface {
	Invalidate(ctx context.Context, userID uint)
}

type AttemptCounter interface {
	Hit(ctx context.Context, key string, window time.Duration) (int64, error)
	Reset(ctx context.Context, key string)
}

func notFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
