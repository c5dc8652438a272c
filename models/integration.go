package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// APIKey - ключ внешнего AI-провайдера. Ключи ротируются по наименьшему использованию.
type APIKey struct {
	gorm.Model
	Provider   string     `json:"provider" gorm:"type:varchar(20);index;not null"`
	Key        string     `json:"-" gorm:"column:secret;type:varchar(255);uniqueIndex;not null"`
	Label      string     `json:"label"`
	IsActive   bool       `json:"isActive" gorm:"default:true"`
	UsageCount int64      `json:"usageCount" gorm:"default:0"`
	LastUsedAt *time.Time `json:"lastUsedAt,omitempty"`
	LastError  string     `json:"lastError,omitempty"`
}

// MaskedKey возвращает ключ с видимыми только последними четырьмя символами.
func (k *APIKey) MaskedKey() string {
	if len(k.Key) <= 4 {
		return "****"
	}
	return "****" + k.Key[len(k.Key)-4:]
}

// OutboxEvent - событие, записанное в той же транзакции, что и изменение,
// и опубликованное в Kafka позже.
type OutboxEvent struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	CreatedAt   time.Time      `json:"createdAt"`
	EventID     string         `json:"eventId" gorm:"type:varchar(36);uniqueIndex;not null"`
	Topic       string         `json:"topic" gorm:"not null"`
	Key         string         `json:"key"`
	Payload     datatypes.JSON `json:"payload"`
	PublishedAt *time.Time     `json:"publishedAt,omitempty" gorm:"index"`
	Attempts    int            `json:"attempts" gorm:"default:0"`
	LastError   string         `json:"lastError,omitempty"`
}

// AllModels - список моделей для AutoMigrate.
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&VerificationCode{},
		&Payment{},
		&Notification{},
		&AdminAction{},
		&Design{},
		&Presentation{},
		&Plan{},
		&Page{},
		&TextSlide{},
		&PhotoSlide{},
		&Post{},
		&APIKey{},
		&OutboxEvent{},
	}
}

// AutoMigrate создаёт или обновляет схему.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(AllModels()...)
}
