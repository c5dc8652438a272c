package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	NotificationPayment      = "payment"
	NotificationPresentation = "presentation"
	NotificationAdmin        = "admin"
	NotificationSystem       = "system"
)

// Notification - уведомление пользователя внутри сервиса.
type Notification struct {
	gorm.Model
	UserID uint       `json:"userId" gorm:"index;not null"`
	Kind   string     `json:"kind" gorm:"type:varchar(20);default:'system'"`
	Title  string     `json:"title"`
	Body   string     `json:"body" gorm:"type:text"`
	IsRead bool       `json:"isRead" gorm:"default:false;index"`
	ReadAt *time.Time `json:"readAt,omitempty"`
}

// Типы действий администратора.
const (
	ActionRoleChange        = "role_change"
	ActionBalanceAdjustment = "balance_adjustment"
	ActionPaymentProcessed  = "payment_processed"
	ActionPaymentDeleted    = "payment_deleted"
	ActionUserBlocked       = "user_blocked"
)

// AdminAction - журнал привилегированных изменений.
type AdminAction struct {
	gorm.Model
	AdminID      uint           `json:"adminId" gorm:"index;not null"`
	Admin        User           `json:"admin,omitempty" gorm:"foreignKey:AdminID"`
	TargetUserID *uint          `json:"targetUserId,omitempty" gorm:"index"`
	ActionType   string         `json:"actionType" gorm:"type:varchar(40);not null"`
	Details      datatypes.JSON `json:"details"`
	Reason       string         `json:"reason,omitempty" gorm:"type:text"`
}

// VerificationCode - одноразовый код подтверждения телефона.
type VerificationCode struct {
	gorm.Model
	UserID    uint       `json:"userId" gorm:"index;not null"`
	Code      string     `json:"-" gorm:"type:varchar(6);not null"`
	Purpose   string     `json:"purpose" gorm:"type:varchar(20);default:'registration'"`
	ExpiresAt time.Time  `json:"expiresAt"`
	UsedAt    *time.Time `json:"usedAt,omitempty"`
	Attempts  int        `json:"attempts" gorm:"default:0"`
}

func (v *VerificationCode) Expired(now time.Time) bool {
	return now.After(v.ExpiresAt)
}
