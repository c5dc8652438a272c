package models

import (
	"time"

	"gorm.io/gorm"
)

// Роли пользователей.
const (
	RoleUser       = "User"
	RoleAdmin      = "Admin"
	RoleSuperAdmin = "SuperAdmin"
)

// User - студент или администратор сервиса.
type User struct {
	gorm.Model
	FullName         string     `json:"fullName" gorm:"not null"`
	Phone            string     `json:"phone" gorm:"uniqueIndex;not null"`
	PasswordHash     string     `json:"-" gorm:"not null"`
	Role             string     `json:"role" gorm:"type:varchar(20);default:'User';not null"`
	Balance          int64      `json:"balance" gorm:"default:0;not null"`
	TelegramID       *int64     `json:"telegramId,omitempty" gorm:"uniqueIndex"`
	TelegramUsername string     `json:"telegramUsername,omitempty"`
	IsVerified       bool       `json:"isVerified" gorm:"default:false"`
	VerifiedAt       *time.Time `json:"verifiedAt,omitempty"`
	IsBlocked        bool       `json:"isBlocked" gorm:"default:false"`
}

// IsAdmin сообщает, может ли пользователь обрабатывать платежи.
func (u *User) IsAdmin() bool {
	return IsAdminRole(u.Role)
}

func IsAdminRole(role string) bool {
	return role == RoleAdmin || role == RoleSuperAdmin
}

// ValidRole проверяет, что строка - одна из известных ролей.
func ValidRole(role string) bool {
	switch role {
	case RoleUser, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}
