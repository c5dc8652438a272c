package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Статусы заявки на пополнение баланса.
const (
	PaymentWaiting  = "Waiting"
	PaymentSuccess  = "Success"
	PaymentRejected = "Rejected"
)

// Payment - заявка студента на зачисление средств после проверки чека администратором.
type Payment struct {
	gorm.Model
	SenderID           uint             `json:"senderId" gorm:"index;not null"`
	Sender             User             `json:"sender,omitempty" gorm:"foreignKey:SenderID"`
	RequestedAmount    decimal.Decimal  `json:"requestedAmount" gorm:"type:decimal(14,2);not null"`
	ApprovedAmount     *decimal.Decimal `json:"approvedAmount" gorm:"type:decimal(14,2)"`
	PhotoPath          string           `json:"photoPath"`
	Description        string           `json:"description" gorm:"type:text"`
	Status             string           `json:"status" gorm:"type:varchar(20);default:'Waiting';index;not null"`
	RejectReason       string           `json:"rejectReason,omitempty" gorm:"type:text"`
	ProcessedByAdminID *uint            `json:"processedByAdminId,omitempty"`
	ProcessedByAdmin   *User            `json:"processedByAdmin,omitempty" gorm:"foreignKey:ProcessedByAdminID"`
	ProcessedAt        *time.Time       `json:"processedAt,omitempty"`
	AdminNotes         string           `json:"adminNotes,omitempty" gorm:"type:text"`
}

// IsAmountAdjusted - одобренная сумма отличается от запрошенной.
func (p *Payment) IsAmountAdjusted() bool {
	return p.ApprovedAmount != nil && !p.ApprovedAmount.Equal(p.RequestedAmount)
}

// FinalAmount - сумма, зачисленная на баланс. Ноль, пока платёж не одобрен.
func (p *Payment) FinalAmount() decimal.Decimal {
	if p.Status != PaymentSuccess || p.ApprovedAmount == nil {
		return decimal.Zero
	}
	return *p.ApprovedAmount
}

func ValidPaymentStatus(status string) bool {
	switch status {
	case PaymentWaiting, PaymentSuccess, PaymentRejected:
		return true
	}
	return false
}
