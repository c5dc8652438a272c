package services

import (
	"encoding/json"
	"fmt"

	"student-services/models"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Темы событий, которые пишутся в outbox.
const (
	TopicPaymentCreated   = "payment.created"
	TopicPaymentProcessed = "payment.processed"
	TopicBalanceAdjusted  = "balance.adjusted"
)

// PaymentEvent - полезная нагрузка событий по платежам.
type PaymentEvent struct {
	EventID        string  `json:"eventId"`
	Type           string  `json:"type"`
	PaymentID      uint    `json:"paymentId"`
	SenderID       uint    `json:"senderId"`
	Status         string  `json:"status"`
	PreviousStatus string  `json:"previousStatus,omitempty"`
	Requested      string  `json:"requestedAmount"`
	Approved       *string `json:"approvedAmount,omitempty"`
	Credited       int64   `json:"credited"`
	AdminID        uint    `json:"adminId,omitempty"`
}

// enqueueEvent записывает событие в outbox в рамках переданной транзакции.
// topic - логический тип события; Kafka-топик выбирает relay.
func enqueueEvent(tx *gorm.DB, topic, key string, payload interface{}) error {
	id := uuid.NewString()
	if ev, ok := payload.(*PaymentEvent); ok {
		ev.EventID = id
		ev.Type = topic
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", topic, err)
	}
	event := models.OutboxEvent{
		EventID: id,
		Topic:   topic,
		Key:     key,
		Payload: datatypes.JSON(data),
	}
	if err := tx.Create(&event).Error; err != nil {
		return fmt.Errorf("save outbox event: %w", err)
	}
	return nil
}
