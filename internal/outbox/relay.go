// Package outbox публикует события из таблицы outbox_events в Kafka.
package outbox

import (
	"context"
	"log/slog"
	"time"

	"student-services/models"

	"github.com/IBM/sarama"
	"gorm.io/gorm"
)

const (
	defaultBatchSize   = 100
	defaultMaxAttempts = 20
)

type Relay struct {
	db          *gorm.DB
	producer    sarama.SyncProducer
	topic       string
	interval    time.Duration
	batchSize   int
	maxAttempts int
	now         func() time.Time
}

func NewRelay(db *gorm.DB, producer sarama.SyncProducer, topic string, interval time.Duration) *Relay {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Relay{
		db:          db,
		producer:    producer,
		topic:       topic,
		interval:    interval,
		batchSize:   defaultBatchSize,
		maxAttempts: defaultMaxAttempts,
		now:         time.Now,
	}
}

// Run публикует накопившиеся события каждые interval до отмены ctx.
func (r *Relay) Run(ctx context.Context) {
	slog.Info("Outbox relay started", "topic", r.topic, "interval", r.interval)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		if _, err := r.PublishPending(ctx); err != nil && ctx.Err() == nil {
			slog.Error("Outbox relay iteration failed", "error", err)
		}
		select {
		case <-ctx.Done():
			slog.Info("Outbox relay stopped")
			return
		case <-ticker.C:
		}
	}
}

// PublishPending отправляет одну пачку неопубликованных событий и возвращает число отправленных.
func (r *Relay) PublishPending(ctx context.Context) (int, error) {
	var events []models.OutboxEvent
	err := r.db.WithContext(ctx).
		Where("published_at IS NULL AND attempts < ?", r.maxAttempts).
		Order("id ASC").
		Limit(r.batchSize).
		Find(&events).Error
	if err != nil {
		return 0, err
	}

	published := 0
	for _, ev := range events {
		if ctx.Err() != nil {
			return published, ctx.Err()
		}
		msg := &sarama.ProducerMessage{
			Topic: r.topic,
			Key:   sarama.StringEncoder(ev.Key),
			Value: sarama.ByteEncoder(ev.Payload),
			Headers: []sarama.RecordHeader{
				{Key: []byte("event-type"), Value: []byte(ev.Topic)},
				{Key: []byte("event-id"), Value: []byte(ev.EventID)},
			},
		}
		partition, offset, sendErr := r.producer.SendMessage(msg)
		if sendErr != nil {
			slog.Error("Failed to publish outbox event", "event_id", ev.EventID, "type", ev.Topic, "error", sendErr)
			if err := r.db.WithContext(ctx).Model(&models.OutboxEvent{}).Where("id = ?", ev.ID).Updates(map[string]interface{}{
				"attempts":   gorm.Expr("attempts + 1"),
				"last_error": sendErr.Error(),
			}).Error; err != nil {
				return published, err
			}
			continue
		}

		if err := r.db.WithContext(ctx).Model(&models.OutboxEvent{}).Where("id = ?", ev.ID).Updates(map[string]interface{}{
			"published_at": r.now(),
			"attempts":     gorm.Expr("attempts + 1"),
			"last_error":   "",
		}).Error; err != nil {
			return published, err
		}
		published++
		slog.Debug("Outbox event published", "event_id", ev.EventID, "type", ev.Topic, "partition", partition, "offset", offset)
	}
	return published, nil
}
