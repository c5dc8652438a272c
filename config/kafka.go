package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"
)

// ConnectKafka создаёт синхронного продюсера. Брокер может подниматься дольше приложения,
// поэтому подключение повторяется несколько раз.
func ConnectKafka(s *Settings) (sarama.SyncProducer, error) {
	if len(s.KafkaBrokers) == 0 {
		slog.Warn("KAFKA_BROKERS не задан, публикация событий отключена")
		return nil, nil
	}

	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 3

	var err error
	for i := 1; i <= 5; i++ {
		var producer sarama.SyncProducer
		producer, err = sarama.NewSyncProducer(s.KafkaBrokers, cfg)
		if err == nil {
			slog.Info("Kafka producer initialized", "brokers", s.KafkaBrokers)
			return producer, nil
		}
		slog.Warn("Waiting for Kafka", "attempt", i, "error", err)
		time.Sleep(3 * time.Second)
	}
	return nil, fmt.Errorf("failed to start Kafka producer: %w", err)
}
