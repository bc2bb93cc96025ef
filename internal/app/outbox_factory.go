package app

import (
	"github.com/vladislavdragonenkov/cartsvc/internal/domain"
	"github.com/vladislavdragonenkov/cartsvc/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/cartsvc/internal/service/outbox"
)

// createOutboxWorker собирает воркер публикации событий. Без Kafka producer
// воркер не нужен: события остаются в outbox до следующего запуска с Kafka.
func createOutboxWorker(cfg Config, deps *Dependencies, producer *kafka.Producer) *outbox.Worker {
	if producer == nil {
		return nil
	}

	var publisher domain.OutboxPublisher = kafka.NewEventPublisher(producer, cfg.CartEventsTopic, cfg.StockEventsTopic)
	dlqPublisher := kafka.NewOutboxPublisher(producer, kafka.TopicDeadLetterQueue)

	return outbox.NewWorker(
		deps.Storage.Outbox,
		publisher,
		outbox.WithLogger(deps.Logger.WithField("component", "outbox-worker")),
		outbox.WithDLQPublisher(dlqPublisher),
		outbox.WithPollInterval(cfg.OutboxPollInterval),
		outbox.WithBatchSize(cfg.OutboxBatchSize),
		outbox.WithMaxAttempts(cfg.OutboxMaxAttempts),
		outbox.WithRetryBaseDelay(cfg.OutboxRetryDelay),
	)
}
