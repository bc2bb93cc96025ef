package app

import (
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/cartsvc/internal/messaging/kafka"
)

// initKafkaProducer инициализирует Kafka producer если brokers не пустой.
// Недоступность Kafka не останавливает сервис: события копятся в outbox,
// поэтому при ошибке возвращается nil и запуск продолжается.
func initKafkaProducer(brokers string, logger *log.Entry) *kafka.Producer {
	if brokers == "" {
		return nil
	}

	brokerList := strings.Split(brokers, ",")
	producer, err := kafka.NewProducer(brokerList)
	if err != nil {
		logger.WithError(err).Warn("failed to create kafka producer, continuing without kafka")
		return nil
	}

	logger.WithField("brokers", brokerList).Info("kafka producer initialized")
	return producer
}

// initEventConsumer собирает consumer аудита событий, читающий topics
// корзины и остатков. Возвращает nil, если Kafka не настроена или broker
// недоступен.
func initEventConsumer(cfg Config, dlqProducer *kafka.Producer, logger *log.Entry) *kafka.Consumer {
	if cfg.KafkaBrokers == "" || cfg.ConsumerGroup == "" {
		return nil
	}

	handler := kafka.NewEventAuditHandler(logger.WithField("component", "event-audit"))
	consumer, err := kafka.NewConsumerWithDLQ(
		strings.Split(cfg.KafkaBrokers, ","),
		cfg.ConsumerGroup,
		[]string{cfg.CartEventsTopic, cfg.StockEventsTopic},
		handler,
		dlqProducer,
		3,
	)
	if err != nil {
		logger.WithError(err).Warn("failed to create kafka consumer, continuing without event audit")
		return nil
	}

	logger.WithFields(log.Fields{
		"group":  cfg.ConsumerGroup,
		"topics": []string{cfg.CartEventsTopic, cfg.StockEventsTopic},
	}).Info("kafka event consumer initialized")
	return consumer
}

// closeKafka закрывает Kafka producer если он не nil.
func closeKafka(producer *kafka.Producer, logger *log.Entry) {
	if producer == nil {
		return
	}

	if err := producer.Close(); err != nil {
		logger.WithError(err).Warn("failed to close kafka producer")
	} else {
		logger.Info("kafka producer closed")
	}
}
