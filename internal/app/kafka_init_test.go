package app

import (
	"testing"

	log "github.com/sirupsen/logrus"
)

func TestInitKafkaProducer_EmptyBrokers(t *testing.T) {
	logger := log.WithField("test", "kafka")

	if producer := initKafkaProducer("", logger); producer != nil {
		t.Error("expected nil producer for empty brokers")
	}
}

func TestInitKafkaProducer_InvalidBrokers(t *testing.T) {
	logger := log.WithField("test", "kafka")

	// Broker недоступен: сервис продолжает работу без Kafka
	if producer := initKafkaProducer("invalid-broker:9999", logger); producer != nil {
		t.Error("expected nil producer for unreachable broker")
	}
}

func TestInitKafkaProducer_MultipleBrokers(t *testing.T) {
	logger := log.WithField("test", "kafka")

	brokers := "broker1:9092,broker2:9092,broker3:9092"
	if producer := initKafkaProducer(brokers, logger); producer != nil {
		t.Error("expected nil producer for unreachable brokers")
	}
}

func TestInitEventConsumer_Disabled(t *testing.T) {
	logger := log.WithField("test", "kafka")

	cfg := DefaultConfig()
	if consumer := initEventConsumer(cfg, nil, logger); consumer != nil {
		t.Error("expected nil consumer without brokers")
	}

	cfg.KafkaBrokers = "localhost:9092"
	cfg.ConsumerGroup = ""
	if consumer := initEventConsumer(cfg, nil, logger); consumer != nil {
		t.Error("expected nil consumer without consumer group")
	}
}

func TestInitEventConsumer_InvalidBrokers(t *testing.T) {
	logger := log.WithField("test", "kafka")

	cfg := DefaultConfig()
	cfg.KafkaBrokers = "invalid-broker:9999"
	if consumer := initEventConsumer(cfg, nil, logger); consumer != nil {
		t.Error("expected nil consumer for unreachable broker")
	}
}

func TestCloseKafka_NilProducer(t *testing.T) {
	logger := log.WithField("test", "kafka")

	// Не должно паниковать
	closeKafka(nil, logger)
}

func TestInitKafkaProducer_BrokersWithSpaces(t *testing.T) {
	logger := log.WithField("test", "kafka")

	brokers := "broker1:9092, broker2:9092, broker3:9092"
	if producer := initKafkaProducer(brokers, logger); producer != nil {
		t.Error("expected nil producer for unreachable brokers")
	}
}
