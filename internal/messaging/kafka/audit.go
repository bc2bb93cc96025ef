package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"
)

// NewEventAuditHandler возвращает обработчик, который разбирает события
// сервиса с шины и пишет их в журнал аудита. Тип события выбирается по
// агрегату из конверта. Сообщение, которое не удаётся разобрать, уходит в
// retry-цикл consumer'а и затем в DLQ.
func NewEventAuditHandler(logger *log.Entry) MessageHandler {
	if logger == nil {
		logger = log.WithField("component", "event-audit")
	}
	return func(_ context.Context, message *sarama.ConsumerMessage) error {
		var env eventEnvelope
		if err := json.Unmarshal(message.Value, &env); err != nil {
			return fmt.Errorf("failed to unmarshal event envelope: %w", err)
		}

		entry := logger.WithFields(log.Fields{
			"topic":        message.Topic,
			"event_type":   env.EventType,
			"aggregate_id": env.AggregateID,
		})

		switch env.AggregateType {
		case "cart":
			event, err := ParseCartEvent(message)
			if err != nil {
				return err
			}
			entry.WithFields(log.Fields{
				"item_id":    event.ItemID,
				"product_id": event.ProductID,
				"quantity":   event.Quantity,
			}).Info("cart event")
		case "stock":
			event, err := ParseStockEvent(message)
			if err != nil {
				return err
			}
			entry.WithFields(log.Fields{
				"product_id":  event.ProductID,
				"delta":       event.Delta,
				"stock_after": event.StockAfter,
			}).Info("stock event")
		case "product":
			event, err := ParseProductEvent(message)
			if err != nil {
				return err
			}
			entry.WithField("product_id", event.ProductID).Info("product event")
		default:
			entry.WithField("aggregate_type", env.AggregateType).Warn("event with unknown aggregate type")
		}
		return nil
	}
}
