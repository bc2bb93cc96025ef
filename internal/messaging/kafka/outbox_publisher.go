package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/cartsvc/internal/domain"
)

// OutboxTopicPublisher публикует outbox-сообщения в Kafka, оборачивая их в
// конверт события. Если задан stockTopic, события агрегата stock уходят в
// него, остальные — в основной topic.
type OutboxTopicPublisher struct {
	producer   *Producer
	topic      string
	stockTopic string
}

// NewOutboxPublisher создаёт паблишер с фиксированным topic. Используется
// там, где маршрутизация не нужна, например для DLQ.
func NewOutboxPublisher(producer *Producer, topic string) domain.OutboxPublisher {
	if topic == "" {
		topic = TopicCartEvents
	}
	return &OutboxTopicPublisher{
		producer: producer,
		topic:    topic,
	}
}

// NewEventPublisher создаёт паблишер transactional outbox с маршрутизацией
// по типу агрегата: stock-события идут в stockTopic, события корзины и
// каталога — в cartTopic.
func NewEventPublisher(producer *Producer, cartTopic, stockTopic string) domain.OutboxPublisher {
	if cartTopic == "" {
		cartTopic = TopicCartEvents
	}
	if stockTopic == "" {
		stockTopic = TopicStockEvents
	}
	return &OutboxTopicPublisher{
		producer:   producer,
		topic:      cartTopic,
		stockTopic: stockTopic,
	}
}

func (p *OutboxTopicPublisher) topicFor(event domain.OutboxMessage) string {
	if p.stockTopic != "" && event.AggregateType == "stock" {
		return p.stockTopic
	}
	return p.topic
}

func (p *OutboxTopicPublisher) Publish(event domain.OutboxMessage) error {
	if p == nil || p.producer == nil {
		return fmt.Errorf("kafka outbox publisher is not initialized")
	}

	key := event.AggregateID
	if key == "" {
		key = event.ID
	}

	envelope := eventEnvelope{
		ID:            event.ID,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		EventType:     event.EventType,
		Payload:       json.RawMessage(event.Payload),
		PublishedAt:   time.Now().UTC(),
	}

	return p.producer.PublishEvent(p.topicFor(event), key, envelope)
}

var _ domain.OutboxPublisher = (*OutboxTopicPublisher)(nil)
