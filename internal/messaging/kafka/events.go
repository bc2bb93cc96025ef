package kafka

import (
	"encoding/json"
	"time"
)

// EventType определяет тип события
type EventType string

const (
	// События корзины
	EventTypeCartItemAdded   EventType = "cart.item_added"
	EventTypeCartItemUpdated EventType = "cart.item_updated"
	EventTypeCartItemRemoved EventType = "cart.item_removed"

	// События остатков
	EventTypeStockReserved  EventType = "stock.reserved"
	EventTypeStockReleased  EventType = "stock.released"
	EventTypeStockRestocked EventType = "stock.restocked"

	// События каталога
	EventTypeProductCreated EventType = "product.created"
	EventTypeProductUpdated EventType = "product.updated"
	EventTypeProductDeleted EventType = "product.deleted"
)

// Topics для Kafka. События корзины и каталога уходят в TopicCartEvents,
// изменения остатков — в TopicStockEvents.
const (
	TopicCartEvents      = "carts.cart.events"
	TopicStockEvents     = "carts.stock.events"
	TopicDeadLetterQueue = "carts.dlq" // Dead Letter Queue для failed messages
)

// Kafka headers для retry логики
const (
	HeaderRetryCount    = "x-retry-count"
	HeaderOriginalTopic = "x-original-topic"
	HeaderErrorMessage  = "x-error-message"
	HeaderFailedAt      = "x-failed-at"
)

// eventEnvelope — конверт, в котором outbox-паблишер отправляет события на
// шину. Payload содержит типизированное событие (CartEvent, StockEvent или
// ProductEvent) в зависимости от AggregateType.
type eventEnvelope struct {
	ID            string          `json:"id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	PublishedAt   time.Time       `json:"published_at"`
}

// CartEvent представляет событие изменения корзины
type CartEvent struct {
	EventType EventType              `json:"event_type"`
	ItemID    int64                  `json:"item_id"`
	ProductID int64                  `json:"product_id"`
	Quantity  int32                  `json:"quantity"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// StockEvent представляет событие изменения остатка товара
type StockEvent struct {
	EventType  EventType              `json:"event_type"`
	ProductID  int64                  `json:"product_id"`
	Delta      int32                  `json:"delta"`
	StockAfter int32                  `json:"stock_after"`
	Timestamp  time.Time              `json:"timestamp"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// ProductEvent представляет событие каталога товаров
type ProductEvent struct {
	EventType  EventType `json:"event_type"`
	ProductID  int64     `json:"product_id"`
	Name       string    `json:"name"`
	PriceMinor int64     `json:"price_minor"`
	Stock      int32     `json:"stock"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewCartEvent создает новое событие корзины
func NewCartEvent(eventType EventType, itemID, productID int64, quantity int32, metadata map[string]interface{}) *CartEvent {
	return &CartEvent{
		EventType: eventType,
		ItemID:    itemID,
		ProductID: productID,
		Quantity:  quantity,
		Timestamp: time.Now(),
		Metadata:  metadata,
	}
}

// NewStockEvent создает новое событие остатка
func NewStockEvent(eventType EventType, productID int64, delta, stockAfter int32, metadata map[string]interface{}) *StockEvent {
	return &StockEvent{
		EventType:  eventType,
		ProductID:  productID,
		Delta:      delta,
		StockAfter: stockAfter,
		Timestamp:  time.Now(),
		Metadata:   metadata,
	}
}

// NewProductEvent создает новое событие каталога
func NewProductEvent(eventType EventType, productID int64, name string, priceMinor int64, stock int32) *ProductEvent {
	return &ProductEvent{
		EventType:  eventType,
		ProductID:  productID,
		Name:       name,
		PriceMinor: priceMinor,
		Stock:      stock,
		Timestamp:  time.Now(),
	}
}
