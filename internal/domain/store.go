package domain

import (
	"context"
	"time"
)

// Store открывает транзакции над хранилищем каталога и корзины.
// Вся согласованность держится на изоляции транзакций хранилища: внутри
// одной операции сервис не хранит разделяемого состояния между запросами.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
}

// Tx — одна единица работы. Все чтения и записи внутри неё либо фиксируются
// вместе (Commit), либо полностью откатываются (Rollback). Rollback после
// Commit безопасен и ничего не делает.
type Tx interface {
	Commit() error
	Rollback() error

	// Каталог.
	GetProduct(ctx context.Context, id int64) (Product, error)
	// GetProductForUpdate читает товар с блокировкой строки до конца
	// транзакции: два конкурентных резервирования одного товара
	// сериализуются и не могут пройти валидацию по одному и тому же остатку.
	GetProductForUpdate(ctx context.Context, id int64) (Product, error)
	FindProductByName(ctx context.Context, name string) (Product, error)
	ListProducts(ctx context.Context) ([]Product, error)
	CreateProduct(ctx context.Context, product Product) (Product, error)
	UpdateProduct(ctx context.Context, product Product) error
	DeleteProduct(ctx context.Context, id int64) error
	UpdateProductStock(ctx context.Context, productID int64, newStock int32) error

	// Корзина. GetCartWithItems жадно загружает позиции и их товары,
	// чтобы после фазы чтения транзакция не выполняла неявных запросов.
	GetCartWithItems(ctx context.Context) (Cart, error)
	CreateCart(ctx context.Context) (Cart, error)
	GetCartItem(ctx context.Context, id int64) (CartItem, error)
	UpsertCartItem(ctx context.Context, item CartItem) (CartItem, error)
	DeleteCartItem(ctx context.Context, id int64) error

	// Аудит и события публикуются в той же транзакции, что и мутация.
	AppendMovement(ctx context.Context, movement StockMovement) error
	EnqueueOutbox(ctx context.Context, msg OutboxMessage) error
}

// OutboxMessage хранит данные события для последующей публикации.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}

// OutboxRepository отдаёт накопленные события воркеру публикации.
// Постановка в очередь выполняется через Tx.EnqueueOutbox.
type OutboxRepository interface {
	PullPending(limit int) ([]OutboxMessage, error)
	Stats() (OutboxStats, error)
	MarkSent(id string) error
	MarkFailed(id string) error
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}
