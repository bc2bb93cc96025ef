package domain

import "time"

// MovementReason классифицирует причину изменения остатка.
type MovementReason string

const (
	// MovementReserve — первичное резервирование при добавлении в корзину.
	MovementReserve MovementReason = "reserve"
	// MovementAdjust — изменение существующего резерва позиции.
	MovementAdjust MovementReason = "adjust"
	// MovementRelease — возврат резерва при удалении позиции.
	MovementRelease MovementReason = "release"
	// MovementRestock — административное изменение остатка через каталог.
	MovementRestock MovementReason = "restock"
)

// StockMovement фиксирует одно изменение остатка товара. Delta отрицательна
// при списании со склада и положительна при возврате.
type StockMovement struct {
	ID         int64
	ProductID  int64
	Delta      int32
	StockAfter int32
	Reason     MovementReason
	OccurredAt time.Time
}

// MovementRepository читает историю движений остатков.
// Записи добавляются только внутри транзакции мутации (Tx.AppendMovement).
type MovementRepository interface {
	ListByProduct(productID int64, limit int) ([]StockMovement, error)
}
