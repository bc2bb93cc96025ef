package domain

// Леджер остатков: чистые функции над явными входами, без скрытого
// состояния. Все изменения product.Stock в сервисе проходят через них.

// ValidateReserve проверяет первичное резервирование requestedQty единиц
// при текущем остатке currentStock и возвращает новый остаток.
func ValidateReserve(currentStock, requestedQty int32) (int32, error) {
	if currentStock < requestedQty {
		return 0, &InsufficientStockError{Requested: requestedQty, Available: currentStock}
	}
	return currentStock - requestedQty, nil
}

// ValidateAdjust проверяет изменение существующего резерва на delta единиц
// (delta может быть отрицательной — уменьшение резерва всегда проходит).
// existingReserved — сколько позиция уже удерживает; в проверку остатка
// не входит, так как удержанное уже списано с currentStock.
func ValidateAdjust(currentStock, existingReserved, delta int32) (int32, error) {
	if delta > 0 && currentStock < delta {
		return 0, &InsufficientStockError{Requested: delta, Available: currentStock}
	}
	return currentStock - delta, nil
}

// Release возвращает releasedQty единиц на остаток. Всегда успешна,
// используется при удалении позиции из корзины.
func Release(currentStock, releasedQty int32) int32 {
	return currentStock + releasedQty
}
