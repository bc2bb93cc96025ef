package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrProductNotFound возвращается, если товар не найден в каталоге.
	ErrProductNotFound = errors.New("product not found")
	// ErrCartNotFound возвращается, если корзина ещё не создана.
	ErrCartNotFound = errors.New("cart not found")
	// ErrCartItemNotFound возвращается, если позиция корзины не найдена
	// или не принадлежит текущей корзине.
	ErrCartItemNotFound = errors.New("cart item not found")
	// ErrProductNameRequired — ошибка пустого имени товара.
	ErrProductNameRequired = errors.New("product name is required")
	// ErrProductNameTaken — товар с таким именем уже зарегистрирован.
	ErrProductNameTaken = errors.New("product name is already taken")
	// ErrPriceNegative — ошибка отрицательной цены товара.
	ErrPriceNegative = errors.New("product price must be non-negative")
	// ErrStockNegative — ошибка отрицательного остатка товара.
	ErrStockNegative = errors.New("product stock must be non-negative")
	// ErrQuantityInvalid — ошибка при некорректном количестве (< 1).
	ErrQuantityInvalid = errors.New("quantity must be greater than zero")
	// ErrProductMismatch — попытка переназначить позицию корзины на другой товар.
	ErrProductMismatch = errors.New("cart item product cannot be changed")
	// ErrDuplicateCartItem сигнализирует о нарушении уникальности (cart, product).
	ErrDuplicateCartItem = errors.New("cart already contains an item for this product")
	// ErrInsufficientStock — запрошенное количество превышает доступный остаток.
	ErrInsufficientStock = errors.New("insufficient stock")
)

// InsufficientStockError уточняет ErrInsufficientStock: сколько запрошено
// и сколько реально доступно. Через errors.Is сопоставляется с сентинелом.
type InsufficientStockError struct {
	Requested int32
	Available int32
}

// Shortfall возвращает нехватку остатка (requested - available).
func (e *InsufficientStockError) Shortfall() int32 {
	return e.Requested - e.Available
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock: requested %d, available %d (short by %d)",
		e.Requested, e.Available, e.Shortfall())
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

// IsNotFound проверяет, относится ли ошибка к категории "не найдено".
func IsNotFound(err error) bool {
	return errors.Is(err, ErrProductNotFound) ||
		errors.Is(err, ErrCartNotFound) ||
		errors.Is(err, ErrCartItemNotFound)
}

// IsInvalidArgument проверяет, относится ли ошибка к категории
// "некорректный запрос" (исправимо на стороне клиента).
func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrQuantityInvalid) ||
		errors.Is(err, ErrProductMismatch) ||
		errors.Is(err, ErrProductNameRequired) ||
		errors.Is(err, ErrPriceNegative) ||
		errors.Is(err, ErrStockNegative)
}
