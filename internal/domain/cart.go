package domain

import "time"

// CartItem представляет одну позицию корзины: ровно один товар и его
// зарезервированное количество.
type CartItem struct {
	ID        int64
	CartID    int64
	ProductID int64
	Quantity  int32
	// Product заполняется при eager-загрузке корзины; nil, если товар
	// был удалён из каталога после добавления в корзину.
	Product   *Product
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Cart агрегирует единственную корзину сервиса и её загруженные позиции.
// Инвариант: не более одной позиции на товар, количество каждой позиции >= 1.
type Cart struct {
	ID        int64
	Items     []CartItem
	CreatedAt time.Time
	UpdatedAt time.Time
}

// FindItem возвращает позицию по идентификатору товара. По инварианту
// уникальности совпадение не более одного.
func (c *Cart) FindItem(productID int64) (CartItem, bool) {
	for _, item := range c.Items {
		if item.ProductID == productID {
			return item, true
		}
	}
	return CartItem{}, false
}

// FindItemByID возвращает позицию по её собственному идентификатору.
func (c *Cart) FindItemByID(itemID int64) (CartItem, bool) {
	for _, item := range c.Items {
		if item.ID == itemID {
			return item, true
		}
	}
	return CartItem{}, false
}

// UpsertItem применяет дельту количества к позиции товара в памяти.
// Существующая позиция увеличивается на delta (проверку остатка выполняет
// вызывающий); результат <= 0 удаляет позицию; отсутствующая позиция
// создаётся при delta > 0. Возвращает итоговую позицию и признак её наличия.
func (c *Cart) UpsertItem(productID int64, delta int32) (CartItem, bool) {
	for i, item := range c.Items {
		if item.ProductID != productID {
			continue
		}
		item.Quantity += delta
		if item.Quantity <= 0 {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return CartItem{}, false
		}
		c.Items[i] = item
		return item, true
	}

	if delta <= 0 {
		return CartItem{}, false
	}
	item := CartItem{CartID: c.ID, ProductID: productID, Quantity: delta}
	c.Items = append(c.Items, item)
	return item, true
}

// RemoveItem безусловно удаляет позицию; возврат остатка на склад — зона
// ответственности вызывающего.
func (c *Cart) RemoveItem(itemID int64) bool {
	for i, item := range c.Items {
		if item.ID == itemID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return true
		}
	}
	return false
}

// ReservedFor возвращает суммарно зарезервированное корзиной количество товара.
func (c *Cart) ReservedFor(productID int64) int32 {
	var total int32
	for _, item := range c.Items {
		if item.ProductID == productID {
			total += item.Quantity
		}
	}
	return total
}

// ValidateInvariants проверяет инварианты корзины и возвращает список замечаний.
func (c *Cart) ValidateInvariants() []error {
	var errs []error

	seen := make(map[int64]bool, len(c.Items))
	for _, item := range c.Items {
		if item.Quantity < 1 {
			errs = append(errs, ErrQuantityInvalid)
		}
		if seen[item.ProductID] {
			errs = append(errs, ErrDuplicateCartItem)
		}
		seen[item.ProductID] = true
	}

	return errs
}
