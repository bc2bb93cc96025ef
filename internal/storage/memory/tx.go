package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/cartsvc/internal/domain"
)

// memTx — транзакция in-memory хранилища. Держит общий мьютекс Store от
// Begin до Commit/Rollback и мутирует только собственную копию состояния.
type memTx struct {
	store    *Store
	work     *state
	finished bool
}

func (t *memTx) Commit() error {
	if t.finished {
		return fmt.Errorf("transaction is already finished")
	}
	t.finished = true
	t.store.st = t.work
	t.store.mu.Unlock()
	return nil
}

func (t *memTx) Rollback() error {
	if t.finished {
		return nil
	}
	t.finished = true
	t.store.mu.Unlock()
	return nil
}

func (t *memTx) GetProduct(_ context.Context, id int64) (domain.Product, error) {
	product, ok := t.work.products[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return product, nil
}

// GetProductForUpdate эквивалентен GetProduct: мьютекс Store уже
// сериализует транзакции целиком.
func (t *memTx) GetProductForUpdate(ctx context.Context, id int64) (domain.Product, error) {
	return t.GetProduct(ctx, id)
}

func (t *memTx) FindProductByName(_ context.Context, name string) (domain.Product, error) {
	for _, product := range t.work.products {
		if product.Name == name {
			return product, nil
		}
	}
	return domain.Product{}, domain.ErrProductNotFound
}

func (t *memTx) ListProducts(_ context.Context) ([]domain.Product, error) {
	result := make([]domain.Product, 0, len(t.work.products))
	for _, product := range t.work.products {
		result = append(result, product)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (t *memTx) CreateProduct(_ context.Context, product domain.Product) (domain.Product, error) {
	for _, existing := range t.work.products {
		if existing.Name == product.Name {
			return domain.Product{}, domain.ErrProductNameTaken
		}
	}

	t.work.productSeq++
	product.ID = t.work.productSeq
	now := t.store.now()
	product.CreatedAt = now
	product.UpdatedAt = now
	t.work.products[product.ID] = product
	return product, nil
}

func (t *memTx) UpdateProduct(_ context.Context, product domain.Product) error {
	current, ok := t.work.products[product.ID]
	if !ok {
		return domain.ErrProductNotFound
	}
	for id, existing := range t.work.products {
		if id != product.ID && existing.Name == product.Name {
			return domain.ErrProductNameTaken
		}
	}
	product.CreatedAt = current.CreatedAt
	product.UpdatedAt = t.store.now()
	t.work.products[product.ID] = product
	return nil
}

func (t *memTx) DeleteProduct(_ context.Context, id int64) error {
	if _, ok := t.work.products[id]; !ok {
		return domain.ErrProductNotFound
	}
	// Позиции корзины, ссылающиеся на товар, намеренно остаются:
	// их удаление обрабатывает RemoveItem без возврата остатка.
	delete(t.work.products, id)
	return nil
}

func (t *memTx) UpdateProductStock(_ context.Context, productID int64, newStock int32) error {
	product, ok := t.work.products[productID]
	if !ok {
		return domain.ErrProductNotFound
	}
	product.Stock = newStock
	product.UpdatedAt = t.store.now()
	t.work.products[productID] = product
	return nil
}

// GetCartWithItems возвращает канонический (с наименьшим id) экземпляр
// корзины вместе с позициями и их товарами.
func (t *memTx) GetCartWithItems(_ context.Context) (domain.Cart, error) {
	var cart domain.Cart
	found := false
	for _, c := range t.work.carts {
		if !found || c.ID < cart.ID {
			cart = c
			found = true
		}
	}
	if !found {
		return domain.Cart{}, domain.ErrCartNotFound
	}

	items := make([]domain.CartItem, 0)
	for _, item := range t.work.items {
		if item.CartID != cart.ID {
			continue
		}
		if product, ok := t.work.products[item.ProductID]; ok {
			p := product
			item.Product = &p
		}
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	cart.Items = items
	return cart, nil
}

func (t *memTx) CreateCart(_ context.Context) (domain.Cart, error) {
	t.work.cartSeq++
	now := t.store.now()
	cart := domain.Cart{ID: t.work.cartSeq, CreatedAt: now, UpdatedAt: now}
	t.work.carts[cart.ID] = cart
	cart.Items = []domain.CartItem{}
	return cart, nil
}

func (t *memTx) GetCartItem(_ context.Context, id int64) (domain.CartItem, error) {
	item, ok := t.work.items[id]
	if !ok {
		return domain.CartItem{}, domain.ErrCartItemNotFound
	}
	return item, nil
}

// UpsertCartItem вставляет новую позицию (ID == 0) или перезаписывает
// количество существующей. Вставка при совпадении (cart, product) ведёт
// себя как upsert по уникальному ключу: количество существующей строки
// заменяется, дубликат не появляется.
func (t *memTx) UpsertCartItem(_ context.Context, item domain.CartItem) (domain.CartItem, error) {
	now := t.store.now()
	item.Product = nil

	if item.ID != 0 {
		current, ok := t.work.items[item.ID]
		if !ok {
			return domain.CartItem{}, domain.ErrCartItemNotFound
		}
		item.CreatedAt = current.CreatedAt
		item.UpdatedAt = now
		t.work.items[item.ID] = item
		return item, nil
	}

	for id, existing := range t.work.items {
		if existing.CartID == item.CartID && existing.ProductID == item.ProductID {
			existing.Quantity = item.Quantity
			existing.UpdatedAt = now
			t.work.items[id] = existing
			return existing, nil
		}
	}

	t.work.itemSeq++
	item.ID = t.work.itemSeq
	item.CreatedAt = now
	item.UpdatedAt = now
	t.work.items[item.ID] = item
	return item, nil
}

func (t *memTx) DeleteCartItem(_ context.Context, id int64) error {
	if _, ok := t.work.items[id]; !ok {
		return domain.ErrCartItemNotFound
	}
	delete(t.work.items, id)
	return nil
}

func (t *memTx) AppendMovement(_ context.Context, movement domain.StockMovement) error {
	t.work.movementSeq++
	movement.ID = t.work.movementSeq
	if movement.OccurredAt.IsZero() {
		movement.OccurredAt = t.store.now()
	}
	t.work.movements = append(t.work.movements, movement)
	return nil
}

func (t *memTx) EnqueueOutbox(_ context.Context, msg domain.OutboxMessage) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	t.work.outbox = append(t.work.outbox, outboxRecord{
		msg:       msg,
		status:    outboxPending,
		createdAt: t.store.now(),
	})
	return nil
}

var _ domain.Tx = (*memTx)(nil)
