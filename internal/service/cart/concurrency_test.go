package cart_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/cartsvc/internal/domain"
	"github.com/vladislavdragonenkov/cartsvc/internal/service/cart"
)

// rowLockedStore эмулирует транзакционную семантику Postgres на уровне
// READ COMMITTED: каждое чтение видит последнее зафиксированное состояние
// плюс собственные записи транзакции, записи публикуются только на Commit,
// а GetProductForUpdate держит блокировку строки товара до конца
// транзакции. Хранилище в памяти сериализует транзакции целиком и потому
// не воспроизводит гонки, возможные на реальной базе.
type rowLockedStore struct {
	mu       sync.Mutex
	products map[int64]domain.Product
	cart     *domain.Cart
	items    map[int64]domain.CartItem
	nextItem int64
	locks    map[int64]*sync.Mutex
}

func newRowLockedStore() *rowLockedStore {
	return &rowLockedStore{
		products: make(map[int64]domain.Product),
		items:    make(map[int64]domain.CartItem),
		locks:    make(map[int64]*sync.Mutex),
	}
}

func (s *rowLockedStore) seedProduct(id int64, stock int32) {
	s.products[id] = domain.Product{
		ID:         id,
		Name:       fmt.Sprintf("product-%d", id),
		PriceMinor: 1000,
		Stock:      stock,
	}
}

func (s *rowLockedStore) committedStock(id int64) int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[id].Stock
}

func (s *rowLockedStore) committedQuantity(productID int64) int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total int32
	for _, item := range s.items {
		if item.ProductID == productID {
			total += item.Quantity
		}
	}
	return total
}

func (s *rowLockedStore) committedItems() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *rowLockedStore) Begin(context.Context) (domain.Tx, error) {
	return &rowLockedTx{
		store:   s,
		stock:   make(map[int64]int32),
		upserts: make(map[int64]domain.CartItem),
		deletes: make(map[int64]bool),
	}, nil
}

type rowLockedTx struct {
	store   *rowLockedStore
	held    []*sync.Mutex
	done    bool
	stock   map[int64]int32
	upserts map[int64]domain.CartItem
	deletes map[int64]bool
}

func (t *rowLockedTx) Commit() error {
	t.store.mu.Lock()
	for id, stock := range t.stock {
		product := t.store.products[id]
		product.Stock = stock
		t.store.products[id] = product
	}
	for id, item := range t.upserts {
		t.store.items[id] = item
	}
	for id := range t.deletes {
		delete(t.store.items, id)
	}
	t.store.mu.Unlock()
	t.release()
	return nil
}

func (t *rowLockedTx) Rollback() error {
	t.release()
	return nil
}

func (t *rowLockedTx) release() {
	if t.done {
		return
	}
	t.done = true
	for _, lock := range t.held {
		lock.Unlock()
	}
	t.held = nil
}

func (t *rowLockedTx) GetProduct(_ context.Context, id int64) (domain.Product, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	product, ok := t.store.products[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	if stock, ok := t.stock[id]; ok {
		product.Stock = stock
	}
	return product, nil
}

func (t *rowLockedTx) GetProductForUpdate(ctx context.Context, id int64) (domain.Product, error) {
	t.store.mu.Lock()
	lock, ok := t.store.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		t.store.locks[id] = lock
	}
	t.store.mu.Unlock()

	// Блокировка строки: конкурентная транзакция отпускает её в Commit
	// или Rollback, поэтому чтение ниже видит её результат.
	lock.Lock()
	t.held = append(t.held, lock)
	return t.GetProduct(ctx, id)
}

func (t *rowLockedTx) FindProductByName(_ context.Context, name string) (domain.Product, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for _, product := range t.store.products {
		if product.Name == name {
			return product, nil
		}
	}
	return domain.Product{}, domain.ErrProductNotFound
}

func (t *rowLockedTx) ListProducts(_ context.Context) ([]domain.Product, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	result := make([]domain.Product, 0, len(t.store.products))
	for _, product := range t.store.products {
		result = append(result, product)
	}
	return result, nil
}

func (t *rowLockedTx) CreateProduct(_ context.Context, product domain.Product) (domain.Product, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	product.ID = int64(len(t.store.products) + 1)
	t.store.products[product.ID] = product
	return product, nil
}

func (t *rowLockedTx) UpdateProduct(_ context.Context, product domain.Product) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	t.store.products[product.ID] = product
	return nil
}

func (t *rowLockedTx) DeleteProduct(_ context.Context, id int64) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	delete(t.store.products, id)
	return nil
}

func (t *rowLockedTx) UpdateProductStock(_ context.Context, productID int64, newStock int32) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	if _, ok := t.store.products[productID]; !ok {
		return domain.ErrProductNotFound
	}
	t.stock[productID] = newStock
	return nil
}

func (t *rowLockedTx) GetCartWithItems(_ context.Context) (domain.Cart, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	if t.store.cart == nil {
		return domain.Cart{}, domain.ErrCartNotFound
	}
	cart := domain.Cart{ID: t.store.cart.ID}
	seen := make(map[int64]bool)
	for id, item := range t.store.items {
		if t.deletes[id] {
			continue
		}
		if buffered, ok := t.upserts[id]; ok {
			item = buffered
		}
		seen[id] = true
		cart.Items = append(cart.Items, item)
	}
	for id, item := range t.upserts {
		if !seen[id] && !t.deletes[id] {
			cart.Items = append(cart.Items, item)
		}
	}
	return cart, nil
}

func (t *rowLockedTx) CreateCart(_ context.Context) (domain.Cart, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	if t.store.cart == nil {
		t.store.cart = &domain.Cart{ID: 1}
	}
	return domain.Cart{ID: t.store.cart.ID}, nil
}

func (t *rowLockedTx) GetCartItem(_ context.Context, id int64) (domain.CartItem, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	if item, ok := t.upserts[id]; ok {
		return item, nil
	}
	item, ok := t.store.items[id]
	if !ok || t.deletes[id] {
		return domain.CartItem{}, domain.ErrCartItemNotFound
	}
	return item, nil
}

func (t *rowLockedTx) UpsertCartItem(_ context.Context, item domain.CartItem) (domain.CartItem, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	if item.ID == 0 {
		// Конфликт по (cart_id, product_id) разрешается против
		// зафиксированных строк в момент вставки, как ON CONFLICT.
		for _, existing := range t.store.items {
			if existing.CartID == item.CartID && existing.ProductID == item.ProductID {
				item.ID = existing.ID
				break
			}
		}
		if item.ID == 0 {
			t.store.nextItem++
			item.ID = t.store.nextItem
		}
	}
	t.upserts[item.ID] = item
	return item, nil
}

func (t *rowLockedTx) DeleteCartItem(_ context.Context, id int64) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	_, buffered := t.upserts[id]
	_, committed := t.store.items[id]
	if !buffered && !committed {
		return domain.ErrCartItemNotFound
	}
	delete(t.upserts, id)
	t.deletes[id] = true
	return nil
}

func (t *rowLockedTx) AppendMovement(context.Context, domain.StockMovement) error { return nil }
func (t *rowLockedTx) EnqueueOutbox(context.Context, domain.OutboxMessage) error  { return nil }

var _ domain.Store = (*rowLockedStore)(nil)

// Два конкурентных добавления одного товара не должны терять резерв: снимок
// корзины, прочитанный до блокировки строки товара, затирал слияние
// конкурента, и единицы товара исчезали из суммы остатка и корзины.
func TestConcurrentAddItemKeepsConservation(t *testing.T) {
	store := newRowLockedStore()
	store.seedProduct(7, 10)
	svc := cart.NewServiceWithoutMetrics(store, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.AddItem(ctx, 7, 2)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	stock := store.committedStock(7)
	reserved := store.committedQuantity(7)
	require.Equal(t, int32(10), stock+reserved,
		"stock conservation broken: stock=%d reserved=%d", stock, reserved)
	assert.Equal(t, int32(6), stock)
	assert.Equal(t, int32(4), reserved)
	assert.Equal(t, 1, store.committedItems(), "merge must not create a second position")
}

// Конкурентные добавление и изменение количества одной позиции: изменение
// обязано пересчитать дельту от количества, видимого под блокировкой, а не
// от снимка корзины.
func TestConcurrentAddAndUpdateItemKeepsConservation(t *testing.T) {
	store := newRowLockedStore()
	store.seedProduct(7, 10)
	svc := cart.NewServiceWithoutMetrics(store, nil)
	ctx := context.Background()

	seeded, err := svc.AddItem(ctx, 7, 2)
	require.NoError(t, err)
	require.Len(t, seeded.Items, 1)
	itemID := seeded.Items[0].ID

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := svc.AddItem(ctx, 7, 3)
		errs <- err
	}()
	go func() {
		defer wg.Done()
		_, err := svc.UpdateItem(ctx, itemID, 0, 4)
		errs <- err
	}()
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	stock := store.committedStock(7)
	reserved := store.committedQuantity(7)
	require.Equal(t, int32(10), stock+reserved,
		"stock conservation broken: stock=%d reserved=%d", stock, reserved)
}
