package postgres

import (
	"context"
	"sync"
	"testing"

	"github.com/vladislavdragonenkov/cartsvc/internal/domain"
	"github.com/vladislavdragonenkov/cartsvc/internal/service/cart"
)

// Конкурентные добавления одного товара на реальной базе: блокировка
// строки товара сериализует транзакции, и сумма остатка и резерва в
// корзине обязана сохраняться.
func TestConcurrentAddItemConservesStock(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	tx, err := store.Begin(ctx)
	if err != nil {
		t.Fatalf("begin tx: %v", err)
	}
	product, err := tx.CreateProduct(ctx, domain.Product{
		Name:       "concurrent widget",
		PriceMinor: 1999,
		Stock:      10,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	svc := cart.NewServiceWithoutMetrics(store, nil)

	const (
		workers  = 4
		perAdd   = 2
		seeded   = 10
		reserved = workers * perAdd
	)
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.AddItem(ctx, product.ID, perAdd)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent add item: %v", err)
		}
	}

	tx, err = store.Begin(ctx)
	if err != nil {
		t.Fatalf("begin read tx: %v", err)
	}
	defer func() { _ = tx.Rollback() }()

	fresh, err := tx.GetProduct(ctx, product.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	cartState, err := tx.GetCartWithItems(ctx)
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}
	if len(cartState.Items) != 1 {
		t.Fatalf("expected a single merged position, got %d", len(cartState.Items))
	}

	quantity := cartState.Items[0].Quantity
	if fresh.Stock+quantity != seeded {
		t.Fatalf("stock conservation broken: stock=%d reserved=%d, want total %d",
			fresh.Stock, quantity, seeded)
	}
	if quantity != reserved {
		t.Fatalf("expected quantity %d, got %d", reserved, quantity)
	}
	if fresh.Stock != seeded-reserved {
		t.Fatalf("expected stock %d, got %d", seeded-reserved, fresh.Stock)
	}
}
