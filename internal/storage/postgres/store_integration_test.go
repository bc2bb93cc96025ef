package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/cartsvc/internal/domain"
)

func TestTransactionCommitAndRollback(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	tx, err := store.Begin(ctx)
	if err != nil {
		t.Fatalf("begin tx: %v", err)
	}
	product, err := tx.CreateProduct(ctx, domain.Product{
		Name:       "integration widget",
		PriceMinor: 1999,
		Stock:      10,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	tx, err = store.Begin(ctx)
	if err != nil {
		t.Fatalf("begin second tx: %v", err)
	}
	if err := tx.UpdateProductStock(ctx, product.ID, 3); err != nil {
		t.Fatalf("update stock: %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("rollback: %v", err)
	}

	tx, err = store.Begin(ctx)
	if err != nil {
		t.Fatalf("begin read tx: %v", err)
	}
	defer func() { _ = tx.Rollback() }()

	got, err := tx.GetProduct(ctx, product.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if got.Stock != 10 {
		t.Fatalf("rollback must discard stock change, got stock %d", got.Stock)
	}
}

func TestCreateProductDuplicateName(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	tx, err := store.Begin(ctx)
	if err != nil {
		t.Fatalf("begin tx: %v", err)
	}
	if _, err := tx.CreateProduct(ctx, domain.Product{Name: "unique gadget", PriceMinor: 100, Stock: 1}); err != nil {
		t.Fatalf("create product: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	tx, err = store.Begin(ctx)
	if err != nil {
		t.Fatalf("begin tx: %v", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.CreateProduct(ctx, domain.Product{Name: "unique gadget", PriceMinor: 200, Stock: 2})
	if !errors.Is(err, domain.ErrProductNameTaken) {
		t.Fatalf("expected ErrProductNameTaken, got %v", err)
	}
}

func TestCartUpsertMergesRows(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	tx, err := store.Begin(ctx)
	if err != nil {
		t.Fatalf("begin tx: %v", err)
	}
	product, err := tx.CreateProduct(ctx, domain.Product{Name: "merge target", PriceMinor: 500, Stock: 20})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	cart, err := tx.CreateCart(ctx)
	if err != nil {
		t.Fatalf("create cart: %v", err)
	}

	item, err := tx.UpsertCartItem(ctx, domain.CartItem{CartID: cart.ID, ProductID: product.ID, Quantity: 2})
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	merged, err := tx.UpsertCartItem(ctx, domain.CartItem{CartID: cart.ID, ProductID: product.ID, Quantity: 5})
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if merged.ID != item.ID {
		t.Fatalf("upsert must reuse the existing row: got id %d, want %d", merged.ID, item.ID)
	}
	if merged.Quantity != 5 {
		t.Fatalf("expected quantity 5, got %d", merged.Quantity)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	tx, err = store.Begin(ctx)
	if err != nil {
		t.Fatalf("begin read tx: %v", err)
	}
	defer func() { _ = tx.Rollback() }()

	loaded, err := tx.GetCartWithItems(ctx)
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}
	if len(loaded.Items) != 1 {
		t.Fatalf("expected a single cart item, got %d", len(loaded.Items))
	}
	if loaded.Items[0].Product == nil || loaded.Items[0].Product.Name != "merge target" {
		t.Fatalf("cart item must carry product data: %+v", loaded.Items[0])
	}
}

func TestGetCartWithItemsSurvivesDeletedProduct(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	tx, err := store.Begin(ctx)
	if err != nil {
		t.Fatalf("begin tx: %v", err)
	}
	product, err := tx.CreateProduct(ctx, domain.Product{Name: "doomed product", PriceMinor: 300, Stock: 5})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	cart, err := tx.CreateCart(ctx)
	if err != nil {
		t.Fatalf("create cart: %v", err)
	}
	if _, err := tx.UpsertCartItem(ctx, domain.CartItem{CartID: cart.ID, ProductID: product.ID, Quantity: 1}); err != nil {
		t.Fatalf("upsert item: %v", err)
	}
	if err := tx.DeleteProduct(ctx, product.ID); err != nil {
		t.Fatalf("delete product: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	tx, err = store.Begin(ctx)
	if err != nil {
		t.Fatalf("begin read tx: %v", err)
	}
	defer func() { _ = tx.Rollback() }()

	loaded, err := tx.GetCartWithItems(ctx)
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}
	if len(loaded.Items) != 1 {
		t.Fatalf("cart item must survive product deletion, got %d items", len(loaded.Items))
	}
	if loaded.Items[0].Product != nil {
		t.Fatalf("deleted product must not be attached to the item")
	}
}

func TestOutboxRepositoryLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	tx, err := store.Begin(ctx)
	if err != nil {
		t.Fatalf("begin tx: %v", err)
	}
	err = tx.EnqueueOutbox(ctx, domain.OutboxMessage{
		AggregateType: "cart",
		AggregateID:   "1",
		EventType:     "cart.item_added",
		Payload:       []byte(`{"product_id":1,"quantity":2}`),
	})
	if err != nil {
		t.Fatalf("enqueue outbox: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	repo := NewOutboxRepository(store)

	pending, err := repo.PullPending(10)
	if err != nil {
		t.Fatalf("pull pending: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending message, got %d", len(pending))
	}
	if pending[0].ID == "" {
		t.Fatal("enqueue must assign a message id")
	}
	if pending[0].EventType != "cart.item_added" {
		t.Fatalf("unexpected event type: %s", pending[0].EventType)
	}

	if err := repo.MarkSent(pending[0].ID); err != nil {
		t.Fatalf("mark sent: %v", err)
	}

	stats, err := repo.Stats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.PendingCount != 0 {
		t.Fatalf("expected no pending messages after mark sent, got %d", stats.PendingCount)
	}
}

func TestMovementRepositoryOrdering(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	tx, err := store.Begin(ctx)
	if err != nil {
		t.Fatalf("begin tx: %v", err)
	}
	product, err := tx.CreateProduct(ctx, domain.Product{Name: "tracked product", PriceMinor: 100, Stock: 10})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	base := time.Now().UTC()
	for i, delta := range []int32{-2, -1, 3} {
		err := tx.AppendMovement(ctx, domain.StockMovement{
			ProductID:  product.ID,
			Delta:      delta,
			StockAfter: 10 + delta,
			Reason:     domain.MovementReserve,
			OccurredAt: base.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("append movement %d: %v", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	repo := NewMovementRepository(store)

	movements, err := repo.ListByProduct(product.ID, 2)
	if err != nil {
		t.Fatalf("list movements: %v", err)
	}
	if len(movements) != 2 {
		t.Fatalf("expected 2 movements, got %d", len(movements))
	}
	if movements[0].Delta != 3 {
		t.Fatalf("movements must be newest first, got delta %d", movements[0].Delta)
	}
}
