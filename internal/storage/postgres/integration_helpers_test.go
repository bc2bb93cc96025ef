package postgres

import (
	"context"
	"os"
	"testing"
	"time"
)

// newTestStore открывает хранилище для интеграционных тестов.
// Тесты пропускаются, если Postgres недоступен.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	dsn := ""
	for _, env := range []string{"CART_POSTGRES_TEST_DSN", "CART_POSTGRES_DSN"} {
		if v := os.Getenv(env); v != "" {
			dsn = v
			break
		}
	}
	if dsn == "" {
		t.Skip("skipping postgres integration test: CART_POSTGRES_TEST_DSN is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := Open(ctx, dsn)
	if err != nil {
		t.Skipf("skipping postgres integration test: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	truncateTables(t, store)

	return store
}

func truncateTables(t *testing.T, store *Store) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := store.DB().ExecContext(ctx, `
		TRUNCATE TABLE cart_items, carts, products, outbox_messages, stock_movements
		RESTART IDENTITY CASCADE
	`)
	if err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
}
