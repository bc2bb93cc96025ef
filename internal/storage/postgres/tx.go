package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/cartsvc/internal/domain"
)

// pgTx реализует domain.Tx поверх *sql.Tx.
type pgTx struct {
	tx   *sql.Tx
	done bool
}

func (t *pgTx) Commit() error {
	if t.done {
		return fmt.Errorf("transaction is already finished")
	}
	t.done = true
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (t *pgTx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rollback tx: %w", err)
	}
	return nil
}

const productColumns = `id, name, price_minor, description, stock, created_at, updated_at`

func scanProduct(row *sql.Row) (domain.Product, error) {
	var product domain.Product
	err := row.Scan(
		&product.ID, &product.Name, &product.PriceMinor,
		&product.Description, &product.Stock,
		&product.CreatedAt, &product.UpdatedAt,
	)
	return product, err
}

func (t *pgTx) GetProduct(ctx context.Context, id int64) (domain.Product, error) {
	product, err := scanProduct(t.tx.QueryRowContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, fmt.Errorf("select product: %w", err)
	}
	return product, nil
}

// GetProductForUpdate блокирует строку товара до конца транзакции, чтобы
// конкурентные read-modify-write над остатком сериализовались на уровне БД.
func (t *pgTx) GetProductForUpdate(ctx context.Context, id int64) (domain.Product, error) {
	product, err := scanProduct(t.tx.QueryRowContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE id = $1
		FOR UPDATE
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, fmt.Errorf("select product for update: %w", err)
	}
	return product, nil
}

func (t *pgTx) FindProductByName(ctx context.Context, name string) (domain.Product, error) {
	product, err := scanProduct(t.tx.QueryRowContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE name = $1
	`, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, fmt.Errorf("select product by name: %w", err)
	}
	return product, nil
}

func (t *pgTx) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0)
	for rows.Next() {
		var product domain.Product
		if err := rows.Scan(
			&product.ID, &product.Name, &product.PriceMinor,
			&product.Description, &product.Stock,
			&product.CreatedAt, &product.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}

	return products, nil
}

func (t *pgTx) CreateProduct(ctx context.Context, product domain.Product) (domain.Product, error) {
	now := time.Now().UTC()
	err := t.tx.QueryRowContext(ctx, `
		INSERT INTO products (name, price_minor, description, stock, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$5)
		RETURNING id
	`,
		product.Name, product.PriceMinor, product.Description, product.Stock, now,
	).Scan(&product.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Product{}, domain.ErrProductNameTaken
		}
		return domain.Product{}, fmt.Errorf("insert product: %w", err)
	}
	product.CreatedAt = now
	product.UpdatedAt = now
	return product, nil
}

func (t *pgTx) UpdateProduct(ctx context.Context, product domain.Product) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE products
		SET name = $1,
		    price_minor = $2,
		    description = $3,
		    stock = $4,
		    updated_at = $5
		WHERE id = $6
	`,
		product.Name, product.PriceMinor, product.Description,
		product.Stock, time.Now().UTC(), product.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrProductNameTaken
		}
		return fmt.Errorf("update product: %w", err)
	}
	return requireAffected(res, domain.ErrProductNotFound)
}

func (t *pgTx) DeleteProduct(ctx context.Context, id int64) error {
	// Позиции корзины намеренно не трогаем: их снятие обрабатывает
	// RemoveItem, пропуская возврат остатка удалённого товара.
	res, err := t.tx.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	return requireAffected(res, domain.ErrProductNotFound)
}

func (t *pgTx) UpdateProductStock(ctx context.Context, productID int64, newStock int32) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE products
		SET stock = $1,
		    updated_at = $2
		WHERE id = $3
	`, newStock, time.Now().UTC(), productID)
	if err != nil {
		return fmt.Errorf("update product stock: %w", err)
	}
	return requireAffected(res, domain.ErrProductNotFound)
}

// GetCartWithItems загружает каноническую корзину (наименьший id) вместе с
// позициями и их товарами одним проходом, без ленивых дозапросов.
func (t *pgTx) GetCartWithItems(ctx context.Context) (domain.Cart, error) {
	var cart domain.Cart
	err := t.tx.QueryRowContext(ctx, `
		SELECT id, created_at, updated_at
		FROM carts
		ORDER BY id ASC
		LIMIT 1
	`).Scan(&cart.ID, &cart.CreatedAt, &cart.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Cart{}, domain.ErrCartNotFound
		}
		return domain.Cart{}, fmt.Errorf("select cart: %w", err)
	}

	rows, err := t.tx.QueryContext(ctx, `
		SELECT ci.id, ci.cart_id, ci.product_id, ci.quantity, ci.created_at, ci.updated_at,
		       p.id, p.name, p.price_minor, p.description, p.stock, p.created_at, p.updated_at
		FROM cart_items ci
		LEFT JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = $1
		ORDER BY ci.id ASC
	`, cart.ID)
	if err != nil {
		return domain.Cart{}, fmt.Errorf("load cart items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.CartItem, 0)
	for rows.Next() {
		var (
			item      domain.CartItem
			productID sql.NullInt64
			name      sql.NullString
			price     sql.NullInt64
			descr     sql.NullString
			stock     sql.NullInt32
			createdAt sql.NullTime
			updatedAt sql.NullTime
		)
		if err := rows.Scan(
			&item.ID, &item.CartID, &item.ProductID, &item.Quantity,
			&item.CreatedAt, &item.UpdatedAt,
			&productID, &name, &price, &descr, &stock, &createdAt, &updatedAt,
		); err != nil {
			return domain.Cart{}, fmt.Errorf("scan cart item row: %w", err)
		}
		// Товар мог быть удалён из каталога после добавления в корзину.
		if productID.Valid {
			item.Product = &domain.Product{
				ID:          productID.Int64,
				Name:        name.String,
				PriceMinor:  price.Int64,
				Description: descr.String,
				Stock:       stock.Int32,
				CreatedAt:   createdAt.Time,
				UpdatedAt:   updatedAt.Time,
			}
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return domain.Cart{}, fmt.Errorf("iterate cart items: %w", err)
	}
	cart.Items = items

	return cart, nil
}

func (t *pgTx) CreateCart(ctx context.Context) (domain.Cart, error) {
	now := time.Now().UTC()
	var cart domain.Cart
	err := t.tx.QueryRowContext(ctx, `
		INSERT INTO carts (created_at, updated_at)
		VALUES ($1,$1)
		RETURNING id
	`, now).Scan(&cart.ID)
	if err != nil {
		return domain.Cart{}, fmt.Errorf("insert cart: %w", err)
	}
	cart.CreatedAt = now
	cart.UpdatedAt = now
	cart.Items = []domain.CartItem{}
	return cart, nil
}

func (t *pgTx) GetCartItem(ctx context.Context, id int64) (domain.CartItem, error) {
	var item domain.CartItem
	err := t.tx.QueryRowContext(ctx, `
		SELECT id, cart_id, product_id, quantity, created_at, updated_at
		FROM cart_items
		WHERE id = $1
	`, id).Scan(
		&item.ID, &item.CartID, &item.ProductID, &item.Quantity,
		&item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.CartItem{}, domain.ErrCartItemNotFound
		}
		return domain.CartItem{}, fmt.Errorf("select cart item: %w", err)
	}
	return item, nil
}

// UpsertCartItem вставляет позицию или перезаписывает количество
// существующей. Уникальный ключ (cart_id, product_id) гарантирует не более
// одной строки на товар даже при конкурентных вставках.
func (t *pgTx) UpsertCartItem(ctx context.Context, item domain.CartItem) (domain.CartItem, error) {
	now := time.Now().UTC()

	if item.ID != 0 {
		res, err := t.tx.ExecContext(ctx, `
			UPDATE cart_items
			SET quantity = $1,
			    updated_at = $2
			WHERE id = $3
		`, item.Quantity, now, item.ID)
		if err != nil {
			return domain.CartItem{}, fmt.Errorf("update cart item: %w", err)
		}
		if err := requireAffected(res, domain.ErrCartItemNotFound); err != nil {
			return domain.CartItem{}, err
		}
		item.UpdatedAt = now
		return item, nil
	}

	err := t.tx.QueryRowContext(ctx, `
		INSERT INTO cart_items (cart_id, product_id, quantity, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$4)
		ON CONFLICT (cart_id, product_id)
		DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = EXCLUDED.updated_at
		RETURNING id, created_at
	`, item.CartID, item.ProductID, item.Quantity, now).Scan(&item.ID, &item.CreatedAt)
	if err != nil {
		return domain.CartItem{}, fmt.Errorf("upsert cart item: %w", err)
	}
	item.UpdatedAt = now
	return item, nil
}

func (t *pgTx) DeleteCartItem(ctx context.Context, id int64) error {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM cart_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}
	return requireAffected(res, domain.ErrCartItemNotFound)
}

func (t *pgTx) AppendMovement(ctx context.Context, movement domain.StockMovement) error {
	occurred := movement.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now().UTC()
	}
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO stock_movements (product_id, delta, stock_after, reason, occurred_at)
		VALUES ($1,$2,$3,$4,$5)
	`, movement.ProductID, movement.Delta, movement.StockAfter, string(movement.Reason), occurred)
	if err != nil {
		return fmt.Errorf("insert stock movement: %w", err)
	}
	return nil
}

func (t *pgTx) EnqueueOutbox(ctx context.Context, msg domain.OutboxMessage) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO outbox_messages (id, aggregate_type, aggregate_id, event_type, payload, status, created_at)
		VALUES ($1,$2,$3,$4,$5,'pending',$6)
	`, msg.ID, msg.AggregateType, msg.AggregateID, msg.EventType, msg.Payload, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("enqueue outbox message: %w", err)
	}
	return nil
}

func requireAffected(res sql.Result, missing error) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return missing
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

var _ domain.Tx = (*pgTx)(nil)
