package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/cartsvc/internal/domain"
)

type movementRepository struct {
	db *sql.DB
}

// NewMovementRepository создаёт PostgreSQL-реализацию MovementRepository.
func NewMovementRepository(store *Store) domain.MovementRepository {
	return &movementRepository{db: store.DB()}
}

// ListByProduct возвращает движения остатка товара от новых к старым.
func (r *movementRepository) ListByProduct(productID int64, limit int) ([]domain.StockMovement, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, product_id, delta, stock_after, reason, occurred_at
		FROM stock_movements
		WHERE product_id = $1
		ORDER BY occurred_at DESC, id DESC
		LIMIT $2
	`, productID, limit)
	if err != nil {
		return nil, fmt.Errorf("list stock movements: %w", err)
	}
	defer rows.Close()

	movements := make([]domain.StockMovement, 0, limit)
	for rows.Next() {
		var (
			movement domain.StockMovement
			reason   string
		)
		if err := rows.Scan(
			&movement.ID, &movement.ProductID, &movement.Delta,
			&movement.StockAfter, &reason, &movement.OccurredAt,
		); err != nil {
			return nil, fmt.Errorf("scan stock movement: %w", err)
		}
		movement.Reason = domain.MovementReason(reason)
		movements = append(movements, movement)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stock movements: %w", err)
	}

	return movements, nil
}

var _ domain.MovementRepository = (*movementRepository)(nil)
