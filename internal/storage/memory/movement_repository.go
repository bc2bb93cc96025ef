package memory

import (
	"github.com/vladislavdragonenkov/cartsvc/internal/domain"
)

// MovementRepository читает историю движений остатков этого Store.
func (s *Store) MovementRepository() domain.MovementRepository {
	return &movementRepositoryInMemory{store: s}
}

type movementRepositoryInMemory struct {
	store *Store
}

// ListByProduct возвращает движения товара от новых к старым.
func (r *movementRepositoryInMemory) ListByProduct(productID int64, limit int) ([]domain.StockMovement, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	result := make([]domain.StockMovement, 0)
	movements := r.store.st.movements
	for i := len(movements) - 1; i >= 0; i-- {
		if movements[i].ProductID != productID {
			continue
		}
		result = append(result, movements[i])
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result, nil
}

var _ domain.MovementRepository = (*movementRepositoryInMemory)(nil)
