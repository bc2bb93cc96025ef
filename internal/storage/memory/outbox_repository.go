package memory

import (
	"fmt"

	"github.com/vladislavdragonenkov/cartsvc/internal/domain"
)

// OutboxRepository открывает воркеру публикации доступ к событиям,
// поставленным в очередь транзакциями этого же Store.
func (s *Store) OutboxRepository() domain.OutboxRepository {
	return &outboxRepositoryInMemory{store: s}
}

type outboxRepositoryInMemory struct {
	store *Store
}

func (r *outboxRepositoryInMemory) PullPending(limit int) ([]domain.OutboxMessage, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	result := make([]domain.OutboxMessage, 0, limit)
	for _, record := range r.store.st.outbox {
		if record.status != outboxPending {
			continue
		}
		result = append(result, record.msg)
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result, nil
}

func (r *outboxRepositoryInMemory) Stats() (domain.OutboxStats, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	stats := domain.OutboxStats{}
	for _, record := range r.store.st.outbox {
		if record.status != outboxPending {
			continue
		}
		stats.PendingCount++
		if stats.OldestPendingAt.IsZero() || record.createdAt.Before(stats.OldestPendingAt) {
			stats.OldestPendingAt = record.createdAt
		}
	}
	return stats, nil
}

func (r *outboxRepositoryInMemory) MarkSent(id string) error {
	return r.mark(id, outboxSent)
}

func (r *outboxRepositoryInMemory) MarkFailed(id string) error {
	return r.mark(id, outboxFailed)
}

func (r *outboxRepositoryInMemory) mark(id string, status outboxStatus) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for i, record := range r.store.st.outbox {
		if record.msg.ID == id {
			r.store.st.outbox[i].status = status
			return nil
		}
	}
	return fmt.Errorf("outbox message %s not found", id)
}

var _ domain.OutboxRepository = (*outboxRepositoryInMemory)(nil)
