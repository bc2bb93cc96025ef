package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/cartsvc/internal/domain"
	"github.com/vladislavdragonenkov/cartsvc/internal/health"
	"github.com/vladislavdragonenkov/cartsvc/internal/storage/memory"
	"github.com/vladislavdragonenkov/cartsvc/internal/storage/postgres"
)

// runtimeStorage объединяет хранилище и производные от него репозитории.
type runtimeStorage struct {
	Store     domain.Store
	Outbox    domain.OutboxRepository
	Movements domain.MovementRepository
	Pinger    health.Pinger
	Close     func() error
}

// initStorage поднимает хранилище согласно конфигурации. Для postgres при
// включённом автомиграторе применяются все миграции.
func initStorage(ctx context.Context, cfg Config, logger *log.Entry) (*runtimeStorage, error) {
	switch cfg.StorageDriver {
	case "", StorageDriverMemory:
		store := memory.NewStore()
		logger.Info("using in-memory storage")
		return &runtimeStorage{
			Store:     store,
			Outbox:    store.OutboxRepository(),
			Movements: store.MovementRepository(),
			Pinger:    store,
			Close:     func() error { return nil },
		}, nil

	case StorageDriverPostgres:
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("storage driver %q requires CART_POSTGRES_DSN", cfg.StorageDriver)
		}

		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}

		if cfg.PostgresAutoMigrate {
			if err := store.MigrateUp(ctx, 0); err != nil {
				_ = store.Close()
				return nil, fmt.Errorf("apply migrations: %w", err)
			}
			logger.Info("postgres migrations applied")
		}

		logger.Info("using postgres storage")
		return &runtimeStorage{
			Store:     store,
			Outbox:    postgres.NewOutboxRepository(store),
			Movements: postgres.NewMovementRepository(store),
			Pinger:    store,
			Close:     store.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}
