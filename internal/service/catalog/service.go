package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/cartsvc/internal/domain"
	"github.com/vladislavdragonenkov/cartsvc/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/cartsvc/internal/metrics"
)

// Service реализует CRUD каталога товаров. Изменение остатка через каталог
// фиксируется в истории движений как restock.
type Service struct {
	store     domain.Store
	movements domain.MovementRepository
	logger    *log.Entry
	metrics   *metrics.CartMetrics
}

// NewService создаёт рабочий экземпляр сервиса каталога.
func NewService(store domain.Store, movements domain.MovementRepository, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "catalog")
	}
	return &Service{
		store:     store,
		movements: movements,
		logger:    logger,
		metrics:   metrics.NewCartMetrics(),
	}
}

// NewServiceWithoutMetrics создаёт сервис без метрик (для тестов).
func NewServiceWithoutMetrics(store domain.Store, movements domain.MovementRepository, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "catalog")
	}
	return &Service{
		store:     store,
		movements: movements,
		logger:    logger,
	}
}

// ListProducts возвращает все товары каталога.
func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	products, err := tx.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return products, nil
}

// GetProduct возвращает товар по идентификатору.
func (s *Service) GetProduct(ctx context.Context, id int64) (domain.Product, error) {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return domain.Product{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	product, err := tx.GetProduct(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Product{}, err
	}
	return product, nil
}

// CreateProduct регистрирует новый товар. Имя должно быть уникальным,
// начальный остаток записывается в историю движений как restock.
func (s *Service) CreateProduct(ctx context.Context, product domain.Product) (domain.Product, error) {
	if errs := product.ValidateInvariants(); len(errs) > 0 {
		s.recordResult("create_product", errs[0])
		return domain.Product{}, errs[0]
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return domain.Product{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	created, err := tx.CreateProduct(ctx, product)
	if err != nil {
		s.recordResult("create_product", err)
		return domain.Product{}, err
	}

	if created.Stock > 0 {
		err = tx.AppendMovement(ctx, domain.StockMovement{
			ProductID:  created.ID,
			Delta:      created.Stock,
			StockAfter: created.Stock,
			Reason:     domain.MovementRestock,
			OccurredAt: time.Now().UTC(),
		})
		if err != nil {
			s.recordResult("create_product", err)
			return domain.Product{}, fmt.Errorf("append stock movement: %w", err)
		}
	}

	if err := s.emitProductEvent(ctx, tx, kafka.EventTypeProductCreated, created); err != nil {
		s.recordResult("create_product", err)
		return domain.Product{}, err
	}

	if err := tx.Commit(); err != nil {
		s.recordResult("create_product", err)
		return domain.Product{}, err
	}

	s.logger.WithFields(log.Fields{
		"product_id": created.ID,
		"name":       created.Name,
	}).Info("product created")
	s.recordResult("create_product", nil)
	return created, nil
}

// UpdateProduct применяет частичное обновление. Изменение остатка проходит
// под блокировкой строки и записывается как restock-движение.
func (s *Service) UpdateProduct(ctx context.Context, id int64, patch domain.ProductPatch) (domain.Product, error) {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return domain.Product{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	product, err := tx.GetProductForUpdate(ctx, id)
	if err != nil {
		s.recordResult("update_product", err)
		return domain.Product{}, err
	}

	if patch.Empty() {
		if err := tx.Commit(); err != nil {
			return domain.Product{}, err
		}
		s.recordResult("update_product", nil)
		return product, nil
	}

	stockDelta := int32(0)
	if patch.Name != nil {
		product.Name = *patch.Name
	}
	if patch.PriceMinor != nil {
		product.PriceMinor = *patch.PriceMinor
	}
	if patch.Description != nil {
		product.Description = *patch.Description
	}
	if patch.Stock != nil {
		stockDelta = *patch.Stock - product.Stock
		product.Stock = *patch.Stock
	}

	if errs := product.ValidateInvariants(); len(errs) > 0 {
		s.recordResult("update_product", errs[0])
		return domain.Product{}, errs[0]
	}

	if err := tx.UpdateProduct(ctx, product); err != nil {
		s.recordResult("update_product", err)
		return domain.Product{}, err
	}

	if stockDelta != 0 {
		err = tx.AppendMovement(ctx, domain.StockMovement{
			ProductID:  product.ID,
			Delta:      stockDelta,
			StockAfter: product.Stock,
			Reason:     domain.MovementRestock,
			OccurredAt: time.Now().UTC(),
		})
		if err != nil {
			s.recordResult("update_product", err)
			return domain.Product{}, fmt.Errorf("append stock movement: %w", err)
		}
		if err := s.emitStockEvent(ctx, tx, product.ID, stockDelta, product.Stock); err != nil {
			s.recordResult("update_product", err)
			return domain.Product{}, err
		}
	}

	if err := s.emitProductEvent(ctx, tx, kafka.EventTypeProductUpdated, product); err != nil {
		s.recordResult("update_product", err)
		return domain.Product{}, err
	}

	if err := tx.Commit(); err != nil {
		s.recordResult("update_product", err)
		return domain.Product{}, err
	}

	product.UpdatedAt = time.Now().UTC()
	s.logger.WithField("product_id", product.ID).Info("product updated")
	s.recordResult("update_product", nil)
	return product, nil
}

// DeleteProduct удаляет товар из каталога. Позиции корзины, ссылающиеся на
// него, остаются: их снимает RemoveItem без возврата остатка.
func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	product, err := tx.GetProduct(ctx, id)
	if err != nil {
		s.recordResult("delete_product", err)
		return err
	}

	if err := tx.DeleteProduct(ctx, id); err != nil {
		s.recordResult("delete_product", err)
		return err
	}

	if err := s.emitProductEvent(ctx, tx, kafka.EventTypeProductDeleted, product); err != nil {
		s.recordResult("delete_product", err)
		return err
	}

	if err := tx.Commit(); err != nil {
		s.recordResult("delete_product", err)
		return err
	}

	s.logger.WithField("product_id", id).Info("product deleted")
	s.recordResult("delete_product", nil)
	return nil
}

// ListMovements возвращает историю движений остатка товара, новые записи первыми.
func (s *Service) ListMovements(ctx context.Context, productID int64, limit int) ([]domain.StockMovement, error) {
	if limit <= 0 {
		limit = 50
	}

	// Сначала убеждаемся, что товар существует: пустая история и
	// несуществующий товар — разные ответы.
	if _, err := s.GetProduct(ctx, productID); err != nil {
		return nil, err
	}

	return s.movements.ListByProduct(productID, limit)
}

func (s *Service) emitProductEvent(ctx context.Context, tx domain.Tx, eventType kafka.EventType, product domain.Product) error {
	event := kafka.NewProductEvent(eventType, product.ID, product.Name, product.PriceMinor, product.Stock)
	return s.enqueueEvent(ctx, tx, "product", strconv.FormatInt(product.ID, 10), string(eventType), event)
}

func (s *Service) emitStockEvent(ctx context.Context, tx domain.Tx, productID int64, delta, stockAfter int32) error {
	event := kafka.NewStockEvent(kafka.EventTypeStockRestocked, productID, delta, stockAfter, nil)
	return s.enqueueEvent(ctx, tx, "stock", strconv.FormatInt(productID, 10), string(kafka.EventTypeStockRestocked), event)
}

func (s *Service) enqueueEvent(ctx context.Context, tx domain.Tx, aggregateType, aggregateID, eventType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	err = tx.EnqueueOutbox(ctx, domain.OutboxMessage{
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       data,
	})
	if err != nil {
		return fmt.Errorf("enqueue event: %w", err)
	}
	if s.metrics != nil {
		s.metrics.RecordOutboxEvent()
	}
	return nil
}

func (s *Service) recordResult(operation string, err error) {
	if s.metrics == nil {
		return
	}
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrProductNameTaken):
		result = "conflict"
	case domain.IsNotFound(err):
		result = "not_found"
	case domain.IsInvalidArgument(err):
		result = "invalid"
	default:
		result = "error"
	}
	s.metrics.RecordOperation(operation, result)
}
