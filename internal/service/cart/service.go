package cart

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

// Service реализует операции над корзиной. Каждая операция выполняется в
// одной транзакции хранилища: изменение позиции, изменение остатка товара,
// запись движения и постановка события в outbox фиксируются атомарно.
type Service struct {
	store   domain.Store
	logger  *log.Entry
	metrics *metrics.CartMetrics
}

// NewService создаёт рабочий экземпляр сервиса корзины.
func NewService(store domain.Store, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "cart")
	}
	return &Service{
		store:   store,
		logger:  logger,
		metrics: metrics.NewCartMetrics(),
	}
}

// NewServiceWithoutMetrics создаёт сервис без метрик (для тестов).
func NewServiceWithoutMetrics(store domain.Store, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "cart")
	}
	return &Service{
		store:  store,
		logger: logger,
	}
}

// GetCart возвращает корзину с загруженными позициями. Если корзина ещё не
// создана, она создаётся на месте: сервис работает с единственной корзиной.
func (s *Service) GetCart(ctx context.Context) (domain.Cart, error) {
	start := time.Now()
	defer s.observe("get_cart", start)

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return domain.Cart{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	cart, err := getOrCreateCart(ctx, tx)
	if err != nil {
		s.recordResult("get_cart", err)
		return domain.Cart{}, err
	}

	if err := tx.Commit(); err != nil {
		s.recordResult("get_cart", err)
		return domain.Cart{}, err
	}

	s.recordResult("get_cart", nil)
	s.setCartItems(len(cart.Items))
	return cart, nil
}

// AddItem добавляет quantity единиц товара в корзину, резервируя их со
// склада. Повторное добавление того же товара увеличивает количество
// существующей позиции, второй строки не возникает. При нехватке остатка
// транзакция откатывается целиком: ни корзина, ни склад не меняются.
func (s *Service) AddItem(ctx context.Context, productID int64, quantity int32) (domain.Cart, error) {
	start := time.Now()
	defer s.observe("add_item", start)

	if quantity < 1 {
		s.recordResult("add_item", domain.ErrQuantityInvalid)
		return domain.Cart{}, domain.ErrQuantityInvalid
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return domain.Cart{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Блокировка строки товара берётся до чтения корзины: конкурентное
	// добавление того же товара коммитится раньше захвата блокировки, и
	// следующее чтение видит его позицию. Снимок корзины, прочитанный до
	// блокировки, мог бы устареть и затереть чужое слияние.
	product, err := tx.GetProductForUpdate(ctx, productID)
	if err != nil {
		s.recordResult("add_item", err)
		return domain.Cart{}, err
	}

	cart, err := getOrCreateCart(ctx, tx)
	if err != nil {
		s.recordResult("add_item", err)
		return domain.Cart{}, err
	}

	existing, found := cart.FindItem(productID)

	var (
		newStock  int32
		eventType kafka.EventType
		item      domain.CartItem
	)
	if found {
		newStock, err = domain.ValidateAdjust(product.Stock, existing.Quantity, quantity)
		if err != nil {
			s.rejectReserve("add_item", productID, quantity, product.Stock)
			return domain.Cart{}, err
		}
		item = existing
		item.Quantity += quantity
		eventType = kafka.EventTypeCartItemUpdated
	} else {
		newStock, err = domain.ValidateReserve(product.Stock, quantity)
		if err != nil {
			s.rejectReserve("add_item", productID, quantity, product.Stock)
			return domain.Cart{}, err
		}
		item = domain.CartItem{CartID: cart.ID, ProductID: productID, Quantity: quantity}
		eventType = kafka.EventTypeCartItemAdded
	}

	item, err = tx.UpsertCartItem(ctx, item)
	if err != nil {
		s.recordResult("add_item", err)
		return domain.Cart{}, err
	}
	if err := tx.UpdateProductStock(ctx, productID, newStock); err != nil {
		s.recordResult("add_item", err)
		return domain.Cart{}, err
	}

	reason := domain.MovementReserve
	if found {
		reason = domain.MovementAdjust
	}
	if err := s.recordMovement(ctx, tx, productID, -quantity, newStock, reason); err != nil {
		s.recordResult("add_item", err)
		return domain.Cart{}, err
	}

	if err := s.emitCartEvent(ctx, tx, eventType, item); err != nil {
		s.recordResult("add_item", err)
		return domain.Cart{}, err
	}
	if err := s.emitStockEvent(ctx, tx, kafka.EventTypeStockReserved, productID, -quantity, newStock); err != nil {
		s.recordResult("add_item", err)
		return domain.Cart{}, err
	}

	cart, err = tx.GetCartWithItems(ctx)
	if err != nil {
		s.recordResult("add_item", err)
		return domain.Cart{}, err
	}

	if err := tx.Commit(); err != nil {
		s.recordResult("add_item", err)
		return domain.Cart{}, err
	}

	s.logger.WithFields(log.Fields{
		"product_id": productID,
		"quantity":   quantity,
		"item_id":    item.ID,
	}).Info("cart item added")
	s.recordResult("add_item", nil)
	s.setCartItems(len(cart.Items))
	return cart, nil
}

// UpdateItem выставляет позиции новое количество, корректируя резерв на
// разницу. Уменьшение количества всегда проходит и возвращает излишек на
// склад; увеличение проверяется против текущего остатка.
func (s *Service) UpdateItem(ctx context.Context, itemID, productID int64, newQuantity int32) (domain.Cart, error) {
	start := time.Now()
	defer s.observe("update_item", start)

	if newQuantity < 1 {
		s.recordResult("update_item", domain.ErrQuantityInvalid)
		return domain.Cart{}, domain.ErrQuantityInvalid
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return domain.Cart{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	cart, err := tx.GetCartWithItems(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrCartNotFound) {
			err = domain.ErrCartItemNotFound
		}
		s.recordResult("update_item", err)
		return domain.Cart{}, err
	}

	item, found := cart.FindItemByID(itemID)
	if !found {
		s.recordResult("update_item", domain.ErrCartItemNotFound)
		return domain.Cart{}, domain.ErrCartItemNotFound
	}
	// Позиция привязана к товару навсегда; замена товара — это
	// удаление и новое добавление.
	if productID != 0 && productID != item.ProductID {
		s.recordResult("update_item", domain.ErrProductMismatch)
		return domain.Cart{}, domain.ErrProductMismatch
	}

	product, err := tx.GetProductForUpdate(ctx, item.ProductID)
	if err != nil {
		s.recordResult("update_item", err)
		return domain.Cart{}, err
	}

	// Количество перечитывается под блокировкой строки товара: между
	// снимком корзины и захватом блокировки позицию могло изменить
	// конкурентное добавление.
	item, err = tx.GetCartItem(ctx, item.ID)
	if err != nil {
		s.recordResult("update_item", err)
		return domain.Cart{}, err
	}

	delta := newQuantity - item.Quantity
	if delta == 0 {
		if err := tx.Commit(); err != nil {
			s.recordResult("update_item", err)
			return domain.Cart{}, err
		}
		s.recordResult("update_item", nil)
		return cart, nil
	}

	newStock, err := domain.ValidateAdjust(product.Stock, item.Quantity, delta)
	if err != nil {
		s.rejectReserve("update_item", item.ProductID, delta, product.Stock)
		return domain.Cart{}, err
	}

	item.Quantity = newQuantity
	if _, err := tx.UpsertCartItem(ctx, item); err != nil {
		s.recordResult("update_item", err)
		return domain.Cart{}, err
	}
	if err := tx.UpdateProductStock(ctx, item.ProductID, newStock); err != nil {
		s.recordResult("update_item", err)
		return domain.Cart{}, err
	}
	if err := s.recordMovement(ctx, tx, item.ProductID, -delta, newStock, domain.MovementAdjust); err != nil {
		s.recordResult("update_item", err)
		return domain.Cart{}, err
	}

	if err := s.emitCartEvent(ctx, tx, kafka.EventTypeCartItemUpdated, item); err != nil {
		s.recordResult("update_item", err)
		return domain.Cart{}, err
	}
	stockEvent := kafka.EventTypeStockReserved
	if delta < 0 {
		stockEvent = kafka.EventTypeStockReleased
	}
	if err := s.emitStockEvent(ctx, tx, stockEvent, item.ProductID, -delta, newStock); err != nil {
		s.recordResult("update_item", err)
		return domain.Cart{}, err
	}

	cart, err = tx.GetCartWithItems(ctx)
	if err != nil {
		s.recordResult("update_item", err)
		return domain.Cart{}, err
	}

	if err := tx.Commit(); err != nil {
		s.recordResult("update_item", err)
		return domain.Cart{}, err
	}

	s.logger.WithFields(log.Fields{
		"item_id":      itemID,
		"product_id":   item.ProductID,
		"new_quantity": newQuantity,
		"delta":        delta,
	}).Info("cart item updated")
	s.recordResult("update_item", nil)
	s.setCartItems(len(cart.Items))
	return cart, nil
}

// RemoveItem удаляет позицию и возвращает её количество на склад. Если
// товар к этому моменту удалён из каталога, возвращать резерв некуда и
// шаг освобождения пропускается.
func (s *Service) RemoveItem(ctx context.Context, itemID int64) (domain.Cart, error) {
	start := time.Now()
	defer s.observe("remove_item", start)

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return domain.Cart{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	cart, err := tx.GetCartWithItems(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrCartNotFound) {
			err = domain.ErrCartItemNotFound
		}
		s.recordResult("remove_item", err)
		return domain.Cart{}, err
	}

	item, found := cart.FindItemByID(itemID)
	if !found {
		s.recordResult("remove_item", domain.ErrCartItemNotFound)
		return domain.Cart{}, domain.ErrCartItemNotFound
	}

	product, err := tx.GetProductForUpdate(ctx, item.ProductID)
	switch {
	case err == nil:
		// Возвращаемое количество перечитывается под блокировкой, как
		// и в UpdateItem.
		item, err = tx.GetCartItem(ctx, item.ID)
		if err != nil {
			s.recordResult("remove_item", err)
			return domain.Cart{}, err
		}
		newStock := domain.Release(product.Stock, item.Quantity)
		if err := tx.UpdateProductStock(ctx, item.ProductID, newStock); err != nil {
			s.recordResult("remove_item", err)
			return domain.Cart{}, err
		}
		if err := s.recordMovement(ctx, tx, item.ProductID, item.Quantity, newStock, domain.MovementRelease); err != nil {
			s.recordResult("remove_item", err)
			return domain.Cart{}, err
		}
		if err := s.emitStockEvent(ctx, tx, kafka.EventTypeStockReleased, item.ProductID, item.Quantity, newStock); err != nil {
			s.recordResult("remove_item", err)
			return domain.Cart{}, err
		}
	case errors.Is(err, domain.ErrProductNotFound):
		s.logger.WithFields(log.Fields{
			"item_id":    itemID,
			"product_id": item.ProductID,
		}).Warn("product gone from catalog, skipping stock release")
	default:
		s.recordResult("remove_item", err)
		return domain.Cart{}, err
	}

	if err := tx.DeleteCartItem(ctx, item.ID); err != nil {
		s.recordResult("remove_item", err)
		return domain.Cart{}, err
	}
	if err := s.emitCartEvent(ctx, tx, kafka.EventTypeCartItemRemoved, item); err != nil {
		s.recordResult("remove_item", err)
		return domain.Cart{}, err
	}

	cart, err = tx.GetCartWithItems(ctx)
	if err != nil {
		s.recordResult("remove_item", err)
		return domain.Cart{}, err
	}

	if err := tx.Commit(); err != nil {
		s.recordResult("remove_item", err)
		return domain.Cart{}, err
	}

	s.logger.WithFields(log.Fields{
		"item_id":    itemID,
		"product_id": item.ProductID,
		"quantity":   item.Quantity,
	}).Info("cart item removed")
	s.recordResult("remove_item", nil)
	s.setCartItems(len(cart.Items))
	return cart, nil
}

func getOrCreateCart(ctx context.Context, tx domain.Tx) (domain.Cart, error) {
	cart, err := tx.GetCartWithItems(ctx)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, domain.ErrCartNotFound) {
		return domain.Cart{}, err
	}
	return tx.CreateCart(ctx)
}

func (s *Service) recordMovement(ctx context.Context, tx domain.Tx, productID int64, delta, stockAfter int32, reason domain.MovementReason) error {
	err := tx.AppendMovement(ctx, domain.StockMovement{
		ProductID:  productID,
		Delta:      delta,
		StockAfter: stockAfter,
		Reason:     reason,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("append stock movement: %w", err)
	}
	if s.metrics != nil {
		s.metrics.RecordStockMovement()
	}
	return nil
}

func (s *Service) emitCartEvent(ctx context.Context, tx domain.Tx, eventType kafka.EventType, item domain.CartItem) error {
	event := kafka.NewCartEvent(eventType, item.ID, item.ProductID, item.Quantity, nil)
	return s.enqueueEvent(ctx, tx, "cart", strconv.FormatInt(item.CartID, 10), string(eventType), event)
}

func (s *Service) emitStockEvent(ctx context.Context, tx domain.Tx, eventType kafka.EventType, productID int64, delta, stockAfter int32) error {
	event := kafka.NewStockEvent(eventType, productID, delta, stockAfter, nil)
	return s.enqueueEvent(ctx, tx, "stock", strconv.FormatInt(productID, 10), string(eventType), event)
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

func (s *Service) rejectReserve(operation string, productID int64, requested, available int32) {
	s.logger.WithFields(log.Fields{
		"product_id": productID,
		"requested":  requested,
		"available":  available,
	}).Warn("reservation rejected: insufficient stock")
	if s.metrics != nil {
		s.metrics.RecordInsufficientStock()
		s.metrics.RecordOperation(operation, "insufficient_stock")
	}
}

func (s *Service) recordResult(operation string, err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordOperation(operation, resultLabel(err))
}

func (s *Service) observe(operation string, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordOperationDuration(operation, time.Since(start))
}

func (s *Service) setCartItems(count int) {
	if s.metrics == nil {
		return
	}
	s.metrics.SetCartItems(count)
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrInsufficientStock):
		return "insufficient_stock"
	case domain.IsNotFound(err):
		return "not_found"
	case domain.IsInvalidArgument(err):
		return "invalid"
	default:
		return "error"
	}
}
