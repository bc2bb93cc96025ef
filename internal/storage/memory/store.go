package memory

import (
	"context"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/cartsvc/internal/domain"
)

type outboxStatus string

const (
	outboxPending outboxStatus = "pending"
	outboxSent    outboxStatus = "sent"
	outboxFailed  outboxStatus = "failed"
)

type outboxRecord struct {
	msg       domain.OutboxMessage
	status    outboxStatus
	createdAt time.Time
}

// state — полный снимок данных хранилища. Транзакция работает с копией
// и публикует её целиком при Commit.
type state struct {
	products  map[int64]domain.Product
	carts     map[int64]domain.Cart
	items     map[int64]domain.CartItem
	outbox    []outboxRecord
	movements []domain.StockMovement

	productSeq  int64
	cartSeq     int64
	itemSeq     int64
	movementSeq int64
}

func newState() *state {
	return &state{
		products: make(map[int64]domain.Product),
		carts:    make(map[int64]domain.Cart),
		items:    make(map[int64]domain.CartItem),
	}
}

func (s *state) clone() *state {
	out := &state{
		products:    make(map[int64]domain.Product, len(s.products)),
		carts:       make(map[int64]domain.Cart, len(s.carts)),
		items:       make(map[int64]domain.CartItem, len(s.items)),
		outbox:      make([]outboxRecord, len(s.outbox)),
		movements:   make([]domain.StockMovement, len(s.movements)),
		productSeq:  s.productSeq,
		cartSeq:     s.cartSeq,
		itemSeq:     s.itemSeq,
		movementSeq: s.movementSeq,
	}
	for id, p := range s.products {
		out.products[id] = p
	}
	for id, c := range s.carts {
		// В state позиции корзины не вкладываются в Cart, копия структуры достаточна.
		c.Items = nil
		out.carts[id] = c
	}
	for id, item := range s.items {
		item.Product = nil
		out.items[id] = item
	}
	copy(out.outbox, s.outbox)
	copy(out.movements, s.movements)
	return out
}

// Store — in-memory реализация domain.Store для локальной разработки и
// тестов. Begin захватывает общий мьютекс до завершения транзакции, поэтому
// конкурентные операции сериализуются полностью — более строгая изоляция,
// чем требует контракт, но с теми же наблюдаемыми гарантиями.
type Store struct {
	mu sync.Mutex
	st *state

	now func() time.Time
}

// NewStore возвращает пустое in-memory хранилище.
func NewStore() *Store {
	return &Store{
		st:  newState(),
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Begin открывает транзакцию. Блокируется, пока не завершится предыдущая.
func (s *Store) Begin(ctx context.Context) (domain.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	return &memTx{store: s, work: s.st.clone()}, nil
}

// Ping всегда успешен; нужен для единообразия health-проверок с postgres.
func (s *Store) Ping(_ context.Context) error {
	return nil
}

var _ domain.Store = (*Store)(nil)
