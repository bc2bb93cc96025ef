package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vladislavdragonenkov/cartsvc/internal/domain"
)

// CartService — операции корзины, нужные HTTP-обработчикам.
type CartService interface {
	GetCart(ctx context.Context) (domain.Cart, error)
	AddItem(ctx context.Context, productID int64, quantity int32) (domain.Cart, error)
	UpdateItem(ctx context.Context, itemID, productID int64, newQuantity int32) (domain.Cart, error)
	RemoveItem(ctx context.Context, itemID int64) (domain.Cart, error)
}

// CartHandler обслуживает запросы к корзине.
type CartHandler struct {
	cart    CartService
	timeout time.Duration
}

// NewCartHandler создаёт обработчик корзины.
func NewCartHandler(cart CartService, timeout time.Duration) *CartHandler {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &CartHandler{cart: cart, timeout: timeout}
}

// AddItemRequestDTO — тело запроса добавления товара в корзину.
type AddItemRequestDTO struct {
	ProductID int64 `json:"product_id"`
	Quantity  int32 `json:"quantity"`
}

// UpdateItemRequestDTO — тело запроса изменения позиции корзины.
type UpdateItemRequestDTO struct {
	ProductID int64 `json:"product_id,omitempty"`
	Quantity  int32 `json:"quantity"`
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cart, err := h.cart.GetCart(ctx)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, toCartDTO(cart))
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be positive")
		return
	}

	cart, err := h.cart.AddItem(ctx, req.ProductID, req.Quantity)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, toCartDTO(cart))
}

func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	itemID, ok := parseIDParam(w, r, "item_id")
	if !ok {
		return
	}

	var req UpdateItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	cart, err := h.cart.UpdateItem(ctx, itemID, req.ProductID, req.Quantity)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, toCartDTO(cart))
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	itemID, ok := parseIDParam(w, r, "item_id")
	if !ok {
		return
	}

	cart, err := h.cart.RemoveItem(ctx, itemID)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, toCartDTO(cart))
}

func parseIDParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_"+name, name+" must be a positive integer")
		return 0, false
	}
	return id, true
}

func parseLimit(raw string) (int, error) {
	limit, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if limit <= 0 {
		return 0, strconv.ErrRange
	}
	return limit, nil
}
