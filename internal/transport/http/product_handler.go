package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/vladislavdragonenkov/cartsvc/internal/domain"
)

// CatalogService — операции каталога, нужные HTTP-обработчикам.
type CatalogService interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, id int64) (domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (domain.Product, error)
	UpdateProduct(ctx context.Context, id int64, patch domain.ProductPatch) (domain.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
	ListMovements(ctx context.Context, productID int64, limit int) ([]domain.StockMovement, error)
}

// ProductHandler обслуживает запросы к каталогу товаров.
type ProductHandler struct {
	catalog CatalogService
	timeout time.Duration
}

// NewProductHandler создаёт обработчик каталога.
func NewProductHandler(catalog CatalogService, timeout time.Duration) *ProductHandler {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &ProductHandler{catalog: catalog, timeout: timeout}
}

// CreateProductRequestDTO — тело запроса регистрации товара. Цена
// принимается десятичным числом, например 19.99.
type CreateProductRequestDTO struct {
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
	Stock       int32   `json:"stock"`
}

// UpdateProductRequestDTO — тело запроса частичного обновления товара.
// Отсутствующее поле оставляет значение без изменений.
type UpdateProductRequestDTO struct {
	Name        *string  `json:"name"`
	Price       *float64 `json:"price"`
	Description *string  `json:"description"`
	Stock       *int32   `json:"stock"`
}

func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	products, err := h.catalog.ListProducts(ctx)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	result := make([]ProductDTO, 0, len(products))
	for _, product := range products {
		result = append(result, toProductDTO(product))
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID, ok := parseIDParam(w, r, "product_id")
	if !ok {
		return
	}

	product, err := h.catalog.GetProduct(ctx, productID)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, toProductDTO(product))
}

func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req CreateProductRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	product, err := h.catalog.CreateProduct(ctx, domain.Product{
		Name:        req.Name,
		PriceMinor:  priceToMinor(req.Price),
		Description: req.Description,
		Stock:       req.Stock,
	})
	if err != nil {
		handleDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, toProductDTO(product))
}

func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID, ok := parseIDParam(w, r, "product_id")
	if !ok {
		return
	}

	var req UpdateProductRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	patch := domain.ProductPatch{
		Name:        req.Name,
		Description: req.Description,
		Stock:       req.Stock,
	}
	if req.Price != nil {
		minor := priceToMinor(*req.Price)
		patch.PriceMinor = &minor
	}

	product, err := h.catalog.UpdateProduct(ctx, productID, patch)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, toProductDTO(product))
}

func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID, ok := parseIDParam(w, r, "product_id")
	if !ok {
		return
	}

	if err := h.catalog.DeleteProduct(ctx, productID); err != nil {
		handleDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *ProductHandler) ListMovements(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID, ok := parseIDParam(w, r, "product_id")
	if !ok {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := parseLimit(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	movements, err := h.catalog.ListMovements(ctx, productID, limit)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, toMovementDTOs(movements))
}
