package http

import (
	"math"
	"time"

	"github.com/vladislavdragonenkov/cartsvc/internal/domain"
)

// ProductDTO — JSON-представление товара. Цена в API ходит десятичным
// числом с двумя знаками после запятой; внутри сервис хранит её в
// минимальных денежных единицах.
type ProductDTO struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Price       float64   `json:"price"`
	Description string    `json:"description,omitempty"`
	Stock       int32     `json:"stock"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CartItemDTO — JSON-представление позиции корзины. Product равен null,
// если товар был удалён из каталога.
type CartItemDTO struct {
	ID        int64       `json:"id"`
	ProductID int64       `json:"product_id"`
	Quantity  int32       `json:"quantity"`
	Product   *ProductDTO `json:"product,omitempty"`
}

// CartDTO — JSON-представление корзины.
type CartDTO struct {
	ID    int64         `json:"id"`
	Items []CartItemDTO `json:"items"`
}

// MovementDTO — JSON-представление движения остатка.
type MovementDTO struct {
	ID         int64     `json:"id"`
	ProductID  int64     `json:"product_id"`
	Delta      int32     `json:"delta"`
	StockAfter int32     `json:"stock_after"`
	Reason     string    `json:"reason"`
	OccurredAt time.Time `json:"occurred_at"`
}

func toProductDTO(product domain.Product) ProductDTO {
	return ProductDTO{
		ID:          product.ID,
		Name:        product.Name,
		Price:       minorToPrice(product.PriceMinor),
		Description: product.Description,
		Stock:       product.Stock,
		CreatedAt:   product.CreatedAt,
		UpdatedAt:   product.UpdatedAt,
	}
}

func minorToPrice(minor int64) float64 {
	return float64(minor) / 100
}

// priceToMinor округляет цену до ближайшей минимальной единицы.
func priceToMinor(price float64) int64 {
	return int64(math.Round(price * 100))
}

func toCartDTO(cart domain.Cart) CartDTO {
	items := make([]CartItemDTO, 0, len(cart.Items))
	for _, item := range cart.Items {
		dto := CartItemDTO{
			ID:        item.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		}
		if item.Product != nil {
			product := toProductDTO(*item.Product)
			dto.Product = &product
		}
		items = append(items, dto)
	}
	return CartDTO{ID: cart.ID, Items: items}
}

func toMovementDTOs(movements []domain.StockMovement) []MovementDTO {
	result := make([]MovementDTO, 0, len(movements))
	for _, m := range movements {
		result = append(result, MovementDTO{
			ID:         m.ID,
			ProductID:  m.ProductID,
			Delta:      m.Delta,
			StockAfter: m.StockAfter,
			Reason:     string(m.Reason),
			OccurredAt: m.OccurredAt,
		})
	}
	return result
}
