package domain

import "time"

// Product описывает товар каталога. Остаток (Stock) меняется только через
// проверенные леджером операции либо через административный restock.
type Product struct {
	ID          int64
	Name        string
	// PriceMinor — цена в минимальных денежных единицах (например, копейки).
	PriceMinor  int64
	Description string
	Stock       int32
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ValidateInvariants проверяет базовые инварианты товара и возвращает список замечаний.
func (p *Product) ValidateInvariants() []error {
	var errs []error

	if p.Name == "" {
		errs = append(errs, ErrProductNameRequired)
	}
	if p.PriceMinor < 0 {
		errs = append(errs, ErrPriceNegative)
	}
	if p.Stock < 0 {
		errs = append(errs, ErrStockNegative)
	}

	return errs
}

// ProductPatch описывает частичное обновление товара: nil-поле означает
// "оставить как есть".
type ProductPatch struct {
	Name        *string
	PriceMinor  *int64
	Description *string
	Stock       *int32
}

// Empty сообщает, задано ли хоть одно поле обновления.
func (p ProductPatch) Empty() bool {
	return p.Name == nil && p.PriceMinor == nil && p.Description == nil && p.Stock == nil
}
