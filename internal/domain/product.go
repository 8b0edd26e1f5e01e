package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var ErrInvalidProduct = errors.New("invalid product")

type Product struct {
	ID          ID              `json:"id"`
	DocumentID  string          `json:"documentId,omitempty"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description,omitempty"`
}

func (p Product) Validate() error {
	if p.ID.IsZero() {
		return fmt.Errorf("%w: missing id", ErrInvalidProduct)
	}
	if p.Price.IsNegative() {
		return fmt.Errorf("%w: product %s has negative price %s", ErrInvalidProduct, p.ID, p.Price)
	}
	return nil
}
