// Package catalog holds an immutable snapshot of the products offered at the
// time of one fetch from the backend.
package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/joao-fontenele/storefront-checkout/internal/domain"
)

type Source interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
}

type Snapshot struct {
	products  []domain.Product
	index     map[domain.ID]int
	fetchedAt time.Time
}

func NewSnapshot(products []domain.Product, fetchedAt time.Time) *Snapshot {
	s := &Snapshot{
		products:  make([]domain.Product, len(products)),
		index:     make(map[domain.ID]int, len(products)),
		fetchedAt: fetchedAt,
	}
	copy(s.products, products)
	for i, p := range s.products {
		s.index[p.ID] = i
	}
	return s
}

func Fetch(ctx context.Context, source Source) (*Snapshot, error) {
	products, err := source.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}
	return NewSnapshot(products, time.Now().UTC()), nil
}

func (s *Snapshot) Lookup(id domain.ID) (domain.Product, bool) {
	i, ok := s.index[id]
	if !ok {
		return domain.Product{}, false
	}
	return s.products[i], true
}

func (s *Snapshot) Products() []domain.Product {
	products := make([]domain.Product, len(s.products))
	copy(products, s.products)
	return products
}

func (s *Snapshot) Len() int {
	return len(s.products)
}

func (s *Snapshot) FetchedAt() time.Time {
	return s.fetchedAt
}
