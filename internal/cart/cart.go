// Package cart holds the session-scoped shopping cart: one line per product,
// quantities never below one, totals derived on every read.
package cart

import (
	"sync"

	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/storefront-checkout/internal/domain"
)

type Line struct {
	Product  domain.Product `json:"product"`
	Quantity int            `json:"quantity"`
}

func (l Line) Subtotal() decimal.Decimal {
	return l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type Totals struct {
	Quantity int             `json:"total_quantity"`
	Price    decimal.Decimal `json:"total_price"`
}

type Cart struct {
	mu    sync.Mutex
	lines []Line
	index map[domain.ID]int
}

func New() *Cart {
	return &Cart{index: make(map[domain.ID]int)}
}

func (c *Cart) Add(p domain.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if i, ok := c.index[p.ID]; ok {
		c.lines[i].Quantity++
		return
	}

	c.index[p.ID] = len(c.lines)
	c.lines = append(c.lines, Line{Product: p, Quantity: 1})
}

// Remove decrements the product's line and drops it at zero. Removing a
// product that is not in the cart does nothing.
func (c *Cart) Remove(p domain.Product) {
	c.RemoveID(p.ID)
}

func (c *Cart) RemoveID(id domain.ID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i, ok := c.index[id]
	if !ok {
		return
	}

	if c.lines[i].Quantity > 1 {
		c.lines[i].Quantity--
		return
	}

	c.lines = append(c.lines[:i], c.lines[i+1:]...)
	delete(c.index, id)
	for j := i; j < len(c.lines); j++ {
		c.index[c.lines[j].Product.ID] = j
	}
}

func (c *Cart) QuantityOf(id domain.ID) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if i, ok := c.index[id]; ok {
		return c.lines[i].Quantity
	}
	return 0
}

func (c *Cart) Totals() Totals {
	c.mu.Lock()
	defer c.mu.Unlock()

	return totalsOf(c.lines)
}

func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lines = nil
	c.index = make(map[domain.ID]int)
}

func (c *Cart) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.lines)
}

func (c *Cart) IsEmpty() bool {
	return c.Len() == 0
}

// Lines returns a copy of the lines in insertion order.
func (c *Cart) Lines() []Line {
	c.mu.Lock()
	defer c.mu.Unlock()

	lines := make([]Line, len(c.lines))
	copy(lines, c.lines)
	return lines
}

// Snapshot captures the cart's lines and totals in one step. Later mutations
// of the cart do not affect the returned value.
func (c *Cart) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	lines := make([]Line, len(c.lines))
	copy(lines, c.lines)
	return Snapshot{Lines: lines, Totals: totalsOf(lines)}
}

type Snapshot struct {
	Lines  []Line `json:"lines"`
	Totals Totals `json:"totals"`
}

func (s Snapshot) IsEmpty() bool {
	return len(s.Lines) == 0
}

func (s Snapshot) LineItems() []domain.LineItem {
	items := make([]domain.LineItem, 0, len(s.Lines))
	for _, l := range s.Lines {
		items = append(items, domain.NewLineItem(l.Product, l.Quantity))
	}
	return items
}

func totalsOf(lines []Line) Totals {
	t := Totals{Price: decimal.Zero}
	for _, l := range lines {
		t.Quantity += l.Quantity
		t.Price = t.Price.Add(l.Subtotal())
	}
	return t
}
