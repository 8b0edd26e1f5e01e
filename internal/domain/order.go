package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type LineProduct struct {
	ID    ID          `json:"id"`
	Name  string      `json:"name"`
	Price json.Number `json:"price"`
}

// LineItem is the denormalized copy of a cart line stored on both the order
// and the transaction record.
type LineItem struct {
	Product  LineProduct `json:"product"`
	Quantity int         `json:"quantity"`
}

func NewLineItem(p Product, quantity int) LineItem {
	return LineItem{
		Product: LineProduct{
			ID:    p.ID,
			Name:  p.Name,
			Price: json.Number(p.Price.String()),
		},
		Quantity: quantity,
	}
}

func (li LineItem) Subtotal() decimal.Decimal {
	price, err := decimal.NewFromString(li.Product.Price.String())
	if err != nil {
		return decimal.Zero
	}
	return price.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

type OrderRecord struct {
	OrderList  []LineItem `json:"orderlist"`
	TotalOrder string     `json:"totalorder"`
	Quantity   string     `json:"quantity"`
	User       ID         `json:"user"`
}

type TransactionRecord struct {
	ID            ID          `json:"id,omitempty"`
	DocumentID    string      `json:"documentId,omitempty"`
	OrderItems    []LineItem  `json:"orderItems"`
	TotalAmount   json.Number `json:"totalAmount"`
	TotalQuantity int         `json:"totalQuantity"`
	OrderDate     time.Time   `json:"orderDate"`
	User          ID          `json:"user,omitempty"`
	Order         string      `json:"order,omitempty"`
	CreatedAt     *time.Time  `json:"createdAt,omitempty"`
}

// Created is what the backend returns for a successful create.
type Created struct {
	ID         ID     `json:"id"`
	DocumentID string `json:"documentId"`
}

// Ref prefers the document id, which is what relations are addressed by.
func (c Created) Ref() string {
	if c.DocumentID != "" {
		return c.DocumentID
	}
	return c.ID.String()
}
