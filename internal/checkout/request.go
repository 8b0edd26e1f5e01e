package checkout

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/storefront-checkout/internal/cart"
	"github.com/joao-fontenele/storefront-checkout/internal/domain"
	"github.com/joao-fontenele/storefront-checkout/internal/identity"
)

// Request is the immutable input of one checkout attempt. Its ID doubles as
// the idempotency key of both writes.
type Request struct {
	ID            string
	UserID        domain.ID
	Items         []domain.LineItem
	TotalQuantity int
	TotalPrice    decimal.Decimal
	CreatedAt     time.Time

	credential string
}

func newRequest(id string, snap cart.Snapshot, ident identity.Identity, now time.Time) Request {
	return Request{
		ID:            id,
		UserID:        ident.UserID,
		Items:         snap.LineItems(),
		TotalQuantity: snap.Totals.Quantity,
		TotalPrice:    snap.Totals.Price,
		CreatedAt:     now,
		credential:    ident.Credential,
	}
}

func (r Request) items() []domain.LineItem {
	items := make([]domain.LineItem, len(r.Items))
	copy(items, r.Items)
	return items
}

func (r Request) OrderRecord() domain.OrderRecord {
	return domain.OrderRecord{
		OrderList:  r.items(),
		TotalOrder: r.TotalPrice.String(),
		Quantity:   strconv.Itoa(r.TotalQuantity),
		User:       r.UserID,
	}
}

// TransactionRecord builds the transaction payload. orderRef is empty unless
// transactions are linked to their order.
func (r Request) TransactionRecord(orderDate time.Time, orderRef string) domain.TransactionRecord {
	return domain.TransactionRecord{
		OrderItems:    r.items(),
		TotalAmount:   json.Number(r.TotalPrice.String()),
		TotalQuantity: r.TotalQuantity,
		OrderDate:     orderDate,
		User:          r.UserID,
		Order:         orderRef,
	}
}
