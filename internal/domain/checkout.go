package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type CheckoutState string

const (
	CheckoutStateIdle                  CheckoutState = "idle"
	CheckoutStateSubmittingOrder       CheckoutState = "submitting_order"
	CheckoutStateOrderFailed           CheckoutState = "order_failed"
	CheckoutStateSubmittingTransaction CheckoutState = "submitting_transaction"
	CheckoutStateTransactionFailed     CheckoutState = "transaction_failed"
	CheckoutStateCommitted             CheckoutState = "committed"
)

func (s CheckoutState) IsTerminal() bool {
	switch s {
	case CheckoutStateOrderFailed, CheckoutStateTransactionFailed, CheckoutStateCommitted:
		return true
	default:
		return false
	}
}

func (s CheckoutState) String() string {
	return string(s)
}

type CheckoutOutcomeEvent struct {
	CheckoutID    string          `json:"checkout_id"`
	UserID        ID              `json:"user_id"`
	State         CheckoutState   `json:"state"`
	OrderID       string          `json:"order_id,omitempty"`
	TransactionID string          `json:"transaction_id,omitempty"`
	Error         string          `json:"error,omitempty"`
	TotalQuantity int             `json:"total_quantity"`
	TotalPrice    decimal.Decimal `json:"total_price"`
	Timestamp     time.Time       `json:"timestamp"`
}
