// Package journal keeps an operator-facing record of checkout outcomes. It
// consumes the storefront's outcome events and stores the latest state of
// every checkout, so order-without-transaction cases can be found and
// reconciled by hand.
package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/joao-fontenele/storefront-checkout/internal/domain"
	"github.com/joao-fontenele/storefront-checkout/internal/messaging"
)

type Recorder interface {
	Record(ctx context.Context, event domain.CheckoutOutcomeEvent) error
}

type EventHandler struct {
	recorder Recorder
	logger   *slog.Logger
}

func NewEventHandler(recorder Recorder, logger *slog.Logger) *EventHandler {
	return &EventHandler{
		recorder: recorder,
		logger:   logger,
	}
}

// Handle stores one outcome event. Payloads that can never be stored are
// logged and dropped; storage errors are returned so the message is retried.
func (h *EventHandler) Handle(ctx context.Context, msg messaging.Message) error {
	var event domain.CheckoutOutcomeEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		h.logger.Warn("dropping malformed checkout outcome", "error", err, "offset", msg.Offset)
		return nil
	}

	if event.CheckoutID == "" {
		event.CheckoutID = msg.Key
	} else if msg.Key != "" && msg.Key != event.CheckoutID {
		h.logger.Warn("checkout outcome key does not match payload",
			"key", msg.Key, "checkout_id", event.CheckoutID)
	}

	if event.CheckoutID == "" || !event.State.IsTerminal() {
		h.logger.Warn("dropping checkout outcome without id or terminal state",
			"checkout_id", event.CheckoutID, "state", event.State)
		return nil
	}

	if err := h.recorder.Record(ctx, event); err != nil {
		return fmt.Errorf("record checkout outcome %s: %w", event.CheckoutID, err)
	}

	if event.State == domain.CheckoutStateTransactionFailed {
		h.logger.Warn("checkout needs reconciliation",
			"checkout_id", event.CheckoutID,
			"user_id", event.UserID.String(),
			"order_id", event.OrderID,
		)
	}

	h.logger.Info("checkout outcome recorded", "checkout_id", event.CheckoutID, "state", event.State)
	return nil
}
