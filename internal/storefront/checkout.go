package storefront

import (
	"errors"
	"net/http"
	"time"

	"github.com/joao-fontenele/storefront-checkout/internal/checkout"
	"github.com/joao-fontenele/storefront-checkout/internal/domain"
)

type checkoutResponse struct {
	CheckoutID    string               `json:"checkout_id,omitempty"`
	State         domain.CheckoutState `json:"state"`
	OrderID       string               `json:"order_id,omitempty"`
	TransactionID string               `json:"transaction_id,omitempty"`
	Redirect      string               `json:"redirect,omitempty"`
	Error         string               `json:"error,omitempty"`
}

func checkoutStatus(err error) int {
	switch {
	case errors.Is(err, checkout.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, checkout.ErrTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

// HandleCheckout runs one checkout for the session's cart. A session accepts
// a single checkout at a time.
func (h *Handler) HandleCheckout(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.currentSession(w, r, false)
	if !ok {
		h.writeJSON(w, http.StatusUnauthorized, checkoutResponse{
			State: domain.CheckoutStateIdle,
			Error: checkout.UserMessage(checkout.ErrUnauthenticated),
		})
		return
	}

	if !sess.TryBeginCheckout() {
		h.writeError(w, http.StatusConflict, "checkout already in progress")
		return
	}
	defer sess.EndCheckout()

	result, err := h.orchestrator.Checkout(r.Context(), sess.Cart(), sess.Identity())

	resp := checkoutResponse{
		CheckoutID:    result.CheckoutID,
		State:         result.State,
		OrderID:       result.Order.Ref(),
		TransactionID: result.Transaction.Ref(),
		Redirect:      result.Redirect,
	}

	if err != nil {
		resp.Error = checkout.UserMessage(err)
		h.writeJSON(w, checkoutStatus(err), resp)
		return
	}

	h.writeJSON(w, http.StatusCreated, resp)
}

// HandleListTransactions returns the signed-in user's transaction history,
// newest first.
func (h *Handler) HandleListTransactions(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.currentSession(w, r, false)
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Please login first")
		return
	}

	ident := sess.Identity()
	if err := ident.Check(time.Now()); err != nil {
		h.writeError(w, http.StatusUnauthorized, "Please login first")
		return
	}

	transactions, err := h.backend.ListTransactions(r.Context(), ident.Credential, ident.UserID)
	if err != nil {
		h.logger.Error("failed to list transactions", "error", err, "user_id", ident.UserID.String())
		h.writeError(w, backendStatus(err), backendMessage(err, "failed to fetch transactions"))
		return
	}

	h.writeJSON(w, http.StatusOK, transactions)
}
