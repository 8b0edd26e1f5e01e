package journal

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/joao-fontenele/storefront-checkout/internal/domain"
)

type Store interface {
	GetByID(ctx context.Context, checkoutID string) (*Outcome, error)
	List(ctx context.Context, states ...domain.CheckoutState) ([]Outcome, error)
}

type HTTPHandler struct {
	store  Store
	logger *slog.Logger
}

func NewHTTPHandler(store Store, logger *slog.Logger) *HTTPHandler {
	return &HTTPHandler{
		store:  store,
		logger: logger,
	}
}

// HandleList serves GET /outcomes. The state query parameter may repeat or
// hold a comma separated list.
func (h *HTTPHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	var states []domain.CheckoutState
	for _, value := range r.URL.Query()["state"] {
		for _, s := range strings.Split(value, ",") {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			state := domain.CheckoutState(s)
			if !state.IsTerminal() {
				h.writeError(w, http.StatusBadRequest, "unknown state "+s)
				return
			}
			states = append(states, state)
		}
	}

	outcomes, err := h.store.List(r.Context(), states...)
	if err != nil {
		h.logger.Error("failed to list outcomes", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("outcomes listed", "count", len(outcomes))
	h.writeJSON(w, http.StatusOK, outcomes)
}

func (h *HTTPHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing checkout id")
		return
	}

	outcome, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get outcome", "error", err, "checkout_id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if outcome == nil {
		h.writeError(w, http.StatusNotFound, "outcome not found")
		return
	}

	h.writeJSON(w, http.StatusOK, outcome)
}

func (h *HTTPHandler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
