// Package storefront serves the shopper-facing HTTP API: sign-in, catalog,
// cart and checkout. Catalog maintenance and uploads are passed through to
// the content backend.
package storefront

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/joao-fontenele/storefront-checkout/internal/backend"
	"github.com/joao-fontenele/storefront-checkout/internal/cart"
	"github.com/joao-fontenele/storefront-checkout/internal/checkout"
	"github.com/joao-fontenele/storefront-checkout/internal/domain"
	"github.com/joao-fontenele/storefront-checkout/internal/identity"
	"github.com/joao-fontenele/storefront-checkout/internal/session"
)

const SessionHeader = "X-Session-ID"

type Backend interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	ListTransactions(ctx context.Context, credential string, userID domain.ID) ([]domain.TransactionRecord, error)
	Login(ctx context.Context, identifier, password string) (identity.User, identity.Identity, error)
	Register(ctx context.Context, username, password string) (identity.User, error)
}

type Checkouter interface {
	Checkout(ctx context.Context, c *cart.Cart, ident identity.Identity) (*checkout.Result, error)
}

type Handler struct {
	backend      Backend
	proxy        *backend.ServiceProxy
	orchestrator Checkouter
	sessions     *session.Store
	logger       *slog.Logger
}

func NewHandler(b Backend, proxy *backend.ServiceProxy, orchestrator Checkouter, sessions *session.Store, logger *slog.Logger) *Handler {
	return &Handler{
		backend:      b,
		proxy:        proxy,
		orchestrator: orchestrator,
		sessions:     sessions,
		logger:       logger,
	}
}

// Routes registers every storefront route on mux. wrap is applied to each
// handler, typically to tag spans with the matched route.
func (h *Handler) Routes(mux *http.ServeMux, wrap func(http.HandlerFunc) http.HandlerFunc) {
	if wrap == nil {
		wrap = func(f http.HandlerFunc) http.HandlerFunc { return f }
	}

	mux.HandleFunc("POST /auth/login", wrap(h.HandleLogin))
	mux.HandleFunc("POST /auth/register", wrap(h.HandleRegister))
	mux.HandleFunc("POST /auth/logout", wrap(h.HandleLogout))

	mux.HandleFunc("GET /products", wrap(h.HandleListProducts))
	mux.HandleFunc("POST /products", wrap(h.HandleProxy))
	mux.HandleFunc("PUT /products/{id}", wrap(h.HandleProxy))
	mux.HandleFunc("DELETE /products/{id}", wrap(h.HandleProxy))
	mux.HandleFunc("POST /upload", wrap(h.HandleProxy))

	mux.HandleFunc("GET /cart", wrap(h.HandleGetCart))
	mux.HandleFunc("POST /cart/items", wrap(h.HandleAddItem))
	mux.HandleFunc("DELETE /cart/items/{productId}", wrap(h.HandleRemoveItem))

	mux.HandleFunc("POST /checkout", wrap(h.HandleCheckout))
	mux.HandleFunc("GET /transactions", wrap(h.HandleListTransactions))
}

// currentSession returns the caller's session. Without a live one it starts an
// anonymous session when create is set.
func (h *Handler) currentSession(w http.ResponseWriter, r *http.Request, create bool) (*session.Session, bool) {
	if id := r.Header.Get(SessionHeader); id != "" {
		if sess, ok := h.sessions.Get(id); ok {
			w.Header().Set(SessionHeader, sess.ID())
			return sess, true
		}
	}

	if !create {
		return nil, false
	}

	sess := h.sessions.Create()
	w.Header().Set(SessionHeader, sess.ID())
	return sess, true
}

// HandleProxy forwards catalog maintenance and uploads to the backend's
// /api namespace.
func (h *Handler) HandleProxy(w http.ResponseWriter, r *http.Request) {
	path := "/api" + r.URL.Path

	resp, err := h.proxy.ForwardRequest(r.Context(), r, path)
	if err != nil {
		h.logger.Error("failed to forward request", "error", err, "path", path)
		h.writeError(w, http.StatusBadGateway, "backend unavailable")
		return
	}
	defer func() { _ = resp.Body.Close() }()

	if contentType := resp.Header.Get("Content-Type"); contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}

	w.WriteHeader(resp.StatusCode)

	h.logger.Info("request proxied", "method", r.Method, "path", path, "status", resp.StatusCode)

	if _, err := io.Copy(w, resp.Body); err != nil {
		h.logger.Error("failed to copy response body", "error", err)
	}
}

// backendStatus maps a backend client error to the status the storefront
// answers with.
func backendStatus(err error) int {
	var apiErr *backend.APIError
	switch {
	case errors.As(err, &apiErr):
		if apiErr.Status >= 400 && apiErr.Status < 500 {
			return apiErr.Status
		}
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func backendMessage(err error, fallback string) string {
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
