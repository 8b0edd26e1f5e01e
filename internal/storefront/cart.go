package storefront

import (
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/storefront-checkout/internal/cart"
	"github.com/joao-fontenele/storefront-checkout/internal/catalog"
	"github.com/joao-fontenele/storefront-checkout/internal/domain"
	"github.com/joao-fontenele/storefront-checkout/internal/session"
)

type productView struct {
	domain.Product
	Quantity int `json:"quantity"`
}

type cartLineView struct {
	Product  domain.Product  `json:"product"`
	Quantity int             `json:"quantity"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

type cartView struct {
	Items []cartLineView `json:"items"`
	cart.Totals
}

func newCartView(c *cart.Cart) cartView {
	snap := c.Snapshot()
	view := cartView{
		Items:  make([]cartLineView, 0, len(snap.Lines)),
		Totals: snap.Totals,
	}
	for _, line := range snap.Lines {
		view.Items = append(view.Items, cartLineView{
			Product:  line.Product,
			Quantity: line.Quantity,
			Subtotal: line.Subtotal(),
		})
	}
	return view
}

type addItemRequest struct {
	ProductID domain.ID `json:"product_id"`
}

// HandleListProducts refreshes the session's catalog snapshot and returns it
// with the quantity of each product already in the cart.
func (h *Handler) HandleListProducts(w http.ResponseWriter, r *http.Request) {
	sess, _ := h.currentSession(w, r, true)

	snap, err := catalog.Fetch(r.Context(), h.backend)
	if err != nil {
		h.logger.Error("failed to fetch catalog", "error", err)
		h.writeError(w, backendStatus(err), "failed to fetch products")
		return
	}
	sess.SetCatalog(snap)

	products := snap.Products()
	views := make([]productView, 0, len(products))
	for _, p := range products {
		views = append(views, productView{Product: p, Quantity: sess.Cart().QuantityOf(p.ID)})
	}

	h.writeJSON(w, http.StatusOK, views)
}

func (h *Handler) HandleGetCart(w http.ResponseWriter, r *http.Request) {
	sess, _ := h.currentSession(w, r, true)
	h.writeJSON(w, http.StatusOK, newCartView(sess.Cart()))
}

// HandleAddItem adds one unit of a product from the session's catalog
// snapshot. Prices are never taken from the request.
func (h *Handler) HandleAddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProductID.IsZero() {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sess, _ := h.currentSession(w, r, true)

	snap, err := h.catalogFor(r, sess)
	if err != nil {
		h.logger.Error("failed to fetch catalog", "error", err)
		h.writeError(w, backendStatus(err), "failed to fetch products")
		return
	}

	product, ok := snap.Lookup(req.ProductID)
	if !ok {
		h.writeError(w, http.StatusNotFound, "product not found")
		return
	}

	sess.Cart().Add(product)
	h.writeJSON(w, http.StatusOK, newCartView(sess.Cart()))
}

// HandleRemoveItem removes one unit. Removing a product that is not in the
// cart is a no-op.
func (h *Handler) HandleRemoveItem(w http.ResponseWriter, r *http.Request) {
	id := domain.ID(r.PathValue("productId"))
	if id.IsZero() {
		h.writeError(w, http.StatusBadRequest, "missing product id")
		return
	}

	sess, _ := h.currentSession(w, r, true)
	sess.Cart().RemoveID(id)
	h.writeJSON(w, http.StatusOK, newCartView(sess.Cart()))
}

func (h *Handler) catalogFor(r *http.Request, sess *session.Session) (*catalog.Snapshot, error) {
	if snap := sess.Catalog(); snap != nil {
		return snap, nil
	}

	snap, err := catalog.Fetch(r.Context(), h.backend)
	if err != nil {
		return nil, err
	}
	sess.SetCatalog(snap)
	return snap, nil
}
