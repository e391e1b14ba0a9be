package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/puremall/storefront/internal/domain"
	"github.com/puremall/storefront/internal/store"
	apperrors "github.com/puremall/storefront/pkg/errors"
	"github.com/puremall/storefront/pkg/httputil"
	"github.com/puremall/storefront/pkg/validator"
)

// CartView is the cart page state: the lines plus the derived figures the
// view renders in the summary bar.
type CartView struct {
	Items         domain.CartLines `json:"items"`
	SelectedCount int              `json:"selectedCount"`
	TotalQuantity int              `json:"totalQuantity"`
	TotalAmount   int64            `json:"totalAmount"`
	SelectAll     bool             `json:"selectAll"`
}

func cartView(cart *store.CartState) CartView {
	return CartView{
		Items:         cart.Lines(),
		SelectedCount: cart.SelectedCount(),
		TotalQuantity: cart.TotalQuantity(),
		TotalAmount:   cart.TotalAmount(),
		SelectAll:     cart.SelectAll(),
	}
}

// GetCart returns the current cart state without contacting the backend.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	h.render(w, sess, http.StatusOK, cartView(sess.Cart))
}

// ReloadCart replaces the local cart with the backend's copy. A failed fetch
// keeps the previous state and surfaces the error through the feed.
func (h *Handler) ReloadCart(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	_ = sess.Cart.Load(r.Context())
	h.render(w, sess, http.StatusOK, cartView(sess.Cart))
}

type addToCartRequest struct {
	ProductID   int64  `json:"productId" validate:"required"`
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	Spec        string `json:"spec"`
	Price       int64  `json:"price" validate:"min=0"`
	ImageURL    string `json:"imageUrl"`
}

// AddToCart adds one unit of a product, merging with an existing line when
// the product and spec match.
func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	var req addToCartRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	err := sess.Cart.AddToCart(r.Context(), domain.CartLine{
		ProductID:   req.ProductID,
		Name:        req.Name,
		Description: req.Description,
		Spec:        req.Spec,
		Price:       req.Price,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.render(w, sess, http.StatusOK, cartView(sess.Cart))
}

type quantityRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1"`
}

// UpdateQuantity sets the quantity of a cart line.
func (h *Handler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	id, err := pathID(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	var req quantityRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	if err := sess.Cart.UpdateQuantity(r.Context(), id, req.Quantity); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.render(w, sess, http.StatusOK, cartView(sess.Cart))
}

type selectedRequest struct {
	Selected bool `json:"selected"`
}

// SetSelected toggles one cart line's selection.
func (h *Handler) SetSelected(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	id, err := pathID(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	var req selectedRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	if err := sess.Cart.SetSelected(r.Context(), id, req.Selected); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.render(w, sess, http.StatusOK, cartView(sess.Cart))
}

// SetSelectAll selects or deselects every cart line.
func (h *Handler) SetSelectAll(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	var req selectedRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	if err := sess.Cart.SetSelectAll(r.Context(), req.Selected); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.render(w, sess, http.StatusOK, cartView(sess.Cart))
}

// RemoveLine deletes a single cart line.
func (h *Handler) RemoveLine(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	id, err := pathID(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	if err := sess.Cart.RemoveLine(r.Context(), id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.render(w, sess, http.StatusOK, cartView(sess.Cart))
}

// RemoveSelected deletes every selected cart line.
func (h *Handler) RemoveSelected(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	if err := sess.Cart.RemoveSelected(r.Context()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.render(w, sess, http.StatusOK, cartView(sess.Cart))
}

// ClearCart empties the cart.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	if err := sess.Cart.Clear(r.Context()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.render(w, sess, http.StatusOK, cartView(sess.Cart))
}

// Checkout stages the selected lines for ordering, removes them from the
// cart, and signals navigation to the checkout page. With nothing selected
// the cart is untouched and the feed carries a warning instead.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	_ = sess.Cart.Checkout(r.Context(), sess.Orders, sess.Feed)
	h.render(w, sess, http.StatusOK, cartView(sess.Cart))
}

func pathID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperrors.InvalidInput("invalid id: " + raw)
	}
	return id, nil
}
