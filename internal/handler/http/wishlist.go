package http

import (
	"net/http"

	"github.com/puremall/storefront/internal/domain"
	"github.com/puremall/storefront/internal/store"
	"github.com/puremall/storefront/pkg/httputil"
	"github.com/puremall/storefront/pkg/validator"
)

// WishlistView is the saved-products page state.
type WishlistView struct {
	Items domain.Wishlist `json:"items"`
	Count int             `json:"count"`
}

func wishlistView(wishlist *store.WishlistState) WishlistView {
	items := wishlist.Items()
	return WishlistView{
		Items: items,
		Count: len(items),
	}
}

// GetWishlist reloads the collection from the backend and returns it. The
// wishlist is remote-authoritative, so a read always refreshes first; on
// failure the previous collection is returned with the error in the feed.
func (h *Handler) GetWishlist(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	_ = sess.Wishlist.Load(r.Context())
	h.render(w, sess, http.StatusOK, wishlistView(sess.Wishlist))
}

type wishlistAddRequest struct {
	ProductID int64 `json:"productId" validate:"required"`
}

// AddToWishlist saves a product for later.
func (h *Handler) AddToWishlist(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	var req wishlistAddRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	if err := sess.Wishlist.Add(r.Context(), req.ProductID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	h.render(w, sess, http.StatusCreated, wishlistView(sess.Wishlist))
}

// RemoveFromWishlist deletes a saved product by its product id.
func (h *Handler) RemoveFromWishlist(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	productID, err := pathID(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	if err := sess.Wishlist.Remove(r.Context(), productID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	h.render(w, sess, http.StatusOK, wishlistView(sess.Wishlist))
}

// WishlistContains reports whether a product is saved, from the local copy.
func (h *Handler) WishlistContains(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	productID, err := pathID(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.render(w, sess, http.StatusOK, map[string]bool{
		"exists": sess.Wishlist.Contains(productID),
	})
}
