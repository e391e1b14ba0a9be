package domain

import "time"

// WishlistItem is one saved product. The backend owns the record; ID is the
// backend's row id, unrelated to cart line ids.
type WishlistItem struct {
	ID         int64     `json:"id"`
	WishlistID int64     `json:"wishlistId"`
	ProductID  int64     `json:"productId"`
	CreateTime time.Time `json:"createTime,omitzero"`
}

// Wishlist is the shopper's saved-product collection.
type Wishlist []WishlistItem

// Contains reports whether the product is saved.
func (w Wishlist) Contains(productID int64) bool {
	for i := range w {
		if w[i].ProductID == productID {
			return true
		}
	}
	return false
}
