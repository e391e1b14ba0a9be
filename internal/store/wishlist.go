package store

import (
	"context"
	"log/slog"
	"sync"

	"github.com/puremall/storefront/internal/domain"
)

// WishlistBackend is the slice of the mall backend the wishlist mirrors.
type WishlistBackend interface {
	WishlistList(ctx context.Context) (domain.Wishlist, error)
	WishlistAdd(ctx context.Context, productID int64) error
	WishlistRemove(ctx context.Context, productID int64) error
}

// WishlistState owns the saved-product collection for one session. Unlike the
// cart it is remote-authoritative: a mutation is confirmed by the backend and
// followed by a full reload, so the local copy never runs ahead of the server.
type WishlistState struct {
	mu    sync.Mutex
	items domain.Wishlist

	sessionID string
	backend   WishlistBackend
	notifier  Notifier
	logger    *slog.Logger
}

// NewWishlistState creates the wishlist for one session.
func NewWishlistState(sessionID string, backend WishlistBackend, notifier Notifier, logger *slog.Logger) *WishlistState {
	return &WishlistState{
		items:     domain.Wishlist{},
		sessionID: sessionID,
		backend:   backend,
		notifier:  notifier,
		logger:    logger,
	}
}

// Load replaces the collection with the backend's copy. On failure the
// previous collection stands.
func (w *WishlistState) Load(ctx context.Context) error {
	items, err := w.backend.WishlistList(ctx)
	if err != nil {
		w.logger.WarnContext(ctx, "failed to load wishlist",
			slog.String("session_id", w.sessionID),
			slog.String("error", err.Error()),
		)
		w.notifier.Error("加载收藏夹失败")
		return err
	}

	w.mu.Lock()
	w.items = items
	w.mu.Unlock()
	return nil
}

// Add saves a product, then reloads the list so the backend-assigned record
// appears.
func (w *WishlistState) Add(ctx context.Context, productID int64) error {
	if err := w.backend.WishlistAdd(ctx, productID); err != nil {
		w.logger.WarnContext(ctx, "failed to add wishlist product",
			slog.String("session_id", w.sessionID),
			slog.Int64("product_id", productID),
			slog.String("error", err.Error()),
		)
		w.notifier.Error("添加到收藏夹失败")
		return err
	}
	return w.Load(ctx)
}

// Remove deletes a product from the wishlist, then reloads the list.
func (w *WishlistState) Remove(ctx context.Context, productID int64) error {
	if err := w.backend.WishlistRemove(ctx, productID); err != nil {
		w.logger.WarnContext(ctx, "failed to remove wishlist product",
			slog.String("session_id", w.sessionID),
			slog.Int64("product_id", productID),
			slog.String("error", err.Error()),
		)
		w.notifier.Error("从收藏夹移除失败")
		return err
	}
	return w.Load(ctx)
}

// Items returns a copy of the collection.
func (w *WishlistState) Items() domain.Wishlist {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make(domain.Wishlist, len(w.items))
	copy(out, w.items)
	return out
}

// Contains reports whether the product is saved, from the local copy.
func (w *WishlistState) Contains(productID int64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.items.Contains(productID)
}
