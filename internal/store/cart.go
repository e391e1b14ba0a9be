// Package store holds the two per-session state containers of the storefront:
// the cart and the checkout/order pipeline. Each container owns its collection,
// mirrors mutations to the mall backend, and exposes derived aggregates to the
// view layer. Mutations are optimistic: local state changes first, a remote
// failure surfaces a notification and a log line, and the divergence stands
// until the next authoritative reload.
package store

import (
	"context"
	"log/slog"
	"sync"

	"github.com/puremall/storefront/internal/domain"
	apperrors "github.com/puremall/storefront/pkg/errors"
)

// CartBackend is the slice of the mall backend the cart mirrors itself to.
type CartBackend interface {
	CartList(ctx context.Context) (domain.CartLines, error)
	CartAdd(ctx context.Context, line domain.CartLine) error
	CartUpdateQuantity(ctx context.Context, id int64, quantity int) error
	CartSetSelected(ctx context.Context, id int64, selected bool) error
	CartSetSelectedAll(ctx context.Context, selected bool) error
	CartRemove(ctx context.Context, id int64) error
	CartRemoveBatch(ctx context.Context, ids []int64) error
	CartClear(ctx context.Context) error
}

// CartEvents publishes cart domain events. Publishing is observability only;
// callers log failures and continue.
type CartEvents interface {
	PublishCartUpdated(ctx context.Context, sessionID, action string, lines domain.CartLines) error
	PublishCartCleared(ctx context.Context, sessionID string) error
}

// CartState owns the live cart collection for one session. All exported
// methods are safe for concurrent use; request handlers for the same session
// may run in parallel.
type CartState struct {
	mu    sync.Mutex
	lines domain.CartLines

	sessionID string
	backend   CartBackend
	snapshots SnapshotStore
	events    CartEvents
	notifier  Notifier
	ids       IDSource
	logger    *slog.Logger
}

// NewCartState creates the cart container for one session. snapshots and
// events may be nil when the session runs without them.
func NewCartState(sessionID string, backend CartBackend, snapshots SnapshotStore, events CartEvents, notifier Notifier, ids IDSource, logger *slog.Logger) *CartState {
	return &CartState{
		lines:     domain.CartLines{},
		sessionID: sessionID,
		backend:   backend,
		snapshots: snapshots,
		events:    events,
		notifier:  notifier,
		ids:       ids,
		logger:    logger,
	}
}

// Load fetches the remote cart and replaces the local collection wholesale.
// On transport failure the previous local state stays intact and the failure
// is reported. A malformed payload degrades to an empty cart in the backend
// client rather than failing here.
func (c *CartState) Load(ctx context.Context) error {
	lines, err := c.backend.CartList(ctx)
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to load cart",
			slog.String("session_id", c.sessionID),
			slog.String("error", err.Error()),
		)
		c.notifier.Error("获取购物车失败")
		return err
	}

	c.mu.Lock()
	c.lines = lines
	c.mu.Unlock()

	c.persist(ctx)
	return nil
}

// Restore seeds the cart from a previously persisted snapshot. Used on
// session start as a cache ahead of the authoritative Load.
func (c *CartState) Restore(lines domain.CartLines) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if lines == nil {
		lines = domain.CartLines{}
	}
	c.lines = lines
}

// AddToCart merges or appends a line locally, then mirrors the add remotely.
// The remote call always carries the original pre-merge payload; the backend
// applies its own merge semantics. The remote outcome does not roll back the
// local change.
func (c *CartState) AddToCart(ctx context.Context, line domain.CartLine) error {
	if line.ProductID == 0 {
		return apperrors.InvalidInput("product id is required")
	}
	if line.Price < 0 {
		return apperrors.InvalidInput("price must not be negative")
	}

	c.mu.Lock()
	if idx := c.lines.FindMerge(line.ProductID, line.Spec); idx >= 0 {
		c.lines[idx].Quantity++
	} else {
		added := line
		added.ID = c.ids.NextID()
		added.Quantity = 1
		added.Selected = true
		c.lines = append(c.lines, added)
	}
	c.mu.Unlock()

	if err := c.backend.CartAdd(ctx, line); err != nil {
		c.reportSyncFailure(ctx, "add to cart", err)
	}

	c.notifier.Success("已加入购物车")
	c.afterMutation(ctx, "add")
	return nil
}

// UpdateQuantity sets one line's quantity locally and mirrors it remotely, so
// local state matches server state even when the view layer retries.
func (c *CartState) UpdateQuantity(ctx context.Context, id int64, quantity int) error {
	if quantity < 1 {
		return apperrors.InvalidInput("quantity must be at least 1")
	}

	c.mu.Lock()
	idx := c.lines.FindID(id)
	if idx == -1 {
		c.mu.Unlock()
		return apperrors.NotFound("cart line", "")
	}
	c.lines[idx].Quantity = quantity
	c.mu.Unlock()

	if err := c.backend.CartUpdateQuantity(ctx, id, quantity); err != nil {
		c.reportSyncFailure(ctx, "update quantity", err)
	}

	c.afterMutation(ctx, "update_quantity")
	return nil
}

// SetSelected flips one line's selection flag. The local flip applies
// regardless of the remote outcome.
func (c *CartState) SetSelected(ctx context.Context, id int64, selected bool) error {
	c.mu.Lock()
	idx := c.lines.FindID(id)
	if idx == -1 {
		c.mu.Unlock()
		return apperrors.NotFound("cart line", "")
	}
	c.lines[idx].Selected = selected
	c.mu.Unlock()

	if err := c.backend.CartSetSelected(ctx, id, selected); err != nil {
		c.reportSyncFailure(ctx, "select line", err)
	}

	c.afterMutation(ctx, "select")
	return nil
}

// SetSelectAll flips every line's selection flag synchronously, then mirrors
// the flip remotely. A remote failure is reported but the local flip stands.
func (c *CartState) SetSelectAll(ctx context.Context, selected bool) error {
	c.mu.Lock()
	for i := range c.lines {
		c.lines[i].Selected = selected
	}
	c.mu.Unlock()

	if err := c.backend.CartSetSelectedAll(ctx, selected); err != nil {
		c.reportSyncFailure(ctx, "select all", err)
	}

	c.afterMutation(ctx, "select_all")
	return nil
}

// RemoveLine deletes one line remotely and filters it from the local
// collection regardless of the remote outcome.
func (c *CartState) RemoveLine(ctx context.Context, id int64) error {
	if err := c.backend.CartRemove(ctx, id); err != nil {
		c.reportSyncFailure(ctx, "remove line", err)
	}

	c.mu.Lock()
	out := c.lines[:0]
	for _, l := range c.lines {
		if l.ID != id {
			out = append(out, l)
		}
	}
	c.lines = out
	c.mu.Unlock()

	c.afterMutation(ctx, "remove")
	return nil
}

// RemoveSelected deletes every selected line remotely and locally. A no-op
// when nothing is selected.
func (c *CartState) RemoveSelected(ctx context.Context) error {
	c.mu.Lock()
	ids := make([]int64, 0, len(c.lines))
	for _, l := range c.lines {
		if l.Selected {
			ids = append(ids, l.ID)
		}
	}
	c.mu.Unlock()

	if len(ids) == 0 {
		return nil
	}

	if err := c.backend.CartRemoveBatch(ctx, ids); err != nil {
		c.reportSyncFailure(ctx, "remove selected", err)
	}

	c.mu.Lock()
	out := c.lines[:0]
	for _, l := range c.lines {
		if !l.Selected {
			out = append(out, l)
		}
	}
	c.lines = out
	c.mu.Unlock()

	c.afterMutation(ctx, "remove_selected")
	return nil
}

// RemoveLines deletes the listed lines remotely and locally. Ids no longer in
// the cart are skipped; a no-op, including the remote call, when none remain.
func (c *CartState) RemoveLines(ctx context.Context, ids []int64) error {
	c.mu.Lock()
	present := make([]int64, 0, len(ids))
	for _, id := range ids {
		if c.lines.FindID(id) >= 0 {
			present = append(present, id)
		}
	}
	c.mu.Unlock()

	if len(present) == 0 {
		return nil
	}

	if err := c.backend.CartRemoveBatch(ctx, present); err != nil {
		c.reportSyncFailure(ctx, "remove lines", err)
	}

	drop := make(map[int64]struct{}, len(present))
	for _, id := range present {
		drop[id] = struct{}{}
	}

	c.mu.Lock()
	out := c.lines[:0]
	for _, l := range c.lines {
		if _, ok := drop[l.ID]; !ok {
			out = append(out, l)
		}
	}
	c.lines = out
	c.mu.Unlock()

	c.afterMutation(ctx, "remove_lines")
	return nil
}

// Clear empties the cart remotely and locally.
func (c *CartState) Clear(ctx context.Context) error {
	if err := c.backend.CartClear(ctx); err != nil {
		c.reportSyncFailure(ctx, "clear cart", err)
	}

	c.mu.Lock()
	c.lines = domain.CartLines{}
	c.mu.Unlock()

	c.persist(ctx)
	if c.events != nil {
		if err := c.events.PublishCartCleared(ctx, c.sessionID); err != nil {
			c.logger.ErrorContext(ctx, "failed to publish cart.cleared event",
				slog.String("session_id", c.sessionID),
				slog.String("error", err.Error()),
			)
		}
	}
	return nil
}

// Checkout snapshots the selected lines, hands the copy to the order pipeline,
// drops them from the cart, and signals navigation to the checkout flow. Fails
// with a validation message when nothing is selected; the cart is untouched in
// that case.
func (c *CartState) Checkout(ctx context.Context, orders *OrderState, nav Navigator) error {
	c.mu.Lock()
	staged := c.lines.Selected()
	c.mu.Unlock()

	if len(staged) == 0 {
		c.notifier.Warning("请先选择要结算的商品")
		return apperrors.InvalidInput("no lines selected for checkout")
	}

	orders.StageItems(staged)

	if err := c.RemoveSelected(ctx); err != nil {
		return err
	}

	c.afterMutation(ctx, "checkout")
	nav.NavigateTo(RouteCheckout)
	return nil
}

// Lines returns a copy of the live collection.
func (c *CartState) Lines() domain.CartLines {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lines.Clone()
}

// SelectedCount returns the number of selected lines.
func (c *CartState) SelectedCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lines.SelectedCount()
}

// TotalQuantity returns the summed quantity over selected lines.
func (c *CartState) TotalQuantity() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lines.TotalQuantity()
}

// TotalAmount returns the summed price*quantity over selected lines, in cents.
func (c *CartState) TotalAmount() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lines.TotalAmount()
}

// SelectAll reports whether the cart is non-empty with every line selected.
func (c *CartState) SelectAll() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lines.AllSelected()
}

// reportSyncFailure logs and notifies a failed remote mirror call. The local
// optimistic state is left as-is; it reconciles on the next Load.
func (c *CartState) reportSyncFailure(ctx context.Context, action string, err error) {
	c.logger.ErrorContext(ctx, "cart sync failed",
		slog.String("session_id", c.sessionID),
		slog.String("action", action),
		slog.String("error", err.Error()),
	)
	c.notifier.Error("操作失败，请稍后重试")
}

// afterMutation persists the snapshot and publishes the cart.updated event.
func (c *CartState) afterMutation(ctx context.Context, action string) {
	c.persist(ctx)

	if c.events == nil {
		return
	}
	c.mu.Lock()
	lines := c.lines.Clone()
	c.mu.Unlock()
	if err := c.events.PublishCartUpdated(ctx, c.sessionID, action, lines); err != nil {
		c.logger.ErrorContext(ctx, "failed to publish cart.updated event",
			slog.String("session_id", c.sessionID),
			slog.String("action", action),
			slog.String("error", err.Error()),
		)
	}
}

func (c *CartState) persist(ctx context.Context) {
	if c.snapshots == nil {
		return
	}
	c.mu.Lock()
	lines := c.lines.Clone()
	c.mu.Unlock()
	if err := c.snapshots.SaveCart(ctx, c.sessionID, lines); err != nil {
		c.logger.WarnContext(ctx, "failed to persist cart snapshot",
			slog.String("session_id", c.sessionID),
			slog.String("error", err.Error()),
		)
	}
}
