package store

import (
	"context"

	"github.com/puremall/storefront/internal/domain"
)

// View routes the stores navigate to. The view layer maps these to its own
// screens; the stores only signal intent.
const (
	RouteCheckout      = "checkout"
	RoutePayment       = "payment"
	RouteOrderComplete = "order-complete"
	RouteOrders        = "orders"
	RouteLogin         = "login"
)

// Notifier surfaces user-visible messages. Remote failures are reported here
// and logged; they never propagate as panics into the view layer.
type Notifier interface {
	Success(message string)
	Error(message string)
	Warning(message string)
}

// Navigator receives navigation signals from the stores.
type Navigator interface {
	NavigateTo(route string)
}

// NopNotifier discards all messages. Useful when a session runs headless.
type NopNotifier struct{}

func (NopNotifier) Success(string) {}
func (NopNotifier) Error(string)   {}
func (NopNotifier) Warning(string) {}

// NopNavigator discards navigation signals.
type NopNavigator struct{}

func (NopNavigator) NavigateTo(string) {}

// SnapshotStore persists per-session working state between requests. It is a
// cache; failures to persist are logged and never fail the shopper's action.
type SnapshotStore interface {
	LoadCart(ctx context.Context, sessionID string) (domain.CartLines, error)
	SaveCart(ctx context.Context, sessionID string, lines domain.CartLines) error
	LoadCurrentOrder(ctx context.Context, sessionID string) (*domain.Order, error)
	SaveCurrentOrder(ctx context.Context, sessionID string, order *domain.Order) error
	LoadOrders(ctx context.Context, sessionID string) ([]domain.Order, error)
	SaveOrders(ctx context.Context, sessionID string, orders []domain.Order) error
	Clear(ctx context.Context, sessionID string) error
}
