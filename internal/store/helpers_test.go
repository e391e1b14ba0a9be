package store

import (
	"context"
	"sync"

	"github.com/puremall/storefront/internal/backend"
	"github.com/puremall/storefront/internal/domain"
	apperrors "github.com/puremall/storefront/pkg/errors"
	"github.com/puremall/storefront/pkg/logger"
)

// fakeBackend records every call and can be told to fail specific methods.
type fakeBackend struct {
	mu      sync.Mutex
	calls   []string
	fail    map[string]error
	addPay  []domain.CartLine
	batched [][]int64

	listResult  domain.CartLines
	loginResult *backend.LoginResult
	addressBook domain.AddressBook
	savedOrders []*domain.Order
	wishlist    domain.Wishlist
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{fail: make(map[string]error)}
}

func (f *fakeBackend) failWith(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[method] = err
}

func (f *fakeBackend) record(method string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, method)
	return f.fail[method]
}

func (f *fakeBackend) callCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int
	for _, c := range f.calls {
		if c == method {
			n++
		}
	}
	return n
}

func (f *fakeBackend) CartList(context.Context) (domain.CartLines, error) {
	if err := f.record("CartList"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listResult.Clone(), nil
}

func (f *fakeBackend) CartAdd(_ context.Context, line domain.CartLine) error {
	err := f.record("CartAdd")
	f.mu.Lock()
	f.addPay = append(f.addPay, line)
	f.mu.Unlock()
	return err
}

func (f *fakeBackend) CartUpdateQuantity(context.Context, int64, int) error {
	return f.record("CartUpdateQuantity")
}

func (f *fakeBackend) CartSetSelected(context.Context, int64, bool) error {
	return f.record("CartSetSelected")
}

func (f *fakeBackend) CartSetSelectedAll(context.Context, bool) error {
	return f.record("CartSetSelectedAll")
}

func (f *fakeBackend) CartRemove(context.Context, int64) error {
	return f.record("CartRemove")
}

func (f *fakeBackend) CartRemoveBatch(_ context.Context, ids []int64) error {
	err := f.record("CartRemoveBatch")
	f.mu.Lock()
	f.batched = append(f.batched, ids)
	f.mu.Unlock()
	return err
}

func (f *fakeBackend) CartClear(context.Context) error {
	return f.record("CartClear")
}

func (f *fakeBackend) OrderCreate(_ context.Context, order *domain.Order) error {
	err := f.record("OrderCreate")
	if err == nil {
		f.mu.Lock()
		cp := *order
		f.savedOrders = append(f.savedOrders, &cp)
		f.mu.Unlock()
	}
	return err
}

func (f *fakeBackend) OrderGet(context.Context, string) (*domain.Order, error) {
	if err := f.record("OrderGet"); err != nil {
		return nil, err
	}
	return &domain.Order{}, nil
}

func (f *fakeBackend) OrderCancel(context.Context, string) error {
	return f.record("OrderCancel")
}

func (f *fakeBackend) OrderDelete(context.Context, string) error {
	return f.record("OrderDelete")
}

func (f *fakeBackend) Login(context.Context, string, string) (*backend.LoginResult, error) {
	if err := f.record("Login"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loginResult == nil {
		return &backend.LoginResult{Token: "mall-token", UserID: "u1", Username: "alice"}, nil
	}
	return f.loginResult, nil
}

func (f *fakeBackend) AddressList(context.Context) (domain.AddressBook, error) {
	if err := f.record("AddressList"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(domain.AddressBook, len(f.addressBook))
	copy(out, f.addressBook)
	return out, nil
}

func (f *fakeBackend) AddressCreate(_ context.Context, addr domain.Address) (*domain.Address, error) {
	if err := f.record("AddressCreate"); err != nil {
		return nil, err
	}
	addr.ID = int64(100 + len(f.addressBook))
	return &addr, nil
}

func (f *fakeBackend) AddressDelete(context.Context, int64) error {
	return f.record("AddressDelete")
}

func (f *fakeBackend) AddressSetDefault(context.Context, int64) error {
	return f.record("AddressSetDefault")
}

func (f *fakeBackend) Register(context.Context, backend.Registration) error {
	return f.record("Register")
}

func (f *fakeBackend) WishlistList(context.Context) (domain.Wishlist, error) {
	if err := f.record("WishlistList"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(domain.Wishlist, len(f.wishlist))
	copy(out, f.wishlist)
	return out, nil
}

func (f *fakeBackend) WishlistAdd(_ context.Context, productID int64) error {
	err := f.record("WishlistAdd")
	if err == nil {
		f.mu.Lock()
		f.wishlist = append(f.wishlist, domain.WishlistItem{
			ID:        int64(500 + len(f.wishlist)),
			ProductID: productID,
		})
		f.mu.Unlock()
	}
	return err
}

func (f *fakeBackend) WishlistRemove(_ context.Context, productID int64) error {
	err := f.record("WishlistRemove")
	if err == nil {
		f.mu.Lock()
		out := f.wishlist[:0]
		for _, item := range f.wishlist {
			if item.ProductID != productID {
				out = append(out, item)
			}
		}
		f.wishlist = out
		f.mu.Unlock()
	}
	return err
}

// memSnapshots is an in-memory SnapshotStore.
type memSnapshots struct {
	mu      sync.Mutex
	carts   map[string]domain.CartLines
	orders  map[string][]domain.Order
	current map[string]*domain.Order
}

func newMemSnapshots() *memSnapshots {
	return &memSnapshots{
		carts:   make(map[string]domain.CartLines),
		orders:  make(map[string][]domain.Order),
		current: make(map[string]*domain.Order),
	}
}

func (m *memSnapshots) LoadCart(_ context.Context, sessionID string) (domain.CartLines, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lines, ok := m.carts[sessionID]
	if !ok {
		return nil, apperrors.NotFound("cart snapshot", sessionID)
	}
	return lines.Clone(), nil
}

func (m *memSnapshots) SaveCart(_ context.Context, sessionID string, lines domain.CartLines) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.carts[sessionID] = lines.Clone()
	return nil
}

func (m *memSnapshots) LoadCurrentOrder(_ context.Context, sessionID string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.current[sessionID]
	if !ok {
		return nil, apperrors.NotFound("order snapshot", sessionID)
	}
	cp := *order
	return &cp, nil
}

func (m *memSnapshots) SaveCurrentOrder(_ context.Context, sessionID string, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *order
	m.current[sessionID] = &cp
	return nil
}

func (m *memSnapshots) LoadOrders(_ context.Context, sessionID string) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	orders, ok := m.orders[sessionID]
	if !ok {
		return nil, apperrors.NotFound("orders snapshot", sessionID)
	}
	out := make([]domain.Order, len(orders))
	copy(out, orders)
	return out, nil
}

func (m *memSnapshots) SaveOrders(_ context.Context, sessionID string, orders []domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]domain.Order, len(orders))
	copy(cp, orders)
	m.orders[sessionID] = cp
	return nil
}

func (m *memSnapshots) Clear(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, sessionID)
	delete(m.orders, sessionID)
	delete(m.current, sessionID)
	return nil
}

// fixedIDs yields deterministic ids for tests.
type fixedIDs struct {
	mu   sync.Mutex
	next int64
}

func (f *fixedIDs) NextID() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	return f.next
}

func (f *fixedIDs) NextOrderNumber() string {
	return "PO1700000000000123"
}

func newTestCart(be *fakeBackend) (*CartState, *Feed) {
	feed := NewFeed()
	cart := NewCartState("u1", be, newMemSnapshots(), nil, feed, &fixedIDs{}, logger.New("store-test", "error"))
	return cart, feed
}

func newTestOrders(be *fakeBackend) (*OrderState, *Feed) {
	feed := NewFeed()
	orders := NewOrderState("u1", "u1", be, newMemSnapshots(), nil, feed, &fixedIDs{}, logger.New("store-test", "error"))
	orders.paymentRedirectDelay = 0
	return orders, feed
}

func newTestWishlist(be *fakeBackend) (*WishlistState, *Feed) {
	feed := NewFeed()
	wishlist := NewWishlistState("u1", be, feed, logger.New("store-test", "error"))
	return wishlist, feed
}
