package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/puremall/storefront/internal/domain"
	"github.com/puremall/storefront/pkg/logger"
)

func TestAddToCart_MergesOnProductAndSpec(t *testing.T) {
	be := newFakeBackend()
	cart, _ := newTestCart(be)
	ctx := context.Background()

	line := domain.CartLine{ProductID: 1, Spec: "红色", Name: "水杯", Price: 100}
	require.NoError(t, cart.AddToCart(ctx, line))
	require.NoError(t, cart.AddToCart(ctx, line))

	lines := cart.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 2, lines[0].Quantity)
	assert.True(t, lines[0].Selected)
	assert.Equal(t, int64(200), cart.TotalAmount())

	// Both adds reach the backend with the original pre-merge payload.
	assert.Equal(t, 2, be.callCount("CartAdd"))
	require.Len(t, be.addPay, 2)
	assert.Equal(t, line.ProductID, be.addPay[1].ProductID)
	assert.Equal(t, line.Spec, be.addPay[1].Spec)
}

func TestAddToCart_DifferentSpecIsNewLine(t *testing.T) {
	be := newFakeBackend()
	cart, _ := newTestCart(be)
	ctx := context.Background()

	require.NoError(t, cart.AddToCart(ctx, domain.CartLine{ProductID: 1, Spec: "红色", Price: 100}))
	require.NoError(t, cart.AddToCart(ctx, domain.CartLine{ProductID: 1, Spec: "蓝色", Price: 100}))

	lines := cart.Lines()
	require.Len(t, lines, 2)
	assert.NotEqual(t, lines[0].ID, lines[1].ID)
}

func TestAddToCart_RemoteFailureKeepsLocalChange(t *testing.T) {
	be := newFakeBackend()
	be.failWith("CartAdd", errors.New("backend down"))
	cart, feed := newTestCart(be)

	require.NoError(t, cart.AddToCart(context.Background(), domain.CartLine{ProductID: 7, Price: 50}))

	assert.Len(t, cart.Lines(), 1)
	messages, _ := feed.Drain()
	require.NotEmpty(t, messages)
	assert.Equal(t, LevelError, messages[0].Level)
}

func TestAddToCart_Validation(t *testing.T) {
	cart, _ := newTestCart(newFakeBackend())

	assert.Error(t, cart.AddToCart(context.Background(), domain.CartLine{ProductID: 0}))
	assert.Error(t, cart.AddToCart(context.Background(), domain.CartLine{ProductID: 1, Price: -1}))
	assert.Empty(t, cart.Lines())
}

func TestLoad_ReplacesWholesale(t *testing.T) {
	be := newFakeBackend()
	be.listResult = domain.CartLines{
		{ID: 11, ProductID: 1, Price: 100, Quantity: 1, Selected: true},
	}
	cart, _ := newTestCart(be)
	cart.Restore(domain.CartLines{{ID: 99, ProductID: 9, Price: 1, Quantity: 3, Selected: true}})

	require.NoError(t, cart.Load(context.Background()))

	lines := cart.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, int64(11), lines[0].ID)
}

func TestLoad_FailureKeepsPreviousState(t *testing.T) {
	be := newFakeBackend()
	be.failWith("CartList", errors.New("timeout"))
	cart, feed := newTestCart(be)
	cart.Restore(domain.CartLines{{ID: 99, ProductID: 9, Price: 100, Quantity: 1, Selected: true}})

	require.Error(t, cart.Load(context.Background()))

	lines := cart.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, int64(99), lines[0].ID)
	messages, _ := feed.Drain()
	assert.NotEmpty(t, messages)
}

func TestUpdateQuantity(t *testing.T) {
	be := newFakeBackend()
	cart, _ := newTestCart(be)
	ctx := context.Background()
	require.NoError(t, cart.AddToCart(ctx, domain.CartLine{ProductID: 1, Price: 100}))
	id := cart.Lines()[0].ID

	require.NoError(t, cart.UpdateQuantity(ctx, id, 5))
	assert.Equal(t, 5, cart.Lines()[0].Quantity)
	assert.Equal(t, 1, be.callCount("CartUpdateQuantity"))

	assert.Error(t, cart.UpdateQuantity(ctx, id, 0))
	assert.Error(t, cart.UpdateQuantity(ctx, 12345, 2))
}

func TestSetSelectAll_AppliesDespiteRemoteFailure(t *testing.T) {
	be := newFakeBackend()
	be.failWith("CartSetSelectedAll", errors.New("backend down"))
	cart, feed := newTestCart(be)
	ctx := context.Background()
	require.NoError(t, cart.AddToCart(ctx, domain.CartLine{ProductID: 1, Price: 100}))
	require.NoError(t, cart.AddToCart(ctx, domain.CartLine{ProductID: 2, Price: 100}))
	require.NoError(t, cart.SetSelected(ctx, cart.Lines()[0].ID, false))

	assert.False(t, cart.SelectAll())

	require.NoError(t, cart.SetSelectAll(ctx, true))
	assert.True(t, cart.SelectAll())

	messages, _ := feed.Drain()
	assert.NotEmpty(t, messages)
}

func TestDerivedTotalsIgnoreUnselected(t *testing.T) {
	cart, _ := newTestCart(newFakeBackend())
	ctx := context.Background()
	require.NoError(t, cart.AddToCart(ctx, domain.CartLine{ProductID: 1, Price: 100}))
	require.NoError(t, cart.AddToCart(ctx, domain.CartLine{ProductID: 2, Price: 500}))
	require.NoError(t, cart.SetSelected(ctx, cart.Lines()[1].ID, false))

	assert.Equal(t, 1, cart.SelectedCount())
	assert.Equal(t, 1, cart.TotalQuantity())
	assert.Equal(t, int64(100), cart.TotalAmount())
}

func TestRemoveSelected_FiltersDespiteRemoteFailure(t *testing.T) {
	be := newFakeBackend()
	be.failWith("CartRemoveBatch", errors.New("backend down"))
	cart, _ := newTestCart(be)
	ctx := context.Background()
	require.NoError(t, cart.AddToCart(ctx, domain.CartLine{ProductID: 1, Price: 100}))
	require.NoError(t, cart.AddToCart(ctx, domain.CartLine{ProductID: 2, Price: 100}))
	require.NoError(t, cart.SetSelected(ctx, cart.Lines()[1].ID, false))

	require.NoError(t, cart.RemoveSelected(ctx))

	lines := cart.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, int64(2), lines[0].ProductID)
}

func TestRemoveSelected_NoopWhenNothingSelected(t *testing.T) {
	be := newFakeBackend()
	cart, _ := newTestCart(be)
	ctx := context.Background()
	require.NoError(t, cart.AddToCart(ctx, domain.CartLine{ProductID: 1, Price: 100}))
	require.NoError(t, cart.SetSelected(ctx, cart.Lines()[0].ID, false))

	require.NoError(t, cart.RemoveSelected(ctx))

	assert.Len(t, cart.Lines(), 1)
	assert.Equal(t, 0, be.callCount("CartRemoveBatch"))
}

func TestClear(t *testing.T) {
	be := newFakeBackend()
	cart, _ := newTestCart(be)
	ctx := context.Background()
	require.NoError(t, cart.AddToCart(ctx, domain.CartLine{ProductID: 1, Price: 100}))

	require.NoError(t, cart.Clear(ctx))

	assert.Empty(t, cart.Lines())
	assert.Equal(t, 1, be.callCount("CartClear"))
}

func TestRemoveLines_SkipsAbsentIDs(t *testing.T) {
	be := newFakeBackend()
	cart, _ := newTestCart(be)
	ctx := context.Background()
	require.NoError(t, cart.AddToCart(ctx, domain.CartLine{ProductID: 1, Price: 100}))
	id := cart.Lines()[0].ID

	// No matching line means no remote call either.
	require.NoError(t, cart.RemoveLines(ctx, []int64{id + 50}))
	assert.Len(t, cart.Lines(), 1)
	assert.Equal(t, 0, be.callCount("CartRemoveBatch"))

	require.NoError(t, cart.RemoveLines(ctx, []int64{id, id + 50}))
	assert.Empty(t, cart.Lines())
	require.Len(t, be.batched, 1)
	assert.Equal(t, []int64{id}, be.batched[0])
}

func TestCheckout_NothingSelected(t *testing.T) {
	be := newFakeBackend()
	cart, feed := newTestCart(be)
	orders, _ := newTestOrders(be)
	ctx := context.Background()
	require.NoError(t, cart.AddToCart(ctx, domain.CartLine{ProductID: 1, Price: 100}))
	require.NoError(t, cart.SetSelected(ctx, cart.Lines()[0].ID, false))

	nav := NewFeed()
	err := cart.Checkout(ctx, orders, nav)
	require.Error(t, err)

	assert.Len(t, cart.Lines(), 1)
	assert.Empty(t, orders.StagedItems())
	_, routes := nav.Drain()
	assert.Empty(t, routes)
	messages, _ := feed.Drain()
	assert.NotEmpty(t, messages)
}

func TestCheckout_StagesSelectedAndNavigates(t *testing.T) {
	be := newFakeBackend()
	cart, _ := newTestCart(be)
	orders, _ := newTestOrders(be)
	ctx := context.Background()
	require.NoError(t, cart.AddToCart(ctx, domain.CartLine{ProductID: 1, Spec: "红色", Price: 100}))
	require.NoError(t, cart.AddToCart(ctx, domain.CartLine{ProductID: 2, Price: 300}))
	require.NoError(t, cart.SetSelected(ctx, cart.Lines()[1].ID, false))

	nav := NewFeed()
	require.NoError(t, cart.Checkout(ctx, orders, nav))

	staged := orders.StagedItems()
	require.Len(t, staged, 1)
	assert.Equal(t, int64(1), staged[0].ProductID)

	// The selected line is gone from the cart, both locally and remotely.
	lines := cart.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, int64(2), lines[0].ProductID)
	assert.Equal(t, 1, be.callCount("CartRemoveBatch"))

	_, routes := nav.Drain()
	require.Len(t, routes, 1)
	assert.Equal(t, RouteCheckout, routes[0])
}

func TestCheckout_StagedSnapshotIsolation(t *testing.T) {
	be := newFakeBackend()
	cart, _ := newTestCart(be)
	orders, _ := newTestOrders(be)
	ctx := context.Background()
	require.NoError(t, cart.AddToCart(ctx, domain.CartLine{ProductID: 1, Price: 100}))

	require.NoError(t, cart.Checkout(ctx, orders, NewFeed()))
	require.NoError(t, cart.AddToCart(ctx, domain.CartLine{ProductID: 1, Price: 100}))
	require.NoError(t, cart.UpdateQuantity(ctx, cart.Lines()[0].ID, 9))

	staged := orders.StagedItems()
	require.Len(t, staged, 1)
	assert.Equal(t, 1, staged[0].Quantity)
}

func TestCartEventsPublishedAfterMutation(t *testing.T) {
	be := newFakeBackend()
	events := &recordingCartEvents{}
	cart := NewCartState("u1", be, nil, events, NewFeed(), &fixedIDs{}, logger.New("store-test", "error"))

	require.NoError(t, cart.AddToCart(context.Background(), domain.CartLine{ProductID: 1, Price: 100}))
	require.NoError(t, cart.Clear(context.Background()))

	assert.Equal(t, []string{"add"}, events.actions)
	assert.Equal(t, 1, events.cleared)
}

type recordingCartEvents struct {
	actions []string
	cleared int
}

func (r *recordingCartEvents) PublishCartUpdated(_ context.Context, _, action string, _ domain.CartLines) error {
	r.actions = append(r.actions, action)
	return nil
}

func (r *recordingCartEvents) PublishCartCleared(context.Context, string) error {
	r.cleared++
	return nil
}
