package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/puremall/storefront/internal/domain"
	apperrors "github.com/puremall/storefront/pkg/errors"
	"github.com/puremall/storefront/pkg/validator"
)

// OrderBackend is the slice of the mall backend the order pipeline talks to.
type OrderBackend interface {
	OrderCreate(ctx context.Context, order *domain.Order) error
	OrderGet(ctx context.Context, orderNumber string) (*domain.Order, error)
	OrderCancel(ctx context.Context, orderNumber string) error
	OrderDelete(ctx context.Context, orderNumber string) error
	AddressList(ctx context.Context) (domain.AddressBook, error)
	AddressCreate(ctx context.Context, addr domain.Address) (*domain.Address, error)
	AddressDelete(ctx context.Context, id int64) error
	AddressSetDefault(ctx context.Context, id int64) error
}

// OrderEvents publishes order lifecycle events.
type OrderEvents interface {
	PublishOrderCreated(ctx context.Context, sessionID string, order *domain.Order) error
	PublishOrderPaid(ctx context.Context, sessionID string, order *domain.Order) error
	PublishOrderCancelled(ctx context.Context, sessionID string, order *domain.Order) error
	PublishOrderDeleted(ctx context.Context, sessionID string, order *domain.Order) error
}

// defaultPaymentRedirectDelay keeps the "processing" notification visible
// before the order-complete navigation fires.
const defaultPaymentRedirectDelay = 1500 * time.Millisecond

// OrderState drives the checkout pipeline for one session: address choice,
// delivery and payment options, order creation, payment, and the local order
// history. It consumes snapshots of the cart's selected lines; an order never
// shares memory with the live cart.
type OrderState struct {
	mu            sync.Mutex
	staged        domain.CartLines
	addresses     domain.AddressBook
	deliveryValue string
	paymentValue  string
	cardForm      domain.CardForm
	remark        string
	currentOrder  *domain.Order
	orders        []domain.Order

	sessionID string
	userID    string
	backend   OrderBackend
	snapshots SnapshotStore
	events    OrderEvents
	notifier  Notifier
	ids       IDSource
	logger    *slog.Logger
	now       func() time.Time

	paymentRedirectDelay time.Duration
}

// NewOrderState creates the order container for one session.
func NewOrderState(sessionID, userID string, backend OrderBackend, snapshots SnapshotStore, events OrderEvents, notifier Notifier, ids IDSource, logger *slog.Logger) *OrderState {
	return &OrderState{
		staged:               domain.CartLines{},
		deliveryValue:        domain.DeliveryStandard,
		paymentValue:         domain.PaymentAlipay,
		sessionID:            sessionID,
		userID:               userID,
		backend:              backend,
		snapshots:            snapshots,
		events:               events,
		notifier:             notifier,
		ids:                  ids,
		logger:               logger,
		now:                  time.Now,
		paymentRedirectDelay: defaultPaymentRedirectDelay,
	}
}

// StageItems receives the checkout handoff from the cart: a deep copy of the
// selected lines. Mutating the cart afterwards does not reach the staged set.
func (o *OrderState) StageItems(lines domain.CartLines) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.staged = lines.Clone()
}

// StagedItems returns a copy of the staged checkout lines.
func (o *OrderState) StagedItems() domain.CartLines {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.staged.Clone()
}

// SetDeliveryMethod selects a delivery option by value.
func (o *OrderState) SetDeliveryMethod(value string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.deliveryValue = value
}

// SetPaymentMethod selects a payment option by value.
func (o *OrderState) SetPaymentMethod(value string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.paymentValue = value
}

// SetCardForm stores the credit-card form as entered so far. Validated only
// at payment completion.
func (o *OrderState) SetCardForm(form domain.CardForm) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.cardForm = form
}

// SetRemark stores the shopper's order remark.
func (o *OrderState) SetRemark(remark string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.remark = remark
}

// LoadAddresses fetches the address book from the backend.
func (o *OrderState) LoadAddresses(ctx context.Context) error {
	book, err := o.backend.AddressList(ctx)
	if err != nil {
		o.logger.ErrorContext(ctx, "failed to load addresses",
			slog.String("session_id", o.sessionID),
			slog.String("error", err.Error()),
		)
		o.notifier.Error("获取收货地址失败")
		return err
	}

	o.mu.Lock()
	o.addresses = book
	o.mu.Unlock()
	return nil
}

// AddAddress creates an address remotely and reflects it locally with the
// backend-assigned id.
func (o *OrderState) AddAddress(ctx context.Context, addr domain.Address) error {
	created, err := o.backend.AddressCreate(ctx, addr)
	if err != nil {
		o.logger.ErrorContext(ctx, "failed to add address",
			slog.String("session_id", o.sessionID),
			slog.String("error", err.Error()),
		)
		o.notifier.Error("保存收货地址失败")
		return err
	}

	o.mu.Lock()
	if created.IsDefault {
		for i := range o.addresses {
			o.addresses[i].IsDefault = false
		}
	}
	o.addresses = append(o.addresses, *created)
	o.mu.Unlock()
	return nil
}

// DeleteAddress removes an address remotely; local removal only on confirmed
// success.
func (o *OrderState) DeleteAddress(ctx context.Context, id int64) error {
	if err := o.backend.AddressDelete(ctx, id); err != nil {
		o.logger.ErrorContext(ctx, "failed to delete address",
			slog.String("session_id", o.sessionID),
			slog.Int64("address_id", id),
			slog.String("error", err.Error()),
		)
		o.notifier.Error("删除收货地址失败")
		return err
	}

	o.mu.Lock()
	out := o.addresses[:0]
	for _, a := range o.addresses {
		if a.ID != id {
			out = append(out, a)
		}
	}
	o.addresses = out
	o.mu.Unlock()
	return nil
}

// SetDefaultAddress marks one address as the default. The local reflect flips
// every flag in a single pass so two defaults are never observable.
func (o *OrderState) SetDefaultAddress(ctx context.Context, id int64) error {
	if err := o.backend.AddressSetDefault(ctx, id); err != nil {
		o.logger.ErrorContext(ctx, "failed to set default address",
			slog.String("session_id", o.sessionID),
			slog.Int64("address_id", id),
			slog.String("error", err.Error()),
		)
		o.notifier.Error("设置默认地址失败")
		return err
	}

	o.mu.Lock()
	ok := o.addresses.SetDefault(id)
	o.mu.Unlock()
	if !ok {
		return apperrors.NotFound("address", "")
	}
	return nil
}

// Addresses returns a copy of the address book.
func (o *OrderState) Addresses() domain.AddressBook {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make(domain.AddressBook, len(o.addresses))
	copy(out, o.addresses)
	return out
}

// CreateOrder builds a new pending order from the staged lines: address
// resolved explicit id, else default, else first; orderAmount frozen as
// subtotal plus the delivery fee at creation. Fails without side effects when
// the address book is empty. The order becomes the session's current order.
func (o *OrderState) CreateOrder(ctx context.Context, selectedAddressID int64) (*domain.Order, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	addr := o.addresses.Resolve(selectedAddressID)
	if addr == nil {
		o.logger.WarnContext(ctx, "order creation without any address",
			slog.String("session_id", o.sessionID),
		)
		o.notifier.Error("请先添加收货地址")
		return nil, apperrors.InvalidInput("no shipping address available")
	}

	subtotal := o.staged.TotalAmount()
	fee := domain.DeliveryFee(o.deliveryValue)

	order := &domain.Order{
		OrderNumber:     o.ids.NextOrderNumber(),
		UserID:          o.userID,
		OrderTime:       o.now(),
		OrderAmount:     subtotal + fee,
		PaymentMethod:   o.paymentValue,
		Status:          domain.OrderStatusPending,
		ReceiverName:    addr.Name,
		ReceiverPhone:   addr.Phone,
		ReceiverAddress: addr.Receiver(),
		Remark:          o.remark,
		Items:           domain.SnapshotItems(o.staged),
	}

	o.currentOrder = order
	return order, nil
}

// ProceedToPayment runs the checkout step: creates the order, appends it to
// the session's order list, signals navigation to payment, and instructs the
// cart to drop exactly the lines the order snapshotted. Lines added to the
// cart after checkout are left alone. Returns the created order.
func (o *OrderState) ProceedToPayment(ctx context.Context, selectedAddressID int64, cart *CartState, nav Navigator) (*domain.Order, error) {
	if o.DefaultAddress() == nil && selectedAddressID == 0 {
		o.notifier.Error("请选择收货地址")
		return nil, apperrors.InvalidInput("no shipping address selected")
	}

	order, err := o.CreateOrder(ctx, selectedAddressID)
	if err != nil {
		return nil, err
	}

	o.mu.Lock()
	o.orders = append(o.orders, *order)
	o.mu.Unlock()

	o.persist(ctx)
	o.publishOrderEvent(ctx, "created", order)

	nav.NavigateTo(RoutePayment)

	if cart != nil {
		ids := make([]int64, 0, len(order.Items))
		for _, item := range order.Items {
			ids = append(ids, item.ID)
		}
		if err := cart.RemoveLines(ctx, ids); err != nil {
			o.logger.WarnContext(ctx, "failed to drop ordered lines from cart",
				slog.String("session_id", o.sessionID),
				slog.String("error", err.Error()),
			)
		}
	}

	return order, nil
}

// CompletePayment transitions the current order pending→paid. A creditcard
// payment requires all five card-form fields first; validation failure leaves
// the order untouched. Remote persistence failure after the local transition
// is order-at-risk: the shopper is redirected to the order list instead of
// the completion screen.
func (o *OrderState) CompletePayment(ctx context.Context, nav Navigator) error {
	o.mu.Lock()
	order := o.currentOrder
	if order == nil {
		o.mu.Unlock()
		return apperrors.InvalidInput("no order awaiting payment")
	}

	if o.paymentValue == domain.PaymentCreditCard {
		if err := validator.Validate(o.cardForm); err != nil {
			o.mu.Unlock()
			o.notifier.Error("请完整填写信用卡信息")
			return apperrors.InvalidInput("card form incomplete: " + err.Error())
		}
	}

	if !order.CanTransitionTo(domain.OrderStatusPaid) {
		o.mu.Unlock()
		return apperrors.Conflict("order is not awaiting payment")
	}

	order.Status = domain.OrderStatusPaid
	order.PaymentTime = o.now()
	order.PaymentMethod = domain.PaymentMethodLabel(o.paymentValue)
	o.syncOrderListLocked(order)
	o.mu.Unlock()

	o.notifier.Success("支付处理中")

	if err := o.backend.OrderCreate(ctx, order); err != nil {
		o.logger.ErrorContext(ctx, "failed to persist paid order",
			slog.String("session_id", o.sessionID),
			slog.String("order_number", order.OrderNumber),
			slog.String("error", err.Error()),
		)
		o.notifier.Error("订单保存失败，请在订单列表中确认")
		nav.NavigateTo(RouteOrders)
		return apperrors.PaymentFailed("order persistence failed")
	}

	o.persist(ctx)
	o.publishOrderEvent(ctx, "paid", order)

	delay := o.paymentRedirectDelay
	if delay <= 0 {
		nav.NavigateTo(RouteOrderComplete)
	} else {
		time.AfterFunc(delay, func() { nav.NavigateTo(RouteOrderComplete) })
	}
	return nil
}

// GetOrderByNumber is a pure lookup over the local order list. It never
// fetches remotely.
func (o *OrderState) GetOrderByNumber(orderNumber string) *domain.Order {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := range o.orders {
		if o.orders[i].OrderNumber == orderNumber {
			order := o.orders[i]
			return &order
		}
	}
	return nil
}

// Orders returns a copy of the local order list.
func (o *OrderState) Orders() []domain.Order {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]domain.Order, len(o.orders))
	copy(out, o.orders)
	return out
}

// CurrentOrder returns the order in checkout, if any.
func (o *OrderState) CurrentOrder() *domain.Order {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.currentOrder == nil {
		return nil
	}
	order := *o.currentOrder
	return &order
}

// DeleteOrder removes an order remotely; the local list changes only on
// confirmed success.
func (o *OrderState) DeleteOrder(ctx context.Context, orderNumber string) error {
	order := o.GetOrderByNumber(orderNumber)
	if order == nil {
		return apperrors.NotFound("order", orderNumber)
	}

	if err := o.backend.OrderDelete(ctx, orderNumber); err != nil {
		o.logger.ErrorContext(ctx, "failed to delete order",
			slog.String("session_id", o.sessionID),
			slog.String("order_number", orderNumber),
			slog.String("error", err.Error()),
		)
		o.notifier.Error("删除订单失败")
		return err
	}

	o.mu.Lock()
	out := o.orders[:0]
	for _, ord := range o.orders {
		if ord.OrderNumber != orderNumber {
			out = append(out, ord)
		}
	}
	o.orders = out
	if o.currentOrder != nil && o.currentOrder.OrderNumber == orderNumber {
		o.currentOrder = nil
	}
	o.mu.Unlock()

	o.persist(ctx)
	o.publishOrderEvent(ctx, "deleted", order)
	return nil
}

// CancelOrder cancels a pending or paid order remotely and reflects the
// cancellation locally on confirmed success.
func (o *OrderState) CancelOrder(ctx context.Context, orderNumber string) error {
	order := o.GetOrderByNumber(orderNumber)
	if order == nil {
		return apperrors.NotFound("order", orderNumber)
	}
	if !order.CanTransitionTo(domain.OrderStatusCancelled) {
		return apperrors.Conflict("order can no longer be cancelled")
	}

	if err := o.backend.OrderCancel(ctx, orderNumber); err != nil {
		o.logger.ErrorContext(ctx, "failed to cancel order",
			slog.String("session_id", o.sessionID),
			slog.String("order_number", orderNumber),
			slog.String("error", err.Error()),
		)
		o.notifier.Error("取消订单失败")
		return err
	}

	o.applyStatus(orderNumber, domain.OrderStatusCancelled)
	order.Status = domain.OrderStatusCancelled
	o.persist(ctx)
	o.publishOrderEvent(ctx, "cancelled", order)
	return nil
}

// ApplyRemoteStatus reflects a server-driven status change (shipped,
// delivered, cancelled). Transitions the table forbids are rejected.
func (o *OrderState) ApplyRemoteStatus(orderNumber, status string) error {
	order := o.GetOrderByNumber(orderNumber)
	if order == nil {
		return apperrors.NotFound("order", orderNumber)
	}
	if !order.CanTransitionTo(status) {
		return apperrors.Conflict("transition " + order.Status + " -> " + status + " is not allowed")
	}

	o.applyStatus(orderNumber, status)
	return nil
}

// StartCountdown opens the payment window for the current order. The caller
// owns the returned handle and must Stop it when the paying view goes away.
func (o *OrderState) StartCountdown(onTimeout func()) *Countdown {
	return StartCountdown(onTimeout)
}

// Subtotal sums price*quantity over the staged checkout lines.
func (o *OrderState) Subtotal() int64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	var total int64
	for _, l := range o.staged {
		total += l.Price * int64(l.Quantity)
	}
	return total
}

// DeliveryFee returns the fee of the currently selected delivery method.
// Unknown methods cost nothing.
func (o *OrderState) DeliveryFee() int64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return domain.DeliveryFee(o.deliveryValue)
}

// TotalAmount is the checkout total: subtotal plus delivery fee.
func (o *OrderState) TotalAmount() int64 {
	return o.Subtotal() + o.DeliveryFee()
}

// DefaultAddress returns the default address, the first when none is marked,
// or nil for an empty book.
func (o *OrderState) DefaultAddress() *domain.Address {
	o.mu.Lock()
	defer o.mu.Unlock()
	addr := o.addresses.Default()
	if addr == nil {
		return nil
	}
	out := *addr
	return &out
}

// Restore seeds the order history and in-flight order from a persisted
// snapshot on session start.
func (o *OrderState) Restore(orders []domain.Order, current *domain.Order) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if orders != nil {
		o.orders = orders
	}
	o.currentOrder = current
}

func (o *OrderState) applyStatus(orderNumber, status string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := range o.orders {
		if o.orders[i].OrderNumber == orderNumber {
			o.orders[i].Status = status
		}
	}
	if o.currentOrder != nil && o.currentOrder.OrderNumber == orderNumber {
		o.currentOrder.Status = status
	}
}

// syncOrderListLocked copies the current order's state back over its entry in
// the order list. Caller holds o.mu.
func (o *OrderState) syncOrderListLocked(order *domain.Order) {
	for i := range o.orders {
		if o.orders[i].OrderNumber == order.OrderNumber {
			o.orders[i] = *order
		}
	}
}

func (o *OrderState) persist(ctx context.Context) {
	if o.snapshots == nil {
		return
	}
	o.mu.Lock()
	orders := make([]domain.Order, len(o.orders))
	copy(orders, o.orders)
	var current *domain.Order
	if o.currentOrder != nil {
		cp := *o.currentOrder
		current = &cp
	}
	o.mu.Unlock()

	if err := o.snapshots.SaveOrders(ctx, o.sessionID, orders); err != nil {
		o.logger.WarnContext(ctx, "failed to persist orders snapshot",
			slog.String("session_id", o.sessionID),
			slog.String("error", err.Error()),
		)
	}
	if current != nil {
		if err := o.snapshots.SaveCurrentOrder(ctx, o.sessionID, current); err != nil {
			o.logger.WarnContext(ctx, "failed to persist current order snapshot",
				slog.String("session_id", o.sessionID),
				slog.String("error", err.Error()),
			)
		}
	}
}

func (o *OrderState) publishOrderEvent(ctx context.Context, kind string, order *domain.Order) {
	if o.events == nil {
		return
	}
	var err error
	switch kind {
	case "created":
		err = o.events.PublishOrderCreated(ctx, o.sessionID, order)
	case "paid":
		err = o.events.PublishOrderPaid(ctx, o.sessionID, order)
	case "cancelled":
		err = o.events.PublishOrderCancelled(ctx, o.sessionID, order)
	case "deleted":
		err = o.events.PublishOrderDeleted(ctx, o.sessionID, order)
	}
	if err != nil {
		o.logger.ErrorContext(ctx, "failed to publish order event",
			slog.String("session_id", o.sessionID),
			slog.String("event", kind),
			slog.String("order_number", order.OrderNumber),
			slog.String("error", err.Error()),
		)
	}
}
