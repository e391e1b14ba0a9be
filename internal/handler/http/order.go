package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/puremall/storefront/internal/domain"
	"github.com/puremall/storefront/internal/store"
	apperrors "github.com/puremall/storefront/pkg/errors"
	"github.com/puremall/storefront/pkg/httputil"
	"github.com/puremall/storefront/pkg/validator"
)

// CheckoutView is the checkout page state: the staged items, the running
// totals, the address book, and the static option tables.
type CheckoutView struct {
	Items           domain.CartLines        `json:"items"`
	Subtotal        int64                   `json:"subtotal"`
	DeliveryFee     int64                   `json:"deliveryFee"`
	TotalAmount     int64                   `json:"totalAmount"`
	Addresses       domain.AddressBook      `json:"addresses"`
	DefaultAddress  *domain.Address         `json:"defaultAddress,omitempty"`
	DeliveryMethods []domain.DeliveryMethod `json:"deliveryMethods"`
	PaymentMethods  []domain.PaymentMethod  `json:"paymentMethods"`
}

func checkoutView(orders *store.OrderState) CheckoutView {
	return CheckoutView{
		Items:           orders.StagedItems(),
		Subtotal:        orders.Subtotal(),
		DeliveryFee:     orders.DeliveryFee(),
		TotalAmount:     orders.TotalAmount(),
		Addresses:       orders.Addresses(),
		DefaultAddress:  orders.DefaultAddress(),
		DeliveryMethods: domain.DeliveryMethods(),
		PaymentMethods:  domain.PaymentMethods(),
	}
}

// GetCheckout returns the checkout page state.
func (h *Handler) GetCheckout(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	h.render(w, sess, http.StatusOK, checkoutView(sess.Orders))
}

type deliveryRequest struct {
	Value string `json:"value" validate:"required"`
}

// SetDeliveryMethod selects the delivery option for the staged order.
func (h *Handler) SetDeliveryMethod(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	var req deliveryRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	sess.Orders.SetDeliveryMethod(req.Value)
	h.render(w, sess, http.StatusOK, checkoutView(sess.Orders))
}

type paymentRequest struct {
	Value string           `json:"value" validate:"required"`
	Card  *domain.CardForm `json:"card,omitempty"`
}

// SetPaymentMethod selects the payment option, optionally carrying the
// credit-card form when the method requires it.
func (h *Handler) SetPaymentMethod(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	var req paymentRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	sess.Orders.SetPaymentMethod(req.Value)
	if req.Card != nil {
		sess.Orders.SetCardForm(*req.Card)
	}
	h.render(w, sess, http.StatusOK, checkoutView(sess.Orders))
}

type remarkRequest struct {
	Remark string `json:"remark"`
}

// SetRemark stores the free-form order note.
func (h *Handler) SetRemark(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	var req remarkRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	sess.Orders.SetRemark(req.Remark)
	h.render(w, sess, http.StatusOK, checkoutView(sess.Orders))
}

type submitRequest struct {
	AddressID int64 `json:"addressId"`
}

// ProceedToPayment creates the pending order from the staged items and moves
// the session to the payment step, starting the payment window countdown.
func (h *Handler) ProceedToPayment(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	var req submitRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	order, err := sess.Orders.ProceedToPayment(r.Context(), req.AddressID, sess.Cart, sess.Feed)
	if err != nil {
		h.render(w, sess, http.StatusOK, checkoutView(sess.Orders))
		return
	}

	feed := sess.Feed
	sess.StartPaymentCountdown(func() {
		feed.Warning("支付超时，请重新下单")
		feed.NavigateTo(store.RouteOrders)
	})

	h.render(w, sess, http.StatusOK, order)
}

// ListOrders returns the session's order list.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	h.render(w, sess, http.StatusOK, sess.Orders.Orders())
}

// GetOrder returns one order from the local list. Orders are never fetched
// individually from the backend.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	orderNumber := chi.URLParam(r, "orderNumber")
	order := sess.Orders.GetOrderByNumber(orderNumber)
	if order == nil {
		httputil.WriteError(w, r, apperrors.NotFound("order", orderNumber), h.logger)
		return
	}

	h.render(w, sess, http.StatusOK, order)
}

// CompletePayment pays the current pending order. The order number must
// match the order awaiting payment.
func (h *Handler) CompletePayment(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	orderNumber := chi.URLParam(r, "orderNumber")
	current := sess.Orders.CurrentOrder()
	if current == nil || current.OrderNumber != orderNumber {
		httputil.WriteError(w, r, apperrors.NotFound("pending order", orderNumber), h.logger)
		return
	}

	err := sess.Orders.CompletePayment(r.Context(), sess.Feed)
	if err == nil || errors.Is(err, apperrors.ErrPaymentFailed) {
		sess.StopPaymentCountdown()
	}
	h.render(w, sess, http.StatusOK, sess.Orders.CurrentOrder())
}

// CancelOrder cancels a pending or paid order.
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	if err := sess.Orders.CancelOrder(r.Context(), chi.URLParam(r, "orderNumber")); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.render(w, sess, http.StatusOK, sess.Orders.Orders())
}

type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending paid shipped delivered cancelled"`
}

// ApplyRemoteStatus reflects a backend-driven status change onto the local
// copy of an order.
func (h *Handler) ApplyRemoteStatus(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	var req statusRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	orderNumber := chi.URLParam(r, "orderNumber")
	if err := sess.Orders.ApplyRemoteStatus(orderNumber, req.Status); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.render(w, sess, http.StatusOK, sess.Orders.GetOrderByNumber(orderNumber))
}

// DeleteOrder removes an order remotely and locally.
func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	if err := sess.Orders.DeleteOrder(r.Context(), chi.URLParam(r, "orderNumber")); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.render(w, sess, http.StatusOK, sess.Orders.Orders())
}

// CountdownView is the payment countdown as the payment page renders it.
type CountdownView struct {
	Display   string `json:"display"`
	Remaining int    `json:"remaining"`
	Expired   bool   `json:"expired"`
}

// StartCountdown starts (or restarts) the 15 minute payment window.
func (h *Handler) StartCountdown(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	feed := sess.Feed
	cd := sess.StartPaymentCountdown(func() {
		feed.Warning("支付超时，请重新下单")
		feed.NavigateTo(store.RouteOrders)
	})

	h.render(w, sess, http.StatusOK, CountdownView{
		Display:   cd.Display(),
		Remaining: cd.Remaining(),
		Expired:   cd.Expired(),
	})
}

// GetCountdown reports the running payment countdown.
func (h *Handler) GetCountdown(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	cd := sess.PaymentCountdown()
	if cd == nil {
		httputil.WriteError(w, r, apperrors.NotFound("payment countdown", sess.ID), h.logger)
		return
	}

	h.render(w, sess, http.StatusOK, CountdownView{
		Display:   cd.Display(),
		Remaining: cd.Remaining(),
		Expired:   cd.Expired(),
	})
}

// StopCountdown cancels the payment countdown.
func (h *Handler) StopCountdown(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	sess.StopPaymentCountdown()
	h.render(w, sess, http.StatusOK, map[string]string{"status": "stopped"})
}
